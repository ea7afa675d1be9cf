package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/vicharanashala/ajrasakha-sub001/internal/models"
)

// WorkflowRepository executes the state-changing workflow operations. Every
// method runs a single transaction whose question update is guarded by the
// version read in the caller's snapshot: zero rows affected means the
// snapshot went stale and the whole mutation is rolled back with
// sql.ErrNoRows, never partially applied.
type WorkflowRepository struct {
	db *sqlx.DB
}

// NewWorkflowRepository constructs the repository.
func NewWorkflowRepository(db *sqlx.DB) *WorkflowRepository {
	return &WorkflowRepository{db: db}
}

func (r *WorkflowRepository) begin(ctx context.Context) (*sqlx.Tx, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin workflow transaction: %w", err)
	}
	return tx, nil
}

// bumpVersion increments the question version and applies optional column
// updates, enforcing the optimistic guard. extraSet placeholders start at $2
// ($1 is the updated_at timestamp); the id and version guards follow the
// extra arguments.
func bumpVersion(ctx context.Context, tx *sqlx.Tx, questionID string, version int64, extraSet string, extraArgs ...interface{}) error {
	query := "UPDATE questions SET version = version + 1, updated_at = $1"
	if extraSet != "" {
		query += ", " + extraSet
	}
	args := make([]interface{}, 0, len(extraArgs)+3)
	args = append(args, time.Now().UTC())
	args = append(args, extraArgs...)
	args = append(args, questionID, version)
	query += fmt.Sprintf(" WHERE id = $%d AND version = $%d", len(args)-1, len(args))

	result, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update question version: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check question update rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func insertHistory(ctx context.Context, tx *sqlx.Tx, entry *models.SubmissionHistory) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO submission_history
	(id, question_id, seq, updated_by, answer_id, status, approved_answer, rejected_answer, modified_answer, is_reroute, reason_for_rejection, created_at)
	VALUES (:id, :question_id, :seq, :updated_by, :answer_id, :status, :approved_answer, :rejected_answer, :modified_answer, :is_reroute, :reason_for_rejection, :created_at)`
	if _, err := tx.NamedExecContext(ctx, query, entry); err != nil {
		return fmt.Errorf("append history entry: %w", err)
	}
	return nil
}

// AppendQueueParams adds experts to the allocation queue.
type AppendQueueParams struct {
	QuestionID string
	Version    int64
	Entries    []models.QueueEntry
}

// AppendQueue inserts queue slots in the given order.
func (r *WorkflowRepository) AppendQueue(ctx context.Context, params AppendQueueParams) (err error) {
	tx, err := r.begin(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = bumpVersion(ctx, tx, params.QuestionID, params.Version, ""); err != nil {
		return err
	}
	const query = `INSERT INTO allocation_queue
	(id, question_id, expert_id, expert_email, position, round, created_at)
	VALUES (:id, :question_id, :expert_id, :expert_email, :position, :round, :created_at)`
	for i := range params.Entries {
		entry := &params.Entries[i]
		if entry.ID == "" {
			entry.ID = uuid.NewString()
		}
		if entry.CreatedAt.IsZero() {
			entry.CreatedAt = time.Now().UTC()
		}
		if _, err = tx.NamedExecContext(ctx, query, entry); err != nil {
			return fmt.Errorf("insert queue entry: %w", err)
		}
	}
	return tx.Commit()
}

// RemoveQueueEntryParams removes a not-yet-submitted queue slot.
type RemoveQueueEntryParams struct {
	QuestionID string
	Version    int64
	EntryID    string
}

// RemoveQueueEntry deletes a queue slot.
func (r *WorkflowRepository) RemoveQueueEntry(ctx context.Context, params RemoveQueueEntryParams) (err error) {
	tx, err := r.begin(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = bumpVersion(ctx, tx, params.QuestionID, params.Version, ""); err != nil {
		return err
	}
	result, err := tx.ExecContext(ctx, `DELETE FROM allocation_queue WHERE id = $1 AND question_id = $2`, params.EntryID, params.QuestionID)
	if err != nil {
		return fmt.Errorf("remove queue entry: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check queue removal rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return tx.Commit()
}

// SetAutoAllocateParams flips the auto-allocate flag.
type SetAutoAllocateParams struct {
	QuestionID string
	Version    int64
	Enabled    bool
}

// SetAutoAllocate persists the toggled flag. Toggling never changes status.
func (r *WorkflowRepository) SetAutoAllocate(ctx context.Context, params SetAutoAllocateParams) (err error) {
	tx, err := r.begin(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = bumpVersion(ctx, tx, params.QuestionID, params.Version, "is_auto_allocate = $2", params.Enabled); err != nil {
		return err
	}
	return tx.Commit()
}

// RecordSubmissionParams stores a new answer iteration plus its history
// entry, and resolves any pending re-route in the same transaction.
type RecordSubmissionParams struct {
	QuestionID       string
	Version          int64
	Status           models.QuestionStatus
	Answer           *models.Answer
	History          models.SubmissionHistory
	ResolveRerouteID *string
}

// RecordSubmission applies the submit transition.
func (r *WorkflowRepository) RecordSubmission(ctx context.Context, params RecordSubmissionParams) (err error) {
	tx, err := r.begin(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	answer := params.Answer
	if answer.ID == "" {
		answer.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	answer.CreatedAt = now
	answer.UpdatedAt = now

	if err = bumpVersion(ctx, tx, params.QuestionID, params.Version,
		"status = $2, last_answer_id = $3", params.Status, answer.ID); err != nil {
		return err
	}

	const answerQuery = `INSERT INTO answers
	(id, question_id, author_id, iteration, is_final, text, sources, approval_count, threshold, remarks, created_at, updated_at)
	VALUES (:id, :question_id, :author_id, :iteration, :is_final, :text, :sources, :approval_count, :threshold, :remarks, :created_at, :updated_at)`
	if _, err = tx.NamedExecContext(ctx, answerQuery, answer); err != nil {
		return fmt.Errorf("insert answer: %w", err)
	}

	params.History.AnswerID = &answer.ID
	if err = insertHistory(ctx, tx, &params.History); err != nil {
		return err
	}

	if params.ResolveRerouteID != nil {
		result, rerr := tx.ExecContext(ctx,
			`UPDATE reroutes SET status = $1, resolved_at = $2 WHERE id = $3 AND status = $4`,
			models.RerouteStatusAccepted, now, *params.ResolveRerouteID, models.RerouteStatusPending)
		if rerr != nil {
			err = fmt.Errorf("resolve reroute: %w", rerr)
			return err
		}
		rows, rerr := result.RowsAffected()
		if rerr != nil {
			err = fmt.Errorf("check reroute resolution rows: %w", rerr)
			return err
		}
		if rows == 0 {
			err = sql.ErrNoRows
			return err
		}
	}
	return tx.Commit()
}

// RecordApprovalParams finalises an answer and closes the question.
type RecordApprovalParams struct {
	QuestionID string
	Version    int64
	AnswerID   string
	FinalText  string
	Sources    models.AnswerSources
	History    models.SubmissionHistory
}

// RecordApproval applies the approve transition.
func (r *WorkflowRepository) RecordApproval(ctx context.Context, params RecordApprovalParams) (err error) {
	tx, err := r.begin(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = bumpVersion(ctx, tx, params.QuestionID, params.Version,
		"status = $2", models.QuestionStatusClosed); err != nil {
		return err
	}
	now := time.Now().UTC()
	result, err := tx.ExecContext(ctx,
		`UPDATE answers SET is_final = TRUE, text = $1, sources = $2, updated_at = $3 WHERE id = $4 AND is_final = FALSE`,
		params.FinalText, params.Sources, now, params.AnswerID)
	if err != nil {
		return fmt.Errorf("finalise answer: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check answer finalise rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	if err = insertHistory(ctx, tx, &params.History); err != nil {
		return err
	}
	return tx.Commit()
}

// RecordRejectionParams records a rejection; the question stays in review
// and the queue advances to the next turn implicitly.
type RecordRejectionParams struct {
	QuestionID string
	Version    int64
	History    models.SubmissionHistory
}

// RecordRejection applies the reject transition.
func (r *WorkflowRepository) RecordRejection(ctx context.Context, params RecordRejectionParams) (err error) {
	tx, err := r.begin(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = bumpVersion(ctx, tx, params.QuestionID, params.Version,
		"status = $2", models.QuestionStatusInReview); err != nil {
		return err
	}
	if err = insertHistory(ctx, tx, &params.History); err != nil {
		return err
	}
	return tx.Commit()
}

// CreateRerouteParams opens a pending re-route, reserving a queue slot for
// the target expert and recording the re-route review.
type CreateRerouteParams struct {
	QuestionID string
	Version    int64
	Reroute    models.Reroute
	QueueEntry models.QueueEntry
	Review     models.AnswerReview
	History    models.SubmissionHistory
}

// CreateReroute applies the reroute transition.
func (r *WorkflowRepository) CreateReroute(ctx context.Context, params CreateRerouteParams) (reroute *models.Reroute, err error) {
	tx, err := r.begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = bumpVersion(ctx, tx, params.QuestionID, params.Version,
		"status = $2", models.QuestionStatusRerouted); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	entry := params.QueueEntry
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	entry.CreatedAt = now
	const queueQuery = `INSERT INTO allocation_queue
	(id, question_id, expert_id, expert_email, position, round, created_at)
	VALUES (:id, :question_id, :expert_id, :expert_email, :position, :round, :created_at)`
	if _, err = tx.NamedExecContext(ctx, queueQuery, &entry); err != nil {
		return nil, fmt.Errorf("reserve reroute queue slot: %w", err)
	}

	record := params.Reroute
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	record.QueueEntryID = entry.ID
	record.Status = models.RerouteStatusPending
	record.CreatedAt = now
	const rerouteQuery = `INSERT INTO reroutes
	(id, question_id, answer_id, rerouted_to, rerouted_by, queue_entry_id, comment, status, reason, created_at, resolved_at)
	VALUES (:id, :question_id, :answer_id, :rerouted_to, :rerouted_by, :queue_entry_id, :comment, :status, :reason, :created_at, :resolved_at)`
	if _, err = tx.NamedExecContext(ctx, rerouteQuery, &record); err != nil {
		return nil, fmt.Errorf("insert reroute: %w", err)
	}

	review := params.Review
	if review.ID == "" {
		review.ID = uuid.NewString()
	}
	review.ReRouted = true
	review.CreatedAt = now
	if err = insertReview(ctx, tx, &review); err != nil {
		return nil, err
	}

	if err = insertHistory(ctx, tx, &params.History); err != nil {
		return nil, err
	}
	if err = tx.Commit(); err != nil {
		return nil, err
	}
	return &record, nil
}

// RejectRerouteParams declines a pending re-route and reverts the question.
type RejectRerouteParams struct {
	QuestionID   string
	Version      int64
	RerouteID    string
	QueueEntryID string
	Reason       string
	History      models.SubmissionHistory
}

// RejectReroute applies the rerouteRejected transition.
func (r *WorkflowRepository) RejectReroute(ctx context.Context, params RejectRerouteParams) (err error) {
	tx, err := r.begin(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = bumpVersion(ctx, tx, params.QuestionID, params.Version,
		"status = $2", models.QuestionStatusInReview); err != nil {
		return err
	}
	now := time.Now().UTC()
	result, err := tx.ExecContext(ctx,
		`UPDATE reroutes SET status = $1, reason = $2, resolved_at = $3 WHERE id = $4 AND status = $5`,
		models.RerouteStatusRejected, params.Reason, now, params.RerouteID, models.RerouteStatusPending)
	if err != nil {
		return fmt.Errorf("reject reroute: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check reroute rejection rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	if params.QueueEntryID != "" {
		if _, err = tx.ExecContext(ctx,
			`DELETE FROM allocation_queue WHERE id = $1 AND question_id = $2`,
			params.QueueEntryID, params.QuestionID); err != nil {
			return fmt.Errorf("release reroute queue slot: %w", err)
		}
	}
	if err = insertHistory(ctx, tx, &params.History); err != nil {
		return err
	}
	return tx.Commit()
}

// CloseQuestionParams marks a question terminal.
type CloseQuestionParams struct {
	QuestionID string
	Version    int64
	History    models.SubmissionHistory
}

// CloseQuestion applies the close transition.
func (r *WorkflowRepository) CloseQuestion(ctx context.Context, params CloseQuestionParams) (err error) {
	tx, err := r.begin(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = bumpVersion(ctx, tx, params.QuestionID, params.Version,
		"status = $2", models.QuestionStatusClosed); err != nil {
		return err
	}
	if err = insertHistory(ctx, tx, &params.History); err != nil {
		return err
	}
	return tx.Commit()
}

// ReputationDelta adjusts an author's monotonic accumulators.
type ReputationDelta struct {
	Reputation int
	Incentive  int
	Penalty    int
}

// AddReviewParams appends a peer review and optionally bumps the answer's
// approval count plus the author's reputation in the same transaction.
type AddReviewParams struct {
	Review            models.AnswerReview
	IncrementApproval bool
	AuthorID          string
	AuthorDelta       ReputationDelta
}

// AddReview stores a peer review verdict.
func (r *WorkflowRepository) AddReview(ctx context.Context, params AddReviewParams) (review *models.AnswerReview, err error) {
	tx, err := r.begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	record := params.Review
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}
	if err = insertReview(ctx, tx, &record); err != nil {
		return nil, err
	}

	if params.IncrementApproval {
		// approval_count only ever grows; the final answer is immutable.
		result, aerr := tx.ExecContext(ctx,
			`UPDATE answers SET approval_count = approval_count + 1, updated_at = $1 WHERE id = $2 AND is_final = FALSE`,
			time.Now().UTC(), record.AnswerID)
		if aerr != nil {
			err = fmt.Errorf("increment approval count: %w", aerr)
			return nil, err
		}
		rows, aerr := result.RowsAffected()
		if aerr != nil {
			err = fmt.Errorf("check approval increment rows: %w", aerr)
			return nil, err
		}
		if rows == 0 {
			err = sql.ErrNoRows
			return nil, err
		}
	}

	if params.AuthorID != "" {
		delta := params.AuthorDelta
		if delta.Reputation != 0 || delta.Incentive != 0 || delta.Penalty != 0 {
			if _, err = tx.ExecContext(ctx,
				`UPDATE users SET reputation_score = reputation_score + $1, incentive = incentive + $2, penalty = penalty + $3, updated_at = $4 WHERE id = $5`,
				delta.Reputation, delta.Incentive, delta.Penalty, time.Now().UTC(), params.AuthorID); err != nil {
				return nil, fmt.Errorf("adjust author reputation: %w", err)
			}
		}
	}
	if err = tx.Commit(); err != nil {
		return nil, err
	}
	return &record, nil
}

func insertReview(ctx context.Context, tx *sqlx.Tx, review *models.AnswerReview) error {
	const query = `INSERT INTO answer_reviews
	(id, answer_id, reviewer_id, action, parameters, reason, old_answer, new_answer, modified_by, rerouted, created_at)
	VALUES (:id, :answer_id, :reviewer_id, :action, :parameters, :reason, :old_answer, :new_answer, :modified_by, :rerouted, :created_at)`
	if _, err := tx.NamedExecContext(ctx, query, review); err != nil {
		return fmt.Errorf("insert answer review: %w", err)
	}
	return nil
}
