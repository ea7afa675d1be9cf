package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/vicharanashala/ajrasakha-sub001/internal/models"
)

const questionColumns = `id, text, status, is_auto_allocate, state, crop, domain, priority, last_answer_id, version, created_at, updated_at`

// QuestionRepository persists questions and assembles workflow snapshots.
type QuestionRepository struct {
	db *sqlx.DB
}

// NewQuestionRepository constructs the repository.
func NewQuestionRepository(db *sqlx.DB) *QuestionRepository {
	return &QuestionRepository{db: db}
}

// Create inserts a new question row.
func (r *QuestionRepository) Create(ctx context.Context, question *models.Question) error {
	now := time.Now().UTC()
	if question.ID == "" {
		question.ID = uuid.NewString()
	}
	if question.Status == "" {
		question.Status = models.QuestionStatusOpen
	}
	question.Version = 1
	question.CreatedAt = now
	question.UpdatedAt = now

	const query = `INSERT INTO questions
	(id, text, status, is_auto_allocate, state, crop, domain, priority, last_answer_id, version, created_at, updated_at)
	VALUES (:id, :text, :status, :is_auto_allocate, :state, :crop, :domain, :priority, :last_answer_id, :version, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, question); err != nil {
		return fmt.Errorf("create question: %w", err)
	}
	return nil
}

// GetByID fetches a question by identifier.
func (r *QuestionRepository) GetByID(ctx context.Context, id string) (*models.Question, error) {
	query := `SELECT ` + questionColumns + ` FROM questions WHERE id = $1`
	var question models.Question
	if err := r.db.GetContext(ctx, &question, query, id); err != nil {
		return nil, err
	}
	return &question, nil
}

// GetSnapshot assembles the consistent view used to validate workflow
// preconditions: the question, its queue, its full history ordered by seq,
// the latest answer and any pending re-route.
func (r *QuestionRepository) GetSnapshot(ctx context.Context, id string) (*models.QuestionSnapshot, error) {
	snapshot := &models.QuestionSnapshot{}

	query := `SELECT ` + questionColumns + ` FROM questions WHERE id = $1`
	if err := r.db.GetContext(ctx, &snapshot.Question, query, id); err != nil {
		return nil, err
	}

	const queueQuery = `SELECT id, question_id, expert_id, expert_email, position, round, created_at
	FROM allocation_queue WHERE question_id = $1 ORDER BY round, position`
	if err := r.db.SelectContext(ctx, &snapshot.Queue, queueQuery, id); err != nil {
		return nil, fmt.Errorf("load allocation queue: %w", err)
	}

	const historyQuery = `SELECT id, question_id, seq, updated_by, answer_id, status,
	approved_answer, rejected_answer, modified_answer, is_reroute, reason_for_rejection, created_at
	FROM submission_history WHERE question_id = $1 ORDER BY seq`
	if err := r.db.SelectContext(ctx, &snapshot.History, historyQuery, id); err != nil {
		return nil, fmt.Errorf("load submission history: %w", err)
	}

	const answerQuery = `SELECT ` + answerColumns + ` FROM answers WHERE question_id = $1 ORDER BY iteration DESC LIMIT 1`
	var answer models.Answer
	if err := r.db.GetContext(ctx, &answer, answerQuery, id); err != nil {
		if err != sql.ErrNoRows {
			return nil, fmt.Errorf("load latest answer: %w", err)
		}
	} else {
		snapshot.LatestAnswer = &answer
	}

	const rerouteQuery = `SELECT ` + rerouteColumns + ` FROM reroutes WHERE question_id = $1 AND status = $2`
	var reroute models.Reroute
	if err := r.db.GetContext(ctx, &reroute, rerouteQuery, id, models.RerouteStatusPending); err != nil {
		if err != sql.ErrNoRows {
			return nil, fmt.Errorf("load pending reroute: %w", err)
		}
	} else {
		snapshot.PendingReroute = &reroute
	}

	return snapshot, nil
}

// List returns questions matching the filter with a total count.
func (r *QuestionRepository) List(ctx context.Context, filter models.QuestionFilter) ([]models.Question, int, error) {
	conditions := make([]string, 0, 6)
	args := make([]interface{}, 0, 8)

	if len(filter.Status) > 0 {
		placeholders := make([]string, len(filter.Status))
		for i, status := range filter.Status {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		conditions = append(conditions, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	for column, value := range map[string]string{
		"state":    filter.State,
		"crop":     filter.Crop,
		"domain":   filter.Domain,
		"priority": filter.Priority,
	} {
		if value != "" {
			args = append(args, value)
			conditions = append(conditions, fmt.Sprintf("%s = $%d", column, len(args)))
		}
	}
	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		conditions = append(conditions, fmt.Sprintf("text ILIKE $%d", len(args)))
	}

	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM questions"+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count questions: %w", err)
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 200 {
		pageSize = 50
	}

	query := fmt.Sprintf(`SELECT %s FROM questions%s ORDER BY created_at DESC LIMIT %d OFFSET %d`,
		questionColumns, where, pageSize, (page-1)*pageSize)

	var questions []models.Question
	if err := r.db.SelectContext(ctx, &questions, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list questions: %w", err)
	}
	return questions, total, nil
}

// CountByStatus aggregates questions per lifecycle status.
func (r *QuestionRepository) CountByStatus(ctx context.Context) (map[string]int, error) {
	rows, err := r.db.QueryxContext(ctx, `SELECT status, COUNT(*) FROM questions GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("count questions by status: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	counts := make(map[string]int)
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("scan status count: %w", err)
		}
		counts[status] = count
	}
	return counts, rows.Err()
}
