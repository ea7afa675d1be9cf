package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/vicharanashala/ajrasakha-sub001/internal/dto"
	"github.com/vicharanashala/ajrasakha-sub001/internal/models"
	"github.com/vicharanashala/ajrasakha-sub001/internal/repository"
	appErrors "github.com/vicharanashala/ajrasakha-sub001/pkg/errors"
)

type reviewQuestionStore interface {
	GetSnapshot(ctx context.Context, id string) (*models.QuestionSnapshot, error)
}

type reviewWorkflowStore interface {
	RecordSubmission(ctx context.Context, params repository.RecordSubmissionParams) error
	RecordApproval(ctx context.Context, params repository.RecordApprovalParams) error
	RecordRejection(ctx context.Context, params repository.RecordRejectionParams) error
	CloseQuestion(ctx context.Context, params repository.CloseQuestionParams) error
	AddReview(ctx context.Context, params repository.AddReviewParams) (*models.AnswerReview, error)
}

type reviewAnswerStore interface {
	GetByID(ctx context.Context, id string) (*models.Answer, error)
	ListReviews(ctx context.Context, answerID string) ([]models.AnswerReview, error)
	HasReviewed(ctx context.Context, answerID, reviewerID string, rerouted bool) (bool, error)
}

// ReviewService drives the answer review state machine: submissions by the
// current-turn expert, peer reviews, and moderator approve/reject/close.
type ReviewService struct {
	questions         reviewQuestionStore
	workflow          reviewWorkflowStore
	answers           reviewAnswerStore
	events            eventPublisher
	approvalThreshold int
	minReasonLength   int
	logger            *zap.Logger
}

// NewReviewService constructs a ReviewService.
func NewReviewService(questions reviewQuestionStore, workflow reviewWorkflowStore, answers reviewAnswerStore, events eventPublisher, approvalThreshold, minReasonLength int, logger *zap.Logger) *ReviewService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if approvalThreshold <= 0 {
		approvalThreshold = 3
	}
	if minReasonLength <= 0 {
		minReasonLength = 8
	}
	return &ReviewService{
		questions:         questions,
		workflow:          workflow,
		answers:           answers,
		events:            events,
		approvalThreshold: approvalThreshold,
		minReasonLength:   minReasonLength,
		logger:            logger,
	}
}

func (s *ReviewService) snapshot(ctx context.Context, questionID string) (*models.QuestionSnapshot, error) {
	snapshot, err := s.questions.GetSnapshot(ctx, questionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "question not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load question")
	}
	return snapshot, nil
}

// Submit records a new answer iteration from the expert holding the current
// turn. On a re-routed question only the pending re-route target may submit,
// and the submission resolves the re-route to accepted in the same
// transaction.
func (s *ReviewService) Submit(ctx context.Context, questionID, expertID string, req dto.SubmitAnswerRequest) (*dto.SubmissionResult, error) {
	snapshot, err := s.snapshot(ctx, questionID)
	if err != nil {
		return nil, err
	}
	question := snapshot.Question
	if !question.Status.AcceptsSubmission() {
		return nil, appErrors.Clone(appErrors.ErrInvalidState, "question is closed")
	}

	var resolveRerouteID *string
	if question.Status == models.QuestionStatusRerouted {
		pending := snapshot.PendingReroute
		if pending == nil {
			return nil, appErrors.Clone(appErrors.ErrInvalidState, "re-routed question has no pending re-route")
		}
		if pending.ReroutedTo != expertID {
			return nil, appErrors.Clone(appErrors.ErrNotYourTurn, "only the re-route target may submit")
		}
		resolveRerouteID = &pending.ID
	} else {
		// From in-review the submitted answer holds the turn until a
		// moderator rejects it; only a rejection opens the next iteration.
		if question.Status == models.QuestionStatusInReview && len(snapshot.History) > 0 {
			last := snapshot.History[len(snapshot.History)-1]
			if !last.RejectedAnswer {
				if last.AnswerID != nil && last.UpdatedBy == expertID {
					return nil, appErrors.Clone(appErrors.ErrDuplicateSubmission, "answer already submitted and awaiting review")
				}
				return nil, appErrors.Clone(appErrors.ErrNotYourTurn, "latest answer is awaiting moderator review")
			}
		}
		turn, ok := CurrentTurn(snapshot.Queue, snapshot.History)
		if !ok {
			return nil, appErrors.Clone(appErrors.ErrInvalidState, "allocation queue is exhausted")
		}
		if turn.ExpertID != expertID {
			if hasOnlySubmittedSlots(snapshot.Queue, snapshot.History, expertID) {
				return nil, appErrors.Clone(appErrors.ErrDuplicateSubmission, "expert has already submitted for this turn")
			}
			return nil, appErrors.Clone(appErrors.ErrNotYourTurn, "another expert holds the current turn")
		}
	}

	iteration := 1
	if snapshot.LatestAnswer != nil {
		iteration = snapshot.LatestAnswer.Iteration + 1
	}
	answer := &models.Answer{
		QuestionID: questionID,
		AuthorID:   expertID,
		Iteration:  iteration,
		Text:       req.Text,
		Sources:    models.AnswerSources(req.Sources),
	}
	if remarks := strings.TrimSpace(req.Remarks); remarks != "" {
		answer.Remarks = &remarks
	}

	history := models.SubmissionHistory{
		QuestionID: questionID,
		Seq:        len(snapshot.History) + 1,
		UpdatedBy:  expertID,
		Status:     models.QuestionStatusInReview,
		IsReroute:  resolveRerouteID != nil,
	}

	if err := s.workflow.RecordSubmission(ctx, repository.RecordSubmissionParams{
		QuestionID:       questionID,
		Version:          question.Version,
		Status:           models.QuestionStatusInReview,
		Answer:           answer,
		History:          history,
		ResolveRerouteID: resolveRerouteID,
	}); err != nil {
		return nil, workflowWriteError(err, "failed to record submission")
	}

	s.logger.Info("answer submitted",
		zap.String("question_id", questionID),
		zap.String("expert_id", expertID),
		zap.Int("iteration", iteration))
	s.publish(ctx, Event{
		Type:       EventAnswerSubmitted,
		QuestionID: questionID,
		ActorID:    expertID,
	})

	history.AnswerID = &answer.ID
	return &dto.SubmissionResult{
		Answer:  *answer,
		History: history,
		Status:  models.QuestionStatusInReview,
	}, nil
}

// Approve finalises the latest answer with moderator-edited content and
// closes the question. Requires the accumulated approval count to have
// reached the threshold.
func (s *ReviewService) Approve(ctx context.Context, questionID, moderatorID string, req dto.ApproveAnswerRequest) (*models.SubmissionHistory, error) {
	snapshot, err := s.snapshot(ctx, questionID)
	if err != nil {
		return nil, err
	}
	if !snapshot.Question.Status.Reviewable() {
		return nil, appErrors.Clone(appErrors.ErrInvalidState, "question is not under review")
	}
	if snapshot.PendingReroute != nil {
		return nil, appErrors.Clone(appErrors.ErrReroutePending, "resolve the pending re-route first")
	}
	answer := snapshot.LatestAnswer
	if answer == nil {
		return nil, appErrors.Clone(appErrors.ErrInvalidState, "question has no answer to approve")
	}
	if req.AnswerID != answer.ID {
		return nil, appErrors.Clone(appErrors.ErrStaleAnswer, "answer is not the latest iteration")
	}
	if answer.ApprovalCount < s.approvalThreshold {
		return nil, appErrors.Clone(appErrors.ErrThresholdNotMet, "approval count below required threshold")
	}

	history := models.SubmissionHistory{
		QuestionID:     questionID,
		Seq:            len(snapshot.History) + 1,
		UpdatedBy:      moderatorID,
		AnswerID:       &answer.ID,
		Status:         models.QuestionStatusClosed,
		ApprovedAnswer: true,
	}
	if err := s.workflow.RecordApproval(ctx, repository.RecordApprovalParams{
		QuestionID: questionID,
		Version:    snapshot.Question.Version,
		AnswerID:   answer.ID,
		FinalText:  req.FinalText,
		Sources:    models.AnswerSources(req.Sources),
		History:    history,
	}); err != nil {
		return nil, workflowWriteError(err, "failed to approve answer")
	}

	s.logger.Info("answer approved",
		zap.String("question_id", questionID),
		zap.String("answer_id", answer.ID))
	s.publish(ctx, Event{
		Type:       EventAnswerApproved,
		QuestionID: questionID,
		ActorID:    moderatorID,
		TargetID:   answer.AuthorID,
	})
	return &history, nil
}

// Reject records a moderator rejection of the latest answer. The question
// stays in review and the turn advances to the next queued expert.
func (s *ReviewService) Reject(ctx context.Context, questionID, moderatorID string, req dto.RejectAnswerRequest) (*models.SubmissionHistory, error) {
	snapshot, err := s.snapshot(ctx, questionID)
	if err != nil {
		return nil, err
	}
	if !snapshot.Question.Status.Reviewable() {
		return nil, appErrors.Clone(appErrors.ErrInvalidState, "question is not under review")
	}
	answer := snapshot.LatestAnswer
	if answer == nil {
		return nil, appErrors.Clone(appErrors.ErrInvalidState, "question has no answer to reject")
	}
	reason := strings.TrimSpace(req.Reason)
	if len(reason) < s.minReasonLength {
		return nil, appErrors.Clone(appErrors.ErrReasonTooShort, "rejection reason is too short")
	}

	history := models.SubmissionHistory{
		QuestionID:         questionID,
		Seq:                len(snapshot.History) + 1,
		UpdatedBy:          moderatorID,
		AnswerID:           &answer.ID,
		Status:             models.QuestionStatusInReview,
		RejectedAnswer:     true,
		ReasonForRejection: &reason,
	}
	if err := s.workflow.RecordRejection(ctx, repository.RecordRejectionParams{
		QuestionID: questionID,
		Version:    snapshot.Question.Version,
		History:    history,
	}); err != nil {
		return nil, workflowWriteError(err, "failed to reject answer")
	}

	s.logger.Info("answer rejected",
		zap.String("question_id", questionID),
		zap.String("answer_id", answer.ID))
	s.publish(ctx, Event{
		Type:       EventAnswerRejected,
		QuestionID: questionID,
		ActorID:    moderatorID,
		TargetID:   answer.AuthorID,
		Message:    reason,
	})
	return &history, nil
}

// Close marks a question terminal without approving an answer.
func (s *ReviewService) Close(ctx context.Context, questionID, moderatorID, reason string) (*models.SubmissionHistory, error) {
	snapshot, err := s.snapshot(ctx, questionID)
	if err != nil {
		return nil, err
	}
	if snapshot.Question.Status == models.QuestionStatusClosed {
		return nil, appErrors.Clone(appErrors.ErrInvalidState, "question is already closed")
	}
	if snapshot.PendingReroute != nil {
		return nil, appErrors.Clone(appErrors.ErrReroutePending, "resolve the pending re-route first")
	}

	history := models.SubmissionHistory{
		QuestionID: questionID,
		Seq:        len(snapshot.History) + 1,
		UpdatedBy:  moderatorID,
		Status:     models.QuestionStatusClosed,
	}
	if trimmed := strings.TrimSpace(reason); trimmed != "" {
		history.ReasonForRejection = &trimmed
	}
	if err := s.workflow.CloseQuestion(ctx, repository.CloseQuestionParams{
		QuestionID: questionID,
		Version:    snapshot.Question.Version,
		History:    history,
	}); err != nil {
		return nil, workflowWriteError(err, "failed to close question")
	}

	s.logger.Info("question closed", zap.String("question_id", questionID))
	s.publish(ctx, Event{
		Type:       EventQuestionClosed,
		QuestionID: questionID,
		ActorID:    moderatorID,
	})
	return &history, nil
}

// AddReview stores a peer review verdict on an answer. An accepted verdict
// increments the approval count and credits the author; a rejected verdict
// penalises the author. Each reviewer gets one verdict per answer.
func (s *ReviewService) AddReview(ctx context.Context, answerID, reviewerID string, req dto.CreateReviewRequest) (*models.AnswerReview, error) {
	answer, err := s.answers.GetByID(ctx, answerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "answer not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load answer")
	}
	if answer.IsFinal {
		return nil, appErrors.Clone(appErrors.ErrInvalidState, "final answers are immutable")
	}
	if answer.AuthorID == reviewerID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "authors may not review their own answer")
	}
	if !req.Action.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown review action")
	}
	reason := strings.TrimSpace(req.Reason)
	if req.Action == models.ReviewActionRejected && len(reason) < s.minReasonLength {
		return nil, appErrors.Clone(appErrors.ErrReasonTooShort, "rejection reason is too short")
	}
	newAnswer := strings.TrimSpace(req.NewAnswer)
	if req.Action == models.ReviewActionModified && newAnswer == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "modified review requires the new answer text")
	}

	already, err := s.answers.HasReviewed(ctx, answerID, reviewerID, false)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check existing reviews")
	}
	if already {
		return nil, appErrors.Clone(appErrors.ErrConflict, "reviewer has already reviewed this answer")
	}

	review := models.AnswerReview{
		AnswerID:   answerID,
		ReviewerID: reviewerID,
		Action:     req.Action,
		Parameters: req.Parameters,
		Reason:     reason,
	}
	if req.Action == models.ReviewActionModified {
		review.OldAnswer = &answer.Text
		review.NewAnswer = &newAnswer
		review.ModifiedBy = &reviewerID
	}

	params := repository.AddReviewParams{
		Review:            review,
		IncrementApproval: req.Action == models.ReviewActionAccepted,
		AuthorID:          answer.AuthorID,
	}
	switch req.Action {
	case models.ReviewActionAccepted:
		params.AuthorDelta = repository.ReputationDelta{Reputation: 1, Incentive: 1}
	case models.ReviewActionRejected:
		// Counters are monotonic accumulators: a rejection raises the
		// penalty counter and leaves reputation untouched.
		params.AuthorDelta = repository.ReputationDelta{Penalty: 1}
	}

	stored, err := s.workflow.AddReview(ctx, params)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrInvalidState, "answer was finalised concurrently")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store review")
	}

	s.logger.Info("review recorded",
		zap.String("answer_id", answerID),
		zap.String("reviewer_id", reviewerID),
		zap.String("action", string(req.Action)))
	return stored, nil
}

// ListReviews returns the non-reroute review timeline of an answer.
func (s *ReviewService) ListReviews(ctx context.Context, answerID string) ([]models.AnswerReview, error) {
	reviews, err := s.answers.ListReviews(ctx, answerID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list reviews")
	}
	return reviews, nil
}

func (s *ReviewService) publish(ctx context.Context, event Event) {
	if s.events != nil {
		s.events.Publish(ctx, event)
	}
}
