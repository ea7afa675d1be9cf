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

type rerouteQuestionStore interface {
	GetSnapshot(ctx context.Context, id string) (*models.QuestionSnapshot, error)
}

type rerouteWorkflowStore interface {
	CreateReroute(ctx context.Context, params repository.CreateRerouteParams) (*models.Reroute, error)
	RejectReroute(ctx context.Context, params repository.RejectRerouteParams) error
}

type rerouteStore interface {
	GetByID(ctx context.Context, id string) (*models.Reroute, error)
	List(ctx context.Context, filter models.RerouteFilter) ([]models.Reroute, error)
}

type rerouteUserStore interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

// RerouteService manages the re-route sub-workflow: a moderator redirects
// the latest answer to a different expert, who either submits a replacement
// (acceptance, recorded with the submission) or declines.
type RerouteService struct {
	questions       rerouteQuestionStore
	workflow        rerouteWorkflowStore
	reroutes        rerouteStore
	users           rerouteUserStore
	events          eventPublisher
	minReasonLength int
	logger          *zap.Logger
}

// NewRerouteService constructs a RerouteService.
func NewRerouteService(questions rerouteQuestionStore, workflow rerouteWorkflowStore, reroutes rerouteStore, users rerouteUserStore, events eventPublisher, minReasonLength int, logger *zap.Logger) *RerouteService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if minReasonLength <= 0 {
		minReasonLength = 8
	}
	return &RerouteService{
		questions:       questions,
		workflow:        workflow,
		reroutes:        reroutes,
		users:           users,
		events:          events,
		minReasonLength: minReasonLength,
		logger:          logger,
	}
}

// Create opens a pending re-route for the question's latest answer. At most
// one pending re-route may exist per question; the target expert gets a
// reserved queue slot in a fresh round.
func (s *RerouteService) Create(ctx context.Context, questionID, moderatorID string, req dto.CreateRerouteRequest) (*models.Reroute, error) {
	snapshot, err := s.questions.GetSnapshot(ctx, questionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "question not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load question")
	}
	if snapshot.Question.Status != models.QuestionStatusInReview {
		return nil, appErrors.Clone(appErrors.ErrInvalidState, "only in-review questions can be re-routed")
	}
	if snapshot.PendingReroute != nil {
		return nil, appErrors.Clone(appErrors.ErrReroutePending, "a re-route is already pending for this question")
	}
	answer := snapshot.LatestAnswer
	if answer == nil || answer.ID != req.AnswerID {
		return nil, appErrors.Clone(appErrors.ErrStaleAnswer, "answer is not the latest iteration")
	}
	comment := strings.TrimSpace(req.Comment)
	if len(comment) < s.minReasonLength {
		return nil, appErrors.Clone(appErrors.ErrReasonTooShort, "re-route comment is too short")
	}
	if req.TargetExpertID == answer.AuthorID {
		return nil, appErrors.Clone(appErrors.ErrValidation, "cannot re-route an answer to its author")
	}

	target, err := s.users.FindByID(ctx, req.TargetExpertID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "target expert not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load target expert")
	}
	if target.Role != models.RoleExpert {
		return nil, appErrors.Clone(appErrors.ErrValidation, "re-route target must be an expert")
	}
	if target.IsBlocked || !target.Active {
		return nil, appErrors.Clone(appErrors.ErrExpertBlocked, "target expert is unavailable")
	}

	round, _ := nextQueuePlacement(snapshot.Queue)
	entry := models.QueueEntry{
		QuestionID:  questionID,
		ExpertID:    target.ID,
		ExpertEmail: target.Email,
		Position:    1,
		Round:       round + 1,
	}
	reroute, err := s.workflow.CreateReroute(ctx, repository.CreateRerouteParams{
		QuestionID: questionID,
		Version:    snapshot.Question.Version,
		Reroute: models.Reroute{
			QuestionID: questionID,
			AnswerID:   answer.ID,
			ReroutedTo: target.ID,
			ReroutedBy: moderatorID,
			Comment:    comment,
		},
		QueueEntry: entry,
		Review: models.AnswerReview{
			AnswerID:   answer.ID,
			ReviewerID: moderatorID,
			Action:     models.ReviewActionRejected,
			Reason:     comment,
		},
		History: models.SubmissionHistory{
			QuestionID: questionID,
			Seq:        len(snapshot.History) + 1,
			UpdatedBy:  moderatorID,
			AnswerID:   &answer.ID,
			Status:     models.QuestionStatusRerouted,
			IsReroute:  true,
		},
	})
	if err != nil {
		return nil, workflowWriteError(err, "failed to create re-route")
	}

	s.logger.Info("re-route created",
		zap.String("question_id", questionID),
		zap.String("reroute_id", reroute.ID),
		zap.String("target", target.ID))
	if s.events != nil {
		s.events.Publish(ctx, Event{
			Type:       EventRerouteCreated,
			QuestionID: questionID,
			ActorID:    moderatorID,
			TargetID:   target.ID,
			Message:    comment,
		})
	}
	return reroute, nil
}

// Reject declines a pending re-route. Only the target expert or a moderator
// may decline; the question reverts to in-review and the reserved queue slot
// is released.
func (s *RerouteService) Reject(ctx context.Context, rerouteID, actorID string, actorRole models.UserRole, reason string) (*models.Reroute, error) {
	reroute, err := s.get(ctx, rerouteID)
	if err != nil {
		return nil, err
	}
	if reroute.Status != models.RerouteStatusPending {
		return nil, appErrors.Clone(appErrors.ErrInvalidState, "re-route is already resolved")
	}
	if actorID != reroute.ReroutedTo && !actorRole.CanModerate() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only the target expert or a moderator may decline")
	}
	trimmed := strings.TrimSpace(reason)
	if len(trimmed) < s.minReasonLength {
		return nil, appErrors.Clone(appErrors.ErrReasonTooShort, "decline reason is too short")
	}

	snapshot, err := s.questions.GetSnapshot(ctx, reroute.QuestionID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load question")
	}

	if err := s.workflow.RejectReroute(ctx, repository.RejectRerouteParams{
		QuestionID:   reroute.QuestionID,
		Version:      snapshot.Question.Version,
		RerouteID:    reroute.ID,
		QueueEntryID: reroute.QueueEntryID,
		Reason:       trimmed,
		History: models.SubmissionHistory{
			QuestionID:         reroute.QuestionID,
			Seq:                len(snapshot.History) + 1,
			UpdatedBy:          actorID,
			Status:             models.QuestionStatusInReview,
			IsReroute:          true,
			ReasonForRejection: &trimmed,
		},
	}); err != nil {
		return nil, workflowWriteError(err, "failed to reject re-route")
	}

	s.logger.Info("re-route rejected",
		zap.String("reroute_id", reroute.ID),
		zap.String("question_id", reroute.QuestionID))
	if s.events != nil {
		s.events.Publish(ctx, Event{
			Type:       EventRerouteRejected,
			QuestionID: reroute.QuestionID,
			ActorID:    actorID,
			TargetID:   reroute.ReroutedBy,
			Message:    trimmed,
		})
	}
	return s.get(ctx, rerouteID)
}

// Get returns a re-route by identifier.
func (s *RerouteService) Get(ctx context.Context, rerouteID string) (*models.Reroute, error) {
	return s.get(ctx, rerouteID)
}

func (s *RerouteService) get(ctx context.Context, rerouteID string) (*models.Reroute, error) {
	reroute, err := s.reroutes.GetByID(ctx, rerouteID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "re-route not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load re-route")
	}
	return reroute, nil
}

// List returns re-routes matching the query.
func (s *RerouteService) List(ctx context.Context, query dto.RerouteQuery) ([]models.Reroute, error) {
	reroutes, err := s.reroutes.List(ctx, models.RerouteFilter{
		QuestionID: query.QuestionID,
		ReroutedTo: query.ReroutedTo,
		Status:     query.Status,
		Limit:      query.Limit,
		Offset:     query.Offset,
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list re-routes")
	}
	return reroutes, nil
}
