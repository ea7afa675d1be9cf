package service

import (
	"context"
	"database/sql"
	"errors"
	"sort"

	"go.uber.org/zap"

	"github.com/vicharanashala/ajrasakha-sub001/internal/dto"
	"github.com/vicharanashala/ajrasakha-sub001/internal/models"
	"github.com/vicharanashala/ajrasakha-sub001/internal/repository"
	appErrors "github.com/vicharanashala/ajrasakha-sub001/pkg/errors"
)

type allocationQuestionStore interface {
	GetSnapshot(ctx context.Context, id string) (*models.QuestionSnapshot, error)
}

type allocationWorkflowStore interface {
	AppendQueue(ctx context.Context, params repository.AppendQueueParams) error
	RemoveQueueEntry(ctx context.Context, params repository.RemoveQueueEntryParams) error
	SetAutoAllocate(ctx context.Context, params repository.SetAutoAllocateParams) error
}

type allocationUserStore interface {
	FindByIDs(ctx context.Context, ids []string) ([]models.User, error)
	List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error)
}

// AllocationService manages the expert allocation queue of a question.
type AllocationService struct {
	questions    allocationQuestionStore
	workflow     allocationWorkflowStore
	users        allocationUserStore
	autoFillSize int
	logger       *zap.Logger
}

// NewAllocationService constructs an AllocationService.
func NewAllocationService(questions allocationQuestionStore, workflow allocationWorkflowStore, users allocationUserStore, autoFillSize int, logger *zap.Logger) *AllocationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if autoFillSize <= 0 {
		autoFillSize = 3
	}
	return &AllocationService{
		questions:    questions,
		workflow:     workflow,
		users:        users,
		autoFillSize: autoFillSize,
		logger:       logger,
	}
}

func (s *AllocationService) snapshot(ctx context.Context, questionID string) (*models.QuestionSnapshot, error) {
	snapshot, err := s.questions.GetSnapshot(ctx, questionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "question not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load question")
	}
	return snapshot, nil
}

// Allocate appends the given experts to the queue in the order provided.
// Only open and delayed questions accept new allocations.
func (s *AllocationService) Allocate(ctx context.Context, questionID string, expertIDs []string) ([]dto.QueueSlot, error) {
	snapshot, err := s.snapshot(ctx, questionID)
	if err != nil {
		return nil, err
	}
	if !snapshot.Question.Status.AcceptsAllocation() {
		return nil, appErrors.Clone(appErrors.ErrInvalidState, "question no longer accepts allocations")
	}

	experts, err := s.users.FindByIDs(ctx, expertIDs)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve experts")
	}
	byID := make(map[string]models.User, len(experts))
	for _, expert := range experts {
		byID[expert.ID] = expert
	}

	round, position := nextQueuePlacement(snapshot.Queue)
	entries := make([]models.QueueEntry, 0, len(expertIDs))
	seen := make(map[string]bool, len(expertIDs))
	for _, id := range expertIDs {
		expert, ok := byID[id]
		if !ok {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "expert not found: "+id)
		}
		if expert.Role != models.RoleExpert {
			return nil, appErrors.Clone(appErrors.ErrValidation, "user is not an expert: "+id)
		}
		if expert.IsBlocked {
			return nil, appErrors.Clone(appErrors.ErrExpertBlocked, "expert is blocked: "+expert.Email)
		}
		if seen[id] || isQueued(snapshot.Queue, id) {
			return nil, appErrors.Clone(appErrors.ErrAlreadyQueued, "expert already queued: "+expert.Email)
		}
		seen[id] = true
		entries = append(entries, models.QueueEntry{
			QuestionID:  questionID,
			ExpertID:    expert.ID,
			ExpertEmail: expert.Email,
			Position:    position,
			Round:       round,
		})
		position++
	}

	if err := s.workflow.AppendQueue(ctx, repository.AppendQueueParams{
		QuestionID: questionID,
		Version:    snapshot.Question.Version,
		Entries:    entries,
	}); err != nil {
		return nil, workflowWriteError(err, "failed to append allocation queue")
	}

	s.logger.Info("experts allocated",
		zap.String("question_id", questionID),
		zap.Int("count", len(entries)))

	queue := append(append([]models.QueueEntry{}, snapshot.Queue...), entries...)
	return QueueStates(queue, snapshot.History), nil
}

// Remove deletes the queue slot at the given index. Slots whose expert has
// already submitted, and slots reserved by a pending re-route, are immovable.
// When auto-allocate is enabled the queue is topped back up from the pool.
func (s *AllocationService) Remove(ctx context.Context, questionID string, index int) ([]dto.QueueSlot, error) {
	snapshot, err := s.snapshot(ctx, questionID)
	if err != nil {
		return nil, err
	}
	if index < 0 || index >= len(snapshot.Queue) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "queue index out of range")
	}
	slots := QueueStates(snapshot.Queue, snapshot.History)
	target := slots[index]
	if target.SlotState == models.QueueSlotSubmitted {
		return nil, appErrors.Clone(appErrors.ErrAllocationConflict, "expert has already submitted for this slot")
	}
	if snapshot.PendingReroute != nil && snapshot.PendingReroute.QueueEntryID == target.ID {
		return nil, appErrors.Clone(appErrors.ErrInvalidState, "slot is reserved by a pending re-route")
	}

	if err := s.workflow.RemoveQueueEntry(ctx, repository.RemoveQueueEntryParams{
		QuestionID: questionID,
		Version:    snapshot.Question.Version,
		EntryID:    target.ID,
	}); err != nil {
		return nil, workflowWriteError(err, "failed to remove queue slot")
	}

	if snapshot.Question.IsAutoAllocate {
		if err := s.FillQueue(ctx, questionID); err != nil {
			s.logger.Warn("auto-allocate fill failed",
				zap.String("question_id", questionID), zap.Error(err))
		}
	}

	remaining := make([]models.QueueEntry, 0, len(snapshot.Queue)-1)
	for _, entry := range snapshot.Queue {
		if entry.ID != target.ID {
			remaining = append(remaining, entry)
		}
	}
	return QueueStates(remaining, snapshot.History), nil
}

// ToggleAutoAllocate flips the auto-allocate flag and returns the new value.
// The flag never changes question status; when enabling on an allocatable
// question the queue is topped up from the expert pool.
func (s *AllocationService) ToggleAutoAllocate(ctx context.Context, questionID string) (*dto.AutoAllocateResponse, error) {
	snapshot, err := s.snapshot(ctx, questionID)
	if err != nil {
		return nil, err
	}
	enabled := !snapshot.Question.IsAutoAllocate
	if err := s.workflow.SetAutoAllocate(ctx, repository.SetAutoAllocateParams{
		QuestionID: questionID,
		Version:    snapshot.Question.Version,
		Enabled:    enabled,
	}); err != nil {
		return nil, workflowWriteError(err, "failed to toggle auto-allocate")
	}

	if enabled && snapshot.Question.Status.AcceptsAllocation() {
		if err := s.FillQueue(ctx, questionID); err != nil {
			s.logger.Warn("auto-allocate fill failed",
				zap.String("question_id", questionID), zap.Error(err))
		}
	}

	return &dto.AutoAllocateResponse{QuestionID: questionID, IsAutoAllocate: enabled}, nil
}

// Queue returns the annotated allocation queue.
func (s *AllocationService) Queue(ctx context.Context, questionID string) ([]dto.QueueSlot, error) {
	snapshot, err := s.snapshot(ctx, questionID)
	if err != nil {
		return nil, err
	}
	return QueueStates(snapshot.Queue, snapshot.History), nil
}

// FillQueue tops the queue up to the configured size with active unblocked
// experts, preferring higher reputation. No-op when the queue is full enough
// or the pool is exhausted.
func (s *AllocationService) FillQueue(ctx context.Context, questionID string) error {
	snapshot, err := s.snapshot(ctx, questionID)
	if err != nil {
		return err
	}
	missing := s.autoFillSize - len(snapshot.Queue)
	if missing <= 0 || !snapshot.Question.Status.AcceptsAllocation() {
		return nil
	}

	picked, err := s.pickExperts(ctx, snapshot.Queue, missing)
	if err != nil {
		return err
	}
	if len(picked) == 0 {
		return nil
	}
	_, err = s.Allocate(ctx, questionID, picked)
	return err
}

func (s *AllocationService) pickExperts(ctx context.Context, queue []models.QueueEntry, n int) ([]string, error) {
	role := models.RoleExpert
	active := true
	blocked := false
	pool, _, err := s.users.List(ctx, models.UserFilter{
		Role:     &role,
		Active:   &active,
		Blocked:  &blocked,
		PageSize: 100,
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load expert pool")
	}

	sort.SliceStable(pool, func(i, j int) bool {
		return pool[i].ReputationScore > pool[j].ReputationScore
	})
	picked := make([]string, 0, n)
	for _, expert := range pool {
		if isQueued(queue, expert.ID) {
			continue
		}
		picked = append(picked, expert.ID)
		if len(picked) == n {
			break
		}
	}
	return picked, nil
}

// workflowWriteError maps a guarded-write failure: sql.ErrNoRows means the
// optimistic guard missed because the question changed underneath the
// caller's snapshot.
func workflowWriteError(err error, msg string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrConflict, "question was modified concurrently, retry")
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, msg)
}
