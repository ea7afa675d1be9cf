package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vicharanashala/ajrasakha-sub001/internal/models"
	"github.com/vicharanashala/ajrasakha-sub001/internal/repository"
	appErrors "github.com/vicharanashala/ajrasakha-sub001/pkg/errors"
)

type fakeAllocationWorkflow struct {
	appended *repository.AppendQueueParams
	removed  *repository.RemoveQueueEntryParams
	toggled  *repository.SetAutoAllocateParams
	err      error
}

func (f *fakeAllocationWorkflow) AppendQueue(_ context.Context, params repository.AppendQueueParams) error {
	f.appended = &params
	return f.err
}

func (f *fakeAllocationWorkflow) RemoveQueueEntry(_ context.Context, params repository.RemoveQueueEntryParams) error {
	f.removed = &params
	return f.err
}

func (f *fakeAllocationWorkflow) SetAutoAllocate(_ context.Context, params repository.SetAutoAllocateParams) error {
	f.toggled = &params
	return f.err
}

type fakeAllocationUsers struct {
	users []models.User
}

func (f *fakeAllocationUsers) FindByIDs(_ context.Context, ids []string) ([]models.User, error) {
	found := make([]models.User, 0, len(ids))
	for _, user := range f.users {
		for _, id := range ids {
			if user.ID == id {
				found = append(found, user)
			}
		}
	}
	return found, nil
}

func (f *fakeAllocationUsers) List(context.Context, models.UserFilter) ([]models.User, int, error) {
	return f.users, len(f.users), nil
}

func expert(id, email string, reputation int) models.User {
	return models.User{ID: id, Email: email, Role: models.RoleExpert, ReputationScore: reputation, Active: true}
}

func TestAllocateAppendsExpertsInOrder(t *testing.T) {
	snapshot := reviewSnapshot(models.QuestionStatusOpen, nil, nil)
	workflow := &fakeAllocationWorkflow{}
	users := &fakeAllocationUsers{users: []models.User{expert("alice", "alice@example.com", 5), expert("bob", "bob@example.com", 2)}}
	svc := NewAllocationService(&fakeQuestionStore{snapshot: snapshot}, workflow, users, 3, nil)

	slots, err := svc.Allocate(context.Background(), "question-1", []string{"bob", "alice"})
	require.NoError(t, err)
	require.Len(t, slots, 2)
	assert.Equal(t, "bob", slots[0].ExpertID)
	assert.Equal(t, models.QueueSlotWaiting, slots[0].SlotState)
	assert.Equal(t, "alice", slots[1].ExpertID)
	assert.Equal(t, models.QueueSlotPending, slots[1].SlotState)

	require.NotNil(t, workflow.appended)
	require.Len(t, workflow.appended.Entries, 2)
	assert.Equal(t, 1, workflow.appended.Entries[0].Position)
	assert.Equal(t, 2, workflow.appended.Entries[1].Position)
}

func TestAllocateRejectsAlreadyQueuedExpert(t *testing.T) {
	queue := []models.QueueEntry{slot("q1", "alice", 1, 1)}
	snapshot := reviewSnapshot(models.QuestionStatusOpen, queue, nil)
	users := &fakeAllocationUsers{users: []models.User{expert("alice", "alice@example.com", 5)}}
	svc := NewAllocationService(&fakeQuestionStore{snapshot: snapshot}, &fakeAllocationWorkflow{}, users, 3, nil)

	_, err := svc.Allocate(context.Background(), "question-1", []string{"alice"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrAlreadyQueued.Code, appErrors.FromError(err).Code)
}

func TestAllocateRejectsBlockedExpert(t *testing.T) {
	snapshot := reviewSnapshot(models.QuestionStatusOpen, nil, nil)
	blocked := expert("alice", "alice@example.com", 5)
	blocked.IsBlocked = true
	users := &fakeAllocationUsers{users: []models.User{blocked}}
	svc := NewAllocationService(&fakeQuestionStore{snapshot: snapshot}, &fakeAllocationWorkflow{}, users, 3, nil)

	_, err := svc.Allocate(context.Background(), "question-1", []string{"alice"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrExpertBlocked.Code, appErrors.FromError(err).Code)
}

func TestAllocateRejectsNonExpert(t *testing.T) {
	snapshot := reviewSnapshot(models.QuestionStatusOpen, nil, nil)
	moderator := models.User{ID: "mod", Email: "mod@example.com", Role: models.RoleModerator, Active: true}
	users := &fakeAllocationUsers{users: []models.User{moderator}}
	svc := NewAllocationService(&fakeQuestionStore{snapshot: snapshot}, &fakeAllocationWorkflow{}, users, 3, nil)

	_, err := svc.Allocate(context.Background(), "question-1", []string{"mod"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestAllocateRejectsClosedQuestion(t *testing.T) {
	snapshot := reviewSnapshot(models.QuestionStatusInReview, nil, nil)
	svc := NewAllocationService(&fakeQuestionStore{snapshot: snapshot}, &fakeAllocationWorkflow{}, &fakeAllocationUsers{}, 3, nil)

	_, err := svc.Allocate(context.Background(), "question-1", []string{"alice"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidState.Code, appErrors.FromError(err).Code)
}

func TestRemoveRejectsSubmittedSlot(t *testing.T) {
	queue := []models.QueueEntry{slot("q1", "alice", 1, 1), slot("q2", "bob", 1, 2)}
	history := []models.SubmissionHistory{submission("alice")}
	snapshot := reviewSnapshot(models.QuestionStatusInReview, queue, history)
	svc := NewAllocationService(&fakeQuestionStore{snapshot: snapshot}, &fakeAllocationWorkflow{}, &fakeAllocationUsers{}, 3, nil)

	_, err := svc.Remove(context.Background(), "question-1", 0)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrAllocationConflict.Code, appErrors.FromError(err).Code)
}

func TestRemoveRejectsRerouteReservedSlot(t *testing.T) {
	queue := []models.QueueEntry{slot("q1", "alice", 1, 1), slot("q2", "bob", 2, 1)}
	snapshot := reviewSnapshot(models.QuestionStatusRerouted, queue, []models.SubmissionHistory{submission("alice")})
	snapshot.PendingReroute = &models.Reroute{ID: "reroute-1", QueueEntryID: "q2", Status: models.RerouteStatusPending}
	svc := NewAllocationService(&fakeQuestionStore{snapshot: snapshot}, &fakeAllocationWorkflow{}, &fakeAllocationUsers{}, 3, nil)

	_, err := svc.Remove(context.Background(), "question-1", 1)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidState.Code, appErrors.FromError(err).Code)
}

func TestRemoveDeletesWaitingSlot(t *testing.T) {
	queue := []models.QueueEntry{slot("q1", "alice", 1, 1), slot("q2", "bob", 1, 2)}
	snapshot := reviewSnapshot(models.QuestionStatusOpen, queue, nil)
	workflow := &fakeAllocationWorkflow{}
	svc := NewAllocationService(&fakeQuestionStore{snapshot: snapshot}, workflow, &fakeAllocationUsers{}, 3, nil)

	slots, err := svc.Remove(context.Background(), "question-1", 1)
	require.NoError(t, err)
	require.Len(t, slots, 1)
	assert.Equal(t, "alice", slots[0].ExpertID)
	require.NotNil(t, workflow.removed)
	assert.Equal(t, "q2", workflow.removed.EntryID)
}

func TestRemoveRefillsWhenAutoAllocateEnabled(t *testing.T) {
	queue := []models.QueueEntry{slot("q1", "alice", 1, 1), slot("q2", "bob", 1, 2)}
	snapshot := reviewSnapshot(models.QuestionStatusOpen, queue, nil)
	snapshot.Question.IsAutoAllocate = true
	workflow := &fakeAllocationWorkflow{}
	users := &fakeAllocationUsers{users: []models.User{
		expert("alice", "alice@example.com", 5),
		expert("bob", "bob@example.com", 2),
		expert("carol", "carol@example.com", 7),
	}}
	svc := NewAllocationService(&fakeQuestionStore{snapshot: snapshot}, workflow, users, 3, nil)

	_, err := svc.Remove(context.Background(), "question-1", 1)
	require.NoError(t, err)
	require.NotNil(t, workflow.removed)
	assert.Equal(t, "q2", workflow.removed.EntryID)

	// The freed slot is refilled from the pool, skipping queued experts.
	require.NotNil(t, workflow.appended)
	require.Len(t, workflow.appended.Entries, 1)
	assert.Equal(t, "carol", workflow.appended.Entries[0].ExpertID)
}

func TestToggleAutoAllocateFillsQueue(t *testing.T) {
	snapshot := reviewSnapshot(models.QuestionStatusOpen, nil, nil)
	snapshot.Question.IsAutoAllocate = false
	workflow := &fakeAllocationWorkflow{}
	users := &fakeAllocationUsers{users: []models.User{
		expert("alice", "alice@example.com", 1),
		expert("bob", "bob@example.com", 9),
	}}
	svc := NewAllocationService(&fakeQuestionStore{snapshot: snapshot}, workflow, users, 2, nil)

	result, err := svc.ToggleAutoAllocate(context.Background(), "question-1")
	require.NoError(t, err)
	assert.True(t, result.IsAutoAllocate)
	require.NotNil(t, workflow.toggled)
	assert.True(t, workflow.toggled.Enabled)

	// The fill pass appends the highest-reputation experts first.
	require.NotNil(t, workflow.appended)
	require.Len(t, workflow.appended.Entries, 2)
	assert.Equal(t, "bob", workflow.appended.Entries[0].ExpertID)
}
