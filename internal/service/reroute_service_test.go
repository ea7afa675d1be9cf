package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vicharanashala/ajrasakha-sub001/internal/dto"
	"github.com/vicharanashala/ajrasakha-sub001/internal/models"
	"github.com/vicharanashala/ajrasakha-sub001/internal/repository"
	appErrors "github.com/vicharanashala/ajrasakha-sub001/pkg/errors"
)

type fakeRerouteWorkflow struct {
	created  *repository.CreateRerouteParams
	rejected *repository.RejectRerouteParams
	err      error
}

func (f *fakeRerouteWorkflow) CreateReroute(_ context.Context, params repository.CreateRerouteParams) (*models.Reroute, error) {
	f.created = &params
	if f.err != nil {
		return nil, f.err
	}
	reroute := params.Reroute
	reroute.ID = "reroute-1"
	reroute.Status = models.RerouteStatusPending
	return &reroute, nil
}

func (f *fakeRerouteWorkflow) RejectReroute(_ context.Context, params repository.RejectRerouteParams) error {
	f.rejected = &params
	return f.err
}

type fakeRerouteStore struct {
	reroute *models.Reroute
	list    []models.Reroute
	err     error
}

func (f *fakeRerouteStore) GetByID(context.Context, string) (*models.Reroute, error) {
	return f.reroute, f.err
}

func (f *fakeRerouteStore) List(context.Context, models.RerouteFilter) ([]models.Reroute, error) {
	return f.list, f.err
}

type fakeRerouteUsers struct {
	user *models.User
	err  error
}

func (f *fakeRerouteUsers) FindByID(context.Context, string) (*models.User, error) {
	return f.user, f.err
}

func rerouteSnapshot() *models.QuestionSnapshot {
	snapshot := reviewSnapshot(models.QuestionStatusInReview, []models.QueueEntry{slot("q1", "alice", 1, 1)}, []models.SubmissionHistory{submission("alice")})
	snapshot.LatestAnswer = &models.Answer{ID: "answer-1", AuthorID: "alice", Iteration: 1, Text: "use drip irrigation"}
	return snapshot
}

func TestCreateRerouteReservesQueueSlot(t *testing.T) {
	snapshot := rerouteSnapshot()
	workflow := &fakeRerouteWorkflow{}
	target := expert("bob", "bob@example.com", 3)
	events := &capturedEvents{}
	svc := NewRerouteService(&fakeQuestionStore{snapshot: snapshot}, workflow, &fakeRerouteStore{}, &fakeRerouteUsers{user: &target}, events, 8, nil)

	reroute, err := svc.Create(context.Background(), "question-1", "mod", dto.CreateRerouteRequest{
		AnswerID:       "answer-1",
		TargetExpertID: "bob",
		Comment:        "needs a soil science opinion",
	})
	require.NoError(t, err)
	assert.Equal(t, models.RerouteStatusPending, reroute.Status)
	assert.Equal(t, "bob", reroute.ReroutedTo)

	require.NotNil(t, workflow.created)
	assert.Equal(t, 2, workflow.created.QueueEntry.Round)
	assert.Equal(t, 1, workflow.created.QueueEntry.Position)
	assert.Equal(t, models.QuestionStatusRerouted, workflow.created.History.Status)
	assert.True(t, workflow.created.History.IsReroute)
	// The displaced answer carries an implicit rejected review.
	assert.Equal(t, models.ReviewActionRejected, workflow.created.Review.Action)

	require.Len(t, events.events, 1)
	assert.Equal(t, EventRerouteCreated, events.events[0].Type)
}

func TestCreateRerouteRejectsStaleAnswer(t *testing.T) {
	snapshot := rerouteSnapshot()
	target := expert("bob", "bob@example.com", 3)
	svc := NewRerouteService(&fakeQuestionStore{snapshot: snapshot}, &fakeRerouteWorkflow{}, &fakeRerouteStore{}, &fakeRerouteUsers{user: &target}, nil, 8, nil)

	_, err := svc.Create(context.Background(), "question-1", "mod", dto.CreateRerouteRequest{
		AnswerID:       "answer-0",
		TargetExpertID: "bob",
		Comment:        "needs a soil science opinion",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrStaleAnswer.Code, appErrors.FromError(err).Code)
}

func TestCreateRerouteRejectsSecondPending(t *testing.T) {
	snapshot := rerouteSnapshot()
	snapshot.PendingReroute = &models.Reroute{ID: "reroute-0", Status: models.RerouteStatusPending}
	target := expert("bob", "bob@example.com", 3)
	svc := NewRerouteService(&fakeQuestionStore{snapshot: snapshot}, &fakeRerouteWorkflow{}, &fakeRerouteStore{}, &fakeRerouteUsers{user: &target}, nil, 8, nil)

	_, err := svc.Create(context.Background(), "question-1", "mod", dto.CreateRerouteRequest{
		AnswerID:       "answer-1",
		TargetExpertID: "bob",
		Comment:        "needs a soil science opinion",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrReroutePending.Code, appErrors.FromError(err).Code)
}

func TestCreateRerouteRejectsAuthorAsTarget(t *testing.T) {
	snapshot := rerouteSnapshot()
	svc := NewRerouteService(&fakeQuestionStore{snapshot: snapshot}, &fakeRerouteWorkflow{}, &fakeRerouteStore{}, &fakeRerouteUsers{}, nil, 8, nil)

	_, err := svc.Create(context.Background(), "question-1", "mod", dto.CreateRerouteRequest{
		AnswerID:       "answer-1",
		TargetExpertID: "alice",
		Comment:        "needs a soil science opinion",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestCreateRerouteRequiresInReviewStatus(t *testing.T) {
	snapshot := rerouteSnapshot()
	snapshot.Question.Status = models.QuestionStatusOpen
	svc := NewRerouteService(&fakeQuestionStore{snapshot: snapshot}, &fakeRerouteWorkflow{}, &fakeRerouteStore{}, &fakeRerouteUsers{}, nil, 8, nil)

	_, err := svc.Create(context.Background(), "question-1", "mod", dto.CreateRerouteRequest{
		AnswerID:       "answer-1",
		TargetExpertID: "bob",
		Comment:        "needs a soil science opinion",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidState.Code, appErrors.FromError(err).Code)
}

func TestRejectRerouteOnlyTargetOrModerator(t *testing.T) {
	pending := &models.Reroute{ID: "reroute-1", QuestionID: "question-1", ReroutedTo: "bob", QueueEntryID: "q2", Status: models.RerouteStatusPending}
	snapshot := rerouteSnapshot()
	svc := NewRerouteService(&fakeQuestionStore{snapshot: snapshot}, &fakeRerouteWorkflow{}, &fakeRerouteStore{reroute: pending}, &fakeRerouteUsers{}, nil, 8, nil)

	_, err := svc.Reject(context.Background(), "reroute-1", "carol", models.RoleExpert, "outside my area of expertise")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestRejectRerouteReleasesReservedSlot(t *testing.T) {
	pending := &models.Reroute{ID: "reroute-1", QuestionID: "question-1", ReroutedTo: "bob", QueueEntryID: "q2", Status: models.RerouteStatusPending}
	snapshot := rerouteSnapshot()
	workflow := &fakeRerouteWorkflow{}
	svc := NewRerouteService(&fakeQuestionStore{snapshot: snapshot}, workflow, &fakeRerouteStore{reroute: pending}, &fakeRerouteUsers{}, nil, 8, nil)

	_, err := svc.Reject(context.Background(), "reroute-1", "bob", models.RoleExpert, "outside my area of expertise")
	require.NoError(t, err)

	require.NotNil(t, workflow.rejected)
	assert.Equal(t, "q2", workflow.rejected.QueueEntryID)
	assert.Equal(t, models.QuestionStatusInReview, workflow.rejected.History.Status)
}

func TestRejectRerouteAlreadyResolved(t *testing.T) {
	resolved := &models.Reroute{ID: "reroute-1", Status: models.RerouteStatusAccepted}
	svc := NewRerouteService(&fakeQuestionStore{}, &fakeRerouteWorkflow{}, &fakeRerouteStore{reroute: resolved}, &fakeRerouteUsers{}, nil, 8, nil)

	_, err := svc.Reject(context.Background(), "reroute-1", "mod", models.RoleModerator, "resolved elsewhere already")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidState.Code, appErrors.FromError(err).Code)
}
