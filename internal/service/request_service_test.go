package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vicharanashala/ajrasakha-sub001/internal/dto"
	"github.com/vicharanashala/ajrasakha-sub001/internal/models"
	"github.com/vicharanashala/ajrasakha-sub001/internal/repository"
	"github.com/vicharanashala/ajrasakha-sub001/pkg/diff"
	appErrors "github.com/vicharanashala/ajrasakha-sub001/pkg/errors"
)

type fakeRequestStore struct {
	created   *models.ModerationRequest
	request   *models.ModerationRequest
	responses []models.RequestResponse
	updated   *repository.UpdateStatusParams
	updateErr error
	err       error
}

func (f *fakeRequestStore) Create(_ context.Context, request *models.ModerationRequest) error {
	request.ID = "request-1"
	f.created = request
	return f.err
}

func (f *fakeRequestStore) GetByID(context.Context, string) (*models.ModerationRequest, error) {
	if f.request == nil {
		return nil, sql.ErrNoRows
	}
	return f.request, f.err
}

func (f *fakeRequestStore) ListResponses(context.Context, string) ([]models.RequestResponse, error) {
	return f.responses, f.err
}

func (f *fakeRequestStore) List(context.Context, models.RequestFilter) ([]models.ModerationRequest, error) {
	if f.request == nil {
		return nil, f.err
	}
	return []models.ModerationRequest{*f.request}, f.err
}

func (f *fakeRequestStore) UpdateStatus(_ context.Context, params repository.UpdateStatusParams) error {
	f.updated = &params
	return f.updateErr
}

type fakeSnapshotter struct {
	doc json.RawMessage
	err error
}

func (f *fakeSnapshotter) EntityDocument(context.Context, models.RequestType, string) (json.RawMessage, error) {
	return f.doc, f.err
}

func TestCreateRequestCapturesBaseline(t *testing.T) {
	store := &fakeRequestStore{}
	snapshots := &fakeSnapshotter{doc: json.RawMessage(`{"question":"old text"}`)}
	svc := NewRequestService(store, snapshots, nil, 8, nil)

	request, err := svc.Create(context.Background(), "expert-1", dto.CreateRequestRequest{
		EntityID:    "question-1",
		RequestType: models.RequestTypeQuestionFlag,
		ProposedDoc: json.RawMessage(`{"question":"new text"}`),
		Reason:      "typo in the crop name",
	})
	require.NoError(t, err)
	assert.Equal(t, models.RequestStatusPending, request.Status)
	assert.JSONEq(t, `{"question":"old text"}`, string(request.ExistingDoc))
	assert.Equal(t, "expert-1", request.RequestedBy)
}

func TestCreateRequestRejectsUnknownType(t *testing.T) {
	svc := NewRequestService(&fakeRequestStore{}, &fakeSnapshotter{}, nil, 8, nil)

	_, err := svc.Create(context.Background(), "expert-1", dto.CreateRequestRequest{
		EntityID:    "question-1",
		RequestType: "escalation",
		ProposedDoc: json.RawMessage(`{}`),
		Reason:      "typo in the crop name",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestCreateRequestRejectsInvalidJSON(t *testing.T) {
	svc := NewRequestService(&fakeRequestStore{}, &fakeSnapshotter{}, nil, 8, nil)

	_, err := svc.Create(context.Background(), "expert-1", dto.CreateRequestRequest{
		EntityID:    "question-1",
		RequestType: models.RequestTypeDataFix,
		ProposedDoc: json.RawMessage(`{not json`),
		Reason:      "typo in the crop name",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestCreateRequestRejectsMissingEntity(t *testing.T) {
	snapshots := &fakeSnapshotter{err: sql.ErrNoRows}
	svc := NewRequestService(&fakeRequestStore{}, snapshots, nil, 8, nil)

	_, err := svc.Create(context.Background(), "expert-1", dto.CreateRequestRequest{
		EntityID:    "missing",
		RequestType: models.RequestTypeAnswerFlag,
		ProposedDoc: json.RawMessage(`{}`),
		Reason:      "answer cites a dead link",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func pendingRequest() *models.ModerationRequest {
	return &models.ModerationRequest{
		ID:          "request-1",
		EntityID:    "question-1",
		RequestType: models.RequestTypeQuestionFlag,
		ExistingDoc: []byte(`{"question":"old","priority":"low"}`),
		ProposedDoc: []byte(`{"question":"new","crop":"wheat"}`),
		Status:      models.RequestStatusPending,
	}
}

func TestUpdateStatusRejectsSameStatus(t *testing.T) {
	store := &fakeRequestStore{request: pendingRequest()}
	svc := NewRequestService(store, &fakeSnapshotter{}, nil, 8, nil)

	_, err := svc.UpdateStatus(context.Background(), "request-1", "mod", dto.UpdateRequestStatusRequest{
		Status:   models.RequestStatusPending,
		Response: "still looking at it",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrSameStatus.Code, appErrors.FromError(err).Code)
}

func TestUpdateStatusRejectsBackwardsTransition(t *testing.T) {
	request := pendingRequest()
	request.Status = models.RequestStatusApproved
	store := &fakeRequestStore{request: request}
	svc := NewRequestService(store, &fakeSnapshotter{}, nil, 8, nil)

	_, err := svc.UpdateStatus(context.Background(), "request-1", "mod", dto.UpdateRequestStatusRequest{
		Status:   models.RequestStatusInReview,
		Response: "reopening for another look",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidState.Code, appErrors.FromError(err).Code)
}

func TestUpdateStatusRejectsShortResponse(t *testing.T) {
	store := &fakeRequestStore{request: pendingRequest()}
	svc := NewRequestService(store, &fakeSnapshotter{}, nil, 8, nil)

	_, err := svc.UpdateStatus(context.Background(), "request-1", "mod", dto.UpdateRequestStatusRequest{
		Status:   models.RequestStatusInReview,
		Response: "ok",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrResponseTooShort.Code, appErrors.FromError(err).Code)
}

func TestUpdateStatusGuardsOnCurrentStatus(t *testing.T) {
	store := &fakeRequestStore{request: pendingRequest()}
	svc := NewRequestService(store, &fakeSnapshotter{}, nil, 8, nil)

	detail, err := svc.UpdateStatus(context.Background(), "request-1", "mod", dto.UpdateRequestStatusRequest{
		Status:   models.RequestStatusInReview,
		Response: "taking this one for review",
	})
	require.NoError(t, err)
	require.NotNil(t, detail)

	require.NotNil(t, store.updated)
	assert.Equal(t, models.RequestStatusPending, store.updated.CurrentStatus)
	assert.Equal(t, models.RequestStatusInReview, store.updated.NewStatus)
}

func TestUpdateStatusMapsGuardMissToConflict(t *testing.T) {
	store := &fakeRequestStore{request: pendingRequest(), updateErr: sql.ErrNoRows}
	svc := NewRequestService(store, &fakeSnapshotter{}, nil, 8, nil)

	_, err := svc.UpdateStatus(context.Background(), "request-1", "mod", dto.UpdateRequestStatusRequest{
		Status:   models.RequestStatusInReview,
		Response: "taking this one for review",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestDiffComputesFieldChanges(t *testing.T) {
	store := &fakeRequestStore{request: pendingRequest()}
	svc := NewRequestService(store, &fakeSnapshotter{}, nil, 8, nil)

	result, err := svc.Diff(context.Background(), "request-1")
	require.NoError(t, err)

	byPath := map[string]diff.Field{}
	for _, field := range result.Fields {
		byPath[field.Path] = field
	}

	added := byPath["crop"]
	assert.True(t, added.Changed)
	assert.Nil(t, added.OldValue)
	assert.Equal(t, "wheat", added.NewValue)

	removed := byPath["priority"]
	assert.True(t, removed.Changed)
	assert.Equal(t, "low", removed.OldValue)
	assert.Nil(t, removed.NewValue)

	modified := byPath["question"]
	assert.True(t, modified.Changed)
	assert.Equal(t, "old", modified.OldValue)
	assert.Equal(t, "new", modified.NewValue)
}
