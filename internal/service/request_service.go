package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/vicharanashala/ajrasakha-sub001/internal/dto"
	"github.com/vicharanashala/ajrasakha-sub001/internal/models"
	"github.com/vicharanashala/ajrasakha-sub001/internal/repository"
	"github.com/vicharanashala/ajrasakha-sub001/pkg/diff"
	appErrors "github.com/vicharanashala/ajrasakha-sub001/pkg/errors"
)

type requestStore interface {
	Create(ctx context.Context, request *models.ModerationRequest) error
	GetByID(ctx context.Context, id string) (*models.ModerationRequest, error)
	ListResponses(ctx context.Context, requestID string) ([]models.RequestResponse, error)
	List(ctx context.Context, filter models.RequestFilter) ([]models.ModerationRequest, error)
	UpdateStatus(ctx context.Context, params repository.UpdateStatusParams) error
}

// EntitySnapshotter resolves the current stored document of the entity a
// moderation request targets. Captured once at request creation so the diff
// baseline is fixed.
type EntitySnapshotter interface {
	EntityDocument(ctx context.Context, requestType models.RequestType, entityID string) (json.RawMessage, error)
}

// RequestService manages moderation requests: proposed document changes that
// moderators review through a forward-only status trail.
type RequestService struct {
	requests          requestStore
	snapshots         EntitySnapshotter
	cache             *CacheService
	minResponseLength int
	logger            *zap.Logger
}

// NewRequestService constructs a RequestService.
func NewRequestService(requests requestStore, snapshots EntitySnapshotter, cache *CacheService, minResponseLength int, logger *zap.Logger) *RequestService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if minResponseLength <= 0 {
		minResponseLength = 8
	}
	return &RequestService{
		requests:          requests,
		snapshots:         snapshots,
		cache:             cache,
		minResponseLength: minResponseLength,
		logger:            logger,
	}
}

// Create opens a pending request, capturing the entity's current document
// as the diff baseline.
func (s *RequestService) Create(ctx context.Context, requesterID string, req dto.CreateRequestRequest) (*models.ModerationRequest, error) {
	switch req.RequestType {
	case models.RequestTypeQuestionFlag, models.RequestTypeAnswerFlag, models.RequestTypeDataFix:
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown request type")
	}
	reason := strings.TrimSpace(req.Reason)
	if len(reason) < s.minResponseLength {
		return nil, appErrors.Clone(appErrors.ErrReasonTooShort, "request reason is too short")
	}
	if !json.Valid(req.ProposedDoc) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "proposed document is not valid JSON")
	}

	existing, err := s.snapshots.EntityDocument(ctx, req.RequestType, req.EntityID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "target entity not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to capture entity document")
	}

	request := &models.ModerationRequest{
		EntityID:    req.EntityID,
		RequestType: req.RequestType,
		ExistingDoc: existing,
		ProposedDoc: req.ProposedDoc,
		Reason:      reason,
		Status:      models.RequestStatusPending,
		RequestedBy: requesterID,
	}
	if err := s.requests.Create(ctx, request); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create request")
	}

	s.invalidate(ctx)
	s.logger.Info("moderation request created",
		zap.String("request_id", request.ID),
		zap.String("entity_id", request.EntityID),
		zap.String("type", string(request.RequestType)))
	return request, nil
}

// Get returns a request with its response trail.
func (s *RequestService) Get(ctx context.Context, requestID string) (*dto.RequestDetail, error) {
	request, err := s.load(ctx, requestID)
	if err != nil {
		return nil, err
	}
	responses, err := s.requests.ListResponses(ctx, requestID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list request responses")
	}
	return &dto.RequestDetail{Request: *request, Responses: responses}, nil
}

// List returns requests matching the query.
func (s *RequestService) List(ctx context.Context, query dto.RequestQuery) ([]models.ModerationRequest, error) {
	requests, err := s.requests.List(ctx, models.RequestFilter{
		Status:      query.Status,
		RequestType: query.RequestType,
		EntityID:    query.EntityID,
		Limit:       query.Limit,
		Offset:      query.Offset,
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list requests")
	}
	return requests, nil
}

// UpdateStatus advances a request and appends the reviewer response. Status
// only moves forward; re-submitting the current status is rejected.
func (s *RequestService) UpdateStatus(ctx context.Context, requestID, responderID string, req dto.UpdateRequestStatusRequest) (*dto.RequestDetail, error) {
	request, err := s.load(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if !req.Status.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown request status")
	}
	if req.Status == request.Status {
		return nil, appErrors.Clone(appErrors.ErrSameStatus, "request already has this status")
	}
	if !request.Status.CanAdvanceTo(req.Status) {
		return nil, appErrors.Clone(appErrors.ErrInvalidState, "request status only moves forward")
	}
	response := strings.TrimSpace(req.Response)
	if len(response) < s.minResponseLength {
		return nil, appErrors.Clone(appErrors.ErrResponseTooShort, "response is too short")
	}

	if err := s.requests.UpdateStatus(ctx, repository.UpdateStatusParams{
		RequestID:     requestID,
		CurrentStatus: request.Status,
		NewStatus:     req.Status,
		ResponderID:   responderID,
		Response:      response,
	}); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "request was modified concurrently, retry")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update request status")
	}

	s.invalidate(ctx)
	s.logger.Info("request status updated",
		zap.String("request_id", requestID),
		zap.String("from", string(request.Status)),
		zap.String("to", string(req.Status)))
	return s.Get(ctx, requestID)
}

// Diff computes the field-level comparison between the captured baseline and
// the proposed document. The result is cached; it only changes when the
// request itself changes.
func (s *RequestService) Diff(ctx context.Context, requestID string) (*dto.RequestDiff, error) {
	cacheKey := "requests:diff:" + requestID
	if s.cache.Enabled() {
		var cached dto.RequestDiff
		if hit, err := s.cache.Get(ctx, cacheKey, &cached); err == nil && hit {
			return &cached, nil
		}
	}

	request, err := s.load(ctx, requestID)
	if err != nil {
		return nil, err
	}
	fields, err := diff.Documents(request.ExistingDoc, request.ProposedDoc)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "failed to compare documents")
	}
	diff.Sort(fields)

	result := &dto.RequestDiff{
		RequestID:   request.ID,
		ExistingDoc: request.ExistingDoc,
		ProposedDoc: request.ProposedDoc,
		Fields:      fields,
	}
	if s.cache.Enabled() {
		_ = s.cache.Set(ctx, cacheKey, result, 0)
	}
	return result, nil
}

func (s *RequestService) load(ctx context.Context, requestID string) (*models.ModerationRequest, error) {
	request, err := s.requests.GetByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "request not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load request")
	}
	return request, nil
}

func (s *RequestService) invalidate(ctx context.Context) {
	if s.cache.Enabled() {
		_ = s.cache.Invalidate(ctx, "requests:*")
	}
}
