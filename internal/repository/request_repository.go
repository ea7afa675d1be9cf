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

const requestColumns = `id, entity_id, request_type, existing_doc, proposed_doc, reason, status, requested_by, created_at, updated_at`

// RequestRepository persists moderation requests and their response trail.
type RequestRepository struct {
	db *sqlx.DB
}

// NewRequestRepository constructs the repository.
func NewRequestRepository(db *sqlx.DB) *RequestRepository {
	return &RequestRepository{db: db}
}

// Create inserts a new pending request.
func (r *RequestRepository) Create(ctx context.Context, request *models.ModerationRequest) error {
	now := time.Now().UTC()
	if request.ID == "" {
		request.ID = uuid.NewString()
	}
	if request.Status == "" {
		request.Status = models.RequestStatusPending
	}
	request.CreatedAt = now
	request.UpdatedAt = now

	const query = `INSERT INTO moderation_requests
	(id, entity_id, request_type, existing_doc, proposed_doc, reason, status, requested_by, created_at, updated_at)
	VALUES (:id, :entity_id, :request_type, :existing_doc, :proposed_doc, :reason, :status, :requested_by, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, request); err != nil {
		return fmt.Errorf("create moderation request: %w", err)
	}
	return nil
}

// GetByID fetches a request by identifier.
func (r *RequestRepository) GetByID(ctx context.Context, id string) (*models.ModerationRequest, error) {
	query := `SELECT ` + requestColumns + ` FROM moderation_requests WHERE id = $1`
	var request models.ModerationRequest
	if err := r.db.GetContext(ctx, &request, query, id); err != nil {
		return nil, err
	}
	return &request, nil
}

// ListResponses returns a request's response trail in append order.
func (r *RequestRepository) ListResponses(ctx context.Context, requestID string) ([]models.RequestResponse, error) {
	const query = `SELECT id, request_id, responder_id, status, response, created_at
	FROM request_responses WHERE request_id = $1 ORDER BY created_at`
	var responses []models.RequestResponse
	if err := r.db.SelectContext(ctx, &responses, query, requestID); err != nil {
		return nil, fmt.Errorf("list request responses: %w", err)
	}
	return responses, nil
}

// List returns requests matching the filter, newest first.
func (r *RequestRepository) List(ctx context.Context, filter models.RequestFilter) ([]models.ModerationRequest, error) {
	conditions := make([]string, 0, 4)
	args := make([]interface{}, 0, 6)

	if len(filter.Status) > 0 {
		placeholders := make([]string, len(filter.Status))
		for i, status := range filter.Status {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		conditions = append(conditions, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.RequestType != "" {
		args = append(args, filter.RequestType)
		conditions = append(conditions, fmt.Sprintf("request_type = $%d", len(args)))
	}
	if filter.EntityID != "" {
		args = append(args, filter.EntityID)
		conditions = append(conditions, fmt.Sprintf("entity_id = $%d", len(args)))
	}
	if filter.RequestedBy != "" {
		args = append(args, filter.RequestedBy)
		conditions = append(conditions, fmt.Sprintf("requested_by = $%d", len(args)))
	}

	query := `SELECT ` + requestColumns + ` FROM moderation_requests`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY created_at DESC"

	limit := filter.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	query += fmt.Sprintf(" LIMIT %d OFFSET %d", limit, offset)

	var requests []models.ModerationRequest
	if err := r.db.SelectContext(ctx, &requests, query, args...); err != nil {
		return nil, fmt.Errorf("list moderation requests: %w", err)
	}
	return requests, nil
}

// UpdateStatusParams advances a request and appends a reviewer response.
type UpdateStatusParams struct {
	RequestID     string
	CurrentStatus models.RequestStatus
	NewStatus     models.RequestStatus
	ResponderID   string
	Response      string
}

// UpdateStatus moves the request forward, guarded on the status read by the
// caller, and records the response in the same transaction.
func (r *RequestRepository) UpdateStatus(ctx context.Context, params UpdateStatusParams) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin request transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	now := time.Now().UTC()
	result, err := tx.ExecContext(ctx,
		`UPDATE moderation_requests SET status = $1, updated_at = $2 WHERE id = $3 AND status = $4`,
		params.NewStatus, now, params.RequestID, params.CurrentStatus)
	if err != nil {
		return fmt.Errorf("update request status: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check request update rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}

	response := models.RequestResponse{
		ID:          uuid.NewString(),
		RequestID:   params.RequestID,
		ResponderID: params.ResponderID,
		Status:      params.NewStatus,
		Response:    params.Response,
		CreatedAt:   now,
	}
	const responseQuery = `INSERT INTO request_responses
	(id, request_id, responder_id, status, response, created_at)
	VALUES (:id, :request_id, :responder_id, :status, :response, :created_at)`
	if _, err = tx.NamedExecContext(ctx, responseQuery, &response); err != nil {
		return fmt.Errorf("append request response: %w", err)
	}
	return tx.Commit()
}

// CountPending returns the number of requests awaiting review.
func (r *RequestRepository) CountPending(ctx context.Context) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count,
		`SELECT COUNT(*) FROM moderation_requests WHERE status IN ($1, $2)`,
		models.RequestStatusPending, models.RequestStatusInReview); err != nil {
		return 0, fmt.Errorf("count pending requests: %w", err)
	}
	return count, nil
}
