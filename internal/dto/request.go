package dto

import (
	"encoding/json"

	"github.com/vicharanashala/ajrasakha-sub001/internal/models"
	"github.com/vicharanashala/ajrasakha-sub001/pkg/diff"
)

// CreateRequestRequest opens a moderation request against an entity.
type CreateRequestRequest struct {
	EntityID    string             `json:"entityId" binding:"required"`
	RequestType models.RequestType `json:"requestType" binding:"required"`
	ProposedDoc json.RawMessage    `json:"proposedDoc" binding:"required"`
	Reason      string             `json:"reason" binding:"required"`
}

// UpdateRequestStatusRequest advances a request and appends a reviewer
// response to its audit trail.
type UpdateRequestStatusRequest struct {
	Status   models.RequestStatus `json:"status" binding:"required"`
	Response string               `json:"response" binding:"required"`
}

// RequestQuery mirrors supported listing filters.
type RequestQuery struct {
	Status      []models.RequestStatus
	RequestType models.RequestType
	EntityID    string
	Limit       int
	Offset      int
}

// RequestDetail bundles a request with its response trail.
type RequestDetail struct {
	Request   models.ModerationRequest `json:"request"`
	Responses []models.RequestResponse `json:"responses"`
}

// RequestDiff is the on-demand structural comparison of a request's
// existing and proposed documents.
type RequestDiff struct {
	RequestID   string          `json:"requestId"`
	ExistingDoc json.RawMessage `json:"existingDoc"`
	ProposedDoc json.RawMessage `json:"proposedDoc"`
	Fields      []diff.Field    `json:"fields"`
}
