package models

import "time"

// RequestStatus mirrors the question state set for moderation requests and
// only moves forward.
type RequestStatus string

const (
	RequestStatusPending  RequestStatus = "pending"
	RequestStatusInReview RequestStatus = "in-review"
	RequestStatusApproved RequestStatus = "approved"
	RequestStatusRejected RequestStatus = "rejected"
)

// Valid reports whether the status is a known value.
func (s RequestStatus) Valid() bool {
	switch s {
	case RequestStatusPending, RequestStatusInReview, RequestStatusApproved, RequestStatusRejected:
		return true
	}
	return false
}

func (s RequestStatus) rank() int {
	switch s {
	case RequestStatusPending:
		return 0
	case RequestStatusInReview:
		return 1
	case RequestStatusApproved, RequestStatusRejected:
		return 2
	}
	return -1
}

// CanAdvanceTo reports whether a transition to next is forward-only.
func (s RequestStatus) CanAdvanceTo(next RequestStatus) bool {
	return next.Valid() && next != s && next.rank() > s.rank()
}

// RequestType enumerates moderation request categories.
type RequestType string

const (
	RequestTypeQuestionFlag RequestType = "question_flag"
	RequestTypeAnswerFlag   RequestType = "answer_flag"
	RequestTypeDataFix      RequestType = "data_fix"
)

// ModerationRequest captures a proposed change awaiting moderator review.
// The diff between ExistingDoc and ProposedDoc is computed on read, never
// stored.
type ModerationRequest struct {
	ID          string        `db:"id" json:"id"`
	EntityID    string        `db:"entity_id" json:"entityId"`
	RequestType RequestType   `db:"request_type" json:"requestType"`
	ExistingDoc []byte        `db:"existing_doc" json:"existingDoc"`
	ProposedDoc []byte        `db:"proposed_doc" json:"currentDoc"`
	Reason      string        `db:"reason" json:"reason"`
	Status      RequestStatus `db:"status" json:"status"`
	RequestedBy string        `db:"requested_by" json:"requestedBy"`
	CreatedAt   time.Time     `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time     `db:"updated_at" json:"updatedAt"`
}

// RequestResponse is one reviewer response in a request's audit trail.
type RequestResponse struct {
	ID          string        `db:"id" json:"id"`
	RequestID   string        `db:"request_id" json:"requestId"`
	ResponderID string        `db:"responder_id" json:"responderId"`
	Status      RequestStatus `db:"status" json:"status"`
	Response    string        `db:"response" json:"response"`
	CreatedAt   time.Time     `db:"created_at" json:"createdAt"`
}

// RequestFilter constrains request listings.
type RequestFilter struct {
	Status      []RequestStatus
	RequestType RequestType
	EntityID    string
	RequestedBy string
	Limit       int
	Offset      int
}
