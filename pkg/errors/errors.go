package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error represents a typed domain error with HTTP awareness.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"status"`
	Err     error  `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// New creates a new Error instance.
func New(code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message}
}

// Wrap attaches context to an existing error.
func Wrap(err error, code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message, Err: err}
}

// Predefined errors for common scenarios.
var (
	ErrInvalidCredentials = New("INVALID_CREDENTIALS", http.StatusUnauthorized, "invalid email or password")
	ErrInactiveAccount    = New("ACCOUNT_INACTIVE", http.StatusForbidden, "account is inactive")
	ErrNotFound           = New("NOT_FOUND", http.StatusNotFound, "resource not found")
	ErrForbidden          = New("FORBIDDEN", http.StatusForbidden, "forbidden")
	ErrUnauthorized       = New("UNAUTHORIZED", http.StatusUnauthorized, "unauthorized")
	ErrConflict           = New("CONFLICT", http.StatusConflict, "conflict")
	ErrPreconditionFailed = New("PRECONDITION_FAILED", http.StatusPreconditionFailed, "precondition failed")
	ErrValidation         = New("VALIDATION_ERROR", http.StatusBadRequest, "validation failed")
	ErrInternal           = New("INTERNAL_ERROR", http.StatusInternalServerError, "internal server error")
	ErrCacheMiss          = New("CACHE_MISS", http.StatusNotFound, "cache miss")
)

// Workflow errors raised by the allocation queue and review state machine.
var (
	ErrInvalidState        = New("INVALID_STATE", http.StatusConflict, "question state does not permit this operation")
	ErrNotYourTurn         = New("NOT_YOUR_TURN", http.StatusConflict, "another expert holds the current queue turn")
	ErrAlreadyQueued       = New("ALREADY_QUEUED", http.StatusConflict, "expert is already in the allocation queue")
	ErrAllocationConflict  = New("ALLOCATION_CONFLICT", http.StatusConflict, "expert has already submitted for this allocation")
	ErrStaleAnswer         = New("STALE_ANSWER", http.StatusConflict, "answer is not the latest iteration")
	ErrThresholdNotMet     = New("THRESHOLD_NOT_MET", http.StatusPreconditionFailed, "approval count below required threshold")
	ErrReroutePending      = New("REROUTE_ALREADY_PENDING", http.StatusConflict, "a re-route is already pending for this question")
	ErrDuplicateSubmission = New("DUPLICATE_SUBMISSION", http.StatusConflict, "submission already recorded for this turn")
	ErrReasonTooShort      = New("REASON_TOO_SHORT", http.StatusBadRequest, "reason must be at least 8 characters")
	ErrResponseTooShort    = New("RESPONSE_TOO_SHORT", http.StatusBadRequest, "response must be at least 8 characters")
	ErrSameStatus          = New("SAME_STATUS", http.StatusBadRequest, "request already has this status")
	ErrExpertBlocked       = New("EXPERT_BLOCKED", http.StatusForbidden, "expert is blocked from allocation")
)

// FromError normalises any error into an *Error.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Wrap(err, ErrInternal.Code, ErrInternal.Status, ErrInternal.Message)
}

// Clone returns a copy of the error allowing for message overrides.
func Clone(err *Error, message string) *Error {
	if err == nil {
		return nil
	}
	clone := *err
	if message != "" {
		clone.Message = message
	}
	return &clone
}
