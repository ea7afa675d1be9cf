package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// AnswerSource cites supporting material for an answer.
type AnswerSource struct {
	URL  string `json:"url"`
	Page *int   `json:"page,omitempty"`
}

// AnswerSources is stored as a jsonb column.
type AnswerSources []AnswerSource

// Value implements driver.Valuer.
func (s AnswerSources) Value() (driver.Value, error) {
	if s == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(s)
}

// Scan implements sql.Scanner.
func (s *AnswerSources) Scan(src interface{}) error {
	if src == nil {
		*s = nil
		return nil
	}
	var raw []byte
	switch v := src.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("unsupported sources type %T", src)
	}
	return json.Unmarshal(raw, s)
}

// Answer is one iteration of an expert response to a question. Iterations
// increase monotonically per question; superseded answers are kept.
type Answer struct {
	ID            string        `db:"id" json:"id"`
	QuestionID    string        `db:"question_id" json:"questionId"`
	AuthorID      string        `db:"author_id" json:"authorId"`
	Iteration     int           `db:"iteration" json:"answerIteration"`
	IsFinal       bool          `db:"is_final" json:"isFinalAnswer"`
	Text          string        `db:"text" json:"answer"`
	Sources       AnswerSources `db:"sources" json:"sources"`
	ApprovalCount int           `db:"approval_count" json:"approvalCount"`
	Threshold     float64       `db:"threshold" json:"threshold"`
	Remarks       *string       `db:"remarks" json:"remarks,omitempty"`
	CreatedAt     time.Time     `db:"created_at" json:"createdAt"`
	UpdatedAt     time.Time     `db:"updated_at" json:"updatedAt"`
}

// ReviewAction enumerates peer review outcomes.
type ReviewAction string

const (
	ReviewActionAccepted ReviewAction = "accepted"
	ReviewActionRejected ReviewAction = "rejected"
	ReviewActionModified ReviewAction = "modified"
)

// Valid reports whether the action is a known outcome.
func (a ReviewAction) Valid() bool {
	switch a {
	case ReviewActionAccepted, ReviewActionRejected, ReviewActionModified:
		return true
	}
	return false
}

// ReviewParameters is the named boolean checklist scored by a reviewer.
type ReviewParameters struct {
	ContextRelevance         bool `json:"contextRelevance"`
	TechnicalAccuracy        bool `json:"technicalAccuracy"`
	CredibilityUtility       bool `json:"credibilityUtility"`
	ValueInsight             bool `json:"valueInsight"`
	ReadabilityCommunication bool `json:"readabilityCommunication"`
}

// Value implements driver.Valuer.
func (p ReviewParameters) Value() (driver.Value, error) {
	return json.Marshal(p)
}

// Scan implements sql.Scanner.
func (p *ReviewParameters) Scan(src interface{}) error {
	if src == nil {
		*p = ReviewParameters{}
		return nil
	}
	var raw []byte
	switch v := src.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("unsupported parameters type %T", src)
	}
	return json.Unmarshal(raw, p)
}

// AnswerReview is one reviewer verdict on an answer iteration. Modification
// reviews carry the old and new text; ReRouted distinguishes the re-route
// timeline from the ordinary review timeline.
type AnswerReview struct {
	ID         string           `db:"id" json:"id"`
	AnswerID   string           `db:"answer_id" json:"answerId"`
	ReviewerID string           `db:"reviewer_id" json:"reviewerId"`
	Action     ReviewAction     `db:"action" json:"action"`
	Parameters ReviewParameters `db:"parameters" json:"parameters"`
	Reason     string           `db:"reason" json:"reason"`
	OldAnswer  *string          `db:"old_answer" json:"oldAnswer,omitempty"`
	NewAnswer  *string          `db:"new_answer" json:"newAnswer,omitempty"`
	ModifiedBy *string          `db:"modified_by" json:"modifiedBy,omitempty"`
	ReRouted   bool             `db:"rerouted" json:"reRoutedReview"`
	CreatedAt  time.Time        `db:"created_at" json:"createdAt"`
}
