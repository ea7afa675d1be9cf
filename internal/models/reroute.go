package models

import "time"

// RerouteStatus enumerates the re-route sub-workflow states.
type RerouteStatus string

const (
	RerouteStatusPending  RerouteStatus = "pending"
	RerouteStatusAccepted RerouteStatus = "accepted"
	RerouteStatusRejected RerouteStatus = "rejected"
)

// Reroute redirects an in-review answer to a different expert. At most one
// pending re-route may exist per question. Acceptance is recorded by the
// same transaction that stores the target expert's submission; rejection
// reverts the question to in-review and frees the reserved queue slot
// (QueueEntryID).
type Reroute struct {
	ID           string        `db:"id" json:"rerouteId"`
	QuestionID   string        `db:"question_id" json:"questionId"`
	AnswerID     string        `db:"answer_id" json:"answerId"`
	ReroutedTo   string        `db:"rerouted_to" json:"reroutedTo"`
	ReroutedBy   string        `db:"rerouted_by" json:"reroutedBy"`
	QueueEntryID string        `db:"queue_entry_id" json:"-"`
	Comment      string        `db:"comment" json:"comment"`
	Status       RerouteStatus `db:"status" json:"status"`
	Reason       *string       `db:"reason" json:"reason,omitempty"`
	CreatedAt    time.Time     `db:"created_at" json:"createdAt"`
	ResolvedAt   *time.Time    `db:"resolved_at" json:"resolvedAt,omitempty"`
}

// RerouteFilter constrains re-route listings.
type RerouteFilter struct {
	QuestionID string
	ReroutedTo string
	ReroutedBy string
	Status     []RerouteStatus
	Limit      int
	Offset     int
}
