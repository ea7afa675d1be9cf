package models

import "time"

// QuestionStatus enumerates the review lifecycle of a question.
type QuestionStatus string

const (
	QuestionStatusOpen     QuestionStatus = "open"
	QuestionStatusDelayed  QuestionStatus = "delayed"
	QuestionStatusInReview QuestionStatus = "in-review"
	QuestionStatusRerouted QuestionStatus = "re-routed"
	QuestionStatusClosed   QuestionStatus = "closed"
)

// AcceptsAllocation reports whether new experts may still be queued.
func (s QuestionStatus) AcceptsAllocation() bool {
	return s == QuestionStatusOpen || s == QuestionStatusDelayed
}

// AcceptsSubmission reports whether the current-turn expert may submit.
func (s QuestionStatus) AcceptsSubmission() bool {
	return s != QuestionStatusClosed
}

// Reviewable reports whether moderator approve/reject actions apply.
func (s QuestionStatus) Reviewable() bool {
	return s == QuestionStatusInReview || s == QuestionStatusRerouted
}

// Question is the root aggregate of the review workflow. Version implements
// optimistic concurrency: every state-changing operation bumps it and guards
// its writes on the value read.
type Question struct {
	ID             string         `db:"id" json:"id"`
	Text           string         `db:"text" json:"text"`
	Status         QuestionStatus `db:"status" json:"status"`
	IsAutoAllocate bool           `db:"is_auto_allocate" json:"isAutoAllocate"`
	State          string         `db:"state" json:"state,omitempty"`
	Crop           string         `db:"crop" json:"crop,omitempty"`
	Domain         string         `db:"domain" json:"domain,omitempty"`
	Priority       string         `db:"priority" json:"priority,omitempty"`
	LastAnswerID   *string        `db:"last_answer_id" json:"lastAnswerId,omitempty"`
	Version        int64          `db:"version" json:"version"`
	CreatedAt      time.Time      `db:"created_at" json:"createdAt"`
	UpdatedAt      time.Time      `db:"updated_at" json:"updatedAt"`
}

// QuestionFilter constrains question listing.
type QuestionFilter struct {
	Status   []QuestionStatus
	State    string
	Crop     string
	Domain   string
	Priority string
	Search   string
	Page     int
	PageSize int
}

// QuestionSnapshot is the consistent read used to validate workflow
// preconditions before a guarded write.
type QuestionSnapshot struct {
	Question       Question
	Queue          []QueueEntry
	History        []SubmissionHistory
	LatestAnswer   *Answer
	PendingReroute *Reroute
}
