package models

import "time"

// QueueEntry is one slot in a question's allocation queue. Position orders
// turns within a round; the first expert with no history entry holds the
// current turn.
type QueueEntry struct {
	ID          string    `db:"id" json:"id"`
	QuestionID  string    `db:"question_id" json:"questionId"`
	ExpertID    string    `db:"expert_id" json:"expertId"`
	ExpertEmail string    `db:"expert_email" json:"expertEmail"`
	Position    int       `db:"position" json:"position"`
	Round       int       `db:"round" json:"round"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
}

// QueueSlotState is the display state derived for a queue entry.
type QueueSlotState string

const (
	// QueueSlotWaiting is the slot holding the current turn.
	QueueSlotWaiting QueueSlotState = "waiting"
	// QueueSlotPending is a slot queued behind the current turn.
	QueueSlotPending   QueueSlotState = "pending"
	QueueSlotSubmitted QueueSlotState = "submitted"
)

// SubmissionHistory is one append-only audit entry per state-changing action.
// Seq is assigned per question and strictly increasing; entries are never
// mutated after insert.
type SubmissionHistory struct {
	ID                 string         `db:"id" json:"id"`
	QuestionID         string         `db:"question_id" json:"questionId"`
	Seq                int            `db:"seq" json:"seq"`
	UpdatedBy          string         `db:"updated_by" json:"updatedBy"`
	AnswerID           *string        `db:"answer_id" json:"answerId,omitempty"`
	Status             QuestionStatus `db:"status" json:"status"`
	ApprovedAnswer     bool           `db:"approved_answer" json:"approvedAnswer"`
	RejectedAnswer     bool           `db:"rejected_answer" json:"rejectedAnswer"`
	ModifiedAnswer     bool           `db:"modified_answer" json:"modifiedAnswer"`
	IsReroute          bool           `db:"is_reroute" json:"isReroute"`
	ReasonForRejection *string        `db:"reason_for_rejection" json:"reasonForRejection,omitempty"`
	CreatedAt          time.Time      `db:"created_at" json:"createdAt"`
}

// HasSubmitted reports whether the given expert already recorded an answer
// submission in the provided history.
func HasSubmitted(history []SubmissionHistory, expertID string) bool {
	for _, entry := range history {
		if entry.UpdatedBy == expertID && entry.AnswerID != nil {
			return true
		}
	}
	return false
}
