package service

import (
	"github.com/vicharanashala/ajrasakha-sub001/internal/dto"
	"github.com/vicharanashala/ajrasakha-sub001/internal/models"
)

// submissionCounts tallies recorded answer submissions per expert.
func submissionCounts(history []models.SubmissionHistory) map[string]int {
	counts := make(map[string]int)
	for _, entry := range history {
		if entry.AnswerID != nil {
			counts[entry.UpdatedBy]++
		}
	}
	return counts
}

// CurrentTurn returns the queue slot holding the current turn: the first
// slot, in round then position order, whose expert has fewer recorded
// submissions than earlier slots assigned to them. Returns false when every
// slot is exhausted or the queue is empty.
func CurrentTurn(queue []models.QueueEntry, history []models.SubmissionHistory) (models.QueueEntry, bool) {
	submitted := submissionCounts(history)
	seen := make(map[string]int)
	for _, entry := range queue {
		seen[entry.ExpertID]++
		if seen[entry.ExpertID] > submitted[entry.ExpertID] {
			return entry, true
		}
	}
	return models.QueueEntry{}, false
}

// QueueStates annotates each slot with its derived display state: submitted
// slots are settled, the current turn is waiting on its expert, and the
// slots behind it are pending.
func QueueStates(queue []models.QueueEntry, history []models.SubmissionHistory) []dto.QueueSlot {
	submitted := submissionCounts(history)
	seen := make(map[string]int)
	slots := make([]dto.QueueSlot, 0, len(queue))
	turnTaken := false
	for _, entry := range queue {
		seen[entry.ExpertID]++
		state := models.QueueSlotPending
		switch {
		case seen[entry.ExpertID] <= submitted[entry.ExpertID]:
			state = models.QueueSlotSubmitted
		case !turnTaken:
			state = models.QueueSlotWaiting
			turnTaken = true
		}
		slots = append(slots, dto.QueueSlot{QueueEntry: entry, SlotState: state})
	}
	return slots
}

// nextQueuePlacement returns the round and position directly after the
// current tail of the queue.
func nextQueuePlacement(queue []models.QueueEntry) (round, position int) {
	round = 1
	position = 1
	for _, entry := range queue {
		if entry.Round > round {
			round = entry.Round
			position = entry.Position + 1
		} else if entry.Round == round && entry.Position >= position {
			position = entry.Position + 1
		}
	}
	return round, position
}

// hasOnlySubmittedSlots reports whether the expert is queued and every one
// of their slots has a recorded submission.
func hasOnlySubmittedSlots(queue []models.QueueEntry, history []models.SubmissionHistory, expertID string) bool {
	slots := 0
	for _, entry := range queue {
		if entry.ExpertID == expertID {
			slots++
		}
	}
	return slots > 0 && submissionCounts(history)[expertID] >= slots
}

// isQueued reports whether the expert already holds any slot.
func isQueued(queue []models.QueueEntry, expertID string) bool {
	for _, entry := range queue {
		if entry.ExpertID == expertID {
			return true
		}
	}
	return false
}
