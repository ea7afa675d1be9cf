package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vicharanashala/ajrasakha-sub001/internal/models"
)

func slot(id, expertID string, round, position int) models.QueueEntry {
	return models.QueueEntry{ID: id, ExpertID: expertID, Round: round, Position: position}
}

func submission(expertID string) models.SubmissionHistory {
	answerID := "answer-" + expertID
	return models.SubmissionHistory{UpdatedBy: expertID, AnswerID: &answerID, Status: models.QuestionStatusInReview}
}

func TestCurrentTurnEmptyQueue(t *testing.T) {
	_, ok := CurrentTurn(nil, nil)
	assert.False(t, ok)
}

func TestCurrentTurnFirstSlot(t *testing.T) {
	queue := []models.QueueEntry{
		slot("q1", "alice", 1, 1),
		slot("q2", "bob", 1, 2),
	}
	turn, ok := CurrentTurn(queue, nil)
	require.True(t, ok)
	assert.Equal(t, "alice", turn.ExpertID)
}

func TestCurrentTurnAdvancesAfterSubmission(t *testing.T) {
	queue := []models.QueueEntry{
		slot("q1", "alice", 1, 1),
		slot("q2", "bob", 1, 2),
	}
	history := []models.SubmissionHistory{submission("alice")}
	turn, ok := CurrentTurn(queue, history)
	require.True(t, ok)
	assert.Equal(t, "bob", turn.ExpertID)
}

func TestCurrentTurnIgnoresNonSubmissionHistory(t *testing.T) {
	queue := []models.QueueEntry{slot("q1", "alice", 1, 1)}
	// Rejections and closes carry no answer and must not consume the slot.
	history := []models.SubmissionHistory{{UpdatedBy: "mod", Status: models.QuestionStatusInReview}}
	turn, ok := CurrentTurn(queue, history)
	require.True(t, ok)
	assert.Equal(t, "alice", turn.ExpertID)
}

func TestCurrentTurnSameExpertTwoRounds(t *testing.T) {
	queue := []models.QueueEntry{
		slot("q1", "alice", 1, 1),
		slot("q2", "alice", 2, 1),
	}
	history := []models.SubmissionHistory{submission("alice")}
	turn, ok := CurrentTurn(queue, history)
	require.True(t, ok)
	assert.Equal(t, "q2", turn.ID)

	history = append(history, submission("alice"))
	_, ok = CurrentTurn(queue, history)
	assert.False(t, ok)
}

func TestQueueStates(t *testing.T) {
	queue := []models.QueueEntry{
		slot("q1", "alice", 1, 1),
		slot("q2", "bob", 1, 2),
		slot("q3", "carol", 1, 3),
	}
	history := []models.SubmissionHistory{submission("alice")}

	slots := QueueStates(queue, history)
	require.Len(t, slots, 3)
	assert.Equal(t, models.QueueSlotSubmitted, slots[0].SlotState)
	assert.Equal(t, models.QueueSlotWaiting, slots[1].SlotState)
	assert.Equal(t, models.QueueSlotPending, slots[2].SlotState)
}

func TestQueueStatesAllSubmitted(t *testing.T) {
	queue := []models.QueueEntry{
		slot("q1", "alice", 1, 1),
		slot("q2", "bob", 1, 2),
	}
	history := []models.SubmissionHistory{submission("alice"), submission("bob")}

	slots := QueueStates(queue, history)
	require.Len(t, slots, 2)
	for _, s := range slots {
		assert.Equal(t, models.QueueSlotSubmitted, s.SlotState)
	}
}

func TestNextQueuePlacement(t *testing.T) {
	round, position := nextQueuePlacement(nil)
	assert.Equal(t, 1, round)
	assert.Equal(t, 1, position)

	queue := []models.QueueEntry{
		slot("q1", "alice", 1, 1),
		slot("q2", "bob", 1, 2),
	}
	round, position = nextQueuePlacement(queue)
	assert.Equal(t, 1, round)
	assert.Equal(t, 3, position)

	queue = append(queue, slot("q3", "carol", 2, 1))
	round, position = nextQueuePlacement(queue)
	assert.Equal(t, 2, round)
	assert.Equal(t, 2, position)
}

func TestHasOnlySubmittedSlots(t *testing.T) {
	queue := []models.QueueEntry{
		slot("q1", "alice", 1, 1),
		slot("q2", "alice", 2, 1),
	}

	assert.False(t, hasOnlySubmittedSlots(queue, nil, "alice"))
	assert.False(t, hasOnlySubmittedSlots(queue, nil, "bob"))

	history := []models.SubmissionHistory{submission("alice")}
	assert.False(t, hasOnlySubmittedSlots(queue, history, "alice"))

	history = append(history, submission("alice"))
	assert.True(t, hasOnlySubmittedSlots(queue, history, "alice"))
}

func TestIsQueued(t *testing.T) {
	queue := []models.QueueEntry{slot("q1", "alice", 1, 1)}
	assert.True(t, isQueued(queue, "alice"))
	assert.False(t, isQueued(queue, "bob"))
}
