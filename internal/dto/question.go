package dto

import (
	"github.com/vicharanashala/ajrasakha-sub001/internal/models"
)

// CreateQuestionRequest ingests a new question with routing metadata.
type CreateQuestionRequest struct {
	Text     string `json:"text" binding:"required"`
	State    string `json:"state"`
	Crop     string `json:"crop"`
	Domain   string `json:"domain"`
	Priority string `json:"priority"`
}

// QuestionQuery mirrors supported listing filters.
type QuestionQuery struct {
	Status   []models.QuestionStatus
	State    string
	Crop     string
	Domain   string
	Priority string
	Search   string
	Page     int
	PageSize int
}

// QueueSlot is a queue entry annotated with its derived display state.
type QueueSlot struct {
	models.QueueEntry
	SlotState models.QueueSlotState `json:"slotState"`
}

// QuestionDetail aggregates the question with its submission timeline.
type QuestionDetail struct {
	Question models.Question            `json:"question"`
	Queue    []QueueSlot                `json:"queue"`
	History  []models.SubmissionHistory `json:"history"`
	Answers  []models.Answer            `json:"answers,omitempty"`
}
