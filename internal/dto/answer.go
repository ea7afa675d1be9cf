package dto

import (
	"github.com/vicharanashala/ajrasakha-sub001/internal/models"
)

// SubmitAnswerRequest is the current-turn expert's answer payload.
type SubmitAnswerRequest struct {
	Text    string                `json:"answer" binding:"required"`
	Sources []models.AnswerSource `json:"sources"`
	Remarks string                `json:"remarks"`
}

// ApproveAnswerRequest finalises an answer with moderator-edited content.
// AnswerID names the iteration the moderator actually reviewed; approval is
// refused when a newer iteration has landed since.
type ApproveAnswerRequest struct {
	AnswerID  string                `json:"answerId" binding:"required"`
	FinalText string                `json:"finalAnswer" binding:"required"`
	Sources   []models.AnswerSource `json:"sources"`
}

// RejectAnswerRequest rejects the latest answer iteration.
type RejectAnswerRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// CreateReviewRequest records a peer review verdict on an answer.
type CreateReviewRequest struct {
	Action     models.ReviewAction     `json:"action" binding:"required"`
	Parameters models.ReviewParameters `json:"parameters"`
	Reason     string                  `json:"reason"`
	NewAnswer  string                  `json:"newAnswer"`
}

// SubmissionResult returns the stored answer together with its history entry.
type SubmissionResult struct {
	Answer  models.Answer            `json:"answer"`
	History models.SubmissionHistory `json:"history"`
	Status  models.QuestionStatus    `json:"status"`
}
