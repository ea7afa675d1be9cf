package dto

import (
	"github.com/vicharanashala/ajrasakha-sub001/internal/models"
)

// CreateRerouteRequest redirects an in-review answer to another expert.
type CreateRerouteRequest struct {
	AnswerID       string `json:"answerId" binding:"required"`
	TargetExpertID string `json:"targetExpertId" binding:"required"`
	Comment        string `json:"comment" binding:"required"`
}

// RejectRerouteRequest declines a pending re-route.
type RejectRerouteRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// RerouteQuery mirrors supported listing filters.
type RerouteQuery struct {
	QuestionID string
	ReroutedTo string
	Status     []models.RerouteStatus
	Limit      int
	Offset     int
}
