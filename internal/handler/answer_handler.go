package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vicharanashala/ajrasakha-sub001/internal/dto"
	"github.com/vicharanashala/ajrasakha-sub001/internal/service"
	appErrors "github.com/vicharanashala/ajrasakha-sub001/pkg/errors"
	"github.com/vicharanashala/ajrasakha-sub001/pkg/response"
)

// AnswerHandler exposes answer submission and review endpoints.
type AnswerHandler struct {
	reviews *service.ReviewService
	metrics *service.MetricsService
}

// NewAnswerHandler creates a new answer handler.
func NewAnswerHandler(reviews *service.ReviewService, metrics *service.MetricsService) *AnswerHandler {
	return &AnswerHandler{reviews: reviews, metrics: metrics}
}

// Submit godoc
// @Summary Submit answer
// @Description Record a new answer iteration from the current-turn expert
// @Tags Answers
// @Accept json
// @Produce json
// @Param id path string true "Question ID"
// @Param payload body dto.SubmitAnswerRequest true "Answer payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /questions/{id}/answers [post]
func (h *AnswerHandler) Submit(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.SubmitAnswerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid answer payload"))
		return
	}

	result, err := h.reviews.Submit(c.Request.Context(), c.Param("id"), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	h.metrics.RecordTransition("submit")
	response.JSON(c, http.StatusCreated, result, nil)
}

// Approve godoc
// @Summary Approve answer
// @Description Finalise the latest answer and close the question
// @Tags Answers
// @Accept json
// @Produce json
// @Param id path string true "Question ID"
// @Param payload body dto.ApproveAnswerRequest true "Final content"
// @Success 200 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Router /questions/{id}/approve [post]
func (h *AnswerHandler) Approve(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.ApproveAnswerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid approval payload"))
		return
	}

	history, err := h.reviews.Approve(c.Request.Context(), c.Param("id"), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	h.metrics.RecordTransition("approve")
	response.JSON(c, http.StatusOK, history, nil)
}

// Reject godoc
// @Summary Reject answer
// @Description Record a rejection; the queue advances to the next expert
// @Tags Answers
// @Accept json
// @Produce json
// @Param id path string true "Question ID"
// @Param payload body dto.RejectAnswerRequest true "Rejection reason"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /questions/{id}/reject [post]
func (h *AnswerHandler) Reject(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.RejectAnswerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid rejection payload"))
		return
	}

	history, err := h.reviews.Reject(c.Request.Context(), c.Param("id"), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	h.metrics.RecordTransition("reject")
	response.JSON(c, http.StatusOK, history, nil)
}

// AddReview godoc
// @Summary Add peer review
// @Description Record a reviewer verdict on an answer iteration
// @Tags Answers
// @Accept json
// @Produce json
// @Param id path string true "Answer ID"
// @Param payload body dto.CreateReviewRequest true "Review payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /answers/{id}/reviews [post]
func (h *AnswerHandler) AddReview(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.CreateReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid review payload"))
		return
	}

	review, err := h.reviews.AddReview(c.Request.Context(), c.Param("id"), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusCreated, review, nil)
}

// ListReviews godoc
// @Summary List reviews
// @Description Review timeline of an answer, excluding re-route records
// @Tags Answers
// @Produce json
// @Param id path string true "Answer ID"
// @Success 200 {object} response.Envelope
// @Router /answers/{id}/reviews [get]
func (h *AnswerHandler) ListReviews(c *gin.Context) {
	reviews, err := h.reviews.ListReviews(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, reviews, nil)
}
