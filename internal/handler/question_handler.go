package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/vicharanashala/ajrasakha-sub001/internal/dto"
	"github.com/vicharanashala/ajrasakha-sub001/internal/models"
	"github.com/vicharanashala/ajrasakha-sub001/internal/service"
	appErrors "github.com/vicharanashala/ajrasakha-sub001/pkg/errors"
	"github.com/vicharanashala/ajrasakha-sub001/pkg/response"
)

// QuestionHandler exposes question intake, listing and lifecycle endpoints.
type QuestionHandler struct {
	questions *service.QuestionService
	reviews   *service.ReviewService
	exports   *service.ExportService
	metrics   *service.MetricsService
}

// NewQuestionHandler creates a new question handler.
func NewQuestionHandler(questions *service.QuestionService, reviews *service.ReviewService, exports *service.ExportService, metrics *service.MetricsService) *QuestionHandler {
	return &QuestionHandler{questions: questions, reviews: reviews, exports: exports, metrics: metrics}
}

// Create godoc
// @Summary Create question
// @Description Ingest a new question into the review workflow
// @Tags Questions
// @Accept json
// @Produce json
// @Param payload body dto.CreateQuestionRequest true "Question payload"
// @Param autoAllocate query bool false "Fill the queue from the expert pool"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /questions [post]
func (h *QuestionHandler) Create(c *gin.Context) {
	var req dto.CreateQuestionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid question payload"))
		return
	}
	autoAllocate, _ := strconv.ParseBool(c.DefaultQuery("autoAllocate", "false"))

	question, err := h.questions.Create(c.Request.Context(), req, autoAllocate)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusCreated, question, nil)
}

// List godoc
// @Summary List questions
// @Description List questions with status and metadata filters
// @Tags Questions
// @Produce json
// @Param status query string false "Comma-separated status filter"
// @Param state query string false "State filter"
// @Param crop query string false "Crop filter"
// @Param domain query string false "Domain filter"
// @Param priority query string false "Priority filter"
// @Param search query string false "Full-text search"
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /questions [get]
func (h *QuestionHandler) List(c *gin.Context) {
	var query dto.QuestionQuery
	if raw := c.Query("status"); raw != "" {
		for _, status := range strings.Split(raw, ",") {
			query.Status = append(query.Status, models.QuestionStatus(strings.TrimSpace(status)))
		}
	}
	query.State = c.Query("state")
	query.Crop = c.Query("crop")
	query.Domain = c.Query("domain")
	query.Priority = c.Query("priority")
	query.Search = c.Query("search")
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		query.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("page_size", "50")); err == nil {
		query.PageSize = size
	}

	questions, pagination, err := h.questions.List(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, questions, pagination)
}

// Get godoc
// @Summary Get question detail
// @Description Question with annotated queue and submission timeline
// @Tags Questions
// @Produce json
// @Param id path string true "Question ID"
// @Param answers query bool false "Include answer iterations"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /questions/{id} [get]
func (h *QuestionHandler) Get(c *gin.Context) {
	includeAnswers, _ := strconv.ParseBool(c.DefaultQuery("answers", "false"))
	detail, err := h.questions.Get(c.Request.Context(), c.Param("id"), includeAnswers)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, detail, nil)
}

// Close godoc
// @Summary Close question
// @Description Mark a question terminal without approving an answer
// @Tags Questions
// @Accept json
// @Produce json
// @Param id path string true "Question ID"
// @Param payload body map[string]string false "Optional reason"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /questions/{id}/close [post]
func (h *QuestionHandler) Close(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var payload struct {
		Reason string `json:"reason"`
	}
	_ = c.ShouldBindJSON(&payload)

	history, err := h.reviews.Close(c.Request.Context(), c.Param("id"), claims.UserID, payload.Reason)
	if err != nil {
		response.Error(c, err)
		return
	}
	h.metrics.RecordTransition("close")
	response.JSON(c, http.StatusOK, history, nil)
}

// ExportHistory godoc
// @Summary Export submission timeline
// @Description Render the question's timeline as CSV or PDF with a signed download URL
// @Tags Questions
// @Produce json
// @Param id path string true "Question ID"
// @Param format query string false "csv or pdf"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /questions/{id}/history/export [get]
func (h *QuestionHandler) ExportHistory(c *gin.Context) {
	if h.exports == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "exports are disabled"))
		return
	}
	result, err := h.exports.ExportHistory(c.Request.Context(), c.Param("id"), c.DefaultQuery("format", "csv"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}
