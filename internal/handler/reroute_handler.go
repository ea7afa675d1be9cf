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

// RerouteHandler exposes re-route endpoints.
type RerouteHandler struct {
	service *service.RerouteService
	metrics *service.MetricsService
}

// NewRerouteHandler creates a new re-route handler.
func NewRerouteHandler(svc *service.RerouteService, metrics *service.MetricsService) *RerouteHandler {
	return &RerouteHandler{service: svc, metrics: metrics}
}

// Create godoc
// @Summary Re-route answer
// @Description Redirect the latest answer to another expert for replacement
// @Tags Reroutes
// @Accept json
// @Produce json
// @Param id path string true "Question ID"
// @Param payload body dto.CreateRerouteRequest true "Re-route payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /questions/{id}/reroutes [post]
func (h *RerouteHandler) Create(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.CreateRerouteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid re-route payload"))
		return
	}

	reroute, err := h.service.Create(c.Request.Context(), c.Param("id"), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	h.metrics.RecordTransition("reroute")
	response.JSON(c, http.StatusCreated, reroute, nil)
}

// Reject godoc
// @Summary Decline re-route
// @Description Decline a pending re-route; the question reverts to in-review
// @Tags Reroutes
// @Accept json
// @Produce json
// @Param id path string true "Re-route ID"
// @Param payload body dto.RejectRerouteRequest true "Decline reason"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /reroutes/{id}/reject [post]
func (h *RerouteHandler) Reject(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.RejectRerouteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid decline payload"))
		return
	}

	reroute, err := h.service.Reject(c.Request.Context(), c.Param("id"), claims.UserID, claims.Role, req.Reason)
	if err != nil {
		response.Error(c, err)
		return
	}
	h.metrics.RecordTransition("reroute_rejected")
	response.JSON(c, http.StatusOK, reroute, nil)
}

// Get godoc
// @Summary Get re-route
// @Tags Reroutes
// @Produce json
// @Param id path string true "Re-route ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /reroutes/{id} [get]
func (h *RerouteHandler) Get(c *gin.Context) {
	reroute, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, reroute, nil)
}

// List godoc
// @Summary List re-routes
// @Tags Reroutes
// @Produce json
// @Param question_id query string false "Question filter"
// @Param rerouted_to query string false "Target expert filter"
// @Param status query string false "Comma-separated status filter"
// @Param limit query int false "Limit"
// @Param offset query int false "Offset"
// @Success 200 {object} response.Envelope
// @Router /reroutes [get]
func (h *RerouteHandler) List(c *gin.Context) {
	var query dto.RerouteQuery
	query.QuestionID = c.Query("question_id")
	query.ReroutedTo = c.Query("rerouted_to")
	if raw := c.Query("status"); raw != "" {
		for _, status := range strings.Split(raw, ",") {
			query.Status = append(query.Status, models.RerouteStatus(strings.TrimSpace(status)))
		}
	}
	if limit, err := strconv.Atoi(c.DefaultQuery("limit", "50")); err == nil {
		query.Limit = limit
	}
	if offset, err := strconv.Atoi(c.DefaultQuery("offset", "0")); err == nil {
		query.Offset = offset
	}

	reroutes, err := h.service.List(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, reroutes, nil)
}
