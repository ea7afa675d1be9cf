package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vicharanashala/ajrasakha-sub001/internal/dto"
	"github.com/vicharanashala/ajrasakha-sub001/internal/service"
	appErrors "github.com/vicharanashala/ajrasakha-sub001/pkg/errors"
	"github.com/vicharanashala/ajrasakha-sub001/pkg/response"
)

// AllocationHandler exposes allocation queue endpoints.
type AllocationHandler struct {
	service *service.AllocationService
}

// NewAllocationHandler creates a new allocation handler.
func NewAllocationHandler(svc *service.AllocationService) *AllocationHandler {
	return &AllocationHandler{service: svc}
}

// Allocate godoc
// @Summary Allocate experts
// @Description Append experts to the question's allocation queue in order
// @Tags Allocations
// @Accept json
// @Produce json
// @Param id path string true "Question ID"
// @Param payload body dto.AllocateExpertsRequest true "Expert IDs"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /questions/{id}/allocations [post]
func (h *AllocationHandler) Allocate(c *gin.Context) {
	var req dto.AllocateExpertsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid allocation payload"))
		return
	}

	queue, err := h.service.Allocate(c.Request.Context(), c.Param("id"), req.ExpertIDs)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, queue, nil)
}

// Remove godoc
// @Summary Remove queue slot
// @Description Remove a not-yet-submitted slot from the queue
// @Tags Allocations
// @Accept json
// @Produce json
// @Param id path string true "Question ID"
// @Param payload body dto.RemoveAllocationRequest true "Slot index"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /questions/{id}/allocations/remove [post]
func (h *AllocationHandler) Remove(c *gin.Context) {
	var req dto.RemoveAllocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid removal payload"))
		return
	}

	queue, err := h.service.Remove(c.Request.Context(), c.Param("id"), req.Index)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, queue, nil)
}

// ToggleAutoAllocate godoc
// @Summary Toggle auto-allocation
// @Description Flip the auto-allocate flag; never changes question status
// @Tags Allocations
// @Produce json
// @Param id path string true "Question ID"
// @Success 200 {object} response.Envelope
// @Router /questions/{id}/auto-allocate [post]
func (h *AllocationHandler) ToggleAutoAllocate(c *gin.Context) {
	result, err := h.service.ToggleAutoAllocate(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Queue godoc
// @Summary Get allocation queue
// @Description Queue slots annotated with waiting, pending or submitted state
// @Tags Allocations
// @Produce json
// @Param id path string true "Question ID"
// @Success 200 {object} response.Envelope
// @Router /questions/{id}/queue [get]
func (h *AllocationHandler) Queue(c *gin.Context) {
	queue, err := h.service.Queue(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, queue, nil)
}
