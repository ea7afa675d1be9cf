package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vicharanashala/ajrasakha-sub001/internal/middleware"
	"github.com/vicharanashala/ajrasakha-sub001/internal/service"
	"github.com/vicharanashala/ajrasakha-sub001/pkg/response"
)

// DashboardHandler exposes the moderator dashboard.
type DashboardHandler struct {
	service *service.DashboardService
}

// NewDashboardHandler creates a new dashboard handler.
func NewDashboardHandler(svc *service.DashboardService) *DashboardHandler {
	return &DashboardHandler{service: svc}
}

// Summary godoc
// @Summary Dashboard summary
// @Description Workflow counters, expert workload and review throughput
// @Tags Dashboard
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /dashboard [get]
func (h *DashboardHandler) Summary(c *gin.Context) {
	summary, cacheHit, err := h.service.Summary(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, cacheHit)
	response.JSON(c, http.StatusOK, summary, nil, middleware.ExtractMeta(c))
}
