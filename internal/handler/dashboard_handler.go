package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/brightpath-english/academy-api/internal/service"
	"github.com/brightpath-english/academy-api/pkg/response"
)

// DashboardHandler serves the role-specific dashboard summary.
type DashboardHandler struct {
	dashboard *service.DashboardService
}

// NewDashboardHandler constructs DashboardHandler.
func NewDashboardHandler(dashboard *service.DashboardService) *DashboardHandler {
	return &DashboardHandler{dashboard: dashboard}
}

// Get godoc
// @Summary Dashboard summary for the caller's role
// @Tags Dashboard
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /dashboard [get]
func (h *DashboardHandler) Get(c *gin.Context) {
	summary, err := h.dashboard.ForCaller(c.Request.Context(), callerFromContext(c), time.Now().UTC())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil)
}
