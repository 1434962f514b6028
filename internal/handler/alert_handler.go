package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/brightpath-english/academy-api/internal/models"
	"github.com/brightpath-english/academy-api/internal/service"
	"github.com/brightpath-english/academy-api/pkg/response"
)

// AlertHandler exposes the staff alert inbox.
type AlertHandler struct {
	alerts *service.AlertService
}

// NewAlertHandler constructs AlertHandler.
func NewAlertHandler(alerts *service.AlertService) *AlertHandler {
	return &AlertHandler{alerts: alerts}
}

// List godoc
// @Summary List alerts for the caller
// @Tags Alerts
// @Produce json
// @Param unread query bool false "Only unread alerts"
// @Param type query string false "Filter by alert type"
// @Param studentId query string false "Filter by student"
// @Success 200 {object} response.Envelope
// @Router /alerts [get]
func (h *AlertHandler) List(c *gin.Context) {
	var filter models.AlertFilter
	filter.StudentID = c.Query("studentId")
	filter.Type = models.AlertType(c.Query("type"))
	if raw := c.Query("unread"); raw != "" {
		if unread, err := strconv.ParseBool(raw); err == nil {
			filter.Unread = &unread
		}
	}
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}

	alerts, pagination, err := h.alerts.List(c.Request.Context(), callerFromContext(c), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, alerts, pagination)
}

// MarkRead godoc
// @Summary Mark an alert as read
// @Tags Alerts
// @Param id path string true "Alert ID"
// @Success 204 {object} response.Envelope
// @Router /alerts/{id}/read [post]
func (h *AlertHandler) MarkRead(c *gin.Context) {
	if err := h.alerts.MarkRead(c.Request.Context(), callerFromContext(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
