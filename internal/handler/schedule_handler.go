package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/brightpath-english/academy-api/internal/service"
	appErrors "github.com/brightpath-english/academy-api/pkg/errors"
	"github.com/brightpath-english/academy-api/pkg/response"
)

// ScheduleHandler exposes a student's weekly recurring slots.
type ScheduleHandler struct {
	schedule *service.ScheduleService
}

// NewScheduleHandler constructs ScheduleHandler.
func NewScheduleHandler(schedule *service.ScheduleService) *ScheduleHandler {
	return &ScheduleHandler{schedule: schedule}
}

// List godoc
// @Summary List a student's weekly slots
// @Tags Schedule
// @Produce json
// @Param id path string true "Student ID"
// @Param all query bool false "Include deactivated history"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/slots [get]
func (h *ScheduleHandler) List(c *gin.Context) {
	onlyActive := c.Query("all") != "true"
	slots, err := h.schedule.List(c.Request.Context(), callerFromContext(c), c.Param("id"), onlyActive)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, slots, nil)
}

// Replace godoc
// @Summary Replace a student's weekly slots
// @Tags Schedule
// @Accept json
// @Produce json
// @Param id path string true "Student ID"
// @Param payload body service.ReplaceSlotsRequest true "New weekly schedule"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/slots [put]
func (h *ScheduleHandler) Replace(c *gin.Context) {
	var req service.ReplaceSlotsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	slots, err := h.schedule.Replace(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, slots, nil)
}
