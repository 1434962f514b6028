package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/brightpath-english/academy-api/internal/service"
	appErrors "github.com/brightpath-english/academy-api/pkg/errors"
	"github.com/brightpath-english/academy-api/pkg/response"
)

// CronHandler exposes the scheduled-task endpoints. They are idempotent so
// an external scheduler can retry them safely.
type CronHandler struct {
	generator *service.GeneratorService
	reminders *service.ReminderService
	alerts    *service.AlertService
	metrics   *service.MetricsService
}

// NewCronHandler constructs CronHandler.
func NewCronHandler(generator *service.GeneratorService, reminders *service.ReminderService, alerts *service.AlertService, metrics *service.MetricsService) *CronHandler {
	return &CronHandler{generator: generator, reminders: reminders, alerts: alerts, metrics: metrics}
}

// GenerateClasses godoc
// @Summary Materialize upcoming classes from recurring schedules
// @Tags Cron
// @Produce json
// @Param horizonDays query int false "Generation horizon in days"
// @Success 200 {object} response.Envelope
// @Router /cron/generate-classes [post]
func (h *CronHandler) GenerateClasses(c *gin.Context) {
	horizon := 0
	if raw := c.Query("horizonDays"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "horizonDays must be an integer"))
			return
		}
		horizon = parsed
	}

	created, err := h.generator.Generate(c.Request.Context(), time.Now().UTC(), horizon)
	if err != nil {
		response.Error(c, err)
		return
	}
	h.metrics.AddClassesGenerated(created)
	response.JSON(c, http.StatusOK, gin.H{"created": created}, nil)
}

// SendReminders godoc
// @Summary Dispatch reminders for classes starting soon
// @Tags Cron
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /cron/send-reminders [post]
func (h *CronHandler) SendReminders(c *gin.Context) {
	sent, err := h.reminders.Dispatch(c.Request.Context(), time.Now().UTC())
	if err != nil {
		response.Error(c, err)
		return
	}
	h.metrics.AddRemindersSent(sent)
	response.JSON(c, http.StatusOK, gin.H{"sent": sent}, nil)
}

// SweepAlerts godoc
// @Summary Raise alerts for unassigned students and missed classes
// @Tags Cron
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /cron/sweep-alerts [post]
func (h *CronHandler) SweepAlerts(c *gin.Context) {
	result, err := h.alerts.Sweep(c.Request.Context(), time.Now().UTC())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}
