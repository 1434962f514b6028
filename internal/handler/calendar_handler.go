package handler

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/brightpath-english/academy-api/internal/models"
	"github.com/brightpath-english/academy-api/internal/service"
	"github.com/brightpath-english/academy-api/pkg/response"
)

// CalendarHandler serves a student's upcoming schedule as downloadable files.
type CalendarHandler struct {
	calendar *service.CalendarService
}

// NewCalendarHandler constructs CalendarHandler.
func NewCalendarHandler(calendar *service.CalendarService) *CalendarHandler {
	return &CalendarHandler{calendar: calendar}
}

// ExportICS godoc
// @Summary Download a student's schedule as an iCalendar file
// @Tags Calendar
// @Produce text/calendar
// @Param id path string true "Student ID"
// @Success 200 {file} binary
// @Router /students/{id}/schedule.ics [get]
func (h *CalendarHandler) ExportICS(c *gin.Context) {
	h.serve(c, h.calendar.ExportICS)
}

// ExportCSV godoc
// @Summary Download a student's schedule as CSV
// @Tags Calendar
// @Produce text/csv
// @Param id path string true "Student ID"
// @Success 200 {file} binary
// @Router /students/{id}/schedule.csv [get]
func (h *CalendarHandler) ExportCSV(c *gin.Context) {
	h.serve(c, h.calendar.ExportCSV)
}

// ExportPDF godoc
// @Summary Download a student's schedule as PDF
// @Tags Calendar
// @Produce application/pdf
// @Param id path string true "Student ID"
// @Success 200 {file} binary
// @Router /students/{id}/schedule.pdf [get]
func (h *CalendarHandler) ExportPDF(c *gin.Context) {
	h.serve(c, h.calendar.ExportPDF)
}

type exportFunc func(ctx context.Context, caller models.Caller, studentID string, now time.Time) (*service.ScheduleExport, error)

func (h *CalendarHandler) serve(c *gin.Context, export exportFunc) {
	result, err := export(c.Request.Context(), callerFromContext(c), c.Param("id"), time.Now().UTC())
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", result.FileName))
	c.Data(http.StatusOK, result.ContentType, result.Content)
}
