package service

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/brightpath-english/academy-api/internal/models"
	appErrors "github.com/brightpath-english/academy-api/pkg/errors"
	"github.com/brightpath-english/academy-api/pkg/export"
)

type calendarClassSource interface {
	ListUpcomingByStudent(ctx context.Context, studentID string, from time.Time) ([]models.ClassDetail, error)
}

type calendarStudentSource interface {
	FindByID(ctx context.Context, id string) (*models.StudentDetail, error)
	FindByUserID(ctx context.Context, userID string) (*models.StudentDetail, error)
}

// ScheduleExport is a rendered schedule file ready to send to the client.
type ScheduleExport struct {
	FileName    string
	ContentType string
	Content     []byte
}

// CalendarService renders a student's upcoming scheduled classes as
// iCalendar, CSV or PDF downloads.
type CalendarService struct {
	classes  calendarClassSource
	students calendarStudentSource
	ics      *export.ICSExporter
	csv      *export.CSVExporter
	pdf      *export.PDFExporter
	logger   *zap.Logger
}

// NewCalendarService constructs the calendar service.
func NewCalendarService(classes calendarClassSource, students calendarStudentSource, logger *zap.Logger) *CalendarService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CalendarService{
		classes:  classes,
		students: students,
		ics:      export.NewICSExporter(),
		csv:      export.NewCSVExporter(),
		pdf:      export.NewPDFExporter(),
		logger:   logger,
	}
}

// ExportICS renders the upcoming schedule as an iCalendar document.
func (s *CalendarService) ExportICS(ctx context.Context, caller models.Caller, studentID string, now time.Time) (*ScheduleExport, error) {
	student, classes, err := s.load(ctx, caller, studentID, now)
	if err != nil {
		return nil, err
	}

	events := make([]export.CalendarEvent, 0, len(classes))
	for _, class := range classes {
		summary := "English class"
		if class.TeacherName != nil && *class.TeacherName != "" {
			summary = "English class with " + *class.TeacherName
		}
		description := ""
		if class.RoomLink != nil {
			description = "Join: " + *class.RoomLink
		}
		events = append(events, export.CalendarEvent{
			UID:         class.ID,
			Start:       class.StartsAt(),
			End:         class.EndsAt(),
			Summary:     summary,
			Description: description,
		})
	}

	content, err := s.ics.Render(now, events)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render calendar")
	}
	return &ScheduleExport{
		FileName:    scheduleFileName(student, "ics"),
		ContentType: "text/calendar",
		Content:     content,
	}, nil
}

// ExportCSV renders the upcoming schedule as a CSV table.
func (s *CalendarService) ExportCSV(ctx context.Context, caller models.Caller, studentID string, now time.Time) (*ScheduleExport, error) {
	student, classes, err := s.load(ctx, caller, studentID, now)
	if err != nil {
		return nil, err
	}

	content, err := s.csv.Render(scheduleDataset(classes))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
	}
	return &ScheduleExport{
		FileName:    scheduleFileName(student, "csv"),
		ContentType: "text/csv",
		Content:     content,
	}, nil
}

// ExportPDF renders the upcoming schedule as a PDF table.
func (s *CalendarService) ExportPDF(ctx context.Context, caller models.Caller, studentID string, now time.Time) (*ScheduleExport, error) {
	student, classes, err := s.load(ctx, caller, studentID, now)
	if err != nil {
		return nil, err
	}

	content, err := s.pdf.Render(scheduleDataset(classes), "Schedule - "+student.FullName)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf")
	}
	return &ScheduleExport{
		FileName:    scheduleFileName(student, "pdf"),
		ContentType: "application/pdf",
		Content:     content,
	}, nil
}

func (s *CalendarService) load(ctx context.Context, caller models.Caller, studentID string, now time.Time) (*models.StudentDetail, []models.ClassDetail, error) {
	student, err := s.students.FindByID(ctx, studentID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	if caller.Role == models.RoleStudent {
		own, err := s.students.FindByUserID(ctx, caller.UserID)
		if err != nil || own.ID != student.ID {
			return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
	}

	classes, err := s.classes.ListUpcomingByStudent(ctx, studentID, now)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schedule")
	}
	return student, classes, nil
}

func scheduleDataset(classes []models.ClassDetail) export.Dataset {
	rows := make([]map[string]string, 0, len(classes))
	for _, class := range classes {
		teacher := ""
		if class.TeacherName != nil {
			teacher = *class.TeacherName
		}
		room := ""
		if class.RoomLink != nil {
			room = *class.RoomLink
		}
		rows = append(rows, map[string]string{
			"Date":     class.Date.Format("2006-01-02"),
			"Start":    class.StartTime,
			"End":      class.EndTime,
			"Duration": fmt.Sprintf("%d min", class.DurationMinutes),
			"Teacher":  teacher,
			"Room":     room,
		})
	}
	return export.Dataset{
		Headers: []string{"Date", "Start", "End", "Duration", "Teacher", "Room"},
		Rows:    rows,
	}
}

func scheduleFileName(student *models.StudentDetail, ext string) string {
	return fmt.Sprintf("schedule-%s.%s", student.ID, ext)
}
