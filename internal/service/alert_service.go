package service

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/brightpath-english/academy-api/internal/models"
	appErrors "github.com/brightpath-english/academy-api/pkg/errors"
)

type alertStore interface {
	Create(ctx context.Context, alert *models.Alert) error
	ExistsUnread(ctx context.Context, studentID string, alertType models.AlertType) (bool, error)
	List(ctx context.Context, filter models.AlertFilter) ([]models.Alert, int, error)
	MarkRead(ctx context.Context, id, recipientID string) (bool, error)
}

type alertStudentSource interface {
	FindByID(ctx context.Context, id string) (*models.StudentDetail, error)
	ListUnassigned(ctx context.Context) ([]models.Student, error)
}

type alertClassSource interface {
	ListRecentNoShows(ctx context.Context, since time.Time) ([]models.ClassDetail, error)
}

// SweepResult reports how many alerts each sweep created.
type SweepResult struct {
	UnassignedTeacher int `json:"unassigned_teacher"`
	MissedClass       int `json:"missed_class"`
}

// AlertService lists staff alerts and runs the background sweeps. Sweeps are
// re-run-safe: a student with an unread alert of a type never gets a second
// one of that type.
type AlertService struct {
	alerts   alertStore
	students alertStudentSource
	classes  alertClassSource
	metrics  alertMetrics
	logger   *zap.Logger
}

type alertMetrics interface {
	IncAlert(alertType string)
}

// UseMetrics attaches the metrics recorder. Optional.
func (s *AlertService) UseMetrics(m alertMetrics) {
	s.metrics = m
}

// NewAlertService constructs the alert service.
func NewAlertService(alerts alertStore, students alertStudentSource, classes alertClassSource, logger *zap.Logger) *AlertService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AlertService{alerts: alerts, students: students, classes: classes, logger: logger}
}

// List returns the caller's alerts. Admins may pass an empty recipient to
// see everything.
func (s *AlertService) List(ctx context.Context, caller models.Caller, filter models.AlertFilter) ([]models.Alert, *models.Pagination, error) {
	if !caller.IsAdmin() {
		filter.RecipientID = caller.UserID
	}
	alerts, total, err := s.alerts.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list alerts")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return alerts, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// MarkRead acknowledges one of the caller's alerts.
func (s *AlertService) MarkRead(ctx context.Context, caller models.Caller, alertID string) error {
	updated, err := s.alerts.MarkRead(ctx, alertID, caller.UserID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to mark alert read")
	}
	if !updated {
		return appErrors.Clone(appErrors.ErrNotFound, "alert not found")
	}
	return nil
}

// Sweep runs the unassigned-teacher and missed-class scans. Upstream errors
// on individual rows are logged and the sweep continues.
func (s *AlertService) Sweep(ctx context.Context, now time.Time) (*SweepResult, error) {
	result := &SweepResult{}

	unassigned, err := s.students.ListUnassigned(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list unassigned students")
	}
	for _, student := range unassigned {
		created := s.raise(ctx, student.ID, student.SellerID, models.AlertUnassignedTeacher,
			fmt.Sprintf("%s has no assigned teacher", student.FullName))
		if created {
			result.UnassignedTeacher++
		}
	}

	noShows, err := s.classes.ListRecentNoShows(ctx, now.Add(-7*24*time.Hour))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list missed classes")
	}
	for _, class := range noShows {
		student, err := s.students.FindByID(ctx, class.StudentID)
		if err != nil {
			if err != sql.ErrNoRows {
				s.logger.Warn("missed-class sweep: student lookup failed",
					zap.String("student_id", class.StudentID), zap.Error(err))
			}
			continue
		}
		created := s.raise(ctx, student.ID, student.SellerID, models.AlertMissedClass,
			fmt.Sprintf("%s missed the class on %s %s", student.FullName, class.Date.Format("2006-01-02"), class.StartTime))
		if created {
			result.MissedClass++
		}
	}

	s.logger.Sugar().Infow("alert sweep complete",
		"unassigned_teacher", result.UnassignedTeacher, "missed_class", result.MissedClass)
	return result, nil
}

func (s *AlertService) raise(ctx context.Context, studentID, recipientID string, alertType models.AlertType, message string) bool {
	exists, err := s.alerts.ExistsUnread(ctx, studentID, alertType)
	if err != nil {
		s.logger.Warn("alert de-dup lookup failed", zap.String("student_id", studentID), zap.Error(err))
		return false
	}
	if exists {
		return false
	}
	alert := &models.Alert{
		ID:          uuid.NewString(),
		StudentID:   studentID,
		RecipientID: recipientID,
		Type:        alertType,
		Message:     message,
	}
	if err := s.alerts.Create(ctx, alert); err != nil {
		s.logger.Warn("failed to create alert", zap.String("student_id", studentID), zap.Error(err))
		return false
	}
	if s.metrics != nil {
		s.metrics.IncAlert(string(alertType))
	}
	return true
}
