package service

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/brightpath-english/academy-api/internal/models"
	appErrors "github.com/brightpath-english/academy-api/pkg/errors"
)

type ledgerStudentStore interface {
	FindByID(ctx context.Context, id string) (*models.StudentDetail, error)
	AddHours(ctx context.Context, id string, amount float64) error
	DeductHours(ctx context.Context, id string, durationMinutes int) (float64, error)
}

type ledgerAlertStore interface {
	Create(ctx context.Context, alert *models.Alert) error
	ExistsUnread(ctx context.Context, studentID string, alertType models.AlertType) (bool, error)
}

type ledgerMetrics interface {
	AddHoursDeducted(hours float64)
	IncAlert(alertType string)
}

// LedgerService owns student hour bookkeeping: top-ups from staff and
// deductions when a class consumes hours. Deductions clamp at zero and a
// balance crossing into the low band raises an alert for the student's
// salesperson, de-duplicated while an unread one is pending.
type LedgerService struct {
	students  ledgerStudentStore
	alerts    ledgerAlertStore
	threshold float64
	metrics   ledgerMetrics
	logger    *zap.Logger
}

// UseMetrics attaches the metrics recorder. Optional.
func (s *LedgerService) UseMetrics(m ledgerMetrics) {
	s.metrics = m
}

// NewLedgerService constructs the ledger service.
func NewLedgerService(students ledgerStudentStore, alerts ledgerAlertStore, lowHoursThreshold float64, logger *zap.Logger) *LedgerService {
	if lowHoursThreshold <= 0 {
		lowHoursThreshold = 5
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LedgerService{students: students, alerts: alerts, threshold: lowHoursThreshold, logger: logger}
}

// AddHours credits a student's balance. The amount must be positive.
func (s *LedgerService) AddHours(ctx context.Context, studentID string, amount float64) (*models.StudentDetail, error) {
	if amount <= 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "amount must be greater than zero")
	}
	if _, err := s.loadStudent(ctx, studentID); err != nil {
		return nil, err
	}
	if err := s.students.AddHours(ctx, studentID, amount); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to add hours")
	}
	return s.loadStudent(ctx, studentID)
}

// DeductForClass debits a student for a consumed class and returns the new
// balance. The alert path is best-effort: a failure to record the alert is
// logged but never fails the deduction.
func (s *LedgerService) DeductForClass(ctx context.Context, studentID string, durationMinutes int) (float64, error) {
	if durationMinutes <= 0 {
		return 0, appErrors.Clone(appErrors.ErrValidation, "duration must be greater than zero")
	}
	student, err := s.loadStudent(ctx, studentID)
	if err != nil {
		return 0, err
	}

	remaining, err := s.students.DeductHours(ctx, studentID, durationMinutes)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to deduct hours")
	}
	if s.metrics != nil {
		s.metrics.AddHoursDeducted(float64(durationMinutes) / 60)
	}

	if remaining > 0 && remaining <= s.threshold {
		s.raiseLowHoursAlert(ctx, student, remaining)
	}
	return remaining, nil
}

func (s *LedgerService) raiseLowHoursAlert(ctx context.Context, student *models.StudentDetail, remaining float64) {
	exists, err := s.alerts.ExistsUnread(ctx, student.ID, models.AlertLowHours)
	if err != nil {
		s.logger.Warn("low-hours alert lookup failed", zap.String("student_id", student.ID), zap.Error(err))
		return
	}
	if exists {
		return
	}
	alert := &models.Alert{
		ID:          uuid.NewString(),
		StudentID:   student.ID,
		RecipientID: student.SellerID,
		Type:        models.AlertLowHours,
		Message:     fmt.Sprintf("%s has %.1f hours remaining", student.FullName, remaining),
	}
	if err := s.alerts.Create(ctx, alert); err != nil {
		s.logger.Warn("failed to create low-hours alert", zap.String("student_id", student.ID), zap.Error(err))
		return
	}
	if s.metrics != nil {
		s.metrics.IncAlert(string(models.AlertLowHours))
	}
}

func (s *LedgerService) loadStudent(ctx context.Context, id string) (*models.StudentDetail, error) {
	student, err := s.students.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	return student, nil
}
