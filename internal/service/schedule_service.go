package service

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/brightpath-english/academy-api/internal/models"
	appErrors "github.com/brightpath-english/academy-api/pkg/errors"
)

type scheduleSlotStore interface {
	ListByStudent(ctx context.Context, studentID string, onlyActive bool) ([]models.RecurringSlot, error)
	ReplaceForStudent(ctx context.Context, studentID string, slots []models.RecurringSlot) error
}

type scheduleStudentSource interface {
	FindByID(ctx context.Context, id string) (*models.StudentDetail, error)
	FindByUserID(ctx context.Context, userID string) (*models.StudentDetail, error)
}

// SlotInput is one weekly slot in a replacement request.
type SlotInput struct {
	Weekday   int    `json:"weekday" validate:"gte=0,lte=6"`
	StartTime string `json:"start_time" validate:"required"`
	EndTime   string `json:"end_time" validate:"required"`
}

// ReplaceSlotsRequest swaps a student's active weekly schedule.
type ReplaceSlotsRequest struct {
	Slots []SlotInput `json:"slots" validate:"required,min=1,dive"`
}

// ScheduleService manages recurring weekly slots. Replacement deactivates the
// current set and inserts the new one; deactivated slots are kept as history
// and already-generated classes are left alone.
type ScheduleService struct {
	slots     scheduleSlotStore
	students  scheduleStudentSource
	validator *validator.Validate
	logger    *zap.Logger
}

// NewScheduleService constructs the schedule service.
func NewScheduleService(slots scheduleSlotStore, students scheduleStudentSource, validate *validator.Validate, logger *zap.Logger) *ScheduleService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ScheduleService{slots: slots, students: students, validator: validate, logger: logger}
}

// List returns a student's slots, optionally the active set only. Reads are
// ownership-scoped: staff see any student, a teacher only their assigned
// students, a student only themselves. Out-of-scope ids answer not-found.
func (s *ScheduleService) List(ctx context.Context, caller models.Caller, studentID string, onlyActive bool) ([]models.RecurringSlot, error) {
	student, err := s.loadStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}
	if err := s.checkScope(ctx, caller, student); err != nil {
		return nil, err
	}
	slots, err := s.slots.ListByStudent(ctx, studentID, onlyActive)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list slots")
	}
	return slots, nil
}

// Replace swaps the active weekly schedule in one transaction.
func (s *ScheduleService) Replace(ctx context.Context, studentID string, req ReplaceSlotsRequest) ([]models.RecurringSlot, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	if _, err := s.loadStudent(ctx, studentID); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	slots := make([]models.RecurringSlot, 0, len(req.Slots))
	seen := make(map[string]struct{}, len(req.Slots))
	for _, in := range req.Slots {
		duration, err := models.MinutesBetween(in.StartTime, in.EndTime)
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
		}
		key := slotKey(in.Weekday, in.StartTime)
		if _, dup := seen[key]; dup {
			return nil, appErrors.Clone(appErrors.ErrValidation, "duplicate slot in request")
		}
		seen[key] = struct{}{}
		slots = append(slots, models.RecurringSlot{
			ID:              uuid.NewString(),
			StudentID:       studentID,
			Weekday:         in.Weekday,
			StartTime:       in.StartTime,
			EndTime:         in.EndTime,
			DurationMinutes: duration,
			Active:          true,
			CreatedAt:       now,
		})
	}

	if err := s.slots.ReplaceForStudent(ctx, studentID, slots); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to replace slots")
	}
	return slots, nil
}

func (s *ScheduleService) loadStudent(ctx context.Context, studentID string) (*models.StudentDetail, error) {
	student, err := s.students.FindByID(ctx, studentID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	return student, nil
}

func (s *ScheduleService) checkScope(ctx context.Context, caller models.Caller, student *models.StudentDetail) error {
	switch caller.Role {
	case models.RoleAdmin, models.RoleSeller:
		return nil
	case models.RoleTeacher:
		if student.TeacherID != nil && *student.TeacherID == caller.UserID {
			return nil
		}
	case models.RoleStudent:
		own, err := s.students.FindByUserID(ctx, caller.UserID)
		if err == nil && own.ID == student.ID {
			return nil
		}
	}
	return appErrors.Clone(appErrors.ErrNotFound, "student not found")
}

func slotKey(weekday int, start string) string {
	return fmt.Sprintf("%d|%s", weekday, start)
}
