package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/brightpath-english/academy-api/internal/models"
	appErrors "github.com/brightpath-english/academy-api/pkg/errors"
)

type generatorStudentSource interface {
	ListEligibleForGeneration(ctx context.Context) ([]models.Student, error)
}

type generatorSlotSource interface {
	ListActiveByStudents(ctx context.Context, studentIDs []string) ([]models.RecurringSlot, error)
}

type generatorClassStore interface {
	ListBetween(ctx context.Context, from, to time.Time) ([]models.ClassInstance, error)
	BulkCreate(ctx context.Context, classes []models.ClassInstance) error
}

type generatorTeacherSource interface {
	FindByID(ctx context.Context, id string) (*models.Teacher, error)
}

// GeneratorConfig bounds the forward horizon.
type GeneratorConfig struct {
	DefaultHorizonDays int
	MinHorizonDays     int
	MaxHorizonDays     int
}

// GeneratorService expands active recurring slots into dated class
// instances. Re-running with the same horizon never creates duplicates.
type GeneratorService struct {
	students generatorStudentSource
	slots    generatorSlotSource
	classes  generatorClassStore
	teachers generatorTeacherSource
	config   GeneratorConfig
	logger   *zap.Logger
}

// NewGeneratorService wires the class generator.
func NewGeneratorService(students generatorStudentSource, slots generatorSlotSource, classes generatorClassStore, teachers generatorTeacherSource, cfg GeneratorConfig, logger *zap.Logger) *GeneratorService {
	if cfg.DefaultHorizonDays <= 0 {
		cfg.DefaultHorizonDays = 14
	}
	if cfg.MinHorizonDays <= 0 {
		cfg.MinHorizonDays = 7
	}
	if cfg.MaxHorizonDays <= 0 {
		cfg.MaxHorizonDays = 30
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GeneratorService{students: students, slots: slots, classes: classes, teachers: teachers, config: cfg, logger: logger}
}

// Generate creates one scheduled class per eligible student, active slot and
// matching calendar date within [from, from+horizonDays). It returns the
// number of classes created. Pass horizonDays <= 0 to use the default.
func (s *GeneratorService) Generate(ctx context.Context, from time.Time, horizonDays int) (int, error) {
	if horizonDays <= 0 {
		horizonDays = s.config.DefaultHorizonDays
	}
	if horizonDays < s.config.MinHorizonDays || horizonDays > s.config.MaxHorizonDays {
		return 0, appErrors.Clone(appErrors.ErrValidation,
			fmt.Sprintf("horizon must be between %d and %d days", s.config.MinHorizonDays, s.config.MaxHorizonDays))
	}

	start := truncateToDate(from)
	end := start.AddDate(0, 0, horizonDays-1)

	students, err := s.students.ListEligibleForGeneration(ctx)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load eligible students")
	}
	if len(students) == 0 {
		return 0, nil
	}

	studentIDs := make([]string, len(students))
	for i, st := range students {
		studentIDs[i] = st.ID
	}
	slots, err := s.slots.ListActiveByStudents(ctx, studentIDs)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load recurring slots")
	}
	slotsByStudent := make(map[string][]models.RecurringSlot, len(students))
	for _, slot := range slots {
		slotsByStudent[slot.StudentID] = append(slotsByStudent[slot.StudentID], slot)
	}

	existing, err := s.classes.ListBetween(ctx, start, end)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load existing classes")
	}
	taken := make(map[string]struct{}, len(existing))
	for _, class := range existing {
		taken[classKey(class.StudentID, class.Date, class.StartTime)] = struct{}{}
	}

	roomLinks := make(map[string]*string)

	var created []models.ClassInstance
	for _, student := range students {
		studentSlots := slotsByStudent[student.ID]
		if len(studentSlots) == 0 || student.TeacherID == nil {
			continue
		}

		roomLink, ok := roomLinks[*student.TeacherID]
		if !ok {
			teacher, err := s.teachers.FindByID(ctx, *student.TeacherID)
			if err != nil {
				s.logger.Warn("skipping student with unresolvable teacher",
					zap.String("student_id", student.ID), zap.Error(err))
				continue
			}
			roomLink = teacher.RoomLink
			roomLinks[*student.TeacherID] = roomLink
		}

		for offset := 0; offset < horizonDays; offset++ {
			date := start.AddDate(0, 0, offset)
			weekday := int(date.Weekday())
			for _, slot := range studentSlots {
				if slot.Weekday != weekday {
					continue
				}
				key := classKey(student.ID, date, slot.StartTime)
				if _, dup := taken[key]; dup {
					continue
				}
				taken[key] = struct{}{}
				created = append(created, models.ClassInstance{
					StudentID:       student.ID,
					TeacherID:       *student.TeacherID,
					Date:            date,
					StartTime:       slot.StartTime,
					EndTime:         slot.EndTime,
					DurationMinutes: slot.DurationMinutes,
					Status:          models.ClassScheduled,
					RoomLink:        roomLink,
				})
			}
		}
	}

	if len(created) == 0 {
		return 0, nil
	}
	if err := s.classes.BulkCreate(ctx, created); err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create classes")
	}

	s.logger.Sugar().Infow("class generation complete", "created", len(created), "horizon_days", horizonDays)
	return len(created), nil
}

func classKey(studentID string, date time.Time, startTime string) string {
	return studentID + "|" + date.Format("2006-01-02") + "|" + startTime
}

func truncateToDate(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
