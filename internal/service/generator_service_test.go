package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brightpath-english/academy-api/internal/models"
)

type generatorFixture struct {
	students []models.Student
	slots    []models.RecurringSlot
	existing []models.ClassInstance
	teachers map[string]*models.Teacher

	created []models.ClassInstance
}

func (f *generatorFixture) ListEligibleForGeneration(context.Context) ([]models.Student, error) {
	return f.students, nil
}

func (f *generatorFixture) ListActiveByStudents(context.Context, []string) ([]models.RecurringSlot, error) {
	return f.slots, nil
}

func (f *generatorFixture) ListBetween(context.Context, time.Time, time.Time) ([]models.ClassInstance, error) {
	return f.existing, nil
}

func (f *generatorFixture) BulkCreate(_ context.Context, classes []models.ClassInstance) error {
	f.created = append(f.created, classes...)
	return nil
}

func (f *generatorFixture) FindByID(_ context.Context, id string) (*models.Teacher, error) {
	teacher, ok := f.teachers[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return teacher, nil
}

func strPtr(s string) *string { return &s }

func newGeneratorFixture() *generatorFixture {
	return &generatorFixture{
		students: []models.Student{
			{ID: "student-1", TeacherID: strPtr("teacher-1"), RemainingHours: 10},
		},
		slots: []models.RecurringSlot{
			{ID: "slot-1", StudentID: "student-1", Weekday: 1, StartTime: "10:00", EndTime: "11:00", DurationMinutes: 60, Active: true},
		},
		teachers: map[string]*models.Teacher{
			"teacher-1": {ID: "teacher-1", RoomLink: strPtr("https://meet.example.com/room-1")},
		},
	}
}

func newGeneratorService(f *generatorFixture) *GeneratorService {
	return NewGeneratorService(f, f, f, f, GeneratorConfig{}, nil)
}

func TestGeneratorCreatesTwoMondaysFromWednesday(t *testing.T) {
	f := newGeneratorFixture()
	service := newGeneratorService(f)

	// 2026-09-02 is a Wednesday; a 14-day horizon covers Sep 7 and Sep 14.
	from := time.Date(2026, 9, 2, 8, 30, 0, 0, time.UTC)
	created, err := service.Generate(context.Background(), from, 14)
	require.NoError(t, err)
	assert.Equal(t, 2, created)
	require.Len(t, f.created, 2)

	assert.Equal(t, time.Date(2026, 9, 7, 0, 0, 0, 0, time.UTC), f.created[0].Date)
	assert.Equal(t, time.Date(2026, 9, 14, 0, 0, 0, 0, time.UTC), f.created[1].Date)
	for _, class := range f.created {
		assert.Equal(t, models.ClassScheduled, class.Status)
		assert.Equal(t, "10:00", class.StartTime)
		assert.Equal(t, 60, class.DurationMinutes)
		require.NotNil(t, class.RoomLink)
		assert.Equal(t, "https://meet.example.com/room-1", *class.RoomLink)
	}
}

func TestGeneratorSkipsExistingClasses(t *testing.T) {
	f := newGeneratorFixture()
	f.existing = []models.ClassInstance{
		{StudentID: "student-1", Date: time.Date(2026, 9, 7, 0, 0, 0, 0, time.UTC), StartTime: "10:00"},
	}
	service := newGeneratorService(f)

	created, err := service.Generate(context.Background(), time.Date(2026, 9, 2, 0, 0, 0, 0, time.UTC), 14)
	require.NoError(t, err)
	assert.Equal(t, 1, created)
	require.Len(t, f.created, 1)
	assert.Equal(t, time.Date(2026, 9, 14, 0, 0, 0, 0, time.UTC), f.created[0].Date)
}

func TestGeneratorIsIdempotent(t *testing.T) {
	f := newGeneratorFixture()
	service := newGeneratorService(f)
	from := time.Date(2026, 9, 2, 0, 0, 0, 0, time.UTC)

	created, err := service.Generate(context.Background(), from, 14)
	require.NoError(t, err)
	require.Equal(t, 2, created)

	// Second run sees the first run's output as existing classes.
	f.existing = append(f.existing, f.created...)
	f.created = nil

	created, err = service.Generate(context.Background(), from, 14)
	require.NoError(t, err)
	assert.Equal(t, 0, created)
	assert.Empty(t, f.created)
}

func TestGeneratorSkipsStudentsWithoutTeacher(t *testing.T) {
	f := newGeneratorFixture()
	f.students[0].TeacherID = nil
	service := newGeneratorService(f)

	created, err := service.Generate(context.Background(), time.Date(2026, 9, 2, 0, 0, 0, 0, time.UTC), 14)
	require.NoError(t, err)
	assert.Equal(t, 0, created)
}

func TestGeneratorRejectsHorizonOutOfRange(t *testing.T) {
	service := newGeneratorService(newGeneratorFixture())
	from := time.Date(2026, 9, 2, 0, 0, 0, 0, time.UTC)

	_, err := service.Generate(context.Background(), from, 3)
	assert.Error(t, err)

	_, err = service.Generate(context.Background(), from, 45)
	assert.Error(t, err)
}

func TestGeneratorDefaultsHorizon(t *testing.T) {
	f := newGeneratorFixture()
	service := newGeneratorService(f)

	created, err := service.Generate(context.Background(), time.Date(2026, 9, 2, 0, 0, 0, 0, time.UTC), 0)
	require.NoError(t, err)
	assert.Equal(t, 2, created)
}
