package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brightpath-english/academy-api/internal/models"
	appErrors "github.com/brightpath-english/academy-api/pkg/errors"
)

type scheduleFixture struct {
	student  *models.StudentDetail
	existing []models.RecurringSlot
	replaced []models.RecurringSlot
}

func (f *scheduleFixture) FindByID(_ context.Context, id string) (*models.StudentDetail, error) {
	if f.student == nil || f.student.ID != id {
		return nil, sql.ErrNoRows
	}
	return f.student, nil
}

func (f *scheduleFixture) FindByUserID(_ context.Context, userID string) (*models.StudentDetail, error) {
	if f.student == nil || f.student.UserID != userID {
		return nil, sql.ErrNoRows
	}
	return f.student, nil
}

func (f *scheduleFixture) ListByStudent(_ context.Context, _ string, onlyActive bool) ([]models.RecurringSlot, error) {
	if !onlyActive {
		return f.existing, nil
	}
	active := make([]models.RecurringSlot, 0, len(f.existing))
	for _, slot := range f.existing {
		if slot.Active {
			active = append(active, slot)
		}
	}
	return active, nil
}

func (f *scheduleFixture) ReplaceForStudent(_ context.Context, _ string, slots []models.RecurringSlot) error {
	f.replaced = slots
	return nil
}

func scheduleStudent() *models.StudentDetail {
	teacherID := "teacher-1"
	return &models.StudentDetail{Student: models.Student{
		ID:        "student-1",
		UserID:    "user-1",
		FullName:  "Ana Torres",
		TeacherID: &teacherID,
	}}
}

func TestScheduleReplaceComputesDuration(t *testing.T) {
	f := &scheduleFixture{student: scheduleStudent()}
	svc := NewScheduleService(f, f, nil, nil)

	slots, err := svc.Replace(context.Background(), "student-1", ReplaceSlotsRequest{
		Slots: []SlotInput{
			{Weekday: 1, StartTime: "10:00", EndTime: "11:30"},
			{Weekday: 3, StartTime: "10:00", EndTime: "11:00"},
		},
	})

	require.NoError(t, err)
	require.Len(t, slots, 2)
	assert.Equal(t, 90, slots[0].DurationMinutes)
	assert.Equal(t, 60, slots[1].DurationMinutes)
	assert.True(t, slots[0].Active)
	assert.Len(t, f.replaced, 2)
}

func TestScheduleReplaceRejectsDuplicateSlot(t *testing.T) {
	f := &scheduleFixture{student: scheduleStudent()}
	svc := NewScheduleService(f, f, nil, nil)

	_, err := svc.Replace(context.Background(), "student-1", ReplaceSlotsRequest{
		Slots: []SlotInput{
			{Weekday: 1, StartTime: "10:00", EndTime: "11:00"},
			{Weekday: 1, StartTime: "10:00", EndTime: "11:30"},
		},
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate slot")
	assert.Nil(t, f.replaced)
}

func TestScheduleReplaceRejectsEmptyRequest(t *testing.T) {
	f := &scheduleFixture{student: scheduleStudent()}
	svc := NewScheduleService(f, f, nil, nil)

	_, err := svc.Replace(context.Background(), "student-1", ReplaceSlotsRequest{})
	require.Error(t, err)
}

func TestScheduleReplaceUnknownStudent(t *testing.T) {
	f := &scheduleFixture{}
	svc := NewScheduleService(f, f, nil, nil)

	_, err := svc.Replace(context.Background(), "ghost", ReplaceSlotsRequest{
		Slots: []SlotInput{{Weekday: 1, StartTime: "10:00", EndTime: "11:00"}},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestScheduleListFiltersInactive(t *testing.T) {
	f := &scheduleFixture{
		student: scheduleStudent(),
		existing: []models.RecurringSlot{
			{ID: "slot-1", Active: true},
			{ID: "slot-2", Active: false},
		},
	}
	svc := NewScheduleService(f, f, nil, nil)
	seller := models.Caller{UserID: "seller-1", Role: models.RoleSeller}

	active, err := svc.List(context.Background(), seller, "student-1", true)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "slot-1", active[0].ID)

	all, err := svc.List(context.Background(), seller, "student-1", false)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestScheduleListOtherStudentsSlotsReadAsNotFound(t *testing.T) {
	f := &scheduleFixture{
		student:  scheduleStudent(),
		existing: []models.RecurringSlot{{ID: "slot-1", StudentID: "student-1", Active: true}},
	}
	svc := NewScheduleService(f, f, nil, nil)

	_, err := svc.List(context.Background(), models.Caller{UserID: "user-attacker", Role: models.RoleStudent}, "student-1", true)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)

	own, err := svc.List(context.Background(), models.Caller{UserID: "user-1", Role: models.RoleStudent}, "student-1", true)
	require.NoError(t, err)
	assert.Len(t, own, 1)
}

func TestScheduleListScopesTeachersToAssignedStudents(t *testing.T) {
	f := &scheduleFixture{
		student:  scheduleStudent(),
		existing: []models.RecurringSlot{{ID: "slot-1", StudentID: "student-1", Active: true}},
	}
	svc := NewScheduleService(f, f, nil, nil)

	_, err := svc.List(context.Background(), models.Caller{UserID: "teacher-2", Role: models.RoleTeacher}, "student-1", true)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)

	assigned, err := svc.List(context.Background(), models.Caller{UserID: "teacher-1", Role: models.RoleTeacher}, "student-1", true)
	require.NoError(t, err)
	assert.Len(t, assigned, 1)
}
