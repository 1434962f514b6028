package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brightpath-english/academy-api/internal/models"
	appErrors "github.com/brightpath-english/academy-api/pkg/errors"
)

type classFixture struct {
	class   *models.ClassInstance
	student *models.StudentDetail
	teacher *models.Teacher
	admins  []string

	transitions []models.ClassStatus
	deductions  []int
	sent        []models.Notification
}

func (f *classFixture) List(context.Context, models.ClassFilter) ([]models.ClassDetail, int, error) {
	return []models.ClassDetail{{ClassInstance: *f.class}}, 1, nil
}

func (f *classFixture) FindByID(_ context.Context, id string) (*models.ClassInstance, error) {
	if f.class == nil || f.class.ID != id {
		return nil, sql.ErrNoRows
	}
	c := *f.class
	return &c, nil
}

func (f *classFixture) FindDetailByID(ctx context.Context, id string) (*models.ClassDetail, error) {
	class, err := f.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	name := f.student.FullName
	return &models.ClassDetail{ClassInstance: *class, StudentName: &name}, nil
}

func (f *classFixture) Create(_ context.Context, class *models.ClassInstance) error {
	f.class = class
	return nil
}

func (f *classFixture) TransitionFromScheduled(_ context.Context, id string, status models.ClassStatus, notes *string) (bool, error) {
	if f.class == nil || f.class.ID != id || f.class.Status != models.ClassScheduled {
		return false, nil
	}
	f.class.Status = status
	if notes != nil {
		f.class.TeacherNotes = notes
	}
	f.transitions = append(f.transitions, status)
	return true, nil
}

func (f *classFixture) DeleteScheduled(_ context.Context, id string) (bool, error) {
	if f.class != nil && f.class.ID == id && f.class.Status == models.ClassScheduled {
		f.class = nil
		return true, nil
	}
	return false, nil
}

func (f *classFixture) FindByUserID(_ context.Context, userID string) (*models.StudentDetail, error) {
	if f.student == nil || f.student.UserID != userID {
		return nil, sql.ErrNoRows
	}
	return f.student, nil
}

func (f *classFixture) FindTeacherByID(_ context.Context, id string) (*models.Teacher, error) {
	if f.teacher == nil || f.teacher.ID != id {
		return nil, sql.ErrNoRows
	}
	return f.teacher, nil
}

func (f *classFixture) ListActiveEmailsByRole(context.Context, models.UserRole) ([]string, error) {
	return f.admins, nil
}

func (f *classFixture) DeductForClass(_ context.Context, _ string, durationMinutes int) (float64, error) {
	f.deductions = append(f.deductions, durationMinutes)
	return 1, nil
}

func (f *classFixture) Enqueue(n models.Notification) {
	f.sent = append(f.sent, n)
}

type classTeacherAdapter struct{ f *classFixture }

func (a classTeacherAdapter) FindByID(ctx context.Context, id string) (*models.Teacher, error) {
	return a.f.FindTeacherByID(ctx, id)
}

func newClassFixture() *classFixture {
	room := "https://meet.example.com/room-1"
	return &classFixture{
		class: &models.ClassInstance{
			ID:              "class-1",
			StudentID:       "student-1",
			TeacherID:       "teacher-1",
			Date:            time.Date(2026, 9, 10, 0, 0, 0, 0, time.UTC),
			StartTime:       "10:00",
			EndTime:         "11:00",
			DurationMinutes: 60,
			Status:          models.ClassScheduled,
			RoomLink:        &room,
		},
		student: &models.StudentDetail{Student: models.Student{
			ID:       "student-1",
			UserID:   "user-student-1",
			FullName: "Ana Torres",
			SellerID: "seller-1",
		}},
		teacher: &models.Teacher{ID: "teacher-1", Email: "teacher@academy.test", FullName: "John Smith"},
		admins:  []string{"admin@academy.test"},
	}
}

func newClassService(f *classFixture) *ClassService {
	return NewClassService(f, f, classTeacherAdapter{f}, f, f, f, ClassPolicy{}, nil, nil)
}

func studentCaller() models.Caller {
	return models.Caller{UserID: "user-student-1", Role: models.RoleStudent}
}

func TestJoinWithinWindowCompletesAndDeducts(t *testing.T) {
	f := newClassFixture()
	service := newClassService(f)

	now := time.Date(2026, 9, 10, 10, 5, 0, 0, time.UTC)
	result, err := service.Join(context.Background(), studentCaller(), "class-1", now)
	require.NoError(t, err)
	assert.Equal(t, JoinStatusJoined, result.Status)
	require.NotNil(t, result.RoomLink)
	assert.Equal(t, models.ClassCompleted, f.class.Status)
	assert.Equal(t, []int{60}, f.deductions)
}

func TestJoinWindowBoundariesInclusive(t *testing.T) {
	cases := []struct {
		name   string
		now    time.Time
		status string
	}{
		{"exactly 30m before start", time.Date(2026, 9, 10, 9, 30, 0, 0, time.UTC), JoinStatusJoined},
		{"one second earlier", time.Date(2026, 9, 10, 9, 29, 59, 0, time.UTC), JoinStatusTooEarly},
		{"exactly 15m after end", time.Date(2026, 9, 10, 11, 15, 0, 0, time.UTC), JoinStatusJoined},
		{"one second later", time.Date(2026, 9, 10, 11, 15, 1, 0, time.UTC), JoinStatusEnded},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newClassFixture()
			service := newClassService(f)

			result, err := service.Join(context.Background(), studentCaller(), "class-1", tc.now)
			require.NoError(t, err)
			assert.Equal(t, tc.status, result.Status)
		})
	}
}

func TestJoinTooEarlyReturnsRoomLinkWithoutStateChange(t *testing.T) {
	f := newClassFixture()
	service := newClassService(f)

	now := time.Date(2026, 9, 10, 8, 0, 0, 0, time.UTC)
	result, err := service.Join(context.Background(), studentCaller(), "class-1", now)
	require.NoError(t, err)
	assert.Equal(t, JoinStatusTooEarly, result.Status)
	require.NotNil(t, result.RoomLink)
	assert.Equal(t, models.ClassScheduled, f.class.Status)
	assert.Empty(t, f.deductions)
}

func TestJoinAfterWindowLeavesClassForTeacher(t *testing.T) {
	f := newClassFixture()
	service := newClassService(f)

	now := time.Date(2026, 9, 10, 12, 0, 0, 0, time.UTC)
	result, err := service.Join(context.Background(), studentCaller(), "class-1", now)
	require.NoError(t, err)
	assert.Equal(t, JoinStatusEnded, result.Status)
	assert.Equal(t, models.ClassScheduled, f.class.Status)
	assert.Empty(t, f.deductions)
}

func TestJoinRejectsTerminalClass(t *testing.T) {
	f := newClassFixture()
	f.class.Status = models.ClassCancelled
	service := newClassService(f)

	_, err := service.Join(context.Background(), studentCaller(), "class-1",
		time.Date(2026, 9, 10, 10, 0, 0, 0, time.UTC))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrStateConflict.Code, appErrors.FromError(err).Code)
}

func TestJoinOtherStudentsClassReadsAsNotFound(t *testing.T) {
	f := newClassFixture()
	f.class.StudentID = "student-2"
	service := newClassService(f)

	_, err := service.Join(context.Background(), studentCaller(), "class-1",
		time.Date(2026, 9, 10, 10, 0, 0, 0, time.UTC))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestMarkCompletedDeductsOnce(t *testing.T) {
	f := newClassFixture()
	service := newClassService(f)
	caller := models.Caller{UserID: "teacher-1", Role: models.RoleTeacher}

	notes := "good progress"
	detail, err := service.Mark(context.Background(), caller, "class-1", MarkClassRequest{Status: models.ClassCompleted, Notes: &notes})
	require.NoError(t, err)
	assert.Equal(t, models.ClassCompleted, detail.Status)
	assert.Equal(t, []int{60}, f.deductions)

	_, err = service.Mark(context.Background(), caller, "class-1", MarkClassRequest{Status: models.ClassCompleted})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrStateConflict.Code, appErrors.FromError(err).Code)
	assert.Equal(t, []int{60}, f.deductions, "no double deduction")
}

func TestMarkCancelledNeverDeducts(t *testing.T) {
	f := newClassFixture()
	service := newClassService(f)
	caller := models.Caller{UserID: "teacher-1", Role: models.RoleTeacher}

	detail, err := service.Mark(context.Background(), caller, "class-1", MarkClassRequest{Status: models.ClassCancelled})
	require.NoError(t, err)
	assert.Equal(t, models.ClassCancelled, detail.Status)
	assert.Empty(t, f.deductions)
}

func TestMarkRejectsScheduledStatus(t *testing.T) {
	f := newClassFixture()
	service := newClassService(f)
	caller := models.Caller{UserID: "teacher-1", Role: models.RoleTeacher}

	_, err := service.Mark(context.Background(), caller, "class-1", MarkClassRequest{Status: models.ClassScheduled})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestMarkOtherTeachersClassReadsAsNotFound(t *testing.T) {
	f := newClassFixture()
	service := newClassService(f)
	caller := models.Caller{UserID: "teacher-2", Role: models.RoleTeacher}

	_, err := service.Mark(context.Background(), caller, "class-1", MarkClassRequest{Status: models.ClassCompleted})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestMarkByAdminOnAnyTeachersClass(t *testing.T) {
	f := newClassFixture()
	service := newClassService(f)
	caller := models.Caller{UserID: "admin-1", Role: models.RoleAdmin}

	detail, err := service.Mark(context.Background(), caller, "class-1", MarkClassRequest{Status: models.ClassNoShow})
	require.NoError(t, err)
	assert.Equal(t, models.ClassNoShow, detail.Status)
	assert.Equal(t, []int{60}, f.deductions)
}

func TestCancelBoundaryInclusive(t *testing.T) {
	// Class starts 2026-09-10 10:00 UTC; exactly 24h before is allowed.
	f := newClassFixture()
	service := newClassService(f)

	now := time.Date(2026, 9, 9, 10, 0, 0, 0, time.UTC)
	detail, err := service.Cancel(context.Background(), studentCaller(), "class-1", now)
	require.NoError(t, err)
	assert.Equal(t, models.ClassCancelled, detail.Status)
	assert.Empty(t, f.deductions, "cancellation never deducts")
}

func TestCancelInsideNoticeWindowRejected(t *testing.T) {
	f := newClassFixture()
	service := newClassService(f)

	now := time.Date(2026, 9, 9, 10, 0, 1, 0, time.UTC)
	_, err := service.Cancel(context.Background(), studentCaller(), "class-1", now)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrPolicyViolation.Code, appErrors.FromError(err).Code)
	assert.Equal(t, models.ClassScheduled, f.class.Status)
}

func TestCancelNotifiesTeacherAndAdmins(t *testing.T) {
	f := newClassFixture()
	service := newClassService(f)

	now := time.Date(2026, 9, 8, 10, 0, 0, 0, time.UTC)
	_, err := service.Cancel(context.Background(), studentCaller(), "class-1", now)
	require.NoError(t, err)

	require.Len(t, f.sent, 2)
	assert.Equal(t, "teacher@academy.test", f.sent[0].To)
	assert.Equal(t, "admin@academy.test", f.sent[1].To)
	for _, n := range f.sent {
		assert.Equal(t, models.ChannelEmail, n.Channel)
		assert.Contains(t, n.Body, "Ana Torres")
	}
}

func TestCancelByAdminBypassesNotice(t *testing.T) {
	f := newClassFixture()
	service := newClassService(f)
	caller := models.Caller{UserID: "admin-1", Role: models.RoleAdmin}

	now := time.Date(2026, 9, 10, 9, 59, 0, 0, time.UTC)
	detail, err := service.Cancel(context.Background(), caller, "class-1", now)
	require.NoError(t, err)
	assert.Equal(t, models.ClassCancelled, detail.Status)
}

func TestDeleteScheduledOnly(t *testing.T) {
	f := newClassFixture()
	f.class.Status = models.ClassCompleted
	service := newClassService(f)

	err := service.Delete(context.Background(), "class-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrStateConflict.Code, appErrors.FromError(err).Code)
}
