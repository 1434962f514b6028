package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brightpath-english/academy-api/internal/models"
	appErrors "github.com/brightpath-english/academy-api/pkg/errors"
)

type dashboardFixture struct {
	students       int
	teachers       int
	classesToday   int
	unreadAlerts   int
	sellerStudents int
	counterCalls   int

	student  *models.StudentDetail
	upcoming []models.ClassDetail
}

func (f *dashboardFixture) CountActiveStudents(_ context.Context) (int, error) {
	f.counterCalls++
	return f.students, nil
}

func (f *dashboardFixture) CountActiveTeachers(_ context.Context) (int, error) {
	f.counterCalls++
	return f.teachers, nil
}

func (f *dashboardFixture) CountClassesOn(_ context.Context, _ time.Time) (int, error) {
	f.counterCalls++
	return f.classesToday, nil
}

func (f *dashboardFixture) CountClassesForTeacherOn(_ context.Context, _ string, _ time.Time) (int, error) {
	f.counterCalls++
	return f.classesToday, nil
}

func (f *dashboardFixture) CountStudentsBySeller(_ context.Context, _ string) (int, error) {
	f.counterCalls++
	return f.sellerStudents, nil
}

func (f *dashboardFixture) CountStudentsByTeacher(_ context.Context, _ string) (int, error) {
	f.counterCalls++
	return f.students, nil
}

func (f *dashboardFixture) CountUnreadAlerts(_ context.Context, _ string) (int, error) {
	f.counterCalls++
	return f.unreadAlerts, nil
}

func (f *dashboardFixture) FindByUserID(_ context.Context, userID string) (*models.StudentDetail, error) {
	if f.student == nil || f.student.UserID != userID {
		return nil, sql.ErrNoRows
	}
	return f.student, nil
}

func (f *dashboardFixture) ListUpcomingByStudent(_ context.Context, _ string, _ time.Time) ([]models.ClassDetail, error) {
	return f.upcoming, nil
}

// mapCache is an in-memory stand-in for the redis-backed cache repository.
type mapCache struct {
	entries map[string][]byte
}

func (c *mapCache) Get(_ context.Context, key string, dest interface{}) error {
	raw, ok := c.entries[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (c *mapCache) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	if c.entries == nil {
		c.entries = map[string][]byte{}
	}
	c.entries[key] = raw
	return nil
}

func TestDashboardAdminIsCachedPerUser(t *testing.T) {
	f := &dashboardFixture{students: 40, teachers: 6, classesToday: 12, unreadAlerts: 3}
	svc := NewDashboardService(f, f, f, &mapCache{}, time.Minute, nil)
	caller := models.Caller{UserID: "admin-1", Role: models.RoleAdmin}

	first, err := svc.ForCaller(context.Background(), caller, time.Now())
	require.NoError(t, err)
	dash := first.(*models.AdminDashboard)
	assert.Equal(t, 40, dash.ActiveStudents)
	assert.Equal(t, 12, dash.ClassesToday)

	callsAfterFirst := f.counterCalls
	_, err = svc.ForCaller(context.Background(), caller, time.Now())
	require.NoError(t, err)
	assert.Equal(t, callsAfterFirst, f.counterCalls, "second read should come from cache")
}

func TestDashboardNilCacheDegradesToDatabase(t *testing.T) {
	f := &dashboardFixture{sellerStudents: 9, unreadAlerts: 2}
	svc := NewDashboardService(f, f, f, nil, time.Minute, nil)
	caller := models.Caller{UserID: "seller-1", Role: models.RoleSeller}

	first, err := svc.ForCaller(context.Background(), caller, time.Now())
	require.NoError(t, err)
	assert.Equal(t, 9, first.(*models.SellerDashboard).Students)

	callsAfterFirst := f.counterCalls
	_, err = svc.ForCaller(context.Background(), caller, time.Now())
	require.NoError(t, err)
	assert.Greater(t, f.counterCalls, callsAfterFirst)
}

func TestDashboardStudentShowsBalanceAndNextClass(t *testing.T) {
	next := models.ClassDetail{ClassInstance: models.ClassInstance{ID: "class-7"}}
	f := &dashboardFixture{
		student: &models.StudentDetail{Student: models.Student{
			ID: "student-1", UserID: "student-user-1",
			RemainingHours: 3.5, ContractedHours: 20,
		}},
		upcoming: []models.ClassDetail{next},
	}
	svc := NewDashboardService(f, f, f, &mapCache{}, time.Minute, nil)

	got, err := svc.ForCaller(context.Background(),
		models.Caller{UserID: "student-user-1", Role: models.RoleStudent}, time.Now())
	require.NoError(t, err)

	dash := got.(*models.StudentDashboard)
	assert.Equal(t, 3.5, dash.RemainingHours)
	assert.Equal(t, 20.0, dash.ContractedHours)
	require.NotNil(t, dash.NextClass)
	assert.Equal(t, "class-7", dash.NextClass.ID)
}

func TestDashboardStudentWithoutProfileIsForbidden(t *testing.T) {
	f := &dashboardFixture{}
	svc := NewDashboardService(f, f, f, nil, time.Minute, nil)

	_, err := svc.ForCaller(context.Background(),
		models.Caller{UserID: "nobody", Role: models.RoleStudent}, time.Now())
	require.Error(t, err)
}
