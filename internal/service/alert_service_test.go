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

type alertFixture struct {
	unassigned []models.Student
	noShows    []models.ClassDetail
	students   map[string]*models.StudentDetail
	unread     map[string]bool

	created    []models.Alert
	lastFilter models.AlertFilter
}

func (f *alertFixture) Create(_ context.Context, alert *models.Alert) error {
	f.created = append(f.created, *alert)
	f.unread[string(alert.Type)+"|"+alert.StudentID] = true
	return nil
}

func (f *alertFixture) ExistsUnread(_ context.Context, studentID string, alertType models.AlertType) (bool, error) {
	return f.unread[string(alertType)+"|"+studentID], nil
}

func (f *alertFixture) List(_ context.Context, filter models.AlertFilter) ([]models.Alert, int, error) {
	f.lastFilter = filter
	return f.created, len(f.created), nil
}

func (f *alertFixture) MarkRead(context.Context, string, string) (bool, error) {
	return true, nil
}

func (f *alertFixture) FindByID(_ context.Context, id string) (*models.StudentDetail, error) {
	student, ok := f.students[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return student, nil
}

func (f *alertFixture) ListUnassigned(context.Context) ([]models.Student, error) {
	return f.unassigned, nil
}

func (f *alertFixture) ListRecentNoShows(context.Context, time.Time) ([]models.ClassDetail, error) {
	return f.noShows, nil
}

func newAlertFixture() *alertFixture {
	return &alertFixture{
		unassigned: []models.Student{
			{ID: "student-1", FullName: "Ana Torres", SellerID: "seller-1"},
		},
		noShows: []models.ClassDetail{
			{ClassInstance: models.ClassInstance{
				ID:        "class-1",
				StudentID: "student-2",
				Date:      time.Date(2026, 9, 8, 0, 0, 0, 0, time.UTC),
				StartTime: "10:00",
				Status:    models.ClassNoShow,
			}},
		},
		students: map[string]*models.StudentDetail{
			"student-2": {Student: models.Student{ID: "student-2", FullName: "Luis Vega", SellerID: "seller-2"}},
		},
		unread: map[string]bool{},
	}
}

func TestSweepRaisesBothAlertTypes(t *testing.T) {
	f := newAlertFixture()
	service := NewAlertService(f, f, f, nil)

	result, err := service.Sweep(context.Background(), time.Date(2026, 9, 10, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, 1, result.UnassignedTeacher)
	assert.Equal(t, 1, result.MissedClass)

	require.Len(t, f.created, 2)
	assert.Equal(t, models.AlertUnassignedTeacher, f.created[0].Type)
	assert.Equal(t, "seller-1", f.created[0].RecipientID)
	assert.Equal(t, models.AlertMissedClass, f.created[1].Type)
	assert.Equal(t, "seller-2", f.created[1].RecipientID)
}

func TestSweepIsReRunSafe(t *testing.T) {
	f := newAlertFixture()
	service := NewAlertService(f, f, f, nil)
	now := time.Date(2026, 9, 10, 0, 0, 0, 0, time.UTC)

	_, err := service.Sweep(context.Background(), now)
	require.NoError(t, err)

	result, err := service.Sweep(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, 0, result.UnassignedTeacher)
	assert.Equal(t, 0, result.MissedClass)
	assert.Len(t, f.created, 2, "unread alerts suppress duplicates")
}

func TestSweepSkipsMissingStudents(t *testing.T) {
	f := newAlertFixture()
	delete(f.students, "student-2")
	service := NewAlertService(f, f, f, nil)

	result, err := service.Sweep(context.Background(), time.Date(2026, 9, 10, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, 0, result.MissedClass)
}

func TestAlertListScopesToCaller(t *testing.T) {
	f := newAlertFixture()
	service := NewAlertService(f, f, f, nil)
	caller := models.Caller{UserID: "seller-1", Role: models.RoleSeller}

	f.created = []models.Alert{{ID: "alert-1", RecipientID: "seller-1"}}

	alerts, pagination, err := service.List(context.Background(), caller, models.AlertFilter{RecipientID: "someone-else"})
	require.NoError(t, err)
	assert.Len(t, alerts, 1)
	assert.Equal(t, 1, pagination.TotalCount)
	assert.Equal(t, "seller-1", f.lastFilter.RecipientID, "non-admins are pinned to their own alerts")
}
