package service

import (
	"context"
	"database/sql"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brightpath-english/academy-api/internal/models"
	appErrors "github.com/brightpath-english/academy-api/pkg/errors"
)

type calendarFixture struct {
	student *models.StudentDetail
	classes []models.ClassDetail
}

func (f *calendarFixture) FindByID(_ context.Context, id string) (*models.StudentDetail, error) {
	if f.student == nil || f.student.ID != id {
		return nil, sql.ErrNoRows
	}
	return f.student, nil
}

func (f *calendarFixture) FindByUserID(_ context.Context, userID string) (*models.StudentDetail, error) {
	if f.student == nil || f.student.UserID != userID {
		return nil, sql.ErrNoRows
	}
	return f.student, nil
}

func (f *calendarFixture) ListUpcomingByStudent(_ context.Context, studentID string, _ time.Time) ([]models.ClassDetail, error) {
	var out []models.ClassDetail
	for _, class := range f.classes {
		if class.StudentID == studentID {
			out = append(out, class)
		}
	}
	return out, nil
}

func newCalendarFixture() *calendarFixture {
	teacher := "Laura Kim"
	room := "https://meet.example.com/abc"
	return &calendarFixture{
		student: &models.StudentDetail{Student: models.Student{
			ID:       "student-1",
			UserID:   "user-1",
			FullName: "Ana Torres",
		}},
		classes: []models.ClassDetail{
			{
				ClassInstance: models.ClassInstance{
					ID:              "class-1",
					StudentID:       "student-1",
					TeacherID:       "teacher-1",
					Date:            time.Date(2026, 9, 3, 0, 0, 0, 0, time.UTC),
					StartTime:       "10:00",
					EndTime:         "11:00",
					DurationMinutes: 60,
					Status:          models.ClassScheduled,
					RoomLink:        &room,
				},
				TeacherName: &teacher,
			},
		},
	}
}

func TestExportICSContainsScheduledEvent(t *testing.T) {
	f := newCalendarFixture()
	svc := NewCalendarService(f, f, nil)

	out, err := svc.ExportICS(context.Background(), models.Caller{UserID: "admin-1", Role: models.RoleAdmin}, "student-1", time.Now().UTC())
	require.NoError(t, err)
	assert.Equal(t, "schedule-student-1.ics", out.FileName)
	assert.Equal(t, "text/calendar", out.ContentType)

	body := string(out.Content)
	assert.Contains(t, body, "BEGIN:VCALENDAR")
	assert.Contains(t, body, "English class with Laura Kim")
	assert.Contains(t, body, "20260903T100000Z")
}

func TestExportCSVContainsHeaderAndRow(t *testing.T) {
	f := newCalendarFixture()
	svc := NewCalendarService(f, f, nil)

	out, err := svc.ExportCSV(context.Background(), models.Caller{UserID: "seller-1", Role: models.RoleSeller}, "student-1", time.Now().UTC())
	require.NoError(t, err)
	assert.Equal(t, "schedule-student-1.csv", out.FileName)

	lines := strings.Split(strings.TrimSpace(string(out.Content)), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "Date")
	assert.Contains(t, lines[1], "2026-09-03")
	assert.Contains(t, lines[1], "Laura Kim")
}

func TestExportPDFProducesDocument(t *testing.T) {
	f := newCalendarFixture()
	svc := NewCalendarService(f, f, nil)

	out, err := svc.ExportPDF(context.Background(), models.Caller{UserID: "admin-1", Role: models.RoleAdmin}, "student-1", time.Now().UTC())
	require.NoError(t, err)
	assert.Equal(t, "schedule-student-1.pdf", out.FileName)
	assert.Equal(t, "application/pdf", out.ContentType)
	assert.True(t, strings.HasPrefix(string(out.Content), "%PDF"))
}

func TestExportScopesStudentsToTheirOwnSchedule(t *testing.T) {
	f := newCalendarFixture()
	svc := NewCalendarService(f, f, nil)

	_, err := svc.ExportICS(context.Background(), models.Caller{UserID: "other-user", Role: models.RoleStudent}, "student-1", time.Now().UTC())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)

	out, err := svc.ExportICS(context.Background(), models.Caller{UserID: "user-1", Role: models.RoleStudent}, "student-1", time.Now().UTC())
	require.NoError(t, err)
	assert.NotEmpty(t, out.Content)
}

func TestExportUnknownStudentIsNotFound(t *testing.T) {
	f := newCalendarFixture()
	svc := NewCalendarService(f, f, nil)

	_, err := svc.ExportCSV(context.Background(), models.Caller{UserID: "admin-1", Role: models.RoleAdmin}, "missing", time.Now().UTC())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
