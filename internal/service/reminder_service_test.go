package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brightpath-english/academy-api/internal/models"
)

type reminderFixture struct {
	due    []models.ClassReminder
	marked []string
	sent   []models.Notification
}

func (f *reminderFixture) ListDueForReminder(context.Context, time.Time, time.Time) ([]models.ClassReminder, error) {
	return f.due, nil
}

func (f *reminderFixture) MarkReminderSent(_ context.Context, id string) error {
	f.marked = append(f.marked, id)
	return nil
}

func (f *reminderFixture) Enqueue(n models.Notification) {
	f.sent = append(f.sent, n)
}

func TestReminderDispatchSendsEmailAndSMS(t *testing.T) {
	phone := "+34600111222"
	room := "https://meet.example.com/room-1"
	teacher := "John Smith"
	f := &reminderFixture{due: []models.ClassReminder{{
		ClassInstance: models.ClassInstance{
			ID:        "class-1",
			Date:      time.Date(2026, 9, 11, 0, 0, 0, 0, time.UTC),
			StartTime: "10:00",
			RoomLink:  &room,
		},
		StudentName:  "Ana Torres",
		StudentEmail: "ana@academy.test",
		StudentPhone: &phone,
		TeacherName:  &teacher,
	}}}
	service := NewReminderService(f, f, 24*time.Hour, nil)

	sent, err := service.Dispatch(context.Background(), time.Date(2026, 9, 10, 12, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, 1, sent)
	assert.Equal(t, []string{"class-1"}, f.marked)

	require.Len(t, f.sent, 2)
	assert.Equal(t, models.ChannelEmail, f.sent[0].Channel)
	assert.Equal(t, "ana@academy.test", f.sent[0].To)
	assert.Equal(t, models.ChannelSMS, f.sent[1].Channel)
	assert.Equal(t, phone, f.sent[1].To)
	assert.Contains(t, f.sent[0].Body, "John Smith")
	assert.Contains(t, f.sent[0].Body, room)
}

func TestReminderDispatchSkipsSMSWithoutPhone(t *testing.T) {
	f := &reminderFixture{due: []models.ClassReminder{{
		ClassInstance: models.ClassInstance{ID: "class-1", Date: time.Date(2026, 9, 11, 0, 0, 0, 0, time.UTC), StartTime: "10:00"},
		StudentName:   "Ana Torres",
		StudentEmail:  "ana@academy.test",
	}}}
	service := NewReminderService(f, f, 24*time.Hour, nil)

	sent, err := service.Dispatch(context.Background(), time.Date(2026, 9, 10, 12, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, 1, sent)
	require.Len(t, f.sent, 1)
	assert.Equal(t, models.ChannelEmail, f.sent[0].Channel)
}

func TestReminderDispatchNothingDue(t *testing.T) {
	f := &reminderFixture{}
	service := NewReminderService(f, f, 24*time.Hour, nil)

	sent, err := service.Dispatch(context.Background(), time.Now())
	require.NoError(t, err)
	assert.Zero(t, sent)
	assert.Empty(t, f.sent)
}
