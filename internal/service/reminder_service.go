package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/brightpath-english/academy-api/internal/models"
	appErrors "github.com/brightpath-english/academy-api/pkg/errors"
)

type reminderClassStore interface {
	ListDueForReminder(ctx context.Context, from, to time.Time) ([]models.ClassReminder, error)
	MarkReminderSent(ctx context.Context, id string) error
}

type reminderNotifier interface {
	Enqueue(n models.Notification)
}

// ReminderService mails and texts students about classes starting within the
// lead window. The reminder_sent flag makes re-runs safe.
type ReminderService struct {
	classes  reminderClassStore
	notifier reminderNotifier
	lead     time.Duration
	logger   *zap.Logger
}

// NewReminderService constructs the reminder service.
func NewReminderService(classes reminderClassStore, notifier reminderNotifier, lead time.Duration, logger *zap.Logger) *ReminderService {
	if lead <= 0 {
		lead = 24 * time.Hour
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReminderService{classes: classes, notifier: notifier, lead: lead, logger: logger}
}

// Dispatch queues reminders for every scheduled class starting in
// [now, now+lead] that has not been reminded yet, and returns the count.
func (s *ReminderService) Dispatch(ctx context.Context, now time.Time) (int, error) {
	due, err := s.classes.ListDueForReminder(ctx, now, now.Add(s.lead))
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list classes due for reminder")
	}

	sent := 0
	for _, class := range due {
		body := s.reminderBody(class)
		s.notifier.Enqueue(models.Notification{
			Channel: models.ChannelEmail,
			To:      class.StudentEmail,
			Subject: "Upcoming class reminder",
			Body:    body,
		})
		if class.StudentPhone != nil && *class.StudentPhone != "" {
			s.notifier.Enqueue(models.Notification{
				Channel: models.ChannelSMS,
				To:      *class.StudentPhone,
				Body:    body,
			})
		}
		if err := s.classes.MarkReminderSent(ctx, class.ID); err != nil {
			s.logger.Warn("failed to flag reminder as sent", zap.String("class_id", class.ID), zap.Error(err))
			continue
		}
		sent++
	}

	s.logger.Sugar().Infow("reminder dispatch complete", "sent", sent, "due", len(due))
	return sent, nil
}

func (s *ReminderService) reminderBody(class models.ClassReminder) string {
	teacher := "your teacher"
	if class.TeacherName != nil && *class.TeacherName != "" {
		teacher = *class.TeacherName
	}
	body := fmt.Sprintf("Hi %s, your class with %s starts at %s on %s.",
		class.StudentName, teacher, class.StartTime, class.Date.Format("2006-01-02"))
	if class.RoomLink != nil && *class.RoomLink != "" {
		body += " Join here: " + *class.RoomLink
	}
	return body
}
