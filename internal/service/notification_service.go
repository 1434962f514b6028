package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/brightpath-english/academy-api/internal/models"
	"github.com/brightpath-english/academy-api/pkg/jobs"
	"github.com/brightpath-english/academy-api/pkg/notify"
)

// NotificationService is the delivery outbox. Callers enqueue messages and a
// worker pool drains them through the configured senders; a delivery failure
// never propagates back into the request that queued it.
type notificationMetrics interface {
	IncNotification(channel string)
}

type NotificationService struct {
	email   notify.EmailSender
	sms     notify.SMSSender
	queue   *jobs.Queue
	metrics notificationMetrics
	logger  *zap.Logger
}

// UseMetrics attaches the metrics recorder. Optional.
func (s *NotificationService) UseMetrics(m notificationMetrics) {
	s.metrics = m
}

// NotificationConfig tunes the delivery worker pool.
type NotificationConfig struct {
	Workers    int
	MaxRetries int
	RetryDelay time.Duration
}

// NewNotificationService builds the outbox and its worker queue.
func NewNotificationService(email notify.EmailSender, sms notify.SMSSender, cfg NotificationConfig, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &NotificationService{email: email, sms: sms, logger: logger}
	s.queue = jobs.NewQueue("notifications", s.deliver, jobs.QueueConfig{
		Workers:    cfg.Workers,
		MaxRetries: cfg.MaxRetries,
		RetryDelay: cfg.RetryDelay,
		Logger:     logger,
	})
	return s
}

// Start spins up the delivery workers.
func (s *NotificationService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop drains the workers.
func (s *NotificationService) Stop() {
	s.queue.Stop()
}

// Enqueue queues a message for asynchronous delivery. Errors are logged and
// swallowed so business flows stay unaffected by the messaging path.
func (s *NotificationService) Enqueue(n models.Notification) {
	err := s.queue.Enqueue(jobs.Job{
		ID:      uuid.NewString(),
		Type:    string(n.Channel),
		Payload: n,
	})
	if err != nil {
		s.logger.Warn("failed to enqueue notification",
			zap.String("channel", string(n.Channel)), zap.Error(err))
		return
	}
	if s.metrics != nil {
		s.metrics.IncNotification(string(n.Channel))
	}
}

func (s *NotificationService) deliver(_ context.Context, job jobs.Job) error {
	n, ok := job.Payload.(models.Notification)
	if !ok {
		return fmt.Errorf("unexpected payload type %T", job.Payload)
	}

	switch n.Channel {
	case models.ChannelEmail:
		return s.email.SendEmail(n.To, n.Subject, n.Body)
	case models.ChannelSMS:
		return s.sms.SendSMS(n.To, n.Body)
	default:
		return fmt.Errorf("unknown channel %q", n.Channel)
	}
}
