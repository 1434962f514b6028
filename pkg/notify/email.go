package notify

import (
	"fmt"
	"net/http"

	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
	"go.uber.org/zap"
)

// EmailSender delivers a single outbound email.
type EmailSender interface {
	SendEmail(to, subject, html string) error
}

// SendgridEmailSender delivers mail through the SendGrid v3 API.
type SendgridEmailSender struct {
	apiKey string
	from   *sgmail.Email
}

// NewSendgridEmailSender constructs a SendGrid-backed sender.
func NewSendgridEmailSender(apiKey, fromName, fromAddress string) *SendgridEmailSender {
	return &SendgridEmailSender{
		apiKey: apiKey,
		from:   sgmail.NewEmail(fromName, fromAddress),
	}
}

// SendEmail sends a single HTML message and treats any non-2xx response as an error.
func (s *SendgridEmailSender) SendEmail(to, subject, html string) error {
	if to == "" {
		return fmt.Errorf("email recipient required")
	}
	message := sgmail.NewSingleEmail(s.from, subject, sgmail.NewEmail("", to), "", html)
	resp, err := sendgrid.NewSendClient(s.apiKey).Send(message)
	if err != nil {
		return fmt.Errorf("sendgrid request: %w", err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("sendgrid responded %d: %s", resp.StatusCode, resp.Body)
	}
	return nil
}

// ConsoleEmailSender logs messages instead of delivering them. Used in development.
type ConsoleEmailSender struct {
	logger *zap.Logger
}

// NewConsoleEmailSender constructs the console sender.
func NewConsoleEmailSender(logger *zap.Logger) *ConsoleEmailSender {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConsoleEmailSender{logger: logger}
}

// SendEmail logs the message.
func (s *ConsoleEmailSender) SendEmail(to, subject, html string) error {
	s.logger.Sugar().Infow("email (console)", "to", to, "subject", subject, "body", html)
	return nil
}
