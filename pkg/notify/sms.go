package notify

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// SMSSender delivers a single outbound text message.
type SMSSender interface {
	SendSMS(to, body string) error
}

// GatewaySMSSender posts messages to an HTTP SMS gateway.
type GatewaySMSSender struct {
	url    string
	token  string
	client *http.Client
}

// NewGatewaySMSSender constructs the gateway client with a request timeout.
func NewGatewaySMSSender(url, token string) *GatewaySMSSender {
	return &GatewaySMSSender{
		url:    url,
		token:  token,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// SendSMS posts the message as JSON and treats any non-2xx response as an error.
func (s *GatewaySMSSender) SendSMS(to, body string) error {
	if to == "" {
		return fmt.Errorf("sms recipient required")
	}
	payload, err := json.Marshal(map[string]string{"to": to, "body": body})
	if err != nil {
		return fmt.Errorf("encode sms payload: %w", err)
	}
	req, err := http.NewRequest(http.MethodPost, s.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build sms request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.token)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("sms gateway request: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck
	if resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("sms gateway responded %d", resp.StatusCode)
	}
	return nil
}

// ConsoleSMSSender logs messages instead of delivering them. Used in development.
type ConsoleSMSSender struct {
	logger *zap.Logger
}

// NewConsoleSMSSender constructs the console sender.
func NewConsoleSMSSender(logger *zap.Logger) *ConsoleSMSSender {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConsoleSMSSender{logger: logger}
}

// SendSMS logs the message.
func (s *ConsoleSMSSender) SendSMS(to, body string) error {
	s.logger.Sugar().Infow("sms (console)", "to", to, "body", body)
	return nil
}
