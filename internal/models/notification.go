package models

// NotificationChannel selects the delivery mechanism for an outbox entry.
type NotificationChannel string

const (
	ChannelEmail NotificationChannel = "email"
	ChannelSMS   NotificationChannel = "sms"
)

// Notification is a single outbound message handed to the outbox queue.
type Notification struct {
	Channel NotificationChannel `json:"channel"`
	To      string              `json:"to"`
	Subject string              `json:"subject,omitempty"`
	Body    string              `json:"body"`
}
