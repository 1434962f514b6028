package models

import "time"

// AlertType classifies background-sweep alerts.
type AlertType string

const (
	AlertLowHours          AlertType = "low_hours"
	AlertUnassignedTeacher AlertType = "unassigned_teacher"
	AlertMissedClass       AlertType = "missed_class"
)

// Alert is a notification row addressed to a staff member about a student.
// Sweeps do not create a new alert while an unread one of the same type
// exists for the same student.
type Alert struct {
	ID          string    `db:"id" json:"id"`
	StudentID   string    `db:"student_id" json:"student_id"`
	RecipientID string    `db:"recipient_id" json:"recipient_id"`
	Type        AlertType `db:"type" json:"type"`
	Message     string    `db:"message" json:"message"`
	Read        bool      `db:"read" json:"read"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// AlertFilter encapsulates list filters for alerts.
type AlertFilter struct {
	RecipientID string
	StudentID   string
	Type        AlertType
	Unread      *bool
	Page        int
	PageSize    int
}
