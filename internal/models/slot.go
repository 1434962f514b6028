package models

import "time"

// TimeOfDayLayout is the wire format for slot and class clock times.
const TimeOfDayLayout = "15:04"

// RecurringSlot is a weekly time slot on a student's schedule.
// Superseded slots are deactivated rather than mutated, preserving history.
type RecurringSlot struct {
	ID              string    `db:"id" json:"id"`
	StudentID       string    `db:"student_id" json:"student_id"`
	Weekday         int       `db:"weekday" json:"weekday"`
	StartTime       string    `db:"start_time" json:"start_time"`
	EndTime         string    `db:"end_time" json:"end_time"`
	DurationMinutes int       `db:"duration_minutes" json:"duration_minutes"`
	Active          bool      `db:"active" json:"active"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
}

// MinutesBetween computes the span between two HH:MM clock times.
func MinutesBetween(start, end string) (int, error) {
	s, err := time.Parse(TimeOfDayLayout, start)
	if err != nil {
		return 0, err
	}
	e, err := time.Parse(TimeOfDayLayout, end)
	if err != nil {
		return 0, err
	}
	return int(e.Sub(s).Minutes()), nil
}
