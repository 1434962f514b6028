package models

import "time"

// ClassStatus is the lifecycle state of a class instance.
// Transitions are one-way: scheduled is the only non-terminal state.
type ClassStatus string

const (
	ClassScheduled ClassStatus = "scheduled"
	ClassCompleted ClassStatus = "completed"
	ClassCancelled ClassStatus = "cancelled"
	ClassNoShow    ClassStatus = "no_show"
)

// Terminal reports whether the status ends the class lifecycle.
func (s ClassStatus) Terminal() bool {
	return s == ClassCompleted || s == ClassCancelled || s == ClassNoShow
}

// ConsumesHours reports whether entering the status deducts from the
// student's remaining hours. Cancellations never do.
func (s ClassStatus) ConsumesHours() bool {
	return s == ClassCompleted || s == ClassNoShow
}

// ClassInstance is a concrete dated class for one student and one teacher.
// Uniqueness is enforced by (student_id, date, start_time).
type ClassInstance struct {
	ID              string      `db:"id" json:"id"`
	StudentID       string      `db:"student_id" json:"student_id"`
	TeacherID       string      `db:"teacher_id" json:"teacher_id"`
	Date            time.Time   `db:"date" json:"date"`
	StartTime       string      `db:"start_time" json:"start_time"`
	EndTime         string      `db:"end_time" json:"end_time"`
	DurationMinutes int         `db:"duration_minutes" json:"duration_minutes"`
	Status          ClassStatus `db:"status" json:"status"`
	TeacherNotes    *string     `db:"teacher_notes" json:"teacher_notes,omitempty"`
	RoomLink        *string     `db:"room_link" json:"room_link,omitempty"`
	ReminderSent    bool        `db:"reminder_sent" json:"reminder_sent"`
	CreatedAt       time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time   `db:"updated_at" json:"updated_at"`
}

// StartsAt combines the class date and start clock time in UTC.
func (c *ClassInstance) StartsAt() time.Time {
	return combineDateTime(c.Date, c.StartTime)
}

// EndsAt combines the class date and end clock time in UTC.
func (c *ClassInstance) EndsAt() time.Time {
	return combineDateTime(c.Date, c.EndTime)
}

func combineDateTime(date time.Time, clock string) time.Time {
	t, err := time.Parse(TimeOfDayLayout, clock)
	if err != nil {
		return date
	}
	return time.Date(date.Year(), date.Month(), date.Day(), t.Hour(), t.Minute(), 0, 0, time.UTC)
}

// ClassFilter encapsulates list filters for class instances.
type ClassFilter struct {
	StudentID string
	TeacherID string
	Status    ClassStatus
	DateFrom  *time.Time
	DateTo    *time.Time
	Page      int
	PageSize  int
}

// ClassDetail joins participant names onto a class instance.
type ClassDetail struct {
	ClassInstance
	StudentName *string `db:"student_name" json:"student_name,omitempty"`
	TeacherName *string `db:"teacher_name" json:"teacher_name,omitempty"`
}

// ClassReminder is the projection used by the reminder sweep: the class
// together with the contact data needed to notify the student.
type ClassReminder struct {
	ClassInstance
	StudentName  string  `db:"student_name" json:"student_name"`
	StudentEmail string  `db:"student_email" json:"student_email"`
	StudentPhone *string `db:"student_phone" json:"student_phone,omitempty"`
	TeacherName  *string `db:"teacher_name" json:"teacher_name,omitempty"`
}
