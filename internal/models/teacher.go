package models

import (
	"time"

	"github.com/lib/pq"
)

// Teacher represents an instructor on the academy roster.
type Teacher struct {
	ID          string         `db:"id" json:"id"`
	Email       string         `db:"email" json:"email"`
	FullName    string         `db:"full_name" json:"full_name"`
	Phone       *string        `db:"phone" json:"phone,omitempty"`
	Specialties pq.StringArray `db:"specialties" json:"specialties"`
	RoomLink    *string        `db:"room_link" json:"room_link,omitempty"`
	Active      bool           `db:"active" json:"active"`
	CreatedAt   time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time      `db:"updated_at" json:"updated_at"`
}

// TeacherFilter captures filtering criteria for listing teachers.
type TeacherFilter struct {
	Search    string
	Level     string
	Active    *bool
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
