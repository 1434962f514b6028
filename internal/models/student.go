package models

import "time"

// Level values follow the CEFR proficiency scale.
var Levels = []string{"A1", "A2", "B1", "B2", "C1", "C2"}

// ValidLevel reports whether the given level is a known CEFR tier.
func ValidLevel(level string) bool {
	for _, l := range Levels {
		if l == level {
			return true
		}
	}
	return false
}

// Student represents a learner enrolled with the academy.
type Student struct {
	ID              string    `db:"id" json:"id"`
	UserID          string    `db:"user_id" json:"user_id"`
	FullName        string    `db:"full_name" json:"full_name"`
	Email           string    `db:"email" json:"email"`
	Phone           *string   `db:"phone" json:"phone,omitempty"`
	Level           string    `db:"level" json:"level"`
	ContractedHours float64   `db:"contracted_hours" json:"contracted_hours"`
	RemainingHours  float64   `db:"remaining_hours" json:"remaining_hours"`
	Blocked         bool      `db:"blocked" json:"blocked"`
	BlockedReason   *string   `db:"blocked_reason" json:"blocked_reason,omitempty"`
	TeacherID       *string   `db:"teacher_id" json:"teacher_id,omitempty"`
	SellerID        string    `db:"seller_id" json:"seller_id"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}

// StudentFilter encapsulates allowed search parameters for listing students.
type StudentFilter struct {
	Search    string
	SellerID  string
	TeacherID string
	Level     string
	Blocked   *bool
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// StudentDetail contains student information with assignment context.
// One-to-one joins are normalised to nullable scalars by the repository.
type StudentDetail struct {
	Student
	TeacherName *string `db:"teacher_name" json:"teacher_name,omitempty"`
	SellerName  *string `db:"seller_name" json:"seller_name,omitempty"`
}
