package models

// AdminDashboard summarises academy-wide activity.
type AdminDashboard struct {
	ActiveStudents int `json:"active_students"`
	ActiveTeachers int `json:"active_teachers"`
	ClassesToday   int `json:"classes_today"`
	UnreadAlerts   int `json:"unread_alerts"`
}

// SellerDashboard summarises a salesperson's portfolio.
type SellerDashboard struct {
	Students     int `json:"students"`
	UnreadAlerts int `json:"unread_alerts"`
}

// TeacherDashboard summarises a teacher's day.
type TeacherDashboard struct {
	ClassesToday     int `json:"classes_today"`
	StudentsAssigned int `json:"students_assigned"`
}

// StudentDashboard summarises a student's balance and schedule.
type StudentDashboard struct {
	RemainingHours  float64      `json:"remaining_hours"`
	ContractedHours float64      `json:"contracted_hours"`
	NextClass       *ClassDetail `json:"next_class,omitempty"`
}
