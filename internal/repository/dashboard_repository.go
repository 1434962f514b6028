package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

// DashboardRepository serves the counter queries behind role dashboards.
type DashboardRepository struct {
	db *sqlx.DB
}

// NewDashboardRepository constructs a DashboardRepository.
func NewDashboardRepository(db *sqlx.DB) *DashboardRepository {
	return &DashboardRepository{db: db}
}

// CountActiveStudents returns the number of unblocked students.
func (r *DashboardRepository) CountActiveStudents(ctx context.Context) (int, error) {
	return r.count(ctx, `SELECT COUNT(*) FROM students WHERE blocked = FALSE`)
}

// CountActiveTeachers returns the number of active teachers.
func (r *DashboardRepository) CountActiveTeachers(ctx context.Context) (int, error) {
	return r.count(ctx, `SELECT COUNT(*) FROM teachers WHERE active = TRUE`)
}

// CountClassesOn returns the number of classes on the given date.
func (r *DashboardRepository) CountClassesOn(ctx context.Context, date time.Time) (int, error) {
	return r.count(ctx, `SELECT COUNT(*) FROM classes WHERE date = $1`, date)
}

// CountClassesForTeacherOn returns how many classes a teacher has on a date.
func (r *DashboardRepository) CountClassesForTeacherOn(ctx context.Context, teacherID string, date time.Time) (int, error) {
	return r.count(ctx, `SELECT COUNT(*) FROM classes WHERE teacher_id = $1 AND date = $2`, teacherID, date)
}

// CountStudentsBySeller returns a seller's portfolio size.
func (r *DashboardRepository) CountStudentsBySeller(ctx context.Context, sellerID string) (int, error) {
	return r.count(ctx, `SELECT COUNT(*) FROM students WHERE seller_id = $1`, sellerID)
}

// CountStudentsByTeacher returns how many students a teacher is assigned.
func (r *DashboardRepository) CountStudentsByTeacher(ctx context.Context, teacherID string) (int, error) {
	return r.count(ctx, `SELECT COUNT(*) FROM students WHERE teacher_id = $1`, teacherID)
}

// CountUnreadAlerts returns the number of unread alerts, optionally scoped
// to a recipient.
func (r *DashboardRepository) CountUnreadAlerts(ctx context.Context, recipientID string) (int, error) {
	if recipientID == "" {
		return r.count(ctx, `SELECT COUNT(*) FROM alerts WHERE read = FALSE`)
	}
	return r.count(ctx, `SELECT COUNT(*) FROM alerts WHERE recipient_id = $1 AND read = FALSE`, recipientID)
}

func (r *DashboardRepository) count(ctx context.Context, query string, args ...interface{}) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, query, args...); err != nil {
		return 0, fmt.Errorf("dashboard count: %w", err)
	}
	return count, nil
}
