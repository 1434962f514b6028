package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/brightpath-english/academy-api/internal/models"
)

// SlotRepository manages persistence for weekly recurring slots.
type SlotRepository struct {
	db *sqlx.DB
}

// NewSlotRepository constructs a SlotRepository.
func NewSlotRepository(db *sqlx.DB) *SlotRepository {
	return &SlotRepository{db: db}
}

// ListByStudent returns a student's slots, optionally only the active set.
func (r *SlotRepository) ListByStudent(ctx context.Context, studentID string, onlyActive bool) ([]models.RecurringSlot, error) {
	query := `SELECT id, student_id, weekday, start_time, end_time, duration_minutes, active, created_at
        FROM recurring_slots WHERE student_id = $1`
	if onlyActive {
		query += " AND active = TRUE"
	}
	query += " ORDER BY weekday, start_time"
	var slots []models.RecurringSlot
	if err := r.db.SelectContext(ctx, &slots, query, studentID); err != nil {
		return nil, fmt.Errorf("list slots: %w", err)
	}
	return slots, nil
}

// ListActiveByStudents returns the active slots for a set of students.
func (r *SlotRepository) ListActiveByStudents(ctx context.Context, studentIDs []string) ([]models.RecurringSlot, error) {
	if len(studentIDs) == 0 {
		return nil, nil
	}
	query, args, err := sqlx.In(`SELECT id, student_id, weekday, start_time, end_time, duration_minutes, active, created_at
        FROM recurring_slots WHERE active = TRUE AND student_id IN (?) ORDER BY student_id, weekday, start_time`, studentIDs)
	if err != nil {
		return nil, fmt.Errorf("build slots query: %w", err)
	}
	query = r.db.Rebind(query)
	var slots []models.RecurringSlot
	if err := r.db.SelectContext(ctx, &slots, query, args...); err != nil {
		return nil, fmt.Errorf("list active slots: %w", err)
	}
	return slots, nil
}

// ReplaceForStudent deactivates the student's current active slots and
// inserts the new set in a single transaction, preserving history.
func (r *SlotRepository) ReplaceForStudent(ctx context.Context, studentID string, slots []models.RecurringSlot) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace slots: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `UPDATE recurring_slots SET active = FALSE WHERE student_id = $1 AND active = TRUE`, studentID); err != nil {
		return fmt.Errorf("deactivate slots: %w", err)
	}

	const insert = `INSERT INTO recurring_slots (id, student_id, weekday, start_time, end_time, duration_minutes, active, created_at)
        VALUES (:id, :student_id, :weekday, :start_time, :end_time, :duration_minutes, :active, :created_at)`
	now := time.Now().UTC()
	for i := range slots {
		slot := &slots[i]
		if slot.ID == "" {
			slot.ID = uuid.NewString()
		}
		slot.StudentID = studentID
		slot.Active = true
		if slot.CreatedAt.IsZero() {
			slot.CreatedAt = now
		}
		if _, err := tx.NamedExecContext(ctx, insert, slot); err != nil {
			return fmt.Errorf("insert slot: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit replace slots: %w", err)
	}
	return nil
}
