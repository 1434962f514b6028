package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/brightpath-english/academy-api/internal/models"
)

// ClassRepository manages persistence for class instances.
type ClassRepository struct {
	db *sqlx.DB
}

// NewClassRepository constructs a ClassRepository.
func NewClassRepository(db *sqlx.DB) *ClassRepository {
	return &ClassRepository{db: db}
}

const classColumns = `c.id, c.student_id, c.teacher_id, c.date, c.start_time, c.end_time, c.duration_minutes,
        c.status, c.teacher_notes, c.room_link, c.reminder_sent, c.created_at, c.updated_at`

// List returns class details matching the provided filters.
func (r *ClassRepository) List(ctx context.Context, filter models.ClassFilter) ([]models.ClassDetail, int, error) {
	args := []interface{}{}
	conditions := []string{"1=1"}

	if filter.StudentID != "" {
		conditions = append(conditions, fmt.Sprintf("c.student_id = $%d", len(args)+1))
		args = append(args, filter.StudentID)
	}
	if filter.TeacherID != "" {
		conditions = append(conditions, fmt.Sprintf("c.teacher_id = $%d", len(args)+1))
		args = append(args, filter.TeacherID)
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("c.status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}
	if filter.DateFrom != nil {
		conditions = append(conditions, fmt.Sprintf("c.date >= $%d", len(args)+1))
		args = append(args, *filter.DateFrom)
	}
	if filter.DateTo != nil {
		conditions = append(conditions, fmt.Sprintf("c.date <= $%d", len(args)+1))
		args = append(args, *filter.DateTo)
	}

	where := strings.Join(conditions, " AND ")
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT %s, s.full_name AS student_name, t.full_name AS teacher_name
        FROM classes c
        LEFT JOIN students s ON s.id = c.student_id
        LEFT JOIN teachers t ON t.id = c.teacher_id
        WHERE %s ORDER BY c.date, c.start_time LIMIT %d OFFSET %d`, classColumns, where, size, offset)

	var classes []models.ClassDetail
	if err := r.db.SelectContext(ctx, &classes, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list classes: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM classes c WHERE %s", where)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count classes: %w", err)
	}
	return classes, total, nil
}

// FindByID fetches a class instance by ID.
func (r *ClassRepository) FindByID(ctx context.Context, id string) (*models.ClassInstance, error) {
	query := fmt.Sprintf("SELECT %s FROM classes c WHERE c.id = $1", classColumns)
	var class models.ClassInstance
	if err := r.db.GetContext(ctx, &class, query, id); err != nil {
		return nil, err
	}
	return &class, nil
}

// FindDetailByID fetches a class with participant names.
func (r *ClassRepository) FindDetailByID(ctx context.Context, id string) (*models.ClassDetail, error) {
	query := fmt.Sprintf(`SELECT %s, s.full_name AS student_name, t.full_name AS teacher_name
        FROM classes c
        LEFT JOIN students s ON s.id = c.student_id
        LEFT JOIN teachers t ON t.id = c.teacher_id
        WHERE c.id = $1`, classColumns)
	var detail models.ClassDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		return nil, err
	}
	return &detail, nil
}

// ListBetween returns all classes with dates inside [from, to], regardless
// of status. The generator uses this to build its duplicate-avoidance set.
func (r *ClassRepository) ListBetween(ctx context.Context, from, to time.Time) ([]models.ClassInstance, error) {
	query := fmt.Sprintf("SELECT %s FROM classes c WHERE c.date >= $1 AND c.date <= $2", classColumns)
	var classes []models.ClassInstance
	if err := r.db.SelectContext(ctx, &classes, query, from, to); err != nil {
		return nil, fmt.Errorf("list classes between: %w", err)
	}
	return classes, nil
}

// Create inserts a single class instance.
func (r *ClassRepository) Create(ctx context.Context, class *models.ClassInstance) error {
	prepareClassInsert(class)
	if _, err := r.db.NamedExecContext(ctx, classInsertQuery, class); err != nil {
		return fmt.Errorf("create class: %w", err)
	}
	return nil
}

const classInsertQuery = `INSERT INTO classes (id, student_id, teacher_id, date, start_time, end_time, duration_minutes, status, teacher_notes, room_link, reminder_sent, created_at, updated_at)
        VALUES (:id, :student_id, :teacher_id, :date, :start_time, :end_time, :duration_minutes, :status, :teacher_notes, :room_link, :reminder_sent, :created_at, :updated_at)`

func prepareClassInsert(class *models.ClassInstance) {
	if class.ID == "" {
		class.ID = uuid.NewString()
	}
	if class.Status == "" {
		class.Status = models.ClassScheduled
	}
	now := time.Now().UTC()
	if class.CreatedAt.IsZero() {
		class.CreatedAt = now
	}
	class.UpdatedAt = now
}

// BulkCreate inserts all classes inside one transaction so a generation run
// is all-or-nothing.
func (r *ClassRepository) BulkCreate(ctx context.Context, classes []models.ClassInstance) error {
	if len(classes) == 0 {
		return nil
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin bulk create: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	for i := range classes {
		prepareClassInsert(&classes[i])
		if _, err := tx.NamedExecContext(ctx, classInsertQuery, &classes[i]); err != nil {
			return fmt.Errorf("insert class: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit bulk create: %w", err)
	}
	return nil
}

// TransitionFromScheduled moves a class out of the scheduled state. The
// WHERE clause is the compare-and-swap: it reports false when the class was
// already terminal, so callers can reject double transitions and never
// deduct hours twice.
func (r *ClassRepository) TransitionFromScheduled(ctx context.Context, id string, status models.ClassStatus, notes *string) (bool, error) {
	const query = `UPDATE classes SET status = $2, teacher_notes = COALESCE($3, teacher_notes), updated_at = $4
        WHERE id = $1 AND status = 'scheduled'`
	res, err := r.db.ExecContext(ctx, query, id, status, notes, time.Now().UTC())
	if err != nil {
		return false, fmt.Errorf("transition class: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("transition class result: %w", err)
	}
	return affected == 1, nil
}

// ListUpcomingByStudent returns the student's scheduled classes from the
// given date forward, ordered by start.
func (r *ClassRepository) ListUpcomingByStudent(ctx context.Context, studentID string, from time.Time) ([]models.ClassDetail, error) {
	query := fmt.Sprintf(`SELECT %s, s.full_name AS student_name, t.full_name AS teacher_name
        FROM classes c
        LEFT JOIN students s ON s.id = c.student_id
        LEFT JOIN teachers t ON t.id = c.teacher_id
        WHERE c.student_id = $1 AND c.status = 'scheduled' AND c.date >= $2
        ORDER BY c.date, c.start_time`, classColumns)
	var classes []models.ClassDetail
	if err := r.db.SelectContext(ctx, &classes, query, studentID, from); err != nil {
		return nil, fmt.Errorf("list upcoming classes: %w", err)
	}
	return classes, nil
}

// ListDueForReminder returns scheduled classes starting inside [from, to]
// whose reminder has not yet been sent, with student contact data joined on.
func (r *ClassRepository) ListDueForReminder(ctx context.Context, from, to time.Time) ([]models.ClassReminder, error) {
	query := fmt.Sprintf(`SELECT %s, s.full_name AS student_name, s.email AS student_email, s.phone AS student_phone, t.full_name AS teacher_name
        FROM classes c
        JOIN students s ON s.id = c.student_id
        LEFT JOIN teachers t ON t.id = c.teacher_id
        WHERE c.status = 'scheduled' AND c.reminder_sent = FALSE
          AND (c.date + c.start_time::time) >= $1 AND (c.date + c.start_time::time) <= $2
        ORDER BY c.date, c.start_time`, classColumns)
	var reminders []models.ClassReminder
	if err := r.db.SelectContext(ctx, &reminders, query, from, to); err != nil {
		return nil, fmt.Errorf("list reminder classes: %w", err)
	}
	return reminders, nil
}

// MarkReminderSent flags a class so a re-run of the sweep skips it.
func (r *ClassRepository) MarkReminderSent(ctx context.Context, id string) error {
	const query = `UPDATE classes SET reminder_sent = TRUE, updated_at = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, time.Now().UTC()); err != nil {
		return fmt.Errorf("mark reminder sent: %w", err)
	}
	return nil
}

// ListRecentNoShows returns no-show classes updated since the given time,
// with the student's seller joined on for the missed-class sweep.
func (r *ClassRepository) ListRecentNoShows(ctx context.Context, since time.Time) ([]models.ClassDetail, error) {
	query := fmt.Sprintf(`SELECT %s, s.full_name AS student_name, t.full_name AS teacher_name
        FROM classes c
        JOIN students s ON s.id = c.student_id
        LEFT JOIN teachers t ON t.id = c.teacher_id
        WHERE c.status = 'no_show' AND c.updated_at >= $1
        ORDER BY c.updated_at`, classColumns)
	var classes []models.ClassDetail
	if err := r.db.SelectContext(ctx, &classes, query, since); err != nil {
		return nil, fmt.Errorf("list recent no-shows: %w", err)
	}
	return classes, nil
}

// DeleteScheduled removes a class only while it is still scheduled.
func (r *ClassRepository) DeleteScheduled(ctx context.Context, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM classes WHERE id = $1 AND status = 'scheduled'`, id)
	if err != nil {
		return false, fmt.Errorf("delete class: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete class result: %w", err)
	}
	return affected == 1, nil
}
