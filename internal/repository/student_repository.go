package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/brightpath-english/academy-api/internal/models"
)

// StudentRepository manages persistence for student records.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository constructs a StudentRepository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

const studentDetailColumns = `s.id, s.user_id, s.full_name, s.email, s.phone, s.level, s.contracted_hours, s.remaining_hours,
        s.blocked, s.blocked_reason, s.teacher_id, s.seller_id, s.created_at, s.updated_at,
        t.full_name AS teacher_name, u.full_name AS seller_name`

const studentDetailJoins = `FROM students s
        LEFT JOIN teachers t ON t.id = s.teacher_id
        LEFT JOIN users u ON u.id = s.seller_id`

// List returns students matching the provided filters.
func (r *StudentRepository) List(ctx context.Context, filter models.StudentFilter) ([]models.StudentDetail, int, error) {
	args := []interface{}{}
	conditions := []string{"1=1"}

	if filter.SellerID != "" {
		conditions = append(conditions, fmt.Sprintf("s.seller_id = $%d", len(args)+1))
		args = append(args, filter.SellerID)
	}
	if filter.TeacherID != "" {
		conditions = append(conditions, fmt.Sprintf("s.teacher_id = $%d", len(args)+1))
		args = append(args, filter.TeacherID)
	}
	if filter.Level != "" {
		conditions = append(conditions, fmt.Sprintf("s.level = $%d", len(args)+1))
		args = append(args, filter.Level)
	}
	if filter.Blocked != nil {
		conditions = append(conditions, fmt.Sprintf("s.blocked = $%d", len(args)+1))
		args = append(args, *filter.Blocked)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(LOWER(s.full_name) LIKE $%d OR LOWER(s.email) LIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}

	where := strings.Join(conditions, " AND ")

	sortBy := filter.SortBy
	allowedSorts := map[string]string{
		"full_name":       "s.full_name",
		"level":           "s.level",
		"remaining_hours": "s.remaining_hours",
		"created_at":      "s.created_at",
	}
	if sortBy == "" {
		sortBy = "created_at"
	}
	column, ok := allowedSorts[sortBy]
	if !ok {
		column = "s.created_at"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "DESC"
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT %s %s WHERE %s ORDER BY %s %s LIMIT %d OFFSET %d`,
		studentDetailColumns, studentDetailJoins, where, column, order, size, offset)

	var students []models.StudentDetail
	if err := r.db.SelectContext(ctx, &students, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list students: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM students s WHERE %s", where)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count students: %w", err)
	}
	return students, total, nil
}

// FindByID fetches a student detail by ID.
func (r *StudentRepository) FindByID(ctx context.Context, id string) (*models.StudentDetail, error) {
	query := fmt.Sprintf("SELECT %s %s WHERE s.id = $1", studentDetailColumns, studentDetailJoins)
	var detail models.StudentDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		return nil, err
	}
	return &detail, nil
}

// FindByUserID fetches the student profile owned by the given account.
func (r *StudentRepository) FindByUserID(ctx context.Context, userID string) (*models.StudentDetail, error) {
	query := fmt.Sprintf("SELECT %s %s WHERE s.user_id = $1", studentDetailColumns, studentDetailJoins)
	var detail models.StudentDetail
	if err := r.db.GetContext(ctx, &detail, query, userID); err != nil {
		return nil, err
	}
	return &detail, nil
}

// Create inserts a new student record.
func (r *StudentRepository) Create(ctx context.Context, student *models.Student) error {
	if student.ID == "" {
		student.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if student.CreatedAt.IsZero() {
		student.CreatedAt = now
	}
	student.UpdatedAt = now
	const query = `INSERT INTO students (id, user_id, full_name, email, phone, level, contracted_hours, remaining_hours, blocked, blocked_reason, teacher_id, seller_id, created_at, updated_at)
        VALUES (:id, :user_id, :full_name, :email, :phone, :level, :contracted_hours, :remaining_hours, :blocked, :blocked_reason, :teacher_id, :seller_id, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, student); err != nil {
		return fmt.Errorf("create student: %w", err)
	}
	return nil
}

// Update modifies an existing student's profile fields.
func (r *StudentRepository) Update(ctx context.Context, student *models.Student) error {
	student.UpdatedAt = time.Now().UTC()
	const query = `UPDATE students SET full_name = :full_name, email = :email, phone = :phone, level = :level, teacher_id = :teacher_id, seller_id = :seller_id, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, student); err != nil {
		return fmt.Errorf("update student: %w", err)
	}
	return nil
}

// SetBlocked toggles the blocked flag with an optional reason.
func (r *StudentRepository) SetBlocked(ctx context.Context, id string, blocked bool, reason *string) error {
	const query = `UPDATE students SET blocked = $2, blocked_reason = $3, updated_at = $4 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, blocked, reason, time.Now().UTC()); err != nil {
		return fmt.Errorf("set student blocked: %w", err)
	}
	return nil
}

// AddHours raises both contracted and remaining hours by the given amount.
func (r *StudentRepository) AddHours(ctx context.Context, id string, amount float64) error {
	const query = `UPDATE students SET contracted_hours = contracted_hours + $2, remaining_hours = remaining_hours + $2, updated_at = $3 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id, amount, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("add hours: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("add hours result: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// DeductHours lowers remaining hours by minutes/60, clamped at zero in SQL
// so concurrent deductions can never drive the balance negative.
// It returns the resulting balance.
func (r *StudentRepository) DeductHours(ctx context.Context, id string, durationMinutes int) (float64, error) {
	const query = `UPDATE students SET remaining_hours = GREATEST(remaining_hours - $2, 0), updated_at = $3 WHERE id = $1 RETURNING remaining_hours`
	hours := float64(durationMinutes) / 60
	var remaining float64
	if err := r.db.GetContext(ctx, &remaining, query, id, hours, time.Now().UTC()); err != nil {
		return 0, fmt.Errorf("deduct hours: %w", err)
	}
	return remaining, nil
}

// ListEligibleForGeneration returns students that may receive generated
// classes: not blocked, positive balance, assigned teacher, and at least one
// active recurring slot.
func (r *StudentRepository) ListEligibleForGeneration(ctx context.Context) ([]models.Student, error) {
	const query = `SELECT s.id, s.user_id, s.full_name, s.email, s.phone, s.level, s.contracted_hours, s.remaining_hours,
        s.blocked, s.blocked_reason, s.teacher_id, s.seller_id, s.created_at, s.updated_at
        FROM students s
        WHERE s.blocked = FALSE
          AND s.remaining_hours > 0
          AND s.teacher_id IS NOT NULL
          AND EXISTS (SELECT 1 FROM recurring_slots rs WHERE rs.student_id = s.id AND rs.active = TRUE)
        ORDER BY s.created_at`
	var students []models.Student
	if err := r.db.SelectContext(ctx, &students, query); err != nil {
		return nil, fmt.Errorf("list eligible students: %w", err)
	}
	return students, nil
}

// ListUnassigned returns active students without a teacher, for the alert sweep.
func (r *StudentRepository) ListUnassigned(ctx context.Context) ([]models.Student, error) {
	const query = `SELECT s.id, s.user_id, s.full_name, s.email, s.phone, s.level, s.contracted_hours, s.remaining_hours,
        s.blocked, s.blocked_reason, s.teacher_id, s.seller_id, s.created_at, s.updated_at
        FROM students s WHERE s.blocked = FALSE AND s.teacher_id IS NULL ORDER BY s.created_at`
	var students []models.Student
	if err := r.db.SelectContext(ctx, &students, query); err != nil {
		return nil, fmt.Errorf("list unassigned students: %w", err)
	}
	return students, nil
}

// Delete removes a student row. Used only to compensate a failed registration.
func (r *StudentRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM students WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete student: %w", err)
	}
	return nil
}
