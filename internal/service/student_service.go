package service

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/brightpath-english/academy-api/internal/models"
	appErrors "github.com/brightpath-english/academy-api/pkg/errors"
)

type studentStore interface {
	List(ctx context.Context, filter models.StudentFilter) ([]models.StudentDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.StudentDetail, error)
	Create(ctx context.Context, student *models.Student) error
	Update(ctx context.Context, student *models.Student) error
	SetBlocked(ctx context.Context, id string, blocked bool, reason *string) error
	Delete(ctx context.Context, id string) error
}

type studentUserStore interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	Delete(ctx context.Context, id string) error
}

type studentTeacherSource interface {
	FindByID(ctx context.Context, id string) (*models.Teacher, error)
}

// CreateStudentRequest enrolls a new student: one user account plus the
// student profile.
type CreateStudentRequest struct {
	FullName  string  `json:"full_name" validate:"required"`
	Email     string  `json:"email" validate:"required,email"`
	Password  string  `json:"password" validate:"required,min=8"`
	Phone     *string `json:"phone"`
	Level     string  `json:"level" validate:"required"`
	Hours     float64 `json:"hours" validate:"gte=0"`
	TeacherID *string `json:"teacher_id"`
	SellerID  string  `json:"seller_id" validate:"required,uuid4"`
}

// UpdateStudentRequest holds the mutable profile fields.
type UpdateStudentRequest struct {
	FullName  string  `json:"full_name" validate:"required"`
	Phone     *string `json:"phone"`
	Level     string  `json:"level" validate:"required"`
	TeacherID *string `json:"teacher_id"`
	SellerID  string  `json:"seller_id" validate:"required,uuid4"`
}

// BlockStudentRequest toggles the enrollment block.
type BlockStudentRequest struct {
	Blocked bool    `json:"blocked"`
	Reason  *string `json:"reason"`
}

// StudentService handles student enrollment and profile management.
type StudentService struct {
	students  studentStore
	users     studentUserStore
	teachers  studentTeacherSource
	validator *validator.Validate
	logger    *zap.Logger
}

// NewStudentService constructs the student service.
func NewStudentService(students studentStore, users studentUserStore, teachers studentTeacherSource, validate *validator.Validate, logger *zap.Logger) *StudentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StudentService{students: students, users: users, teachers: teachers, validator: validate, logger: logger}
}

// List returns students and pagination metadata. Sellers are scoped to their
// own portfolio at the handler level via the filter.
func (s *StudentService) List(ctx context.Context, filter models.StudentFilter) ([]models.StudentDetail, *models.Pagination, error) {
	students, total, err := s.students.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list students")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return students, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get returns one student with assignment context.
func (s *StudentService) Get(ctx context.Context, id string) (*models.StudentDetail, error) {
	student, err := s.students.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	return student, nil
}

// Create enrolls a student. The user account is created first; if the profile
// insert fails the account is deleted again so enrollment stays atomic from
// the caller's point of view.
func (s *StudentService) Create(ctx context.Context, req CreateStudentRequest) (*models.StudentDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	if !models.ValidLevel(req.Level) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "level must be one of "+strings.Join(models.Levels, ", "))
	}
	if err := s.checkTeacher(ctx, req.TeacherID); err != nil {
		return nil, err
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if existing, err := s.users.FindByEmail(ctx, email); err == nil && existing != nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "email already registered")
	} else if err != nil && err != sql.ErrNoRows {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check email")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}

	now := time.Now().UTC()
	user := &models.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: string(hash),
		FullName:     req.FullName,
		Role:         models.RoleStudent,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create user account")
	}

	student := &models.Student{
		ID:              uuid.NewString(),
		UserID:          user.ID,
		FullName:        req.FullName,
		Email:           email,
		Phone:           req.Phone,
		Level:           req.Level,
		ContractedHours: req.Hours,
		RemainingHours:  req.Hours,
		TeacherID:       req.TeacherID,
		SellerID:        req.SellerID,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.students.Create(ctx, student); err != nil {
		if delErr := s.users.Delete(ctx, user.ID); delErr != nil {
			s.logger.Error("failed to roll back user after profile insert failure",
				zap.String("user_id", user.ID), zap.Error(delErr))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create student")
	}

	return s.Get(ctx, student.ID)
}

// Update replaces the mutable profile fields.
func (s *StudentService) Update(ctx context.Context, id string, req UpdateStudentRequest) (*models.StudentDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	if !models.ValidLevel(req.Level) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "level must be one of "+strings.Join(models.Levels, ", "))
	}
	if err := s.checkTeacher(ctx, req.TeacherID); err != nil {
		return nil, err
	}

	existing, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	student := existing.Student
	student.FullName = req.FullName
	student.Phone = req.Phone
	student.Level = req.Level
	student.TeacherID = req.TeacherID
	student.SellerID = req.SellerID
	student.UpdatedAt = time.Now().UTC()

	if err := s.students.Update(ctx, &student); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update student")
	}
	return s.Get(ctx, id)
}

// SetBlocked blocks or unblocks enrollment. Blocked students are excluded
// from class generation until unblocked.
func (s *StudentService) SetBlocked(ctx context.Context, id string, req BlockStudentRequest) (*models.StudentDetail, error) {
	if req.Blocked && (req.Reason == nil || strings.TrimSpace(*req.Reason) == "") {
		return nil, appErrors.Clone(appErrors.ErrValidation, "blocking requires a reason")
	}
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	reason := req.Reason
	if !req.Blocked {
		reason = nil
	}
	if err := s.students.SetBlocked(ctx, id, req.Blocked, reason); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update block state")
	}
	return s.Get(ctx, id)
}

// Delete removes the student profile and its user account.
func (s *StudentService) Delete(ctx context.Context, id string) error {
	student, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.students.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete student")
	}
	if err := s.users.Delete(ctx, student.UserID); err != nil {
		s.logger.Error("student profile deleted but user removal failed",
			zap.String("user_id", student.UserID), zap.Error(err))
	}
	return nil
}

func (s *StudentService) checkTeacher(ctx context.Context, teacherID *string) error {
	if teacherID == nil {
		return nil
	}
	if _, err := s.teachers.FindByID(ctx, *teacherID); err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrValidation, "teacher not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher")
	}
	return nil
}
