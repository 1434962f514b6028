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

type teacherStore interface {
	List(ctx context.Context, filter models.TeacherFilter) ([]models.Teacher, int, error)
	FindByID(ctx context.Context, id string) (*models.Teacher, error)
	ExistsByEmail(ctx context.Context, email string, excludeID string) (bool, error)
	Create(ctx context.Context, teacher *models.Teacher) error
	Update(ctx context.Context, teacher *models.Teacher) error
	Deactivate(ctx context.Context, id string) error
}

type teacherUserStore interface {
	Create(ctx context.Context, user *models.User) error
	Update(ctx context.Context, user *models.User) error
	FindByID(ctx context.Context, id string) (*models.User, error)
	Delete(ctx context.Context, id string) error
}

// CreateTeacherRequest holds payload for onboarding a teacher. The teacher
// row and the login account share one id so class ownership checks compare
// directly against the JWT subject.
type CreateTeacherRequest struct {
	FullName    string   `json:"full_name" validate:"required"`
	Email       string   `json:"email" validate:"required,email"`
	Password    string   `json:"password" validate:"required,min=8"`
	Phone       *string  `json:"phone"`
	Specialties []string `json:"specialties" validate:"required,min=1"`
	RoomLink    *string  `json:"room_link"`
}

// UpdateTeacherRequest holds the mutable teacher fields.
type UpdateTeacherRequest struct {
	FullName    string   `json:"full_name" validate:"required"`
	Phone       *string  `json:"phone"`
	Specialties []string `json:"specialties" validate:"required,min=1"`
	RoomLink    *string  `json:"room_link"`
	Active      bool     `json:"active"`
}

// TeacherService manages the instructor roster.
type TeacherService struct {
	teachers  teacherStore
	users     teacherUserStore
	validator *validator.Validate
	logger    *zap.Logger
}

// NewTeacherService constructs the teacher service.
func NewTeacherService(teachers teacherStore, users teacherUserStore, validate *validator.Validate, logger *zap.Logger) *TeacherService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TeacherService{teachers: teachers, users: users, validator: validate, logger: logger}
}

// List returns teachers matching the filter.
func (s *TeacherService) List(ctx context.Context, filter models.TeacherFilter) ([]models.Teacher, *models.Pagination, error) {
	teachers, total, err := s.teachers.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list teachers")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return teachers, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get returns a teacher by id.
func (s *TeacherService) Get(ctx context.Context, id string) (*models.Teacher, error) {
	teacher, err := s.teachers.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher")
	}
	return teacher, nil
}

// Create onboards a teacher together with a login account.
func (s *TeacherService) Create(ctx context.Context, req CreateTeacherRequest) (*models.Teacher, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	if err := validateLevels(req.Specialties); err != nil {
		return nil, err
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	exists, err := s.teachers.ExistsByEmail(ctx, email, "")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check email")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "email already registered")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}

	now := time.Now().UTC()
	id := uuid.NewString()
	user := &models.User{
		ID:           id,
		Email:        email,
		PasswordHash: string(hash),
		FullName:     req.FullName,
		Role:         models.RoleTeacher,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create user account")
	}

	teacher := &models.Teacher{
		ID:          id,
		Email:       email,
		FullName:    req.FullName,
		Phone:       req.Phone,
		Specialties: req.Specialties,
		RoomLink:    req.RoomLink,
		Active:      true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.teachers.Create(ctx, teacher); err != nil {
		if delErr := s.users.Delete(ctx, id); delErr != nil {
			s.logger.Error("failed to roll back user after teacher insert failure",
				zap.String("user_id", id), zap.Error(delErr))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create teacher")
	}
	return teacher, nil
}

// Update replaces the mutable teacher fields.
func (s *TeacherService) Update(ctx context.Context, id string, req UpdateTeacherRequest) (*models.Teacher, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	if err := validateLevels(req.Specialties); err != nil {
		return nil, err
	}

	teacher, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	teacher.FullName = req.FullName
	teacher.Phone = req.Phone
	teacher.Specialties = req.Specialties
	teacher.RoomLink = req.RoomLink
	teacher.Active = req.Active
	teacher.UpdatedAt = time.Now().UTC()

	if err := s.teachers.Update(ctx, teacher); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update teacher")
	}

	if user, err := s.users.FindByID(ctx, id); err == nil {
		user.FullName = req.FullName
		user.Active = req.Active
		user.UpdatedAt = teacher.UpdatedAt
		if err := s.users.Update(ctx, user); err != nil {
			s.logger.Warn("teacher updated but account sync failed", zap.String("teacher_id", id), zap.Error(err))
		}
	}
	return teacher, nil
}

// Deactivate retires a teacher from the roster without deleting history.
func (s *TeacherService) Deactivate(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.teachers.Deactivate(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to deactivate teacher")
	}
	return nil
}

func validateLevels(levels []string) error {
	for _, level := range levels {
		if !models.ValidLevel(level) {
			return appErrors.Clone(appErrors.ErrValidation, "specialties must be CEFR levels A1-C2")
		}
	}
	return nil
}
