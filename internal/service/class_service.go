package service

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/brightpath-english/academy-api/internal/models"
	appErrors "github.com/brightpath-english/academy-api/pkg/errors"
)

type classStore interface {
	List(ctx context.Context, filter models.ClassFilter) ([]models.ClassDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.ClassInstance, error)
	FindDetailByID(ctx context.Context, id string) (*models.ClassDetail, error)
	Create(ctx context.Context, class *models.ClassInstance) error
	TransitionFromScheduled(ctx context.Context, id string, status models.ClassStatus, notes *string) (bool, error)
	DeleteScheduled(ctx context.Context, id string) (bool, error)
}

type classStudentSource interface {
	FindByUserID(ctx context.Context, userID string) (*models.StudentDetail, error)
}

type classTeacherSource interface {
	FindByID(ctx context.Context, id string) (*models.Teacher, error)
}

type classUserSource interface {
	ListActiveEmailsByRole(ctx context.Context, role models.UserRole) ([]string, error)
}

type classLedger interface {
	DeductForClass(ctx context.Context, studentID string, durationMinutes int) (float64, error)
}

type classNotifier interface {
	Enqueue(n models.Notification)
}

// ClassPolicy carries the timing rules around joining and cancelling.
type ClassPolicy struct {
	JoinEarlyWindow   time.Duration
	JoinLateGrace     time.Duration
	CancelNoticeHours int
}

// JoinResult reports the outcome of a join attempt. TooEarly still carries
// the room link so the client can show it ahead of the window.
type JoinResult struct {
	Status   string    `json:"status"`
	RoomLink *string   `json:"room_link,omitempty"`
	StartsAt time.Time `json:"starts_at"`
}

const (
	JoinStatusJoined   = "joined"
	JoinStatusTooEarly = "too_early"
	JoinStatusEnded    = "ended"
)

// CreateClassRequest holds payload for an admin-created class.
type CreateClassRequest struct {
	StudentID string `json:"student_id" validate:"required,uuid4"`
	TeacherID string `json:"teacher_id" validate:"required,uuid4"`
	Date      string `json:"date" validate:"required,datetime=2006-01-02"`
	StartTime string `json:"start_time" validate:"required"`
	EndTime   string `json:"end_time" validate:"required"`
}

// MarkClassRequest holds the teacher's outcome for a class.
type MarkClassRequest struct {
	Status models.ClassStatus `json:"status" validate:"required"`
	Notes  *string            `json:"notes"`
}

// ClassService handles the class lifecycle: listing, direct creation, the
// student join gate, teacher marking and cancellation. Every transition off
// `scheduled` goes through a compare-and-swap so concurrent callers cannot
// double-apply it.
type ClassService struct {
	classes   classStore
	students  classStudentSource
	teachers  classTeacherSource
	users     classUserSource
	ledger    classLedger
	notifier  classNotifier
	policy    ClassPolicy
	validator *validator.Validate
	logger    *zap.Logger
}

// NewClassService constructs the class service.
func NewClassService(classes classStore, students classStudentSource, teachers classTeacherSource, users classUserSource, ledger classLedger, notifier classNotifier, policy ClassPolicy, validate *validator.Validate, logger *zap.Logger) *ClassService {
	if policy.JoinEarlyWindow <= 0 {
		policy.JoinEarlyWindow = 30 * time.Minute
	}
	if policy.JoinLateGrace <= 0 {
		policy.JoinLateGrace = 15 * time.Minute
	}
	if policy.CancelNoticeHours <= 0 {
		policy.CancelNoticeHours = 24
	}
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ClassService{
		classes:   classes,
		students:  students,
		teachers:  teachers,
		users:     users,
		ledger:    ledger,
		notifier:  notifier,
		policy:    policy,
		validator: validate,
		logger:    logger,
	}
}

// List returns classes scoped to the caller: students and teachers only ever
// see their own, admins see whatever the filter selects.
func (s *ClassService) List(ctx context.Context, caller models.Caller, filter models.ClassFilter) ([]models.ClassDetail, *models.Pagination, error) {
	switch caller.Role {
	case models.RoleStudent:
		student, err := s.callerStudent(ctx, caller)
		if err != nil {
			return nil, nil, err
		}
		filter.StudentID = student.ID
	case models.RoleTeacher:
		filter.TeacherID = caller.UserID
	}

	classes, total, err := s.classes.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list classes")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return classes, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get returns one class with participant names, subject to the same scoping
// as List. Classes outside the caller's scope read as not found.
func (s *ClassService) Get(ctx context.Context, caller models.Caller, id string) (*models.ClassDetail, error) {
	detail, err := s.classes.FindDetailByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}
	if err := s.authorize(ctx, caller, &detail.ClassInstance); err != nil {
		return nil, err
	}
	return detail, nil
}

// Create inserts a class directly, outside the generator. Admin only (route
// level). The room link is snapshotted from the teacher at creation time.
func (s *ClassService) Create(ctx context.Context, req CreateClassRequest) (*models.ClassInstance, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	duration, err := models.MinutesBetween(req.StartTime, req.EndTime)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "date must be YYYY-MM-DD")
	}
	teacher, err := s.teachers.FindByID(ctx, req.TeacherID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher")
	}

	class := &models.ClassInstance{
		ID:              uuid.NewString(),
		StudentID:       req.StudentID,
		TeacherID:       req.TeacherID,
		Date:            date,
		StartTime:       req.StartTime,
		EndTime:         req.EndTime,
		DurationMinutes: duration,
		Status:          models.ClassScheduled,
		RoomLink:        teacher.RoomLink,
	}
	if err := s.classes.Create(ctx, class); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create class")
	}
	return class, nil
}

// Delete removes a future scheduled class. Classes in a terminal state are
// never deleted.
func (s *ClassService) Delete(ctx context.Context, id string) error {
	deleted, err := s.classes.DeleteScheduled(ctx, id)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete class")
	}
	if deleted {
		return nil
	}
	if _, err := s.classes.FindByID(ctx, id); err == sql.ErrNoRows {
		return appErrors.Clone(appErrors.ErrNotFound, "class not found")
	}
	return appErrors.Clone(appErrors.ErrStateConflict, "only scheduled classes can be deleted")
}

// Join applies the join-window gate for the calling student. Inside the
// window the class transitions to completed and hours are deducted; too
// early returns the room link without a state change; after the window the
// class is left untouched for the teacher to mark.
func (s *ClassService) Join(ctx context.Context, caller models.Caller, classID string, now time.Time) (*JoinResult, error) {
	class, err := s.loadClass(ctx, classID)
	if err != nil {
		return nil, err
	}
	student, err := s.callerStudent(ctx, caller)
	if err != nil {
		return nil, err
	}
	if class.StudentID != student.ID {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
	}
	if class.Status != models.ClassScheduled {
		return nil, appErrors.Clone(appErrors.ErrStateConflict, fmt.Sprintf("class is already %s", class.Status))
	}

	start := class.StartsAt()
	opensAt := start.Add(-s.policy.JoinEarlyWindow)
	closesAt := class.EndsAt().Add(s.policy.JoinLateGrace)

	if now.Before(opensAt) {
		return &JoinResult{Status: JoinStatusTooEarly, RoomLink: class.RoomLink, StartsAt: start}, nil
	}
	if now.After(closesAt) {
		return &JoinResult{Status: JoinStatusEnded, StartsAt: start}, nil
	}

	ok, err := s.classes.TransitionFromScheduled(ctx, class.ID, models.ClassCompleted, nil)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to join class")
	}
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrStateConflict, "class is no longer scheduled")
	}
	s.deduct(ctx, class)
	return &JoinResult{Status: JoinStatusJoined, RoomLink: class.RoomLink, StartsAt: start}, nil
}

// Mark records the outcome of a class. Teachers may only mark their own;
// admins may mark any. Completed and no-show outcomes deduct hours.
func (s *ClassService) Mark(ctx context.Context, caller models.Caller, classID string, req MarkClassRequest) (*models.ClassDetail, error) {
	if !req.Status.Terminal() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "status must be completed, cancelled or no_show")
	}
	class, err := s.loadClass(ctx, classID)
	if err != nil {
		return nil, err
	}
	if caller.Role == models.RoleTeacher && class.TeacherID != caller.UserID {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
	}

	ok, err := s.classes.TransitionFromScheduled(ctx, class.ID, req.Status, req.Notes)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to mark class")
	}
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrStateConflict, fmt.Sprintf("class is already %s", class.Status))
	}
	if req.Status.ConsumesHours() {
		s.deduct(ctx, class)
	}

	detail, err := s.classes.FindDetailByID(ctx, class.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}
	return detail, nil
}

// Cancel applies the cancellation policy for the calling student. Admins may
// cancel without notice. A cancellation never deducts hours; on success the
// teacher and the admins are notified through the outbox.
func (s *ClassService) Cancel(ctx context.Context, caller models.Caller, classID string, now time.Time) (*models.ClassDetail, error) {
	class, err := s.loadClass(ctx, classID)
	if err != nil {
		return nil, err
	}

	var studentName string
	if caller.Role == models.RoleStudent {
		student, err := s.callerStudent(ctx, caller)
		if err != nil {
			return nil, err
		}
		if class.StudentID != student.ID {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		studentName = student.FullName

		notice := time.Duration(s.policy.CancelNoticeHours) * time.Hour
		remaining := class.StartsAt().Sub(now)
		if remaining < notice {
			return nil, appErrors.Clone(appErrors.ErrPolicyViolation,
				fmt.Sprintf("cancellation requires %d hours notice, class starts in %s", s.policy.CancelNoticeHours, formatNotice(remaining)))
		}
	}

	if class.Status != models.ClassScheduled {
		return nil, appErrors.Clone(appErrors.ErrStateConflict, fmt.Sprintf("class is already %s", class.Status))
	}
	ok, err := s.classes.TransitionFromScheduled(ctx, class.ID, models.ClassCancelled, nil)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to cancel class")
	}
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrStateConflict, "class is no longer scheduled")
	}

	detail, err := s.classes.FindDetailByID(ctx, class.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}
	if studentName == "" && detail.StudentName != nil {
		studentName = *detail.StudentName
	}
	s.notifyCancellation(ctx, detail, studentName)
	return detail, nil
}

func (s *ClassService) notifyCancellation(ctx context.Context, class *models.ClassDetail, studentName string) {
	if s.notifier == nil {
		return
	}
	when := fmt.Sprintf("%s %s", class.Date.Format("2006-01-02"), class.StartTime)
	subject := "Class cancelled"
	body := fmt.Sprintf("The class with %s on %s has been cancelled.", studentName, when)

	teacher, err := s.teachers.FindByID(ctx, class.TeacherID)
	if err != nil {
		s.logger.Warn("cancellation notice: teacher lookup failed", zap.String("class_id", class.ID), zap.Error(err))
	} else {
		s.notifier.Enqueue(models.Notification{Channel: models.ChannelEmail, To: teacher.Email, Subject: subject, Body: body})
	}

	admins, err := s.users.ListActiveEmailsByRole(ctx, models.RoleAdmin)
	if err != nil {
		s.logger.Warn("cancellation notice: admin lookup failed", zap.String("class_id", class.ID), zap.Error(err))
		return
	}
	for _, email := range admins {
		s.notifier.Enqueue(models.Notification{Channel: models.ChannelEmail, To: email, Subject: subject, Body: body})
	}
}

func (s *ClassService) deduct(ctx context.Context, class *models.ClassInstance) {
	if s.ledger == nil {
		return
	}
	if _, err := s.ledger.DeductForClass(ctx, class.StudentID, class.DurationMinutes); err != nil {
		s.logger.Error("hour deduction failed after class transition",
			zap.String("class_id", class.ID), zap.String("student_id", class.StudentID), zap.Error(err))
	}
}

func (s *ClassService) authorize(ctx context.Context, caller models.Caller, class *models.ClassInstance) error {
	switch caller.Role {
	case models.RoleStudent:
		student, err := s.callerStudent(ctx, caller)
		if err != nil {
			return err
		}
		if class.StudentID != student.ID {
			return appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
	case models.RoleTeacher:
		if class.TeacherID != caller.UserID {
			return appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
	}
	return nil
}

func (s *ClassService) callerStudent(ctx context.Context, caller models.Caller) (*models.StudentDetail, error) {
	student, err := s.students.FindByUserID(ctx, caller.UserID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "no student profile for caller")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student profile")
	}
	return student, nil
}

func (s *ClassService) loadClass(ctx context.Context, id string) (*models.ClassInstance, error) {
	class, err := s.classes.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}
	return class, nil
}

func formatNotice(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	return d.Truncate(time.Minute).String()
}
