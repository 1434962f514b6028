package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/brightpath-english/academy-api/internal/models"
	appErrors "github.com/brightpath-english/academy-api/pkg/errors"
)

type dashboardCounters interface {
	CountActiveStudents(ctx context.Context) (int, error)
	CountActiveTeachers(ctx context.Context) (int, error)
	CountClassesOn(ctx context.Context, date time.Time) (int, error)
	CountClassesForTeacherOn(ctx context.Context, teacherID string, date time.Time) (int, error)
	CountStudentsBySeller(ctx context.Context, sellerID string) (int, error)
	CountStudentsByTeacher(ctx context.Context, teacherID string) (int, error)
	CountUnreadAlerts(ctx context.Context, recipientID string) (int, error)
}

type dashboardStudentSource interface {
	FindByUserID(ctx context.Context, userID string) (*models.StudentDetail, error)
}

type dashboardClassSource interface {
	ListUpcomingByStudent(ctx context.Context, studentID string, from time.Time) ([]models.ClassDetail, error)
}

type dashboardCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// DashboardService composes the per-role landing counters. Payloads are
// cached per user with a short TTL; cache failures fall through to the
// database.
type DashboardService struct {
	counters dashboardCounters
	students dashboardStudentSource
	classes  dashboardClassSource
	cache    dashboardCache
	ttl      time.Duration
	logger   *zap.Logger
}

// NewDashboardService constructs the dashboard service.
func NewDashboardService(counters dashboardCounters, students dashboardStudentSource, classes dashboardClassSource, cache dashboardCache, ttl time.Duration, logger *zap.Logger) *DashboardService {
	if ttl <= 0 {
		ttl = time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DashboardService{counters: counters, students: students, classes: classes, cache: cache, ttl: ttl, logger: logger}
}

// ForCaller builds the dashboard matching the caller's role.
func (s *DashboardService) ForCaller(ctx context.Context, caller models.Caller, now time.Time) (interface{}, error) {
	switch caller.Role {
	case models.RoleAdmin:
		return s.admin(ctx, caller, now)
	case models.RoleSeller:
		return s.seller(ctx, caller)
	case models.RoleTeacher:
		return s.teacher(ctx, caller, now)
	case models.RoleStudent:
		return s.student(ctx, caller, now)
	default:
		return nil, appErrors.Clone(appErrors.ErrForbidden, "unknown role")
	}
}

func (s *DashboardService) admin(ctx context.Context, caller models.Caller, now time.Time) (*models.AdminDashboard, error) {
	key := s.cacheKey(caller)
	var cached models.AdminDashboard
	if s.cacheGet(ctx, key, &cached) {
		return &cached, nil
	}

	dash := &models.AdminDashboard{}
	var err error
	if dash.ActiveStudents, err = s.counters.CountActiveStudents(ctx); err != nil {
		return nil, s.countErr(err)
	}
	if dash.ActiveTeachers, err = s.counters.CountActiveTeachers(ctx); err != nil {
		return nil, s.countErr(err)
	}
	if dash.ClassesToday, err = s.counters.CountClassesOn(ctx, now); err != nil {
		return nil, s.countErr(err)
	}
	if dash.UnreadAlerts, err = s.counters.CountUnreadAlerts(ctx, caller.UserID); err != nil {
		return nil, s.countErr(err)
	}

	s.cacheSet(ctx, key, dash)
	return dash, nil
}

func (s *DashboardService) seller(ctx context.Context, caller models.Caller) (*models.SellerDashboard, error) {
	key := s.cacheKey(caller)
	var cached models.SellerDashboard
	if s.cacheGet(ctx, key, &cached) {
		return &cached, nil
	}

	dash := &models.SellerDashboard{}
	var err error
	if dash.Students, err = s.counters.CountStudentsBySeller(ctx, caller.UserID); err != nil {
		return nil, s.countErr(err)
	}
	if dash.UnreadAlerts, err = s.counters.CountUnreadAlerts(ctx, caller.UserID); err != nil {
		return nil, s.countErr(err)
	}

	s.cacheSet(ctx, key, dash)
	return dash, nil
}

func (s *DashboardService) teacher(ctx context.Context, caller models.Caller, now time.Time) (*models.TeacherDashboard, error) {
	key := s.cacheKey(caller)
	var cached models.TeacherDashboard
	if s.cacheGet(ctx, key, &cached) {
		return &cached, nil
	}

	dash := &models.TeacherDashboard{}
	var err error
	if dash.ClassesToday, err = s.counters.CountClassesForTeacherOn(ctx, caller.UserID, now); err != nil {
		return nil, s.countErr(err)
	}
	if dash.StudentsAssigned, err = s.counters.CountStudentsByTeacher(ctx, caller.UserID); err != nil {
		return nil, s.countErr(err)
	}

	s.cacheSet(ctx, key, dash)
	return dash, nil
}

func (s *DashboardService) student(ctx context.Context, caller models.Caller, now time.Time) (*models.StudentDashboard, error) {
	student, err := s.students.FindByUserID(ctx, caller.UserID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "no student profile for caller")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student profile")
	}

	dash := &models.StudentDashboard{
		RemainingHours:  student.RemainingHours,
		ContractedHours: student.ContractedHours,
	}
	upcoming, err := s.classes.ListUpcomingByStudent(ctx, student.ID, now)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load upcoming classes")
	}
	if len(upcoming) > 0 {
		dash.NextClass = &upcoming[0]
	}
	return dash, nil
}

func (s *DashboardService) cacheKey(caller models.Caller) string {
	return fmt.Sprintf("dashboard:%s:%s", caller.Role, caller.UserID)
}

func (s *DashboardService) cacheGet(ctx context.Context, key string, dest interface{}) bool {
	if s.cache == nil {
		return false
	}
	err := s.cache.Get(ctx, key, dest)
	if err == nil {
		return true
	}
	if !errors.Is(err, appErrors.ErrCacheMiss) {
		s.logger.Warn("dashboard cache get failed", zap.String("key", key), zap.Error(err))
	}
	return false
}

func (s *DashboardService) cacheSet(ctx context.Context, key string, value interface{}) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, key, value, s.ttl); err != nil {
		s.logger.Warn("dashboard cache set failed", zap.String("key", key), zap.Error(err))
	}
}

func (s *DashboardService) countErr(err error) error {
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to build dashboard")
}
