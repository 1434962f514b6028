package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brightpath-english/academy-api/internal/models"
)

func newStudentRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestStudentRepositoryAddHours(t *testing.T) {
	db, mock, cleanup := newStudentRepoMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE students SET contracted_hours = contracted_hours + $2, remaining_hours = remaining_hours + $2")).
		WithArgs("s1", 10.0, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.AddHours(context.Background(), "s1", 10))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryDeductHoursClampsAtZero(t *testing.T) {
	db, mock, cleanup := newStudentRepoMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("UPDATE students SET remaining_hours = GREATEST(remaining_hours - $2, 0)")).
		WithArgs("s1", 1.5, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"remaining_hours"}).AddRow(3.5))

	remaining, err := repo.DeductHours(context.Background(), "s1", 90)
	require.NoError(t, err)
	assert.InDelta(t, 3.5, remaining, 0.0001)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryListEligibleForGeneration(t *testing.T) {
	db, mock, cleanup := newStudentRepoMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	teacherID := "t1"
	rows := sqlmock.NewRows([]string{"id", "user_id", "full_name", "email", "phone", "level", "contracted_hours", "remaining_hours", "blocked", "blocked_reason", "teacher_id", "seller_id", "created_at", "updated_at"}).
		AddRow("s1", "u1", "Ana Diaz", "ana@example.com", nil, "B1", 20.0, 10.0, false, nil, teacherID, "seller1", time.Now(), time.Now())
	mock.ExpectQuery("SELECT s.id, s.user_id, s.full_name").WillReturnRows(rows)

	students, err := repo.ListEligibleForGeneration(context.Background())
	require.NoError(t, err)
	require.Len(t, students, 1)
	assert.Equal(t, "s1", students[0].ID)
	require.NotNil(t, students[0].TeacherID)
	assert.Equal(t, teacherID, *students[0].TeacherID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositorySetBlocked(t *testing.T) {
	db, mock, cleanup := newStudentRepoMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	reason := "payment overdue"
	mock.ExpectExec("UPDATE students SET blocked = ").
		WithArgs("s1", true, &reason, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.SetBlocked(context.Background(), "s1", true, &reason))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newStudentRepoMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectExec("INSERT INTO students").WillReturnResult(sqlmock.NewResult(1, 1))

	student := &models.Student{UserID: "u1", FullName: "Ana Diaz", Email: "ana@example.com", Level: "B1", SellerID: "seller1"}
	require.NoError(t, repo.Create(context.Background(), student))
	assert.NotEmpty(t, student.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
