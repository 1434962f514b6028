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

func newClassRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestClassRepositoryTransitionFromScheduled(t *testing.T) {
	db, mock, cleanup := newClassRepoMock(t)
	defer cleanup()
	repo := NewClassRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE classes SET status = $2, teacher_notes = COALESCE($3, teacher_notes), updated_at = $4")).
		WithArgs("c1", models.ClassCompleted, nil, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	ok, err := repo.TransitionFromScheduled(context.Background(), "c1", models.ClassCompleted, nil)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClassRepositoryTransitionAlreadyTerminal(t *testing.T) {
	db, mock, cleanup := newClassRepoMock(t)
	defer cleanup()
	repo := NewClassRepository(db)

	mock.ExpectExec("UPDATE classes SET status").
		WithArgs("c1", models.ClassNoShow, nil, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	ok, err := repo.TransitionFromScheduled(context.Background(), "c1", models.ClassNoShow, nil)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClassRepositoryBulkCreateIsTransactional(t *testing.T) {
	db, mock, cleanup := newClassRepoMock(t)
	defer cleanup()
	repo := NewClassRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO classes").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO classes").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	classes := []models.ClassInstance{
		{StudentID: "s1", TeacherID: "t1", Date: time.Now(), StartTime: "09:00", EndTime: "10:00", DurationMinutes: 60},
		{StudentID: "s1", TeacherID: "t1", Date: time.Now().AddDate(0, 0, 7), StartTime: "09:00", EndTime: "10:00", DurationMinutes: 60},
	}
	require.NoError(t, repo.BulkCreate(context.Background(), classes))
	assert.NotEmpty(t, classes[0].ID)
	assert.Equal(t, models.ClassScheduled, classes[0].Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClassRepositoryBulkCreateRollsBackOnError(t *testing.T) {
	db, mock, cleanup := newClassRepoMock(t)
	defer cleanup()
	repo := NewClassRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO classes").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO classes").WillReturnError(assert.AnError)
	mock.ExpectRollback()

	classes := []models.ClassInstance{
		{StudentID: "s1", TeacherID: "t1", Date: time.Now(), StartTime: "09:00", EndTime: "10:00", DurationMinutes: 60},
		{StudentID: "s2", TeacherID: "t1", Date: time.Now(), StartTime: "11:00", EndTime: "12:00", DurationMinutes: 60},
	}
	require.Error(t, repo.BulkCreate(context.Background(), classes))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClassRepositoryDeleteScheduled(t *testing.T) {
	db, mock, cleanup := newClassRepoMock(t)
	defer cleanup()
	repo := NewClassRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM classes WHERE id = $1 AND status = 'scheduled'")).
		WithArgs("c1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	ok, err := repo.DeleteScheduled(context.Background(), "c1")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClassRepositoryMarkReminderSent(t *testing.T) {
	db, mock, cleanup := newClassRepoMock(t)
	defer cleanup()
	repo := NewClassRepository(db)

	mock.ExpectExec("UPDATE classes SET reminder_sent = TRUE").
		WithArgs("c1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.MarkReminderSent(context.Background(), "c1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
