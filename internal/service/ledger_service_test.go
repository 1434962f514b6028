package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brightpath-english/academy-api/internal/models"
)

type ledgerFixture struct {
	student *models.StudentDetail

	added        float64
	deducted     int
	unreadExists bool
	alerts       []models.Alert
}

func (f *ledgerFixture) FindByID(_ context.Context, id string) (*models.StudentDetail, error) {
	if f.student == nil || f.student.ID != id {
		return nil, sql.ErrNoRows
	}
	return f.student, nil
}

func (f *ledgerFixture) AddHours(_ context.Context, _ string, amount float64) error {
	f.added += amount
	f.student.ContractedHours += amount
	f.student.RemainingHours += amount
	return nil
}

func (f *ledgerFixture) DeductHours(_ context.Context, _ string, durationMinutes int) (float64, error) {
	f.deducted += durationMinutes
	f.student.RemainingHours -= float64(durationMinutes) / 60
	if f.student.RemainingHours < 0 {
		f.student.RemainingHours = 0
	}
	return f.student.RemainingHours, nil
}

func (f *ledgerFixture) Create(_ context.Context, alert *models.Alert) error {
	f.alerts = append(f.alerts, *alert)
	return nil
}

func (f *ledgerFixture) ExistsUnread(context.Context, string, models.AlertType) (bool, error) {
	return f.unreadExists, nil
}

func newLedgerFixture(remaining float64) *ledgerFixture {
	return &ledgerFixture{
		student: &models.StudentDetail{Student: models.Student{
			ID:              "student-1",
			FullName:        "Ana Torres",
			SellerID:        "seller-1",
			ContractedHours: 20,
			RemainingHours:  remaining,
		}},
	}
}

func TestLedgerAddHoursRejectsNonPositive(t *testing.T) {
	f := newLedgerFixture(5)
	service := NewLedgerService(f, f, 5, nil)

	_, err := service.AddHours(context.Background(), "student-1", 0)
	assert.Error(t, err)
	_, err = service.AddHours(context.Background(), "student-1", -2)
	assert.Error(t, err)
}

func TestLedgerAddHoursCredits(t *testing.T) {
	f := newLedgerFixture(3)
	service := NewLedgerService(f, f, 5, nil)

	student, err := service.AddHours(context.Background(), "student-1", 10)
	require.NoError(t, err)
	assert.Equal(t, 13.0, student.RemainingHours)
	assert.Equal(t, 30.0, student.ContractedHours)
}

func TestLedgerDeductNinetyMinutesRaisesLowHoursAlert(t *testing.T) {
	f := newLedgerFixture(5)
	service := NewLedgerService(f, f, 5, nil)

	remaining, err := service.DeductForClass(context.Background(), "student-1", 90)
	require.NoError(t, err)
	assert.Equal(t, 3.5, remaining)

	require.Len(t, f.alerts, 1)
	alert := f.alerts[0]
	assert.Equal(t, models.AlertLowHours, alert.Type)
	assert.Equal(t, "seller-1", alert.RecipientID)
	assert.Equal(t, "student-1", alert.StudentID)
	assert.Contains(t, alert.Message, "3.5")
}

func TestLedgerNoAlertAtZeroRemaining(t *testing.T) {
	f := newLedgerFixture(1)
	service := NewLedgerService(f, f, 5, nil)

	remaining, err := service.DeductForClass(context.Background(), "student-1", 120)
	require.NoError(t, err)
	assert.Equal(t, 0.0, remaining)
	assert.Empty(t, f.alerts, "zero balance is outside the low-hours band")
}

func TestLedgerAlertDeDuplicatesAgainstUnread(t *testing.T) {
	f := newLedgerFixture(5)
	f.unreadExists = true
	service := NewLedgerService(f, f, 5, nil)

	_, err := service.DeductForClass(context.Background(), "student-1", 60)
	require.NoError(t, err)
	assert.Empty(t, f.alerts)
}

func TestLedgerDeductUnknownStudent(t *testing.T) {
	f := newLedgerFixture(5)
	service := NewLedgerService(f, f, 5, nil)

	_, err := service.DeductForClass(context.Background(), "missing", 60)
	assert.Error(t, err)
}
