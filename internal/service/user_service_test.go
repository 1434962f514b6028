package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/brightpath-english/academy-api/internal/models"
	appErrors "github.com/brightpath-english/academy-api/pkg/errors"
)

type userStoreFixture struct {
	users  map[string]*models.User
	audits []models.AuditLog
}

func (f *userStoreFixture) FindByEmail(_ context.Context, email string) (*models.User, error) {
	for _, u := range f.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *userStoreFixture) FindByID(_ context.Context, id string) (*models.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return u, nil
}

func (f *userStoreFixture) List(_ context.Context, _ models.UserFilter) ([]models.User, int, error) {
	out := make([]models.User, 0, len(f.users))
	for _, u := range f.users {
		out = append(out, *u)
	}
	return out, len(out), nil
}

func (f *userStoreFixture) Create(_ context.Context, user *models.User) error {
	f.users[user.ID] = user
	return nil
}

func (f *userStoreFixture) Update(_ context.Context, user *models.User) error {
	if _, ok := f.users[user.ID]; !ok {
		return sql.ErrNoRows
	}
	f.users[user.ID] = user
	return nil
}

func (f *userStoreFixture) Delete(_ context.Context, id string) error {
	delete(f.users, id)
	return nil
}

func (f *userStoreFixture) CreateAuditLog(_ context.Context, log *models.AuditLog) error {
	f.audits = append(f.audits, *log)
	return nil
}

func newUserStoreFixture() *userStoreFixture {
	return &userStoreFixture{users: map[string]*models.User{
		"admin-1": {ID: "admin-1", Email: "admin@example.com", FullName: "Root Admin", Role: models.RoleAdmin, Active: true},
	}}
}

func TestCreateUserNormalizesEmailAndHashesPassword(t *testing.T) {
	f := newUserStoreFixture()
	svc := NewUserService(f, nil, nil)

	user, err := svc.Create(context.Background(), "admin-1", CreateUserRequest{
		Email:    "  Paula.Vega@Example.COM ",
		Password: "s3cret-pass",
		FullName: "Paula Vega",
		Role:     models.RoleSeller,
	})
	require.NoError(t, err)
	assert.Equal(t, "paula.vega@example.com", user.Email)
	assert.True(t, user.Active)
	assert.NotEqual(t, "s3cret-pass", user.PasswordHash)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("s3cret-pass")))

	require.Len(t, f.audits, 1)
	assert.Equal(t, models.AuditActionUserCreate, f.audits[0].Action)
}

func TestCreateUserRejectsDuplicateEmail(t *testing.T) {
	f := newUserStoreFixture()
	svc := NewUserService(f, nil, nil)

	_, err := svc.Create(context.Background(), "admin-1", CreateUserRequest{
		Email:    "admin@example.com",
		Password: "s3cret-pass",
		FullName: "Another Admin",
		Role:     models.RoleAdmin,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestCreateUserRejectsUnknownRole(t *testing.T) {
	f := newUserStoreFixture()
	svc := NewUserService(f, nil, nil)

	_, err := svc.Create(context.Background(), "admin-1", CreateUserRequest{
		Email:    "new@example.com",
		Password: "s3cret-pass",
		FullName: "New User",
		Role:     models.UserRole("MANAGER"),
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestUpdateUserUnknownIsNotFound(t *testing.T) {
	f := newUserStoreFixture()
	svc := NewUserService(f, nil, nil)

	_, err := svc.Update(context.Background(), "admin-1", "missing", UpdateUserRequest{
		FullName: "Ghost",
		Active:   true,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestDeleteUserBlocksOwnAccount(t *testing.T) {
	f := newUserStoreFixture()
	svc := NewUserService(f, nil, nil)

	err := svc.Delete(context.Background(), "admin-1", "admin-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	assert.Contains(t, f.users, "admin-1")
}

func TestDeleteUserRemovesOtherAccount(t *testing.T) {
	f := newUserStoreFixture()
	f.users["seller-1"] = &models.User{ID: "seller-1", Email: "sales@example.com", FullName: "Sales One", Role: models.RoleSeller, Active: true}
	svc := NewUserService(f, nil, nil)

	require.NoError(t, svc.Delete(context.Background(), "admin-1", "seller-1"))
	assert.NotContains(t, f.users, "seller-1")

	require.Len(t, f.audits, 1)
	assert.Equal(t, models.AuditActionUserDelete, f.audits[0].Action)
}
