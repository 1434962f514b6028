package service

import (
	"context"
	"database/sql"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/brightpath-english/academy-api/internal/models"
	appErrors "github.com/brightpath-english/academy-api/pkg/errors"
)

type authFixture struct {
	user   *models.User
	tokens map[string]*models.RefreshToken

	revokedAll int
	audits     []models.AuditLog
}

func (f *authFixture) FindByEmail(_ context.Context, email string) (*models.User, error) {
	if f.user == nil || f.user.Email != email {
		return nil, sql.ErrNoRows
	}
	return f.user, nil
}

func (f *authFixture) FindByID(_ context.Context, id string) (*models.User, error) {
	if f.user == nil || f.user.ID != id {
		return nil, sql.ErrNoRows
	}
	return f.user, nil
}

func (f *authFixture) UpdateLastLogin(_ context.Context, _ string, ts time.Time) error {
	f.user.LastLogin = &ts
	return nil
}

func (f *authFixture) UpdatePassword(_ context.Context, id, passwordHash string, _ time.Time) error {
	if f.user == nil || f.user.ID != id {
		return sql.ErrNoRows
	}
	f.user.PasswordHash = passwordHash
	return nil
}

func (f *authFixture) RevokeUserRefreshTokens(_ context.Context, userID string) error {
	f.revokedAll++
	for _, t := range f.tokens {
		if t.UserID == userID {
			t.Revoked = true
		}
	}
	return nil
}

func (f *authFixture) CreateRefreshToken(_ context.Context, token *models.RefreshToken) error {
	f.tokens[token.Token] = token
	return nil
}

func (f *authFixture) FindRefreshToken(_ context.Context, token string) (*models.RefreshToken, error) {
	stored, ok := f.tokens[token]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return stored, nil
}

func (f *authFixture) RevokeRefreshToken(_ context.Context, id string, revokedAt time.Time) error {
	for _, t := range f.tokens {
		if t.ID == id {
			t.Revoked = true
			t.RevokedAt = &revokedAt
		}
	}
	return nil
}

func (f *authFixture) CreateAuditLog(_ context.Context, log *models.AuditLog) error {
	f.audits = append(f.audits, *log)
	return nil
}

type authOutbox struct {
	sent []models.Notification
}

func (o *authOutbox) Enqueue(n models.Notification) {
	o.sent = append(o.sent, n)
}

func newAuthFixture(password string, active bool) *authFixture {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		panic(err)
	}
	return &authFixture{
		user: &models.User{
			ID:           "user-1",
			Email:        "ana@example.com",
			PasswordHash: string(hash),
			FullName:     "Ana Torres",
			Role:         models.RoleStudent,
			Active:       active,
		},
		tokens: map[string]*models.RefreshToken{},
	}
}

func newAuthService(f *authFixture, outbox *authOutbox) *AuthService {
	var notifier authNotifier
	if outbox != nil {
		notifier = outbox
	}
	return NewAuthService(f, notifier, nil, nil, AuthConfig{
		AccessTokenSecret:  "test-secret",
		AccessTokenExpiry:  15 * time.Minute,
		RefreshTokenExpiry: 24 * time.Hour,
		ResetTokenExpiry:   time.Hour,
		Issuer:             "academy-api",
		Audience:           []string{"academy-api"},
		SingleSession:      true,
	})
}

func TestLoginIssuesTokenPair(t *testing.T) {
	f := newAuthFixture("s3cret-pass", true)
	svc := newAuthService(f, nil)

	resp, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "ana@example.com",
		Password: "s3cret-pass",
	})
	require.NoError(t, err)
	require.NotEmpty(t, resp.AccessToken)
	require.NotEmpty(t, resp.RefreshToken)

	claims, err := svc.ValidateToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, models.RoleStudent, claims.Role)

	stored, ok := f.tokens[resp.RefreshToken]
	require.True(t, ok)
	assert.Equal(t, "user-1", stored.UserID)
	assert.False(t, stored.Revoked)
	require.NotNil(t, f.user.LastLogin)
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	f := newAuthFixture("s3cret-pass", true)
	svc := newAuthService(f, nil)

	_, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "ana@example.com",
		Password: "wrong-pass",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)
}

func TestLoginRejectsInactiveAccount(t *testing.T) {
	f := newAuthFixture("s3cret-pass", false)
	svc := newAuthService(f, nil)

	_, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "ana@example.com",
		Password: "s3cret-pass",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInactiveAccount.Code, appErrors.FromError(err).Code)
}

func TestRefreshRotatesToken(t *testing.T) {
	f := newAuthFixture("s3cret-pass", true)
	svc := newAuthService(f, nil)

	login, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "ana@example.com",
		Password: "s3cret-pass",
	})
	require.NoError(t, err)

	refreshed, err := svc.RefreshToken(context.Background(), models.RefreshTokenRequest{
		RefreshToken: login.RefreshToken,
	})
	require.NoError(t, err)
	assert.NotEqual(t, login.RefreshToken, refreshed.RefreshToken)
	assert.True(t, f.tokens[login.RefreshToken].Revoked)
	assert.False(t, f.tokens[refreshed.RefreshToken].Revoked)

	_, err = svc.RefreshToken(context.Background(), models.RefreshTokenRequest{
		RefreshToken: login.RefreshToken,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}

func TestForgotPasswordIsSilentForUnknownEmail(t *testing.T) {
	f := newAuthFixture("s3cret-pass", true)
	outbox := &authOutbox{}
	svc := newAuthService(f, outbox)

	err := svc.ForgotPassword(context.Background(), models.ResetPasswordRequest{
		Email: "nobody@example.com",
	})
	require.NoError(t, err)
	assert.Empty(t, outbox.sent)
}

func TestPasswordResetRoundTrip(t *testing.T) {
	f := newAuthFixture("s3cret-pass", true)
	outbox := &authOutbox{}
	svc := newAuthService(f, outbox)

	login, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "ana@example.com",
		Password: "s3cret-pass",
	})
	require.NoError(t, err)

	err = svc.ForgotPassword(context.Background(), models.ResetPasswordRequest{
		Email: "ana@example.com",
	})
	require.NoError(t, err)
	require.Len(t, outbox.sent, 1)
	assert.Equal(t, models.ChannelEmail, outbox.sent[0].Channel)
	assert.Equal(t, "ana@example.com", outbox.sent[0].To)

	// The token is the last whitespace-separated field of the mail body.
	fields := strings.Fields(outbox.sent[0].Body)
	require.NotEmpty(t, fields)
	token := fields[len(fields)-1]

	err = svc.ResetPassword(context.Background(), models.ConfirmResetPasswordRequest{
		Token:       token,
		NewPassword: "brand-new-pass",
	})
	require.NoError(t, err)

	// Old sessions must be gone and only the new password accepted.
	assert.True(t, f.tokens[login.RefreshToken].Revoked)

	_, err = svc.Login(context.Background(), models.LoginRequest{
		Email:    "ana@example.com",
		Password: "s3cret-pass",
	})
	require.Error(t, err)

	_, err = svc.Login(context.Background(), models.LoginRequest{
		Email:    "ana@example.com",
		Password: "brand-new-pass",
	})
	require.NoError(t, err)
}

func TestResetPasswordRejectsTamperedToken(t *testing.T) {
	f := newAuthFixture("s3cret-pass", true)
	outbox := &authOutbox{}
	svc := newAuthService(f, outbox)

	err := svc.ForgotPassword(context.Background(), models.ResetPasswordRequest{
		Email: "ana@example.com",
	})
	require.NoError(t, err)
	require.Len(t, outbox.sent, 1)

	fields := strings.Fields(outbox.sent[0].Body)
	token := fields[len(fields)-1]

	err = svc.ResetPassword(context.Background(), models.ConfirmResetPasswordRequest{
		Token:       token + "x",
		NewPassword: "brand-new-pass",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}

func TestResetPasswordRejectsAccessToken(t *testing.T) {
	f := newAuthFixture("s3cret-pass", true)
	svc := newAuthService(f, nil)

	login, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "ana@example.com",
		Password: "s3cret-pass",
	})
	require.NoError(t, err)

	// An access token carries the API audience, not the reset audience.
	err = svc.ResetPassword(context.Background(), models.ConfirmResetPasswordRequest{
		Token:       login.AccessToken,
		NewPassword: "brand-new-pass",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}
