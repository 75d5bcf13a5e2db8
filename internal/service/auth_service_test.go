package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/civic-report-service/internal/auth"
	"github.com/spec-kit/civic-report-service/internal/config"
	"github.com/spec-kit/civic-report-service/internal/domain"
	apperrors "github.com/spec-kit/civic-report-service/pkg/util/errorutil"
)

func newAuthFixture() (*AuthService, *fakeProfileRepository, *fakePasswordResetRepository) {
	profiles := newFakeProfileRepository()
	resets := newFakePasswordResetRepository()
	cfg := config.Config{
		Auth: config.AuthConfig{
			JWTSecret:               "test-secret",
			AccessTokenTTLMinutes:   60,
			PasswordResetTTLMinutes: 30,
			BcryptCost:              4,
		},
	}
	svc := NewAuthService(cfg, AuthDependencies{
		ProfileRepo:       profiles,
		PasswordResetRepo: resets,
	})
	return svc, profiles, resets
}

func seedAccount(t *testing.T, svc *AuthService, profiles *fakeProfileRepository, role domain.Role) *domain.Profile {
	t.Helper()
	hash, err := auth.HashPassword("hunter2hunter2", 4)
	require.NoError(t, err)
	return profiles.seed(domain.Profile{
		Name:         "Seeded",
		Email:        string(role) + "@city.test",
		PasswordHash: hash,
		Role:         role,
		Active:       true,
	})
}

func TestRegisterCreatesReporter(t *testing.T) {
	svc, _, _ := newAuthFixture()

	profile, token, exp, err := svc.Register(context.Background(), "Sam", "Sam@Example.COM", "longenough")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleReporter, profile.Role)
	assert.Equal(t, "sam@example.com", profile.Email)
	assert.True(t, profile.Active)
	assert.NotEmpty(t, token)
	assert.True(t, exp.After(time.Now()))
}

func TestRegisterRejectsDuplicateEmail(t *testing.T) {
	svc, _, _ := newAuthFixture()
	ctx := context.Background()

	_, _, _, err := svc.Register(ctx, "Sam", "sam@example.com", "longenough")
	require.NoError(t, err)

	_, _, _, err = svc.Register(ctx, "Sam Again", "SAM@example.com", "longenough")
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, "CONFLICT"))
}

func TestRegisterRejectsShortPassword(t *testing.T) {
	svc, _, _ := newAuthFixture()
	_, _, _, err := svc.Register(context.Background(), "Sam", "sam@example.com", "short")
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, "VALIDATION_FAILED"))
}

func TestLogin(t *testing.T) {
	svc, profiles, _ := newAuthFixture()
	ctx := context.Background()
	seedAccount(t, svc, profiles, domain.RoleAgent)

	profile, token, _, err := svc.Login(ctx, "AGENT@city.test", "hunter2hunter2")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAgent, profile.Role)
	assert.NotEmpty(t, token)

	claims, err := svc.TokenManager().ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, profile.ID, claims.ProfileID)
	assert.Equal(t, domain.RoleAgent, claims.Role)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	svc, profiles, _ := newAuthFixture()
	ctx := context.Background()
	seedAccount(t, svc, profiles, domain.RoleReporter)

	_, _, _, err := svc.Login(ctx, "reporter@city.test", "wrong-password")
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, "UNAUTHORIZED"))

	_, _, _, err = svc.Login(ctx, "nobody@city.test", "hunter2hunter2")
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, "UNAUTHORIZED"))
}

func TestLoginRejectsDisabledAccount(t *testing.T) {
	svc, profiles, _ := newAuthFixture()
	hash, err := auth.HashPassword("hunter2hunter2", 4)
	require.NoError(t, err)
	profiles.seed(domain.Profile{Email: "gone@city.test", PasswordHash: hash, Role: domain.RoleAgent, Active: false})

	_, _, _, err = svc.Login(context.Background(), "gone@city.test", "hunter2hunter2")
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, "FORBIDDEN"))
}

func TestCreateAccountRequiresAdmin(t *testing.T) {
	svc, profiles, _ := newAuthFixture()
	ctx := context.Background()
	admin := seedAccount(t, svc, profiles, domain.RoleAdmin)
	agent := seedAccount(t, svc, profiles, domain.RoleAgent)

	created, err := svc.CreateAccount(ctx, admin, "New Agent", "new-agent@city.test", "longenough", domain.RoleAgent)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAgent, created.Role)

	_, err = svc.CreateAccount(ctx, agent, "Rogue", "rogue@city.test", "longenough", domain.RoleAdmin)
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, "FORBIDDEN"))
}

func TestUpdateRole(t *testing.T) {
	svc, profiles, _ := newAuthFixture()
	ctx := context.Background()
	admin := seedAccount(t, svc, profiles, domain.RoleAdmin)
	reporter := seedAccount(t, svc, profiles, domain.RoleReporter)

	updated, err := svc.UpdateRole(ctx, admin, reporter.ID, domain.RoleAgent)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAgent, updated.Role)

	stored, err := profiles.GetByID(ctx, reporter.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAgent, stored.Role)

	// Admins cannot demote themselves.
	_, err = svc.UpdateRole(ctx, admin, admin.ID, domain.RoleReporter)
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, "CONFLICT"))
}

func TestPasswordResetFlow(t *testing.T) {
	svc, profiles, _ := newAuthFixture()
	ctx := context.Background()
	account := seedAccount(t, svc, profiles, domain.RoleReporter)

	token, err := svc.RequestPasswordReset(ctx, account.Email)
	require.NoError(t, err)
	assert.Equal(t, account.ID, token.ProfileID)
	assert.True(t, token.ExpiresAt.After(time.Now()))

	require.NoError(t, svc.ConfirmPasswordReset(ctx, token.Token, "brand-new-pass"))

	_, _, _, err = svc.Login(ctx, account.Email, "brand-new-pass")
	require.NoError(t, err)

	// Tokens are single use.
	err = svc.ConfirmPasswordReset(ctx, token.Token, "another-pass-1")
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, "UNAUTHORIZED"))
}

func TestPasswordResetUnknownEmail(t *testing.T) {
	svc, _, _ := newAuthFixture()
	_, err := svc.RequestPasswordReset(context.Background(), "nobody@city.test")
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, "NOT_FOUND"))
}

func TestChangePassword(t *testing.T) {
	svc, profiles, _ := newAuthFixture()
	ctx := context.Background()
	account := seedAccount(t, svc, profiles, domain.RoleAgent)

	err := svc.ChangePassword(ctx, account.ID, "wrong-current", "replacement-pass")
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, "UNAUTHORIZED"))

	require.NoError(t, svc.ChangePassword(ctx, account.ID, "hunter2hunter2", "replacement-pass"))

	_, _, _, err = svc.Login(ctx, account.Email, "replacement-pass")
	require.NoError(t, err)
}
