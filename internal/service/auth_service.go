package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/civic-report-service/internal/auth"
	"github.com/spec-kit/civic-report-service/internal/config"
	"github.com/spec-kit/civic-report-service/internal/domain"
	"github.com/spec-kit/civic-report-service/internal/repository"
	apperrors "github.com/spec-kit/civic-report-service/pkg/util/errorutil"
)

// AuthService coordinates registration, login and credential flows for
// all three roles. Self-registration always yields a reporter; admin and
// agent accounts are provisioned by an administrator.
type AuthService struct {
	profiles   repository.ProfileRepository
	resets     repository.PasswordResetRepository
	roleCache  *auth.RoleCache
	tokenMgr   *auth.TokenManager
	bcryptCost int
	resetTTL   time.Duration
}

// AuthDependencies encapsulates collaborators for the auth service.
type AuthDependencies struct {
	ProfileRepo       repository.ProfileRepository
	PasswordResetRepo repository.PasswordResetRepository
	RoleCache         *auth.RoleCache
}

// NewAuthService builds the service.
func NewAuthService(cfg config.Config, deps AuthDependencies) *AuthService {
	return &AuthService{
		profiles:   deps.ProfileRepo,
		resets:     deps.PasswordResetRepo,
		roleCache:  deps.RoleCache,
		tokenMgr:   auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes),
		bcryptCost: cfg.Auth.BcryptCost,
		resetTTL:   time.Duration(cfg.Auth.PasswordResetTTLMinutes) * time.Minute,
	}
}

// Register creates a reporter account and signs the caller in.
func (s *AuthService) Register(ctx context.Context, name, email, password string) (*domain.Profile, string, time.Time, error) {
	name = strings.TrimSpace(name)
	email = strings.TrimSpace(strings.ToLower(email))
	if name == "" || email == "" {
		return nil, "", time.Time{}, apperrors.NewValidationError("name and email are required", nil)
	}
	if len(password) < 8 {
		return nil, "", time.Time{}, apperrors.NewValidationError("password must be at least 8 characters", nil)
	}

	if _, err := s.profiles.GetByEmail(ctx, email); err == nil {
		return nil, "", time.Time{}, apperrors.NewConflict("email already registered", nil)
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, "", time.Time{}, apperrors.NewUnavailable("profile lookup failed", err)
	}

	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return nil, "", time.Time{}, apperrors.NewInternalError(err)
	}

	profile := &domain.Profile{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         domain.RoleReporter,
		Active:       true,
	}
	if err := s.profiles.Create(ctx, profile); err != nil {
		return nil, "", time.Time{}, apperrors.NewUnavailable("profile write failed", err)
	}

	token, exp, err := s.tokenMgr.GenerateToken(profile.ID, profile.Email, profile.Role)
	if err != nil {
		return nil, "", time.Time{}, apperrors.NewInternalError(err)
	}
	return profile, token, exp, nil
}

// Login authenticates any account and returns a role-bearing token.
func (s *AuthService) Login(ctx context.Context, email, password string) (*domain.Profile, string, time.Time, error) {
	profile, err := s.profiles.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, "", time.Time{}, apperrors.NewUnauthorized("invalid credentials")
		}
		return nil, "", time.Time{}, apperrors.NewUnavailable("profile lookup failed", err)
	}
	if !profile.Active {
		return nil, "", time.Time{}, apperrors.NewForbidden("account disabled")
	}
	if err := auth.ComparePassword(profile.PasswordHash, password); err != nil {
		return nil, "", time.Time{}, apperrors.NewUnauthorized("invalid credentials")
	}

	token, exp, err := s.tokenMgr.GenerateToken(profile.ID, profile.Email, profile.Role)
	if err != nil {
		return nil, "", time.Time{}, apperrors.NewInternalError(err)
	}
	return profile, token, exp, nil
}

// CreateAccount provisions an account with an explicit role, admin only.
func (s *AuthService) CreateAccount(ctx context.Context, actor *domain.Profile, name, email, password string, role domain.Role) (*domain.Profile, error) {
	if actor == nil || actor.Role != domain.RoleAdmin {
		return nil, apperrors.NewForbidden("administrator required")
	}
	if !domain.IsValidRole(role) {
		return nil, apperrors.NewValidationError("unrecognized role", map[string]any{"role": role})
	}
	name = strings.TrimSpace(name)
	email = strings.TrimSpace(strings.ToLower(email))
	if name == "" || email == "" {
		return nil, apperrors.NewValidationError("name and email are required", nil)
	}
	if len(password) < 8 {
		return nil, apperrors.NewValidationError("password must be at least 8 characters", nil)
	}

	if _, err := s.profiles.GetByEmail(ctx, email); err == nil {
		return nil, apperrors.NewConflict("email already registered", nil)
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.NewUnavailable("profile lookup failed", err)
	}

	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	profile := &domain.Profile{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		Active:       true,
	}
	if err := s.profiles.Create(ctx, profile); err != nil {
		return nil, apperrors.NewUnavailable("profile write failed", err)
	}
	return profile, nil
}

// UpdateRole changes an account's role and drops its cached role so the
// change takes effect on the next request rather than after the TTL.
func (s *AuthService) UpdateRole(ctx context.Context, actor *domain.Profile, profileID string, role domain.Role) (*domain.Profile, error) {
	if actor == nil || actor.Role != domain.RoleAdmin {
		return nil, apperrors.NewForbidden("administrator required")
	}
	if !domain.IsValidRole(role) {
		return nil, apperrors.NewValidationError("unrecognized role", map[string]any{"role": role})
	}
	if actor.ID == profileID {
		return nil, apperrors.NewConflict("administrators cannot change their own role", nil)
	}

	profile, err := s.profiles.GetByID(ctx, profileID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("profile", map[string]any{"profile_id": profileID})
		}
		return nil, apperrors.NewUnavailable("profile lookup failed", err)
	}
	if profile.Role == role {
		return profile, nil
	}

	if err := s.profiles.UpdateRole(ctx, profileID, role); err != nil {
		return nil, apperrors.NewUnavailable("role write failed", err)
	}
	profile.Role = role

	if s.roleCache != nil {
		s.roleCache.Invalidate(ctx, profileID)
	}
	return profile, nil
}

// ListAccounts lists accounts for the admin user directory.
func (s *AuthService) ListAccounts(ctx context.Context, actor *domain.Profile, filter repository.ProfileFilter) ([]domain.Profile, error) {
	if actor == nil || actor.Role != domain.RoleAdmin {
		return nil, apperrors.NewForbidden("administrator required")
	}
	profiles, err := s.profiles.List(ctx, filter)
	if err != nil {
		return nil, apperrors.NewUnavailable("profile listing failed", err)
	}
	return profiles, nil
}

// RequestPasswordReset persists a reset token for the given email. The
// token is returned for delivery by the notification worker; an unknown
// email yields NOT_FOUND which the handler masks to avoid enumeration.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) (*repository.PasswordResetToken, error) {
	profile, err := s.profiles.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("profile", nil)
		}
		return nil, apperrors.NewUnavailable("profile lookup failed", err)
	}

	token := &repository.PasswordResetToken{
		ProfileID: profile.ID,
		Token:     uuid.NewString(),
		ExpiresAt: time.Now().Add(s.resetTTL),
	}
	if err := s.resets.Create(ctx, token); err != nil {
		return nil, apperrors.NewUnavailable("reset token write failed", err)
	}
	return token, nil
}

// ConfirmPasswordReset validates the reset token and updates the password.
func (s *AuthService) ConfirmPasswordReset(ctx context.Context, tokenStr, newPassword string) error {
	if len(newPassword) < 8 {
		return apperrors.NewValidationError("password must be at least 8 characters", nil)
	}

	token, err := s.resets.GetByToken(ctx, tokenStr)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewUnauthorized("invalid reset token")
		}
		return apperrors.NewUnavailable("reset token lookup failed", err)
	}
	if token.UsedAt != nil || time.Now().After(token.ExpiresAt) {
		return apperrors.NewUnauthorized("reset token expired or used")
	}

	hash, err := auth.HashPassword(newPassword, s.bcryptCost)
	if err != nil {
		return apperrors.NewInternalError(err)
	}

	profile, err := s.profiles.GetByID(ctx, token.ProfileID)
	if err != nil {
		return apperrors.NewUnavailable("profile lookup failed", err)
	}
	profile.PasswordHash = hash
	if err := s.profiles.Update(ctx, profile); err != nil {
		return apperrors.NewUnavailable("profile write failed", err)
	}
	return s.resets.MarkUsed(ctx, token.ID)
}

// ChangePassword verifies the current password before updating.
func (s *AuthService) ChangePassword(ctx context.Context, profileID, currentPassword, newPassword string) error {
	if len(newPassword) < 8 {
		return apperrors.NewValidationError("password must be at least 8 characters", nil)
	}

	profile, err := s.profiles.GetByID(ctx, profileID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("profile", nil)
		}
		return apperrors.NewUnavailable("profile lookup failed", err)
	}
	if err := auth.ComparePassword(profile.PasswordHash, currentPassword); err != nil {
		return apperrors.NewUnauthorized("invalid credentials")
	}

	hash, err := auth.HashPassword(newPassword, s.bcryptCost)
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	profile.PasswordHash = hash
	if err := s.profiles.Update(ctx, profile); err != nil {
		return apperrors.NewUnavailable("profile write failed", err)
	}
	return nil
}

// GetProfile fetches a single profile by ID.
func (s *AuthService) GetProfile(ctx context.Context, profileID string) (*domain.Profile, error) {
	profile, err := s.profiles.GetByID(ctx, profileID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("profile", map[string]any{"profile_id": profileID})
		}
		return nil, apperrors.NewUnavailable("profile lookup failed", err)
	}
	return profile, nil
}

// TokenManager exposes the underlying token manager for middleware usage.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}
