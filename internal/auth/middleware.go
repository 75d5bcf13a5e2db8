package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/civic-report-service/internal/domain"
	apperrors "github.com/spec-kit/civic-report-service/pkg/util/errorutil"
)

const principalKey = "auth_principal"

// Principal represents the authenticated caller. Role carries the
// best-effort value from the role cache; RoleStale marks it as pending an
// authoritative background refresh.
type Principal struct {
	ID        string
	Email     string
	Role      domain.Role
	RoleStale bool
}

// AuthMiddleware validates bearer tokens and resolves principals.
type AuthMiddleware struct {
	tokens *TokenManager
	roles  *RoleCache
}

// NewAuthMiddleware constructs middleware.
func NewAuthMiddleware(tokens *TokenManager, roles *RoleCache) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens, roles: roles}
}

// Handle enforces authentication for protected routes.
func (m *AuthMiddleware) Handle(c *fiber.Ctx) error {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return apperrors.NewUnauthorized("missing authorization header")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return apperrors.NewUnauthorized("invalid authorization header")
	}

	claims, err := m.tokens.ParseToken(parts[1])
	if err != nil {
		return apperrors.NewUnauthorized("invalid token")
	}

	principal := &Principal{
		ID:    claims.ProfileID,
		Email: claims.Email,
		Role:  claims.Role,
	}
	if m.roles != nil {
		// Best-effort role from the cache; a background refresh reconciles
		// against the profiles table so demotions take effect shortly after.
		cached := m.roles.Lookup(c.Context(), claims.ProfileID, claims.Role)
		principal.Role = cached.Role
		principal.RoleStale = cached.Stale
	}

	c.Locals(principalKey, principal)
	return c.Next()
}

// HandleOptional resolves a principal when a valid bearer token is
// present and lets the request through anonymously otherwise. Used on
// the public report intake routes.
func (m *AuthMiddleware) HandleOptional(c *fiber.Ctx) error {
	if c.Get("Authorization") == "" {
		return c.Next()
	}
	return m.Handle(c)
}

// PrincipalFromContext retrieves the authenticated entity.
func PrincipalFromContext(c *fiber.Ctx) (*Principal, bool) {
	val := c.Locals(principalKey)
	if val == nil {
		return nil, false
	}
	principal, ok := val.(*Principal)
	return principal, ok
}
