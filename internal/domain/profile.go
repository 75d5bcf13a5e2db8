package domain

import "time"

// Role enumerates principal roles. A single profiles table carries all
// three; the role column decides which surfaces a principal can reach.
type Role string

const (
	RoleReporter Role = "REPORTER"
	RoleAdmin    Role = "ADMIN"
	RoleAgent    Role = "AGENT"
)

// IsValidRole reports whether role is one of the accepted values.
func IsValidRole(role Role) bool {
	switch role {
	case RoleReporter, RoleAdmin, RoleAgent:
		return true
	}
	return false
}

// Profile models an authenticated principal: a citizen reporter, an
// administrator, or a field agent.
type Profile struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Role         Role
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
