package dto

import (
	"time"

	"github.com/spec-kit/civic-report-service/internal/domain"
)

// ProfileResponse is the account view. Password hashes never leave the
// service layer.
type ProfileResponse struct {
	ID        string      `json:"id"`
	Name      string      `json:"name"`
	Email     string      `json:"email"`
	Role      domain.Role `json:"role"`
	Active    bool        `json:"active"`
	CreatedAt time.Time   `json:"created_at"`
}

// CreateAccountRequest payload for admin-provisioned accounts.
type CreateAccountRequest struct {
	Name     string      `json:"name"`
	Email    string      `json:"email"`
	Password string      `json:"password"`
	Role     domain.Role `json:"role"`
}

// UpdateRoleRequest payload.
type UpdateRoleRequest struct {
	Role domain.Role `json:"role"`
}
