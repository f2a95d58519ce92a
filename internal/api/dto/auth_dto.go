package dto

import (
	"time"

	"github.com/spec-kit/campus-helpdesk/internal/domain"
)

// RegisterRequest payload for new accounts. Role and department are
// derived from the email, never accepted from the client.
type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginRequest payload for login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// UserResponse describes an account.
type UserResponse struct {
	ID         string            `json:"id"`
	Name       string            `json:"name"`
	Email      string            `json:"email"`
	Role       domain.Role       `json:"role"`
	Department domain.Department `json:"department,omitempty"`
}

// AuthResponse standard response for login.
type AuthResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      UserResponse `json:"user"`
}
