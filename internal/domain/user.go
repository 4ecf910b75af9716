package domain

import (
	"time"

	"github.com/google/uuid"
)

// User is an account holder. The statement service itself only needs
// existence checks by ID; the full shape is used by the user management
// endpoints (registration, sessions, profile).
type User struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// CreateUserRequest is the DTO for incoming registration API requests.
type CreateUserRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SessionRequest is the DTO for incoming authentication API requests.
type SessionRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Session is returned after a successful authentication.
type Session struct {
	User  *User  `json:"user"`
	Token string `json:"token"`
}
