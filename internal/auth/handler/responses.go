package handler

import (
	"time"

	"nexus/internal/auth/models"
)

// UserResponse is the public view of an account.
type UserResponse struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	FullName     string    `json:"full_name"`
	Role         string    `json:"role"`
	DepartmentID string    `json:"department_id,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// SessionResponse is returned by register and login.
type SessionResponse struct {
	Token string       `json:"token"`
	User  UserResponse `json:"user"`
}

// FromUser converts a user aggregate to its HTTP representation.
func FromUser(user *models.User) UserResponse {
	resp := UserResponse{
		ID:        user.ID.String(),
		Email:     user.Email,
		FullName:  user.FullName,
		Role:      string(user.Role),
		CreatedAt: user.CreatedAt,
	}
	if user.DepartmentID != nil {
		resp.DepartmentID = user.DepartmentID.String()
	}
	return resp
}

// FromSession pairs a user with a freshly issued token.
func FromSession(user *models.User, token string) SessionResponse {
	return SessionResponse{Token: token, User: FromUser(user)}
}
