package dto

import (
	"net/mail"
	"strings"
	"time"

	"github.com/spec-kit/opsboard/internal/domain"
	apperrors "github.com/spec-kit/opsboard/pkg/util/errorutil"
)

// UserLoginRequest payload for login.
type UserLoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Validate checks the credential shape before any lookup.
func (r UserLoginRequest) Validate() error {
	var issues []apperrors.FieldIssue
	if _, err := mail.ParseAddress(strings.TrimSpace(r.Email)); err != nil {
		issues = append(issues, apperrors.FieldIssue{Field: "email", Message: "must be a valid email"})
	}
	if r.Password == "" {
		issues = append(issues, apperrors.FieldIssue{Field: "password", Message: "required"})
	}
	if len(issues) > 0 {
		return apperrors.NewValidationError("login payload is invalid", issues)
	}
	return nil
}

// UserResponse is the public view of a user.
type UserResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// NewUserResponse maps a user.
func NewUserResponse(u domain.User) UserResponse {
	return UserResponse{ID: u.ID, Email: u.Email, Name: u.Name}
}

// AuthResponse standard response for login.
type AuthResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expiresAt"`
	User      UserResponse `json:"user"`
}
