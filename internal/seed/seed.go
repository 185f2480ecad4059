// Package seed provisions the employee accounts the board starts with.
package seed

import (
	"context"
	"fmt"
	"strings"

	"github.com/spec-kit/opsboard/internal/auth"
	"github.com/spec-kit/opsboard/internal/domain"
	"github.com/spec-kit/opsboard/internal/repository"
)

// DefaultPassword is set on every seeded account unless overridden.
const DefaultPassword = "Password@123"

// Account is one user to provision.
type Account struct {
	Name  string
	Email string
}

// DefaultAccounts are the coordinators created on a fresh install.
var DefaultAccounts = []Account{
	{Name: "Siddharth", Email: "siddharth@opsboard.local"},
	{Name: "Father", Email: "father@opsboard.local"},
	{Name: "Partner 1", Email: "partner1@opsboard.local"},
	{Name: "Ops Guy", Email: "ops@opsboard.local"},
}

// Users upserts accounts by email with the given password. Existing rows get their
// name and password refreshed and are reactivated.
func Users(ctx context.Context, users repository.UserRepository, accounts []Account, password string, cost int) ([]domain.User, error) {
	hash, err := auth.HashPassword(password, cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	out := make([]domain.User, 0, len(accounts))
	for _, acc := range accounts {
		user := domain.User{
			Name:         strings.TrimSpace(acc.Name),
			Email:        strings.ToLower(strings.TrimSpace(acc.Email)),
			PasswordHash: hash,
			IsActive:     true,
		}
		if err := users.Upsert(ctx, &user); err != nil {
			return nil, fmt.Errorf("upsert %s: %w", user.Email, err)
		}
		out = append(out, user)
	}
	return out, nil
}

// SetActive toggles whether the account with email may log in and own requests.
func SetActive(ctx context.Context, users repository.UserRepository, email string, active bool) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if err := users.SetActive(ctx, email, active); err != nil {
		return fmt.Errorf("set active %s: %w", email, err)
	}
	return nil
}
