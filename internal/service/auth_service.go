package service

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/opsboard/internal/auth"
	"github.com/spec-kit/opsboard/internal/domain"
	"github.com/spec-kit/opsboard/internal/repository"
	apperrors "github.com/spec-kit/opsboard/pkg/util/errorutil"
)

// AuthService coordinates login, logout and the user directory.
type AuthService struct {
	users    repository.UserRepository
	tokenMgr *auth.TokenManager
	revoker  auth.TokenRevoker
	logger   *zap.Logger
}

// AuthDependencies encapsulates collaborators for the auth service.
type AuthDependencies struct {
	UserRepo     repository.UserRepository
	TokenManager *auth.TokenManager
	Revoker      auth.TokenRevoker
	Logger       *zap.Logger
}

// NewAuthService builds the service.
func NewAuthService(deps AuthDependencies) *AuthService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{
		users:    deps.UserRepo,
		tokenMgr: deps.TokenManager,
		revoker:  deps.Revoker,
		logger:   logger,
	}
}

// Login verifies credentials and issues a bearer token. Every rejection looks the
// same to the caller; the reason is only logged.
func (s *AuthService) Login(ctx context.Context, email, password string) (*domain.User, domain.AccessToken, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			s.logger.Warn("login rejected", zap.String("email", email), zap.String("reason", "unknown email"))
			return nil, domain.AccessToken{}, apperrors.NewInvalidCredentials()
		}
		return nil, domain.AccessToken{}, s.internal("login lookup failed", err)
	}
	if !user.IsActive {
		s.logger.Warn("login rejected", zap.String("email", email), zap.String("reason", "inactive user"))
		return nil, domain.AccessToken{}, apperrors.NewInvalidCredentials()
	}
	if err := auth.ComparePassword(user.PasswordHash, password); err != nil {
		s.logger.Warn("login rejected", zap.String("email", email), zap.String("reason", "password mismatch"))
		return nil, domain.AccessToken{}, apperrors.NewInvalidCredentials()
	}

	token, err := s.tokenMgr.GenerateToken(user.ID)
	if err != nil {
		return nil, domain.AccessToken{}, s.internal("sign token failed", err)
	}
	return user, token, nil
}

// ListActiveUsers returns every active user by name, for owner pickers.
func (s *AuthService) ListActiveUsers(ctx context.Context) ([]domain.User, error) {
	users, err := s.users.ListActive(ctx)
	if err != nil {
		return nil, s.internal("list users failed", err)
	}
	return users, nil
}

// Logout revokes the token described by claims until it would have expired.
func (s *AuthService) Logout(ctx context.Context, claims *auth.Claims) error {
	if s.revoker == nil || claims == nil {
		return nil
	}
	if err := s.revoker.Revoke(ctx, claims.ID, s.tokenMgr.Remaining(claims)); err != nil {
		return s.internal("revoke token failed", err)
	}
	return nil
}

func (s *AuthService) internal(msg string, err error) error {
	s.logger.Error(msg, zap.Error(err))
	return apperrors.NewInternalError(err)
}
