package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/wans112/web-toko/internal/auth"
	"github.com/wans112/web-toko/internal/domain"
	"github.com/wans112/web-toko/internal/repository"
	apperrors "github.com/wans112/web-toko/pkg/util"
)

const invalidLoginMessage = "invalid username or password"

// AuthService coordinates login flows.
type AuthService struct {
	users      repository.UserRepository
	tokenMgr   *auth.TokenManager
	bcryptCost int
	logger     *zap.Logger
}

// AuthDependencies encapsulates requirements for auth service.
type AuthDependencies struct {
	UserRepo     repository.UserRepository
	TokenManager *auth.TokenManager
	BcryptCost   int
	Logger       *zap.Logger
}

// NewAuthService builds the service.
func NewAuthService(deps AuthDependencies) *AuthService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{
		users:      deps.UserRepo,
		tokenMgr:   deps.TokenManager,
		bcryptCost: deps.BcryptCost,
		logger:     logger,
	}
}

// Login authenticates a user by username and password and issues a session
// credential. Unknown users and wrong passwords fail identically.
func (s *AuthService) Login(ctx context.Context, username, password string) (*domain.User, string, time.Time, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, "", time.Time{}, apperrors.NewValidationError("username and password are required", nil)
	}

	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, "", time.Time{}, apperrors.NewUnauthorized(invalidLoginMessage)
		}
		return nil, "", time.Time{}, apperrors.NewServiceUnavailable("user store unavailable", err)
	}
	if err := auth.ComparePassword(user.PasswordHash, password); err != nil {
		s.logger.Debug("login rejected", zap.String("username", username))
		return nil, "", time.Time{}, apperrors.NewUnauthorized(invalidLoginMessage)
	}

	token, exp, err := s.tokenMgr.GenerateToken(user.Identity())
	if err != nil {
		return nil, "", time.Time{}, apperrors.NewInternalError(err)
	}
	return user, token, exp, nil
}

// EnsureUser creates the account unless the username already exists. It is
// used to seed an initial login at startup.
func (s *AuthService) EnsureUser(ctx context.Context, username, password string, role domain.Role) (*domain.User, bool, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, false, apperrors.NewValidationError("username and password are required", nil)
	}
	if !role.Valid() {
		return nil, false, apperrors.NewValidationError("invalid role", map[string]any{"role": role})
	}

	existing, err := s.users.GetByUsername(ctx, username)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, false, err
	}

	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return nil, false, err
	}
	user := &domain.User{Username: username, PasswordHash: hash, Role: role}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, false, err
	}
	s.logger.Info("seeded user", zap.String("username", username), zap.String("role", string(role)))
	return user, true, nil
}
