package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/yourorg/vendorhub/internal/domain"
	"github.com/yourorg/vendorhub/internal/repository"
	"github.com/yourorg/vendorhub/internal/security/auth"
	"golang.org/x/crypto/bcrypt"
)

// SessionStore issues and consumes single-use refresh tokens.
type SessionStore interface {
	Create(ctx context.Context, userID int64) (string, error)
	Consume(ctx context.Context, token string) (*repository.Session, error)
}

// AuthService handles registration, login and token refresh.
type AuthService struct {
	users    domain.UserRepository
	tenants  domain.TenantRepository
	sessions SessionStore
	tokens   *auth.TokenManager
	logger   *slog.Logger
}

// NewAuthService creates a new authentication service
func NewAuthService(
	users domain.UserRepository,
	tenants domain.TenantRepository,
	sessions SessionStore,
	tokens *auth.TokenManager,
	logger *slog.Logger,
) *AuthService {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthService{
		users:    users,
		tenants:  tenants,
		sessions: sessions,
		tokens:   tokens,
		logger:   logger,
	}
}

// RegisterRequest carries a registration payload.
type RegisterRequest struct {
	Username        string      `json:"username"`
	Password        string      `json:"password"`
	PasswordConfirm string      `json:"password2"`
	Email           string      `json:"email"`
	TenantID        int64       `json:"tenant_id"`
	Role            domain.Role `json:"role"`
	Phone           string      `json:"phone"`
}

// UserSummary mirrors the claim set plus the tenant's display name.
type UserSummary struct {
	ID         int64  `json:"id"`
	Username   string `json:"username"`
	Email      string `json:"email"`
	TenantID   *int64 `json:"tenant_id"`
	TenantName string `json:"tenant_name,omitempty"`
	Role       string `json:"role"`
}

// LoginResult is the response to a successful login or refresh.
type LoginResult struct {
	AccessToken  string      `json:"access"`
	RefreshToken string      `json:"refresh"`
	TokenType    string      `json:"token_type"`
	ExpiresIn    int         `json:"expires_in"`
	User         UserSummary `json:"user"`
}

// Register creates a user bound to an active tenant with the given role.
func (s *AuthService) Register(ctx context.Context, req RegisterRequest) (*domain.User, error) {
	if req.Username == "" || req.Password == "" || req.Email == "" {
		return nil, domain.Validationf("username, email and password are required")
	}
	if req.Password != req.PasswordConfirm {
		return nil, domain.Validationf("password fields didn't match")
	}
	if len(req.Password) < 8 {
		return nil, domain.Validationf("password must be at least 8 characters")
	}
	if !domain.ValidRole(req.Role) {
		return nil, domain.Validationf("invalid role %q", req.Role)
	}

	if _, err := s.tenants.GetActiveByID(ctx, req.TenantID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.Validationf("tenant %d is not an active tenant", req.TenantID)
		}
		return nil, fmt.Errorf("failed to verify tenant: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		s.logger.Error("failed to hash password", slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to register user")
	}

	tenantID := req.TenantID
	user := &domain.User{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: string(hash),
		TenantID:     &tenantID,
		Role:         req.Role,
		Phone:        req.Phone,
		IsActive:     true,
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			return nil, fmt.Errorf("username already taken: %w", domain.ErrConflict)
		}
		s.logger.Error("failed to create user", slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to register user: %w", err)
	}

	s.logger.Info("user registered",
		slog.Int64("user_id", user.ID),
		slog.Int64("tenant_id", req.TenantID),
		slog.String("role", string(req.Role)),
	)
	return user, nil
}

// Login verifies credentials and mints an access/refresh token pair. Unknown
// usernames and wrong passwords fail identically so callers cannot enumerate
// accounts.
func (s *AuthService) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	if username == "" || password == "" {
		return nil, domain.Validationf("username and password are required")
	}

	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		s.logger.Info("login attempt with unknown username", slog.String("username", username))
		return nil, fmt.Errorf("invalid credentials: %w", domain.ErrUnauthenticated)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		s.logger.Info("login failed with wrong password", slog.String("username", username))
		return nil, fmt.Errorf("invalid credentials: %w", domain.ErrUnauthenticated)
	}

	result, err := s.issueTokens(ctx, user)
	if err != nil {
		return nil, err
	}

	s.logger.Info("user logged in",
		slog.Int64("user_id", user.ID),
		slog.String("username", user.Username),
	)
	return result, nil
}

// Refresh exchanges a refresh token for a new token pair. Tokens are
// single-use; the consumed one is gone whether or not the exchange succeeds.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*LoginResult, error) {
	if refreshToken == "" {
		return nil, domain.Validationf("refresh token is required")
	}

	session, err := s.sessions.Consume(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, domain.ErrUnauthenticated) {
			return nil, fmt.Errorf("invalid refresh token: %w", domain.ErrUnauthenticated)
		}
		return nil, fmt.Errorf("failed to refresh: %w", err)
	}

	user, err := s.users.GetByID(ctx, session.UserID)
	if err != nil || !user.IsActive {
		return nil, fmt.Errorf("invalid refresh token: %w", domain.ErrUnauthenticated)
	}

	return s.issueTokens(ctx, user)
}

func (s *AuthService) issueTokens(ctx context.Context, user *domain.User) (*LoginResult, error) {
	access, err := s.tokens.GenerateToken(user)
	if err != nil {
		s.logger.Error("failed to sign token", slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to generate token")
	}

	refresh, err := s.sessions.Create(ctx, user.ID)
	if err != nil {
		s.logger.Error("failed to create session", slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to generate token")
	}

	summary := UserSummary{
		ID:       user.ID,
		Username: user.Username,
		Email:    user.Email,
		TenantID: user.TenantID,
		Role:     string(user.Role),
	}
	if user.TenantID != nil {
		if tenant, err := s.tenants.GetByID(ctx, *user.TenantID); err == nil {
			summary.TenantName = tenant.StoreName
		}
	}

	return &LoginResult{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "Bearer",
		ExpiresIn:    int(s.tokens.TTL().Seconds()),
		User:         summary,
	}, nil
}
