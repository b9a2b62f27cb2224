package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/yourorg/vendorhub/internal/domain"
	"github.com/yourorg/vendorhub/internal/observability/metrics"
	"github.com/yourorg/vendorhub/internal/service"
)

// AuthHandler handles authentication endpoints
type AuthHandler struct {
	authService *service.AuthService
	logger      *slog.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService *service.AuthService, logger *slog.Logger) *AuthHandler {
	if logger == nil {
		logger = slog.Default()
	}

	return &AuthHandler{
		authService: authService,
		logger:      logger,
	}
}

// Register handles POST /api/auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req service.RegisterRequest
	if !decodeBody(w, r, &req) {
		return
	}

	user, err := h.authService.Register(r.Context(), req)
	if err != nil {
		h.logger.Info("registration failed",
			slog.String("username", req.Username),
			slog.String("error", err.Error()),
		)
		writeServiceError(w, h.logger, err)
		return
	}

	h.logger.Info("user registered",
		slog.Int64("user_id", user.ID),
		slog.String("username", user.Username),
	)
	writeJSON(w, http.StatusCreated, service.UserSummary{
		ID:       user.ID,
		Username: user.Username,
		Email:    user.Email,
		Role:     string(user.Role),
		TenantID: user.TenantID,
	})
}

// LoginRequest represents login credentials
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Login handles POST /api/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Username == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "username and password required")
		return
	}

	result, err := h.authService.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, domain.ErrUnauthenticated) {
			metrics.IncAuthFailure("login")
			h.logger.Warn("authentication failed", slog.String("username", req.Username))
			// Generic error to prevent user enumeration
			writeError(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		writeServiceError(w, h.logger, err)
		return
	}

	h.logger.Info("user logged in",
		slog.Int64("user_id", result.User.ID),
		slog.String("username", result.User.Username),
	)
	writeJSON(w, http.StatusOK, result)
}

// RefreshRequest carries a single-use refresh token.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// Refresh handles POST /api/auth/refresh
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.RefreshToken == "" {
		writeError(w, http.StatusBadRequest, "refresh_token required")
		return
	}

	result, err := h.authService.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		if errors.Is(err, domain.ErrUnauthenticated) {
			metrics.IncAuthFailure("refresh")
			writeError(w, http.StatusUnauthorized, "invalid or expired refresh token")
			return
		}
		writeServiceError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}
