package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/yourorg/vendorhub/internal/domain"
	"github.com/yourorg/vendorhub/internal/security"
	"github.com/yourorg/vendorhub/internal/security/auth"
	"github.com/yourorg/vendorhub/internal/security/ratelimit"
)

type tenantContextKey struct{}

// exemptPrefixes bypass token extraction entirely: the public auth surface,
// the admin surface (which carries its own static credential) and the
// operational endpoints.
var exemptPrefixes = []string{
	"/api/auth/",
	"/api/admin/",
	"/healthz",
	"/readyz",
	"/metrics",
}

func exempt(path string) bool {
	for _, p := range exemptPrefixes {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}

// ClaimsExtractor derives the per-request TenantContext from the bearer
// token and attaches it to the request context. It never rejects a request
// itself: a missing, malformed or expired token degrades to the anonymous
// context and the policy layer denies downstream.
func ClaimsExtractor(tm *auth.TokenManager, log *slog.Logger) func(http.Handler) http.Handler {
	if log == nil {
		log = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if exempt(r.URL.Path) {
				next.ServeHTTP(w, r.WithContext(withTenantContext(r.Context(), security.Anonymous())))
				return
			}

			actor := security.Anonymous()
			if authHeader := r.Header.Get("Authorization"); authHeader != "" {
				if tokenString, err := auth.ExtractToken(authHeader); err == nil {
					if claims, err := tm.ValidateToken(tokenString); err == nil {
						actor = contextFromClaims(claims)
					} else {
						log.Debug("token rejected",
							slog.String("path", r.URL.Path),
							slog.String("error", err.Error()),
						)
					}
				}
			}

			next.ServeHTTP(w, r.WithContext(withTenantContext(r.Context(), actor)))
		})
	}
}

func contextFromClaims(claims *auth.Claims) security.TenantContext {
	actor := security.TenantContext{
		UserID:        claims.UserID,
		Role:          domain.Role(claims.Role),
		Username:      claims.Username,
		Authenticated: true,
	}
	if claims.TenantID != nil {
		actor.TenantID = *claims.TenantID
	}
	return actor
}

func withTenantContext(ctx context.Context, actor security.TenantContext) context.Context {
	return context.WithValue(ctx, tenantContextKey{}, actor)
}

// TenantContextFrom returns the request's TenantContext, or the anonymous
// context when the extractor did not run.
func TenantContextFrom(ctx context.Context) security.TenantContext {
	if v, ok := ctx.Value(tenantContextKey{}).(security.TenantContext); ok {
		return v
	}
	return security.Anonymous()
}

// RateLimit applies the per-tenant sliding window, with a stricter per-IP
// budget on the login endpoint to slow credential stuffing.
func RateLimit(limiter *ratelimit.Limiter, log *slog.Logger) func(http.Handler) http.Handler {
	if log == nil {
		log = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/api/auth/login" {
				if !limiter.AllowStrict(clientIP(r), 10, limiter.Window()) {
					http.Error(w, `{"error":"rate limit exceeded"}`, http.StatusTooManyRequests)
					return
				}
				next.ServeHTTP(w, r)
				return
			}
			if exempt(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			actor := TenantContextFrom(r.Context())
			key := ""
			if actor.HasTenant() {
				key = "tenant:" + strconv.FormatInt(actor.TenantID, 10)
			}
			if !limiter.Allow(key) {
				log.Warn("rate limit exceeded",
					slog.Int64("tenant_id", actor.TenantID),
					slog.String("path", r.URL.Path),
				)
				http.Error(w, `{"error":"rate limit exceeded"}`, http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if i := strings.IndexByte(fwd, ','); i > 0 {
			return strings.TrimSpace(fwd[:i])
		}
		return strings.TrimSpace(fwd)
	}
	host := r.RemoteAddr
	if i := strings.LastIndexByte(host, ':'); i > 0 {
		host = host[:i]
	}
	return host
}
