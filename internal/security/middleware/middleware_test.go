package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/yourorg/vendorhub/internal/domain"
	"github.com/yourorg/vendorhub/internal/security"
	"github.com/yourorg/vendorhub/internal/security/auth"
	"github.com/yourorg/vendorhub/internal/security/ratelimit"
)

func captureActor(t *testing.T) (http.Handler, *security.TenantContext) {
	t.Helper()
	var got security.TenantContext
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = TenantContextFrom(r.Context())
		w.WriteHeader(http.StatusOK)
	})
	return h, &got
}

func TestClaimsExtractorValidToken(t *testing.T) {
	tm := auth.NewTokenManager("test-secret", "test", time.Minute)
	tenantID := int64(7)
	token, err := tm.GenerateToken(&domain.User{
		ID:       42,
		Username: "alice",
		Email:    "alice@example.com",
		TenantID: &tenantID,
		Role:     domain.RoleStaff,
	})
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}

	inner, got := captureActor(t)
	h := ClaimsExtractor(tm, nil)(inner)

	req := httptest.NewRequest("GET", "/api/products", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if !got.Authenticated {
		t.Fatal("expected authenticated actor")
	}
	if got.TenantID != 7 || got.UserID != 42 {
		t.Fatalf("wrong identity: tenant=%d user=%d", got.TenantID, got.UserID)
	}
	if got.Role != domain.RoleStaff {
		t.Fatalf("wrong role: %s", got.Role)
	}
}

// A bad token never rejects at the middleware; the request proceeds as
// anonymous and the policy layer denies it downstream.
func TestClaimsExtractorGarbageTokenDegradesToAnonymous(t *testing.T) {
	tm := auth.NewTokenManager("test-secret", "test", time.Minute)

	inner, got := captureActor(t)
	h := ClaimsExtractor(tm, nil)(inner)

	req := httptest.NewRequest("GET", "/api/products", nil)
	req.Header.Set("Authorization", "Bearer not.a.token")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("middleware should not reject, got %d", rec.Code)
	}
	if got.Authenticated {
		t.Fatal("expected anonymous actor for garbage token")
	}
}

func TestClaimsExtractorWrongSecret(t *testing.T) {
	minter := auth.NewTokenManager("secret-a", "test", time.Minute)
	tenantID := int64(1)
	token, err := minter.GenerateToken(&domain.User{ID: 1, TenantID: &tenantID, Role: domain.RoleCustomer})
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}

	verifier := auth.NewTokenManager("secret-b", "test", time.Minute)
	inner, got := captureActor(t)
	h := ClaimsExtractor(verifier, nil)(inner)

	req := httptest.NewRequest("GET", "/api/orders", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if got.Authenticated {
		t.Fatal("token signed with the wrong secret must not authenticate")
	}
}

func TestClaimsExtractorExemptPath(t *testing.T) {
	tm := auth.NewTokenManager("test-secret", "test", time.Minute)

	inner, got := captureActor(t)
	h := ClaimsExtractor(tm, nil)(inner)

	req := httptest.NewRequest("POST", "/api/auth/login", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("exempt path should pass through, got %d", rec.Code)
	}
	if got.Authenticated {
		t.Fatal("exempt paths run as anonymous")
	}
}

func TestRateLimitPerTenant(t *testing.T) {
	limiter := ratelimit.NewLimiter(3, time.Minute)
	defer limiter.Stop()

	h := RateLimit(limiter, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	actor := security.TenantContext{TenantID: 9, UserID: 1, Role: domain.RoleStaff, Authenticated: true}
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest("GET", "/api/products", nil)
		req = req.WithContext(withTenantContext(req.Context(), actor))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("request %d should pass, got %d", i+1, rec.Code)
		}
	}

	req := httptest.NewRequest("GET", "/api/products", nil)
	req = req.WithContext(withTenantContext(req.Context(), actor))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 over the limit, got %d", rec.Code)
	}

	// A different tenant has its own window.
	other := security.TenantContext{TenantID: 10, UserID: 2, Role: domain.RoleStaff, Authenticated: true}
	req = httptest.NewRequest("GET", "/api/products", nil)
	req = req.WithContext(withTenantContext(req.Context(), other))
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("other tenant should not share the window, got %d", rec.Code)
	}
}
