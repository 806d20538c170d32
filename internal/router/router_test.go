// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package router tests verify the HTTP routing configuration, middleware
// chains, and the health endpoint. Handlers are built without stores, so
// only paths that stop before the repository layer are exercised.
package router

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"blogapi/internal/auth"
	"blogapi/internal/handlers"
	"blogapi/internal/middleware"
	"blogapi/internal/models"
	"blogapi/internal/pagination"
)

type revokedSet map[string]bool

func (s revokedSet) IsRevoked(_ context.Context, jti string) (bool, error) {
	return s[jti], nil
}

type accountSet map[uuid.UUID]*models.User

func (s accountSet) FindByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	return s[id], nil
}

type testRouter struct {
	chi.Router
	issuer   *auth.Issuer
	revoked  revokedSet
	accounts accountSet
}

func newTestRouter(t *testing.T, limiter *middleware.RateLimiter) *testRouter {
	t.Helper()
	iss, err := auth.NewIssuer("router-test-secret-0123456789abcdef", "blogapi-test", time.Hour)
	if err != nil {
		t.Fatalf("issuer: %v", err)
	}
	revoked := revokedSet{}
	accounts := accountSet{}
	reg := prometheus.NewRegistry()
	page := pagination.DefaultConfig()

	r := New(Deps{
		Auth:        handlers.NewAuth(nil, iss, nil, "blogapi-test"),
		Users:       handlers.NewUsers(nil, nil, page),
		Posts:       handlers.NewPosts(nil, nil, nil, page),
		Categories:  handlers.NewCategories(nil, nil, page),
		Verifier:    iss,
		Revoked:     revoked,
		Accounts:    accounts,
		AuthLimiter: limiter,
		Metrics:     middleware.NewMetrics(reg),
		Gatherer:    reg,
	})
	return &testRouter{Router: r, issuer: iss, revoked: revoked, accounts: accounts}
}

// token issues a token for a new stored user with the given role.
func (tr *testRouter) token(t *testing.T, role models.Role) string {
	t.Helper()
	u := &models.User{ID: uuid.New(), Name: "John Doe", Email: "john@mail.com", Role: role}
	tr.accounts[u.ID] = u
	tok, _, err := tr.issuer.Issue(u)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	return tok
}

func (tr *testRouter) do(method, path, token, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	tr.ServeHTTP(rec, req)
	return rec
}

func decodeMessage(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var env struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode body %q: %v", rec.Body.String(), err)
	}
	return env.Message
}

func TestHealthHandler(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest("GET", "/health", nil)

	healthHandler(w, r)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status: got %d, want 200", resp.StatusCode)
	}

	ct := resp.Header.Get("Content-Type")
	if !strings.HasPrefix(ct, "application/json") {
		t.Errorf("content-type: got %q, want application/json", ct)
	}

	var body map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("status field: got %q, want %q", body["status"], "ok")
	}
}

func TestGlobalMiddleware(t *testing.T) {
	tr := newTestRouter(t, nil)

	rec := tr.do(http.MethodGet, "/health", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /health: got %d, want 200", rec.Code)
	}
	if got := rec.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("X-Content-Type-Options: got %q, want nosniff", got)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	tr := newTestRouter(t, nil)
	tr.do(http.MethodGet, "/health", "", "")

	rec := tr.do(http.MethodGet, "/metrics", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /metrics: got %d, want 200", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "http_requests_total") {
		t.Error("metrics output missing http_requests_total")
	}
	if !strings.Contains(body, `route="/health"`) {
		t.Error("metrics output missing the /health route label")
	}
}

func TestUnknownRoute(t *testing.T) {
	tr := newTestRouter(t, nil)

	rec := tr.do(http.MethodGet, "/api/nope", "", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status: got %d, want 404", rec.Code)
	}
	if msg := decodeMessage(t, rec); msg != "Route not found" {
		t.Errorf("message: got %q", msg)
	}

	rec = tr.do(http.MethodDelete, "/health", "", "")
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("DELETE /health: got %d, want 405", rec.Code)
	}
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	tr := newTestRouter(t, nil)
	id := uuid.NewString()

	routes := []struct{ method, path string }{
		{http.MethodGet, "/api/auth/profile"},
		{http.MethodPost, "/api/auth/logout"},
		{http.MethodPost, "/api/auth/2fa/setup"},
		{http.MethodPost, "/api/auth/2fa/verify"},
		{http.MethodGet, "/api/users"},
		{http.MethodGet, "/api/users/" + id},
		{http.MethodGet, "/api/posts"},
		{http.MethodGet, "/api/posts/slug/hello-world"},
		{http.MethodPost, "/api/posts"},
		{http.MethodPut, "/api/posts/" + id},
		{http.MethodDelete, "/api/posts/" + id},
		{http.MethodGet, "/api/categories"},
		{http.MethodPost, "/api/categories"},
	}

	for _, rt := range routes {
		t.Run(rt.method+" "+rt.path, func(t *testing.T) {
			rec := tr.do(rt.method, rt.path, "", "{}")
			if rec.Code != http.StatusUnauthorized {
				t.Errorf("got %d, want 401", rec.Code)
			}
		})
	}
}

func TestAdminRoutesRejectUsers(t *testing.T) {
	tr := newTestRouter(t, nil)
	tok := tr.token(t, models.RoleUser)
	id := uuid.NewString()

	routes := []struct{ method, path string }{
		{http.MethodPost, "/api/users"},
		{http.MethodPut, "/api/users/" + id},
		{http.MethodDelete, "/api/users/" + id},
		{http.MethodPost, "/api/users/" + id + "/reset-2fa"},
		{http.MethodPost, "/api/categories"},
		{http.MethodPut, "/api/categories/" + id},
		{http.MethodDelete, "/api/categories/" + id},
	}

	for _, rt := range routes {
		t.Run(rt.method+" "+rt.path, func(t *testing.T) {
			rec := tr.do(rt.method, rt.path, tok, "{}")
			if rec.Code != http.StatusForbidden {
				t.Errorf("got %d, want 403", rec.Code)
			}
		})
	}
}

func TestAuthenticatedRequestReachesHandler(t *testing.T) {
	tr := newTestRouter(t, nil)

	// A malformed id is rejected by the handler, past authentication.
	for _, role := range []models.Role{models.RoleUser, models.RoleAdmin} {
		rec := tr.do(http.MethodGet, "/api/users/not-a-uuid", tr.token(t, role), "")
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: got %d, want 400", role, rec.Code)
		}
	}

	rec := tr.do(http.MethodDelete, "/api/categories/not-a-uuid", tr.token(t, models.RoleAdmin), "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("admin delete: got %d, want 400", rec.Code)
	}
}

func TestAdminRoutesFollowStoredRole(t *testing.T) {
	tr := newTestRouter(t, nil)
	tok := tr.token(t, models.RoleAdmin)
	claims, err := tr.issuer.Verify(tok)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}

	tr.accounts[claims.UserID].Role = models.RoleUser
	rec := tr.do(http.MethodDelete, "/api/categories/not-a-uuid", tok, "")
	if rec.Code != http.StatusForbidden {
		t.Errorf("demoted admin: got %d, want 403", rec.Code)
	}

	delete(tr.accounts, claims.UserID)
	rec = tr.do(http.MethodDelete, "/api/categories/not-a-uuid", tok, "")
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("deleted admin: got %d, want 401", rec.Code)
	}
}

func TestRevokedTokenRejected(t *testing.T) {
	tr := newTestRouter(t, nil)
	tok := tr.token(t, models.RoleUser)

	claims, err := tr.issuer.Verify(tok)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	tr.revoked[claims.ID] = true

	rec := tr.do(http.MethodGet, "/api/users/not-a-uuid", tok, "")
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("got %d, want 401", rec.Code)
	}
}

func TestCredentialEndpointsAreRateLimited(t *testing.T) {
	limiter := middleware.NewRateLimiter(2, time.Minute)
	t.Cleanup(limiter.Stop)
	tr := newTestRouter(t, limiter)

	// Empty bodies fail validation before any store is touched.
	for i := 0; i < 2; i++ {
		rec := tr.do(http.MethodPost, "/api/auth/login", "", "{}")
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("attempt %d: got %d, want 400", i+1, rec.Code)
		}
	}

	rec := tr.do(http.MethodPost, "/api/auth/register", "", "{}")
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("third attempt: got %d, want 429", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("missing Retry-After header")
	}

	// Authenticated auth routes are not throttled.
	rec = tr.do(http.MethodGet, "/api/auth/profile", "", "")
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("profile: got %d, want 401", rec.Code)
	}
}
