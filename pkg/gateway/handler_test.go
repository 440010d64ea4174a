package gateway

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/pawtrait/platform/internal/signing"
)

type testPipeline struct {
	handler  *Handler
	verifier *signing.Verifier
	issuer   *signing.Issuer
	redis    *miniredis.Miniredis
}

func newTestPipeline(t *testing.T, backendURL string, limit int) *testPipeline {
	t.Helper()

	srv, err := miniredis.Run()
	if err != nil {
		t.Fatalf("starting miniredis: %v", err)
	}
	t.Cleanup(srv.Close)
	rdb := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { rdb.Close() })

	logger := slog.Default()
	verifier, issuer := newTestVerifierAndIssuer(t)

	table, err := NewRouteTable(map[string]string{"/api/v1/auth": backendURL, "/api/v1/users": backendURL})
	if err != nil {
		t.Fatalf("building route table: %v", err)
	}
	proxy := NewProxy(table, logger)
	limiter := NewRateLimiter(rdb, limit, logger)
	handler := NewHandler(proxy, limiter, verifier, logger)

	return &testPipeline{handler: handler, verifier: verifier, issuer: issuer, redis: srv}
}

func newFakeBackend(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"success":true,"data":{"user_id":"` + r.Header.Get("X-User-ID") + `"},"timestamp":"2026-01-01T00:00:00Z"}`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestPipelinePublicEndpointSkipsAuth(t *testing.T) {
	backend := newFakeBackend(t)
	p := newTestPipeline(t, backend.URL, 60)

	r := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", nil)
	w := httptest.NewRecorder()
	p.handler.serve(w, r)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body=%s", w.Code, w.Body.String())
	}
}

func TestPipelineUnauthenticatedNonPublicReturns401(t *testing.T) {
	backend := newFakeBackend(t)
	p := newTestPipeline(t, backend.URL, 60)

	r := httptest.NewRequest(http.MethodGet, "/api/v1/users/me", nil)
	w := httptest.NewRecorder()
	p.handler.serve(w, r)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}
}

func TestPipelineAuthenticatedRequestInjectsUserHeaders(t *testing.T) {
	backend := newFakeBackend(t)
	p := newTestPipeline(t, backend.URL, 60)

	token, _, err := p.issuer.IssueAccessToken("user-42", "u@example.com", "user")
	if err != nil {
		t.Fatalf("issuing token: %v", err)
	}

	r := httptest.NewRequest(http.MethodGet, "/api/v1/users/me", nil)
	r.AddCookie(&http.Cookie{Name: accessCookieName, Value: token})
	w := httptest.NewRecorder()
	p.handler.serve(w, r)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body=%s", w.Code, w.Body.String())
	}
	if w.Header().Get("X-RateLimit-Limit") == "" {
		t.Error("expected X-RateLimit-Limit header on a successful response")
	}
	if want := `"user_id":"user-42"`; !strings.Contains(w.Body.String(), want) {
		t.Errorf("body = %s, want it to contain %s", w.Body.String(), want)
	}
}

func TestPipelineIPRateLimitExceededBeforeAuth(t *testing.T) {
	backend := newFakeBackend(t)
	p := newTestPipeline(t, backend.URL, 1)

	r1 := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", nil)
	w1 := httptest.NewRecorder()
	p.handler.serve(w1, r1)
	if w1.Code != http.StatusOK {
		t.Fatalf("first request status = %d, want 200", w1.Code)
	}

	r2 := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", nil)
	w2 := httptest.NewRecorder()
	p.handler.serve(w2, r2)
	if w2.Code != http.StatusTooManyRequests {
		t.Fatalf("second request status = %d, want 429", w2.Code)
	}
	if w2.Header().Get("Retry-After") == "" {
		t.Error("expected Retry-After header on a rate-limited response")
	}
}

func TestPipelineUserRateLimitExceededAfterAuth(t *testing.T) {
	backend := newFakeBackend(t)
	p := newTestPipeline(t, backend.URL, 1)

	token, _, err := p.issuer.IssueAccessToken("user-7", "u@example.com", "user")
	if err != nil {
		t.Fatalf("issuing token: %v", err)
	}

	// Exhaust the IP-scoped bucket on a public path first so the
	// authenticated path's user-scoped bucket is the one under test.
	pub := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", nil)
	p.handler.serve(httptest.NewRecorder(), pub)

	r := httptest.NewRequest(http.MethodGet, "/api/v1/users/me", nil)
	r.RemoteAddr = "10.0.0.9:12345"
	r.AddCookie(&http.Cookie{Name: accessCookieName, Value: token})
	w := httptest.NewRecorder()
	p.handler.serve(w, r)
	if w.Code != http.StatusOK {
		t.Fatalf("first authenticated request status = %d, want 200", w.Code)
	}

	r2 := httptest.NewRequest(http.MethodGet, "/api/v1/users/me", nil)
	r2.RemoteAddr = "10.0.0.10:12345"
	r2.AddCookie(&http.Cookie{Name: accessCookieName, Value: token})
	w2 := httptest.NewRecorder()
	p.handler.serve(w2, r2)
	if w2.Code != http.StatusTooManyRequests {
		t.Fatalf("second authenticated request (same user, different IP) status = %d, want 429", w2.Code)
	}
}

func TestPipelineAdminPathRequiresAdminRole(t *testing.T) {
	backend := newFakeBackend(t)
	p := newTestPipeline(t, backend.URL, 60)

	table, err := NewRouteTable(map[string]string{"/api/v1/admin/products": backend.URL})
	if err != nil {
		t.Fatalf("building route table: %v", err)
	}
	p.handler.proxy = NewProxy(table, slog.Default())

	token, _, err := p.issuer.IssueAccessToken("user-9", "u@example.com", "user")
	if err != nil {
		t.Fatalf("issuing token: %v", err)
	}

	r := httptest.NewRequest(http.MethodPost, "/api/v1/admin/products", nil)
	r.AddCookie(&http.Cookie{Name: accessCookieName, Value: token})
	w := httptest.NewRecorder()
	p.handler.serve(w, r)

	if w.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403 for a non-admin caller on an admin path", w.Code)
	}
}

func TestPipelineAdminPathAllowsAdminRole(t *testing.T) {
	backend := newFakeBackend(t)
	p := newTestPipeline(t, backend.URL, 60)

	table, err := NewRouteTable(map[string]string{"/api/v1/admin/products": backend.URL})
	if err != nil {
		t.Fatalf("building route table: %v", err)
	}
	p.handler.proxy = NewProxy(table, slog.Default())

	token, _, err := p.issuer.IssueAccessToken("admin-1", "a@example.com", "admin")
	if err != nil {
		t.Fatalf("issuing token: %v", err)
	}

	r := httptest.NewRequest(http.MethodPost, "/api/v1/admin/products", nil)
	r.AddCookie(&http.Cookie{Name: accessCookieName, Value: token})
	w := httptest.NewRecorder()
	p.handler.serve(w, r)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 for an admin caller on an admin path; body=%s", w.Code, w.Body.String())
	}
}
