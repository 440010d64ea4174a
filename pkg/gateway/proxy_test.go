package gateway

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestRouteTableLongestPrefixWins(t *testing.T) {
	table, err := NewRouteTable(map[string]string{
		"/api/v1/admin":     "http://vision.internal",
		"/api/v1/admin/rag": "http://rag.internal",
	})
	if err != nil {
		t.Fatalf("building route table: %v", err)
	}

	target, ok := table.match("/api/v1/admin/rag/status")
	if !ok {
		t.Fatal("expected a match")
	}
	if target.Host != "rag.internal" {
		t.Errorf("host = %q, want rag.internal (longest prefix should win)", target.Host)
	}
}

func TestRouteTableNoMatch(t *testing.T) {
	table, err := NewRouteTable(map[string]string{"/api/v1/auth": "http://identity.internal"})
	if err != nil {
		t.Fatalf("building route table: %v", err)
	}
	if _, ok := table.match("/api/v1/unknown"); ok {
		t.Error("expected no match for an unrouted prefix")
	}
}

func TestProxyServeHTTP_NoRouteReturns404(t *testing.T) {
	table, _ := NewRouteTable(map[string]string{"/api/v1/auth": "http://identity.internal"})
	proxy := NewProxy(table, slog.Default())

	r := httptest.NewRequest(http.MethodGet, "/api/v1/unknown", nil)
	w := httptest.NewRecorder()
	proxy.ServeHTTP(w, r)

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestProxyForwardsAndRewritesHeaders(t *testing.T) {
	var gotHeaders http.Header
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotHeaders = r.Header.Clone()
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"success":true,"data":{"ok":true},"timestamp":"2026-01-01T00:00:00Z"}`))
	}))
	defer backend.Close()

	table, _ := NewRouteTable(map[string]string{"/api/v1/users": backend.URL})
	proxy := NewProxy(table, slog.Default())

	r := httptest.NewRequest(http.MethodGet, "/api/v1/users/pets", nil)
	r.Header.Set("Cookie", "access_token=should-be-dropped")
	r = r.WithContext(context.WithValue(r.Context(), userContextKey, &UserContext{UserID: "u1", Role: "user"}))
	w := httptest.NewRecorder()

	proxy.ServeHTTP(w, r)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body=%s", w.Code, w.Body.String())
	}
	if gotHeaders.Get("Cookie") != "" {
		t.Error("Cookie header should have been dropped before forwarding")
	}
	if gotHeaders.Get("X-User-ID") != "u1" {
		t.Errorf("X-User-ID = %q, want u1", gotHeaders.Get("X-User-ID"))
	}
	if gotHeaders.Get("X-User-Role") != "user" {
		t.Errorf("X-User-Role = %q, want user", gotHeaders.Get("X-User-Role"))
	}
	if gotHeaders.Get("X-Request-ID") == "" {
		t.Error("X-Request-ID should have been injected")
	}

	if w.Header().Get("X-Request-ID") == "" {
		t.Error("X-Request-ID should be echoed back to the client")
	}
	if w.Header().Get("X-Request-ID") != gotHeaders.Get("X-Request-ID") {
		t.Error("X-Request-ID returned to the client should match what was forwarded to the backend")
	}
	if w.Header().Get("X-Correlation-ID") == "" {
		t.Error("X-Correlation-ID should be echoed back to the client")
	}
}

func TestProxyNormalizesNonConformingBody(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`<html>not found</html>`))
	}))
	defer backend.Close()

	table, _ := NewRouteTable(map[string]string{"/api/v1/vision": backend.URL})
	proxy := NewProxy(table, slog.Default())

	r := httptest.NewRequest(http.MethodGet, "/api/v1/vision/analyze", nil)
	w := httptest.NewRecorder()
	proxy.ServeHTTP(w, r)

	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want application/json after normalization", ct)
	}
	if w.Body.Len() == 0 {
		t.Fatal("expected a normalized envelope body")
	}
}

func TestProxyPreservesMultipleSetCookie(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Add("Set-Cookie", "access_token=abc; Path=/")
		w.Header().Add("Set-Cookie", "refresh_token=def; Path=/api/v1/auth/refresh")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"success":true,"data":{},"timestamp":"2026-01-01T00:00:00Z"}`))
	}))
	defer backend.Close()

	table, _ := NewRouteTable(map[string]string{"/api/v1/auth": backend.URL})
	proxy := NewProxy(table, slog.Default())

	r := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", nil)
	w := httptest.NewRecorder()
	proxy.ServeHTTP(w, r)

	cookies := w.Result().Header.Values("Set-Cookie")
	if len(cookies) != 2 {
		t.Fatalf("expected 2 Set-Cookie headers, got %d: %v", len(cookies), cookies)
	}
}

func TestProxyBackendUnreachableReturns503(t *testing.T) {
	table, _ := NewRouteTable(map[string]string{"/api/v1/auth": "http://127.0.0.1:1"})
	proxy := NewProxy(table, slog.Default())

	r := httptest.NewRequest(http.MethodGet, "/api/v1/auth/login", nil)
	w := httptest.NewRecorder()
	proxy.ServeHTTP(w, r)

	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", w.Code)
	}
}
