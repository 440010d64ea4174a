package vision

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestAnalyze_Validation(t *testing.T) {
	h := NewHandler(nil, nil, nil)
	router := h.Routes()

	tests := []struct {
		name       string
		body       string
		wantStatus int
	}{
		{
			name:       "missing image",
			body:       `{}`,
			wantStatus: http.StatusUnprocessableEntity,
		},
		{
			name:       "invalid base64 payload",
			body:       `{"image":"data:image/png;base64,not-valid-base64!!!"}`,
			wantStatus: http.StatusUnprocessableEntity,
		},
		{
			name:       "invalid json",
			body:       `{bad}`,
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPost, "/vision/analyze", strings.NewReader(tt.body))
			r.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()
			router.ServeHTTP(w, r)

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d; body = %s", w.Code, tt.wantStatus, w.Body.String())
			}
		})
	}
}

func TestRAGQuery_Validation(t *testing.T) {
	h := NewHandler(nil, nil, nil)
	router := h.Routes()

	r := httptest.NewRequest(http.MethodPost, "/rag/query", strings.NewReader(`{}`))
	r.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)

	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want %d; body = %s", w.Code, http.StatusUnprocessableEntity, w.Body.String())
	}
}

func TestRAGInitialize_RejectsNonLoopback(t *testing.T) {
	h := NewHandler(nil, nil, nil)
	router := h.Routes()

	r := httptest.NewRequest(http.MethodPost, "/admin/rag/initialize", nil)
	r.RemoteAddr = "203.0.113.5:12345"
	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)

	if w.Code != http.StatusForbidden {
		t.Errorf("status = %d, want %d; body = %s", w.Code, http.StatusForbidden, w.Body.String())
	}
}

func TestIsValidImageDataURI(t *testing.T) {
	tests := []struct {
		name  string
		image string
		want  bool
	}{
		{"plain base64", "aGVsbG8=", true},
		{"data uri prefix", "data:image/png;base64,aGVsbG8=", true},
		{"empty", "", false},
		{"bad base64", "not-valid-base64!!!", false},
		{"wrong prefix", "data:text/plain,aGVsbG8=", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isValidImageDataURI(tt.image); got != tt.want {
				t.Errorf("isValidImageDataURI(%q) = %v, want %v", tt.image, got, tt.want)
			}
		})
	}
}
