package userdata

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

func newTestRouter(h *Handler) chi.Router {
	router := chi.NewRouter()
	router.Mount("/users", h.Routes())
	return router
}

func TestGetProfile_MissingUserID(t *testing.T) {
	h := NewHandler(nil, nil)
	router := newTestRouter(h)

	r := httptest.NewRequest(http.MethodGet, "/users/profile", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d; body = %s", w.Code, http.StatusUnauthorized, w.Body.String())
	}
}

func TestPutProfile_Validation(t *testing.T) {
	h := NewHandler(nil, nil)
	router := newTestRouter(h)

	tests := []struct {
		name       string
		header     string
		body       string
		wantStatus int
	}{
		{
			name:       "missing user id",
			header:     "",
			body:       `{"contact":"a@example.com"}`,
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "missing contact",
			header:     uuid.New().String(),
			body:       `{}`,
			wantStatus: http.StatusUnprocessableEntity,
		},
		{
			name:       "invalid json",
			header:     uuid.New().String(),
			body:       `{bad}`,
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPut, "/users/profile", strings.NewReader(tt.body))
			r.Header.Set("Content-Type", "application/json")
			if tt.header != "" {
				r.Header.Set("X-User-ID", tt.header)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, r)

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d; body = %s", w.Code, tt.wantStatus, w.Body.String())
			}
		})
	}
}

func TestCreatePet_Validation(t *testing.T) {
	h := NewHandler(nil, nil)
	router := newTestRouter(h)
	owner := uuid.New().String()

	tests := []struct {
		name       string
		body       string
		wantStatus int
	}{
		{
			name:       "missing name",
			body:       `{"species":"dog"}`,
			wantStatus: http.StatusUnprocessableEntity,
		},
		{
			name:       "invalid species",
			body:       `{"name":"Rex","species":"dragon"}`,
			wantStatus: http.StatusUnprocessableEntity,
		},
		{
			name:       "negative age",
			body:       `{"name":"Rex","species":"dog","age_months":-1}`,
			wantStatus: http.StatusUnprocessableEntity,
		},
		{
			name:       "non-positive weight",
			body:       `{"name":"Rex","species":"dog","weight_kg":0}`,
			wantStatus: http.StatusUnprocessableEntity,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPost, "/users/pets", strings.NewReader(tt.body))
			r.Header.Set("Content-Type", "application/json")
			r.Header.Set("X-User-ID", owner)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, r)

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d; body = %s", w.Code, tt.wantStatus, w.Body.String())
			}
		})
	}
}

func TestGetPet_InvalidID(t *testing.T) {
	h := NewHandler(nil, nil)
	router := newTestRouter(h)

	r := httptest.NewRequest(http.MethodGet, "/users/pets/not-a-uuid", nil)
	r.Header.Set("X-User-ID", uuid.New().String())
	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestRecordAnalysis_Validation(t *testing.T) {
	h := NewHandler(nil, nil)
	router := newTestRouter(h)
	owner := uuid.New().String()
	petID := uuid.New().String()

	tests := []struct {
		name       string
		body       string
		wantStatus int
	}{
		{
			name:       "missing image ref",
			body:       `{"confidence":0.5}`,
			wantStatus: http.StatusUnprocessableEntity,
		},
		{
			name:       "confidence out of range",
			body:       `{"image_ref":"s3://x","confidence":1.5}`,
			wantStatus: http.StatusUnprocessableEntity,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPost, "/users/pets/"+petID+"/analyses", strings.NewReader(tt.body))
			r.Header.Set("Content-Type", "application/json")
			r.Header.Set("X-User-ID", owner)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, r)

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d; body = %s", w.Code, tt.wantStatus, w.Body.String())
			}
		})
	}
}

func TestDeleteUser_MissingUserID(t *testing.T) {
	h := NewHandler(nil, nil)
	router := newTestRouter(h)

	r := httptest.NewRequest(http.MethodDelete, "/users/delete", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
}

func TestIsAdmin(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	if isAdmin(r) {
		t.Error("expected false with no role header")
	}
	r.Header.Set("X-User-Role", "admin")
	if !isAdmin(r) {
		t.Error("expected true with admin role header")
	}
}
