package recommendation

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestFoodRecommendations_Validation(t *testing.T) {
	h := NewHandler(nil, nil)
	router := h.Routes()

	tests := []struct {
		name       string
		query      string
		withUserID bool
		wantStatus int
	}{
		{"missing X-User-ID", "?pet_id=" + validUUID, false, http.StatusUnauthorized},
		{"missing pet_id", "", true, http.StatusUnprocessableEntity},
		{"invalid pet_id", "?pet_id=not-a-uuid", true, http.StatusUnprocessableEntity},
		{"limit too low", "?pet_id=" + validUUID + "&limit=0", true, http.StatusUnprocessableEntity},
		{"limit too high", "?pet_id=" + validUUID + "&limit=51", true, http.StatusUnprocessableEntity},
		{"min_score out of range", "?pet_id=" + validUUID + "&min_score=1.5", true, http.StatusUnprocessableEntity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/recommendations/food"+tt.query, nil)
			if tt.withUserID {
				r.Header.Set("X-User-ID", validUUID)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, r)

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d; body = %s", w.Code, tt.wantStatus, w.Body.String())
			}
		})
	}
}

func TestRecordFeedback_Validation(t *testing.T) {
	h := NewHandler(nil, nil)
	router := h.Routes()

	tests := []struct {
		name       string
		body       string
		withUserID bool
		wantStatus int
	}{
		{"missing X-User-ID", `{}`, false, http.StatusUnauthorized},
		{"missing required fields", `{}`, true, http.StatusUnprocessableEntity},
		{"invalid interaction type", `{"pet_id":"` + validUUID + `","product_id":1,"interaction_type":"wishlist"}`, true, http.StatusUnprocessableEntity},
		{"invalid json", `{bad}`, true, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPost, "/recommendations/feedback", strings.NewReader(tt.body))
			r.Header.Set("Content-Type", "application/json")
			if tt.withUserID {
				r.Header.Set("X-User-ID", validUUID)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, r)

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d; body = %s", w.Code, tt.wantStatus, w.Body.String())
			}
		})
	}
}

func TestCreateProduct_Validation(t *testing.T) {
	h := NewHandler(nil, nil)
	router := h.Routes()

	tests := []struct {
		name       string
		body       string
		wantStatus int
	}{
		{"missing required fields", `{}`, http.StatusUnprocessableEntity},
		{"invalid target species", `{"name":"Chow","brand":"Acme","target_species":"fish"}`, http.StatusUnprocessableEntity},
		{"negative price", `{"name":"Chow","brand":"Acme","target_species":"dog","price":-1}`, http.StatusUnprocessableEntity},
		{"invalid json", `{bad}`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPost, "/admin/products", strings.NewReader(tt.body))
			r.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()
			router.ServeHTTP(w, r)

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d; body = %s", w.Code, tt.wantStatus, w.Body.String())
			}
		})
	}
}

func TestProductIDPath_InvalidID(t *testing.T) {
	h := NewHandler(nil, nil)
	router := h.Routes()

	r := httptest.NewRequest(http.MethodGet, "/admin/products/not-a-number", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d; body = %s", w.Code, http.StatusBadRequest, w.Body.String())
	}
}

func TestListProducts_InvalidSpecies(t *testing.T) {
	h := NewHandler(nil, nil)
	router := h.Routes()

	r := httptest.NewRequest(http.MethodGet, "/admin/products?species=bird", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)

	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want %d; body = %s", w.Code, http.StatusUnprocessableEntity, w.Body.String())
	}
}

const validUUID = "11111111-1111-1111-1111-111111111111"
