package userdata

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/pawtrait/platform/internal/httpserver"
)

// Handler exposes the User Data Service's HTTP surface (§6 "User Data endpoints").
// Every route trusts the X-User-ID / X-User-Role headers the Gateway injects
// after verifying the caller's session; the User Data Service performs no
// token verification of its own.
type Handler struct {
	svc    *Service
	logger *slog.Logger
}

// NewHandler creates a userdata Handler.
func NewHandler(svc *Service, logger *slog.Logger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

// Routes mounts the user data endpoints under /users.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/profile", h.handleGetProfile)
	r.Put("/profile", h.handlePutProfile)

	r.Post("/pets", h.handleCreatePet)
	r.Get("/pets", h.handleListPets)
	r.Get("/pets/{petID}", h.handleGetPet)
	r.Put("/pets/{petID}", h.handleUpdatePet)
	r.Delete("/pets/{petID}", h.handleDeletePet)
	r.Get("/pets/{petID}/analyses", h.handleListAnalyses)
	r.Post("/pets/{petID}/analyses", h.handleRecordAnalysis)

	r.Delete("/delete", h.handleDeleteUser)
	return r
}

func callerID(r *http.Request) (uuid.UUID, bool) {
	raw := r.Header.Get("X-User-ID")
	if raw == "" {
		return uuid.UUID{}, false
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.UUID{}, false
	}
	return id, true
}

func isAdmin(r *http.Request) bool {
	return r.Header.Get("X-User-Role") == "admin"
}

func (h *Handler) requireCaller(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	owner, ok := callerID(r)
	if !ok {
		httpserver.RespondError(w, http.StatusUnauthorized, "MISSING_USER_ID", "X-User-ID header is required")
		return uuid.UUID{}, false
	}
	return owner, true
}

type addressRequest struct {
	Street  string `json:"street"`
	City    string `json:"city"`
	State   string `json:"state"`
	Zip     string `json:"zip"`
	Country string `json:"country"`
}

type profileRequest struct {
	Contact     string          `json:"contact" validate:"required"`
	Address     addressRequest  `json:"address"`
	Preferences json.RawMessage `json:"preferences,omitempty"`
}

func (h *Handler) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	owner, ok := h.requireCaller(w, r)
	if !ok {
		return
	}
	profile, err := h.svc.GetProfile(r.Context(), owner)
	if err != nil {
		h.respondDomainError(w, err)
		return
	}
	httpserver.Respond(w, http.StatusOK, profile)
}

func (h *Handler) handlePutProfile(w http.ResponseWriter, r *http.Request) {
	owner, ok := h.requireCaller(w, r)
	if !ok {
		return
	}
	var req profileRequest
	if !httpserver.DecodeAndValidate(w, r, &req) {
		return
	}
	addr := Address{Street: req.Address.Street, City: req.Address.City, State: req.Address.State,
		Zip: req.Address.Zip, Country: req.Address.Country}
	profile, err := h.svc.UpsertProfile(r.Context(), owner, req.Contact, addr, req.Preferences)
	if err != nil {
		h.respondDomainError(w, err)
		return
	}
	httpserver.Respond(w, http.StatusOK, profile)
}

type petRequest struct {
	Name             string   `json:"name" validate:"required"`
	Species          string   `json:"species" validate:"required,oneof=dog cat other"`
	Breed            string   `json:"breed"`
	AgeMonths        *int     `json:"age_months" validate:"omitempty,gte=0"`
	WeightKg         *float64 `json:"weight_kg" validate:"omitempty,gt=0"`
	HealthConditions []string `json:"health_conditions"`
}

func toHealthConditions(raw []string) []HealthCondition {
	out := make([]HealthCondition, len(raw))
	for i, c := range raw {
		out[i] = HealthCondition(c)
	}
	return out
}

func (h *Handler) handleCreatePet(w http.ResponseWriter, r *http.Request) {
	owner, ok := h.requireCaller(w, r)
	if !ok {
		return
	}
	var req petRequest
	if !httpserver.DecodeAndValidate(w, r, &req) {
		return
	}
	pet, err := h.svc.CreatePet(r.Context(), owner, req.Name, Species(req.Species), req.Breed,
		req.AgeMonths, req.WeightKg, toHealthConditions(req.HealthConditions))
	if err != nil {
		h.respondDomainError(w, err)
		return
	}
	httpserver.Respond(w, http.StatusCreated, pet)
}

func (h *Handler) handleListPets(w http.ResponseWriter, r *http.Request) {
	owner, ok := h.requireCaller(w, r)
	if !ok {
		return
	}
	pets, err := h.svc.ListPets(r.Context(), owner)
	if err != nil {
		h.respondDomainError(w, err)
		return
	}
	httpserver.Respond(w, http.StatusOK, map[string]any{"pets": pets})
}

func petIDFromPath(r *http.Request) (uuid.UUID, error) {
	return uuid.Parse(chi.URLParam(r, "petID"))
}

func (h *Handler) handleGetPet(w http.ResponseWriter, r *http.Request) {
	owner, ok := h.requireCaller(w, r)
	if !ok {
		return
	}
	petID, err := petIDFromPath(r)
	if err != nil {
		httpserver.RespondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid pet id")
		return
	}
	pet, err := h.svc.GetPet(r.Context(), petID, owner, isAdmin(r))
	if err != nil {
		h.respondDomainError(w, err)
		return
	}
	httpserver.Respond(w, http.StatusOK, pet)
}

func (h *Handler) handleUpdatePet(w http.ResponseWriter, r *http.Request) {
	owner, ok := h.requireCaller(w, r)
	if !ok {
		return
	}
	petID, err := petIDFromPath(r)
	if err != nil {
		httpserver.RespondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid pet id")
		return
	}
	var req petRequest
	if !httpserver.DecodeAndValidate(w, r, &req) {
		return
	}
	pet, err := h.svc.UpdatePet(r.Context(), petID, owner, req.Name, Species(req.Species), req.Breed,
		req.AgeMonths, req.WeightKg, toHealthConditions(req.HealthConditions))
	if err != nil {
		h.respondDomainError(w, err)
		return
	}
	httpserver.Respond(w, http.StatusOK, pet)
}

func (h *Handler) handleDeletePet(w http.ResponseWriter, r *http.Request) {
	owner, ok := h.requireCaller(w, r)
	if !ok {
		return
	}
	petID, err := petIDFromPath(r)
	if err != nil {
		httpserver.RespondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid pet id")
		return
	}
	if err := h.svc.DeletePet(r.Context(), petID, owner); err != nil {
		h.respondDomainError(w, err)
		return
	}
	httpserver.Respond(w, http.StatusOK, map[string]bool{"deleted": true})
}

func (h *Handler) handleListAnalyses(w http.ResponseWriter, r *http.Request) {
	owner, ok := h.requireCaller(w, r)
	if !ok {
		return
	}
	petID, err := petIDFromPath(r)
	if err != nil {
		httpserver.RespondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid pet id")
		return
	}
	analyses, err := h.svc.ListAnalyses(r.Context(), petID, owner, isAdmin(r))
	if err != nil {
		h.respondDomainError(w, err)
		return
	}
	httpserver.Respond(w, http.StatusOK, map[string]any{"analyses": analyses})
}

type analysisRequest struct {
	ImageRef      string          `json:"image_ref" validate:"required"`
	DetectedBreed string          `json:"detected_breed"`
	Confidence    float64         `json:"confidence" validate:"gte=0,lte=1"`
	Traits        json.RawMessage `json:"traits,omitempty"`
	RawResponse   json.RawMessage `json:"raw_response,omitempty"`
}

func (h *Handler) handleRecordAnalysis(w http.ResponseWriter, r *http.Request) {
	owner, ok := h.requireCaller(w, r)
	if !ok {
		return
	}
	petID, err := petIDFromPath(r)
	if err != nil {
		httpserver.RespondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid pet id")
		return
	}
	var req analysisRequest
	if !httpserver.DecodeAndValidate(w, r, &req) {
		return
	}
	analysis, err := h.svc.RecordAnalysis(r.Context(), owner, petID, req.ImageRef, req.DetectedBreed,
		req.Confidence, req.Traits, req.RawResponse)
	if err != nil {
		h.respondDomainError(w, err)
		return
	}
	httpserver.Respond(w, http.StatusCreated, analysis)
}

// handleDeleteUser implements the cascade-delete endpoint the Identity
// Service calls before removing its own identity row (§4.2 "Delete self").
// It is idempotent: deleting an owner with no records succeeds with zero counts.
func (h *Handler) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	owner, ok := h.requireCaller(w, r)
	if !ok {
		return
	}
	summary, err := h.svc.DeleteUser(r.Context(), owner)
	if err != nil {
		h.logger.Error("cascade delete user", "error", err, "owner_id", owner)
		httpserver.RespondError(w, http.StatusInternalServerError, "DELETION_FAILED", "failed to delete user data")
		return
	}
	httpserver.Respond(w, http.StatusOK, summary)
}

func (h *Handler) respondDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		httpserver.RespondError(w, http.StatusNotFound, "NOT_FOUND", "resource not found")
	case errors.Is(err, ErrForbidden):
		httpserver.RespondError(w, http.StatusForbidden, "FORBIDDEN", "you do not have access to this resource")
	default:
		httpserver.RespondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "an internal error occurred")
	}
}
