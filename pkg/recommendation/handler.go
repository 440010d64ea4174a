package recommendation

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/pawtrait/platform/internal/httpserver"
)

// Handler exposes the Recommendation Service's HTTP surface (§6
// "Recommendation endpoints").
type Handler struct {
	svc    *Service
	logger *slog.Logger
}

// NewHandler creates a recommendation Handler.
func NewHandler(svc *Service, logger *slog.Logger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

// Routes mounts the recommendation and admin catalog endpoints.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/recommendations/food", h.handleFoodRecommendations)
	r.Post("/recommendations/feedback", h.handleRecordFeedback)

	r.Post("/admin/products", h.handleCreateProduct)
	r.Get("/admin/products", h.handleListProducts)
	r.Get("/admin/products/{productID}", h.handleGetProduct)
	r.Put("/admin/products/{productID}", h.handleUpdateProduct)
	r.Delete("/admin/products/{productID}", h.handleDeleteProduct)
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

// handleFoodRecommendations implements GET /api/v1/recommendations/food
// (§4.4 Protocol).
func (h *Handler) handleFoodRecommendations(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(r)
	if !ok {
		httpserver.RespondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "X-User-ID header is required")
		return
	}

	query := r.URL.Query()
	petID, err := uuid.Parse(query.Get("pet_id"))
	if err != nil {
		httpserver.RespondError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "pet_id must be a valid UUID")
		return
	}

	limit := 10
	if v := query.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 50 {
			httpserver.RespondError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "limit must be between 1 and 50")
			return
		}
		limit = n
	}

	minScore := 0.0
	if v := query.Get("min_score"); v != "" {
		n, err := strconv.ParseFloat(v, 64)
		if err != nil || n < 0 || n > 1 {
			httpserver.RespondError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "min_score must be between 0 and 1")
			return
		}
		minScore = n
	}

	resp, err := h.svc.GetFoodRecommendations(r.Context(), userID, petID, limit, minScore)
	if err != nil {
		if errors.Is(err, ErrPetNotFound) {
			httpserver.RespondError(w, http.StatusNotFound, "PET_NOT_FOUND", "pet not found or access denied")
			return
		}
		h.logger.Error("computing recommendations", "error", err, "pet_id", petID)
		httpserver.RespondError(w, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "recommendation engine temporarily unavailable")
		return
	}
	httpserver.Respond(w, http.StatusOK, resp)
}

type feedbackRequest struct {
	PetID            uuid.UUID `json:"pet_id" validate:"required"`
	ProductID        int64     `json:"product_id" validate:"required"`
	InteractionType  string    `json:"interaction_type" validate:"required,oneof=click view purchase rating"`
	InteractionValue *float64  `json:"interaction_value,omitempty"`
	SimilarityScore  *float64  `json:"similarity_score,omitempty"`
}

func (h *Handler) handleRecordFeedback(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(r)
	if !ok {
		httpserver.RespondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "X-User-ID header is required")
		return
	}
	var req feedbackRequest
	if !httpserver.DecodeAndValidate(w, r, &req) {
		return
	}

	fb, err := h.svc.RecordFeedback(r.Context(), UserFeedback{
		UserID:           userID,
		PetID:            req.PetID,
		ProductID:        req.ProductID,
		InteractionType:  InteractionType(req.InteractionType),
		InteractionValue: req.InteractionValue,
		SimilarityScore:  req.SimilarityScore,
	})
	if err != nil {
		h.logger.Error("recording feedback", "error", err)
		httpserver.RespondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "an internal error occurred")
		return
	}
	httpserver.Respond(w, http.StatusCreated, fb)
}

type productRequest struct {
	Name        string   `json:"name" validate:"required,min=1,max=255"`
	Brand       string   `json:"brand" validate:"required,min=1,max=100"`
	Description *string  `json:"description,omitempty"`
	Price       *float64 `json:"price,omitempty" validate:"omitempty,gte=0"`
	ProductURL  *string  `json:"product_url,omitempty" validate:"omitempty,max=500"`
	ImageURL    *string  `json:"image_url,omitempty" validate:"omitempty,max=500"`

	TargetSpecies  string   `json:"target_species" validate:"required,oneof=dog cat"`
	MinAgeMonths   *int     `json:"min_age_months,omitempty" validate:"omitempty,gte=0"`
	MaxAgeMonths   *int     `json:"max_age_months,omitempty" validate:"omitempty,gte=0"`
	MinWeightKg    *float64 `json:"min_weight_kg,omitempty" validate:"omitempty,gte=0"`
	MaxWeightKg    *float64 `json:"max_weight_kg,omitempty" validate:"omitempty,gte=0"`
	SuitableBreeds []string `json:"suitable_breeds,omitempty"`

	ProteinPercentage *float64 `json:"protein_percentage,omitempty" validate:"omitempty,gte=0,lte=100"`
	FatPercentage     *float64 `json:"fat_percentage,omitempty" validate:"omitempty,gte=0,lte=100"`
	FiberPercentage   *float64 `json:"fiber_percentage,omitempty" validate:"omitempty,gte=0,lte=100"`
	CaloriesPer100g   *int     `json:"calories_per_100g,omitempty" validate:"omitempty,gt=0"`

	GrainFree         bool `json:"grain_free"`
	Organic           bool `json:"organic"`
	Hypoallergenic    bool `json:"hypoallergenic"`
	LimitedIngredient bool `json:"limited_ingredient"`
	RawFood           bool `json:"raw_food"`

	ForSensitiveStomach bool `json:"for_sensitive_stomach"`
	ForWeightManagement bool `json:"for_weight_management"`
	ForJointHealth      bool `json:"for_joint_health"`
	ForSkinAllergies    bool `json:"for_skin_allergies"`
	ForDentalHealth     bool `json:"for_dental_health"`
	ForKidneyHealth     bool `json:"for_kidney_health"`
}

func (req productRequest) toProduct() Product {
	return Product{
		Name: req.Name, Brand: req.Brand, Description: req.Description, Price: req.Price,
		ProductURL: req.ProductURL, ImageURL: req.ImageURL,
		TargetSpecies: req.TargetSpecies, MinAgeMonths: req.MinAgeMonths, MaxAgeMonths: req.MaxAgeMonths,
		MinWeightKg: req.MinWeightKg, MaxWeightKg: req.MaxWeightKg, SuitableBreeds: req.SuitableBreeds,
		ProteinPercentage: req.ProteinPercentage, FatPercentage: req.FatPercentage,
		FiberPercentage: req.FiberPercentage, CaloriesPer100g: req.CaloriesPer100g,
		GrainFree: req.GrainFree, Organic: req.Organic, Hypoallergenic: req.Hypoallergenic,
		LimitedIngredient: req.LimitedIngredient, RawFood: req.RawFood,
		ForSensitiveStomach: req.ForSensitiveStomach, ForWeightManagement: req.ForWeightManagement,
		ForJointHealth: req.ForJointHealth, ForSkinAllergies: req.ForSkinAllergies,
		ForDentalHealth: req.ForDentalHealth, ForKidneyHealth: req.ForKidneyHealth,
	}
}

func (h *Handler) handleCreateProduct(w http.ResponseWriter, r *http.Request) {
	var req productRequest
	if !httpserver.DecodeAndValidate(w, r, &req) {
		return
	}
	product, err := h.svc.CreateProduct(r.Context(), req.toProduct())
	if err != nil {
		h.logger.Error("creating product", "error", err)
		httpserver.RespondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "an internal error occurred")
		return
	}
	httpserver.Respond(w, http.StatusCreated, product)
}

func (h *Handler) handleListProducts(w http.ResponseWriter, r *http.Request) {
	params, err := httpserver.ParseOffsetParams(r)
	if err != nil {
		httpserver.RespondError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", err.Error())
		return
	}

	species := r.URL.Query().Get("species")
	if species != "" && species != "dog" && species != "cat" {
		httpserver.RespondError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "species must be dog or cat")
		return
	}
	includeInactive := r.URL.Query().Get("include_inactive") == "true"

	products, total, err := h.svc.ListProducts(r.Context(), species, includeInactive, params)
	if err != nil {
		h.logger.Error("listing products", "error", err)
		httpserver.RespondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "an internal error occurred")
		return
	}
	httpserver.Respond(w, http.StatusOK, httpserver.NewOffsetPage(products, params, total))
}

func productIDFromPath(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "productID"), 10, 64)
}

func (h *Handler) handleGetProduct(w http.ResponseWriter, r *http.Request) {
	id, err := productIDFromPath(r)
	if err != nil {
		httpserver.RespondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid product id")
		return
	}
	product, err := h.svc.GetProduct(r.Context(), id)
	if err != nil {
		h.respondProductError(w, err)
		return
	}
	httpserver.Respond(w, http.StatusOK, product)
}

type productUpdateRequest struct {
	Name        *string  `json:"name,omitempty" validate:"omitempty,min=1,max=255"`
	Brand       *string  `json:"brand,omitempty" validate:"omitempty,min=1,max=100"`
	Description *string  `json:"description,omitempty"`
	Price       *float64 `json:"price,omitempty" validate:"omitempty,gte=0"`
	ProductURL  *string  `json:"product_url,omitempty"`
	ImageURL    *string  `json:"image_url,omitempty"`

	TargetSpecies  *string  `json:"target_species,omitempty" validate:"omitempty,oneof=dog cat"`
	MinAgeMonths   *int     `json:"min_age_months,omitempty" validate:"omitempty,gte=0"`
	MaxAgeMonths   *int     `json:"max_age_months,omitempty" validate:"omitempty,gte=0"`
	MinWeightKg    *float64 `json:"min_weight_kg,omitempty" validate:"omitempty,gte=0"`
	MaxWeightKg    *float64 `json:"max_weight_kg,omitempty" validate:"omitempty,gte=0"`
	SuitableBreeds []string `json:"suitable_breeds,omitempty"`

	ProteinPercentage *float64 `json:"protein_percentage,omitempty" validate:"omitempty,gte=0,lte=100"`
	FatPercentage     *float64 `json:"fat_percentage,omitempty" validate:"omitempty,gte=0,lte=100"`
	FiberPercentage   *float64 `json:"fiber_percentage,omitempty" validate:"omitempty,gte=0,lte=100"`
	CaloriesPer100g   *int     `json:"calories_per_100g,omitempty" validate:"omitempty,gt=0"`

	GrainFree         *bool `json:"grain_free,omitempty"`
	Organic           *bool `json:"organic,omitempty"`
	Hypoallergenic    *bool `json:"hypoallergenic,omitempty"`
	LimitedIngredient *bool `json:"limited_ingredient,omitempty"`
	RawFood           *bool `json:"raw_food,omitempty"`

	ForSensitiveStomach *bool `json:"for_sensitive_stomach,omitempty"`
	ForWeightManagement *bool `json:"for_weight_management,omitempty"`
	ForJointHealth      *bool `json:"for_joint_health,omitempty"`
	ForSkinAllergies    *bool `json:"for_skin_allergies,omitempty"`
	ForDentalHealth     *bool `json:"for_dental_health,omitempty"`
	ForKidneyHealth     *bool `json:"for_kidney_health,omitempty"`
}

// apply overwrites only the fields present in the request (§4.4 "updates
// (only fields present in request body overwrite)").
func (req productUpdateRequest) apply(p *Product) {
	if req.Name != nil {
		p.Name = *req.Name
	}
	if req.Brand != nil {
		p.Brand = *req.Brand
	}
	if req.Description != nil {
		p.Description = req.Description
	}
	if req.Price != nil {
		p.Price = req.Price
	}
	if req.ProductURL != nil {
		p.ProductURL = req.ProductURL
	}
	if req.ImageURL != nil {
		p.ImageURL = req.ImageURL
	}
	if req.TargetSpecies != nil {
		p.TargetSpecies = *req.TargetSpecies
	}
	if req.MinAgeMonths != nil {
		p.MinAgeMonths = req.MinAgeMonths
	}
	if req.MaxAgeMonths != nil {
		p.MaxAgeMonths = req.MaxAgeMonths
	}
	if req.MinWeightKg != nil {
		p.MinWeightKg = req.MinWeightKg
	}
	if req.MaxWeightKg != nil {
		p.MaxWeightKg = req.MaxWeightKg
	}
	if req.SuitableBreeds != nil {
		p.SuitableBreeds = req.SuitableBreeds
	}
	if req.ProteinPercentage != nil {
		p.ProteinPercentage = req.ProteinPercentage
	}
	if req.FatPercentage != nil {
		p.FatPercentage = req.FatPercentage
	}
	if req.FiberPercentage != nil {
		p.FiberPercentage = req.FiberPercentage
	}
	if req.CaloriesPer100g != nil {
		p.CaloriesPer100g = req.CaloriesPer100g
	}
	if req.GrainFree != nil {
		p.GrainFree = *req.GrainFree
	}
	if req.Organic != nil {
		p.Organic = *req.Organic
	}
	if req.Hypoallergenic != nil {
		p.Hypoallergenic = *req.Hypoallergenic
	}
	if req.LimitedIngredient != nil {
		p.LimitedIngredient = *req.LimitedIngredient
	}
	if req.RawFood != nil {
		p.RawFood = *req.RawFood
	}
	if req.ForSensitiveStomach != nil {
		p.ForSensitiveStomach = *req.ForSensitiveStomach
	}
	if req.ForWeightManagement != nil {
		p.ForWeightManagement = *req.ForWeightManagement
	}
	if req.ForJointHealth != nil {
		p.ForJointHealth = *req.ForJointHealth
	}
	if req.ForSkinAllergies != nil {
		p.ForSkinAllergies = *req.ForSkinAllergies
	}
	if req.ForDentalHealth != nil {
		p.ForDentalHealth = *req.ForDentalHealth
	}
	if req.ForKidneyHealth != nil {
		p.ForKidneyHealth = *req.ForKidneyHealth
	}
}

func (h *Handler) handleUpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, err := productIDFromPath(r)
	if err != nil {
		httpserver.RespondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid product id")
		return
	}
	var req productUpdateRequest
	if !httpserver.DecodeAndValidate(w, r, &req) {
		return
	}

	product, err := h.svc.UpdateProduct(r.Context(), id, req.apply)
	if err != nil {
		h.respondProductError(w, err)
		return
	}
	httpserver.Respond(w, http.StatusOK, product)
}

func (h *Handler) handleDeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, err := productIDFromPath(r)
	if err != nil {
		httpserver.RespondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid product id")
		return
	}
	if err := h.svc.DeleteProduct(r.Context(), id); err != nil {
		h.respondProductError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) respondProductError(w http.ResponseWriter, err error) {
	if errors.Is(err, ErrNotFound) {
		httpserver.RespondError(w, http.StatusNotFound, "PRODUCT_NOT_FOUND", "product not found")
		return
	}
	h.logger.Error("product operation failed", "error", err)
	httpserver.RespondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "an internal error occurred")
}
