package recommendation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/pawtrait/platform/internal/httpserver"
)

// matchReasonPhrases maps each health condition to the canonical phrase
// emitted when a product's matching flag aligns with a pet's tag (§4.4
// "Match reasons" — "Targets joint health", "Good for sensitive stomach", …).
var matchReasonPhrases = map[string]string{
	"sensitive_stomach":  "Good for sensitive stomach",
	"weight_management":  "Supports weight management",
	"joint_health":       "Targets joint health",
	"skin_allergies":     "Formulated for skin allergies",
	"dental_health":      "Promotes dental health",
	"kidney_health":       "Supports kidney health",
}

const genericMatchReason = "Nutritionally compatible"

// Service implements the Recommendation Ranking Engine (§4.4).
type Service struct {
	products  *ProductStore
	history   *RecommendationHistoryStore
	feedback  *FeedbackStore
	userData  UserDataClient
	cache     *ResponseCache
	weights   [FeatureVectorLen]float64
	threshold float64
	logger    *slog.Logger
}

// NewService creates a recommendation Service.
func NewService(products *ProductStore, history *RecommendationHistoryStore, feedback *FeedbackStore,
	userData UserDataClient, cache *ResponseCache, logger *slog.Logger) *Service {
	return &Service{
		products:  products,
		history:   history,
		feedback:  feedback,
		userData:  userData,
		cache:     cache,
		weights:   DefaultWeightVector(),
		threshold: DefaultSimilarityThreshold,
		logger:    logger,
	}
}

// GetFoodRecommendations implements §4.4's Protocol end to end.
func (s *Service) GetFoodRecommendations(ctx context.Context, userID, petID uuid.UUID, limit int, minScore float64) (RecommendationsResponse, error) {
	pet, err := s.userData.GetPet(ctx, userID, petID)
	if err != nil {
		if errors.Is(err, ErrPetNotFound) {
			return RecommendationsResponse{}, ErrPetNotFound
		}
		return RecommendationsResponse{}, fmt.Errorf("fetching pet: %w", err)
	}
	pet.ID = petID

	if cached, ok := s.cache.Get(ctx, petID, limit, minScore); ok {
		return cached, nil
	}

	products, err := s.products.ListActive(ctx, pet.Species)
	if err != nil {
		return RecommendationsResponse{}, fmt.Errorf("listing active products: %w", err)
	}

	if len(products) == 0 {
		return RecommendationsResponse{
			Pet:             pet,
			Recommendations: []RecommendationItem{},
			Metadata: Metadata{
				Message: "No products available for this species",
			},
			AlgorithmVersion: AlgorithmVersion,
		}, nil
	}

	petFeatures := extractPetFeatures(pet)
	ranked := rankProducts(petFeatures, products, s.weights, s.threshold)

	items := make([]RecommendationItem, 0, limit)
	rank := 0
	for _, candidate := range ranked {
		if candidate.score < minScore {
			break // ranked is sorted descending; all remaining scores are lower
		}
		rank++
		if rank > limit {
			break
		}

		product := products[candidate.index]
		items = append(items, RecommendationItem{
			ProductID:       product.ID,
			Name:            product.Name,
			Brand:           product.Brand,
			Price:           product.Price,
			ProductURL:      product.ProductURL,
			ImageURL:        product.ImageURL,
			SimilarityScore: candidate.score,
			RankPosition:    rank,
			MatchReasons:    matchReasons(pet, product),
			NutritionalHighlights: NutritionalHighlights{
				ProteinPercentage: product.ProteinPercentage,
				FatPercentage:     product.FatPercentage,
				CaloriesPer100g:   product.CaloriesPer100g,
			},
		})
	}

	resp := RecommendationsResponse{
		Pet:             pet,
		Recommendations: items,
		Metadata: Metadata{
			TotalProductsEvaluated:  len(products),
			ProductsAboveThreshold:  len(ranked),
			RecommendationsReturned: len(items),
		},
		AlgorithmVersion: AlgorithmVersion,
	}

	if err := s.history.RecordBatch(ctx, userID, petID, items); err != nil {
		s.logger.Warn("recording recommendation history", "error", err, "pet_id", petID)
	}
	s.cache.Set(ctx, petID, limit, minScore, resp)

	return resp, nil
}

// matchReasons synthesizes deterministic explainability reasons for a
// product, per §4.4 "Match reasons".
func matchReasons(pet PetProfile, product Product) []string {
	conditions := make(map[string]bool, len(pet.HealthConditions))
	for _, c := range pet.HealthConditions {
		conditions[c] = true
	}

	productFlags := map[string]bool{
		"sensitive_stomach": product.ForSensitiveStomach,
		"weight_management": product.ForWeightManagement,
		"joint_health":       product.ForJointHealth,
		"skin_allergies":     product.ForSkinAllergies,
		"dental_health":      product.ForDentalHealth,
		"kidney_health":      product.ForKidneyHealth,
	}

	var reasons []string
	for _, condition := range healthConditionOrder {
		if conditions[condition] && productFlags[condition] {
			reasons = append(reasons, matchReasonPhrases[condition])
		}
	}
	if len(reasons) == 0 {
		reasons = append(reasons, genericMatchReason)
	}
	return reasons
}

// CreateProduct adds a new catalog entry (§4.4 "POST /admin/products creates").
func (s *Service) CreateProduct(ctx context.Context, p Product) (Product, error) {
	p.IsActive = true
	return s.products.Create(ctx, p)
}

// GetProduct looks up a single product by ID.
func (s *Service) GetProduct(ctx context.Context, id int64) (Product, error) {
	return s.products.GetByID(ctx, id)
}

// ListProducts returns a filtered, paginated admin catalog listing plus the
// total matching row count (§4.4 "GET /admin/products lists with
// species/include_inactive/limit filters").
func (s *Service) ListProducts(ctx context.Context, species string, includeInactive bool, params httpserver.OffsetParams) ([]Product, int, error) {
	return s.products.ListAdmin(ctx, species, includeInactive, params)
}

// UpdateProduct merges a partial update onto the current product and persists it.
func (s *Service) UpdateProduct(ctx context.Context, id int64, apply func(*Product)) (Product, error) {
	current, err := s.products.GetByID(ctx, id)
	if err != nil {
		return Product{}, err
	}
	apply(&current)
	return s.products.Update(ctx, id, current)
}

// DeleteProduct soft-deletes a product (§4.4 "soft-deletes").
func (s *Service) DeleteProduct(ctx context.Context, id int64) error {
	return s.products.SoftDelete(ctx, id)
}

// RecordFeedback records a single user interaction event.
func (s *Service) RecordFeedback(ctx context.Context, fb UserFeedback) (UserFeedback, error) {
	return s.feedback.Create(ctx, fb)
}
