// Package recommendation implements the Recommendation Service (§2 "RS"):
// content-based food matching over a fixed 15-dimension feature vector (§4.4).
package recommendation

import (
	"time"

	"github.com/google/uuid"
)

// Product is a catalog entry for a pet food item (§6 "products table").
type Product struct {
	ID          int64    `json:"id"`
	Name        string   `json:"name"`
	Brand       string   `json:"brand"`
	Description *string  `json:"description,omitempty"`
	Price       *float64 `json:"price,omitempty"`
	ProductURL  *string  `json:"product_url,omitempty"`
	ImageURL    *string  `json:"image_url,omitempty"`

	TargetSpecies  string   `json:"target_species"`
	MinAgeMonths   *int     `json:"min_age_months,omitempty"`
	MaxAgeMonths   *int     `json:"max_age_months,omitempty"`
	MinWeightKg    *float64 `json:"min_weight_kg,omitempty"`
	MaxWeightKg    *float64 `json:"max_weight_kg,omitempty"`
	SuitableBreeds []string `json:"suitable_breeds,omitempty"`

	ProteinPercentage *float64 `json:"protein_percentage,omitempty"`
	FatPercentage     *float64 `json:"fat_percentage,omitempty"`
	FiberPercentage   *float64 `json:"fiber_percentage,omitempty"`
	CaloriesPer100g   *int     `json:"calories_per_100g,omitempty"`

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

	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// PetProfile is the subset of a User Data Service pet record the ranking
// engine needs, as returned by GET /api/v1/users/pets/{id} (§4.4 Protocol step 1).
type PetProfile struct {
	ID               uuid.UUID `json:"id"`
	Name             string    `json:"name"`
	Species          string    `json:"species"`
	Breed            string    `json:"breed"`
	AgeMonths        *int      `json:"age_months"`
	WeightKg         *float64  `json:"weight_kg"`
	HealthConditions []string  `json:"health_conditions"`
}

// NutritionalHighlights summarizes a recommended product's nutrition panel.
type NutritionalHighlights struct {
	ProteinPercentage *float64 `json:"protein_percentage,omitempty"`
	FatPercentage     *float64 `json:"fat_percentage,omitempty"`
	CaloriesPer100g   *int     `json:"calories_per_100g,omitempty"`
}

// RecommendationItem is a single ranked product in a recommendations response.
type RecommendationItem struct {
	ProductID             int64                 `json:"product_id"`
	Name                  string                `json:"name"`
	Brand                 string                `json:"brand"`
	Price                 *float64              `json:"price,omitempty"`
	ProductURL            *string               `json:"product_url,omitempty"`
	ImageURL              *string               `json:"image_url,omitempty"`
	SimilarityScore       float64               `json:"similarity_score"`
	RankPosition          int                   `json:"rank_position"`
	MatchReasons          []string              `json:"match_reasons"`
	NutritionalHighlights NutritionalHighlights `json:"nutritional_highlights"`
}

// Metadata carries the explainability counters SPEC_FULL.md supplements
// alongside the ranked list (mirrored from the original's recommendations.py).
type Metadata struct {
	TotalProductsEvaluated  int    `json:"total_products_evaluated"`
	ProductsAboveThreshold  int    `json:"products_above_threshold"`
	RecommendationsReturned int    `json:"recommendations_returned"`
	Message                 string `json:"message,omitempty"`
}

// AlgorithmVersion is reported on every recommendations response for clients
// that want to correlate scores against a specific ranking revision.
const AlgorithmVersion = "content-based-v1.0"

// RecommendationsResponse is the body of GET /api/v1/recommendations/food.
type RecommendationsResponse struct {
	Pet              PetProfile            `json:"pet"`
	Recommendations  []RecommendationItem  `json:"recommendations"`
	Metadata         Metadata              `json:"metadata"`
	AlgorithmVersion string                `json:"algorithm_version"`
}

// RecommendationRecord is one row of the recommendations history table
// (§6 "Persisted state layout" — "a recommendations history").
type RecommendationRecord struct {
	ID              int64     `json:"id"`
	UserID          uuid.UUID `json:"user_id"`
	PetID           uuid.UUID `json:"pet_id"`
	ProductID       int64     `json:"product_id"`
	SimilarityScore float64   `json:"similarity_score"`
	RankPosition    int       `json:"rank_position"`
	CreatedAt       time.Time `json:"created_at"`
}

// InteractionType is the closed vocabulary for user_feedback rows.
type InteractionType string

const (
	InteractionClick    InteractionType = "click"
	InteractionView     InteractionType = "view"
	InteractionPurchase InteractionType = "purchase"
	InteractionRating   InteractionType = "rating"
)

// UserFeedback is one row of the user_feedback ledger (§6 "Persisted state
// layout" — "a user_feedback ledger"), kept for future supervised learning
// per the original's models/user_feedback.py.
type UserFeedback struct {
	ID              int64           `json:"id"`
	UserID          uuid.UUID       `json:"user_id"`
	PetID           uuid.UUID       `json:"pet_id"`
	ProductID       int64           `json:"product_id"`
	InteractionType InteractionType `json:"interaction_type"`
	InteractionValue *float64       `json:"interaction_value,omitempty"`
	SimilarityScore  *float64       `json:"similarity_score,omitempty"`
	CreatedAt        time.Time      `json:"created_at"`
}
