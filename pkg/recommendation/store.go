package recommendation

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/pawtrait/platform/internal/db"
	"github.com/pawtrait/platform/internal/httpserver"
)

// ErrNotFound is returned by store lookups that find no matching row.
var ErrNotFound = errors.New("not found")

// ProductStore persists Product rows (§6 "products table").
type ProductStore struct {
	dbtx db.DBTX
}

// NewProductStore creates a ProductStore.
func NewProductStore(dbtx db.DBTX) *ProductStore {
	return &ProductStore{dbtx: dbtx}
}

const productColumns = `id, name, brand, description, price, product_url, image_url,
	target_species, min_age_months, max_age_months, min_weight_kg, max_weight_kg, suitable_breeds,
	protein_percentage, fat_percentage, fiber_percentage, calories_per_100g,
	grain_free, organic, hypoallergenic, limited_ingredient, raw_food,
	for_sensitive_stomach, for_weight_management, for_joint_health, for_skin_allergies, for_dental_health, for_kidney_health,
	is_active, created_at, updated_at`

func scanProduct(row pgx.Row) (Product, error) {
	var p Product
	err := row.Scan(&p.ID, &p.Name, &p.Brand, &p.Description, &p.Price, &p.ProductURL, &p.ImageURL,
		&p.TargetSpecies, &p.MinAgeMonths, &p.MaxAgeMonths, &p.MinWeightKg, &p.MaxWeightKg, &p.SuitableBreeds,
		&p.ProteinPercentage, &p.FatPercentage, &p.FiberPercentage, &p.CaloriesPer100g,
		&p.GrainFree, &p.Organic, &p.Hypoallergenic, &p.LimitedIngredient, &p.RawFood,
		&p.ForSensitiveStomach, &p.ForWeightManagement, &p.ForJointHealth, &p.ForSkinAllergies, &p.ForDentalHealth, &p.ForKidneyHealth,
		&p.IsActive, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

// Create inserts a new product into the catalog.
func (s *ProductStore) Create(ctx context.Context, p Product) (Product, error) {
	query := `INSERT INTO products (
			name, brand, description, price, product_url, image_url,
			target_species, min_age_months, max_age_months, min_weight_kg, max_weight_kg, suitable_breeds,
			protein_percentage, fat_percentage, fiber_percentage, calories_per_100g,
			grain_free, organic, hypoallergenic, limited_ingredient, raw_food,
			for_sensitive_stomach, for_weight_management, for_joint_health, for_skin_allergies, for_dental_health, for_kidney_health
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23,$24,$25,$26,$27)
		RETURNING ` + productColumns
	row := s.dbtx.QueryRow(ctx, query,
		p.Name, p.Brand, p.Description, p.Price, p.ProductURL, p.ImageURL,
		p.TargetSpecies, p.MinAgeMonths, p.MaxAgeMonths, p.MinWeightKg, p.MaxWeightKg, p.SuitableBreeds,
		p.ProteinPercentage, p.FatPercentage, p.FiberPercentage, p.CaloriesPer100g,
		p.GrainFree, p.Organic, p.Hypoallergenic, p.LimitedIngredient, p.RawFood,
		p.ForSensitiveStomach, p.ForWeightManagement, p.ForJointHealth, p.ForSkinAllergies, p.ForDentalHealth, p.ForKidneyHealth,
	)
	out, err := scanProduct(row)
	if err != nil {
		return Product{}, fmt.Errorf("creating product: %w", err)
	}
	return out, nil
}

// GetByID looks up a product by ID regardless of active status.
func (s *ProductStore) GetByID(ctx context.Context, id int64) (Product, error) {
	row := s.dbtx.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id)
	p, err := scanProduct(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Product{}, ErrNotFound
	}
	if err != nil {
		return Product{}, fmt.Errorf("fetching product: %w", err)
	}
	return p, nil
}

// ListActive returns active products, optionally filtered by target species
// (§4.4 Protocol step 2).
func (s *ProductStore) ListActive(ctx context.Context, species string) ([]Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE is_active = true`
	args := []any{}
	if species != "" {
		query += ` AND target_species = $1`
		args = append(args, species)
	}
	query += ` ORDER BY id`

	rows, err := s.dbtx.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing active products: %w", err)
	}
	defer rows.Close()
	return scanProducts(rows)
}

// ListAdmin returns a filtered, paginated product listing for the admin
// catalog surface, plus the total matching row count (§4.4 "Catalog admin surface").
func (s *ProductStore) ListAdmin(ctx context.Context, species string, includeInactive bool, params httpserver.OffsetParams) ([]Product, int, error) {
	where := "WHERE true"
	args := []any{}
	if species != "" {
		args = append(args, species)
		where += fmt.Sprintf(" AND target_species = $%d", len(args))
	}
	if !includeInactive {
		where += " AND is_active = true"
	}

	var total int
	countQuery := `SELECT count(*) FROM products ` + where
	if err := s.dbtx.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting products: %w", err)
	}

	args = append(args, params.PageSize, params.Offset)
	query := fmt.Sprintf(`SELECT %s FROM products %s ORDER BY id LIMIT $%d OFFSET $%d`,
		productColumns, where, len(args)-1, len(args))
	rows, err := s.dbtx.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("listing products: %w", err)
	}
	defer rows.Close()

	products, err := scanProducts(rows)
	if err != nil {
		return nil, 0, err
	}
	return products, total, nil
}

func scanProducts(rows pgx.Rows) ([]Product, error) {
	var products []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning product: %w", err)
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

// Update replaces every mutable field of the product identified by id
// (the handler merges partial request fields onto the current row first,
// per §4.4 "updates (only fields present in request body overwrite)").
func (s *ProductStore) Update(ctx context.Context, id int64, p Product) (Product, error) {
	query := `UPDATE products SET
			name = $2, brand = $3, description = $4, price = $5, product_url = $6, image_url = $7,
			target_species = $8, min_age_months = $9, max_age_months = $10, min_weight_kg = $11, max_weight_kg = $12, suitable_breeds = $13,
			protein_percentage = $14, fat_percentage = $15, fiber_percentage = $16, calories_per_100g = $17,
			grain_free = $18, organic = $19, hypoallergenic = $20, limited_ingredient = $21, raw_food = $22,
			for_sensitive_stomach = $23, for_weight_management = $24, for_joint_health = $25, for_skin_allergies = $26, for_dental_health = $27, for_kidney_health = $28,
			updated_at = now()
		WHERE id = $1
		RETURNING ` + productColumns
	row := s.dbtx.QueryRow(ctx, query, id,
		p.Name, p.Brand, p.Description, p.Price, p.ProductURL, p.ImageURL,
		p.TargetSpecies, p.MinAgeMonths, p.MaxAgeMonths, p.MinWeightKg, p.MaxWeightKg, p.SuitableBreeds,
		p.ProteinPercentage, p.FatPercentage, p.FiberPercentage, p.CaloriesPer100g,
		p.GrainFree, p.Organic, p.Hypoallergenic, p.LimitedIngredient, p.RawFood,
		p.ForSensitiveStomach, p.ForWeightManagement, p.ForJointHealth, p.ForSkinAllergies, p.ForDentalHealth, p.ForKidneyHealth,
	)
	out, err := scanProduct(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Product{}, ErrNotFound
	}
	if err != nil {
		return Product{}, fmt.Errorf("updating product: %w", err)
	}
	return out, nil
}

// SoftDelete sets is_active=false for product id. Idempotent: re-deleting an
// already-inactive product still succeeds (§4.4 "soft-deletes").
func (s *ProductStore) SoftDelete(ctx context.Context, id int64) error {
	tag, err := s.dbtx.Exec(ctx, `UPDATE products SET is_active = false, updated_at = now() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting product: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// RecommendationHistoryStore persists the recommendations history table
// (§6 "Persisted state layout").
type RecommendationHistoryStore struct {
	dbtx db.DBTX
}

// NewRecommendationHistoryStore creates a RecommendationHistoryStore.
func NewRecommendationHistoryStore(dbtx db.DBTX) *RecommendationHistoryStore {
	return &RecommendationHistoryStore{dbtx: dbtx}
}

// RecordBatch appends one history row per ranked item returned to a caller.
func (s *RecommendationHistoryStore) RecordBatch(ctx context.Context, userID, petID uuid.UUID, items []RecommendationItem) error {
	for _, item := range items {
		_, err := s.dbtx.Exec(ctx,
			`INSERT INTO recommendations (user_id, pet_id, product_id, similarity_score, rank_position)
			 VALUES ($1, $2, $3, $4, $5)`,
			userID, petID, item.ProductID, item.SimilarityScore, item.RankPosition)
		if err != nil {
			return fmt.Errorf("recording recommendation history: %w", err)
		}
	}
	return nil
}

// FeedbackStore persists the user_feedback ledger (§6 "Persisted state layout").
type FeedbackStore struct {
	dbtx db.DBTX
}

// NewFeedbackStore creates a FeedbackStore.
func NewFeedbackStore(dbtx db.DBTX) *FeedbackStore {
	return &FeedbackStore{dbtx: dbtx}
}

// Create records a single interaction event.
func (s *FeedbackStore) Create(ctx context.Context, fb UserFeedback) (UserFeedback, error) {
	query := `INSERT INTO user_feedback (user_id, pet_id, product_id, interaction_type, interaction_value, similarity_score)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, user_id, pet_id, product_id, interaction_type, interaction_value, similarity_score, created_at`
	row := s.dbtx.QueryRow(ctx, query, fb.UserID, fb.PetID, fb.ProductID, string(fb.InteractionType), fb.InteractionValue, fb.SimilarityScore)

	var out UserFeedback
	var interactionType string
	err := row.Scan(&out.ID, &out.UserID, &out.PetID, &out.ProductID, &interactionType, &out.InteractionValue, &out.SimilarityScore, &out.CreatedAt)
	if err != nil {
		return UserFeedback{}, fmt.Errorf("recording feedback: %w", err)
	}
	out.InteractionType = InteractionType(interactionType)
	return out, nil
}
