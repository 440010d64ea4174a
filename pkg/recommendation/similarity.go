package recommendation

import (
	"math"
	"sort"
)

// DefaultWeightVector mirrors the original's config.py WEIGHT_VECTOR: health
// conditions (indices 4..10) dominate at 0.40 each, including the reserved
// slot 10 which no feature extractor ever sets — kept for fidelity to the
// original rather than "corrected" (see DESIGN.md Open Question decisions).
// Ingredient preferences (index 14) carry zero weight despite being a
// computed product feature, also kept as the original's intentional no-op.
func DefaultWeightVector() [FeatureVectorLen]float64 {
	const (
		weightAgeCompatibility   = 0.20
		weightSizeCompatibility  = 0.10
		weightHealthConditions   = 0.40
		weightNutritionalProfile = 0.20
	)
	// Ingredient preferences (conceptually 0.10) is hardcoded to 0.0 in the
	// vector itself below, not applied here.

	return [FeatureVectorLen]float64{
		weightAgeCompatibility,
		weightSizeCompatibility / 2,
		0.05,
		weightSizeCompatibility / 2,
		weightHealthConditions,
		weightHealthConditions,
		weightHealthConditions,
		weightHealthConditions,
		weightHealthConditions,
		weightHealthConditions,
		weightHealthConditions,
		weightNutritionalProfile / 2,
		weightNutritionalProfile / 4,
		weightNutritionalProfile / 4,
		0.0,
	}
}

// DefaultSimilarityThreshold is the global minimum similarity score below
// which a product is discarded regardless of the caller's min_score (§4.4
// "discard below global threshold (default 0.3)").
const DefaultSimilarityThreshold = 0.3

// weightedCosineSimilarity computes cos(W∘pet, W∘product) for two
// 15-dimension feature vectors under weight vector w (§4.4 "Similarity").
func weightedCosineSimilarity(pet, product, w [FeatureVectorLen]float64) float64 {
	var dot, petNorm, productNorm float64
	for i := 0; i < FeatureVectorLen; i++ {
		wp := pet[i] * w[i]
		wq := product[i] * w[i]
		dot += wp * wq
		petNorm += wp * wp
		productNorm += wq * wq
	}
	if petNorm == 0 || productNorm == 0 {
		return 0
	}
	return dot / (math.Sqrt(petNorm) * math.Sqrt(productNorm))
}

// scoredProduct pairs a product index with its similarity score, pending
// threshold filtering and ranking.
type scoredProduct struct {
	index int
	score float64
}

// rankProducts scores every product against the pet and discards anything
// below threshold, returning candidates sorted by score descending with
// ties broken by product ID ascending (§4.4 steps 4-5).
func rankProducts(petFeatures [FeatureVectorLen]float64, products []Product, weights [FeatureVectorLen]float64, threshold float64) []scoredProduct {
	scored := make([]scoredProduct, 0, len(products))
	for i, p := range products {
		score := weightedCosineSimilarity(petFeatures, extractProductFeatures(p), weights)
		if score < threshold {
			continue
		}
		scored = append(scored, scoredProduct{index: i, score: score})
	}

	sort.Slice(scored, func(i, j int) bool {
		if scored[i].score != scored[j].score {
			return scored[i].score > scored[j].score
		}
		return products[scored[i].index].ID < products[scored[j].index].ID
	})
	return scored
}
