package recommendation

import (
	"math"
	"testing"
)

func TestDefaultWeightVectorShape(t *testing.T) {
	w := DefaultWeightVector()

	if w[0] != 0.20 {
		t.Errorf("w[0] (age compatibility) = %v, want 0.20", w[0])
	}
	if w[1] != 0.05 || w[3] != 0.05 {
		t.Errorf("size compatibility lanes w[1]=%v w[3]=%v, want 0.05 each", w[1], w[3])
	}
	if w[2] != 0.05 {
		t.Errorf("w[2] (breed specificity) = %v, want 0.05", w[2])
	}
	for i := 4; i <= 10; i++ {
		if w[i] != 0.40 {
			t.Errorf("w[%d] (health conditions) = %v, want 0.40", i, w[i])
		}
	}
	if w[11] != 0.10 {
		t.Errorf("w[11] (protein) = %v, want 0.10", w[11])
	}
	if w[12] != 0.05 || w[13] != 0.05 {
		t.Errorf("w[12]=%v w[13]=%v, want 0.05 each", w[12], w[13])
	}
	if w[14] != 0 {
		t.Errorf("w[14] (ingredient preferences) = %v, want 0", w[14])
	}
}

func TestWeightedCosineSimilarityIdenticalVectorsScoreOne(t *testing.T) {
	w := DefaultWeightVector()
	var v [FeatureVectorLen]float64
	for i := range v {
		v[i] = 0.5
	}
	score := weightedCosineSimilarity(v, v, w)
	if math.Abs(score-1.0) > 1e-9 {
		t.Errorf("similarity of identical vectors = %v, want 1.0", score)
	}
}

func TestWeightedCosineSimilarityZeroVectorScoreZero(t *testing.T) {
	w := DefaultWeightVector()
	var zero, other [FeatureVectorLen]float64
	other[0] = 1.0
	if score := weightedCosineSimilarity(zero, other, w); score != 0 {
		t.Errorf("similarity against zero vector = %v, want 0", score)
	}
}

func TestWeightedCosineSimilarityOrthogonalWeightedOutDimensionsIgnored(t *testing.T) {
	w := DefaultWeightVector()
	var pet, product [FeatureVectorLen]float64
	for i := range pet {
		pet[i] = 0.5
		product[i] = 0.5
	}
	// index 14 carries zero weight; divergence there must not move the score.
	pet[14] = 0.0
	product[14] = 1.0
	score := weightedCosineSimilarity(pet, product, w)
	if math.Abs(score-1.0) > 1e-9 {
		t.Errorf("similarity = %v, want 1.0 (index 14 is zero-weighted)", score)
	}
}

func TestRankProductsOrderingAndThreshold(t *testing.T) {
	pet := PetProfile{Breed: "Labrador", AgeMonths: intPtr(24), WeightKg: floatPtr(30)}
	petFeatures := extractPetFeatures(pet)
	weights := DefaultWeightVector()

	products := []Product{
		{ID: 3, TargetSpecies: "dog", MinAgeMonths: intPtr(20), MaxAgeMonths: intPtr(28), MinWeightKg: floatPtr(28), MaxWeightKg: floatPtr(32)},
		{ID: 1, TargetSpecies: "dog", MinAgeMonths: intPtr(20), MaxAgeMonths: intPtr(28), MinWeightKg: floatPtr(28), MaxWeightKg: floatPtr(32)},
		{ID: 2, TargetSpecies: "dog", MinAgeMonths: intPtr(120), MaxAgeMonths: intPtr(180), MinWeightKg: floatPtr(1), MaxWeightKg: floatPtr(2)},
	}

	ranked := rankProducts(petFeatures, products, weights, 0)
	if len(ranked) != 3 {
		t.Fatalf("expected all 3 products ranked at threshold 0, got %d", len(ranked))
	}

	// Products 1 and 3 are identical twins so they tie on score; the tie
	// must break by ascending product ID, independent of input order.
	if ranked[0].score != ranked[1].score {
		t.Fatalf("expected products 1 and 3 to tie in score")
	}
	if products[ranked[0].index].ID != 1 || products[ranked[1].index].ID != 3 {
		t.Errorf("tie-break order wrong: got IDs %d, %d, want 1, 3",
			products[ranked[0].index].ID, products[ranked[1].index].ID)
	}
	if products[ranked[2].index].ID != 2 {
		t.Errorf("expected the dissimilar product last, got ID %d", products[ranked[2].index].ID)
	}
	for i := 0; i < len(ranked)-1; i++ {
		if ranked[i].score < ranked[i+1].score {
			t.Fatalf("ranked products not sorted descending by score: %v", ranked)
		}
	}
}

func TestRankProductsDiscardsBelowThreshold(t *testing.T) {
	pet := PetProfile{AgeMonths: intPtr(24), WeightKg: floatPtr(30)}
	petFeatures := extractPetFeatures(pet)
	weights := DefaultWeightVector()

	// A product targeting a wildly different age/weight band still scores
	// about 0.30 here, just above the default threshold, so the discard is
	// checked against a near-impossible 0.99 threshold instead.
	products := []Product{
		{ID: 1, MinAgeMonths: intPtr(1), MaxAgeMonths: intPtr(2), MinWeightKg: floatPtr(1), MaxWeightKg: floatPtr(1.5)},
	}
	ranked := rankProducts(petFeatures, products, weights, 0.99)
	if len(ranked) != 0 {
		t.Errorf("expected product discarded at a near-impossible threshold, got %d survivors", len(ranked))
	}
}
