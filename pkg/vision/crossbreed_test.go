package vision

import "testing"

func TestProcessBreedResult_Purebred(t *testing.T) {
	probs := []BreedProbability{
		{Breed: "labrador_retriever", Probability: 0.92},
		{Breed: "golden_retriever", Probability: 0.05},
	}
	got := ProcessBreedResult(probs, DefaultCrossbreedThresholds())

	if got.IsLikelyCrossbreed {
		t.Error("expected purebred, got crossbreed")
	}
	if got.PrimaryBreed != "labrador_retriever" {
		t.Errorf("primary breed = %q, want labrador_retriever", got.PrimaryBreed)
	}
	if got.Confidence != 0.92 {
		t.Errorf("confidence = %v, want 0.92", got.Confidence)
	}
}

func TestProcessBreedResult_CrossbreedBySecondProbability(t *testing.T) {
	probs := []BreedProbability{
		{Breed: "golden_retriever", Probability: 0.55},
		{Breed: "poodle", Probability: 0.40},
	}
	got := ProcessBreedResult(probs, DefaultCrossbreedThresholds())

	if !got.IsLikelyCrossbreed {
		t.Fatal("expected crossbreed detection")
	}
	if got.CrossbreedAnalysis == nil {
		t.Fatal("expected crossbreed analysis")
	}
	if got.CrossbreedAnalysis.CommonName != "Goldendoodle" {
		t.Errorf("common name = %q, want Goldendoodle", got.CrossbreedAnalysis.CommonName)
	}
	if got.PrimaryBreed != "goldendoodle" {
		t.Errorf("primary breed = %q, want goldendoodle", got.PrimaryBreed)
	}
	wantConfidence := round2((0.55 + 0.40) / 2)
	if got.Confidence != wantConfidence {
		t.Errorf("confidence = %v, want %v", got.Confidence, wantConfidence)
	}
}

func TestProcessBreedResult_CrossbreedByLowConfidenceGap(t *testing.T) {
	probs := []BreedProbability{
		{Breed: "beagle", Probability: 0.50},
		{Breed: "pug", Probability: 0.30},
	}
	got := ProcessBreedResult(probs, DefaultCrossbreedThresholds())

	if !got.IsLikelyCrossbreed {
		t.Fatal("expected crossbreed: low top confidence and small gap")
	}
	if got.CrossbreedAnalysis.CommonName != "Puggle" {
		t.Errorf("common name = %q, want Puggle", got.CrossbreedAnalysis.CommonName)
	}
}

func TestProcessBreedResult_NoCrossbreedWhenSecondBreedTrivial(t *testing.T) {
	probs := []BreedProbability{
		{Breed: "beagle", Probability: 0.06},
		{Breed: "pug", Probability: 0.03},
	}
	got := ProcessBreedResult(probs, DefaultCrossbreedThresholds())

	if got.IsLikelyCrossbreed {
		t.Error("expected no crossbreed: second breed probability below min-second-breed floor")
	}
}

func TestProcessBreedResult_UnknownPairSynthesizesMixName(t *testing.T) {
	probs := []BreedProbability{
		{Breed: "shiba_inu", Probability: 0.45},
		{Breed: "corgi", Probability: 0.40},
	}
	got := ProcessBreedResult(probs, DefaultCrossbreedThresholds())

	if !got.IsLikelyCrossbreed {
		t.Fatal("expected crossbreed detection")
	}
	if got.CrossbreedAnalysis.CommonName != "" {
		t.Errorf("expected no common name lookup, got %q", got.CrossbreedAnalysis.CommonName)
	}
	if got.PrimaryBreed != "shiba_inu_corgi_mix" {
		t.Errorf("primary breed = %q, want shiba_inu_corgi_mix", got.PrimaryBreed)
	}
}

func TestProcessBreedResult_SingleBreed(t *testing.T) {
	probs := []BreedProbability{{Breed: "siamese", Probability: 0.88}}
	got := ProcessBreedResult(probs, DefaultCrossbreedThresholds())

	if got.IsLikelyCrossbreed {
		t.Error("expected no crossbreed with a single candidate")
	}
	if got.PrimaryBreed != "siamese" {
		t.Errorf("primary breed = %q, want siamese", got.PrimaryBreed)
	}
}

func TestProcessBreedResult_Empty(t *testing.T) {
	got := ProcessBreedResult(nil, DefaultCrossbreedThresholds())
	if got.PrimaryBreed != "unknown" {
		t.Errorf("primary breed = %q, want unknown", got.PrimaryBreed)
	}
	if got.Confidence != 0 {
		t.Errorf("confidence = %v, want 0", got.Confidence)
	}
}

func TestLookupCrossbreedName_OrderIndependent(t *testing.T) {
	a := lookupCrossbreedName("Poodle", "Golden Retriever")
	b := lookupCrossbreedName("Golden Retriever", "Poodle")
	if a != "Goldendoodle" || b != "Goldendoodle" {
		t.Errorf("expected Goldendoodle both orders, got %q and %q", a, b)
	}
}
