package vision

import (
	"context"
	"errors"
	"fmt"
)

// Sentinel errors for the pipeline's strict gates (§4.3).
var (
	ErrInvalidImage          = errors.New("invalid image")
	ErrContentPolicyViolation = errors.New("content policy violation")
	ErrUnsupportedSpecies    = errors.New("unsupported species")
	ErrSpeciesDetectionFailed = errors.New("species detection failed")
	ErrBreedDetectionFailed  = errors.New("breed detection failed")
)

// Thresholds parameterizes the pipeline's strict gates (§4.3).
type Thresholds struct {
	NSFWMax            float64 // content is unsafe when NSFWProbability >= this
	SpeciesMinConfidence float64
	BreedMinConfidence  float64
	Crossbreed          CrossbreedThresholds
	EnrichmentTopK      int
}

// DefaultThresholds returns the spec's default pipeline thresholds.
func DefaultThresholds() Thresholds {
	return Thresholds{
		NSFWMax:              0.70,
		SpeciesMinConfidence: 0.50,
		BreedMinConfidence:   0.40,
		Crossbreed:           DefaultCrossbreedThresholds(),
		EnrichmentTopK:       3,
	}
}

// Service orchestrates the five-stage vision analysis pipeline.
type Service struct {
	content    ContentSafetyClassifier
	species    SpeciesClassifier
	breed      BreedClassifier
	retrieval  RetrievalIndex
	vlm        VisionLanguageModel
	thresholds Thresholds
}

// NewService constructs the orchestrator from its stage collaborators.
func NewService(content ContentSafetyClassifier, species SpeciesClassifier, breed BreedClassifier,
	retrieval RetrievalIndex, vlm VisionLanguageModel, thresholds Thresholds) *Service {
	return &Service{content: content, species: species, breed: breed, retrieval: retrieval, vlm: vlm, thresholds: thresholds}
}

// Analyze runs the full pipeline over a base64-encoded image (§4.3).
func (s *Service) Analyze(ctx context.Context, imageBase64 string) (AnalysisResult, error) {
	// Stage 1: content safety (strict).
	safety, err := s.content.CheckContent(ctx, imageBase64)
	if err != nil {
		return AnalysisResult{}, fmt.Errorf("content safety check: %w", err)
	}
	if !safety.IsSafe || safety.NSFWProbability >= s.thresholds.NSFWMax {
		return AnalysisResult{}, ErrContentPolicyViolation
	}

	// Stage 2: species detection (strict).
	speciesResult, err := s.species.DetectSpecies(ctx, imageBase64)
	if err != nil {
		return AnalysisResult{}, fmt.Errorf("species detection: %w", err)
	}
	if speciesResult.Species != "dog" && speciesResult.Species != "cat" {
		return AnalysisResult{}, ErrUnsupportedSpecies
	}
	if speciesResult.Confidence < s.thresholds.SpeciesMinConfidence {
		return AnalysisResult{}, ErrSpeciesDetectionFailed
	}

	// Stage 3: breed classification + crossbreed post-processing (strict).
	breedProbs, err := s.breed.DetectBreed(ctx, imageBase64, speciesResult.Species, 5)
	if err != nil {
		return AnalysisResult{}, fmt.Errorf("breed detection: %w", err)
	}
	breedAnalysis := ProcessBreedResult(breedProbs, s.thresholds.Crossbreed)
	if breedAnalysis.Confidence < s.thresholds.BreedMinConfidence {
		return AnalysisResult{}, ErrBreedDetectionFailed
	}

	// Stage 4: enrichment (tolerant — any failure degrades to nil).
	enriched := s.enrich(ctx, breedAnalysis)

	// Stage 5: contextual generation (strict).
	prompt := buildContextualPrompt(speciesResult.Species, breedAnalysis, enriched)
	vlmResult, err := s.vlm.Analyze(ctx, imageBase64, prompt)
	if err != nil {
		return AnalysisResult{}, fmt.Errorf("contextual generation: %w", err)
	}

	return AnalysisResult{
		Species:           speciesResult.Species,
		BreedAnalysis:      breedAnalysis,
		Description:        vlmResult.Description,
		Traits:             vlmResult.Traits,
		HealthObservations: vlmResult.HealthObservations,
		EnrichedInfo:       enriched,
	}, nil
}

// enrich queries the retrieval index for the primary breed (or both parent
// breeds when a crossbreed was detected) and swallows any failure, per
// §4.3 stage 4's tolerant-failure policy.
func (s *Service) enrich(ctx context.Context, breed BreedAnalysis) *EnrichedInfo {
	if s.retrieval == nil {
		return nil
	}

	if breed.IsLikelyCrossbreed && breed.CrossbreedAnalysis != nil {
		var perParent [][]RetrievalChunk
		for _, parent := range breed.CrossbreedAnalysis.DetectedBreeds {
			chunks, err := s.retrieval.Query(ctx, parent, s.thresholds.EnrichmentTopK)
			if err != nil {
				continue
			}
			perParent = append(perParent, chunks)
		}
		if len(perParent) == 0 {
			return nil
		}
		return SynthesizeEnrichment(unionTopK(perParent, s.thresholds.EnrichmentTopK))
	}

	chunks, err := s.retrieval.Query(ctx, breed.PrimaryBreed, s.thresholds.EnrichmentTopK)
	if err != nil {
		return nil
	}
	return SynthesizeEnrichment(chunks)
}

func buildContextualPrompt(species string, breed BreedAnalysis, enriched *EnrichedInfo) string {
	breedLabel := breed.PrimaryBreed
	if breed.IsLikelyCrossbreed && breed.CrossbreedAnalysis != nil && breed.CrossbreedAnalysis.CommonName != "" {
		breedLabel = breed.CrossbreedAnalysis.CommonName
	}

	context := "No additional breed context is available."
	if enriched != nil && enriched.Description != "" {
		context = enriched.Description
	}

	return fmt.Sprintf(
		"Analyze this %s image. The detected breed is %s with confidence %.2f. Context: %s\n"+
			"Return ONLY valid JSON with fields description, traits, health_observations.",
		species, breedLabel, breed.Confidence, context,
	)
}
