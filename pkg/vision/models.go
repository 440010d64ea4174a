// Package vision implements the Vision Pipeline Orchestrator (§4.3): a
// five-stage pipeline over a content-safety classifier, a species
// classifier, a breed classifier with crossbreed post-processing, a
// retrieval index, and a vision-language model.
package vision

// ContentSafetyResult is returned by the content-safety classifier (stage 1).
type ContentSafetyResult struct {
	IsSafe         bool    `json:"is_safe"`
	NSFWProbability float64 `json:"nsfw_probability"`
}

// SpeciesResult is returned by the species classifier (stage 2).
type SpeciesResult struct {
	Species    string  `json:"species"`
	Confidence float64 `json:"confidence"`
}

// BreedProbability is one ranked (breed, probability) pair from the breed classifier.
type BreedProbability struct {
	Breed       string  `json:"breed"`
	Probability float64 `json:"probability"`
}

// CrossbreedAnalysis describes a detected mixed-breed result (stage 3).
type CrossbreedAnalysis struct {
	DetectedBreeds      []string `json:"detected_breeds"`
	CommonName          string   `json:"common_name,omitempty"`
	ConfidenceReasoning string   `json:"confidence_reasoning"`
}

// BreedAnalysis is the crossbreed post-processor's output (stage 3).
type BreedAnalysis struct {
	PrimaryBreed       string              `json:"primary_breed"`
	Confidence         float64             `json:"confidence"`
	IsLikelyCrossbreed bool                `json:"is_likely_crossbreed"`
	Probabilities      []BreedProbability  `json:"breed_probabilities"`
	CrossbreedAnalysis *CrossbreedAnalysis `json:"crossbreed_analysis,omitempty"`
}

// RetrievalChunk is one passage returned by the retrieval index (stage 4).
type RetrievalChunk struct {
	Text   string `json:"text"`
	Source string `json:"source"`
}

// EnrichedInfo is the synthesized enrichment block (stage 4), or nil when
// enrichment fails or is unavailable.
type EnrichedInfo struct {
	Description  string   `json:"description,omitempty"`
	CareSummary  string   `json:"care_summary,omitempty"`
	HealthInfo   string   `json:"health_info,omitempty"`
	Sources      []string `json:"sources"`
}

// VLMResult is the contextual generation stage's parsed output (stage 5).
type VLMResult struct {
	Description        string         `json:"description"`
	Traits              map[string]any `json:"traits"`
	HealthObservations  []string       `json:"health_observations"`
}

// AnalysisResult is the orchestrator's final assembled report (§4.3).
type AnalysisResult struct {
	Species            string         `json:"species"`
	BreedAnalysis       BreedAnalysis  `json:"breed_analysis"`
	Description         string         `json:"description"`
	Traits               map[string]any `json:"traits"`
	HealthObservations   []string       `json:"health_observations"`
	EnrichedInfo         *EnrichedInfo  `json:"enriched_info"`
}
