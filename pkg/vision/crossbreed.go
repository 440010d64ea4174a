package vision

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// CrossbreedThresholds parameterizes crossbreed detection (§4.3 stage 3).
type CrossbreedThresholds struct {
	ProbabilityThreshold float64 // T_cross, default 0.35
	PurebredConfidence   float64 // T_pure, default 0.75
	PurebredGap          float64 // T_gap, default 0.30
	MinSecondBreed       float64 // non-trivial floor for p2
}

// DefaultCrossbreedThresholds returns the spec's default thresholds.
func DefaultCrossbreedThresholds() CrossbreedThresholds {
	return CrossbreedThresholds{
		ProbabilityThreshold: 0.35,
		PurebredConfidence:   0.75,
		PurebredGap:          0.30,
		MinSecondBreed:       0.05,
	}
}

// crossbreedNames maps an unordered pair of normalized parent breed names to
// their common crossbreed name.
var crossbreedNames = map[[2]string]string{
	{"golden retriever", "poodle"}:                 "Goldendoodle",
	{"labrador retriever", "poodle"}:                "Labradoodle",
	{"beagle", "pug"}:                               "Puggle",
	{"cocker spaniel", "poodle"}:                    "Cockapoo",
	{"poodle", "yorkshire terrier"}:                 "Yorkipoo",
	{"maltese", "poodle"}:                            "Maltipoo",
	{"cavalier king charles spaniel", "poodle"}:      "Cavapoo",
	{"husky", "pomeranian"}:                          "Pomsky",
	{"chihuahua", "dachshund"}:                       "Chiweenie",
	{"chihuahua", "yorkshire terrier"}:               "Chorkie",
}

func lookupCrossbreedName(a, b string) string {
	a, b = strings.ToLower(a), strings.ToLower(b)
	pair := [2]string{a, b}
	if pair[0] > pair[1] {
		pair[0], pair[1] = pair[1], pair[0]
	}
	return crossbreedNames[pair]
}

func titleCaseBreed(breed string) string {
	words := strings.Fields(strings.ReplaceAll(breed, "_", " "))
	for i, w := range words {
		if len(w) == 0 {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + strings.ToLower(w[1:])
	}
	return strings.Join(words, " ")
}

func slugifyBreedName(name string) string {
	return strings.ToLower(strings.ReplaceAll(name, " ", "_"))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// ProcessBreedResult sorts breedProbs descending and applies the crossbreed
// detection rules of §4.3 stage 3, producing the final BreedAnalysis.
func ProcessBreedResult(breedProbs []BreedProbability, t CrossbreedThresholds) BreedAnalysis {
	sorted := make([]BreedProbability, len(breedProbs))
	copy(sorted, breedProbs)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Probability > sorted[j].Probability
	})

	if len(sorted) == 0 {
		return BreedAnalysis{
			PrimaryBreed:       "unknown",
			Confidence:         0,
			IsLikelyCrossbreed: false,
			Probabilities:      []BreedProbability{},
		}
	}

	rounded := make([]BreedProbability, len(sorted))
	for i, bp := range sorted {
		rounded[i] = BreedProbability{Breed: bp.Breed, Probability: round2(bp.Probability)}
	}

	top := sorted[0]
	primaryBreed := top.Breed
	confidence := top.Probability
	isCrossbreed := false

	var second *BreedProbability
	if len(sorted) > 1 {
		second = &sorted[1]
	}

	var reasoningParts []string
	if second != nil {
		if second.Probability > t.ProbabilityThreshold {
			isCrossbreed = true
			reasoningParts = append(reasoningParts, fmt.Sprintf(
				"Multiple breeds with high probabilities (%s: %.2f, %s: %.2f)",
				top.Breed, top.Probability, second.Breed, second.Probability))
		}
		if top.Probability < t.PurebredConfidence {
			gap := top.Probability - second.Probability
			if gap < t.PurebredGap && second.Probability > t.MinSecondBreed {
				isCrossbreed = true
			}
			reasoningParts = append(reasoningParts, fmt.Sprintf("Low top-breed confidence (%.2f)", top.Probability))
		}
	}

	var crossAnalysis *CrossbreedAnalysis
	if isCrossbreed && second != nil {
		detected := []string{titleCaseBreed(top.Breed), titleCaseBreed(second.Breed)}
		commonName := lookupCrossbreedName(detected[0], detected[1])

		reasoning := "Multiple breed characteristics detected"
		if len(reasoningParts) > 0 {
			reasoning = strings.Join(reasoningParts, ". ")
		}

		crossAnalysis = &CrossbreedAnalysis{
			DetectedBreeds:      detected,
			CommonName:          commonName,
			ConfidenceReasoning: reasoning,
		}

		if commonName != "" {
			primaryBreed = slugifyBreedName(commonName)
		} else {
			primaryBreed = fmt.Sprintf("%s_%s_mix", slugifyBreedName(detected[0]), slugifyBreedName(detected[1]))
		}
		confidence = round2((top.Probability + second.Probability) / 2)
	}

	return BreedAnalysis{
		PrimaryBreed:       primaryBreed,
		Confidence:         round2(confidence),
		IsLikelyCrossbreed: isCrossbreed,
		Probabilities:      rounded,
		CrossbreedAnalysis: crossAnalysis,
	}
}
