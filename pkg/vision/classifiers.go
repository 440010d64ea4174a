package vision

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// ContentSafetyClassifier checks an image for policy-violating content (§4.3 stage 1).
type ContentSafetyClassifier interface {
	CheckContent(ctx context.Context, imageBase64 string) (ContentSafetyResult, error)
}

// SpeciesClassifier identifies the animal species in an image (§4.3 stage 2).
type SpeciesClassifier interface {
	DetectSpecies(ctx context.Context, imageBase64 string) (SpeciesResult, error)
}

// BreedClassifier ranks candidate breeds for a species (§4.3 stage 3).
type BreedClassifier interface {
	DetectBreed(ctx context.Context, imageBase64, species string, topK int) ([]BreedProbability, error)
}

// postJSON posts a JSON body to url and decodes a JSON response into out.
func postJSON(ctx context.Context, client *http.Client, url string, body, out any) error {
	buf, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(buf))
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("classification service unavailable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("classification service returned status %d", resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding classification response: %w", err)
	}
	return nil
}

// HTTPClassificationClient is an HTTP-backed implementation of
// ContentSafetyClassifier, SpeciesClassifier, and BreedClassifier,
// grounded on the same base-URL + JSON-body convention as the rest of
// the platform's internal service clients.
type HTTPClassificationClient struct {
	baseURL string
	client  *http.Client
}

// NewHTTPClassificationClient creates a classification client pointed at baseURL.
func NewHTTPClassificationClient(baseURL string, client *http.Client) *HTTPClassificationClient {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPClassificationClient{baseURL: baseURL, client: client}
}

// CheckContent implements ContentSafetyClassifier.
func (c *HTTPClassificationClient) CheckContent(ctx context.Context, imageBase64 string) (ContentSafetyResult, error) {
	var out ContentSafetyResult
	err := postJSON(ctx, c.client, c.baseURL+"/classify/content", map[string]string{"image": imageBase64}, &out)
	return out, err
}

// DetectSpecies implements SpeciesClassifier.
func (c *HTTPClassificationClient) DetectSpecies(ctx context.Context, imageBase64 string) (SpeciesResult, error) {
	var out SpeciesResult
	err := postJSON(ctx, c.client, c.baseURL+"/classify/species", map[string]any{"image": imageBase64, "top_k": 3}, &out)
	return out, err
}

type breedResponse struct {
	BreedProbabilities []BreedProbability `json:"breed_probabilities"`
}

// DetectBreed implements BreedClassifier.
func (c *HTTPClassificationClient) DetectBreed(ctx context.Context, imageBase64, species string, topK int) ([]BreedProbability, error) {
	var out breedResponse
	err := postJSON(ctx, c.client, c.baseURL+"/classify/breed", map[string]any{
		"image": imageBase64, "species": species, "top_k": topK,
	}, &out)
	return out.BreedProbabilities, err
}
