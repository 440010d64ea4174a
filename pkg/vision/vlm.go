package vision

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// VisionLanguageModel performs contextual image analysis given a prompt
// (§4.3 stage 5).
type VisionLanguageModel interface {
	Analyze(ctx context.Context, imageBase64, prompt string) (VLMResult, error)
}

// HTTPVLMClient is an HTTP-backed VisionLanguageModel calling an
// Ollama-compatible chat completion endpoint.
type HTTPVLMClient struct {
	baseURL     string
	model       string
	temperature float64
	client      *http.Client
}

// NewHTTPVLMClient creates a VLM client pointed at baseURL.
func NewHTTPVLMClient(baseURL, model string, temperature float64, client *http.Client) *HTTPVLMClient {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPVLMClient{baseURL: baseURL, model: model, temperature: temperature, client: client}
}

type chatMessage struct {
	Role    string   `json:"role"`
	Content string   `json:"content"`
	Images  []string `json:"images"`
}

type chatRequest struct {
	Model    string                 `json:"model"`
	Messages []chatMessage          `json:"messages"`
	Stream   bool                   `json:"stream"`
	Options  map[string]any         `json:"options"`
}

type chatResponse struct {
	Message struct {
		Content string `json:"content"`
	} `json:"message"`
}

// Analyze implements VisionLanguageModel. It strips a data-URI prefix from
// imageBase64 if present, posts a chat completion request, and parses the
// model's JSON response (tolerating a fenced ```json code block).
func (c *HTTPVLMClient) Analyze(ctx context.Context, imageBase64, prompt string) (VLMResult, error) {
	image := imageBase64
	if idx := strings.Index(image, ","); idx >= 0 {
		image = image[idx+1:]
	}

	req := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "user", Content: prompt, Images: []string{image}},
		},
		Stream:  false,
		Options: map[string]any{"temperature": c.temperature},
	}

	var resp chatResponse
	if err := postJSON(ctx, c.client, c.baseURL+"/api/chat", req, &resp); err != nil {
		return VLMResult{}, fmt.Errorf("vision language model unavailable: %w", err)
	}

	return parseVLMResponse(resp.Message.Content)
}

// parseVLMResponse parses a VLMResult from raw model output, falling back to
// extracting a fenced ```json code block when direct parsing fails (§4.3
// stage 5).
func parseVLMResponse(content string) (VLMResult, error) {
	var result VLMResult
	if err := json.Unmarshal([]byte(content), &result); err == nil {
		return result, nil
	}

	const fence = "```json"
	start := strings.Index(content, fence)
	if start >= 0 {
		start += len(fence)
		end := strings.Index(content[start:], "```")
		if end >= 0 {
			block := strings.TrimSpace(content[start : start+end])
			if err := json.Unmarshal([]byte(block), &result); err == nil {
				return result, nil
			}
		}
	}

	return VLMResult{}, fmt.Errorf("failed to parse JSON from vision language model response")
}
