package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/google/uuid"
)

// DeletionSummary reports the cascade-delete counts the User Data Service
// returns for an identity (§4.2 "Delete self", SPEC_FULL.md's supplemented
// deletion-summary shape). Kept as a local copy of pkg/userdata's
// DeletionSummary rather than an import: this service boundary is HTTP-only,
// matching the rest of this client's independence from pkg/userdata's types.
type DeletionSummary struct {
	Profiles int `json:"profiles"`
	Pets     int `json:"pets"`
	Analyses int `json:"analyses"`
}

// HTTPUserDataClient calls the User Data Service's cascade-delete endpoint
// (§4.2 "Delete self", step 1).
type HTTPUserDataClient struct {
	baseURL string
	client  *http.Client
}

// NewHTTPUserDataClient creates a client pointed at the User Data Service.
func NewHTTPUserDataClient(baseURL string, client *http.Client) *HTTPUserDataClient {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPUserDataClient{baseURL: baseURL, client: client}
}

// DeleteUser calls DELETE /api/v1/users/delete with the identity in headers
// and returns the deletion summary the User Data Service computed. The
// deadline is derived from ctx, per §5's cancellation requirements.
func (c *HTTPUserDataClient) DeleteUser(ctx context.Context, userID uuid.UUID) (DeletionSummary, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.baseURL+"/api/v1/users/delete", nil)
	if err != nil {
		return DeletionSummary{}, fmt.Errorf("building delete request: %w", err)
	}
	req.Header.Set("X-User-ID", userID.String())

	resp, err := c.client.Do(req)
	if err != nil {
		return DeletionSummary{}, fmt.Errorf("calling user data service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return DeletionSummary{}, fmt.Errorf("user data service returned status %d", resp.StatusCode)
	}

	var envelope struct {
		Data DeletionSummary `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return DeletionSummary{}, fmt.Errorf("decoding deletion summary: %w", err)
	}
	return envelope.Data, nil
}
