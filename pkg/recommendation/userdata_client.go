package recommendation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"
)

// ErrPetNotFound is returned when the User Data Service reports no pet for
// the given id, or the caller does not own it (§4.4 Protocol step 1: "404
// or not-owned ⇒ PET_NOT_FOUND").
var ErrPetNotFound = errors.New("pet not found")

// UserDataClient fetches pet profiles for the ranking engine.
type UserDataClient interface {
	GetPet(ctx context.Context, userID, petID uuid.UUID) (PetProfile, error)
}

// HTTPUserDataClient calls the User Data Service's internal pet-read
// endpoint (SPEC_FULL.md "GET /api/v1/users/pets/{id} is the internal
// endpoint the Recommendation Service's UserDataClient calls").
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

type petEnvelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
}

// GetPet fetches the pet identified by petID, scoped to userID via the
// X-User-ID header the Gateway would otherwise inject.
func (c *HTTPUserDataClient) GetPet(ctx context.Context, userID, petID uuid.UUID) (PetProfile, error) {
	url := fmt.Sprintf("%s/api/v1/users/pets/%s", c.baseURL, petID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return PetProfile{}, fmt.Errorf("building pet request: %w", err)
	}
	req.Header.Set("X-User-ID", userID.String())

	resp, err := c.client.Do(req)
	if err != nil {
		return PetProfile{}, fmt.Errorf("calling user data service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusForbidden {
		return PetProfile{}, ErrPetNotFound
	}
	if resp.StatusCode/100 != 2 {
		return PetProfile{}, fmt.Errorf("user data service returned status %d", resp.StatusCode)
	}

	var env petEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return PetProfile{}, fmt.Errorf("decoding pet response: %w", err)
	}
	if !env.Success {
		return PetProfile{}, ErrPetNotFound
	}

	var pet PetProfile
	if err := json.Unmarshal(env.Data, &pet); err != nil {
		return PetProfile{}, fmt.Errorf("decoding pet payload: %w", err)
	}
	return pet, nil
}
