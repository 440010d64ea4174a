// Package userdata implements the User Data Service (§2 "UDS"): profile
// and pet CRUD, keyed by the X-User-ID header the Gateway injects.
package userdata

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Address is the closed key set from §3 "Profile".
type Address struct {
	Street  string `json:"street,omitempty"`
	City    string `json:"city,omitempty"`
	State   string `json:"state,omitempty"`
	Zip     string `json:"zip,omitempty"`
	Country string `json:"country,omitempty"`
}

// Profile is the per-identity contact/address/preferences record (§3 "Profile").
type Profile struct {
	OwnerID     uuid.UUID       `json:"owner_id"`
	Contact     string          `json:"contact"`
	Address     Address         `json:"address"`
	Preferences json.RawMessage `json:"preferences,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// Species is the closed set of pet species (§3 "Pet").
type Species string

const (
	SpeciesDog   Species = "dog"
	SpeciesCat   Species = "cat"
	SpeciesOther Species = "other"
)

// HealthCondition is drawn from the closed vocabulary used in ranking (§3 "Pet").
type HealthCondition string

const (
	HealthSensitiveStomach  HealthCondition = "sensitive_stomach"
	HealthWeightManagement  HealthCondition = "weight_management"
	HealthJointHealth       HealthCondition = "joint_health"
	HealthSkinAllergies     HealthCondition = "skin_allergies"
	HealthDentalHealth      HealthCondition = "dental_health"
	HealthKidneyHealth      HealthCondition = "kidney_health"
)

// AllHealthConditions lists the closed vocabulary in ranking order (§4.4
// feature vector indices 4..9).
var AllHealthConditions = []HealthCondition{
	HealthSensitiveStomach, HealthWeightManagement, HealthJointHealth,
	HealthSkinAllergies, HealthDentalHealth, HealthKidneyHealth,
}

// Pet is an owned animal identification subject (§3 "Pet").
type Pet struct {
	ID               uuid.UUID         `json:"id"`
	OwnerID          uuid.UUID         `json:"owner_id"`
	Name             string            `json:"name"`
	Species          Species           `json:"species"`
	Breed            string            `json:"breed"`
	BreedConfidence  *float64          `json:"breed_confidence"`
	AgeMonths        *int              `json:"age_months"`
	WeightKg         *float64          `json:"weight_kg"`
	HealthConditions []HealthCondition `json:"health_conditions"`
	CreatedAt        time.Time         `json:"created_at"`
	UpdatedAt        time.Time         `json:"updated_at"`
}

// PetAnalysis is an append-only vision-analysis record for a pet (§3 "Pet Analysis").
type PetAnalysis struct {
	ID           uuid.UUID       `json:"id"`
	OwnerID      uuid.UUID       `json:"owner_id"`
	PetID        uuid.UUID       `json:"pet_id"`
	ImageRef     string          `json:"image_ref"`
	DetectedBreed string         `json:"detected_breed"`
	Confidence   float64         `json:"confidence"`
	Traits       json.RawMessage `json:"traits,omitempty"`
	RawResponse  json.RawMessage `json:"raw_response,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
}

// DeletionSummary reports the cascade-delete counts for an identity (§4.2
// "Delete self", SPEC_FULL.md's supplemented deletion-summary shape).
type DeletionSummary struct {
	Profiles  int `json:"profiles"`
	Pets      int `json:"pets"`
	Analyses  int `json:"analyses"`
}
