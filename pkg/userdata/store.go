package userdata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/pawtrait/platform/internal/db"
)

// ErrNotFound is returned by store lookups that find no matching row.
var ErrNotFound = errors.New("not found")

// ProfileStore persists Profile rows (§3 "Profile", §6 "profiles table").
type ProfileStore struct {
	dbtx db.DBTX
}

// NewProfileStore creates a ProfileStore.
func NewProfileStore(dbtx db.DBTX) *ProfileStore {
	return &ProfileStore{dbtx: dbtx}
}

const profileColumns = `owner_id, contact, street, city, state, zip, country, preferences, created_at, updated_at`

func scanProfile(row pgx.Row) (Profile, error) {
	var p Profile
	var prefs []byte
	err := row.Scan(&p.OwnerID, &p.Contact, &p.Address.Street, &p.Address.City, &p.Address.State,
		&p.Address.Zip, &p.Address.Country, &prefs, &p.CreatedAt, &p.UpdatedAt)
	if err == nil && len(prefs) > 0 {
		p.Preferences = json.RawMessage(prefs)
	}
	return p, err
}

// Upsert creates or replaces the Profile for owner.
func (s *ProfileStore) Upsert(ctx context.Context, owner uuid.UUID, contact string, addr Address, preferences json.RawMessage) (Profile, error) {
	if len(preferences) == 0 {
		preferences = json.RawMessage(`{}`)
	}
	query := `INSERT INTO profiles (owner_id, contact, street, city, state, zip, country, preferences)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (owner_id) DO UPDATE SET
			contact = EXCLUDED.contact, street = EXCLUDED.street, city = EXCLUDED.city,
			state = EXCLUDED.state, zip = EXCLUDED.zip, country = EXCLUDED.country,
			preferences = EXCLUDED.preferences, updated_at = now()
		RETURNING ` + profileColumns
	row := s.dbtx.QueryRow(ctx, query, owner, contact, addr.Street, addr.City, addr.State, addr.Zip, addr.Country, []byte(preferences))
	p, err := scanProfile(row)
	if err != nil {
		return Profile{}, fmt.Errorf("upserting profile: %w", err)
	}
	return p, nil
}

// GetByOwner looks up the Profile for owner.
func (s *ProfileStore) GetByOwner(ctx context.Context, owner uuid.UUID) (Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM profiles WHERE owner_id = $1`
	row := s.dbtx.QueryRow(ctx, query, owner)
	p, err := scanProfile(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Profile{}, ErrNotFound
	}
	if err != nil {
		return Profile{}, fmt.Errorf("fetching profile: %w", err)
	}
	return p, nil
}

// DeleteByOwner removes the Profile for owner, returning the row count deleted.
func (s *ProfileStore) DeleteByOwner(ctx context.Context, owner uuid.UUID) (int, error) {
	tag, err := s.dbtx.Exec(ctx, `DELETE FROM profiles WHERE owner_id = $1`, owner)
	if err != nil {
		return 0, fmt.Errorf("deleting profile: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

// PetStore persists Pet rows (§3 "Pet", §6 "pets table").
type PetStore struct {
	dbtx db.DBTX
}

// NewPetStore creates a PetStore.
func NewPetStore(dbtx db.DBTX) *PetStore {
	return &PetStore{dbtx: dbtx}
}

const petColumns = `id, owner_id, name, species, breed, breed_confidence, age_months, weight_kg, health_conditions, created_at, updated_at`

func scanPet(row pgx.Row) (Pet, error) {
	var p Pet
	var species string
	var conditions []string
	err := row.Scan(&p.ID, &p.OwnerID, &p.Name, &species, &p.Breed, &p.BreedConfidence,
		&p.AgeMonths, &p.WeightKg, &conditions, &p.CreatedAt, &p.UpdatedAt)
	p.Species = Species(species)
	for _, c := range conditions {
		p.HealthConditions = append(p.HealthConditions, HealthCondition(c))
	}
	return p, err
}

func conditionsToStrings(cs []HealthCondition) []string {
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = string(c)
	}
	return out
}

// Create inserts a new Pet owned by owner.
func (s *PetStore) Create(ctx context.Context, owner uuid.UUID, name string, species Species, breed string,
	breedConfidence *float64, ageMonths *int, weightKg *float64, conditions []HealthCondition) (Pet, error) {
	query := `INSERT INTO pets (owner_id, name, species, breed, breed_confidence, age_months, weight_kg, health_conditions)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING ` + petColumns
	row := s.dbtx.QueryRow(ctx, query, owner, name, string(species), breed, breedConfidence, ageMonths, weightKg, conditionsToStrings(conditions))
	p, err := scanPet(row)
	if err != nil {
		return Pet{}, fmt.Errorf("creating pet: %w", err)
	}
	return p, nil
}

// GetByID looks up a Pet by its identifier, regardless of owner.
func (s *PetStore) GetByID(ctx context.Context, id uuid.UUID) (Pet, error) {
	query := `SELECT ` + petColumns + ` FROM pets WHERE id = $1`
	row := s.dbtx.QueryRow(ctx, query, id)
	p, err := scanPet(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Pet{}, ErrNotFound
	}
	if err != nil {
		return Pet{}, fmt.Errorf("fetching pet: %w", err)
	}
	return p, nil
}

// ListByOwner returns every Pet owned by owner, most recently created first.
func (s *PetStore) ListByOwner(ctx context.Context, owner uuid.UUID) ([]Pet, error) {
	query := `SELECT ` + petColumns + ` FROM pets WHERE owner_id = $1 ORDER BY created_at DESC`
	rows, err := s.dbtx.Query(ctx, query, owner)
	if err != nil {
		return nil, fmt.Errorf("listing pets: %w", err)
	}
	defer rows.Close()

	var pets []Pet
	for rows.Next() {
		p, err := scanPet(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning pet: %w", err)
		}
		pets = append(pets, p)
	}
	return pets, rows.Err()
}

// Update replaces the mutable fields of the Pet identified by id, scoped to owner.
func (s *PetStore) Update(ctx context.Context, id, owner uuid.UUID, name string, species Species, breed string,
	breedConfidence *float64, ageMonths *int, weightKg *float64, conditions []HealthCondition) (Pet, error) {
	query := `UPDATE pets SET name = $3, species = $4, breed = $5, breed_confidence = $6,
			age_months = $7, weight_kg = $8, health_conditions = $9, updated_at = now()
		WHERE id = $1 AND owner_id = $2
		RETURNING ` + petColumns
	row := s.dbtx.QueryRow(ctx, query, id, owner, name, string(species), breed, breedConfidence, ageMonths, weightKg, conditionsToStrings(conditions))
	p, err := scanPet(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Pet{}, ErrNotFound
	}
	if err != nil {
		return Pet{}, fmt.Errorf("updating pet: %w", err)
	}
	return p, nil
}

// Delete removes the Pet identified by id, scoped to owner.
func (s *PetStore) Delete(ctx context.Context, id, owner uuid.UUID) error {
	tag, err := s.dbtx.Exec(ctx, `DELETE FROM pets WHERE id = $1 AND owner_id = $2`, id, owner)
	if err != nil {
		return fmt.Errorf("deleting pet: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteAllByOwner removes every Pet owned by owner, returning the row count deleted.
func (s *PetStore) DeleteAllByOwner(ctx context.Context, owner uuid.UUID) (int, error) {
	tag, err := s.dbtx.Exec(ctx, `DELETE FROM pets WHERE owner_id = $1`, owner)
	if err != nil {
		return 0, fmt.Errorf("deleting pets: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

// AnalysisStore persists Pet Analysis rows (§3 "Pet Analysis", §6 "pet_analyses table").
type AnalysisStore struct {
	dbtx db.DBTX
}

// NewAnalysisStore creates an AnalysisStore.
func NewAnalysisStore(dbtx db.DBTX) *AnalysisStore {
	return &AnalysisStore{dbtx: dbtx}
}

const analysisColumns = `id, owner_id, pet_id, image_ref, detected_breed, confidence, traits, raw_response, created_at`

func scanAnalysis(row pgx.Row) (PetAnalysis, error) {
	var a PetAnalysis
	var traits, raw []byte
	err := row.Scan(&a.ID, &a.OwnerID, &a.PetID, &a.ImageRef, &a.DetectedBreed, &a.Confidence, &traits, &raw, &a.CreatedAt)
	if err == nil {
		if len(traits) > 0 {
			a.Traits = json.RawMessage(traits)
		}
		if len(raw) > 0 {
			a.RawResponse = json.RawMessage(raw)
		}
	}
	return a, err
}

// Create appends a new Pet Analysis record. Analyses are never updated or
// deleted individually; they are append-only per owned pet.
func (s *AnalysisStore) Create(ctx context.Context, owner, pet uuid.UUID, imageRef, detectedBreed string,
	confidence float64, traits, raw json.RawMessage) (PetAnalysis, error) {
	if len(traits) == 0 {
		traits = json.RawMessage(`{}`)
	}
	if len(raw) == 0 {
		raw = json.RawMessage(`{}`)
	}
	query := `INSERT INTO pet_analyses (owner_id, pet_id, image_ref, detected_breed, confidence, traits, raw_response)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING ` + analysisColumns
	row := s.dbtx.QueryRow(ctx, query, owner, pet, imageRef, detectedBreed, confidence, []byte(traits), []byte(raw))
	a, err := scanAnalysis(row)
	if err != nil {
		return PetAnalysis{}, fmt.Errorf("creating pet analysis: %w", err)
	}
	return a, nil
}

// ListByPet returns every analysis for pet, most recently created first (§3 "Pet Analysis").
func (s *AnalysisStore) ListByPet(ctx context.Context, pet uuid.UUID) ([]PetAnalysis, error) {
	query := `SELECT ` + analysisColumns + ` FROM pet_analyses WHERE pet_id = $1 ORDER BY created_at DESC`
	rows, err := s.dbtx.Query(ctx, query, pet)
	if err != nil {
		return nil, fmt.Errorf("listing pet analyses: %w", err)
	}
	defer rows.Close()

	var analyses []PetAnalysis
	for rows.Next() {
		a, err := scanAnalysis(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning pet analysis: %w", err)
		}
		analyses = append(analyses, a)
	}
	return analyses, rows.Err()
}

// DeleteAllByOwner removes every analysis owned by owner, returning the row count deleted.
func (s *AnalysisStore) DeleteAllByOwner(ctx context.Context, owner uuid.UUID) (int, error) {
	tag, err := s.dbtx.Exec(ctx, `DELETE FROM pet_analyses WHERE owner_id = $1`, owner)
	if err != nil {
		return 0, fmt.Errorf("deleting pet analyses: %w", err)
	}
	return int(tag.RowsAffected()), nil
}
