package userdata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pawtrait/platform/internal/db"
)

// ErrForbidden is returned when a caller attempts to act on a pet it does not own.
var ErrForbidden = errors.New("forbidden")

// Service implements the profile/pet/analysis operations of §4.3.
type Service struct {
	pool      *pgxpool.Pool
	profiles  *ProfileStore
	pets      *PetStore
	analyses  *AnalysisStore
}

// NewService constructs a Service bound to pool.
func NewService(pool *pgxpool.Pool) *Service {
	return &Service{
		pool:     pool,
		profiles: NewProfileStore(pool),
		pets:     NewPetStore(pool),
		analyses: NewAnalysisStore(pool),
	}
}

// UpsertProfile creates or replaces the caller's Profile.
func (s *Service) UpsertProfile(ctx context.Context, owner uuid.UUID, contact string, addr Address, preferences json.RawMessage) (Profile, error) {
	return s.profiles.Upsert(ctx, owner, contact, addr, preferences)
}

// GetProfile returns the caller's Profile.
func (s *Service) GetProfile(ctx context.Context, owner uuid.UUID) (Profile, error) {
	return s.profiles.GetByOwner(ctx, owner)
}

// CreatePet registers a new Pet for owner.
func (s *Service) CreatePet(ctx context.Context, owner uuid.UUID, name string, species Species, breed string,
	ageMonths *int, weightKg *float64, conditions []HealthCondition) (Pet, error) {
	return s.pets.Create(ctx, owner, name, species, breed, nil, ageMonths, weightKg, conditions)
}

// ListPets returns every Pet owned by owner.
func (s *Service) ListPets(ctx context.Context, owner uuid.UUID) ([]Pet, error) {
	return s.pets.ListByOwner(ctx, owner)
}

// GetPet returns the Pet identified by id if owner owns it, or admin is true.
func (s *Service) GetPet(ctx context.Context, id, owner uuid.UUID, admin bool) (Pet, error) {
	pet, err := s.pets.GetByID(ctx, id)
	if err != nil {
		return Pet{}, err
	}
	if !admin && pet.OwnerID != owner {
		return Pet{}, ErrForbidden
	}
	return pet, nil
}

// UpdatePet replaces the mutable fields of a Pet owned by owner.
func (s *Service) UpdatePet(ctx context.Context, id, owner uuid.UUID, name string, species Species, breed string,
	ageMonths *int, weightKg *float64, conditions []HealthCondition) (Pet, error) {
	existing, err := s.pets.GetByID(ctx, id)
	if err != nil {
		return Pet{}, err
	}
	if existing.OwnerID != owner {
		return Pet{}, ErrForbidden
	}
	return s.pets.Update(ctx, id, owner, name, species, breed, existing.BreedConfidence, ageMonths, weightKg, conditions)
}

// DeletePet removes a Pet owned by owner.
func (s *Service) DeletePet(ctx context.Context, id, owner uuid.UUID) error {
	return s.pets.Delete(ctx, id, owner)
}

// RecordAnalysis appends a vision Pet Analysis, updating the pet's breed and
// confidence fields when the analysis reports a usable result (§4.4, vision
// orchestrator contract).
func (s *Service) RecordAnalysis(ctx context.Context, owner, pet uuid.UUID, imageRef, detectedBreed string,
	confidence float64, traits, raw json.RawMessage) (PetAnalysis, error) {
	existing, err := s.pets.GetByID(ctx, pet)
	if err != nil {
		return PetAnalysis{}, err
	}
	if existing.OwnerID != owner {
		return PetAnalysis{}, ErrForbidden
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return PetAnalysis{}, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	analyses := NewAnalysisStore(tx)
	analysis, err := analyses.Create(ctx, owner, pet, imageRef, detectedBreed, confidence, traits, raw)
	if err != nil {
		return PetAnalysis{}, err
	}

	if detectedBreed != "" {
		pets := NewPetStore(tx)
		conf := confidence
		if _, err := pets.Update(ctx, pet, owner, existing.Name, existing.Species, detectedBreed, &conf,
			existing.AgeMonths, existing.WeightKg, existing.HealthConditions); err != nil {
			return PetAnalysis{}, fmt.Errorf("updating pet breed from analysis: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return PetAnalysis{}, fmt.Errorf("committing analysis: %w", err)
	}
	return analysis, nil
}

// ListAnalyses returns every analysis recorded for pet, most recent first.
func (s *Service) ListAnalyses(ctx context.Context, petID, owner uuid.UUID, admin bool) ([]PetAnalysis, error) {
	pet, err := s.pets.GetByID(ctx, petID)
	if err != nil {
		return nil, err
	}
	if !admin && pet.OwnerID != owner {
		return nil, ErrForbidden
	}
	return s.analyses.ListByPet(ctx, petID)
}

// DeleteUser cascades the removal of every record owned by owner: profile,
// pets, and analyses, in a single transaction. This is the endpoint the
// Identity Service calls before removing its own identity row (§4.2 "Delete
// self"); it must succeed atomically or not at all.
func (s *Service) DeleteUser(ctx context.Context, owner uuid.UUID) (DeletionSummary, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return DeletionSummary{}, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var summary DeletionSummary
	summary.Analyses, err = NewAnalysisStore(tx).DeleteAllByOwner(ctx, owner)
	if err != nil {
		return DeletionSummary{}, err
	}
	summary.Pets, err = NewPetStore(tx).DeleteAllByOwner(ctx, owner)
	if err != nil {
		return DeletionSummary{}, err
	}
	summary.Profiles, err = NewProfileStore(tx).DeleteByOwner(ctx, owner)
	if err != nil {
		return DeletionSummary{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return DeletionSummary{}, fmt.Errorf("committing cascade delete: %w", err)
	}
	return summary, nil
}

var _ db.DBTX = (*pgxpool.Pool)(nil)
