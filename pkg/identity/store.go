package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/pawtrait/platform/internal/db"
)

// ErrNotFound is returned by store lookups that find no matching row.
var ErrNotFound = errors.New("not found")

// ErrEmailExists is returned by CredentialStore.Create on a unique violation.
var ErrEmailExists = errors.New("email already exists")

// CredentialStore persists Identity rows (§3 "Identity", §6 "users table").
type CredentialStore struct {
	dbtx db.DBTX
}

// NewCredentialStore creates a CredentialStore.
func NewCredentialStore(dbtx db.DBTX) *CredentialStore {
	return &CredentialStore{dbtx: dbtx}
}

const identityColumns = `id, email, password_hash, role, active, verified, created_at, updated_at`

func scanIdentity(row pgx.Row) (Identity, error) {
	var id Identity
	var role string
	err := row.Scan(&id.ID, &id.Email, &id.PasswordHash, &role, &id.Active, &id.Verified, &id.CreatedAt, &id.UpdatedAt)
	id.Role = Role(role)
	return id, err
}

// Create inserts a new Identity with email case-folded for uniqueness.
func (s *CredentialStore) Create(ctx context.Context, email string, passwordHash []byte) (Identity, error) {
	email = foldEmail(email)
	query := `INSERT INTO identities (email, password_hash, role, active, verified)
		VALUES ($1, $2, 'user', true, false)
		RETURNING ` + identityColumns
	row := s.dbtx.QueryRow(ctx, query, email, passwordHash)
	id, err := scanIdentity(row)
	if err != nil {
		if isUniqueViolation(err) {
			return Identity{}, ErrEmailExists
		}
		return Identity{}, fmt.Errorf("creating identity: %w", err)
	}
	return id, nil
}

// GetByEmail looks up an Identity by case-folded email.
func (s *CredentialStore) GetByEmail(ctx context.Context, email string) (Identity, error) {
	query := `SELECT ` + identityColumns + ` FROM identities WHERE email = $1`
	row := s.dbtx.QueryRow(ctx, query, foldEmail(email))
	id, err := scanIdentity(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Identity{}, ErrNotFound
	}
	if err != nil {
		return Identity{}, fmt.Errorf("fetching identity by email: %w", err)
	}
	return id, nil
}

// GetByID looks up an Identity by its UUID.
func (s *CredentialStore) GetByID(ctx context.Context, id uuid.UUID) (Identity, error) {
	query := `SELECT ` + identityColumns + ` FROM identities WHERE id = $1`
	row := s.dbtx.QueryRow(ctx, query, id)
	got, err := scanIdentity(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Identity{}, ErrNotFound
	}
	if err != nil {
		return Identity{}, fmt.Errorf("fetching identity by id: %w", err)
	}
	return got, nil
}

// UpdatePassword replaces the password verifier for id.
func (s *CredentialStore) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash []byte) error {
	tag, err := s.dbtx.Exec(ctx, `UPDATE identities SET password_hash = $2, updated_at = now() WHERE id = $1`, id, passwordHash)
	if err != nil {
		return fmt.Errorf("updating password: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes the Identity row. Deleting a missing row is not an error
// at this layer (callers enforce idempotence per §4.2 delete-self).
func (s *CredentialStore) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := s.dbtx.Exec(ctx, `DELETE FROM identities WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting identity: %w", err)
	}
	return nil
}

func foldEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func isUniqueViolation(err error) bool {
	return strings.Contains(err.Error(), "duplicate key value violates unique constraint")
}

// RefreshStore persists Refresh Records (§3 "Refresh Record", §6 "refresh_tokens table").
type RefreshStore struct {
	dbtx db.DBTX
}

// NewRefreshStore creates a RefreshStore.
func NewRefreshStore(dbtx db.DBTX) *RefreshStore {
	return &RefreshStore{dbtx: dbtx}
}

const refreshColumns = `id, owner_id, digest, created_at, expires_at, last_used_at, revoked`

func scanRefreshRecord(row pgx.Row) (RefreshRecord, error) {
	var r RefreshRecord
	var digest []byte
	err := row.Scan(&r.ID, &r.OwnerID, &digest, &r.CreatedAt, &r.ExpiresAt, &r.LastUsedAt, &r.Revoked)
	if len(digest) == 32 {
		copy(r.DigestHash[:], digest)
	}
	return r, err
}

// RevokeAllForOwner sets revoked=true on every non-revoked record for owner,
// implementing the single-session policy atomically with the subsequent
// insert when both run in the same transaction.
func (s *RefreshStore) RevokeAllForOwner(ctx context.Context, owner uuid.UUID) error {
	_, err := s.dbtx.Exec(ctx, `UPDATE refresh_tokens SET revoked = true WHERE owner_id = $1 AND revoked = false`, owner)
	if err != nil {
		return fmt.Errorf("revoking refresh records: %w", err)
	}
	return nil
}

// Insert persists a new Refresh Record.
func (s *RefreshStore) Insert(ctx context.Context, id, owner uuid.UUID, digest [32]byte, expiresAt time.Time) (RefreshRecord, error) {
	query := `INSERT INTO refresh_tokens (id, owner_id, digest, expires_at, revoked)
		VALUES ($1, $2, $3, $4, false)
		RETURNING ` + refreshColumns
	row := s.dbtx.QueryRow(ctx, query, id, owner, digest[:], expiresAt)
	rec, err := scanRefreshRecord(row)
	if err != nil {
		return RefreshRecord{}, fmt.Errorf("inserting refresh record: %w", err)
	}
	return rec, nil
}

// GetByID looks up a Refresh Record by its identifier.
func (s *RefreshStore) GetByID(ctx context.Context, id uuid.UUID) (RefreshRecord, error) {
	query := `SELECT ` + refreshColumns + ` FROM refresh_tokens WHERE id = $1`
	row := s.dbtx.QueryRow(ctx, query, id)
	rec, err := scanRefreshRecord(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return RefreshRecord{}, ErrNotFound
	}
	if err != nil {
		return RefreshRecord{}, fmt.Errorf("fetching refresh record: %w", err)
	}
	return rec, nil
}

// Revoke atomically marks id revoked, but only if it is not already revoked.
// Returns false (no error) when the record was already revoked or missing —
// the caller uses this to detect a replayed refresh token.
func (s *RefreshStore) Revoke(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := s.dbtx.Exec(ctx, `UPDATE refresh_tokens SET revoked = true WHERE id = $1 AND revoked = false`, id)
	if err != nil {
		return false, fmt.Errorf("revoking refresh record: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// TouchLastUsed records the current time as the record's last-use instant.
func (s *RefreshStore) TouchLastUsed(ctx context.Context, id uuid.UUID) error {
	_, err := s.dbtx.Exec(ctx, `UPDATE refresh_tokens SET last_used_at = now() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("touching refresh record: %w", err)
	}
	return nil
}
