package identity

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pawtrait/platform/internal/signing"
)

// Domain errors the handler maps onto the closed error-code taxonomy (§7).
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountDisabled    = errors.New("account disabled")
	ErrMissingToken       = errors.New("missing token")
	ErrTokenRevoked       = errors.New("token revoked")
	ErrDeletionFailed     = errors.New("deletion failed")
)

// TokenPair is the (access, refresh) pair issued to a client.
type TokenPair struct {
	AccessToken      string
	AccessExpiresAt  time.Time
	RefreshToken     string
	RefreshExpiresAt time.Time
}

// UserDataDeleter is the collaborator the Delete-self protocol calls before
// removing the Identity row (§4.2 "Delete self").
type UserDataDeleter interface {
	DeleteUser(ctx context.Context, userID uuid.UUID) (DeletionSummary, error)
}

// Service implements the Token Lifecycle (§4.2).
type Service struct {
	pool     *pgxpool.Pool
	creds    *CredentialStore
	refresh  *RefreshStore
	issuer   *signing.Issuer
	userData UserDataDeleter
}

// NewService creates a Service. pool is used to run the atomic
// revoke-then-insert sequences login and refresh both require.
func NewService(pool *pgxpool.Pool, issuer *signing.Issuer, userData UserDataDeleter) *Service {
	return &Service{
		pool:     pool,
		creds:    NewCredentialStore(pool),
		refresh:  NewRefreshStore(pool),
		issuer:   issuer,
		userData: userData,
	}
}

// Register creates a new Identity and auto-logs-in (§4.2 "Register").
func (s *Service) Register(ctx context.Context, email, password string) (Identity, TokenPair, error) {
	if err := validatePasswordPolicy(password); err != nil {
		return Identity{}, TokenPair{}, err
	}

	hash, err := hashPassword(password)
	if err != nil {
		return Identity{}, TokenPair{}, fmt.Errorf("hashing password: %w", err)
	}

	id, err := s.creds.Create(ctx, email, hash)
	if err != nil {
		return Identity{}, TokenPair{}, err
	}

	pair, err := s.issueSession(ctx, id)
	if err != nil {
		return Identity{}, TokenPair{}, err
	}
	return id, pair, nil
}

// Login verifies credentials and, on success, revokes all prior refresh
// records and issues a fresh session (§4.2 "Login", single-session policy).
func (s *Service) Login(ctx context.Context, email, password string) (Identity, TokenPair, error) {
	id, err := s.creds.GetByEmail(ctx, email)
	if errors.Is(err, ErrNotFound) {
		return Identity{}, TokenPair{}, ErrInvalidCredentials
	}
	if err != nil {
		return Identity{}, TokenPair{}, err
	}

	if !verifyPassword(password, id.PasswordHash) {
		return Identity{}, TokenPair{}, ErrInvalidCredentials
	}
	if !id.Active {
		return Identity{}, TokenPair{}, ErrAccountDisabled
	}

	pair, err := s.issueSession(ctx, id)
	if err != nil {
		return Identity{}, TokenPair{}, err
	}
	return id, pair, nil
}

// issueSession atomically revokes all prior non-revoked refresh records for
// id and issues a new (access, refresh) pair, satisfying the single-session
// invariant even under concurrent logins (§5 "Concurrent logins").
func (s *Service) issueSession(ctx context.Context, id Identity) (TokenPair, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return TokenPair{}, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	txRefresh := NewRefreshStore(tx)
	if err := txRefresh.RevokeAllForOwner(ctx, id.ID); err != nil {
		return TokenPair{}, err
	}

	recordID := uuid.New()
	refreshToken, refreshExp, err := s.issuer.IssueRefreshToken(id.ID.String(), recordID)
	if err != nil {
		return TokenPair{}, fmt.Errorf("issuing refresh token: %w", err)
	}
	digest := sha256.Sum256([]byte(refreshToken))

	if _, err := txRefresh.Insert(ctx, recordID, id.ID, digest, refreshExp); err != nil {
		return TokenPair{}, err
	}

	accessToken, accessExp, err := s.issuer.IssueAccessToken(id.ID.String(), id.Email, string(id.Role))
	if err != nil {
		return TokenPair{}, fmt.Errorf("issuing access token: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return TokenPair{}, fmt.Errorf("committing session: %w", err)
	}

	return TokenPair{
		AccessToken:      accessToken,
		AccessExpiresAt:  accessExp,
		RefreshToken:     refreshToken,
		RefreshExpiresAt: refreshExp,
	}, nil
}

// Refresh verifies the presented refresh token, rotates it, and issues a
// new pair (§4.2 "Refresh", rotation-on-refresh).
func (s *Service) Refresh(ctx context.Context, verifier *signing.Verifier, presented string) (Identity, TokenPair, error) {
	claims, err := verifier.VerifyRefreshToken(presented)
	if err != nil {
		return Identity{}, TokenPair{}, mapTokenError(err)
	}

	recordID, err := uuid.Parse(claims.TokenID)
	if err != nil {
		return Identity{}, TokenPair{}, signing.ErrTokenInvalid
	}

	record, err := s.refresh.GetByID(ctx, recordID)
	if errors.Is(err, ErrNotFound) {
		return Identity{}, TokenPair{}, signing.ErrTokenInvalid
	}
	if err != nil {
		return Identity{}, TokenPair{}, err
	}
	if record.Revoked {
		return Identity{}, TokenPair{}, ErrTokenRevoked
	}

	digest := sha256.Sum256([]byte(presented))
	if digest != record.DigestHash {
		return Identity{}, TokenPair{}, signing.ErrTokenInvalid
	}

	id, err := s.creds.GetByID(ctx, record.OwnerID)
	if err != nil {
		return Identity{}, TokenPair{}, signing.ErrTokenInvalid
	}
	if !id.Active {
		return Identity{}, TokenPair{}, ErrAccountDisabled
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return Identity{}, TokenPair{}, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	txRefresh := NewRefreshStore(tx)
	revoked, err := txRefresh.Revoke(ctx, record.ID)
	if err != nil {
		return Identity{}, TokenPair{}, err
	}
	if !revoked {
		// Another concurrent refresh consumed this token first.
		return Identity{}, TokenPair{}, ErrTokenRevoked
	}

	newRecordID := uuid.New()
	refreshToken, refreshExp, err := s.issuer.IssueRefreshToken(id.ID.String(), newRecordID)
	if err != nil {
		return Identity{}, TokenPair{}, fmt.Errorf("issuing refresh token: %w", err)
	}
	newDigest := sha256.Sum256([]byte(refreshToken))

	if _, err := txRefresh.Insert(ctx, newRecordID, id.ID, newDigest, refreshExp); err != nil {
		return Identity{}, TokenPair{}, err
	}

	accessToken, accessExp, err := s.issuer.IssueAccessToken(id.ID.String(), id.Email, string(id.Role))
	if err != nil {
		return Identity{}, TokenPair{}, fmt.Errorf("issuing access token: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return Identity{}, TokenPair{}, fmt.Errorf("committing refresh: %w", err)
	}

	return id, TokenPair{
		AccessToken:      accessToken,
		AccessExpiresAt:  accessExp,
		RefreshToken:     refreshToken,
		RefreshExpiresAt: refreshExp,
	}, nil
}

// Logout best-effort revokes the presented refresh token's record. It never
// fails the caller's request (§4.2 "Logout" is always success).
func (s *Service) Logout(ctx context.Context, presentedRefresh string, verifier *signing.Verifier) {
	if presentedRefresh == "" {
		return
	}
	claims, err := verifier.VerifyRefreshToken(presentedRefresh)
	if err != nil {
		return
	}
	recordID, err := uuid.Parse(claims.TokenID)
	if err != nil {
		return
	}
	_, _ = s.refresh.Revoke(ctx, recordID)
}

// Verify checks an access token and returns the associated active Identity.
func (s *Service) Verify(ctx context.Context, verifier *signing.Verifier, accessToken string) (Identity, error) {
	if accessToken == "" {
		return Identity{}, ErrMissingToken
	}
	claims, err := verifier.VerifyAccessToken(accessToken)
	if err != nil {
		return Identity{}, mapTokenError(err)
	}
	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		return Identity{}, signing.ErrTokenInvalid
	}
	id, err := s.creds.GetByID(ctx, userID)
	if errors.Is(err, ErrNotFound) {
		return Identity{}, signing.ErrTokenInvalid
	}
	if err != nil {
		return Identity{}, err
	}
	if !id.Active {
		return Identity{}, ErrAccountDisabled
	}
	return id, nil
}

// ChangePassword verifies the current password, replaces the verifier, and
// revokes every outstanding refresh record (§4.2 "Change password").
func (s *Service) ChangePassword(ctx context.Context, userID uuid.UUID, current, next string) (TokenPair, error) {
	id, err := s.creds.GetByID(ctx, userID)
	if err != nil {
		return TokenPair{}, err
	}
	if !verifyPassword(current, id.PasswordHash) {
		return TokenPair{}, ErrInvalidCredentials
	}
	if err := validatePasswordPolicy(next); err != nil {
		return TokenPair{}, err
	}

	hash, err := hashPassword(next)
	if err != nil {
		return TokenPair{}, fmt.Errorf("hashing password: %w", err)
	}
	if err := s.creds.UpdatePassword(ctx, userID, hash); err != nil {
		return TokenPair{}, err
	}

	return s.issueSession(ctx, id)
}

// DeleteSelf implements the two-step cross-service deletion protocol
// (§4.2 "Delete self"): User Data is cleaned up first; only on its success
// is the Identity row removed. Returns the User Data Service's deletion
// summary so the caller can report it back to the client.
func (s *Service) DeleteSelf(ctx context.Context, userID uuid.UUID) (DeletionSummary, error) {
	summary, err := s.userData.DeleteUser(ctx, userID)
	if err != nil {
		return DeletionSummary{}, ErrDeletionFailed
	}
	if err := s.creds.Delete(ctx, userID); err != nil {
		return DeletionSummary{}, err
	}
	return summary, nil
}

func mapTokenError(err error) error {
	switch {
	case errors.Is(err, signing.ErrTokenExpired):
		return signing.ErrTokenExpired
	case errors.Is(err, signing.ErrWrongTokenType):
		return signing.ErrTokenInvalid
	default:
		return signing.ErrTokenInvalid
	}
}
