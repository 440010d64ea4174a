package signing

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"time"

	"github.com/go-jose/go-jose/v4"
	"github.com/go-jose/go-jose/v4/jwt"
	"github.com/google/uuid"
)

const (
	// AccessTokenLifetime is the default access token lifetime (§4.2).
	AccessTokenLifetime = 15 * time.Minute
	// RefreshTokenLifetime is the default refresh token lifetime (§4.2).
	RefreshTokenLifetime = 7 * 24 * time.Hour

	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"

	issuer = "pawtrait-identity"
)

// Sentinel errors distinguished by every token verification path, per §4.2:
// "expired" from "otherwise invalid" from "revoked" (revocation is checked
// by the caller against the Refresh Record, not here).
var (
	ErrTokenExpired   = errors.New("token expired")
	ErrTokenInvalid   = errors.New("token invalid")
	ErrWrongTokenType = errors.New("unexpected token_type")
)

// AccessClaims are the claims embedded in a signed access token.
type AccessClaims struct {
	UserID    string `json:"user_id"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	TokenType string `json:"token_type"`
}

// RefreshClaims are the claims embedded in a signed refresh token.
type RefreshClaims struct {
	UserID    string `json:"user_id"`
	TokenID   string `json:"token_id"`
	TokenType string `json:"token_type"`
}

// Issuer signs access and refresh tokens with the Identity Service's
// private key. Only Identity constructs one of these.
type Issuer struct {
	privateKey *rsa.PrivateKey
}

// NewIssuer wraps a loaded RSA private key as a token Issuer.
func NewIssuer(key *rsa.PrivateKey) *Issuer {
	return &Issuer{privateKey: key}
}

func (i *Issuer) signer() (jose.Signer, error) {
	return jose.NewSigner(
		jose.SigningKey{Algorithm: jose.RS256, Key: i.privateKey},
		(&jose.SignerOptions{}).WithType("JWT"),
	)
}

// IssueAccessToken signs a new access token for the given identity.
func (i *Issuer) IssueAccessToken(userID, email, role string) (string, time.Time, error) {
	signer, err := i.signer()
	if err != nil {
		return "", time.Time{}, fmt.Errorf("creating signer: %w", err)
	}

	now := time.Now()
	exp := now.Add(AccessTokenLifetime)
	registered := jwt.Claims{
		Subject:   userID,
		Issuer:    issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		Expiry:    jwt.NewNumericDate(exp),
		NotBefore: jwt.NewNumericDate(now),
	}
	custom := AccessClaims{UserID: userID, Email: email, Role: role, TokenType: tokenTypeAccess}

	token, err := jwt.Signed(signer).Claims(registered).Claims(custom).Serialize()
	if err != nil {
		return "", time.Time{}, fmt.Errorf("signing access token: %w", err)
	}
	return token, exp, nil
}

// IssueRefreshToken signs a new refresh token bound to tokenID (the Refresh
// Record's identifier).
func (i *Issuer) IssueRefreshToken(userID string, tokenID uuid.UUID) (string, time.Time, error) {
	signer, err := i.signer()
	if err != nil {
		return "", time.Time{}, fmt.Errorf("creating signer: %w", err)
	}

	now := time.Now()
	exp := now.Add(RefreshTokenLifetime)
	registered := jwt.Claims{
		Subject:   userID,
		Issuer:    issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		Expiry:    jwt.NewNumericDate(exp),
		NotBefore: jwt.NewNumericDate(now),
	}
	custom := RefreshClaims{UserID: userID, TokenID: tokenID.String(), TokenType: tokenTypeRefresh}

	token, err := jwt.Signed(signer).Claims(registered).Claims(custom).Serialize()
	if err != nil {
		return "", time.Time{}, fmt.Errorf("signing refresh token: %w", err)
	}
	return token, exp, nil
}

// Verifier checks signatures against the Identity Service's public key.
// Every service that needs to authenticate a caller constructs one of
// these from the public key loaded at startup.
type Verifier struct {
	publicKey *rsa.PublicKey
}

// NewVerifier wraps a loaded RSA public key as a token Verifier.
func NewVerifier(key *rsa.PublicKey) *Verifier {
	return &Verifier{publicKey: key}
}

// VerifyAccessToken parses and verifies a signed access token, returning
// ErrTokenExpired, ErrWrongTokenType, or ErrTokenInvalid on failure.
func (v *Verifier) VerifyAccessToken(raw string) (*AccessClaims, error) {
	var custom AccessClaims
	registered, err := v.verify(raw, &custom)
	if err != nil {
		return nil, err
	}
	if custom.TokenType != tokenTypeAccess {
		return nil, ErrWrongTokenType
	}
	_ = registered
	return &custom, nil
}

// VerifyRefreshToken parses and verifies a signed refresh token.
func (v *Verifier) VerifyRefreshToken(raw string) (*RefreshClaims, error) {
	var custom RefreshClaims
	_, err := v.verify(raw, &custom)
	if err != nil {
		return nil, err
	}
	if custom.TokenType != tokenTypeRefresh {
		return nil, ErrWrongTokenType
	}
	return &custom, nil
}

func (v *Verifier) verify(raw string, custom any) (*jwt.Claims, error) {
	tok, err := jwt.ParseSigned(raw, []jose.SignatureAlgorithm{jose.RS256})
	if err != nil {
		return nil, ErrTokenInvalid
	}

	var registered jwt.Claims
	if err := tok.Claims(v.publicKey, &registered, custom); err != nil {
		return nil, ErrTokenInvalid
	}

	if err := registered.ValidateWithLeeway(jwt.Expected{
		Issuer: issuer,
		Time:   time.Now(),
	}, 5*time.Second); err != nil {
		if errors.Is(err, jwt.ErrExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}

	return &registered, nil
}
