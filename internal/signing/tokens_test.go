package signing

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func testKeyPair(t *testing.T) (*Issuer, *Verifier) {
	t.Helper()
	key, err := GenerateDevKeyPair()
	if err != nil {
		t.Fatalf("GenerateDevKeyPair() error = %v", err)
	}
	return NewIssuer(key), NewVerifier(&key.PublicKey)
}

func TestIssueAndVerifyAccessToken(t *testing.T) {
	issuer, verifier := testKeyPair(t)

	token, exp, err := issuer.IssueAccessToken("user-1", "a@x.test", "user")
	if err != nil {
		t.Fatalf("IssueAccessToken() error = %v", err)
	}
	if time.Until(exp) > AccessTokenLifetime {
		t.Errorf("expiry too far in the future: %v", exp)
	}

	claims, err := verifier.VerifyAccessToken(token)
	if err != nil {
		t.Fatalf("VerifyAccessToken() error = %v", err)
	}
	if claims.UserID != "user-1" || claims.Email != "a@x.test" || claims.Role != "user" {
		t.Errorf("unexpected claims: %+v", claims)
	}
}

func TestVerifyAccessTokenRejectsRefreshToken(t *testing.T) {
	issuer, verifier := testKeyPair(t)

	token, _, err := issuer.IssueRefreshToken("user-1", uuid.New())
	if err != nil {
		t.Fatalf("IssueRefreshToken() error = %v", err)
	}

	if _, err := verifier.VerifyAccessToken(token); err != ErrWrongTokenType {
		t.Errorf("VerifyAccessToken() error = %v, want ErrWrongTokenType", err)
	}
}

func TestVerifyRejectsWrongKey(t *testing.T) {
	issuer, _ := testKeyPair(t)
	_, otherVerifier := testKeyPair(t)

	token, _, err := issuer.IssueAccessToken("user-1", "a@x.test", "user")
	if err != nil {
		t.Fatalf("IssueAccessToken() error = %v", err)
	}

	if _, err := otherVerifier.VerifyAccessToken(token); err != ErrTokenInvalid {
		t.Errorf("VerifyAccessToken() error = %v, want ErrTokenInvalid", err)
	}
}

func TestVerifyRefreshTokenRoundTrip(t *testing.T) {
	issuer, verifier := testKeyPair(t)
	recordID := uuid.New()

	token, _, err := issuer.IssueRefreshToken("user-1", recordID)
	if err != nil {
		t.Fatalf("IssueRefreshToken() error = %v", err)
	}

	claims, err := verifier.VerifyRefreshToken(token)
	if err != nil {
		t.Fatalf("VerifyRefreshToken() error = %v", err)
	}
	if claims.TokenID != recordID.String() {
		t.Errorf("TokenID = %q, want %q", claims.TokenID, recordID.String())
	}
}
