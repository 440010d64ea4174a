package gateway

import (
	"net/http"

	"github.com/pawtrait/platform/internal/signing"
)

const accessCookieName = "access_token"

// UserContext is the identity resolved from a verified access token (§4.1
// "derive user context {user_id, role, email}").
type UserContext struct {
	UserID string
	Role   string
	Email  string
}

// authenticate reads and verifies the access_token cookie, per §4.1's
// authentication contract: missing cookie, bad signature, expiry, or the
// wrong token_type all collapse to a single UNAUTHORIZED outcome.
func authenticate(r *http.Request, verifier *signing.Verifier) (*UserContext, bool) {
	cookie, err := r.Cookie(accessCookieName)
	if err != nil {
		return nil, false
	}

	claims, err := verifier.VerifyAccessToken(cookie.Value)
	if err != nil {
		return nil, false
	}

	return &UserContext{UserID: claims.UserID, Role: claims.Role, Email: claims.Email}, true
}

// publicEndpoints bypass authentication entirely (§4.1 "Public endpoints").
var publicEndpoints = map[string]bool{
	"/health":                true,
	"/healthz":               true,
	"/api/v1/auth/login":     true,
	"/api/v1/auth/register":  true,
	"/api/v1/auth/refresh":   true,
	"/docs":                  true,
	"/openapi.json":          true,
}

func isPublicEndpoint(path string) bool {
	return publicEndpoints[path]
}
