package identity

import (
	"net/http"
)

const (
	accessCookieName  = "access_token"
	refreshCookieName = "refresh_token"
	refreshCookiePath = "/api/v1/auth/refresh"
)

// CookieConfig controls the Domain/Secure attributes the Identity Service
// sets on its cookies; resolved explicitly per SPEC_FULL.md's supplemented
// "cookie domain" open question.
type CookieConfig struct {
	Domain string // empty ⇒ no Domain attribute (host-only cookie)
	Secure bool
}

func (c CookieConfig) setCookie(w http.ResponseWriter, name, value, path string, maxAge int) {
	cookie := &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     path,
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteStrictMode,
		MaxAge:   maxAge,
	}
	if c.Domain != "" {
		cookie.Domain = c.Domain
	}
	http.SetCookie(w, cookie)
}

// SetSessionCookies sets the access_token and refresh_token cookies per §6.
func (c CookieConfig) SetSessionCookies(w http.ResponseWriter, pair TokenPair) {
	c.setCookie(w, accessCookieName, pair.AccessToken, "/", 900)
	c.setCookie(w, refreshCookieName, pair.RefreshToken, refreshCookiePath, 604800)
}

// ClearSessionCookies clears both cookies using the same name/path used to
// set them, per §4.2 "Logout".
func (c CookieConfig) ClearSessionCookies(w http.ResponseWriter) {
	c.setCookie(w, accessCookieName, "", "/", -1)
	c.setCookie(w, refreshCookieName, "", refreshCookiePath, -1)
}
