package gateway

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/pawtrait/platform/internal/httpserver"
	"github.com/pawtrait/platform/internal/signing"
)

// Handler implements the Gateway request pipeline (§4.1): rate limiting,
// authentication, routing+forwarding, in that order, with re-keying of the
// rate limit counter to the authenticated principal once auth succeeds.
type Handler struct {
	proxy    *Proxy
	limiter  *RateLimiter
	verifier *signing.Verifier
	logger   *slog.Logger
}

// NewHandler creates the Gateway's top-level request handler.
func NewHandler(proxy *Proxy, limiter *RateLimiter, verifier *signing.Verifier, logger *slog.Logger) *Handler {
	return &Handler{proxy: proxy, limiter: limiter, verifier: verifier, logger: logger}
}

// Routes mounts the catch-all pipeline. Every path is dispatched through
// serve; the proxy itself returns 404 for anything outside the routing table.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.HandleFunc("/*", h.serve)
	return r
}

func (h *Handler) serve(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	ipResult := h.limiter.Allow(ctx, "ip:"+clientIP(r))
	if !ipResult.Allowed {
		respondRateLimited(w, ipResult)
		return
	}

	public := isPublicEndpoint(r.URL.Path)
	result := ipResult

	if !public {
		user, ok := authenticate(r, h.verifier)
		if !ok {
			httpserver.RespondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required")
			return
		}

		// Re-key under the principal resolved at check time; no
		// retroactive adjustment of the IP-scoped counter already spent.
		identityResult := h.limiter.Allow(ctx, "user:"+user.UserID)
		if !identityResult.Allowed {
			respondRateLimited(w, identityResult)
			return
		}
		result = identityResult

		if isAdminPath(r.URL.Path) && user.Role != "admin" {
			httpserver.RespondError(w, http.StatusForbidden, "FORBIDDEN", "admin role required")
			return
		}

		r = r.WithContext(context.WithValue(ctx, userContextKey, user))
	}

	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))

	h.proxy.ServeHTTP(w, r)
}

func respondRateLimited(w http.ResponseWriter, result Result) {
	w.Header().Set("Retry-After", strconv.Itoa(result.RetryAfter))
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
	w.Header().Set("X-RateLimit-Remaining", "0")
	httpserver.RespondErrorDetails(w, http.StatusTooManyRequests, "RATE_LIMIT_EXCEEDED",
		"rate limit exceeded", map[string]int{"retry_after": result.RetryAfter, "limit": result.Limit})
}

// isAdminPath reports whether path is one of the admin-only routes the
// Gateway must gate on X-User-Role=admin before forwarding (§4.4: "Admin
// authorization is enforced by GW via X-User-Role=admin; services
// themselves may assume the header is trustworthy").
func isAdminPath(path string) bool {
	return strings.HasPrefix(path, "/api/v1/admin/")
}

// clientIP extracts the request's remote address, ignoring any
// X-Forwarded-For header — the Gateway is the true edge, so forged
// forwarding headers must not be able to spoof the rate-limit principal.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
