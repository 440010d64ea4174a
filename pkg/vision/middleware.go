package vision

import (
	"net"
	"net/http"

	"github.com/pawtrait/platform/internal/httpserver"
)

// privateRanges lists RFC 1918 private network blocks plus loopback, used
// to gate admin-only endpoints that must never be reachable through the
// Gateway's proxy (§6 "admin POST /api/v1/admin/rag/initialize").
var privateRanges = []string{
	"127.0.0.0/8",
	"10.0.0.0/8",
	"172.16.0.0/12",
	"192.168.0.0/16",
	"::1/128",
}

func isLoopbackOrPrivate(host string) bool {
	ip := net.ParseIP(host)
	if ip == nil {
		return false
	}
	for _, cidr := range privateRanges {
		_, block, err := net.ParseCIDR(cidr)
		if err != nil {
			continue
		}
		if block.Contains(ip) {
			return true
		}
	}
	return false
}

// RequireLoopbackOrPrivate rejects requests whose direct TCP peer is not
// loopback or RFC 1918 private. It deliberately ignores X-Forwarded-For: the
// guard is only meaningful against the request's actual TCP source, not a
// header a proxied hop could have set.
func RequireLoopbackOrPrivate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		host, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			host = r.RemoteAddr
		}
		if !isLoopbackOrPrivate(host) {
			httpserver.RespondError(w, http.StatusForbidden, "FORBIDDEN", "this endpoint is restricted to internal callers")
			return
		}
		next.ServeHTTP(w, r)
	})
}
