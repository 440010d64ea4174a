package gateway

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pawtrait/platform/internal/httpserver"
)

// Route maps a path prefix to a backend base URL (§4.1 "Routing").
type Route struct {
	Prefix string
	Target *url.URL
}

// RouteTable resolves a request path to the backend that should serve it.
// Matching is longest-prefix-wins so more specific entries (e.g.
// "/api/v1/admin/rag") take priority over a shorter sibling prefix.
type RouteTable []Route

// NewRouteTable parses the configured prefix->target-URL pairs.
func NewRouteTable(routes map[string]string) (RouteTable, error) {
	table := make(RouteTable, 0, len(routes))
	for prefix, target := range routes {
		u, err := url.Parse(target)
		if err != nil {
			return nil, fmt.Errorf("parsing target url for prefix %q: %w", prefix, err)
		}
		table = append(table, Route{Prefix: prefix, Target: u})
	}
	return table, nil
}

func (t RouteTable) match(path string) (*url.URL, bool) {
	var best *url.URL
	bestLen := -1
	for _, r := range t {
		if strings.HasPrefix(path, r.Prefix) && len(r.Prefix) > bestLen {
			bestLen = len(r.Prefix)
			best = r.Target
		}
	}
	return best, best != nil
}

// Proxy forwards requests to backend services per the routing table,
// rewriting headers and normalizing response envelopes (§4.1 "Routing",
// "Header rewriting", "Cookie forwarding", "Response envelope normalization").
// Grounded on the original gateway's routes/proxy.py forward_request/
// proxy_handler, reimplemented over net/http/httputil.ReverseProxy.
type Proxy struct {
	routes RouteTable
	logger *slog.Logger
	rp     *httputil.ReverseProxy
}

// NewProxy builds a Proxy over the given routing table.
func NewProxy(routes RouteTable, logger *slog.Logger) *Proxy {
	p := &Proxy{routes: routes, logger: logger}

	p.rp = &httputil.ReverseProxy{
		Director:       p.direct,
		ModifyResponse: p.modifyResponse,
		ErrorHandler:   p.handleProxyError,
	}
	return p
}

type ctxKey int

const userContextKey ctxKey = iota

// ServeHTTP implements http.Handler. The caller is expected to have already
// run rate limiting and, where required, authentication; ServeHTTP only
// routes and forwards.
func (p *Proxy) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if _, ok := p.routes.match(r.URL.Path); !ok {
		httpserver.RespondError(w, http.StatusNotFound, "NOT_FOUND", "no backend serves this path")
		return
	}
	p.rp.ServeHTTP(w, r)
}

func userFrom(r *http.Request) (*UserContext, bool) {
	user, ok := r.Context().Value(userContextKey).(*UserContext)
	return user, ok
}

// direct rewrites the outbound request per §4.1's "Header rewriting":
// drop Host and Cookie, inject X-User-ID/X-User-Role/X-Request-ID/
// X-Correlation-ID, preserve query string and body.
func (p *Proxy) direct(req *http.Request) {
	target, ok := p.routes.match(req.URL.Path)
	if !ok {
		return
	}

	req.URL.Scheme = target.Scheme
	req.URL.Host = target.Host
	req.Host = target.Host
	req.Header.Del("Cookie")

	user, authenticated := userFrom(req)
	if authenticated {
		req.Header.Set("X-User-ID", user.UserID)
		req.Header.Set("X-User-Role", user.Role)
	} else {
		req.Header.Del("X-User-ID")
		req.Header.Del("X-User-Role")
	}

	requestID := req.Header.Get("X-Request-ID")
	if requestID == "" {
		requestID = uuid.NewString()
	}
	req.Header.Set("X-Request-ID", requestID)

	correlationID := req.Header.Get("X-Correlation-ID")
	if correlationID == "" {
		correlationID = requestID
	}
	req.Header.Set("X-Correlation-ID", correlationID)
}

// envelopeProbe is just enough of httpserver.Envelope to detect whether a
// backend response already conforms.
type envelopeProbe struct {
	Success *bool `json:"success"`
}

// modifyResponse normalizes non-conforming backend bodies into the shared
// envelope and restricts the outbound header set to Content-Type, the
// request/correlation id, and every individual Set-Cookie the backend
// emitted (§4.1 "Cookie forwarding", "Response envelope normalization").
func (p *Proxy) modifyResponse(resp *http.Response) error {
	setCookies := resp.Header.Values("Set-Cookie")
	requestID := resp.Request.Header.Get("X-Request-ID")
	correlationID := resp.Request.Header.Get("X-Correlation-ID")

	body, err := readAndClose(resp)
	if err != nil {
		return fmt.Errorf("reading backend response: %w", err)
	}

	conforms := len(body) == 0
	var probe envelopeProbe
	if json.Unmarshal(body, &probe) == nil && probe.Success != nil {
		conforms = true
	}

	if !conforms {
		body = wrapNonConformingBody(resp.StatusCode, body)
	}

	resp.Header = make(http.Header)
	resp.Header.Set("Content-Type", "application/json")
	resp.Header.Set("X-Request-ID", requestID)
	resp.Header.Set("X-Correlation-ID", correlationID)
	for _, c := range setCookies {
		resp.Header.Add("Set-Cookie", c)
	}
	resp.Body = io.NopCloser(bytes.NewReader(body))
	resp.ContentLength = int64(len(body))
	resp.Header.Set("Content-Length", fmt.Sprintf("%d", len(body)))

	return nil
}

func readAndClose(resp *http.Response) ([]byte, error) {
	defer resp.Body.Close()
	return io.ReadAll(resp.Body)
}

func wrapNonConformingBody(statusCode int, body []byte) []byte {
	env := httpserver.Envelope{
		Success:   false,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Error: &httpserver.ErrorBody{
			Code:    "UPSTREAM_ERROR",
			Message: fmt.Sprintf("backend returned a non-conforming response (status %d)", statusCode),
		},
	}
	wrapped, err := json.Marshal(env)
	if err != nil {
		return body
	}
	return wrapped
}

// handleProxyError maps a backend connectivity failure to the normalized
// 503 envelope (§4.1; original's httpx.RequestError -> 503 SERVICE_UNAVAILABLE).
func (p *Proxy) handleProxyError(w http.ResponseWriter, r *http.Request, err error) {
	p.logger.Error("proxying request", "error", err, "path", r.URL.Path)
	httpserver.RespondError(w, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "backend service unavailable")
}
