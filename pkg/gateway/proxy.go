package gateway

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/IsmailofficialGithub/inboundAdmin-sub003/pkg/httputil"
	"github.com/IsmailofficialGithub/inboundAdmin-sub003/pkg/observability"
)

// hopHeaders are stripped before forwarding either direction
var hopHeaders = []string{
	"Connection",
	"Keep-Alive",
	"Proxy-Authenticate",
	"Proxy-Authorization",
	"Te",
	"Trailer",
	"Transfer-Encoding",
	"Upgrade",
}

// Proxy forwards admin resource calls to the platform backend with the
// session's bearer token injected. Request and response bodies are opaque:
// pagination query strings and backend error payloads pass through untouched.
type Proxy struct {
	backend *url.URL
	client  *http.Client
	logger  *observability.Logger
	metrics *observability.Metrics
}

// NewProxy creates a proxy for the given backend base URL
func NewProxy(backendURL string, timeout time.Duration, logger *observability.Logger, metrics *observability.Metrics) (*Proxy, error) {
	base, err := url.Parse(backendURL)
	if err != nil {
		return nil, fmt.Errorf("parse backend URL: %w", err)
	}
	if logger == nil {
		logger = observability.NewLogger(observability.InfoLevel, nil)
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Proxy{
		backend: base,
		client: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		logger:  logger.WithField("component", "proxy"),
		metrics: metrics,
	}, nil
}

// Forward sends the request for resource to the backend as token and relays
// the response verbatim
func (p *Proxy) Forward(w http.ResponseWriter, r *http.Request, resource, token string) {
	target := *p.backend
	target.Path = strings.TrimRight(target.Path, "/") + "/" + strings.Trim(resource, "/")
	target.RawQuery = r.URL.RawQuery

	req, err := http.NewRequestWithContext(r.Context(), r.Method, target.String(), r.Body)
	if err != nil {
		httputil.WriteInternalError(w, fmt.Errorf("build backend request: %w", err))
		return
	}

	copyHeaders(req.Header, r.Header)
	for _, h := range hopHeaders {
		req.Header.Del(h)
	}
	req.Header.Del("Cookie")
	req.Header.Set("Authorization", "Bearer "+token)
	if requestID := observability.GetRequestID(r.Context()); requestID != "" {
		req.Header.Set("X-Request-ID", requestID)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		p.logger.WithError(err).WithField("resource", resource).Warn("backend request failed")
		p.count(resource, http.StatusBadGateway)
		httputil.WriteErrorMessage(w, http.StatusBadGateway, "backend unavailable")
		return
	}
	defer resp.Body.Close()

	copyHeaders(w.Header(), resp.Header)
	for _, h := range hopHeaders {
		w.Header().Del(h)
	}
	w.WriteHeader(resp.StatusCode)
	if _, err := io.Copy(w, resp.Body); err != nil {
		p.logger.WithError(err).Debug("response relay interrupted")
	}
	p.count(resource, resp.StatusCode)
}

func (p *Proxy) count(resource string, status int) {
	if p.metrics == nil {
		return
	}
	// First path segment keeps the label cardinality bounded
	if idx := strings.IndexByte(resource, '/'); idx >= 0 {
		resource = resource[:idx]
	}
	p.metrics.ProxiedRequestsTotal.WithLabelValues(resource, strconv.Itoa(status)).Inc()
}

func copyHeaders(dst, src http.Header) {
	for key, values := range src {
		for _, value := range values {
			dst.Add(key, value)
		}
	}
}
