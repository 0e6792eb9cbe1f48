package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/IsmailofficialGithub/inboundAdmin-sub003/pkg/observability"
)

// BackendRecorder posts events to the platform backend's account-activity
// endpoint. Writes are fire-and-forget: any failure is logged and reported
// to the caller, but callers treat audit errors as non-fatal.
type BackendRecorder struct {
	baseURL    string
	token      func() string
	httpClient *http.Client
	logger     *observability.Logger
}

// NewBackendRecorder creates a recorder for POST {baseURL}/account-activity.
// token supplies the bearer credential of the acting session at write time.
func NewBackendRecorder(baseURL string, token func() string, logger *observability.Logger) *BackendRecorder {
	if logger == nil {
		logger = observability.NewLogger(observability.InfoLevel, nil)
	}
	return &BackendRecorder{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		httpClient: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		logger: logger.WithField("component", "audit"),
	}
}

// Record posts one event
func (r *BackendRecorder) Record(ctx context.Context, event *Event) error {
	event.normalize()

	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal audit event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/account-activity", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build audit request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if r.token != nil {
		if tok := r.token(); tok != "" {
			req.Header.Set("Authorization", "Bearer "+tok)
		}
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		r.logger.WithError(err).Warn("account activity write failed")
		return fmt.Errorf("post account activity: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		r.logger.WithField("status", resp.StatusCode).Warn("account activity write rejected")
		return fmt.Errorf("post account activity: backend returned %d", resp.StatusCode)
	}
	return nil
}
