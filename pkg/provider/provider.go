package provider

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"

	"github.com/IsmailofficialGithub/inboundAdmin-sub003/pkg/observability"
)

// Session is the provider's view of a signed-in session
type Session struct {
	AccessToken  string
	RefreshToken string
	TokenType    string
	Raw          map[string]interface{}
}

// Config holds identity provider settings. An empty IssuerURL (and TokenURL)
// means the provider is not configured and the gateway runs degraded.
type Config struct {
	IssuerURL    string
	ClientID     string
	ClientSecret string

	// TokenURL and RevokeURL override OIDC discovery for providers
	// without a discovery document
	TokenURL  string
	RevokeURL string

	// EventsURL is the provider's WebSocket session event stream
	EventsURL string

	Scopes []string
}

// Client talks to the identity provider
type Client struct {
	cfg        Config
	oauth      *oauth2.Config
	revokeURL  string
	eventsURL  string
	httpClient *http.Client
	logger     *observability.Logger
}

// NewClient creates a provider client. Discovery runs once when an issuer URL
// is configured; an explicit TokenURL skips discovery entirely.
func NewClient(ctx context.Context, cfg Config, logger *observability.Logger) (*Client, error) {
	if logger == nil {
		logger = observability.NewLogger(observability.InfoLevel, nil)
	}

	c := &Client{
		cfg:        cfg,
		revokeURL:  cfg.RevokeURL,
		eventsURL:  cfg.EventsURL,
		httpClient: http.DefaultClient,
		logger:     logger.WithField("component", "identity_provider"),
	}

	if !c.Configured() {
		return c, nil
	}

	endpoint := oauth2.Endpoint{TokenURL: cfg.TokenURL}
	if cfg.TokenURL == "" {
		p, err := oidc.NewProvider(ctx, cfg.IssuerURL)
		if err != nil {
			return nil, fmt.Errorf("discover identity provider: %w", err)
		}
		endpoint = p.Endpoint()
		if c.revokeURL == "" {
			var claims struct {
				RevocationEndpoint string `json:"revocation_endpoint"`
			}
			if err := p.Claims(&claims); err == nil {
				c.revokeURL = claims.RevocationEndpoint
			}
		}
	}

	scopes := cfg.Scopes
	if len(scopes) == 0 {
		scopes = []string{oidc.ScopeOpenID, "email", "profile"}
	}

	c.oauth = &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Endpoint:     endpoint,
		Scopes:       scopes,
	}
	return c, nil
}

// Configured reports whether the provider integration is set up. When false,
// the session manager degrades to unauthenticated without network calls.
func (c *Client) Configured() bool {
	return c.cfg.IssuerURL != "" || c.cfg.TokenURL != ""
}

// SignIn exchanges credentials for a bearer token via the password grant
func (c *Client) SignIn(ctx context.Context, email, password string) (*Session, error) {
	if !c.Configured() || c.oauth == nil {
		return nil, fmt.Errorf("identity provider is not configured")
	}

	tok, err := c.oauth.PasswordCredentialsToken(ctx, email, password)
	if err != nil {
		return nil, fmt.Errorf("sign in: %w", err)
	}

	raw := map[string]interface{}{"token_type": tok.TokenType}
	if !tok.Expiry.IsZero() {
		raw["expiry"] = tok.Expiry
	}
	if idToken, ok := tok.Extra("id_token").(string); ok {
		raw["id_token"] = idToken
	}

	return &Session{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		TokenType:    tok.TokenType,
		Raw:          raw,
	}, nil
}

// SignOut revokes the token at the provider. Best-effort: failures are
// logged and reported but callers treat them as non-fatal.
func (c *Client) SignOut(ctx context.Context, token string) error {
	if c.revokeURL == "" || token == "" {
		return nil
	}

	form := url.Values{}
	form.Set("token", token)
	form.Set("token_type_hint", "access_token")
	if c.cfg.ClientID != "" {
		form.Set("client_id", c.cfg.ClientID)
		form.Set("client_secret", c.cfg.ClientSecret)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.revokeURL, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("build revocation request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.WithError(err).Warn("provider sign-out failed")
		return fmt.Errorf("revoke token: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		c.logger.WithField("status", resp.StatusCode).Warn("provider sign-out rejected")
		return fmt.Errorf("revoke token: provider returned %d", resp.StatusCode)
	}
	return nil
}
