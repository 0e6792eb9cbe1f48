package tokenstore

import (
	"encoding/json"
	"net/http"
	"net/url"
	"time"
)

const (
	// CookieName is the canonical token cookie
	CookieName = "admin_session_token"

	// LegacyCookieName is the cookie written by the previous auth
	// integration. It is read as a fallback but never written.
	LegacyCookieName = "sb-access-token"
)

// legacyPayload is the structured content of the legacy cookie
type legacyPayload struct {
	AccessToken string `json:"access_token"`
	Token       string `json:"token"`
}

// CookieStore is a Store bound to a single HTTP exchange: reads come from the
// request's cookies and writes become Set-Cookie headers on the response.
type CookieStore struct {
	w http.ResponseWriter
	r *http.Request

	// Secure marks written cookies as HTTPS-only. Left false for local
	// development behind plain HTTP.
	Secure bool
}

// NewCookieStore creates a Store over the given exchange
func NewCookieStore(w http.ResponseWriter, r *http.Request) *CookieStore {
	return &CookieStore{w: w, r: r}
}

// SetToken writes the token cookie with a ttlDays lifetime, SameSite=Lax
func (s *CookieStore) SetToken(token string, ttlDays int) {
	if ttlDays <= 0 {
		ttlDays = DefaultTTLDays
	}
	maxAge := ttlDays * 24 * 60 * 60
	http.SetCookie(s.w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   maxAge,
		Expires:  time.Now().Add(time.Duration(maxAge) * time.Second),
		HttpOnly: true,
		Secure:   s.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// GetToken returns the first usable token: the canonical cookie when present,
// otherwise a token extracted from the legacy cookie's JSON content, otherwise
// the legacy cookie's raw value.
func (s *CookieStore) GetToken() string {
	if c, err := s.r.Cookie(CookieName); err == nil && c.Value != "" {
		return c.Value
	}

	c, err := s.r.Cookie(LegacyCookieName)
	if err != nil || c.Value == "" {
		return ""
	}

	raw := c.Value
	if decoded, err := url.QueryUnescape(raw); err == nil {
		raw = decoded
	}

	var payload legacyPayload
	if err := json.Unmarshal([]byte(raw), &payload); err == nil {
		if payload.AccessToken != "" {
			return payload.AccessToken
		}
		if payload.Token != "" {
			return payload.Token
		}
	}

	// Not JSON: the legacy integration sometimes wrote the bare token
	return raw
}

// ReadToken extracts the session token from a request without binding a
// response, for read-only paths like the route guard
func ReadToken(r *http.Request) string {
	return (&CookieStore{r: r}).GetToken()
}

// ClearToken expires both the canonical and the legacy cookie. Idempotent.
func (s *CookieStore) ClearToken() {
	for _, name := range []string{CookieName, LegacyCookieName} {
		http.SetCookie(s.w, &http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			Expires:  time.Unix(0, 0),
			HttpOnly: true,
			Secure:   s.Secure,
			SameSite: http.SameSiteLaxMode,
		})
	}
}
