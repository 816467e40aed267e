// Package oauth implements the Yandex OAuth exchange: building the
// authorization redirect, swapping an authorization code for a provider
// access token and fetching the user's profile.  It performs no retries;
// any upstream failure aborts the whole login flow.
package oauth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/iliyamo/audio-vault/internal/config"
)

// UpstreamError reports a non-200 answer from a provider endpoint.  The
// provider's status code is preserved so handlers can propagate it in the
// error message.
type UpstreamError struct {
	Endpoint string // "token" or "userinfo"
	Status   int    // HTTP status returned by the provider
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("yandex %s endpoint returned %d", e.Endpoint, e.Status)
}

// Token is the provider's answer to a successful code exchange.
type Token struct {
	TokenType    string `json:"token_type"`
	AccessToken  string `json:"access_token"`
	ExpiresIn    int    `json:"expires_in"`
	RefreshToken string `json:"refresh_token"`
}

// Profile is the normalized user profile used to create local accounts.
// Yandex names the same fields differently across endpoints, so decoding
// resolves each value through a priority-ordered alias list and discards
// everything it does not recognize.
type Profile struct {
	YandexID  string `json:"yandex_id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Sex       string `json:"sex"`
}

// UnmarshalJSON resolves provider field aliases: yandex_id falls back to id,
// email falls back to default_email.  Numeric ids are converted to strings.
func (p *Profile) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	p.YandexID = firstString(raw, "yandex_id", "id")
	p.Email = firstString(raw, "email", "default_email")
	p.FirstName = firstString(raw, "first_name")
	p.LastName = firstString(raw, "last_name")
	p.Sex = firstString(raw, "sex")
	return nil
}

// firstString returns the first key present in the map rendered as a string.
// JSON numbers are accepted because some provider endpoints serialize the
// user id without quotes.
func firstString(m map[string]any, keys ...string) string {
	for _, k := range keys {
		switch v := m[k].(type) {
		case string:
			if v != "" {
				return v
			}
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64)
		}
	}
	return ""
}

// Client talks to the Yandex OAuth endpoints configured at construction.
// Each Client owns its outbound HTTP client; nothing here is shared across
// requests beyond read-only configuration.
type Client struct {
	cfg  config.YandexConfig
	http *http.Client
}

// NewClient builds a Client for the given provider settings.
func NewClient(cfg config.YandexConfig) *Client {
	return &Client{cfg: cfg, http: &http.Client{Timeout: 15 * time.Second}}
}

// AuthorizeURL returns the provider authorization page URL the client is
// redirected to.  No network call is made.
func (c *Client) AuthorizeURL() string {
	q := url.Values{}
	q.Set("response_type", "code")
	q.Set("client_id", c.cfg.ClientID)
	q.Set("redirect_uri", c.cfg.RedirectURI)
	return c.cfg.AuthorizeURL + "?" + q.Encode()
}

// ExchangeCode posts the authorization code with the application
// credentials to the token endpoint and returns the provider token.
func (c *Client) ExchangeCode(ctx context.Context, code string) (Token, error) {
	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)
	form.Set("client_id", c.cfg.ClientID)
	form.Set("client_secret", c.cfg.ClientSecret)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.TokenURL,
		strings.NewReader(form.Encode()))
	if err != nil {
		return Token{}, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return Token{}, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return Token{}, &UpstreamError{Endpoint: "token", Status: resp.StatusCode}
	}

	var tok Token
	if err := json.NewDecoder(resp.Body).Decode(&tok); err != nil {
		return Token{}, err
	}
	return tok, nil
}

// FetchProfile loads the user's profile from the userinfo endpoint using
// the provider access token as the bearer credential.
func (c *Client) FetchProfile(ctx context.Context, accessToken string) (Profile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.UserInfoURL, nil)
	if err != nil {
		return Profile{}, err
	}
	// Yandex's bearer scheme for the userinfo endpoint.
	req.Header.Set("Authorization", "OAuth "+accessToken)

	resp, err := c.http.Do(req)
	if err != nil {
		return Profile{}, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return Profile{}, &UpstreamError{Endpoint: "userinfo", Status: resp.StatusCode}
	}

	var p Profile
	if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
		return Profile{}, err
	}
	return p, nil
}
