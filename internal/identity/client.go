package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Credential is a provider-issued token pair. The ID token is the bearer
// credential presented to the server; the refresh token re-derives it when
// it expires.
type Credential struct {
	IDToken      string
	RefreshToken string
	ExpiresAt    time.Time
}

// Client talks to the identity provider's REST endpoints. It is used by the
// agent for the initial password sign-in and for refresh-token exchanges;
// the server itself never calls these endpoints.
type Client struct {
	apiKey     string
	signInURL  string
	refreshURL string
	httpClient *http.Client
}

// ClientOption customizes a Client.
type ClientOption func(*Client)

// WithEndpoints overrides both provider endpoints. Used in tests.
func WithEndpoints(signInURL, refreshURL string) ClientOption {
	return func(c *Client) {
		c.signInURL = signInURL
		c.refreshURL = refreshURL
	}
}

// NewClient creates an identity provider client for the given web API key.
func NewClient(apiKey string, opts ...ClientOption) *Client {
	c := &Client{
		apiKey:     apiKey,
		signInURL:  "https://identitytoolkit.googleapis.com/v1/accounts:signInWithPassword",
		refreshURL: "https://securetoken.googleapis.com/v1/token",
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type signInResponse struct {
	IDToken      string `json:"idToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    string `json:"expiresIn"`
}

type refreshResponse struct {
	IDToken      string `json:"id_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    string `json:"expires_in"`
}

// SignIn exchanges an email/password pair for a credential.
func (c *Client) SignIn(ctx context.Context, email, password string) (*Credential, error) {
	body := map[string]any{
		"email":             email,
		"password":          password,
		"returnSecureToken": true,
	}

	jsonData, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshaling sign-in request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.signInURL+"?key="+url.QueryEscape(c.apiKey), strings.NewReader(string(jsonData)))
	if err != nil {
		return nil, fmt.Errorf("creating sign-in request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing sign-in request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("sign-in failed with status %d: %s", resp.StatusCode, string(b))
	}

	var parsed signInResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decoding sign-in response: %w", err)
	}

	return &Credential{
		IDToken:      parsed.IDToken,
		RefreshToken: parsed.RefreshToken,
		ExpiresAt:    expiryFrom(parsed.ExpiresIn),
	}, nil
}

// Refresh exchanges a refresh token for a fresh credential.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*Credential, error) {
	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", refreshToken)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.refreshURL+"?key="+url.QueryEscape(c.apiKey), strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("creating refresh request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing refresh request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("refresh failed with status %d: %s", resp.StatusCode, string(b))
	}

	var parsed refreshResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decoding refresh response: %w", err)
	}

	return &Credential{
		IDToken:      parsed.IDToken,
		RefreshToken: parsed.RefreshToken,
		ExpiresAt:    expiryFrom(parsed.ExpiresIn),
	}, nil
}

func expiryFrom(expiresIn string) time.Time {
	secs, err := strconv.Atoi(expiresIn)
	if err != nil || secs <= 0 {
		secs = 3600
	}
	return time.Now().Add(time.Duration(secs) * time.Second)
}
