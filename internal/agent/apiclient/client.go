// Package apiclient is the agent's typed client for the stockdeck API.
// All calls go through the intercepting transport, so no method here deals
// with credentials.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/stockdeck/stockdeck/internal/agent/tokenstore"
	"github.com/stockdeck/stockdeck/internal/agent/transport"
	"github.com/stockdeck/stockdeck/internal/identity"
)

// ErrAuthRequired is returned when the server rejects the credential even
// after a refresh attempt. The caller should prompt for a new sign-in.
var ErrAuthRequired = errors.New("authentication required")

// Favorite is one entry of the favorites list.
type Favorite struct {
	Ticker      string `json:"ticker"`
	CompanyName string `json:"company_name"`
	AddedAt     string `json:"added_at"`
}

// SearchResult is one entry of a stock search.
type SearchResult struct {
	Ticker      string `json:"ticker"`
	CompanyName string `json:"company_name"`
}

// Quote is a dashboard or index entry. Pointer fields are nil when the
// server could not fetch the quote.
type Quote struct {
	Ticker        string   `json:"ticker"`
	CompanyName   string   `json:"company_name"`
	Price         *float64 `json:"price"`
	Change        *float64 `json:"change"`
	ChangePercent *float64 `json:"change_percent"`
	Volume        *int64   `json:"volume"`
	MarketCap     *string  `json:"market_cap"`
}

// Client calls the stockdeck API.
type Client struct {
	baseURL    string
	store      tokenstore.Store
	idClient   *identity.Client
	httpClient *http.Client
}

// New creates a Client for the given server base URL. The client's
// transport attaches the stored credential to same-origin calls and
// refreshes it once on 401.
func New(baseURL string, store tokenstore.Store, idClient *identity.Client) (*Client, error) {
	origin, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing base URL: %w", err)
	}
	if origin.Scheme == "" || origin.Host == "" {
		return nil, fmt.Errorf("base URL %q must include scheme and host", baseURL)
	}

	c := &Client{
		baseURL:  baseURL,
		store:    store,
		idClient: idClient,
	}
	c.httpClient = &http.Client{
		Timeout:   30 * time.Second,
		Transport: transport.New(nil, store, c, origin),
	}

	return c, nil
}

// RefreshCredential implements transport.Refresher using the stored
// refresh token.
func (c *Client) RefreshCredential(ctx context.Context) (*identity.Credential, error) {
	cred := c.store.Load(ctx)
	if cred == nil || cred.RefreshToken == "" {
		return nil, ErrAuthRequired
	}

	fresh, err := c.idClient.Refresh(ctx, cred.RefreshToken)
	if err != nil {
		return nil, fmt.Errorf("refreshing credential: %w", err)
	}

	if err := c.store.Save(ctx, fresh); err != nil {
		return nil, fmt.Errorf("storing refreshed credential: %w", err)
	}

	return fresh, nil
}

// SignIn performs the initial password sign-in and stores the credential.
func (c *Client) SignIn(ctx context.Context, email, password string) error {
	cred, err := c.idClient.SignIn(ctx, email, password)
	if err != nil {
		return err
	}
	return c.store.Save(ctx, cred)
}

// SignOut clears the stored credential.
func (c *Client) SignOut(ctx context.Context) error {
	return c.store.Clear(ctx)
}

// Favorites fetches the user's favorites.
func (c *Client) Favorites(ctx context.Context) ([]Favorite, error) {
	var out struct {
		Favorites []Favorite `json:"favorites"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/favorites", nil, &out); err != nil {
		return nil, err
	}
	return out.Favorites, nil
}

// AddFavorite adds a ticker to the favorites.
func (c *Client) AddFavorite(ctx context.Context, ticker, companyName string) error {
	body := map[string]string{"ticker": ticker, "company_name": companyName}
	return c.do(ctx, http.MethodPost, "/api/favorites", body, nil)
}

// RemoveFavorite removes a ticker from the favorites.
func (c *Client) RemoveFavorite(ctx context.Context, ticker string) error {
	body := map[string]string{"ticker": ticker}
	return c.do(ctx, http.MethodDelete, "/api/favorites", body, nil)
}

// Search looks up tickers by symbol or company name.
func (c *Client) Search(ctx context.Context, query string) ([]SearchResult, error) {
	var out struct {
		Results []SearchResult `json:"results"`
	}
	path := "/api/search-stocks?q=" + url.QueryEscape(query)
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Results, nil
}

// Dashboard fetches the favorites dashboard with live quotes.
func (c *Client) Dashboard(ctx context.Context) ([]Quote, error) {
	var out struct {
		Favorites []Quote `json:"favorites"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/dashboard-favorites", nil, &out); err != nil {
		return nil, err
	}
	return out.Favorites, nil
}

// MajorIndexes fetches the major-index quotes.
func (c *Client) MajorIndexes(ctx context.Context) ([]Quote, error) {
	var out struct {
		Indexes []Quote `json:"indexes"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/major-indexes", nil, &out); err != nil {
		return nil, err
	}
	return out.Indexes, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshaling request: %w", err)
		}
		reader = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return ErrAuthRequired
	}
	if resp.StatusCode != http.StatusOK {
		var apiErr struct {
			Error string `json:"error"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&apiErr); err == nil && apiErr.Error != "" {
			return fmt.Errorf("server returned status %d: %s", resp.StatusCode, apiErr.Error)
		}
		return fmt.Errorf("server returned status %d", resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}

	return nil
}
