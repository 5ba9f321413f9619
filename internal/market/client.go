package market

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client fetches quotes and ticker search results from the Polygon REST
// API. Every call is a live fetch; there is no caching layer.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates a market data client. The timeout bounds every fetch so
// a slow provider cannot hang a dashboard refresh.
func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type aggsResponse struct {
	Status  string `json:"status"`
	Results []struct {
		Ticker string  `json:"T"`
		Close  float64 `json:"c"`
		Open   float64 `json:"o"`
		High   float64 `json:"h"`
		Low    float64 `json:"l"`
		Volume float64 `json:"v"`
	} `json:"results"`
}

type tickersResponse struct {
	Status  string `json:"status"`
	Results []struct {
		Ticker string `json:"ticker"`
		Name   string `json:"name"`
	} `json:"results"`
}

// Quote fetches the previous trading day's aggregate for a ticker and
// derives price, change and volume from it. The free tier does not expose
// same-day data or market cap. CompanyName is left empty; callers that know
// the name fill it in.
func (c *Client) Quote(ctx context.Context, ticker string) (*Quote, error) {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	if ticker == "" {
		return nil, fmt.Errorf("%w: empty ticker", ErrNoData)
	}

	endpoint := fmt.Sprintf("%s/v2/aggs/ticker/%s/prev?adjusted=true", c.baseURL, url.PathEscape(ticker))

	var parsed aggsResponse
	if err := c.get(ctx, endpoint, &parsed); err != nil {
		return nil, err
	}

	if len(parsed.Results) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoData, ticker)
	}

	agg := parsed.Results[0]
	change := agg.Close - agg.Open
	changePercent := 0.0
	if agg.Open != 0 {
		changePercent = change / agg.Open * 100
	}

	return &Quote{
		Ticker:        ticker,
		Price:         agg.Close,
		Change:        round2(change),
		ChangePercent: round2(changePercent),
		Volume:        int64(agg.Volume),
		MarketCap:     "N/A",
		FetchedAt:     time.Now().UTC(),
	}, nil
}

// Search looks up tickers by symbol or company name. Result ordering is
// whatever the provider returns. An empty query is rejected before any
// external call is made.
func (c *Client) Search(ctx context.Context, query string) ([]SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}

	endpoint := fmt.Sprintf("%s/v3/reference/tickers?search=%s&active=true&limit=10",
		c.baseURL, url.QueryEscape(query))

	var parsed tickersResponse
	if err := c.get(ctx, endpoint, &parsed); err != nil {
		return nil, err
	}

	results := make([]SearchResult, 0, len(parsed.Results))
	for _, r := range parsed.Results {
		results = append(results, SearchResult{
			Ticker:      r.Ticker,
			CompanyName: r.Name,
		})
	}

	return results, nil
}

// MajorIndexes fetches quotes for the fixed index ETF set. A ticker whose
// fetch fails yields a placeholder quote so the set always has one entry
// per symbol, except when the provider rate-limits the whole sweep.
func (c *Client) MajorIndexes(ctx context.Context) ([]Quote, error) {
	quotes := make([]Quote, 0, len(IndexSymbols))

	for _, symbol := range IndexSymbols {
		q, err := c.Quote(ctx, symbol)
		if err != nil {
			if errors.Is(err, ErrRateLimited) {
				return nil, err
			}
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			q = &Quote{Ticker: symbol, MarketCap: "N/A", FetchedAt: time.Now().UTC()}
		}
		q.CompanyName = indexNames[symbol]
		quotes = append(quotes, *q)
	}

	return quotes, nil
}

func (c *Client) get(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("creating provider request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if isTimeout(err) {
			return fmt.Errorf("%w: %v", ErrTimeout, err)
		}
		return fmt.Errorf("executing provider request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return ErrRateLimited
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("provider returned status %d: %s", resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding provider response: %w", err)
	}

	return nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var t interface{ Timeout() bool }
	return errors.As(err, &t) && t.Timeout()
}

func round2(v float64) float64 {
	if v < 0 {
		return float64(int64(v*100-0.5)) / 100
	}
	return float64(int64(v*100+0.5)) / 100
}
