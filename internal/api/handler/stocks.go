package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/stockdeck/stockdeck/internal/api/middleware"
	"github.com/stockdeck/stockdeck/internal/api/response"
	"github.com/stockdeck/stockdeck/internal/api/validation"
	"github.com/stockdeck/stockdeck/internal/dashboard"
	"github.com/stockdeck/stockdeck/internal/market"
)

// MarketGateway is the slice of the market client the stocks endpoints use.
type MarketGateway interface {
	Search(ctx context.Context, query string) ([]market.SearchResult, error)
	MajorIndexes(ctx context.Context) ([]market.Quote, error)
}

// Aggregator composes favorites with live quotes.
type Aggregator interface {
	FavoritesWithQuotes(ctx context.Context, userID uuid.UUID) ([]dashboard.Entry, error)
}

type searchResultResponse struct {
	Ticker      string `json:"ticker"`
	CompanyName string `json:"company_name"`
}

type quoteResponse struct {
	Ticker        string   `json:"ticker"`
	CompanyName   string   `json:"company_name"`
	Price         *float64 `json:"price"`
	Change        *float64 `json:"change"`
	ChangePercent *float64 `json:"change_percent"`
	Volume        *int64   `json:"volume"`
	MarketCap     *string  `json:"market_cap"`
}

func toQuoteResponse(ticker, companyName string, q *market.Quote) quoteResponse {
	resp := quoteResponse{
		Ticker:      ticker,
		CompanyName: companyName,
	}
	if q != nil {
		resp.Price = &q.Price
		resp.Change = &q.Change
		resp.ChangePercent = &q.ChangePercent
		resp.Volume = &q.Volume
		resp.MarketCap = &q.MarketCap
	}
	return resp
}

// StocksHandler handles search, dashboard and major-index endpoints.
type StocksHandler struct {
	gateway    MarketGateway
	aggregator Aggregator
}

// NewStocksHandler creates a new StocksHandler.
func NewStocksHandler(gateway MarketGateway, aggregator Aggregator) *StocksHandler {
	return &StocksHandler{
		gateway:    gateway,
		aggregator: aggregator,
	}
}

// Search handles GET /api/search-stocks. An empty query is rejected before
// any provider call. Search has no partial-result fallback, so provider
// failures surface to the caller.
func (h *StocksHandler) Search(w http.ResponseWriter, r *http.Request) {
	query, msg := validation.SearchQuery(r.URL.Query().Get("q"))
	if msg != "" {
		response.Error(w, http.StatusBadRequest, msg)
		return
	}

	results, err := h.gateway.Search(r.Context(), query)
	if err != nil {
		if errors.Is(err, market.ErrRateLimited) {
			response.Error(w, http.StatusTooManyRequests, "Search is rate limited, try again shortly")
			return
		}
		slog.Error("stock search failed", "error", err, "query", query)
		response.Error(w, http.StatusBadGateway, "Search failed. Please try again.")
		return
	}

	items := make([]searchResultResponse, 0, len(results))
	for _, res := range results {
		items = append(items, searchResultResponse{
			Ticker:      res.Ticker,
			CompanyName: res.CompanyName,
		})
	}

	response.JSON(w, http.StatusOK, map[string]any{"results": items})
}

// DashboardFavorites handles GET /api/dashboard-favorites. Entries whose
// quote fetch failed come back null-quoted; a single bad ticker never
// blanks the dashboard.
func (h *StocksHandler) DashboardFavorites(w http.ResponseWriter, r *http.Request) {
	identity := middleware.GetIdentity(r.Context())

	entries, err := h.aggregator.FavoritesWithQuotes(r.Context(), identity.UserID)
	if err != nil {
		slog.Error("dashboard aggregation failed", "error", err, "user", identity.UserID)
		response.Error(w, http.StatusInternalServerError, "Failed to load dashboard data")
		return
	}

	items := make([]quoteResponse, 0, len(entries))
	for _, e := range entries {
		items = append(items, toQuoteResponse(e.Favorite.Ticker, e.Favorite.CompanyName, e.Quote))
	}

	response.JSON(w, http.StatusOK, map[string]any{"favorites": items})
}

// MajorIndexes handles GET /api/major-indexes.
func (h *StocksHandler) MajorIndexes(w http.ResponseWriter, r *http.Request) {
	quotes, err := h.gateway.MajorIndexes(r.Context())
	if err != nil {
		if errors.Is(err, market.ErrRateLimited) {
			response.Error(w, http.StatusTooManyRequests, "Index data is rate limited, try again shortly")
			return
		}
		slog.Error("failed to load major indexes", "error", err)
		response.Error(w, http.StatusInternalServerError, "Failed to load index data")
		return
	}

	items := make([]quoteResponse, 0, len(quotes))
	for i := range quotes {
		q := quotes[i]
		items = append(items, toQuoteResponse(q.Ticker, q.CompanyName, &q))
	}

	response.JSON(w, http.StatusOK, map[string]any{"indexes": items})
}
