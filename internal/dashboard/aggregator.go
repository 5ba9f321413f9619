package dashboard

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/stockdeck/stockdeck/internal/favorites"
	"github.com/stockdeck/stockdeck/internal/market"
)

// maxConcurrentFetches bounds the quote fan-out per refresh.
const maxConcurrentFetches = 4

// Quoter fetches a single live quote.
type Quoter interface {
	Quote(ctx context.Context, ticker string) (*market.Quote, error)
}

// Entry pairs a favorite with its quote. Quote is nil when the fetch for
// that ticker failed; the entry itself is always present.
type Entry struct {
	Favorite favorites.Favorite
	Quote    *market.Quote
}

// Aggregator composes the favorites store and the market data gateway into
// a refreshable dashboard view.
type Aggregator struct {
	favorites favorites.Repository
	quoter    Quoter
}

// NewAggregator creates a new Aggregator.
func NewAggregator(favRepo favorites.Repository, quoter Quoter) *Aggregator {
	return &Aggregator{
		favorites: favRepo,
		quoter:    quoter,
	}
}

// FavoritesWithQuotes joins the user's favorites with live quotes. Quote
// fetches run concurrently and complete in any order; a failed fetch marks
// that entry's quote absent instead of aborting the refresh, so N favorites
// always produce N entries.
func (a *Aggregator) FavoritesWithQuotes(ctx context.Context, userID uuid.UUID) ([]Entry, error) {
	favs, err := a.favorites.List(ctx, userID)
	if err != nil {
		return nil, err
	}

	entries := make([]Entry, len(favs))
	for i, f := range favs {
		entries[i] = Entry{Favorite: f}
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentFetches)

	for i := range entries {
		g.Go(func() error {
			f := entries[i].Favorite
			q, err := a.quoter.Quote(ctx, f.Ticker)
			if err != nil {
				slog.Warn("quote fetch failed", "ticker", f.Ticker, "error", err)
				return nil
			}
			q.CompanyName = f.CompanyName
			entries[i].Quote = q
			return nil
		})
	}

	// Per-item errors are absorbed above, so this only waits.
	_ = g.Wait()

	return entries, nil
}
