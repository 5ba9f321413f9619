package market

import "time"

// Quote is a point-in-time price snapshot for a ticker. Quotes are never
// persisted; they live for a single request/response cycle.
type Quote struct {
	Ticker        string
	CompanyName   string
	Price         float64
	Change        float64
	ChangePercent float64
	Volume        int64
	MarketCap     string // "N/A" when the provider tier does not expose it
	FetchedAt     time.Time
}

// SearchResult is one entry from a ticker search, in provider order.
type SearchResult struct {
	Ticker      string
	CompanyName string
}

// indexNames maps the fixed major-index ETF set to display names. These
// ETFs track the indexes and are guaranteed to have aggregate data.
var indexNames = map[string]string{
	"DIA": "Dow Jones Industrial Average ETF",
	"SPY": "S&P 500 ETF",
	"QQQ": "NASDAQ-100 ETF",
	"VTI": "Total Stock Market ETF",
}

// IndexSymbols is the fixed, ordered major-index symbol set.
var IndexSymbols = []string{"DIA", "SPY", "QQQ", "VTI"}
