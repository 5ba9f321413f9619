package market

import "errors"

// ErrRateLimited is returned when the provider rejects a call with HTTP 429.
// Callers must not blindly retry; the free tier allows five requests per
// minute.
var ErrRateLimited = errors.New("market data provider rate limited")

// ErrTimeout is returned when a fetch exceeds the configured bound.
var ErrTimeout = errors.New("market data fetch timed out")

// ErrEmptyQuery is returned before any external call when a search query is
// blank.
var ErrEmptyQuery = errors.New("search query is empty")

// ErrNoData is returned when the provider has no aggregate data for a
// ticker.
var ErrNoData = errors.New("no market data for ticker")
