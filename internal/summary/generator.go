package summary

import (
	"compress/gzip"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"time"
)

// window is the number of trading days a summary covers.
const window = 5

// dayAggsPrefix locates daily aggregate files inside the flat-file bucket.
const dayAggsPrefix = "us_stocks_sip/day_aggs_v1"

// Metrics holds one ticker's aggregate for one trading day.
type Metrics struct {
	Ticker       string
	Open         float64
	High         float64
	Low          float64
	Close        float64
	Volume       float64
	Transactions int64
	Date         string // ISO date of the trading day
}

// Summary is a five-trading-day market snapshot. Only tickers with data for
// every day in the window are kept.
type Summary struct {
	// Days in the window, most recent first.
	Days []string
	// ByTicker maps ticker to its metrics, aligned with Days.
	ByTicker map[string][]Metrics
	// GeneratedAt records when the summary was built.
	GeneratedAt time.Time
}

// Trend returns the percent change from the earliest close in the window to
// the latest.
func (s *Summary) Trend(ticker string) (float64, bool) {
	m, ok := s.ByTicker[ticker]
	if !ok || len(m) < 2 {
		return 0, false
	}
	earliest := m[len(m)-1]
	latest := m[0]
	if earliest.Close == 0 {
		return 0, false
	}
	return (latest.Close - earliest.Close) / earliest.Close * 100, true
}

// Latest returns the most recent metrics for a ticker.
func (s *Summary) Latest(ticker string) (Metrics, bool) {
	m, ok := s.ByTicker[ticker]
	if !ok || len(m) == 0 {
		return Metrics{}, false
	}
	return m[0], true
}

// Generator builds market summaries from provider flat files.
type Generator struct {
	store *FlatFileStore
	now   func() time.Time
}

// NewGenerator creates a Generator over the given flat-file store.
func NewGenerator(store *FlatFileStore) *Generator {
	return &Generator{store: store, now: time.Now}
}

// Generate downloads the last five trading days of aggregates and assembles
// a summary. Days whose file is missing are skipped with a warning; tickers
// without a complete window are dropped.
func (g *Generator) Generate(ctx context.Context) (*Summary, error) {
	days := tradingDays(g.now(), window)

	byTickerDay := make(map[string]map[string]Metrics)
	var loaded []string

	for _, day := range days {
		metrics, err := g.loadDay(ctx, day)
		if err != nil {
			slog.Warn("skipping summary day", "day", day, "error", err)
			continue
		}
		loaded = append(loaded, day)
		for _, m := range metrics {
			if byTickerDay[m.Ticker] == nil {
				byTickerDay[m.Ticker] = make(map[string]Metrics)
			}
			byTickerDay[m.Ticker][day] = m
		}
	}

	if len(loaded) < 2 {
		return nil, fmt.Errorf("not enough flat-file days available (%d)", len(loaded))
	}

	byTicker := make(map[string][]Metrics)
	for ticker, perDay := range byTickerDay {
		if len(perDay) != len(loaded) {
			continue
		}
		row := make([]Metrics, 0, len(loaded))
		for _, day := range loaded {
			row = append(row, perDay[day])
		}
		byTicker[ticker] = row
	}

	return &Summary{
		Days:        loaded,
		ByTicker:    byTicker,
		GeneratedAt: g.now().UTC(),
	}, nil
}

func (g *Generator) loadDay(ctx context.Context, day string) ([]Metrics, error) {
	key := fmt.Sprintf("%s/%s/%s/%s.csv.gz", dayAggsPrefix, day[:4], day[5:7], day)

	body, err := g.store.Open(ctx, key)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	gz, err := gzip.NewReader(body)
	if err != nil {
		return nil, fmt.Errorf("decompressing %s: %w", key, err)
	}
	defer gz.Close()

	return ParseDayAggs(gz, day)
}

// ParseDayAggs parses a pipe-delimited daily aggregates file. Rows without
// a ticker, close or volume are dropped.
func ParseDayAggs(r io.Reader, day string) ([]Metrics, error) {
	cr := csv.NewReader(r)
	cr.Comma = '|'
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}

	col := make(map[string]int, len(header))
	for i, name := range header {
		col[name] = i
	}
	for _, required := range []string{"ticker", "open", "close", "volume"} {
		if _, ok := col[required]; !ok {
			return nil, fmt.Errorf("missing column %q", required)
		}
	}

	var metrics []Metrics
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading row: %w", err)
		}

		m := Metrics{
			Ticker:       field(record, col, "ticker"),
			Open:         numField(record, col, "open"),
			High:         numField(record, col, "high"),
			Low:          numField(record, col, "low"),
			Close:        numField(record, col, "close"),
			Volume:       numField(record, col, "volume"),
			Transactions: int64(numField(record, col, "transactions")),
			Date:         day,
		}

		if m.Ticker == "" || m.Close == 0 || m.Volume == 0 {
			continue
		}
		metrics = append(metrics, m)
	}

	return metrics, nil
}

func field(record []string, col map[string]int, name string) string {
	i, ok := col[name]
	if !ok || i >= len(record) {
		return ""
	}
	return record[i]
}

func numField(record []string, col map[string]int, name string) float64 {
	v, err := strconv.ParseFloat(field(record, col, name), 64)
	if err != nil {
		return 0
	}
	return v
}

// tradingDays returns the last n weekdays before today, most recent first,
// as ISO dates. Market holidays surface as missing files and are skipped at
// load time.
func tradingDays(now time.Time, n int) []string {
	days := make([]string, 0, n)
	d := now.AddDate(0, 0, -1)
	for len(days) < n {
		if wd := d.Weekday(); wd != time.Saturday && wd != time.Sunday {
			days = append(days, d.Format("2006-01-02"))
		}
		d = d.AddDate(0, 0, -1)
	}
	return days
}
