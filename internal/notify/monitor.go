package notify

import (
	"context"
	"log/slog"
	"math"
	"time"

	"github.com/stockdeck/stockdeck/internal/summary"
)

// SummarySource produces market summaries for the monitor to scan.
type SummarySource interface {
	Generate(ctx context.Context) (*summary.Summary, error)
}

// Sender publishes alerts. Satisfied by *Relay.
type Sender interface {
	SendToTopic(ctx context.Context, topic string, alert StockAlert) error
}

// Monitor polls market summaries and publishes alerts for moves beyond the
// configured threshold, at most once per ticker per day.
type Monitor struct {
	source    SummarySource
	sender    Sender
	topic     string
	threshold float64
	interval  time.Duration

	lastSent map[string]time.Time
	now      func() time.Time
}

// NewMonitor creates a Monitor.
func NewMonitor(source SummarySource, sender Sender, topic string, threshold float64, interval time.Duration) *Monitor {
	return &Monitor{
		source:    source,
		sender:    sender,
		topic:     topic,
		threshold: threshold,
		interval:  interval,
		lastSent:  make(map[string]time.Time),
		now:       time.Now,
	}
}

// Start begins the monitoring loop. It blocks until ctx is cancelled.
func (m *Monitor) Start(ctx context.Context) {
	slog.Info("alert monitor started", "interval", m.interval.String(), "threshold", m.threshold)
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("alert monitor stopped")
			return
		case <-ticker.C:
			m.check(ctx)
		}
	}
}

func (m *Monitor) check(ctx context.Context) {
	sum, err := m.source.Generate(ctx)
	if err != nil {
		slog.Error("alert monitor: summary generation failed", "error", err)
		return
	}

	for ticker := range sum.ByTicker {
		if ctx.Err() != nil {
			return
		}
		m.checkTicker(ctx, sum, ticker)
	}
}

func (m *Monitor) checkTicker(ctx context.Context, sum *summary.Summary, ticker string) {
	trend, ok := sum.Trend(ticker)
	if !ok || math.Abs(trend) < m.threshold {
		return
	}

	// One alert per ticker per day keeps the topic from flooding.
	if last, ok := m.lastSent[ticker]; ok && m.now().Sub(last) < 24*time.Hour {
		return
	}

	latest, ok := sum.Latest(ticker)
	if !ok {
		return
	}

	alertType := AlertGainer
	if trend < 0 {
		alertType = AlertLoser
	}

	alert := StockAlert{
		Ticker:        ticker,
		PercentChange: trend,
		CurrentPrice:  latest.Close,
		Type:          alertType,
		Timestamp:     m.now(),
	}

	if err := m.sender.SendToTopic(ctx, m.topic, alert); err != nil {
		slog.Warn("alert monitor: send failed", "ticker", ticker, "error", err)
		return
	}

	m.lastSent[ticker] = m.now()
	slog.Info("alert published", "ticker", ticker, "percent_change", trend, "type", alertType)
}
