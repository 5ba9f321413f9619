package notify

import (
	"fmt"
	"time"
)

// AlertType classifies a market move.
type AlertType string

const (
	AlertGainer AlertType = "gainer"
	AlertLoser  AlertType = "loser"
)

// StockAlert describes a significant market move pushed to subscribers.
type StockAlert struct {
	Ticker        string
	PercentChange float64
	CurrentPrice  float64
	Type          AlertType
	Timestamp     time.Time
}

// Title renders the notification title.
func (a StockAlert) Title() string {
	kind := "Gainer"
	if a.Type == AlertLoser {
		kind = "Loser"
	}
	return fmt.Sprintf("Stock %s Alert: %s", kind, a.Ticker)
}

// Body renders the notification body.
func (a StockAlert) Body() string {
	direction := "up"
	if a.PercentChange < 0 {
		direction = "down"
	}
	return fmt.Sprintf("%s has moved %.2f%% (%s) to $%.2f",
		a.Ticker, a.PercentChange, direction, a.CurrentPrice)
}
