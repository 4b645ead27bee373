// Package marketdata provides price history access and the statistics
// derived from it (latest close, 7-day return, annualized volatility).
package marketdata

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Frequency is the bar interval of a price history request
type Frequency string

const (
	FrequencyDaily   Frequency = "d"
	FrequencyWeekly  Frequency = "w"
	FrequencyMonthly Frequency = "m"
	Frequency1Min    Frequency = "1m"
	Frequency5Min    Frequency = "5m"
	Frequency15Min   Frequency = "15m"
	Frequency30Min   Frequency = "30m"
	Frequency60Min   Frequency = "60m"
)

// Bar is a single OHLCV price bar
type Bar struct {
	Date   time.Time       `json:"date"`
	Open   decimal.Decimal `json:"open"`
	High   decimal.Decimal `json:"high"`
	Low    decimal.Decimal `json:"low"`
	Close  decimal.Decimal `json:"close"`
	Volume int64           `json:"volume"`
}

// Provider fetches price history for a symbol. Implementations return up
// to count bars ending at the end date, ascending by time. An empty slice
// means no data is available for the symbol; errors are transport-level
// failures the caller must treat as "stats unavailable".
type Provider interface {
	History(ctx context.Context, symbol string, end time.Time, count int, freq Frequency) ([]Bar, error)
}
