package marketdata

import (
	"context"
	"math"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"gonum.org/v1/gonum/stat"
)

const (
	// volatilityWindow is the number of daily bars required to compute
	// annualized volatility.
	volatilityWindow = 90

	// annualizationFactor scales the daily log-return standard deviation
	// to an annual figure (~sqrt of 252 trading days).
	annualizationFactor = 15.87

	// sevenDayLookback is the number of bars between the latest close and
	// the close used for the 7-day return.
	sevenDayLookback = 7
)

// Stats holds the per-symbol statistics derived from daily price history.
// SevenDayReturn and Volatility are nil when the history is too short to
// compute them.
type Stats struct {
	LatestClose    decimal.Decimal `json:"latest_close"`
	SevenDayReturn *float64        `json:"seven_day_return,omitempty"`
	Volatility     *float64        `json:"volatility,omitempty"`
	Bars           int             `json:"bars"`
}

// Aggregator derives Stats from a price history provider.
type Aggregator struct {
	provider Provider
	log      zerolog.Logger
}

// NewAggregator creates a new market stats aggregator
func NewAggregator(provider Provider, log zerolog.Logger) *Aggregator {
	return &Aggregator{
		provider: provider,
		log:      log.With().Str("component", "aggregator").Logger(),
	}
}

// Collect fetches up to 90 daily bars for the symbol ending at end and
// derives statistics from them. Returns (nil, nil) when the provider has
// no bars for the symbol. Fetch errors are returned as-is; the caller
// treats them as "stats unavailable" for that symbol.
func (a *Aggregator) Collect(ctx context.Context, symbol string, end time.Time) (*Stats, error) {
	bars, err := a.provider.History(ctx, symbol, end, volatilityWindow, FrequencyDaily)
	if err != nil {
		return nil, err
	}
	if len(bars) == 0 {
		a.log.Debug().Str("symbol", symbol).Msg("No price history available")
		return nil, nil
	}

	stats := &Stats{
		LatestClose: bars[len(bars)-1].Close,
		Bars:        len(bars),
	}

	stats.SevenDayReturn = sevenDayReturn(bars)
	stats.Volatility = annualizedVolatility(bars)

	a.log.Debug().
		Str("symbol", symbol).
		Int("bars", len(bars)).
		Str("latest_close", stats.LatestClose.String()).
		Msg("Collected market stats")

	return stats, nil
}

// sevenDayReturn computes (latest - close[n-8]) / close[n-8]. Needs at
// least 8 bars and a non-zero divisor, otherwise nil.
func sevenDayReturn(bars []Bar) *float64 {
	n := len(bars)
	if n < sevenDayLookback+1 {
		return nil
	}

	latest := bars[n-1].Close
	base := bars[n-1-sevenDayLookback].Close
	if base.IsZero() {
		return nil
	}

	ret, _ := latest.Sub(base).Div(base).Float64()
	return &ret
}

// annualizedVolatility computes the annualized standard deviation of the
// daily log returns. It requires the full 90-bar window: with fewer bars
// the estimate would not be comparable across assets, so nil is returned.
func annualizedVolatility(bars []Bar) *float64 {
	if len(bars) != volatilityWindow {
		return nil
	}

	deltas := make([]float64, 0, len(bars)-1)
	for i := 1; i < len(bars); i++ {
		prev, _ := bars[i-1].Close.Float64()
		cur, _ := bars[i].Close.Float64()
		if prev <= 0 || cur <= 0 {
			return nil
		}
		deltas = append(deltas, math.Log(cur/prev))
	}

	// Population variance over the 89 deltas
	variance := stat.PopVariance(deltas, nil)
	vol := math.Sqrt(variance) * annualizationFactor
	return &vol
}
