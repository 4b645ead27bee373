package opportunities

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/akontos/rebalancer/internal/marketdata"
)

// IndexCalendar infers trading days from the daily bars of a reference
// market index: a date is a trading day iff the index printed a bar on
// exactly that date.
type IndexCalendar struct {
	provider marketdata.Provider
	symbol   string
	log      zerolog.Logger
}

// NewIndexCalendar creates a trading calendar backed by an index symbol
func NewIndexCalendar(provider marketdata.Provider, symbol string, log zerolog.Logger) *IndexCalendar {
	return &IndexCalendar{
		provider: provider,
		symbol:   symbol,
		log:      log.With().Str("component", "index_calendar").Logger(),
	}
}

// IsTradingDay reports whether the index has a bar dated exactly at date.
func (c *IndexCalendar) IsTradingDay(ctx context.Context, date time.Time) (bool, error) {
	bars, err := c.provider.History(ctx, c.symbol, date, 1, marketdata.FrequencyDaily)
	if err != nil {
		return false, err
	}
	if len(bars) == 0 {
		return false, nil
	}
	last := bars[len(bars)-1]
	return last.Date.UTC().Format("2006-01-02") == date.Format("2006-01-02"), nil
}
