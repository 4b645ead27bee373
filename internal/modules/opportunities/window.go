package opportunities

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// WindowState is the persisted buy-window bookkeeping. The checker never
// stores it; callers load it from settings, pass it in and persist
// whatever comes back.
type WindowState struct {
	Postponed bool
	LastCheck time.Time
}

// TradingCalendar answers whether a given date is a trading day on the
// reference market.
type TradingCalendar interface {
	IsTradingDay(ctx context.Context, date time.Time) (bool, error)
}

const windowHour = 14

// WindowChecker decides when the weekly buy window opens. The window is
// anchored to Wednesday at 14:00 local time; a Wednesday holiday defers
// the window to the next trading day.
type WindowChecker struct {
	calendar TradingCalendar
	log      zerolog.Logger
}

// NewWindowChecker creates a new buy-window checker
func NewWindowChecker(calendar TradingCalendar, log zerolog.Logger) *WindowChecker {
	return &WindowChecker{
		calendar: calendar,
		log:      log.With().Str("component", "buy_window").Logger(),
	}
}

// Evaluate is a pure transition function: given the current time and the
// persisted state, it reports whether the buy window opens now and
// returns the next state to persist. A calendar lookup failure counts as
// a non-trading day, delaying the window rather than firing it.
func (c *WindowChecker) Evaluate(ctx context.Context, now time.Time, state WindowState) (bool, WindowState) {
	if now.Hour() < windowHour {
		return false, state
	}

	if state.Postponed {
		if !c.isTradingDay(ctx, now) {
			return false, state
		}
		return true, WindowState{Postponed: false, LastCheck: now}
	}

	wed14 := weekAnchor(now)
	if now.Before(wed14) {
		return false, state
	}
	if !c.isTradingDay(ctx, wed14) {
		c.log.Info().Time("anchor", wed14).Msg("Anchor day is not a trading day, postponing buy window")
		return false, WindowState{Postponed: true, LastCheck: state.LastCheck}
	}
	if !state.LastCheck.Before(wed14) {
		// Already triggered this cycle.
		return false, state
	}
	return true, WindowState{Postponed: false, LastCheck: now}
}

func (c *WindowChecker) isTradingDay(ctx context.Context, date time.Time) bool {
	trading, err := c.calendar.IsTradingDay(ctx, date)
	if err != nil {
		c.log.Warn().Err(err).Time("date", date).Msg("Trading day lookup failed, assuming closed")
		return false
	}
	return trading
}

// weekAnchor returns this week's Wednesday at 14:00 in now's location.
func weekAnchor(now time.Time) time.Time {
	daysSinceMonday := (int(now.Weekday()) + 6) % 7
	wednesday := now.AddDate(0, 0, 2-daysSinceMonday)
	return time.Date(wednesday.Year(), wednesday.Month(), wednesday.Day(), windowHour, 0, 0, 0, now.Location())
}
