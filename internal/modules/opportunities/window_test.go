package opportunities

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

type fakeCalendar struct {
	tradingDays map[string]bool
	err         error
}

func (f *fakeCalendar) IsTradingDay(_ context.Context, date time.Time) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	return f.tradingDays[date.Format("2006-01-02")], nil
}

func newChecker(cal TradingCalendar) *WindowChecker {
	return NewWindowChecker(cal, zerolog.Nop())
}

// 2025-03-05 is a Wednesday.
func localTime(day, hour, minute int) time.Time {
	return time.Date(2025, 3, day, hour, minute, 0, 0, time.Local)
}

func TestWindowNeverTriggersBeforeTwoPM(t *testing.T) {
	checker := newChecker(&fakeCalendar{tradingDays: map[string]bool{"2025-03-05": true}})
	for _, state := range []WindowState{{}, {Postponed: true}} {
		triggered, next := checker.Evaluate(context.Background(), localTime(5, 13, 59), state)
		assert.False(t, triggered)
		assert.Equal(t, state, next)
	}
}

func TestWindowTriggersWednesdayAfternoon(t *testing.T) {
	checker := newChecker(&fakeCalendar{tradingDays: map[string]bool{"2025-03-05": true}})
	now := localTime(5, 14, 30)

	triggered, next := checker.Evaluate(context.Background(), now, WindowState{})
	assert.True(t, triggered)
	assert.False(t, next.Postponed)
	assert.Equal(t, now, next.LastCheck)

	// Same cycle again: lastCheck is past the anchor, no re-trigger.
	triggered, again := checker.Evaluate(context.Background(), localTime(5, 16, 0), next)
	assert.False(t, triggered)
	assert.Equal(t, next, again)
}

func TestWindowWaitsBeforeWednesday(t *testing.T) {
	checker := newChecker(&fakeCalendar{tradingDays: map[string]bool{"2025-03-05": true}})
	triggered, next := checker.Evaluate(context.Background(), localTime(4, 15, 0), WindowState{})
	assert.False(t, triggered)
	assert.False(t, next.Postponed)
}

func TestWindowPostponesOverHoliday(t *testing.T) {
	cal := &fakeCalendar{tradingDays: map[string]bool{
		"2025-03-05": false, // Wednesday holiday
		"2025-03-06": true,  // Thursday open
	}}
	checker := newChecker(cal)

	// Wednesday 15:00: holiday, postpone.
	triggered, state := checker.Evaluate(context.Background(), localTime(5, 15, 0), WindowState{})
	assert.False(t, triggered)
	assert.True(t, state.Postponed)

	// Thursday 09:00: before the gate.
	triggered, state = checker.Evaluate(context.Background(), localTime(6, 9, 0), state)
	assert.False(t, triggered)
	assert.True(t, state.Postponed)

	// Thursday 14:30: trading day, fire and reset.
	now := localTime(6, 14, 30)
	triggered, state = checker.Evaluate(context.Background(), now, state)
	assert.True(t, triggered)
	assert.False(t, state.Postponed)
	assert.Equal(t, now, state.LastCheck)
}

func TestWindowStaysPostponedWhileMarketClosed(t *testing.T) {
	checker := newChecker(&fakeCalendar{tradingDays: map[string]bool{}})
	state := WindowState{Postponed: true}
	triggered, next := checker.Evaluate(context.Background(), localTime(6, 15, 0), state)
	assert.False(t, triggered)
	assert.Equal(t, state, next)
}

func TestWindowCalendarErrorDelaysTrigger(t *testing.T) {
	checker := newChecker(&fakeCalendar{err: errors.New("feed down")})

	// Normal state on a Wednesday afternoon: the lookup failure counts
	// as a closed market, so the window postpones instead of firing.
	triggered, state := checker.Evaluate(context.Background(), localTime(5, 15, 0), WindowState{})
	assert.False(t, triggered)
	assert.True(t, state.Postponed)

	// And stays postponed while the lookup keeps failing.
	triggered, state = checker.Evaluate(context.Background(), localTime(6, 15, 0), state)
	assert.False(t, triggered)
	assert.True(t, state.Postponed)
}
