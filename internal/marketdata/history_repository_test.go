package marketdata

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	testdb "github.com/akontos/rebalancer/internal/testing"
)

func newHistoryRepo(t *testing.T) (*HistoryRepository, func()) {
	t.Helper()
	db, cleanup := testdb.NewTestDB(t, "history")
	return NewHistoryRepository(db.Conn(), zerolog.Nop()), cleanup
}

func dayBar(day int, close float64) Bar {
	c := decimal.NewFromFloat(close)
	return Bar{
		Date:   time.Date(2025, 2, day, 0, 0, 0, 0, time.UTC),
		Open:   c,
		High:   c,
		Low:    c,
		Close:  c,
		Volume: 1000,
	}
}

func TestHistoryUpsertAndGet(t *testing.T) {
	repo, cleanup := newHistoryRepo(t)
	defer cleanup()

	bars := []Bar{dayBar(3, 10), dayBar(4, 11), dayBar(5, 12)}
	require.NoError(t, repo.UpsertBars("VWCE", bars))

	got, err := repo.GetBars("VWCE", time.Date(2025, 2, 5, 12, 0, 0, 0, time.UTC), 10)
	require.NoError(t, err)
	require.Len(t, got, 3)
	// Ascending by date.
	assert.True(t, got[0].Date.Before(got[1].Date))
	assert.True(t, got[1].Date.Before(got[2].Date))
	assert.True(t, got[2].Close.Equal(decimal.NewFromInt(12)))
}

func TestHistoryGetBarsHonorsEndAndCount(t *testing.T) {
	repo, cleanup := newHistoryRepo(t)
	defer cleanup()

	var bars []Bar
	for day := 1; day <= 10; day++ {
		bars = append(bars, dayBar(day, float64(day)))
	}
	require.NoError(t, repo.UpsertBars("X", bars))

	// End in the middle, limited count: the two most recent bars at or
	// before the end date.
	got, err := repo.GetBars("X", time.Date(2025, 2, 6, 0, 0, 0, 0, time.UTC), 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 5, got[0].Date.Day())
	assert.Equal(t, 6, got[1].Date.Day())
}

func TestHistoryUpsertReplacesSameDate(t *testing.T) {
	repo, cleanup := newHistoryRepo(t)
	defer cleanup()

	require.NoError(t, repo.UpsertBars("X", []Bar{dayBar(3, 10)}))
	require.NoError(t, repo.UpsertBars("X", []Bar{dayBar(3, 99)}))

	got, err := repo.GetBars("X", time.Date(2025, 2, 3, 0, 0, 0, 0, time.UTC), 5)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.True(t, got[0].Close.Equal(decimal.NewFromInt(99)))
}

func TestHistorySymbolsAreIsolated(t *testing.T) {
	repo, cleanup := newHistoryRepo(t)
	defer cleanup()

	require.NoError(t, repo.UpsertBars("A", []Bar{dayBar(3, 10)}))

	got, err := repo.GetBars("B", time.Date(2025, 2, 3, 0, 0, 0, 0, time.UTC), 5)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestHistorySyncState(t *testing.T) {
	repo, cleanup := newHistoryRepo(t)
	defer cleanup()

	synced, err := repo.LastSynced("X")
	require.NoError(t, err)
	assert.True(t, synced.IsZero())

	at := time.Date(2025, 2, 5, 16, 30, 0, 0, time.UTC)
	require.NoError(t, repo.SetLastSynced("X", at))

	synced, err = repo.LastSynced("X")
	require.NoError(t, err)
	assert.Equal(t, at.Unix(), synced.Unix())
}
