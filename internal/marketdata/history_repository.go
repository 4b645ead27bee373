package marketdata

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// HistoryRepository caches daily price bars in the history database so
// repeated lookups (refresh cycles, trading-day checks) do not refetch
// from the provider.
type HistoryRepository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewHistoryRepository creates a new history repository
func NewHistoryRepository(db *sql.DB, log zerolog.Logger) *HistoryRepository {
	return &HistoryRepository{
		db:  db,
		log: log.With().Str("repo", "history").Logger(),
	}
}

// UpsertBars stores daily bars for a symbol, replacing existing rows for
// the same date.
func (r *HistoryRepository) UpsertBars(symbol string, bars []Bar) error {
	if len(bars) == 0 {
		return nil
	}

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO daily_prices (symbol, date, open, high, low, close, volume)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (symbol, date) DO UPDATE SET
			open = excluded.open,
			high = excluded.high,
			low = excluded.low,
			close = excluded.close,
			volume = excluded.volume
	`)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("failed to prepare upsert: %w", err)
	}
	defer stmt.Close()

	for _, b := range bars {
		day := toUTCMidnight(b.Date)
		_, err := stmt.Exec(symbol, day.Unix(),
			b.Open.String(), b.High.String(), b.Low.String(), b.Close.String(), b.Volume)
		if err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to upsert bar for %s at %s: %w", symbol, day.Format("2006-01-02"), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit bars for %s: %w", symbol, err)
	}

	return nil
}

// GetBars returns up to count daily bars for a symbol ending at the end
// date (inclusive), ascending by date.
func (r *HistoryRepository) GetBars(symbol string, end time.Time, count int) ([]Bar, error) {
	if count <= 0 {
		return []Bar{}, nil
	}

	endUnix := toUTCMidnight(end).Unix()

	// Newest-first query limited to count, reversed into ascending order
	rows, err := r.db.Query(`
		SELECT date, open, high, low, close, volume
		FROM daily_prices
		WHERE symbol = ? AND date <= ?
		ORDER BY date DESC
		LIMIT ?
	`, symbol, endUnix, count)
	if err != nil {
		return nil, fmt.Errorf("failed to query daily prices: %w", err)
	}
	defer rows.Close()

	var descending []Bar
	for rows.Next() {
		var (
			dateUnix                int64
			open, high, low, closeS string
			volume                  sql.NullInt64
		)
		if err := rows.Scan(&dateUnix, &open, &high, &low, &closeS, &volume); err != nil {
			return nil, fmt.Errorf("failed to scan daily price: %w", err)
		}

		bar := Bar{Date: time.Unix(dateUnix, 0).UTC()}
		if bar.Open, err = decimal.NewFromString(open); err != nil {
			return nil, fmt.Errorf("invalid open price for %s: %w", symbol, err)
		}
		if bar.High, err = decimal.NewFromString(high); err != nil {
			return nil, fmt.Errorf("invalid high price for %s: %w", symbol, err)
		}
		if bar.Low, err = decimal.NewFromString(low); err != nil {
			return nil, fmt.Errorf("invalid low price for %s: %w", symbol, err)
		}
		if bar.Close, err = decimal.NewFromString(closeS); err != nil {
			return nil, fmt.Errorf("invalid close price for %s: %w", symbol, err)
		}
		if volume.Valid {
			bar.Volume = volume.Int64
		}

		descending = append(descending, bar)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating daily prices: %w", err)
	}

	ascending := make([]Bar, len(descending))
	for i, b := range descending {
		ascending[len(descending)-1-i] = b
	}

	return ascending, nil
}

// LastSynced returns when the symbol's history was last synced from the
// provider; the zero time when it never was.
func (r *HistoryRepository) LastSynced(symbol string) (time.Time, error) {
	var syncedAt int64
	err := r.db.QueryRow(`SELECT synced_at FROM sync_state WHERE symbol = ?`, symbol).Scan(&syncedAt)
	if err == sql.ErrNoRows {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to query sync state for %s: %w", symbol, err)
	}
	return time.Unix(syncedAt, 0).UTC(), nil
}

// SetLastSynced records a successful provider sync for the symbol
func (r *HistoryRepository) SetLastSynced(symbol string, at time.Time) error {
	_, err := r.db.Exec(`
		INSERT INTO sync_state (symbol, synced_at) VALUES (?, ?)
		ON CONFLICT (symbol) DO UPDATE SET synced_at = excluded.synced_at
	`, symbol, at.Unix())
	if err != nil {
		return fmt.Errorf("failed to record sync state for %s: %w", symbol, err)
	}
	return nil
}

func toUTCMidnight(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
