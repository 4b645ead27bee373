package analysis

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// Repository persists asset analysis rows in the portfolio database.
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new analysis repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "analysis").Logger(),
	}
}

// GetAll returns the analysis rows for every asset, keyed by asset id.
func (r *Repository) GetAll() (map[string]AssetAnalysis, error) {
	rows, err := r.db.Query(`
		SELECT asset_id, volatility, seven_day_return, buy_factor, sell_threshold,
		       relative_offset, offset_factor, drawdown_factor, pre_volatility_buy_factor,
		       asset_risk, buy_factor_trace, sell_threshold_trace, updated_at
		FROM asset_analysis
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query asset analysis: %w", err)
	}
	defer rows.Close()

	result := make(map[string]AssetAnalysis)
	for rows.Next() {
		a, err := scanAnalysis(rows)
		if err != nil {
			return nil, err
		}
		result[a.AssetID] = a
	}
	return result, rows.Err()
}

// GetByAsset returns one asset's analysis row, or nil when the asset has
// never been analyzed.
func (r *Repository) GetByAsset(assetID string) (*AssetAnalysis, error) {
	row := r.db.QueryRow(`
		SELECT asset_id, volatility, seven_day_return, buy_factor, sell_threshold,
		       relative_offset, offset_factor, drawdown_factor, pre_volatility_buy_factor,
		       asset_risk, buy_factor_trace, sell_threshold_trace, updated_at
		FROM asset_analysis
		WHERE asset_id = ?
	`, assetID)

	a, err := scanAnalysis(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// UpsertTx inserts or replaces one asset's analysis row inside tx.
func (r *Repository) UpsertTx(tx *sql.Tx, a AssetAnalysis) error {
	_, err := tx.Exec(`
		INSERT INTO asset_analysis (
			asset_id, volatility, seven_day_return, buy_factor, sell_threshold,
			relative_offset, offset_factor, drawdown_factor, pre_volatility_buy_factor,
			asset_risk, buy_factor_trace, sell_threshold_trace, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (asset_id) DO UPDATE SET
			volatility = excluded.volatility,
			seven_day_return = excluded.seven_day_return,
			buy_factor = excluded.buy_factor,
			sell_threshold = excluded.sell_threshold,
			relative_offset = excluded.relative_offset,
			offset_factor = excluded.offset_factor,
			drawdown_factor = excluded.drawdown_factor,
			pre_volatility_buy_factor = excluded.pre_volatility_buy_factor,
			asset_risk = excluded.asset_risk,
			buy_factor_trace = excluded.buy_factor_trace,
			sell_threshold_trace = excluded.sell_threshold_trace,
			updated_at = excluded.updated_at
	`, a.AssetID, a.Volatility, a.SevenDayReturn, a.BuyFactor, a.SellThreshold,
		a.RelativeOffset, a.OffsetFactor, a.DrawdownFactor, a.PreVolatility,
		a.AssetRisk, a.BuyFactorTrace, a.SellThresholdTrace, a.UpdatedAt.Unix())
	if err != nil {
		return fmt.Errorf("failed to upsert analysis for asset %s: %w", a.AssetID, err)
	}
	return nil
}

// Delete removes one asset's analysis row. Missing rows are not an error.
func (r *Repository) Delete(assetID string) error {
	_, err := r.db.Exec(`DELETE FROM asset_analysis WHERE asset_id = ?`, assetID)
	if err != nil {
		return fmt.Errorf("failed to delete analysis for asset %s: %w", assetID, err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanAnalysis(s rowScanner) (AssetAnalysis, error) {
	var a AssetAnalysis
	var updatedAt int64
	err := s.Scan(
		&a.AssetID, &a.Volatility, &a.SevenDayReturn, &a.BuyFactor, &a.SellThreshold,
		&a.RelativeOffset, &a.OffsetFactor, &a.DrawdownFactor, &a.PreVolatility,
		&a.AssetRisk, &a.BuyFactorTrace, &a.SellThresholdTrace, &updatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return a, err
		}
		return a, fmt.Errorf("failed to scan analysis row: %w", err)
	}
	a.UpdatedAt = time.Unix(updatedAt, 0).UTC()
	return a, nil
}
