// Package portfolio holds the persisted portfolio state: assets, cash
// balance and the buy-opportunity-window bookkeeping.
package portfolio

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/akontos/rebalancer/internal/domain"
)

// AssetRepository handles asset database operations
type AssetRepository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewAssetRepository creates a new asset repository
func NewAssetRepository(db *sql.DB, log zerolog.Logger) *AssetRepository {
	return &AssetRepository{
		db:  db,
		log: log.With().Str("repo", "asset").Logger(),
	}
}

const assetColumns = `id, name, type, target_weight, code, shares, unit_value, last_update_time`

// GetAll returns all assets ordered by id, so iteration order is stable
// across storage reorderings.
func (r *AssetRepository) GetAll() ([]domain.Asset, error) {
	rows, err := r.db.Query(`SELECT ` + assetColumns + ` FROM assets ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query assets: %w", err)
	}
	defer rows.Close()

	var assets []domain.Asset
	for rows.Next() {
		asset, err := scanAsset(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan asset: %w", err)
		}
		assets = append(assets, asset)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating assets: %w", err)
	}

	return assets, nil
}

// GetByID returns a single asset, nil when it does not exist.
func (r *AssetRepository) GetByID(id string) (*domain.Asset, error) {
	row := r.db.QueryRow(`SELECT `+assetColumns+` FROM assets WHERE id = ?`, id)
	asset, err := scanAsset(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get asset %s: %w", id, err)
	}
	return &asset, nil
}

// Create inserts a new asset
func (r *AssetRepository) Create(asset domain.Asset) error {
	_, err := r.db.Exec(`
		INSERT INTO assets (id, name, type, target_weight, code, shares, unit_value, last_update_time)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, asset.ID, asset.Name, string(asset.Type), asset.TargetWeight,
		nullString(asset.Code), decimalToNull(asset.Shares), decimalToNull(asset.UnitValue),
		timeToNull(asset.LastUpdate))
	if err != nil {
		return fmt.Errorf("failed to create asset %s: %w", asset.ID, err)
	}

	r.log.Debug().Str("id", asset.ID).Str("name", asset.Name).Msg("Asset created")
	return nil
}

// Update replaces all user-editable fields of an asset
func (r *AssetRepository) Update(asset domain.Asset) error {
	res, err := r.db.Exec(`
		UPDATE assets
		SET name = ?, type = ?, target_weight = ?, code = ?, shares = ?, unit_value = ?, last_update_time = ?
		WHERE id = ?
	`, asset.Name, string(asset.Type), asset.TargetWeight,
		nullString(asset.Code), decimalToNull(asset.Shares), decimalToNull(asset.UnitValue),
		timeToNull(asset.LastUpdate), asset.ID)
	if err != nil {
		return fmt.Errorf("failed to update asset %s: %w", asset.ID, err)
	}

	affected, _ := res.RowsAffected()
	if affected == 0 {
		return fmt.Errorf("asset %s not found", asset.ID)
	}

	return nil
}

// UpdatePriceTx updates the unit value and last-update time within an
// existing transaction, keeping price and analysis writes atomic per asset.
func (r *AssetRepository) UpdatePriceTx(tx *sql.Tx, id string, unitValue decimal.Decimal, at time.Time) error {
	res, err := tx.Exec(`
		UPDATE assets SET unit_value = ?, last_update_time = ? WHERE id = ?
	`, unitValue.String(), at.Unix(), id)
	if err != nil {
		return fmt.Errorf("failed to update price for asset %s: %w", id, err)
	}

	affected, _ := res.RowsAffected()
	if affected == 0 {
		return fmt.Errorf("asset %s not found", id)
	}

	return nil
}

// UpdateShares sets the held quantity, used when a transaction executes
func (r *AssetRepository) UpdateShares(tx *sql.Tx, id string, shares decimal.Decimal) error {
	res, err := tx.Exec(`UPDATE assets SET shares = ? WHERE id = ?`, shares.String(), id)
	if err != nil {
		return fmt.Errorf("failed to update shares for asset %s: %w", id, err)
	}

	affected, _ := res.RowsAffected()
	if affected == 0 {
		return fmt.Errorf("asset %s not found", id)
	}

	return nil
}

// Delete removes an asset; the analysis row cascades via foreign key
func (r *AssetRepository) Delete(id string) error {
	res, err := r.db.Exec(`DELETE FROM assets WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete asset %s: %w", id, err)
	}

	affected, _ := res.RowsAffected()
	if affected == 0 {
		return fmt.Errorf("asset %s not found", id)
	}

	r.log.Debug().Str("id", id).Msg("Asset deleted")
	return nil
}

// scanner abstracts sql.Row and sql.Rows for scanAsset
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanAsset(s scanner) (domain.Asset, error) {
	var (
		asset             domain.Asset
		assetType         string
		code              sql.NullString
		shares, unitValue sql.NullString
		lastUpdate        sql.NullInt64
	)

	err := s.Scan(&asset.ID, &asset.Name, &assetType, &asset.TargetWeight,
		&code, &shares, &unitValue, &lastUpdate)
	if err != nil {
		return domain.Asset{}, err
	}

	asset.Type = domain.AssetType(assetType)
	if code.Valid {
		asset.Code = code.String
	}
	if shares.Valid {
		d, err := decimal.NewFromString(shares.String)
		if err != nil {
			return domain.Asset{}, fmt.Errorf("invalid shares value %q: %w", shares.String, err)
		}
		asset.Shares = &d
	}
	if unitValue.Valid {
		d, err := decimal.NewFromString(unitValue.String)
		if err != nil {
			return domain.Asset{}, fmt.Errorf("invalid unit value %q: %w", unitValue.String, err)
		}
		asset.UnitValue = &d
	}
	if lastUpdate.Valid {
		asset.LastUpdate = time.Unix(lastUpdate.Int64, 0).UTC()
	}

	return asset, nil
}

func nullString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func decimalToNull(d *decimal.Decimal) interface{} {
	if d == nil {
		return nil
	}
	return d.String()
}

func timeToNull(t time.Time) interface{} {
	if t.IsZero() {
		return nil
	}
	return t.Unix()
}
