package opportunities

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/akontos/rebalancer/internal/domain"
)

// Repository persists trading opportunities in the portfolio database.
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new opportunity repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "opportunities").Logger(),
	}
}

// GetAll returns every pending opportunity, newest first.
func (r *Repository) GetAll() ([]domain.TradingOpportunity, error) {
	rows, err := r.db.Query(`
		SELECT id, asset_id, side, shares, price, fee, amount, created_at, reason
		FROM trading_opportunities
		ORDER BY created_at DESC, id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query opportunities: %w", err)
	}
	defer rows.Close()

	var result []domain.TradingOpportunity
	for rows.Next() {
		opp, err := scanOpportunity(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, opp)
	}
	return result, rows.Err()
}

// GetByID returns one opportunity, or nil when it does not exist.
func (r *Repository) GetByID(id string) (*domain.TradingOpportunity, error) {
	row := r.db.QueryRow(`
		SELECT id, asset_id, side, shares, price, fee, amount, created_at, reason
		FROM trading_opportunities
		WHERE id = ?
	`, id)

	opp, err := scanOpportunity(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &opp, nil
}

// InsertTx appends one opportunity inside tx.
func (r *Repository) InsertTx(tx *sql.Tx, opp domain.TradingOpportunity) error {
	_, err := tx.Exec(`
		INSERT INTO trading_opportunities (id, asset_id, side, shares, price, fee, amount, created_at, reason)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, opp.ID, opp.AssetID, string(opp.Side), opp.Shares.String(), opp.Price.String(),
		opp.Fee.String(), opp.Amount.String(), opp.CreatedAt.Unix(), opp.Reason)
	if err != nil {
		return fmt.Errorf("failed to insert opportunity %s: %w", opp.ID, err)
	}
	return nil
}

// DeleteTx removes one opportunity inside tx. Reports whether a row was
// actually deleted.
func (r *Repository) DeleteTx(tx *sql.Tx, id string) (bool, error) {
	res, err := tx.Exec(`DELETE FROM trading_opportunities WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete opportunity %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// DeleteBySideTx clears every opportunity on one side inside tx.
func (r *Repository) DeleteBySideTx(tx *sql.Tx, side domain.TradeSide) error {
	_, err := tx.Exec(`DELETE FROM trading_opportunities WHERE side = ?`, string(side))
	if err != nil {
		return fmt.Errorf("failed to clear %s opportunities: %w", side, err)
	}
	return nil
}

func scanOpportunity(s interface{ Scan(...interface{}) error }) (domain.TradingOpportunity, error) {
	var opp domain.TradingOpportunity
	var assetID sql.NullString
	var shares, price, fee, amount string
	var createdAt int64

	err := s.Scan(&opp.ID, &assetID, &opp.Side, &shares, &price, &fee, &amount, &createdAt, &opp.Reason)
	if err != nil {
		if err == sql.ErrNoRows {
			return opp, err
		}
		return opp, fmt.Errorf("failed to scan opportunity: %w", err)
	}

	if assetID.Valid {
		opp.AssetID = &assetID.String
	}
	if opp.Shares, err = decimal.NewFromString(shares); err != nil {
		return opp, fmt.Errorf("invalid shares for opportunity %s: %w", opp.ID, err)
	}
	if opp.Price, err = decimal.NewFromString(price); err != nil {
		return opp, fmt.Errorf("invalid price for opportunity %s: %w", opp.ID, err)
	}
	if opp.Fee, err = decimal.NewFromString(fee); err != nil {
		return opp, fmt.Errorf("invalid fee for opportunity %s: %w", opp.ID, err)
	}
	if opp.Amount, err = decimal.NewFromString(amount); err != nil {
		return opp, fmt.Errorf("invalid amount for opportunity %s: %w", opp.ID, err)
	}
	opp.CreatedAt = time.Unix(createdAt, 0).UTC()
	return opp, nil
}
