package trading

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/akontos/rebalancer/internal/domain"
)

// TransactionRepository persists executed trades in the portfolio
// database.
type TransactionRepository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewTransactionRepository creates a new transaction repository
func NewTransactionRepository(db *sql.DB, log zerolog.Logger) *TransactionRepository {
	return &TransactionRepository{
		db:  db,
		log: log.With().Str("repo", "transactions").Logger(),
	}
}

// GetAll returns every transaction, newest first.
func (r *TransactionRepository) GetAll() ([]domain.Transaction, error) {
	rows, err := r.db.Query(`
		SELECT id, asset_id, side, shares, price, fee, amount, created_at, reason
		FROM transactions
		ORDER BY created_at DESC, id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

	var result []domain.Transaction
	for rows.Next() {
		txn, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, txn)
	}
	return result, rows.Err()
}

// GetByID returns one transaction, or nil when it does not exist.
func (r *TransactionRepository) GetByID(id string) (*domain.Transaction, error) {
	row := r.db.QueryRow(`
		SELECT id, asset_id, side, shares, price, fee, amount, created_at, reason
		FROM transactions
		WHERE id = ?
	`, id)

	txn, err := scanTransaction(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &txn, nil
}

// InsertTx appends one transaction inside tx.
func (r *TransactionRepository) InsertTx(tx *sql.Tx, txn domain.Transaction) error {
	var reason interface{}
	if txn.Reason != "" {
		reason = txn.Reason
	}
	_, err := tx.Exec(`
		INSERT INTO transactions (id, asset_id, side, shares, price, fee, amount, created_at, reason)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, txn.ID, txn.AssetID, string(txn.Side), txn.Shares.String(), txn.Price.String(),
		txn.Fee.String(), txn.Amount.String(), txn.CreatedAt.Unix(), reason)
	if err != nil {
		return fmt.Errorf("failed to insert transaction %s: %w", txn.ID, err)
	}
	return nil
}

// UpdateReason rewrites the annotation on one transaction. Reports
// whether the record exists.
func (r *TransactionRepository) UpdateReason(id, reason string) (bool, error) {
	var value interface{}
	if reason != "" {
		value = reason
	}
	res, err := r.db.Exec(`UPDATE transactions SET reason = ? WHERE id = ?`, value, id)
	if err != nil {
		return false, fmt.Errorf("failed to update transaction %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Delete removes one transaction record. Reports whether a row was
// actually deleted.
func (r *TransactionRepository) Delete(id string) (bool, error) {
	res, err := r.db.Exec(`DELETE FROM transactions WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete transaction %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func scanTransaction(s interface{ Scan(...interface{}) error }) (domain.Transaction, error) {
	var txn domain.Transaction
	var assetID, reason sql.NullString
	var shares, price, fee, amount string
	var createdAt int64

	err := s.Scan(&txn.ID, &assetID, &txn.Side, &shares, &price, &fee, &amount, &createdAt, &reason)
	if err != nil {
		if err == sql.ErrNoRows {
			return txn, err
		}
		return txn, fmt.Errorf("failed to scan transaction: %w", err)
	}

	if assetID.Valid {
		txn.AssetID = &assetID.String
	}
	txn.Reason = reason.String
	if txn.Shares, err = decimal.NewFromString(shares); err != nil {
		return txn, fmt.Errorf("invalid shares for transaction %s: %w", txn.ID, err)
	}
	if txn.Price, err = decimal.NewFromString(price); err != nil {
		return txn, fmt.Errorf("invalid price for transaction %s: %w", txn.ID, err)
	}
	if txn.Fee, err = decimal.NewFromString(fee); err != nil {
		return txn, fmt.Errorf("invalid fee for transaction %s: %w", txn.ID, err)
	}
	if txn.Amount, err = decimal.NewFromString(amount); err != nil {
		return txn, fmt.Errorf("invalid amount for transaction %s: %w", txn.ID, err)
	}
	txn.CreatedAt = time.Unix(createdAt, 0).UTC()
	return txn, nil
}
