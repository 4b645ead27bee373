package portfolio

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Settings is the single-row portfolio state next to the assets: cash
// balance, free-text note, cached risk factor and the buy-window fields.
type Settings struct {
	Cash               decimal.Decimal
	Note               string
	RiskFactor         *float64
	BuyWindowPostponed bool
	BuyWindowLastCheck time.Time
}

// SettingsRepository handles the portfolio_settings row
type SettingsRepository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewSettingsRepository creates a new settings repository
func NewSettingsRepository(db *sql.DB, log zerolog.Logger) *SettingsRepository {
	return &SettingsRepository{
		db:  db,
		log: log.With().Str("repo", "settings").Logger(),
	}
}

// Get reads the settings row
func (r *SettingsRepository) Get() (Settings, error) {
	var (
		s          Settings
		cash       string
		note       sql.NullString
		riskFactor sql.NullFloat64
		postponed  int
		lastCheck  sql.NullInt64
	)

	err := r.db.QueryRow(`
		SELECT cash, note, risk_factor, buy_window_postponed, buy_window_last_check
		FROM portfolio_settings WHERE id = 1
	`).Scan(&cash, &note, &riskFactor, &postponed, &lastCheck)
	if err != nil {
		return Settings{}, fmt.Errorf("failed to read portfolio settings: %w", err)
	}

	if s.Cash, err = decimal.NewFromString(cash); err != nil {
		return Settings{}, fmt.Errorf("invalid cash value %q: %w", cash, err)
	}
	if note.Valid {
		s.Note = note.String
	}
	if riskFactor.Valid {
		v := riskFactor.Float64
		s.RiskFactor = &v
	}
	s.BuyWindowPostponed = postponed != 0
	if lastCheck.Valid {
		s.BuyWindowLastCheck = time.Unix(lastCheck.Int64, 0).UTC()
	}

	return s, nil
}

// UpdateCash sets the cash balance
func (r *SettingsRepository) UpdateCash(cash decimal.Decimal) error {
	if cash.IsNegative() {
		return fmt.Errorf("cash balance cannot be negative, got %s", cash)
	}
	_, err := r.db.Exec(`UPDATE portfolio_settings SET cash = ? WHERE id = 1`, cash.String())
	if err != nil {
		return fmt.Errorf("failed to update cash: %w", err)
	}
	return nil
}

// UpdateCashTx sets the cash balance within an existing transaction
func (r *SettingsRepository) UpdateCashTx(tx *sql.Tx, cash decimal.Decimal) error {
	if cash.IsNegative() {
		return fmt.Errorf("cash balance cannot be negative, got %s", cash)
	}
	_, err := tx.Exec(`UPDATE portfolio_settings SET cash = ? WHERE id = 1`, cash.String())
	if err != nil {
		return fmt.Errorf("failed to update cash: %w", err)
	}
	return nil
}

// UpdateNote sets the free-text note
func (r *SettingsRepository) UpdateNote(note string) error {
	_, err := r.db.Exec(`UPDATE portfolio_settings SET note = ? WHERE id = 1`, note)
	if err != nil {
		return fmt.Errorf("failed to update note: %w", err)
	}
	return nil
}

// UpdateRiskFactor caches the overall risk factor from the last analysis
func (r *SettingsRepository) UpdateRiskFactor(riskFactor float64) error {
	_, err := r.db.Exec(`UPDATE portfolio_settings SET risk_factor = ? WHERE id = 1`, riskFactor)
	if err != nil {
		return fmt.Errorf("failed to update risk factor: %w", err)
	}
	return nil
}

// UpdateBuyWindowTx persists the buy-window state within an existing
// transaction. The window state must be read-modify-written atomically
// with the opportunity generation that consumed it.
func (r *SettingsRepository) UpdateBuyWindowTx(tx *sql.Tx, postponed bool, lastCheck time.Time) error {
	postponedInt := 0
	if postponed {
		postponedInt = 1
	}

	var lastCheckVal interface{}
	if !lastCheck.IsZero() {
		lastCheckVal = lastCheck.Unix()
	}

	_, err := tx.Exec(`
		UPDATE portfolio_settings SET buy_window_postponed = ?, buy_window_last_check = ? WHERE id = 1
	`, postponedInt, lastCheckVal)
	if err != nil {
		return fmt.Errorf("failed to update buy window state: %w", err)
	}
	return nil
}
