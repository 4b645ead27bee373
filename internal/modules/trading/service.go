// Package trading turns pending opportunities into recorded
// transactions and applies their effects to the portfolio.
package trading

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/akontos/rebalancer/internal/database"
	"github.com/akontos/rebalancer/internal/domain"
	"github.com/akontos/rebalancer/internal/modules/opportunities"
	"github.com/akontos/rebalancer/internal/modules/portfolio"
)

// Service executes trading opportunities. Execution is one transaction:
// record the trade, drop the opportunity, move the asset's shares and
// the cash balance together.
type Service struct {
	db            *sql.DB
	assets        *portfolio.AssetRepository
	settings      *portfolio.SettingsRepository
	opportunities *opportunities.Repository
	transactions  *TransactionRepository
	now           func() time.Time
	log           zerolog.Logger
}

// NewService creates a new trading service
func NewService(
	db *sql.DB,
	assets *portfolio.AssetRepository,
	settings *portfolio.SettingsRepository,
	opportunityRepo *opportunities.Repository,
	transactions *TransactionRepository,
	log zerolog.Logger,
) *Service {
	return &Service{
		db:            db,
		assets:        assets,
		settings:      settings,
		opportunities: opportunityRepo,
		transactions:  transactions,
		now:           time.Now,
		log:           log.With().Str("service", "trading").Logger(),
	}
}

// ExecuteOpportunity marks a pending opportunity as traded. The trade is
// assumed filled at the planned price. A buy spends the opportunity
// amount (shares plus fee); a sell credits the share proceeds net of the
// fee.
func (s *Service) ExecuteOpportunity(id string) (*domain.Transaction, error) {
	opp, err := s.opportunities.GetByID(id)
	if err != nil {
		return nil, err
	}
	if opp == nil {
		return nil, nil
	}
	if opp.AssetID == nil {
		return nil, fmt.Errorf("opportunity %s has no asset", id)
	}

	asset, err := s.assets.GetByID(*opp.AssetID)
	if err != nil {
		return nil, err
	}
	if asset == nil {
		return nil, fmt.Errorf("asset %s no longer exists", *opp.AssetID)
	}

	settings, err := s.settings.Get()
	if err != nil {
		return nil, err
	}

	var newShares, newCash decimal.Decimal
	switch opp.Side {
	case domain.TradeSideBuy:
		newShares = asset.HeldShares().Add(opp.Shares)
		newCash = settings.Cash.Sub(opp.Amount)
	case domain.TradeSideSell:
		newShares = asset.HeldShares().Sub(opp.Shares)
		proceeds := opp.Shares.Mul(opp.Price).Sub(opp.Fee)
		newCash = settings.Cash.Add(proceeds)
	default:
		return nil, fmt.Errorf("unknown trade side %q", opp.Side)
	}
	if newCash.IsNegative() {
		return nil, fmt.Errorf("executing opportunity %s would overdraw cash", id)
	}
	if newShares.IsNegative() {
		return nil, fmt.Errorf("executing opportunity %s would oversell %s", id, asset.ID)
	}

	txn := domain.Transaction{
		ID:        uuid.New().String(),
		AssetID:   opp.AssetID,
		Side:      opp.Side,
		Shares:    opp.Shares,
		Price:     opp.Price,
		Fee:       opp.Fee,
		Amount:    opp.Amount,
		CreatedAt: s.now(),
		Reason:    opp.Reason,
	}

	err = database.WithTransaction(s.db, func(tx *sql.Tx) error {
		if err := s.transactions.InsertTx(tx, txn); err != nil {
			return err
		}
		deleted, err := s.opportunities.DeleteTx(tx, id)
		if err != nil {
			return err
		}
		if !deleted {
			return fmt.Errorf("opportunity %s disappeared during execution", id)
		}
		if err := s.assets.UpdateShares(tx, asset.ID, newShares); err != nil {
			return err
		}
		return s.settings.UpdateCashTx(tx, newCash)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("opportunity", id).
		Str("asset", asset.ID).
		Str("side", string(opp.Side)).
		Str("shares", opp.Shares.String()).
		Str("amount", opp.Amount.String()).
		Msg("Opportunity executed")
	return &txn, nil
}

// List returns every recorded transaction, newest first.
func (s *Service) List() ([]domain.Transaction, error) {
	return s.transactions.GetAll()
}

// Get returns one transaction, nil when it does not exist.
func (s *Service) Get(id string) (*domain.Transaction, error) {
	return s.transactions.GetByID(id)
}

// UpdateReason replaces the free-form annotation on a recorded
// transaction. The financial fields are immutable once recorded.
func (s *Service) UpdateReason(id, reason string) (*domain.Transaction, error) {
	updated, err := s.transactions.UpdateReason(id, reason)
	if err != nil {
		return nil, err
	}
	if !updated {
		return nil, nil
	}
	return s.transactions.GetByID(id)
}

// DeleteRecord removes a transaction record. It does not reverse the
// trade's portfolio effects.
func (s *Service) DeleteRecord(id string) (bool, error) {
	return s.transactions.Delete(id)
}
