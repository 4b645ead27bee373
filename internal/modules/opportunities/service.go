// Package opportunities generates trading opportunities from the current
// portfolio: sells for over-allocated assets on every check, and one buy
// for the most underweight asset when the weekly buy window opens.
package opportunities

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/akontos/rebalancer/internal/database"
	"github.com/akontos/rebalancer/internal/domain"
	"github.com/akontos/rebalancer/internal/modules/opportunities/calculators"
	"github.com/akontos/rebalancer/internal/modules/portfolio"
)

// CheckReport summarizes one opportunity check.
type CheckReport struct {
	SellOpportunities int  `json:"sell_opportunities"`
	BuyOpportunity    bool `json:"buy_opportunity"`
	WindowTriggered   bool `json:"window_triggered"`
}

// Service runs the opportunity check: recompute sells, evaluate the buy
// window and persist the results atomically. A mutex serializes
// overlapping invocations (periodic job vs manual trigger) so the window
// state is read-modify-written exactly once per check.
type Service struct {
	mu           sync.Mutex
	db           *sql.DB
	portfolioSvc *portfolio.Service
	settings     *portfolio.SettingsRepository
	repo         *Repository
	checker      *WindowChecker
	now          func() time.Time
	log          zerolog.Logger
}

// NewService creates a new opportunities service
func NewService(
	db *sql.DB,
	portfolioSvc *portfolio.Service,
	settings *portfolio.SettingsRepository,
	repo *Repository,
	checker *WindowChecker,
	log zerolog.Logger,
) *Service {
	return &Service{
		db:           db,
		portfolioSvc: portfolioSvc,
		settings:     settings,
		repo:         repo,
		checker:      checker,
		now:          time.Now,
		log:          log.With().Str("service", "opportunities").Logger(),
	}
}

// Check recomputes all opportunities from the current portfolio. Sell
// opportunities are regenerated on every check (they are a pure function
// of the snapshot); a buy opportunity is added only when the weekly
// window opens. Pending buys are left alone so a user can still act on
// them after the window has closed.
func (s *Service) Check(ctx context.Context) (CheckReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var report CheckReport

	snapshot, err := s.portfolioSvc.Snapshot()
	if err != nil {
		return report, err
	}

	now := s.now()
	sells := calculators.CalculateSellOpportunities(snapshot, now)
	report.SellOpportunities = len(sells)

	state := WindowState{
		Postponed: snapshot.BuyWindowPostponed,
		LastCheck: snapshot.BuyWindowLastCheck,
	}
	triggered, nextState := s.checker.Evaluate(ctx, now, state)
	report.WindowTriggered = triggered

	var buy *domain.TradingOpportunity
	if triggered {
		buy = calculators.CalculateBuyOpportunity(snapshot, now)
		report.BuyOpportunity = buy != nil
	}

	err = database.WithTransaction(s.db, func(tx *sql.Tx) error {
		if err := s.repo.DeleteBySideTx(tx, domain.TradeSideSell); err != nil {
			return err
		}
		for _, opp := range sells {
			if err := s.repo.InsertTx(tx, opp); err != nil {
				return err
			}
		}
		if buy != nil {
			if err := s.repo.InsertTx(tx, *buy); err != nil {
				return err
			}
		}
		if nextState != state || triggered {
			if err := s.settings.UpdateBuyWindowTx(tx, nextState.Postponed, nextState.LastCheck); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return report, err
	}

	s.log.Info().
		Int("sells", report.SellOpportunities).
		Bool("window_triggered", report.WindowTriggered).
		Bool("buy", report.BuyOpportunity).
		Msg("Opportunity check complete")
	return report, nil
}

// List returns every pending opportunity, newest first.
func (s *Service) List() ([]domain.TradingOpportunity, error) {
	return s.repo.GetAll()
}

// Discard removes a pending opportunity without trading. Reports whether
// it existed.
func (s *Service) Discard(id string) (bool, error) {
	var deleted bool
	err := database.WithTransaction(s.db, func(tx *sql.Tx) error {
		var err error
		deleted, err = s.repo.DeleteTx(tx, id)
		return err
	})
	return deleted, err
}
