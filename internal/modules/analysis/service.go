// Package analysis computes per-asset statistics, buy factors and sell
// thresholds from daily price history and persists them for the
// opportunity calculators.
package analysis

import (
	"context"
	"database/sql"
	"time"

	"github.com/rs/zerolog"

	"github.com/akontos/rebalancer/internal/database"
	"github.com/akontos/rebalancer/internal/domain"
	"github.com/akontos/rebalancer/internal/marketdata"
	"github.com/akontos/rebalancer/internal/modules/portfolio"
)

// RefreshReport summarizes one refresh pass.
type RefreshReport struct {
	Succeeded  int     `json:"succeeded"`
	Failed     int     `json:"failed"`
	RiskFactor float64 `json:"risk_factor"`
}

// Service orchestrates the analysis refresh: fetch statistics per asset,
// update prices, recompute buy factors and sell thresholds, and persist
// everything.
type Service struct {
	db         *sql.DB
	assets     *portfolio.AssetRepository
	settings   *portfolio.SettingsRepository
	repo       *Repository
	aggregator *marketdata.Aggregator
	buyCfg     BuyFactorConfig
	sellCfg    SellThresholdConfig
	now        func() time.Time
	log        zerolog.Logger
}

// NewService creates a new analysis service
func NewService(
	db *sql.DB,
	assets *portfolio.AssetRepository,
	settings *portfolio.SettingsRepository,
	repo *Repository,
	aggregator *marketdata.Aggregator,
	log zerolog.Logger,
) *Service {
	return &Service{
		db:         db,
		assets:     assets,
		settings:   settings,
		repo:       repo,
		aggregator: aggregator,
		buyCfg:     DefaultBuyFactorConfig(),
		sellCfg:    DefaultSellThresholdConfig(),
		now:        time.Now,
		log:        log.With().Str("service", "analysis").Logger(),
	}
}

// RefreshAll runs a full analysis pass. It fetches price history for every
// asset with a market code, updates unit values from the latest close, then
// recomputes buy factors and sell thresholds against the refreshed
// portfolio and caches the overall risk factor. A fetch failure skips that
// asset and is counted in the report; it never aborts the pass.
func (s *Service) RefreshAll(ctx context.Context) (RefreshReport, error) {
	var report RefreshReport

	assets, err := s.assets.GetAll()
	if err != nil {
		return report, err
	}

	now := s.now()
	stats := make(map[string]*marketdata.Stats)
	for _, asset := range assets {
		if asset.Code == "" {
			continue
		}
		st, err := s.aggregator.Collect(ctx, asset.Code, now)
		if err != nil {
			s.log.Warn().Err(err).Str("asset", asset.ID).Str("code", asset.Code).
				Msg("Failed to collect market statistics")
			report.Failed++
			continue
		}
		if st == nil {
			s.log.Warn().Str("asset", asset.ID).Str("code", asset.Code).
				Msg("No price history available")
			report.Failed++
			continue
		}
		stats[asset.ID] = st
		report.Succeeded++

		err = database.WithTransaction(s.db, func(tx *sql.Tx) error {
			return s.assets.UpdatePriceTx(tx, asset.ID, st.LatestClose, now)
		})
		if err != nil {
			return report, err
		}
	}

	// Reload so the analytics see the refreshed prices.
	assets, err = s.assets.GetAll()
	if err != nil {
		return report, err
	}
	settings, err := s.settings.Get()
	if err != nil {
		return report, err
	}

	total := domain.Portfolio{Assets: assets, Cash: settings.Cash}.TotalValue()

	volatilities := make(map[string]*float64, len(stats))
	for id, st := range stats {
		volatilities[id] = st.Volatility
	}
	sell := CalculateSellThresholds(assets, settings.Cash, volatilities, s.sellCfg)
	report.RiskFactor = sell.OverallRiskFactor

	err = database.WithTransaction(s.db, func(tx *sql.Tx) error {
		for _, asset := range assets {
			var volatility, sevenDay *float64
			if st := stats[asset.ID]; st != nil {
				volatility = st.Volatility
				sevenDay = st.SevenDayReturn
			}
			buy := CalculateBuyFactor(asset, total, volatility, sevenDay, s.buyCfg)
			threshold := sell.Thresholds[asset.ID]

			row := AssetAnalysis{
				AssetID:            asset.ID,
				Volatility:         volatility,
				SevenDayReturn:     sevenDay,
				BuyFactor:          buy.BuyFactor,
				SellThreshold:      threshold.Threshold,
				RelativeOffset:     buy.RelativeOffset,
				OffsetFactor:       buy.OffsetFactor,
				DrawdownFactor:     buy.DrawdownFactor,
				PreVolatility:      buy.PreVolatility,
				AssetRisk:          sell.Risks[asset.ID],
				BuyFactorTrace:     buy.Trace,
				SellThresholdTrace: threshold.Trace + sell.RiskTrace,
				UpdatedAt:          now,
			}
			if err := s.repo.UpsertTx(tx, row); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return report, err
	}

	if err := s.settings.UpdateRiskFactor(sell.OverallRiskFactor); err != nil {
		return report, err
	}

	s.log.Info().
		Int("succeeded", report.Succeeded).
		Int("failed", report.Failed).
		Float64("risk_factor", report.RiskFactor).
		Msg("Analysis refresh complete")
	return report, nil
}

// GetAll returns every persisted analysis row keyed by asset id.
func (s *Service) GetAll() (map[string]AssetAnalysis, error) {
	return s.repo.GetAll()
}

// GetByAsset returns one asset's analysis row, nil when never analyzed.
func (s *Service) GetByAsset(assetID string) (*AssetAnalysis, error) {
	return s.repo.GetByAsset(assetID)
}
