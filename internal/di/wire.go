package di

import (
	"fmt"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/akontos/rebalancer/internal/clients/eodhd"
	"github.com/akontos/rebalancer/internal/config"
	"github.com/akontos/rebalancer/internal/database"
	"github.com/akontos/rebalancer/internal/marketdata"
	"github.com/akontos/rebalancer/internal/modules/analysis"
	"github.com/akontos/rebalancer/internal/modules/opportunities"
	"github.com/akontos/rebalancer/internal/modules/portfolio"
	"github.com/akontos/rebalancer/internal/modules/trading"
	"github.com/akontos/rebalancer/internal/scheduler"
)

// Wire initializes all dependencies and returns a fully configured
// container. Order of operations: databases, market data, repositories,
// services, handlers, jobs.
func Wire(cfg *config.Config, log zerolog.Logger) (*Container, error) {
	c := &Container{}

	var err error
	c.PortfolioDB, err = database.New(database.Config{
		Path:    filepath.Join(cfg.DataDir, "portfolio.db"),
		Profile: database.ProfileStandard,
		Name:    "portfolio",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open portfolio database: %w", err)
	}
	c.HistoryDB, err = database.New(database.Config{
		Path:    filepath.Join(cfg.DataDir, "history.db"),
		Profile: database.ProfileCache,
		Name:    "history",
	})
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}

	for _, db := range []*database.DB{c.PortfolioDB, c.HistoryDB} {
		if err := db.Migrate(); err != nil {
			c.Close()
			return nil, fmt.Errorf("failed to migrate %s database: %w", db.Name(), err)
		}
	}

	// Market data: remote EODHD client behind the daily-bar cache.
	c.EODHDClient = eodhd.New(cfg.EODHDBaseURL, cfg.EODHDToken, log)
	c.HistoryRepo = marketdata.NewHistoryRepository(c.HistoryDB.Conn(), log)
	c.MarketData = marketdata.NewCachingProvider(c.EODHDClient, c.HistoryRepo, log)
	c.StatsAggregator = marketdata.NewAggregator(c.MarketData, log)

	// Repositories
	c.AssetRepo = portfolio.NewAssetRepository(c.PortfolioDB.Conn(), log)
	c.SettingsRepo = portfolio.NewSettingsRepository(c.PortfolioDB.Conn(), log)
	c.AnalysisRepo = analysis.NewRepository(c.PortfolioDB.Conn(), log)
	c.OpportunityRepo = opportunities.NewRepository(c.PortfolioDB.Conn(), log)
	c.TransactionRepo = trading.NewTransactionRepository(c.PortfolioDB.Conn(), log)

	// Services
	c.PortfolioService = portfolio.NewService(c.AssetRepo, c.SettingsRepo, log)
	c.AnalysisService = analysis.NewService(
		c.PortfolioDB.Conn(), c.AssetRepo, c.SettingsRepo, c.AnalysisRepo, c.StatsAggregator, log)

	calendar := opportunities.NewIndexCalendar(c.MarketData, cfg.MarketIndexSymbol, log)
	checker := opportunities.NewWindowChecker(calendar, log)
	c.OpportunitiesService = opportunities.NewService(
		c.PortfolioDB.Conn(), c.PortfolioService, c.SettingsRepo, c.OpportunityRepo, checker, log)

	c.TradingService = trading.NewService(
		c.PortfolioDB.Conn(), c.AssetRepo, c.SettingsRepo, c.OpportunityRepo, c.TransactionRepo, log)

	// Handlers
	c.PortfolioHandler = portfolio.NewHandler(c.PortfolioService, c.AssetRepo, log)
	c.AnalysisHandler = analysis.NewHandler(c.AnalysisService, log)
	c.OpportunitiesHandler = opportunities.NewHandler(c.OpportunitiesService, log)
	c.TradingHandler = trading.NewHandler(c.TradingService, log)

	// Background jobs
	c.RefreshJob = scheduler.NewRefreshJob(c.AnalysisService, log)
	c.OpportunitiesJob = scheduler.NewOpportunitiesJob(c.OpportunitiesService, log)

	return c, nil
}

// RegisterJobs schedules the periodic jobs on sched. An interval of 0
// leaves that job manual-only.
func RegisterJobs(c *Container, cfg *config.Config, sched *scheduler.Scheduler) error {
	if cfg.RefreshIntervalMinutes > 0 {
		schedule := fmt.Sprintf("@every %dm", cfg.RefreshIntervalMinutes)
		if err := sched.AddJob(schedule, c.RefreshJob); err != nil {
			return fmt.Errorf("failed to register refresh job: %w", err)
		}
	}
	if cfg.CheckIntervalMinutes > 0 {
		schedule := fmt.Sprintf("@every %dm", cfg.CheckIntervalMinutes)
		if err := sched.AddJob(schedule, c.OpportunitiesJob); err != nil {
			return fmt.Errorf("failed to register opportunity job: %w", err)
		}
	}
	return nil
}
