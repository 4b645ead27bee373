// Package di provides dependency injection wiring and initialization.
package di

import (
	"github.com/akontos/rebalancer/internal/clients/eodhd"
	"github.com/akontos/rebalancer/internal/database"
	"github.com/akontos/rebalancer/internal/marketdata"
	"github.com/akontos/rebalancer/internal/modules/analysis"
	"github.com/akontos/rebalancer/internal/modules/opportunities"
	"github.com/akontos/rebalancer/internal/modules/portfolio"
	"github.com/akontos/rebalancer/internal/modules/trading"
	"github.com/akontos/rebalancer/internal/scheduler"
)

// Container holds all application dependencies. It is the single source
// of truth for service instances; the server reaches services only
// through it.
type Container struct {
	// Databases
	PortfolioDB *database.DB
	HistoryDB   *database.DB

	// Market data
	EODHDClient     *eodhd.Client
	HistoryRepo     *marketdata.HistoryRepository
	MarketData      marketdata.Provider
	StatsAggregator *marketdata.Aggregator

	// Repositories
	AssetRepo       *portfolio.AssetRepository
	SettingsRepo    *portfolio.SettingsRepository
	AnalysisRepo    *analysis.Repository
	OpportunityRepo *opportunities.Repository
	TransactionRepo *trading.TransactionRepository

	// Services
	PortfolioService     *portfolio.Service
	AnalysisService      *analysis.Service
	OpportunitiesService *opportunities.Service
	TradingService       *trading.Service

	// Handlers
	PortfolioHandler     *portfolio.Handler
	AnalysisHandler      *analysis.Handler
	OpportunitiesHandler *opportunities.Handler
	TradingHandler       *trading.Handler

	// Background jobs
	RefreshJob       *scheduler.RefreshJob
	OpportunitiesJob *scheduler.OpportunitiesJob
}

// Close closes every database the container owns.
func (c *Container) Close() {
	if c.PortfolioDB != nil {
		c.PortfolioDB.Close()
	}
	if c.HistoryDB != nil {
		c.HistoryDB.Close()
	}
}
