package scheduler

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/akontos/rebalancer/internal/modules/analysis"
	"github.com/akontos/rebalancer/internal/modules/opportunities"
)

const jobTimeout = 10 * time.Minute

// RefreshJob runs a full analysis refresh: fetch prices, recompute
// statistics and factors for every asset.
type RefreshJob struct {
	service *analysis.Service
	log     zerolog.Logger
}

// NewRefreshJob creates the market data refresh job
func NewRefreshJob(service *analysis.Service, log zerolog.Logger) *RefreshJob {
	return &RefreshJob{
		service: service,
		log:     log.With().Str("job", "refresh").Logger(),
	}
}

// Name returns the job identifier
func (j *RefreshJob) Name() string { return "market_data_refresh" }

// Run executes one refresh pass
func (j *RefreshJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	report, err := j.service.RefreshAll(ctx)
	if err != nil {
		return err
	}
	j.log.Info().
		Int("succeeded", report.Succeeded).
		Int("failed", report.Failed).
		Msg("Scheduled refresh finished")
	return nil
}

// OpportunitiesJob runs the periodic opportunity check, including the
// weekly buy-window evaluation.
type OpportunitiesJob struct {
	service *opportunities.Service
	log     zerolog.Logger
}

// NewOpportunitiesJob creates the opportunity check job
func NewOpportunitiesJob(service *opportunities.Service, log zerolog.Logger) *OpportunitiesJob {
	return &OpportunitiesJob{
		service: service,
		log:     log.With().Str("job", "opportunities").Logger(),
	}
}

// Name returns the job identifier
func (j *OpportunitiesJob) Name() string { return "opportunity_check" }

// Run executes one opportunity check
func (j *OpportunitiesJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	report, err := j.service.Check(ctx)
	if err != nil {
		return err
	}
	j.log.Info().
		Int("sells", report.SellOpportunities).
		Bool("buy", report.BuyOpportunity).
		Msg("Scheduled opportunity check finished")
	return nil
}
