package analysis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akontos/rebalancer/internal/domain"
	"github.com/akontos/rebalancer/internal/marketdata"
	"github.com/akontos/rebalancer/internal/modules/portfolio"
	testdb "github.com/akontos/rebalancer/internal/testing"
)

type stubProvider struct {
	bars map[string][]marketdata.Bar
	errs map[string]error
}

func (p *stubProvider) History(_ context.Context, symbol string, _ time.Time, count int, _ marketdata.Frequency) ([]marketdata.Bar, error) {
	if err := p.errs[symbol]; err != nil {
		return nil, err
	}
	bars := p.bars[symbol]
	if count > len(bars) {
		count = len(bars)
	}
	return bars[len(bars)-count:], nil
}

func closes(values ...float64) []marketdata.Bar {
	bars := make([]marketdata.Bar, len(values))
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, v := range values {
		c := decimal.NewFromFloat(v)
		bars[i] = marketdata.Bar{Date: base.AddDate(0, 0, i), Open: c, High: c, Low: c, Close: c}
	}
	return bars
}

func newAnalysisFixture(t *testing.T, provider marketdata.Provider) (*Service, *portfolio.AssetRepository, *portfolio.SettingsRepository, func()) {
	t.Helper()
	db, cleanup := testdb.NewTestDB(t, "portfolio")
	log := zerolog.Nop()

	assets := portfolio.NewAssetRepository(db.Conn(), log)
	settings := portfolio.NewSettingsRepository(db.Conn(), log)
	repo := NewRepository(db.Conn(), log)
	agg := marketdata.NewAggregator(provider, log)
	service := NewService(db.Conn(), assets, settings, repo, agg, log)
	return service, assets, settings, cleanup
}

func createAsset(t *testing.T, assets *portfolio.AssetRepository, id, code string, targetWeight, shares float64) {
	t.Helper()
	s := decimal.NewFromFloat(shares)
	require.NoError(t, assets.Create(domain.Asset{
		ID: id, Name: id, Type: domain.AssetTypeExchange,
		TargetWeight: targetWeight, Code: code, Shares: &s,
	}))
}

func TestRefreshAllUpdatesPricesAndAnalysis(t *testing.T) {
	provider := &stubProvider{bars: map[string][]marketdata.Bar{
		"AAA.X": closes(10, 10.5, 11, 10.8, 10.9, 11.2, 11.1, 11.5),
	}}
	service, assets, settings, cleanup := newAnalysisFixture(t, provider)
	defer cleanup()

	createAsset(t, assets, "a", "AAA.X", 0.6, 100)
	require.NoError(t, settings.UpdateCash(decimal.NewFromInt(1000)))

	report, err := service.RefreshAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Succeeded)
	assert.Zero(t, report.Failed)

	// Price updated to the latest close.
	asset, err := assets.GetByID("a")
	require.NoError(t, err)
	require.NotNil(t, asset.UnitValue)
	assert.True(t, asset.UnitValue.Equal(decimal.NewFromFloat(11.5)))
	assert.False(t, asset.LastUpdate.IsZero())

	// Analysis row written with traces.
	row, err := service.GetByAsset("a")
	require.NoError(t, err)
	require.NotNil(t, row)
	assert.Greater(t, row.BuyFactor, 0.0)
	assert.NotEmpty(t, row.BuyFactorTrace)
	assert.NotEmpty(t, row.SellThresholdTrace)
	// 8 bars: 7-day return computable, 90-bar volatility is not.
	assert.NotNil(t, row.SevenDayReturn)
	assert.Nil(t, row.Volatility)

	// Overall risk factor cached in settings.
	got, err := settings.Get()
	require.NoError(t, err)
	assert.NotNil(t, got.RiskFactor)
}

func TestRefreshAllContinuesPastFailures(t *testing.T) {
	provider := &stubProvider{
		bars: map[string][]marketdata.Bar{"GOOD.X": closes(10, 11)},
		errs: map[string]error{"BAD.X": errors.New("provider down")},
	}
	service, assets, settings, cleanup := newAnalysisFixture(t, provider)
	defer cleanup()

	createAsset(t, assets, "bad", "BAD.X", 0.3, 10)
	createAsset(t, assets, "good", "GOOD.X", 0.3, 10)
	require.NoError(t, settings.UpdateCash(decimal.NewFromInt(100)))

	report, err := service.RefreshAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Succeeded)
	assert.Equal(t, 1, report.Failed)

	// The good asset still got its price.
	asset, err := assets.GetByID("good")
	require.NoError(t, err)
	require.NotNil(t, asset.UnitValue)
	assert.True(t, asset.UnitValue.Equal(decimal.NewFromInt(11)))

	// Both assets get analysis rows; the failed one has neutral stats.
	row, err := service.GetByAsset("bad")
	require.NoError(t, err)
	require.NotNil(t, row)
	assert.Nil(t, row.Volatility)
	assert.Nil(t, row.SevenDayReturn)
}

func TestRefreshAllSkipsAssetsWithoutCode(t *testing.T) {
	provider := &stubProvider{}
	service, assets, settings, cleanup := newAnalysisFixture(t, provider)
	defer cleanup()

	createAsset(t, assets, "manual", "", 0.5, 100)
	require.NoError(t, settings.UpdateCash(decimal.NewFromInt(100)))

	report, err := service.RefreshAll(context.Background())
	require.NoError(t, err)
	assert.Zero(t, report.Succeeded)
	assert.Zero(t, report.Failed)

	// Still analyzed against its current unit value.
	row, err := service.GetByAsset("manual")
	require.NoError(t, err)
	assert.NotNil(t, row)
}
