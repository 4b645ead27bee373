package opportunities

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akontos/rebalancer/internal/domain"
	"github.com/akontos/rebalancer/internal/modules/portfolio"
	testdb "github.com/akontos/rebalancer/internal/testing"
)

type serviceFixture struct {
	service  *Service
	assets   *portfolio.AssetRepository
	settings *portfolio.SettingsRepository
	conn     *sql.DB
	calendar *fakeCalendar
}

func newServiceFixture(t *testing.T) (*serviceFixture, func()) {
	t.Helper()
	db, cleanup := testdb.NewTestDB(t, "portfolio")
	log := zerolog.Nop()

	assets := portfolio.NewAssetRepository(db.Conn(), log)
	settings := portfolio.NewSettingsRepository(db.Conn(), log)
	portfolioSvc := portfolio.NewService(assets, settings, log)
	repo := NewRepository(db.Conn(), log)
	calendar := &fakeCalendar{tradingDays: map[string]bool{}}
	checker := NewWindowChecker(calendar, log)

	service := NewService(db.Conn(), portfolioSvc, settings, repo, checker, log)
	return &serviceFixture{
		service:  service,
		assets:   assets,
		settings: settings,
		conn:     db.Conn(),
		calendar: calendar,
	}, cleanup
}

func seedOverweightAsset(t *testing.T, f *serviceFixture) {
	t.Helper()
	shares := decimal.NewFromInt(500)
	price := decimal.NewFromInt(10)
	require.NoError(t, f.assets.Create(domain.Asset{
		ID: "over", Name: "Over", Type: domain.AssetTypeExchange,
		TargetWeight: 0.04, Shares: &shares, UnitValue: &price,
	}))
	big := decimal.NewFromInt(900)
	bigPrice := decimal.NewFromInt(100)
	require.NoError(t, f.assets.Create(domain.Asset{
		ID: "rest", Name: "Rest", Type: domain.AssetTypeExchange,
		TargetWeight: 0.90, Shares: &big, UnitValue: &bigPrice,
	}))
	require.NoError(t, f.settings.UpdateCash(decimal.NewFromInt(5000)))
}

func TestCheckGeneratesSellOpportunities(t *testing.T) {
	f, cleanup := newServiceFixture(t)
	defer cleanup()
	seedOverweightAsset(t, f)

	// Monday morning: the buy window stays closed.
	f.service.now = func() time.Time { return time.Date(2025, 3, 3, 10, 0, 0, 0, time.Local) }

	report, err := f.service.Check(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.SellOpportunities)
	assert.False(t, report.WindowTriggered)
	assert.False(t, report.BuyOpportunity)

	opps, err := f.service.List()
	require.NoError(t, err)
	require.Len(t, opps, 1)
	assert.Equal(t, domain.TradeSideSell, opps[0].Side)
	assert.True(t, opps[0].Amount.Equal(decimal.NewFromInt(1005)))
}

func TestCheckRegeneratesSellsInsteadOfAccumulating(t *testing.T) {
	f, cleanup := newServiceFixture(t)
	defer cleanup()
	seedOverweightAsset(t, f)
	f.service.now = func() time.Time { return time.Date(2025, 3, 3, 10, 0, 0, 0, time.Local) }

	for i := 0; i < 3; i++ {
		_, err := f.service.Check(context.Background())
		require.NoError(t, err)
	}

	opps, err := f.service.List()
	require.NoError(t, err)
	assert.Len(t, opps, 1)
}

func TestCheckBuyWindowTriggerPersistsState(t *testing.T) {
	f, cleanup := newServiceFixture(t)
	defer cleanup()

	// Underweight asset plus plenty of cash.
	shares := decimal.NewFromInt(120000)
	price := decimal.NewFromInt(1)
	require.NoError(t, f.assets.Create(domain.Asset{
		ID: "under", Name: "Under", Type: domain.AssetTypeExchange,
		TargetWeight: 0.90, Shares: &shares, UnitValue: &price,
	}))
	require.NoError(t, f.settings.UpdateCash(decimal.NewFromInt(30000)))

	// Wednesday 2025-03-05 15:00, market open.
	now := time.Date(2025, 3, 5, 15, 0, 0, 0, time.Local)
	f.calendar.tradingDays[now.Format("2006-01-02")] = true
	f.service.now = func() time.Time { return now }

	report, err := f.service.Check(context.Background())
	require.NoError(t, err)
	assert.True(t, report.WindowTriggered)
	assert.True(t, report.BuyOpportunity)

	settings, err := f.settings.Get()
	require.NoError(t, err)
	assert.False(t, settings.BuyWindowPostponed)
	assert.Equal(t, now.Unix(), settings.BuyWindowLastCheck.Unix())

	// Same afternoon again: no second trigger, the buy stays pending.
	later := now.Add(time.Hour)
	f.service.now = func() time.Time { return later }
	report, err = f.service.Check(context.Background())
	require.NoError(t, err)
	assert.False(t, report.WindowTriggered)

	opps, err := f.service.List()
	require.NoError(t, err)
	buys := 0
	for _, opp := range opps {
		if opp.Side == domain.TradeSideBuy {
			buys++
		}
	}
	assert.Equal(t, 1, buys)
}

func TestCheckPostponesOnHoliday(t *testing.T) {
	f, cleanup := newServiceFixture(t)
	defer cleanup()
	seedOverweightAsset(t, f)

	// Wednesday 15:00 but the market is closed.
	now := time.Date(2025, 3, 5, 15, 0, 0, 0, time.Local)
	f.service.now = func() time.Time { return now }

	report, err := f.service.Check(context.Background())
	require.NoError(t, err)
	assert.False(t, report.WindowTriggered)

	settings, err := f.settings.Get()
	require.NoError(t, err)
	assert.True(t, settings.BuyWindowPostponed)
}

func TestDiscardOpportunity(t *testing.T) {
	f, cleanup := newServiceFixture(t)
	defer cleanup()
	seedOverweightAsset(t, f)
	f.service.now = func() time.Time { return time.Date(2025, 3, 3, 10, 0, 0, 0, time.Local) }

	_, err := f.service.Check(context.Background())
	require.NoError(t, err)

	opps, err := f.service.List()
	require.NoError(t, err)
	require.Len(t, opps, 1)

	deleted, err := f.service.Discard(opps[0].ID)
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = f.service.Discard(opps[0].ID)
	require.NoError(t, err)
	assert.False(t, deleted)
}
