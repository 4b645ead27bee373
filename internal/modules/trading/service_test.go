package trading

import (
	"database/sql"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akontos/rebalancer/internal/database"
	"github.com/akontos/rebalancer/internal/domain"
	"github.com/akontos/rebalancer/internal/modules/opportunities"
	"github.com/akontos/rebalancer/internal/modules/portfolio"
	testdb "github.com/akontos/rebalancer/internal/testing"
)

type fixture struct {
	service       *Service
	assets        *portfolio.AssetRepository
	settings      *portfolio.SettingsRepository
	opportunities *opportunities.Repository
	transactions  *TransactionRepository
	conn          *sql.DB
}

func newFixture(t *testing.T) (*fixture, func()) {
	t.Helper()
	db, cleanup := testdb.NewTestDB(t, "portfolio")
	log := zerolog.Nop()

	f := &fixture{
		assets:        portfolio.NewAssetRepository(db.Conn(), log),
		settings:      portfolio.NewSettingsRepository(db.Conn(), log),
		opportunities: opportunities.NewRepository(db.Conn(), log),
		transactions:  NewTransactionRepository(db.Conn(), log),
		conn:          db.Conn(),
	}
	f.service = NewService(db.Conn(), f.assets, f.settings, f.opportunities, f.transactions, log)
	return f, cleanup
}

func (f *fixture) seedAsset(t *testing.T, id string, shares, price int64) {
	t.Helper()
	s := decimal.NewFromInt(shares)
	p := decimal.NewFromInt(price)
	require.NoError(t, f.assets.Create(domain.Asset{
		ID: id, Name: id, Type: domain.AssetTypeExchange,
		TargetWeight: 0.5, Shares: &s, UnitValue: &p,
	}))
}

func (f *fixture) seedOpportunity(t *testing.T, opp domain.TradingOpportunity) {
	t.Helper()
	require.NoError(t, database.WithTransaction(f.conn, func(tx *sql.Tx) error {
		return f.opportunities.InsertTx(tx, opp)
	}))
}

func buyOpportunity(assetID string, shares, price, fee int64) domain.TradingOpportunity {
	sharesD := decimal.NewFromInt(shares)
	priceD := decimal.NewFromInt(price)
	feeD := decimal.NewFromInt(fee)
	return domain.TradingOpportunity{
		ID:        "opp-buy",
		AssetID:   &assetID,
		Side:      domain.TradeSideBuy,
		Shares:    sharesD,
		Price:     priceD,
		Fee:       feeD,
		Amount:    sharesD.Mul(priceD).Add(feeD),
		CreatedAt: time.Unix(1715000000, 0).UTC(),
		Reason:    "under target",
	}
}

func TestExecuteBuyOpportunity(t *testing.T) {
	f, cleanup := newFixture(t)
	defer cleanup()

	f.seedAsset(t, "a", 100, 10)
	require.NoError(t, f.settings.UpdateCash(decimal.NewFromInt(5000)))
	f.seedOpportunity(t, buyOpportunity("a", 100, 10, 5))

	txn, err := f.service.ExecuteOpportunity("opp-buy")
	require.NoError(t, err)
	require.NotNil(t, txn)
	assert.Equal(t, domain.TradeSideBuy, txn.Side)

	// Shares moved, cash spent including the fee.
	asset, err := f.assets.GetByID("a")
	require.NoError(t, err)
	assert.True(t, asset.HeldShares().Equal(decimal.NewFromInt(200)))

	settings, err := f.settings.Get()
	require.NoError(t, err)
	assert.True(t, settings.Cash.Equal(decimal.NewFromInt(3995)), "cash = %s", settings.Cash)

	// The opportunity is consumed.
	opp, err := f.opportunities.GetByID("opp-buy")
	require.NoError(t, err)
	assert.Nil(t, opp)

	// And the trade is recorded.
	recorded, err := f.transactions.GetAll()
	require.NoError(t, err)
	require.Len(t, recorded, 1)
	assert.True(t, recorded[0].Amount.Equal(decimal.NewFromInt(1005)))
}

func TestExecuteSellOpportunity(t *testing.T) {
	f, cleanup := newFixture(t)
	defer cleanup()

	f.seedAsset(t, "a", 500, 10)
	require.NoError(t, f.settings.UpdateCash(decimal.NewFromInt(100)))

	assetID := "a"
	shares := decimal.NewFromInt(100)
	price := decimal.NewFromInt(10)
	fee := decimal.NewFromInt(5)
	f.seedOpportunity(t, domain.TradingOpportunity{
		ID:      "opp-sell",
		AssetID: &assetID,
		Side:    domain.TradeSideSell,
		Shares:  shares,
		Price:   price,
		Fee:     fee,
		// Amount follows the planner's accounting (value plus fee).
		Amount:    shares.Mul(price).Add(fee),
		CreatedAt: time.Unix(1715000000, 0).UTC(),
	})

	txn, err := f.service.ExecuteOpportunity("opp-sell")
	require.NoError(t, err)
	require.NotNil(t, txn)

	asset, err := f.assets.GetByID("a")
	require.NoError(t, err)
	assert.True(t, asset.HeldShares().Equal(decimal.NewFromInt(400)))

	// Cash gains the proceeds net of the fee: 100 + 1000 - 5.
	settings, err := f.settings.Get()
	require.NoError(t, err)
	assert.True(t, settings.Cash.Equal(decimal.NewFromInt(1095)), "cash = %s", settings.Cash)
}

func TestExecuteUnknownOpportunity(t *testing.T) {
	f, cleanup := newFixture(t)
	defer cleanup()

	txn, err := f.service.ExecuteOpportunity("missing")
	require.NoError(t, err)
	assert.Nil(t, txn)
}

func TestExecuteBuyRejectedWhenCashShort(t *testing.T) {
	f, cleanup := newFixture(t)
	defer cleanup()

	f.seedAsset(t, "a", 100, 10)
	require.NoError(t, f.settings.UpdateCash(decimal.NewFromInt(500)))
	f.seedOpportunity(t, buyOpportunity("a", 100, 10, 5))

	_, err := f.service.ExecuteOpportunity("opp-buy")
	require.Error(t, err)

	// Nothing changed.
	asset, getErr := f.assets.GetByID("a")
	require.NoError(t, getErr)
	assert.True(t, asset.HeldShares().Equal(decimal.NewFromInt(100)))
	opp, getErr := f.opportunities.GetByID("opp-buy")
	require.NoError(t, getErr)
	assert.NotNil(t, opp)
}

func TestExecuteSellRejectedWhenOverselling(t *testing.T) {
	f, cleanup := newFixture(t)
	defer cleanup()

	f.seedAsset(t, "a", 50, 10)
	require.NoError(t, f.settings.UpdateCash(decimal.NewFromInt(100)))

	assetID := "a"
	f.seedOpportunity(t, domain.TradingOpportunity{
		ID:        "opp-sell",
		AssetID:   &assetID,
		Side:      domain.TradeSideSell,
		Shares:    decimal.NewFromInt(100),
		Price:     decimal.NewFromInt(10),
		Fee:       decimal.NewFromInt(5),
		Amount:    decimal.NewFromInt(1005),
		CreatedAt: time.Unix(1715000000, 0).UTC(),
	})

	_, err := f.service.ExecuteOpportunity("opp-sell")
	require.Error(t, err)
}

func TestDeleteTransactionRecord(t *testing.T) {
	f, cleanup := newFixture(t)
	defer cleanup()

	f.seedAsset(t, "a", 100, 10)
	require.NoError(t, f.settings.UpdateCash(decimal.NewFromInt(5000)))
	f.seedOpportunity(t, buyOpportunity("a", 100, 10, 5))

	txn, err := f.service.ExecuteOpportunity("opp-buy")
	require.NoError(t, err)
	require.NotNil(t, txn)

	deleted, err := f.service.DeleteRecord(txn.ID)
	require.NoError(t, err)
	assert.True(t, deleted)

	// Deleting the record does not restore cash or shares.
	settings, err := f.settings.Get()
	require.NoError(t, err)
	assert.True(t, settings.Cash.Equal(decimal.NewFromInt(3995)))
}

func TestUpdateTransactionReason(t *testing.T) {
	f, cleanup := newFixture(t)
	defer cleanup()

	f.seedAsset(t, "a", 100, 10)
	require.NoError(t, f.settings.UpdateCash(decimal.NewFromInt(5000)))
	f.seedOpportunity(t, buyOpportunity("a", 100, 10, 5))

	txn, err := f.service.ExecuteOpportunity("opp-buy")
	require.NoError(t, err)
	require.NotNil(t, txn)

	updated, err := f.service.UpdateReason(txn.ID, "rebalanced after deposit")
	require.NoError(t, err)
	require.NotNil(t, updated)
	assert.Equal(t, "rebalanced after deposit", updated.Reason)

	// Financial fields stay as recorded.
	assert.True(t, updated.Amount.Equal(txn.Amount))
	assert.True(t, updated.Shares.Equal(txn.Shares))

	missing, err := f.service.UpdateReason("nope", "x")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestExecuteRejectedWhenAssetDeleted(t *testing.T) {
	f, cleanup := newFixture(t)
	defer cleanup()

	f.seedAsset(t, "a", 100, 10)
	require.NoError(t, f.settings.UpdateCash(decimal.NewFromInt(5000)))
	f.seedOpportunity(t, buyOpportunity("a", 100, 10, 5))
	require.NoError(t, f.assets.Delete("a"))

	txn, err := f.service.ExecuteOpportunity("opp-buy")
	require.Error(t, err)
	assert.Nil(t, txn)
	assert.Contains(t, err.Error(), "no longer exists")

	// The opportunity stays pending and cash is untouched.
	opp, getErr := f.opportunities.GetByID("opp-buy")
	require.NoError(t, getErr)
	assert.NotNil(t, opp)
	settings, getErr := f.settings.Get()
	require.NoError(t, getErr)
	assert.True(t, settings.Cash.Equal(decimal.NewFromInt(5000)))
}
