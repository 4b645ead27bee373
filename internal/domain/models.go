// Package domain provides core domain models shared across modules.
package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// AssetType classifies how an asset is priced and traded
type AssetType string

const (
	// AssetTypeCashFund represents cash-equivalent funds (money market).
	// Their unit value defaults to 1.0 when not set.
	AssetTypeCashFund AssetType = "CASH_FUND"
	// AssetTypeOTCFund represents off-exchange funds priced once per day
	AssetTypeOTCFund AssetType = "OTC_FUND"
	// AssetTypeExchange represents exchange-traded securities
	AssetTypeExchange AssetType = "EXCHANGE"
)

// TradeSide is the direction of an opportunity or transaction
type TradeSide string

const (
	TradeSideBuy  TradeSide = "BUY"
	TradeSideSell TradeSide = "SELL"
)

// Asset is a held (or tracked) position with a target allocation weight.
// Shares and UnitValue are optional: an asset without either has zero
// market value, except cash funds whose unit value defaults to 1.0.
type Asset struct {
	ID           string           `json:"id"`
	Name         string           `json:"name"`
	Type         AssetType        `json:"type"`
	TargetWeight float64          `json:"target_weight"` // fraction 0-1 of total portfolio value
	Code         string           `json:"code,omitempty"` // market symbol, optional
	Shares       *decimal.Decimal `json:"shares,omitempty"`
	UnitValue    *decimal.Decimal `json:"unit_value,omitempty"`
	LastUpdate   time.Time        `json:"last_update_time"`
}

// EffectiveUnitValue returns the price per unit used for valuation.
// Cash funds default to 1.0 when no unit value is recorded.
func (a Asset) EffectiveUnitValue() decimal.Decimal {
	if a.UnitValue != nil {
		return *a.UnitValue
	}
	if a.Type == AssetTypeCashFund {
		return decimal.NewFromInt(1)
	}
	return decimal.Zero
}

// MarketValue returns shares x unit value, zero when shares are absent.
func (a Asset) MarketValue() decimal.Decimal {
	if a.Shares == nil {
		return decimal.Zero
	}
	unit := a.EffectiveUnitValue()
	if unit.IsZero() {
		return decimal.Zero
	}
	return a.Shares.Mul(unit)
}

// HeldShares returns the held quantity, zero when absent.
func (a Asset) HeldShares() decimal.Decimal {
	if a.Shares == nil {
		return decimal.Zero
	}
	return *a.Shares
}

// Portfolio is a snapshot of all assets plus the cash balance and the
// buy-opportunity-window bookkeeping persisted alongside it.
type Portfolio struct {
	Assets []Asset         `json:"assets"`
	Cash   decimal.Decimal `json:"cash"`
	Note   string          `json:"note,omitempty"`

	// RiskFactor is the cached overall risk factor from the last analysis
	// refresh; nil before the first refresh.
	RiskFactor *float64 `json:"risk_factor,omitempty"`

	BuyWindowPostponed bool      `json:"buy_window_postponed"`
	BuyWindowLastCheck time.Time `json:"buy_window_last_check"`
}

// TotalValue returns cash plus the sum of all asset market values.
func (p Portfolio) TotalValue() decimal.Decimal {
	total := p.Cash
	for _, a := range p.Assets {
		total = total.Add(a.MarketValue())
	}
	return total
}

// TradingOpportunity is an actionable buy/sell suggestion produced by the
// opportunity calculators. AssetID is a weak reference: the asset may be
// deleted later without cascading here.
type TradingOpportunity struct {
	ID        string          `json:"id"`
	AssetID   *string         `json:"asset_id,omitempty"`
	Side      TradeSide       `json:"side"`
	Shares    decimal.Decimal `json:"shares"`
	Price     decimal.Decimal `json:"price"`
	Fee       decimal.Decimal `json:"fee"`
	Amount    decimal.Decimal `json:"amount"` // trade amount plus fee
	CreatedAt time.Time       `json:"created_at"`
	Reason    string          `json:"reason"`
}

// Transaction is an executed (or manually recorded) trade. Its lifecycle
// is independent of any TradingOpportunity it originated from.
type Transaction struct {
	ID        string          `json:"id"`
	AssetID   *string         `json:"asset_id,omitempty"`
	Side      TradeSide       `json:"side"`
	Shares    decimal.Decimal `json:"shares"`
	Price     decimal.Decimal `json:"price"`
	Fee       decimal.Decimal `json:"fee"`
	Amount    decimal.Decimal `json:"amount"`
	CreatedAt time.Time       `json:"created_at"`
	Reason    string          `json:"reason,omitempty"`
}
