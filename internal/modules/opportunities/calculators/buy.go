package calculators

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/akontos/rebalancer/internal/domain"
)

// CalculateBuyOpportunity plans at most one buy: the single most
// underweight asset, sized from available cash. Large cash piles are
// amortized over weekly windows rather than deployed at once. Returns
// nil when no actionable buy exists.
func CalculateBuyOpportunity(p domain.Portfolio, now time.Time) *domain.TradingOpportunity {
	total := p.TotalValue()
	if !total.IsPositive() {
		return nil
	}

	var target *domain.Asset
	var targetDeviation float64
	for i := range p.Assets {
		asset := &p.Assets[i]
		currentWeight, _ := asset.MarketValue().Div(total).Float64()
		deviation := currentWeight - asset.TargetWeight
		if target == nil || deviation < targetDeviation {
			target = asset
			targetDeviation = deviation
		}
	}
	if target == nil || targetDeviation > 0 {
		return nil
	}

	price := target.EffectiveUnitValue()
	if !price.IsPositive() {
		return nil
	}

	pending := p.Cash
	minSingle := total.Mul(decimal.NewFromFloat(MinSingleInvestmentFraction))
	weeks := decimal.NewFromInt(AmortizationWeeks)

	var amountPlan decimal.Decimal
	switch {
	case pending.GreaterThan(minSingle.Mul(weeks)):
		amountPlan = pending.Div(weeks)
	case pending.GreaterThanOrEqual(minSingle):
		amountPlan = minSingle
	default:
		amountPlan = pending
	}

	shares := roundDownToLot(amountPlan.Div(price))
	if shares.IsZero() {
		shares = LotSize
	}

	finalAmount := shares.Mul(price)
	amount := finalAmount.Add(FixedFee)
	if amount.GreaterThan(pending) || finalAmount.LessThan(MinAbsoluteAmount) {
		return nil
	}

	assetID := target.ID
	return &domain.TradingOpportunity{
		ID:        uuid.New().String(),
		AssetID:   &assetID,
		Side:      domain.TradeSideBuy,
		Shares:    shares,
		Price:     price,
		Fee:       FixedFee,
		Amount:    amount,
		CreatedAt: now,
		Reason: fmt.Sprintf("under target by %.2f%%: planned %s of cash %s",
			-targetDeviation*100, amountPlan.StringFixed(2), pending.StringFixed(2)),
	}
}
