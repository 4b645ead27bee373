package calculators

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/akontos/rebalancer/internal/domain"
)

// CalculateSellOpportunities scans the portfolio for over-allocated
// assets and plans a half-excess sell for each one that clears the
// deviation floor and the minimum order value. Each asset is judged
// independently, so one scan can emit several sells.
func CalculateSellOpportunities(p domain.Portfolio, now time.Time) []domain.TradingOpportunity {
	total := p.TotalValue()
	if !total.IsPositive() {
		return nil
	}

	var opportunities []domain.TradingOpportunity
	for _, asset := range p.Assets {
		held := asset.HeldShares()
		if !held.IsPositive() {
			continue
		}
		price := asset.EffectiveUnitValue()
		if !price.IsPositive() {
			continue
		}

		currentWeight, _ := asset.MarketValue().Div(total).Float64()
		deviation := currentWeight - asset.TargetWeight
		if deviation < MinSellDeviation {
			continue
		}

		// Sell half the excess.
		plannedAmount := total.Mul(decimal.NewFromFloat(deviation / 2))
		shares := roundUpToLot(plannedAmount.Div(price))
		if shares.GreaterThan(held) {
			// Full liquidation is allowed below lot size.
			shares = held
		}

		finalAmount := shares.Mul(price)
		if finalAmount.LessThan(MinAbsoluteAmount) {
			continue
		}

		assetID := asset.ID
		opportunities = append(opportunities, domain.TradingOpportunity{
			ID:        uuid.New().String(),
			AssetID:   &assetID,
			Side:      domain.TradeSideSell,
			Shares:    shares,
			Price:     price,
			Fee:       FixedFee,
			Amount:    finalAmount.Add(FixedFee),
			CreatedAt: now,
			Reason: fmt.Sprintf("over target: current %.2f%% vs target %.2f%% (deviation %.2f%%)",
				currentWeight*100, asset.TargetWeight*100, deviation*100),
		})
	}
	return opportunities
}
