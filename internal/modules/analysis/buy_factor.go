// Package analysis computes per-asset allocation analytics: the buy
// attractiveness factor and the sell trigger threshold, with the
// intermediate terms and human-readable computation traces kept for
// audit and display.
package analysis

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/akontos/rebalancer/internal/domain"
)

// BuyFactorConfig holds the tunable constants of the buy factor formula.
type BuyFactorConfig struct {
	// HalfSaturationOffset is the relative offset at which the offset
	// factor reaches 0.5.
	HalfSaturationOffset float64
	// HalfSaturationDrawdown is the 7-day drawdown at which the drawdown
	// factor reaches 0.5.
	HalfSaturationDrawdown float64
	// BlendWeight is the weight of the offset factor in the blend; the
	// drawdown factor gets the complement.
	BlendWeight float64
	// VolatilityWeight scales how strongly volatility discounts the
	// blended factor.
	VolatilityWeight float64
}

// DefaultBuyFactorConfig returns the standard constants
func DefaultBuyFactorConfig() BuyFactorConfig {
	return BuyFactorConfig{
		HalfSaturationOffset:   0.10,
		HalfSaturationDrawdown: 0.05,
		BlendWeight:            0.8,
		VolatilityWeight:       0.5,
	}
}

// BuyFactorResult carries the buy factor with every intermediate term
// and the computation trace.
type BuyFactorResult struct {
	CurrentWeight  float64 `json:"current_weight"`
	RelativeOffset float64 `json:"relative_offset"`
	OffsetFactor   float64 `json:"offset_factor"`
	Drawdown       float64 `json:"drawdown"`
	DrawdownFactor float64 `json:"drawdown_factor"`
	PreVolatility  float64 `json:"pre_volatility_buy_factor"`
	BuyFactor      float64 `json:"buy_factor"`
	Trace          string  `json:"trace"`
}

// CalculateBuyFactor computes the buy attractiveness score for one asset.
// It is total: degenerate inputs (non-positive target weight or total
// value) produce a zeroed result with a diagnostic trace, never an error.
// Missing volatility is treated as 0; missing 7-day return as 0.
func CalculateBuyFactor(asset domain.Asset, totalValue decimal.Decimal, volatility, sevenDayReturn *float64, cfg BuyFactorConfig) BuyFactorResult {
	var trace strings.Builder

	if asset.TargetWeight <= 0 || !totalValue.IsPositive() {
		fmt.Fprintf(&trace, "not computable: targetWeight=%.4f, totalValue=%s (both must be positive)",
			asset.TargetWeight, totalValue.String())
		return BuyFactorResult{Trace: trace.String()}
	}

	currentWeight, _ := asset.MarketValue().Div(totalValue).Float64()
	fmt.Fprintf(&trace, "currentWeight = %s / %s = %.6f\n",
		asset.MarketValue().String(), totalValue.String(), currentWeight)

	relativeOffset := (asset.TargetWeight - currentWeight) / asset.TargetWeight
	fmt.Fprintf(&trace, "relativeOffset = (%.4f - %.6f) / %.4f = %.6f\n",
		asset.TargetWeight, currentWeight, asset.TargetWeight, relativeOffset)

	// Saturating underweight reward; overweight yields 0
	offsetFactor := 0.0
	if relativeOffset > 0 {
		offsetFactor = relativeOffset / (relativeOffset + cfg.HalfSaturationOffset)
	}
	fmt.Fprintf(&trace, "offsetFactor = %.6f / (%.6f + %.4f) = %.6f\n",
		relativeOffset, relativeOffset, cfg.HalfSaturationOffset, offsetFactor)

	sdr := 0.0
	if sevenDayReturn != nil {
		sdr = *sevenDayReturn
	}
	drawdown := 0.0
	if sdr < 0 {
		drawdown = -sdr
	}
	fmt.Fprintf(&trace, "drawdown = max(0, -(%.6f)) = %.6f\n", sdr, drawdown)

	drawdownFactor := 0.0
	if drawdown > 0 {
		drawdownFactor = drawdown / (drawdown + cfg.HalfSaturationDrawdown)
	}
	fmt.Fprintf(&trace, "drawdownFactor = %.6f / (%.6f + %.4f) = %.6f\n",
		drawdown, drawdown, cfg.HalfSaturationDrawdown, drawdownFactor)

	preVolatility := cfg.BlendWeight*offsetFactor + (1-cfg.BlendWeight)*drawdownFactor
	fmt.Fprintf(&trace, "preVolatilityBuyFactor = %.2f*%.6f + %.2f*%.6f = %.6f\n",
		cfg.BlendWeight, offsetFactor, 1-cfg.BlendWeight, drawdownFactor, preVolatility)

	vol := 0.0
	if volatility != nil {
		vol = *volatility
	}
	k := clamp01(vol)
	buyFactor := (1 - cfg.VolatilityWeight*k) * preVolatility
	fmt.Fprintf(&trace, "buyFactor = (1 - %.2f*%.6f) * %.6f = %.6f",
		cfg.VolatilityWeight, k, preVolatility, buyFactor)

	return BuyFactorResult{
		CurrentWeight:  currentWeight,
		RelativeOffset: relativeOffset,
		OffsetFactor:   offsetFactor,
		Drawdown:       drawdown,
		DrawdownFactor: drawdownFactor,
		PreVolatility:  preVolatility,
		BuyFactor:      buyFactor,
		Trace:          trace.String(),
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
