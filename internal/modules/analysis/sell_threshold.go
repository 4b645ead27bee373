package analysis

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/akontos/rebalancer/internal/domain"
)

// SellThresholdConfig holds the tunable constants of the sell threshold
// formula.
type SellThresholdConfig struct {
	// BaseThreshold is the sell threshold for a zero-volatility asset in
	// a zero-risk portfolio.
	BaseThreshold float64
	// HalfSaturationRisk is the total risk at which the overall risk
	// factor reaches 0.5.
	HalfSaturationRisk float64
}

// DefaultSellThresholdConfig returns the standard constants
func DefaultSellThresholdConfig() SellThresholdConfig {
	return SellThresholdConfig{
		BaseThreshold:      0.30,
		HalfSaturationRisk: 0.00035,
	}
}

// ThresholdDetail is one asset's sell threshold with its trace
type ThresholdDetail struct {
	Threshold float64 `json:"threshold"`
	Trace     string  `json:"trace"`
}

// SellThresholdResult carries per-asset thresholds, per-asset risk
// contributions and the portfolio-wide risk factor.
type SellThresholdResult struct {
	Thresholds        map[string]ThresholdDetail `json:"thresholds"` // keyed by asset id
	Risks             map[string]float64         `json:"risks"`      // volatility-weighted overshoot per asset
	TotalRisk         float64                    `json:"total_risk"`
	OverallRiskFactor float64                    `json:"overall_risk_factor"`
	RiskTrace         string                     `json:"risk_trace"`
}

// CalculateSellThresholds computes the per-asset sell thresholds and the
// portfolio-wide risk factor. Total like the buy factor: a non-positive
// total value yields all-zero results with a diagnostic trace.
// volatilities maps asset id to annualized volatility; missing or nil
// entries count as 0.
func CalculateSellThresholds(assets []domain.Asset, cash decimal.Decimal, volatilities map[string]*float64, cfg SellThresholdConfig) SellThresholdResult {
	result := SellThresholdResult{
		Thresholds: make(map[string]ThresholdDetail, len(assets)),
		Risks:      make(map[string]float64, len(assets)),
	}

	total := cash
	for _, a := range assets {
		total = total.Add(a.MarketValue())
	}

	if !total.IsPositive() {
		result.RiskTrace = fmt.Sprintf("not computable: totalValue=%s (must be positive)", total.String())
		for _, a := range assets {
			result.Thresholds[a.ID] = ThresholdDetail{Trace: result.RiskTrace}
			result.Risks[a.ID] = 0
		}
		return result
	}

	var riskTrace strings.Builder

	// Volatility-weighted overshoot per asset; only over-allocated assets
	// contribute nonzero terms
	totalRisk := 0.0
	for _, a := range assets {
		currentWeight, _ := a.MarketValue().Div(total).Float64()
		overshoot := currentWeight - a.TargetWeight
		if overshoot < 0 {
			overshoot = 0
		}
		vol := volFor(volatilities, a.ID)
		risk := vol * overshoot
		result.Risks[a.ID] = risk
		totalRisk += risk
		fmt.Fprintf(&riskTrace, "%s: overshoot = max(0, %.6f - %.4f) = %.6f, risk = %.6f * %.6f = %.8f\n",
			a.ID, currentWeight, a.TargetWeight, overshoot, vol, overshoot, risk)
	}

	overallRiskFactor := 0.0
	if totalRisk > 0 {
		overallRiskFactor = totalRisk / (totalRisk + cfg.HalfSaturationRisk)
	}
	fmt.Fprintf(&riskTrace, "overallRiskFactor = %.8f / (%.8f + %.5f) = %.6f",
		totalRisk, totalRisk, cfg.HalfSaturationRisk, overallRiskFactor)

	result.TotalRisk = totalRisk
	result.OverallRiskFactor = overallRiskFactor
	result.RiskTrace = riskTrace.String()

	// Per-asset threshold: higher volatility or higher aggregate risk
	// lowers the threshold, making sells more eager
	clampedRisk := clamp01(overallRiskFactor)
	for _, a := range assets {
		vol := clamp01(volFor(volatilities, a.ID))
		threshold := cfg.BaseThreshold * (1 - vol) * (1 - clampedRisk)
		result.Thresholds[a.ID] = ThresholdDetail{
			Threshold: threshold,
			Trace: fmt.Sprintf("threshold = %.2f * (1 - %.6f) * (1 - %.6f) = %.6f",
				cfg.BaseThreshold, vol, clampedRisk, threshold),
		}
	}

	return result
}

func volFor(volatilities map[string]*float64, assetID string) float64 {
	if volatilities == nil {
		return 0
	}
	if v, ok := volatilities[assetID]; ok && v != nil {
		return *v
	}
	return 0
}
