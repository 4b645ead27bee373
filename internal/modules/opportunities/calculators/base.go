// Package calculators derives trading opportunities from a portfolio
// snapshot. Calculators are pure functions of the snapshot: same
// portfolio in, same opportunities out.
package calculators

import "github.com/shopspring/decimal"

// Board-lot and sizing constants shared by the buy and sell calculators.
var (
	// LotSize is the minimum tradable share increment.
	LotSize = decimal.NewFromInt(100)

	// MinAbsoluteAmount is the smallest order value worth placing.
	MinAbsoluteAmount = decimal.NewFromInt(1000)

	// FixedFee is the flat per-order commission.
	FixedFee = decimal.NewFromInt(5)
)

const (
	// MinSellDeviation is the noise floor on overweight deviation below
	// which no sell is generated. It is independent of the per-asset
	// sell threshold, which is informational in this path.
	MinSellDeviation = 0.004

	// AmortizationWeeks spreads a large cash pile over this many weekly
	// buy windows.
	AmortizationWeeks = 25

	// MinSingleInvestmentFraction of total portfolio value is the
	// smallest single buy worth planning.
	MinSingleInvestmentFraction = 0.01
)

// roundUpToLot rounds shares up to the next whole lot.
func roundUpToLot(shares decimal.Decimal) decimal.Decimal {
	return shares.Div(LotSize).Ceil().Mul(LotSize)
}

// roundDownToLot rounds shares down to the nearest whole lot.
func roundDownToLot(shares decimal.Decimal) decimal.Decimal {
	return shares.Div(LotSize).Floor().Mul(LotSize)
}
