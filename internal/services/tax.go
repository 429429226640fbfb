package services

import (
	"github.com/shopspring/decimal"
)

// taxBracket taxes income above floor at rate, on top of base.
type taxBracket struct {
	floor decimal.Decimal
	base  decimal.Decimal
	rate  decimal.Decimal
}

// Highest bracket first; income at or below the last floor is untaxed.
var taxBrackets = []taxBracket{
	{floor: decimal.NewFromInt(1_500_000), base: decimal.NewFromInt(120_000), rate: decimal.RequireFromString("0.30")},
	{floor: decimal.NewFromInt(1_200_000), base: decimal.NewFromInt(60_000), rate: decimal.RequireFromString("0.20")},
	{floor: decimal.NewFromInt(1_000_000), base: decimal.NewFromInt(30_000), rate: decimal.RequireFromString("0.15")},
	{floor: decimal.NewFromInt(700_000), base: decimal.Zero, rate: decimal.RequireFromString("0.10")},
}

var (
	// DeductionIncomeRatio caps the deduction at a share of annual income.
	DeductionIncomeRatio = decimal.RequireFromString("0.10")
	// MaxDeduction is the absolute deduction cap.
	MaxDeduction = decimal.NewFromInt(200_000)

	monthsPerYear = decimal.NewFromInt(12)
)

// Tax evaluates the progressive bracket schedule for a yearly income.
func Tax(income decimal.Decimal) decimal.Decimal {
	for _, b := range taxBrackets {
		if income.GreaterThan(b.floor) {
			return b.base.Add(income.Sub(b.floor).Mul(b.rate))
		}
	}
	return decimal.Zero
}

// DeductionBenefit is the tax saved by deducting invested from the annual
// income derived from monthlyWage. Both tax figures are evaluated from
// scratch and subtracted.
func DeductionBenefit(invested, monthlyWage decimal.Decimal) decimal.Decimal {
	if !invested.IsPositive() {
		return decimal.Zero
	}
	annual := monthlyWage.Mul(monthsPerYear)
	limit := decimal.Min(annual.Mul(DeductionIncomeRatio), MaxDeduction)
	eligible := decimal.Min(invested, limit)
	after := decimal.Max(annual.Sub(eligible), decimal.Zero)
	return Tax(annual).Sub(Tax(after))
}
