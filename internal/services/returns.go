package services

import (
	"context"
	"log/slog"

	"github.com/shopspring/decimal"

	"savings/internal/core"
	"savings/internal/log"
)

const (
	// RetirementAge is the age at which contributions stop compounding.
	RetirementAge = 60
	// YearsPastRetirement is the horizon used for anyone already retired.
	YearsPastRetirement = 5
)

var (
	one     = decimal.NewFromInt(1)
	hundred = decimal.NewFromInt(100)
)

// ReturnsInput is a filter request plus the investor profile.
type ReturnsInput struct {
	FilterInput
	Age       int
	Inflation decimal.Decimal // percent
}

// InvestmentYears is the compounding horizon for an investor of age.
func InvestmentYears(age int) int {
	if age < RetirementAge {
		return RetirementAge - age
	}
	return YearsPastRetirement
}

// RealProfit is the inflation-adjusted gain of principal compounded at rate
// for years. Non-positive principals yield no profit.
func RealProfit(principal, rate, inflationPercent decimal.Decimal, years int) decimal.Decimal {
	if !principal.IsPositive() {
		return decimal.Zero
	}
	n := decimal.NewFromInt(int64(years))
	growth := one.Add(rate).Pow(n)
	deflator := one.Add(inflationPercent.Div(hundred)).Pow(n)
	return principal.Mul(growth).Div(deflator).Sub(principal)
}

// PeriodAmount sums the remanents of txs dated inside p. Inert periods sum to 0.
func PeriodAmount(txs []core.Transaction, p core.MembershipPeriod) decimal.Decimal {
	total := decimal.Zero
	if p.Inert() {
		return total
	}
	for _, tx := range txs {
		if p.Contains(tx.Date) {
			total = total.Add(tx.Remanent)
		}
	}
	return total
}

// Totals sums amount and ceiling over txs.
func Totals(txs []core.Transaction) (amount, ceiling decimal.Decimal) {
	amount, ceiling = decimal.Zero, decimal.Zero
	for _, tx := range txs {
		amount = amount.Add(tx.Amount)
		ceiling = ceiling.Add(tx.Ceiling)
	}
	return amount, ceiling
}

// Project computes the savings projection of in for inst.
//
// Each membership period is an independent bucket: overlapping periods count
// the same transaction in every bucket. The totals are gross figures from the
// deduplicated, non-negative, base-rounded expenses; period rules do not touch
// them.
func Project(ctx context.Context, inst Instrument, in ReturnsInput) core.Projection {
	slog.DebugContext(ctx, "Starting returns calculation",
		log.FieldInstrument, inst.Name,
		"age", in.Age,
		"wage", in.Wage.String(),
		"inflation", in.Inflation.String())

	filtered := Filter(ctx, in.FilterInput)
	gross := GrossTransactions(in.Expenses)
	totalAmount, totalCeiling := Totals(gross)
	years := InvestmentYears(in.Age)

	buckets := make([]core.SavingsByDate, len(in.Memberships))
	for i, p := range in.Memberships {
		amount := PeriodAmount(filtered.Valid, p)
		buckets[i] = core.SavingsByDate{
			Start:      p.Start,
			End:        p.End,
			Amount:     core.RoundMoney(amount),
			Profit:     core.RoundMoney(RealProfit(amount, inst.Rate, in.Inflation, years)),
			TaxBenefit: core.RoundMoney(inst.Tax.Benefit(amount, in.Wage)),
		}
	}

	slog.DebugContext(ctx, "Returns calculation completed",
		log.FieldInstrument, inst.Name,
		log.FieldValidCount, len(filtered.Valid),
		log.FieldInvalidCount, len(filtered.Invalid),
		log.FieldBucketCount, len(buckets),
		"gross_count", len(gross))

	return core.Projection{
		TotalTransactionAmount: core.RoundMoney(totalAmount),
		TotalCeiling:           core.RoundMoney(totalCeiling),
		SavingsByDates:         buckets,
	}
}
