// This file implements the Strategy Pattern for investment instruments.
// Each instrument pairs an annual rate with the tax-benefit rule that
// applies to money invested in it.

package services

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
)

// TaxBenefitCalculator is the strategy interface for the tax saved by an
// investment.
type TaxBenefitCalculator interface {
	// Benefit returns the tax saved by investing invested out of monthlyWage.
	Benefit(invested, monthlyWage decimal.Decimal) decimal.Decimal
}

// NoTaxBenefit never saves any tax.
type NoTaxBenefit struct{}

// Benefit always returns zero.
func (NoTaxBenefit) Benefit(_, _ decimal.Decimal) decimal.Decimal { return decimal.Zero }

// PensionDeduction deducts the invested amount from taxable income, within
// the DeductionIncomeRatio and MaxDeduction caps.
type PensionDeduction struct{}

// Benefit returns DeductionBenefit(invested, monthlyWage).
func (PensionDeduction) Benefit(invested, monthlyWage decimal.Decimal) decimal.Decimal {
	return DeductionBenefit(invested, monthlyWage)
}

// Instrument is a savings vehicle with a nominal annual rate.
type Instrument struct {
	Name string
	Rate decimal.Decimal
	Tax  TaxBenefitCalculator
}

// Instrument names.
const (
	NPS   = "nps"
	Index = "index"
)

// instruments maps names to instruments.
var instruments = map[string]Instrument{
	NPS:   {Name: NPS, Rate: decimal.RequireFromString("0.0711"), Tax: PensionDeduction{}},
	Index: {Name: Index, Rate: decimal.RequireFromString("0.1449"), Tax: NoTaxBenefit{}},
}

// GetInstrument returns the instrument registered under name.
func GetInstrument(name string) (Instrument, error) {
	inst, ok := instruments[name]
	if !ok {
		return Instrument{}, fmt.Errorf("unknown instrument: %s", name)
	}
	return inst, nil
}

// RegisterInstrument adds or replaces an instrument.
func RegisterInstrument(inst Instrument) {
	instruments[inst.Name] = inst
}

// InstrumentNames lists the registered names, sorted.
func InstrumentNames() []string {
	names := make([]string, 0, len(instruments))
	for name := range instruments {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
