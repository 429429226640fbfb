package rules

import (
	"github.com/shopspring/decimal"

	"savings/internal/core"
)

// ResolveAdditions returns, for every transaction date, the sum of the extras
// of all additive periods active at that instant. Dates outside every period
// get zero.
func ResolveAdditions(dates []core.Timestamp, periods []core.AdditivePeriod) []decimal.Decimal {
	out := make([]decimal.Decimal, len(dates))
	for i := range out {
		out[i] = decimal.Zero
	}
	spans := collect(periods, core.AdditivePeriod.Inert, func(p core.AdditivePeriod) (core.Timestamp, core.Timestamp) {
		return p.Start, p.End
	})
	if len(spans) == 0 {
		return out
	}

	sweep(dates, spans, &additiveEffect{periods: periods, running: decimal.Zero, out: out})
	return out
}

type additiveEffect struct {
	periods []core.AdditivePeriod
	running decimal.Decimal
	out     []decimal.Decimal
}

func (fx *additiveEffect) activate(order int) {
	fx.running = fx.running.Add(fx.periods[order].Extra)
}

func (fx *additiveEffect) deactivate(order int) {
	fx.running = fx.running.Sub(fx.periods[order].Extra)
}

func (fx *additiveEffect) observe(tx int) {
	fx.out[tx] = fx.running
}
