package rules

import "savings/internal/core"

// ResolveMembership reports, for every transaction date, whether it falls
// inside at least one membership period.
func ResolveMembership(dates []core.Timestamp, periods []core.MembershipPeriod) []bool {
	out := make([]bool, len(dates))
	spans := collect(periods, core.MembershipPeriod.Inert, func(p core.MembershipPeriod) (core.Timestamp, core.Timestamp) {
		return p.Start, p.End
	})
	if len(spans) == 0 {
		return out
	}

	sweep(dates, spans, &membershipEffect{out: out})
	return out
}

type membershipEffect struct {
	active int
	out    []bool
}

func (fx *membershipEffect) activate(int)   { fx.active++ }
func (fx *membershipEffect) deactivate(int) { fx.active-- }
func (fx *membershipEffect) observe(tx int) { fx.out[tx] = fx.active > 0 }
