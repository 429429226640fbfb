package rules

import (
	"container/heap"

	"github.com/shopspring/decimal"

	"savings/internal/core"
)

// ResolveOverrides returns, for every transaction date, the fixed value of the
// override period that governs it. Among simultaneously active periods the one
// with the latest start wins, and on equal starts the one listed first.
// Transactions outside every period get an invalid NullDecimal.
func ResolveOverrides(dates []core.Timestamp, periods []core.OverridePeriod) []decimal.NullDecimal {
	out := make([]decimal.NullDecimal, len(dates))
	spans := collect(periods, core.OverridePeriod.Inert, func(p core.OverridePeriod) (core.Timestamp, core.Timestamp) {
		return p.Start, p.End
	})
	if len(spans) == 0 {
		return out
	}

	fx := &overrideEffect{
		periods: periods,
		spans:   make(map[int]span, len(spans)),
		expired: make(map[int]bool),
		out:     out,
	}
	for _, s := range spans {
		fx.spans[s.order] = s
	}
	sweep(dates, spans, fx)
	return out
}

type overrideEffect struct {
	periods []core.OverridePeriod
	spans   map[int]span
	active  priority
	expired map[int]bool
	out     []decimal.NullDecimal
}

func (fx *overrideEffect) activate(order int) {
	heap.Push(&fx.active, fx.spans[order])
}

// deactivate is lazy: the span leaves the heap only once it reaches the top.
func (fx *overrideEffect) deactivate(order int) {
	fx.expired[order] = true
}

func (fx *overrideEffect) observe(tx int) {
	for fx.active.Len() > 0 && fx.expired[fx.active[0].order] {
		heap.Pop(&fx.active)
	}
	if fx.active.Len() == 0 {
		return
	}
	fx.out[tx] = decimal.NewNullDecimal(fx.periods[fx.active[0].order].Fixed)
}

// priority is a heap whose top is the latest start, earliest listed.
type priority []span

func (p priority) Len() int { return len(p) }

func (p priority) Less(i, j int) bool {
	if !p[i].start.Equal(p[j].start) {
		return p[i].start.After(p[j].start)
	}
	return p[i].order < p[j].order
}

func (p priority) Swap(i, j int) { p[i], p[j] = p[j], p[i] }

func (p *priority) Push(x any) { *p = append(*p, x.(span)) }

func (p *priority) Pop() any {
	old := *p
	n := len(old)
	s := old[n-1]
	*p = old[:n-1]
	return s
}
