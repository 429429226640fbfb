// Package rules resolves calendar-period rules against a transaction timeline.
//
// Every rule family (override, additive, membership) is resolved by the same
// sweep: transactions are visited in chronological order while two forward-only
// cursors walk the periods ordered by start and by end. A period becomes active
// once its start is at or before the transaction date and inactive once its end
// is strictly before it, so both bounds are inclusive. What "active" means is
// left to an effect: the override family keeps a priority set, the additive
// family a running sum, the membership family a counter.
package rules

import (
	"cmp"
	"slices"
	"time"

	"savings/internal/core"
)

// span is a non-inert period reduced to its bounds and its position in the
// caller's list, which is the tie-break everywhere.
type span struct {
	order int
	start time.Time
	end   time.Time
}

// effect reacts to period activation and reports per-transaction state.
type effect interface {
	activate(order int)
	deactivate(order int)
	observe(tx int)
}

// sweep drives fx over the transactions in dates. State lives in fx and in
// locals, so concurrent sweeps never share anything.
func sweep(dates []core.Timestamp, spans []span, fx effect) {
	if len(dates) == 0 {
		return
	}

	starts := slices.Clone(spans)
	slices.SortFunc(starts, func(a, b span) int {
		if c := a.start.Compare(b.start); c != 0 {
			return c
		}
		return cmp.Compare(a.order, b.order)
	})
	ends := slices.Clone(spans)
	slices.SortFunc(ends, func(a, b span) int {
		if c := a.end.Compare(b.end); c != 0 {
			return c
		}
		return cmp.Compare(a.order, b.order)
	})

	next, expired := 0, 0
	for _, tx := range chronological(dates) {
		at := dates[tx].Time
		for next < len(starts) && !starts[next].start.After(at) {
			fx.activate(starts[next].order)
			next++
		}
		for expired < len(ends) && ends[expired].end.Before(at) {
			fx.deactivate(ends[expired].order)
			expired++
		}
		fx.observe(tx)
	}
}

// chronological returns transaction indexes ordered by date, then by index.
func chronological(dates []core.Timestamp) []int {
	idx := make([]int, len(dates))
	for i := range idx {
		idx[i] = i
	}
	slices.SortFunc(idx, func(a, b int) int {
		if c := dates[a].Compare(dates[b].Time); c != 0 {
			return c
		}
		return cmp.Compare(a, b)
	})
	return idx
}

// collect keeps the periods that can match something, remembering their
// original index. bounds is called once per period.
func collect[P any](periods []P, inert func(P) bool, bounds func(P) (core.Timestamp, core.Timestamp)) []span {
	out := make([]span, 0, len(periods))
	for i, p := range periods {
		if inert(p) {
			continue
		}
		start, end := bounds(p)
		out = append(out, span{order: i, start: start.Time, end: end.Time})
	}
	return out
}

// Dates extracts the transaction dates in order.
func Dates[T any](items []T, date func(T) core.Timestamp) []core.Timestamp {
	out := make([]core.Timestamp, len(items))
	for i, it := range items {
		out[i] = date(it)
	}
	return out
}
