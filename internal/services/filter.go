package services

import (
	"context"
	"log/slog"

	"github.com/shopspring/decimal"

	"savings/internal/core"
	"savings/internal/log"
	"savings/internal/rules"
)

// FilterInput is everything the temporal filter needs.
type FilterInput struct {
	Overrides   []core.OverridePeriod   // q
	Additions   []core.AdditivePeriod   // p
	Memberships []core.MembershipPeriod // k
	Wage        decimal.Decimal         // accepted, not used by the filter itself
	Expenses    []core.Expense
}

// Filter runs the temporal pipeline over raw expenses.
//
// The order is fixed: base rounding, then the override and additive sweeps
// over the raw expense list, then per expense in input order duplicate and
// amount checks followed by override replacement and additive extra. Survivors
// whose final remanent is not positive are dropped without a rejection. The
// membership sweep then runs over the survivors only.
func Filter(ctx context.Context, in FilterInput) core.Partition {
	slog.DebugContext(ctx, "Starting temporal filtering",
		"transactions", len(in.Expenses),
		"q_periods", len(in.Overrides),
		"p_periods", len(in.Additions),
		"k_periods", len(in.Memberships))

	base := core.RoundAll(in.Expenses)
	dates := rules.Dates(in.Expenses, func(e core.Expense) core.Timestamp { return e.Date })
	fixed := rules.ResolveOverrides(dates, in.Overrides)
	extra := rules.ResolveAdditions(dates, in.Additions)

	seen := make(seenSet, len(in.Expenses))
	survivors := make([]core.Transaction, 0, len(in.Expenses))
	out := core.Partition{Invalid: []core.Rejection{}}

	for i, e := range in.Expenses {
		if !seen.add(expenseFingerprint(e)) {
			slog.DebugContext(ctx, "Duplicate transaction rejected", "date", e.Date.String())
			out.Invalid = append(out.Invalid, e.Reject(MsgDuplicate))
			continue
		}
		if msg := CheckAmount(e.Amount); msg != "" {
			out.Invalid = append(out.Invalid, e.Reject(msg))
			continue
		}

		tx := base[i]
		if fixed[i].Valid {
			tx.Remanent = fixed[i].Decimal
		}
		tx.Remanent = tx.Remanent.Add(extra[i])

		// No savings event: neither valid nor rejected.
		if !tx.Remanent.IsPositive() {
			slog.DebugContext(ctx, "Transaction ignored with non-positive remanent",
				"date", e.Date.String(),
				"remanent", tx.Remanent.String())
			continue
		}
		survivors = append(survivors, tx)
	}

	inPeriod := rules.ResolveMembership(
		rules.Dates(survivors, func(t core.Transaction) core.Timestamp { return t.Date }),
		in.Memberships,
	)
	out.Valid = make([]core.Transaction, len(survivors))
	for i, tx := range survivors {
		out.Valid[i] = tx.WithInPeriod(inPeriod[i])
	}

	slog.DebugContext(ctx, "Temporal filtering completed",
		log.FieldValidCount, len(out.Valid),
		log.FieldInvalidCount, len(out.Invalid),
		log.FieldBucketCount, len(in.Memberships))
	return out
}
