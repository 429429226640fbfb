// Package services provides the savings computations: sanitizing, rule
// filtering and returns projection.
//
// This file holds the transaction sanitizer: duplicate detection by
// fingerprint, amount and consistency checks, and the wage-based budget.
package services

import (
	"context"
	"log/slog"

	"github.com/shopspring/decimal"

	"savings/internal/core"
	"savings/internal/log"
)

// Rejection messages. They are part of the public contract.
const (
	MsgDuplicate         = "Duplicate transaction"
	MsgNegativeAmount    = "Negative amounts are not allowed"
	MsgCeilingBelow      = "Ceiling must be greater than or equal to amount"
	MsgRemanentMismatch  = "Remanent must be equal to ceiling minus amount"
	MsgNegativeRemanent  = "Remanent cannot be negative"
	MsgExceedsInvestable = "Transaction exceeds maximum investable amount based on wage"
)

// MaxInvestableWageRatio is the share of the wage that may be invested.
var MaxInvestableWageRatio = decimal.RequireFromString("0.30")

// fingerprint identifies a transaction for duplicate detection. Amounts are
// stored in canonical form so 250 and 250.00 collide.
type fingerprint struct {
	at       int64
	amount   string
	ceiling  string
	remanent string
}

func expenseFingerprint(e core.Expense) fingerprint {
	return fingerprint{at: e.Date.UnixNano(), amount: e.Amount.String()}
}

func transactionFingerprint(t core.Transaction) fingerprint {
	return fingerprint{
		at:       t.Date.UnixNano(),
		amount:   t.Amount.String(),
		ceiling:  t.Ceiling.String(),
		remanent: t.Remanent.String(),
	}
}

// seenSet remembers fingerprints in a single left-to-right scan.
type seenSet map[fingerprint]struct{}

// add reports whether fp was new.
func (s seenSet) add(fp fingerprint) bool {
	if _, ok := s[fp]; ok {
		return false
	}
	s[fp] = struct{}{}
	return true
}

// CheckAmount returns the rejection message for an amount, or "".
func CheckAmount(amount decimal.Decimal) string {
	if amount.IsNegative() {
		return MsgNegativeAmount
	}
	return ""
}

// CheckConsistency validates an enriched transaction supplied by a caller.
// Checks run in a fixed order and the first failure wins.
func CheckConsistency(t core.Transaction) string {
	if msg := CheckAmount(t.Amount); msg != "" {
		return msg
	}
	if t.Ceiling.LessThan(t.Amount) {
		return MsgCeilingBelow
	}
	expected := t.Ceiling.Sub(t.Amount)
	if expected.Sub(t.Remanent).Abs().GreaterThan(core.Epsilon) {
		return MsgRemanentMismatch
	}
	if t.Remanent.IsNegative() {
		return MsgNegativeRemanent
	}
	return ""
}

// Budget tracks how much of the investable share of a wage has been used.
type Budget struct {
	max      decimal.Decimal
	invested decimal.Decimal
}

// NewBudget caps investments at MaxInvestableWageRatio of wage.
func NewBudget(wage decimal.Decimal) *Budget {
	return &Budget{max: wage.Mul(MaxInvestableWageRatio), invested: decimal.Zero}
}

// Admit books remanent if it fits and reports whether it did.
func (b *Budget) Admit(remanent decimal.Decimal) bool {
	next := b.invested.Add(remanent)
	if next.GreaterThan(b.max.Add(core.Epsilon)) {
		return false
	}
	b.invested = next
	return true
}

// Invested returns the amount booked so far.
func (b *Budget) Invested() decimal.Decimal { return b.invested }

// Max returns the cap.
func (b *Budget) Max() decimal.Decimal { return b.max }

// ValidateTransactions runs the full validator flow over caller-supplied
// enriched transactions: duplicates, consistency, then the wage budget.
func ValidateTransactions(ctx context.Context, wage decimal.Decimal, txs []core.Transaction) core.Partition {
	budget := NewBudget(wage)
	seen := make(seenSet, len(txs))
	out := core.Partition{Valid: []core.Transaction{}, Invalid: []core.Rejection{}}

	slog.DebugContext(ctx, "Validating transactions",
		"count", len(txs),
		"max_investable", budget.Max().String())

	for _, tx := range txs {
		if !seen.add(transactionFingerprint(tx)) {
			out.Invalid = append(out.Invalid, tx.Reject(MsgDuplicate))
			continue
		}
		if msg := CheckConsistency(tx); msg != "" {
			out.Invalid = append(out.Invalid, tx.Reject(msg))
			continue
		}
		if !budget.Admit(tx.Remanent) {
			out.Invalid = append(out.Invalid, tx.Reject(MsgExceedsInvestable))
			continue
		}
		out.Valid = append(out.Valid, tx)
	}

	slog.DebugContext(ctx, "Validation completed",
		log.FieldValidCount, len(out.Valid),
		log.FieldInvalidCount, len(out.Invalid),
		"invested", budget.Invested().String())
	return out
}

// GrossTransactions deduplicates raw expenses, drops negative amounts and
// base-rounds the rest. No period rule is applied: the result measures gross
// spend and ceiling.
func GrossTransactions(expenses []core.Expense) []core.Transaction {
	seen := make(seenSet, len(expenses))
	out := make([]core.Transaction, 0, len(expenses))
	for _, e := range expenses {
		if !seen.add(expenseFingerprint(e)) {
			continue
		}
		if CheckAmount(e.Amount) != "" {
			continue
		}
		out = append(out, core.Round(e.Date, e.Amount))
	}
	return out
}
