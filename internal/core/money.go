// Package core provides the domain types and the money arithmetic shared by
// every savings computation.
//
// This file contains the rounding engine: an expense is rounded up to the
// next multiple of CeilingStep and the difference (the remanent) is what
// gets invested.
package core

import (
	"github.com/shopspring/decimal"
)

var (
	// CeilingStep is the multiple every expense is rounded up to.
	CeilingStep = decimal.NewFromInt(100)

	// Epsilon is the tolerance used when comparing caller-supplied amounts.
	Epsilon = decimal.New(1, -6)
)

// MoneyPlaces is the number of decimal places of every monetary output.
const MoneyPlaces = 2

// Ceiling rounds amount up to the next multiple of CeilingStep.
// Amounts already on a multiple are returned unchanged.
//
// Examples:
//
//	Ceiling(250)  -> 300
//	Ceiling(400)  -> 400
//	Ceiling(-10)  -> 0
//	Ceiling(-150) -> -100
func Ceiling(amount decimal.Decimal) decimal.Decimal {
	q, r := amount.QuoRem(CeilingStep, 0)
	if r.IsPositive() {
		q = q.Add(decimal.NewFromInt(1))
	}
	return q.Mul(CeilingStep)
}

// Round enriches a single expense with its ceiling and remanent.
// It is total: negative amounts are rounded like any other.
func Round(date Timestamp, amount decimal.Decimal) Transaction {
	ceiling := Ceiling(amount)
	return Transaction{
		Date:     date,
		Amount:   amount,
		Ceiling:  ceiling,
		Remanent: ceiling.Sub(amount),
	}
}

// RoundAll enriches every expense, preserving input order.
func RoundAll(expenses []Expense) []Transaction {
	out := make([]Transaction, len(expenses))
	for i, e := range expenses {
		out[i] = Round(e.Date, e.Amount)
	}
	return out
}

// RoundMoney rounds to MoneyPlaces using half-up (away from zero) rounding.
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(MoneyPlaces)
}
