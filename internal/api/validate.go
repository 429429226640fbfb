package api

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"savings/internal/core"
)

var (
	// ErrMalformedRequest wraps JSON decoding failures.
	ErrMalformedRequest = errors.New("malformed request body")
	// ErrUnknownOperation is returned by the dispatcher for unknown kinds.
	ErrUnknownOperation = errors.New("unknown operation")
)

// ValidationError lists every problem found in a request.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "invalid request: " + strings.Join(e.Problems, "; ")
}

// Decimal inputs are limited in precision and magnitude. Arithmetic on
// decimals rescales operands to a common exponent, so an exponent like
// 1e-50000000 would cost seconds and hundreds of megabytes per value.
const (
	MinDecimalExponent = -12
	MaxDecimalExponent = 15
	MaxDecimalDigits   = 30
)

// problems collects validation failures with field paths.
type problems []string

func (p *problems) add(format string, args ...any) {
	*p = append(*p, fmt.Sprintf(format, args...))
}

func (p *problems) required(path string, missing bool) {
	if missing {
		p.add("%s is required", path)
	}
}

// number reports a missing or out-of-range decimal and returns whether v
// is safe to compute with.
func (p *problems) number(path string, v *decimal.Decimal) bool {
	if v == nil {
		p.add("%s is required", path)
		return false
	}
	if exp := v.Exponent(); exp < MinDecimalExponent || exp > MaxDecimalExponent || v.NumDigits() > MaxDecimalDigits {
		p.add("%s is out of range: at most %d digits and %d decimal places", path, MaxDecimalDigits, -MinDecimalExponent)
		return false
	}
	return true
}

func (p *problems) positive(path string, v *decimal.Decimal) {
	if !p.number(path, v) {
		return
	}
	if !v.IsPositive() {
		p.add("%s must be greater than 0", path)
	}
}

func (p *problems) nonNegative(path string, v *decimal.Decimal) {
	if !p.number(path, v) {
		return
	}
	if v.IsNegative() {
		p.add("%s must be greater than or equal to 0", path)
	}
}

func (p problems) err() error {
	if len(p) == 0 {
		return nil
	}
	return &ValidationError{Problems: p}
}

func validateExpenses(p *problems, path string, items []ExpenseInput) {
	if items == nil {
		p.add("%s is required", path)
		return
	}
	for i, e := range items {
		p.required(fmt.Sprintf("%s[%d].date", path, i), e.Date == nil)
		p.number(fmt.Sprintf("%s[%d].amount", path, i), e.Amount)
	}
}

func validatePeriods(p *problems, q []QPeriodInput, pp []PPeriodInput, k []KPeriodInput) {
	if q == nil {
		p.add("q is required")
	}
	for i, period := range q {
		p.nonNegative(fmt.Sprintf("q[%d].fixed", i), period.Fixed)
		p.required(fmt.Sprintf("q[%d].start", i), period.Start == nil)
		p.required(fmt.Sprintf("q[%d].end", i), period.End == nil)
	}
	if pp == nil {
		p.add("p is required")
	}
	for i, period := range pp {
		p.nonNegative(fmt.Sprintf("p[%d].extra", i), period.Extra)
		p.required(fmt.Sprintf("p[%d].start", i), period.Start == nil)
		p.required(fmt.Sprintf("p[%d].end", i), period.End == nil)
	}
	if k == nil {
		p.add("k is required")
	}
	for i, period := range k {
		p.required(fmt.Sprintf("k[%d].start", i), period.Start == nil)
		p.required(fmt.Sprintf("k[%d].end", i), period.End == nil)
	}
}

// ValidateExpenses checks a parse request body.
func ValidateExpenses(items []ExpenseInput) error {
	var p problems
	validateExpenses(&p, "transactions", items)
	return p.err()
}

// Validate checks the request and reports every problem at once.
func (r ValidatorRequest) Validate() error {
	var p problems
	p.positive("wage", r.Wage)
	if r.Transactions == nil {
		p.add("transactions is required")
	}
	for i, t := range r.Transactions {
		p.required(fmt.Sprintf("transactions[%d].date", i), t.Date == nil)
		p.number(fmt.Sprintf("transactions[%d].amount", i), t.Amount)
		p.number(fmt.Sprintf("transactions[%d].ceiling", i), t.Ceiling)
		p.number(fmt.Sprintf("transactions[%d].remanent", i), t.Remanent)
	}
	return p.err()
}

// Validate checks the request and reports every problem at once.
func (r FilterRequest) Validate() error {
	var p problems
	validatePeriods(&p, r.Q, r.P, r.K)
	p.positive("wage", r.Wage)
	validateExpenses(&p, "transactions", r.Transactions)
	return p.err()
}

// Validate checks the request and reports every problem at once.
func (r ReturnsRequest) Validate() error {
	var p problems
	switch {
	case r.Age == nil:
		p.add("age is required")
	case *r.Age < 0:
		p.add("age must be greater than or equal to 0")
	}
	p.positive("wage", r.Wage)
	p.nonNegative("inflation", r.Inflation)
	validatePeriods(&p, r.Q, r.P, r.K)
	validateExpenses(&p, "transactions", r.Transactions)
	return p.err()
}

// Conversions into core types. They assume Validate succeeded.

func toExpenses(items []ExpenseInput) []core.Expense {
	out := make([]core.Expense, len(items))
	for i, e := range items {
		out[i] = core.Expense{Date: *e.Date, Amount: *e.Amount}
	}
	return out
}

func toTransactions(items []TransactionInput) []core.Transaction {
	out := make([]core.Transaction, len(items))
	for i, t := range items {
		out[i] = core.Transaction{Date: *t.Date, Amount: *t.Amount, Ceiling: *t.Ceiling, Remanent: *t.Remanent}
	}
	return out
}

func toOverrides(items []QPeriodInput) []core.OverridePeriod {
	out := make([]core.OverridePeriod, len(items))
	for i, q := range items {
		out[i] = core.OverridePeriod{Fixed: *q.Fixed, Start: *q.Start, End: *q.End}
	}
	return out
}

func toAdditions(items []PPeriodInput) []core.AdditivePeriod {
	out := make([]core.AdditivePeriod, len(items))
	for i, p := range items {
		out[i] = core.AdditivePeriod{Extra: *p.Extra, Start: *p.Start, End: *p.End}
	}
	return out
}

func toMemberships(items []KPeriodInput) []core.MembershipPeriod {
	out := make([]core.MembershipPeriod, len(items))
	for i, k := range items {
		out[i] = core.MembershipPeriod{Start: *k.Start, End: *k.End}
	}
	return out
}

// Conversions out of core types.

func money(d decimal.Decimal) *Money {
	m := Money(d)
	return &m
}

func fromTransaction(t core.Transaction) TransactionOutput {
	return TransactionOutput{
		Date:     t.Date,
		Amount:   Money(t.Amount),
		Ceiling:  money(t.Ceiling),
		Remanent: money(t.Remanent),
		InPeriod: t.InPeriod,
	}
}

func fromRejection(r core.Rejection) InvalidTransactionOutput {
	out := InvalidTransactionOutput{
		TransactionOutput: TransactionOutput{Date: r.Date, Amount: Money(r.Amount)},
		Message:           r.Message,
	}
	if r.Ceiling.Valid {
		out.Ceiling = money(r.Ceiling.Decimal)
	}
	if r.Remanent.Valid {
		out.Remanent = money(r.Remanent.Decimal)
	}
	return out
}

func fromTransactions(txs []core.Transaction) []TransactionOutput {
	out := make([]TransactionOutput, len(txs))
	for i, t := range txs {
		out[i] = fromTransaction(t)
	}
	return out
}

func fromPartition(p core.Partition) PartitionResponse {
	out := PartitionResponse{
		Valid:   fromTransactions(p.Valid),
		Invalid: make([]InvalidTransactionOutput, len(p.Invalid)),
	}
	for i, r := range p.Invalid {
		out.Invalid[i] = fromRejection(r)
	}
	return out
}

func fromProjection(p core.Projection) ReturnsResponse {
	out := ReturnsResponse{
		TotalTransactionAmount: Money(p.TotalTransactionAmount),
		TotalCeiling:           Money(p.TotalCeiling),
		SavingsByDates:         make([]SavingsByDateOutput, len(p.SavingsByDates)),
	}
	for i, s := range p.SavingsByDates {
		out.SavingsByDates[i] = SavingsByDateOutput{
			Start:      s.Start,
			End:        s.End,
			Amount:     Money(s.Amount),
			Profit:     Money(s.Profit),
			TaxBenefit: Money(s.TaxBenefit),
		}
	}
	return out
}
