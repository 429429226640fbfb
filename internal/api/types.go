// Package api defines the JSON contract shared by the HTTP server and the
// projection worker: request and response bodies, boundary validation and
// the operation dispatcher.
package api

import (
	"github.com/shopspring/decimal"

	"savings/internal/core"
)

// Request bodies. Pointer fields are required; nil means the field was
// missing or null.
type (
	ExpenseInput struct {
		Date   *core.Timestamp  `json:"date"`
		Amount *decimal.Decimal `json:"amount"`
	}

	TransactionInput struct {
		Date     *core.Timestamp  `json:"date"`
		Amount   *decimal.Decimal `json:"amount"`
		Ceiling  *decimal.Decimal `json:"ceiling"`
		Remanent *decimal.Decimal `json:"remanent"`
	}

	QPeriodInput struct {
		Fixed *decimal.Decimal `json:"fixed"`
		Start *core.Timestamp  `json:"start"`
		End   *core.Timestamp  `json:"end"`
	}

	PPeriodInput struct {
		Extra *decimal.Decimal `json:"extra"`
		Start *core.Timestamp  `json:"start"`
		End   *core.Timestamp  `json:"end"`
	}

	KPeriodInput struct {
		Start *core.Timestamp `json:"start"`
		End   *core.Timestamp `json:"end"`
	}

	ValidatorRequest struct {
		Wage         *decimal.Decimal   `json:"wage"`
		Transactions []TransactionInput `json:"transactions"`
	}

	FilterRequest struct {
		Q            []QPeriodInput   `json:"q"`
		P            []PPeriodInput   `json:"p"`
		K            []KPeriodInput   `json:"k"`
		Wage         *decimal.Decimal `json:"wage"`
		Transactions []ExpenseInput   `json:"transactions"`
	}

	ReturnsRequest struct {
		Age          *int             `json:"age"`
		Wage         *decimal.Decimal `json:"wage"`
		Inflation    *decimal.Decimal `json:"inflation"`
		Q            []QPeriodInput   `json:"q"`
		P            []PPeriodInput   `json:"p"`
		K            []KPeriodInput   `json:"k"`
		Transactions []ExpenseInput   `json:"transactions"`
	}
)

// Money renders as a bare JSON number rounded to core.MoneyPlaces.
type Money decimal.Decimal

func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(core.RoundMoney(decimal.Decimal(m)).String()), nil
}

func (m *Money) UnmarshalJSON(b []byte) error {
	var d decimal.Decimal
	if err := d.UnmarshalJSON(b); err != nil {
		return err
	}
	*m = Money(d)
	return nil
}

// Decimal returns m as a decimal.
func (m Money) Decimal() decimal.Decimal { return decimal.Decimal(m) }

// Response bodies.
type (
	TransactionOutput struct {
		Date     core.Timestamp `json:"date"`
		Amount   Money          `json:"amount"`
		Ceiling  *Money         `json:"ceiling,omitempty"`
		Remanent *Money         `json:"remanent,omitempty"`
		InPeriod *bool          `json:"inPeriod,omitempty"`
	}

	InvalidTransactionOutput struct {
		TransactionOutput
		Message string `json:"message"`
	}

	// PartitionResponse is returned by both the validator and the filter.
	PartitionResponse struct {
		Valid   []TransactionOutput        `json:"valid"`
		Invalid []InvalidTransactionOutput `json:"invalid"`
	}

	SavingsByDateOutput struct {
		Start      core.Timestamp `json:"start"`
		End        core.Timestamp `json:"end"`
		Amount     Money          `json:"amount"`
		Profit     Money          `json:"profit"`
		TaxBenefit Money          `json:"taxBenefit"`
	}

	ReturnsResponse struct {
		TotalTransactionAmount Money                 `json:"totalTransactionAmount"`
		TotalCeiling           Money                 `json:"totalCeiling"`
		SavingsByDates         []SavingsByDateOutput `json:"savingsByDates"`
	}

	// ErrorResponse is the body of every non-2xx reply.
	ErrorResponse struct {
		Error string `json:"error"`
	}
)
