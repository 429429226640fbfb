package core

import "github.com/shopspring/decimal"

// SavingsByDate is the projection of one membership period.
type SavingsByDate struct {
	Start      Timestamp
	End        Timestamp
	Amount     decimal.Decimal
	Profit     decimal.Decimal
	TaxBenefit decimal.Decimal
}

// Projection is the full outcome of a returns calculation.
type Projection struct {
	TotalTransactionAmount decimal.Decimal
	TotalCeiling           decimal.Decimal
	SavingsByDates         []SavingsByDate
}

// Partition is the valid/rejected split produced by sanitizing.
type Partition struct {
	Valid   []Transaction
	Invalid []Rejection
}
