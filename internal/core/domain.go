package core

import (
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// TimestampLayout is the wire format of every date field: naive, second precision.
const TimestampLayout = "2006-01-02 15:04:05"

type (
	// Timestamp is a naive calendar instant. It is always stored in UTC and
	// never converted between zones.
	Timestamp struct {
		time.Time
	}

	// Expense is a raw spending event as submitted by a caller.
	Expense struct {
		Date   Timestamp
		Amount decimal.Decimal
	}

	// Transaction is an expense enriched with its rounding ceiling and the
	// remanent that gets invested.
	Transaction struct {
		Date     Timestamp
		Amount   decimal.Decimal
		Ceiling  decimal.Decimal
		Remanent decimal.Decimal
		InPeriod *bool // set only by the filter pipeline
	}

	// Rejection is a transaction that did not make it through sanitizing.
	// Ceiling and Remanent are only valid when they were known at rejection time.
	Rejection struct {
		Date     Timestamp
		Amount   decimal.Decimal
		Ceiling  decimal.NullDecimal
		Remanent decimal.NullDecimal
		Message  string
	}

	// OverridePeriod (q) replaces the remanent with Fixed while active.
	OverridePeriod struct {
		Fixed decimal.Decimal
		Start Timestamp
		End   Timestamp
	}

	// AdditivePeriod (p) adds Extra on top of the remanent while active.
	AdditivePeriod struct {
		Extra decimal.Decimal
		Start Timestamp
		End   Timestamp
	}

	// MembershipPeriod (k) marks transactions and defines one savings bucket.
	MembershipPeriod struct {
		Start Timestamp
		End   Timestamp
	}
)

var (
	ErrEmptyTimestamp   = errors.New("timestamp cannot be empty")
	ErrInvalidTimestamp = errors.New("timestamp must match yyyy-MM-dd HH:mm:ss")
)

// ParseTimestamp parses s using TimestampLayout.
func ParseTimestamp(s string) (Timestamp, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Timestamp{}, ErrEmptyTimestamp
	}
	t, err := time.ParseInLocation(TimestampLayout, s, time.UTC)
	if err != nil {
		return Timestamp{}, ErrInvalidTimestamp
	}
	return Timestamp{Time: t}, nil
}

// MustTimestamp is ParseTimestamp for literals known to be valid.
func MustTimestamp(s string) Timestamp {
	ts, err := ParseTimestamp(s)
	if err != nil {
		panic("core: invalid timestamp literal " + s)
	}
	return ts
}

// NewTimestamp builds a Timestamp from its calendar fields.
func NewTimestamp(year, month, day, hour, min, sec int) Timestamp {
	return Timestamp{Time: time.Date(year, time.Month(month), day, hour, min, sec, 0, time.UTC)}
}

func (t Timestamp) String() string {
	return t.Format(TimestampLayout)
}

// Within reports whether t lies in [start, end], both bounds inclusive.
func (t Timestamp) Within(start, end Timestamp) bool {
	return !t.Before(start.Time) && !t.After(end.Time)
}

// MarshalText implements encoding.TextMarshaler.
func (t Timestamp) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *Timestamp) UnmarshalText(b []byte) error {
	ts, err := ParseTimestamp(string(b))
	if err != nil {
		return err
	}
	*t = ts
	return nil
}

// MarshalJSON shadows the promoted time.Time method so the wire layout is used.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// UnmarshalJSON accepts only the wire layout.
func (t *Timestamp) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return ErrInvalidTimestamp
	}
	return t.UnmarshalText([]byte(s))
}

// Inert reports whether the period can never match anything (start after end).
func (p OverridePeriod) Inert() bool { return p.Start.After(p.End.Time) }

// Inert reports whether the period can never match anything (start after end).
func (p AdditivePeriod) Inert() bool { return p.Start.After(p.End.Time) }

// Inert reports whether the period can never match anything (start after end).
func (p MembershipPeriod) Inert() bool { return p.Start.After(p.End.Time) }

// Contains reports whether ts falls inside the period, bounds inclusive.
func (p MembershipPeriod) Contains(ts Timestamp) bool {
	return ts.Within(p.Start, p.End)
}

// Reject builds a Rejection for a raw expense; ceiling and remanent are unknown.
func (e Expense) Reject(message string) Rejection {
	return Rejection{Date: e.Date, Amount: e.Amount, Message: message}
}

// Reject builds a Rejection that keeps every enriched field.
func (t Transaction) Reject(message string) Rejection {
	return Rejection{
		Date:     t.Date,
		Amount:   t.Amount,
		Ceiling:  decimal.NewNullDecimal(t.Ceiling),
		Remanent: decimal.NewNullDecimal(t.Remanent),
		Message:  message,
	}
}

// WithInPeriod returns a copy of t with the membership flag set.
func (t Transaction) WithInPeriod(in bool) Transaction {
	t.InPeriod = &in
	return t
}
