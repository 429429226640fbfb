package core

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestCeiling(t *testing.T) {
	cases := []struct {
		in  string
		out string
	}{
		{"250", "300"},
		{"400", "400"},
		{"375", "400"},
		{"620", "700"},
		{"0", "0"},
		{"0.01", "100"},
		{"99.999", "100"},
		{"100.5", "200"},
		{"-10", "0"},
		{"-150", "-100"},
		{"-200", "-200"},
	}
	for _, tc := range cases {
		got := Ceiling(decimal.RequireFromString(tc.in))
		if !got.Equal(decimal.RequireFromString(tc.out)) {
			t.Fatalf("Ceiling(%s) = %s, want %s", tc.in, got, tc.out)
		}
	}
}

func TestRound(t *testing.T) {
	date := NewTimestamp(2023, 10, 12, 20, 15, 30)

	tx := Round(date, decimal.NewFromInt(250))
	if !tx.Ceiling.Equal(decimal.NewFromInt(300)) || !tx.Remanent.Equal(decimal.NewFromInt(50)) {
		t.Fatalf("250 -> ceiling=%s remanent=%s, want 300/50", tx.Ceiling, tx.Remanent)
	}
	if !tx.Date.Equal(date.Time) {
		t.Fatalf("date changed: %s", tx.Date)
	}
	if tx.InPeriod != nil {
		t.Fatalf("rounding must not set the membership flag")
	}

	aligned := Round(date, decimal.NewFromInt(400))
	if !aligned.Ceiling.Equal(decimal.NewFromInt(400)) || !aligned.Remanent.IsZero() {
		t.Fatalf("400 -> ceiling=%s remanent=%s, want 400/0", aligned.Ceiling, aligned.Remanent)
	}

	again := Round(date, aligned.Ceiling)
	if !again.Ceiling.Equal(aligned.Ceiling) || !again.Remanent.IsZero() {
		t.Fatalf("rounding a ceiling must be idempotent, got %s/%s", again.Ceiling, again.Remanent)
	}
}

func TestRoundInvariantForNonNegativeAmounts(t *testing.T) {
	for _, s := range []string{"0", "0.5", "1", "49.99", "100", "101", "1234.56", "99999.999999"} {
		a := decimal.RequireFromString(s)
		tx := Round(Timestamp{}, a)
		if tx.Ceiling.LessThan(a) {
			t.Fatalf("%s: ceiling %s below amount", s, tx.Ceiling)
		}
		if tx.Remanent.IsNegative() {
			t.Fatalf("%s: negative remanent %s", s, tx.Remanent)
		}
		if !tx.Ceiling.Sub(a).Equal(tx.Remanent) {
			t.Fatalf("%s: remanent %s != ceiling - amount", s, tx.Remanent)
		}
		if tx.Remanent.GreaterThanOrEqual(CeilingStep) {
			t.Fatalf("%s: remanent %s not below step", s, tx.Remanent)
		}
	}
}

func TestRoundAllKeepsOrder(t *testing.T) {
	in := []Expense{
		{Date: NewTimestamp(2023, 12, 17, 8, 9, 45), Amount: decimal.NewFromInt(480)},
		{Date: NewTimestamp(2023, 2, 28, 15, 49, 20), Amount: decimal.NewFromInt(375)},
	}
	out := RoundAll(in)
	if len(out) != 2 {
		t.Fatalf("expected 2 transactions, got %d", len(out))
	}
	if !out[0].Remanent.Equal(decimal.NewFromInt(20)) || !out[1].Remanent.Equal(decimal.NewFromInt(25)) {
		t.Fatalf("unexpected remanents %s, %s", out[0].Remanent, out[1].Remanent)
	}
}

func TestRoundMoney(t *testing.T) {
	cases := map[string]string{
		"86.8751":  "86.88",
		"44.945":   "44.95",
		"1.005":    "1.01",
		"2.004":    "2",
		"-1.005":   "-1.01",
		"1725":     "1725",
		"0.000001": "0",
	}
	for in, want := range cases {
		got := RoundMoney(decimal.RequireFromString(in))
		if !got.Equal(decimal.RequireFromString(want)) {
			t.Fatalf("RoundMoney(%s) = %s, want %s", in, got, want)
		}
	}
}
