package services

import (
	"context"
	"testing"

	"savings/internal/core"
)

// scenarioInput is the worked example used across the filter and returns tests.
func scenarioInput() FilterInput {
	return FilterInput{
		Overrides: []core.OverridePeriod{
			{Fixed: num("0"), Start: ts("2023-07-01 00:00:00"), End: ts("2023-07-31 23:59:59")},
		},
		Additions: []core.AdditivePeriod{
			{Extra: num("25"), Start: ts("2023-10-01 08:00:00"), End: ts("2023-12-31 19:59:59")},
		},
		Memberships: []core.MembershipPeriod{
			{Start: ts("2023-01-01 00:00:00"), End: ts("2023-12-31 23:59:59")},
			{Start: ts("2023-03-01 00:00:00"), End: ts("2023-11-30 23:59:59")},
		},
		Wage: num("50000"),
		Expenses: []core.Expense{
			{Date: ts("2023-02-28 15:49:20"), Amount: num("375")},
			{Date: ts("2023-07-01 21:59:00"), Amount: num("620")},
			{Date: ts("2023-10-12 20:15:30"), Amount: num("250")},
			{Date: ts("2023-12-17 08:09:45"), Amount: num("480")},
			{Date: ts("2023-12-17 10:09:45"), Amount: num("-10")},
		},
	}
}

func TestFilter_Scenario(t *testing.T) {
	got := Filter(context.Background(), scenarioInput())

	want := []struct {
		date     string
		remanent string
		inPeriod bool
	}{
		{"2023-02-28 15:49:20", "25", true},
		{"2023-10-12 20:15:30", "75", true},
		{"2023-12-17 08:09:45", "45", true},
	}
	if len(got.Valid) != len(want) {
		t.Fatalf("got %d valid, want %d: %+v", len(got.Valid), len(want), got.Valid)
	}
	for i, w := range want {
		v := got.Valid[i]
		if v.Date.String() != w.date {
			t.Errorf("valid[%d].Date = %s, want %s", i, v.Date, w.date)
		}
		if !v.Remanent.Equal(num(w.remanent)) {
			t.Errorf("valid[%d].Remanent = %s, want %s", i, v.Remanent, w.remanent)
		}
		if v.InPeriod == nil || *v.InPeriod != w.inPeriod {
			t.Errorf("valid[%d].InPeriod = %v, want %v", i, v.InPeriod, w.inPeriod)
		}
	}

	if len(got.Invalid) != 1 || got.Invalid[0].Message != MsgNegativeAmount {
		t.Fatalf("expected one negative-amount rejection, got %+v", got.Invalid)
	}
	if got.Invalid[0].Ceiling.Valid || got.Invalid[0].Remanent.Valid {
		t.Error("raw rejections must not carry ceiling or remanent")
	}
}

func TestFilter_DropsNonPositiveRemanentSilently(t *testing.T) {
	in := FilterInput{
		Overrides: []core.OverridePeriod{
			{Fixed: num("0"), Start: ts("2023-07-01 00:00:00"), End: ts("2023-07-31 23:59:59")},
		},
		Expenses: []core.Expense{
			{Date: ts("2023-07-10 12:00:00"), Amount: num("620")}, // override to 0
			{Date: ts("2023-08-10 12:00:00"), Amount: num("400")}, // base remanent 0
		},
	}

	got := Filter(context.Background(), in)
	if len(got.Valid) != 0 {
		t.Errorf("expected no valid transactions, got %+v", got.Valid)
	}
	if len(got.Invalid) != 0 {
		t.Errorf("dropped transactions must not be rejected, got %+v", got.Invalid)
	}
}

func TestFilter_Duplicates(t *testing.T) {
	in := FilterInput{
		Expenses: []core.Expense{
			{Date: ts("2023-01-01 10:00:00"), Amount: num("250")},
			{Date: ts("2023-01-01 10:00:00"), Amount: num("250.0")},
			{Date: ts("2023-01-01 10:00:00"), Amount: num("251")},
		},
	}
	got := Filter(context.Background(), in)
	if len(got.Valid) != 2 {
		t.Fatalf("got %d valid, want 2", len(got.Valid))
	}
	if len(got.Invalid) != 1 || got.Invalid[0].Message != MsgDuplicate {
		t.Fatalf("expected one duplicate rejection, got %+v", got.Invalid)
	}
	for _, v := range got.Valid {
		if v.InPeriod == nil || *v.InPeriod {
			t.Errorf("without k periods nothing is in period, got %v", v.InPeriod)
		}
	}
}

func TestFilter_OverrideThenAddition(t *testing.T) {
	in := FilterInput{
		Overrides: []core.OverridePeriod{
			{Fixed: num("10"), Start: ts("2023-01-01 00:00:00"), End: ts("2023-12-31 00:00:00")},
		},
		Additions: []core.AdditivePeriod{
			{Extra: num("5"), Start: ts("2023-06-01 00:00:00"), End: ts("2023-06-30 00:00:00")},
			{Extra: num("7"), Start: ts("2023-06-15 00:00:00"), End: ts("2023-07-15 00:00:00")},
		},
		Memberships: []core.MembershipPeriod{
			{Start: ts("2023-06-20 00:00:00"), End: ts("2023-06-20 00:00:00")},
		},
		Expenses: []core.Expense{
			{Date: ts("2023-06-20 00:00:00"), Amount: num("199.5")},
			{Date: ts("2023-07-01 00:00:00"), Amount: num("199.5")},
		},
	}
	got := Filter(context.Background(), in)
	if len(got.Valid) != 2 {
		t.Fatalf("got %d valid, want 2", len(got.Valid))
	}
	if !got.Valid[0].Remanent.Equal(num("22")) || !*got.Valid[0].InPeriod {
		t.Errorf("first: remanent %s inPeriod %v, want 22 true", got.Valid[0].Remanent, *got.Valid[0].InPeriod)
	}
	if !got.Valid[1].Remanent.Equal(num("17")) || *got.Valid[1].InPeriod {
		t.Errorf("second: remanent %s inPeriod %v, want 17 false", got.Valid[1].Remanent, *got.Valid[1].InPeriod)
	}
	if !got.Valid[0].Ceiling.Equal(num("200")) {
		t.Errorf("ceiling must stay the base ceiling, got %s", got.Valid[0].Ceiling)
	}
}
