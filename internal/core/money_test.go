package core

import (
	"testing"
	"time"
)

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in  string
		out string
		ok  bool
	}{
		{"1", "1", true},
		{"1.0", "1", true},
		{"1.23", "1.23", true},
		{"1,23", "1.23", true},
		{"0.01", "0.01", true},
		{"1.005", "1.01", true}, // half-up rounding
		{" 2.50 ", "2.5", true},
		{"-1", "", false},
		{"+1", "", false},
		{"0", "", false},
		{"", "", false},
		{"abc", "", false},
		{"1.2.3", "", false},
	}
	for _, tc := range cases {
		got, err := ParseAmount(tc.in)
		if tc.ok {
			if err != nil {
				t.Fatalf("%q: unexpected error %v", tc.in, err)
			}
			if got.String() != tc.out {
				t.Fatalf("%q: want %s, got %s", tc.in, tc.out, got.String())
			}
		} else if err == nil {
			t.Fatalf("%q: expected error, got %s", tc.in, got)
		}
	}
}

func TestParsePrice(t *testing.T) {
	cases := []struct {
		in       string
		amount   string
		currency string
		ok       bool
	}{
		{"$1,234.56", "1234.56", "USD", true},
		{"EUR 1.234,56", "1234.56", "EUR", true},
		{"1.234,56 €", "1234.56", "EUR", true},
		{"£99", "99", "GBP", true},
		{"Total: 100.00", "100", "", true},
		{"12,34", "12.34", "", true},
		{"1,234", "1234", "", true},
		{"1.234.567", "1234567", "", true},
		{"CHF 1'250.50", "1250.5", "CHF", true},
		{"no number here", "", "", false},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			amount, currency, ok := ParsePrice(tc.in)
			if ok != tc.ok {
				t.Fatalf("ok: want %v, got %v", tc.ok, ok)
			}
			if !ok {
				return
			}
			if amount.String() != tc.amount {
				t.Errorf("amount: want %s, got %s", tc.amount, amount.String())
			}
			if currency != tc.currency {
				t.Errorf("currency: want %q, got %q", tc.currency, currency)
			}
		})
	}
}

func TestParseLooseDate(t *testing.T) {
	want := time.Date(2026, time.March, 5, 0, 0, 0, 0, time.UTC)
	inputs := []string{
		"2026-03-05",
		"03/05/2026",
		"3/5/2026",
		"03/05/26",
		"Mar 5, 2026",
		"March 5, 2026",
		"5 March 2026",
		"  Mar   5,  2026 ",
	}
	for _, in := range inputs {
		got, err := ParseLooseDate(in)
		if err != nil {
			t.Fatalf("%q: unexpected error %v", in, err)
		}
		if !got.Equal(want) {
			t.Fatalf("%q: want %v, got %v", in, want, got)
		}
	}

	for _, bad := range []string{"", "soon", "13/45/2026"} {
		if _, err := ParseLooseDate(bad); err == nil {
			t.Fatalf("%q: expected error", bad)
		}
	}
}
