// Package core holds the invoice domain types and the parsing helpers used
// to turn OCR text into amounts and dates.
package core

import (
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ParseAmount parses a positive decimal amount. Both dot and comma are
// accepted as the decimal separator; the result is rounded to cents.
//
// Examples:
//
//	ParseAmount("12.34")  -> 12.34
//	ParseAmount("12,34")  -> 12.34
//	ParseAmount("12.345") -> 12.35 (half away from zero)
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return decimal.Zero, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(strings.ReplaceAll(s, ",", "."))
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	d = d.Round(2)
	if !d.IsPositive() {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}

var (
	currencySymbols = []struct{ symbol, code string }{
		{"US$", "USD"}, {"C$", "CAD"}, {"A$", "AUD"},
		{"$", "USD"}, {"€", "EUR"}, {"£", "GBP"}, {"¥", "JPY"}, {"₹", "INR"},
	}
	currencyCodeRe = regexp.MustCompile(`\b(USD|EUR|GBP|CAD|AUD|JPY|CHF|INR|MXN)\b`)
	numberRe       = regexp.MustCompile(`\d[\d.,' ]*\d|\d`)
)

// ParsePrice extracts an amount and currency code from free text such as
// "$1,234.56", "EUR 1.234,56" or "Total: 99". ok is false when no number
// could be found. The currency is "" when none is recognised.
func ParsePrice(text string) (amount decimal.Decimal, currency string, ok bool) {
	if m := currencyCodeRe.FindString(strings.ToUpper(text)); m != "" {
		currency = m
	} else {
		for _, cs := range currencySymbols {
			if strings.Contains(text, cs.symbol) {
				currency = cs.code
				break
			}
		}
	}

	raw := numberRe.FindString(text)
	if raw == "" {
		return decimal.Zero, currency, false
	}
	d, err := decimal.NewFromString(normalizeNumber(raw))
	if err != nil {
		return decimal.Zero, currency, false
	}
	return d.Round(2), currency, true
}

// normalizeNumber rewrites a localized number into plain "1234.56" form.
// When both separators occur the last one is the decimal mark. A lone
// separator is a decimal mark only if one or two digits follow it.
func normalizeNumber(s string) string {
	s = strings.NewReplacer(" ", "", "'", "").Replace(s)
	lastDot, lastComma := strings.LastIndex(s, "."), strings.LastIndex(s, ",")

	var dec byte
	switch {
	case lastDot >= 0 && lastComma >= 0:
		if lastDot > lastComma {
			dec = '.'
		} else {
			dec = ','
		}
	case lastDot >= 0 || lastComma >= 0:
		sep := byte('.')
		if lastComma >= 0 {
			sep = ','
		}
		idx := strings.LastIndexByte(s, sep)
		if strings.Count(s, string(sep)) == 1 && len(s)-idx-1 <= 2 {
			dec = sep
		}
	}

	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= '0' && c <= '9':
			b.WriteByte(c)
		case c == dec && i == strings.LastIndexByte(s, dec):
			b.WriteByte('.')
		}
	}
	return b.String()
}

var dateLayouts = []string{
	"2006-01-02",
	"01/02/2006",
	"1/2/2006",
	"01-02-2006",
	"01/02/06",
	"1/2/06",
	"Jan 2, 2006",
	"January 2, 2006",
	"Jan 2 2006",
	"January 2 2006",
	"2 Jan 2006",
	"02 Jan 2006",
	"2 January 2006",
	"Jan. 2, 2006",
	"2006/01/02",
	time.RFC3339,
}

// ParseLooseDate parses a date in one of the layouts commonly printed on
// invoices. Month-first is preferred for ambiguous numeric dates.
func ParseLooseDate(s string) (time.Time, error) {
	s = strings.Join(strings.Fields(s), " ")
	if s == "" {
		return time.Time{}, ErrInvalidDate
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, ErrInvalidDate
}
