// Package aging builds accounts-payable aging reports: open invoices
// grouped by vendor, each amount placed in a days-until-due bucket, with
// vendor subtotals and grand totals.
package aging

import (
	"time"

	"github.com/shopspring/decimal"
)

// Bucket is a days-until-due window.
type Bucket int

const (
	Bucket0To30 Bucket = iota
	Bucket31To60
	Bucket61To90
	BucketOver90
)

// Buckets lists every bucket in column order.
var Buckets = [...]Bucket{Bucket0To30, Bucket31To60, Bucket61To90, BucketOver90}

const day = 24 * time.Hour

func (b Bucket) String() string {
	switch b {
	case Bucket0To30:
		return "0-30"
	case Bucket31To60:
		return "31-60"
	case Bucket61To90:
		return "61-90"
	default:
		return "90+"
	}
}

// BucketFor places an invoice due at due into its bucket relative to now.
// Windows are inclusive on the upper bound. A due date already in the past
// falls into 90+.
func BucketFor(due, now time.Time) Bucket {
	d := due.Sub(now)
	switch {
	case d < 0:
		return BucketOver90
	case d <= 30*day:
		return Bucket0To30
	case d <= 60*day:
		return Bucket31To60
	case d <= 90*day:
		return Bucket61To90
	default:
		return BucketOver90
	}
}

// Totals holds one running sum per bucket, indexed by Bucket.
type Totals [len(Buckets)]decimal.Decimal

// Add returns t with amount added to bucket b.
func (t Totals) Add(b Bucket, amount decimal.Decimal) Totals {
	t[b] = t[b].Add(amount)
	return t
}

// Sum is the total across every bucket.
func (t Totals) Sum() decimal.Decimal {
	s := decimal.Zero
	for _, v := range t {
		s = s.Add(v)
	}
	return s
}

// Merge returns the bucket-wise sum of t and o.
func (t Totals) Merge(o Totals) Totals {
	for i := range t {
		t[i] = t[i].Add(o[i])
	}
	return t
}
