package aging

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"payables/internal/core"
)

var (
	ErrMissingAmount  = errors.New("invoice has no amount due")
	ErrMissingDueDate = errors.New("invoice has no due date")
)

// Column headers in render order.
var Header = []string{"Number", "Due Date", "0-30", "31-60", "61-90", "90+"}

const (
	SubtotalLabel = "subtotals:"
	TotalLabel    = "Totals:"
)

// RowKind tags what a Row represents.
type RowKind int

const (
	RowVendor RowKind = iota
	RowInvoice
	RowSubtotal
	RowBlank
	RowTotal
)

// Row is one line of the report in the fixed six-column schema.
type Row struct {
	Kind    RowKind
	Number  string
	DueDate string
	D0To30  string
	D31To60 string
	D61To90 string
	Over90  string
}

// Cells returns the row in Header order.
func (r Row) Cells() []string {
	return []string{r.Number, r.DueDate, r.D0To30, r.D31To60, r.D61To90, r.Over90}
}

func (r *Row) setBuckets(t Totals) {
	r.D0To30 = formatAmount(t[Bucket0To30])
	r.D31To60 = formatAmount(t[Bucket31To60])
	r.D61To90 = formatAmount(t[Bucket61To90])
	r.Over90 = formatAmount(t[BucketOver90])
}

// formatAmount prints cents for non-zero amounts and a bare 0 for empty
// buckets.
func formatAmount(d decimal.Decimal) string {
	if d.IsZero() {
		return "0"
	}
	return d.StringFixed(2)
}

// VendorGroup is a vendor's invoices in fetch order.
type VendorGroup struct {
	Vendor   string
	Invoices []core.Invoice
}

// Group splits invoices by vendor name. Groups appear in the order their
// vendor was first seen and keep the input order within each group.
func Group(invoices []core.Invoice) []VendorGroup {
	var groups []VendorGroup
	index := make(map[string]int)
	for _, inv := range invoices {
		i, ok := index[inv.VendorName]
		if !ok {
			i = len(groups)
			index[inv.VendorName] = i
			groups = append(groups, VendorGroup{Vendor: inv.VendorName})
		}
		groups[i].Invoices = append(groups[i].Invoices, inv)
	}
	return groups
}

// Section is one vendor's block of the report.
type Section struct {
	Vendor    string
	Subtotals Totals
}

type Report struct {
	GeneratedAt time.Time
	Sections    []Section
	Totals      Totals
	Rows        []Row
}

// Build lays out groups as report rows, bucketing each amount relative to
// now. An invoice without an amount or due date aborts the whole report.
func Build(groups []VendorGroup, now time.Time) (Report, error) {
	rep := Report{GeneratedAt: now}

	for _, g := range groups {
		rep.Rows = append(rep.Rows, Row{
			Kind:    RowVendor,
			Number:  g.Vendor,
			DueDate: " ",
			D0To30:  " ",
			D31To60: " ",
			D61To90: " ",
			Over90:  " ",
		})

		var sub Totals
		for _, inv := range g.Invoices {
			if !inv.AmountDue.Valid {
				return Report{}, fmt.Errorf("invoice %s: %w", inv.ID, ErrMissingAmount)
			}
			if inv.DueDate == nil {
				return Report{}, fmt.Errorf("invoice %s: %w", inv.ID, ErrMissingDueDate)
			}
			b := BucketFor(*inv.DueDate, now)
			amount := inv.AmountDue.Decimal
			sub = sub.Add(b, amount)

			var cells Totals
			row := Row{Kind: RowInvoice, Number: inv.InvoiceNumber, DueDate: core.FormatDate(inv.DueDate)}
			row.setBuckets(cells.Add(b, amount))
			rep.Rows = append(rep.Rows, row)
		}

		subRow := Row{Kind: RowSubtotal, DueDate: SubtotalLabel}
		subRow.setBuckets(sub)
		rep.Rows = append(rep.Rows, subRow, Row{Kind: RowBlank})

		rep.Sections = append(rep.Sections, Section{Vendor: g.Vendor, Subtotals: sub})
		rep.Totals = rep.Totals.Merge(sub)
	}

	total := Row{Kind: RowTotal, DueDate: TotalLabel}
	total.setBuckets(rep.Totals)
	rep.Rows = append(rep.Rows, total)
	return rep, nil
}
