package core

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	FilterAll  InvoiceFilter = "all"
	FilterPaid InvoiceFilter = "paid"
	FilterDue  InvoiceFilter = "due"
)

const (
	SortDueDate       SortKey = "due_date"
	SortAmountDue     SortKey = "amount_due"
	SortVendorName    SortKey = "vendor_name"
	SortCreatedOn     SortKey = "created_on"
	SortInvoiceNumber SortKey = "invoice_id"
)

const (
	DefaultListLimit = 100
	MaxListLimit     = 500
)

// DateLayout is the month/day/year layout used in reports and views.
const DateLayout = "01/02/2006"

type (
	InvoiceFilter string

	// SortKey names an invoice attribute that listings can be ordered by.
	SortKey string

	Invoice struct {
		ID            string
		UserID        string
		VendorName    string
		AmountDue     decimal.NullDecimal
		Currency      string
		DueDate       *time.Time
		InvoiceNumber string
		IsPaid        bool

		RawVendorName string
		RawAmountDue  string
		RawDueDate    string

		ImageURI    string
		ContentHash string
		Categories  []string
		CreatedOn   time.Time
		UpdatedOn   *time.Time
	}

	Vendor struct {
		ID           string
		UserID       string
		Name         string
		Aliases      []string
		ContactEmail string
		CreatedOn    time.Time
		UpdatedOn    *time.Time
	}

	// AgingReport is the immutable metadata record of an uploaded aging report.
	AgingReport struct {
		ID        string
		UserID    string
		CSVURI    string
		CreatedOn time.Time
	}

	ListOptions struct {
		Filter InvoiceFilter
		Sort   SortKey
		Desc   bool
		Limit  int
		Offset int
	}
)

var (
	ErrInvalidAmount     = errors.New("invalid amount")
	ErrInvalidDate       = errors.New("invalid date")
	ErrInvalidSortKey    = errors.New("invalid sort key")
	ErrInvalidFilter     = errors.New("invalid filter")
	ErrEmptyUserID       = errors.New("empty user id")
	ErrEmptyCategoryName = errors.New("empty category name")
)

func ParseInvoiceFilter(s string) (InvoiceFilter, error) {
	switch f := InvoiceFilter(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FilterAll, nil
	case FilterAll, FilterPaid, FilterDue:
		return f, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidFilter, s)
	}
}

// ParseSortKey validates s against the known sort keys. The empty string
// selects due date ordering.
func ParseSortKey(s string) (SortKey, error) {
	k := SortKey(strings.ToLower(strings.TrimSpace(s)))
	if k == "" {
		return SortDueDate, nil
	}
	if _, ok := sortColumns[k]; !ok {
		return "", fmt.Errorf("%w: %q", ErrInvalidSortKey, s)
	}
	return k, nil
}

var sortColumns = map[SortKey]string{
	SortDueDate:       "due_date",
	SortAmountDue:     "CAST(amount_due AS REAL)",
	SortVendorName:    "vendor_name COLLATE NOCASE",
	SortCreatedOn:     "created_on",
	SortInvoiceNumber: "invoice_id",
}

// Column returns the SQL ordering expression for k.
func (k SortKey) Column() (string, error) {
	col, ok := sortColumns[k]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrInvalidSortKey, string(k))
	}
	return col, nil
}

// Less reports whether a sorts before b under k. Invoices without a value
// for the key sort first, matching SQLite's NULL ordering.
func (k SortKey) Less(a, b Invoice) bool {
	switch k {
	case SortAmountDue:
		if !a.AmountDue.Valid || !b.AmountDue.Valid {
			return !a.AmountDue.Valid && b.AmountDue.Valid
		}
		return a.AmountDue.Decimal.LessThan(b.AmountDue.Decimal)
	case SortVendorName:
		return strings.ToLower(a.VendorName) < strings.ToLower(b.VendorName)
	case SortCreatedOn:
		return a.CreatedOn.Before(b.CreatedOn)
	case SortInvoiceNumber:
		return a.InvoiceNumber < b.InvoiceNumber
	default:
		if a.DueDate == nil || b.DueDate == nil {
			return a.DueDate == nil && b.DueDate != nil
		}
		return a.DueDate.Before(*b.DueDate)
	}
}

// SortInvoices orders invs in place, keeping the relative order of equal elements.
func SortInvoices(invs []Invoice, k SortKey, desc bool) {
	sort.SliceStable(invs, func(i, j int) bool {
		if desc {
			return k.Less(invs[j], invs[i])
		}
		return k.Less(invs[i], invs[j])
	})
}

// Normalize fills defaults and clamps the page size.
func (o ListOptions) Normalize() (ListOptions, error) {
	f, err := ParseInvoiceFilter(string(o.Filter))
	if err != nil {
		return o, err
	}
	k, err := ParseSortKey(string(o.Sort))
	if err != nil {
		return o, err
	}
	o.Filter, o.Sort = f, k
	if o.Limit <= 0 {
		o.Limit = DefaultListLimit
	}
	if o.Limit > MaxListLimit {
		o.Limit = MaxListLimit
	}
	if o.Offset < 0 {
		o.Offset = 0
	}
	return o, nil
}

// Matches reports whether inv passes filter f.
func (f InvoiceFilter) Matches(inv Invoice) bool {
	switch f {
	case FilterPaid:
		return inv.IsPaid
	case FilterDue:
		return !inv.IsPaid
	default:
		return true
	}
}

// FormatDate renders t as MM/DD/YYYY, or "" for nil.
func FormatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(DateLayout)
}

func (i Invoice) HasCategory(name string) bool {
	for _, c := range i.Categories {
		if strings.EqualFold(c, name) {
			return true
		}
	}
	return false
}
