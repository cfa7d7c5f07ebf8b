package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// DashboardStats counts a user's invoices by payment state.
type DashboardStats struct {
	DueSoon int64
	Overdue int64
	Paid    int64
}

// VendorSummary is a vendor with roll-ups over its invoices.
type VendorSummary struct {
	Vendor
	TotalPaid    decimal.Decimal
	TotalDue     decimal.Decimal
	InvoiceCount int64
	LastAddedOn  *time.Time
}
