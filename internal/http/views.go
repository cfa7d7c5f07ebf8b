package http

import (
	"time"

	"payables/internal/core"
	"payables/internal/services"
)

const isoDate = "2006-01-02"

type invoiceResponse struct {
	ID            string     `json:"id"`
	VendorName    string     `json:"vendor_name"`
	AmountDue     *string    `json:"amount_due"`
	Currency      string     `json:"currency"`
	DueDate       *string    `json:"due_date"`
	InvoiceNumber string     `json:"invoice_id"`
	IsPaid        bool       `json:"is_paid"`
	RawVendorName string     `json:"raw_vendor_name"`
	RawAmountDue  string     `json:"raw_amount_due"`
	RawDueDate    string     `json:"raw_due_date"`
	ImageURI      string     `json:"image_uri"`
	Categories    []string   `json:"categories"`
	CreatedOn     time.Time  `json:"created_on"`
	UpdatedOn     *time.Time `json:"updated_on,omitempty"`
}

func newInvoiceResponse(inv core.Invoice) invoiceResponse {
	resp := invoiceResponse{
		ID:            inv.ID,
		VendorName:    inv.VendorName,
		Currency:      inv.Currency,
		InvoiceNumber: inv.InvoiceNumber,
		IsPaid:        inv.IsPaid,
		RawVendorName: inv.RawVendorName,
		RawAmountDue:  inv.RawAmountDue,
		RawDueDate:    inv.RawDueDate,
		ImageURI:      inv.ImageURI,
		Categories:    inv.Categories,
		CreatedOn:     inv.CreatedOn,
		UpdatedOn:     inv.UpdatedOn,
	}
	if resp.Categories == nil {
		resp.Categories = []string{}
	}
	if inv.AmountDue.Valid {
		s := inv.AmountDue.Decimal.StringFixed(2)
		resp.AmountDue = &s
	}
	if inv.DueDate != nil {
		s := inv.DueDate.UTC().Format(isoDate)
		resp.DueDate = &s
	}
	return resp
}

func newInvoiceResponses(invs []core.Invoice) []invoiceResponse {
	out := make([]invoiceResponse, 0, len(invs))
	for _, inv := range invs {
		out = append(out, newInvoiceResponse(inv))
	}
	return out
}

type reportResponse struct {
	ID        string    `json:"id"`
	CSVURI    string    `json:"csv_uri"`
	CreatedOn time.Time `json:"created_on"`
}

func newReportResponse(rep core.AgingReport) reportResponse {
	return reportResponse{ID: rep.ID, CSVURI: rep.CSVURI, CreatedOn: rep.CreatedOn}
}

type dashboardResponse struct {
	DueSoon int64 `json:"due_soon"`
	Overdue int64 `json:"overdue"`
	Paid    int64 `json:"paid"`
}

type calendarDayResponse struct {
	Year        int               `json:"year"`
	Month       int               `json:"month"`
	Day         int               `json:"day"`
	Active      bool              `json:"active"`
	InvoicesDue []invoiceResponse `json:"invoices_due"`
}

type calendarResponse struct {
	Year  int                     `json:"year"`
	Month int                     `json:"month"`
	Title string                  `json:"title"`
	Weeks [][]calendarDayResponse `json:"weeks"`
}

func newCalendarResponse(m services.CalendarMonth) calendarResponse {
	resp := calendarResponse{
		Year:  m.Year,
		Month: int(m.Month),
		Title: m.Title,
		Weeks: make([][]calendarDayResponse, 0, len(m.Weeks)),
	}
	for _, week := range m.Weeks {
		days := make([]calendarDayResponse, 0, len(week))
		for _, d := range week {
			days = append(days, calendarDayResponse{
				Year:        d.Year,
				Month:       int(d.Month),
				Day:         d.Day,
				Active:      d.Active,
				InvoicesDue: newInvoiceResponses(d.InvoicesDue),
			})
		}
		resp.Weeks = append(resp.Weeks, days)
	}
	return resp
}
