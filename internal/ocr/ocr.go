// Package ocr turns uploaded invoice images and PDFs into raw invoice
// fields and normalizes those fields into typed values.
package ocr

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"payables/internal/core"
)

// RawInvoice holds the field strings as read from the document. Empty
// means the field was not found.
type RawInvoice struct {
	TotalDue      string `json:"TOTAL"`
	InvoiceNumber string `json:"INVOICE_RECEIPT_ID"`
	DueDate       string `json:"DUE_DATE"`
	VendorName    string `json:"VENDOR_NAME"`
}

// IsComplete reports whether every field was found.
func (r RawInvoice) IsComplete() bool {
	return r.TotalDue != "" && r.InvoiceNumber != "" && r.DueDate != "" && r.VendorName != ""
}

// FormattedAmount parses the total into an amount and currency code.
func (r RawInvoice) FormattedAmount() (decimal.NullDecimal, string) {
	if r.TotalDue == "" {
		return decimal.NullDecimal{}, ""
	}
	amount, currency, ok := core.ParsePrice(r.TotalDue)
	if !ok {
		return decimal.NullDecimal{}, currency
	}
	return decimal.NewNullDecimal(amount), currency
}

func (r RawInvoice) FormattedDueDate() *time.Time {
	t, err := core.ParseLooseDate(r.DueDate)
	if err != nil {
		return nil
	}
	return &t
}

// FormattedVendorName collapses runs of whitespace.
func (r RawInvoice) FormattedVendorName() string {
	return strings.Join(strings.Fields(r.VendorName), " ")
}

// ToInvoice builds an unsaved invoice for userID from the raw fields.
func (r RawInvoice) ToInvoice(userID string) core.Invoice {
	amount, currency := r.FormattedAmount()
	return core.Invoice{
		UserID:        userID,
		VendorName:    r.FormattedVendorName(),
		AmountDue:     amount,
		Currency:      currency,
		DueDate:       r.FormattedDueDate(),
		InvoiceNumber: strings.TrimSpace(r.InvoiceNumber),
		RawVendorName: r.VendorName,
		RawAmountDue:  r.TotalDue,
		RawDueDate:    r.DueDate,
	}
}

// Extractor reads invoice fields from a document.
type Extractor interface {
	Extract(ctx context.Context, contentType string, data []byte) (RawInvoice, error)
}

var contentTypeExt = map[string]string{
	"image/png":       "png",
	"image/jpeg":      "jpeg",
	"image/jpg":       "jpg",
	"application/pdf": "pdf",
}

// Extension validates contentType against the accepted upload types and
// returns the file extension stored objects get.
func Extension(contentType string) (string, error) {
	ct := strings.ToLower(strings.TrimSpace(strings.Split(contentType, ";")[0]))
	ext, ok := contentTypeExt[ct]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedContentType, contentType)
	}
	return ext, nil
}

// None is used when no OCR provider is configured; uploads are stored with
// empty fields.
type None struct{}

func (None) Extract(context.Context, string, []byte) (RawInvoice, error) {
	return RawInvoice{}, nil
}
