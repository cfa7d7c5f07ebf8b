// Package services orchestrates the invoice repository, object storage,
// OCR and messaging behind the HTTP and CLI surfaces.
package services

import (
	"context"
	"time"

	"payables/internal/amqp"
	"payables/internal/core"
)

// InvoiceRepository is the invoice half of storage.SQLiteRepository.
type InvoiceRepository interface {
	SaveInvoice(ctx context.Context, inv core.Invoice) (core.Invoice, error)
	GetInvoice(ctx context.Context, userID, id string) (core.Invoice, error)
	FindInvoiceByContentHash(ctx context.Context, userID, hash string) (core.Invoice, error)
	ListInvoices(ctx context.Context, userID string, opts core.ListOptions) ([]core.Invoice, error)
	UpdatePaidStatus(ctx context.Context, userID, id string, paid bool) (core.Invoice, error)
	DeleteInvoice(ctx context.Context, userID, id string) error
	AddCategory(ctx context.Context, userID, invoiceID, name string) error
	RemoveCategory(ctx context.Context, userID, invoiceID, name string) error
}

type CalendarRepository interface {
	InvoicesDueBetween(ctx context.Context, userID string, from, to time.Time) ([]core.Invoice, error)
}

type StatsRepository interface {
	CountDueSoon(ctx context.Context, userID string, now time.Time) (int64, error)
	CountOverdue(ctx context.Context, userID string, now time.Time) (int64, error)
	CountPaid(ctx context.Context, userID string) (int64, error)
}

type VendorRepository interface {
	ListVendors(ctx context.Context, userID string) ([]core.VendorSummary, error)
}

type ReportRepository interface {
	GetAgingReport(ctx context.Context, userID, id string) (core.AgingReport, error)
	ListAgingReports(ctx context.Context, userID string) ([]core.AgingReport, error)
}

// Uploader stores a blob and returns its URI.
type Uploader interface {
	Upload(ctx context.Context, key string, body []byte, contentType string) (string, error)
}

type EventPublisher interface {
	PublishInvoiceIngested(ctx context.Context, msg *amqp.InvoiceIngestedMessage) error
}

type ReportRequester interface {
	PublishAgingReportRequest(ctx context.Context, userID, requestID string) error
}

// Invalidator drops cached entries by key prefix.
type Invalidator interface {
	DeletePrefix(prefix string) int
}
