package aging

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"payables/internal/core"
)

// InvoiceSource loads the unpaid invoices of a user due on or after from,
// ordered by due date.
type InvoiceSource interface {
	ListOpenInvoicesDueFrom(ctx context.Context, userID string, from time.Time) ([]core.Invoice, error)
}

// Uploader stores a rendered report and returns its URI.
type Uploader interface {
	Upload(ctx context.Context, key string, body []byte, contentType string) (string, error)
}

// Recorder persists report metadata.
type Recorder interface {
	SaveAgingReport(ctx context.Context, rec core.AgingReport) error
}

// Generator produces, uploads and records aging reports.
type Generator struct {
	source   InvoiceSource
	uploader Uploader
	recorder Recorder
	title    string
	now      func() time.Time
	newID    func() string
}

type Option func(*Generator)

func WithTitle(title string) Option {
	return func(g *Generator) { g.title = title }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(g *Generator) { g.now = now }
}

func WithIDs(newID func() string) Option {
	return func(g *Generator) { g.newID = newID }
}

func NewGenerator(source InvoiceSource, uploader Uploader, recorder Recorder, opts ...Option) *Generator {
	g := &Generator{
		source:   source,
		uploader: uploader,
		recorder: recorder,
		title:    DefaultTitle,
		now:      func() time.Time { return time.Now().UTC() },
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *Generator) Title() string { return g.title }

// FetchGroups loads the user's open invoices due from now on and groups them
// by vendor.
func (g *Generator) FetchGroups(ctx context.Context, userID string, now time.Time) ([]VendorGroup, error) {
	if userID == "" {
		return nil, core.ErrEmptyUserID
	}
	invoices, err := g.source.ListOpenInvoicesDueFrom(ctx, userID, now)
	if err != nil {
		return nil, fmt.Errorf("fetch open invoices: %w", err)
	}
	return Group(invoices), nil
}

// Build fetches and lays out the report for userID without storing it.
func (g *Generator) Build(ctx context.Context, userID string) (Report, error) {
	now := g.now()
	groups, err := g.FetchGroups(ctx, userID, now)
	if err != nil {
		return Report{}, err
	}
	return Build(groups, now)
}

// Generate builds the report, uploads its CSV rendering and records the
// metadata. Nothing is recorded unless the upload succeeded.
func (g *Generator) Generate(ctx context.Context, userID string) (core.AgingReport, error) {
	rep, err := g.Build(ctx, userID)
	if err != nil {
		return core.AgingReport{}, err
	}
	return g.Publish(ctx, userID, rep)
}

// Publish uploads the CSV rendering of an already built rep and records it,
// so the stored file matches what the caller rendered from rep.
func (g *Generator) Publish(ctx context.Context, userID string, rep Report) (core.AgingReport, error) {
	if userID == "" {
		return core.AgingReport{}, core.ErrEmptyUserID
	}
	body, err := RenderCSV(rep, g.title)
	if err != nil {
		return core.AgingReport{}, err
	}

	id := g.newID()
	key := ReportKey(userID, id, rep.GeneratedAt)
	uri, err := g.uploader.Upload(ctx, key, body, "text/csv")
	if err != nil {
		return core.AgingReport{}, fmt.Errorf("upload report: %w", err)
	}

	rec := core.AgingReport{ID: id, UserID: userID, CSVURI: uri, CreatedOn: rep.GeneratedAt}
	if err := g.recorder.SaveAgingReport(ctx, rec); err != nil {
		return core.AgingReport{}, fmt.Errorf("save report metadata: %w", err)
	}

	slog.InfoContext(ctx, "Aging report generated",
		"report_id", id,
		"user_id", userID,
		"vendors", len(rep.Sections),
		"total", rep.Totals.Sum().String(),
		"uri", uri)
	return rec, nil
}

// ReportKey is the object key a report is uploaded under.
func ReportKey(userID, id string, at time.Time) string {
	return fmt.Sprintf("reports/%s/aging-%s-%s.csv", userID, at.UTC().Format("20060102-150405"), id)
}
