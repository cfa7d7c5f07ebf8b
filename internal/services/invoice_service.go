package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"payables/internal/amqp"
	"payables/internal/cache"
	"payables/internal/core"
	"payables/internal/log"
	"payables/internal/ocr"
	"payables/internal/storage"
)

const DefaultMaxUploadBytes = 10 << 20

// Upload is an invoice document as received from the client.
type Upload struct {
	Filename    string
	ContentType string
	Data        []byte
}

type IngestResult struct {
	Invoice core.Invoice
	// Duplicate is set when the same file was already ingested for the user.
	Duplicate bool
}

// InvoiceService ingests uploaded invoices and applies user edits.
type InvoiceService struct {
	repo      InvoiceRepository
	store     Uploader
	extractor ocr.Extractor
	events    EventPublisher
	caches    []Invalidator
	maxBytes  int64
}

type InvoiceOption func(*InvoiceService)

func WithMaxUploadBytes(n int64) InvoiceOption {
	return func(s *InvoiceService) {
		if n > 0 {
			s.maxBytes = n
		}
	}
}

// WithEventPublisher announces every new invoice. A nil publisher is ignored.
func WithEventPublisher(p EventPublisher) InvoiceOption {
	return func(s *InvoiceService) { s.events = p }
}

// WithInvalidation drops the user's cached views after every change.
func WithInvalidation(caches ...Invalidator) InvoiceOption {
	return func(s *InvoiceService) { s.caches = append(s.caches, caches...) }
}

func NewInvoiceService(repo InvoiceRepository, store Uploader, extractor ocr.Extractor, opts ...InvoiceOption) *InvoiceService {
	if extractor == nil {
		extractor = ocr.None{}
	}
	s := &InvoiceService{
		repo:      repo,
		store:     store,
		extractor: extractor,
		maxBytes:  DefaultMaxUploadBytes,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Ingest validates an upload, reads its fields, stores the original file
// and saves the invoice. Re-uploading identical bytes returns the invoice
// already on record.
func (s *InvoiceService) Ingest(ctx context.Context, userID string, up Upload) (IngestResult, error) {
	if userID == "" {
		return IngestResult{}, core.ErrEmptyUserID
	}
	ext, err := ocr.Extension(up.ContentType)
	if err != nil {
		return IngestResult{}, err
	}
	if len(up.Data) == 0 {
		return IngestResult{}, ocr.ErrEmptyFile
	}
	if int64(len(up.Data)) > s.maxBytes {
		return IngestResult{}, fmt.Errorf("%w: %d bytes, limit %d", ocr.ErrFileTooLarge, len(up.Data), s.maxBytes)
	}

	start := time.Now()
	events := log.NewStructuredLogger(log.FromContext(ctx).WithComponent(log.ComponentInvoice))

	sum := sha256.Sum256(up.Data)
	hash := hex.EncodeToString(sum[:])

	existing, err := s.repo.FindInvoiceByContentHash(ctx, userID, hash)
	switch {
	case err == nil:
		events.LogInvoiceIngested(ctx, userID, existing.ID, existing.VendorName, up.ContentType, len(up.Data), true)
		return IngestResult{Invoice: existing, Duplicate: true}, nil
	case !errors.Is(err, storage.ErrNotFound):
		return IngestResult{}, fmt.Errorf("check duplicate: %w", err)
	}

	raw, err := s.extractor.Extract(ctx, up.ContentType, up.Data)
	if err != nil {
		events.LogError(ctx, "Invoice field extraction failed", err, log.ComponentOCR, log.OpIngest,
			log.NewFields().WithUser(userID))
		return IngestResult{}, fmt.Errorf("extract invoice fields: %w", err)
	}

	inv := raw.ToInvoice(userID)
	inv.ID = uuid.NewString()
	inv.ContentHash = hash

	uri, err := s.store.Upload(ctx, "invoices/"+inv.ID+"."+ext, up.Data, up.ContentType)
	if err != nil {
		return IngestResult{}, fmt.Errorf("upload invoice file: %w", err)
	}
	inv.ImageURI = uri

	saved, err := s.repo.SaveInvoice(ctx, inv)
	if err != nil {
		return IngestResult{}, fmt.Errorf("save invoice: %w", err)
	}
	s.invalidate(userID)

	events.LogInvoiceIngested(ctx, userID, saved.ID, saved.VendorName, up.ContentType, len(up.Data), false)
	slog.DebugContext(ctx, "Invoice ingest timing",
		"invoice_id", saved.ID,
		"complete", raw.IsComplete(),
		"duration_ms", time.Since(start).Milliseconds())

	s.publishIngested(ctx, saved)
	return IngestResult{Invoice: saved}, nil
}

func (s *InvoiceService) publishIngested(ctx context.Context, inv core.Invoice) {
	if s.events == nil {
		return
	}
	msg := &amqp.InvoiceIngestedMessage{
		InvoiceID:  inv.ID,
		UserID:     inv.UserID,
		VendorName: inv.VendorName,
		Currency:   inv.Currency,
		DueDate:    inv.DueDate,
		ImageURI:   inv.ImageURI,
		IngestedAt: inv.CreatedOn,
	}
	if inv.AmountDue.Valid {
		msg.AmountDue = inv.AmountDue.Decimal.StringFixed(2)
	}
	if err := s.events.PublishInvoiceIngested(ctx, msg); err != nil {
		// The invoice is stored; the event is best effort.
		slog.ErrorContext(ctx, "Failed to publish invoice ingested event",
			"invoice_id", inv.ID, "error", err)
	}
}

func (s *InvoiceService) invalidate(userID string) {
	for _, c := range s.caches {
		c.DeletePrefix(cache.UserPrefix(userID))
	}
}

func (s *InvoiceService) List(ctx context.Context, userID string, opts core.ListOptions) ([]core.Invoice, error) {
	if userID == "" {
		return nil, core.ErrEmptyUserID
	}
	return s.repo.ListInvoices(ctx, userID, opts)
}

func (s *InvoiceService) Get(ctx context.Context, userID, id string) (core.Invoice, error) {
	return s.repo.GetInvoice(ctx, userID, id)
}

func (s *InvoiceService) SetPaid(ctx context.Context, userID, id string, paid bool) (core.Invoice, error) {
	inv, err := s.repo.UpdatePaidStatus(ctx, userID, id, paid)
	if err != nil {
		return core.Invoice{}, err
	}
	s.invalidate(userID)
	return inv, nil
}

func (s *InvoiceService) Delete(ctx context.Context, userID, id string) error {
	if err := s.repo.DeleteInvoice(ctx, userID, id); err != nil {
		return err
	}
	s.invalidate(userID)
	slog.InfoContext(ctx, "Invoice deleted", "invoice_id", id, "user_id", userID)
	return nil
}

func (s *InvoiceService) AddCategory(ctx context.Context, userID, invoiceID, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return core.ErrEmptyCategoryName
	}
	return s.repo.AddCategory(ctx, userID, invoiceID, name)
}

func (s *InvoiceService) RemoveCategory(ctx context.Context, userID, invoiceID, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return core.ErrEmptyCategoryName
	}
	return s.repo.RemoveCategory(ctx, userID, invoiceID, name)
}
