package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"payables/internal/amqp"
	"payables/internal/core"
	"payables/internal/ocr"
	"payables/internal/storage"
)

type fakeRepo struct {
	mu       sync.Mutex
	invoices map[string]core.Invoice
	saves    int
	failSave error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{invoices: make(map[string]core.Invoice)}
}

func (f *fakeRepo) SaveInvoice(_ context.Context, inv core.Invoice) (core.Invoice, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failSave != nil {
		return core.Invoice{}, f.failSave
	}
	if inv.CreatedOn.IsZero() {
		inv.CreatedOn = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	}
	f.invoices[inv.ID] = inv
	f.saves++
	return inv, nil
}

func (f *fakeRepo) get(userID, id string) (core.Invoice, error) {
	inv, ok := f.invoices[id]
	if !ok || inv.UserID != userID {
		return core.Invoice{}, fmt.Errorf("invoice %s: %w", id, storage.ErrNotFound)
	}
	return inv, nil
}

func (f *fakeRepo) GetInvoice(_ context.Context, userID, id string) (core.Invoice, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.get(userID, id)
}

func (f *fakeRepo) FindInvoiceByContentHash(_ context.Context, userID, hash string) (core.Invoice, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, inv := range f.invoices {
		if inv.UserID == userID && inv.ContentHash == hash {
			return inv, nil
		}
	}
	return core.Invoice{}, fmt.Errorf("invoice by hash: %w", storage.ErrNotFound)
}

func (f *fakeRepo) ListInvoices(_ context.Context, userID string, opts core.ListOptions) ([]core.Invoice, error) {
	opts, err := opts.Normalize()
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []core.Invoice
	for _, inv := range f.invoices {
		if inv.UserID == userID && opts.Filter.Matches(inv) {
			out = append(out, inv)
		}
	}
	core.SortInvoices(out, opts.Sort, opts.Desc)
	return out, nil
}

func (f *fakeRepo) UpdatePaidStatus(_ context.Context, userID, id string, paid bool) (core.Invoice, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	inv, err := f.get(userID, id)
	if err != nil {
		return core.Invoice{}, err
	}
	inv.IsPaid = paid
	f.invoices[id] = inv
	return inv, nil
}

func (f *fakeRepo) DeleteInvoice(_ context.Context, userID, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, err := f.get(userID, id); err != nil {
		return err
	}
	delete(f.invoices, id)
	return nil
}

func (f *fakeRepo) AddCategory(_ context.Context, userID, invoiceID, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	inv, err := f.get(userID, invoiceID)
	if err != nil {
		return err
	}
	if !inv.HasCategory(name) {
		inv.Categories = append(inv.Categories, name)
	}
	f.invoices[invoiceID] = inv
	return nil
}

func (f *fakeRepo) RemoveCategory(_ context.Context, userID, invoiceID, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	inv, err := f.get(userID, invoiceID)
	if err != nil {
		return err
	}
	for i, c := range inv.Categories {
		if c == name {
			inv.Categories = append(inv.Categories[:i], inv.Categories[i+1:]...)
			f.invoices[invoiceID] = inv
			return nil
		}
	}
	return fmt.Errorf("category %q: %w", name, storage.ErrNotFound)
}

func (f *fakeRepo) InvoicesDueBetween(_ context.Context, userID string, from, to time.Time) ([]core.Invoice, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []core.Invoice
	for _, inv := range f.invoices {
		if inv.UserID != userID || inv.DueDate == nil {
			continue
		}
		if !inv.DueDate.Before(from) && inv.DueDate.Before(to) {
			out = append(out, inv)
		}
	}
	core.SortInvoices(out, core.SortDueDate, false)
	return out, nil
}

type fakeUploader struct {
	objects map[string][]byte
	err     error
}

func (u *fakeUploader) Upload(_ context.Context, key string, body []byte, _ string) (string, error) {
	if u.err != nil {
		return "", u.err
	}
	if u.objects == nil {
		u.objects = make(map[string][]byte)
	}
	u.objects[key] = body
	return "mem://" + key, nil
}

type fakeExtractor struct {
	calls int
	raw   ocr.RawInvoice
	err   error
}

func (e *fakeExtractor) Extract(context.Context, string, []byte) (ocr.RawInvoice, error) {
	e.calls++
	return e.raw, e.err
}

type fakePublisher struct {
	ingested []*amqp.InvoiceIngestedMessage
	requests []string
	err      error
}

func (p *fakePublisher) PublishInvoiceIngested(_ context.Context, msg *amqp.InvoiceIngestedMessage) error {
	p.ingested = append(p.ingested, msg)
	return p.err
}

func (p *fakePublisher) PublishAgingReportRequest(_ context.Context, userID, _ string) error {
	if p.err != nil {
		return p.err
	}
	p.requests = append(p.requests, userID)
	return nil
}

var errBoom = errors.New("boom")
