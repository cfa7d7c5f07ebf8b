package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"payables/internal/core"

	_ "modernc.org/sqlite"
)

var ErrNotFound = errors.New("not found")

type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
	now     func() time.Time
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{
		db:      db,
		queries: New(db),
		now:     func() time.Time { return time.Now().UTC() },
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SQLiteRepository) withTx(ctx context.Context, fn func(*Queries) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(r.queries.WithTx(tx)); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func notFound(err error, what string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	return fmt.Errorf("get %s: %w", what, err)
}

// SaveInvoice inserts inv, assigning an id and creation time when missing,
// and links it to the user's vendor of the same name.
func (r *SQLiteRepository) SaveInvoice(ctx context.Context, inv core.Invoice) (core.Invoice, error) {
	if inv.UserID == "" {
		return core.Invoice{}, core.ErrEmptyUserID
	}
	if inv.ID == "" {
		inv.ID = uuid.NewString()
	}
	if inv.CreatedOn.IsZero() {
		inv.CreatedOn = r.now()
	}
	inv.VendorName = strings.TrimSpace(inv.VendorName)

	err := r.withTx(ctx, func(q *Queries) error {
		var vendorID sql.NullString
		if inv.VendorName != "" {
			id, err := q.UpsertVendor(ctx, uuid.NewString(), inv.UserID, inv.VendorName, inv.CreatedOn)
			if err != nil {
				return fmt.Errorf("upsert vendor: %w", err)
			}
			vendorID = sql.NullString{String: id, Valid: true}
		}
		if err := q.CreateInvoice(ctx, inv, vendorID); err != nil {
			return fmt.Errorf("create invoice: %w", err)
		}
		for _, name := range inv.Categories {
			if err := r.attachCategory(ctx, q, inv.UserID, inv.ID, name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return core.Invoice{}, err
	}

	slog.InfoContext(ctx, "Invoice saved to SQLite",
		"id", inv.ID,
		"user_id", inv.UserID,
		"vendor", inv.VendorName,
		"has_amount", inv.AmountDue.Valid,
		"has_due_date", inv.DueDate != nil)
	return inv, nil
}

func (r *SQLiteRepository) GetInvoice(ctx context.Context, userID, id string) (core.Invoice, error) {
	inv, err := r.queries.GetInvoice(ctx, userID, id)
	if err != nil {
		return core.Invoice{}, notFound(err, "invoice "+id)
	}
	if err := r.loadCategories(ctx, []*core.Invoice{&inv}); err != nil {
		return core.Invoice{}, err
	}
	return inv, nil
}

func (r *SQLiteRepository) FindInvoiceByContentHash(ctx context.Context, userID, hash string) (core.Invoice, error) {
	inv, err := r.queries.GetInvoiceByContentHash(ctx, userID, hash)
	if err != nil {
		return core.Invoice{}, notFound(err, "invoice with hash "+hash)
	}
	if err := r.loadCategories(ctx, []*core.Invoice{&inv}); err != nil {
		return core.Invoice{}, err
	}
	return inv, nil
}

func (r *SQLiteRepository) ListInvoices(ctx context.Context, userID string, opts core.ListOptions) ([]core.Invoice, error) {
	opts, err := opts.Normalize()
	if err != nil {
		return nil, err
	}
	invs, err := r.queries.ListInvoices(ctx, userID, opts)
	if err != nil {
		return nil, fmt.Errorf("list invoices: %w", err)
	}
	if err := r.loadCategoriesSlice(ctx, invs); err != nil {
		return nil, err
	}
	return invs, nil
}

// ListOpenInvoicesDueFrom returns unpaid invoices due at or after from,
// earliest first.
func (r *SQLiteRepository) ListOpenInvoicesDueFrom(ctx context.Context, userID string, from time.Time) ([]core.Invoice, error) {
	invs, err := r.queries.ListOpenInvoicesDueFrom(ctx, userID, from)
	if err != nil {
		return nil, fmt.Errorf("list open invoices: %w", err)
	}
	return invs, nil
}

func (r *SQLiteRepository) InvoicesDueBetween(ctx context.Context, userID string, from, to time.Time) ([]core.Invoice, error) {
	invs, err := r.queries.ListInvoicesDueBetween(ctx, userID, from, to)
	if err != nil {
		return nil, fmt.Errorf("list invoices due between: %w", err)
	}
	return invs, nil
}

func (r *SQLiteRepository) UpdatePaidStatus(ctx context.Context, userID, id string, paid bool) (core.Invoice, error) {
	n, err := r.queries.UpdatePaidStatus(ctx, userID, id, paid, r.now())
	if err != nil {
		return core.Invoice{}, fmt.Errorf("update paid status: %w", err)
	}
	if n == 0 {
		return core.Invoice{}, fmt.Errorf("invoice %s: %w", id, ErrNotFound)
	}
	slog.InfoContext(ctx, "Invoice paid status updated", "id", id, "user_id", userID, "paid", paid)
	return r.GetInvoice(ctx, userID, id)
}

func (r *SQLiteRepository) DeleteInvoice(ctx context.Context, userID, id string) error {
	return r.withTx(ctx, func(q *Queries) error {
		if _, err := q.GetInvoice(ctx, userID, id); err != nil {
			return notFound(err, "invoice "+id)
		}
		if err := q.DeleteInvoiceCategories(ctx, id); err != nil {
			return fmt.Errorf("delete invoice categories: %w", err)
		}
		if _, err := q.DeleteInvoice(ctx, userID, id); err != nil {
			return fmt.Errorf("delete invoice: %w", err)
		}
		return nil
	})
}

// CountDueSoon counts unpaid invoices due after now.
func (r *SQLiteRepository) CountDueSoon(ctx context.Context, userID string, now time.Time) (int64, error) {
	n, err := r.queries.CountDueAfter(ctx, userID, now)
	if err != nil {
		return 0, fmt.Errorf("count due soon: %w", err)
	}
	return n, nil
}

// CountOverdue counts unpaid invoices whose due date has passed.
func (r *SQLiteRepository) CountOverdue(ctx context.Context, userID string, now time.Time) (int64, error) {
	n, err := r.queries.CountDueBefore(ctx, userID, now)
	if err != nil {
		return 0, fmt.Errorf("count overdue: %w", err)
	}
	return n, nil
}

func (r *SQLiteRepository) CountPaid(ctx context.Context, userID string) (int64, error) {
	n, err := r.queries.CountPaid(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("count paid: %w", err)
	}
	return n, nil
}

// AddCategory tags an invoice, creating the user's category on first use.
func (r *SQLiteRepository) AddCategory(ctx context.Context, userID, invoiceID, name string) error {
	return r.withTx(ctx, func(q *Queries) error {
		if _, err := q.GetInvoice(ctx, userID, invoiceID); err != nil {
			return notFound(err, "invoice "+invoiceID)
		}
		return r.attachCategory(ctx, q, userID, invoiceID, name)
	})
}

func (r *SQLiteRepository) attachCategory(ctx context.Context, q *Queries, userID, invoiceID, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return core.ErrEmptyCategoryName
	}
	categoryID, err := q.EnsureCategory(ctx, uuid.NewString(), userID, name, r.now())
	if err != nil {
		return fmt.Errorf("ensure category: %w", err)
	}
	if err := q.AssociateCategory(ctx, categoryID, invoiceID); err != nil {
		return fmt.Errorf("associate category: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) RemoveCategory(ctx context.Context, userID, invoiceID, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return core.ErrEmptyCategoryName
	}
	n, err := r.queries.DissociateCategory(ctx, userID, invoiceID, name)
	if err != nil {
		return fmt.Errorf("remove category: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("category %q on invoice %s: %w", name, invoiceID, ErrNotFound)
	}
	return nil
}

func (r *SQLiteRepository) loadCategoriesSlice(ctx context.Context, invs []core.Invoice) error {
	ptrs := make([]*core.Invoice, len(invs))
	for i := range invs {
		ptrs[i] = &invs[i]
	}
	return r.loadCategories(ctx, ptrs)
}

func (r *SQLiteRepository) loadCategories(ctx context.Context, invs []*core.Invoice) error {
	ids := make([]string, len(invs))
	for i, inv := range invs {
		ids[i] = inv.ID
	}
	byInvoice, err := r.queries.CategoriesFor(ctx, ids)
	if err != nil {
		return fmt.Errorf("load categories: %w", err)
	}
	for _, inv := range invs {
		inv.Categories = byInvoice[inv.ID]
	}
	return nil
}

// ListVendors returns the user's vendors with paid/due totals, invoice
// counts and the creation time of their latest invoice.
func (r *SQLiteRepository) ListVendors(ctx context.Context, userID string) ([]core.VendorSummary, error) {
	rows, err := r.queries.ListVendors(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list vendors: %w", err)
	}
	amounts, err := r.queries.ListVendorAmounts(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list vendor amounts: %w", err)
	}

	type sums struct{ paid, due decimal.Decimal }
	byVendor := make(map[string]sums)
	for _, a := range amounts {
		d, err := decimal.NewFromString(a.AmountDue)
		if err != nil {
			return nil, fmt.Errorf("parse amount %q: %w", a.AmountDue, err)
		}
		s := byVendor[a.VendorID]
		if a.IsPaid {
			s.paid = s.paid.Add(d)
		} else {
			s.due = s.due.Add(d)
		}
		byVendor[a.VendorID] = s
	}

	out := make([]core.VendorSummary, 0, len(rows))
	for _, row := range rows {
		created, err := parseTime(row.CreatedOn)
		if err != nil {
			return nil, err
		}
		updated, err := parseNullTime(row.UpdatedOn)
		if err != nil {
			return nil, err
		}
		last, err := parseNullTime(row.LastAddedOn)
		if err != nil {
			return nil, err
		}
		var aliases []string
		if row.Aliases != "" {
			aliases = strings.Split(row.Aliases, ",")
		}
		s := byVendor[row.ID]
		out = append(out, core.VendorSummary{
			Vendor: core.Vendor{
				ID:           row.ID,
				UserID:       row.UserID,
				Name:         row.Name,
				Aliases:      aliases,
				ContactEmail: row.ContactEmail,
				CreatedOn:    created,
				UpdatedOn:    updated,
			},
			TotalPaid:    s.paid,
			TotalDue:     s.due,
			InvoiceCount: row.InvoiceCount,
			LastAddedOn:  last,
		})
	}
	return out, nil
}

func (r *SQLiteRepository) SaveAgingReport(ctx context.Context, rec core.AgingReport) error {
	if err := r.queries.CreateAgingReport(ctx, rec); err != nil {
		return fmt.Errorf("create aging report: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) GetAgingReport(ctx context.Context, userID, id string) (core.AgingReport, error) {
	rec, err := r.queries.GetAgingReport(ctx, userID, id)
	if err != nil {
		return core.AgingReport{}, notFound(err, "aging report "+id)
	}
	return rec, nil
}

func (r *SQLiteRepository) ListAgingReports(ctx context.Context, userID string) ([]core.AgingReport, error) {
	recs, err := r.queries.ListAgingReports(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list aging reports: %w", err)
	}
	return recs, nil
}
