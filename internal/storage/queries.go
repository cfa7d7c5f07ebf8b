package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"payables/internal/core"
)

// DBTX is satisfied by *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
	QueryContext(context.Context, string, ...any) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...any) *sql.Row
}

type Queries struct {
	db DBTX
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

// Timestamps are stored as fixed-width UTC text so they compare lexically.
const timeLayout = "2006-01-02T15:04:05.000000Z"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func nullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*t), Valid: true}
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return t, nil
}

func parseNullTime(ns sql.NullString) (*time.Time, error) {
	if !ns.Valid {
		return nil, nil
	}
	t, err := parseTime(ns.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func nullAmount(d decimal.NullDecimal) sql.NullString {
	if !d.Valid {
		return sql.NullString{}
	}
	return sql.NullString{String: d.Decimal.StringFixed(2), Valid: true}
}

func parseNullAmount(ns sql.NullString) (decimal.NullDecimal, error) {
	if !ns.Valid {
		return decimal.NullDecimal{}, nil
	}
	d, err := decimal.NewFromString(ns.String)
	if err != nil {
		return decimal.NullDecimal{}, fmt.Errorf("parse amount %q: %w", ns.String, err)
	}
	return decimal.NewNullDecimal(d), nil
}

const invoiceColumns = `id, user_id, vendor_id, vendor_name, amount_due, currency, due_date, invoice_id,
	is_paid, raw_vendor_name, raw_amount_due, raw_due_date, image_uri, content_hash, created_on, updated_on`

type invoiceRow struct {
	ID            string
	UserID        string
	VendorID      sql.NullString
	VendorName    string
	AmountDue     sql.NullString
	Currency      string
	DueDate       sql.NullString
	InvoiceNumber string
	IsPaid        bool
	RawVendorName string
	RawAmountDue  string
	RawDueDate    string
	ImageURI      string
	ContentHash   string
	CreatedOn     string
	UpdatedOn     sql.NullString
}

type scanner interface {
	Scan(dest ...any) error
}

func scanInvoice(s scanner) (invoiceRow, error) {
	var r invoiceRow
	err := s.Scan(&r.ID, &r.UserID, &r.VendorID, &r.VendorName, &r.AmountDue, &r.Currency, &r.DueDate,
		&r.InvoiceNumber, &r.IsPaid, &r.RawVendorName, &r.RawAmountDue, &r.RawDueDate, &r.ImageURI,
		&r.ContentHash, &r.CreatedOn, &r.UpdatedOn)
	return r, err
}

func (r invoiceRow) toCore() (core.Invoice, error) {
	amount, err := parseNullAmount(r.AmountDue)
	if err != nil {
		return core.Invoice{}, err
	}
	due, err := parseNullTime(r.DueDate)
	if err != nil {
		return core.Invoice{}, err
	}
	created, err := parseTime(r.CreatedOn)
	if err != nil {
		return core.Invoice{}, err
	}
	updated, err := parseNullTime(r.UpdatedOn)
	if err != nil {
		return core.Invoice{}, err
	}
	return core.Invoice{
		ID:            r.ID,
		UserID:        r.UserID,
		VendorName:    r.VendorName,
		AmountDue:     amount,
		Currency:      r.Currency,
		DueDate:       due,
		InvoiceNumber: r.InvoiceNumber,
		IsPaid:        r.IsPaid,
		RawVendorName: r.RawVendorName,
		RawAmountDue:  r.RawAmountDue,
		RawDueDate:    r.RawDueDate,
		ImageURI:      r.ImageURI,
		ContentHash:   r.ContentHash,
		CreatedOn:     created,
		UpdatedOn:     updated,
	}, nil
}

func (q *Queries) queryInvoices(ctx context.Context, query string, args ...any) ([]core.Invoice, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []core.Invoice
	for rows.Next() {
		r, err := scanInvoice(rows)
		if err != nil {
			return nil, err
		}
		inv, err := r.toCore()
		if err != nil {
			return nil, err
		}
		out = append(out, inv)
	}
	return out, rows.Err()
}

func (q *Queries) CreateInvoice(ctx context.Context, inv core.Invoice, vendorID sql.NullString) error {
	_, err := q.db.ExecContext(ctx, `INSERT INTO invoices (`+invoiceColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		inv.ID, inv.UserID, vendorID, inv.VendorName, nullAmount(inv.AmountDue), inv.Currency,
		nullTime(inv.DueDate), inv.InvoiceNumber, inv.IsPaid, inv.RawVendorName, inv.RawAmountDue,
		inv.RawDueDate, inv.ImageURI, inv.ContentHash, formatTime(inv.CreatedOn), nullTime(inv.UpdatedOn))
	return err
}

func (q *Queries) GetInvoice(ctx context.Context, userID, id string) (core.Invoice, error) {
	row := q.db.QueryRowContext(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE user_id = ? AND id = ?`, userID, id)
	r, err := scanInvoice(row)
	if err != nil {
		return core.Invoice{}, err
	}
	return r.toCore()
}

func (q *Queries) GetInvoiceByContentHash(ctx context.Context, userID, hash string) (core.Invoice, error) {
	row := q.db.QueryRowContext(ctx, `SELECT `+invoiceColumns+` FROM invoices
		WHERE user_id = ? AND content_hash = ? ORDER BY created_on LIMIT 1`, userID, hash)
	r, err := scanInvoice(row)
	if err != nil {
		return core.Invoice{}, err
	}
	return r.toCore()
}

// ListInvoices pages through a user's invoices. opts must be normalized.
func (q *Queries) ListInvoices(ctx context.Context, userID string, opts core.ListOptions) ([]core.Invoice, error) {
	col, err := opts.Sort.Column()
	if err != nil {
		return nil, err
	}
	var b strings.Builder
	b.WriteString(`SELECT ` + invoiceColumns + ` FROM invoices WHERE user_id = ?`)
	switch opts.Filter {
	case core.FilterPaid:
		b.WriteString(` AND is_paid = 1`)
	case core.FilterDue:
		b.WriteString(` AND is_paid = 0`)
	}
	dir := "ASC"
	if opts.Desc {
		dir = "DESC"
	}
	fmt.Fprintf(&b, ` ORDER BY %s %s, id LIMIT ? OFFSET ?`, col, dir)
	return q.queryInvoices(ctx, b.String(), userID, opts.Limit, opts.Offset)
}

func (q *Queries) ListOpenInvoicesDueFrom(ctx context.Context, userID string, from time.Time) ([]core.Invoice, error) {
	return q.queryInvoices(ctx, `SELECT `+invoiceColumns+` FROM invoices
		WHERE user_id = ? AND is_paid = 0 AND due_date IS NOT NULL AND due_date >= ?
		ORDER BY due_date ASC, created_on ASC`, userID, formatTime(from))
}

func (q *Queries) ListInvoicesDueBetween(ctx context.Context, userID string, from, to time.Time) ([]core.Invoice, error) {
	return q.queryInvoices(ctx, `SELECT `+invoiceColumns+` FROM invoices
		WHERE user_id = ? AND due_date >= ? AND due_date < ?
		ORDER BY due_date ASC, created_on ASC`, userID, formatTime(from), formatTime(to))
}

func (q *Queries) UpdatePaidStatus(ctx context.Context, userID, id string, paid bool, at time.Time) (int64, error) {
	res, err := q.db.ExecContext(ctx, `UPDATE invoices SET is_paid = ?, updated_on = ? WHERE user_id = ? AND id = ?`,
		paid, formatTime(at), userID, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (q *Queries) DeleteInvoiceCategories(ctx context.Context, invoiceID string) error {
	_, err := q.db.ExecContext(ctx, `DELETE FROM category_invoice_associations WHERE invoice_id = ?`, invoiceID)
	return err
}

func (q *Queries) DeleteInvoice(ctx context.Context, userID, id string) (int64, error) {
	res, err := q.db.ExecContext(ctx, `DELETE FROM invoices WHERE user_id = ? AND id = ?`, userID, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (q *Queries) countInvoices(ctx context.Context, query string, args ...any) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx, query, args...).Scan(&n)
	return n, err
}

func (q *Queries) CountDueAfter(ctx context.Context, userID string, now time.Time) (int64, error) {
	return q.countInvoices(ctx, `SELECT COUNT(*) FROM invoices WHERE user_id = ? AND is_paid = 0 AND due_date > ?`,
		userID, formatTime(now))
}

func (q *Queries) CountDueBefore(ctx context.Context, userID string, now time.Time) (int64, error) {
	return q.countInvoices(ctx, `SELECT COUNT(*) FROM invoices WHERE user_id = ? AND is_paid = 0 AND due_date < ?`,
		userID, formatTime(now))
}

func (q *Queries) CountPaid(ctx context.Context, userID string) (int64, error) {
	return q.countInvoices(ctx, `SELECT COUNT(*) FROM invoices WHERE user_id = ? AND is_paid = 1`, userID)
}

// Categories

func (q *Queries) EnsureCategory(ctx context.Context, id, userID, name string, at time.Time) (string, error) {
	if _, err := q.db.ExecContext(ctx, `INSERT INTO categories (id, user_id, name, created_on) VALUES (?, ?, ?, ?)
		ON CONFLICT (user_id, name) DO NOTHING`, id, userID, name, formatTime(at)); err != nil {
		return "", err
	}
	var existing string
	err := q.db.QueryRowContext(ctx, `SELECT id FROM categories WHERE user_id = ? AND name = ?`, userID, name).Scan(&existing)
	return existing, err
}

func (q *Queries) AssociateCategory(ctx context.Context, categoryID, invoiceID string) error {
	_, err := q.db.ExecContext(ctx, `INSERT OR IGNORE INTO category_invoice_associations (category_id, invoice_id) VALUES (?, ?)`,
		categoryID, invoiceID)
	return err
}

func (q *Queries) DissociateCategory(ctx context.Context, userID, invoiceID, name string) (int64, error) {
	res, err := q.db.ExecContext(ctx, `DELETE FROM category_invoice_associations
		WHERE invoice_id = ? AND category_id IN (SELECT id FROM categories WHERE user_id = ? AND name = ?)`,
		invoiceID, userID, name)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// CategoriesFor maps each of the given invoice ids to its category names.
func (q *Queries) CategoriesFor(ctx context.Context, invoiceIDs []string) (map[string][]string, error) {
	out := make(map[string][]string, len(invoiceIDs))
	if len(invoiceIDs) == 0 {
		return out, nil
	}
	args := make([]any, len(invoiceIDs))
	for i, id := range invoiceIDs {
		args[i] = id
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(invoiceIDs)), ",")
	rows, err := q.db.QueryContext(ctx, `SELECT a.invoice_id, c.name FROM category_invoice_associations a
		JOIN categories c ON c.id = a.category_id
		WHERE a.invoice_id IN (`+placeholders+`) ORDER BY c.name`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var invoiceID, name string
		if err := rows.Scan(&invoiceID, &name); err != nil {
			return nil, err
		}
		out[invoiceID] = append(out[invoiceID], name)
	}
	return out, rows.Err()
}

// Vendors

func (q *Queries) UpsertVendor(ctx context.Context, id, userID, name string, at time.Time) (string, error) {
	if _, err := q.db.ExecContext(ctx, `INSERT INTO vendors (id, user_id, name, created_on) VALUES (?, ?, ?, ?)
		ON CONFLICT (user_id, name) DO UPDATE SET updated_on = excluded.created_on`,
		id, userID, name, formatTime(at)); err != nil {
		return "", err
	}
	var existing string
	err := q.db.QueryRowContext(ctx, `SELECT id FROM vendors WHERE user_id = ? AND name = ?`, userID, name).Scan(&existing)
	return existing, err
}

type vendorRow struct {
	ID           string
	UserID       string
	Name         string
	Aliases      string
	ContactEmail string
	CreatedOn    string
	UpdatedOn    sql.NullString
	InvoiceCount int64
	LastAddedOn  sql.NullString
}

func (q *Queries) ListVendors(ctx context.Context, userID string) ([]vendorRow, error) {
	rows, err := q.db.QueryContext(ctx, `SELECT v.id, v.user_id, v.name, v.aliases, v.contact_email, v.created_on, v.updated_on,
			(SELECT COUNT(*) FROM invoices i WHERE i.vendor_id = v.id),
			(SELECT MAX(i.created_on) FROM invoices i WHERE i.vendor_id = v.id)
		FROM vendors v WHERE v.user_id = ? ORDER BY v.name COLLATE NOCASE`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []vendorRow
	for rows.Next() {
		var r vendorRow
		if err := rows.Scan(&r.ID, &r.UserID, &r.Name, &r.Aliases, &r.ContactEmail, &r.CreatedOn, &r.UpdatedOn,
			&r.InvoiceCount, &r.LastAddedOn); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

type vendorAmountRow struct {
	VendorID  string
	AmountDue string
	IsPaid    bool
}

func (q *Queries) ListVendorAmounts(ctx context.Context, userID string) ([]vendorAmountRow, error) {
	rows, err := q.db.QueryContext(ctx, `SELECT vendor_id, amount_due, is_paid FROM invoices
		WHERE user_id = ? AND vendor_id IS NOT NULL AND amount_due IS NOT NULL`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []vendorAmountRow
	for rows.Next() {
		var r vendorAmountRow
		if err := rows.Scan(&r.VendorID, &r.AmountDue, &r.IsPaid); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Aging reports

func (q *Queries) CreateAgingReport(ctx context.Context, rec core.AgingReport) error {
	_, err := q.db.ExecContext(ctx, `INSERT INTO aging_reports (id, user_id, csv_uri, created_on) VALUES (?, ?, ?, ?)`,
		rec.ID, rec.UserID, rec.CSVURI, formatTime(rec.CreatedOn))
	return err
}

func scanAgingReport(s scanner) (core.AgingReport, error) {
	var rec core.AgingReport
	var created string
	if err := s.Scan(&rec.ID, &rec.UserID, &rec.CSVURI, &created); err != nil {
		return core.AgingReport{}, err
	}
	t, err := parseTime(created)
	if err != nil {
		return core.AgingReport{}, err
	}
	rec.CreatedOn = t
	return rec, nil
}

func (q *Queries) GetAgingReport(ctx context.Context, userID, id string) (core.AgingReport, error) {
	return scanAgingReport(q.db.QueryRowContext(ctx,
		`SELECT id, user_id, csv_uri, created_on FROM aging_reports WHERE user_id = ? AND id = ?`, userID, id))
}

func (q *Queries) ListAgingReports(ctx context.Context, userID string) ([]core.AgingReport, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT id, user_id, csv_uri, created_on FROM aging_reports WHERE user_id = ? ORDER BY created_on DESC, id`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []core.AgingReport
	for rows.Next() {
		rec, err := scanAgingReport(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
