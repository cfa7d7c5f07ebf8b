package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"payables/internal/core"
)

var base = time.Date(2026, time.March, 1, 9, 0, 0, 0, time.UTC)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "payables.db"))
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	repo.now = func() time.Time { return base }
	t.Cleanup(func() { repo.Close() })
	return repo
}

func at(days int) *time.Time {
	t := base.Add(time.Duration(days) * 24 * time.Hour)
	return &t
}

func mustSave(t *testing.T, repo *SQLiteRepository, inv core.Invoice) core.Invoice {
	t.Helper()
	saved, err := repo.SaveInvoice(context.Background(), inv)
	if err != nil {
		t.Fatalf("save invoice: %v", err)
	}
	return saved
}

func amt(s string) decimal.NullDecimal {
	return decimal.NewNullDecimal(decimal.RequireFromString(s))
}

func TestSaveAndGetInvoice(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	saved := mustSave(t, repo, core.Invoice{
		UserID:        "u1",
		VendorName:    "  Acme  ",
		AmountDue:     amt("123.40"),
		Currency:      "USD",
		DueDate:       at(10),
		InvoiceNumber: "INV-1",
		Categories:    []string{"rent"},
	})
	if saved.ID == "" || !saved.CreatedOn.Equal(base) {
		t.Fatalf("defaults not assigned: %+v", saved)
	}

	got, err := repo.GetInvoice(ctx, "u1", saved.ID)
	if err != nil {
		t.Fatalf("get invoice: %v", err)
	}
	if got.VendorName != "Acme" || got.InvoiceNumber != "INV-1" || got.Currency != "USD" {
		t.Fatalf("unexpected invoice %+v", got)
	}
	if !got.AmountDue.Valid || got.AmountDue.Decimal.String() != "123.4" {
		t.Fatalf("unexpected amount %+v", got.AmountDue)
	}
	if got.DueDate == nil || !got.DueDate.Equal(*at(10)) {
		t.Fatalf("unexpected due date %v", got.DueDate)
	}
	if len(got.Categories) != 1 || got.Categories[0] != "rent" {
		t.Fatalf("unexpected categories %v", got.Categories)
	}

	if _, err := repo.GetInvoice(ctx, "someone-else", saved.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("other user: want ErrNotFound, got %v", err)
	}
}

func TestSaveInvoiceWithoutAmountOrDueDate(t *testing.T) {
	repo := newTestRepo(t)
	saved := mustSave(t, repo, core.Invoice{UserID: "u1", RawAmountDue: "illegible"})

	got, err := repo.GetInvoice(context.Background(), "u1", saved.ID)
	if err != nil {
		t.Fatalf("get invoice: %v", err)
	}
	if got.AmountDue.Valid || got.DueDate != nil || got.RawAmountDue != "illegible" {
		t.Fatalf("unexpected invoice %+v", got)
	}
}

func TestListOpenInvoicesDueFrom(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	mustSave(t, repo, core.Invoice{ID: "late", UserID: "u1", VendorName: "A", AmountDue: amt("1"), DueDate: at(40)})
	mustSave(t, repo, core.Invoice{ID: "soon", UserID: "u1", VendorName: "B", AmountDue: amt("1"), DueDate: at(5)})
	mustSave(t, repo, core.Invoice{ID: "paid", UserID: "u1", VendorName: "A", AmountDue: amt("1"), DueDate: at(6), IsPaid: true})
	mustSave(t, repo, core.Invoice{ID: "past", UserID: "u1", VendorName: "A", AmountDue: amt("1"), DueDate: at(-1)})
	mustSave(t, repo, core.Invoice{ID: "nodue", UserID: "u1", VendorName: "A", AmountDue: amt("1")})
	mustSave(t, repo, core.Invoice{ID: "other", UserID: "u2", VendorName: "A", AmountDue: amt("1"), DueDate: at(5)})

	got, err := repo.ListOpenInvoicesDueFrom(ctx, "u1", base)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 2 || got[0].ID != "soon" || got[1].ID != "late" {
		t.Fatalf("unexpected invoices %+v", got)
	}
}

func TestListInvoicesFilterSortPage(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	mustSave(t, repo, core.Invoice{ID: "a", UserID: "u1", VendorName: "Zeta", AmountDue: amt("9.5"), DueDate: at(3)})
	mustSave(t, repo, core.Invoice{ID: "b", UserID: "u1", VendorName: "alpha", AmountDue: amt("100"), DueDate: at(1), IsPaid: true})
	mustSave(t, repo, core.Invoice{ID: "c", UserID: "u1", VendorName: "Mid", AmountDue: amt("20"), DueDate: at(2)})

	ids := func(invs []core.Invoice) string {
		s := ""
		for _, i := range invs {
			s += i.ID
		}
		return s
	}

	cases := []struct {
		name string
		opts core.ListOptions
		want string
	}{
		{"default due date", core.ListOptions{}, "bca"},
		{"amount desc", core.ListOptions{Sort: core.SortAmountDue, Desc: true}, "bca"},
		{"amount asc", core.ListOptions{Sort: core.SortAmountDue}, "acb"},
		{"vendor", core.ListOptions{Sort: core.SortVendorName}, "bca"},
		{"due only", core.ListOptions{Filter: core.FilterDue}, "ca"},
		{"paid only", core.ListOptions{Filter: core.FilterPaid}, "b"},
		{"page", core.ListOptions{Limit: 1, Offset: 1}, "c"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := repo.ListInvoices(ctx, "u1", tc.opts)
			if err != nil {
				t.Fatalf("list: %v", err)
			}
			if ids(got) != tc.want {
				t.Fatalf("want %s, got %s", tc.want, ids(got))
			}
		})
	}

	if _, err := repo.ListInvoices(ctx, "u1", core.ListOptions{Sort: "user_id; DROP TABLE invoices"}); !errors.Is(err, core.ErrInvalidSortKey) {
		t.Fatalf("want ErrInvalidSortKey, got %v", err)
	}
}

func TestUpdatePaidStatusAndCounts(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	mustSave(t, repo, core.Invoice{ID: "future", UserID: "u1", DueDate: at(3)})
	mustSave(t, repo, core.Invoice{ID: "overdue", UserID: "u1", DueDate: at(-3)})

	got, err := repo.UpdatePaidStatus(ctx, "u1", "future", true)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if !got.IsPaid || got.UpdatedOn == nil {
		t.Fatalf("unexpected invoice %+v", got)
	}
	if _, err := repo.UpdatePaidStatus(ctx, "u1", "missing", true); !errors.Is(err, ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}

	dueSoon, _ := repo.CountDueSoon(ctx, "u1", base)
	overdue, _ := repo.CountOverdue(ctx, "u1", base)
	paid, _ := repo.CountPaid(ctx, "u1")
	if dueSoon != 0 || overdue != 1 || paid != 1 {
		t.Fatalf("unexpected counts due_soon=%d overdue=%d paid=%d", dueSoon, overdue, paid)
	}
}

func TestCategories(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	inv := mustSave(t, repo, core.Invoice{UserID: "u1"})

	if err := repo.AddCategory(ctx, "u1", inv.ID, "utilities"); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := repo.AddCategory(ctx, "u1", inv.ID, "utilities"); err != nil {
		t.Fatalf("add twice: %v", err)
	}
	if err := repo.AddCategory(ctx, "u1", "missing", "utilities"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
	if err := repo.AddCategory(ctx, "u1", inv.ID, " "); !errors.Is(err, core.ErrEmptyCategoryName) {
		t.Fatalf("want ErrEmptyCategoryName, got %v", err)
	}

	got, _ := repo.GetInvoice(ctx, "u1", inv.ID)
	if len(got.Categories) != 1 || got.Categories[0] != "utilities" {
		t.Fatalf("unexpected categories %v", got.Categories)
	}

	if err := repo.RemoveCategory(ctx, "u1", inv.ID, "utilities"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if err := repo.RemoveCategory(ctx, "u1", inv.ID, "utilities"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("remove twice: want ErrNotFound, got %v", err)
	}
}

func TestDeleteInvoice(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	inv := mustSave(t, repo, core.Invoice{UserID: "u1", Categories: []string{"x"}})

	if err := repo.DeleteInvoice(ctx, "u2", inv.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("other user: want ErrNotFound, got %v", err)
	}
	if err := repo.DeleteInvoice(ctx, "u1", inv.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := repo.GetInvoice(ctx, "u1", inv.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("want ErrNotFound after delete, got %v", err)
	}
}

func TestContentHashLookup(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	inv := mustSave(t, repo, core.Invoice{UserID: "u1", ContentHash: "abc"})

	got, err := repo.FindInvoiceByContentHash(ctx, "u1", "abc")
	if err != nil || got.ID != inv.ID {
		t.Fatalf("want %s, got %+v (%v)", inv.ID, got, err)
	}
	if _, err := repo.FindInvoiceByContentHash(ctx, "u2", "abc"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestListVendorsRollup(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	mustSave(t, repo, core.Invoice{UserID: "u1", VendorName: "Acme", AmountDue: amt("10.50"), IsPaid: true})
	last := mustSave(t, repo, core.Invoice{UserID: "u1", VendorName: "Acme", AmountDue: amt("5"), CreatedOn: base.Add(time.Hour)})
	mustSave(t, repo, core.Invoice{UserID: "u1", VendorName: "Acme"})
	mustSave(t, repo, core.Invoice{UserID: "u1", VendorName: "Globex", AmountDue: amt("1")})
	mustSave(t, repo, core.Invoice{UserID: "u2", VendorName: "Acme", AmountDue: amt("99")})

	vendors, err := repo.ListVendors(ctx, "u1")
	if err != nil {
		t.Fatalf("list vendors: %v", err)
	}
	if len(vendors) != 2 || vendors[0].Name != "Acme" || vendors[1].Name != "Globex" {
		t.Fatalf("unexpected vendors %+v", vendors)
	}
	acme := vendors[0]
	if acme.InvoiceCount != 3 || acme.TotalPaid.String() != "10.5" || acme.TotalDue.String() != "5" {
		t.Fatalf("unexpected Acme roll-up %+v", acme)
	}
	if acme.LastAddedOn == nil || !acme.LastAddedOn.Equal(last.CreatedOn) {
		t.Fatalf("unexpected last added %v", acme.LastAddedOn)
	}
}

func TestAgingReports(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	first := core.AgingReport{ID: "r1", UserID: "u1", CSVURI: "s3://b/r1.csv", CreatedOn: base}
	second := core.AgingReport{ID: "r2", UserID: "u1", CSVURI: "s3://b/r2.csv", CreatedOn: base.Add(time.Minute)}
	for _, rec := range []core.AgingReport{first, second} {
		if err := repo.SaveAgingReport(ctx, rec); err != nil {
			t.Fatalf("save: %v", err)
		}
	}
	if err := repo.SaveAgingReport(ctx, first); err == nil {
		t.Fatalf("duplicate report id accepted")
	}

	got, err := repo.GetAgingReport(ctx, "u1", "r1")
	if err != nil || got.ID != first.ID || got.CSVURI != first.CSVURI || !got.CreatedOn.Equal(first.CreatedOn) {
		t.Fatalf("want %+v, got %+v (%v)", first, got, err)
	}
	if _, err := repo.GetAgingReport(ctx, "u2", "r1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}

	list, err := repo.ListAgingReports(ctx, "u1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 || list[0].ID != "r2" || list[1].ID != "r1" {
		t.Fatalf("unexpected order %+v", list)
	}
}

func TestMigrationVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "v.db")
	if err := RunMigrations(path); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	v, dirty, ok, err := MigrationVersion(path)
	if err != nil || !ok || dirty || v != 1 {
		t.Fatalf("unexpected version v=%d dirty=%v ok=%v err=%v", v, dirty, ok, err)
	}
}
