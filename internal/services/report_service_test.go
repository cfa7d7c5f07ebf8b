package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"payables/internal/aging"
	"payables/internal/core"
	"payables/internal/objectstore"
	"payables/internal/storage"
)

type fakeGenerator struct{ users []string }

func (g *fakeGenerator) Generate(_ context.Context, userID string) (core.AgingReport, error) {
	g.users = append(g.users, userID)
	return core.AgingReport{ID: "r1", UserID: userID, CSVURI: "mem://r1.csv", CreatedOn: time.Now()}, nil
}

type fakeReports struct{ reports []core.AgingReport }

func (f *fakeReports) GetAgingReport(_ context.Context, userID, id string) (core.AgingReport, error) {
	for _, r := range f.reports {
		if r.UserID == userID && r.ID == id {
			return r, nil
		}
	}
	return core.AgingReport{}, storage.ErrNotFound
}

func (f *fakeReports) ListAgingReports(_ context.Context, userID string) ([]core.AgingReport, error) {
	var out []core.AgingReport
	for _, r := range f.reports {
		if r.UserID == userID {
			out = append(out, r)
		}
	}
	return out, nil
}

func TestReportService(t *testing.T) {
	gen := &fakeGenerator{}
	repo := &fakeReports{reports: []core.AgingReport{{ID: "r0", UserID: "u"}}}
	ctx := context.Background()

	sync := NewReportService(gen, repo, nil)
	rec, err := sync.Generate(ctx, "u")
	if err != nil || rec.UserID != "u" || len(gen.users) != 1 {
		t.Fatalf("generate: %+v %v", rec, err)
	}
	if err := sync.Request(ctx, "u", "req"); !errors.Is(err, ErrAsyncUnavailable) {
		t.Fatalf("got %v", err)
	}
	if _, err := sync.Generate(ctx, ""); !errors.Is(err, core.ErrEmptyUserID) {
		t.Fatalf("got %v", err)
	}

	pub := &fakePublisher{}
	async := NewReportService(gen, repo, pub)
	if err := async.Request(ctx, "u", "req"); err != nil || len(pub.requests) != 1 {
		t.Fatalf("request: %v %v", pub.requests, err)
	}
	pub.err = errBoom
	if err := async.Request(ctx, "u", "req"); !errors.Is(err, errBoom) {
		t.Fatalf("got %v", err)
	}

	list, err := async.List(ctx, "u")
	if err != nil || len(list) != 1 {
		t.Fatalf("list %+v %v", list, err)
	}
	if _, err := async.Get(ctx, "u", "missing"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("got %v", err)
	}
}

func TestReportServiceDownload(t *testing.T) {
	ctx := context.Background()
	created := time.Date(2026, time.March, 1, 9, 30, 0, 0, time.UTC)
	rec := core.AgingReport{ID: "r1", UserID: "u", CreatedOn: created}
	repo := &fakeReports{reports: []core.AgingReport{rec}}

	store := objectstore.NewMemoryStore()
	if _, err := store.Upload(ctx, aging.ReportKey("u", "r1", created), []byte("Aging,03/01/2026\n"), "text/csv"); err != nil {
		t.Fatal(err)
	}

	svc := NewReportService(&fakeGenerator{}, repo, nil, WithReportReader(store))
	got, body, err := svc.Download(ctx, "u", "r1")
	if err != nil || got.ID != "r1" || string(body) != "Aging,03/01/2026\n" {
		t.Fatalf("download: %+v %q %v", got, body, err)
	}
	if _, _, err := svc.Download(ctx, "other", "r1"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("other user: %v", err)
	}
	if _, _, err := svc.Download(ctx, "", "r1"); !errors.Is(err, core.ErrEmptyUserID) {
		t.Fatalf("empty user: %v", err)
	}

	repo.reports = append(repo.reports, core.AgingReport{ID: "r2", UserID: "u", CreatedOn: created})
	if _, _, err := svc.Download(ctx, "u", "r2"); !errors.Is(err, objectstore.ErrObjectNotFound) {
		t.Fatalf("missing object: %v", err)
	}

	noReader := NewReportService(&fakeGenerator{}, repo, nil)
	if _, _, err := noReader.Download(ctx, "u", "r1"); !errors.Is(err, ErrDownloadUnavailable) {
		t.Fatalf("no reader: %v", err)
	}
}
