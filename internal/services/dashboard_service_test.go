package services

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"payables/internal/cache"
	"payables/internal/core"
)

type fakeStats struct {
	calls   atomic.Int32
	failPay error
}

func (f *fakeStats) CountDueSoon(context.Context, string, time.Time) (int64, error) {
	f.calls.Add(1)
	return 3, nil
}

func (f *fakeStats) CountOverdue(context.Context, string, time.Time) (int64, error) {
	f.calls.Add(1)
	return 2, nil
}

func (f *fakeStats) CountPaid(context.Context, string) (int64, error) {
	f.calls.Add(1)
	return 7, f.failPay
}

func TestDashboardService_Stats(t *testing.T) {
	repo := &fakeStats{}
	c := cache.NewLRUCache[core.DashboardStats](10, time.Minute)
	svc := NewDashboardService(repo, c)

	got, err := svc.Stats(context.Background(), "u")
	if err != nil {
		t.Fatal(err)
	}
	want := core.DashboardStats{DueSoon: 3, Overdue: 2, Paid: 7}
	if got != want {
		t.Fatalf("got %+v, want %+v", got, want)
	}

	if _, err := svc.Stats(context.Background(), "u"); err != nil {
		t.Fatal(err)
	}
	if repo.calls.Load() != 3 {
		t.Fatalf("second call should hit the cache, repo calls %d", repo.calls.Load())
	}
}

func TestDashboardService_Errors(t *testing.T) {
	svc := NewDashboardService(&fakeStats{failPay: errBoom}, nil)
	if _, err := svc.Stats(context.Background(), "u"); !errors.Is(err, errBoom) {
		t.Fatalf("got %v", err)
	}
	if _, err := svc.Stats(context.Background(), ""); !errors.Is(err, core.ErrEmptyUserID) {
		t.Fatalf("got %v", err)
	}
}
