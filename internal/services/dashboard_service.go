package services

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"payables/internal/cache"
	"payables/internal/core"
)

// DashboardService serves the per-user invoice counters.
type DashboardService struct {
	repo  StatsRepository
	cache cache.Cache[core.DashboardStats]
	now   func() time.Time
}

// NewDashboardService caches results in c when it is not nil.
func NewDashboardService(repo StatsRepository, c cache.Cache[core.DashboardStats]) *DashboardService {
	return &DashboardService{repo: repo, cache: c, now: time.Now}
}

// Stats runs the three counts concurrently.
func (s *DashboardService) Stats(ctx context.Context, userID string) (core.DashboardStats, error) {
	if userID == "" {
		return core.DashboardStats{}, core.ErrEmptyUserID
	}
	key := cache.UserKey(userID, "dashboard")
	if s.cache != nil {
		if stats, ok := s.cache.Get(key); ok {
			return stats, nil
		}
	}

	now := s.now().UTC()
	var stats core.DashboardStats
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		stats.DueSoon, err = s.repo.CountDueSoon(gctx, userID, now)
		return err
	})
	g.Go(func() (err error) {
		stats.Overdue, err = s.repo.CountOverdue(gctx, userID, now)
		return err
	})
	g.Go(func() (err error) {
		stats.Paid, err = s.repo.CountPaid(gctx, userID)
		return err
	})
	if err := g.Wait(); err != nil {
		return core.DashboardStats{}, fmt.Errorf("dashboard stats: %w", err)
	}

	if s.cache != nil {
		s.cache.Set(key, stats)
	}
	return stats, nil
}
