// Package worker builds aging reports requested over AMQP.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"payables/internal/aging"
	"payables/internal/amqp"
	"payables/internal/cache"
	"payables/internal/core"
)

const (
	DefaultReportTimeout = 2 * time.Minute
	seenRequestTTL       = time.Hour
)

type Generator interface {
	Generate(ctx context.Context, userID string) (core.AgingReport, error)
}

// Consumer is satisfied by *amqp.Client.
type Consumer interface {
	ConsumeAgingReportRequests(ctx context.Context, handler func(context.Context, *amqp.AgingReportRequestedMessage) error) error
}

// ReportWorker handles aging report requests one at a time. Redelivered
// requests that already produced a report are skipped.
type ReportWorker struct {
	generator Generator
	timeout   time.Duration
	seen      *cache.LRUCache[string]
}

func NewReportWorker(generator Generator, timeout time.Duration) *ReportWorker {
	if timeout <= 0 {
		timeout = DefaultReportTimeout
	}
	return &ReportWorker{
		generator: generator,
		timeout:   timeout,
		seen:      cache.NewLRUCache[string](1024, seenRequestTTL),
	}
}

func (w *ReportWorker) HandleReportRequest(ctx context.Context, msg *amqp.AgingReportRequestedMessage) error {
	if msg.RequestID != "" {
		if reportID, ok := w.seen.Get(msg.RequestID); ok {
			slog.InfoContext(ctx, "Skipping already processed report request",
				"request_id", msg.RequestID,
				"report_id", reportID)
			return nil
		}
	}

	slog.InfoContext(ctx, "Processing aging report request",
		"user_id", msg.UserID,
		"request_id", msg.RequestID,
		"queued_for", time.Since(msg.RequestedAt).String())

	ctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	rec, err := w.generator.Generate(ctx, msg.UserID)
	if err != nil {
		if isPermanent(err) {
			err = errors.Join(amqp.ErrPermanent, err)
		}
		return fmt.Errorf("generate aging report for %s: %w", msg.UserID, err)
	}
	if msg.RequestID != "" {
		w.seen.Set(msg.RequestID, rec.ID)
	}
	return nil
}

// isPermanent reports whether err comes from the invoice data itself, so
// regenerating the same request would fail the same way.
func isPermanent(err error) bool {
	return errors.Is(err, aging.ErrMissingAmount) ||
		errors.Is(err, aging.ErrMissingDueDate) ||
		errors.Is(err, core.ErrEmptyUserID)
}

// Run consumes requests until ctx is cancelled.
func (w *ReportWorker) Run(ctx context.Context, consumer Consumer) error {
	g, gctx := errgroup.WithContext(ctx)
	janitor := cache.NewJanitor(w.seen)

	g.Go(func() error {
		janitor.Run(gctx, 10*time.Minute)
		return nil
	})
	g.Go(func() error {
		return consumer.ConsumeAgingReportRequests(gctx, w.HandleReportRequest)
	})

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
