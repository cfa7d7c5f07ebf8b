package services

import (
	"context"
	"errors"
	"fmt"

	"payables/internal/aging"
	"payables/internal/core"
)

// ErrAsyncUnavailable is returned when a queued report is requested but no
// broker is configured.
var ErrAsyncUnavailable = errors.New("asynchronous report generation is not configured")

// ErrDownloadUnavailable is returned when the object store cannot read
// reports back.
var ErrDownloadUnavailable = errors.New("report download is not supported by the object store")

// ReportGenerator is satisfied by *aging.Generator.
type ReportGenerator interface {
	Generate(ctx context.Context, userID string) (core.AgingReport, error)
}

// ReportReader is satisfied by objectstore.Reader.
type ReportReader interface {
	Get(ctx context.Context, key string) ([]byte, error)
}

type ReportService struct {
	generator ReportGenerator
	repo      ReportRepository
	requester ReportRequester
	reader    ReportReader
}

type ReportOption func(*ReportService)

// WithReportReader enables Download.
func WithReportReader(r ReportReader) ReportOption {
	return func(s *ReportService) { s.reader = r }
}

// NewReportService queues requests through requester when it is not nil.
func NewReportService(generator ReportGenerator, repo ReportRepository, requester ReportRequester, opts ...ReportOption) *ReportService {
	s := &ReportService{generator: generator, repo: repo, requester: requester}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *ReportService) Generate(ctx context.Context, userID string) (core.AgingReport, error) {
	if userID == "" {
		return core.AgingReport{}, core.ErrEmptyUserID
	}
	return s.generator.Generate(ctx, userID)
}

// Request queues a report build for a worker.
func (s *ReportService) Request(ctx context.Context, userID, requestID string) error {
	if userID == "" {
		return core.ErrEmptyUserID
	}
	if s.requester == nil {
		return ErrAsyncUnavailable
	}
	if err := s.requester.PublishAgingReportRequest(ctx, userID, requestID); err != nil {
		return fmt.Errorf("queue aging report: %w", err)
	}
	return nil
}

func (s *ReportService) Get(ctx context.Context, userID, id string) (core.AgingReport, error) {
	return s.repo.GetAgingReport(ctx, userID, id)
}

func (s *ReportService) List(ctx context.Context, userID string) ([]core.AgingReport, error) {
	if userID == "" {
		return nil, core.ErrEmptyUserID
	}
	return s.repo.ListAgingReports(ctx, userID)
}

// Download reads back the stored CSV of the user's report id.
func (s *ReportService) Download(ctx context.Context, userID, id string) (core.AgingReport, []byte, error) {
	if userID == "" {
		return core.AgingReport{}, nil, core.ErrEmptyUserID
	}
	rec, err := s.repo.GetAgingReport(ctx, userID, id)
	if err != nil {
		return core.AgingReport{}, nil, err
	}
	if s.reader == nil {
		return core.AgingReport{}, nil, ErrDownloadUnavailable
	}
	body, err := s.reader.Get(ctx, aging.ReportKey(rec.UserID, rec.ID, rec.CreatedOn))
	if err != nil {
		return core.AgingReport{}, nil, fmt.Errorf("read report %s: %w", rec.ID, err)
	}
	return rec, body, nil
}
