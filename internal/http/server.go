package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"payables/internal/log"
	"payables/internal/middleware/ratelimit"
	"payables/internal/middleware/security"
	"payables/internal/middleware/trace"
	"payables/internal/services"
)

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Sizer is satisfied by the caches behind the dashboard and vendor views.
type Sizer interface {
	Size() int
}

// Deps are the services the API delegates to.
type Deps struct {
	Invoices  *services.InvoiceService
	Calendar  *services.CalendarService
	Dashboard *services.DashboardService
	Vendors   *services.VendorService
	Reports   *services.ReportService

	// DB backs /readyz. Nil reports ready.
	DB     Pinger
	Caches map[string]Sizer
	Logger *log.Logger

	RateLimitPerMinute int
	MaxUploadBytes     int64
	// TrustedProxies extend the private ranges whose X-Forwarded-For is
	// believed when resolving client addresses.
	TrustedProxies []string
}

type Server struct {
	http.Server
	deps   Deps
	logger *log.Logger

	limiter  *ratelimit.Limiter
	detector *security.Detector
	tracer   *trace.Middleware
	started  time.Time

	shutdownOnce sync.Once
}

func NewServer(addr string, deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = log.FromContext(context.Background())
	}
	if deps.MaxUploadBytes <= 0 {
		deps.MaxUploadBytes = services.DefaultMaxUploadBytes
	}

	limitCfg := ratelimit.DefaultConfig()
	if deps.RateLimitPerMinute > 0 {
		limitCfg.RequestsPerMinute = deps.RateLimitPerMinute
	}

	s := &Server{
		deps:     deps,
		logger:   logger.WithComponent(log.ComponentHTTP),
		limiter:  ratelimit.NewLimiter(limitCfg),
		detector: security.NewDetector(),
		started:  time.Now(),
	}
	for _, cidr := range deps.TrustedProxies {
		if err := s.detector.AddTrustedProxy(cidr); err != nil {
			s.logger.Warn("Ignoring trusted proxy", log.FieldError, err)
		}
	}
	s.tracer = trace.NewMiddleware(s.logger, s.detector.ClientIP)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /metrics", s.handleMetrics)

	mux.HandleFunc("GET /api/invoices", s.withUser(s.handleListInvoices))
	mux.HandleFunc("POST /api/invoices/upload", s.withUser(s.handleUploadInvoice))
	mux.HandleFunc("GET /api/invoices/{id}", s.withUser(s.handleGetInvoice))
	mux.HandleFunc("DELETE /api/invoices/{id}", s.withUser(s.handleDeleteInvoice))
	mux.HandleFunc("POST /api/invoices/{id}/paid", s.withUser(s.handleSetPaid))
	mux.HandleFunc("PUT /api/invoices/{id}/categories", s.withUser(s.handleAddCategory))
	mux.HandleFunc("DELETE /api/invoices/{id}/categories", s.withUser(s.handleRemoveCategory))

	mux.HandleFunc("GET /api/calendar", s.withUser(s.handleCalendar))
	mux.HandleFunc("GET /api/vendors", s.withUser(s.handleVendors))
	mux.HandleFunc("GET /api/dashboard", s.withUser(s.handleDashboard))

	mux.HandleFunc("POST /api/reports/aging", s.withUser(s.handleCreateAgingReport))
	mux.HandleFunc("GET /api/reports", s.withUser(s.handleListReports))
	mux.HandleFunc("GET /api/reports/{id}", s.withUser(s.handleGetReport))
	mux.HandleFunc("GET /api/reports/{id}/csv", s.withUser(s.handleDownloadReport))

	limit := s.limiter.Middleware(s.detector.ClientIP, ratelimit.Mutating, func(w http.ResponseWriter, r *http.Request) {
		ErrorResponse(http.StatusTooManyRequests, "rate limit exceeded").Write(w)
	})

	var handler http.Handler = mux
	handler = limit(handler)
	handler = log.RequestIDMiddleware(func(r *http.Request) string { return trace.GetRequestID(r.Context()) })(handler)
	handler = s.tracer.Middleware(handler)
	handler = log.Middleware(s.logger)(handler)
	handler = s.detector.Middleware(handler)
	handler = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(handler)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      120 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

// Shutdown stops the rate limiter and drains the HTTP server once.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// withUser rejects requests without X-User-ID.
func (s *Server) withUser(next func(http.ResponseWriter, *http.Request, string)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := UserID(r)
		if userID == "" {
			UnauthorizedError().Write(w)
			return
		}
		next(w, r, userID)
	}
}

// fail logs server errors and writes the mapped response.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	if StatusFor(err) >= http.StatusInternalServerError {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Request failed",
			log.FieldOperation, op,
			log.FieldError, err)
	}
	ErrorFor(err).Write(w)
}
