package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"payables/internal/cache"
	"payables/internal/cli"
	"payables/internal/core"
	apphttp "payables/internal/http"
	"payables/internal/log"
	"payables/internal/objectstore"
	"payables/internal/services"
)

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig(os.Getenv("PAYABLES_CONFIG"))
	logger := cli.SetupLogger(cfg, log.ComponentApp)

	ctx := context.Background()
	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	store, closeStore := cli.InitObjectStore(ctx, logger, cfg)
	defer closeStore()

	extractor, closeExtractor := cli.InitExtractor(ctx, logger, cfg)
	defer closeExtractor()

	var (
		events    services.EventPublisher
		requester services.ReportRequester
	)
	if client := cli.InitAMQP(logger, cfg); client != nil {
		defer client.Close()
		events, requester = client, client
	}

	dashCache := cache.NewLRUCache[core.DashboardStats](1000, 5*time.Minute)
	vendorCache := cache.NewLRUCache[[]services.VendorView](1000, 5*time.Minute)
	janitorCtx, stopJanitor := context.WithCancel(ctx)
	defer stopJanitor()
	go cache.NewJanitor(dashCache, vendorCache).Run(janitorCtx, 10*time.Minute)

	var reportOpts []services.ReportOption
	if reader, ok := store.(objectstore.Reader); ok {
		reportOpts = append(reportOpts, services.WithReportReader(reader))
	}

	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Deps{
		Invoices: services.NewInvoiceService(repo, store, extractor,
			services.WithMaxUploadBytes(cfg.UploadMaxBytes),
			services.WithEventPublisher(events),
			services.WithInvalidation(dashCache, vendorCache)),
		Calendar:           services.NewCalendarService(repo),
		Dashboard:          services.NewDashboardService(repo, dashCache),
		Vendors:            services.NewVendorService(repo, vendorCache),
		Reports:            services.NewReportService(cli.NewGenerator(cfg, repo, store), repo, requester, reportOpts...),
		DB:                 repo,
		Caches:             map[string]apphttp.Sizer{"dashboard": dashCache, "vendors": vendorCache},
		Logger:             logger,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		MaxUploadBytes:     cfg.UploadMaxBytes,
		TrustedProxies:     cfg.TrustedProxies,
	})

	shutdownCtx, done := cli.GracefulShutdown(logger, cfg.ShutdownTimeout, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
	})

	logger.Info("Starting payables server",
		"port", cfg.Port,
		"object_store", cfg.ObjectStoreBackend,
		"ocr", cfg.OCRBackend,
		"amqp_enabled", requester != nil)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(shutdownCtx, done)
	logger.Info("Server stopped gracefully")
}
