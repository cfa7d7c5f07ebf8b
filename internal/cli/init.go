// Package cli provides common initialization utilities shared by
// cmd/payables, cmd/report-worker and cmd/payablesctl.
package cli

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"payables/internal/aging"
	"payables/internal/amqp"
	"payables/internal/config"
	"payables/internal/log"
	"payables/internal/objectstore"
	"payables/internal/ocr"
	"payables/internal/storage"
)

// SetupLogger builds the process logger from cfg and installs it as the
// slog default.
func SetupLogger(cfg *config.Config, component string) *log.Logger {
	return SetupLoggerTo(cfg, component, os.Stdout)
}

// SetupLoggerTo is SetupLogger writing to out.
func SetupLoggerTo(cfg *config.Config, component string, out io.Writer) *log.Logger {
	logger := log.New(log.Config{
		Level:     log.ParseLevel(cfg.LogLevel),
		Format:    cfg.LogFormat,
		Component: component,
		Output:    out,
	})
	log.SetDefault(logger)
	return logger
}

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig loads configuration from the environment, or from
// path when it is set, and validates it. It exits the process on failure.
func LoadAndValidateConfig(path string) *config.Config {
	bootstrap := log.New(log.DefaultConfig())

	cfg := config.Load()
	if path != "" {
		var err error
		if cfg, err = config.LoadFile(path); err != nil {
			bootstrap.Error("Failed to load config file", log.FieldError, err, "path", path)
			os.Exit(1)
		}
	}
	if err := cfg.Validate(); err != nil {
		bootstrap.Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}
	return cfg
}

// InitSQLite initializes a SQLite repository with the given path.
// Returns the repository or exits the process on failure.
func InitSQLite(logger *log.Logger, dbPath string) *storage.SQLiteRepository {
	repo, err := storage.NewSQLiteRepository(dbPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", log.FieldError, err, "path", dbPath)
		os.Exit(1)
	}
	return repo
}

// ObjectStoreConfig maps the application config to the object store one.
func ObjectStoreConfig(cfg *config.Config) objectstore.Config {
	return objectstore.Config{
		Backend:         objectstore.BackendType(cfg.ObjectStoreBackend),
		Bucket:          cfg.ObjectStoreBucket,
		Prefix:          cfg.ObjectStorePrefix,
		Region:          cfg.ObjectStoreRegion,
		Endpoint:        cfg.ObjectStoreEndpoint,
		UsePathStyle:    cfg.ObjectStorePathStyle,
		CredentialsFile: cfg.GoogleCredentialsFile,
		BoltPath:        cfg.BoltPath,
	}
}

// InitObjectStore opens the configured backend or exits the process.
func InitObjectStore(ctx context.Context, logger *log.Logger, cfg *config.Config) (objectstore.Store, objectstore.CleanupFunc) {
	store, cleanup, err := objectstore.Open(ctx, ObjectStoreConfig(cfg))
	if err != nil {
		logger.Error("Failed to initialize object store", log.FieldError, err, "backend", cfg.ObjectStoreBackend)
		os.Exit(1)
	}
	logger.Info("Object store initialized", "backend", cfg.ObjectStoreBackend, "bucket", cfg.ObjectStoreBucket)
	return store, cleanup
}

// InitExtractor returns the Vision extractor when configured and ocr.None
// otherwise. The returned func releases the client.
func InitExtractor(ctx context.Context, logger *log.Logger, cfg *config.Config) (ocr.Extractor, func()) {
	if cfg.OCRBackend != "vision" {
		logger.Info("OCR disabled, uploads are stored without extracted fields")
		return ocr.None{}, func() {}
	}
	v, err := ocr.NewVisionExtractor(ctx, cfg.GoogleCredentialsFile)
	if err != nil {
		logger.Error("Failed to initialize Vision OCR client", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Vision OCR client initialized")
	return v, func() { _ = v.Close() }
}

// InitAMQP connects to the broker when AMQP_URL is set. It returns nil when
// messaging is disabled.
func InitAMQP(logger *log.Logger, cfg *config.Config) *amqp.Client {
	if cfg.AMQPURL == "" {
		logger.Info("AMQP disabled - no AMQP_URL provided")
		return nil
	}
	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("AMQP client initialized", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	return client
}

// NewGenerator wires the aging report generator to storage.
func NewGenerator(cfg *config.Config, repo *storage.SQLiteRepository, store objectstore.Store) *aging.Generator {
	return aging.NewGenerator(repo, store, repo, aging.WithTitle(cfg.ReportTitle))
}

// GracefulShutdown sets up signal handling for graceful shutdown.
// Returns a context that will be cancelled on shutdown signals,
// and a channel that signals when shutdown is complete.
func GracefulShutdown(logger *log.Logger, timeout time.Duration, cleanup func(context.Context)) (context.Context, <-chan struct{}) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), timeout)
		defer shutdownCancel()

		cancel()
		if cleanup != nil {
			cleanup(shutdownCtx)
		}

		if shutdownCtx.Err() != nil {
			logger.Warn("Shutdown timeout reached")
		} else {
			logger.Info("Shutdown complete")
		}
		close(done)
	}()

	return ctx, done
}

// WaitForShutdown blocks until the context is cancelled.
func WaitForShutdown(ctx context.Context, done <-chan struct{}) {
	<-ctx.Done()
	<-done
}
