package main

import (
	"context"
	"os"

	"payables/internal/cli"
	"payables/internal/log"
	"payables/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig(os.Getenv("PAYABLES_CONFIG"))
	logger := cli.SetupLogger(cfg, log.ComponentWorker)

	logger.Info("Starting report-worker")

	client := cli.InitAMQP(logger, cfg)
	if client == nil {
		logger.Error("The report worker requires AMQP_URL")
		os.Exit(1)
	}
	defer client.Close()

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	store, closeStore := cli.InitObjectStore(context.Background(), logger, cfg)
	defer closeStore()

	w := worker.NewReportWorker(cli.NewGenerator(cfg, repo, store), worker.DefaultReportTimeout)

	ctx, done := cli.GracefulShutdown(logger, cfg.ShutdownTimeout, nil)

	if err := w.Run(ctx, client); err != nil {
		logger.Error("Report worker stopped", log.FieldError, err)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Report worker stopped gracefully")
}
