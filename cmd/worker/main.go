package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/ibernabel/lamas-backend/internal/config"
	"github.com/ibernabel/lamas-backend/internal/db"
	"github.com/ibernabel/lamas-backend/internal/domain/creditrisk"
	"github.com/ibernabel/lamas-backend/internal/domain/customer"
	"github.com/ibernabel/lamas-backend/internal/domain/loanapp"
	"github.com/ibernabel/lamas-backend/internal/jobs"
	"github.com/ibernabel/lamas-backend/internal/observability"
	postgresrepo "github.com/ibernabel/lamas-backend/internal/repository/postgres"
)

type riskCatalog struct {
	risks *creditrisk.Service
}

func (rc riskCatalog) GetRisk(ctx context.Context, riskID int64) (*loanapp.CreditRiskEntry, error) {
	risk, err := rc.risks.GetRisk(ctx, riskID)
	if err != nil {
		return nil, err
	}
	return &loanapp.CreditRiskEntry{ID: risk.ID, Name: risk.Name}, nil
}

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	logger := observability.NewLogger(cfg.Env)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.NewPostgresPool(ctx, cfg)
	if err != nil {
		logger.Error("failed to connect postgres", "err", err)
		os.Exit(1)
	}
	defer pool.Close()

	appRepo := postgresrepo.NewApplicationRepository(pool)
	appService := loanapp.NewService(
		appRepo,
		customer.NewService(postgresrepo.NewCustomerRepository(pool)),
		riskCatalog{risks: creditrisk.NewService(postgresrepo.NewCreditRiskRepository(pool))},
	)
	archiver := jobs.NewArchiver(appRepo, appService, cfg.ArchiveAfterDays)

	interval := cfg.WorkerPollInterval
	if interval <= 0 {
		interval = time.Hour
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("archiver worker started", "interval", interval.String(), "batch_size", cfg.WorkerBatchSize, "archive_after_days", cfg.ArchiveAfterDays)
	for {
		select {
		case <-sigCtx.Done():
			logger.Info("archiver worker stopped")
			return
		case <-ticker.C:
			runCtx, runCancel := context.WithTimeout(context.Background(), 30*time.Second)
			archived, err := archiver.RunOnce(runCtx, cfg.WorkerBatchSize)
			runCancel()
			if err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("archiver run failed", "err", err, "archived", archived)
				continue
			}
			if archived > 0 {
				logger.Info("archived applications", "count", archived)
			}
		}
	}
}
