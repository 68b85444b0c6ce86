package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/ibernabel/lamas-backend/internal/auth"
	"github.com/ibernabel/lamas-backend/internal/config"
	"github.com/ibernabel/lamas-backend/internal/db"
	"github.com/ibernabel/lamas-backend/internal/domain/creditrisk"
	"github.com/ibernabel/lamas-backend/internal/domain/customer"
	"github.com/ibernabel/lamas-backend/internal/domain/loanapp"
	"github.com/ibernabel/lamas-backend/internal/http/handlers"
	"github.com/ibernabel/lamas-backend/internal/observability"
	postgresrepo "github.com/ibernabel/lamas-backend/internal/repository/postgres"
	"github.com/ibernabel/lamas-backend/internal/scoring"
	"github.com/ibernabel/lamas-backend/internal/server"
	"github.com/ibernabel/lamas-backend/internal/ws"
)

// riskCatalog narrows the credit risk service to the lookup the loan
// application workflow needs.
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

	authRepo := db.NewAuthRepository(pool)
	jwtManager := auth.NewJWTManager(cfg.JWTIssuer, cfg.JWTAudience, cfg.JWTSigningKey)
	authService := auth.NewService(authRepo, jwtManager, cfg.JWTAccessTTL, cfg.JWTRefreshTTL)
	authHandler := handlers.NewAuthHandler(authService, auth.CookieConfig{Domain: cfg.CookieDomain, Secure: cfg.CookieSecure}, cfg.JWTAccessTTL, cfg.JWTRefreshTTL)

	customerService := customer.NewService(postgresrepo.NewCustomerRepository(pool))
	riskService := creditrisk.NewService(postgresrepo.NewCreditRiskRepository(pool))
	appService := loanapp.NewService(
		postgresrepo.NewApplicationRepository(pool),
		customerService,
		riskCatalog{risks: riskService},
	)

	var gateway scoring.Gateway = scoring.DisabledGateway{}
	if cfg.ScoringURL != "" {
		httpGateway, err := scoring.NewHTTPGateway(cfg.ScoringURL, cfg.ScoringAPIKey, cfg.ScoringTimeout)
		if err != nil {
			logger.Error("invalid scoring gateway configuration", "err", err)
			os.Exit(1)
		}
		gateway = httpGateway
	} else {
		logger.Warn("SCORING_URL not set, evaluation requests will fail as retryable")
	}
	scoringService := scoring.NewService(
		gateway,
		postgresrepo.NewScoringResultRepository(pool),
		appService,
		scoring.Policy{
			AutoApproveConfidence: cfg.ScoringAutoApproveConfidence,
			EscalationAmount:      cfg.ScoringEscalationAmount,
		},
	)

	hub := ws.NewHub()
	notifier := ws.NewNotifier(postgresrepo.NewStatusEventRepository(pool), hub, cfg.WSPollInterval)

	r := server.NewRouter(cfg, logger, server.Dependencies{
		Pinger:             pool,
		AuthHandler:        authHandler,
		ApplicationHandler: handlers.NewLoanApplicationHandler(appService, scoringService),
		CustomerHandler:    handlers.NewCustomerHandler(customerService),
		CreditRiskHandler:  handlers.NewCreditRiskHandler(riskService),
		Hub:                hub,
		JWTManager:         jwtManager,
	})
	httpServer := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	notifierCtx, notifierCancel := context.WithCancel(context.Background())
	defer notifierCancel()
	go func() {
		if err := notifier.Run(notifierCtx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("status notifier stopped", "err", err)
		}
	}()

	go func() {
		logger.Info("api server starting", "addr", cfg.Addr())
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", "err", err)
			os.Exit(1)
		}
	}()

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-sigCtx.Done()

	notifierCancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = httpServer.Shutdown(shutdownCtx)
	logger.Info("api server stopped")
}
