package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	httpapi "github.com/booking-engine/booking-engine/internal/api/http"
	"github.com/booking-engine/booking-engine/internal/application/commission"
	"github.com/booking-engine/booking-engine/internal/application/expiry"
	"github.com/booking-engine/booking-engine/internal/application/integrity"
	"github.com/booking-engine/booking-engine/internal/application/offer"
	"github.com/booking-engine/booking-engine/internal/application/sideeffect"
	"github.com/booking-engine/booking-engine/internal/config"
	"github.com/booking-engine/booking-engine/internal/infrastructure/postgres"
)

func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db error: %v", err)
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool, "internal/migrations"); err != nil {
		log.Fatalf("migration error: %v", err)
	}

	// repositories
	bookingRepo := postgres.NewBookingRepository(pool)
	commissionRepo := postgres.NewCommissionRepository(pool)
	sideEffectRepo := postgres.NewSideEffectRepository(pool)
	integrityRepo := postgres.NewIntegrityRepository(pool)

	// services
	issuerSvc := commission.NewService(commissionRepo, logger)
	effectSvc := sideeffect.NewService(sideEffectRepo, cfg.ChatLatencyBudget, cfg.NotifyLatencyBudget, logger)
	clock := expiry.NewScheduler(bookingRepo, logger)
	offerSvc := offer.NewService(bookingRepo, issuerSvc, effectSvc, clock, cfg.OfferWindow, cfg.StoreTimeout, logger)
	clock.Bind(offerSvc)

	tolerance, err := decimal.NewFromString(cfg.AmountTolerancePct)
	if err != nil {
		log.Fatalf("amount tolerance error: %v", err)
	}
	rules, err := integrity.ParseRules(cfg.IntegrityRules)
	if err != nil {
		log.Fatalf("integrity rules error: %v", err)
	}
	integritySvc := integrity.NewService(bookingRepo, commissionRepo, sideEffectRepo, integrityRepo, integrity.Config{
		TolerancePct:            tolerance,
		CommissionLatencyBudget: cfg.CommissionLatencyBudget,
		ChatLatencyBudget:       cfg.ChatLatencyBudget,
		NotifyLatencyBudget:     cfg.NotifyLatencyBudget,
		SigningKey:              cfg.IntegritySigningKey,
		Rules:                   rules,
	}, logger)

	// re-arm offer timers persisted before the last shutdown
	if err := clock.Recover(ctx); err != nil {
		log.Fatalf("offer clock recovery error: %v", err)
	}

	// API server
	apiServer := httpapi.NewServer(offerSvc, issuerSvc, integritySvc)

	httpServer := &http.Server{
		Addr:         cfg.ServerAddr,
		Handler:      apiServer.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// background sweep for offers whose timer was lost
	sweepCtx, stopSweep := context.WithCancel(context.Background())
	go clock.Run(sweepCtx, cfg.SweepInterval)

	// start server
	go func() {
		logger.Info().Str("addr", cfg.ServerAddr).Msg("http server started")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	// graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	stopSweep()
	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = httpServer.Shutdown(ctxShutdown)
}
