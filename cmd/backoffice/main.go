// Package main is the entry point for the mealmarket back-office admin
// server.  Runs on its own port and exposes staff-only endpoints protected
// by role checks and an optional IP allowlist.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/campusmess/mealmarket/internal/backoffice"
	"github.com/campusmess/mealmarket/internal/config"
	"github.com/campusmess/mealmarket/internal/domain"
	"github.com/campusmess/mealmarket/internal/repository"
	"github.com/campusmess/mealmarket/internal/service"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

func main() {
	// ── Logger ────────────────────────────────────────────────────────────────
	cfg := config.MustLoad()
	logger := newLogger(cfg)

	logger.Info("starting mealmarket backoffice server",
		"env", cfg.Server.Env, "port", cfg.Server.BackofficePort)

	// ── Database ──────────────────────────────────────────────────────────────
	// The API server owns the schema; the backoffice connects to it read/write
	// but does not run migrations.
	db, err := openDB(cfg)
	if err != nil {
		logger.Error("database setup failed", "err", err)
		os.Exit(1)
	}
	logger.Info("database connected")

	// ── Repositories ──────────────────────────────────────────────────────────
	userRepo := repository.NewUserRepository(db)
	listingRepo := repository.NewListingRepository(db)
	bidRepo := repository.NewBidRepository(db)
	feedbackRepo := repository.NewFeedbackRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)

	// ── Services ──────────────────────────────────────────────────────────────
	guard := service.NewListingGuard()

	maxDrops, sellOnClear, expireBidless, allowUnlist := cfg.Market.PolicyFields()
	policy := domain.Policy{
		MaxPriceDrops:         maxDrops,
		SellOnPriceClear:      sellOnClear,
		ExpireBidlessAuctions: expireBidless,
		AllowUnlistWithBids:   allowUnlist,
	}

	notifySvc := service.NewNotifyService(userRepo, notificationRepo, logger)
	authSvc := service.NewAuthService(db, userRepo, cfg.JWT, logger)
	userSvc := service.NewUserService(userRepo, logger)
	minDesc, maxEvidence := cfg.Feedback.LimitFields()
	limits := domain.ReportLimits{MinDescription: minDesc, MaxEvidenceURLs: maxEvidence}

	feedbackSvc := service.NewFeedbackService(feedbackRepo, listingRepo, userRepo, limits, notifySvc, logger)
	paymentSvc := service.NewPaymentService(db, paymentRepo, listingRepo, bidRepo, guard, notifySvc, logger)

	// Force-settle goes through the same settlement path as the scheduler.
	settlementSvc := service.NewSettlementService(db, listingRepo, bidRepo, paymentRepo, guard, policy, notifySvc, logger)

	// ── Signal context ────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Router ────────────────────────────────────────────────────────────────
	router := backoffice.SetupBackofficeRouter(backoffice.BackofficeDeps{
		AuthSvc:       authSvc,
		UserSvc:       userSvc,
		FeedbackSvc:   feedbackSvc,
		SettlementSvc: settlementSvc,
		PaymentSvc:    paymentSvc,
		UserRepo:      userRepo,
		ListingRepo:   listingRepo,
		BidRepo:       bidRepo,
		Hub:           nil, // backoffice does not serve WS
		Cfg:           cfg,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Server.BackofficePort,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// ── Start ─────────────────────────────────────────────────────────────────
	go func() {
		logger.Info("backoffice http server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("backoffice server error", "err", err)
			stop()
		}
	}()

	// ── Graceful shutdown ─────────────────────────────────────────────────────
	<-ctx.Done()
	logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err = srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("backoffice shutdown error", "err", err)
	}

	db.Close()
	logger.Info("backoffice server stopped cleanly")
}

func newLogger(cfg *config.Config) *slog.Logger {
	var h slog.Handler
	if cfg.IsProd() {
		h = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})
	} else {
		h = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug})
	}
	logger := slog.New(h)
	slog.SetDefault(logger)
	return logger
}

func openDB(cfg *config.Config) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", cfg.DB.DSN)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	db.SetMaxOpenConns(cfg.DB.MaxOpenConns)
	db.SetMaxIdleConns(cfg.DB.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.DB.ConnMaxLifetime)
	if err = db.Ping(); err != nil {
		return nil, fmt.Errorf("ping: %w", err)
	}
	return db, nil
}
