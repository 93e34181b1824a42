// Package main is the entry point for the mealmarket API server.  It wires
// together all services and starts the HTTP server alongside the WebSocket
// hub, the Redis bridge, and the background settlement scheduler.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/campusmess/mealmarket/internal/api"
	"github.com/campusmess/mealmarket/internal/config"
	"github.com/campusmess/mealmarket/internal/domain"
	"github.com/campusmess/mealmarket/internal/realtime"
	"github.com/campusmess/mealmarket/internal/repository"
	"github.com/campusmess/mealmarket/internal/scheduler"
	"github.com/campusmess/mealmarket/internal/service"
	"github.com/campusmess/mealmarket/internal/ws"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // postgres driver
)

func main() {
	// ── 1. Logger ─────────────────────────────────────────────────────────────
	cfg := config.MustLoad()
	logger := newLogger(cfg)

	logger.Info("starting mealmarket server", "env", cfg.Server.Env, "port", cfg.Server.Port)

	// ── 2. Database ───────────────────────────────────────────────────────────
	db, err := openDB(cfg)
	if err != nil {
		logger.Error("database setup failed", "err", err)
		os.Exit(1)
	}
	logger.Info("database connected")

	// ── 3. Migrations ─────────────────────────────────────────────────────────
	if err = runMigrations(db, "migrations"); err != nil {
		logger.Error("migrations failed", "err", err)
		os.Exit(1)
	}
	logger.Info("migrations applied")

	// ── 4. Repositories ───────────────────────────────────────────────────────
	userRepo := repository.NewUserRepository(db)
	listingRepo := repository.NewListingRepository(db)
	bidRepo := repository.NewBidRepository(db)
	feedbackRepo := repository.NewFeedbackRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)

	// ── 5. Services (order matters for injection) ─────────────────────────────
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
	listingSvc := service.NewListingService(listingRepo, bidRepo, guard, policy, logger)
	bidSvc := service.NewBidService(db, listingRepo, bidRepo, guard, notifySvc, logger)
	settlementSvc := service.NewSettlementService(db, listingRepo, bidRepo, paymentRepo, guard, policy, notifySvc, logger)
	minDesc, maxEvidence := cfg.Feedback.LimitFields()
	limits := domain.ReportLimits{MinDescription: minDesc, MaxEvidenceURLs: maxEvidence}

	feedbackSvc := service.NewFeedbackService(feedbackRepo, listingRepo, userRepo, limits, notifySvc, logger)
	paymentSvc := service.NewPaymentService(db, paymentRepo, listingRepo, bidRepo, guard, notifySvc, logger)

	// ── 6. WebSocket Hub ──────────────────────────────────────────────────────
	jwtSecret := []byte(cfg.JWT.AccessSecret)
	var allowedOrigins []string
	if ori := os.Getenv("WS_ALLOWED_ORIGINS"); ori != "" {
		for _, o := range strings.Split(ori, ",") {
			allowedOrigins = append(allowedOrigins, strings.TrimSpace(o))
		}
	}
	hub := ws.NewHub(jwtSecret, allowedOrigins)

	// ── 7. Root context + signal handling ─────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── 8. Realtime bridge ────────────────────────────────────────────────────
	// Fans events out through Redis when configured; local-only otherwise.
	bridge, err := realtime.NewBridge(ctx, cfg.Redis, hub, logger)
	if err != nil {
		logger.Error("realtime bridge init failed", "err", err)
		os.Exit(1)
	}
	go bridge.Run(ctx)

	listingSvc.SetPublisher(bridge)
	bidSvc.SetPublisher(bridge)
	settlementSvc.SetPublisher(bridge)
	paymentSvc.SetPublisher(bridge)
	notifySvc.SetPublisher(bridge)

	// ── 9. Start WS Hub ───────────────────────────────────────────────────────
	go hub.Run()
	logger.Info("websocket hub started")

	// ── 10. Scheduler ─────────────────────────────────────────────────────────
	sched := scheduler.NewScheduler(settlementSvc, listingSvc, notificationRepo, hub, cfg, logger)
	sched.Start(ctx)

	// ── 11. HTTP Router ───────────────────────────────────────────────────────
	router := api.SetupRouter(api.RouterDeps{
		AuthSvc:     authSvc,
		UserSvc:     userSvc,
		ListingSvc:  listingSvc,
		BidSvc:      bidSvc,
		FeedbackSvc: feedbackSvc,
		PaymentSvc:  paymentSvc,
		NotifySvc:   notifySvc,
		Hub:         hub,
		Cfg:         cfg,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// ── 12. Start server ──────────────────────────────────────────────────────
	go func() {
		logger.Info("http server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server error", "err", err)
			stop() // trigger graceful shutdown
		}
	}()

	// ── 13. Graceful shutdown ─────────────────────────────────────────────────
	<-ctx.Done()
	logger.Info("shutdown signal received, draining connections…")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err = srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown error", "err", err)
	}

	if err = bridge.Close(); err != nil {
		logger.Error("realtime bridge close error", "err", err)
	}
	db.Close()
	logger.Info("server stopped cleanly")
}

// newLogger returns JSON logs in production, human-readable text elsewhere,
// and installs the logger as the slog default.
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

// openDB connects to Postgres, applies the pool limits, and pings.
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

// runMigrations executes every *.sql file in dir in lexical order. The files
// are written to be idempotent (IF NOT EXISTS / ON CONFLICT), so re-running
// the full set at every boot is safe.
func runMigrations(db *sqlx.DB, dir string) error {
	files, err := filepath.Glob(filepath.Join(dir, "*.sql"))
	if err != nil {
		return fmt.Errorf("runMigrations: glob %q: %w", dir, err)
	}
	sort.Strings(files)

	for _, f := range files {
		data, err := os.ReadFile(f)
		if err != nil {
			return fmt.Errorf("runMigrations: read %q: %w", f, err)
		}
		if _, err = db.Exec(string(data)); err != nil {
			return fmt.Errorf("runMigrations: exec %q: %w", f, err)
		}
		slog.Info("migration applied", "file", filepath.Base(f))
	}
	return nil
}
