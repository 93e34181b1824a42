// Package scheduler manages the background goroutines that run the listing
// lifecycle:
//  1. settlementLoop – settles due listings on a fixed tick.
//  2. feedLoop       – pushes the active-listing snapshot to WS clients.
//  3. cleanupLoop    – prunes old read notifications nightly.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/campusmess/mealmarket/internal/config"
	"github.com/campusmess/mealmarket/internal/domain"
	"github.com/campusmess/mealmarket/internal/service"
)

// FeedHub defines the broadcast operation the scheduler needs from the
// WebSocket hub. Declared here so the scheduler package does not import the
// hub implementation.
type FeedHub interface {
	BroadcastListingFeed(listings []domain.ListingSummary)
}

const (
	feedPageSize        = 200                 // active listings per snapshot
	cleanupInterval     = 24 * time.Hour      // housekeeping cadence
	notificationMaxAge  = 30 * 24 * time.Hour // read notifications older than this are pruned
)

// Scheduler runs the listing lifecycle goroutines. Call Start(ctx) once from
// main(); cancel the context to shut it down gracefully.
type Scheduler struct {
	settlementSvc *service.SettlementService
	listingSvc    *service.ListingService
	cleaner       NotificationCleaner
	hub           FeedHub
	cfg           *config.Config
	logger        *slog.Logger
}

// NotificationCleaner is the pruning operation cleanupLoop needs from the
// notification store.
type NotificationCleaner interface {
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// NewScheduler creates a Scheduler. hub and cleaner may be nil; the
// corresponding loops then do nothing.
func NewScheduler(
	settlementSvc *service.SettlementService,
	listingSvc *service.ListingService,
	cleaner NotificationCleaner,
	hub FeedHub,
	cfg *config.Config,
	logger *slog.Logger,
) *Scheduler {
	return &Scheduler{
		settlementSvc: settlementSvc,
		listingSvc:    listingSvc,
		cleaner:       cleaner,
		hub:           hub,
		cfg:           cfg,
		logger:        logger,
	}
}

// Start launches the background goroutines. It returns immediately; all
// loops run until ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) {
	go s.settlementLoop(ctx)
	go s.feedLoop(ctx)
	go s.cleanupLoop(ctx)
	s.logger.Info("scheduler started",
		"settle_interval", s.cfg.Market.SettleInterval,
		"broadcast_interval", s.cfg.Market.BroadcastInterval)
}

// ──────────────────────────────────────────────────────────────────────────────
// settlementLoop
// ──────────────────────────────────────────────────────────────────────────────

// settlementLoop scans for due listings on every tick and settles them.
func (s *Scheduler) settlementLoop(ctx context.Context) {
	defer s.recoverAndLog("settlementLoop")

	ticker := time.NewTicker(s.cfg.Market.SettleInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("settlementLoop: shutting down")
			return
		case <-ticker.C:
			settled, err := s.settlementSvc.SettleDue(ctx)
			if err != nil {
				s.logger.Error("settlementLoop: SettleDue", "err", err)
				continue
			}
			if settled > 0 {
				s.logger.Info("settlementLoop: tick complete", "settled", settled)
			}
		}
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// feedLoop
// ──────────────────────────────────────────────────────────────────────────────

// feedLoop pushes the active-listing snapshot to all WS clients on a fixed
// cadence so late joiners converge without polling.
func (s *Scheduler) feedLoop(ctx context.Context) {
	defer s.recoverAndLog("feedLoop")

	if s.hub == nil {
		return
	}

	ticker := time.NewTicker(s.cfg.Market.BroadcastInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("feedLoop: shutting down")
			return
		case <-ticker.C:
			s.broadcastFeed(ctx)
		}
	}
}

// broadcastFeed is the inner body of feedLoop, extracted so that the
// defer/recover in the loop catches panics correctly.
func (s *Scheduler) broadcastFeed(ctx context.Context) {
	summaries, err := s.listingSvc.ListActive(ctx, "", "", "", feedPageSize, 0)
	if err != nil {
		s.logger.Warn("feedLoop: snapshot failed", "err", err)
		return
	}
	if len(summaries) == 0 {
		return
	}
	s.hub.BroadcastListingFeed(summaries)
}

// ──────────────────────────────────────────────────────────────────────────────
// cleanupLoop
// ──────────────────────────────────────────────────────────────────────────────

// cleanupLoop prunes read notifications past their retention once a day.
func (s *Scheduler) cleanupLoop(ctx context.Context) {
	defer s.recoverAndLog("cleanupLoop")

	if s.cleaner == nil {
		return
	}

	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("cleanupLoop: shutting down")
			return
		case <-ticker.C:
			cutoff := time.Now().Add(-notificationMaxAge)
			pruned, err := s.cleaner.DeleteOlderThan(ctx, cutoff)
			if err != nil {
				s.logger.Error("cleanupLoop: prune failed", "err", err)
				continue
			}
			if pruned > 0 {
				s.logger.Info("cleanupLoop: pruned notifications", "count", pruned)
			}
		}
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// Panic recovery
// ──────────────────────────────────────────────────────────────────────────────

// recoverAndLog is deferred inside each goroutine to catch unexpected panics,
// log them, and allow the scheduler to continue running.
func (s *Scheduler) recoverAndLog(loop string) {
	if r := recover(); r != nil {
		s.logger.Error("PANIC recovered in scheduler loop",
			"loop", loop, "panic", r)
	}
}
