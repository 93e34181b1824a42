package handler

import (
	"net/http"
	"time"

	"github.com/campusmess/mealmarket/internal/config"
	"github.com/campusmess/mealmarket/internal/repository"
	"github.com/campusmess/mealmarket/internal/service"
	"github.com/campusmess/mealmarket/internal/ws"
	"github.com/gin-gonic/gin"
)

// DashboardHandler serves the /admin/dashboard endpoint.
type DashboardHandler struct {
	listingRepo *repository.ListingRepository
	feedbackSvc *service.FeedbackService
	userRepo    *repository.UserRepository
	hub         *ws.Hub
	cfg         *config.Config
}

// NewDashboardHandler creates a DashboardHandler.
func NewDashboardHandler(
	listingRepo *repository.ListingRepository,
	feedbackSvc *service.FeedbackService,
	userRepo *repository.UserRepository,
	hub *ws.Hub,
	cfg *config.Config,
) *DashboardHandler {
	return &DashboardHandler{
		listingRepo: listingRepo,
		feedbackSvc: feedbackSvc,
		userRepo:    userRepo,
		hub:         hub,
		cfg:         cfg,
	}
}

// Dashboard godoc
// GET /admin/dashboard
func (h *DashboardHandler) Dashboard(c *gin.Context) {
	ctx := c.Request.Context()

	// ── Listing counts by status ─────────────────────────────────────────────
	counts, err := h.listingRepo.CountByStatus(ctx)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "ERR_INTERNAL", err.Error())
		return
	}

	// ── Moderation backlog ───────────────────────────────────────────────────
	pendingReports, _ := h.feedbackSvc.PendingReportCount(ctx)

	// ── Registered users ─────────────────────────────────────────────────────
	_, totalUsers, _ := h.userRepo.List(ctx, 1, 0)

	// ── WS connections ───────────────────────────────────────────────────────
	var wsConnections int
	if h.hub != nil {
		wsConnections = h.hub.ConnectedCount()
	}

	respondSuccess(c, http.StatusOK, gin.H{
		"timestamp":       time.Now().UTC(),
		"listing_counts":  counts,
		"pending_reports": pendingReports,
		"total_users":     totalUsers,
		"ws_connections":  wsConnections,
		"market_policy": gin.H{
			"max_price_drops":         h.cfg.Market.MaxPriceDrops,
			"sell_on_price_clear":     h.cfg.Market.SellOnPriceClear,
			"expire_bidless_auctions": h.cfg.Market.ExpireBidlessAuctions,
			"allow_unlist_with_bids":  h.cfg.Market.AllowUnlistWithBids,
		},
	})
}
