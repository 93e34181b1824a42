package api

import (
	"net/http"

	"github.com/campusmess/mealmarket/internal/api/handler"
	"github.com/campusmess/mealmarket/internal/api/middleware"
	"github.com/campusmess/mealmarket/internal/config"
	"github.com/campusmess/mealmarket/internal/service"
	"github.com/campusmess/mealmarket/internal/ws"
	"github.com/gin-gonic/gin"
)

// RouterDeps bundles every dependency needed to build the router.
// Populated once in main() and passed to SetupRouter.
type RouterDeps struct {
	AuthSvc     *service.AuthService
	UserSvc     *service.UserService
	ListingSvc  *service.ListingService
	BidSvc      *service.BidService
	FeedbackSvc *service.FeedbackService
	PaymentSvc  *service.PaymentService
	NotifySvc   *service.NotifyService
	Hub         *ws.Hub
	Cfg         *config.Config
}

// SetupRouter creates and configures the main Gin engine with all routes,
// middleware, CORS, and rate limiting rules.
func SetupRouter(deps RouterDeps) *gin.Engine {
	if deps.Cfg.IsProd() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Logger())
	r.Use(gin.Recovery())

	// ── CORS ─────────────────────────────────────────────────────────────────
	r.Use(corsMiddleware(deps.Cfg))

	// ── Health check ─────────────────────────────────────────────────────────
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// ── Handlers ─────────────────────────────────────────────────────────────
	userH := handler.NewUserHandler(deps.AuthSvc, deps.UserSvc)
	listingH := handler.NewListingHandler(deps.ListingSvc)
	bidH := handler.NewBidHandler(deps.BidSvc)
	feedbackH := handler.NewFeedbackHandler(deps.FeedbackSvc)
	paymentH := handler.NewPaymentHandler(deps.PaymentSvc)
	notificationH := handler.NewNotificationHandler(deps.NotifySvc)

	// ── JWT middleware (shared) ──────────────────────────────────────────────
	jwtMW := middleware.JWTMiddleware(deps.AuthSvc)

	// ── Rate limiters ────────────────────────────────────────────────────────
	authRL := middleware.RateLimitMiddleware(10) // 10 req/s per IP for auth endpoints
	bidRL := middleware.RateLimitMiddleware(30)  // 30 req/s per IP for bid endpoints

	api := r.Group("/api")
	{
		// ── Auth (public, strict rate limit) ─────────────────────────────────
		auth := api.Group("/auth")
		auth.Use(authRL)
		{
			auth.POST("/register", userH.Register)
			auth.POST("/login", userH.Login)
			auth.POST("/refresh", userH.Refresh)
		}

		// ── Public reads ─────────────────────────────────────────────────────
		api.GET("/listings", listingH.ListActive)
		api.GET("/listings/:id", listingH.GetByID)
		api.GET("/listings/:id/bids", bidH.ListBids)
		api.GET("/reports/reasons", feedbackH.ReportReasons)
		api.GET("/users/:id", userH.Profile)
		api.GET("/users/:id/stats", feedbackH.UserStats)
		api.GET("/users/:id/ratings", feedbackH.UserRatings)

		// ── Authenticated routes ─────────────────────────────────────────────
		authed := api.Group("")
		authed.Use(jwtMW)
		{
			// Profile & settings
			authed.GET("/me", userH.Me)
			authed.PATCH("/me", userH.UpdateProfile)
			authed.GET("/me/settings", userH.GetSettings)
			authed.PUT("/me/settings", userH.UpdateSettings)

			// Listings. Static segments registered before the :id wildcard.
			listings := authed.Group("/listings")
			{
				listings.POST("", listingH.Create)
				listings.GET("/my", listingH.MyListings)
				listings.GET("/purchases", listingH.MyPurchases)
				listings.GET("/bidding", listingH.MyBids)
				listings.DELETE("/:id", listingH.Unlist)
				listings.POST("/:id/qr", listingH.AttachQR)
				listings.GET("/:id/payment", paymentH.ByListing)

				bids := listings.Group("/:id/bids")
				bids.Use(bidRL)
				{
					bids.POST("", bidH.PlaceBid)
					bids.DELETE("", bidH.WithdrawBids)
				}
			}

			// Feedback
			authed.POST("/ratings", feedbackH.RateUser)
			authed.POST("/reports", feedbackH.ReportUser)

			// Payments
			authed.GET("/payments", paymentH.My)
			authed.POST("/payments/:id/confirm", paymentH.Confirm)

			// Notification feed
			notifications := authed.Group("/notifications")
			{
				notifications.GET("", notificationH.Feed)
				notifications.POST("/read-all", notificationH.MarkAllRead)
				notifications.POST("/:id/read", notificationH.MarkRead)
			}
		}
	}

	// ── WebSocket ────────────────────────────────────────────────────────────
	if deps.Hub != nil {
		r.GET("/ws", func(c *gin.Context) {
			deps.Hub.ServeWs(c.Writer, c.Request)
		})
	}

	return r
}

// ── CORS helper ───────────────────────────────────────────────────────────────

// prodOrigins is the browser origin allowlist applied outside development.
var prodOrigins = map[string]bool{
	"https://mealmarket.app":     true,
	"https://www.mealmarket.app": true,
}

// corsMiddleware sets CORS headers and answers preflight requests. In
// development every origin is allowed; in production only prodOrigins.
func corsMiddleware(cfg *config.Config) gin.HandlerFunc {
	prod := cfg.IsProd()
	return func(c *gin.Context) {
		switch origin := c.Request.Header.Get("Origin"); {
		case !prod:
			c.Header("Access-Control-Allow-Origin", "*")
		case prodOrigins[origin]:
			c.Header("Access-Control-Allow-Origin", origin)
		}

		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Authorization, Content-Type, X-Request-ID")
		c.Header("Access-Control-Max-Age", "86400")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
