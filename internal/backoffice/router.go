package backoffice

import (
	"net/http"
	"strings"

	"github.com/campusmess/mealmarket/internal/backoffice/handler"
	"github.com/campusmess/mealmarket/internal/config"
	"github.com/campusmess/mealmarket/internal/repository"
	"github.com/campusmess/mealmarket/internal/service"
	"github.com/campusmess/mealmarket/internal/ws"
	"github.com/gin-gonic/gin"
)

// BackofficeDeps bundles every dependency needed for the admin router.
type BackofficeDeps struct {
	AuthSvc       *service.AuthService
	UserSvc       *service.UserService
	FeedbackSvc   *service.FeedbackService
	SettlementSvc *service.SettlementService
	PaymentSvc    *service.PaymentService
	UserRepo      *repository.UserRepository
	ListingRepo   *repository.ListingRepository
	BidRepo       *repository.BidRepository
	Hub           *ws.Hub
	Cfg           *config.Config
}

// SetupBackofficeRouter creates the admin Gin engine, served on its own port.
func SetupBackofficeRouter(deps BackofficeDeps) *gin.Engine {
	if deps.Cfg.IsProd() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Logger())
	r.Use(gin.Recovery())
	r.Use(ipWhitelistMiddleware(deps.Cfg.Server.BackofficeAllowedIPs))

	dashH := handler.NewDashboardHandler(deps.ListingRepo, deps.FeedbackSvc, deps.UserRepo, deps.Hub, deps.Cfg)
	listingH := handler.NewListingAdminHandler(deps.ListingRepo, deps.BidRepo, deps.SettlementSvc, deps.PaymentSvc, deps.Cfg)
	reportH := handler.NewReportAdminHandler(deps.FeedbackSvc, deps.Cfg)
	userH := handler.NewUserAdminHandler(deps.UserSvc, deps.FeedbackSvc, deps.Cfg)

	jwtMW := staffJWTMiddleware(deps.AuthSvc)

	admin := r.Group("/admin")
	admin.Use(jwtMW)
	{
		admin.GET("/dashboard", dashH.Dashboard)

		// Listings
		l := admin.Group("/listings")
		{
			l.GET("", listingH.List)
			l.GET("/counts", listingH.Counts)
			l.GET("/:id", listingH.Detail)
			l.POST("/:id/settle", listingH.Settle)
			l.POST("/:id/unlist", listingH.Unlist)
		}

		// Moderation queue
		rep := admin.Group("/reports")
		{
			rep.GET("", reportH.List)
			rep.GET("/:id", reportH.Detail)
			rep.POST("/:id/review", reportH.Review)
		}

		// Users
		u := admin.Group("/users")
		{
			u.GET("", userH.List)
			u.GET("/:id", userH.Detail)
			u.POST("/:id/suspend", userH.Suspend)
			u.POST("/:id/reinstate", userH.Reinstate)
		}

		// Payments
		admin.POST("/payments/:id/fail", listingH.FailPayment)
	}

	return r
}

// ── Access control middleware ─────────────────────────────────────────────────

// ipWhitelistMiddleware restricts the admin listener to a fixed set of
// addresses. allowedIPs is comma-separated; empty disables the check, which
// is the development posture.
func ipWhitelistMiddleware(allowedIPs string) gin.HandlerFunc {
	allowed := make(map[string]struct{})
	for _, ip := range strings.Split(allowedIPs, ",") {
		if ip = strings.TrimSpace(ip); ip != "" {
			allowed[ip] = struct{}{}
		}
	}
	if len(allowed) == 0 {
		return func(c *gin.Context) { c.Next() }
	}

	return func(c *gin.Context) {
		if _, ok := allowed[c.ClientIP()]; !ok {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"success": false,
				"error":   "access denied: your IP is not whitelisted",
				"code":    "ERR_FORBIDDEN",
			})
			return
		}
		c.Next()
	}
}

// staffJWTMiddleware authenticates the caller and requires a role that can
// moderate. Handlers read the identity from the same context keys the API
// server's middleware uses.
func staffJWTMiddleware(authSvc *service.AuthService) gin.HandlerFunc {
	abort := func(c *gin.Context, status int, msg string) {
		c.AbortWithStatusJSON(status, gin.H{"success": false, "error": msg})
	}
	return func(c *gin.Context) {
		raw, found := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
		if !found {
			abort(c, http.StatusUnauthorized, "unauthorized")
			return
		}

		claims, err := authSvc.VerifyAccess(raw)
		if err != nil {
			abort(c, http.StatusUnauthorized, "invalid token")
			return
		}
		if !claims.Role.CanAccessBackoffice() {
			abort(c, http.StatusForbidden, "insufficient permissions")
			return
		}

		c.Set("userID", claims.Subject)
		c.Set("role", string(claims.Role))
		c.Next()
	}
}
