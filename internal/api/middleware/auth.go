package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/campusmess/mealmarket/internal/domain"
	"github.com/campusmess/mealmarket/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Keys under which JWTMiddleware stores the caller's identity in the
// gin context. The backoffice router sets the same keys so handlers
// can be shared between the two servers.
const (
	CtxUserID = "userID"
	CtxRole   = "role"
)

func abortUnauthorized(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"success": false,
		"error":   msg,
		"code":    "ERR_UNAUTHORIZED",
	})
}

// ──────────────────────────────────────────────────────────────────────────────
// JWTMiddleware
// ──────────────────────────────────────────────────────────────────────────────

// JWTMiddleware authenticates requests with a Bearer access token. On
// success the caller's uuid.UUID and role string are available via
// GetUserID / GetRole.
func JWTMiddleware(authSvc *service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, ok := bearerToken(c)
		if !ok {
			abortUnauthorized(c, domain.ErrUnauthorized.Error())
			return
		}

		claims, err := authSvc.VerifyAccess(raw)
		if err != nil {
			if errors.Is(err, domain.ErrTokenExpired) {
				abortUnauthorized(c, domain.ErrTokenExpired.Error())
			} else {
				abortUnauthorized(c, domain.ErrTokenInvalid.Error())
			}
			return
		}

		userID, err := uuid.Parse(claims.Subject)
		if err != nil {
			abortUnauthorized(c, domain.ErrTokenInvalid.Error())
			return
		}

		c.Set(CtxUserID, userID)
		c.Set(CtxRole, string(claims.Role))
		c.Next()
	}
}

// bearerToken extracts the token from an "Authorization: Bearer <jwt>" header.
func bearerToken(c *gin.Context) (string, bool) {
	header := c.GetHeader("Authorization")
	if header == "" {
		return "", false
	}
	token, found := strings.CutPrefix(header, "Bearer ")
	if !found || token == "" {
		return "", false
	}
	return token, true
}

// GetUserID returns the authenticated user's UUID, or uuid.Nil when the
// request did not pass through JWTMiddleware.
func GetUserID(c *gin.Context) uuid.UUID {
	v, exists := c.Get(CtxUserID)
	if !exists {
		return uuid.Nil
	}
	id, _ := v.(uuid.UUID)
	return id
}

// GetRole returns the authenticated user's role string, or "" when absent.
func GetRole(c *gin.Context) string {
	v, _ := c.Get(CtxRole)
	r, _ := v.(string)
	return r
}
