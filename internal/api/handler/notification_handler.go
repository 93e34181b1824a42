package handler

import (
	"net/http"

	"github.com/campusmess/mealmarket/internal/api/middleware"
	"github.com/campusmess/mealmarket/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// NotificationHandler serves the in-app notification feed.
type NotificationHandler struct {
	notifySvc *service.NotifyService
}

// NewNotificationHandler creates a NotificationHandler.
func NewNotificationHandler(notifySvc *service.NotifyService) *NotificationHandler {
	return &NotificationHandler{notifySvc: notifySvc}
}

// Feed godoc
// GET /api/notifications [JWT]
func (h *NotificationHandler) Feed(c *gin.Context) {
	userID := middleware.GetUserID(c)
	page, limit := parsePagination(c)

	feed, unread, err := h.notifySvc.ListFeed(c.Request.Context(), userID, limit, (page-1)*limit)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "ERR_INTERNAL", "could not fetch notifications")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    feed,
		"meta": gin.H{
			"unread": unread,
			"page":   page,
			"limit":  limit,
		},
	})
}

// MarkRead godoc
// POST /api/notifications/:id/read [JWT]
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	userID := middleware.GetUserID(c)

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_ID", "invalid notification id")
		return
	}

	if err := h.notifySvc.MarkRead(c.Request.Context(), userID, id); err != nil {
		respondError(c, http.StatusInternalServerError, "ERR_INTERNAL", "could not mark read")
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"read": true})
}

// MarkAllRead godoc
// POST /api/notifications/read-all [JWT]
func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	userID := middleware.GetUserID(c)

	if err := h.notifySvc.MarkAllRead(c.Request.Context(), userID); err != nil {
		respondError(c, http.StatusInternalServerError, "ERR_INTERNAL", "could not mark read")
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"read": true})
}
