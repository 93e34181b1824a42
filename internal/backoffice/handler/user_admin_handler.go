package handler

import (
	"context"
	"net/http"

	"github.com/campusmess/mealmarket/internal/config"
	"github.com/campusmess/mealmarket/internal/domain"
	"github.com/campusmess/mealmarket/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// UserAdminHandler serves /admin/users endpoints.
type UserAdminHandler struct {
	userSvc     *service.UserService
	feedbackSvc *service.FeedbackService
	cfg         *config.Config
}

// NewUserAdminHandler creates a UserAdminHandler.
func NewUserAdminHandler(
	userSvc *service.UserService,
	feedbackSvc *service.FeedbackService,
	cfg *config.Config,
) *UserAdminHandler {
	return &UserAdminHandler{userSvc: userSvc, feedbackSvc: feedbackSvc, cfg: cfg}
}

// List godoc
// GET /admin/users?page=1&limit=50
func (h *UserAdminHandler) List(c *gin.Context) {
	page, limit := adminPagination(c)
	offset := (page - 1) * limit

	users, total, err := h.userSvc.List(c.Request.Context(), limit, offset)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "ERR_INTERNAL", err.Error())
		return
	}
	respondList(c, users, total, page, limit)
}

// Detail godoc
// GET /admin/users/:id
func (h *UserAdminHandler) Detail(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_ID", "invalid user id")
		return
	}

	ctx := c.Request.Context()
	profile, err := h.userSvc.GetProfile(ctx, id)
	if err != nil {
		if domain.IsNotFound(err) {
			respondError(c, http.StatusNotFound, "ERR_NOT_FOUND", err.Error())
			return
		}
		respondError(c, http.StatusInternalServerError, "ERR_INTERNAL", err.Error())
		return
	}

	stats, _ := h.feedbackSvc.GetUserStats(ctx, id)
	ratings, _ := h.feedbackSvc.GetRatingsForUser(ctx, id, 20, 0)

	respondSuccess(c, http.StatusOK, gin.H{
		"user":    profile,
		"stats":   stats,
		"ratings": ratings,
	})
}

// Suspend godoc
// POST /admin/users/:id/suspend
func (h *UserAdminHandler) Suspend(c *gin.Context) {
	h.setActive(c, h.userSvc.Suspend, false)
}

// Reinstate godoc
// POST /admin/users/:id/reinstate
func (h *UserAdminHandler) Reinstate(c *gin.Context) {
	h.setActive(c, h.userSvc.Reinstate, true)
}

func (h *UserAdminHandler) setActive(c *gin.Context, op func(context.Context, uuid.UUID) error, active bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_ID", "invalid user id")
		return
	}
	if err = op(c.Request.Context(), id); err != nil {
		if domain.IsNotFound(err) {
			respondError(c, http.StatusNotFound, "ERR_NOT_FOUND", err.Error())
			return
		}
		respondError(c, http.StatusInternalServerError, "ERR_INTERNAL", err.Error())
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"user_id": id, "is_active": active})
}
