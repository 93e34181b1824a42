package handler

import (
	"errors"
	"net/http"

	"github.com/campusmess/mealmarket/internal/api/middleware"
	"github.com/campusmess/mealmarket/internal/domain"
	"github.com/campusmess/mealmarket/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// UserHandler handles authentication, profile, and settings endpoints.
type UserHandler struct {
	authSvc *service.AuthService
	userSvc *service.UserService
}

// NewUserHandler creates a UserHandler.
func NewUserHandler(authSvc *service.AuthService, userSvc *service.UserService) *UserHandler {
	return &UserHandler{authSvc: authSvc, userSvc: userSvc}
}

// Register godoc
// POST /api/auth/register
func (h *UserHandler) Register(c *gin.Context) {
	var body struct {
		Email    string `json:"email"    binding:"required,email"`
		Name     string `json:"name"     binding:"required"`
		Phone    string `json:"phone"`
		Password string `json:"password" binding:"required,min=8"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, http.StatusBadRequest, "ERR_VALIDATION", err.Error())
		return
	}

	u, err := h.authSvc.Register(c.Request.Context(), body.Email, body.Name, body.Phone, body.Password)
	if err != nil {
		if errors.Is(err, domain.ErrEmailTaken) {
			respondError(c, http.StatusConflict, "ERR_EMAIL_TAKEN", err.Error())
			return
		}
		respondError(c, http.StatusInternalServerError, "ERR_INTERNAL", "registration failed")
		return
	}
	respondSuccess(c, http.StatusCreated, u.ToPublicProfile())
}

// Login godoc
// POST /api/auth/login
func (h *UserHandler) Login(c *gin.Context) {
	var body struct {
		Email    string `json:"email"    binding:"required,email"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, http.StatusBadRequest, "ERR_VALIDATION", err.Error())
		return
	}

	u, tokens, err := h.authSvc.Login(c.Request.Context(), body.Email, body.Password)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidCredentials):
			respondError(c, http.StatusUnauthorized, "ERR_INVALID_CREDENTIALS", err.Error())
		case errors.Is(err, domain.ErrUserSuspended):
			respondError(c, http.StatusForbidden, "ERR_ACCOUNT_SUSPENDED", err.Error())
		default:
			respondError(c, http.StatusInternalServerError, "ERR_INTERNAL", "login failed")
		}
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{
		"user":   u.ToPublicProfile(),
		"tokens": tokens,
	})
}

// Refresh godoc
// POST /api/auth/refresh
func (h *UserHandler) Refresh(c *gin.Context) {
	var body struct {
		RefreshToken string `json:"refresh_token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, http.StatusBadRequest, "ERR_VALIDATION", err.Error())
		return
	}

	tokens, err := h.authSvc.Refresh(c.Request.Context(), body.RefreshToken)
	if err != nil {
		if errors.Is(err, domain.ErrUserSuspended) {
			respondError(c, http.StatusForbidden, "ERR_ACCOUNT_SUSPENDED", err.Error())
			return
		}
		respondError(c, http.StatusUnauthorized, "ERR_INVALID_TOKEN", err.Error())
		return
	}
	respondSuccess(c, http.StatusOK, tokens)
}

// Me godoc
// GET /api/me [JWT]
func (h *UserHandler) Me(c *gin.Context) {
	userID := middleware.GetUserID(c)

	profile, err := h.userSvc.GetProfile(c.Request.Context(), userID)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, profile)
}

// UpdateProfile godoc
// PATCH /api/me [JWT]
// Body: any subset of {"name","phone","mess_qr_url","profile_pic_url"}
func (h *UserHandler) UpdateProfile(c *gin.Context) {
	userID := middleware.GetUserID(c)

	var body struct {
		Name          *string `json:"name"`
		Phone         *string `json:"phone"`
		MessQRURL     *string `json:"mess_qr_url"`
		ProfilePicURL *string `json:"profile_pic_url"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, http.StatusBadRequest, "ERR_VALIDATION", err.Error())
		return
	}

	profile, err := h.userSvc.UpdateProfile(c.Request.Context(), userID, service.UpdateProfileParams{
		Name:          body.Name,
		Phone:         body.Phone,
		MessQRURL:     body.MessQRURL,
		ProfilePicURL: body.ProfilePicURL,
	})
	if err != nil {
		respondDomainError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, profile)
}

// Profile godoc
// GET /api/users/:id
func (h *UserHandler) Profile(c *gin.Context) {
	userID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_ID", "invalid user id")
		return
	}

	profile, err := h.userSvc.GetProfile(c.Request.Context(), userID)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, profile)
}

// GetSettings godoc
// GET /api/me/settings [JWT]
func (h *UserHandler) GetSettings(c *gin.Context) {
	userID := middleware.GetUserID(c)

	settings, err := h.userSvc.GetSettings(c.Request.Context(), userID)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "ERR_INTERNAL", "could not fetch settings")
		return
	}
	respondSuccess(c, http.StatusOK, settings)
}

// UpdateSettings godoc
// PUT /api/me/settings [JWT]
func (h *UserHandler) UpdateSettings(c *gin.Context) {
	userID := middleware.GetUserID(c)

	var settings domain.NotificationSettings
	if err := c.ShouldBindJSON(&settings); err != nil {
		respondError(c, http.StatusBadRequest, "ERR_VALIDATION", err.Error())
		return
	}
	settings.UserID = userID

	if err := h.userSvc.UpdateSettings(c.Request.Context(), &settings); err != nil {
		respondError(c, http.StatusInternalServerError, "ERR_INTERNAL", "could not update settings")
		return
	}
	respondSuccess(c, http.StatusOK, settings)
}
