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

// FeedbackHandler serves rating and report endpoints.
type FeedbackHandler struct {
	feedbackSvc *service.FeedbackService
}

// NewFeedbackHandler creates a FeedbackHandler.
func NewFeedbackHandler(feedbackSvc *service.FeedbackService) *FeedbackHandler {
	return &FeedbackHandler{feedbackSvc: feedbackSvc}
}

// RateUser godoc
// POST /api/ratings [JWT]
// Body: {"listing_id":"uuid","rated_user_id":"uuid","stars":5,"review":"..."}
func (h *FeedbackHandler) RateUser(c *gin.Context) {
	raterID := middleware.GetUserID(c)

	var body struct {
		ListingID   string `json:"listing_id"    binding:"required"`
		RatedUserID string `json:"rated_user_id" binding:"required"`
		Stars       int    `json:"stars"         binding:"required"`
		Review      string `json:"review"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, http.StatusBadRequest, "ERR_VALIDATION", err.Error())
		return
	}

	listingID, err := uuid.Parse(body.ListingID)
	if err != nil {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_ID", "invalid listing_id")
		return
	}
	ratedUserID, err := uuid.Parse(body.RatedUserID)
	if err != nil {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_ID", "invalid rated_user_id")
		return
	}

	rating, err := h.feedbackSvc.RateUser(c.Request.Context(), raterID, ratedUserID, listingID, body.Stars, body.Review)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidRating):
			respondError(c, http.StatusBadRequest, "ERR_INVALID_RATING", err.Error())
		case errors.Is(err, domain.ErrNotEligible):
			respondError(c, http.StatusConflict, "ERR_NOT_ELIGIBLE", err.Error())
		case errors.Is(err, domain.ErrListingNotFound):
			respondError(c, http.StatusNotFound, "ERR_NOT_FOUND", err.Error())
		default:
			respondError(c, http.StatusInternalServerError, "ERR_INTERNAL", "could not submit rating")
		}
		return
	}
	respondSuccess(c, http.StatusCreated, rating)
}

// UserStats godoc
// GET /api/users/:id/stats
func (h *FeedbackHandler) UserStats(c *gin.Context) {
	userID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_ID", "invalid user id")
		return
	}

	stats, err := h.feedbackSvc.GetUserStats(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			respondError(c, http.StatusNotFound, "ERR_NOT_FOUND", err.Error())
			return
		}
		respondError(c, http.StatusInternalServerError, "ERR_INTERNAL", "could not fetch stats")
		return
	}
	respondSuccess(c, http.StatusOK, stats)
}

// UserRatings godoc
// GET /api/users/:id/ratings
func (h *FeedbackHandler) UserRatings(c *gin.Context) {
	userID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_ID", "invalid user id")
		return
	}
	page, limit := parsePagination(c)

	ratings, err := h.feedbackSvc.GetRatingsForUser(c.Request.Context(), userID, limit, (page-1)*limit)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "ERR_INTERNAL", "could not fetch ratings")
		return
	}
	respondList(c, ratings, len(ratings), page, limit)
}

// ReportUser godoc
// POST /api/reports [JWT]
// Body: {"reported_user_id":"uuid","listing_id":"uuid|null","reason":"Scam/Fraud",
//
//	"description":"at least twenty characters","evidence_urls":["https://..."]}
func (h *FeedbackHandler) ReportUser(c *gin.Context) {
	reporterID := middleware.GetUserID(c)

	var body struct {
		ReportedUserID string   `json:"reported_user_id" binding:"required"`
		ListingID      *string  `json:"listing_id"`
		Reason         string   `json:"reason"           binding:"required"`
		Description    string   `json:"description"      binding:"required"`
		EvidenceURLs   []string `json:"evidence_urls"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, http.StatusBadRequest, "ERR_VALIDATION", err.Error())
		return
	}

	reportedUserID, err := uuid.Parse(body.ReportedUserID)
	if err != nil {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_ID", "invalid reported_user_id")
		return
	}
	var listingID *uuid.UUID
	if body.ListingID != nil && *body.ListingID != "" {
		id, err := uuid.Parse(*body.ListingID)
		if err != nil {
			respondError(c, http.StatusBadRequest, "ERR_INVALID_ID", "invalid listing_id")
			return
		}
		listingID = &id
	}

	report, err := h.feedbackSvc.ReportUser(c.Request.Context(), reporterID, reportedUserID,
		listingID, body.Reason, body.Description, body.EvidenceURLs)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidReportReason):
			respondError(c, http.StatusBadRequest, "ERR_INVALID_REASON", err.Error())
		case errors.Is(err, domain.ErrDescriptionTooShort):
			respondError(c, http.StatusBadRequest, "ERR_DESCRIPTION_TOO_SHORT", err.Error())
		case errors.Is(err, domain.ErrTooManyEvidenceItems):
			respondError(c, http.StatusBadRequest, "ERR_TOO_MANY_EVIDENCE", err.Error())
		case domain.IsNotFound(err):
			respondError(c, http.StatusNotFound, "ERR_NOT_FOUND", err.Error())
		default:
			respondError(c, http.StatusInternalServerError, "ERR_INTERNAL", "could not file report")
		}
		return
	}
	respondSuccess(c, http.StatusCreated, report)
}

// ReportReasons godoc
// GET /api/reports/reasons
func (h *FeedbackHandler) ReportReasons(c *gin.Context) {
	respondSuccess(c, http.StatusOK, domain.ReportReasons)
}
