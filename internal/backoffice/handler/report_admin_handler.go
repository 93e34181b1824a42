package handler

import (
	"net/http"

	"github.com/campusmess/mealmarket/internal/config"
	"github.com/campusmess/mealmarket/internal/domain"
	"github.com/campusmess/mealmarket/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ReportAdminHandler serves /admin/reports endpoints (the moderation queue).
type ReportAdminHandler struct {
	feedbackSvc *service.FeedbackService
	cfg         *config.Config
}

// NewReportAdminHandler creates a ReportAdminHandler.
func NewReportAdminHandler(feedbackSvc *service.FeedbackService, cfg *config.Config) *ReportAdminHandler {
	return &ReportAdminHandler{feedbackSvc: feedbackSvc, cfg: cfg}
}

// List godoc
// GET /admin/reports?status=pending&page=1&limit=50
func (h *ReportAdminHandler) List(c *gin.Context) {
	page, limit := adminPagination(c)
	offset := (page - 1) * limit
	status := c.Query("status")

	reports, err := h.feedbackSvc.ListReports(c.Request.Context(), status, limit, offset)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "ERR_INTERNAL", err.Error())
		return
	}
	respondList(c, reports, len(reports), page, limit)
}

// Detail godoc
// GET /admin/reports/:id
func (h *ReportAdminHandler) Detail(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_ID", "invalid report id")
		return
	}

	report, err := h.feedbackSvc.GetReport(c.Request.Context(), id)
	if err != nil {
		if domain.IsNotFound(err) {
			respondError(c, http.StatusNotFound, "ERR_NOT_FOUND", err.Error())
			return
		}
		respondError(c, http.StatusInternalServerError, "ERR_INTERNAL", err.Error())
		return
	}
	respondSuccess(c, http.StatusOK, report)
}

// Review godoc
// POST /admin/reports/:id/review
// Body: {"status": "resolved", "note": "verified with mess staff", "ban_user": true}
func (h *ReportAdminHandler) Review(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_ID", "invalid report id")
		return
	}
	reviewerID, err := uuid.Parse(c.GetString("userID"))
	if err != nil {
		respondError(c, http.StatusUnauthorized, "ERR_UNAUTHORIZED", "unauthorized")
		return
	}

	var body struct {
		Status  string `json:"status" binding:"required"`
		Note    string `json:"note"`
		BanUser bool   `json:"ban_user"`
	}
	if err = c.ShouldBindJSON(&body); err != nil {
		respondError(c, http.StatusBadRequest, "ERR_VALIDATION", err.Error())
		return
	}

	status := domain.ReportStatus(body.Status)
	validStatuses := map[domain.ReportStatus]bool{
		domain.ReportReviewing: true,
		domain.ReportResolved:  true,
		domain.ReportDismissed: true,
	}
	if !validStatuses[status] {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_STATUS", "status must be reviewing, resolved or dismissed")
		return
	}

	err = h.feedbackSvc.ReviewReport(c.Request.Context(), id, reviewerID, status, body.Note, body.BanUser)
	if err != nil {
		if domain.IsNotFound(err) {
			respondError(c, http.StatusNotFound, "ERR_NOT_FOUND", err.Error())
			return
		}
		respondError(c, http.StatusInternalServerError, "ERR_INTERNAL", err.Error())
		return
	}

	respondSuccess(c, http.StatusOK, gin.H{
		"report_id": id,
		"status":    status,
		"ban_user":  body.BanUser,
	})
}
