package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/campusmess/mealmarket/internal/domain"
	"github.com/campusmess/mealmarket/internal/repository"
	"github.com/google/uuid"
)

// FeedbackService handles post-sale ratings and abuse reports.
type FeedbackService struct {
	feedbackRepo *repository.FeedbackRepository
	listingRepo  *repository.ListingRepository
	userRepo     *repository.UserRepository
	limits       domain.ReportLimits
	notifier     Notifier
	logger       *slog.Logger
}

// NewFeedbackService creates a FeedbackService.
func NewFeedbackService(
	feedbackRepo *repository.FeedbackRepository,
	listingRepo *repository.ListingRepository,
	userRepo *repository.UserRepository,
	limits domain.ReportLimits,
	notifier Notifier,
	logger *slog.Logger,
) *FeedbackService {
	return &FeedbackService{
		feedbackRepo: feedbackRepo,
		listingRepo:  listingRepo,
		userRepo:     userRepo,
		limits:       limits,
		notifier:     notifier,
		logger:       logger,
	}
}

// RateUser records a counterparty rating for a sold listing. Eligibility:
// the listing is sold, rater and rated user are its two counterparties, and
// the rater has not rated this listing before.
func (s *FeedbackService) RateUser(ctx context.Context, raterID, ratedUserID, listingID uuid.UUID, stars int, review string) (*domain.Rating, error) {
	rating, err := domain.NewRating(raterID, ratedUserID, listingID, stars, review, time.Now())
	if err != nil {
		return nil, err
	}

	l, err := s.listingRepo.GetByID(ctx, listingID)
	if err != nil {
		return nil, err
	}
	if !l.CanRate(raterID, ratedUserID) {
		return nil, domain.ErrNotEligible
	}
	rated, err := s.feedbackRepo.HasRated(ctx, raterID, listingID)
	if err != nil {
		return nil, err
	}
	if rated {
		return nil, domain.ErrNotEligible
	}

	// The unique constraint on (rater_id, listing_id) closes the race between
	// the HasRated check and the insert.
	if err := s.feedbackRepo.CreateRating(ctx, rating); err != nil {
		return nil, err
	}

	s.logger.Info("rating created",
		"listing_id", listingID, "rater_id", raterID,
		"rated_user_id", ratedUserID, "stars", stars)
	return rating, nil
}

// GetUserStats returns the recomputed rating projection for a user.
func (s *FeedbackService) GetUserStats(ctx context.Context, userID uuid.UUID) (*domain.UserStats, error) {
	if _, err := s.userRepo.GetByID(ctx, userID); err != nil {
		return nil, err
	}
	return s.feedbackRepo.GetUserStats(ctx, userID)
}

// GetRatingsForUser returns ratings a user has received, newest first.
func (s *FeedbackService) GetRatingsForUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*domain.Rating, error) {
	return s.feedbackRepo.GetRatingsForUser(ctx, userID, limit, offset)
}

// ReportUser files an abuse report against a user, optionally tied to a
// listing.
func (s *FeedbackService) ReportUser(ctx context.Context, reporterID, reportedUserID uuid.UUID,
	listingID *uuid.UUID, reason, description string, evidenceURLs []string) (*domain.Report, error) {

	if _, err := s.userRepo.GetByID(ctx, reportedUserID); err != nil {
		return nil, err
	}
	if listingID != nil {
		if _, err := s.listingRepo.GetByID(ctx, *listingID); err != nil {
			return nil, err
		}
	}

	report, err := domain.NewReport(reporterID, reportedUserID, listingID,
		reason, description, evidenceURLs, s.limits, time.Now())
	if err != nil {
		return nil, err
	}
	if err := s.feedbackRepo.CreateReport(ctx, report); err != nil {
		return nil, err
	}

	s.logger.Info("report filed",
		"report_id", report.ID, "reporter_id", reporterID,
		"reported_user_id", reportedUserID, "reason", reason)
	return report, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Moderation (back-office)
// ──────────────────────────────────────────────────────────────────────────────

// ListReports returns reports for the moderation queue.
func (s *FeedbackService) ListReports(ctx context.Context, status string, limit, offset int) ([]*domain.Report, error) {
	return s.feedbackRepo.ListReports(ctx, status, limit, offset)
}

// GetReport fetches one report.
func (s *FeedbackService) GetReport(ctx context.Context, id uuid.UUID) (*domain.Report, error) {
	return s.feedbackRepo.GetReportByID(ctx, id)
}

// ReviewReport moves a report to a new status, optionally suspending the
// reported user, and notifies the reporter of the outcome.
func (s *FeedbackService) ReviewReport(ctx context.Context, reportID, reviewerID uuid.UUID,
	status domain.ReportStatus, note string, banUser bool) error {

	report, err := s.feedbackRepo.GetReportByID(ctx, reportID)
	if err != nil {
		return err
	}
	if err := s.feedbackRepo.UpdateReportStatus(ctx, reportID, status, reviewerID, note, time.Now()); err != nil {
		return err
	}

	if banUser && status == domain.ReportResolved {
		if err := s.userRepo.SetActive(ctx, report.ReportedUserID, false); err != nil {
			return err
		}
		s.logger.Warn("user suspended via report",
			"user_id", report.ReportedUserID, "report_id", reportID, "reviewer_id", reviewerID)
	}

	s.notifier.Notify(ctx, report.ReporterID, domain.NotifyReportUpdate,
		"Report update",
		"Your report was reviewed and marked "+string(status)+".")
	return nil
}

// PendingReportCount returns the moderation queue size for the dashboard.
func (s *FeedbackService) PendingReportCount(ctx context.Context) (int, error) {
	return s.feedbackRepo.CountPendingReports(ctx)
}
