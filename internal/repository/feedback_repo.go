package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/campusmess/mealmarket/internal/domain"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// FeedbackRepository handles database operations for ratings and reports.
type FeedbackRepository struct {
	db *sqlx.DB
}

// NewFeedbackRepository creates a new FeedbackRepository.
func NewFeedbackRepository(db *sqlx.DB) *FeedbackRepository {
	return &FeedbackRepository{db: db}
}

// ──────────────────────────────────────────────────────────────────────────────
// Ratings
// ──────────────────────────────────────────────────────────────────────────────

// CreateRating inserts a rating. The (rater_id, listing_id) unique constraint
// is the storage-layer guarantee behind one-rating-per-rater-per-listing;
// violations surface as ErrNotEligible.
func (r *FeedbackRepository) CreateRating(ctx context.Context, rating *domain.Rating) error {
	query := `
		INSERT INTO ratings (id, listing_id, rater_id, rated_user_id, stars, review, created_at)
		VALUES (:id, :listing_id, :rater_id, :rated_user_id, :stars, :review, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, rating); err != nil {
		if isUniqueViolation(err, "ratings_rater_listing_key") {
			return domain.ErrNotEligible
		}
		return fmt.Errorf("feedback_repo.CreateRating: %w", err)
	}
	return nil
}

// HasRated reports whether rater already rated this listing.
func (r *FeedbackRepository) HasRated(ctx context.Context, raterID, listingID uuid.UUID) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists,
		`SELECT EXISTS (SELECT 1 FROM ratings WHERE rater_id = $1 AND listing_id = $2)`,
		raterID, listingID)
	if err != nil {
		return false, fmt.Errorf("feedback_repo.HasRated: %w", err)
	}
	return exists, nil
}

// GetRatingsForUser returns ratings received by a user, newest first.
func (r *FeedbackRepository) GetRatingsForUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*domain.Rating, error) {
	var ratings []*domain.Rating
	err := r.db.SelectContext(ctx, &ratings,
		`SELECT * FROM ratings WHERE rated_user_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("feedback_repo.GetRatingsForUser: %w", err)
	}
	return ratings, nil
}

// GetUserStats recomputes the rating projection for one user from stored
// rows. Stats are never maintained incrementally.
func (r *FeedbackRepository) GetUserStats(ctx context.Context, userID uuid.UUID) (*domain.UserStats, error) {
	type row struct {
		Stars int `db:"stars"`
		Count int `db:"count"`
	}
	var rows []row
	err := r.db.SelectContext(ctx, &rows,
		`SELECT stars, COUNT(*) AS count FROM ratings WHERE rated_user_id = $1 GROUP BY stars`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("feedback_repo.GetUserStats: %w", err)
	}

	stats := &domain.UserStats{
		UserID:       userID,
		Distribution: make(map[int]int, domain.MaxStars),
	}
	sum := 0
	for _, rw := range rows {
		stats.Distribution[rw.Stars] = rw.Count
		stats.TotalRatings += rw.Count
		sum += rw.Stars * rw.Count
	}
	if stats.TotalRatings > 0 {
		stats.AvgRating = float64(sum) / float64(stats.TotalRatings)
	}
	return stats, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Reports
// ──────────────────────────────────────────────────────────────────────────────

// CreateReport inserts a new pending report.
func (r *FeedbackRepository) CreateReport(ctx context.Context, rep *domain.Report) error {
	query := `
		INSERT INTO reports
			(id, reporter_id, reported_user_id, listing_id, reason, description,
			 evidence_urls, status, created_at)
		VALUES
			(:id, :reporter_id, :reported_user_id, :listing_id, :reason, :description,
			 :evidence_urls, :status, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, rep); err != nil {
		return fmt.Errorf("feedback_repo.CreateReport: %w", err)
	}
	return nil
}

// GetReportByID fetches a report by primary key.
func (r *FeedbackRepository) GetReportByID(ctx context.Context, id uuid.UUID) (*domain.Report, error) {
	var rep domain.Report
	err := r.db.GetContext(ctx, &rep, `SELECT * FROM reports WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrReportNotFound
		}
		return nil, fmt.Errorf("feedback_repo.GetReportByID: %w", err)
	}
	return &rep, nil
}

// ListReports returns reports filtered by optional status, newest first.
func (r *FeedbackRepository) ListReports(ctx context.Context, status string, limit, offset int) ([]*domain.Report, error) {
	var reports []*domain.Report
	var err error
	if status != "" {
		err = r.db.SelectContext(ctx, &reports,
			`SELECT * FROM reports WHERE status = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
			status, limit, offset)
	} else {
		err = r.db.SelectContext(ctx, &reports,
			`SELECT * FROM reports ORDER BY created_at DESC LIMIT $1 OFFSET $2`,
			limit, offset)
	}
	if err != nil {
		return nil, fmt.Errorf("feedback_repo.ListReports: %w", err)
	}
	return reports, nil
}

// UpdateReportStatus moves a report through moderation and records the
// reviewer.
func (r *FeedbackRepository) UpdateReportStatus(ctx context.Context, id uuid.UUID,
	status domain.ReportStatus, reviewerID uuid.UUID, note string, now time.Time) error {

	res, err := r.db.ExecContext(ctx, `
		UPDATE reports
		SET status = $1, reviewed_by = $2, review_note = $3, reviewed_at = $4
		WHERE id = $5`,
		string(status), reviewerID, note, now.UTC(), id)
	if err != nil {
		return fmt.Errorf("feedback_repo.UpdateReportStatus: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrReportNotFound
	}
	return nil
}

// CountPendingReports returns the size of the moderation queue.
func (r *FeedbackRepository) CountPendingReports(ctx context.Context) (int, error) {
	var n int
	err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM reports WHERE status = 'pending'`)
	if err != nil {
		return 0, fmt.Errorf("feedback_repo.CountPendingReports: %w", err)
	}
	return n, nil
}

// isUniqueViolation checks whether err is a PostgreSQL unique constraint
// violation for the given constraint name.
func isUniqueViolation(err error, constraintName string) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "unique constraint") && strings.Contains(msg, constraintName)
}
