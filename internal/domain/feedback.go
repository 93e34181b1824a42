package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// ──────────────────────────────────────────────────────────────────────────────
// Rating
// ──────────────────────────────────────────────────────────────────────────────

// Rating limits.
const (
	MinStars = 1
	MaxStars = 5
)

// Rating is post-sale feedback from one counterparty of a sold listing about
// the other. At most one rating per (rater, listing) pair.
type Rating struct {
	ID          uuid.UUID `json:"id"            db:"id"`
	ListingID   uuid.UUID `json:"listing_id"    db:"listing_id"`
	RaterID     uuid.UUID `json:"rater_id"      db:"rater_id"`
	RatedUserID uuid.UUID `json:"rated_user_id" db:"rated_user_id"`
	Stars       int       `json:"stars"         db:"stars"`
	Review      string    `json:"review"        db:"review"`
	CreatedAt   time.Time `json:"created_at"    db:"created_at"`
}

// NewRating validates the star value and builds a rating. Eligibility (sold
// listing, counterparty, no prior rating) is checked by the feedback service
// against storage.
func NewRating(raterID, ratedUserID, listingID uuid.UUID, stars int, review string, now time.Time) (*Rating, error) {
	if stars < MinStars || stars > MaxStars {
		return nil, ErrInvalidRating
	}
	return &Rating{
		ID:          uuid.New(),
		ListingID:   listingID,
		RaterID:     raterID,
		RatedUserID: ratedUserID,
		Stars:       stars,
		Review:      review,
		CreatedAt:   now.UTC(),
	}, nil
}

// CanRate reports whether raterID may rate ratedUserID for this listing:
// the listing is sold and the two users are its counterparties (seller and
// winning bidder, in either direction). Prior-rating uniqueness is a storage
// check layered on top.
func (l *Listing) CanRate(raterID, ratedUserID uuid.UUID) bool {
	if l.Status != StatusSold || l.BuyerID == nil {
		return false
	}
	buyer := *l.BuyerID
	sellerRatesBuyer := raterID == l.SellerID && ratedUserID == buyer
	buyerRatesSeller := raterID == buyer && ratedUserID == l.SellerID
	return sellerRatesBuyer || buyerRatesSeller
}

// UserStats is a pure read-side projection over a user's stored ratings.
// Never maintained incrementally.
type UserStats struct {
	UserID       uuid.UUID   `json:"user_id"`
	AvgRating    float64     `json:"avg_rating"`
	TotalRatings int         `json:"total_ratings"`
	Distribution map[int]int `json:"distribution"` // stars → count
}

// ──────────────────────────────────────────────────────────────────────────────
// Report
// ──────────────────────────────────────────────────────────────────────────────

// Default report content limits.
const (
	MinReportDescription = 20
	MaxEvidenceURLs      = 5
)

// ReportLimits bounds the content of an abuse report. Operators tune the
// values through configuration; the zero value rejects every description, so
// always start from DefaultReportLimits.
type ReportLimits struct {
	MinDescription  int
	MaxEvidenceURLs int
}

// DefaultReportLimits returns the limits a fresh deployment runs with.
func DefaultReportLimits() ReportLimits {
	return ReportLimits{
		MinDescription:  MinReportDescription,
		MaxEvidenceURLs: MaxEvidenceURLs,
	}
}

// ReportReasons is the fixed set of accepted abuse-report reasons.
var ReportReasons = []string{
	"Scam/Fraud",
	"No Show",
	"False Listing",
	"Harassment",
	"Price Manipulation",
	"Fake Account",
	"Payment Issues",
	"Other",
}

// ReportStatus tracks a report through moderation.
type ReportStatus string

const (
	ReportPending   ReportStatus = "pending"
	ReportReviewing ReportStatus = "reviewing"
	ReportResolved  ReportStatus = "resolved"
	ReportDismissed ReportStatus = "dismissed"
)

// Report is an abuse report against a user, optionally tied to a listing.
type Report struct {
	ID             uuid.UUID      `json:"id"               db:"id"`
	ReporterID     uuid.UUID      `json:"reporter_id"      db:"reporter_id"`
	ReportedUserID uuid.UUID      `json:"reported_user_id" db:"reported_user_id"`
	ListingID      *uuid.UUID     `json:"listing_id"       db:"listing_id"`
	Reason         string         `json:"reason"           db:"reason"`
	Description    string         `json:"description"      db:"description"`
	EvidenceURLs   pq.StringArray `json:"evidence_urls"    db:"evidence_urls"`
	Status         ReportStatus   `json:"status"           db:"status"`
	ReviewedBy     *uuid.UUID     `json:"reviewed_by"      db:"reviewed_by"`
	ReviewNote     string         `json:"review_note"      db:"review_note"`
	CreatedAt      time.Time      `json:"created_at"       db:"created_at"`
	ReviewedAt     *time.Time     `json:"reviewed_at"      db:"reviewed_at"`
}

// NewReport validates against the given limits and builds a pending report.
func NewReport(reporterID, reportedUserID uuid.UUID, listingID *uuid.UUID,
	reason, description string, evidenceURLs []string, limits ReportLimits, now time.Time) (*Report, error) {

	if !validReportReason(reason) {
		return nil, ErrInvalidReportReason
	}
	if len(description) < limits.MinDescription {
		return nil, ErrDescriptionTooShort
	}
	if len(evidenceURLs) > limits.MaxEvidenceURLs {
		return nil, ErrTooManyEvidenceItems
	}
	return &Report{
		ID:             uuid.New(),
		ReporterID:     reporterID,
		ReportedUserID: reportedUserID,
		ListingID:      listingID,
		Reason:         reason,
		Description:    description,
		EvidenceURLs:   pq.StringArray(evidenceURLs),
		Status:         ReportPending,
		CreatedAt:      now.UTC(),
	}, nil
}

func validReportReason(reason string) bool {
	for _, r := range ReportReasons {
		if r == reason {
			return true
		}
	}
	return false
}
