package domain

import (
	"time"

	"github.com/google/uuid"
)

// ──────────────────────────────────────────────────────────────────────────────
// NotificationKind
// ──────────────────────────────────────────────────────────────────────────────

// NotificationKind enumerates every event the dispatcher can emit. Handlers
// and the settings record key off these values, so the set is closed.
type NotificationKind string

const (
	NotifyListingSold    NotificationKind = "listing_sold"
	NotifyListingResumed NotificationKind = "listing_resumed"
	NotifyAuctionWon     NotificationKind = "auction_won"
	NotifyAuctionLost    NotificationKind = "auction_lost"
	NotifyAuctionResumed NotificationKind = "lost_auction_resume"
	NotifyAuctionExpired NotificationKind = "auction_expired"
	NotifyPriceReduced   NotificationKind = "price_reduced"
	NotifyBidPlaced      NotificationKind = "bid_placed"
	NotifyBidWithdrawn   NotificationKind = "bid_withdrawn"
	NotifyPaymentDone    NotificationKind = "payment_received"
	NotifyReportUpdate   NotificationKind = "report_update"
)

// Notification is one entry in a user's in-app feed. Delivery beyond the feed
// (WS push, e-mail) is a sink concern; the core only formats and records.
type Notification struct {
	ID        uuid.UUID        `json:"id"         db:"id"`
	UserID    uuid.UUID        `json:"user_id"    db:"user_id"`
	Kind      NotificationKind `json:"kind"       db:"kind"`
	Title     string           `json:"title"      db:"title"`
	Message   string           `json:"message"    db:"message"`
	Read      bool             `json:"read"       db:"read"`
	CreatedAt time.Time        `json:"created_at" db:"created_at"`
}

// ──────────────────────────────────────────────────────────────────────────────
// NotificationSettings
// ──────────────────────────────────────────────────────────────────────────────

// NotificationSettings is a user's typed preference record with fixed,
// enumerated toggles. Kinds without a toggle are always delivered.
type NotificationSettings struct {
	UserID                  uuid.UUID `json:"user_id"                    db:"user_id"`
	NotifyListingSold       bool      `json:"notify_listing_sold"        db:"notify_listing_sold"`
	NotifyListingResumed    bool      `json:"notify_listing_resumed"     db:"notify_listing_resumed"`
	NotifyAuctionWon        bool      `json:"notify_auction_won"         db:"notify_auction_won"`
	NotifyAuctionLost       bool      `json:"notify_auction_lost"        db:"notify_auction_lost"`
	NotifyLostAuctionResume bool      `json:"notify_lost_auction_resumes" db:"notify_lost_auction_resumes"`
	NotifyPriceReduced      bool      `json:"notify_price_reduced"       db:"notify_price_reduced"`
	CreatedAt               time.Time `json:"created_at"                 db:"created_at"`
	UpdatedAt               time.Time `json:"updated_at"                 db:"updated_at"`
}

// DefaultSettings returns the preferences a fresh account starts with.
func DefaultSettings(userID uuid.UUID, now time.Time) *NotificationSettings {
	now = now.UTC()
	return &NotificationSettings{
		UserID:                  userID,
		NotifyListingSold:       true,
		NotifyListingResumed:    true,
		NotifyAuctionWon:        true,
		NotifyAuctionLost:       false,
		NotifyLostAuctionResume: true,
		NotifyPriceReduced:      true,
		CreatedAt:               now,
		UpdatedAt:               now,
	}
}

// Allows reports whether the user wants to receive the given kind.
func (s *NotificationSettings) Allows(kind NotificationKind) bool {
	switch kind {
	case NotifyListingSold:
		return s.NotifyListingSold
	case NotifyListingResumed:
		return s.NotifyListingResumed
	case NotifyAuctionWon:
		return s.NotifyAuctionWon
	case NotifyAuctionLost:
		return s.NotifyAuctionLost
	case NotifyAuctionResumed:
		return s.NotifyLostAuctionResume
	case NotifyPriceReduced:
		return s.NotifyPriceReduced
	default:
		// bid_placed, bid_withdrawn, payment_received, report_update,
		// auction_expired have no opt-out.
		return true
	}
}
