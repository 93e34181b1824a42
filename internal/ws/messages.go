// Package ws holds WebSocket message types and the Hub implementation.
// messages.go defines all message structs pushed to connected clients.
package ws

import (
	"time"

	"github.com/campusmess/mealmarket/internal/domain"
)

// MsgType identifies the kind of WS message so clients can switch on it.
type MsgType string

const (
	MsgTypeListingUpdate MsgType = "listing_update"
	MsgTypeListingFeed   MsgType = "listing_feed"
	MsgTypeNotification  MsgType = "notification"
)

// ──────────────────────────────────────────────────────────────────────────────
// ListingUpdateMessage — broadcast whenever a listing's state changes.
// ──────────────────────────────────────────────────────────────────────────────

// ListingUpdateMessage carries one listing's live state: current price, bid
// count, highest bid, countdown, and status. Sent on creation, bids,
// withdrawals, and every settlement decision.
type ListingUpdateMessage struct {
	Type      MsgType               `json:"type"`
	Listing   domain.ListingSummary `json:"listing"`
	Timestamp time.Time             `json:"timestamp"`
}

// ──────────────────────────────────────────────────────────────────────────────
// ListingFeedMessage — periodic snapshot of all active listings.
// ──────────────────────────────────────────────────────────────────────────────

// ListingFeedMessage is the scheduler's periodic push of every active listing,
// so late-joining clients converge without polling.
type ListingFeedMessage struct {
	Type      MsgType                 `json:"type"`
	Listings  []domain.ListingSummary `json:"listings"`
	Timestamp time.Time               `json:"timestamp"`
}

// ──────────────────────────────────────────────────────────────────────────────
// NotificationMessage — sent to one authenticated client only.
// ──────────────────────────────────────────────────────────────────────────────

// NotificationMessage delivers a feed notification over the live channel to
// its recipient.
type NotificationMessage struct {
	Type         MsgType              `json:"type"`
	Notification *domain.Notification `json:"notification"`
	Timestamp    time.Time            `json:"timestamp"`
}

