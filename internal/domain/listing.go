// Package domain defines the core business entities and settlement rules for
// the campus mess-meal resale marketplace.
package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ──────────────────────────────────────────────────────────────────────────────
// Types & constants
// ──────────────────────────────────────────────────────────────────────────────

// ListingStatus represents the lifecycle state of a listing.
type ListingStatus string

const (
	StatusActive   ListingStatus = "active"   // accepting bids, pending settlement
	StatusSold     ListingStatus = "sold"     // settled; buyer and sale price fixed
	StatusUnlisted ListingStatus = "unlisted" // withdrawn by the seller
	StatusExpired  ListingStatus = "expired"  // ran out of time with no sale
)

// IsTerminal returns true for the states settlement never acts on. Sold is
// terminal for settlement, though a failed payment can reopen a sold listing
// (see Resume).
func (s ListingStatus) IsTerminal() bool {
	return s == StatusSold || s == StatusUnlisted || s == StatusExpired
}

// PricingMode selects how a listing's price behaves over time.
type PricingMode string

const (
	// ModeFixedDecay drops the price on each due evaluation, at most
	// Policy.MaxPriceDrops times, then sells to the highest bidder.
	ModeFixedDecay PricingMode = "fixed_decay"

	// ModeAuction keeps the price fixed as a floor; the highest bid at expiry
	// wins.
	ModeAuction PricingMode = "auction"
)

// IsValid returns true if the mode is a recognised pricing mode.
func (m PricingMode) IsValid() bool {
	return m == ModeFixedDecay || m == ModeAuction
}

// ──────────────────────────────────────────────────────────────────────────────
// Listing
// ──────────────────────────────────────────────────────────────────────────────

// Listing represents a single meal slot offered for resale.
//
// Immutable after creation: SellerID, Mess, MealTime, Date, Mode, TargetPrice,
// PriceDropAmount, DropInterval, AuctionDuration. CurrentPrice only ever
// decreases in fixed-decay mode and stays at TargetPrice in auction mode.
type Listing struct {
	ID       uuid.UUID `json:"id"        db:"id"`
	SellerID uuid.UUID `json:"seller_id" db:"seller_id"`

	Mess     string `json:"mess"      db:"mess"`
	MealTime string `json:"meal_time" db:"meal_time"` // breakfast | lunch | dinner
	Date     string `json:"date"      db:"date"`      // YYYY-MM-DD, the meal day

	Mode            PricingMode     `json:"pricing_mode"       db:"pricing_mode"`
	TargetPrice     decimal.Decimal `json:"target_price"       db:"target_price"`
	CurrentPrice    decimal.Decimal `json:"current_price"      db:"current_price"`
	PriceDropAmount decimal.Decimal `json:"price_drop_amount"  db:"price_drop_amount"`
	DropInterval    int64           `json:"drop_interval_sec"  db:"drop_interval_sec"`    // fixed-decay only
	AuctionDuration int64           `json:"auction_duration_sec" db:"auction_duration_sec"` // auction only

	DropCount int           `json:"drop_count" db:"drop_count"`
	EndTime   time.Time     `json:"end_time"   db:"end_time"`
	Status    ListingStatus `json:"status"     db:"status"`

	// Set when the listing transitions to StatusSold.
	BuyerID   *uuid.UUID       `json:"buyer_id"   db:"buyer_id"`
	SalePrice *decimal.Decimal `json:"sale_price" db:"sale_price"`
	SoldAt    *time.Time       `json:"sold_at"    db:"sold_at"`

	// Proof-of-purchase QR code reference, attachable by the seller after sale.
	QRCodeURL *string `json:"qr_code_url" db:"qr_code_url"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`

	// Bids is populated from the bid ledger on read; not a column.
	Bids []*Bid `json:"bids,omitempty" db:"-"`
}

// IsActive returns true while the listing can accept bids.
func (l *Listing) IsActive() bool {
	return l.Status == StatusActive
}

// Due reports whether the listing is awaiting a settlement evaluation.
func (l *Listing) Due(now time.Time) bool {
	return l.Status == StatusActive && !now.Before(l.EndTime)
}

// TimeLeft returns the duration remaining until the listing is due.
// Returns 0 if the end time has already passed.
func (l *Listing) TimeLeft(now time.Time) time.Duration {
	remaining := l.EndTime.Sub(now)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Ledger wraps the listing's loaded bids in a BidLedger.
func (l *Listing) Ledger() *BidLedger {
	return NewBidLedger(l.Bids...)
}

// Resume reopens a sold listing after its payment fell through. The buyer,
// sale price, and proof-of-purchase reference are cleared and the clock
// restarts with one more interval (fixed-decay) or a full auction window from
// now. Price and drop count carry over, so an out-of-drops fixed-decay
// listing sells to its next highest bidder on the first evaluation back.
func (l *Listing) Resume(now time.Time) error {
	if l.Status != StatusSold || l.BuyerID == nil {
		return ErrListingNotSold
	}
	now = now.UTC()
	l.Status = StatusActive
	l.BuyerID = nil
	l.SalePrice = nil
	l.SoldAt = nil
	l.QRCodeURL = nil
	switch l.Mode {
	case ModeFixedDecay:
		l.EndTime = now.Add(time.Duration(l.DropInterval) * time.Second)
	case ModeAuction:
		l.EndTime = now.Add(time.Duration(l.AuctionDuration) * time.Second)
	}
	l.UpdatedAt = now
	return nil
}

// CheckBid validates that amount is acceptable for this listing right now.
// Returns ErrListingNotActive, ErrInvalidBidAmount, ErrOwnListingBid, or
// ErrBidTooLow (auction bids below the floor).
func (l *Listing) CheckBid(bidderID uuid.UUID, amount decimal.Decimal) error {
	if !l.IsActive() {
		return ErrListingNotActive
	}
	if bidderID == l.SellerID {
		return ErrOwnListingBid
	}
	if amount.LessThanOrEqual(decimal.Zero) {
		return ErrInvalidBidAmount
	}
	if l.Mode == ModeAuction && amount.LessThan(l.CurrentPrice) {
		return ErrBidTooLow
	}
	return nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Creation
// ──────────────────────────────────────────────────────────────────────────────

// CreateListingParams carries the validated inputs for creating a listing.
type CreateListingParams struct {
	SellerID uuid.UUID
	Mess     string
	MealTime string
	Date     string

	Mode            PricingMode
	TargetPrice     decimal.Decimal
	PriceDropAmount decimal.Decimal // fixed-decay only
	DropInterval    int64           // seconds, fixed-decay only
	AuctionDuration int64           // seconds, auction only
}

// NewListing validates params and builds an active listing. The initial end
// time is now + drop interval (fixed-decay) or now + auction duration
// (auction). Returns ErrInvalidListingParams on any invariant violation.
func NewListing(p CreateListingParams, now time.Time) (*Listing, error) {
	if p.SellerID == uuid.Nil || p.Mess == "" || p.MealTime == "" || p.Date == "" {
		return nil, ErrInvalidListingParams
	}
	if !p.Mode.IsValid() {
		return nil, ErrInvalidListingParams
	}
	if p.TargetPrice.LessThanOrEqual(decimal.Zero) {
		return nil, ErrInvalidListingParams
	}

	now = now.UTC()
	l := &Listing{
		ID:           uuid.New(),
		SellerID:     p.SellerID,
		Mess:         p.Mess,
		MealTime:     p.MealTime,
		Date:         p.Date,
		Mode:         p.Mode,
		TargetPrice:  p.TargetPrice,
		CurrentPrice: p.TargetPrice,
		Status:       StatusActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	switch p.Mode {
	case ModeFixedDecay:
		// Drop must be positive and strictly less than the target price.
		if p.PriceDropAmount.LessThanOrEqual(decimal.Zero) ||
			p.PriceDropAmount.GreaterThanOrEqual(p.TargetPrice) {
			return nil, ErrInvalidListingParams
		}
		if p.DropInterval <= 0 {
			return nil, ErrInvalidListingParams
		}
		l.PriceDropAmount = p.PriceDropAmount
		l.DropInterval = p.DropInterval
		l.EndTime = now.Add(time.Duration(p.DropInterval) * time.Second)

	case ModeAuction:
		if p.AuctionDuration <= 0 {
			return nil, ErrInvalidListingParams
		}
		l.AuctionDuration = p.AuctionDuration
		l.EndTime = now.Add(time.Duration(p.AuctionDuration) * time.Second)
	}

	return l, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// ListingSummary — lightweight read model for WS broadcasts and list endpoints
// ──────────────────────────────────────────────────────────────────────────────

// ListingSummary is a derived, read-only view of a Listing used for
// broadcasting and list endpoints.
type ListingSummary struct {
	ID           uuid.UUID       `json:"id"`
	SellerID     uuid.UUID       `json:"seller_id"`
	Mess         string          `json:"mess"`
	MealTime     string          `json:"meal_time"`
	Date         string          `json:"date"`
	Mode         PricingMode     `json:"pricing_mode"`
	Status       ListingStatus   `json:"status"`
	CurrentPrice decimal.Decimal `json:"current_price"`
	DropCount    int             `json:"drop_count"`
	BidCount     int             `json:"bid_count"`
	HighestBid   decimal.Decimal `json:"highest_bid"`
	EndTime      time.Time       `json:"end_time"`
	TimeLeftSec  int64           `json:"time_left_sec"`
}

// ToSummary builds a ListingSummary as of now.
func (l *Listing) ToSummary(now time.Time) ListingSummary {
	s := ListingSummary{
		ID:           l.ID,
		SellerID:     l.SellerID,
		Mess:         l.Mess,
		MealTime:     l.MealTime,
		Date:         l.Date,
		Mode:         l.Mode,
		Status:       l.Status,
		CurrentPrice: l.CurrentPrice,
		DropCount:    l.DropCount,
		BidCount:     len(l.Bids),
		EndTime:      l.EndTime,
		TimeLeftSec:  int64(l.TimeLeft(now).Seconds()),
	}
	if top := l.Ledger().Highest(); top != nil {
		s.HighestBid = top.Amount
	}
	return s
}
