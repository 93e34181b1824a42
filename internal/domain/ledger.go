package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ──────────────────────────────────────────────────────────────────────────────
// Bid
// ──────────────────────────────────────────────────────────────────────────────

// Bid is a single offer against a listing. Immutable once created; a bidder's
// bids are only ever removed wholesale via withdrawal.
type Bid struct {
	ID        uuid.UUID       `json:"id"         db:"id"`
	ListingID uuid.UUID       `json:"listing_id" db:"listing_id"`
	BidderID  uuid.UUID       `json:"bidder_id"  db:"bidder_id"`
	Amount    decimal.Decimal `json:"amount"     db:"amount"`
	PlacedAt  time.Time       `json:"placed_at"  db:"placed_at"`
}

// ──────────────────────────────────────────────────────────────────────────────
// BidLedger
// ──────────────────────────────────────────────────────────────────────────────

// BidLedger holds the bids of one listing in insertion order. Insertion order
// doubles as the final tie-break when amounts and timestamps are both equal.
//
// The ledger itself is not goroutine safe; callers serialise access per
// listing (see the service-layer listing guard).
type BidLedger struct {
	bids []*Bid
}

// NewBidLedger builds a ledger over the given bids, preserving their order.
func NewBidLedger(bids ...*Bid) *BidLedger {
	return &BidLedger{bids: bids}
}

// Add appends a bid to the ledger.
func (lg *BidLedger) Add(b *Bid) {
	lg.bids = append(lg.bids, b)
}

// Withdraw removes every bid by bidderID and returns how many were removed.
// Idempotent: a second call returns 0.
func (lg *BidLedger) Withdraw(bidderID uuid.UUID) int {
	kept := lg.bids[:0]
	removed := 0
	for _, b := range lg.bids {
		if b.BidderID == bidderID {
			removed++
			continue
		}
		kept = append(kept, b)
	}
	lg.bids = kept
	return removed
}

// Highest returns the winning bid: maximum amount, ties broken by earliest
// PlacedAt, then by insertion order. Returns nil for an empty ledger.
func (lg *BidLedger) Highest() *Bid {
	var top *Bid
	for _, b := range lg.bids {
		if top == nil {
			top = b
			continue
		}
		switch {
		case b.Amount.GreaterThan(top.Amount):
			top = b
		case b.Amount.Equal(top.Amount) && b.PlacedAt.Before(top.PlacedAt):
			top = b
		}
	}
	return top
}

// Bidders returns the distinct bidder ids in first-bid order.
func (lg *BidLedger) Bidders() []uuid.UUID {
	seen := make(map[uuid.UUID]bool, len(lg.bids))
	var out []uuid.UUID
	for _, b := range lg.bids {
		if !seen[b.BidderID] {
			seen[b.BidderID] = true
			out = append(out, b.BidderID)
		}
	}
	return out
}

// HasBids returns true when the ledger contains at least one bid.
func (lg *BidLedger) HasBids() bool { return len(lg.bids) > 0 }

// Len returns the number of bids in the ledger.
func (lg *BidLedger) Len() int { return len(lg.bids) }

// Bids returns the underlying bid slice in insertion order.
func (lg *BidLedger) Bids() []*Bid { return lg.bids }
