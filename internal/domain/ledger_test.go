package domain_test

import (
	"testing"
	"time"

	"github.com/campusmess/mealmarket/internal/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func TestBidLedger_HighestPicksMaxAmount(t *testing.T) {
	listingID := uuid.New()
	lg := domain.NewBidLedger(
		bid(listingID, 60, t0),
		bid(listingID, 85, t0.Add(time.Minute)),
		bid(listingID, 70, t0.Add(2*time.Minute)),
	)
	top := lg.Highest()
	if top == nil {
		t.Fatal("Highest() = nil")
	}
	if !top.Amount.Equal(decimal.NewFromInt(85)) {
		t.Errorf("Highest().Amount = %s, want 85", top.Amount)
	}
}

func TestBidLedger_HighestTieBreaksOnEarliestBid(t *testing.T) {
	listingID := uuid.New()
	later := bid(listingID, 80, t0.Add(time.Minute))
	earlier := bid(listingID, 80, t0)
	lg := domain.NewBidLedger(later, earlier)

	top := lg.Highest()
	if top.BidderID != earlier.BidderID {
		t.Errorf("tie went to the later bid; want the earlier one")
	}
}

func TestBidLedger_HighestTieBreaksOnInsertionOrder(t *testing.T) {
	listingID := uuid.New()
	first := bid(listingID, 80, t0)
	second := bid(listingID, 80, t0) // identical amount and timestamp
	lg := domain.NewBidLedger(first, second)

	top := lg.Highest()
	if top.BidderID != first.BidderID {
		t.Errorf("tie went to the later insertion; want the first")
	}
}

func TestBidLedger_EmptyHighestIsNil(t *testing.T) {
	if top := domain.NewBidLedger().Highest(); top != nil {
		t.Errorf("Highest() = %v, want nil", top)
	}
}

func TestBidLedger_WithdrawRemovesAllBidderBids(t *testing.T) {
	listingID := uuid.New()
	bidder := uuid.New()
	b1 := bid(listingID, 50, t0)
	b1.BidderID = bidder
	b2 := bid(listingID, 60, t0.Add(time.Minute))
	b2.BidderID = bidder
	other := bid(listingID, 55, t0)

	lg := domain.NewBidLedger(b1, other, b2)

	if removed := lg.Withdraw(bidder); removed != 2 {
		t.Errorf("Withdraw() = %d, want 2", removed)
	}
	if lg.Len() != 1 {
		t.Errorf("Len() = %d, want 1", lg.Len())
	}
	if top := lg.Highest(); top.BidderID != other.BidderID {
		t.Errorf("remaining top = %s, want %s", top.BidderID, other.BidderID)
	}

	// Idempotent.
	if removed := lg.Withdraw(bidder); removed != 0 {
		t.Errorf("second Withdraw() = %d, want 0", removed)
	}
}

func TestBidLedger_BiddersDistinctInFirstBidOrder(t *testing.T) {
	listingID := uuid.New()
	a := bid(listingID, 50, t0)
	b := bid(listingID, 60, t0)
	a2 := bid(listingID, 70, t0)
	a2.BidderID = a.BidderID

	lg := domain.NewBidLedger(a, b, a2)
	bidders := lg.Bidders()
	if len(bidders) != 2 {
		t.Fatalf("Bidders() len = %d, want 2", len(bidders))
	}
	if bidders[0] != a.BidderID || bidders[1] != b.BidderID {
		t.Errorf("Bidders() order = %v, want [%s %s]", bidders, a.BidderID, b.BidderID)
	}
}
