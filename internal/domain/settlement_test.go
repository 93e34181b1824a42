package domain_test

import (
	"errors"
	"testing"
	"time"

	"github.com/campusmess/mealmarket/internal/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var t0 = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

func newFixedDecayListing(t *testing.T, target, drop float64, intervalSec int64) *domain.Listing {
	t.Helper()
	l, err := domain.NewListing(domain.CreateListingParams{
		SellerID:        uuid.New(),
		Mess:            "North Mess",
		MealTime:        "lunch",
		Date:            "2025-03-11",
		Mode:            domain.ModeFixedDecay,
		TargetPrice:     decimal.NewFromFloat(target),
		PriceDropAmount: decimal.NewFromFloat(drop),
		DropInterval:    intervalSec,
	}, t0)
	if err != nil {
		t.Fatalf("NewListing: %v", err)
	}
	return l
}

func newAuctionListing(t *testing.T, floor float64, durationSec int64) *domain.Listing {
	t.Helper()
	l, err := domain.NewListing(domain.CreateListingParams{
		SellerID:        uuid.New(),
		Mess:            "North Mess",
		MealTime:        "dinner",
		Date:            "2025-03-11",
		Mode:            domain.ModeAuction,
		TargetPrice:     decimal.NewFromFloat(floor),
		AuctionDuration: durationSec,
	}, t0)
	if err != nil {
		t.Fatalf("NewListing: %v", err)
	}
	return l
}

func bid(listingID uuid.UUID, amount float64, placedAt time.Time) *domain.Bid {
	return &domain.Bid{
		ID:        uuid.New(),
		ListingID: listingID,
		BidderID:  uuid.New(),
		Amount:    decimal.NewFromFloat(amount),
		PlacedAt:  placedAt,
	}
}

// ── Fixed-decay lifecycle ─────────────────────────────────────────────────────

// A 100 TRY listing dropping 10 per interval with one standing 80 TRY bid:
// two drops (100 → 90 → 80) and then a sale at 80 once the drops run out.
func TestEvaluate_FixedDecayFullLifecycle(t *testing.T) {
	l := newFixedDecayListing(t, 100, 10, 600)
	p := domain.DefaultPolicy()

	standing := bid(l.ID, 80, t0)
	ledger := domain.NewBidLedger(standing)

	now := t0
	for i, wantPrice := range []float64{90, 80} {
		now = l.EndTime
		d, err := domain.Evaluate(l, ledger, now, p)
		if err != nil {
			t.Fatalf("drop %d: Evaluate: %v", i+1, err)
		}
		if d.Kind != domain.DecisionPriceDrop {
			t.Fatalf("drop %d: kind = %s, want %s", i+1, d.Kind, domain.DecisionPriceDrop)
		}
		d.Apply(l, now)
		if !l.CurrentPrice.Equal(decimal.NewFromFloat(wantPrice)) {
			t.Errorf("drop %d: price = %s, want %v", i+1, l.CurrentPrice, wantPrice)
		}
		if l.DropCount != i+1 {
			t.Errorf("drop %d: DropCount = %d, want %d", i+1, l.DropCount, i+1)
		}
	}

	// Drops exhausted. Second drop already landed on the bid (80), so the
	// clearing-bid rule fires before the remaining drops are even consulted.
	now = l.EndTime
	d, err := domain.Evaluate(l, ledger, now, p)
	if err != nil {
		t.Fatalf("final: Evaluate: %v", err)
	}
	if d.Kind != domain.DecisionSell {
		t.Fatalf("final: kind = %s, want %s", d.Kind, domain.DecisionSell)
	}
	if !d.SalePrice.Equal(standing.Amount) {
		t.Errorf("sale price = %s, want %s", d.SalePrice, standing.Amount)
	}
	d.Apply(l, now)

	if l.Status != domain.StatusSold {
		t.Errorf("status = %s, want %s", l.Status, domain.StatusSold)
	}
	if l.BuyerID == nil || *l.BuyerID != standing.BidderID {
		t.Errorf("buyer = %v, want %s", l.BuyerID, standing.BidderID)
	}
	if l.SoldAt == nil || !l.SoldAt.Equal(now) {
		t.Errorf("SoldAt = %v, want %s", l.SoldAt, now)
	}
}

func TestEvaluate_FixedDecayBidlessExpiresAfterDrops(t *testing.T) {
	l := newFixedDecayListing(t, 100, 10, 600)
	p := domain.DefaultPolicy()
	ledger := domain.NewBidLedger()

	now := t0
	for i := 0; i < p.MaxPriceDrops; i++ {
		now = l.EndTime
		d, err := domain.Evaluate(l, ledger, now, p)
		if err != nil {
			t.Fatalf("Evaluate: %v", err)
		}
		if d.Kind != domain.DecisionPriceDrop {
			t.Fatalf("drop %d: kind = %s, want %s", i+1, d.Kind, domain.DecisionPriceDrop)
		}
		d.Apply(l, now)
	}

	now = l.EndTime
	d, err := domain.Evaluate(l, ledger, now, p)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if d.Kind != domain.DecisionExpire {
		t.Fatalf("kind = %s, want %s", d.Kind, domain.DecisionExpire)
	}
	d.Apply(l, now)
	if l.Status != domain.StatusExpired {
		t.Errorf("status = %s, want %s", l.Status, domain.StatusExpired)
	}
}

// Immediate buy: a bid at or above the current price sells on the next due
// evaluation without burning a drop.
func TestEvaluate_FixedDecayClearingBidSellsImmediately(t *testing.T) {
	l := newFixedDecayListing(t, 100, 10, 600)
	p := domain.DefaultPolicy()

	clearing := bid(l.ID, 100, t0)
	ledger := domain.NewBidLedger(bid(l.ID, 60, t0), clearing)

	now := l.EndTime
	d, err := domain.Evaluate(l, ledger, now, p)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if d.Kind != domain.DecisionSell {
		t.Fatalf("kind = %s, want %s", d.Kind, domain.DecisionSell)
	}
	if !d.SalePrice.Equal(clearing.Amount) {
		t.Errorf("sale price = %s, want %s", d.SalePrice, clearing.Amount)
	}
	if d.Winner.BidderID != clearing.BidderID {
		t.Errorf("winner = %s, want %s", d.Winner.BidderID, clearing.BidderID)
	}
}

// With SellOnPriceClear disabled a clearing bid does not short-circuit; the
// price still drops but never below the standing high bid, and never upward.
func TestEvaluate_FixedDecayDropClampsToHighBid(t *testing.T) {
	l := newFixedDecayListing(t, 100, 10, 600)
	p := domain.DefaultPolicy()
	p.SellOnPriceClear = false

	ledger := domain.NewBidLedger(bid(l.ID, 95, t0))

	now := l.EndTime
	d, err := domain.Evaluate(l, ledger, now, p)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if d.Kind != domain.DecisionPriceDrop {
		t.Fatalf("kind = %s, want %s", d.Kind, domain.DecisionPriceDrop)
	}
	// 100 - 10 = 90, but the 95 bid holds the floor at 95.
	if !d.NewPrice.Equal(decimal.NewFromFloat(95)) {
		t.Errorf("NewPrice = %s, want 95", d.NewPrice)
	}

	// A bid above the current price must not push the price up.
	ledger = domain.NewBidLedger(bid(l.ID, 150, t0))
	d, err = domain.Evaluate(l, ledger, now, p)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if d.NewPrice.GreaterThan(l.CurrentPrice) {
		t.Errorf("NewPrice = %s exceeds current %s", d.NewPrice, l.CurrentPrice)
	}
}

func TestEvaluate_FixedDecayPriceNeverNegative(t *testing.T) {
	l := newFixedDecayListing(t, 10, 9, 600)
	p := domain.Policy{MaxPriceDrops: 5, ExpireBidlessAuctions: true}
	ledger := domain.NewBidLedger()

	now := t0
	for i := 0; i < 3; i++ {
		now = l.EndTime
		d, err := domain.Evaluate(l, ledger, now, p)
		if err != nil {
			t.Fatalf("Evaluate: %v", err)
		}
		if d.Kind != domain.DecisionPriceDrop {
			break
		}
		d.Apply(l, now)
		if l.CurrentPrice.IsNegative() {
			t.Fatalf("price went negative: %s", l.CurrentPrice)
		}
	}
	if !l.CurrentPrice.Equal(decimal.Zero) {
		t.Errorf("price = %s, want 0 after repeated drops", l.CurrentPrice)
	}
}

// ── Auction lifecycle ─────────────────────────────────────────────────────────

func TestEvaluate_AuctionSellsToHighestAtExpiry(t *testing.T) {
	l := newAuctionListing(t, 50, 3600)
	p := domain.DefaultPolicy()

	low := bid(l.ID, 55, t0)
	high := bid(l.ID, 70, t0.Add(time.Minute))
	ledger := domain.NewBidLedger(low, high)

	// Not due yet: nothing happens.
	d, err := domain.Evaluate(l, ledger, t0.Add(time.Minute), p)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if d.Kind != domain.DecisionNone {
		t.Fatalf("before expiry: kind = %s, want %s", d.Kind, domain.DecisionNone)
	}

	now := l.EndTime
	d, err = domain.Evaluate(l, ledger, now, p)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if d.Kind != domain.DecisionSell {
		t.Fatalf("kind = %s, want %s", d.Kind, domain.DecisionSell)
	}
	if d.Winner.BidderID != high.BidderID {
		t.Errorf("winner = %s, want %s", d.Winner.BidderID, high.BidderID)
	}
	if !d.SalePrice.Equal(high.Amount) {
		t.Errorf("sale price = %s, want %s", d.SalePrice, high.Amount)
	}
}

func TestEvaluate_BidlessAuctionExpiresOrExtends(t *testing.T) {
	p := domain.DefaultPolicy()

	l := newAuctionListing(t, 50, 3600)
	d, err := domain.Evaluate(l, domain.NewBidLedger(), l.EndTime, p)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if d.Kind != domain.DecisionExpire {
		t.Errorf("strict policy: kind = %s, want %s", d.Kind, domain.DecisionExpire)
	}

	// Lenient policy: one more round instead.
	p.ExpireBidlessAuctions = false
	l = newAuctionListing(t, 50, 3600)
	now := l.EndTime
	d, err = domain.Evaluate(l, domain.NewBidLedger(), now, p)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if d.Kind != domain.DecisionExtend {
		t.Fatalf("lenient policy: kind = %s, want %s", d.Kind, domain.DecisionExtend)
	}
	d.Apply(l, now)
	wantEnd := now.Add(time.Duration(l.AuctionDuration) * time.Second)
	if !l.EndTime.Equal(wantEnd) {
		t.Errorf("EndTime = %s, want %s", l.EndTime, wantEnd)
	}
	if l.Status != domain.StatusActive {
		t.Errorf("status = %s, want %s", l.Status, domain.StatusActive)
	}
}

// ── Invariants ────────────────────────────────────────────────────────────────

func TestEvaluate_TerminalListingIsNoop(t *testing.T) {
	for _, status := range []domain.ListingStatus{
		domain.StatusSold, domain.StatusUnlisted, domain.StatusExpired,
	} {
		l := newFixedDecayListing(t, 100, 10, 600)
		l.Status = status
		d, err := domain.Evaluate(l, domain.NewBidLedger(), l.EndTime.Add(time.Hour), domain.DefaultPolicy())
		if err != nil {
			t.Fatalf("%s: Evaluate: %v", status, err)
		}
		if d.Kind != domain.DecisionNone {
			t.Errorf("%s: kind = %s, want %s", status, d.Kind, domain.DecisionNone)
		}
	}
}

func TestEvaluate_CorruptListingReportsInvariantViolation(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*domain.Listing)
	}{
		{"drop count above cap", func(l *domain.Listing) { l.DropCount = 99 }},
		{"negative current price", func(l *domain.Listing) { l.CurrentPrice = decimal.NewFromInt(-5) }},
		{"current above target", func(l *domain.Listing) { l.CurrentPrice = decimal.NewFromInt(500) }},
		{"unknown mode", func(l *domain.Listing) { l.Mode = "dutch" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			l := newFixedDecayListing(t, 100, 10, 600)
			tc.mutate(l)
			before := *l

			d, err := domain.Evaluate(l, domain.NewBidLedger(), l.EndTime, domain.DefaultPolicy())
			if !errors.Is(err, domain.ErrInvariantViolation) {
				t.Fatalf("err = %v, want ErrInvariantViolation", err)
			}
			if d.Kind != domain.DecisionNone {
				t.Errorf("kind = %s, want %s", d.Kind, domain.DecisionNone)
			}
			d.Apply(l, l.EndTime)
			if l.Status != before.Status || !l.CurrentPrice.Equal(before.CurrentPrice) {
				t.Errorf("listing mutated after invariant failure")
			}
		})
	}
}

func TestEvaluate_AuctionFloorMovedIsInvariantViolation(t *testing.T) {
	l := newAuctionListing(t, 50, 3600)
	l.CurrentPrice = decimal.NewFromInt(40)
	_, err := domain.Evaluate(l, domain.NewBidLedger(), l.EndTime, domain.DefaultPolicy())
	if !errors.Is(err, domain.ErrInvariantViolation) {
		t.Fatalf("err = %v, want ErrInvariantViolation", err)
	}
}
