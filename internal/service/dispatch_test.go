package service

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/campusmess/mealmarket/internal/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// notifyRecorder captures Notify calls so the post-commit fan-outs can be
// checked without a database or a hub.
type notifyRecorder struct {
	mu    sync.Mutex
	calls []recordedNotify
}

type recordedNotify struct {
	userID uuid.UUID
	kind   domain.NotificationKind
}

func (r *notifyRecorder) Notify(_ context.Context, userID uuid.UUID, kind domain.NotificationKind, _, _ string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, recordedNotify{userID, kind})
}

func (r *notifyRecorder) kindsFor(userID uuid.UUID) []domain.NotificationKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	var kinds []domain.NotificationKind
	for _, c := range r.calls {
		if c.userID == userID {
			kinds = append(kinds, c.kind)
		}
	}
	return kinds
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func fanoutListing() *domain.Listing {
	return &domain.Listing{
		ID:           uuid.New(),
		SellerID:     uuid.New(),
		Mess:         "North Mess",
		MealTime:     "lunch",
		Date:         "2025-03-10",
		Mode:         domain.ModeFixedDecay,
		TargetPrice:  decimal.NewFromInt(100),
		CurrentPrice: decimal.NewFromInt(80),
		Status:       domain.StatusActive,
		EndTime:      time.Now().Add(10 * time.Minute),
	}
}

func TestWithdrawFanout_NotifiesSeller(t *testing.T) {
	rec := &notifyRecorder{}
	s := &BidService{notifier: rec, logger: discardLogger()}
	l := fanoutListing()

	s.afterWithdraw(l, 2)

	kinds := rec.kindsFor(l.SellerID)
	if len(kinds) != 1 || kinds[0] != domain.NotifyBidWithdrawn {
		t.Fatalf("seller kinds = %v, want [%s]", kinds, domain.NotifyBidWithdrawn)
	}
	if len(rec.calls) != 1 {
		t.Errorf("total notifications = %d, want 1 (seller only)", len(rec.calls))
	}
}

func TestResumeFanout_NotifiesSellerAndRemainingBidders(t *testing.T) {
	rec := &notifyRecorder{}
	s := &PaymentService{notifier: rec, logger: discardLogger()}

	l := fanoutListing()
	bidderA, bidderB := uuid.New(), uuid.New()
	l.Bids = []*domain.Bid{
		{ID: uuid.New(), ListingID: l.ID, BidderID: bidderA, Amount: decimal.NewFromInt(60), PlacedAt: time.Now()},
		{ID: uuid.New(), ListingID: l.ID, BidderID: bidderB, Amount: decimal.NewFromInt(70), PlacedAt: time.Now()},
	}

	s.afterResume(l)

	if kinds := rec.kindsFor(l.SellerID); len(kinds) != 1 || kinds[0] != domain.NotifyListingResumed {
		t.Errorf("seller kinds = %v, want [%s]", kinds, domain.NotifyListingResumed)
	}
	for _, bidder := range []uuid.UUID{bidderA, bidderB} {
		if kinds := rec.kindsFor(bidder); len(kinds) != 1 || kinds[0] != domain.NotifyAuctionResumed {
			t.Errorf("bidder %s kinds = %v, want [%s]", bidder, kinds, domain.NotifyAuctionResumed)
		}
	}
	if len(rec.calls) != 3 {
		t.Errorf("total notifications = %d, want 3", len(rec.calls))
	}
}
