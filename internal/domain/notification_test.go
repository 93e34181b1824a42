package domain_test

import (
	"testing"

	"github.com/campusmess/mealmarket/internal/domain"
	"github.com/google/uuid"
)

func TestDefaultSettings_Toggles(t *testing.T) {
	s := domain.DefaultSettings(uuid.New(), t0)

	// Losing-bidder chatter is opt-in; everything else starts on.
	if s.NotifyAuctionLost {
		t.Error("auction_lost should default to off")
	}
	for kind, want := range map[domain.NotificationKind]bool{
		domain.NotifyListingSold:    true,
		domain.NotifyListingResumed: true,
		domain.NotifyAuctionWon:     true,
		domain.NotifyAuctionLost:    false,
		domain.NotifyAuctionResumed: true,
		domain.NotifyPriceReduced:   true,
	} {
		if got := s.Allows(kind); got != want {
			t.Errorf("Allows(%s) = %v, want %v", kind, got, want)
		}
	}
}

func TestSettings_LostAuctionResumeToggle(t *testing.T) {
	s := domain.DefaultSettings(uuid.New(), t0)

	if !s.Allows(domain.NotifyAuctionResumed) {
		t.Fatal("resumed-listing pings should be on by default")
	}
	s.NotifyLostAuctionResume = false
	if s.Allows(domain.NotifyAuctionResumed) {
		t.Error("Allows(lost_auction_resume) = true after opting out")
	}
}

func TestSettings_KindsWithoutToggleAlwaysDeliver(t *testing.T) {
	s := domain.DefaultSettings(uuid.New(), t0)
	s.NotifyListingSold = false
	s.NotifyAuctionWon = false

	for _, kind := range []domain.NotificationKind{
		domain.NotifyBidPlaced,
		domain.NotifyBidWithdrawn,
		domain.NotifyPaymentDone,
		domain.NotifyReportUpdate,
		domain.NotifyAuctionExpired,
	} {
		if !s.Allows(kind) {
			t.Errorf("Allows(%s) = false, want true (no opt-out)", kind)
		}
	}
}
