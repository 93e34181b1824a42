package domain_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/campusmess/mealmarket/internal/domain"
	"github.com/google/uuid"
)

func soldListing(t *testing.T) (*domain.Listing, uuid.UUID) {
	t.Helper()
	l := newFixedDecayListing(t, 100, 10, 600)
	buyer := uuid.New()
	l.Status = domain.StatusSold
	l.BuyerID = &buyer
	return l, buyer
}

func TestNewRating_StarsBounds(t *testing.T) {
	for _, stars := range []int{0, -1, 6} {
		if _, err := domain.NewRating(uuid.New(), uuid.New(), uuid.New(), stars, "", t0); !errors.Is(err, domain.ErrInvalidRating) {
			t.Errorf("stars=%d: err = %v, want ErrInvalidRating", stars, err)
		}
	}
	for stars := domain.MinStars; stars <= domain.MaxStars; stars++ {
		r, err := domain.NewRating(uuid.New(), uuid.New(), uuid.New(), stars, "great trade", t0)
		if err != nil {
			t.Errorf("stars=%d: unexpected err %v", stars, err)
			continue
		}
		if r.Stars != stars {
			t.Errorf("stars = %d, want %d", r.Stars, stars)
		}
	}
}

func TestListing_CanRate(t *testing.T) {
	l, buyer := soldListing(t)
	stranger := uuid.New()

	if !l.CanRate(l.SellerID, buyer) {
		t.Error("seller should be able to rate the buyer")
	}
	if !l.CanRate(buyer, l.SellerID) {
		t.Error("buyer should be able to rate the seller")
	}
	if l.CanRate(stranger, l.SellerID) {
		t.Error("a stranger must not rate either party")
	}
	if l.CanRate(l.SellerID, stranger) {
		t.Error("the seller must not rate a non-counterparty")
	}
	if l.CanRate(l.SellerID, l.SellerID) {
		t.Error("self-rating must be rejected")
	}

	// Unsold listings have no counterparties yet.
	active := newFixedDecayListing(t, 100, 10, 600)
	if active.CanRate(active.SellerID, buyer) {
		t.Error("rating an active listing must be rejected")
	}
}

func TestNewReport_Validation(t *testing.T) {
	reporter, reported := uuid.New(), uuid.New()
	limits := domain.DefaultReportLimits()
	longEnough := strings.Repeat("x", limits.MinDescription)

	if _, err := domain.NewReport(reporter, reported, nil, "Grudge", longEnough, nil, limits, t0); !errors.Is(err, domain.ErrInvalidReportReason) {
		t.Errorf("unknown reason: err = %v, want ErrInvalidReportReason", err)
	}

	short := strings.Repeat("x", limits.MinDescription-1)
	if _, err := domain.NewReport(reporter, reported, nil, "No Show", short, nil, limits, t0); !errors.Is(err, domain.ErrDescriptionTooShort) {
		t.Errorf("short description: err = %v, want ErrDescriptionTooShort", err)
	}

	urls := make([]string, limits.MaxEvidenceURLs+1)
	for i := range urls {
		urls[i] = "https://img.example/a.png"
	}
	if _, err := domain.NewReport(reporter, reported, nil, "No Show", longEnough, urls, limits, t0); !errors.Is(err, domain.ErrTooManyEvidenceItems) {
		t.Errorf("too many urls: err = %v, want ErrTooManyEvidenceItems", err)
	}

	listingID := uuid.New()
	rep, err := domain.NewReport(reporter, reported, &listingID, "Scam/Fraud", longEnough, urls[:limits.MaxEvidenceURLs], limits, t0)
	if err != nil {
		t.Fatalf("valid report rejected: %v", err)
	}
	if rep.Status != domain.ReportPending {
		t.Errorf("status = %s, want %s", rep.Status, domain.ReportPending)
	}
	if rep.ListingID == nil || *rep.ListingID != listingID {
		t.Errorf("listing id not carried through")
	}
}

func TestNewReport_ConfiguredLimits(t *testing.T) {
	reporter, reported := uuid.New(), uuid.New()
	limits := domain.ReportLimits{MinDescription: 10, MaxEvidenceURLs: 2}

	// 12 chars clears a 10-char minimum that the default would reject.
	if _, err := domain.NewReport(reporter, reported, nil, "No Show", "he vanished.", nil, limits, t0); err != nil {
		t.Errorf("description above configured minimum rejected: %v", err)
	}

	urls := []string{"https://a.example/1", "https://a.example/2", "https://a.example/3"}
	if _, err := domain.NewReport(reporter, reported, nil, "No Show", "he vanished.", urls, limits, t0); !errors.Is(err, domain.ErrTooManyEvidenceItems) {
		t.Errorf("three urls against a limit of two: err = %v, want ErrTooManyEvidenceItems", err)
	}

	if domain.DefaultReportLimits().MinDescription != domain.MinReportDescription {
		t.Error("default limits drifted from the package constants")
	}
}
