package domain_test

import (
	"errors"
	"testing"
	"time"

	"github.com/campusmess/mealmarket/internal/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func TestNewListing_Validation(t *testing.T) {
	valid := domain.CreateListingParams{
		SellerID:        uuid.New(),
		Mess:            "North Mess",
		MealTime:        "lunch",
		Date:            "2025-03-11",
		Mode:            domain.ModeFixedDecay,
		TargetPrice:     decimal.NewFromInt(100),
		PriceDropAmount: decimal.NewFromInt(10),
		DropInterval:    600,
	}

	cases := []struct {
		name   string
		mutate func(*domain.CreateListingParams)
	}{
		{"missing seller", func(p *domain.CreateListingParams) { p.SellerID = uuid.Nil }},
		{"missing mess", func(p *domain.CreateListingParams) { p.Mess = "" }},
		{"missing meal time", func(p *domain.CreateListingParams) { p.MealTime = "" }},
		{"missing date", func(p *domain.CreateListingParams) { p.Date = "" }},
		{"unknown mode", func(p *domain.CreateListingParams) { p.Mode = "raffle" }},
		{"zero target price", func(p *domain.CreateListingParams) { p.TargetPrice = decimal.Zero }},
		{"zero drop amount", func(p *domain.CreateListingParams) { p.PriceDropAmount = decimal.Zero }},
		{"drop >= target", func(p *domain.CreateListingParams) { p.PriceDropAmount = decimal.NewFromInt(100) }},
		{"zero drop interval", func(p *domain.CreateListingParams) { p.DropInterval = 0 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := valid
			tc.mutate(&p)
			if _, err := domain.NewListing(p, t0); !errors.Is(err, domain.ErrInvalidListingParams) {
				t.Errorf("err = %v, want ErrInvalidListingParams", err)
			}
		})
	}

	t.Run("auction needs a duration", func(t *testing.T) {
		p := valid
		p.Mode = domain.ModeAuction
		p.AuctionDuration = 0
		if _, err := domain.NewListing(p, t0); !errors.Is(err, domain.ErrInvalidListingParams) {
			t.Errorf("err = %v, want ErrInvalidListingParams", err)
		}
	})
}

func TestNewListing_FixedDecayInitialState(t *testing.T) {
	l := newFixedDecayListing(t, 100, 10, 600)

	if l.Status != domain.StatusActive {
		t.Errorf("status = %s, want %s", l.Status, domain.StatusActive)
	}
	if !l.CurrentPrice.Equal(l.TargetPrice) {
		t.Errorf("current price = %s, want %s", l.CurrentPrice, l.TargetPrice)
	}
	if l.DropCount != 0 {
		t.Errorf("drop count = %d, want 0", l.DropCount)
	}
	wantEnd := t0.Add(600 * time.Second)
	if !l.EndTime.Equal(wantEnd) {
		t.Errorf("end time = %s, want %s", l.EndTime, wantEnd)
	}
}

func TestListing_DueAndTimeLeft(t *testing.T) {
	l := newFixedDecayListing(t, 100, 10, 600)

	if l.Due(t0) {
		t.Error("freshly created listing should not be due")
	}
	if l.TimeLeft(t0) != 600*time.Second {
		t.Errorf("TimeLeft = %s, want 600s", l.TimeLeft(t0))
	}
	if !l.Due(l.EndTime) {
		t.Error("listing should be due at its end time")
	}
	if l.TimeLeft(l.EndTime.Add(time.Minute)) != 0 {
		t.Errorf("TimeLeft past end = %s, want 0", l.TimeLeft(l.EndTime.Add(time.Minute)))
	}

	l.Status = domain.StatusSold
	if l.Due(l.EndTime.Add(time.Hour)) {
		t.Error("terminal listing must never be due")
	}
}

func TestListing_CheckBid(t *testing.T) {
	l := newAuctionListing(t, 50, 3600)
	bidder := uuid.New()

	if err := l.CheckBid(bidder, decimal.NewFromInt(55)); err != nil {
		t.Errorf("valid auction bid rejected: %v", err)
	}
	if err := l.CheckBid(bidder, decimal.NewFromInt(45)); !errors.Is(err, domain.ErrBidTooLow) {
		t.Errorf("below-floor bid: err = %v, want ErrBidTooLow", err)
	}
	if err := l.CheckBid(l.SellerID, decimal.NewFromInt(55)); !errors.Is(err, domain.ErrOwnListingBid) {
		t.Errorf("own-listing bid: err = %v, want ErrOwnListingBid", err)
	}
	if err := l.CheckBid(bidder, decimal.Zero); !errors.Is(err, domain.ErrInvalidBidAmount) {
		t.Errorf("zero bid: err = %v, want ErrInvalidBidAmount", err)
	}

	// Fixed-decay accepts bids below the current price.
	fd := newFixedDecayListing(t, 100, 10, 600)
	if err := fd.CheckBid(bidder, decimal.NewFromInt(40)); err != nil {
		t.Errorf("below-price fixed-decay bid rejected: %v", err)
	}

	l.Status = domain.StatusExpired
	if err := l.CheckBid(bidder, decimal.NewFromInt(55)); !errors.Is(err, domain.ErrListingNotActive) {
		t.Errorf("terminal listing bid: err = %v, want ErrListingNotActive", err)
	}
}

func TestListing_ToSummary(t *testing.T) {
	l := newFixedDecayListing(t, 100, 10, 600)
	l.Bids = []*domain.Bid{
		bid(l.ID, 60, t0),
		bid(l.ID, 75, t0.Add(time.Minute)),
	}

	s := l.ToSummary(t0)
	if s.BidCount != 2 {
		t.Errorf("BidCount = %d, want 2", s.BidCount)
	}
	if !s.HighestBid.Equal(decimal.NewFromInt(75)) {
		t.Errorf("HighestBid = %s, want 75", s.HighestBid)
	}
	if s.TimeLeftSec != 600 {
		t.Errorf("TimeLeftSec = %d, want 600", s.TimeLeftSec)
	}
}

func soldFixedDecayListing(t *testing.T) *domain.Listing {
	t.Helper()
	l := newFixedDecayListing(t, 100, 10, 600)
	l.CurrentPrice = decimal.NewFromInt(80)
	l.DropCount = 2

	buyer := uuid.New()
	price := decimal.NewFromInt(80)
	soldAt := t0.Add(time.Hour)
	qr := "https://cdn.example/qr.png"
	l.Status = domain.StatusSold
	l.BuyerID = &buyer
	l.SalePrice = &price
	l.SoldAt = &soldAt
	l.QRCodeURL = &qr
	return l
}

func TestListing_Resume(t *testing.T) {
	l := soldFixedDecayListing(t)
	now := t0.Add(2 * time.Hour)

	if err := l.Resume(now); err != nil {
		t.Fatalf("Resume: %v", err)
	}
	if l.Status != domain.StatusActive {
		t.Errorf("status = %s, want %s", l.Status, domain.StatusActive)
	}
	if l.BuyerID != nil || l.SalePrice != nil || l.SoldAt != nil || l.QRCodeURL != nil {
		t.Error("sale fields must be cleared on resume")
	}
	if want := now.Add(600 * time.Second); !l.EndTime.Equal(want) {
		t.Errorf("EndTime = %v, want %v", l.EndTime, want)
	}
	// The price walk continues where it stopped.
	if !l.CurrentPrice.Equal(decimal.NewFromInt(80)) {
		t.Errorf("CurrentPrice = %s, want 80", l.CurrentPrice)
	}
	if l.DropCount != 2 {
		t.Errorf("DropCount = %d, want 2", l.DropCount)
	}
}

func TestListing_Resume_AuctionWindow(t *testing.T) {
	l := newAuctionListing(t, 50, 3600)
	buyer := uuid.New()
	price := decimal.NewFromInt(55)
	soldAt := t0
	l.Status = domain.StatusSold
	l.BuyerID = &buyer
	l.SalePrice = &price
	l.SoldAt = &soldAt

	now := t0.Add(30 * time.Minute)
	if err := l.Resume(now); err != nil {
		t.Fatalf("Resume: %v", err)
	}
	if want := now.Add(3600 * time.Second); !l.EndTime.Equal(want) {
		t.Errorf("EndTime = %v, want a full auction window from now (%v)", l.EndTime, want)
	}
}

func TestListing_Resume_NotSold(t *testing.T) {
	l := newFixedDecayListing(t, 100, 10, 600)
	if err := l.Resume(t0); !errors.Is(err, domain.ErrListingNotSold) {
		t.Errorf("active listing: err = %v, want ErrListingNotSold", err)
	}

	l.Status = domain.StatusSold // corrupt: sold without a buyer
	if err := l.Resume(t0); !errors.Is(err, domain.ErrListingNotSold) {
		t.Errorf("sold without buyer: err = %v, want ErrListingNotSold", err)
	}
}
