package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/campusmess/mealmarket/internal/domain"
	"github.com/campusmess/mealmarket/internal/repository"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

// BidService accepts and withdraws bids. Every mutation holds the per-listing
// guard and a row lock on the listing so it can never interleave with
// settlement of the same listing.
type BidService struct {
	db          *sqlx.DB
	listingRepo *repository.ListingRepository
	bidRepo     *repository.BidRepository
	guard       *ListingGuard
	notifier    Notifier
	publisher   EventPublisher
	logger      *slog.Logger
}

// NewBidService creates a BidService.
func NewBidService(
	db *sqlx.DB,
	listingRepo *repository.ListingRepository,
	bidRepo *repository.BidRepository,
	guard *ListingGuard,
	notifier Notifier,
	logger *slog.Logger,
) *BidService {
	return &BidService{
		db:          db,
		listingRepo: listingRepo,
		bidRepo:     bidRepo,
		guard:       guard,
		notifier:    notifier,
		logger:      logger,
	}
}

// SetPublisher wires the realtime publisher after construction.
func (s *BidService) SetPublisher(p EventPublisher) { s.publisher = p }

// PlaceBid validates and records a bid against an active listing.
//
// A bid at or above the current price does NOT settle the listing here; the
// sale happens on the listing's next due evaluation. Bids are accepted right
// up until settlement takes the lock.
func (s *BidService) PlaceBid(ctx context.Context, listingID, bidderID uuid.UUID, amount decimal.Decimal) (*domain.Bid, error) {
	release := s.guard.Lock(listingID)
	defer release()

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("bid_service.PlaceBid: begin tx: %w", err)
	}
	var txErr error
	defer func() {
		if txErr != nil {
			_ = tx.Rollback()
		}
	}()

	l, txErr := s.listingRepo.GetByIDForUpdate(ctx, tx, listingID)
	if txErr != nil {
		return nil, txErr
	}
	if txErr = l.CheckBid(bidderID, amount); txErr != nil {
		return nil, txErr
	}

	bid := &domain.Bid{
		ID:        uuid.New(),
		ListingID: listingID,
		BidderID:  bidderID,
		Amount:    amount,
		PlacedAt:  time.Now().UTC(),
	}
	if txErr = s.bidRepo.Create(ctx, tx, bid); txErr != nil {
		return nil, txErr
	}
	if txErr = tx.Commit(); txErr != nil {
		return nil, fmt.Errorf("bid_service.PlaceBid: commit: %w", txErr)
	}

	s.logger.Info("bid placed",
		"listing_id", listingID, "bidder_id", bidderID, "amount", amount)

	go s.afterBid(l, bid)

	return bid, nil
}

// afterBid handles the post-commit fan-out for a new bid.
func (s *BidService) afterBid(l *domain.Listing, bid *domain.Bid) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	s.notifier.Notify(ctx, l.SellerID, domain.NotifyBidPlaced,
		"New bid on your listing",
		fmt.Sprintf("A bid of ₹%s was placed on your %s %s listing at %s.",
			bid.Amount.StringFixed(2), l.Date, l.MealTime, l.Mess))

	if s.publisher != nil {
		bids, err := s.bidRepo.GetByListing(ctx, l.ID)
		if err != nil {
			s.logger.Error("bid broadcast: reload bids failed", "listing_id", l.ID, "error", err)
			return
		}
		l.Bids = bids
		s.publisher.PublishListingUpdate(l.ToSummary(time.Now()))
	}
}

// WithdrawBids removes all of a bidder's bids on a listing. Idempotent: a
// withdrawal with nothing to remove succeeds and returns 0.
func (s *BidService) WithdrawBids(ctx context.Context, listingID, bidderID uuid.UUID) (int, error) {
	release := s.guard.Lock(listingID)
	defer release()

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("bid_service.WithdrawBids: begin tx: %w", err)
	}
	var txErr error
	defer func() {
		if txErr != nil {
			_ = tx.Rollback()
		}
	}()

	l, txErr := s.listingRepo.GetByIDForUpdate(ctx, tx, listingID)
	if txErr != nil {
		return 0, txErr
	}
	if !l.IsActive() {
		txErr = domain.ErrListingNotActive
		return 0, txErr
	}

	removed, txErr := s.bidRepo.DeleteByBidder(ctx, tx, listingID, bidderID)
	if txErr != nil {
		return 0, txErr
	}
	if txErr = tx.Commit(); txErr != nil {
		return 0, fmt.Errorf("bid_service.WithdrawBids: commit: %w", txErr)
	}

	if removed > 0 {
		s.logger.Info("bids withdrawn",
			"listing_id", listingID, "bidder_id", bidderID, "removed", removed)
		go s.afterWithdraw(l, removed)
	}
	return removed, nil
}

// afterWithdraw tells the seller their listing lost a bidder and rebroadcasts
// the updated summary.
func (s *BidService) afterWithdraw(l *domain.Listing, removed int) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	word := "bid"
	if removed > 1 {
		word = "bids"
	}
	s.notifier.Notify(ctx, l.SellerID, domain.NotifyBidWithdrawn,
		"Bid withdrawn",
		fmt.Sprintf("A bidder withdrew %d %s from your %s %s listing at %s.",
			removed, word, l.Date, l.MealTime, l.Mess))

	if s.publisher == nil {
		return
	}
	bids, err := s.bidRepo.GetByListing(ctx, l.ID)
	if err != nil {
		s.logger.Error("withdraw broadcast: reload bids failed", "listing_id", l.ID, "error", err)
		return
	}
	l.Bids = bids
	s.publisher.PublishListingUpdate(l.ToSummary(time.Now()))
}

// BidsForListing returns a listing's bids in placement order.
func (s *BidService) BidsForListing(ctx context.Context, listingID uuid.UUID) ([]*domain.Bid, error) {
	if _, err := s.listingRepo.GetByID(ctx, listingID); err != nil {
		return nil, err
	}
	return s.bidRepo.GetByListing(ctx, listingID)
}
