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
)

// PaymentService tracks the off-platform UPI hand-off. Payments are created by
// settlement when a listing sells; here the buyer confirms the transfer and
// moderation can mark a payment failed, which puts the listing back on the
// market.
type PaymentService struct {
	db          *sqlx.DB
	paymentRepo *repository.PaymentRepository
	listingRepo *repository.ListingRepository
	bidRepo     *repository.BidRepository
	guard       *ListingGuard
	notifier    Notifier
	publisher   EventPublisher
	logger      *slog.Logger
}

// NewPaymentService creates a PaymentService.
func NewPaymentService(
	db *sqlx.DB,
	paymentRepo *repository.PaymentRepository,
	listingRepo *repository.ListingRepository,
	bidRepo *repository.BidRepository,
	guard *ListingGuard,
	notifier Notifier,
	logger *slog.Logger,
) *PaymentService {
	return &PaymentService{
		db:          db,
		paymentRepo: paymentRepo,
		listingRepo: listingRepo,
		bidRepo:     bidRepo,
		guard:       guard,
		notifier:    notifier,
		logger:      logger,
	}
}

// SetPublisher wires the realtime publisher after construction.
func (s *PaymentService) SetPublisher(p EventPublisher) { s.publisher = p }

// Confirm records the buyer's UPI transaction reference and completes the
// payment. Only the buyer of a pending payment may confirm; a second
// confirmation returns ErrPaymentNotPending.
func (s *PaymentService) Confirm(ctx context.Context, paymentID, buyerID uuid.UUID, upiTxnID string) (*domain.Payment, error) {
	p, err := s.paymentRepo.GetByID(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if p.BuyerID != buyerID {
		return nil, domain.ErrForbidden
	}
	if err := s.paymentRepo.Confirm(ctx, paymentID, upiTxnID, time.Now()); err != nil {
		return nil, err
	}

	s.logger.Info("payment confirmed",
		"payment_id", paymentID, "listing_id", p.ListingID, "buyer_id", buyerID)

	s.notifier.Notify(ctx, p.SellerID, domain.NotifyPaymentDone,
		"Payment received",
		fmt.Sprintf("The buyer confirmed a ₹%s transfer for your sold meal.", p.Amount.StringFixed(2)))

	return s.paymentRepo.GetByID(ctx, paymentID)
}

// GetByListing returns the payment created for a listing's sale, restricted
// to its counterparties.
func (s *PaymentService) GetByListing(ctx context.Context, listingID, userID uuid.UUID) (*domain.Payment, error) {
	p, err := s.paymentRepo.GetByListing(ctx, listingID)
	if err != nil {
		return nil, err
	}
	if p.BuyerID != userID && p.SellerID != userID {
		return nil, domain.ErrForbidden
	}
	return p, nil
}

// ListByUser returns a user's payments on both sides of the table.
func (s *PaymentService) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*domain.Payment, error) {
	return s.paymentRepo.ListByUser(ctx, userID, limit, offset)
}

// MarkFailed flags a pending payment as failed and puts the sold listing back
// on the market. Back-office only.
//
// The defaulting buyer's bids are removed in the same transaction; left in
// place the highest of them would simply win the rerun. Everyone else's bids
// stand, and those bidders are told the meal is open again.
func (s *PaymentService) MarkFailed(ctx context.Context, paymentID uuid.UUID) error {
	p, err := s.paymentRepo.GetByID(ctx, paymentID)
	if err != nil {
		return err
	}

	release := s.guard.Lock(p.ListingID)
	defer release()

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("payment_service.MarkFailed: begin tx: %w", err)
	}
	var txErr error
	defer func() {
		if txErr != nil {
			_ = tx.Rollback()
		}
	}()

	now := time.Now()
	if txErr = s.paymentRepo.MarkFailed(ctx, tx, paymentID, now); txErr != nil {
		return txErr
	}

	l, txErr := s.listingRepo.GetByIDForUpdate(ctx, tx, p.ListingID)
	if txErr != nil {
		return txErr
	}
	if txErr = l.Resume(now); txErr != nil {
		return txErr
	}
	if _, txErr = s.bidRepo.DeleteByBidder(ctx, tx, l.ID, p.BuyerID); txErr != nil {
		return txErr
	}
	if txErr = s.listingRepo.Save(ctx, tx, l); txErr != nil {
		return txErr
	}
	bids, txErr := s.bidRepo.GetByListingTx(ctx, tx, l.ID)
	if txErr != nil {
		return txErr
	}
	if txErr = tx.Commit(); txErr != nil {
		return fmt.Errorf("payment_service.MarkFailed: commit: %w", txErr)
	}

	s.logger.Warn("payment failed, listing resumed",
		"payment_id", paymentID, "listing_id", l.ID, "buyer_id", p.BuyerID)

	l.Bids = bids
	go s.afterResume(l)
	return nil
}

// afterResume fans out the post-commit notifications for a resumed listing
// and rebroadcasts its summary.
func (s *PaymentService) afterResume(l *domain.Listing) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	meal := fmt.Sprintf("%s %s at %s", l.Date, l.MealTime, l.Mess)

	s.notifier.Notify(ctx, l.SellerID, domain.NotifyListingResumed,
		"Listing resumed",
		fmt.Sprintf("The buyer's payment for %s fell through, so it is back on the market.", meal))

	for _, bidderID := range l.Ledger().Bidders() {
		s.notifier.Notify(ctx, bidderID, domain.NotifyAuctionResumed,
			"Back on the market",
			fmt.Sprintf("%s you bid on reopened after a failed payment. Your bid still stands.", meal))
	}

	if s.publisher != nil {
		s.publisher.PublishListingUpdate(l.ToSummary(time.Now()))
	}
}
