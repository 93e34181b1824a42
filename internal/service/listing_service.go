package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/campusmess/mealmarket/internal/domain"
	"github.com/campusmess/mealmarket/internal/repository"
	"github.com/google/uuid"
)

// ListingService owns the listing lifecycle outside of settlement: creation,
// reads, seller-initiated unlisting, and QR attachment after sale.
type ListingService struct {
	listingRepo *repository.ListingRepository
	bidRepo     *repository.BidRepository
	guard       *ListingGuard
	policy      domain.Policy
	publisher   EventPublisher
	logger      *slog.Logger
}

// NewListingService creates a ListingService.
func NewListingService(
	listingRepo *repository.ListingRepository,
	bidRepo *repository.BidRepository,
	guard *ListingGuard,
	policy domain.Policy,
	logger *slog.Logger,
) *ListingService {
	return &ListingService{
		listingRepo: listingRepo,
		bidRepo:     bidRepo,
		guard:       guard,
		policy:      policy,
		logger:      logger,
	}
}

// SetPublisher wires the realtime publisher after construction.
func (s *ListingService) SetPublisher(p EventPublisher) { s.publisher = p }

// Create validates params, persists a new active listing, and announces it.
func (s *ListingService) Create(ctx context.Context, p domain.CreateListingParams) (*domain.Listing, error) {
	l, err := domain.NewListing(p, time.Now())
	if err != nil {
		return nil, err
	}
	if err := s.listingRepo.Create(ctx, l); err != nil {
		return nil, fmt.Errorf("listing_service.Create: %w", err)
	}

	s.logger.Info("listing created",
		"listing_id", l.ID, "seller_id", l.SellerID,
		"mode", l.Mode, "target_price", l.TargetPrice)

	if s.publisher != nil {
		s.publisher.PublishListingUpdate(l.ToSummary(time.Now()))
	}
	return l, nil
}

// GetByID returns a listing with its bid ledger loaded.
func (s *ListingService) GetByID(ctx context.Context, id uuid.UUID) (*domain.Listing, error) {
	l, err := s.listingRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	bids, err := s.bidRepo.GetByListing(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("listing_service.GetByID: %w", err)
	}
	l.Bids = bids
	return l, nil
}

// ListActive returns active listings matching the optional filters, bids
// loaded, as lightweight summaries.
func (s *ListingService) ListActive(ctx context.Context, mess, dateFrom, dateTo string, limit, offset int) ([]domain.ListingSummary, error) {
	listings, err := s.listingRepo.ListActive(ctx, mess, dateFrom, dateTo, limit, offset)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	out := make([]domain.ListingSummary, 0, len(listings))
	for _, l := range listings {
		bids, err := s.bidRepo.GetByListing(ctx, l.ID)
		if err != nil {
			return nil, fmt.Errorf("listing_service.ListActive: %w", err)
		}
		l.Bids = bids
		out = append(out, l.ToSummary(now))
	}
	return out, nil
}

// ListBySeller returns a seller's own listings.
func (s *ListingService) ListBySeller(ctx context.Context, sellerID uuid.UUID, limit, offset int) ([]*domain.Listing, error) {
	return s.listingRepo.ListBySeller(ctx, sellerID, limit, offset)
}

// ListPurchases returns listings the user has won, most recent first.
func (s *ListingService) ListPurchases(ctx context.Context, buyerID uuid.UUID, limit, offset int) ([]*domain.Listing, error) {
	return s.listingRepo.ListByBuyer(ctx, buyerID, limit, offset)
}

// ActiveBidListings returns the active listings the user currently has bids
// on, bids loaded.
func (s *ListingService) ActiveBidListings(ctx context.Context, bidderID uuid.UUID) ([]*domain.Listing, error) {
	ids, err := s.bidRepo.ListingIDsWithBidsBy(ctx, bidderID)
	if err != nil {
		return nil, err
	}
	out := make([]*domain.Listing, 0, len(ids))
	for _, id := range ids {
		l, err := s.GetByID(ctx, id)
		if err != nil {
			if domain.IsNotFound(err) {
				continue
			}
			return nil, err
		}
		out = append(out, l)
	}
	return out, nil
}

// Unlist withdraws an active listing on the seller's behalf. With the stock
// policy a listing that has collected bids cannot be unlisted.
func (s *ListingService) Unlist(ctx context.Context, listingID, sellerID uuid.UUID) error {
	release := s.guard.Lock(listingID)
	defer release()

	l, err := s.listingRepo.GetByID(ctx, listingID)
	if err != nil {
		return err
	}
	if l.SellerID != sellerID {
		return domain.ErrNotOwner
	}
	if !l.IsActive() {
		return domain.ErrListingNotActive
	}
	if !s.policy.AllowUnlistWithBids {
		bids, err := s.bidRepo.GetByListing(ctx, listingID)
		if err != nil {
			return fmt.Errorf("listing_service.Unlist: %w", err)
		}
		if len(bids) > 0 {
			return domain.ErrListingHasBids
		}
	}
	if err := s.listingRepo.Unlist(ctx, listingID); err != nil {
		return err
	}

	s.logger.Info("listing unlisted", "listing_id", listingID, "seller_id", sellerID)

	if s.publisher != nil {
		l.Status = domain.StatusUnlisted
		s.publisher.PublishListingUpdate(l.ToSummary(time.Now()))
	}
	return nil
}

// AttachQRCode stores the proof-of-purchase QR on a sold listing. Seller only.
func (s *ListingService) AttachQRCode(ctx context.Context, listingID, sellerID uuid.UUID, url string) error {
	l, err := s.listingRepo.GetByID(ctx, listingID)
	if err != nil {
		return err
	}
	if l.SellerID != sellerID {
		return domain.ErrNotOwner
	}
	return s.listingRepo.AttachQRCode(ctx, listingID, url)
}
