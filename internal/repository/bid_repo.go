package repository

import (
	"context"
	"fmt"

	"github.com/campusmess/mealmarket/internal/domain"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// BidRepository handles all database operations for Bids.
type BidRepository struct {
	db *sqlx.DB
}

// NewBidRepository creates a new BidRepository.
func NewBidRepository(db *sqlx.DB) *BidRepository {
	return &BidRepository{db: db}
}

// Create inserts a new bid inside an existing transaction (the listing row is
// already locked by the caller).
func (r *BidRepository) Create(ctx context.Context, tx *sqlx.Tx, b *domain.Bid) error {
	query := `
		INSERT INTO bids (id, listing_id, bidder_id, amount, placed_at)
		VALUES (:id, :listing_id, :bidder_id, :amount, :placed_at)`
	if _, err := tx.NamedExecContext(ctx, query, b); err != nil {
		return fmt.Errorf("bid_repo.Create: %w", err)
	}
	return nil
}

// GetByListing returns every bid for a listing in placement order. Stable
// ordering by (placed_at, id) keeps ledger tie-breaks deterministic.
func (r *BidRepository) GetByListing(ctx context.Context, listingID uuid.UUID) ([]*domain.Bid, error) {
	var bids []*domain.Bid
	err := r.db.SelectContext(ctx, &bids,
		`SELECT * FROM bids WHERE listing_id = $1 ORDER BY placed_at ASC, id ASC`,
		listingID)
	if err != nil {
		return nil, fmt.Errorf("bid_repo.GetByListing: %w", err)
	}
	return bids, nil
}

// GetByListingTx is GetByListing inside a transaction, used by settlement so
// the ledger read shares the listing's lock boundary.
func (r *BidRepository) GetByListingTx(ctx context.Context, tx *sqlx.Tx, listingID uuid.UUID) ([]*domain.Bid, error) {
	var bids []*domain.Bid
	err := tx.SelectContext(ctx, &bids,
		`SELECT * FROM bids WHERE listing_id = $1 ORDER BY placed_at ASC, id ASC`,
		listingID)
	if err != nil {
		return nil, fmt.Errorf("bid_repo.GetByListingTx: %w", err)
	}
	return bids, nil
}

// DeleteByBidder removes all of one bidder's bids on a listing inside an
// existing transaction and returns how many were removed. Idempotent.
func (r *BidRepository) DeleteByBidder(ctx context.Context, tx *sqlx.Tx, listingID, bidderID uuid.UUID) (int, error) {
	res, err := tx.ExecContext(ctx,
		`DELETE FROM bids WHERE listing_id = $1 AND bidder_id = $2`,
		listingID, bidderID)
	if err != nil {
		return 0, fmt.Errorf("bid_repo.DeleteByBidder: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("bid_repo.DeleteByBidder rows: %w", err)
	}
	return int(n), nil
}

// ListingIDsWithBidsBy returns the active listings a user currently has bids
// on (for the "my active auctions" view).
func (r *BidRepository) ListingIDsWithBidsBy(ctx context.Context, bidderID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.SelectContext(ctx, &ids, `
		SELECT DISTINCT b.listing_id
		FROM bids b
		JOIN listings l ON l.id = b.listing_id
		WHERE b.bidder_id = $1 AND l.status = 'active'`,
		bidderID)
	if err != nil {
		return nil, fmt.Errorf("bid_repo.ListingIDsWithBidsBy: %w", err)
	}
	return ids, nil
}
