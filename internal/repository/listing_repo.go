package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/campusmess/mealmarket/internal/domain"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// ListingRepository handles all database operations for Listings.
type ListingRepository struct {
	db *sqlx.DB
}

// NewListingRepository creates a new ListingRepository.
func NewListingRepository(db *sqlx.DB) *ListingRepository {
	return &ListingRepository{db: db}
}

// Create inserts a new listing row.
func (r *ListingRepository) Create(ctx context.Context, l *domain.Listing) error {
	query := `
		INSERT INTO listings
			(id, seller_id, mess, meal_time, date, pricing_mode, target_price,
			 current_price, price_drop_amount, drop_interval_sec, auction_duration_sec,
			 drop_count, end_time, status, created_at, updated_at)
		VALUES
			(:id, :seller_id, :mess, :meal_time, :date, :pricing_mode, :target_price,
			 :current_price, :price_drop_amount, :drop_interval_sec, :auction_duration_sec,
			 :drop_count, :end_time, :status, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, l); err != nil {
		return fmt.Errorf("listing_repo.Create: %w", err)
	}
	return nil
}

// GetByID fetches a listing by its primary key.
func (r *ListingRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Listing, error) {
	var l domain.Listing
	err := r.db.GetContext(ctx, &l, `SELECT * FROM listings WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrListingNotFound
		}
		return nil, fmt.Errorf("listing_repo.GetByID: %w", err)
	}
	return &l, nil
}

// GetByIDForUpdate locks the listing row inside an existing transaction and
// returns it. This is the per-listing mutual-exclusion boundary at the
// storage layer: bid acceptance and settlement both go through it, so the two
// can never interleave for the same listing.
func (r *ListingRepository) GetByIDForUpdate(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) (*domain.Listing, error) {
	var l domain.Listing
	err := tx.GetContext(ctx, &l, `SELECT * FROM listings WHERE id = $1 FOR UPDATE`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrListingNotFound
		}
		return nil, fmt.Errorf("listing_repo.GetByIDForUpdate: %w", err)
	}
	return &l, nil
}

// GetDue returns all listings that are still active but whose end time has
// passed, oldest first. The settlement loop scans this each tick.
func (r *ListingRepository) GetDue(ctx context.Context, now time.Time) ([]*domain.Listing, error) {
	var listings []*domain.Listing
	err := r.db.SelectContext(ctx, &listings,
		`SELECT * FROM listings WHERE status = 'active' AND end_time <= $1 ORDER BY end_time ASC`,
		now.UTC())
	if err != nil {
		return nil, fmt.Errorf("listing_repo.GetDue: %w", err)
	}
	return listings, nil
}

// ListActive returns active listings with optional mess and date-range
// filters, newest first.
func (r *ListingRepository) ListActive(ctx context.Context, mess, dateFrom, dateTo string, limit, offset int) ([]*domain.Listing, error) {
	query := `SELECT * FROM listings WHERE status = 'active'`
	args := []interface{}{}
	n := 0

	appendArg := func(clause string, val interface{}) {
		n++
		query += fmt.Sprintf(" AND %s $%d", clause, n)
		args = append(args, val)
	}
	if mess != "" {
		appendArg("mess =", mess)
	}
	if dateFrom != "" {
		appendArg("date >=", dateFrom)
	}
	if dateTo != "" {
		appendArg("date <=", dateTo)
	}
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", n+1, n+2)
	args = append(args, limit, offset)

	var listings []*domain.Listing
	if err := r.db.SelectContext(ctx, &listings, query, args...); err != nil {
		return nil, fmt.Errorf("listing_repo.ListActive: %w", err)
	}
	return listings, nil
}

// ListBySeller returns a seller's listings, newest first.
func (r *ListingRepository) ListBySeller(ctx context.Context, sellerID uuid.UUID, limit, offset int) ([]*domain.Listing, error) {
	var listings []*domain.Listing
	err := r.db.SelectContext(ctx, &listings,
		`SELECT * FROM listings WHERE seller_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		sellerID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("listing_repo.ListBySeller: %w", err)
	}
	return listings, nil
}

// ListByBuyer returns listings a user has won, most recent sale first.
func (r *ListingRepository) ListByBuyer(ctx context.Context, buyerID uuid.UUID, limit, offset int) ([]*domain.Listing, error) {
	var listings []*domain.Listing
	err := r.db.SelectContext(ctx, &listings,
		`SELECT * FROM listings WHERE buyer_id = $1 AND status = 'sold'
		 ORDER BY sold_at DESC LIMIT $2 OFFSET $3`,
		buyerID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("listing_repo.ListByBuyer: %w", err)
	}
	return listings, nil
}

// List returns a paginated slice of listings filtered by optional status.
// status="" returns all statuses. Returns (listings, totalCount, error).
func (r *ListingRepository) List(ctx context.Context, limit, offset int, status string) ([]*domain.Listing, int, error) {
	var listings []*domain.Listing
	var total int

	if status != "" {
		if err := r.db.GetContext(ctx, &total,
			`SELECT COUNT(*) FROM listings WHERE status = $1`, status); err != nil {
			return nil, 0, fmt.Errorf("listing_repo.List count: %w", err)
		}
		if err := r.db.SelectContext(ctx, &listings,
			`SELECT * FROM listings WHERE status = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
			status, limit, offset); err != nil {
			return nil, 0, fmt.Errorf("listing_repo.List select: %w", err)
		}
	} else {
		if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM listings`); err != nil {
			return nil, 0, fmt.Errorf("listing_repo.List count: %w", err)
		}
		if err := r.db.SelectContext(ctx, &listings,
			`SELECT * FROM listings ORDER BY created_at DESC LIMIT $1 OFFSET $2`,
			limit, offset); err != nil {
			return nil, 0, fmt.Errorf("listing_repo.List select: %w", err)
		}
	}
	return listings, total, nil
}

// Save persists the mutable settlement fields of a listing inside an existing
// transaction. The row must already be locked via GetByIDForUpdate.
func (r *ListingRepository) Save(ctx context.Context, tx *sqlx.Tx, l *domain.Listing) error {
	query := `
		UPDATE listings
		SET current_price = :current_price,
		    drop_count    = :drop_count,
		    end_time      = :end_time,
		    status        = :status,
		    buyer_id      = :buyer_id,
		    sale_price    = :sale_price,
		    sold_at       = :sold_at,
		    qr_code_url   = :qr_code_url,
		    updated_at    = :updated_at
		WHERE id = :id`
	if _, err := tx.NamedExecContext(ctx, query, l); err != nil {
		return fmt.Errorf("listing_repo.Save: %w", err)
	}
	return nil
}

// Unlist flips an active listing to unlisted. The WHERE status='active' guard
// makes the transition race-safe against a concurrent settlement: zero rows
// affected means the listing already left StatusActive.
func (r *ListingRepository) Unlist(ctx context.Context, listingID uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE listings
		SET status = 'unlisted', updated_at = now()
		WHERE id = $1 AND status = 'active'`,
		listingID)
	if err != nil {
		return fmt.Errorf("listing_repo.Unlist: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrListingNotActive
	}
	return nil
}

// AttachQRCode stores the proof-of-purchase QR URL on a sold listing.
func (r *ListingRepository) AttachQRCode(ctx context.Context, listingID uuid.UUID, url string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE listings
		SET qr_code_url = $1, updated_at = now()
		WHERE id = $2 AND status = 'sold'`,
		url, listingID)
	if err != nil {
		return fmt.Errorf("listing_repo.AttachQRCode: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrListingNotFound
	}
	return nil
}

// CountByStatus returns listing counts grouped by status, for the dashboard.
func (r *ListingRepository) CountByStatus(ctx context.Context) (map[domain.ListingStatus]int, error) {
	type row struct {
		Status domain.ListingStatus `db:"status"`
		Count  int                  `db:"count"`
	}
	var rows []row
	err := r.db.SelectContext(ctx, &rows,
		`SELECT status, COUNT(*) AS count FROM listings GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("listing_repo.CountByStatus: %w", err)
	}
	out := make(map[domain.ListingStatus]int, len(rows))
	for _, rw := range rows {
		out[rw.Status] = rw.Count
	}
	return out, nil
}
