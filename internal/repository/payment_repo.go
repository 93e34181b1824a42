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

// PaymentRepository handles payment rows created at settlement time.
type PaymentRepository struct {
	db *sqlx.DB
}

// NewPaymentRepository creates a new PaymentRepository.
func NewPaymentRepository(db *sqlx.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

// Create inserts a payment inside an existing transaction. Settlement creates
// the payment in the same transaction that marks the listing sold so the two
// never diverge.
func (r *PaymentRepository) Create(ctx context.Context, tx *sqlx.Tx, p *domain.Payment) error {
	query := `
		INSERT INTO payments
			(id, listing_id, buyer_id, seller_id, amount, status, upi_transaction_id, completed_at, created_at, updated_at)
		VALUES
			(:id, :listing_id, :buyer_id, :seller_id, :amount, :status, :upi_transaction_id, :completed_at, :created_at, :updated_at)`
	if _, err := tx.NamedExecContext(ctx, query, p); err != nil {
		return fmt.Errorf("payment_repo.Create: %w", err)
	}
	return nil
}

// GetByID fetches a payment by primary key.
func (r *PaymentRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Payment, error) {
	var p domain.Payment
	err := r.db.GetContext(ctx, &p, `SELECT * FROM payments WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrPaymentNotFound
		}
		return nil, fmt.Errorf("payment_repo.GetByID: %w", err)
	}
	return &p, nil
}

// GetByListing fetches the payment created for a listing's sale.
func (r *PaymentRepository) GetByListing(ctx context.Context, listingID uuid.UUID) (*domain.Payment, error) {
	var p domain.Payment
	err := r.db.GetContext(ctx, &p, `SELECT * FROM payments WHERE listing_id = $1`, listingID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrPaymentNotFound
		}
		return nil, fmt.Errorf("payment_repo.GetByListing: %w", err)
	}
	return &p, nil
}

// ListByUser returns payments where the user is buyer or seller, newest first.
func (r *PaymentRepository) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*domain.Payment, error) {
	var out []*domain.Payment
	err := r.db.SelectContext(ctx, &out, `
		SELECT * FROM payments
		WHERE buyer_id = $1 OR seller_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`,
		userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("payment_repo.ListByUser: %w", err)
	}
	return out, nil
}

// Confirm marks a pending payment completed with the buyer's UPI transaction
// reference. The WHERE clause guards against double confirmation.
func (r *PaymentRepository) Confirm(ctx context.Context, paymentID uuid.UUID, upiTxnID string, now time.Time) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE payments
		SET status = $1, upi_transaction_id = $2, completed_at = $3, updated_at = $3
		WHERE id = $4 AND status = $5`,
		domain.PaymentCompleted, upiTxnID, now, paymentID, domain.PaymentPending)
	if err != nil {
		return fmt.Errorf("payment_repo.Confirm: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrPaymentNotPending
	}
	return nil
}

// MarkFailed flags a pending payment as failed (moderator action). Runs in
// the caller's transaction so the listing resume commits atomically with it.
func (r *PaymentRepository) MarkFailed(ctx context.Context, tx *sqlx.Tx, paymentID uuid.UUID, now time.Time) error {
	res, err := tx.ExecContext(ctx, `
		UPDATE payments
		SET status = $1, updated_at = $2
		WHERE id = $3 AND status = $4`,
		domain.PaymentFailed, now, paymentID, domain.PaymentPending)
	if err != nil {
		return fmt.Errorf("payment_repo.MarkFailed: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrPaymentNotPending
	}
	return nil
}
