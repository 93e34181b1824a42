package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentStatus tracks the off-platform UPI hand-off for a sold listing.
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"   // created at settlement
	PaymentCompleted PaymentStatus = "completed" // buyer confirmed the transfer
	PaymentFailed    PaymentStatus = "failed"    // marked by moderation
)

// Payment records the money hand-off for one sold listing. The platform never
// moves money itself; the buyer pays the seller's mess QR directly and
// confirms here with the UPI transaction id.
type Payment struct {
	ID        uuid.UUID       `json:"id"         db:"id"`
	ListingID uuid.UUID       `json:"listing_id" db:"listing_id"`
	BuyerID   uuid.UUID       `json:"buyer_id"   db:"buyer_id"`
	SellerID  uuid.UUID       `json:"seller_id"  db:"seller_id"`
	Amount    decimal.Decimal `json:"amount"     db:"amount"`
	Status    PaymentStatus   `json:"status"     db:"status"`

	UPITransactionID *string    `json:"upi_transaction_id" db:"upi_transaction_id"`
	CompletedAt      *time.Time `json:"completed_at"       db:"completed_at"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// NewPayment builds the pending payment created when a listing sells.
func NewPayment(listingID, buyerID, sellerID uuid.UUID, amount decimal.Decimal, now time.Time) *Payment {
	now = now.UTC()
	return &Payment{
		ID:        uuid.New(),
		ListingID: listingID,
		BuyerID:   buyerID,
		SellerID:  sellerID,
		Amount:    amount,
		Status:    PaymentPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
}
