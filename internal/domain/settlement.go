package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// ──────────────────────────────────────────────────────────────────────────────
// Policy
// ──────────────────────────────────────────────────────────────────────────────

// Policy holds the configurable settlement rules. The zero value is not
// usable; start from DefaultPolicy and override from configuration.
type Policy struct {
	// MaxPriceDrops caps how many price drops a fixed-decay listing receives
	// before it is force-settled.
	MaxPriceDrops int

	// SellOnPriceClear sells a fixed-decay listing immediately (on its next due
	// evaluation) when the highest bid meets or exceeds the current price.
	SellOnPriceClear bool

	// ExpireBidlessAuctions expires an auction that reaches its end time with
	// zero bids. When false the auction is extended by one more duration
	// instead.
	ExpireBidlessAuctions bool

	// AllowUnlistWithBids permits a seller to unlist a listing that still has
	// pending bids.
	AllowUnlistWithBids bool
}

// DefaultPolicy returns the stock marketplace rules: two price drops,
// immediate sale on a clearing bid, bidless auctions expire, and unlisting
// requires an empty ledger.
func DefaultPolicy() Policy {
	return Policy{
		MaxPriceDrops:         2,
		SellOnPriceClear:      true,
		ExpireBidlessAuctions: true,
		AllowUnlistWithBids:   false,
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// Decision
// ──────────────────────────────────────────────────────────────────────────────

// DecisionKind enumerates the possible outcomes of one settlement evaluation.
type DecisionKind string

const (
	DecisionNone      DecisionKind = "none"       // not due, or already terminal
	DecisionPriceDrop DecisionKind = "price_drop" // fixed-decay price reduction
	DecisionSell      DecisionKind = "sell"       // sold to the highest bidder
	DecisionExpire    DecisionKind = "expire"     // due with no possible buyer
	DecisionExtend    DecisionKind = "extend"     // bidless auction given another round
)

// Decision is the evaluator's verdict for a single listing at a single
// instant. Only the fields relevant to Kind are set.
type Decision struct {
	Kind DecisionKind

	// Price drop / extend
	NewPrice   decimal.Decimal
	NewEndTime time.Time

	// Sell
	Winner    *Bid
	SalePrice decimal.Decimal
}

// ──────────────────────────────────────────────────────────────────────────────
// Evaluate
// ──────────────────────────────────────────────────────────────────────────────

// Evaluate inspects a listing against the clock and its bid ledger and
// decides: no-op, price drop, sale to the highest bidder, expiry, or — for
// bidless auctions under a lenient policy — an extension.
//
// Evaluate is pure: it never mutates the listing. Callers apply the decision
// inside the same mutual-exclusion boundary that guards bid submission, then
// dispatch notifications after commit.
//
// Malformed listings (violating the creation invariants) yield an error
// wrapping ErrInvariantViolation; the listing must be left untouched.
func Evaluate(l *Listing, ledger *BidLedger, now time.Time, p Policy) (Decision, error) {
	if err := checkInvariants(l, p); err != nil {
		return Decision{Kind: DecisionNone}, err
	}

	if !l.Due(now) {
		return Decision{Kind: DecisionNone}, nil
	}

	top := ledger.Highest()

	if l.Mode == ModeAuction {
		if top != nil {
			return Decision{Kind: DecisionSell, Winner: top, SalePrice: top.Amount}, nil
		}
		if p.ExpireBidlessAuctions {
			return Decision{Kind: DecisionExpire}, nil
		}
		return Decision{
			Kind:       DecisionExtend,
			NewEndTime: now.Add(time.Duration(l.AuctionDuration) * time.Second).UTC(),
		}, nil
	}

	// Fixed-decay mode.
	if top != nil && top.Amount.GreaterThanOrEqual(l.CurrentPrice) && p.SellOnPriceClear {
		// A bid cleared the asking price: immediate buy at the bid amount.
		return Decision{Kind: DecisionSell, Winner: top, SalePrice: top.Amount}, nil
	}

	if l.DropCount < p.MaxPriceDrops {
		return Decision{
			Kind:       DecisionPriceDrop,
			NewPrice:   droppedPrice(l, top),
			NewEndTime: now.Add(time.Duration(l.DropInterval) * time.Second).UTC(),
		}, nil
	}

	// Out of drops: sell to whoever bid highest, at their bid, even below the
	// current price. With an empty ledger there is no buyer, so expire.
	if top != nil {
		return Decision{Kind: DecisionSell, Winner: top, SalePrice: top.Amount}, nil
	}
	return Decision{Kind: DecisionExpire}, nil
}

// droppedPrice computes the next fixed-decay price:
//
//	newPrice = max(top.Amount, currentPrice − priceDropAmount)
//
// clamped into [0, currentPrice] so the price stays monotonically
// non-increasing even when the highest bid sits above the asking price under
// a policy with SellOnPriceClear disabled.
func droppedPrice(l *Listing, top *Bid) decimal.Decimal {
	next := l.CurrentPrice.Sub(l.PriceDropAmount)
	if top != nil && top.Amount.GreaterThan(next) {
		next = top.Amount
	}
	if next.GreaterThan(l.CurrentPrice) {
		next = l.CurrentPrice
	}
	if next.IsNegative() {
		next = decimal.Zero
	}
	return next
}

// ──────────────────────────────────────────────────────────────────────────────
// Apply
// ──────────────────────────────────────────────────────────────────────────────

// Apply mutates the listing according to a decision produced by Evaluate.
// The caller persists the listing afterwards; Apply and the persistence write
// must share one atomic boundary per listing.
func (d Decision) Apply(l *Listing, now time.Time) {
	now = now.UTC()
	switch d.Kind {
	case DecisionNone:
		return

	case DecisionPriceDrop:
		l.CurrentPrice = d.NewPrice
		l.DropCount++
		l.EndTime = d.NewEndTime

	case DecisionSell:
		l.Status = StatusSold
		buyer := d.Winner.BidderID
		price := d.SalePrice
		sold := now
		l.BuyerID = &buyer
		l.SalePrice = &price
		l.SoldAt = &sold

	case DecisionExpire:
		l.Status = StatusExpired

	case DecisionExtend:
		l.EndTime = d.NewEndTime
	}
	l.UpdatedAt = now
}

// ──────────────────────────────────────────────────────────────────────────────
// Invariant checks
// ──────────────────────────────────────────────────────────────────────────────

// checkInvariants verifies the creation-time invariants still hold before the
// evaluator acts on a listing. A failure means the stored row was corrupted
// outside the state machine.
func checkInvariants(l *Listing, p Policy) error {
	switch {
	case !l.Mode.IsValid():
		return fmt.Errorf("%w: listing %s: unknown pricing mode %q", ErrInvariantViolation, l.ID, l.Mode)
	case l.TargetPrice.LessThanOrEqual(decimal.Zero):
		return fmt.Errorf("%w: listing %s: target price %s", ErrInvariantViolation, l.ID, l.TargetPrice)
	case l.CurrentPrice.IsNegative():
		return fmt.Errorf("%w: listing %s: negative current price %s", ErrInvariantViolation, l.ID, l.CurrentPrice)
	case l.DropCount < 0 || l.DropCount > p.MaxPriceDrops:
		return fmt.Errorf("%w: listing %s: drop count %d outside 0..%d", ErrInvariantViolation, l.ID, l.DropCount, p.MaxPriceDrops)
	}

	if l.Mode == ModeFixedDecay {
		if l.PriceDropAmount.LessThanOrEqual(decimal.Zero) ||
			l.PriceDropAmount.GreaterThanOrEqual(l.TargetPrice) {
			return fmt.Errorf("%w: listing %s: drop amount %s vs target %s",
				ErrInvariantViolation, l.ID, l.PriceDropAmount, l.TargetPrice)
		}
		if l.CurrentPrice.GreaterThan(l.TargetPrice) {
			return fmt.Errorf("%w: listing %s: current price %s above target %s",
				ErrInvariantViolation, l.ID, l.CurrentPrice, l.TargetPrice)
		}
	}
	if l.Mode == ModeAuction && !l.CurrentPrice.Equal(l.TargetPrice) {
		return fmt.Errorf("%w: listing %s: auction floor moved from %s to %s",
			ErrInvariantViolation, l.ID, l.TargetPrice, l.CurrentPrice)
	}
	return nil
}
