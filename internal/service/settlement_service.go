package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/campusmess/mealmarket/internal/domain"
	"github.com/campusmess/mealmarket/internal/repository"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// SettlementService drives due listings through the settlement state machine.
// The scheduler calls SettleDue on every tick; each listing settles in its own
// transaction under its own guard, so one bad listing never blocks the rest.
type SettlementService struct {
	db          *sqlx.DB
	listingRepo *repository.ListingRepository
	bidRepo     *repository.BidRepository
	paymentRepo *repository.PaymentRepository
	guard       *ListingGuard
	policy      domain.Policy
	notifier    Notifier
	publisher   EventPublisher
	logger      *slog.Logger
}

// NewSettlementService creates a SettlementService.
func NewSettlementService(
	db *sqlx.DB,
	listingRepo *repository.ListingRepository,
	bidRepo *repository.BidRepository,
	paymentRepo *repository.PaymentRepository,
	guard *ListingGuard,
	policy domain.Policy,
	notifier Notifier,
	logger *slog.Logger,
) *SettlementService {
	return &SettlementService{
		db:          db,
		listingRepo: listingRepo,
		bidRepo:     bidRepo,
		paymentRepo: paymentRepo,
		guard:       guard,
		policy:      policy,
		notifier:    notifier,
		logger:      logger,
	}
}

// SetPublisher wires the realtime publisher after construction.
func (s *SettlementService) SetPublisher(p EventPublisher) { s.publisher = p }

// Policy returns the settlement policy in effect.
func (s *SettlementService) Policy() domain.Policy { return s.policy }

// SettleDue evaluates every due listing once and returns how many reached a
// decision other than none. Per-listing failures are logged and skipped.
func (s *SettlementService) SettleDue(ctx context.Context) (int, error) {
	due, err := s.listingRepo.GetDue(ctx, time.Now())
	if err != nil {
		return 0, fmt.Errorf("settlement.SettleDue: %w", err)
	}

	settled := 0
	for _, l := range due {
		if ctx.Err() != nil {
			return settled, ctx.Err()
		}
		kind, err := s.settleOne(ctx, l.ID)
		if err != nil {
			if errors.Is(err, domain.ErrInvariantViolation) {
				// Corrupted row: leave it untouched, keep settling the rest.
				s.logger.Error("settlement: invariant violation",
					"listing_id", l.ID, "error", err)
				continue
			}
			s.logger.Error("settlement: listing failed",
				"listing_id", l.ID, "error", err)
			continue
		}
		if kind != domain.DecisionNone {
			settled++
		}
	}
	return settled, nil
}

// SettleListing settles a single listing immediately if due. Used by the
// back-office force-settle endpoint.
func (s *SettlementService) SettleListing(ctx context.Context, listingID uuid.UUID) (domain.DecisionKind, error) {
	return s.settleOne(ctx, listingID)
}

// settleOne runs one evaluation for one listing under the guard and a row
// lock, applies the decision, and dispatches notifications after commit.
func (s *SettlementService) settleOne(ctx context.Context, listingID uuid.UUID) (domain.DecisionKind, error) {
	release := s.guard.Lock(listingID)
	defer release()

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return domain.DecisionNone, fmt.Errorf("settlement: begin tx: %w", err)
	}
	var txErr error
	defer func() {
		if txErr != nil {
			_ = tx.Rollback()
		}
	}()

	l, txErr := s.listingRepo.GetByIDForUpdate(ctx, tx, listingID)
	if txErr != nil {
		return domain.DecisionNone, txErr
	}

	now := time.Now()

	// The listing may have sold, been unlisted, or had its end time pushed back
	// between the due scan and acquiring the lock.
	if !l.Due(now) {
		_ = tx.Rollback()
		return domain.DecisionNone, nil
	}

	bids, txErr := s.bidRepo.GetByListingTx(ctx, tx, listingID)
	if txErr != nil {
		return domain.DecisionNone, txErr
	}
	ledger := domain.NewBidLedger(bids...)

	decision, txErr := domain.Evaluate(l, ledger, now, s.policy)
	if txErr != nil {
		return domain.DecisionNone, txErr
	}
	if decision.Kind == domain.DecisionNone {
		_ = tx.Rollback()
		return domain.DecisionNone, nil
	}

	decision.Apply(l, now)
	if txErr = s.listingRepo.Save(ctx, tx, l); txErr != nil {
		return domain.DecisionNone, txErr
	}

	var payment *domain.Payment
	if decision.Kind == domain.DecisionSell {
		payment = domain.NewPayment(l.ID, decision.Winner.BidderID, l.SellerID, decision.SalePrice, now)
		if txErr = s.paymentRepo.Create(ctx, tx, payment); txErr != nil {
			return domain.DecisionNone, txErr
		}
	}

	if txErr = tx.Commit(); txErr != nil {
		return domain.DecisionNone, fmt.Errorf("settlement: commit: %w", txErr)
	}

	s.logger.Info("listing settled",
		"listing_id", l.ID, "decision", decision.Kind,
		"price", l.CurrentPrice, "drop_count", l.DropCount, "status", l.Status)

	go s.dispatch(l, decision, ledger)

	return decision.Kind, nil
}

// dispatch fans out post-commit notifications and the realtime update for one
// settlement decision. Runs outside the lock; delivery is best effort.
func (s *SettlementService) dispatch(l *domain.Listing, d domain.Decision, ledger *domain.BidLedger) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	meal := fmt.Sprintf("%s %s at %s", l.Date, l.MealTime, l.Mess)

	switch d.Kind {
	case domain.DecisionSell:
		winner := d.Winner.BidderID
		price := d.SalePrice.StringFixed(2)

		s.notifier.Notify(ctx, winner, domain.NotifyAuctionWon,
			"You won the meal",
			fmt.Sprintf("Your bid of ₹%s won %s. Pay the seller and confirm to collect.", price, meal))

		s.notifier.Notify(ctx, l.SellerID, domain.NotifyListingSold,
			"Your meal sold",
			fmt.Sprintf("%s sold for ₹%s.", meal, price))

		for _, bidderID := range ledger.Bidders() {
			if bidderID == winner {
				continue
			}
			s.notifier.Notify(ctx, bidderID, domain.NotifyAuctionLost,
				"Outbid",
				fmt.Sprintf("%s went to a higher bid of ₹%s.", meal, price))
		}

	case domain.DecisionPriceDrop:
		price := l.CurrentPrice.StringFixed(2)
		s.notifier.Notify(ctx, l.SellerID, domain.NotifyPriceReduced,
			"Price reduced",
			fmt.Sprintf("%s dropped to ₹%s (%d of %d drops used).",
				meal, price, l.DropCount, s.policy.MaxPriceDrops))
		for _, bidderID := range ledger.Bidders() {
			s.notifier.Notify(ctx, bidderID, domain.NotifyPriceReduced,
				"Price reduced",
				fmt.Sprintf("%s you bid on dropped to ₹%s.", meal, price))
		}

	case domain.DecisionExpire:
		s.notifier.Notify(ctx, l.SellerID, domain.NotifyAuctionExpired,
			"Listing expired",
			fmt.Sprintf("%s expired without a buyer.", meal))

	case domain.DecisionExtend:
		s.notifier.Notify(ctx, l.SellerID, domain.NotifyListingResumed,
			"Listing extended",
			fmt.Sprintf("%s received no bids and was extended.", meal))
	}

	if s.publisher != nil {
		l.Bids = ledger.Bids()
		s.publisher.PublishListingUpdate(l.ToSummary(time.Now()))
	}
}
