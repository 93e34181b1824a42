package domain

import (
	"errors"
)

// ──────────────────────────────────────────────────────────────────────────────
// Sentinel errors — compare with errors.Is()
// ──────────────────────────────────────────────────────────────────────────────

// Listing errors
var (
	// ErrListingNotFound is returned when no listing matches the given criteria.
	ErrListingNotFound = errors.New("listing not found")

	// ErrListingNotActive is returned when a bid, withdrawal, or price change is
	// attempted on a listing that has left StatusActive.
	ErrListingNotActive = errors.New("listing is not active")

	// ErrListingNotSold is returned when resuming a listing that is not in
	// StatusSold.
	ErrListingNotSold = errors.New("listing is not sold")

	// ErrNotOwner is returned when a non-seller attempts a seller-only action.
	ErrNotOwner = errors.New("only the seller may perform this action")

	// ErrListingHasBids is returned when a seller tries to unlist a listing
	// that still has pending bids and the policy forbids it.
	ErrListingHasBids = errors.New("listing has pending bids and cannot be unlisted")

	// ErrInvalidListingParams is returned when creation parameters violate the
	// listing invariants (see NewListing).
	ErrInvalidListingParams = errors.New("invalid listing parameters")

	// ErrInvariantViolation indicates corrupted listing data reached the
	// settlement evaluator. The listing is left untouched and the condition is
	// logged at high severity.
	ErrInvariantViolation = errors.New("listing invariant violation")
)

// Bid errors
var (
	// ErrInvalidBidAmount is returned when a bid amount is zero or negative.
	ErrInvalidBidAmount = errors.New("bid amount must be positive")

	// ErrBidTooLow is returned when an auction-mode bid is below the listing's
	// floor price.
	ErrBidTooLow = errors.New("bid must be >= current price in auction mode")

	// ErrOwnListingBid is returned when a seller bids on their own listing.
	ErrOwnListingBid = errors.New("sellers cannot bid on their own listing")
)

// Feedback errors
var (
	// ErrInvalidRating is returned when the star value is outside 1..5.
	ErrInvalidRating = errors.New("rating must be between 1 and 5 stars")

	// ErrNotEligible is returned when the rater is not a counterparty of a sold
	// listing, or has already rated it.
	ErrNotEligible = errors.New("not eligible to rate this listing")

	// ErrDescriptionTooShort is returned when a report description is under the
	// minimum length.
	ErrDescriptionTooShort = errors.New("report description is too short")

	// ErrTooManyEvidenceItems is returned when a report carries more evidence
	// URLs than allowed.
	ErrTooManyEvidenceItems = errors.New("too many evidence items")

	// ErrInvalidReportReason is returned when the reason is not one of the
	// recognised report reasons.
	ErrInvalidReportReason = errors.New("invalid report reason")

	// ErrReportNotFound is returned when no report matches the given criteria.
	ErrReportNotFound = errors.New("report not found")
)

// Payment errors
var (
	// ErrPaymentNotFound is returned when no payment matches the given criteria.
	ErrPaymentNotFound = errors.New("payment not found")

	// ErrPaymentNotPending is returned when confirming a payment that is not in
	// PaymentPending (double confirmation).
	ErrPaymentNotPending = errors.New("payment is not pending")
)

// User / auth errors
var (
	// ErrUserNotFound is returned when no user matches the given criteria.
	ErrUserNotFound = errors.New("user not found")

	// ErrEmailTaken is returned on registration when the email already exists.
	ErrEmailTaken = errors.New("email address is already registered")

	// ErrInvalidCredentials is returned when login credentials are wrong.
	ErrInvalidCredentials = errors.New("invalid email or password")

	// ErrUserSuspended is returned when a banned user attempts an action.
	ErrUserSuspended = errors.New("user account is suspended")

	// ErrUnauthorized is returned when a valid token is not present.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden is returned when the authenticated user lacks the required role.
	ErrForbidden = errors.New("forbidden: insufficient permissions")

	// ErrTokenExpired is returned when a JWT has passed its TTL.
	ErrTokenExpired = errors.New("token has expired")

	// ErrTokenInvalid is returned when a token cannot be parsed or its signature
	// does not match.
	ErrTokenInvalid = errors.New("token is invalid")
)

// ──────────────────────────────────────────────────────────────────────────────
// Helper predicates
// ──────────────────────────────────────────────────────────────────────────────

// notFoundErrors collects all "entity not found" sentinel errors so that
// IsNotFound can stay in sync automatically.
var notFoundErrors = []error{
	ErrListingNotFound,
	ErrUserNotFound,
	ErrReportNotFound,
	ErrPaymentNotFound,
}

// IsNotFound returns true when err (or any error in its chain) is one of the
// domain "not found" errors. Use this instead of comparing error values
// directly when translating domain errors to HTTP 404 responses.
func IsNotFound(err error) bool {
	for _, target := range notFoundErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// IsConflict returns true for errors that represent a state conflict or a
// legitimate race (e.g. bidding on a just-settled listing).
func IsConflict(err error) bool {
	conflictErrors := []error{
		ErrListingNotActive,
		ErrListingNotSold,
		ErrListingHasBids,
		ErrEmailTaken,
		ErrNotEligible,
		ErrPaymentNotPending,
	}
	for _, target := range conflictErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// IsValidation returns true for caller-correctable input errors. These are
// never retried automatically; the caller must fix the input and resubmit.
func IsValidation(err error) bool {
	validationErrors := []error{
		ErrInvalidListingParams,
		ErrInvalidBidAmount,
		ErrInvalidRating,
		ErrDescriptionTooShort,
		ErrTooManyEvidenceItems,
		ErrInvalidReportReason,
	}
	for _, target := range validationErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// IsAuthError returns true for authentication/authorisation errors.
func IsAuthError(err error) bool {
	authErrors := []error{
		ErrUnauthorized,
		ErrForbidden,
		ErrTokenExpired,
		ErrTokenInvalid,
		ErrInvalidCredentials,
		ErrUserSuspended,
	}
	for _, target := range authErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
