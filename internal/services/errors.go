// Package services defines the business logic of the order pipeline: the
// discount and referral ledgers, abandoned-cart tracking, order extraction and
// composition, order notifications, and webhook ingestion.
//
// This file centralizes service-level error values so that they can be
// consistently returned by service methods and checked by callers with
// errors.Is. Translation into customer-facing WhatsApp text or HTTP status
// codes is done by the caller (the pipeline or the handler layer).
package services

import "errors"

// Discount ledger errors.
var (
	// ErrDuplicateCode is returned when a caller-supplied discount code is
	// already held by any merchant.
	ErrDuplicateCode = errors.New("discount code already exists")

	// ErrDiscountExhausted is returned by ApplyUsage when the code has no use
	// left (or was deactivated) at increment time.
	ErrDiscountExhausted = errors.New("discount code exhausted")

	// ErrDiscountNotFound is returned when deactivating an unknown code.
	ErrDiscountNotFound = errors.New("discount code not found")

	// ErrInvalidDiscount is returned for a malformed DiscountInput.
	ErrInvalidDiscount = errors.New("invalid discount definition")
)

// Referral ledger errors.
var (
	// ErrReferralInvalid indicates an unknown referral code or one owned by
	// another merchant.
	ErrReferralInvalid = errors.New("referral code invalid")

	// ErrSelfReferral is returned when the referred phone owns the code.
	ErrSelfReferral = errors.New("self referral")

	// ErrAlreadyReferred is returned when the phone was already referred by
	// the same code.
	ErrAlreadyReferred = errors.New("phone already referred by this code")

	// ErrGenerationExhausted is returned when no free code could be generated
	// within the attempt bound.
	ErrGenerationExhausted = errors.New("code generation exhausted")

	// ErrRewardAlreadyGiven is returned when the reward flag was already set
	// (or the milestone is not reached) at claim time.
	ErrRewardAlreadyGiven = errors.New("referral reward already given")
)

// Cart, extraction and composition errors.
var (
	// ErrCartNotFound is returned when a cart id does not exist.
	ErrCartNotFound = errors.New("cart not found")

	// ErrExtractionFailed means the message could not be understood as an
	// order (transport failure, malformed model output, no resolvable product).
	ErrExtractionFailed = errors.New("order extraction failed")

	// ErrNoValidProducts is returned when none of the requested items resolve
	// to an active catalog product.
	ErrNoValidProducts = errors.New("no valid products")

	// ErrPlatformOrderFailed is returned when the commerce platform did not
	// report success. Nothing is persisted locally on this path.
	ErrPlatformOrderFailed = errors.New("commerce platform order failed")

	// ErrPersistenceFailed is returned when the platform order exists but the
	// local order row could not be written.
	ErrPersistenceFailed = errors.New("order persistence failed")

	// ErrNoConnection is returned when a merchant has no connected WhatsApp
	// number to send from.
	ErrNoConnection = errors.New("merchant has no whatsapp connection")
)

// Order status errors.
var (
	// ErrOrderNotFound indicates that the order does not exist.
	ErrOrderNotFound = errors.New("order not found")

	// ErrInvalidTransition is returned for a status change that would move an
	// order backwards or out of a terminal state.
	ErrInvalidTransition = errors.New("invalid order status transition")
)

// Pipeline errors.
var (
	// ErrUnknownConnection is returned when no merchant owns the receiving
	// WhatsApp number or instance. It signals a configuration problem.
	ErrUnknownConnection = errors.New("unknown whatsapp connection")

	// ErrMerchantNotFound is returned by operator actions on a missing merchant.
	ErrMerchantNotFound = errors.New("merchant not found")
)
