package contract

import "errors"

// Error kinds surfaced through the contract boundary. Every rejected
// operation wraps exactly one of these so callers can show an actionable
// message rather than a generic failure.
var (
	// ErrUnauthorized: the caller's role or holder status does not match the
	// operation's requirement.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrAlreadyAssigned: the caller's identity already holds a role.
	// Role assignment is one-shot.
	ErrAlreadyAssigned = errors.New("role already assigned")

	// ErrInvalidTransition: the operation was attempted from a state that is
	// not its required predecessor.
	ErrInvalidTransition = errors.New("invalid state transition")

	// ErrNotFound: the referenced product id has never been assigned.
	ErrNotFound = errors.New("product not found")

	// ErrInsufficientPayment: buy called with a payment below the listed price.
	ErrInsufficientPayment = errors.New("insufficient payment")

	// ErrInsufficientFunds: the payer's balance cannot cover the payment.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrInvalidInput: empty required metadata, non-positive price, or an
	// unparseable numeric argument.
	ErrInvalidInput = errors.New("invalid input")
)
