package entity

import "errors"

var (
	// Event and catalog errors
	ErrEventNotFound      = errors.New("event not found")
	ErrTicketTypeNotFound = errors.New("ticket type not found")
	ErrSaleWindowClosed   = errors.New("sale window is closed")

	// Purchase errors
	ErrPerPersonLimit    = errors.New("per-person limit exceeded")
	ErrAlreadyRegistered = errors.New("user already has an active registration for this event")
	ErrCapacityExceeded  = errors.New("not enough capacity")

	// Discount errors
	ErrDiscountInvalid   = errors.New("discount code is not valid")
	ErrDiscountExhausted = errors.New("discount code has no uses left")

	// Ticket lifecycle errors
	ErrTicketNotFound         = errors.New("ticket not found")
	ErrRegistrationNotFound   = errors.New("registration not found")
	ErrInvalidStateTransition = errors.New("invalid ticket state transition")
	ErrAlreadyCheckedIn       = errors.New("ticket already checked in")
	ErrNotTransferable        = errors.New("ticket is not transferable")
	ErrNotTicketOwner         = errors.New("ticket does not belong to this user")

	// Waitlist errors
	ErrWaitlistEntryNotFound = errors.New("waitlist entry not found")
	ErrAlreadyWaiting        = errors.New("user already has an active waitlist entry")

	// Store errors
	ErrTxConflict    = errors.New("transaction conflict, retry")
	ErrAlreadyExists = errors.New("record already exists")
	ErrInvalidInput  = errors.New("invalid input")
	ErrStoreFailure  = errors.New("store unavailable")
)
