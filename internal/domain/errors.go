package domain

import "errors"

// ErrNotFound is returned by repo and service functions when the requested
// booking does not exist.
// Handlers should map this to HTTP 404.
var ErrNotFound = errors.New("not found")

// ErrValidation is returned by service functions when input is malformed or
// out of range (e.g. empty guest name, fewer than one night).
// Handlers should map this to HTTP 422 Unprocessable Entity.
var ErrValidation = errors.New("validation error")

// Booking rule violations. Each is wrapped together with a human-readable
// reason, e.g. fmt.Errorf("%w: unit already occupied for requested dates", ErrUnitUnavailable).
// Handlers should map these to HTTP 409 Conflict.
var (
	// ErrDuplicateUnitBooking means the guest already holds a booking for the unit.
	ErrDuplicateUnitBooking = errors.New("duplicate unit booking")

	// ErrGuestAlreadyBooked means the guest already holds a booking elsewhere.
	ErrGuestAlreadyBooked = errors.New("guest already booked")

	// ErrUnitUnavailable means the requested nights collide with another
	// booking on the same unit.
	ErrUnitUnavailable = errors.New("unit unavailable")
)

// ErrStorage marks failures of the persistence layer (connectivity, unexpected
// driver errors). It is never a client mistake.
var ErrStorage = errors.New("storage error")
