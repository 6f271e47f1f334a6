package service

import (
	"context"
	"fmt"

	"github.com/pkordes/unit-booking/internal/domain"
	"github.com/pkordes/unit-booking/internal/repo"
)

// ConflictChecker answers the questions the booking rules ask about existing
// bookings. It only reads; pass it a reader bound to the same lock scope as
// the write that follows.
type ConflictChecker struct {
	bookings repo.BookingReader
}

// NewConflictChecker constructs a ConflictChecker reading from r.
func NewConflictChecker(r repo.BookingReader) *ConflictChecker {
	return &ConflictChecker{bookings: r}
}

// Overlaps reports whether any booking on unitID shares a night with stay.
// Stays are half-open, so a booking that checks out on stay.Start does not
// conflict. The store narrows candidates with a range filter; each candidate
// is confirmed with domain.Stay.Overlaps.
func (c *ConflictChecker) Overlaps(ctx context.Context, unitID string, stay domain.Stay) (bool, error) {
	if stay.Nights() == 0 {
		return false, nil
	}

	candidates, err := c.bookings.Find(ctx, repo.BookingFilter{UnitID: &unitID, Overlapping: &stay})
	if err != nil {
		return false, fmt.Errorf("service.ConflictChecker.Overlaps: %w", err)
	}
	for _, b := range candidates {
		if b.UnitID == unitID && b.Stay().Overlaps(stay) {
			return true, nil
		}
	}
	return false, nil
}

// GuestHasUnitBooking reports whether guestName already holds any booking,
// past or future, for unitID. Both fields match exactly.
func (c *ConflictChecker) GuestHasUnitBooking(ctx context.Context, guestName, unitID string) (bool, error) {
	found, err := c.bookings.Find(ctx, repo.BookingFilter{GuestName: &guestName, UnitID: &unitID})
	if err != nil {
		return false, fmt.Errorf("service.ConflictChecker.GuestHasUnitBooking: %w", err)
	}
	return len(found) > 0, nil
}

// GuestHasAnyBooking reports whether guestName holds any booking at all,
// regardless of unit or dates.
func (c *ConflictChecker) GuestHasAnyBooking(ctx context.Context, guestName string) (bool, error) {
	found, err := c.bookings.Find(ctx, repo.BookingFilter{GuestName: &guestName})
	if err != nil {
		return false, fmt.Errorf("service.ConflictChecker.GuestHasAnyBooking: %w", err)
	}
	return len(found) > 0, nil
}
