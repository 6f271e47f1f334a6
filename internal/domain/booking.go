// Package domain contains the core data types for the unit booking service.
// This package has no dependencies on other internal packages and is imported
// by every other internal package (repo, service, handler).
package domain

import (
	"time"

	"github.com/google/uuid"
)

// MaxNights is the longest stay a booking may hold, extensions included.
const MaxNights = 365

// Booking is a guest's reservation of a unit for a contiguous range of nights.
// The guest occupies nights [CheckInDate, CheckOutDate()).
type Booking struct {
	ID             uuid.UUID `json:"id"`
	GuestName      string    `json:"guest_name"`
	UnitID         string    `json:"unit_id"`
	CheckInDate    time.Time `json:"check_in_date"`
	NumberOfNights int       `json:"number_of_nights"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// CheckOutDate returns the first night after departure.
func (b Booking) CheckOutDate() time.Time {
	return NormalizeDate(b.CheckInDate).AddDate(0, 0, b.NumberOfNights)
}

// Stay returns the half-open night range occupied by the booking.
func (b Booking) Stay() Stay {
	return NewStay(b.CheckInDate, b.NumberOfNights)
}

// NewBooking carries the caller-supplied fields of a booking request.
// ID and timestamps are assigned by the store.
type NewBooking struct {
	GuestName      string
	UnitID         string
	CheckInDate    time.Time
	NumberOfNights int
}
