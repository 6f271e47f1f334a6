package domain

import "time"

// EventType names a committed booking change.
type EventType string

const (
	EventBookingCreated  EventType = "booking.created"
	EventBookingExtended EventType = "booking.extended"
)

// BookingEvent describes a booking change after it has been committed.
// AddedNights is only set for EventBookingExtended.
type BookingEvent struct {
	Type        EventType
	Booking     Booking
	AddedNights int
	OccurredAt  time.Time
}
