package handler

import (
	"time"

	openapi_types "github.com/oapi-codegen/runtime/types"

	"github.com/pkordes/unit-booking/internal/domain"
)

// Request and response bodies, matching the schemas in api/openapi.yaml.

// CreateBookingRequest is the body of POST /bookings.
type CreateBookingRequest struct {
	GuestName      string             `json:"guest_name" validate:"required"`
	UnitID         string             `json:"unit_id" validate:"required"`
	CheckInDate    openapi_types.Date `json:"check_in_date" validate:"required"`
	NumberOfNights int                `json:"number_of_nights" validate:"gte=1,lte=365"`
}

// ExtendStayRequest is the body of POST /bookings/{id}/extend.
type ExtendStayRequest struct {
	AddNights int `json:"add_nights" validate:"gte=1,lte=365"`
}

// Booking is the wire form of domain.Booking, with the derived check-out date.
type Booking struct {
	Id             openapi_types.UUID `json:"id"`
	GuestName      string             `json:"guest_name"`
	UnitId         string             `json:"unit_id"`
	CheckInDate    openapi_types.Date `json:"check_in_date"`
	CheckOutDate   openapi_types.Date `json:"check_out_date"`
	NumberOfNights int                `json:"number_of_nights"`
	CreatedAt      time.Time          `json:"created_at"`
	UpdatedAt      time.Time          `json:"updated_at"`
}

// Pagination describes one page of a list response.
type Pagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

// BookingList is the body of GET /bookings.
type BookingList struct {
	Data       []Booking  `json:"data"`
	Pagination Pagination `json:"pagination"`
}

// ExportRow is one element of the JSON export.
type ExportRow struct {
	BookingId      openapi_types.UUID `json:"booking_id"`
	GuestName      string             `json:"guest_name"`
	UnitId         string             `json:"unit_id"`
	CheckInDate    openapi_types.Date `json:"check_in_date"`
	CheckOutDate   openapi_types.Date `json:"check_out_date"`
	NumberOfNights int                `json:"number_of_nights"`
	CreatedAt      string             `json:"created_at"`
}

// HealthResponse is the body of GET /healthz.
type HealthResponse struct {
	Status string `json:"status"`
}

// ErrorDetail carries a machine-readable code and the human-readable reason.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

func bookingToResponse(b domain.Booking) Booking {
	return Booking{
		Id:             b.ID,
		GuestName:      b.GuestName,
		UnitId:         b.UnitID,
		CheckInDate:    openapi_types.Date{Time: b.CheckInDate},
		CheckOutDate:   openapi_types.Date{Time: b.CheckOutDate()},
		NumberOfNights: b.NumberOfNights,
		CreatedAt:      b.CreatedAt,
		UpdatedAt:      b.UpdatedAt,
	}
}

func requestToNewBooking(req CreateBookingRequest) domain.NewBooking {
	return domain.NewBooking{
		GuestName:      req.GuestName,
		UnitID:         req.UnitID,
		CheckInDate:    domain.NormalizeDate(req.CheckInDate.Time),
		NumberOfNights: req.NumberOfNights,
	}
}
