package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"
	openapi_types "github.com/oapi-codegen/runtime/types"

	"github.com/pkordes/unit-booking/internal/domain"
	"github.com/pkordes/unit-booking/internal/service"
)

// CreateBooking handles POST /bookings.
func (s *Server) CreateBooking(w http.ResponseWriter, r *http.Request) {
	var req CreateBookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeDecodeError(w, r, err)
		return
	}
	if err := s.validate.StructCtx(r.Context(), req); err != nil {
		s.writeError(w, r, http.StatusUnprocessableEntity, codeValidation, describeValidation(err))
		return
	}

	created, err := s.bookings.CreateBooking(r.Context(), requestToNewBooking(req))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	w.Header().Set("Location", "/bookings/"+created.ID.String())
	s.writeJSON(w, r, http.StatusCreated, bookingToResponse(created))
}

// ExtendStay handles POST /bookings/{id}/extend.
func (s *Server) ExtendStay(w http.ResponseWriter, r *http.Request) {
	id, ok := s.bookingID(w, r)
	if !ok {
		return
	}

	var req ExtendStayRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeDecodeError(w, r, err)
		return
	}
	if err := s.validate.StructCtx(r.Context(), req); err != nil {
		s.writeError(w, r, http.StatusUnprocessableEntity, codeValidation, describeValidation(err))
		return
	}

	updated, err := s.bookings.ExtendStay(r.Context(), id, req.AddNights)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, bookingToResponse(updated))
}

// GetBooking handles GET /bookings/{id}.
func (s *Server) GetBooking(w http.ResponseWriter, r *http.Request) {
	id, ok := s.bookingID(w, r)
	if !ok {
		return
	}

	b, err := s.bookings.GetByID(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, bookingToResponse(b))
}

// ListBookings handles GET /bookings.
// Supports ?guest_name= and ?unit_id= exact-match filters plus ?page= and
// ?limit= (defaults: page=1, limit=20, max=100).
func (s *Server) ListBookings(w http.ResponseWriter, r *http.Request) {
	var (
		guestName, unitID *string
		page, limit       *int
	)
	q := r.URL.Query()
	for _, p := range []struct {
		name string
		dest any
	}{
		{"guest_name", &guestName},
		{"unit_id", &unitID},
		{"page", &page},
		{"limit", &limit},
	} {
		if err := runtime.BindQueryParameter("form", true, false, p.name, q, p.dest); err != nil {
			s.writeError(w, r, http.StatusUnprocessableEntity, codeValidation, "invalid "+p.name+" parameter")
			return
		}
	}

	var f service.ListFilter
	if guestName != nil {
		f.GuestName = *guestName
	}
	if unitID != nil {
		f.UnitID = *unitID
	}
	params := domain.NewPaginationParams(page, limit)

	bookings, total, err := s.bookings.List(r.Context(), f, params)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	data := make([]Booking, len(bookings))
	for i, b := range bookings {
		data[i] = bookingToResponse(b)
	}
	s.writeJSON(w, r, http.StatusOK, BookingList{
		Data: data,
		Pagination: Pagination{
			Page:       params.Page,
			Limit:      params.Limit,
			Total:      int(total),
			TotalPages: params.TotalPages(total),
		},
	})
}

// bookingID binds the {id} path parameter. A malformed id is reported as
// not found, the same as an unknown one.
func (s *Server) bookingID(w http.ResponseWriter, r *http.Request) (openapi_types.UUID, bool) {
	var id openapi_types.UUID
	err := runtime.BindStyledParameterWithOptions("simple", "id", chi.URLParam(r, "id"), &id,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Explode: false, Required: true})
	if err != nil {
		s.writeError(w, r, http.StatusNotFound, codeNotFound, "invalid booking ID")
		return id, false
	}
	return id, true
}
