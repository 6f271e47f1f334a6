package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/pkordes/unit-booking/internal/domain"
)

// Error codes carried in ErrorDetail.Code.
const (
	codeDuplicateUnitBooking = "duplicate_unit_booking"
	codeGuestAlreadyBooked   = "guest_already_booked"
	codeUnitUnavailable      = "unit_unavailable"
	codeNotFound             = "not_found"
	codeValidation           = "validation_error"
	codeTooLarge             = "request_too_large"
	codeInternal             = "internal_error"
)

// errorMapping pairs a domain sentinel with its HTTP status and error code.
// Order matters: the first match wins.
var errorMapping = []struct {
	kind   error
	status int
	code   string
}{
	{domain.ErrValidation, http.StatusUnprocessableEntity, codeValidation},
	{domain.ErrNotFound, http.StatusNotFound, codeNotFound},
	{domain.ErrDuplicateUnitBooking, http.StatusConflict, codeDuplicateUnitBooking},
	{domain.ErrGuestAlreadyBooked, http.StatusConflict, codeGuestAlreadyBooked},
	{domain.ErrUnitUnavailable, http.StatusConflict, codeUnitUnavailable},
}

// writeServiceError maps err onto the error response for its domain kind.
// Anything unrecognised is logged and reported as a bare 500, so storage
// details never reach the client.
func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	for _, m := range errorMapping {
		if errors.Is(err, m.kind) {
			s.writeError(w, r, m.status, m.code, reason(err, m.kind))
			return
		}
	}
	s.log.ErrorContext(r.Context(), "request failed", "error", err)
	s.writeError(w, r, http.StatusInternalServerError, codeInternal, "internal server error")
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	s.writeJSON(w, r, status, ErrorResponse{Error: ErrorDetail{Code: code, Message: message}})
}

// writeDecodeError reports a request body that could not be read or parsed.
func (s *Server) writeDecodeError(w http.ResponseWriter, r *http.Request, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		s.writeError(w, r, http.StatusRequestEntityTooLarge, codeTooLarge,
			fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit))
		return
	}
	s.writeError(w, r, http.StatusUnprocessableEntity, codeValidation, "request body must be valid JSON: "+err.Error())
}

// reason extracts the human-readable part that follows kind in a wrapped error.
// e.g. "service.BookingService.CreateBooking: unit unavailable: unit already
// occupied for requested dates" → "unit already occupied for requested dates".
func reason(err, kind error) string {
	msg := err.Error()
	marker := kind.Error() + ": "
	if i := strings.LastIndex(msg, marker); i >= 0 {
		return msg[i+len(marker):]
	}
	return kind.Error()
}

// describeValidation renders validator errors as one message, e.g.
// "guest_name is required; number_of_nights must be at least 1".
func describeValidation(err error) string {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		switch fe.Tag() {
		case "required":
			parts = append(parts, fe.Field()+" is required")
		case "gte", "min":
			parts = append(parts, fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param()))
		case "lte", "max":
			parts = append(parts, fmt.Sprintf("%s must be at most %s", fe.Field(), fe.Param()))
		default:
			parts = append(parts, fe.Field()+" is invalid")
		}
	}
	return strings.Join(parts, "; ")
}
