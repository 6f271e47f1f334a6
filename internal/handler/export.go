// export.go implements GET /export.
// Returns every booking as a flat table with the derived check-out date.
// Supports content negotiation via ?format=csv (CSV) or default (JSON).

package handler

import (
	"bytes"
	"encoding/csv"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/oapi-codegen/runtime"
	openapi_types "github.com/oapi-codegen/runtime/types"

	"github.com/pkordes/unit-booking/internal/domain"
)

// csvHeaders defines the column names written as the first row of any CSV export.
var csvHeaders = []string{
	"booking_id", "guest_name", "unit_id", "check_in_date",
	"check_out_date", "number_of_nights", "created_at",
}

// GetExport implements GET /export.
// Use ?format=csv to receive CSV; default is JSON.
func (s *Server) GetExport(w http.ResponseWriter, r *http.Request) {
	var format *string
	if err := runtime.BindQueryParameter("form", true, false, "format", r.URL.Query(), &format); err != nil ||
		(format != nil && *format != "csv" && *format != "json") {
		s.writeError(w, r, http.StatusUnprocessableEntity, codeValidation, "format must be csv or json")
		return
	}

	rows, err := s.export.Export(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	if format != nil && *format == "csv" {
		s.writeCSV(w, r, rows)
		return
	}
	s.writeJSON(w, r, http.StatusOK, buildJSONResponse(rows))
}

// buildJSONResponse converts domain rows to the typed JSON response.
func buildJSONResponse(rows []domain.ExportRow) []ExportRow {
	out := make([]ExportRow, 0, len(rows))
	for _, r := range rows {
		out = append(out, domainRowToResponseRow(r))
	}
	return out
}

// writeCSV encodes domain rows as CSV with a header row.
func (s *Server) writeCSV(w http.ResponseWriter, r *http.Request, rows []domain.ExportRow) {
	var buf bytes.Buffer
	cw := csv.NewWriter(&buf)

	//nolint:errcheck // bytes.Buffer.Write never returns an error.
	cw.Write(csvHeaders)
	for _, row := range rows {
		//nolint:errcheck
		cw.Write(domainRowToCSVRecord(row))
	}
	cw.Flush()

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="bookings.csv"`)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		s.log.WarnContext(r.Context(), "csv export write failed", "error", err)
	}
}

// domainRowToResponseRow maps a domain.ExportRow to its wire form.
func domainRowToResponseRow(r domain.ExportRow) ExportRow {
	id, _ := uuid.Parse(r.BookingID)
	return ExportRow{
		BookingId:      id,
		GuestName:      r.GuestName,
		UnitId:         r.UnitID,
		CheckInDate:    mustParseDate(r.CheckInDate),
		CheckOutDate:   mustParseDate(r.CheckOutDate),
		NumberOfNights: r.NumberOfNights,
		CreatedAt:      r.CreatedAt,
	}
}

// domainRowToCSVRecord encodes a domain.ExportRow as a flat string slice.
func domainRowToCSVRecord(r domain.ExportRow) []string {
	return []string{
		r.BookingID,
		r.GuestName,
		r.UnitID,
		r.CheckInDate,
		r.CheckOutDate,
		strconv.Itoa(r.NumberOfNights),
		r.CreatedAt,
	}
}

// mustParseDate parses an "2006-01-02" string into an openapi_types.Date.
// Panics on malformed input; callers are expected to pass service-generated dates.
func mustParseDate(s string) openapi_types.Date {
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		panic("handler: malformed date from service: " + s)
	}
	return openapi_types.Date{Time: t}
}
