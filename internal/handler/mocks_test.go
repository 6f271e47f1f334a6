package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/unit-booking/internal/domain"
	"github.com/pkordes/unit-booking/internal/handler"
	"github.com/pkordes/unit-booking/internal/service"
)

// mockBookingServicer is a test double for handler.BookingServicer.
// Set only the method fields your test needs.
type mockBookingServicer struct {
	create  func(ctx context.Context, nb domain.NewBooking) (domain.Booking, error)
	extend  func(ctx context.Context, id uuid.UUID, addNights int) (domain.Booking, error)
	getByID func(ctx context.Context, id uuid.UUID) (domain.Booking, error)
	list    func(ctx context.Context, f service.ListFilter, p domain.PaginationParams) ([]domain.Booking, int64, error)
}

func (m *mockBookingServicer) CreateBooking(ctx context.Context, nb domain.NewBooking) (domain.Booking, error) {
	return m.create(ctx, nb)
}
func (m *mockBookingServicer) ExtendStay(ctx context.Context, id uuid.UUID, addNights int) (domain.Booking, error) {
	return m.extend(ctx, id, addNights)
}
func (m *mockBookingServicer) GetByID(ctx context.Context, id uuid.UUID) (domain.Booking, error) {
	return m.getByID(ctx, id)
}
func (m *mockBookingServicer) List(ctx context.Context, f service.ListFilter, p domain.PaginationParams) ([]domain.Booking, int64, error) {
	return m.list(ctx, f, p)
}

// compile-time check: mockBookingServicer must satisfy handler.BookingServicer.
var _ handler.BookingServicer = (*mockBookingServicer)(nil)

type mockExportServicer struct {
	export func(ctx context.Context) ([]domain.ExportRow, error)
}

func (m *mockExportServicer) Export(ctx context.Context) ([]domain.ExportRow, error) {
	return m.export(ctx)
}

// compile-time check: mockExportServicer must satisfy handler.ExportServicer.
var _ handler.ExportServicer = (*mockExportServicer)(nil)

// ---- helpers ---------------------------------------------------------------

var quietLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

// newHTTPHandler wires a Server with the given mocks into the chi router.
// This mirrors how main.go wires it in production.
func newHTTPHandler(bookings handler.BookingServicer, export handler.ExportServicer) http.Handler {
	return handler.Handler(handler.NewServer(bookings, export, []byte("openapi: 3.0.3\n"), quietLogger))
}

func jsonBody(t *testing.T, v any) *bytes.Buffer {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return bytes.NewBuffer(b)
}

func decodeError(t *testing.T, body io.Reader) handler.ErrorDetail {
	t.Helper()
	var resp handler.ErrorResponse
	require.NoError(t, json.NewDecoder(body).Decode(&resp))
	return resp.Error
}
