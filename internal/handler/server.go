// Package handler implements the HTTP handlers for the unit booking API.
// All handlers are methods on Server. Methods are split into domain-specific
// files (health.go, booking.go, export.go) but share the same Server struct so
// they can access its dependencies. Handler wires them onto a chi router.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/pkordes/unit-booking/internal/domain"
	"github.com/pkordes/unit-booking/internal/service"
)

// BookingServicer defines the business operations the booking handlers depend on.
// Defining the interface here (in the consumer package) lets handler tests
// inject a mock without touching storage or the service layer.
type BookingServicer interface {
	CreateBooking(ctx context.Context, nb domain.NewBooking) (domain.Booking, error)
	ExtendStay(ctx context.Context, id uuid.UUID, addNights int) (domain.Booking, error)
	GetByID(ctx context.Context, id uuid.UUID) (domain.Booking, error)
	List(ctx context.Context, f service.ListFilter, p domain.PaginationParams) ([]domain.Booking, int64, error)
}

// ExportServicer defines the operation the export handler depends on.
type ExportServicer interface {
	Export(ctx context.Context) ([]domain.ExportRow, error)
}

// Server holds the dependencies shared by every handler.
type Server struct {
	bookings BookingServicer
	export   ExportServicer
	openAPI  []byte
	validate *validator.Validate
	log      *slog.Logger
}

// NewServer constructs the Server with all its dependencies.
// openAPI is served verbatim at /openapi.yaml; nil disables the route.
func NewServer(bookings BookingServicer, export ExportServicer, openAPI []byte, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{
		bookings: bookings,
		export:   export,
		openAPI:  openAPI,
		validate: newValidator(),
		log:      log,
	}
}

// Handler returns a chi router serving every API route.
func Handler(s *Server) http.Handler {
	r := chi.NewRouter()
	r.Get("/healthz", s.GetHealth)
	r.Route("/bookings", func(r chi.Router) {
		r.Post("/", s.CreateBooking)
		r.Get("/", s.ListBookings)
		r.Get("/{id}", s.GetBooking)
		r.Post("/{id}/extend", s.ExtendStay)
	})
	r.Get("/export", s.GetExport)
	if s.openAPI != nil {
		r.Get("/openapi.yaml", s.GetOpenAPI)
	}
	return r
}

// GetOpenAPI handles GET /openapi.yaml.
func (s *Server) GetOpenAPI(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/yaml")
	_, _ = w.Write(s.openAPI)
}

// newValidator reports field errors under their JSON names and treats a
// zero-valued struct field tagged "required" as missing.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// writeJSON encodes body with the given status. Encoding errors are logged;
// the status line has already been sent at that point.
func (s *Server) writeJSON(w http.ResponseWriter, r *http.Request, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.log.WarnContext(r.Context(), "response encode failed", "error", err)
	}
}
