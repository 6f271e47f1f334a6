// Package service contains the business logic for the unit booking service.
// Services validate inputs, enforce booking rules, and orchestrate repo calls.
// No SQL lives here; services depend on repo interfaces, not implementations.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pkordes/unit-booking/internal/domain"
	"github.com/pkordes/unit-booking/internal/repo"
)

// Rejection reasons returned to callers. The handler layer passes them through
// verbatim as the error message.
const (
	reasonDuplicateUnit   = "guest cannot book the same unit multiple times"
	reasonGuestElsewhere  = "guest cannot be in multiple units at the same time"
	reasonUnitOccupied    = "unit already occupied for requested dates"
	reasonInvalidBooking  = "invalid booking ID"
	reasonExtensionBooked = "unit booked on given dates"
)

// Outcome labels reported to the OutcomeRecorder.
const (
	OpCreate = "create"
	OpExtend = "extend"

	OutcomeCreated              = "created"
	OutcomeExtended             = "extended"
	OutcomeInvalidInput         = "invalid_input"
	OutcomeNotFound             = "not_found"
	OutcomeDuplicateUnitBooking = "duplicate_unit_booking"
	OutcomeGuestAlreadyBooked   = "guest_already_booked"
	OutcomeUnitUnavailable      = "unit_unavailable"
	OutcomeStorageError         = "storage_error"
)

// EventPublisher receives a notification after a booking change is committed.
type EventPublisher interface {
	PublishBookingEvent(ctx context.Context, event domain.BookingEvent) error
}

// OutcomeRecorder counts the result of every create and extend attempt.
type OutcomeRecorder interface {
	ObserveBookingOutcome(operation, outcome string)
}

// Option configures optional collaborators of a BookingService.
type Option func(*BookingService)

// WithPublisher sends committed booking changes to p.
func WithPublisher(p EventPublisher) Option {
	return func(s *BookingService) { s.events = p }
}

// WithOutcomeRecorder reports create/extend outcomes to r.
func WithOutcomeRecorder(r OutcomeRecorder) Option {
	return func(s *BookingService) { s.outcomes = r }
}

// WithLogger replaces slog.Default as the service logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *BookingService) { s.log = l }
}

// WithClock overrides time.Now for event timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *BookingService) { s.now = now }
}

// BookingService implements the booking rules: create a booking, extend a stay,
// and the read operations the transport layer exposes.
//
// Every check-then-write sequence runs inside store.WithinLock, so the checks
// and the write observe the same state and no conflicting write for the same
// unit or guest can land in between.
type BookingService struct {
	store    repo.BookingStore
	events   EventPublisher
	outcomes OutcomeRecorder
	log      *slog.Logger
	now      func() time.Time
}

// NewBookingService constructs a BookingService backed by the provided store.
func NewBookingService(store repo.BookingStore, opts ...Option) *BookingService {
	s := &BookingService{
		store: store,
		log:   slog.Default(),
		now:   func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateBooking validates nb against the booking rules and persists it.
// The checks run in order and stop at the first failure:
//   - domain.ErrValidation for malformed input,
//   - domain.ErrDuplicateUnitBooking if the guest already booked this unit,
//   - domain.ErrGuestAlreadyBooked if the guest holds any other booking,
//   - domain.ErrUnitUnavailable if the unit is occupied on any requested night.
//
// Persistence failures are wrapped with domain.ErrStorage.
func (s *BookingService) CreateBooking(ctx context.Context, nb domain.NewBooking) (domain.Booking, error) {
	if err := validateNewBooking(nb); err != nil {
		s.observe(OpCreate, err)
		return domain.Booking{}, err
	}

	stay := domain.NewStay(nb.CheckInDate, nb.NumberOfNights)
	keys := []string{unitLockKey(nb.UnitID), guestLockKey(nb.GuestName)}

	var created domain.Booking
	err := s.store.WithinLock(ctx, keys, func(ctx context.Context, r repo.BookingRepo) error {
		checker := NewConflictChecker(r)

		dup, err := checker.GuestHasUnitBooking(ctx, nb.GuestName, nb.UnitID)
		if err != nil {
			return err
		}
		if dup {
			return fmt.Errorf("%w: %s", domain.ErrDuplicateUnitBooking, reasonDuplicateUnit)
		}

		elsewhere, err := checker.GuestHasAnyBooking(ctx, nb.GuestName)
		if err != nil {
			return err
		}
		if elsewhere {
			return fmt.Errorf("%w: %s", domain.ErrGuestAlreadyBooked, reasonGuestElsewhere)
		}

		busy, err := checker.Overlaps(ctx, nb.UnitID, stay)
		if err != nil {
			return err
		}
		if busy {
			return fmt.Errorf("%w: %s", domain.ErrUnitUnavailable, reasonUnitOccupied)
		}

		created, err = r.Create(ctx, domain.Booking{
			GuestName:      nb.GuestName,
			UnitID:         nb.UnitID,
			CheckInDate:    stay.Start,
			NumberOfNights: nb.NumberOfNights,
		})
		if err != nil {
			return explainConflict(err, reasonUnitOccupied)
		}
		return nil
	})
	if err != nil {
		err = s.fail(ctx, OpCreate, err, slog.String("guest_name", nb.GuestName), slog.String("unit_id", nb.UnitID))
		return domain.Booking{}, fmt.Errorf("service.BookingService.CreateBooking: %w", err)
	}

	s.observe(OpCreate, nil)
	s.log.InfoContext(ctx, "booking created",
		"booking_id", created.ID,
		"unit_id", created.UnitID,
		"check_in_date", created.CheckInDate.Format(time.DateOnly),
		"nights", created.NumberOfNights,
	)
	s.publish(ctx, domain.BookingEvent{Type: domain.EventBookingCreated, Booking: created, OccurredAt: s.now()})
	return created, nil
}

// ExtendStay appends addNights nights to the booking identified by id.
// Only the added nights, [check-out, check-out + addNights), are checked
// against the unit's other bookings; the nights the booking already holds are
// its own.
//
// Returns domain.ErrValidation when addNights is out of range or the stay
// would exceed domain.MaxNights, domain.ErrNotFound for an
// unknown id and domain.ErrUnitUnavailable when any added night is taken.
// On failure the booking is left unchanged.
func (s *BookingService) ExtendStay(ctx context.Context, id uuid.UUID, addNights int) (domain.Booking, error) {
	if err := validateAddNights(addNights); err != nil {
		s.observe(OpExtend, err)
		return domain.Booking{}, err
	}

	// The unit is needed to pick the lock; the booking is read again under it.
	current, err := s.store.GetByID(ctx, id)
	if err != nil {
		err = s.fail(ctx, OpExtend, explainNotFound(err), slog.String("booking_id", id.String()))
		return domain.Booking{}, fmt.Errorf("service.BookingService.ExtendStay: %w", err)
	}

	var updated domain.Booking
	err = s.store.WithinLock(ctx, []string{unitLockKey(current.UnitID)}, func(ctx context.Context, r repo.BookingRepo) error {
		b, err := r.GetByID(ctx, id)
		if err != nil {
			return explainNotFound(err)
		}

		if b.NumberOfNights+addNights > domain.MaxNights {
			return fmt.Errorf("%w: stay cannot exceed %d nights", domain.ErrValidation, domain.MaxNights)
		}

		checkOut := b.CheckOutDate()
		extension := domain.Stay{Start: checkOut, End: checkOut.AddDate(0, 0, addNights)}

		busy, err := NewConflictChecker(r).Overlaps(ctx, b.UnitID, extension)
		if err != nil {
			return err
		}
		if busy {
			return fmt.Errorf("%w: %s", domain.ErrUnitUnavailable, reasonExtensionBooked)
		}

		updated, err = r.UpdateNights(ctx, id, b.NumberOfNights+addNights)
		if err != nil {
			return explainConflict(explainNotFound(err), reasonExtensionBooked)
		}
		return nil
	})
	if err != nil {
		err = s.fail(ctx, OpExtend, err, slog.String("booking_id", id.String()), slog.String("unit_id", current.UnitID))
		return domain.Booking{}, fmt.Errorf("service.BookingService.ExtendStay: %w", err)
	}

	s.observe(OpExtend, nil)
	s.log.InfoContext(ctx, "booking extended",
		"booking_id", updated.ID,
		"unit_id", updated.UnitID,
		"added_nights", addNights,
		"nights", updated.NumberOfNights,
	)
	s.publish(ctx, domain.BookingEvent{
		Type:        domain.EventBookingExtended,
		Booking:     updated,
		AddedNights: addNights,
		OccurredAt:  s.now(),
	})
	return updated, nil
}

// GetByID returns a single booking by ID.
// Returns domain.ErrNotFound if no booking with that ID exists.
func (s *BookingService) GetByID(ctx context.Context, id uuid.UUID) (domain.Booking, error) {
	b, err := s.store.GetByID(ctx, id)
	if err != nil {
		return domain.Booking{}, fmt.Errorf("service.BookingService.GetByID: %w", err)
	}
	return b, nil
}

// ListFilter selects bookings for List. Empty fields are not applied.
type ListFilter struct {
	GuestName string
	UnitID    string
}

// List returns one page of bookings matching f and the total number of matches.
// Always returns a non-nil slice so callers can safely range over it.
func (s *BookingService) List(ctx context.Context, f ListFilter, p domain.PaginationParams) ([]domain.Booking, int64, error) {
	var filter repo.BookingFilter
	if f.GuestName != "" {
		filter.GuestName = &f.GuestName
	}
	if f.UnitID != "" {
		filter.UnitID = &f.UnitID
	}

	bookings, total, err := s.store.ListPaged(ctx, filter, p)
	if err != nil {
		return nil, 0, fmt.Errorf("service.BookingService.List: %w", err)
	}
	if bookings == nil {
		bookings = []domain.Booking{}
	}
	return bookings, total, nil
}

// validateNewBooking enforces the input rules for CreateBooking.
//   - GuestName and UnitID must be non-empty (whitespace-only is rejected).
//   - CheckInDate must be set.
//   - NumberOfNights must be between 1 and domain.MaxNights.
func validateNewBooking(nb domain.NewBooking) error {
	if strings.TrimSpace(nb.GuestName) == "" {
		return fmt.Errorf("%w: guest_name is required", domain.ErrValidation)
	}
	if strings.TrimSpace(nb.UnitID) == "" {
		return fmt.Errorf("%w: unit_id is required", domain.ErrValidation)
	}
	if nb.CheckInDate.IsZero() {
		return fmt.Errorf("%w: check_in_date is required", domain.ErrValidation)
	}
	if nb.NumberOfNights < 1 {
		return fmt.Errorf("%w: number_of_nights must be at least 1", domain.ErrValidation)
	}
	if nb.NumberOfNights > domain.MaxNights {
		return fmt.Errorf("%w: number_of_nights must be at most %d", domain.ErrValidation, domain.MaxNights)
	}
	return nil
}

func validateAddNights(n int) error {
	if n < 1 {
		return fmt.Errorf("%w: add_nights must be at least 1", domain.ErrValidation)
	}
	if n > domain.MaxNights {
		return fmt.Errorf("%w: add_nights must be at most %d", domain.ErrValidation, domain.MaxNights)
	}
	return nil
}

// fail classifies err, records the outcome and logs it. Rule violations are
// returned as they are; anything else is marked as a storage failure.
func (s *BookingService) fail(ctx context.Context, op string, err error, attrs ...any) error {
	if !isRejection(err) {
		err = fmt.Errorf("%w: %w", domain.ErrStorage, err)
	}
	s.observe(op, err)

	attrs = append(attrs, "operation", op, "error", err)
	if errors.Is(err, domain.ErrStorage) {
		s.log.ErrorContext(ctx, "booking write failed", attrs...)
	} else {
		s.log.InfoContext(ctx, "booking rejected", attrs...)
	}
	return err
}

func (s *BookingService) observe(op string, err error) {
	if s.outcomes == nil {
		return
	}
	s.outcomes.ObserveBookingOutcome(op, outcomeOf(op, err))
}

// publish hands event to the publisher. The booking is already committed, so
// a publish failure is logged and otherwise ignored.
func (s *BookingService) publish(ctx context.Context, event domain.BookingEvent) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishBookingEvent(ctx, event); err != nil {
		s.log.WarnContext(ctx, "booking event not published",
			"event_type", event.Type,
			"booking_id", event.Booking.ID,
			"error", err,
		)
	}
}

func outcomeOf(op string, err error) string {
	switch {
	case err == nil && op == OpExtend:
		return OutcomeExtended
	case err == nil:
		return OutcomeCreated
	case errors.Is(err, domain.ErrValidation):
		return OutcomeInvalidInput
	case errors.Is(err, domain.ErrNotFound):
		return OutcomeNotFound
	case errors.Is(err, domain.ErrDuplicateUnitBooking):
		return OutcomeDuplicateUnitBooking
	case errors.Is(err, domain.ErrGuestAlreadyBooked):
		return OutcomeGuestAlreadyBooked
	case errors.Is(err, domain.ErrUnitUnavailable):
		return OutcomeUnitUnavailable
	default:
		return OutcomeStorageError
	}
}

// isRejection reports whether err is a client-facing rejection rather than a
// storage failure.
func isRejection(err error) bool {
	for _, kind := range []error{
		domain.ErrValidation,
		domain.ErrNotFound,
		domain.ErrDuplicateUnitBooking,
		domain.ErrGuestAlreadyBooked,
		domain.ErrUnitUnavailable,
	} {
		if errors.Is(err, kind) {
			return true
		}
	}
	return false
}

// explainConflict attaches a reason to a constraint violation reported by the
// store. That happens when a concurrent writer committed between our checks
// and our write, which the locks normally rule out.
func explainConflict(err error, unitReason string) error {
	switch {
	case errors.Is(err, domain.ErrUnitUnavailable):
		return fmt.Errorf("%w: %s", domain.ErrUnitUnavailable, unitReason)
	case errors.Is(err, domain.ErrGuestAlreadyBooked):
		return fmt.Errorf("%w: %s", domain.ErrGuestAlreadyBooked, reasonGuestElsewhere)
	case errors.Is(err, domain.ErrDuplicateUnitBooking):
		return fmt.Errorf("%w: %s", domain.ErrDuplicateUnitBooking, reasonDuplicateUnit)
	}
	return err
}

func explainNotFound(err error) error {
	if errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("%w: %s", domain.ErrNotFound, reasonInvalidBooking)
	}
	return err
}

func unitLockKey(unitID string) string { return "unit:" + unitID }

func guestLockKey(guestName string) string { return "guest:" + guestName }
