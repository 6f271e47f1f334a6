// Package repo contains all persistence logic for the unit booking service.
// Each store implements the interfaces in this file; the Postgres store lives
// alongside an in-memory store with the same constraint semantics.
// No business rules live here, only queries, type mapping and the storage-level
// constraints that back the service's invariants.
package repo

import (
	"context"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/pkordes/unit-booking/internal/domain"
)

// db is the minimal interface satisfied by *pgxpool.Pool, pgx.Conn, and pgx.Tx.
// Accepting this interface instead of *pgxpool.Pool directly allows integration
// tests to pass a transaction that is rolled back after each test, giving free
// per-test isolation without any manual cleanup.
type db interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// txBeginner is a db that can open a transaction. *pgxpool.Pool opens a real
// transaction; pgx.Tx opens a savepoint, which is what the integration tests use.
type txBeginner interface {
	db
	Begin(ctx context.Context) (pgx.Tx, error)
}

// BookingFilter narrows a booking query. Nil fields are not applied; set
// fields are combined with AND.
type BookingFilter struct {
	// GuestName matches guest_name exactly (case-sensitive).
	GuestName *string
	// UnitID matches unit_id exactly.
	UnitID *string
	// Overlapping keeps only bookings whose stay shares a night with this one.
	Overlapping *domain.Stay
}

// BookingReader is the read side of the store. The conflict checker depends on
// this narrow interface only.
type BookingReader interface {
	// Find returns every booking matching filter, ordered by check-in date.
	Find(ctx context.Context, filter BookingFilter) ([]domain.Booking, error)

	// GetByID retrieves a single booking by its UUID primary key.
	// Returns domain.ErrNotFound if no booking with that ID exists.
	GetByID(ctx context.Context, id uuid.UUID) (domain.Booking, error)
}

// BookingRepo defines the persistence operations for Bookings.
type BookingRepo interface {
	BookingReader

	// Create inserts a new booking and returns the persisted record (with
	// generated id, created_at and updated_at populated).
	// Storage constraints surface as domain.ErrUnitUnavailable,
	// domain.ErrGuestAlreadyBooked or domain.ErrDuplicateUnitBooking.
	Create(ctx context.Context, b domain.Booking) (domain.Booking, error)

	// UpdateNights sets number_of_nights on an existing booking and returns the
	// updated record. Returns domain.ErrNotFound if no booking with that ID exists.
	UpdateNights(ctx context.Context, id uuid.UUID, nights int) (domain.Booking, error)

	// ListPaged returns one page of bookings matching filter and the total count.
	ListPaged(ctx context.Context, filter BookingFilter, p domain.PaginationParams) ([]domain.Booking, int64, error)
}

// BookingStore is a BookingRepo that can also serialize a check-then-write
// sequence.
type BookingStore interface {
	BookingRepo

	// WithinLock runs fn while holding an exclusive lock on every key. The repo
	// passed to fn observes its own writes; on Postgres it is bound to a single
	// transaction that commits only if fn returns nil. Locks are released on
	// every exit path.
	WithinLock(ctx context.Context, keys []string, fn func(ctx context.Context, r BookingRepo) error) error
}

// Storage constraint names from migrations/00001_create_bookings.sql.
const (
	constraintUnitNoOverlap  = "bookings_unit_no_overlap"
	constraintGuestNoOverlap = "bookings_guest_no_overlap"
	constraintGuestUnitKey   = "bookings_guest_unit_key"
	constraintNightsRange    = "bookings_nights_range"
)

const bookingColumns = "id, guest_name, unit_id, check_in_date, number_of_nights, created_at, updated_at"

// psql builds Postgres-flavoured ($1, $2, ...) statements.
var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// pgBookingRepo is the Postgres implementation of BookingRepo.
type pgBookingRepo struct {
	db db
}

// pgBookingStore adds transaction-scoped locking on top of pgBookingRepo.
type pgBookingStore struct {
	pgBookingRepo
	conn txBeginner
}

// NewBookingRepo constructs a BookingStore backed by the provided connection.
// In production pass *pgxpool.Pool; in tests pass a pgx.Tx for rollback isolation.
func NewBookingRepo(conn txBeginner) BookingStore {
	return &pgBookingStore{pgBookingRepo: pgBookingRepo{db: conn}, conn: conn}
}

// Create inserts a new booking row and returns the full persisted record.
func (r *pgBookingRepo) Create(ctx context.Context, b domain.Booking) (domain.Booking, error) {
	const q = `
		INSERT INTO bookings (guest_name, unit_id, check_in_date, number_of_nights)
		VALUES (@guest_name, @unit_id, @check_in_date, @number_of_nights)
		RETURNING ` + bookingColumns

	args := pgx.NamedArgs{
		"guest_name":       b.GuestName,
		"unit_id":          b.UnitID,
		"check_in_date":    domain.NormalizeDate(b.CheckInDate),
		"number_of_nights": b.NumberOfNights,
	}

	result, err := scanBooking(r.db.QueryRow(ctx, q, args))
	if err != nil {
		return domain.Booking{}, fmt.Errorf("repo.BookingRepo.Create: %w", translateConstraint(err))
	}
	return result, nil
}

// GetByID retrieves a booking by primary key.
func (r *pgBookingRepo) GetByID(ctx context.Context, id uuid.UUID) (domain.Booking, error) {
	const q = `SELECT ` + bookingColumns + ` FROM bookings WHERE id = @id`

	result, err := scanBooking(r.db.QueryRow(ctx, q, pgx.NamedArgs{"id": id}))
	if err != nil {
		return domain.Booking{}, fmt.Errorf("repo.BookingRepo.GetByID: %w", err)
	}
	return result, nil
}

// UpdateNights overwrites number_of_nights and refreshes updated_at.
func (r *pgBookingRepo) UpdateNights(ctx context.Context, id uuid.UUID, nights int) (domain.Booking, error) {
	const q = `
		UPDATE bookings
		SET number_of_nights = @number_of_nights,
		    updated_at       = now()
		WHERE id = @id
		RETURNING ` + bookingColumns

	row := r.db.QueryRow(ctx, q, pgx.NamedArgs{"id": id, "number_of_nights": nights})
	result, err := scanBooking(row)
	if err != nil {
		return domain.Booking{}, fmt.Errorf("repo.BookingRepo.UpdateNights: %w", translateConstraint(err))
	}
	return result, nil
}

// Find returns all bookings matching filter ordered by check-in date.
func (r *pgBookingRepo) Find(ctx context.Context, filter BookingFilter) ([]domain.Booking, error) {
	q, args, err := applyFilter(psql.Select(bookingColumns).From("bookings"), filter).
		OrderBy("check_in_date", "id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("repo.BookingRepo.Find: build query: %w", err)
	}

	bookings, err := r.queryBookings(ctx, q, args)
	if err != nil {
		return nil, fmt.Errorf("repo.BookingRepo.Find: %w", err)
	}
	return bookings, nil
}

// ListPaged returns one page of bookings matching filter and the total match count.
func (r *pgBookingRepo) ListPaged(ctx context.Context, filter BookingFilter, p domain.PaginationParams) ([]domain.Booking, int64, error) {
	countQ, countArgs, err := applyFilter(psql.Select("count(*)").From("bookings"), filter).ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("repo.BookingRepo.ListPaged: build count: %w", err)
	}

	var total int64
	if err := r.db.QueryRow(ctx, countQ, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("repo.BookingRepo.ListPaged: count: %w", err)
	}

	q, args, err := applyFilter(psql.Select(bookingColumns).From("bookings"), filter).
		OrderBy("check_in_date", "id").
		Limit(uint64(p.Limit)).
		Offset(uint64(p.Offset())).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("repo.BookingRepo.ListPaged: build query: %w", err)
	}

	bookings, err := r.queryBookings(ctx, q, args)
	if err != nil {
		return nil, 0, fmt.Errorf("repo.BookingRepo.ListPaged: %w", err)
	}
	return bookings, total, nil
}

func (r *pgBookingRepo) queryBookings(ctx context.Context, q string, args []any) ([]domain.Booking, error) {
	rows, err := r.db.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	bookings := []domain.Booking{}
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		bookings = append(bookings, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return bookings, nil
}

// applyFilter adds one WHERE clause per non-nil filter field.
// The overlap clause relies on date + integer arithmetic and the default
// '[)' bounds of daterange, matching domain.Stay.Overlaps.
func applyFilter(b sq.SelectBuilder, f BookingFilter) sq.SelectBuilder {
	if f.GuestName != nil {
		b = b.Where(sq.Eq{"guest_name": *f.GuestName})
	}
	if f.UnitID != nil {
		b = b.Where(sq.Eq{"unit_id": *f.UnitID})
	}
	if f.Overlapping != nil {
		b = b.Where(
			"daterange(check_in_date, check_in_date + number_of_nights) && daterange(?::date, ?::date)",
			f.Overlapping.Start, f.Overlapping.End,
		)
	}
	return b
}

// scanner is satisfied by both pgx.Row and pgx.Rows, allowing scanBooking to be
// reused for both QueryRow and Query calls.
type scanner interface {
	Scan(dest ...any) error
}

// scanBooking maps a single database row into a domain.Booking.
func scanBooking(s scanner) (domain.Booking, error) {
	var (
		b       domain.Booking
		id      pgtype.UUID
		checkIn pgtype.Date
	)

	err := s.Scan(&id, &b.GuestName, &b.UnitID, &checkIn, &b.NumberOfNights, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Booking{}, domain.ErrNotFound
		}
		return domain.Booking{}, err
	}

	b.ID = uuid.UUID(id.Bytes)
	b.CheckInDate = domain.NormalizeDate(checkIn.Time)
	return b, nil
}

// translateConstraint maps a constraint violation raised by a losing concurrent
// writer onto the domain error for the invariant it protects.
// Any other error is returned unchanged.
func translateConstraint(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.ConstraintName {
	case constraintUnitNoOverlap:
		return domain.ErrUnitUnavailable
	case constraintGuestNoOverlap:
		return domain.ErrGuestAlreadyBooked
	case constraintGuestUnitKey:
		return domain.ErrDuplicateUnitBooking
	case constraintNightsRange:
		return fmt.Errorf("%w: number_of_nights out of range", domain.ErrValidation)
	}
	return err
}
