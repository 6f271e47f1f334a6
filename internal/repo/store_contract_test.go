package repo_test

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/unit-booking/internal/domain"
	"github.com/pkordes/unit-booking/internal/repo"
)

// runStoreContract exercises behaviour every BookingStore must share.
// newStore must return an empty, isolated store for each call.
//
// Writes that are expected to violate a constraint run inside WithinLock: on
// Postgres that scopes them to a savepoint, so the surrounding test
// transaction stays usable for the assertions that follow.
func runStoreContract(t *testing.T, newStore func(t *testing.T) repo.BookingStore) {
	t.Run("Create assigns id and timestamps", func(t *testing.T) {
		r := newStore(t)
		ctx := context.Background()

		input := bookingFixture("Alice", uniqueUnit())
		got, err := r.Create(ctx, input)

		require.NoError(t, err)
		assert.NotEqual(t, uuid.Nil, got.ID, "ID should be generated")
		assert.Equal(t, input.GuestName, got.GuestName)
		assert.Equal(t, input.UnitID, got.UnitID)
		assert.True(t, got.CheckInDate.Equal(input.CheckInDate), "CheckInDate mismatch")
		assert.Equal(t, input.NumberOfNights, got.NumberOfNights)
		assert.False(t, got.CreatedAt.IsZero(), "CreatedAt should be set")
		assert.False(t, got.UpdatedAt.IsZero(), "UpdatedAt should be set")
	})

	t.Run("Create normalizes check-in to a date", func(t *testing.T) {
		r := newStore(t)

		input := bookingFixture("Alice", uniqueUnit())
		input.CheckInDate = time.Date(2024, 1, 1, 15, 30, 0, 0, time.UTC)
		got, err := r.Create(context.Background(), input)

		require.NoError(t, err)
		assert.True(t, got.CheckInDate.Equal(day(2024, 1, 1)))
	})

	t.Run("GetByID", func(t *testing.T) {
		r := newStore(t)
		ctx := context.Background()

		created, err := r.Create(ctx, bookingFixture("Alice", uniqueUnit()))
		require.NoError(t, err)

		got, err := r.GetByID(ctx, created.ID)

		require.NoError(t, err)
		assert.Equal(t, created.ID, got.ID)
		assert.Equal(t, created.GuestName, got.GuestName)
	})

	t.Run("GetByID not found", func(t *testing.T) {
		r := newStore(t)

		_, err := r.GetByID(context.Background(), uuid.New())

		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("Find filters", func(t *testing.T) {
		r := newStore(t)
		ctx := context.Background()
		u1, u2 := uniqueUnit(), uniqueUnit()
		alice, bob := uniqueGuest("Alice"), uniqueGuest("Bob")

		a := mustCreate(t, r, domain.Booking{GuestName: alice, UnitID: u1, CheckInDate: day(2024, 1, 1), NumberOfNights: 3})
		b := mustCreate(t, r, domain.Booking{GuestName: bob, UnitID: u1, CheckInDate: day(2024, 1, 4), NumberOfNights: 2})
		c := mustCreate(t, r, domain.Booking{GuestName: bob, UnitID: u2, CheckInDate: day(2024, 2, 1), NumberOfNights: 1})

		byGuest, err := r.Find(ctx, repo.BookingFilter{GuestName: &bob})
		require.NoError(t, err)
		assert.Equal(t, []uuid.UUID{b.ID, c.ID}, ids(byGuest))

		byUnit, err := r.Find(ctx, repo.BookingFilter{UnitID: &u1})
		require.NoError(t, err)
		assert.Equal(t, []uuid.UUID{a.ID, b.ID}, ids(byUnit))

		byBoth, err := r.Find(ctx, repo.BookingFilter{GuestName: &alice, UnitID: &u1})
		require.NoError(t, err)
		assert.Equal(t, []uuid.UUID{a.ID}, ids(byBoth))

		none, err := r.Find(ctx, repo.BookingFilter{GuestName: &alice, UnitID: &u2})
		require.NoError(t, err)
		assert.Empty(t, none)
	})

	t.Run("Find overlapping uses half-open ranges", func(t *testing.T) {
		r := newStore(t)
		ctx := context.Background()
		unit := uniqueUnit()

		a := mustCreate(t, r, domain.Booking{GuestName: uniqueGuest("Alice"), UnitID: unit, CheckInDate: day(2024, 1, 1), NumberOfNights: 3})

		adjacent := domain.NewStay(day(2024, 1, 4), 2)
		got, err := r.Find(ctx, repo.BookingFilter{UnitID: &unit, Overlapping: &adjacent})
		require.NoError(t, err)
		assert.Empty(t, got, "back-to-back stays must not match")

		lastNight := domain.NewStay(day(2024, 1, 3), 1)
		got, err = r.Find(ctx, repo.BookingFilter{UnitID: &unit, Overlapping: &lastNight})
		require.NoError(t, err)
		assert.Equal(t, []uuid.UUID{a.ID}, ids(got))
	})

	t.Run("UpdateNights", func(t *testing.T) {
		r := newStore(t)
		ctx := context.Background()

		created := mustCreate(t, r, bookingFixture("Alice", uniqueUnit()))

		updated, err := r.UpdateNights(ctx, created.ID, 5)

		require.NoError(t, err)
		assert.Equal(t, created.ID, updated.ID)
		assert.Equal(t, 5, updated.NumberOfNights)
		assert.True(t, updated.CheckInDate.Equal(created.CheckInDate))
	})

	t.Run("UpdateNights not found", func(t *testing.T) {
		r := newStore(t)

		_, err := r.UpdateNights(context.Background(), uuid.New(), 2)

		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("ListPaged", func(t *testing.T) {
		r := newStore(t)
		ctx := context.Background()
		unit := uniqueUnit()

		for i := range 5 {
			mustCreate(t, r, domain.Booking{
				GuestName:      uniqueGuest("Guest"),
				UnitID:         unit,
				CheckInDate:    day(2024, 1, 1).AddDate(0, 0, i*2),
				NumberOfNights: 2,
			})
		}

		page, total, err := r.ListPaged(ctx, repo.BookingFilter{UnitID: &unit}, domain.PaginationParams{Page: 2, Limit: 2})

		require.NoError(t, err)
		assert.EqualValues(t, 5, total)
		require.Len(t, page, 2)
		assert.True(t, page[0].CheckInDate.Equal(day(2024, 1, 5)), "page 2 starts at the third booking")

		last, _, err := r.ListPaged(ctx, repo.BookingFilter{UnitID: &unit}, domain.PaginationParams{Page: 3, Limit: 2})
		require.NoError(t, err)
		assert.Len(t, last, 1)
	})

	t.Run("ListPaged far past the end", func(t *testing.T) {
		r := newStore(t)
		unit := uniqueUnit()
		mustCreate(t, r, domain.Booking{GuestName: uniqueGuest("Alice"), UnitID: unit, CheckInDate: day(2024, 1, 1), NumberOfNights: 1})

		huge := math.MaxInt
		limit := domain.MaxPageLimit
		page, total, err := r.ListPaged(context.Background(), repo.BookingFilter{UnitID: &unit}, domain.NewPaginationParams(&huge, &limit))

		require.NoError(t, err)
		assert.EqualValues(t, 1, total)
		assert.Empty(t, page)
	})

	t.Run("night count range constraint", func(t *testing.T) {
		r := newStore(t)

		err := createWithinLock(context.Background(), r, domain.Booking{
			GuestName: uniqueGuest("Alice"), UnitID: uniqueUnit(), CheckInDate: day(2024, 1, 1), NumberOfNights: domain.MaxNights + 1,
		})

		assert.ErrorIs(t, err, domain.ErrValidation)
	})

	t.Run("unit overlap constraint", func(t *testing.T) {
		r := newStore(t)
		ctx := context.Background()
		unit := uniqueUnit()
		mustCreate(t, r, domain.Booking{GuestName: uniqueGuest("Alice"), UnitID: unit, CheckInDate: day(2024, 1, 1), NumberOfNights: 3})

		err := createWithinLock(ctx, r, domain.Booking{GuestName: uniqueGuest("Carl"), UnitID: unit, CheckInDate: day(2024, 1, 3), NumberOfNights: 1})

		assert.ErrorIs(t, err, domain.ErrUnitUnavailable)
	})

	t.Run("guest and unit uniqueness constraint", func(t *testing.T) {
		r := newStore(t)
		ctx := context.Background()
		unit, alice := uniqueUnit(), uniqueGuest("Alice")
		mustCreate(t, r, domain.Booking{GuestName: alice, UnitID: unit, CheckInDate: day(2024, 1, 1), NumberOfNights: 3})

		err := createWithinLock(ctx, r, domain.Booking{GuestName: alice, UnitID: unit, CheckInDate: day(2024, 6, 1), NumberOfNights: 1})

		assert.ErrorIs(t, err, domain.ErrDuplicateUnitBooking)
	})

	t.Run("guest overlap constraint", func(t *testing.T) {
		r := newStore(t)
		ctx := context.Background()
		alice := uniqueGuest("Alice")
		mustCreate(t, r, domain.Booking{GuestName: alice, UnitID: uniqueUnit(), CheckInDate: day(2024, 1, 1), NumberOfNights: 3})

		err := createWithinLock(ctx, r, domain.Booking{GuestName: alice, UnitID: uniqueUnit(), CheckInDate: day(2024, 1, 2), NumberOfNights: 1})

		assert.ErrorIs(t, err, domain.ErrGuestAlreadyBooked)
	})

	t.Run("UpdateNights into a neighbour", func(t *testing.T) {
		r := newStore(t)
		ctx := context.Background()
		unit := uniqueUnit()
		a := mustCreate(t, r, domain.Booking{GuestName: uniqueGuest("Alice"), UnitID: unit, CheckInDate: day(2024, 1, 1), NumberOfNights: 3})
		mustCreate(t, r, domain.Booking{GuestName: uniqueGuest("Bob"), UnitID: unit, CheckInDate: day(2024, 1, 4), NumberOfNights: 2})

		err := r.WithinLock(ctx, []string{"unit:" + unit}, func(ctx context.Context, tx repo.BookingRepo) error {
			_, err := tx.UpdateNights(ctx, a.ID, 5)
			return err
		})
		require.ErrorIs(t, err, domain.ErrUnitUnavailable)

		got, err := r.GetByID(ctx, a.ID)
		require.NoError(t, err)
		assert.Equal(t, 3, got.NumberOfNights, "failed update must leave the booking unchanged")
	})

	t.Run("WithinLock passes through fn result", func(t *testing.T) {
		r := newStore(t)
		sentinel := errors.New("boom")

		err := r.WithinLock(context.Background(), []string{"unit:x", "guest:y", "unit:x"}, func(context.Context, repo.BookingRepo) error {
			return sentinel
		})

		assert.ErrorIs(t, err, sentinel)
	})
}

// ---- helpers ---------------------------------------------------------------

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// uniqueUnit returns a unit id no other test uses, so Postgres tests stay
// independent of any rows committed outside the test transaction.
func uniqueUnit() string {
	return "unit-" + uuid.NewString()
}

func uniqueGuest(prefix string) string {
	return prefix + "-" + uuid.NewString()
}

// bookingFixture returns a three-night booking from 2024-01-01 for use in tests.
func bookingFixture(guest, unit string) domain.Booking {
	return domain.Booking{
		GuestName:      uniqueGuest(guest),
		UnitID:         unit,
		CheckInDate:    day(2024, 1, 1),
		NumberOfNights: 3,
	}
}

func mustCreate(t *testing.T, r repo.BookingRepo, b domain.Booking) domain.Booking {
	t.Helper()
	created, err := r.Create(context.Background(), b)
	require.NoError(t, err)
	return created
}

func createWithinLock(ctx context.Context, s repo.BookingStore, b domain.Booking) error {
	return s.WithinLock(ctx, []string{"unit:" + b.UnitID}, func(ctx context.Context, r repo.BookingRepo) error {
		_, err := r.Create(ctx, b)
		return err
	})
}

func ids(bookings []domain.Booking) []uuid.UUID {
	out := make([]uuid.UUID, len(bookings))
	for i, b := range bookings {
		out[i] = b.ID
	}
	return out
}
