package testutil_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/unit-booking/migrations"
	"github.com/pkordes/unit-booking/testutil"
)

var bookingConstraints = []string{
	"bookings_guest_unit_key",
	"bookings_unit_no_overlap",
	"bookings_guest_no_overlap",
	"bookings_nights_range",
}

// TestMigrations resets the test database to version 0, applies every
// migration, checks the bookings table and its constraints, and rolls back
// again. It finishes by re-applying so later packages find the schema.
func TestMigrations(t *testing.T) {
	db := testutil.NewSQLDB(t)
	ctx := context.Background()

	provider, err := goose.NewProvider(goose.DialectPostgres, db, migrations.FS)
	require.NoError(t, err, "create goose provider")

	_, err = provider.DownTo(ctx, 0)
	require.NoError(t, err, "initial reset")

	results, err := provider.Up(ctx)
	require.NoError(t, err, "goose up")
	require.NotEmpty(t, results)

	version, err := provider.GetDBVersion(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, version)

	assert.True(t, tableExists(t, db, "bookings"))
	for _, name := range bookingConstraints {
		assert.True(t, constraintExists(t, db, "bookings", name), "constraint %q", name)
	}

	_, err = provider.DownTo(ctx, 0)
	require.NoError(t, err, "goose down-to 0")
	assert.False(t, tableExists(t, db, "bookings"))

	_, err = migrations.Up(ctx, db)
	require.NoError(t, err, "re-apply")
}

// TestBookingConstraints inserts conflicting rows inside a rolled-back
// transaction and checks which constraint rejects each one.
func TestBookingConstraints(t *testing.T) {
	ok, err := testutil.MigrateFromEnv(context.Background())
	require.NoError(t, err)
	if !ok {
		t.Skip(testutil.DSNEnv + " not set; skipping integration test")
	}

	tx := testutil.NewTx(t)
	ctx := context.Background()

	const insert = `
		INSERT INTO bookings (guest_name, unit_id, check_in_date, number_of_nights)
		VALUES (@guest, @unit, @check_in, @nights)`
	seed := pgx.NamedArgs{"guest": "Alice", "unit": "unit-1", "check_in": "2030-01-10", "nights": 3}
	_, err = tx.Exec(ctx, insert, seed)
	require.NoError(t, err, "seed booking")

	cases := []struct {
		name       string
		args       pgx.NamedArgs
		constraint string
		sqlState   string
	}{
		{
			name:       "same guest and unit, later dates",
			args:       pgx.NamedArgs{"guest": "Alice", "unit": "unit-1", "check_in": "2030-03-01", "nights": 1},
			constraint: "bookings_guest_unit_key",
			sqlState:   "23505",
		},
		{
			name:       "other guest on an occupied night",
			args:       pgx.NamedArgs{"guest": "Bob", "unit": "unit-1", "check_in": "2030-01-12", "nights": 2},
			constraint: "bookings_unit_no_overlap",
			sqlState:   "23P01",
		},
		{
			name:       "same guest in another unit on the same nights",
			args:       pgx.NamedArgs{"guest": "Alice", "unit": "unit-2", "check_in": "2030-01-11", "nights": 1},
			constraint: "bookings_guest_no_overlap",
			sqlState:   "23P01",
		},
		{
			name:       "stay longer than a year",
			args:       pgx.NamedArgs{"guest": "Carol", "unit": "unit-3", "check_in": "2030-01-01", "nights": 366},
			constraint: "bookings_nights_range",
			sqlState:   "23514",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			// A savepoint keeps the outer transaction usable after the failure.
			sp, err := tx.Begin(ctx)
			require.NoError(t, err)
			defer func() { _ = sp.Rollback(ctx) }()

			_, err = sp.Exec(ctx, insert, tc.args)

			var pgErr *pgconn.PgError
			require.True(t, errors.As(err, &pgErr), "want a Postgres error, got %v", err)
			assert.Equal(t, tc.sqlState, pgErr.Code)
			assert.Equal(t, tc.constraint, pgErr.ConstraintName)
		})
	}

	t.Run("back-to-back stays do not collide", func(t *testing.T) {
		_, err := tx.Exec(ctx, insert,
			pgx.NamedArgs{"guest": "Bob", "unit": "unit-1", "check_in": "2030-01-13", "nights": 2})
		require.NoError(t, err)
	})
}

func tableExists(t *testing.T, db *sql.DB, table string) bool {
	t.Helper()

	const q = `
		SELECT EXISTS (
			SELECT 1 FROM information_schema.tables
			WHERE table_schema = 'public' AND table_name = $1
		)`
	var exists bool
	require.NoError(t, db.QueryRowContext(context.Background(), q, table).Scan(&exists))
	return exists
}

func constraintExists(t *testing.T, db *sql.DB, table, name string) bool {
	t.Helper()

	const q = `
		SELECT EXISTS (
			SELECT 1 FROM pg_constraint
			WHERE conrelid = $1::regclass AND conname = $2
		)`
	var exists bool
	require.NoError(t, db.QueryRowContext(context.Background(), q, table, name).Scan(&exists))
	return exists
}
