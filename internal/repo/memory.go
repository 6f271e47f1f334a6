package repo

import (
	"bytes"
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pkordes/unit-booking/internal/domain"
)

// memoryBookingStore keeps bookings in process memory. It enforces the same
// constraints as the Postgres schema so that the service behaves identically
// against either store, including when a concurrent writer slips past the
// service-level checks.
type memoryBookingStore struct {
	mu   sync.RWMutex
	byID map[uuid.UUID]domain.Booking

	locks *keyedMutex
	now   func() time.Time
}

// NewMemoryBookingRepo returns an empty in-memory BookingStore.
// Data is lost when the process exits.
func NewMemoryBookingRepo() BookingStore {
	return &memoryBookingStore{
		byID:  make(map[uuid.UUID]domain.Booking),
		locks: newKeyedMutex(),
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// WithinLock holds a mutex per key (acquired in sorted order) for the duration of fn.
// Writes made by fn are visible immediately; there is no rollback.
func (s *memoryBookingStore) WithinLock(ctx context.Context, keys []string, fn func(ctx context.Context, r BookingRepo) error) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("repo.BookingStore.WithinLock: %w", err)
	}

	ordered := lockOrder(keys)
	for _, key := range ordered {
		s.locks.Lock(key)
	}
	defer func() {
		for i := len(ordered) - 1; i >= 0; i-- {
			s.locks.Unlock(ordered[i])
		}
	}()

	return fn(ctx, s)
}

func (s *memoryBookingStore) Create(_ context.Context, b domain.Booking) (domain.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b.CheckInDate = domain.NormalizeDate(b.CheckInDate)
	if err := s.checkConstraints(b, uuid.Nil); err != nil {
		return domain.Booking{}, fmt.Errorf("repo.BookingRepo.Create: %w", err)
	}

	now := s.now()
	b.ID = uuid.New()
	b.CreatedAt = now
	b.UpdatedAt = now
	s.byID[b.ID] = b
	return b, nil
}

func (s *memoryBookingStore) GetByID(_ context.Context, id uuid.UUID) (domain.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.byID[id]
	if !ok {
		return domain.Booking{}, fmt.Errorf("repo.BookingRepo.GetByID: %w", domain.ErrNotFound)
	}
	return b, nil
}

func (s *memoryBookingStore) UpdateNights(_ context.Context, id uuid.UUID, nights int) (domain.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.byID[id]
	if !ok {
		return domain.Booking{}, fmt.Errorf("repo.BookingRepo.UpdateNights: %w", domain.ErrNotFound)
	}

	b.NumberOfNights = nights
	if err := s.checkConstraints(b, id); err != nil {
		return domain.Booking{}, fmt.Errorf("repo.BookingRepo.UpdateNights: %w", err)
	}

	b.UpdatedAt = s.now()
	s.byID[id] = b
	return b, nil
}

func (s *memoryBookingStore) Find(_ context.Context, filter BookingFilter) ([]domain.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.match(filter), nil
}

func (s *memoryBookingStore) ListPaged(_ context.Context, filter BookingFilter, p domain.PaginationParams) ([]domain.Booking, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := s.match(filter)
	total := int64(len(all))

	start := min(p.Offset(), len(all))
	end := min(start+p.Limit, len(all))
	return all[start:end], total, nil
}

// match returns the bookings accepted by filter, ordered by check-in date and
// then creation time, with the id as a final tiebreak. Callers must hold s.mu.
func (s *memoryBookingStore) match(f BookingFilter) []domain.Booking {
	out := []domain.Booking{}
	for _, b := range s.byID {
		if f.GuestName != nil && b.GuestName != *f.GuestName {
			continue
		}
		if f.UnitID != nil && b.UnitID != *f.UnitID {
			continue
		}
		if f.Overlapping != nil && !b.Stay().Overlaps(*f.Overlapping) {
			continue
		}
		out = append(out, b)
	}
	slices.SortFunc(out, func(a, b domain.Booking) int {
		if c := a.CheckInDate.Compare(b.CheckInDate); c != 0 {
			return c
		}
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return bytes.Compare(a.ID[:], b.ID[:])
	})
	return out
}

// checkConstraints mirrors the table constraints: a bounded night count, one
// booking per guest and unit, and no overlapping stays per unit or per guest. The booking with id
// self is ignored so that updates do not collide with their own row.
// Callers must hold s.mu.
func (s *memoryBookingStore) checkConstraints(b domain.Booking, self uuid.UUID) error {
	if b.NumberOfNights < 1 || b.NumberOfNights > domain.MaxNights {
		return fmt.Errorf("%w: number_of_nights out of range", domain.ErrValidation)
	}

	stay := b.Stay()
	for id, other := range s.byID {
		if id == self {
			continue
		}
		if other.GuestName == b.GuestName && other.UnitID == b.UnitID {
			return domain.ErrDuplicateUnitBooking
		}
		if !other.Stay().Overlaps(stay) {
			continue
		}
		if other.UnitID == b.UnitID {
			return domain.ErrUnitUnavailable
		}
		if other.GuestName == b.GuestName {
			return domain.ErrGuestAlreadyBooked
		}
	}
	return nil
}

// keyedMutex hands out one mutex per key and forgets keys nobody holds.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*refMutex
}

type refMutex struct {
	sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*refMutex)}
}

// Lock blocks until key is held by the caller.
func (k *keyedMutex) Lock(key string) {
	k.mu.Lock()
	m, ok := k.locks[key]
	if !ok {
		m = &refMutex{}
		k.locks[key] = m
	}
	m.refs++
	k.mu.Unlock()

	m.Lock()
}

// Unlock releases key. It panics if key is not held.
func (k *keyedMutex) Unlock(key string) {
	k.mu.Lock()
	defer k.mu.Unlock()

	m, ok := k.locks[key]
	if !ok {
		panic("repo: unlock of unlocked key " + key)
	}
	m.refs--
	if m.refs == 0 {
		delete(k.locks, key)
	}
	m.Unlock()
}
