package service_test

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/pkordes/unit-booking/internal/domain"
	"github.com/pkordes/unit-booking/internal/repo"
	"github.com/pkordes/unit-booking/internal/service"
)

// mockBookingStore is a hand-written test double for repo.BookingStore.
// Each method is a function field; set only the ones your test needs.
// WithinLock records the keys it was asked for and runs fn against the mock
// itself unless withinLock is set.
type mockBookingStore struct {
	find         func(ctx context.Context, f repo.BookingFilter) ([]domain.Booking, error)
	getByID      func(ctx context.Context, id uuid.UUID) (domain.Booking, error)
	create       func(ctx context.Context, b domain.Booking) (domain.Booking, error)
	updateNights func(ctx context.Context, id uuid.UUID, nights int) (domain.Booking, error)
	listPaged    func(ctx context.Context, f repo.BookingFilter, p domain.PaginationParams) ([]domain.Booking, int64, error)
	withinLock   func(ctx context.Context, keys []string, fn func(ctx context.Context, r repo.BookingRepo) error) error

	lockedKeys [][]string
}

func (m *mockBookingStore) Find(ctx context.Context, f repo.BookingFilter) ([]domain.Booking, error) {
	return m.find(ctx, f)
}
func (m *mockBookingStore) GetByID(ctx context.Context, id uuid.UUID) (domain.Booking, error) {
	return m.getByID(ctx, id)
}
func (m *mockBookingStore) Create(ctx context.Context, b domain.Booking) (domain.Booking, error) {
	return m.create(ctx, b)
}
func (m *mockBookingStore) UpdateNights(ctx context.Context, id uuid.UUID, nights int) (domain.Booking, error) {
	return m.updateNights(ctx, id, nights)
}
func (m *mockBookingStore) ListPaged(ctx context.Context, f repo.BookingFilter, p domain.PaginationParams) ([]domain.Booking, int64, error) {
	return m.listPaged(ctx, f, p)
}
func (m *mockBookingStore) WithinLock(ctx context.Context, keys []string, fn func(ctx context.Context, r repo.BookingRepo) error) error {
	m.lockedKeys = append(m.lockedKeys, keys)
	if m.withinLock != nil {
		return m.withinLock(ctx, keys, fn)
	}
	return fn(ctx, m)
}

// compile-time check: mockBookingStore must satisfy repo.BookingStore.
var _ repo.BookingStore = (*mockBookingStore)(nil)

// recordingPublisher captures published events.
type recordingPublisher struct {
	mu     sync.Mutex
	events []domain.BookingEvent
	err    error
}

func (p *recordingPublisher) PublishBookingEvent(_ context.Context, e domain.BookingEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return p.err
}

var _ service.EventPublisher = (*recordingPublisher)(nil)

// recordingOutcomes captures outcome labels as "operation/outcome".
type recordingOutcomes struct {
	mu       sync.Mutex
	outcomes []string
}

func (r *recordingOutcomes) ObserveBookingOutcome(operation, outcome string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes = append(r.outcomes, operation+"/"+outcome)
}

func (r *recordingOutcomes) count(label string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, o := range r.outcomes {
		if o == label {
			n++
		}
	}
	return n
}

var _ service.OutcomeRecorder = (*recordingOutcomes)(nil)
