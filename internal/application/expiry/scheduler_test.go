package expiry

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainBooking "github.com/booking-engine/booking-engine/internal/domain/booking"
	"github.com/booking-engine/booking-engine/internal/infrastructure/memory"
)

// recordingResolver counts OnExpire calls per offer.
type recordingResolver struct {
	mu    sync.Mutex
	fired map[uuid.UUID]int
}

func newRecordingResolver() *recordingResolver {
	return &recordingResolver{fired: map[uuid.UUID]int{}}
}

func (r *recordingResolver) OnExpire(_ context.Context, offerID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fired[offerID]++
	return nil
}

func (r *recordingResolver) count(offerID uuid.UUID) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.fired[offerID]
}

func openBooking(t *testing.T, ledger *memory.Ledger, deadline time.Time) *domainBooking.Booking {
	t.Helper()
	b := &domainBooking.Booking{
		BookingID:      uuid.New(),
		CustomerID:     "customer-1",
		ProviderID:     "provider-1",
		ProviderKind:   domainBooking.ProviderTherapist,
		Price:          50000,
		ResponseStatus: domainBooking.StatusAwaitingResponse,
		Deadline:       deadline,
		CreatedAt:      time.Now(),
	}
	require.NoError(t, ledger.Bookings().Create(context.Background(), b))
	return b
}

func TestSchedule_FiresAtDeadline(t *testing.T) {
	ledger := memory.NewLedger()
	resolver := newRecordingResolver()
	s := NewScheduler(ledger.Bookings(), zerolog.Nop())
	s.Bind(resolver)

	offerID := uuid.New()
	s.Schedule(offerID, time.Now().Add(20*time.Millisecond))

	assert.Eventually(t, func() bool {
		return resolver.count(offerID) == 1
	}, time.Second, 5*time.Millisecond)
}

func TestCancel_DisarmsTimer(t *testing.T) {
	ledger := memory.NewLedger()
	resolver := newRecordingResolver()
	s := NewScheduler(ledger.Bookings(), zerolog.Nop())
	s.Bind(resolver)

	offerID := uuid.New()
	s.Schedule(offerID, time.Now().Add(30*time.Millisecond))
	s.Cancel(offerID)

	time.Sleep(80 * time.Millisecond)
	assert.Zero(t, resolver.count(offerID))
}

func TestCancel_AfterFireIsBenign(t *testing.T) {
	ledger := memory.NewLedger()
	resolver := newRecordingResolver()
	s := NewScheduler(ledger.Bookings(), zerolog.Nop())
	s.Bind(resolver)

	offerID := uuid.New()
	s.Schedule(offerID, time.Now().Add(-time.Second))

	require.Eventually(t, func() bool {
		return resolver.count(offerID) == 1
	}, time.Second, 5*time.Millisecond)

	s.Cancel(offerID)
	assert.Equal(t, 1, resolver.count(offerID))
}

func TestSchedule_ReplacesExistingTimer(t *testing.T) {
	ledger := memory.NewLedger()
	resolver := newRecordingResolver()
	s := NewScheduler(ledger.Bookings(), zerolog.Nop())
	s.Bind(resolver)

	offerID := uuid.New()
	s.Schedule(offerID, time.Now().Add(10*time.Millisecond))
	s.Schedule(offerID, time.Now().Add(40*time.Millisecond))

	time.Sleep(150 * time.Millisecond)
	assert.Equal(t, 1, resolver.count(offerID))
}

func TestRecover(t *testing.T) {
	ledger := memory.NewLedger()
	resolver := newRecordingResolver()
	s := NewScheduler(ledger.Bookings(), zerolog.Nop())
	s.Bind(resolver)

	stale := openBooking(t, ledger, time.Now().Add(-time.Minute))
	fresh := openBooking(t, ledger, time.Now().Add(30*time.Millisecond))

	require.NoError(t, s.Recover(context.Background()))

	// The elapsed offer resolves during recovery, the open one when its
	// re-armed timer fires.
	assert.Equal(t, 1, resolver.count(stale.BookingID))
	assert.Eventually(t, func() bool {
		return resolver.count(fresh.BookingID) == 1
	}, time.Second, 5*time.Millisecond)
}

func TestRecover_RequiresResolver(t *testing.T) {
	ledger := memory.NewLedger()
	s := NewScheduler(ledger.Bookings(), zerolog.Nop())

	openBooking(t, ledger, time.Now().Add(-time.Minute))

	require.Error(t, s.Recover(context.Background()))
}

func TestRun_SweepsElapsedOffers(t *testing.T) {
	ledger := memory.NewLedger()
	resolver := newRecordingResolver()
	s := NewScheduler(ledger.Bookings(), zerolog.Nop())
	s.Bind(resolver)

	// An offer whose timer was lost, as after a crash.
	b := openBooking(t, ledger, time.Now().Add(-time.Second))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Run(ctx, 10*time.Millisecond)

	assert.Eventually(t, func() bool {
		return resolver.count(b.BookingID) >= 1
	}, time.Second, 5*time.Millisecond)
}
