package expiry

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	domainBooking "github.com/booking-engine/booking-engine/internal/domain/booking"
)

// Resolver drives the expiry transition. Implemented by the offer service.
type Resolver interface {
	OnExpire(ctx context.Context, offerID uuid.UUID) error
}

// Scheduler is the offer clock: a one-shot timer per open offer. The
// timers are best effort; correctness comes from the ledger's conditional
// write (a timer firing after a Cancel, or twice, loses the race and is a
// no-op) and from Recover/Run, which re-derive deadlines from persisted
// bookings so a restart never leaves offers open forever.
type Scheduler struct {
	mu       sync.Mutex
	timers   map[uuid.UUID]*time.Timer
	bookings domainBooking.Repository
	resolver Resolver
	logger   zerolog.Logger
}

func NewScheduler(bookings domainBooking.Repository, logger zerolog.Logger) *Scheduler {
	return &Scheduler{
		timers:   map[uuid.UUID]*time.Timer{},
		bookings: bookings,
		logger:   logger.With().Str("service", "expiry").Logger(),
	}
}

// Bind wires the resolver after construction; the offer service and the
// scheduler reference each other.
func (s *Scheduler) Bind(r Resolver) {
	s.resolver = r
}

// Schedule arms the one-shot timer for an offer. Re-scheduling replaces
// any existing timer.
func (s *Scheduler) Schedule(offerID uuid.UUID, deadline time.Time) {
	d := time.Until(deadline)
	if d < 0 {
		d = 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.timers[offerID]; ok {
		t.Stop()
	}
	s.timers[offerID] = time.AfterFunc(d, func() {
		s.fire(offerID)
	})
}

// Cancel disarms the timer. Cancelling one that already fired is benign.
func (s *Scheduler) Cancel(offerID uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.timers[offerID]; ok {
		t.Stop()
		delete(s.timers, offerID)
	}
}

func (s *Scheduler) fire(offerID uuid.UUID) {
	s.mu.Lock()
	delete(s.timers, offerID)
	s.mu.Unlock()
	if s.resolver == nil {
		return
	}
	if err := s.resolver.OnExpire(context.Background(), offerID); err != nil {
		s.logger.Error().Err(err).Str("bookingId", offerID.String()).Msg("expiry transition failed")
	}
}

// Recover re-arms timers from persisted bookings after a restart. Offers
// whose deadline already passed are resolved immediately.
func (s *Scheduler) Recover(ctx context.Context) error {
	if s.resolver == nil {
		return errors.New("offer clock has no resolver bound")
	}
	open, err := s.bookings.ListAwaiting(ctx)
	if err != nil {
		return err
	}
	now := time.Now()
	for _, b := range open {
		if b.ExpiredAt(now) {
			if err := s.resolver.OnExpire(ctx, b.BookingID); err != nil {
				s.logger.Error().Err(err).Str("bookingId", b.BookingID.String()).Msg("recovery expiry failed")
			}
			continue
		}
		s.Schedule(b.BookingID, b.Deadline)
	}
	s.logger.Info().Int("open", len(open)).Msg("offer clock recovered")
	return nil
}

// Run sweeps periodically for offers whose timer was lost (process
// restarts, missed fires). Blocks until the context is cancelled.
func (s *Scheduler) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Scheduler) sweep(ctx context.Context) {
	if s.resolver == nil {
		return
	}
	open, err := s.bookings.ListAwaiting(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("expiry sweep query failed")
		return
	}
	now := time.Now()
	for _, b := range open {
		if !b.ExpiredAt(now) {
			continue
		}
		if err := s.resolver.OnExpire(ctx, b.BookingID); err != nil {
			s.logger.Error().Err(err).Str("bookingId", b.BookingID.String()).Msg("sweep expiry failed")
		}
	}
}
