package offer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	appCommission "github.com/booking-engine/booking-engine/internal/application/commission"
	appSideEffect "github.com/booking-engine/booking-engine/internal/application/sideeffect"
	domainBooking "github.com/booking-engine/booking-engine/internal/domain/booking"
	domainCommission "github.com/booking-engine/booking-engine/internal/domain/commission"
)

var (
	// ErrIssuanceFailed means the commission write failed and the booking
	// was compensated back to a consistent state. The caller should retry.
	ErrIssuanceFailed = errors.New("commission issuance failed")

	// ErrProviderMismatch means the acting provider does not own the offer.
	ErrProviderMismatch = errors.New("offer belongs to another provider")
)

// Clock arms and disarms per-offer expiry timers.
type Clock interface {
	Schedule(offerID uuid.UUID, deadline time.Time)
	Cancel(offerID uuid.UUID)
}

// CreateInput carries a booking request from the intake flow.
type CreateInput struct {
	CustomerID      string
	ProviderID      string
	ProviderKind    domainBooking.ProviderKind
	ServiceType     string
	Price           int64
	DurationMinutes int
	Location        string
}

// Service owns the booking offer lifecycle. All response-status writes go
// through the ledger's compare-and-set, so several service instances can
// run the same offer concurrently and exactly one transition wins.
type Service struct {
	bookings     domainBooking.Repository
	issuer       *appCommission.Service
	effects      *appSideEffect.Service
	clock        Clock
	offerWindow  time.Duration
	storeTimeout time.Duration
	logger       zerolog.Logger
}

func NewService(
	bookings domainBooking.Repository,
	issuer *appCommission.Service,
	effects *appSideEffect.Service,
	clock Clock,
	offerWindow time.Duration,
	storeTimeout time.Duration,
	logger zerolog.Logger,
) *Service {
	return &Service{
		bookings:     bookings,
		issuer:       issuer,
		effects:      effects,
		clock:        clock,
		offerWindow:  offerWindow,
		storeTimeout: storeTimeout,
		logger:       logger.With().Str("service", "offer").Logger(),
	}
}

// Create turns a booking request into a time-boxed offer in
// AWAITING_RESPONSE, arms the expiry clock and dispatches the creation
// side effects.
func (s *Service) Create(ctx context.Context, in CreateInput) (*domainBooking.Booking, error) {
	now := time.Now()
	b := &domainBooking.Booking{
		BookingID:       uuid.New(),
		CustomerID:      in.CustomerID,
		ProviderID:      in.ProviderID,
		ProviderKind:    in.ProviderKind,
		ServiceType:     in.ServiceType,
		Price:           in.Price,
		DurationMinutes: in.DurationMinutes,
		Location:        in.Location,
		ResponseStatus:  domainBooking.StatusAwaitingResponse,
		Deadline:        now.Add(s.offerWindow),
		CreatedAt:       now,
	}
	if err := b.Validate(); err != nil {
		return nil, err
	}

	storeCtx, cancel := s.storeContext(ctx)
	defer cancel()
	if err := s.bookings.Create(storeCtx, b); err != nil {
		return nil, fmt.Errorf("create booking: %w", err)
	}

	s.clock.Schedule(b.BookingID, b.Deadline)

	if err := s.effects.OnOfferCreated(ctx, b); err != nil {
		s.logger.Error().Err(err).Str("bookingId", b.BookingID.String()).Msg("offer creation side effects incomplete")
	}

	s.logger.Info().
		Str("bookingId", b.BookingID.String()).
		Str("providerId", b.ProviderID).
		Time("deadline", b.Deadline).
		Msg("offer created")
	return b, nil
}

// Accept resolves the offer in the provider's favor. Exactly one caller
// wins the ledger's conditional write; everyone else observes the terminal
// state. Acceptance is complete only once the commission record exists: on
// an issuance failure the status is compensated back before the error
// surfaces, so the booking is never left accepted without a commission.
func (s *Service) Accept(ctx context.Context, offerID uuid.UUID, providerID string) (*domainCommission.CommissionRecord, error) {
	b, err := s.getOffer(ctx, offerID)
	if err != nil {
		return nil, err
	}
	if b.ProviderID != providerID {
		return nil, ErrProviderMismatch
	}
	if b.Resolved() {
		return nil, domainBooking.ErrAlreadyResolved
	}

	now := time.Now()
	if b.ExpiredAt(now) {
		// Dead offer even if the clock has not fired yet.
		return nil, domainBooking.ErrOfferExpired
	}

	acceptedAt := now
	storeCtx, cancel := s.storeContext(ctx)
	won, err := s.bookings.CompareAndSetStatus(storeCtx, offerID, domainBooking.StatusAwaitingResponse, domainBooking.StatusAccepted, &acceptedAt, nil)
	cancel()
	if err != nil {
		return nil, fmt.Errorf("accept transition: %w", err)
	}
	if !won {
		// The store arbitrated the race in someone else's favor.
		return nil, domainBooking.ErrAlreadyResolved
	}

	s.clock.Cancel(offerID)
	b.ResponseStatus = domainBooking.StatusAccepted
	b.AcceptedAt = &acceptedAt

	rec, err := s.issuer.Issue(ctx, b)
	if err != nil {
		s.compensate(ctx, b)
		return nil, fmt.Errorf("%w: %w", ErrIssuanceFailed, err)
	}

	if err := s.effects.OnOfferAccepted(ctx, b); err != nil {
		s.logger.Error().Err(err).Str("bookingId", b.BookingID.String()).Msg("acceptance side effects incomplete")
	}

	s.logger.Info().
		Str("bookingId", b.BookingID.String()).
		Str("commissionId", rec.CommissionID.String()).
		Int64("amount", rec.Amount).
		Msg("offer accepted")
	return rec, nil
}

// Reject resolves the offer against the provider. Re-offering the booking
// to another provider is the intake flow's concern, not this engine's.
func (s *Service) Reject(ctx context.Context, offerID uuid.UUID, providerID, reason string) error {
	b, err := s.getOffer(ctx, offerID)
	if err != nil {
		return err
	}
	if b.ProviderID != providerID {
		return ErrProviderMismatch
	}
	if b.Resolved() {
		return domainBooking.ErrAlreadyResolved
	}

	var reasonPtr *string
	if reason != "" {
		reasonPtr = &reason
	}
	storeCtx, cancel := s.storeContext(ctx)
	won, err := s.bookings.CompareAndSetStatus(storeCtx, offerID, domainBooking.StatusAwaitingResponse, domainBooking.StatusRejected, nil, reasonPtr)
	cancel()
	if err != nil {
		return fmt.Errorf("reject transition: %w", err)
	}
	if !won {
		return domainBooking.ErrAlreadyResolved
	}

	s.clock.Cancel(offerID)
	s.logger.Info().Str("bookingId", offerID.String()).Str("reason", reason).Msg("offer rejected")
	return nil
}

// OnExpire is invoked by the clock when the deadline elapses. Losing the
// conditional write to a last-instant accept or reject is a benign no-op.
func (s *Service) OnExpire(ctx context.Context, offerID uuid.UUID) error {
	storeCtx, cancel := s.storeContext(ctx)
	won, err := s.bookings.CompareAndSetStatus(storeCtx, offerID, domainBooking.StatusAwaitingResponse, domainBooking.StatusExpired, nil, nil)
	cancel()
	if err != nil {
		return fmt.Errorf("expire transition: %w", err)
	}
	if !won {
		s.logger.Debug().Str("bookingId", offerID.String()).Msg("expiry lost the race, offer already resolved")
		return nil
	}
	s.logger.Info().Str("bookingId", offerID.String()).Msg("offer expired")
	return nil
}

// PendingOffers derives the open offers from the ledger rather than from
// process memory, so every instance behind the load balancer agrees.
func (s *Service) PendingOffers(ctx context.Context) ([]*domainBooking.Booking, error) {
	all, err := s.bookings.ListAwaiting(ctx)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	pending := make([]*domainBooking.Booking, 0, len(all))
	for _, b := range all {
		if !b.ExpiredAt(now) {
			pending = append(pending, b)
		}
	}
	return pending, nil
}

// Get returns a booking by offer id.
func (s *Service) Get(ctx context.Context, offerID uuid.UUID) (*domainBooking.Booking, error) {
	return s.getOffer(ctx, offerID)
}

// List returns bookings, optionally filtered by response status.
func (s *Service) List(ctx context.Context, status *domainBooking.ResponseStatus, limit, offset int) ([]*domainBooking.Booking, error) {
	return s.bookings.List(ctx, status, limit, offset)
}

// compensate undoes a half-done acceptance after an issuance failure: the
// offer reopens when time remains, otherwise it expires. If even the
// compensating write fails the inconsistency is logged loudly; the
// integrity guard reports it as MissingCommission until an operator or a
// retry resolves it.
func (s *Service) compensate(ctx context.Context, b *domainBooking.Booking) {
	target := domainBooking.StatusAwaitingResponse
	if time.Now().After(b.Deadline) {
		target = domainBooking.StatusExpired
	}

	storeCtx, cancel := s.storeContext(ctx)
	won, err := s.bookings.CompareAndSetStatus(storeCtx, b.BookingID, domainBooking.StatusAccepted, target, nil, nil)
	cancel()
	if err != nil || !won {
		s.logger.Error().
			Err(err).
			Bool("won", won).
			Str("bookingId", b.BookingID.String()).
			Msg("compensating transition failed, booking may be accepted without commission")
		return
	}

	b.ResponseStatus = target
	b.AcceptedAt = nil
	if target == domainBooking.StatusAwaitingResponse {
		s.clock.Schedule(b.BookingID, b.Deadline)
	}
	s.logger.Warn().
		Str("bookingId", b.BookingID.String()).
		Str("status", string(target)).
		Msg("acceptance compensated after issuance failure")
}

func (s *Service) getOffer(ctx context.Context, offerID uuid.UUID) (*domainBooking.Booking, error) {
	storeCtx, cancel := s.storeContext(ctx)
	defer cancel()
	b, err := s.bookings.GetByID(storeCtx, offerID)
	if err != nil {
		return nil, err
	}
	if b == nil {
		return nil, domainBooking.ErrNotFound
	}
	return b, nil
}

func (s *Service) storeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.storeTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.storeTimeout)
}
