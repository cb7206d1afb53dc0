package sideeffect

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/booking-engine/booking-engine/internal/domain/booking"
	domainSideEffect "github.com/booking-engine/booking-engine/internal/domain/sideeffect"
)

const systemSender = "system"

// Service is the side-effect dispatcher: it turns offer transitions into
// chat and notification artifacts. Every create is keyed by booking id (and
// kind), so a retried dispatch never duplicates an artifact. Latency budgets
// are soft: a breach is logged and later reported by the integrity guard,
// never fatal to the booking flow.
type Service struct {
	effects      domainSideEffect.Repository
	chatBudget   time.Duration
	notifyBudget time.Duration
	logger       zerolog.Logger
}

func NewService(effects domainSideEffect.Repository, chatBudget, notifyBudget time.Duration, logger zerolog.Logger) *Service {
	return &Service{
		effects:      effects,
		chatBudget:   chatBudget,
		notifyBudget: notifyBudget,
		logger:       logger.With().Str("service", "sideeffect").Logger(),
	}
}

// OnOfferCreated creates the chat room and the provider notification for a
// fresh offer. Errors are returned so the caller can surface them, but the
// offer itself stays valid either way.
func (s *Service) OnOfferCreated(ctx context.Context, b *booking.Booking) error {
	var errs []error

	now := time.Now()
	room := &domainSideEffect.ChatRoom{
		RoomID:      uuid.New(),
		BookingID:   b.BookingID,
		CustomerID:  b.CustomerID,
		ProviderID:  b.ProviderID,
		TriggeredAt: b.CreatedAt,
		CreatedAt:   now,
	}
	created, err := s.effects.CreateRoomIfAbsent(ctx, room)
	if err != nil {
		s.logger.Error().Err(err).Str("bookingId", b.BookingID.String()).Msg("chat room creation failed")
		errs = append(errs, fmt.Errorf("chat room: %w", err))
	} else if created {
		s.reportLatency("chat room", b.BookingID, room.Latency(), s.chatBudget)
	}

	notif := &domainSideEffect.NotificationRecord{
		NotificationID: uuid.New(),
		BookingID:      b.BookingID,
		Kind:           domainSideEffect.KindOfferCreated,
		TargetUserID:   b.ProviderID,
		Title:          "New booking request",
		Body:           fmt.Sprintf("You have a new %s booking request", b.ServiceType),
		TriggeredAt:    b.CreatedAt,
		CreatedAt:      time.Now(),
	}
	created, err = s.effects.CreateNotificationIfAbsent(ctx, notif)
	if err != nil {
		s.logger.Error().Err(err).Str("bookingId", b.BookingID.String()).Msg("provider notification failed")
		errs = append(errs, fmt.Errorf("notification: %w", err))
	} else if created {
		s.reportLatency("notification", b.BookingID, notif.Latency(), s.notifyBudget)
	}

	return errors.Join(errs...)
}

// OnOfferAccepted posts the acceptance system message into the booking's
// chat room and notifies the customer.
func (s *Service) OnOfferAccepted(ctx context.Context, b *booking.Booking) error {
	var errs []error

	triggeredAt := b.CreatedAt
	if b.AcceptedAt != nil {
		triggeredAt = *b.AcceptedAt
	}

	room, err := s.ensureRoom(ctx, b, triggeredAt)
	if err != nil {
		s.logger.Error().Err(err).Str("bookingId", b.BookingID.String()).Msg("chat room lookup failed")
		errs = append(errs, fmt.Errorf("chat room: %w", err))
	} else {
		msg := &domainSideEffect.ChatMessage{
			MessageID: uuid.New(),
			RoomID:    room.RoomID,
			BookingID: b.BookingID,
			Sender:    systemSender,
			Body:      "Your booking has been accepted",
			CreatedAt: time.Now(),
		}
		if err := s.effects.AppendMessage(ctx, msg); err != nil {
			s.logger.Error().Err(err).Str("bookingId", b.BookingID.String()).Msg("acceptance message failed")
			errs = append(errs, fmt.Errorf("chat message: %w", err))
		}
	}

	notif := &domainSideEffect.NotificationRecord{
		NotificationID: uuid.New(),
		BookingID:      b.BookingID,
		Kind:           domainSideEffect.KindOfferAccepted,
		TargetUserID:   b.CustomerID,
		Title:          "Booking accepted",
		Body:           "Your provider accepted the booking",
		TriggeredAt:    triggeredAt,
		CreatedAt:      time.Now(),
	}
	created, err := s.effects.CreateNotificationIfAbsent(ctx, notif)
	if err != nil {
		s.logger.Error().Err(err).Str("bookingId", b.BookingID.String()).Msg("customer notification failed")
		errs = append(errs, fmt.Errorf("notification: %w", err))
	} else if created {
		s.reportLatency("notification", b.BookingID, notif.Latency(), s.notifyBudget)
	}

	return errors.Join(errs...)
}

func (s *Service) ensureRoom(ctx context.Context, b *booking.Booking, triggeredAt time.Time) (*domainSideEffect.ChatRoom, error) {
	room := &domainSideEffect.ChatRoom{
		RoomID:      uuid.New(),
		BookingID:   b.BookingID,
		CustomerID:  b.CustomerID,
		ProviderID:  b.ProviderID,
		TriggeredAt: triggeredAt,
		CreatedAt:   time.Now(),
	}
	if _, err := s.effects.CreateRoomIfAbsent(ctx, room); err != nil {
		return nil, err
	}
	existing, err := s.effects.GetRoom(ctx, b.BookingID)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, errors.New("chat room missing after create")
	}
	return existing, nil
}

func (s *Service) reportLatency(kind string, bookingID uuid.UUID, latency, budget time.Duration) {
	if latency > budget {
		s.logger.Warn().
			Str("bookingId", bookingID.String()).
			Dur("latency", latency).
			Dur("budget", budget).
			Msgf("%s created past its latency budget", kind)
	}
}
