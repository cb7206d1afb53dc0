package commission

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/booking-engine/booking-engine/internal/domain/booking"
	domainCommission "github.com/booking-engine/booking-engine/internal/domain/commission"
)

// Service is the commission issuer: the only component allowed to create
// commission records.
type Service struct {
	commissions domainCommission.Repository
	logger      zerolog.Logger
}

func NewService(commissions domainCommission.Repository, logger zerolog.Logger) *Service {
	return &Service{
		commissions: commissions,
		logger:      logger.With().Str("service", "commission").Logger(),
	}
}

// Issue records the platform's claim against an accepted booking. The
// amount is copied verbatim from the booking price; the store's uniqueness
// constraint on booking id makes retries idempotent: a duplicate-key
// rejection is treated as success and the existing record is read back.
// Any other store failure propagates so the caller can compensate.
func (s *Service) Issue(ctx context.Context, b *booking.Booking) (*domainCommission.CommissionRecord, error) {
	rec := domainCommission.New(b.BookingID, b.ProviderID, b.Price, time.Now())
	err := s.commissions.Insert(ctx, rec)
	if err == nil {
		s.logger.Info().
			Str("bookingId", b.BookingID.String()).
			Str("commissionId", rec.CommissionID.String()).
			Int64("amount", rec.Amount).
			Msg("commission issued")
		return rec, nil
	}
	if errors.Is(err, domainCommission.ErrDuplicate) {
		existing, getErr := s.commissions.GetByBookingID(ctx, b.BookingID)
		if getErr != nil {
			return nil, getErr
		}
		if existing == nil {
			return nil, fmt.Errorf("commission for booking %s not found after duplicate insert", b.BookingID)
		}
		return existing, nil
	}
	return nil, err
}

// GetByBookingID returns the issued commission for a booking, or nil when
// none exists.
func (s *Service) GetByBookingID(ctx context.Context, bookingID uuid.UUID) (*domainCommission.CommissionRecord, error) {
	return s.commissions.GetByBookingID(ctx, bookingID)
}
