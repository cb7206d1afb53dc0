package commission

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	domainBooking "github.com/booking-engine/booking-engine/internal/domain/booking"
	domainCommission "github.com/booking-engine/booking-engine/internal/domain/commission"
	"github.com/booking-engine/booking-engine/internal/domain/commission/mocks"
	"github.com/booking-engine/booking-engine/internal/infrastructure/memory"
)

func acceptedBooking() *domainBooking.Booking {
	now := time.Now()
	return &domainBooking.Booking{
		BookingID:      uuid.New(),
		CustomerID:     "customer-1",
		ProviderID:     "provider-1",
		ProviderKind:   domainBooking.ProviderVenue,
		Price:          95000,
		ResponseStatus: domainBooking.StatusAccepted,
		AcceptedAt:     &now,
		Deadline:       now.Add(time.Minute),
		CreatedAt:      now,
	}
}

func TestIssue(t *testing.T) {
	ledger := memory.NewLedger()
	svc := NewService(ledger.Commissions(), zerolog.Nop())
	b := acceptedBooking()

	rec, err := svc.Issue(context.Background(), b)
	require.NoError(t, err)
	assert.Equal(t, b.BookingID, rec.BookingID)
	assert.Equal(t, b.ProviderID, rec.ProviderID)
	assert.Equal(t, b.Price, rec.Amount)
	assert.Equal(t, domainCommission.StatusRecorded, rec.Status)
}

func TestIssue_DuplicateIsIdempotent(t *testing.T) {
	ledger := memory.NewLedger()
	svc := NewService(ledger.Commissions(), zerolog.Nop())
	b := acceptedBooking()

	first, err := svc.Issue(context.Background(), b)
	require.NoError(t, err)

	second, err := svc.Issue(context.Background(), b)
	require.NoError(t, err)
	assert.Equal(t, first.CommissionID, second.CommissionID)

	recs, err := ledger.Commissions().List(context.Background())
	require.NoError(t, err)
	assert.Len(t, recs, 1)
}

func TestIssue_StoreFailurePropagates(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockRepository(ctrl)
	repo.EXPECT().Insert(gomock.Any(), gomock.Any()).Return(errors.New("connection reset"))

	svc := NewService(repo, zerolog.Nop())
	_, err := svc.Issue(context.Background(), acceptedBooking())
	require.Error(t, err)
	assert.NotErrorIs(t, err, domainCommission.ErrDuplicate)
}

func TestIssue_DuplicateReadBackFails(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockRepository(ctrl)
	b := acceptedBooking()
	repo.EXPECT().Insert(gomock.Any(), gomock.Any()).Return(domainCommission.ErrDuplicate)
	repo.EXPECT().GetByBookingID(gomock.Any(), b.BookingID).Return(nil, nil)

	svc := NewService(repo, zerolog.Nop())
	_, err := svc.Issue(context.Background(), b)
	require.Error(t, err)
}

func TestGetByBookingID(t *testing.T) {
	ledger := memory.NewLedger()
	svc := NewService(ledger.Commissions(), zerolog.Nop())
	b := acceptedBooking()

	got, err := svc.GetByBookingID(context.Background(), b.BookingID)
	require.NoError(t, err)
	assert.Nil(t, got)

	issued, err := svc.Issue(context.Background(), b)
	require.NoError(t, err)

	got, err = svc.GetByBookingID(context.Background(), b.BookingID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, issued.CommissionID, got.CommissionID)
}
