package sideeffect

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
	domainSideEffect "github.com/booking-engine/booking-engine/internal/domain/sideeffect"
	"github.com/booking-engine/booking-engine/internal/domain/sideeffect/mocks"
	"github.com/booking-engine/booking-engine/internal/infrastructure/memory"
)

func newBooking() *domainBooking.Booking {
	now := time.Now()
	return &domainBooking.Booking{
		BookingID:      uuid.New(),
		CustomerID:     "customer-1",
		ProviderID:     "provider-1",
		ProviderKind:   domainBooking.ProviderTherapist,
		ServiceType:    "massage",
		Price:          120000,
		ResponseStatus: domainBooking.StatusAwaitingResponse,
		Deadline:       now.Add(2 * time.Minute),
		CreatedAt:      now,
	}
}

func TestOnOfferCreated(t *testing.T) {
	ledger := memory.NewLedger()
	svc := NewService(ledger.SideEffects(), 2*time.Second, 3*time.Second, zerolog.Nop())
	b := newBooking()

	require.NoError(t, svc.OnOfferCreated(context.Background(), b))

	room, err := ledger.SideEffects().GetRoom(context.Background(), b.BookingID)
	require.NoError(t, err)
	require.NotNil(t, room)
	assert.Equal(t, b.CustomerID, room.CustomerID)
	assert.Equal(t, b.ProviderID, room.ProviderID)

	notifications, err := ledger.SideEffects().ListNotifications(context.Background())
	require.NoError(t, err)
	require.Len(t, notifications, 1)
	n := notifications[0]
	assert.Equal(t, domainSideEffect.KindOfferCreated, n.Kind)
	assert.Equal(t, b.ProviderID, n.TargetUserID)
}

func TestOnOfferCreated_RetryDoesNotDuplicate(t *testing.T) {
	ledger := memory.NewLedger()
	svc := NewService(ledger.SideEffects(), 2*time.Second, 3*time.Second, zerolog.Nop())
	b := newBooking()

	require.NoError(t, svc.OnOfferCreated(context.Background(), b))
	require.NoError(t, svc.OnOfferCreated(context.Background(), b))

	rooms, err := ledger.SideEffects().ListRooms(context.Background())
	require.NoError(t, err)
	assert.Len(t, rooms, 1)

	notifications, err := ledger.SideEffects().ListNotifications(context.Background())
	require.NoError(t, err)
	assert.Len(t, notifications, 1)
}

func TestOnOfferCreated_PartialFailureStillNotifies(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockRepository(ctrl)
	b := newBooking()

	repo.EXPECT().CreateRoomIfAbsent(gomock.Any(), gomock.Any()).Return(false, errors.New("chat backend down"))
	repo.EXPECT().CreateNotificationIfAbsent(gomock.Any(), gomock.Any()).Return(true, nil)

	svc := NewService(repo, 2*time.Second, 3*time.Second, zerolog.Nop())
	err := svc.OnOfferCreated(context.Background(), b)
	require.Error(t, err)
}

func TestOnOfferAccepted(t *testing.T) {
	ledger := memory.NewLedger()
	svc := NewService(ledger.SideEffects(), 2*time.Second, 3*time.Second, zerolog.Nop())
	b := newBooking()
	require.NoError(t, svc.OnOfferCreated(context.Background(), b))

	acceptedAt := time.Now()
	b.ResponseStatus = domainBooking.StatusAccepted
	b.AcceptedAt = &acceptedAt

	require.NoError(t, svc.OnOfferAccepted(context.Background(), b))

	room, err := ledger.SideEffects().GetRoom(context.Background(), b.BookingID)
	require.NoError(t, err)
	require.NotNil(t, room)

	msgs, err := ledger.SideEffects().ListMessages(context.Background(), room.RoomID)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, systemSender, msgs[0].Sender)
	assert.Equal(t, "Your booking has been accepted", msgs[0].Body)

	notifications, err := ledger.SideEffects().ListNotifications(context.Background())
	require.NoError(t, err)
	require.Len(t, notifications, 2)

	var customerNotified bool
	for _, n := range notifications {
		if n.Kind == domainSideEffect.KindOfferAccepted {
			customerNotified = true
			assert.Equal(t, b.CustomerID, n.TargetUserID)
		}
	}
	assert.True(t, customerNotified)
}

func TestOnOfferAccepted_CreatesRoomWhenMissing(t *testing.T) {
	ledger := memory.NewLedger()
	svc := NewService(ledger.SideEffects(), 2*time.Second, 3*time.Second, zerolog.Nop())
	b := newBooking()
	acceptedAt := time.Now()
	b.ResponseStatus = domainBooking.StatusAccepted
	b.AcceptedAt = &acceptedAt

	// The creation dispatch never ran for this booking.
	require.NoError(t, svc.OnOfferAccepted(context.Background(), b))

	room, err := ledger.SideEffects().GetRoom(context.Background(), b.BookingID)
	require.NoError(t, err)
	require.NotNil(t, room)

	msgs, err := ledger.SideEffects().ListMessages(context.Background(), room.RoomID)
	require.NoError(t, err)
	assert.Len(t, msgs, 1)
}
