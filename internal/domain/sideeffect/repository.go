package sideeffect

//go:generate go run go.uber.org/mock/mockgen -destination=mocks/mock_repository.go -package=mocks . Repository

import (
	"context"

	"github.com/google/uuid"
)

// Repository persists side-effect artifacts. The create-if-absent methods
// are keyed by booking id (plus kind for notifications) so retried
// dispatches never produce duplicates; the bool reports whether this call
// created the artifact.
type Repository interface {
	CreateRoomIfAbsent(ctx context.Context, room *ChatRoom) (bool, error)
	GetRoom(ctx context.Context, bookingID uuid.UUID) (*ChatRoom, error)
	ListRooms(ctx context.Context) ([]*ChatRoom, error)

	AppendMessage(ctx context.Context, msg *ChatMessage) error
	ListMessages(ctx context.Context, roomID uuid.UUID) ([]*ChatMessage, error)

	CreateNotificationIfAbsent(ctx context.Context, n *NotificationRecord) (bool, error)
	ListNotifications(ctx context.Context) ([]*NotificationRecord, error)
}
