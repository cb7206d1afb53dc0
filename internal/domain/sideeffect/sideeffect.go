package sideeffect

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// NotificationKind identifies the triggering transition of a notification.
type NotificationKind string

const (
	KindOfferCreated  NotificationKind = "OFFER_CREATED"
	KindOfferAccepted NotificationKind = "OFFER_ACCEPTED"
)

var ErrRoomNotFound = errors.New("chat room not found")

// ChatRoom is the conversation artifact created when an offer goes out.
// One room per booking; TriggeredAt is the transition it derives from, so
// the gap to CreatedAt is the creation latency the audits check.
type ChatRoom struct {
	ID          int64     `json:"id"`
	RoomID      uuid.UUID `json:"roomId"`
	BookingID   uuid.UUID `json:"bookingId"`
	CustomerID  string    `json:"customerId"`
	ProviderID  string    `json:"providerId"`
	TriggeredAt time.Time `json:"triggeredAt"`
	CreatedAt   time.Time `json:"createdAt"`
}

// ChatMessage is a message in a booking's chat room. The engine only ever
// writes system messages (acceptance announcements).
type ChatMessage struct {
	ID        int64     `json:"id"`
	MessageID uuid.UUID `json:"messageId"`
	RoomID    uuid.UUID `json:"roomId"`
	BookingID uuid.UUID `json:"bookingId"`
	Sender    string    `json:"sender"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"createdAt"`
}

// NotificationRecord is a pending delivery to a user, at most one per
// booking per kind. Delivery mechanics live elsewhere; this subsystem only
// guarantees the record exists and tracks how fast it appeared.
type NotificationRecord struct {
	ID             int64            `json:"id"`
	NotificationID uuid.UUID        `json:"notificationId"`
	BookingID      uuid.UUID        `json:"bookingId"`
	Kind           NotificationKind `json:"kind"`
	TargetUserID   string           `json:"targetUserId"`
	Title          string           `json:"title"`
	Body           string           `json:"body"`
	TriggeredAt    time.Time        `json:"triggeredAt"`
	CreatedAt      time.Time        `json:"createdAt"`
}

// Latency returns how long after the triggering transition the artifact
// was durably created.
func (r *ChatRoom) Latency() time.Duration {
	return r.CreatedAt.Sub(r.TriggeredAt)
}

func (n *NotificationRecord) Latency() time.Duration {
	return n.CreatedAt.Sub(n.TriggeredAt)
}
