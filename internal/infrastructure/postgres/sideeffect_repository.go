package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/booking-engine/booking-engine/internal/domain/sideeffect"
)

// SideEffectRepository implements sideeffect.Repository.
type SideEffectRepository struct {
	pool *pgxpool.Pool
}

func NewSideEffectRepository(pool *pgxpool.Pool) *SideEffectRepository {
	return &SideEffectRepository{pool: pool}
}

func (r *SideEffectRepository) CreateRoomIfAbsent(ctx context.Context, room *sideeffect.ChatRoom) (bool, error) {
	res, err := r.pool.Exec(ctx, `
		INSERT INTO chat_rooms (room_id, booking_id, customer_id, provider_id, triggered_at, created_at)
		VALUES ($1,$2,$3,$4,$5,$6)
		ON CONFLICT (booking_id) DO NOTHING
	`, room.RoomID, room.BookingID, room.CustomerID, room.ProviderID, room.TriggeredAt, room.CreatedAt)
	if err != nil {
		return false, err
	}
	return res.RowsAffected() == 1, nil
}

func (r *SideEffectRepository) GetRoom(ctx context.Context, bookingID uuid.UUID) (*sideeffect.ChatRoom, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, room_id, booking_id, customer_id, provider_id, triggered_at, created_at
		FROM chat_rooms WHERE booking_id=$1
	`, bookingID)
	var room sideeffect.ChatRoom
	if err := row.Scan(&room.ID, &room.RoomID, &room.BookingID, &room.CustomerID, &room.ProviderID, &room.TriggeredAt, &room.CreatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &room, nil
}

func (r *SideEffectRepository) ListRooms(ctx context.Context) ([]*sideeffect.ChatRoom, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, room_id, booking_id, customer_id, provider_id, triggered_at, created_at
		FROM chat_rooms ORDER BY created_at ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var rooms []*sideeffect.ChatRoom
	for rows.Next() {
		var room sideeffect.ChatRoom
		if err := rows.Scan(&room.ID, &room.RoomID, &room.BookingID, &room.CustomerID, &room.ProviderID, &room.TriggeredAt, &room.CreatedAt); err != nil {
			return nil, err
		}
		rooms = append(rooms, &room)
	}
	return rooms, rows.Err()
}

func (r *SideEffectRepository) AppendMessage(ctx context.Context, msg *sideeffect.ChatMessage) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO chat_messages (message_id, room_id, booking_id, sender, body, created_at)
		VALUES ($1,$2,$3,$4,$5,$6)
	`, msg.MessageID, msg.RoomID, msg.BookingID, msg.Sender, msg.Body, msg.CreatedAt)
	return err
}

func (r *SideEffectRepository) ListMessages(ctx context.Context, roomID uuid.UUID) ([]*sideeffect.ChatMessage, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, message_id, room_id, booking_id, sender, body, created_at
		FROM chat_messages WHERE room_id=$1 ORDER BY created_at ASC
	`, roomID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var messages []*sideeffect.ChatMessage
	for rows.Next() {
		var msg sideeffect.ChatMessage
		if err := rows.Scan(&msg.ID, &msg.MessageID, &msg.RoomID, &msg.BookingID, &msg.Sender, &msg.Body, &msg.CreatedAt); err != nil {
			return nil, err
		}
		messages = append(messages, &msg)
	}
	return messages, rows.Err()
}

func (r *SideEffectRepository) CreateNotificationIfAbsent(ctx context.Context, n *sideeffect.NotificationRecord) (bool, error) {
	res, err := r.pool.Exec(ctx, `
		INSERT INTO notification_records (notification_id, booking_id, kind, target_user_id, title, body, triggered_at, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		ON CONFLICT (booking_id, kind) DO NOTHING
	`, n.NotificationID, n.BookingID, n.Kind, n.TargetUserID, n.Title, n.Body, n.TriggeredAt, n.CreatedAt)
	if err != nil {
		return false, err
	}
	return res.RowsAffected() == 1, nil
}

func (r *SideEffectRepository) ListNotifications(ctx context.Context) ([]*sideeffect.NotificationRecord, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, notification_id, booking_id, kind, target_user_id, title, body, triggered_at, created_at
		FROM notification_records ORDER BY created_at ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var records []*sideeffect.NotificationRecord
	for rows.Next() {
		var n sideeffect.NotificationRecord
		if err := rows.Scan(&n.ID, &n.NotificationID, &n.BookingID, &n.Kind, &n.TargetUserID, &n.Title, &n.Body, &n.TriggeredAt, &n.CreatedAt); err != nil {
			return nil, err
		}
		records = append(records, &n)
	}
	return records, rows.Err()
}
