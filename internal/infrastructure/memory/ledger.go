// Package memory provides an in-process ledger store with the same
// conditional-write and unique-key semantics as the postgres
// implementation. It backs the integration tests and local development;
// production runs against postgres.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/booking-engine/booking-engine/internal/domain/booking"
	"github.com/booking-engine/booking-engine/internal/domain/commission"
	"github.com/booking-engine/booking-engine/internal/domain/integrity"
	"github.com/booking-engine/booking-engine/internal/domain/sideeffect"
)

// Ledger holds all entities behind one mutex. A single lock is enough here:
// the point is correct arbitration, not throughput.
type Ledger struct {
	mu sync.Mutex

	seq           int64
	bookings      map[uuid.UUID]*booking.Booking
	commissions   []*commission.CommissionRecord
	rooms         map[uuid.UUID]*sideeffect.ChatRoom
	messages      []*sideeffect.ChatMessage
	notifications []*sideeffect.NotificationRecord
	violations    map[uuid.UUID]*integrity.Violation
}

func NewLedger() *Ledger {
	return &Ledger{
		bookings:   map[uuid.UUID]*booking.Booking{},
		rooms:      map[uuid.UUID]*sideeffect.ChatRoom{},
		violations: map[uuid.UUID]*integrity.Violation{},
	}
}

func (l *Ledger) nextID() int64 {
	l.seq++
	return l.seq
}

// Bookings returns the booking.Repository view of the ledger.
func (l *Ledger) Bookings() booking.Repository { return (*bookingStore)(l) }

// Commissions returns the commission.Repository view of the ledger.
func (l *Ledger) Commissions() commission.Repository { return (*commissionStore)(l) }

// SideEffects returns the sideeffect.Repository view of the ledger.
func (l *Ledger) SideEffects() sideeffect.Repository { return (*sideEffectStore)(l) }

// Integrity returns the integrity.Repository view of the ledger.
func (l *Ledger) Integrity() integrity.Repository { return (*integrityStore)(l) }

type bookingStore Ledger

func (s *bookingStore) Create(_ context.Context, b *booking.Booking) error {
	l := (*Ledger)(s)
	l.mu.Lock()
	defer l.mu.Unlock()
	cp := *b
	cp.ID = l.nextID()
	l.bookings[cp.BookingID] = &cp
	b.ID = cp.ID
	return nil
}

func (s *bookingStore) GetByID(_ context.Context, bookingID uuid.UUID) (*booking.Booking, error) {
	l := (*Ledger)(s)
	l.mu.Lock()
	defer l.mu.Unlock()
	b, ok := l.bookings[bookingID]
	if !ok {
		return nil, nil
	}
	cp := *b
	return &cp, nil
}

func (s *bookingStore) List(_ context.Context, status *booking.ResponseStatus, limit, offset int) ([]*booking.Booking, error) {
	l := (*Ledger)(s)
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []*booking.Booking
	for _, b := range l.bookings {
		if status != nil && b.ResponseStatus != *status {
			continue
		}
		cp := *b
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (s *bookingStore) ListAwaiting(ctx context.Context) ([]*booking.Booking, error) {
	status := booking.StatusAwaitingResponse
	out, err := s.List(ctx, &status, 0, 0)
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Deadline.Before(out[j].Deadline) })
	return out, nil
}

func (s *bookingStore) CompareAndSetStatus(_ context.Context, bookingID uuid.UUID, from, to booking.ResponseStatus, acceptedAt *time.Time, declineReason *string) (bool, error) {
	l := (*Ledger)(s)
	l.mu.Lock()
	defer l.mu.Unlock()
	b, ok := l.bookings[bookingID]
	if !ok || b.ResponseStatus != from {
		return false, nil
	}
	b.ResponseStatus = to
	b.AcceptedAt = acceptedAt
	if declineReason != nil {
		b.DeclineReason = declineReason
	}
	return true, nil
}

type commissionStore Ledger

func (s *commissionStore) Insert(_ context.Context, rec *commission.CommissionRecord) error {
	l := (*Ledger)(s)
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, existing := range l.commissions {
		if existing.BookingID == rec.BookingID {
			return commission.ErrDuplicate
		}
	}
	cp := *rec
	cp.ID = l.nextID()
	l.commissions = append(l.commissions, &cp)
	rec.ID = cp.ID
	return nil
}

func (s *commissionStore) GetByBookingID(_ context.Context, bookingID uuid.UUID) (*commission.CommissionRecord, error) {
	l := (*Ledger)(s)
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, rec := range l.commissions {
		if rec.BookingID == bookingID {
			cp := *rec
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *commissionStore) GetByID(_ context.Context, commissionID uuid.UUID) (*commission.CommissionRecord, error) {
	l := (*Ledger)(s)
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, rec := range l.commissions {
		if rec.CommissionID == commissionID {
			cp := *rec
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *commissionStore) List(_ context.Context) ([]*commission.CommissionRecord, error) {
	l := (*Ledger)(s)
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]*commission.CommissionRecord, 0, len(l.commissions))
	for _, rec := range l.commissions {
		cp := *rec
		out = append(out, &cp)
	}
	return out, nil
}

func (s *commissionStore) Delete(_ context.Context, commissionID uuid.UUID) error {
	l := (*Ledger)(s)
	l.mu.Lock()
	defer l.mu.Unlock()
	for i, rec := range l.commissions {
		if rec.CommissionID == commissionID {
			l.commissions = append(l.commissions[:i], l.commissions[i+1:]...)
			return nil
		}
	}
	return nil
}

// SetDeadline rewrites a booking's deadline in place. Tests use it to
// simulate elapsed offers without waiting out the window.
func (l *Ledger) SetDeadline(bookingID uuid.UUID, deadline time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if b, ok := l.bookings[bookingID]; ok {
		b.Deadline = deadline
	}
}

// PutCommission writes a commission record bypassing the uniqueness check.
// Tests use it to seed the corrupt states the integrity guard must detect.
func (l *Ledger) PutCommission(rec *commission.CommissionRecord) {
	l.mu.Lock()
	defer l.mu.Unlock()
	cp := *rec
	cp.ID = l.nextID()
	l.commissions = append(l.commissions, &cp)
}

type sideEffectStore Ledger

func (s *sideEffectStore) CreateRoomIfAbsent(_ context.Context, room *sideeffect.ChatRoom) (bool, error) {
	l := (*Ledger)(s)
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.rooms[room.BookingID]; ok {
		return false, nil
	}
	cp := *room
	cp.ID = l.nextID()
	l.rooms[cp.BookingID] = &cp
	return true, nil
}

func (s *sideEffectStore) GetRoom(_ context.Context, bookingID uuid.UUID) (*sideeffect.ChatRoom, error) {
	l := (*Ledger)(s)
	l.mu.Lock()
	defer l.mu.Unlock()
	room, ok := l.rooms[bookingID]
	if !ok {
		return nil, nil
	}
	cp := *room
	return &cp, nil
}

func (s *sideEffectStore) ListRooms(_ context.Context) ([]*sideeffect.ChatRoom, error) {
	l := (*Ledger)(s)
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]*sideeffect.ChatRoom, 0, len(l.rooms))
	for _, room := range l.rooms {
		cp := *room
		out = append(out, &cp)
	}
	return out, nil
}

func (s *sideEffectStore) AppendMessage(_ context.Context, msg *sideeffect.ChatMessage) error {
	l := (*Ledger)(s)
	l.mu.Lock()
	defer l.mu.Unlock()
	cp := *msg
	cp.ID = l.nextID()
	l.messages = append(l.messages, &cp)
	return nil
}

func (s *sideEffectStore) ListMessages(_ context.Context, roomID uuid.UUID) ([]*sideeffect.ChatMessage, error) {
	l := (*Ledger)(s)
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []*sideeffect.ChatMessage
	for _, msg := range l.messages {
		if msg.RoomID == roomID {
			cp := *msg
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *sideEffectStore) CreateNotificationIfAbsent(_ context.Context, n *sideeffect.NotificationRecord) (bool, error) {
	l := (*Ledger)(s)
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, existing := range l.notifications {
		if existing.BookingID == n.BookingID && existing.Kind == n.Kind {
			return false, nil
		}
	}
	cp := *n
	cp.ID = l.nextID()
	l.notifications = append(l.notifications, &cp)
	return true, nil
}

func (s *sideEffectStore) ListNotifications(_ context.Context) ([]*sideeffect.NotificationRecord, error) {
	l := (*Ledger)(s)
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]*sideeffect.NotificationRecord, 0, len(l.notifications))
	for _, n := range l.notifications {
		cp := *n
		out = append(out, &cp)
	}
	return out, nil
}

type integrityStore Ledger

func (s *integrityStore) SaveReport(_ context.Context, rep *integrity.Report) error {
	l := (*Ledger)(s)
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, v := range rep.Violations {
		cp := *v
		cp.ID = l.nextID()
		l.violations[cp.ViolationID] = &cp
	}
	return nil
}

func (s *integrityStore) GetViolation(_ context.Context, violationID uuid.UUID) (*integrity.Violation, error) {
	l := (*Ledger)(s)
	l.mu.Lock()
	defer l.mu.Unlock()
	v, ok := l.violations[violationID]
	if !ok {
		return nil, nil
	}
	cp := *v
	return &cp, nil
}

func (s *integrityStore) MarkRemediated(_ context.Context, violationID uuid.UUID) error {
	l := (*Ledger)(s)
	l.mu.Lock()
	defer l.mu.Unlock()
	if v, ok := l.violations[violationID]; ok {
		now := time.Now()
		v.RemediatedAt = &now
	}
	return nil
}
