package commission

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Status is the downstream lifecycle of a commission record. Issuance only
// ever writes StatusRecorded; later stages belong to the payout pipeline.
type Status string

const (
	StatusRecorded Status = "RECORDED"
)

var (
	// ErrDuplicate signals the unique constraint on booking_id rejected an
	// insert. The issuer treats it as success and reads back the existing
	// record.
	ErrDuplicate = errors.New("commission already exists for booking")
	ErrNotFound  = errors.New("commission not found")
)

// CommissionRecord is the platform's revenue claim against one accepted
// booking. Amount is a snapshot of the booking price at acceptance and is
// never recomputed.
type CommissionRecord struct {
	ID           int64     `json:"id"`
	CommissionID uuid.UUID `json:"commissionId"`
	BookingID    uuid.UUID `json:"bookingId"`
	ProviderID   string    `json:"providerId"`
	Amount       int64     `json:"amount"`
	Status       Status    `json:"status"`
	CreatedAt    time.Time `json:"createdAt"`
}

// New builds a commission record for an accepted booking.
func New(bookingID uuid.UUID, providerID string, amount int64, now time.Time) *CommissionRecord {
	return &CommissionRecord{
		CommissionID: uuid.New(),
		BookingID:    bookingID,
		ProviderID:   providerID,
		Amount:       amount,
		Status:       StatusRecorded,
		CreatedAt:    now,
	}
}
