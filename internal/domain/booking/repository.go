package booking

//go:generate go run go.uber.org/mock/mockgen -destination=mocks/mock_repository.go -package=mocks . Repository

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository persists bookings in the ledger store. CompareAndSetStatus is
// the only way a response status changes: the store itself arbitrates
// concurrent transitions, so multiple service instances stay consistent.
type Repository interface {
	Create(ctx context.Context, b *Booking) error
	GetByID(ctx context.Context, bookingID uuid.UUID) (*Booking, error)
	List(ctx context.Context, status *ResponseStatus, limit, offset int) ([]*Booking, error)

	// ListAwaiting returns every booking still in AWAITING_RESPONSE,
	// regardless of deadline. Used for pending queries and clock recovery.
	ListAwaiting(ctx context.Context) ([]*Booking, error)

	// CompareAndSetStatus transitions the booking from the expected status
	// to the target status in a single conditional write. acceptedAt is
	// stored verbatim (nil clears it), declineReason only when non-nil. The
	// bool reports whether this caller won the write; a false return with a
	// nil error means another writer got there first.
	CompareAndSetStatus(ctx context.Context, bookingID uuid.UUID, from, to ResponseStatus, acceptedAt *time.Time, declineReason *string) (bool, error)
}
