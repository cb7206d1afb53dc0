package commission

//go:generate go run go.uber.org/mock/mockgen -destination=mocks/mock_repository.go -package=mocks . Repository

import (
	"context"

	"github.com/google/uuid"
)

// Repository persists commission records. The store enforces a uniqueness
// constraint on booking_id; Insert surfaces a violation as ErrDuplicate.
type Repository interface {
	Insert(ctx context.Context, rec *CommissionRecord) error
	GetByBookingID(ctx context.Context, bookingID uuid.UUID) (*CommissionRecord, error)
	GetByID(ctx context.Context, commissionID uuid.UUID) (*CommissionRecord, error)
	List(ctx context.Context) ([]*CommissionRecord, error)
	Delete(ctx context.Context, commissionID uuid.UUID) error
}
