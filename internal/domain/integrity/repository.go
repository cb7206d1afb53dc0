package integrity

//go:generate go run go.uber.org/mock/mockgen -destination=mocks/mock_repository.go -package=mocks . Repository

import (
	"context"

	"github.com/google/uuid"
)

// Repository persists scan reports so a violation id handed to an operator
// stays resolvable across service instances and restarts.
type Repository interface {
	SaveReport(ctx context.Context, r *Report) error
	GetViolation(ctx context.Context, violationID uuid.UUID) (*Violation, error)
	MarkRemediated(ctx context.Context, violationID uuid.UUID) error
}
