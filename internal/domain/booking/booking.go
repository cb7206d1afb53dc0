package booking

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// ResponseStatus represents the provider's response to an offer.
type ResponseStatus string

const (
	StatusAwaitingResponse ResponseStatus = "AWAITING_RESPONSE"
	StatusAccepted         ResponseStatus = "ACCEPTED"
	StatusRejected         ResponseStatus = "REJECTED"
	StatusExpired          ResponseStatus = "EXPIRED"
)

// ProviderKind distinguishes the two provider variants.
type ProviderKind string

const (
	ProviderTherapist ProviderKind = "therapist"
	ProviderVenue     ProviderKind = "venue"
)

var (
	ErrInvalidBooking  = errors.New("invalid booking input")
	ErrAlreadyResolved = errors.New("offer already resolved")
	ErrOfferExpired    = errors.New("offer expired")
	ErrNotFound        = errors.New("booking not found")
)

// Booking represents one customer request for a service from one provider.
// The response fields double as the runtime offer state: ResponseStatus is
// mutated only through the repository's conditional write.
type Booking struct {
	ID              int64          `json:"id"`
	BookingID       uuid.UUID      `json:"bookingId"`
	CustomerID      string         `json:"customerId"`
	ProviderID      string         `json:"providerId"`
	ProviderKind    ProviderKind   `json:"providerKind"`
	ServiceType     string         `json:"serviceType,omitempty"`
	Price           int64          `json:"price"`
	DurationMinutes int            `json:"durationMinutes"`
	Location        string         `json:"location,omitempty"`
	ResponseStatus  ResponseStatus `json:"responseStatus"`
	Deadline        time.Time      `json:"deadline"`
	AcceptedAt      *time.Time     `json:"acceptedAt,omitempty"`
	DeclineReason   *string        `json:"declineReason,omitempty"`
	CreatedAt       time.Time      `json:"createdAt"`
}

// CanTransitionTo validates a response status transition. All states other
// than AWAITING_RESPONSE are terminal.
func (b *Booking) CanTransitionTo(target ResponseStatus) bool {
	transitions := map[ResponseStatus][]ResponseStatus{
		StatusAwaitingResponse: {StatusAccepted, StatusRejected, StatusExpired},
		StatusAccepted:         {},
		StatusRejected:         {},
		StatusExpired:          {},
	}
	allowed := transitions[b.ResponseStatus]
	for _, s := range allowed {
		if s == target {
			return true
		}
	}
	return false
}

// Resolved reports whether the offer has reached a terminal state.
func (b *Booking) Resolved() bool {
	return b.ResponseStatus != StatusAwaitingResponse
}

// ExpiredAt reports whether the offer deadline has elapsed at the given time.
func (b *Booking) ExpiredAt(now time.Time) bool {
	return now.After(b.Deadline)
}

// Validate checks the invariants required to turn a request into an offer.
func (b *Booking) Validate() error {
	if b.Price <= 0 {
		return ErrInvalidBooking
	}
	if b.CustomerID == "" || b.ProviderID == "" {
		return ErrInvalidBooking
	}
	if b.ProviderKind != ProviderTherapist && b.ProviderKind != ProviderVenue {
		return ErrInvalidBooking
	}
	return nil
}
