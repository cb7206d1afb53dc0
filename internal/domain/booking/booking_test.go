package booking

import (
	"testing"
	"time"
)

func validBooking() *Booking {
	return &Booking{
		CustomerID:     "cust-1",
		ProviderID:     "prov-1",
		ProviderKind:   ProviderTherapist,
		Price:          150000,
		ResponseStatus: StatusAwaitingResponse,
	}
}

func TestCanTransitionTo(t *testing.T) {
	b := validBooking()
	for _, target := range []ResponseStatus{StatusAccepted, StatusRejected, StatusExpired} {
		if !b.CanTransitionTo(target) {
			t.Fatalf("expected AWAITING_RESPONSE -> %s to be allowed", target)
		}
	}
	if b.CanTransitionTo(StatusAwaitingResponse) {
		t.Fatal("self transition must not be allowed")
	}
}

func TestTerminalStatesAreFinal(t *testing.T) {
	for _, terminal := range []ResponseStatus{StatusAccepted, StatusRejected, StatusExpired} {
		b := validBooking()
		b.ResponseStatus = terminal
		for _, target := range []ResponseStatus{StatusAwaitingResponse, StatusAccepted, StatusRejected, StatusExpired} {
			if b.CanTransitionTo(target) {
				t.Fatalf("expected %s -> %s to be forbidden", terminal, target)
			}
		}
		if !b.Resolved() {
			t.Fatalf("expected %s to count as resolved", terminal)
		}
	}
}

func TestValidate(t *testing.T) {
	if err := validBooking().Validate(); err != nil {
		t.Fatalf("valid booking rejected: %v", err)
	}

	cases := map[string]func(*Booking){
		"zero price":       func(b *Booking) { b.Price = 0 },
		"negative price":   func(b *Booking) { b.Price = -100 },
		"missing customer": func(b *Booking) { b.CustomerID = "" },
		"missing provider": func(b *Booking) { b.ProviderID = "" },
		"bad kind":         func(b *Booking) { b.ProviderKind = "salon" },
	}
	for name, mutate := range cases {
		b := validBooking()
		mutate(b)
		if err := b.Validate(); err != ErrInvalidBooking {
			t.Fatalf("%s: expected ErrInvalidBooking, got %v", name, err)
		}
	}
}

func TestExpiredAt(t *testing.T) {
	deadline := time.Now()
	b := validBooking()
	b.Deadline = deadline
	if b.ExpiredAt(deadline) {
		t.Fatal("deadline instant itself is not expired")
	}
	if !b.ExpiredAt(deadline.Add(time.Millisecond)) {
		t.Fatal("one tick past the deadline must be expired")
	}
	if b.ExpiredAt(deadline.Add(-time.Millisecond)) {
		t.Fatal("before the deadline must not be expired")
	}
}
