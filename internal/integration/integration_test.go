package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httpapi "github.com/booking-engine/booking-engine/internal/api/http"
	appCommission "github.com/booking-engine/booking-engine/internal/application/commission"
	appExpiry "github.com/booking-engine/booking-engine/internal/application/expiry"
	appIntegrity "github.com/booking-engine/booking-engine/internal/application/integrity"
	appOffer "github.com/booking-engine/booking-engine/internal/application/offer"
	appSideEffect "github.com/booking-engine/booking-engine/internal/application/sideeffect"
	domainBooking "github.com/booking-engine/booking-engine/internal/domain/booking"
	domainCommission "github.com/booking-engine/booking-engine/internal/domain/commission"
	domainIntegrity "github.com/booking-engine/booking-engine/internal/domain/integrity"
	"github.com/booking-engine/booking-engine/internal/infrastructure/memory"
)

type testEnv struct {
	ledger    *memory.Ledger
	offer     *appOffer.Service
	integrity *appIntegrity.Service
	clock     *appExpiry.Scheduler
	server    *httptest.Server
}

func newTestEnv(t *testing.T, offerWindow time.Duration) *testEnv {
	t.Helper()
	logger := zerolog.Nop()
	ledger := memory.NewLedger()

	issuer := appCommission.NewService(ledger.Commissions(), logger)
	effects := appSideEffect.NewService(ledger.SideEffects(), 2*time.Second, 3*time.Second, logger)
	clock := appExpiry.NewScheduler(ledger.Bookings(), logger)
	offerSvc := appOffer.NewService(ledger.Bookings(), issuer, effects, clock, offerWindow, 5*time.Second, logger)
	clock.Bind(offerSvc)

	integritySvc := appIntegrity.NewService(ledger.Bookings(), ledger.Commissions(), ledger.SideEffects(), ledger.Integrity(), appIntegrity.Config{
		TolerancePct:            decimal.RequireFromString("0.01"),
		CommissionLatencyBudget: 5 * time.Second,
		ChatLatencyBudget:       2 * time.Second,
		NotifyLatencyBudget:     3 * time.Second,
	}, logger)

	server := httptest.NewServer(httpapi.NewServer(offerSvc, issuer, integritySvc).Router())
	t.Cleanup(server.Close)

	return &testEnv{
		ledger:    ledger,
		offer:     offerSvc,
		integrity: integritySvc,
		clock:     clock,
		server:    server,
	}
}

func (e *testEnv) post(t *testing.T, path string, body interface{}) (*http.Response, map[string]json.RawMessage) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	resp, err := http.Post(e.server.URL+path, "application/json", &buf)
	require.NoError(t, err)
	defer resp.Body.Close()
	var out map[string]json.RawMessage
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp, out
}

func (e *testEnv) createOffer(t *testing.T, price int64) uuid.UUID {
	t.Helper()
	resp, body := e.post(t, "/v1/offers", map[string]interface{}{
		"customer_id":      "customer-1",
		"provider_id":      "provider-1",
		"provider_kind":    "therapist",
		"service_type":     "massage",
		"price":            price,
		"duration_minutes": 60,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var id uuid.UUID
	require.NoError(t, json.Unmarshal(body["bookingId"], &id))
	return id
}

func TestAcceptFlow(t *testing.T) {
	env := newTestEnv(t, 2*time.Minute)
	offerID := env.createOffer(t, 150000)

	resp, body := env.post(t, fmt.Sprintf("/v1/offers/%s/accept", offerID), map[string]interface{}{
		"provider_id": "provider-1",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var rec domainCommission.CommissionRecord
	require.NoError(t, json.Unmarshal(body["commission"], &rec))
	assert.Equal(t, offerID, rec.BookingID)
	assert.Equal(t, int64(150000), rec.Amount)

	// A second accept observes the terminal state.
	resp, _ = env.post(t, fmt.Sprintf("/v1/offers/%s/accept", offerID), map[string]interface{}{
		"provider_id": "provider-1",
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	// The ledger is clean afterwards.
	report, err := env.integrity.Scan(context.Background())
	require.NoError(t, err)
	assert.Empty(t, report.Violations)
	assert.False(t, report.ShouldBlock())
}

func TestRejectFlow(t *testing.T) {
	env := newTestEnv(t, 2*time.Minute)
	offerID := env.createOffer(t, 90000)

	resp, _ := env.post(t, fmt.Sprintf("/v1/offers/%s/reject", offerID), map[string]interface{}{
		"provider_id": "provider-1",
		"reason":      "fully booked",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// No commission exists for a rejected offer.
	resp2, err := http.Get(env.server.URL + fmt.Sprintf("/v1/offers/%s/commission", offerID))
	require.NoError(t, err)
	defer resp2.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp2.StatusCode)

	b, err := env.ledger.Bookings().GetByID(context.Background(), offerID)
	require.NoError(t, err)
	assert.Equal(t, domainBooking.StatusRejected, b.ResponseStatus)
	require.NotNil(t, b.DeclineReason)
	assert.Equal(t, "fully booked", *b.DeclineReason)
}

func TestConcurrentAccepts_ExactlyOneWinner(t *testing.T) {
	env := newTestEnv(t, 2*time.Minute)
	offerID := env.createOffer(t, 150000)

	const racers = 32
	var wg sync.WaitGroup
	results := make(chan error, racers)
	start := make(chan struct{})
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := env.offer.Accept(context.Background(), offerID, "provider-1")
			results <- err
		}()
	}
	close(start)
	wg.Wait()
	close(results)

	var wins, conflicts int
	for err := range results {
		switch {
		case err == nil:
			wins++
		default:
			require.ErrorIs(t, err, domainBooking.ErrAlreadyResolved)
			conflicts++
		}
	}
	assert.Equal(t, 1, wins, "exactly one accept must win")
	assert.Equal(t, racers-1, conflicts)

	// Exactly one commission for the booking.
	recs, err := env.ledger.Commissions().List(context.Background())
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, int64(150000), recs[0].Amount)

	report, err := env.integrity.Scan(context.Background())
	require.NoError(t, err)
	assert.Empty(t, report.Violations)
}

func TestAcceptVersusRejectRace(t *testing.T) {
	env := newTestEnv(t, 2*time.Minute)
	offerID := env.createOffer(t, 150000)

	var wg sync.WaitGroup
	var acceptErr, rejectErr error
	start := make(chan struct{})
	wg.Add(2)
	go func() {
		defer wg.Done()
		<-start
		_, acceptErr = env.offer.Accept(context.Background(), offerID, "provider-1")
	}()
	go func() {
		defer wg.Done()
		<-start
		rejectErr = env.offer.Reject(context.Background(), offerID, "provider-1", "changed my mind")
	}()
	close(start)
	wg.Wait()

	// One of the two wins, never both.
	if acceptErr == nil {
		require.ErrorIs(t, rejectErr, domainBooking.ErrAlreadyResolved)
	} else {
		require.NoError(t, rejectErr)
		require.ErrorIs(t, acceptErr, domainBooking.ErrAlreadyResolved)
	}

	recs, err := env.ledger.Commissions().List(context.Background())
	require.NoError(t, err)
	b, err := env.ledger.Bookings().GetByID(context.Background(), offerID)
	require.NoError(t, err)
	if acceptErr == nil {
		assert.Equal(t, domainBooking.StatusAccepted, b.ResponseStatus)
		assert.Len(t, recs, 1)
	} else {
		assert.Equal(t, domainBooking.StatusRejected, b.ResponseStatus)
		assert.Empty(t, recs)
	}
}

func TestOfferWindowExpiry(t *testing.T) {
	env := newTestEnv(t, 80*time.Millisecond)
	offerID := env.createOffer(t, 60000)

	require.Eventually(t, func() bool {
		b, err := env.ledger.Bookings().GetByID(context.Background(), offerID)
		return err == nil && b.ResponseStatus == domainBooking.StatusExpired
	}, 2*time.Second, 10*time.Millisecond)

	// An accept after expiry is refused.
	resp, _ := env.post(t, fmt.Sprintf("/v1/offers/%s/accept", offerID), map[string]interface{}{
		"provider_id": "provider-1",
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	// Expiry issues no commission and leaves a clean ledger.
	report, err := env.integrity.Scan(context.Background())
	require.NoError(t, err)
	assert.Empty(t, report.Violations)
}

func TestPendingOffersEndpoint(t *testing.T) {
	env := newTestEnv(t, 2*time.Minute)
	open := env.createOffer(t, 50000)
	resolved := env.createOffer(t, 50000)

	resp, _ := env.post(t, fmt.Sprintf("/v1/offers/%s/reject", resolved), map[string]interface{}{
		"provider_id": "provider-1",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp2, err := http.Get(env.server.URL + "/v1/offers/pending")
	require.NoError(t, err)
	defer resp2.Body.Close()
	require.Equal(t, http.StatusOK, resp2.StatusCode)

	var body struct {
		Offers []*domainBooking.Booking `json:"offers"`
	}
	require.NoError(t, json.NewDecoder(resp2.Body).Decode(&body))
	require.Len(t, body.Offers, 1)
	assert.Equal(t, open, body.Offers[0].BookingID)
}

func TestIntegrityScanAndRemediateOverHTTP(t *testing.T) {
	env := newTestEnv(t, 2*time.Minute)
	offerID := env.createOffer(t, 70000)

	resp, _ := env.post(t, fmt.Sprintf("/v1/offers/%s/reject", offerID), map[string]interface{}{
		"provider_id": "provider-1",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// Seed the corruption the guard exists to catch.
	env.ledger.PutCommission(domainCommission.New(offerID, "provider-1", 70000, time.Now()))

	resp, body := env.post(t, "/v1/integrity/scan", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var shouldBlock bool
	require.NoError(t, json.Unmarshal(body["should_block"], &shouldBlock))
	assert.True(t, shouldBlock)

	var report domainIntegrity.Report
	require.NoError(t, json.Unmarshal(body["report"], &report))
	require.Len(t, report.Violations, 1)
	require.Equal(t, domainIntegrity.TypeOrphanCommission, report.Violations[0].Type)

	resp, _ = env.post(t, fmt.Sprintf("/v1/integrity/remediate/%s", report.Violations[0].ViolationID), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// The follow-up scan is clean.
	resp, body = env.post(t, "/v1/integrity/scan", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(body["report"], &report))
	assert.Empty(t, report.Violations)
}

func TestRecoveryExpiresElapsedOffers(t *testing.T) {
	env := newTestEnv(t, 2*time.Minute)
	offerID := env.createOffer(t, 40000)

	// Simulate a restart: the timer is gone and the deadline has passed.
	env.clock.Cancel(offerID)
	env.ledger.SetDeadline(offerID, time.Now().Add(-time.Minute))

	require.NoError(t, env.clock.Recover(context.Background()))

	b, err := env.ledger.Bookings().GetByID(context.Background(), offerID)
	require.NoError(t, err)
	assert.Equal(t, domainBooking.StatusExpired, b.ResponseStatus)
}
