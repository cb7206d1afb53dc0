package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	appCommission "github.com/booking-engine/booking-engine/internal/application/commission"
	appIntegrity "github.com/booking-engine/booking-engine/internal/application/integrity"
	appOffer "github.com/booking-engine/booking-engine/internal/application/offer"
)

// Server holds dependencies for HTTP handlers.
type Server struct {
	offerSvc      *appOffer.Service
	commissionSvc *appCommission.Service
	integritySvc  *appIntegrity.Service
}

func NewServer(
	offerSvc *appOffer.Service,
	commissionSvc *appCommission.Service,
	integritySvc *appIntegrity.Service,
) *Server {
	return &Server{
		offerSvc:      offerSvc,
		commissionSvc: commissionSvc,
		integritySvc:  integritySvc,
	}
}

// Router builds the HTTP router.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/healthz", s.healthz)

	r.Route("/v1", func(r chi.Router) {
		r.Route("/offers", func(r chi.Router) {
			r.Post("/", s.createOffer)
			r.Get("/", s.listOffers)
			r.Get("/pending", s.listPendingOffers)
			r.Get("/{offerId}", s.getOffer)
			r.Post("/{offerId}/accept", s.acceptOffer)
			r.Post("/{offerId}/reject", s.rejectOffer)
			r.Get("/{offerId}/commission", s.getOfferCommission)
		})

		r.Route("/integrity", func(r chi.Router) {
			r.Post("/scan", s.runIntegrityScan)
			r.Post("/remediate/{violationId}", s.remediateViolation)
		})
	})

	return r
}

func (s *Server) healthz(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{"status": "ok"})
}

// Helpers
func respondJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, map[string]interface{}{
		"error":   code,
		"message": message,
	})
}

func parseUUIDParam(r *http.Request, key string) (uuid.UUID, error) {
	val := chi.URLParam(r, key)
	return uuid.Parse(val)
}

func decodeBody(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func parseLimitOffset(r *http.Request, defaultLimit, maxLimit int) (int, int) {
	limit := defaultLimit
	offset := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		if l, err := strconv.Atoi(v); err == nil {
			limit = l
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if o, err := strconv.Atoi(v); err == nil {
			offset = o
		}
	}
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
