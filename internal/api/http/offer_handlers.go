package httpapi

import (
	"errors"
	"net/http"

	appOffer "github.com/booking-engine/booking-engine/internal/application/offer"
	domainBooking "github.com/booking-engine/booking-engine/internal/domain/booking"
)

type offerCreateRequest struct {
	CustomerID      string `json:"customer_id"`
	ProviderID      string `json:"provider_id"`
	ProviderKind    string `json:"provider_kind"`
	ServiceType     string `json:"service_type,omitempty"`
	Price           int64  `json:"price"`
	DurationMinutes int    `json:"duration_minutes,omitempty"`
	Location        string `json:"location,omitempty"`
}

type offerResponseRequest struct {
	ProviderID string `json:"provider_id"`
	Reason     string `json:"reason,omitempty"`
}

func (s *Server) createOffer(w http.ResponseWriter, r *http.Request) {
	var req offerCreateRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", err.Error())
		return
	}

	b, err := s.offerSvc.Create(r.Context(), appOffer.CreateInput{
		CustomerID:      req.CustomerID,
		ProviderID:      req.ProviderID,
		ProviderKind:    domainBooking.ProviderKind(req.ProviderKind),
		ServiceType:     req.ServiceType,
		Price:           req.Price,
		DurationMinutes: req.DurationMinutes,
		Location:        req.Location,
	})
	if err != nil {
		if errors.Is(err, domainBooking.ErrInvalidBooking) {
			respondError(w, http.StatusBadRequest, "INVALID_PARAM", err.Error())
			return
		}
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
		return
	}
	respondJSON(w, http.StatusCreated, b)
}

func (s *Server) listOffers(w http.ResponseWriter, r *http.Request) {
	limit, offset := parseLimitOffset(r, 100, 200)

	var status *domainBooking.ResponseStatus
	if v := r.URL.Query().Get("status"); v != "" {
		st := domainBooking.ResponseStatus(v)
		status = &st
	}

	offers, err := s.offerSvc.List(r.Context(), status, limit, offset)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"offers": offers})
}

func (s *Server) listPendingOffers(w http.ResponseWriter, r *http.Request) {
	offers, err := s.offerSvc.PendingOffers(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"offers": offers})
}

func (s *Server) getOffer(w http.ResponseWriter, r *http.Request) {
	id, err := parseUUIDParam(r, "offerId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "invalid offerId")
		return
	}
	b, err := s.offerSvc.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, domainBooking.ErrNotFound) {
			respondError(w, http.StatusNotFound, "NOT_FOUND", "offer not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, b)
}

func (s *Server) acceptOffer(w http.ResponseWriter, r *http.Request) {
	id, err := parseUUIDParam(r, "offerId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "invalid offerId")
		return
	}
	var req offerResponseRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", err.Error())
		return
	}

	rec, err := s.offerSvc.Accept(r.Context(), id, req.ProviderID)
	if err != nil {
		respondOfferError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"offer_id":   id,
		"commission": rec,
	})
}

func (s *Server) rejectOffer(w http.ResponseWriter, r *http.Request) {
	id, err := parseUUIDParam(r, "offerId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "invalid offerId")
		return
	}
	var req offerResponseRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", err.Error())
		return
	}

	if err := s.offerSvc.Reject(r.Context(), id, req.ProviderID, req.Reason); err != nil {
		respondOfferError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"offer_id": id, "status": "rejected"})
}

func (s *Server) getOfferCommission(w http.ResponseWriter, r *http.Request) {
	id, err := parseUUIDParam(r, "offerId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "invalid offerId")
		return
	}
	rec, err := s.commissionSvc.GetByBookingID(r.Context(), id)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
		return
	}
	if rec == nil {
		respondError(w, http.StatusNotFound, "NOT_FOUND", "no commission for this offer")
		return
	}
	respondJSON(w, http.StatusOK, rec)
}

// respondOfferError maps lifecycle errors onto HTTP statuses. A lost race
// and a terminal offer are indistinguishable to the caller on purpose.
func respondOfferError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domainBooking.ErrNotFound):
		respondError(w, http.StatusNotFound, "NOT_FOUND", "offer not found")
	case errors.Is(err, appOffer.ErrProviderMismatch):
		respondError(w, http.StatusForbidden, "FORBIDDEN", "offer belongs to another provider")
	case errors.Is(err, domainBooking.ErrAlreadyResolved):
		respondError(w, http.StatusConflict, "CONFLICT", "booking no longer available")
	case errors.Is(err, domainBooking.ErrOfferExpired):
		respondError(w, http.StatusGone, "EXPIRED", "offer window has elapsed")
	case errors.Is(err, appOffer.ErrIssuanceFailed):
		respondError(w, http.StatusBadGateway, "ISSUANCE_FAILED", "commission issuance failed, please retry")
	default:
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
	}
}
