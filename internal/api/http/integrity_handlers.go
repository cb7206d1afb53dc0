package httpapi

import (
	"errors"
	"net/http"

	domainIntegrity "github.com/booking-engine/booking-engine/internal/domain/integrity"
)

func (s *Server) runIntegrityScan(w http.ResponseWriter, r *http.Request) {
	report, err := s.integritySvc.Scan(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"report":       report,
		"should_block": report.ShouldBlock(),
	})
}

func (s *Server) remediateViolation(w http.ResponseWriter, r *http.Request) {
	id, err := parseUUIDParam(r, "violationId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "invalid violationId")
		return
	}

	if err := s.integritySvc.Remediate(r.Context(), id); err != nil {
		switch {
		case errors.Is(err, domainIntegrity.ErrViolationNotFound):
			respondError(w, http.StatusNotFound, "NOT_FOUND", "violation not found")
		case errors.Is(err, domainIntegrity.ErrNotRemediable):
			respondError(w, http.StatusUnprocessableEntity, "NOT_REMEDIABLE", "only orphan commissions can be remediated")
		case errors.Is(err, domainIntegrity.ErrNotOrphaned):
			respondError(w, http.StatusConflict, "CONFLICT", "commission is no longer provably orphaned")
		default:
			respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
		}
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"violation_id": id, "status": "remediated"})
}
