package integrity

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/json"
	"time"
)

type signaturePayload struct {
	ReportID    string           `json:"reportId"`
	GeneratedAt string           `json:"generatedAt"`
	Scanned     int              `json:"scanned"`
	ShouldBlock bool             `json:"shouldBlock"`
	Violations  []signatureEntry `json:"violations,omitempty"`
}

type signatureEntry struct {
	ViolationID  string `json:"violationId"`
	Type         string `json:"type"`
	Severity     string `json:"severity"`
	BookingID    string `json:"bookingId"`
	CommissionID string `json:"commissionId,omitempty"`
	Message      string `json:"message"`
}

func buildSignaturePayload(r *Report) signaturePayload {
	payload := signaturePayload{
		ReportID:    r.ReportID.String(),
		GeneratedAt: r.GeneratedAt.UTC().Format(time.RFC3339Nano),
		Scanned:     r.Scanned,
		ShouldBlock: r.ShouldBlock(),
	}
	for _, v := range r.Violations {
		entry := signatureEntry{
			ViolationID: v.ViolationID.String(),
			Type:        string(v.Type),
			Severity:    string(v.Severity),
			BookingID:   v.BookingID.String(),
			Message:     v.Message,
		}
		if v.CommissionID != nil {
			entry.CommissionID = v.CommissionID.String()
		}
		payload.Violations = append(payload.Violations, entry)
	}
	return payload
}

// SignReport generates an HMAC signature over the report so the gate
// verdict is tamper evident in a deployment pipeline.
func SignReport(r *Report, key []byte) ([]byte, error) {
	payload := buildSignaturePayload(r)
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	mac := hmac.New(sha256.New, key)
	_, _ = mac.Write(data)
	return mac.Sum(nil), nil
}

// VerifyReport checks a report signature.
func VerifyReport(r *Report, key []byte, signature []byte) (bool, error) {
	expected, err := SignReport(r, key)
	if err != nil {
		return false, err
	}
	return hmac.Equal(expected, signature), nil
}
