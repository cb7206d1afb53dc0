package integrity

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Type classifies an invariant violation found in the ledger.
type Type string

const (
	// TypeMissingCommission: booking ACCEPTED with no commission record.
	TypeMissingCommission Type = "MISSING_COMMISSION"
	// TypeDuplicateCommission: more than one commission for a booking.
	TypeDuplicateCommission Type = "DUPLICATE_COMMISSION"
	// TypeAmountMismatch: commission amount differs from the booking price
	// beyond the configured tolerance.
	TypeAmountMismatch Type = "AMOUNT_MISMATCH"
	// TypeOrphanCommission: commission whose booking is missing or not
	// ACCEPTED.
	TypeOrphanCommission Type = "ORPHAN_COMMISSION"
	// TypeTimingViolation: commission recorded too long after acceptance.
	TypeTimingViolation Type = "TIMING_VIOLATION"
	// TypeLatencyBreach: side-effect artifact created past its budget.
	TypeLatencyBreach Type = "LATENCY_BREACH"
	// TypeRuleViolation: a configured audit rule matched.
	TypeRuleViolation Type = "RULE_VIOLATION"
)

// Severity decides whether a violation gates deployments.
type Severity string

const (
	SeverityBlocking Severity = "BLOCKING"
	SeverityAdvisory Severity = "ADVISORY"
)

var (
	ErrViolationNotFound = errors.New("violation not found")
	ErrNotRemediable     = errors.New("violation is not remediable")
	ErrNotOrphaned       = errors.New("commission is no longer provably orphaned")
)

// Violation is one invariant breach, with enough detail to drive
// remediation and a machine-readable verdict.
type Violation struct {
	ID           int64      `json:"id"`
	ViolationID  uuid.UUID  `json:"violationId"`
	ReportID     uuid.UUID  `json:"reportId"`
	Type         Type       `json:"type"`
	Severity     Severity   `json:"severity"`
	BookingID    uuid.UUID  `json:"bookingId"`
	CommissionID *uuid.UUID `json:"commissionId,omitempty"`
	Message      string     `json:"message"`
	DetectedAt   time.Time  `json:"detectedAt"`
	RemediatedAt *time.Time `json:"remediatedAt,omitempty"`
}

// Blocking reports whether this violation alone fails the gate.
func (v *Violation) Blocking() bool {
	return v.Severity == SeverityBlocking
}

// Remediable reports whether the remediation path applies. Only proven
// orphan commissions may be cleaned up; everything else needs a human.
func (v *Violation) Remediable() bool {
	return v.Type == TypeOrphanCommission && v.CommissionID != nil && v.RemediatedAt == nil
}

// Report is the outcome of one integrity scan.
type Report struct {
	ReportID    uuid.UUID    `json:"reportId"`
	GeneratedAt time.Time    `json:"generatedAt"`
	Scanned     int          `json:"scanned"`
	Violations  []*Violation `json:"violations"`
	Signature   []byte       `json:"signature,omitempty"`
}

// ShouldBlock is the deployment-gate verdict: true when any blocking
// violation was found.
func (r *Report) ShouldBlock() bool {
	for _, v := range r.Violations {
		if v.Blocking() {
			return true
		}
	}
	return false
}

// NewViolation attaches a violation to a report.
func (r *Report) NewViolation(t Type, sev Severity, bookingID uuid.UUID, commissionID *uuid.UUID, message string) *Violation {
	v := &Violation{
		ViolationID:  uuid.New(),
		ReportID:     r.ReportID,
		Type:         t,
		Severity:     sev,
		BookingID:    bookingID,
		CommissionID: commissionID,
		Message:      message,
		DetectedAt:   r.GeneratedAt,
	}
	r.Violations = append(r.Violations, v)
	return v
}
