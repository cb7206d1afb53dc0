package integrity

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	domainBooking "github.com/booking-engine/booking-engine/internal/domain/booking"
	domainCommission "github.com/booking-engine/booking-engine/internal/domain/commission"
	domainIntegrity "github.com/booking-engine/booking-engine/internal/domain/integrity"
	domainSideEffect "github.com/booking-engine/booking-engine/internal/domain/sideeffect"
)

// Config tunes the guard's checks.
type Config struct {
	// TolerancePct is the allowed |amount − price| drift, as a percentage
	// of the price. Absorbs rounding in stores that carry fractional units.
	TolerancePct decimal.Decimal

	// CommissionLatencyBudget bounds commission createdAt − acceptedAt.
	CommissionLatencyBudget time.Duration

	ChatLatencyBudget   time.Duration
	NotifyLatencyBudget time.Duration

	// SigningKey enables tamper-evident report signatures when non-empty.
	SigningKey []byte

	// Rules are configurable advisory audit expressions.
	Rules []Rule
}

// Service is the integrity guard: an out-of-band auditor that re-derives
// the revenue invariants from the ledger itself instead of trusting the
// state machine's bookkeeping. It exists to catch bugs in the engine.
type Service struct {
	bookings    domainBooking.Repository
	commissions domainCommission.Repository
	effects     domainSideEffect.Repository
	reports     domainIntegrity.Repository
	cfg         Config
	logger      zerolog.Logger
}

func NewService(
	bookings domainBooking.Repository,
	commissions domainCommission.Repository,
	effects domainSideEffect.Repository,
	reports domainIntegrity.Repository,
	cfg Config,
	logger zerolog.Logger,
) *Service {
	return &Service{
		bookings:    bookings,
		commissions: commissions,
		effects:     effects,
		reports:     reports,
		cfg:         cfg,
		logger:      logger.With().Str("service", "integrity").Logger(),
	}
}

// Scan audits the whole ledger and persists the resulting report so its
// violation ids stay resolvable for remediation.
func (s *Service) Scan(ctx context.Context) (*domainIntegrity.Report, error) {
	bookings, err := s.bookings.List(ctx, nil, 0, 0)
	if err != nil {
		return nil, fmt.Errorf("scan bookings: %w", err)
	}
	commissions, err := s.commissions.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("scan commissions: %w", err)
	}

	report := &domainIntegrity.Report{
		ReportID:    uuid.New(),
		GeneratedAt: time.Now(),
		Scanned:     len(bookings) + len(commissions),
		Violations:  []*domainIntegrity.Violation{},
	}

	byBooking := map[uuid.UUID]*domainBooking.Booking{}
	for _, b := range bookings {
		byBooking[b.BookingID] = b
	}
	commissionsByBooking := map[uuid.UUID][]*domainCommission.CommissionRecord{}
	for _, rec := range commissions {
		commissionsByBooking[rec.BookingID] = append(commissionsByBooking[rec.BookingID], rec)
	}

	s.checkBookings(report, bookings, commissionsByBooking)
	s.checkCommissions(report, byBooking, commissionsByBooking)
	s.checkSideEffects(ctx, report, byBooking)
	s.applyRules(report, bookings, commissionsByBooking)

	if len(s.cfg.SigningKey) > 0 {
		sig, err := domainIntegrity.SignReport(report, s.cfg.SigningKey)
		if err != nil {
			return nil, fmt.Errorf("sign report: %w", err)
		}
		report.Signature = sig
	}

	if err := s.reports.SaveReport(ctx, report); err != nil {
		return nil, fmt.Errorf("persist report: %w", err)
	}

	s.logger.Info().
		Str("reportId", report.ReportID.String()).
		Int("violations", len(report.Violations)).
		Bool("shouldBlock", report.ShouldBlock()).
		Msg("integrity scan finished")
	return report, nil
}

func (s *Service) checkBookings(report *domainIntegrity.Report, bookings []*domainBooking.Booking, commissionsByBooking map[uuid.UUID][]*domainCommission.CommissionRecord) {
	for _, b := range bookings {
		recs := commissionsByBooking[b.BookingID]

		if b.ResponseStatus == domainBooking.StatusAccepted && len(recs) == 0 {
			report.NewViolation(domainIntegrity.TypeMissingCommission, domainIntegrity.SeverityBlocking, b.BookingID, nil,
				"accepted booking has no commission record")
			continue
		}
		if len(recs) > 1 {
			extra := recs[1]
			report.NewViolation(domainIntegrity.TypeDuplicateCommission, domainIntegrity.SeverityBlocking, b.BookingID, &extra.CommissionID,
				fmt.Sprintf("booking has %d commission records", len(recs)))
		}
		for _, rec := range recs {
			s.checkAmount(report, b, rec)
			s.checkTiming(report, b, rec)
		}
	}
}

func (s *Service) checkAmount(report *domainIntegrity.Report, b *domainBooking.Booking, rec *domainCommission.CommissionRecord) {
	price := decimal.NewFromInt(b.Price)
	amount := decimal.NewFromInt(rec.Amount)
	tolerance := price.Mul(s.cfg.TolerancePct).Div(decimal.NewFromInt(100))
	if amount.Sub(price).Abs().GreaterThan(tolerance) {
		report.NewViolation(domainIntegrity.TypeAmountMismatch, domainIntegrity.SeverityBlocking, b.BookingID, &rec.CommissionID,
			fmt.Sprintf("commission amount %d differs from booking price %d", rec.Amount, b.Price))
	}
}

func (s *Service) checkTiming(report *domainIntegrity.Report, b *domainBooking.Booking, rec *domainCommission.CommissionRecord) {
	if b.AcceptedAt == nil {
		return
	}
	latency := rec.CreatedAt.Sub(*b.AcceptedAt)
	if latency > s.cfg.CommissionLatencyBudget {
		report.NewViolation(domainIntegrity.TypeTimingViolation, domainIntegrity.SeverityAdvisory, b.BookingID, &rec.CommissionID,
			fmt.Sprintf("commission recorded %s after acceptance, budget %s", latency, s.cfg.CommissionLatencyBudget))
	}
}

func (s *Service) checkCommissions(report *domainIntegrity.Report, byBooking map[uuid.UUID]*domainBooking.Booking, commissionsByBooking map[uuid.UUID][]*domainCommission.CommissionRecord) {
	for bookingID, recs := range commissionsByBooking {
		b := byBooking[bookingID]
		if b != nil && b.ResponseStatus == domainBooking.StatusAccepted {
			continue
		}
		// checkBookings already reports duplicates for existing bookings.
		if b == nil && len(recs) > 1 {
			extra := recs[1]
			report.NewViolation(domainIntegrity.TypeDuplicateCommission, domainIntegrity.SeverityBlocking, bookingID, &extra.CommissionID,
				fmt.Sprintf("missing booking has %d commission records", len(recs)))
		}
		reason := "booking is missing"
		if b != nil {
			reason = fmt.Sprintf("booking status is %s", b.ResponseStatus)
		}
		for _, rec := range recs {
			report.NewViolation(domainIntegrity.TypeOrphanCommission, domainIntegrity.SeverityBlocking, bookingID, &rec.CommissionID,
				"orphan commission: "+reason)
		}
	}
}

func (s *Service) checkSideEffects(ctx context.Context, report *domainIntegrity.Report, byBooking map[uuid.UUID]*domainBooking.Booking) {
	rooms, err := s.effects.ListRooms(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("side-effect scan skipped: rooms query failed")
		return
	}
	for _, room := range rooms {
		if room.Latency() > s.cfg.ChatLatencyBudget {
			report.NewViolation(domainIntegrity.TypeLatencyBreach, domainIntegrity.SeverityAdvisory, room.BookingID, nil,
				fmt.Sprintf("chat room created %s after the transition, budget %s", room.Latency(), s.cfg.ChatLatencyBudget))
		}
	}

	notifications, err := s.effects.ListNotifications(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("side-effect scan skipped: notifications query failed")
		return
	}
	for _, n := range notifications {
		if n.Latency() > s.cfg.NotifyLatencyBudget {
			report.NewViolation(domainIntegrity.TypeLatencyBreach, domainIntegrity.SeverityAdvisory, n.BookingID, nil,
				fmt.Sprintf("%s notification created %s after the transition, budget %s", n.Kind, n.Latency(), s.cfg.NotifyLatencyBudget))
		}
	}
}

func (s *Service) applyRules(report *domainIntegrity.Report, bookings []*domainBooking.Booking, commissionsByBooking map[uuid.UUID][]*domainCommission.CommissionRecord) {
	if len(s.cfg.Rules) == 0 {
		return
	}
	for _, b := range bookings {
		var rec *domainCommission.CommissionRecord
		if recs := commissionsByBooking[b.BookingID]; len(recs) > 0 {
			rec = recs[0]
		}
		params := ruleParams(b, rec)
		for _, rule := range s.cfg.Rules {
			matched, err := evaluateRule(rule, params)
			if err != nil {
				s.logger.Error().Err(err).Str("rule", rule.Name).Msg("audit rule evaluation failed")
				continue
			}
			if !matched {
				continue
			}
			msg := rule.Message
			if msg == "" {
				msg = fmt.Sprintf("audit rule %q matched", rule.Name)
			}
			var commissionID *uuid.UUID
			if rec != nil {
				commissionID = &rec.CommissionID
			}
			report.NewViolation(domainIntegrity.TypeRuleViolation, domainIntegrity.SeverityAdvisory, b.BookingID, commissionID, msg)
		}
	}
}

// Remediate deletes a proven orphan commission. The violation is
// re-verified against the live ledger first so a stale report can never
// delete a commission that has since become legitimate.
func (s *Service) Remediate(ctx context.Context, violationID uuid.UUID) error {
	v, err := s.reports.GetViolation(ctx, violationID)
	if err != nil {
		return err
	}
	if v == nil {
		return domainIntegrity.ErrViolationNotFound
	}
	if !v.Remediable() {
		return domainIntegrity.ErrNotRemediable
	}

	rec, err := s.commissions.GetByID(ctx, *v.CommissionID)
	if err != nil {
		return err
	}
	if rec == nil {
		// Already gone; nothing left to clean up.
		return s.reports.MarkRemediated(ctx, violationID)
	}

	b, err := s.bookings.GetByID(ctx, rec.BookingID)
	if err != nil {
		return err
	}
	if b != nil && b.ResponseStatus == domainBooking.StatusAccepted {
		return domainIntegrity.ErrNotOrphaned
	}

	if err := s.commissions.Delete(ctx, rec.CommissionID); err != nil {
		return err
	}
	if err := s.reports.MarkRemediated(ctx, violationID); err != nil {
		return err
	}
	s.logger.Warn().
		Str("violationId", violationID.String()).
		Str("commissionId", rec.CommissionID.String()).
		Str("bookingId", rec.BookingID.String()).
		Msg("orphan commission removed")
	return nil
}
