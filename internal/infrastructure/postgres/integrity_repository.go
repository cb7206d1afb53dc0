package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/booking-engine/booking-engine/internal/domain/integrity"
)

// IntegrityRepository implements integrity.Repository.
type IntegrityRepository struct {
	pool *pgxpool.Pool
}

func NewIntegrityRepository(pool *pgxpool.Pool) *IntegrityRepository {
	return &IntegrityRepository{pool: pool}
}

func (r *IntegrityRepository) SaveReport(ctx context.Context, rep *integrity.Report) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO integrity_reports (report_id, generated_at, scanned, should_block, signature)
		VALUES ($1,$2,$3,$4,$5)
	`, rep.ReportID, rep.GeneratedAt, rep.Scanned, rep.ShouldBlock(), rep.Signature)
	if err != nil {
		return err
	}
	for _, v := range rep.Violations {
		_, err = tx.Exec(ctx, `
			INSERT INTO integrity_violations (violation_id, report_id, type, severity, booking_id, commission_id, message, detected_at, remediated_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		`, v.ViolationID, v.ReportID, v.Type, v.Severity, v.BookingID, v.CommissionID, v.Message, v.DetectedAt, v.RemediatedAt)
		if err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func (r *IntegrityRepository) GetViolation(ctx context.Context, violationID uuid.UUID) (*integrity.Violation, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, violation_id, report_id, type, severity, booking_id, commission_id, message, detected_at, remediated_at
		FROM integrity_violations WHERE violation_id=$1
	`, violationID)
	var v integrity.Violation
	if err := row.Scan(&v.ID, &v.ViolationID, &v.ReportID, &v.Type, &v.Severity, &v.BookingID, &v.CommissionID, &v.Message, &v.DetectedAt, &v.RemediatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &v, nil
}

func (r *IntegrityRepository) MarkRemediated(ctx context.Context, violationID uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE integrity_violations SET remediated_at=NOW() WHERE violation_id=$1
	`, violationID)
	return err
}
