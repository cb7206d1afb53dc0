package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/booking-engine/booking-engine/internal/domain/commission"
)

const uniqueViolationCode = "23505"

// CommissionRepository implements commission.Repository. The uniqueness
// constraint on booking_id is what makes the issuer's insert idempotent.
type CommissionRepository struct {
	pool *pgxpool.Pool
}

func NewCommissionRepository(pool *pgxpool.Pool) *CommissionRepository {
	return &CommissionRepository{pool: pool}
}

func (r *CommissionRepository) Insert(ctx context.Context, rec *commission.CommissionRecord) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO commission_records (commission_id, booking_id, provider_id, amount, status, created_at)
		VALUES ($1,$2,$3,$4,$5,$6)
	`, rec.CommissionID, rec.BookingID, rec.ProviderID, rec.Amount, rec.Status, rec.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			return commission.ErrDuplicate
		}
		return err
	}
	return nil
}

func (r *CommissionRepository) GetByBookingID(ctx context.Context, bookingID uuid.UUID) (*commission.CommissionRecord, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, commission_id, booking_id, provider_id, amount, status, created_at
		FROM commission_records WHERE booking_id=$1
	`, bookingID)
	return scanCommission(row)
}

func (r *CommissionRepository) GetByID(ctx context.Context, commissionID uuid.UUID) (*commission.CommissionRecord, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, commission_id, booking_id, provider_id, amount, status, created_at
		FROM commission_records WHERE commission_id=$1
	`, commissionID)
	return scanCommission(row)
}

func (r *CommissionRepository) List(ctx context.Context) ([]*commission.CommissionRecord, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, commission_id, booking_id, provider_id, amount, status, created_at
		FROM commission_records ORDER BY created_at ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var records []*commission.CommissionRecord
	for rows.Next() {
		rec, err := scanCommission(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (r *CommissionRepository) Delete(ctx context.Context, commissionID uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `
		DELETE FROM commission_records WHERE commission_id=$1
	`, commissionID)
	return err
}

func scanCommission(row pgx.Row) (*commission.CommissionRecord, error) {
	var rec commission.CommissionRecord
	if err := row.Scan(&rec.ID, &rec.CommissionID, &rec.BookingID, &rec.ProviderID, &rec.Amount, &rec.Status, &rec.CreatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &rec, nil
}
