package postgres

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/booking-engine/booking-engine/internal/domain/booking"
)

// BookingRepository implements booking.Repository.
type BookingRepository struct {
	pool *pgxpool.Pool
}

func NewBookingRepository(pool *pgxpool.Pool) *BookingRepository {
	return &BookingRepository{pool: pool}
}

func (r *BookingRepository) Create(ctx context.Context, b *booking.Booking) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO bookings (booking_id, customer_id, provider_id, provider_kind, service_type, price, duration_minutes, location, response_status, deadline, accepted_at, decline_reason, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
	`, b.BookingID, b.CustomerID, b.ProviderID, b.ProviderKind, b.ServiceType, b.Price, b.DurationMinutes, b.Location, b.ResponseStatus, b.Deadline, b.AcceptedAt, b.DeclineReason, b.CreatedAt)
	return err
}

func (r *BookingRepository) GetByID(ctx context.Context, bookingID uuid.UUID) (*booking.Booking, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, booking_id, customer_id, provider_id, provider_kind, service_type, price, duration_minutes, location, response_status, deadline, accepted_at, decline_reason, created_at
		FROM bookings WHERE booking_id=$1
	`, bookingID)
	return scanBooking(row)
}

func (r *BookingRepository) List(ctx context.Context, status *booking.ResponseStatus, limit, offset int) ([]*booking.Booking, error) {
	query := `
		SELECT id, booking_id, customer_id, provider_id, provider_kind, service_type, price, duration_minutes, location, response_status, deadline, accepted_at, decline_reason, created_at
		FROM bookings`
	args := []interface{}{}
	if status != nil {
		query += " WHERE response_status=$1"
		args = append(args, *status)
	}
	query += " ORDER BY created_at DESC"
	if limit > 0 {
		query += " LIMIT $" + strconv.Itoa(len(args)+1) + " OFFSET $" + strconv.Itoa(len(args)+2)
		args = append(args, limit, offset)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var bookings []*booking.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, b)
	}
	return bookings, rows.Err()
}

func (r *BookingRepository) ListAwaiting(ctx context.Context) ([]*booking.Booking, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, booking_id, customer_id, provider_id, provider_kind, service_type, price, duration_minutes, location, response_status, deadline, accepted_at, decline_reason, created_at
		FROM bookings WHERE response_status=$1 ORDER BY deadline ASC
	`, booking.StatusAwaitingResponse)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var bookings []*booking.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, b)
	}
	return bookings, rows.Err()
}

// CompareAndSetStatus is the single write path for response status. The
// WHERE clause carries the expected status, so the database decides which
// of several concurrent callers wins.
func (r *BookingRepository) CompareAndSetStatus(ctx context.Context, bookingID uuid.UUID, from, to booking.ResponseStatus, acceptedAt *time.Time, declineReason *string) (bool, error) {
	res, err := r.pool.Exec(ctx, `
		UPDATE bookings
		SET response_status=$3, accepted_at=$4, decline_reason=COALESCE($5, decline_reason)
		WHERE booking_id=$1 AND response_status=$2
	`, bookingID, from, to, acceptedAt, declineReason)
	if err != nil {
		return false, err
	}
	return res.RowsAffected() == 1, nil
}

func scanBooking(row pgx.Row) (*booking.Booking, error) {
	var b booking.Booking
	var acceptedAt *time.Time
	var declineReason *string
	if err := row.Scan(&b.ID, &b.BookingID, &b.CustomerID, &b.ProviderID, &b.ProviderKind, &b.ServiceType, &b.Price, &b.DurationMinutes, &b.Location, &b.ResponseStatus, &b.Deadline, &acceptedAt, &declineReason, &b.CreatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	b.AcceptedAt = acceptedAt
	b.DeclineReason = declineReason
	return &b, nil
}
