package storage

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/slotwise/slotwise/libs/db"
	"github.com/slotwise/slotwise/services/booking-service/internal/model"
)

type BookingRepository struct {
	pool *db.Pool
}

func NewBookingRepository(pool *db.Pool) *BookingRepository {
	return &BookingRepository{pool: pool}
}

func (r *BookingRepository) Begin(ctx context.Context) (pgx.Tx, error) {
	return r.pool.Begin(ctx)
}

const bookingColumns = `id::text, master_id::text, service_id::text,
	COALESCE(extra_service_ids, '{}'), client_id::text, start_time, end_time,
	status, source, COALESCE(client_note, ''), COALESCE(master_note, ''),
	price::text, cancelled_at, created_at`

func scanBooking(row pgx.Row) (model.Booking, error) {
	var b model.Booking
	var cancelledAt *time.Time
	err := row.Scan(
		&b.ID,
		&b.MasterID,
		&b.ServiceID,
		&b.ExtraServiceIDs,
		&b.ClientID,
		&b.StartTime,
		&b.EndTime,
		&b.Status,
		&b.Source,
		&b.ClientNote,
		&b.MasterNote,
		&b.Price,
		&cancelledAt,
		&b.CreatedAt,
	)
	if err != nil {
		return model.Booking{}, err
	}
	b.CancelledAt = cancelledAt
	return b, nil
}

// Create inserts the booking row. The table carries an exclusion constraint
// over (master_id, tstzrange(start_time, end_time)) restricted to
// pending/confirmed rows; a violation surfaces through IsConflict.
func (r *BookingRepository) Create(ctx context.Context, tx pgx.Tx, b *model.Booking) (string, error) {
	var id string
	err := tx.QueryRow(ctx, `
		INSERT INTO bookings
			(master_id, service_id, extra_service_ids, client_id, start_time, end_time, status, source, client_note, price)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id::text
	`, b.MasterID, b.ServiceID, b.ExtraServiceIDs, b.ClientID, b.StartTime, b.EndTime,
		b.Status, b.Source, b.ClientNote, b.Price).Scan(&id)
	if err != nil {
		return "", err
	}
	return id, nil
}

func (r *BookingRepository) GetByID(ctx context.Context, id string) (model.Booking, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE id = $1
	`, id)
	return scanBooking(row)
}

func (r *BookingRepository) GetForUpdate(ctx context.Context, tx pgx.Tx, id string) (model.Booking, error) {
	row := tx.QueryRow(ctx, `
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE id = $1
		FOR UPDATE
	`, id)
	return scanBooking(row)
}

// CountOverlapping is the reschedule pre-check: live bookings of the master
// overlapping [start, end), excluding the booking being moved. Conflicting
// rows are locked so the subsequent UPDATE runs against a stable set; the
// exclusion constraint remains the final arbiter.
func (r *BookingRepository) CountOverlapping(ctx context.Context, tx pgx.Tx, masterID string, start, end time.Time, excludeID string) (int, error) {
	var n int
	err := tx.QueryRow(ctx, `
		SELECT count(*)
		FROM (
			SELECT id FROM bookings
			WHERE master_id = $1
			  AND id <> $4
			  AND status IN ('pending', 'confirmed')
			  AND start_time < $3
			  AND end_time > $2
			FOR UPDATE
		) conflicting
	`, masterID, start, end, excludeID).Scan(&n)
	return n, err
}

func (r *BookingRepository) UpdateTimes(ctx context.Context, tx pgx.Tx, id string, start, end time.Time) error {
	tag, err := tx.Exec(ctx, `
		UPDATE bookings
		SET start_time = $2,
		    end_time = $3,
		    updated_at = now()
		WHERE id = $1
	`, id, start, end)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *BookingRepository) SetStatus(ctx context.Context, tx pgx.Tx, id, from, to string) error {
	tag, err := tx.Exec(ctx, `
		UPDATE bookings
		SET status = $3,
		    updated_at = now()
		WHERE id = $1 AND status = $2
	`, id, from, to)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *BookingRepository) Cancel(ctx context.Context, tx pgx.Tx, id string) (time.Time, error) {
	var cancelledAt time.Time
	err := tx.QueryRow(ctx, `
		UPDATE bookings
		SET status = 'cancelled',
		    cancelled_at = now(),
		    updated_at = now()
		WHERE id = $1
		RETURNING cancelled_at
	`, id).Scan(&cancelledAt)
	return cancelledAt, err
}

// CountActiveByClient counts future pending/confirmed bookings the client
// holds with this master (the anti-spam cap input).
func (r *BookingRepository) CountActiveByClient(ctx context.Context, masterID, clientID string, now time.Time) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `
		SELECT count(*)
		FROM bookings
		WHERE master_id = $1
		  AND client_id = $2
		  AND status IN ('pending', 'confirmed')
		  AND start_time > $3
	`, masterID, clientID, now).Scan(&n)
	return n, err
}

// HasCompletedVisit reports whether the client has any completed booking with
// the master (drives the first-visit discount).
func (r *BookingRepository) HasCompletedVisit(ctx context.Context, masterID, clientID string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM bookings
			WHERE master_id = $1 AND client_id = $2 AND status = 'completed'
		)
	`, masterID, clientID).Scan(&exists)
	return exists, err
}

// ListBusyIntervals loads the occupied intervals feeding slot generation:
// live bookings plus blocks, clipped to [start, end) by overlap.
func (r *BookingRepository) ListBusyIntervals(ctx context.Context, masterID string, start, end time.Time) ([]model.Block, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT start_time, end_time FROM bookings
		WHERE master_id = $1
		  AND status IN ('pending', 'confirmed')
		  AND start_time < $3
		  AND end_time > $2
		UNION ALL
		SELECT start_time, end_time FROM blocks
		WHERE master_id = $1
		  AND start_time < $3
		  AND end_time > $2
	`, masterID, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Block
	for rows.Next() {
		var b model.Block
		if err := rows.Scan(&b.StartTime, &b.EndTime); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}

func (r *BookingRepository) ListByMaster(ctx context.Context, masterID string, limit int) ([]model.Booking, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx, `
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE master_id = $1
		ORDER BY start_time DESC
		LIMIT $2
	`, masterID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}

// IsConflict matches the exclusion-constraint violation raised when two live
// bookings for one master overlap.
func IsConflict(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23P01"
}

// IsDuplicate matches unique-constraint violations (e.g. exclusion dates).
func IsDuplicate(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func IsNotFound(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}
