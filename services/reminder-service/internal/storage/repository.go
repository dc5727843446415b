package storage

import (
	"context"
	"time"

	"github.com/slotwise/slotwise/libs/db"
)

// BookingSnapshot is the local projection of a booking, fed by lifecycle
// events. It carries everything delivery needs so the worker never calls
// back into booking-service.
type BookingSnapshot struct {
	BookingID   string
	MasterID    string
	ChatID      string
	ServiceName string
	StartTime   time.Time
	Timezone    string
	QuietStart  string
	QuietEnd    string
	Status      string
}

type Reminder struct {
	ID        int64
	BookingID string
	RemindAt  time.Time
	Sent      bool
}

// Claimed is a reminder joined with its booking snapshot, returned by the
// atomic claim.
type Claimed struct {
	Reminder
	Booking BookingSnapshot
}

type Repository struct {
	pool *db.Pool
}

func NewRepository(pool *db.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) UpsertBooking(ctx context.Context, s BookingSnapshot) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO reminder_bookings (booking_id, master_id, chat_id, service_name, start_time, timezone, quiet_start, quiet_end, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (booking_id) DO UPDATE SET
			chat_id = EXCLUDED.chat_id,
			service_name = EXCLUDED.service_name,
			start_time = EXCLUDED.start_time,
			timezone = EXCLUDED.timezone,
			quiet_start = EXCLUDED.quiet_start,
			quiet_end = EXCLUDED.quiet_end,
			status = EXCLUDED.status
	`, s.BookingID, s.MasterID, s.ChatID, s.ServiceName, s.StartTime, s.Timezone, s.QuietStart, s.QuietEnd, s.Status)
	return err
}

func (r *Repository) SetBookingStatus(ctx context.Context, bookingID, status string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE reminder_bookings SET status = $2 WHERE booking_id = $1
	`, bookingID, status)
	return err
}

// Insert is conflict-tolerant: a repeat of the same (booking_id, remind_at)
// pair is a no-op, so re-scheduling after a reschedule event is safe to
// replay.
func (r *Repository) Insert(ctx context.Context, bookingID string, remindAt time.Time) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO reminders (booking_id, remind_at)
		VALUES ($1, $2)
		ON CONFLICT (booking_id, remind_at) DO NOTHING
	`, bookingID, remindAt)
	return err
}

func (r *Repository) DeleteUnsent(ctx context.Context, bookingID string) error {
	_, err := r.pool.Exec(ctx, `
		DELETE FROM reminders WHERE booking_id = $1 AND sent = false
	`, bookingID)
	return err
}

// ClaimDue flips sent in the same statement that selects due rows, so each
// reminder is claimed by exactly one worker instance even under concurrent
// ticks. The snapshot join happens after the claim.
func (r *Repository) ClaimDue(ctx context.Context, now time.Time) ([]Claimed, error) {
	rows, err := r.pool.Query(ctx, `
		WITH claimed AS (
			UPDATE reminders
			SET sent = true
			WHERE sent = false AND remind_at <= $1
			RETURNING id, booking_id, remind_at
		)
		SELECT c.id, c.booking_id, c.remind_at,
		       b.master_id, b.chat_id, b.service_name, b.start_time, b.timezone,
		       COALESCE(b.quiet_start, ''), COALESCE(b.quiet_end, ''), b.status
		FROM claimed c
		JOIN reminder_bookings b ON b.booking_id = c.booking_id
		ORDER BY c.remind_at
	`, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Claimed
	for rows.Next() {
		var c Claimed
		c.Sent = true
		if err := rows.Scan(&c.ID, &c.BookingID, &c.RemindAt,
			&c.Booking.MasterID, &c.Booking.ChatID, &c.Booking.ServiceName, &c.Booking.StartTime,
			&c.Booking.Timezone, &c.Booking.QuietStart, &c.Booking.QuietEnd, &c.Booking.Status); err != nil {
			return nil, err
		}
		c.Booking.BookingID = c.BookingID
		out = append(out, c)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}

// Unclaim flips a claimed reminder back to unsent, optionally moving its due
// time. Used for retryable delivery failures and quiet-hours deferral.
func (r *Repository) Unclaim(ctx context.Context, id int64, remindAt time.Time) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE reminders SET sent = false, remind_at = $2 WHERE id = $1
	`, id, remindAt)
	return err
}
