package storage

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/slotwise/slotwise/libs/db"
)

// Binding holds a master's external calendar credentials and target
// calendar. One binding per master.
type Binding struct {
	MasterID     string
	CalendarID   string
	AccessToken  string
	RefreshToken string
	TokenExpiry  time.Time
	PullEnabled  bool
}

// Mapping ties a booking to its remote event. ContentHash is the fingerprint
// of the last pushed state; matching hashes make a push a no-op.
type Mapping struct {
	BookingID     string
	MasterID      string
	RemoteEventID string
	ContentHash   string
}

type Repository struct {
	pool *db.Pool
}

func NewRepository(pool *db.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) GetBinding(ctx context.Context, masterID string) (Binding, error) {
	var b Binding
	err := r.pool.QueryRow(ctx, `
		SELECT master_id::text, calendar_id, access_token, refresh_token, token_expiry, pull_enabled
		FROM calendar_bindings WHERE master_id = $1
	`, masterID).Scan(&b.MasterID, &b.CalendarID, &b.AccessToken, &b.RefreshToken, &b.TokenExpiry, &b.PullEnabled)
	return b, err
}

func (r *Repository) UpsertBinding(ctx context.Context, b Binding) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO calendar_bindings (master_id, calendar_id, access_token, refresh_token, token_expiry, pull_enabled)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (master_id) DO UPDATE SET
			calendar_id = EXCLUDED.calendar_id,
			access_token = EXCLUDED.access_token,
			refresh_token = EXCLUDED.refresh_token,
			token_expiry = EXCLUDED.token_expiry,
			pull_enabled = EXCLUDED.pull_enabled
	`, b.MasterID, b.CalendarID, b.AccessToken, b.RefreshToken, b.TokenExpiry, b.PullEnabled)
	return err
}

// SaveToken persists a refreshed access token before any remote call uses
// it, so a crash mid-sync never loses the rotation.
func (r *Repository) SaveToken(ctx context.Context, masterID, accessToken string, expiry time.Time) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE calendar_bindings
		SET access_token = $2, token_expiry = $3
		WHERE master_id = $1
	`, masterID, accessToken, expiry)
	return err
}

func (r *Repository) ListPullEnabled(ctx context.Context) ([]Binding, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT master_id::text, calendar_id, access_token, refresh_token, token_expiry, pull_enabled
		FROM calendar_bindings WHERE pull_enabled
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Binding
	for rows.Next() {
		var b Binding
		if err := rows.Scan(&b.MasterID, &b.CalendarID, &b.AccessToken, &b.RefreshToken, &b.TokenExpiry, &b.PullEnabled); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}

func (r *Repository) GetMapping(ctx context.Context, bookingID string) (Mapping, error) {
	var m Mapping
	err := r.pool.QueryRow(ctx, `
		SELECT booking_id::text, master_id::text, remote_event_id, content_hash
		FROM calendar_event_mappings WHERE booking_id = $1
	`, bookingID).Scan(&m.BookingID, &m.MasterID, &m.RemoteEventID, &m.ContentHash)
	return m, err
}

func (r *Repository) UpsertMapping(ctx context.Context, m Mapping) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO calendar_event_mappings (booking_id, master_id, remote_event_id, content_hash)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (booking_id) DO UPDATE SET
			remote_event_id = EXCLUDED.remote_event_id,
			content_hash = EXCLUDED.content_hash
	`, m.BookingID, m.MasterID, m.RemoteEventID, m.ContentHash)
	return err
}

func (r *Repository) DeleteMapping(ctx context.Context, bookingID string) error {
	_, err := r.pool.Exec(ctx, `
		DELETE FROM calendar_event_mappings WHERE booking_id = $1
	`, bookingID)
	return err
}

func IsNotFound(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}
