package storage

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/slotwise/slotwise/libs/db"
	"github.com/slotwise/slotwise/services/booking-service/internal/model"
)

type CatalogRepository struct {
	pool *db.Pool
}

func NewCatalogRepository(pool *db.Pool) *CatalogRepository {
	return &CatalogRepository{pool: pool}
}

func (r *CatalogRepository) GetMasterBySlug(ctx context.Context, slug string) (model.Master, error) {
	var m model.Master
	err := r.pool.QueryRow(ctx, `
		SELECT id::text, slug, name, timezone, created_at
		FROM masters WHERE slug = $1
	`, slug).Scan(&m.ID, &m.Slug, &m.Name, &m.Timezone, &m.CreatedAt)
	return m, err
}

func (r *CatalogRepository) GetMaster(ctx context.Context, id string) (model.Master, error) {
	var m model.Master
	err := r.pool.QueryRow(ctx, `
		SELECT id::text, slug, name, timezone, created_at
		FROM masters WHERE id = $1
	`, id).Scan(&m.ID, &m.Slug, &m.Name, &m.Timezone, &m.CreatedAt)
	return m, err
}

// UpsertMaster seeds or refreshes a master row from a registration event.
// Replays are harmless: the same payload lands on the same row.
func (r *CatalogRepository) UpsertMaster(ctx context.Context, m model.Master) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO masters (id, slug, name, timezone)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET slug = EXCLUDED.slug, name = EXCLUDED.name, timezone = EXCLUDED.timezone
	`, m.ID, m.Slug, m.Name, m.Timezone)
	return err
}

// GetOrCreateClient keys clients by the external chat identifier so repeat
// bookers keep one history. The upsert refreshes the display name.
func (r *CatalogRepository) GetOrCreateClient(ctx context.Context, chatID, name string) (model.Client, error) {
	var c model.Client
	err := r.pool.QueryRow(ctx, `
		INSERT INTO clients (id, chat_id, name)
		VALUES ($1, $2, $3)
		ON CONFLICT (chat_id) DO UPDATE SET name = EXCLUDED.name
		RETURNING id::text, chat_id, name, created_at
	`, uuid.NewString(), chatID, name).Scan(&c.ID, &c.ChatID, &c.Name, &c.CreatedAt)
	return c, err
}

func (r *CatalogRepository) GetClient(ctx context.Context, id string) (model.Client, error) {
	var c model.Client
	err := r.pool.QueryRow(ctx, `
		SELECT id::text, chat_id, name, created_at FROM clients WHERE id = $1
	`, id).Scan(&c.ID, &c.ChatID, &c.Name, &c.CreatedAt)
	return c, err
}

const serviceColumns = `id::text, master_id::text, name, duration_minutes, buffer_before_minutes, buffer_after_minutes, price, active, created_at`

func (r *CatalogRepository) GetService(ctx context.Context, masterID, serviceID string) (model.Service, error) {
	var s model.Service
	err := r.pool.QueryRow(ctx, `
		SELECT `+serviceColumns+` FROM services WHERE id = $1 AND master_id = $2
	`, serviceID, masterID).Scan(
		&s.ID, &s.MasterID, &s.Name, &s.DurationMins, &s.BufferBefore, &s.BufferAfter,
		&s.Price, &s.Active, &s.CreatedAt)
	return s, err
}

func (r *CatalogRepository) ListServices(ctx context.Context, masterID string, activeOnly bool) ([]model.Service, error) {
	q := `SELECT ` + serviceColumns + ` FROM services WHERE master_id = $1`
	if activeOnly {
		q += ` AND active`
	}
	q += ` ORDER BY created_at`
	rows, err := r.pool.Query(ctx, q, masterID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Service
	for rows.Next() {
		var s model.Service
		if err := rows.Scan(&s.ID, &s.MasterID, &s.Name, &s.DurationMins, &s.BufferBefore,
			&s.BufferAfter, &s.Price, &s.Active, &s.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}

// ResolveActiveServices loads the primary service plus extras, all of which
// must belong to the master and be active. A missing or inactive id yields
// pgx.ErrNoRows via the caller's IsNotFound check.
func (r *CatalogRepository) ResolveActiveServices(ctx context.Context, masterID, primaryID string, extraIDs []string) (model.Service, []model.Service, error) {
	primary, err := r.GetService(ctx, masterID, primaryID)
	if err != nil {
		return model.Service{}, nil, err
	}
	if !primary.Active {
		return model.Service{}, nil, pgx.ErrNoRows
	}
	var extras []model.Service
	for _, id := range extraIDs {
		s, err := r.GetService(ctx, masterID, id)
		if err != nil {
			return model.Service{}, nil, err
		}
		if !s.Active {
			return model.Service{}, nil, pgx.ErrNoRows
		}
		extras = append(extras, s)
	}
	return primary, extras, nil
}

func (r *CatalogRepository) CreateService(ctx context.Context, s model.Service) (string, error) {
	id := uuid.NewString()
	_, err := r.pool.Exec(ctx, `
		INSERT INTO services (id, master_id, name, duration_minutes, buffer_before_minutes, buffer_after_minutes, price, active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, id, s.MasterID, s.Name, s.DurationMins, s.BufferBefore, s.BufferAfter, s.Price, s.Active)
	if err != nil {
		return "", err
	}
	return id, nil
}

func (r *CatalogRepository) UpdateService(ctx context.Context, s model.Service) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE services
		SET name = $3, duration_minutes = $4, buffer_before_minutes = $5,
		    buffer_after_minutes = $6, price = $7, active = $8
		WHERE id = $1 AND master_id = $2
	`, s.ID, s.MasterID, s.Name, s.DurationMins, s.BufferBefore, s.BufferAfter, s.Price, s.Active)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// DeactivateService soft-deletes: bookings referencing the service survive.
func (r *CatalogRepository) DeactivateService(ctx context.Context, masterID, serviceID string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE services SET active = false WHERE id = $1 AND master_id = $2
	`, serviceID, masterID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// GetSettings returns stored settings or the defaults when the master has
// never saved any.
func (r *CatalogRepository) GetSettings(ctx context.Context, masterID string) (model.MasterSettings, error) {
	var s model.MasterSettings
	err := r.pool.QueryRow(ctx, `
		SELECT master_id::text, reminder_offsets_hours, COALESCE(quiet_start, ''), COALESCE(quiet_end, ''),
		       min_notice_minutes, cancel_policy_hours, first_visit_discount_pct, calendar_feed_enabled
		FROM master_settings WHERE master_id = $1
	`, masterID).Scan(&s.MasterID, &s.ReminderOffsetsHours, &s.QuietStart, &s.QuietEnd,
		&s.MinNoticeMins, &s.CancelPolicyHours, &s.FirstVisitDiscount, &s.CalendarFeedEnabled)
	if err != nil {
		if IsNotFound(err) {
			return model.DefaultSettings(masterID), nil
		}
		return model.MasterSettings{}, err
	}
	return s, nil
}

func (r *CatalogRepository) UpsertSettings(ctx context.Context, s model.MasterSettings) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO master_settings (master_id, reminder_offsets_hours, quiet_start, quiet_end,
		                             min_notice_minutes, cancel_policy_hours, first_visit_discount_pct, calendar_feed_enabled)
		VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''), $5, $6, $7, $8)
		ON CONFLICT (master_id) DO UPDATE SET
			reminder_offsets_hours = EXCLUDED.reminder_offsets_hours,
			quiet_start = EXCLUDED.quiet_start,
			quiet_end = EXCLUDED.quiet_end,
			min_notice_minutes = EXCLUDED.min_notice_minutes,
			cancel_policy_hours = EXCLUDED.cancel_policy_hours,
			first_visit_discount_pct = EXCLUDED.first_visit_discount_pct,
			calendar_feed_enabled = EXCLUDED.calendar_feed_enabled
	`, s.MasterID, s.ReminderOffsetsHours, s.QuietStart, s.QuietEnd,
		s.MinNoticeMins, s.CancelPolicyHours, s.FirstVisitDiscount, s.CalendarFeedEnabled)
	return err
}
