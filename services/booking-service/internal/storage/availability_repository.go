package storage

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/slotwise/slotwise/libs/db"
	"github.com/slotwise/slotwise/services/booking-service/internal/model"
)

type AvailabilityRepository struct {
	pool *db.Pool
}

func NewAvailabilityRepository(pool *db.Pool) *AvailabilityRepository {
	return &AvailabilityRepository{pool: pool}
}

func (r *AvailabilityRepository) ListRules(ctx context.Context, masterID string) ([]model.AvailabilityRule, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id::text, master_id::text, weekday, start_time, end_time, step_minutes
		FROM availability_rules
		WHERE master_id = $1
		ORDER BY weekday, start_time
	`, masterID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.AvailabilityRule
	for rows.Next() {
		var a model.AvailabilityRule
		if err := rows.Scan(&a.ID, &a.MasterID, &a.Weekday, &a.StartTime, &a.EndTime, &a.StepMins); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}

// CreateRule inserts a weekly rule; weekday is also checked by the table
// CHECK (weekday BETWEEN 0 AND 6).
func (r *AvailabilityRepository) CreateRule(ctx context.Context, a model.AvailabilityRule) (string, error) {
	id := uuid.NewString()
	_, err := r.pool.Exec(ctx, `
		INSERT INTO availability_rules (id, master_id, weekday, start_time, end_time, step_minutes)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, id, a.MasterID, a.Weekday, a.StartTime, a.EndTime, a.StepMins)
	if err != nil {
		return "", err
	}
	return id, nil
}

func (r *AvailabilityRepository) DeleteRule(ctx context.Context, masterID, ruleID string) error {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM availability_rules WHERE id = $1 AND master_id = $2
	`, ruleID, masterID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *AvailabilityRepository) ListWindows(ctx context.Context, masterID, from, to string) ([]model.AvailabilityWindow, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id::text, master_id::text, date::text, start_time, end_time
		FROM availability_windows
		WHERE master_id = $1 AND date BETWEEN $2 AND $3
		ORDER BY date, start_time
	`, masterID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.AvailabilityWindow
	for rows.Next() {
		var w model.AvailabilityWindow
		if err := rows.Scan(&w.ID, &w.MasterID, &w.Date, &w.StartTime, &w.EndTime); err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}

func (r *AvailabilityRepository) CreateWindow(ctx context.Context, w model.AvailabilityWindow) (string, error) {
	id := uuid.NewString()
	_, err := r.pool.Exec(ctx, `
		INSERT INTO availability_windows (id, master_id, date, start_time, end_time)
		VALUES ($1, $2, $3, $4, $5)
	`, id, w.MasterID, w.Date, w.StartTime, w.EndTime)
	if err != nil {
		return "", err
	}
	return id, nil
}

func (r *AvailabilityRepository) DeleteWindow(ctx context.Context, masterID, windowID string) error {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM availability_windows WHERE id = $1 AND master_id = $2
	`, windowID, masterID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *AvailabilityRepository) ListExclusions(ctx context.Context, masterID, from, to string) ([]model.Exclusion, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id::text, master_id::text, date::text
		FROM exclusions
		WHERE master_id = $1 AND date BETWEEN $2 AND $3
		ORDER BY date
	`, masterID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Exclusion
	for rows.Next() {
		var e model.Exclusion
		if err := rows.Scan(&e.ID, &e.MasterID, &e.Date); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}

// CreateExclusion relies on UNIQUE (master_id, date); duplicates surface
// through IsDuplicate.
func (r *AvailabilityRepository) CreateExclusion(ctx context.Context, masterID, date string) (string, error) {
	id := uuid.NewString()
	_, err := r.pool.Exec(ctx, `
		INSERT INTO exclusions (id, master_id, date)
		VALUES ($1, $2, $3)
	`, id, masterID, date)
	if err != nil {
		return "", err
	}
	return id, nil
}

func (r *AvailabilityRepository) DeleteExclusion(ctx context.Context, masterID, date string) error {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM exclusions WHERE master_id = $1 AND date = $2
	`, masterID, date)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *AvailabilityRepository) ListBlocks(ctx context.Context, masterID string, from, to time.Time) ([]model.Block, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id::text, master_id::text, start_time, end_time, COALESCE(reason, ''), source, created_at
		FROM blocks
		WHERE master_id = $1 AND start_time < $3 AND end_time > $2
		ORDER BY start_time
	`, masterID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Block
	for rows.Next() {
		var b model.Block
		if err := rows.Scan(&b.ID, &b.MasterID, &b.StartTime, &b.EndTime, &b.Reason, &b.Source, &b.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}

func (r *AvailabilityRepository) CreateBlock(ctx context.Context, b model.Block) (string, error) {
	id := uuid.NewString()
	if b.Source == "" {
		b.Source = "manual"
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO blocks (id, master_id, start_time, end_time, reason, source)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, id, b.MasterID, b.StartTime, b.EndTime, b.Reason, b.Source)
	if err != nil {
		return "", err
	}
	return id, nil
}

func (r *AvailabilityRepository) DeleteBlock(ctx context.Context, masterID, blockID string) error {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM blocks WHERE id = $1 AND master_id = $2
	`, blockID, masterID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// ReplaceCalendarBlocks swaps the sync-sourced blocks for a master in one
// transaction, bounded to the pulled horizon. Manual blocks are untouched.
func (r *AvailabilityRepository) ReplaceCalendarBlocks(ctx context.Context, masterID string, from, to time.Time, busy []model.Block) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `
		DELETE FROM blocks
		WHERE master_id = $1 AND source = 'calendar'
		  AND start_time >= $2 AND end_time <= $3
	`, masterID, from, to); err != nil {
		return err
	}
	for _, b := range busy {
		if _, err := tx.Exec(ctx, `
			INSERT INTO blocks (id, master_id, start_time, end_time, reason, source)
			VALUES ($1, $2, $3, $4, 'external calendar', 'calendar')
		`, uuid.NewString(), masterID, b.StartTime, b.EndTime); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}
