package pull

import (
	"context"
	"log/slog"
	"time"

	"github.com/slotwise/slotwise/libs/db"
	"github.com/slotwise/slotwise/services/calendar-service/internal/gcal"
	"github.com/slotwise/slotwise/services/calendar-service/internal/outbox"
	"github.com/slotwise/slotwise/services/calendar-service/internal/storage"
)

// Poller periodically pulls free/busy from every pull-enabled binding and
// publishes the intervals as busy-import events. Hybrid mode: pushes keep
// the remote calendar current, pulls bring externally created busy time back
// into slot generation.
type Poller struct {
	pool     *db.Pool
	repo     *storage.Repository
	remote   *gcal.Client
	outbox   *outbox.Repository
	logger   *slog.Logger
	interval time.Duration
	horizon  time.Duration
}

type PollerConfig struct {
	Interval time.Duration
	Horizon  time.Duration
}

func NewPoller(pool *db.Pool, repo *storage.Repository, remote *gcal.Client, outboxRepo *outbox.Repository, logger *slog.Logger, cfg PollerConfig) *Poller {
	if cfg.Interval <= 0 {
		cfg.Interval = 15 * time.Minute
	}
	if cfg.Horizon <= 0 {
		cfg.Horizon = 14 * 24 * time.Hour
	}
	return &Poller{
		pool:     pool,
		repo:     repo,
		remote:   remote,
		outbox:   outboxRepo,
		logger:   logger,
		interval: cfg.Interval,
		horizon:  cfg.Horizon,
	}
}

func (p *Poller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := p.pollAll(ctx); err != nil {
				p.logger.Error("free/busy poll failed", "err", err)
			}
		}
	}
}

// pollAll continues past per-binding failures so one broken credential
// cannot starve the rest.
func (p *Poller) pollAll(ctx context.Context) error {
	bindings, err := p.repo.ListPullEnabled(ctx)
	if err != nil {
		return err
	}

	now := time.Now()
	for i := range bindings {
		if err := p.pollOne(ctx, &bindings[i], now); err != nil {
			p.logger.Error("free/busy pull failed", "master_id", bindings[i].MasterID, "err", err)
		}
	}
	return nil
}

func (p *Poller) pollOne(ctx context.Context, binding *storage.Binding, now time.Time) error {
	from := now
	to := now.Add(p.horizon)

	busy, err := p.remote.FreeBusy(ctx, binding, from, to)
	if err != nil {
		return err
	}

	spans := make([]outbox.BusySpan, 0, len(busy))
	for _, b := range busy {
		spans = append(spans, outbox.BusySpan{StartTime: b.Start, EndTime: b.End})
	}
	evt, err := outbox.BusyImportedEvent(outbox.BusyImportedPayload{
		MasterID: binding.MasterID,
		From:     from,
		To:       to,
		Busy:     spans,
	})
	if err != nil {
		return err
	}

	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := p.outbox.Insert(ctx, tx, evt); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return err
	}
	p.logger.Info("free/busy imported", "master_id", binding.MasterID, "intervals", len(spans))
	return nil
}
