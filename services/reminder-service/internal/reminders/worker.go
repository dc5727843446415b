package reminders

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/slotwise/slotwise/services/reminder-service/internal/notify"
	"github.com/slotwise/slotwise/services/reminder-service/internal/storage"
)

// Store is the subset of the repository the worker needs.
type Store interface {
	ClaimDue(ctx context.Context, now time.Time) ([]storage.Claimed, error)
	Unclaim(ctx context.Context, id int64, remindAt time.Time) error
}

type Worker struct {
	repo     Store
	sender   notify.Sender
	logger   *slog.Logger
	interval time.Duration
}

type WorkerConfig struct {
	Interval time.Duration
}

func NewWorker(repo Store, sender notify.Sender, logger *slog.Logger, cfg WorkerConfig) *Worker {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Minute
	}
	return &Worker{
		repo:     repo,
		sender:   sender,
		logger:   logger,
		interval: cfg.Interval,
	}
}

func (w *Worker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			processed, err := w.Tick(ctx, time.Now())
			if err != nil {
				w.logger.Error("reminder tick failed", "err", err)
				continue
			}
			if processed > 0 {
				w.logger.Info("reminders processed", "count", processed)
			}
		}
	}
}

// Tick claims every due reminder and walks the claimed set once. Outcomes
// per reminder: skip (booking cancelled), defer (quiet hours, moved to the
// window end), deliver, or unclaim at the same instant on a retryable
// failure so the next tick retries. Permanent failures stay claimed.
//
// A failed unclaim never aborts the walk; the rest of the batch is already
// claimed and would otherwise be stranded as sent without delivery.
func (w *Worker) Tick(ctx context.Context, now time.Time) (int, error) {
	claimed, err := w.repo.ClaimDue(ctx, now)
	if err != nil {
		return 0, err
	}

	processed := 0
	for _, c := range claimed {
		if c.Booking.Status == "cancelled" {
			processed++
			continue
		}

		loc, err := time.LoadLocation(c.Booking.Timezone)
		if err != nil {
			w.logger.Error("bad timezone on booking snapshot", "booking_id", c.BookingID, "tz", c.Booking.Timezone)
			loc = time.UTC
		}
		if InQuietHours(now, c.Booking.QuietStart, c.Booking.QuietEnd, loc) {
			deferred := QuietWindowEnd(now, c.Booking.QuietStart, c.Booking.QuietEnd, loc)
			if err := w.repo.Unclaim(ctx, c.ID, deferred); err != nil {
				w.logger.Error("unclaim failed, reminder stays claimed", "booking_id", c.BookingID, "err", err)
				continue
			}
			w.logger.Info("reminder deferred past quiet hours", "booking_id", c.BookingID, "remind_at", deferred)
			continue
		}

		text := reminderText(c)
		if err := w.sender.Send(ctx, c.Booking.ChatID, text); err != nil {
			if notify.IsRetryable(err) {
				if uncErr := w.repo.Unclaim(ctx, c.ID, c.RemindAt); uncErr != nil {
					w.logger.Error("unclaim failed, reminder stays claimed", "booking_id", c.BookingID, "err", uncErr)
					continue
				}
				w.logger.Warn("reminder delivery failed, will retry", "booking_id", c.BookingID, "err", err)
				continue
			}
			w.logger.Error("reminder delivery failed permanently", "booking_id", c.BookingID, "err", err)
			processed++
			continue
		}
		processed++
	}
	return processed, nil
}

func reminderText(c storage.Claimed) string {
	loc, err := time.LoadLocation(c.Booking.Timezone)
	if err != nil {
		loc = time.UTC
	}
	local := c.Booking.StartTime.In(loc)
	return fmt.Sprintf("Reminder: %s on %s at %s",
		c.Booking.ServiceName, local.Format("Mon, 2 Jan"), local.Format("15:04"))
}
