package consumer

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/slotwise/slotwise/services/booking-service/internal/model"
	"github.com/slotwise/slotwise/services/booking-service/internal/storage"
)

const TopicBusyImported = "calendar.busy.imported.v1"

type busyImportedPayload struct {
	MasterID string    `json:"master_id"`
	From     time.Time `json:"from"`
	To       time.Time `json:"to"`
	Busy     []struct {
		StartTime time.Time `json:"start_time"`
		EndTime   time.Time `json:"end_time"`
	} `json:"busy"`
}

// BusyImportHandler mirrors externally-sourced busy intervals into blocks so
// slot generation sees them. Replays are safe: each import replaces the
// calendar-sourced blocks inside its horizon wholesale.
func BusyImportHandler(repo *storage.AvailabilityRepository, logger *slog.Logger) Handler {
	return func(ctx context.Context, msg kafka.Message) error {
		var p busyImportedPayload
		if err := json.Unmarshal(msg.Value, &p); err != nil {
			logger.Error("busy import payload unmarshal failed", "err", err)
			return nil
		}

		blocks := make([]model.Block, 0, len(p.Busy))
		for _, b := range p.Busy {
			blocks = append(blocks, model.Block{
				MasterID:  p.MasterID,
				StartTime: b.StartTime,
				EndTime:   b.EndTime,
			})
		}
		if err := repo.ReplaceCalendarBlocks(ctx, p.MasterID, p.From, p.To, blocks); err != nil {
			return err
		}
		logger.Info("calendar busy intervals imported", "master_id", p.MasterID, "count", len(blocks))
		return nil
	}
}
