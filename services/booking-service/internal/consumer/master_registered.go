package consumer

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/segmentio/kafka-go"
	"github.com/slotwise/slotwise/services/booking-service/internal/model"
	"github.com/slotwise/slotwise/services/booking-service/internal/storage"
)

const TopicMasterRegistered = "master.registered.v1"

type masterRegisteredPayload struct {
	MasterID string `json:"master_id"`
	Slug     string `json:"slug"`
	Name     string `json:"name"`
	Timezone string `json:"timezone"`
}

// MasterRegisteredHandler seeds the local master row when the identity
// service announces a new account. Settings are not written here: GetSettings
// falls back to defaults until the master saves their own.
func MasterRegisteredHandler(repo *storage.CatalogRepository, logger *slog.Logger) Handler {
	return func(ctx context.Context, msg kafka.Message) error {
		var p masterRegisteredPayload
		if err := json.Unmarshal(msg.Value, &p); err != nil {
			logger.Error("master registered payload unmarshal failed", "err", err)
			return nil
		}
		if p.MasterID == "" || p.Slug == "" {
			logger.Error("master registered payload incomplete", "master_id", p.MasterID)
			return nil
		}
		if p.Timezone == "" {
			p.Timezone = "UTC"
		}
		if err := repo.UpsertMaster(ctx, model.Master{
			ID:       p.MasterID,
			Slug:     p.Slug,
			Name:     p.Name,
			Timezone: p.Timezone,
		}); err != nil {
			return err
		}
		logger.Info("master registered", "master_id", p.MasterID, "slug", p.Slug)
		return nil
	}
}
