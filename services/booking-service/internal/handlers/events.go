package handlers

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/slotwise/slotwise/services/booking-service/internal/model"
	"github.com/slotwise/slotwise/services/booking-service/internal/outbox"
)

// insertLifecycleEvent resolves the references the payload snapshots (client
// chat id, service name, master timezone) and writes the event into the
// booking's own transaction.
func (h *BookingHandler) insertLifecycleEvent(ctx context.Context, tx pgx.Tx, eventType string, b model.Booking, settings model.MasterSettings, oldStart time.Time) error {
	client, err := h.catalog.GetClient(ctx, b.ClientID)
	if err != nil {
		return err
	}
	svc, err := h.catalog.GetService(ctx, b.MasterID, b.ServiceID)
	if err != nil {
		return err
	}
	master, err := h.catalog.GetMaster(ctx, b.MasterID)
	if err != nil {
		return err
	}
	evt, err := outbox.BookingEvent(eventType, b, client, svc.Name, master.Timezone, settings, oldStart)
	if err != nil {
		return err
	}
	return h.outboxRepo.Insert(ctx, tx, evt)
}
