package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/slotwise/slotwise/services/booking-service/internal/booking"
	"github.com/slotwise/slotwise/services/booking-service/internal/outbox"
	"github.com/slotwise/slotwise/services/booking-service/internal/storage"
)

// AdminCreate books on behalf of a walk-in or phone client. It runs the same
// reservation protocol minus the per-client cap and lands directly in
// confirmed.
func (h *BookingHandler) AdminCreate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req createBookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.ServiceID = strings.TrimSpace(req.ServiceID)
	req.ClientChatID = strings.TrimSpace(req.ClientChatID)
	req.ClientName = strings.TrimSpace(req.ClientName)
	if req.ServiceID == "" || req.ClientChatID == "" || req.ClientName == "" {
		http.Error(w, "missing required fields", http.StatusBadRequest)
		return
	}
	start, err := time.Parse(time.RFC3339, req.StartTime)
	if err != nil {
		http.Error(w, "invalid start_time", http.StatusBadRequest)
		return
	}

	master, err := h.catalog.GetMaster(r.Context(), masterIDFromContext(r.Context()))
	if err != nil {
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}

	h.reserve(w, r, master, req, start, "admin", booking.StatusConfirmed)
}

type transitionRequest struct {
	BookingID string `json:"booking_id"`
}

// Confirm moves a pending booking to confirmed and emits the lifecycle event
// that schedules reminders and calendar sync.
func (h *BookingHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, booking.StatusPending, booking.StatusConfirmed, outbox.EventBookingConfirmed)
}

func (h *BookingHandler) Complete(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, booking.StatusConfirmed, booking.StatusCompleted, outbox.EventBookingCompleted)
}

func (h *BookingHandler) transition(w http.ResponseWriter, r *http.Request, from, to booking.Status, eventType string) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req transitionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.BookingID = strings.TrimSpace(req.BookingID)
	if req.BookingID == "" {
		http.Error(w, "booking_id required", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	tx, err := h.bookings.Begin(ctx)
	if err != nil {
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}
	defer func() { _ = tx.Rollback(ctx) }()

	b, err := h.bookings.GetForUpdate(ctx, tx, req.BookingID)
	if err != nil {
		if storage.IsNotFound(err) {
			http.Error(w, "booking not found", http.StatusNotFound)
			return
		}
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}
	if b.MasterID != masterIDFromContext(ctx) {
		http.Error(w, "booking not found", http.StatusNotFound)
		return
	}
	if b.Status != string(from) {
		writeDomainError(w, booking.ErrInvalidState)
		return
	}

	if err := h.bookings.SetStatus(ctx, tx, b.ID, string(from), string(to)); err != nil {
		if storage.IsNotFound(err) {
			writeDomainError(w, booking.ErrInvalidState)
			return
		}
		http.Error(w, "failed to update status", http.StatusInternalServerError)
		return
	}
	b.Status = string(to)

	settings, err := h.catalog.GetSettings(ctx, b.MasterID)
	if err != nil {
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}
	if err := h.insertLifecycleEvent(ctx, tx, eventType, b, settings, time.Time{}); err != nil {
		http.Error(w, "failed to write outbox event", http.StatusInternalServerError)
		return
	}

	if err := tx.Commit(ctx); err != nil {
		http.Error(w, "failed to commit", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, toBookingResponse(b))
}

func (h *BookingHandler) List(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	limit := 100
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 || parsed > 500 {
			http.Error(w, "limit must be 1..500", http.StatusBadRequest)
			return
		}
		limit = parsed
	}
	bookings, err := h.bookings.ListByMaster(r.Context(), masterIDFromContext(r.Context()), limit)
	if err != nil {
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}
	items := make([]bookingResponse, 0, len(bookings))
	for _, b := range bookings {
		items = append(items, toBookingResponse(b))
	}
	writeJSON(w, http.StatusOK, items)
}
