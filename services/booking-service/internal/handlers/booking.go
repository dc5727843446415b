package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/slotwise/slotwise/services/booking-service/internal/booking"
	"github.com/slotwise/slotwise/services/booking-service/internal/model"
	"github.com/slotwise/slotwise/services/booking-service/internal/outbox"
	"github.com/slotwise/slotwise/services/booking-service/internal/slots"
	"github.com/slotwise/slotwise/services/booking-service/internal/storage"
)

type BookingHandler struct {
	catalog      *storage.CatalogRepository
	availability *storage.AvailabilityRepository
	bookings     *storage.BookingRepository
	outboxRepo   *outbox.Repository
	logger       *slog.Logger
}

func NewBookingHandler(catalog *storage.CatalogRepository, availability *storage.AvailabilityRepository, bookings *storage.BookingRepository, outboxRepo *outbox.Repository, logger *slog.Logger) *BookingHandler {
	return &BookingHandler{
		catalog:      catalog,
		availability: availability,
		bookings:     bookings,
		outboxRepo:   outboxRepo,
		logger:       logger,
	}
}

type createBookingRequest struct {
	MasterSlug      string   `json:"master_slug"`
	ServiceID       string   `json:"service_id"`
	ExtraServiceIDs []string `json:"extra_service_ids"`
	ClientChatID    string   `json:"client_chat_id"`
	ClientName      string   `json:"client_name"`
	StartTime       string   `json:"start_time"`
	ClientNote      string   `json:"client_note"`
}

type bookingResponse struct {
	BookingID   string `json:"booking_id"`
	Status      string `json:"status"`
	StartTime   string `json:"start_time"`
	EndTime     string `json:"end_time"`
	Price       string `json:"price"`
	CancelledAt string `json:"cancelled_at,omitempty"`
}

func toBookingResponse(b model.Booking) bookingResponse {
	resp := bookingResponse{
		BookingID: b.ID,
		Status:    b.Status,
		StartTime: b.StartTime.UTC().Format(time.RFC3339),
		EndTime:   b.EndTime.UTC().Format(time.RFC3339),
		Price:     b.Price,
	}
	if b.CancelledAt != nil {
		resp.CancelledAt = b.CancelledAt.UTC().Format(time.RFC3339)
	}
	return resp
}

// Create runs the reservation protocol for a client-initiated booking.
// Checks run cheapest first so a doomed request never opens a transaction.
func (h *BookingHandler) Create(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req createBookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.MasterSlug = strings.TrimSpace(req.MasterSlug)
	req.ServiceID = strings.TrimSpace(req.ServiceID)
	req.ClientChatID = strings.TrimSpace(req.ClientChatID)
	req.ClientName = strings.TrimSpace(req.ClientName)
	if req.MasterSlug == "" || req.ServiceID == "" || req.ClientChatID == "" || req.ClientName == "" {
		http.Error(w, "missing required fields", http.StatusBadRequest)
		return
	}

	start, err := time.Parse(time.RFC3339, req.StartTime)
	if err != nil {
		http.Error(w, "invalid start_time", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	master, err := h.catalog.GetMasterBySlug(ctx, req.MasterSlug)
	if err != nil {
		if storage.IsNotFound(err) {
			http.Error(w, "master not found", http.StatusNotFound)
			return
		}
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}

	h.reserve(w, r, master, req, start, "client", booking.StatusPending)
}

// reserve is shared by client create and admin create; the admin path skips
// the per-client active cap and confirms immediately.
func (h *BookingHandler) reserve(w http.ResponseWriter, r *http.Request, master model.Master, req createBookingRequest, start time.Time, source string, status booking.Status) {
	ctx := r.Context()
	now := time.Now()

	primary, extras, err := h.catalog.ResolveActiveServices(ctx, master.ID, req.ServiceID, req.ExtraServiceIDs)
	if err != nil {
		if storage.IsNotFound(err) {
			writeDomainError(w, booking.ErrServiceNotFound)
			return
		}
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}

	duration := totalDuration(primary, extras)
	end := start.Add(duration)
	blockStart := start.Add(-time.Duration(primary.BufferBefore) * time.Minute)
	blockEnd := end.Add(bufferAfter(primary, extras))

	// One availability load backs two checks: a covered-but-off-grid start
	// is reported as misaligned before the notice check, an uncovered span
	// only after it.
	covering, err := h.coveringWindows(ctx, master, blockStart, blockEnd)
	if err != nil {
		http.Error(w, "failed to load availability", http.StatusInternalServerError)
		return
	}
	if len(covering) > 0 {
		if err := booking.CheckAlignment(covering, blockStart); err != nil {
			writeDomainError(w, err)
			return
		}
	}

	settings, err := h.catalog.GetSettings(ctx, master.ID)
	if err != nil {
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}
	if err := booking.CheckNotice(start, now, time.Duration(settings.MinNoticeMins)*time.Minute); err != nil {
		writeDomainError(w, err)
		return
	}

	if len(covering) == 0 {
		writeDomainError(w, booking.ErrOutsideAvailability)
		return
	}

	client, err := h.catalog.GetOrCreateClient(ctx, req.ClientChatID, req.ClientName)
	if err != nil {
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}

	if source == "client" {
		active, err := h.bookings.CountActiveByClient(ctx, master.ID, client.ID, now)
		if err != nil {
			http.Error(w, "db error", http.StatusInternalServerError)
			return
		}
		if active >= booking.ActiveBookingCap {
			writeDomainError(w, booking.ErrActiveBookingLimit)
			return
		}
	}

	price, err := h.quotePrice(ctx, master.ID, client.ID, primary, extras, settings)
	if err != nil {
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}

	b := &model.Booking{
		MasterID:        master.ID,
		ServiceID:       primary.ID,
		ExtraServiceIDs: req.ExtraServiceIDs,
		ClientID:        client.ID,
		StartTime:       start,
		EndTime:         end,
		Status:          string(status),
		Source:          source,
		ClientNote:      strings.TrimSpace(req.ClientNote),
		Price:           price,
	}

	tx, err := h.bookings.Begin(ctx)
	if err != nil {
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}
	defer func() { _ = tx.Rollback(ctx) }()

	id, err := h.bookings.Create(ctx, tx, b)
	if err != nil {
		if storage.IsConflict(err) {
			writeDomainError(w, booking.ErrSlotConflict)
			return
		}
		http.Error(w, "failed to create booking", http.StatusInternalServerError)
		return
	}
	b.ID = id

	// Every reservation leaves an event in the same transaction: a pending
	// create still has to notify the master, only a confirmed one triggers
	// reminders downstream.
	evt, err := outbox.BookingEvent(outbox.CreationEventType(string(status)), *b, client, primary.Name, master.Timezone, settings, time.Time{})
	if err != nil {
		http.Error(w, "failed to build event payload", http.StatusInternalServerError)
		return
	}
	if err := h.outboxRepo.Insert(ctx, tx, evt); err != nil {
		http.Error(w, "failed to write outbox event", http.StatusInternalServerError)
		return
	}

	if err := tx.Commit(ctx); err != nil {
		http.Error(w, "failed to commit", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, toBookingResponse(*b))
}

type rescheduleRequest struct {
	BookingID    string `json:"booking_id"`
	NewStartTime string `json:"new_start_time"`
}

// Reschedule moves a booking to a new start under double-checked locking:
// the row lock plus overlap pre-check produce a clean error, the exclusion
// constraint stays the final arbiter if a writer slips between them.
func (h *BookingHandler) Reschedule(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req rescheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.BookingID = strings.TrimSpace(req.BookingID)
	if req.BookingID == "" {
		http.Error(w, "booking_id required", http.StatusBadRequest)
		return
	}
	newStart, err := time.Parse(time.RFC3339, req.NewStartTime)
	if err != nil {
		http.Error(w, "invalid new_start_time", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	now := time.Now()

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
	if err := booking.CanMutate(booking.Status(b.Status)); err != nil {
		writeDomainError(w, err)
		return
	}

	settings, err := h.catalog.GetSettings(ctx, b.MasterID)
	if err != nil {
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}
	if err := booking.CheckCancelPolicy(b.StartTime, now, settings.CancelPolicyHours); err != nil {
		writeDomainError(w, err)
		return
	}

	oldStart := b.StartTime
	duration := b.EndTime.Sub(b.StartTime)
	newEnd := newStart.Add(duration)

	// The new interval must sit on the schedule exactly like a fresh
	// reservation: inside an open window, on that window's candidate grid.
	primary, extras, err := h.catalog.ResolveActiveServices(ctx, b.MasterID, b.ServiceID, b.ExtraServiceIDs)
	if err != nil {
		if storage.IsNotFound(err) {
			writeDomainError(w, booking.ErrServiceNotFound)
			return
		}
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}
	master, err := h.catalog.GetMaster(ctx, b.MasterID)
	if err != nil {
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}
	blockStart := newStart.Add(-time.Duration(primary.BufferBefore) * time.Minute)
	blockEnd := newEnd.Add(bufferAfter(primary, extras))
	covering, err := h.coveringWindows(ctx, master, blockStart, blockEnd)
	if err != nil {
		http.Error(w, "failed to load availability", http.StatusInternalServerError)
		return
	}
	if len(covering) == 0 {
		writeDomainError(w, booking.ErrOutsideAvailability)
		return
	}
	if err := booking.CheckAlignment(covering, blockStart); err != nil {
		writeDomainError(w, err)
		return
	}

	overlapping, err := h.bookings.CountOverlapping(ctx, tx, b.MasterID, newStart, newEnd, b.ID)
	if err != nil {
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}
	if overlapping > 0 {
		writeDomainError(w, booking.ErrSlotConflict)
		return
	}

	if err := h.bookings.UpdateTimes(ctx, tx, b.ID, newStart, newEnd); err != nil {
		if storage.IsConflict(err) {
			writeDomainError(w, booking.ErrSlotConflict)
			return
		}
		http.Error(w, "failed to reschedule", http.StatusInternalServerError)
		return
	}
	b.StartTime = newStart
	b.EndTime = newEnd

	if b.Status == string(booking.StatusConfirmed) {
		if err := h.insertLifecycleEvent(ctx, tx, outbox.EventBookingRescheduled, b, settings, oldStart); err != nil {
			http.Error(w, "failed to write outbox event", http.StatusInternalServerError)
			return
		}
	}

	if err := tx.Commit(ctx); err != nil {
		http.Error(w, "failed to commit", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, toBookingResponse(b))
}

type cancelRequest struct {
	BookingID string `json:"booking_id"`
}

func (h *BookingHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req cancelRequest
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
	now := time.Now()

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
	if err := booking.CanMutate(booking.Status(b.Status)); err != nil {
		writeDomainError(w, err)
		return
	}

	settings, err := h.catalog.GetSettings(ctx, b.MasterID)
	if err != nil {
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}
	if err := booking.CheckCancelPolicy(b.StartTime, now, settings.CancelPolicyHours); err != nil {
		writeDomainError(w, err)
		return
	}

	cancelledAt, err := h.bookings.Cancel(ctx, tx, b.ID)
	if err != nil {
		http.Error(w, "failed to cancel", http.StatusInternalServerError)
		return
	}
	b.Status = string(booking.StatusCancelled)
	b.CancelledAt = &cancelledAt

	if err := h.insertLifecycleEvent(ctx, tx, outbox.EventBookingCancelled, b, settings, time.Time{}); err != nil {
		http.Error(w, "failed to write outbox event", http.StatusInternalServerError)
		return
	}

	if err := tx.Commit(ctx); err != nil {
		http.Error(w, "failed to commit", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, toBookingResponse(b))
}

func (h *BookingHandler) Get(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	id := strings.TrimSpace(r.URL.Query().Get("booking_id"))
	if id == "" {
		http.Error(w, "booking_id required", http.StatusBadRequest)
		return
	}
	b, err := h.bookings.GetByID(r.Context(), id)
	if err != nil {
		if storage.IsNotFound(err) {
			http.Error(w, "booking not found", http.StatusNotFound)
			return
		}
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, toBookingResponse(b))
}

// coveringWindows loads the open windows around the requested block and
// returns the ones that fully contain it, looking one day back as well since
// a window can cross midnight UTC relative to the master's zone.
func (h *BookingHandler) coveringWindows(ctx context.Context, master model.Master, blockStart, blockEnd time.Time) ([]slots.Window, error) {
	loc, err := time.LoadLocation(master.Timezone)
	if err != nil {
		return nil, err
	}
	from := blockStart.In(loc).AddDate(0, 0, -1).Format("2006-01-02")
	to := blockEnd.In(loc).Format("2006-01-02")

	rules, err := h.availability.ListRules(ctx, master.ID)
	if err != nil {
		return nil, err
	}
	explicit, err := h.availability.ListWindows(ctx, master.ID, from, to)
	if err != nil {
		return nil, err
	}
	exclusions, err := h.availability.ListExclusions(ctx, master.ID, from, to)
	if err != nil {
		return nil, err
	}
	windows, err := slots.BuildWindows(rules, explicit, exclusions, from, to, master.Timezone)
	if err != nil {
		return nil, err
	}
	return slots.Covering(windows, blockStart, blockEnd), nil
}

func (h *BookingHandler) quotePrice(ctx context.Context, masterID, clientID string, primary model.Service, extras []model.Service, settings model.MasterSettings) (string, error) {
	price := sumPrices(primary, extras)
	if settings.FirstVisitDiscount <= 0 {
		return price, nil
	}
	visited, err := h.bookings.HasCompletedVisit(ctx, masterID, clientID)
	if err != nil {
		return "", err
	}
	if visited {
		return price, nil
	}
	return booking.ApplyFirstVisitDiscount(price, settings.FirstVisitDiscount), nil
}

func sumPrices(primary model.Service, extras []model.Service) string {
	total := primary.Price
	for _, s := range extras {
		total = booking.AddPrices(total, s.Price)
	}
	return total
}
