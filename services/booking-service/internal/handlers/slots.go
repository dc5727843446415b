package handlers

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/slotwise/slotwise/services/booking-service/internal/booking"
	"github.com/slotwise/slotwise/services/booking-service/internal/model"
	"github.com/slotwise/slotwise/services/booking-service/internal/slots"
	"github.com/slotwise/slotwise/services/booking-service/internal/storage"
)

type SlotsHandler struct {
	catalog      *storage.CatalogRepository
	availability *storage.AvailabilityRepository
	bookings     *storage.BookingRepository
	logger       *slog.Logger
}

func NewSlotsHandler(catalog *storage.CatalogRepository, availability *storage.AvailabilityRepository, bookings *storage.BookingRepository, logger *slog.Logger) *SlotsHandler {
	return &SlotsHandler{
		catalog:      catalog,
		availability: availability,
		bookings:     bookings,
		logger:       logger,
	}
}

type slotItem struct {
	Date  string `json:"date"`
	Start string `json:"start"`
	End   string `json:"end"`
}

// List serves GET /slots?master_id&service_ids&from&to. Multiple service ids
// are summed into one synthetic duration so the whole visit is booked as a
// single span.
func (h *SlotsHandler) List(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	q := r.URL.Query()
	masterID := strings.TrimSpace(q.Get("master_id"))
	rawServiceIDs := strings.TrimSpace(q.Get("service_ids"))
	from := strings.TrimSpace(q.Get("from"))
	to := strings.TrimSpace(q.Get("to"))
	if masterID == "" || rawServiceIDs == "" || from == "" || to == "" {
		http.Error(w, "master_id, service_ids, from and to are required", http.StatusBadRequest)
		return
	}

	serviceIDs := splitIDs(rawServiceIDs)
	ctx := r.Context()

	master, err := h.catalog.GetMaster(ctx, masterID)
	if err != nil {
		if storage.IsNotFound(err) {
			http.Error(w, "master not found", http.StatusNotFound)
			return
		}
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}

	primary, extras, err := h.catalog.ResolveActiveServices(ctx, master.ID, serviceIDs[0], serviceIDs[1:])
	if err != nil {
		if storage.IsNotFound(err) {
			http.Error(w, "service not found", http.StatusNotFound)
			return
		}
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}

	settings, err := h.catalog.GetSettings(ctx, master.ID)
	if err != nil {
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}

	windows, busy, err := h.loadSchedule(r, master, from, to)
	if err != nil {
		http.Error(w, "failed to load availability", http.StatusInternalServerError)
		return
	}

	cfg := slots.Config{
		Duration:     totalDuration(primary, extras),
		BufferBefore: time.Duration(primary.BufferBefore) * time.Minute,
		BufferAfter:  bufferAfter(primary, extras),
		Step:         booking.SlotAlignment,
		MinLead:      time.Duration(settings.MinNoticeMins) * time.Minute,
	}

	generated := slots.Generate(cfg, windows, busy, time.Now())
	items := make([]slotItem, 0, len(generated))
	for _, s := range generated {
		items = append(items, slotItem{
			Date:  s.Date,
			Start: s.Start.UTC().Format(time.RFC3339),
			End:   s.End.UTC().Format(time.RFC3339),
		})
	}
	writeJSON(w, http.StatusOK, items)
}

// loadSchedule assembles the generator inputs: open windows for the date
// range and every busy interval (bookings plus blocks) padded to the range
// bounds.
func (h *SlotsHandler) loadSchedule(r *http.Request, master model.Master, from, to string) ([]slots.Window, []slots.Interval, error) {
	ctx := r.Context()

	rules, err := h.availability.ListRules(ctx, master.ID)
	if err != nil {
		return nil, nil, err
	}
	explicit, err := h.availability.ListWindows(ctx, master.ID, from, to)
	if err != nil {
		return nil, nil, err
	}
	exclusions, err := h.availability.ListExclusions(ctx, master.ID, from, to)
	if err != nil {
		return nil, nil, err
	}

	windows, err := slots.BuildWindows(rules, explicit, exclusions, from, to, master.Timezone)
	if err != nil {
		return nil, nil, err
	}
	if len(windows) == 0 {
		return nil, nil, nil
	}

	rangeStart := windows[0].Start
	rangeEnd := windows[0].End
	for _, win := range windows[1:] {
		if win.Start.Before(rangeStart) {
			rangeStart = win.Start
		}
		if win.End.After(rangeEnd) {
			rangeEnd = win.End
		}
	}

	busyBlocks, err := h.bookings.ListBusyIntervals(ctx, master.ID, rangeStart, rangeEnd)
	if err != nil {
		return nil, nil, err
	}
	busy := make([]slots.Interval, 0, len(busyBlocks))
	for _, b := range busyBlocks {
		busy = append(busy, slots.Interval{Start: b.StartTime, End: b.EndTime})
	}
	return windows, busy, nil
}

func splitIDs(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func totalDuration(primary model.Service, extras []model.Service) time.Duration {
	mins := primary.DurationMins
	for _, s := range extras {
		mins += s.DurationMins
	}
	return time.Duration(mins) * time.Minute
}

// bufferAfter takes the trailing buffer from the last service in the visit.
func bufferAfter(primary model.Service, extras []model.Service) time.Duration {
	last := primary
	if len(extras) > 0 {
		last = extras[len(extras)-1]
	}
	return time.Duration(last.BufferAfter) * time.Minute
}
