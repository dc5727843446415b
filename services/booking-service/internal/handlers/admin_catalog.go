package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/slotwise/slotwise/services/booking-service/internal/model"
	"github.com/slotwise/slotwise/services/booking-service/internal/storage"
)

type CatalogHandler struct {
	repo   *storage.CatalogRepository
	logger *slog.Logger
}

func NewCatalogHandler(repo *storage.CatalogRepository, logger *slog.Logger) *CatalogHandler {
	return &CatalogHandler{repo: repo, logger: logger}
}

type serviceRequest struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	DurationMins int    `json:"duration_minutes"`
	BufferBefore int    `json:"buffer_before_minutes"`
	BufferAfter  int    `json:"buffer_after_minutes"`
	Price        string `json:"price"`
	Active       *bool  `json:"active"`
}

func (h *CatalogHandler) Services(w http.ResponseWriter, r *http.Request) {
	masterID := masterIDFromContext(r.Context())
	switch r.Method {
	case http.MethodGet:
		services, err := h.repo.ListServices(r.Context(), masterID, false)
		if err != nil {
			http.Error(w, "db error", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, services)
	case http.MethodPost:
		req, ok := decodeService(w, r)
		if !ok {
			return
		}
		active := true
		if req.Active != nil {
			active = *req.Active
		}
		id, err := h.repo.CreateService(r.Context(), model.Service{
			MasterID:     masterID,
			Name:         req.Name,
			DurationMins: req.DurationMins,
			BufferBefore: req.BufferBefore,
			BufferAfter:  req.BufferAfter,
			Price:        req.Price,
			Active:       active,
		})
		if err != nil {
			http.Error(w, "failed to create service", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusCreated, idResponse{ID: id})
	case http.MethodPut:
		req, ok := decodeService(w, r)
		if !ok {
			return
		}
		if req.ID == "" {
			http.Error(w, "id required", http.StatusBadRequest)
			return
		}
		active := true
		if req.Active != nil {
			active = *req.Active
		}
		err := h.repo.UpdateService(r.Context(), model.Service{
			ID:           req.ID,
			MasterID:     masterID,
			Name:         req.Name,
			DurationMins: req.DurationMins,
			BufferBefore: req.BufferBefore,
			BufferAfter:  req.BufferAfter,
			Price:        req.Price,
			Active:       active,
		})
		if err != nil {
			if storage.IsNotFound(err) {
				http.Error(w, "service not found", http.StatusNotFound)
				return
			}
			http.Error(w, "failed to update service", http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	case http.MethodDelete:
		id := strings.TrimSpace(r.URL.Query().Get("id"))
		if id == "" {
			http.Error(w, "id required", http.StatusBadRequest)
			return
		}
		if err := h.repo.DeactivateService(r.Context(), masterID, id); err != nil {
			if storage.IsNotFound(err) {
				http.Error(w, "service not found", http.StatusNotFound)
				return
			}
			http.Error(w, "db error", http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func decodeService(w http.ResponseWriter, r *http.Request) (serviceRequest, bool) {
	var req serviceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return serviceRequest{}, false
	}
	req.ID = strings.TrimSpace(req.ID)
	req.Name = strings.TrimSpace(req.Name)
	req.Price = strings.TrimSpace(req.Price)
	if req.Name == "" || req.DurationMins <= 0 {
		http.Error(w, "name and a positive duration are required", http.StatusBadRequest)
		return serviceRequest{}, false
	}
	return req, true
}

type settingsRequest struct {
	ReminderOffsetsHours []int  `json:"reminder_offsets_hours"`
	QuietStart           string `json:"quiet_start"`
	QuietEnd             string `json:"quiet_end"`
	MinNoticeMins        int    `json:"min_notice_minutes"`
	CancelPolicyHours    int    `json:"cancel_policy_hours"`
	FirstVisitDiscount   int    `json:"first_visit_discount_pct"`
	CalendarFeedEnabled  bool   `json:"calendar_feed_enabled"`
}

func (h *CatalogHandler) Settings(w http.ResponseWriter, r *http.Request) {
	masterID := masterIDFromContext(r.Context())
	switch r.Method {
	case http.MethodGet:
		settings, err := h.repo.GetSettings(r.Context(), masterID)
		if err != nil {
			http.Error(w, "db error", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, settings)
	case http.MethodPut:
		var req settingsRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json body", http.StatusBadRequest)
			return
		}
		if (req.QuietStart == "") != (req.QuietEnd == "") {
			http.Error(w, "quiet_start and quiet_end must be set together", http.StatusBadRequest)
			return
		}
		if req.QuietStart != "" && (!validHM(req.QuietStart) || !validHM(req.QuietEnd)) {
			http.Error(w, "quiet hours must be HH:MM", http.StatusBadRequest)
			return
		}
		if req.FirstVisitDiscount < 0 || req.FirstVisitDiscount > 100 {
			http.Error(w, "first_visit_discount_pct must be 0..100", http.StatusBadRequest)
			return
		}
		offsets := req.ReminderOffsetsHours
		if len(offsets) == 0 {
			offsets = model.DefaultSettings(masterID).ReminderOffsetsHours
		}
		err := h.repo.UpsertSettings(r.Context(), model.MasterSettings{
			MasterID:             masterID,
			ReminderOffsetsHours: offsets,
			QuietStart:           req.QuietStart,
			QuietEnd:             req.QuietEnd,
			MinNoticeMins:        req.MinNoticeMins,
			CancelPolicyHours:    req.CancelPolicyHours,
			FirstVisitDiscount:   req.FirstVisitDiscount,
			CalendarFeedEnabled:  req.CalendarFeedEnabled,
		})
		if err != nil {
			http.Error(w, "failed to save settings", http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}
