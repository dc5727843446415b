package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/slotwise/slotwise/services/booking-service/internal/model"
	"github.com/slotwise/slotwise/services/booking-service/internal/storage"
)

// AvailabilityHandler is the admin surface for the schedule inputs: weekly
// rules, per-date windows, excluded dates and manual blocks. All routes sit
// behind RequireMaster so the master id always comes from the token.
type AvailabilityHandler struct {
	repo   *storage.AvailabilityRepository
	logger *slog.Logger
}

func NewAvailabilityHandler(repo *storage.AvailabilityRepository, logger *slog.Logger) *AvailabilityHandler {
	return &AvailabilityHandler{repo: repo, logger: logger}
}

type ruleRequest struct {
	Weekday   int    `json:"weekday"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	StepMins  int    `json:"step_minutes"`
}

type idResponse struct {
	ID string `json:"id"`
}

func (h *AvailabilityHandler) Rules(w http.ResponseWriter, r *http.Request) {
	masterID := masterIDFromContext(r.Context())
	switch r.Method {
	case http.MethodGet:
		rules, err := h.repo.ListRules(r.Context(), masterID)
		if err != nil {
			http.Error(w, "db error", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, rules)
	case http.MethodPost:
		var req ruleRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json body", http.StatusBadRequest)
			return
		}
		if req.Weekday < 0 || req.Weekday > 6 {
			http.Error(w, "weekday must be 0..6", http.StatusBadRequest)
			return
		}
		if !validHM(req.StartTime) || !validHM(req.EndTime) {
			http.Error(w, "start_time and end_time must be HH:MM", http.StatusBadRequest)
			return
		}
		id, err := h.repo.CreateRule(r.Context(), model.AvailabilityRule{
			MasterID:  masterID,
			Weekday:   req.Weekday,
			StartTime: req.StartTime,
			EndTime:   req.EndTime,
			StepMins:  req.StepMins,
		})
		if err != nil {
			http.Error(w, "failed to create rule", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusCreated, idResponse{ID: id})
	case http.MethodDelete:
		id := strings.TrimSpace(r.URL.Query().Get("id"))
		if id == "" {
			http.Error(w, "id required", http.StatusBadRequest)
			return
		}
		if err := h.repo.DeleteRule(r.Context(), masterID, id); err != nil {
			if storage.IsNotFound(err) {
				http.Error(w, "rule not found", http.StatusNotFound)
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

type windowRequest struct {
	Date      string `json:"date"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

func (h *AvailabilityHandler) Windows(w http.ResponseWriter, r *http.Request) {
	masterID := masterIDFromContext(r.Context())
	switch r.Method {
	case http.MethodGet:
		from, to, ok := dateRange(w, r)
		if !ok {
			return
		}
		windows, err := h.repo.ListWindows(r.Context(), masterID, from, to)
		if err != nil {
			http.Error(w, "db error", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, windows)
	case http.MethodPost:
		var req windowRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json body", http.StatusBadRequest)
			return
		}
		if !validDate(req.Date) || !validHM(req.StartTime) || !validHM(req.EndTime) {
			http.Error(w, "date must be YYYY-MM-DD, times HH:MM", http.StatusBadRequest)
			return
		}
		id, err := h.repo.CreateWindow(r.Context(), model.AvailabilityWindow{
			MasterID:  masterID,
			Date:      req.Date,
			StartTime: req.StartTime,
			EndTime:   req.EndTime,
		})
		if err != nil {
			http.Error(w, "failed to create window", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusCreated, idResponse{ID: id})
	case http.MethodDelete:
		id := strings.TrimSpace(r.URL.Query().Get("id"))
		if id == "" {
			http.Error(w, "id required", http.StatusBadRequest)
			return
		}
		if err := h.repo.DeleteWindow(r.Context(), masterID, id); err != nil {
			if storage.IsNotFound(err) {
				http.Error(w, "window not found", http.StatusNotFound)
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

type exclusionRequest struct {
	Date string `json:"date"`
}

func (h *AvailabilityHandler) Exclusions(w http.ResponseWriter, r *http.Request) {
	masterID := masterIDFromContext(r.Context())
	switch r.Method {
	case http.MethodGet:
		from, to, ok := dateRange(w, r)
		if !ok {
			return
		}
		exclusions, err := h.repo.ListExclusions(r.Context(), masterID, from, to)
		if err != nil {
			http.Error(w, "db error", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, exclusions)
	case http.MethodPost:
		var req exclusionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json body", http.StatusBadRequest)
			return
		}
		if !validDate(req.Date) {
			http.Error(w, "date must be YYYY-MM-DD", http.StatusBadRequest)
			return
		}
		id, err := h.repo.CreateExclusion(r.Context(), masterID, req.Date)
		if err != nil {
			if storage.IsDuplicate(err) {
				http.Error(w, "date already excluded", http.StatusConflict)
				return
			}
			http.Error(w, "failed to create exclusion", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusCreated, idResponse{ID: id})
	case http.MethodDelete:
		date := strings.TrimSpace(r.URL.Query().Get("date"))
		if !validDate(date) {
			http.Error(w, "date must be YYYY-MM-DD", http.StatusBadRequest)
			return
		}
		if err := h.repo.DeleteExclusion(r.Context(), masterID, date); err != nil {
			if storage.IsNotFound(err) {
				http.Error(w, "exclusion not found", http.StatusNotFound)
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

type blockRequest struct {
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	Reason    string `json:"reason"`
}

func (h *AvailabilityHandler) Blocks(w http.ResponseWriter, r *http.Request) {
	masterID := masterIDFromContext(r.Context())
	switch r.Method {
	case http.MethodGet:
		from, err := time.Parse(time.RFC3339, r.URL.Query().Get("from"))
		if err != nil {
			http.Error(w, "invalid from", http.StatusBadRequest)
			return
		}
		to, err := time.Parse(time.RFC3339, r.URL.Query().Get("to"))
		if err != nil {
			http.Error(w, "invalid to", http.StatusBadRequest)
			return
		}
		blocks, err := h.repo.ListBlocks(r.Context(), masterID, from, to)
		if err != nil {
			http.Error(w, "db error", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, blocks)
	case http.MethodPost:
		var req blockRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json body", http.StatusBadRequest)
			return
		}
		start, err := time.Parse(time.RFC3339, req.StartTime)
		if err != nil {
			http.Error(w, "invalid start_time", http.StatusBadRequest)
			return
		}
		end, err := time.Parse(time.RFC3339, req.EndTime)
		if err != nil {
			http.Error(w, "invalid end_time", http.StatusBadRequest)
			return
		}
		if !end.After(start) {
			http.Error(w, "end_time must be after start_time", http.StatusBadRequest)
			return
		}
		id, err := h.repo.CreateBlock(r.Context(), model.Block{
			MasterID:  masterID,
			StartTime: start,
			EndTime:   end,
			Reason:    strings.TrimSpace(req.Reason),
			Source:    "manual",
		})
		if err != nil {
			http.Error(w, "failed to create block", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusCreated, idResponse{ID: id})
	case http.MethodDelete:
		id := strings.TrimSpace(r.URL.Query().Get("id"))
		if id == "" {
			http.Error(w, "id required", http.StatusBadRequest)
			return
		}
		if err := h.repo.DeleteBlock(r.Context(), masterID, id); err != nil {
			if storage.IsNotFound(err) {
				http.Error(w, "block not found", http.StatusNotFound)
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

func dateRange(w http.ResponseWriter, r *http.Request) (string, string, bool) {
	from := strings.TrimSpace(r.URL.Query().Get("from"))
	to := strings.TrimSpace(r.URL.Query().Get("to"))
	if !validDate(from) || !validDate(to) {
		http.Error(w, "from and to must be YYYY-MM-DD", http.StatusBadRequest)
		return "", "", false
	}
	return from, to, true
}

func validDate(s string) bool {
	_, err := time.Parse("2006-01-02", s)
	return err == nil
}

func validHM(s string) bool {
	_, err := time.Parse("15:04", s)
	return err == nil
}
