package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/slotwise/slotwise/libs/auth"
	"github.com/slotwise/slotwise/services/calendar-service/internal/storage"
)

type masterIDKey struct{}

// RequireMaster rejects requests without a valid bearer token and stashes the
// authenticated master id for the binding handlers.
func RequireMaster(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := strings.TrimSpace(r.Header.Get("Authorization"))
			token, ok := strings.CutPrefix(raw, "Bearer ")
			if !ok {
				http.Error(w, "missing bearer token", http.StatusUnauthorized)
				return
			}
			claims, err := auth.ParseAndVerifyHS256(strings.TrimSpace(token), secret)
			if err != nil || claims.MasterID == "" {
				http.Error(w, "invalid token", http.StatusUnauthorized)
				return
			}
			ctx := context.WithValue(r.Context(), masterIDKey{}, claims.MasterID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func masterIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(masterIDKey{}).(string)
	return id
}

// BindingHandler manages a master's calendar connection. Tokens arrive from
// the OAuth consent flow the frontend runs; this service only stores and
// refreshes them.
type BindingHandler struct {
	repo   *storage.Repository
	logger *slog.Logger
}

func NewBindingHandler(repo *storage.Repository, logger *slog.Logger) *BindingHandler {
	return &BindingHandler{repo: repo, logger: logger}
}

type bindingRequest struct {
	CalendarID   string    `json:"calendar_id"`
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	TokenExpiry  time.Time `json:"token_expiry"`
	PullEnabled  bool      `json:"pull_enabled"`
}

type bindingResponse struct {
	CalendarID  string    `json:"calendar_id"`
	TokenExpiry time.Time `json:"token_expiry"`
	PullEnabled bool      `json:"pull_enabled"`
}

func (h *BindingHandler) Binding(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.get(w, r)
	case http.MethodPut:
		h.put(w, r)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *BindingHandler) get(w http.ResponseWriter, r *http.Request) {
	masterID := masterIDFromContext(r.Context())
	b, err := h.repo.GetBinding(r.Context(), masterID)
	if err != nil {
		if storage.IsNotFound(err) {
			http.Error(w, "no calendar connected", http.StatusNotFound)
			return
		}
		h.logger.Error("binding lookup failed", "err", err, "master_id", masterID)
		http.Error(w, "failed to load binding", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, bindingResponse{
		CalendarID:  b.CalendarID,
		TokenExpiry: b.TokenExpiry,
		PullEnabled: b.PullEnabled,
	})
}

func (h *BindingHandler) put(w http.ResponseWriter, r *http.Request) {
	masterID := masterIDFromContext(r.Context())

	var req bindingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.CalendarID = strings.TrimSpace(req.CalendarID)
	if req.CalendarID == "" || req.AccessToken == "" || req.RefreshToken == "" {
		http.Error(w, "calendar_id, access_token and refresh_token required", http.StatusBadRequest)
		return
	}
	if req.TokenExpiry.IsZero() {
		http.Error(w, "token_expiry required", http.StatusBadRequest)
		return
	}

	if err := h.repo.UpsertBinding(r.Context(), storage.Binding{
		MasterID:     masterID,
		CalendarID:   req.CalendarID,
		AccessToken:  req.AccessToken,
		RefreshToken: req.RefreshToken,
		TokenExpiry:  req.TokenExpiry,
		PullEnabled:  req.PullEnabled,
	}); err != nil {
		h.logger.Error("binding upsert failed", "err", err, "master_id", masterID)
		http.Error(w, "failed to save binding", http.StatusInternalServerError)
		return
	}

	h.logger.Info("calendar binding saved", "master_id", masterID, "pull_enabled", req.PullEnabled)
	writeJSON(w, http.StatusOK, bindingResponse{
		CalendarID:  req.CalendarID,
		TokenExpiry: req.TokenExpiry,
		PullEnabled: req.PullEnabled,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
