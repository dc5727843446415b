package handlers

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/slotwise/slotwise/services/auth-service/internal/audit"
)

// AuditHandler exposes the recent audit trail to operators. Guarded by a
// static key rather than a master token since it spans all accounts.
type AuditHandler struct {
	repo   *audit.Repository
	apiKey string
}

func NewAuditHandler(repo *audit.Repository, apiKey string) *AuditHandler {
	return &AuditHandler{repo: repo, apiKey: apiKey}
}

func (h *AuditHandler) List(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if h.apiKey == "" {
		http.Error(w, "audit not available", http.StatusNotFound)
		return
	}
	key := r.Header.Get("X-Audit-Key")
	if subtle.ConstantTimeCompare([]byte(key), []byte(h.apiKey)) != 1 {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			limit = n
		}
	}

	entries, err := h.repo.ListRecent(r.Context(), limit)
	if err != nil {
		http.Error(w, "failed to load audit events", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(entries)
}
