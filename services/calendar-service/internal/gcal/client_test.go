package gcal

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/slotwise/slotwise/services/calendar-service/internal/storage"
)

type fakeTokens struct {
	saved  int
	token  string
	expiry time.Time
}

func (f *fakeTokens) SaveToken(_ context.Context, _ string, accessToken string, expiry time.Time) error {
	f.saved++
	f.token = accessToken
	f.expiry = expiry
	return nil
}

func TestEnsureTokenRefreshesInsideBuffer(t *testing.T) {
	tokenSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Fatalf("parse form: %v", err)
		}
		if r.Form.Get("grant_type") != "refresh_token" || r.Form.Get("refresh_token") != "refresh-1" {
			t.Fatalf("unexpected refresh request: %v", r.Form)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token": "fresh-token",
			"expires_in":   3600,
		})
	}))
	defer tokenSrv.Close()

	tokens := &fakeTokens{}
	c := NewClient("id", "secret", tokens)
	c.tokenURL = tokenSrv.URL

	binding := &storage.Binding{
		MasterID:     "m1",
		RefreshToken: "refresh-1",
		AccessToken:  "stale",
		TokenExpiry:  time.Now().Add(2 * time.Minute),
	}
	if err := c.ensureToken(context.Background(), binding); err != nil {
		t.Fatalf("ensureToken: %v", err)
	}
	if tokens.saved != 1 || tokens.token != "fresh-token" {
		t.Fatal("rotated token must be persisted")
	}
	if binding.AccessToken != "fresh-token" {
		t.Fatal("binding must carry the fresh token")
	}

	// Far from expiry: no refresh round trip.
	binding.TokenExpiry = time.Now().Add(time.Hour)
	if err := c.ensureToken(context.Background(), binding); err != nil {
		t.Fatalf("ensureToken: %v", err)
	}
	if tokens.saved != 1 {
		t.Fatal("valid token must not be refreshed")
	}
}

func TestDeleteEventToleratesGone(t *testing.T) {
	status := http.StatusGone
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
	}))
	defer srv.Close()

	c := NewClient("id", "secret", &fakeTokens{})
	c.baseURL = srv.URL

	binding := &storage.Binding{
		MasterID:    "m1",
		CalendarID:  "cal",
		AccessToken: "token",
		TokenExpiry: time.Now().Add(time.Hour),
	}
	ctx := context.Background()

	if err := c.DeleteEvent(ctx, binding, "ev-1"); err != nil {
		t.Fatalf("410 must count as success: %v", err)
	}
	status = http.StatusNotFound
	if err := c.DeleteEvent(ctx, binding, "ev-1"); err != nil {
		t.Fatalf("404 must count as success: %v", err)
	}
	status = http.StatusForbidden
	if err := c.DeleteEvent(ctx, binding, "ev-1"); err == nil {
		t.Fatal("403 must surface as an error")
	}
}
