package gcal

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/slotwise/slotwise/services/calendar-service/internal/storage"
)

const (
	apiBase  = "https://www.googleapis.com/calendar/v3"
	tokenURL = "https://oauth2.googleapis.com/token"

	// Tokens are refreshed when they expire within this buffer, so a call
	// never starts with a token about to lapse mid-flight.
	refreshBuffer = 5 * time.Minute
)

// TokenStore persists rotated access tokens. The new token is written before
// the remote call that uses it.
type TokenStore interface {
	SaveToken(ctx context.Context, masterID, accessToken string, expiry time.Time) error
}

type Event struct {
	Summary string
	Start   time.Time
	End     time.Time
}

type BusyInterval struct {
	Start time.Time
	End   time.Time
}

type Client struct {
	clientID     string
	clientSecret string
	tokens       TokenStore
	http         *http.Client
	baseURL      string
	tokenURL     string
}

func NewClient(clientID, clientSecret string, tokens TokenStore) *Client {
	return &Client{
		clientID:     clientID,
		clientSecret: clientSecret,
		tokens:       tokens,
		http: &http.Client{
			Timeout: 10 * time.Second,
		},
		baseURL:  apiBase,
		tokenURL: tokenURL,
	}
}

type eventBody struct {
	Summary string    `json:"summary"`
	Start   eventTime `json:"start"`
	End     eventTime `json:"end"`
}

type eventTime struct {
	DateTime string `json:"dateTime"`
}

func toEventBody(ev Event) eventBody {
	return eventBody{
		Summary: ev.Summary,
		Start:   eventTime{DateTime: ev.Start.UTC().Format(time.RFC3339)},
		End:     eventTime{DateTime: ev.End.UTC().Format(time.RFC3339)},
	}
}

func (c *Client) CreateEvent(ctx context.Context, binding *storage.Binding, ev Event) (string, error) {
	if err := c.ensureToken(ctx, binding); err != nil {
		return "", err
	}
	u := fmt.Sprintf("%s/calendars/%s/events", c.baseURL, url.PathEscape(binding.CalendarID))
	var resp struct {
		ID string `json:"id"`
	}
	if err := c.do(ctx, binding, http.MethodPost, u, toEventBody(ev), &resp); err != nil {
		return "", err
	}
	return resp.ID, nil
}

func (c *Client) UpdateEvent(ctx context.Context, binding *storage.Binding, eventID string, ev Event) error {
	if err := c.ensureToken(ctx, binding); err != nil {
		return err
	}
	u := fmt.Sprintf("%s/calendars/%s/events/%s", c.baseURL, url.PathEscape(binding.CalendarID), url.PathEscape(eventID))
	return c.do(ctx, binding, http.MethodPut, u, toEventBody(ev), nil)
}

// DeleteEvent treats 404 and 410 as success: the remote and local states
// need only converge.
func (c *Client) DeleteEvent(ctx context.Context, binding *storage.Binding, eventID string) error {
	if err := c.ensureToken(ctx, binding); err != nil {
		return err
	}
	u := fmt.Sprintf("%s/calendars/%s/events/%s", c.baseURL, url.PathEscape(binding.CalendarID), url.PathEscape(eventID))
	err := c.do(ctx, binding, http.MethodDelete, u, nil, nil)
	if isGone(err) {
		return nil
	}
	return err
}

// FreeBusy pulls the busy intervals of the bound calendar for [from, to).
func (c *Client) FreeBusy(ctx context.Context, binding *storage.Binding, from, to time.Time) ([]BusyInterval, error) {
	if err := c.ensureToken(ctx, binding); err != nil {
		return nil, err
	}
	body := map[string]any{
		"timeMin": from.UTC().Format(time.RFC3339),
		"timeMax": to.UTC().Format(time.RFC3339),
		"items":   []map[string]string{{"id": binding.CalendarID}},
	}
	var resp struct {
		Calendars map[string]struct {
			Busy []struct {
				Start time.Time `json:"start"`
				End   time.Time `json:"end"`
			} `json:"busy"`
		} `json:"calendars"`
	}
	if err := c.do(ctx, binding, http.MethodPost, c.baseURL+"/freeBusy", body, &resp); err != nil {
		return nil, err
	}
	var out []BusyInterval
	for _, cal := range resp.Calendars {
		for _, b := range cal.Busy {
			out = append(out, BusyInterval{Start: b.Start, End: b.End})
		}
	}
	return out, nil
}

// ensureToken refreshes and persists the access token when it is inside the
// expiry buffer. Persisting first means a crash after the refresh cannot
// strand an already-rotated token.
func (c *Client) ensureToken(ctx context.Context, binding *storage.Binding) error {
	if time.Until(binding.TokenExpiry) > refreshBuffer {
		return nil
	}

	form := url.Values{
		"client_id":     {c.clientID},
		"client_secret": {c.clientSecret},
		"refresh_token": {binding.RefreshToken},
		"grant_type":    {"refresh_token"},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("token refresh returned %d", resp.StatusCode)
	}
	var tok struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tok); err != nil {
		return err
	}

	expiry := time.Now().Add(time.Duration(tok.ExpiresIn) * time.Second)
	if err := c.tokens.SaveToken(ctx, binding.MasterID, tok.AccessToken, expiry); err != nil {
		return err
	}
	binding.AccessToken = tok.AccessToken
	binding.TokenExpiry = expiry
	return nil
}

type apiError struct {
	Status int
}

func (e *apiError) Error() string {
	return fmt.Sprintf("calendar api returned %d", e.Status)
}

func isGone(err error) bool {
	api, ok := err.(*apiError)
	return ok && (api.Status == http.StatusNotFound || api.Status == http.StatusGone)
}

func (c *Client) do(ctx context.Context, binding *storage.Binding, method, u string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Authorization", "Bearer "+binding.AccessToken)

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &apiError{Status: resp.StatusCode}
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}
