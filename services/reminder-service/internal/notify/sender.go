package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Sender delivers one reminder text to a client chat. Implementations signal
// transient faults with a retryable error so the worker can re-queue.
type Sender interface {
	Send(ctx context.Context, chatID string, text string) error
	ProviderID() string
}

type retryableError struct {
	err error
}

func (e *retryableError) Error() string { return e.err.Error() }
func (e *retryableError) Unwrap() error { return e.err }

func Retryable(err error) error {
	return &retryableError{err: err}
}

// IsRetryable reports whether a delivery failure should flip the reminder
// back to unsent for a later tick.
func IsRetryable(err error) bool {
	var re *retryableError
	return errors.As(err, &re)
}

type WebhookSender struct {
	url   string
	token string
	http  *http.Client
}

func NewWebhookSender(url string, token string) *WebhookSender {
	return &WebhookSender{
		url:   strings.TrimSpace(url),
		token: strings.TrimSpace(token),
		http: &http.Client{
			Timeout: 5 * time.Second,
		},
	}
}

func (s *WebhookSender) ProviderID() string {
	return "chat-webhook"
}

// Send posts to the chat gateway. Network faults and 5xx are retryable; a
// 4xx means the request itself is bad and retrying cannot help.
func (s *WebhookSender) Send(ctx context.Context, chatID string, text string) error {
	if s.url == "" {
		return errors.New("chat webhook url not configured")
	}
	payload := map[string]string{
		"chat_id": chatID,
		"text":    text,
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}
	resp, err := s.http.Do(req)
	if err != nil {
		return Retryable(err)
	}
	defer resp.Body.Close()
	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode >= 500:
		return Retryable(fmt.Errorf("chat webhook returned %d", resp.StatusCode))
	default:
		return fmt.Errorf("chat webhook returned %d", resp.StatusCode)
	}
}

type NoopSender struct{}

func NewNoopSender() *NoopSender {
	return &NoopSender{}
}

func (s *NoopSender) ProviderID() string {
	return "chat-noop"
}

func (s *NoopSender) Send(_ context.Context, _ string, _ string) error {
	return nil
}
