package notify

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestWebhookSenderClassification(t *testing.T) {
	status := http.StatusOK
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
	}))
	defer srv.Close()

	s := NewWebhookSender(srv.URL, "token")
	ctx := context.Background()

	if err := s.Send(ctx, "chat-1", "hello"); err != nil {
		t.Fatalf("2xx should succeed: %v", err)
	}

	status = http.StatusBadGateway
	err := s.Send(ctx, "chat-1", "hello")
	if err == nil || !IsRetryable(err) {
		t.Fatalf("5xx should be retryable, got %v", err)
	}

	status = http.StatusBadRequest
	err = s.Send(ctx, "chat-1", "hello")
	if err == nil || IsRetryable(err) {
		t.Fatalf("4xx should be permanent, got %v", err)
	}
}

func TestWebhookSenderNetworkFailureRetryable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	s := NewWebhookSender(srv.URL, "")
	err := s.Send(context.Background(), "chat-1", "hello")
	if err == nil || !IsRetryable(err) {
		t.Fatalf("connection refused should be retryable, got %v", err)
	}
}
