package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"aigent-client/config"
	apperrors "aigent-client/errors"
	"aigent-client/session"

	"go.uber.org/zap"
)

func newTestClient(t *testing.T, baseURL string) (*Client, *session.MemoryStore) {
	t.Helper()
	store := session.NewMemoryStore()
	cfg := &config.Config{APIBaseURL: baseURL, RequestTimeout: 5 * time.Second}
	return New(cfg, store, zap.NewNop()), store
}

func TestRefreshAndRetryOnce(t *testing.T) {
	var meCalls, refreshCalls int

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case mePath:
			meCalls++
			if r.Header.Get("Authorization") != "Bearer fresh-access" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			json.NewEncoder(w).Encode(map[string]any{"id": 1, "username": "ada"})
		case refreshPath:
			refreshCalls++
			var body map[string]string
			json.NewDecoder(r.Body).Decode(&body)
			if body["refresh"] != "refresh-token" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			json.NewEncoder(w).Encode(map[string]string{"access": "fresh-access"})
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	client, store := newTestClient(t, srv.URL)
	store.Set("stale-access", "refresh-token")

	user, err := client.Me(context.Background())
	if err != nil {
		t.Fatalf("Me() error = %v", err)
	}
	if user.Username != "ada" {
		t.Errorf("Username = %q, want ada", user.Username)
	}
	if meCalls != 2 {
		t.Errorf("me endpoint called %d times, want 2 (original + exactly one retry)", meCalls)
	}
	if refreshCalls != 1 {
		t.Errorf("refresh endpoint called %d times, want 1", refreshCalls)
	}
	if got := store.Get().AccessToken; got != "fresh-access" {
		t.Errorf("stored access token = %q, want fresh-access", got)
	}
}

func TestFailedRefreshClearsSession(t *testing.T) {
	var meCalls, refreshCalls int

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case mePath:
			meCalls++
			w.WriteHeader(http.StatusUnauthorized)
		case refreshPath:
			refreshCalls++
			w.WriteHeader(http.StatusUnauthorized)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	client, store := newTestClient(t, srv.URL)
	store.Set("stale-access", "dead-refresh")

	expired := false
	client.OnSessionExpired(func() { expired = true })

	_, err := client.Me(context.Background())
	if !apperrors.IsAuthExpired(err) {
		t.Fatalf("Me() error = %v, want ErrAuthExpired", err)
	}
	if meCalls != 1 {
		t.Errorf("me endpoint called %d times, want 1 (no retry after failed refresh)", meCalls)
	}
	if refreshCalls != 1 {
		t.Errorf("refresh endpoint called %d times, want 1 (no recursion)", refreshCalls)
	}
	if store.Get().Authenticated() {
		t.Error("session should be cleared after failed refresh")
	}
	if !expired {
		t.Error("OnSessionExpired hook should have fired")
	}
}

func TestNoContentIsSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete || r.URL.Path != historyPath {
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	client, store := newTestClient(t, srv.URL)
	store.Set("access", "refresh")

	if err := client.ClearHistory(context.Background()); err != nil {
		t.Fatalf("ClearHistory() error = %v, want nil for 204", err)
	}
}

func TestAPIErrorDetail(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantDetail string
	}{
		{
			name:       "server_error_field",
			status:     http.StatusServiceUnavailable,
			body:       `{"error": "No active Aigent configured in the system."}`,
			wantDetail: "No active Aigent configured in the system.",
		},
		{
			name:       "server_detail_field",
			status:     http.StatusBadRequest,
			body:       `{"detail": "Invalid task_id format."}`,
			wantDetail: "Invalid task_id format.",
		},
		{
			name:       "no_payload_synthesized",
			status:     http.StatusBadGateway,
			body:       "",
			wantDetail: "request failed with status 502",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			client, store := newTestClient(t, srv.URL)
			store.Set("access", "refresh")

			_, err := client.ListAigents(context.Background())
			apiErr, ok := apperrors.AsAPIError(err)
			if !ok {
				t.Fatalf("error = %v, want *APIError", err)
			}
			if apiErr.Status != tt.status {
				t.Errorf("Status = %d, want %d", apiErr.Status, tt.status)
			}
			if apiErr.Error() != tt.wantDetail {
				t.Errorf("Error() = %q, want %q", apiErr.Error(), tt.wantDetail)
			}
		})
	}
}

func TestSendMessageMissingTaskID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"detail": "accepted"})
	}))
	defer srv.Close()

	client, store := newTestClient(t, srv.URL)
	store.Set("access", "refresh")

	_, err := client.SendMessage(context.Background(), "Hello")
	if !apperrors.IsProtocol(err) {
		t.Fatalf("SendMessage() error = %v, want ErrProtocol", err)
	}
}

func TestSendMessageReturnsHandle(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		json.NewDecoder(r.Body).Decode(&body)
		if body["message"] != "Hello" {
			t.Errorf("message = %q, want Hello", body["message"])
		}
		w.WriteHeader(http.StatusAccepted)
		json.NewEncoder(w).Encode(map[string]string{
			"task_id": "abc123",
			"detail":  "Message received and processing started.",
		})
	}))
	defer srv.Close()

	client, store := newTestClient(t, srv.URL)
	store.Set("access", "refresh")

	handle, err := client.SendMessage(context.Background(), "Hello")
	if err != nil {
		t.Fatalf("SendMessage() error = %v", err)
	}
	if handle.TaskID != "abc123" {
		t.Errorf("TaskID = %q, want abc123", handle.TaskID)
	}
}

func TestNetworkErrorPropagates(t *testing.T) {
	client, store := newTestClient(t, "http://127.0.0.1:1")
	store.Set("access", "refresh")

	_, err := client.ListAigents(context.Background())
	if !apperrors.IsNetwork(err) {
		t.Fatalf("error = %v, want ErrNetwork", err)
	}
}

func TestHistoryRoleNormalization(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"history": [
			{"role": "user", "content": "hi", "timestamp": "2026-08-29T10:00:00Z"},
			{"role": "assistant", "content": "hello", "timestamp": "2026-08-29T10:00:05Z"}
		]}`))
	}))
	defer srv.Close()

	client, store := newTestClient(t, srv.URL)
	store.Set("access", "refresh")

	history, err := client.ChatHistory(context.Background())
	if err != nil {
		t.Fatalf("ChatHistory() error = %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("len(history) = %d, want 2", len(history))
	}
	if history[1].Role != "aigent" {
		t.Errorf("history[1].Role = %q, want aigent", history[1].Role)
	}
}
