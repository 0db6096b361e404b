package services

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestSubscribePublishRoundTrip(t *testing.T) {
	ss := NewStreamService(zap.NewNop())

	ch, cancel := ss.Subscribe()
	defer cancel()

	ss.Publish(Event{Type: "notice", Status: "info", HTML: "<div>hi</div>"})

	select {
	case got := <-ch:
		if got.Type != "notice" || got.HTML != "<div>hi</div>" {
			t.Errorf("unexpected event: %+v", got)
		}
	case <-time.After(time.Second):
		t.Fatal("event never arrived")
	}
}

func TestCancelClosesChannel(t *testing.T) {
	ss := NewStreamService(zap.NewNop())

	ch, cancel := ss.Subscribe()
	cancel()

	if _, open := <-ch; open {
		t.Error("expected channel to be closed after cancel")
	}

	// Publishing after cancel must not panic or block.
	ss.Publish(Event{Type: "typing", On: true})
}

func TestSlowClientDropsInsteadOfBlocking(t *testing.T) {
	ss := NewStreamService(zap.NewNop())

	_, cancel := ss.Subscribe()
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 100; i++ {
			ss.Publish(Event{Type: "message"})
		}
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish blocked on a slow client")
	}
}

func TestWriteSSEFramesEvents(t *testing.T) {
	ss := NewStreamService(zap.NewNop())

	ch := make(chan Event, 1)
	ch <- Event{Type: "message", Role: "aigent", HTML: "<p>hello</p>"}
	close(ch)

	rec := httptest.NewRecorder()
	ss.WriteSSE(context.Background(), rec, ch)

	if got := rec.Header().Get("Content-Type"); got != "text/event-stream" {
		t.Errorf("Content-Type = %q, want text/event-stream", got)
	}
	body := rec.Body.String()
	if !strings.HasPrefix(body, "data: ") || !strings.HasSuffix(body, "\n\n") {
		t.Errorf("body is not a data frame: %q", body)
	}
	if !strings.Contains(body, `"type":"message"`) {
		t.Errorf("payload missing event type: %q", body)
	}
}

func TestWriteSSEStopsOnContextCancel(t *testing.T) {
	ss := NewStreamService(zap.NewNop())

	ch := make(chan Event)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		ss.WriteSSE(ctx, httptest.NewRecorder(), ch)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("WriteSSE did not return on context cancel")
	}
}
