package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"go.uber.org/zap"
)

// Event is one server-sent update for the chat page.
type Event struct {
	Type         string `json:"type"` // typing | message | notice
	SubmissionID string `json:"submission_id,omitempty"`
	On           bool   `json:"on,omitempty"`
	Role         string `json:"role,omitempty"`
	Status       string `json:"status,omitempty"`
	HTML         string `json:"html,omitempty"`
}

// StreamService fans engine events out to connected chat pages over SSE.
type StreamService struct {
	mu      sync.Mutex
	nextID  int
	clients map[int]chan Event
	logger  *zap.Logger
}

func NewStreamService(logger *zap.Logger) *StreamService {
	return &StreamService{
		clients: make(map[int]chan Event),
		logger:  logger,
	}
}

// Subscribe registers a page connection. The returned cancel func must be
// called when the connection goes away.
func (ss *StreamService) Subscribe() (<-chan Event, func()) {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	id := ss.nextID
	ss.nextID++
	ch := make(chan Event, 32)
	ss.clients[id] = ch

	return ch, func() {
		ss.mu.Lock()
		defer ss.mu.Unlock()
		if c, ok := ss.clients[id]; ok {
			delete(ss.clients, id)
			close(c)
		}
	}
}

// Publish delivers an event to every connected page. Slow consumers drop
// events rather than blocking the engine.
func (ss *StreamService) Publish(event Event) {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	for id, ch := range ss.clients {
		select {
		case ch <- event:
		default:
			ss.logger.Warn("Dropping stream event for slow client", zap.Int("client", id), zap.String("type", event.Type))
		}
	}
}

// WriteSSE pumps events from ch to the response until the context ends.
func (ss *StreamService) WriteSSE(ctx context.Context, w http.ResponseWriter, ch <-chan Event) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		ss.logger.Error("Response writer does not support flushing, cannot stream")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	for {
		select {
		case <-ctx.Done():
			return
		case event, open := <-ch:
			if !open {
				return
			}
			jsonData, err := json.Marshal(event)
			if err != nil {
				ss.logger.Error("Failed to encode stream event", zap.Error(err))
				continue
			}
			if _, err := fmt.Fprintf(w, "data: %s\n\n", jsonData); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
