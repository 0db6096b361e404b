package services

import (
	"sync"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru"
	"go.uber.org/zap"
)

// WidgetState is the explicit lifecycle of a sandboxed HTML widget. The
// service owns every transition, so content delivery and resizing never
// race each other.
type WidgetState string

const (
	// WidgetLoading: registered, frame has not fetched the document yet.
	WidgetLoading WidgetState = "loading"
	// WidgetSized: content delivered, frame sized by the host page.
	WidgetSized WidgetState = "sized"
	// WidgetMinimized: live content cleared, placeholder served.
	WidgetMinimized WidgetState = "minimized"
	// WidgetReloading: restore or refresh requested, next fetch serves the
	// original document again.
	WidgetReloading WidgetState = "reloading"
)

// placeholderDoc is served while a widget is minimized. Replacing the live
// document halts any scripts the widget was running.
const placeholderDoc = `<!DOCTYPE html>
<html>
<head><meta charset="utf-8"></head>
<body style="margin:8px;font-family:system-ui,sans-serif;color:#888;">Widget minimized</body>
</html>`

type widget struct {
	id        string
	messageID string
	original  string
	state     WidgetState
}

// WidgetService keeps untrusted aigent HTML out of the host page: each
// document is stored here and served to its sandboxed iframe from its own
// URL. The registry is LRU-bounded; evicted widgets simply 404 and the
// frame shows nothing.
type WidgetService struct {
	mu        sync.Mutex
	widgets   *lru.Cache // widget id -> *widget
	byMessage map[string]string
	logger    *zap.Logger
}

func NewWidgetService(size int, logger *zap.Logger) (*WidgetService, error) {
	ws := &WidgetService{
		byMessage: make(map[string]string),
		logger:    logger,
	}
	cache, err := lru.NewWithEvict(size, func(key, value interface{}) {
		if w, ok := value.(*widget); ok && w.messageID != "" {
			// Caller already holds ws.mu during Add; eviction runs inline.
			delete(ws.byMessage, w.messageID)
		}
	})
	if err != nil {
		return nil, err
	}
	ws.widgets = cache
	return ws, nil
}

// Register stores a wrapped document and returns its widget id. The same
// message never produces a second widget: re-rendering history returns the
// id already assigned, so frames do not accumulate.
func (ws *WidgetService) Register(messageID, content string) string {
	ws.mu.Lock()
	defer ws.mu.Unlock()

	if messageID != "" {
		if id, ok := ws.byMessage[messageID]; ok {
			if _, cached := ws.widgets.Get(id); cached {
				return id
			}
			delete(ws.byMessage, messageID)
		}
	}

	id := uuid.NewString()
	ws.widgets.Add(id, &widget{
		id:        id,
		messageID: messageID,
		original:  content,
		state:     WidgetLoading,
	})
	if messageID != "" {
		ws.byMessage[messageID] = id
	}
	ws.logger.Debug("Widget registered", zap.String("widget_id", id), zap.String("message_id", messageID))
	return id
}

// Content serves the document for one frame load. A minimized widget gets
// the placeholder; any pending load or reload is completed by this fetch,
// which moves the widget to sized.
func (ws *WidgetService) Content(widgetID string) (string, bool) {
	ws.mu.Lock()
	defer ws.mu.Unlock()

	w, ok := ws.get(widgetID)
	if !ok {
		return "", false
	}
	if w.state == WidgetMinimized {
		return placeholderDoc, true
	}
	w.state = WidgetSized
	return w.original, true
}

// Source returns the original document for the copy-source control,
// regardless of lifecycle state.
func (ws *WidgetService) Source(widgetID string) (string, bool) {
	ws.mu.Lock()
	defer ws.mu.Unlock()

	w, ok := ws.get(widgetID)
	if !ok {
		return "", false
	}
	return w.original, true
}

// Minimize clears the widget's live content. Subsequent frame loads serve
// the placeholder until the widget is restored.
func (ws *WidgetService) Minimize(widgetID string) bool {
	return ws.transition(widgetID, WidgetMinimized)
}

// Restore schedules a reload of the identical original content.
func (ws *WidgetService) Restore(widgetID string) bool {
	return ws.transition(widgetID, WidgetReloading)
}

// Refresh re-serves the original content on the next frame load.
func (ws *WidgetService) Refresh(widgetID string) bool {
	return ws.transition(widgetID, WidgetReloading)
}

// State reports the current lifecycle state.
func (ws *WidgetService) State(widgetID string) (WidgetState, bool) {
	ws.mu.Lock()
	defer ws.mu.Unlock()

	w, ok := ws.get(widgetID)
	if !ok {
		return "", false
	}
	return w.state, true
}

func (ws *WidgetService) transition(widgetID string, state WidgetState) bool {
	ws.mu.Lock()
	defer ws.mu.Unlock()

	w, ok := ws.get(widgetID)
	if !ok {
		return false
	}
	ws.logger.Debug("Widget state change",
		zap.String("widget_id", widgetID),
		zap.String("from", string(w.state)),
		zap.String("to", string(state)))
	w.state = state
	return true
}

func (ws *WidgetService) get(widgetID string) (*widget, bool) {
	value, ok := ws.widgets.Get(widgetID)
	if !ok {
		return nil, false
	}
	w, ok := value.(*widget)
	return w, ok
}
