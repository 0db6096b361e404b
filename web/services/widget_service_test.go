package services

import (
	"strings"
	"testing"

	"go.uber.org/zap"
)

func newTestWidgetService(t *testing.T, size int) *WidgetService {
	t.Helper()
	ws, err := NewWidgetService(size, zap.NewNop())
	if err != nil {
		t.Fatalf("NewWidgetService() error = %v", err)
	}
	return ws
}

func TestRegisterDedupesByMessage(t *testing.T) {
	ws := newTestWidgetService(t, 8)

	first := ws.Register("msg-1", "<html><body>a</body></html>")
	second := ws.Register("msg-1", "<html><body>a</body></html>")

	if first != second {
		t.Errorf("re-registering the same message produced a new widget: %q vs %q", first, second)
	}

	other := ws.Register("msg-2", "<html><body>b</body></html>")
	if other == first {
		t.Error("different messages must get different widgets")
	}
}

func TestLifecycleMinimizeRestore(t *testing.T) {
	ws := newTestWidgetService(t, 8)
	doc := "<html><body><script>tick()</script></body></html>"
	id := ws.Register("msg-1", doc)

	if state, _ := ws.State(id); state != WidgetLoading {
		t.Errorf("initial state = %v, want loading", state)
	}

	// First frame load delivers the document and completes sizing.
	content, ok := ws.Content(id)
	if !ok || content != doc {
		t.Fatalf("Content() = %q, %v; want original document", content, ok)
	}
	if state, _ := ws.State(id); state != WidgetSized {
		t.Errorf("state after load = %v, want sized", state)
	}

	// Minimizing clears the live content so scripts stop running.
	if !ws.Minimize(id) {
		t.Fatal("Minimize() returned false for a live widget")
	}
	content, _ = ws.Content(id)
	if strings.Contains(content, "tick()") {
		t.Errorf("minimized widget still serves live content: %q", content)
	}
	if !strings.Contains(content, "minimized") {
		t.Errorf("minimized widget should serve the placeholder, got %q", content)
	}

	// Restore reloads the identical original content.
	if !ws.Restore(id) {
		t.Fatal("Restore() returned false")
	}
	if state, _ := ws.State(id); state != WidgetReloading {
		t.Errorf("state after restore = %v, want reloading", state)
	}
	content, _ = ws.Content(id)
	if content != doc {
		t.Errorf("restored content = %q, want the identical original", content)
	}
	if state, _ := ws.State(id); state != WidgetSized {
		t.Errorf("state after reload fetch = %v, want sized", state)
	}

	// No duplicate frame: the message still maps to the same widget.
	if again := ws.Register("msg-1", doc); again != id {
		t.Errorf("minimize/restore cycle created a duplicate widget: %q vs %q", again, id)
	}
}

func TestRefreshReservesOriginal(t *testing.T) {
	ws := newTestWidgetService(t, 8)
	doc := "<html><body>v1</body></html>"
	id := ws.Register("msg-1", doc)

	ws.Content(id)
	if !ws.Refresh(id) {
		t.Fatal("Refresh() returned false")
	}
	content, ok := ws.Content(id)
	if !ok || content != doc {
		t.Errorf("Content() after refresh = %q, want original document", content)
	}
}

func TestSourceIgnoresState(t *testing.T) {
	ws := newTestWidgetService(t, 8)
	doc := "<html><body>src</body></html>"
	id := ws.Register("msg-1", doc)
	ws.Minimize(id)

	src, ok := ws.Source(id)
	if !ok || src != doc {
		t.Errorf("Source() = %q, %v; want original even while minimized", src, ok)
	}
}

func TestUnknownWidget(t *testing.T) {
	ws := newTestWidgetService(t, 8)

	if _, ok := ws.Content("nope"); ok {
		t.Error("Content() for unknown widget should report missing")
	}
	if ws.Minimize("nope") {
		t.Error("Minimize() for unknown widget should return false")
	}
}

func TestEvictionDropsMessageMapping(t *testing.T) {
	ws := newTestWidgetService(t, 1)

	first := ws.Register("msg-1", "<html>1</html>")
	ws.Register("msg-2", "<html>2</html>")

	if _, ok := ws.Content(first); ok {
		t.Error("evicted widget should be gone")
	}
	// Re-registering the evicted message allocates a fresh widget.
	again := ws.Register("msg-1", "<html>1</html>")
	if again == first {
		t.Error("evicted message should get a new widget id")
	}
	if _, ok := ws.Content(again); !ok {
		t.Error("re-registered widget should serve content")
	}
}
