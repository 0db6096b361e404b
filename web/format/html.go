package format

import (
	"fmt"
	"html"
	"strings"
)

// Frame sizing bounds consumed by the host-page autosizer.
const (
	FrameMinWidth  = 150
	FrameMinHeight = 400
)

// hasDocumentRoot reports whether the content already carries a full
// <html> root, ignoring a leading doctype, comments and xml declarations.
func hasDocumentRoot(content string) bool {
	rest := strings.TrimSpace(strings.ToLower(content))
	for {
		switch {
		case strings.HasPrefix(rest, "<!doctype"), strings.HasPrefix(rest, "<!--"), strings.HasPrefix(rest, "<?xml"):
			end := strings.Index(rest, ">")
			if end == -1 {
				return false
			}
			rest = strings.TrimSpace(rest[end+1:])
		default:
			return strings.HasPrefix(rest, "<html")
		}
	}
}

// autosizeScript runs inside the sandboxed frame: it reports the content
// size to the host page after load and after DOM mutations (debounced),
// so the host can resize the frame without same-origin access.
const autosizeScript = `<script>
(function () {
  var pending = null;
  function report() {
    pending = null;
    var doc = document.documentElement;
    parent.postMessage({
      type: "aigent-widget-size",
      width: Math.max(doc.scrollWidth, document.body ? document.body.scrollWidth : 0),
      height: Math.max(doc.scrollHeight, document.body ? document.body.scrollHeight : 0)
    }, "*");
  }
  function schedule() {
    if (pending) clearTimeout(pending);
    pending = setTimeout(report, 200);
  }
  window.addEventListener("load", function () {
    report();
    // Async content (images, late layout) settles after load.
    setTimeout(report, 500);
    new MutationObserver(schedule).observe(document.documentElement, {
      childList: true, subtree: true, attributes: true, characterData: true
    });
  });
})();
</script>`

// WrapDocument prepares untrusted aigent HTML for sandboxed delivery. A
// self-contained document passes through verbatim; a fragment is wrapped in
// a minimal document with layout-neutral defaults and the autosize
// reporter.
func WrapDocument(content string) string {
	if hasDocumentRoot(content) {
		return content
	}
	return `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<style>
body { margin: 8px; font-family: system-ui, sans-serif; background: #ffffff; color: #111111; }
</style>
</head>
<body>
` + content + `
` + autosizeScript + `
</body>
</html>`
}

// WidgetFrame returns the host-page fragment embedding one widget. The
// iframe loads the widget document from its own URL under a sandbox that
// permits scripts but withholds same-origin and navigation privileges, so
// LLM-generated content never executes in the host page's context.
func WidgetFrame(widgetID string) string {
	id := html.EscapeString(widgetID)
	return fmt.Sprintf(`<div class="aigent-widget" data-widget-id="%[1]s" data-min-width="%[2]d" data-min-height="%[3]d">
<div class="widget-controls">
<button type="button" class="widget-btn widget-copy" title="Copy source">copy</button>
<button type="button" class="widget-btn widget-refresh" title="Reload content">refresh</button>
<button type="button" class="widget-btn widget-minimize" title="Minimize">&minus;</button>
</div>
<iframe class="widget-frame" src="/widgets/%[1]s/content" sandbox="allow-scripts" referrerpolicy="no-referrer" loading="lazy"></iframe>
<div class="widget-placeholder" hidden>Widget minimized</div>
</div>`, id, FrameMinWidth, FrameMinHeight)
}
