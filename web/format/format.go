// Package format turns chat messages into safe HTML for the message list.
// User and system text is escaped verbatim; aigent output is interpreted
// according to the active persona's presentation format.
package format

import (
	"regexp"

	"aigent-client/web/types"

	"github.com/microcosm-cc/bluemonday"
	"go.uber.org/zap"
)

// WidgetRegistrar stores untrusted HTML documents for sandboxed delivery
// and returns the widget id they are served under. Registering the same
// message twice must return the same id.
type WidgetRegistrar interface {
	Register(messageID, content string) string
}

// Rendered is the visual representation of one message. WidgetID is set
// only for sandboxed HTML widgets.
type Rendered struct {
	HTML     string
	WidgetID string
}

type Renderer struct {
	policy  *bluemonday.Policy
	widgets WidgetRegistrar
	logger  *zap.Logger
}

func NewRenderer(widgets WidgetRegistrar, logger *zap.Logger) *Renderer {
	policy := bluemonday.UGCPolicy()
	// Keep the language hint gomarkdown puts on fenced blocks so the
	// highlighter can pick a lexer after sanitization.
	policy.AllowAttrs("class").Matching(regexp.MustCompile(`^language-[a-zA-Z0-9_+-]+$`)).OnElements("code")

	return &Renderer{
		policy:  policy,
		widgets: widgets,
		logger:  logger,
	}
}

// Render produces the message's HTML. Only aigent messages are ever
// interpreted; everything else renders as escaped plain text regardless of
// content. HTML-format output never lands in the host page: it is
// registered as a widget and embedded through a sandboxed iframe.
func (r *Renderer) Render(msg types.ChatMessage, aigent types.Aigent) Rendered {
	if msg.Role != types.RoleAigent {
		return Rendered{HTML: PlainHTML(msg.Content)}
	}

	switch aigent.PresentationFormat {
	case types.FormatMarkdown:
		return Rendered{HTML: r.MarkdownHTML(msg.Content)}
	case types.FormatHTML:
		widgetID := r.widgets.Register(msg.ID, WrapDocument(msg.Content))
		return Rendered{HTML: WidgetFrame(widgetID), WidgetID: widgetID}
	default:
		// raw or anything unrecognized: no interpretation.
		return Rendered{HTML: PlainHTML(msg.Content)}
	}
}
