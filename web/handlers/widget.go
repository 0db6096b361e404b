package handlers

import (
	"net/http"

	"aigent-client/web/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// WidgetHandler serves sandboxed widget documents and their lifecycle
// controls. Widget content is delivered from these endpoints only, never
// inlined into the chat page.
type WidgetHandler struct {
	widgets *services.WidgetService
	logger  *zap.Logger
}

func NewWidgetHandler(widgets *services.WidgetService, logger *zap.Logger) *WidgetHandler {
	return &WidgetHandler{widgets: widgets, logger: logger}
}

// Content serves the widget document to its iframe. The CSP header keeps
// the document from reaching back into the client even if the sandbox
// attribute were stripped from the embedding page.
func (h *WidgetHandler) Content(c *gin.Context) {
	content, ok := h.widgets.Content(c.Param("id"))
	if !ok {
		c.String(http.StatusNotFound, "widget not found")
		return
	}
	c.Header("Content-Security-Policy", "default-src 'none'; script-src 'unsafe-inline'; style-src 'unsafe-inline'; img-src data: https:")
	c.Header("X-Frame-Options", "SAMEORIGIN")
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(content))
}

// Source returns the original document for the copy control.
func (h *WidgetHandler) Source(c *gin.Context) {
	source, ok := h.widgets.Source(c.Param("id"))
	if !ok {
		c.String(http.StatusNotFound, "widget not found")
		return
	}
	c.Data(http.StatusOK, "text/plain; charset=utf-8", []byte(source))
}

func (h *WidgetHandler) Minimize(c *gin.Context) {
	h.lifecycle(c, h.widgets.Minimize)
}

func (h *WidgetHandler) Restore(c *gin.Context) {
	h.lifecycle(c, h.widgets.Restore)
}

func (h *WidgetHandler) Refresh(c *gin.Context) {
	h.lifecycle(c, h.widgets.Refresh)
}

func (h *WidgetHandler) lifecycle(c *gin.Context, op func(string) bool) {
	id := c.Param("id")
	if !op(id) {
		c.JSON(http.StatusNotFound, gin.H{"error": "widget not found"})
		return
	}
	state, _ := h.widgets.State(id)
	c.JSON(http.StatusOK, gin.H{"state": state})
}
