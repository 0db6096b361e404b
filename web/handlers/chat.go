package handlers

import (
	"context"
	"html/template"
	"net/http"
	"sync"
	"time"

	"aigent-client/api"
	"aigent-client/chat"
	apperrors "aigent-client/errors"
	"aigent-client/session"
	"aigent-client/web/format"
	"aigent-client/web/services"
	"aigent-client/web/types"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ChatHandler is the page controller: it owns the active-aigent descriptor
// and the view-level chat state instead of leaving them in globals.
type ChatHandler struct {
	api      *api.Client
	engine   *chat.Engine
	renderer *format.Renderer
	stream   *services.StreamService
	store    session.Store
	logger   *zap.Logger

	mu           sync.RWMutex
	activeAigent types.Aigent
	aigents      []types.Aigent
}

type SendRequest struct {
	Message string `json:"message" form:"message"`
}

// RenderedMessage is one message prepared for the chat template.
type RenderedMessage struct {
	Role   string
	Status string
	HTML   template.HTML
}

func NewChatHandler(apiClient *api.Client, engine *chat.Engine, renderer *format.Renderer, stream *services.StreamService, store session.Store, logger *zap.Logger) *ChatHandler {
	return &ChatHandler{
		api:          apiClient,
		engine:       engine,
		renderer:     renderer,
		stream:       stream,
		store:        store,
		logger:       logger,
		activeAigent: types.DefaultAigent(),
	}
}

// ActiveAigent returns the current persona descriptor; before the first
// list load completes this is the safe default, never empty.
func (h *ChatHandler) ActiveAigent() types.Aigent {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.activeAigent
}

func (h *ChatHandler) setAigents(aigents []types.Aigent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.aigents = aigents
	for _, a := range aigents {
		if a.IsActive {
			h.activeAigent = a
			return
		}
	}
}

// refreshAigents pulls the persona list and records the server-flagged
// active one. Failures keep the previous (or default) descriptor.
func (h *ChatHandler) refreshAigents(ctx context.Context) {
	aigents, err := h.api.ListAigents(ctx)
	if err != nil {
		h.logger.Warn("Failed to load aigent list", zap.Error(err))
		return
	}
	h.setAigents(aigents)
}

// ChatPage renders the chat view with the replayed history. Per-message
// scrolling is suppressed during replay; the page scrolls once after load.
func (h *ChatHandler) ChatPage(c *gin.Context) {
	ctx := c.Request.Context()
	h.refreshAigents(ctx)
	active := h.ActiveAigent()

	var rendered []RenderedMessage
	history, err := h.api.ChatHistory(ctx)
	if err != nil {
		rendered = append(rendered, h.renderSystemNotice(errorText(err)))
	} else {
		for _, msg := range history {
			r := h.renderer.Render(msg, active)
			status := msg.Status
			if status == "" {
				status = types.StatusNormal
			}
			rendered = append(rendered, RenderedMessage{Role: msg.Role, Status: status, HTML: template.HTML(r.HTML)})
		}
	}

	h.mu.RLock()
	aigents := make([]types.Aigent, len(h.aigents))
	copy(aigents, h.aigents)
	h.mu.RUnlock()

	c.HTML(http.StatusOK, "chat.html", gin.H{
		"Messages":     rendered,
		"Aigents":      aigents,
		"ActiveAigent": active,
		"Theme":        h.store.Get().Theme,
	})
}

// Send accepts the user's message, echoes it to the page and starts the
// submit/poll lifecycle in the background. The HTTP call returns as soon
// as the lifecycle is started; results arrive over the event stream.
func (h *ChatHandler) Send(c *gin.Context) {
	var req SendRequest
	if err := c.ShouldBind(&req); err != nil || req.Message == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Message cannot be empty"})
		return
	}

	userMsg := types.ChatMessage{
		ID:        uuid.NewString(),
		Role:      types.RoleUser,
		Content:   req.Message,
		Timestamp: time.Now(),
		Status:    types.StatusNormal,
	}
	r := h.renderer.Render(userMsg, h.ActiveAigent())
	h.stream.Publish(services.Event{Type: "message", Role: types.RoleUser, Status: types.StatusNormal, HTML: r.HTML})

	go func() {
		// The poll chain outlives the HTTP request; it is bounded by the
		// poll budget and cancelable through the engine.
		outcome := h.engine.Submit(context.Background(), req.Message, h.sink())
		h.logger.Debug("Submission finished", zap.String("outcome", string(outcome)))
	}()

	c.JSON(http.StatusAccepted, gin.H{"detail": "Message received and processing started."})
}

// Stream is the SSE connection feeding the chat page.
func (h *ChatHandler) Stream(c *gin.Context) {
	ch, cancel := h.stream.Subscribe()
	defer cancel()
	h.stream.WriteSSE(c.Request.Context(), c.Writer, ch)
}

// CancelAll stops every in-flight poll chain, used when the page unloads.
func (h *ChatHandler) CancelAll(c *gin.Context) {
	h.engine.CancelAll()
	c.Status(http.StatusNoContent)
}

// ClearHistory wipes the server-side message log.
func (h *ChatHandler) ClearHistory(c *gin.Context) {
	if err := h.api.ClearHistory(c.Request.Context()); err != nil {
		h.publishSystemNotice(errorText(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": errorText(err)})
		return
	}
	h.publishSystemNotice("Chat history cleared.")
	c.Status(http.StatusNoContent)
}

// ListAigents returns the persona list for the switcher dropdown.
func (h *ChatHandler) ListAigents(c *gin.Context) {
	aigents, err := h.api.ListAigents(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": errorText(err)})
		return
	}
	h.setAigents(aigents)
	c.JSON(http.StatusOK, aigents)
}

type switchRequest struct {
	AigentID int `json:"aigent_id" form:"aigent_id"`
}

// SwitchAigent changes the active persona server-side and updates the
// local descriptor from the confirmed list.
func (h *ChatHandler) SwitchAigent(c *gin.Context) {
	var req switchRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	ctx := c.Request.Context()
	if err := h.api.SetActiveAigent(ctx, req.AigentID); err != nil {
		h.publishSystemNotice(errorText(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": errorText(err)})
		return
	}
	h.refreshAigents(ctx)
	active := h.ActiveAigent()
	h.publishSystemNotice("Now chatting with " + active.Name + ".")
	c.JSON(http.StatusOK, active)
}

// sink adapts engine events into rendered stream events.
func (h *ChatHandler) sink() chat.EventSink {
	return &streamSink{handler: h}
}

type streamSink struct {
	handler *ChatHandler
}

func (s *streamSink) Typing(submissionID string, on bool) {
	s.handler.stream.Publish(services.Event{Type: "typing", SubmissionID: submissionID, On: on})
}

func (s *streamSink) AigentMessage(submissionID, content string) {
	h := s.handler
	msg := types.ChatMessage{
		ID:        uuid.NewString(),
		Role:      types.RoleAigent,
		Content:   content,
		Timestamp: time.Now(),
		Status:    types.StatusNormal,
	}
	r := h.renderer.Render(msg, h.ActiveAigent())
	h.stream.Publish(services.Event{
		Type:         "message",
		SubmissionID: submissionID,
		Role:         types.RoleAigent,
		Status:       types.StatusNormal,
		HTML:         r.HTML,
	})
}

func (s *streamSink) Notice(submissionID, status, text string) {
	h := s.handler
	msg := types.ChatMessage{Role: types.RoleSystem, Content: text, Timestamp: time.Now(), Status: status}
	r := h.renderer.Render(msg, h.ActiveAigent())
	h.stream.Publish(services.Event{
		Type:         "notice",
		SubmissionID: submissionID,
		Role:         types.RoleSystem,
		Status:       status,
		HTML:         r.HTML,
	})
}

func (h *ChatHandler) renderSystemNotice(text string) RenderedMessage {
	msg := types.ChatMessage{Role: types.RoleSystem, Content: text, Status: types.StatusError}
	r := h.renderer.Render(msg, h.ActiveAigent())
	return RenderedMessage{Role: types.RoleSystem, Status: types.StatusError, HTML: template.HTML(r.HTML)}
}

func (h *ChatHandler) publishSystemNotice(text string) {
	msg := types.ChatMessage{Role: types.RoleSystem, Content: text, Timestamp: time.Now(), Status: types.StatusInfo}
	r := h.renderer.Render(msg, h.ActiveAigent())
	h.stream.Publish(services.Event{Type: "notice", Role: types.RoleSystem, Status: types.StatusInfo, HTML: r.HTML})
}

// errorText converts an operation failure into the message shown in the
// chat; failures surface inline, they never crash the page.
func errorText(err error) string {
	switch {
	case apperrors.IsAuthExpired(err):
		return "Your session has expired. Please log in again."
	case apperrors.IsProtocol(err):
		return "The server returned an unexpected response."
	case apperrors.IsTimeout(err):
		return "The server took too long to respond. Please try again."
	case apperrors.IsNetwork(err):
		return "Could not reach the server. Check your connection and try again."
	}
	if apiErr, ok := apperrors.AsAPIError(err); ok {
		return apiErr.Error()
	}
	return "Something went wrong. Please try again."
}
