package webchat

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"

	"github.com/wolfman30/leadchat-ai/internal/conversation"
	"github.com/wolfman30/leadchat-ai/internal/observability/metrics"
	"github.com/wolfman30/leadchat-ai/pkg/logging"
	"golang.org/x/net/websocket"
)

const (
	busyText  = "Still working on your previous message, one moment please."
	errorText = "Sorry, something went wrong. Please try again."
)

// ChatService is the subset of conversation.Service used by the widget.
type ChatService interface {
	Start(ctx context.Context) (*conversation.Session, conversation.Turn, error)
	Handle(ctx context.Context, sessionID string, in conversation.Input) (conversation.Turn, error)
	Get(ctx context.Context, sessionID string) (*conversation.View, error)
}

// Handler serves the chat widget over WebSocket.
type Handler struct {
	service ChatService
	logger  *logging.Logger
	metrics *metrics.ConversationMetrics

	mu    sync.Mutex
	conns map[string]int // sessionID -> open connections
}

// HandlerOption customizes a Handler.
type HandlerOption func(*Handler)

// WithMetrics reports open connections on the webchat gauge.
func WithMetrics(m *metrics.ConversationMetrics) HandlerOption {
	return func(h *Handler) {
		h.metrics = m
	}
}

// NewHandler creates a web chat handler.
func NewHandler(service ChatService, logger *logging.Logger, opts ...HandlerOption) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	h := &Handler{
		service: service,
		logger:  logger,
		conns:   make(map[string]int),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// HandleWebSocket upgrades to WebSocket and runs the conversation loop.
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	websocket.Handler(func(conn *websocket.Conn) {
		h.serveWS(conn, r)
	}).ServeHTTP(w, r)
}

func (h *Handler) serveWS(conn *websocket.Conn, r *http.Request) {
	ctx := r.Context()
	sessionID, ok := h.open(ctx, conn, strings.TrimSpace(r.URL.Query().Get("session")))
	if !ok {
		return
	}

	tabs := h.track(sessionID, 1)
	defer h.track(sessionID, -1)

	logger := h.logger.WithSession(sessionID)
	// More than one tab on a session means their inputs will race for the lock.
	logger.Info("webchat: connection opened", "session_connections", tabs)

	for {
		var msg InboundMessage
		if err := websocket.JSON.Receive(conn, &msg); err != nil {
			logger.Debug("webchat: connection closed", "error", err)
			return
		}
		if msg.Type == "ping" {
			if !h.send(conn, OutboundMessage{Type: FramePong}) {
				return
			}
			continue
		}
		if !h.process(ctx, conn, sessionID, msg) {
			return
		}
	}
}

// open resumes the requested session or starts a new one, and sends the
// session frame followed by either the history or the greeting.
func (h *Handler) open(ctx context.Context, conn *websocket.Conn, sessionID string) (string, bool) {
	if sessionID != "" {
		view, err := h.service.Get(ctx, sessionID)
		switch {
		case err == nil:
			frame := widgetFrame(view.Phase, view.Widget, view.Placeholder)
			frame.Report = view.Report
			ok := h.send(conn, OutboundMessage{Type: FrameSession, SessionID: view.SessionID, Phase: view.Phase}) &&
				h.send(conn, historyFrame(view.Messages)) &&
				h.send(conn, frame)
			return view.SessionID, ok
		case errors.Is(err, conversation.ErrSessionNotFound):
			h.logger.Info("webchat: session expired, starting new", "session_id", sessionID)
		default:
			h.logger.Error("webchat: load session failed", "session_id", sessionID, "error", err)
			h.send(conn, OutboundMessage{Type: FrameError, Text: errorText})
			return "", false
		}
	}

	session, turn, err := h.service.Start(ctx)
	if err != nil {
		h.logger.Error("webchat: start session failed", "error", err)
		h.send(conn, OutboundMessage{Type: FrameError, Text: errorText})
		return "", false
	}
	if !h.send(conn, OutboundMessage{Type: FrameSession, SessionID: session.ID, Phase: turn.Phase}) {
		return "", false
	}
	for _, frame := range turnFrames(turn) {
		if !h.send(conn, frame) {
			return "", false
		}
	}
	return session.ID, true
}

// process runs one inbound frame. It returns false once the connection is
// no longer writable.
func (h *Handler) process(ctx context.Context, conn *websocket.Conn, sessionID string, msg InboundMessage) bool {
	if !h.send(conn, OutboundMessage{Type: FrameTyping}) {
		return false
	}

	turn, err := h.service.Handle(ctx, sessionID, toInput(msg))
	switch {
	case err == nil:
	case errors.Is(err, conversation.ErrSessionBusy):
		return h.send(conn, OutboundMessage{Type: FrameBusy, Text: busyText})
	case errors.Is(err, conversation.ErrUnknownAction):
		return h.send(conn, OutboundMessage{Type: FrameError, Text: "unsupported message type"})
	default:
		h.logger.Error("webchat: handle input failed", "session_id", sessionID, "error", err)
		return h.send(conn, OutboundMessage{Type: FrameError, Text: errorText})
	}

	for _, frame := range turnFrames(turn) {
		if !h.send(conn, frame) {
			return false
		}
	}
	return true
}

func (h *Handler) send(conn *websocket.Conn, msg OutboundMessage) bool {
	if err := websocket.JSON.Send(conn, msg); err != nil {
		h.logger.Debug("webchat: send failed", "type", msg.Type, "error", err)
		return false
	}
	return true
}

// track adjusts the per-session connection count and returns the new value.
func (h *Handler) track(sessionID string, delta int) int {
	h.metrics.ObserveWebchatConnection(delta)
	h.mu.Lock()
	defer h.mu.Unlock()
	h.conns[sessionID] += delta
	n := h.conns[sessionID]
	if n <= 0 {
		delete(h.conns, sessionID)
	}
	return n
}

func (h *Handler) connections(sessionID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.conns[sessionID]
}
