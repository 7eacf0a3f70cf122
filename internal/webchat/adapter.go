package webchat

import (
	"time"

	"github.com/wolfman30/leadchat-ai/internal/conversation"
)

// Frame types sent to the widget.
const (
	FrameSession = "session"
	FrameHistory = "history"
	FrameTyping  = "typing"
	FrameMessage = "message"
	FrameWidget  = "widget"
	FrameBusy    = "busy"
	FrameError   = "error"
	FramePong    = "pong"
)

// InboundMessage is what the widget sends.
type InboundMessage struct {
	Type    string   `json:"type"` // "message", "select_slot", "skip_meeting", "ping"
	Text    string   `json:"text"`
	Choices []string `json:"choices,omitempty"`
}

// OutboundMessage is what we send to the widget.
type OutboundMessage struct {
	Type        string               `json:"type"`
	Text        string               `json:"text,omitempty"`
	Role        string               `json:"role,omitempty"`
	SessionID   string               `json:"session_id,omitempty"`
	Phase       conversation.Phase   `json:"phase,omitempty"`
	Timestamp   string               `json:"timestamp,omitempty"`
	Messages    []HistoryMessage     `json:"messages,omitempty"`
	Widget      *conversation.Widget `json:"widget,omitempty"`
	Placeholder string               `json:"placeholder,omitempty"`
	Report      string               `json:"report,omitempty"`
}

// HistoryMessage is a simplified transcript entry for history frames.
type HistoryMessage struct {
	Role      string `json:"role"`
	Text      string `json:"text"`
	Timestamp string `json:"timestamp"`
}

// toInput maps a widget frame onto a conversation input. Unknown types
// are passed through so the service can reject them.
func toInput(msg InboundMessage) conversation.Input {
	action := conversation.Action(msg.Type)
	if msg.Type == "" {
		action = conversation.ActionMessage
	}
	return conversation.Input{Action: action, Text: msg.Text, Choices: msg.Choices}
}

func messageFrame(m conversation.Message) OutboundMessage {
	return OutboundMessage{
		Type:      FrameMessage,
		Role:      string(m.Sender),
		Text:      m.Text,
		Timestamp: m.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func historyFrame(msgs []conversation.Message) OutboundMessage {
	history := make([]HistoryMessage, 0, len(msgs))
	for _, m := range msgs {
		history = append(history, HistoryMessage{
			Role:      string(m.Sender),
			Text:      m.Text,
			Timestamp: m.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	return OutboundMessage{Type: FrameHistory, Messages: history}
}

func widgetFrame(phase conversation.Phase, w conversation.Widget, placeholder string) OutboundMessage {
	return OutboundMessage{Type: FrameWidget, Phase: phase, Widget: &w, Placeholder: placeholder}
}

// turnFrames renders the assistant side of a turn: one message frame per
// assistant message, in order, then the widget for the new phase. The
// visitor's own echo is left to the client.
func turnFrames(turn conversation.Turn) []OutboundMessage {
	frames := make([]OutboundMessage, 0, len(turn.Messages)+1)
	for _, m := range turn.Messages {
		if m.Sender != conversation.SenderAssistant {
			continue
		}
		frames = append(frames, messageFrame(m))
	}
	return append(frames, widgetFrame(turn.Phase, turn.Widget, turn.Placeholder))
}
