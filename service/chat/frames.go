package chat

import (
	"encoding/json"
	"fmt"
)

// server -> client
const (
	EventOnlineUsers       = "getOnlineUsers"
	EventUserTyping        = "userTyping"
	EventUserStoppedTyping = "userStoppedTyping"
	EventNewMessage        = "newMessage"
	EventMessageSent       = "messageSent"
	EventMessageDeleted    = "messageDeleted"
)

// client -> server
const (
	EventTyping     = "typing"
	EventStopTyping = "stopTyping"
)

// Frame is the envelope for every websocket message in both directions.
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type UserPayload struct {
	UserID string `json:"userId"`
}

type TypingPayload struct {
	ReceiverID string `json:"receiverId"`
}

type DeletedPayload struct {
	MessageID string `json:"messageId"`
}

// Encode builds the wire form of an outgoing event.
func Encode(event string, data any) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", event, err)
	}
	return json.Marshal(Frame{Event: event, Data: raw})
}

func ParseFrame(raw []byte) (*Frame, error) {
	var f Frame
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("unmarshal frame failed: %w", err)
	}
	if f.Event == "" {
		return nil, fmt.Errorf("frame has no event")
	}
	return &f, nil
}
