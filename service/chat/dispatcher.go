package chat

import (
	"encoding/json"
	"fmt"
)

// EventHandler handles one client-originated event on behalf of c.
type EventHandler func(s *Server, c *Client, data json.RawMessage) error

var clientEvents = map[string]EventHandler{
	EventTyping:     handleTyping,
	EventStopTyping: handleStopTyping,
}

func (s *Server) dispatch(c *Client, f *Frame) error {
	h, ok := clientEvents[f.Event]
	if !ok {
		return fmt.Errorf("no handler for event %q", f.Event)
	}
	return h(s, c, f.Data)
}

func handleTyping(s *Server, c *Client, data json.RawMessage) error {
	p, err := decodeTyping(data)
	if err != nil {
		return err
	}
	s.RelayTyping(c.UserID, p.ReceiverID)
	return nil
}

func handleStopTyping(s *Server, c *Client, data json.RawMessage) error {
	p, err := decodeTyping(data)
	if err != nil {
		return err
	}
	s.RelayStopTyping(c.UserID, p.ReceiverID)
	return nil
}

func decodeTyping(data json.RawMessage) (TypingPayload, error) {
	var p TypingPayload
	if len(data) == 0 {
		return p, fmt.Errorf("typing event without payload")
	}
	if err := json.Unmarshal(data, &p); err != nil {
		return p, fmt.Errorf("bad typing payload: %w", err)
	}
	return p, nil
}
