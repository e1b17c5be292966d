package chat

import "strings"

// RelayTyping forwards "sender is typing" to the receiver's connection.
// Offline receivers are skipped; nothing is queued.
func (s *Server) RelayTyping(senderID, receiverID string) bool {
	return s.relay(EventUserTyping, senderID, receiverID)
}

func (s *Server) RelayStopTyping(senderID, receiverID string) bool {
	return s.relay(EventUserStoppedTyping, senderID, receiverID)
}

func (s *Server) relay(event, senderID, receiverID string) bool {
	receiverID = strings.TrimSpace(receiverID)
	if receiverID == "" {
		return false
	}
	return s.PushTo(receiverID, event, UserPayload{UserID: senderID})
}
