package natsx

import (
	"TripChat/logger"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

const (
	DefaultSubjectPrefix = "tripchat.events"
	HeaderUserID         = "User-Id"
)

// EventSink mirrors every live push onto <prefix>.<event>, the target user in
// the User-Id header. Publishing is fire and forget; a failure is logged and
// never reaches the pusher.
type EventSink struct {
	nc     *nats.Conn
	prefix string
	log    *zap.Logger
}

func NewEventSink(nc *nats.Conn, prefix string) *EventSink {
	if prefix == "" {
		prefix = DefaultSubjectPrefix
	}
	return &EventSink{nc: nc, prefix: prefix, log: logger.Named("nats")}
}

func (s *EventSink) Subject(event string) string {
	return s.prefix + "." + event
}

func (s *EventSink) Publish(event, userID string, frame []byte) {
	msg := nats.NewMsg(s.Subject(event))
	msg.Data = frame
	msg.Header.Set(HeaderUserID, userID)
	if err := s.nc.PublishMsg(msg); err != nil {
		s.log.Warn("publish event failed", zap.String("event", event), zap.String("user", userID), zap.Error(err))
	}
}

// Close flushes pending publishes and closes the connection.
func (s *EventSink) Close() error {
	return s.nc.Drain()
}
