package chat

import (
	"context"
	"net/http"
	"sync"
	"time"

	"TripChat/logger"
	"TripChat/service/metrics"
	"TripChat/tools/safe"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const closeWait = 5 * time.Second

type ServerConf struct {
	SendQueueSize  int
	WriteWait      time.Duration
	PongWait       time.Duration
	PingPeriod     time.Duration
	MaxMessageSize int64
	CheckOrigin    func(r *http.Request) bool
}

func (c *ServerConf) norm() {
	if c.SendQueueSize <= 0 {
		c.SendQueueSize = 64
	}
	if c.WriteWait <= 0 {
		c.WriteWait = 10 * time.Second
	}
	if c.PongWait <= 0 {
		c.PongWait = 60 * time.Second
	}
	if c.PingPeriod <= 0 || c.PingPeriod >= c.PongWait {
		c.PingPeriod = c.PongWait * 9 / 10
	}
	if c.MaxMessageSize <= 0 {
		c.MaxMessageSize = 64 << 10
	}
	if c.CheckOrigin == nil {
		c.CheckOrigin = func(r *http.Request) bool { return true }
	}
}

// PresenceObserver is told about every online/offline transition, in order.
// It must not be used to make delivery decisions.
type PresenceObserver interface {
	Online(ctx context.Context, userID string) error
	Offline(ctx context.Context, userID string) error
}

// EventSink receives a copy of every frame pushed to a user.
type EventSink interface {
	Publish(event, userID string, frame []byte)
}

type Option func(*Server)

func WithPresenceObserver(o PresenceObserver) Option {
	return func(s *Server) {
		if o != nil {
			s.observers = append(s.observers, o)
		}
	}
}

func WithEventSink(sink EventSink) Option {
	return func(s *Server) { s.sink = sink }
}

type presenceChange struct {
	userID string
	online bool
}

// Server owns the live side of the process: every attached connection, the
// user -> connection registry, presence broadcasts and event pushes.
type Server struct {
	conf     ServerConf
	reg      *Registry
	conns    *ConnManager
	upgrader websocket.Upgrader
	log      *zap.Logger

	// serialises registry mutation with the broadcast of its snapshot
	presenceMu sync.Mutex

	observers []PresenceObserver
	changes   chan presenceChange
	sink      EventSink

	// live read loops; Close waits for them to detach
	liveMu  sync.Mutex
	live    sync.WaitGroup
	closing bool

	stopOnce sync.Once
	stopCh   chan struct{}
	doneCh   chan struct{}
}

func NewServer(conf ServerConf, opts ...Option) *Server {
	conf.norm()
	s := &Server{
		conf:  conf,
		reg:   NewRegistry(),
		conns: NewConnManager(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     conf.CheckOrigin,
		},
		log:     logger.Named("chat"),
		changes: make(chan presenceChange, 1024),
		stopCh:  make(chan struct{}),
		doneCh:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	safe.Go(s.observe)
	return s
}

func (s *Server) Registry() *Registry { return s.reg }

func (s *Server) Conns() *ConnManager { return s.conns }

// Online returns the current presence snapshot.
func (s *Server) Online() []string { return s.reg.Snapshot() }

func (s *Server) Lookup(userID string) (Handle, bool) {
	return s.reg.Lookup(userID)
}

// Attach makes h a live connection of the process. With a user id it also
// becomes that user's registered handle. Every attached connection, including
// h, then receives the online snapshot.
func (s *Server) Attach(userID string, h Handle) {
	s.presenceMu.Lock()
	defer s.presenceMu.Unlock()

	s.conns.Add(h)
	if userID != "" {
		if old := s.reg.Register(userID, h); old != nil {
			s.log.Debug("connection replaced", zap.String("user", userID),
				zap.String("old", old.ID()), zap.String("new", h.ID()))
		} else {
			s.notify(userID, true)
		}
	}
	s.broadcastLocked()
}

// Detach removes h. If h is still its user's registered handle, every other
// online user is told the user stopped typing, the user goes offline and the
// new snapshot is broadcast. A replaced connection leaves quietly.
func (s *Server) Detach(userID string, h Handle) {
	s.presenceMu.Lock()
	defer s.presenceMu.Unlock()

	s.conns.Remove(h)
	if userID == "" || !s.reg.IsCurrent(userID, h) {
		return
	}
	s.stopTypingToOthersLocked(userID)
	s.reg.Release(userID, h)
	s.notify(userID, false)
	s.broadcastLocked()
}

// Register binds userID to h, attaching h if it is not yet, and broadcasts
// presence to every connection including h.
func (s *Server) Register(userID string, h Handle) {
	if userID == "" || h == nil {
		return
	}
	s.Attach(userID, h)
}

// Unregister takes userID offline. Its connection stays attached and keeps
// receiving broadcasts until it detaches. Unknown users are a no-op: nothing
// is pushed and false is returned.
func (s *Server) Unregister(userID string) bool {
	s.presenceMu.Lock()
	defer s.presenceMu.Unlock()
	if _, ok := s.reg.Lookup(userID); !ok {
		return false
	}
	s.stopTypingToOthersLocked(userID)
	s.reg.Unregister(userID)
	s.notify(userID, false)
	s.broadcastLocked()
	return true
}

func (s *Server) stopTypingToOthersLocked(userID string) {
	frame, err := Encode(EventUserStoppedTyping, UserPayload{UserID: userID})
	if err != nil {
		s.log.Error("encode stop typing", zap.Error(err))
		return
	}
	for _, other := range s.reg.Others(userID) {
		s.pushFrame(other, EventUserStoppedTyping, "", frame)
	}
}

func (s *Server) broadcastLocked() {
	online := s.reg.Snapshot()
	metrics.OnlineUsers.Set(float64(len(online)))
	frame, err := Encode(EventOnlineUsers, online)
	if err != nil {
		s.log.Error("encode online users", zap.Error(err))
		return
	}
	for _, h := range s.conns.All() {
		s.pushFrame(h, EventOnlineUsers, "", frame)
	}
}

// PushTo sends an event to the user's registered connection, if any.
func (s *Server) PushTo(userID, event string, data any) bool {
	h, ok := s.reg.Lookup(userID)
	if !ok {
		metrics.LivePushes.WithLabelValues(event, metrics.ResultOffline).Inc()
		return false
	}
	return s.Push(h, userID, event, data)
}

// Push sends an event to a specific handle. userID only labels the event for the sink.
func (s *Server) Push(h Handle, userID, event string, data any) bool {
	frame, err := Encode(event, data)
	if err != nil {
		s.log.Error("encode event", zap.String("event", event), zap.Error(err))
		return false
	}
	return s.pushFrame(h, event, userID, frame)
}

func (s *Server) pushFrame(h Handle, event, userID string, frame []byte) bool {
	ok := h.Push(frame)
	if ok {
		metrics.LivePushes.WithLabelValues(event, metrics.ResultDelivered).Inc()
	} else {
		metrics.LivePushes.WithLabelValues(event, metrics.ResultDropped).Inc()
		s.log.Debug("push dropped", zap.String("event", event), zap.String("conn", h.ID()))
	}
	if s.sink != nil && userID != "" {
		s.sink.Publish(event, userID, frame)
	}
	return ok
}

func (s *Server) notify(userID string, online bool) {
	if len(s.observers) == 0 {
		return
	}
	select {
	case s.changes <- presenceChange{userID: userID, online: online}:
	default:
		s.log.Warn("presence observer queue full, dropping change", zap.String("user", userID))
	}
}

func (s *Server) observe() {
	defer close(s.doneCh)
	for {
		select {
		case <-s.stopCh:
			// changes queued by the final detaches still reach the observers
			for {
				select {
				case ch := <-s.changes:
					s.tell(ch)
				default:
					return
				}
			}
		case ch := <-s.changes:
			s.tell(ch)
		}
	}
}

func (s *Server) tell(ch presenceChange) {
	for _, o := range s.observers {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		var err error
		if ch.online {
			err = o.Online(ctx, ch.userID)
		} else {
			err = o.Offline(ctx, ch.userID)
		}
		cancel()
		if err != nil {
			s.log.Warn("presence observer failed", zap.String("user", ch.userID),
				zap.Bool("online", ch.online), zap.Error(err))
		}
	}
}

// enter admits a new read loop unless the server is closing.
func (s *Server) enter() bool {
	s.liveMu.Lock()
	defer s.liveMu.Unlock()
	if s.closing {
		return false
	}
	s.live.Add(1)
	return true
}

func (s *Server) isClosing() bool {
	s.liveMu.Lock()
	defer s.liveMu.Unlock()
	return s.closing
}

// Close disconnects every client, waits up to closeWait for their read loops
// to detach and then stops the observer loop once it has drained.
func (s *Server) Close() {
	s.stopOnce.Do(func() {
		s.liveMu.Lock()
		s.closing = true
		s.liveMu.Unlock()

		s.conns.CloseAll()
		done := make(chan struct{})
		go func() {
			s.live.Wait()
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(closeWait):
			s.log.Warn("connections still open after close", zap.Int("conns", s.conns.Len()))
		}

		close(s.stopCh)
		<-s.doneCh
	})
}
