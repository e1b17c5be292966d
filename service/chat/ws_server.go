package chat

import (
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"TripChat/tools/ids"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// HandleWS upgrades the request and serves the connection until it closes.
// The user id comes from the userId query parameter; without it the
// connection still receives broadcasts but is never registered.
func (s *Server) HandleWS(c *gin.Context) {
	userID := strings.TrimSpace(c.Query("userId"))

	if !s.enter() {
		c.AbortWithStatus(http.StatusServiceUnavailable)
		return
	}
	defer s.live.Done()

	ws, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// the upgrader already answered with an HTTP error
		s.log.Info("upgrade websocket failed", zap.Error(err))
		return
	}

	client := NewClient(ids.GenerateString(), userID, ws, s.conf.SendQueueSize)
	go client.writePump(s.conf)

	s.log.Info("connected", zap.String("conn", client.ConnID), zap.String("user", userID),
		zap.String("remote", ws.RemoteAddr().String()))
	s.Attach(userID, client)
	if s.isClosing() {
		// Close snapshotted the connections before this one attached
		_ = client.Close()
	}

	s.readLoop(client)

	s.Detach(userID, client)
	_ = client.Close()
	s.log.Info("disconnected", zap.String("conn", client.ConnID), zap.String("user", userID))
}

func (s *Server) readLoop(c *Client) {
	ws := c.WS
	ws.SetReadLimit(s.conf.MaxMessageSize)
	_ = ws.SetReadDeadline(time.Now().Add(s.conf.PongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(s.conf.PongWait))
	})

	for {
		mt, data, err := ws.ReadMessage()
		if err != nil {
			var ne net.Error
			switch {
			case websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived):
				s.log.Debug("peer closed", zap.String("conn", c.ConnID))
			case errors.As(err, &ne) && ne.Timeout():
				s.log.Info("read timeout", zap.String("conn", c.ConnID))
			default:
				s.log.Debug("read error", zap.String("conn", c.ConnID), zap.Error(err))
			}
			return
		}
		if mt != websocket.TextMessage && mt != websocket.BinaryMessage {
			continue
		}

		frame, err := ParseFrame(data)
		if err != nil {
			sample := data
			if len(sample) > 256 {
				sample = sample[:256]
			}
			s.log.Debug("bad frame", zap.String("conn", c.ConnID), zap.Error(err), zap.ByteString("sample", sample))
			continue
		}
		if err := s.dispatch(c, frame); err != nil {
			s.log.Debug("event ignored", zap.String("conn", c.ConnID), zap.String("event", frame.Event), zap.Error(err))
		}
	}
}
