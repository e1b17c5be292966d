package chat

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Client is one websocket session. Reads happen on the handler goroutine;
// writes are owned by writePump, which drains Send.
type Client struct {
	ConnID string
	UserID string // empty for connections that are invisible to presence
	WS     *websocket.Conn

	mu     sync.RWMutex
	send   chan []byte
	closed bool
}

func NewClient(connID, userID string, ws *websocket.Conn, sendQueueSize int) *Client {
	if sendQueueSize <= 0 {
		sendQueueSize = 64
	}
	return &Client{
		ConnID: connID,
		UserID: userID,
		WS:     ws,
		send:   make(chan []byte, sendQueueSize),
	}
}

func (c *Client) ID() string { return c.ConnID }

// Push enqueues without blocking; a slow or finished client loses the frame.
func (c *Client) Push(frame []byte) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- frame:
		return true
	default:
		return false
	}
}

// Close stops the writer, which then closes the socket.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
	return nil
}

func (c *Client) writePump(conf ServerConf) {
	ticker := time.NewTicker(conf.PingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.WS.Close()
	}()

	for {
		select {
		case frame, ok := <-c.send:
			_ = c.WS.SetWriteDeadline(time.Now().Add(conf.WriteWait))
			if !ok {
				_ = c.WS.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.WS.WriteMessage(websocket.TextMessage, frame); err != nil {
				// reader sees the broken socket and detaches the client
				_ = c.WS.Close()
				c.drain()
				return
			}
		case <-ticker.C:
			if err := c.WS.WriteControl(websocket.PingMessage, nil, time.Now().Add(conf.WriteWait)); err != nil {
				_ = c.WS.Close()
				c.drain()
				return
			}
		}
	}
}

// drain discards queued frames until Close so pushers never see a stuck queue.
func (c *Client) drain() {
	for range c.send {
	}
}
