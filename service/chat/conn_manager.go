package chat

import (
	"io"
	"sync"
)

// ConnManager tracks every attached connection, registered or anonymous.
// Presence broadcasts go to all of them.
type ConnManager struct {
	mu   sync.RWMutex
	byID map[string]Handle
}

func NewConnManager() *ConnManager {
	return &ConnManager{byID: make(map[string]Handle)}
}

func (m *ConnManager) Add(h Handle) {
	if h == nil {
		return
	}
	m.mu.Lock()
	m.byID[h.ID()] = h
	m.mu.Unlock()
}

func (m *ConnManager) Remove(h Handle) bool {
	if h == nil {
		return false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[h.ID()]; !ok {
		return false
	}
	delete(m.byID, h.ID())
	return true
}

func (m *ConnManager) All() []Handle {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Handle, 0, len(m.byID))
	for _, h := range m.byID {
		out = append(out, h)
	}
	return out
}

func (m *ConnManager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.byID)
}

// CloseAll closes the transport of every connection that has one. The read
// loops notice and detach themselves.
func (m *ConnManager) CloseAll() {
	for _, h := range m.All() {
		if c, ok := h.(io.Closer); ok {
			_ = c.Close()
		}
	}
}
