package chat

import (
	"sort"
	"sync"

	"github.com/samber/lo"
)

// Handle is a live connection the server can push encoded frames to.
// Push never blocks; it reports false when the frame was dropped.
type Handle interface {
	ID() string
	Push(frame []byte) bool
}

// Registry maps a user to the one connection that currently represents them.
// A later Register for the same user replaces the earlier handle.
type Registry struct {
	mu     sync.RWMutex
	byUser map[string]Handle
}

func NewRegistry() *Registry {
	return &Registry{byUser: make(map[string]Handle)}
}

// Register inserts or replaces the user's handle and returns the replaced one, if any.
func (r *Registry) Register(userID string, h Handle) Handle {
	if userID == "" || h == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	old := r.byUser[userID]
	r.byUser[userID] = h
	return old
}

// Unregister removes the user's entry; it reports whether one existed.
func (r *Registry) Unregister(userID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byUser[userID]; !ok {
		return false
	}
	delete(r.byUser, userID)
	return true
}

// Release removes the user's entry only while h is still the registered handle.
func (r *Registry) Release(userID string, h Handle) bool {
	if h == nil {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.byUser[userID]
	if !ok || cur.ID() != h.ID() {
		return false
	}
	delete(r.byUser, userID)
	return true
}

func (r *Registry) Lookup(userID string) (Handle, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.byUser[userID]
	return h, ok
}

// IsCurrent reports whether h is the user's registered handle.
func (r *Registry) IsCurrent(userID string, h Handle) bool {
	cur, ok := r.Lookup(userID)
	return ok && h != nil && cur.ID() == h.ID()
}

// Snapshot returns the online user ids, sorted.
func (r *Registry) Snapshot() []string {
	r.mu.RLock()
	keys := lo.Keys(r.byUser)
	r.mu.RUnlock()
	sort.Strings(keys)
	return keys
}

// Others returns every registered handle except the user's own.
func (r *Registry) Others(userID string) []Handle {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Handle, 0, len(r.byUser))
	for uid, h := range r.byUser {
		if uid != userID {
			out = append(out, h)
		}
	}
	return out
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byUser)
}
