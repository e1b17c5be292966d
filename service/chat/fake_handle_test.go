package chat

import (
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeHandle struct {
	id   string
	mu   sync.Mutex
	got  []Frame
	full bool
}

func newFake(id string) *fakeHandle { return &fakeHandle{id: id} }

func (f *fakeHandle) ID() string { return f.id }

func (f *fakeHandle) Push(frame []byte) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.full {
		return false
	}
	var fr Frame
	if err := json.Unmarshal(frame, &fr); err != nil {
		return false
	}
	f.got = append(f.got, fr)
	return true
}

func (f *fakeHandle) frames() []Frame {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Frame(nil), f.got...)
}

func (f *fakeHandle) reset() {
	f.mu.Lock()
	f.got = nil
	f.mu.Unlock()
}

func (f *fakeHandle) events(event string) []Frame {
	var out []Frame
	for _, fr := range f.frames() {
		if fr.Event == event {
			out = append(out, fr)
		}
	}
	return out
}

func (f *fakeHandle) lastOnline(t *testing.T) []string {
	t.Helper()
	evs := f.events(EventOnlineUsers)
	require.NotEmpty(t, evs, "no %s on %s", EventOnlineUsers, f.id)
	var ids []string
	require.NoError(t, json.Unmarshal(evs[len(evs)-1].Data, &ids))
	return ids
}

func userOf(t *testing.T, fr Frame) string {
	t.Helper()
	var p UserPayload
	require.NoError(t, json.Unmarshal(fr.Data, &p))
	return p.UserID
}
