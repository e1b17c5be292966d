package chat

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type recordingObserver struct {
	mu      sync.Mutex
	changes []string
}

func (o *recordingObserver) Online(_ context.Context, userID string) error {
	o.mu.Lock()
	o.changes = append(o.changes, "+"+userID)
	o.mu.Unlock()
	return nil
}

func (o *recordingObserver) Offline(_ context.Context, userID string) error {
	o.mu.Lock()
	o.changes = append(o.changes, "-"+userID)
	o.mu.Unlock()
	return nil
}

func (o *recordingObserver) seen() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]string(nil), o.changes...)
}

type recordingSink struct {
	mu     sync.Mutex
	events []string
}

func (s *recordingSink) Publish(event, userID string, _ []byte) {
	s.mu.Lock()
	s.events = append(s.events, event+":"+userID)
	s.mu.Unlock()
}

func newTestServer(t *testing.T, opts ...Option) *Server {
	t.Helper()
	s := NewServer(ServerConf{}, opts...)
	t.Cleanup(s.Close)
	return s
}

func TestServer_AttachBroadcastsSnapshotToEveryone(t *testing.T) {
	s := newTestServer(t)
	a, b, anon := newFake("c1"), newFake("c2"), newFake("c3")

	s.Attach("u1", a)
	require.Equal(t, []string{"u1"}, a.lastOnline(t))

	s.Attach("u2", b)
	require.Equal(t, []string{"u1", "u2"}, a.lastOnline(t))
	require.Equal(t, []string{"u1", "u2"}, b.lastOnline(t))

	// a connection without a user id still hears presence but is not listed
	s.Attach("", anon)
	require.Equal(t, []string{"u1", "u2"}, anon.lastOnline(t))
	require.Equal(t, []string{"u1", "u2"}, s.Online())
}

func TestServer_ReconnectReplacesHandle(t *testing.T) {
	obs := &recordingObserver{}
	s := newTestServer(t, WithPresenceObserver(obs))
	old, fresh, other := newFake("c1"), newFake("c2"), newFake("c3")

	s.Attach("u1", old)
	s.Attach("u2", other)
	s.Attach("u1", fresh)

	h, ok := s.Lookup("u1")
	require.True(t, ok)
	require.Equal(t, "c2", h.ID())
	require.True(t, s.PushTo("u1", EventUserTyping, UserPayload{UserID: "u2"}))
	require.Len(t, fresh.events(EventUserTyping), 1)
	require.Empty(t, old.events(EventUserTyping))

	// the stale socket going away must not take u1 offline
	other.reset()
	s.Detach("u1", old)
	require.True(t, s.Registry().IsCurrent("u1", fresh))
	require.Empty(t, other.frames())

	require.Eventually(t, func() bool {
		return len(obs.seen()) == 2
	}, time.Second, 10*time.Millisecond)
	require.Equal(t, []string{"+u1", "+u2"}, obs.seen())
}

func TestServer_DetachNotifiesOthers(t *testing.T) {
	obs := &recordingObserver{}
	s := newTestServer(t, WithPresenceObserver(obs))
	a, b, c := newFake("c1"), newFake("c2"), newFake("c3")
	s.Attach("u1", a)
	s.Attach("u2", b)
	s.Attach("u3", c)
	b.reset()
	c.reset()

	s.Detach("u1", a)

	for _, h := range []*fakeHandle{b, c} {
		stopped := h.events(EventUserStoppedTyping)
		require.Len(t, stopped, 1)
		require.Equal(t, "u1", userOf(t, stopped[0]))
		require.Equal(t, []string{"u2", "u3"}, h.lastOnline(t))
	}
	require.Empty(t, a.events(EventUserStoppedTyping))
	require.Equal(t, 2, s.Conns().Len())

	require.Eventually(t, func() bool {
		seen := obs.seen()
		return len(seen) == 4 && seen[3] == "-u1"
	}, time.Second, 10*time.Millisecond)
}

func TestServer_UnregisterUnknownIsQuiet(t *testing.T) {
	s := newTestServer(t)
	a := newFake("c1")
	s.Attach("u1", a)
	a.reset()

	require.False(t, s.Unregister("ghost"))
	require.Empty(t, a.frames())

	require.True(t, s.Unregister("u1"))
	require.Equal(t, []string{}, a.lastOnline(t))
	require.False(t, s.Unregister("u1"))
}

func TestServer_RegisterWithoutAttach(t *testing.T) {
	s := newTestServer(t)
	watcher := newFake("c0")
	s.Attach("", watcher)

	c9 := newFake("c9")
	s.Register("u9", c9)
	require.Equal(t, []string{"u9"}, watcher.lastOnline(t))
	require.Equal(t, []string{"u9"}, c9.lastOnline(t))

	c8 := newFake("c8")
	s.Register("u8", c8)
	require.Equal(t, []string{"u8", "u9"}, c9.lastOnline(t))
	require.Equal(t, []string{"u8", "u9"}, c8.lastOnline(t))
	require.Len(t, c9.events(EventOnlineUsers), 2)
	require.Equal(t, 3, s.Conns().Len())

	s.Register("", newFake("cx"))
	require.Equal(t, []string{"u8", "u9"}, s.Online())
	require.Equal(t, 3, s.Conns().Len())
}

func TestServer_TypingRelay(t *testing.T) {
	s := newTestServer(t)
	a, b := newFake("c1"), newFake("c2")
	s.Attach("u1", a)
	s.Attach("u2", b)

	require.True(t, s.RelayTyping("u1", "u2"))
	require.True(t, s.RelayStopTyping("u1", "u2"))

	typing := b.events(EventUserTyping)
	require.Len(t, typing, 1)
	require.Equal(t, "u1", userOf(t, typing[0]))
	stopped := b.events(EventUserStoppedTyping)
	require.Len(t, stopped, 1)
	require.Equal(t, "u1", userOf(t, stopped[0]))

	require.Empty(t, a.events(EventUserTyping))
}

func TestServer_TypingToOfflineOrBlankIsDropped(t *testing.T) {
	s := newTestServer(t)
	a := newFake("c1")
	s.Attach("u1", a)
	a.reset()

	require.False(t, s.RelayTyping("u1", "u404"))
	require.False(t, s.RelayTyping("u1", "  "))
	require.Empty(t, a.frames())
}

func TestServer_PushReportsDrops(t *testing.T) {
	sink := &recordingSink{}
	s := newTestServer(t, WithEventSink(sink))
	a := newFake("c1")
	s.Attach("u1", a)

	require.True(t, s.PushTo("u1", EventNewMessage, map[string]string{"text": "hi"}))
	a.mu.Lock()
	a.full = true
	a.mu.Unlock()
	require.False(t, s.PushTo("u1", EventNewMessage, map[string]string{"text": "again"}))
	require.False(t, s.PushTo("u2", EventNewMessage, nil))

	sink.mu.Lock()
	defer sink.mu.Unlock()
	require.Equal(t, []string{EventNewMessage + ":u1", EventNewMessage + ":u1"}, sink.events)
}

func TestServer_DispatchClientEvents(t *testing.T) {
	s := newTestServer(t)
	b := newFake("c2")
	s.Attach("u2", b)
	sender := &Client{ConnID: "c1", UserID: "u1"}

	f, err := ParseFrame([]byte(`{"event":"typing","data":{"receiverId":"u2"}}`))
	require.NoError(t, err)
	require.NoError(t, s.dispatch(sender, f))
	require.Len(t, b.events(EventUserTyping), 1)

	f, err = ParseFrame([]byte(`{"event":"dance","data":{}}`))
	require.NoError(t, err)
	require.Error(t, s.dispatch(sender, f))

	f, err = ParseFrame([]byte(`{"event":"stopTyping"}`))
	require.NoError(t, err)
	require.Error(t, s.dispatch(sender, f))

	_, err = ParseFrame([]byte(`{"data":{}}`))
	require.Error(t, err)
}
