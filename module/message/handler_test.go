package message

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"TripChat/middleware"
	"TripChat/middleware/security"
	"TripChat/module/message/model"
	"TripChat/module/message/service"
	"TripChat/module/message/store"
	usermodel "TripChat/module/user/model"
	userstore "TripChat/module/user/store"
	"TripChat/service/chat"
	"TripChat/service/media/mocks"
	jwtsec "TripChat/tools/security"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type socket struct {
	id     string
	mu     sync.Mutex
	events []string
}

func (s *socket) ID() string { return s.id }

func (s *socket) Push(frame []byte) bool {
	var f chat.Frame
	_ = json.Unmarshal(frame, &f)
	s.mu.Lock()
	s.events = append(s.events, f.Event)
	s.mu.Unlock()
	return true
}

func (s *socket) count(event string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, e := range s.events {
		if e == event {
			n++
		}
	}
	return n
}

type api struct {
	engine *gin.Engine
	users  *userstore.Memory
	hub    *chat.Server
	jwt    jwtsec.Options
}

func newAPI(t *testing.T) *api {
	t.Helper()
	gin.SetMode(gin.TestMode)
	jwt := jwtsec.DefaultOptions([]byte("handler-test-secret-key"))
	users := userstore.NewMemory()
	hub := chat.NewServer(chat.ServerConf{})
	t.Cleanup(hub.Close)

	svc := service.New(store.NewMemory(), mocks.NewMockUploader(gomock.NewController(t)), hub)
	auth := security.Middleware(security.Options{JWT: jwt, Users: users})

	engine := gin.New()
	NewHandler(svc).Routes(middleware.NewRouter(engine.Group("/api/messages"), auth))
	return &api{engine: engine, users: users, hub: hub, jwt: jwt}
}

func (a *api) user(t *testing.T, username string) (string, string) {
	t.Helper()
	u := &usermodel.User{Username: username, Email: username + "@example.com"}
	require.NoError(t, a.users.Create(context.Background(), u))
	token, _, err := jwtsec.Generate(a.jwt, u.GetUserID())
	require.NoError(t, err)
	return u.GetUserID(), token
}

func (a *api) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.AddCookie(&http.Cookie{Name: security.CookieToken, Value: token})
	}
	w := httptest.NewRecorder()
	a.engine.ServeHTTP(w, req)
	return w
}

func messageOf(t *testing.T, w *httptest.ResponseRecorder) model.Message {
	t.Helper()
	var m model.Message
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &m))
	return m
}

func TestSendAndHistory(t *testing.T) {
	a := newAPI(t)
	alice, aliceTok := a.user(t, "alice")
	bob, bobTok := a.user(t, "bob")
	bobSock := &socket{id: "b1"}
	a.hub.Register(bob, bobSock)

	w := a.do(t, http.MethodPost, "/api/messages/send/"+bob, aliceTok, map[string]string{"text": "hi"})
	require.Equal(t, http.StatusCreated, w.Code)
	sent := messageOf(t, w)
	require.Equal(t, alice, sent.SenderID)
	require.Equal(t, bob, sent.ReceiverID)
	require.False(t, sent.Read)
	require.Equal(t, 1, bobSock.count(chat.EventNewMessage))

	for _, path := range []string{"/api/messages/conversation/" + alice, "/api/messages/" + alice} {
		w = a.do(t, http.MethodGet, path, bobTok, nil)
		require.Equal(t, http.StatusOK, w.Code, path)
		var history []model.Message
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &history))
		require.Len(t, history, 1)
		require.Equal(t, sent.ID, history[0].ID)
	}

	w = a.do(t, http.MethodGet, "/api/messages/last-activities", aliceTok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var acts []model.Activity
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &acts))
	require.Len(t, acts, 1)
	require.Equal(t, bob, acts[0].PartnerID)
}

func TestSend_EmptyBodyIsAccepted(t *testing.T) {
	a := newAPI(t)
	_, tok := a.user(t, "alice")
	bob, _ := a.user(t, "bob")

	w := a.do(t, http.MethodPost, "/api/messages/send/"+bob, tok, nil)
	require.Equal(t, http.StatusCreated, w.Code)
	require.Empty(t, messageOf(t, w).Text)
}

func TestAuthFailures(t *testing.T) {
	a := newAPI(t)
	id, tok := a.user(t, "alice")

	w := a.do(t, http.MethodGet, "/api/messages/last-activities", "", nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.JSONEq(t, `{"message":"unauthorized - no token"}`, w.Body.String())

	w = a.do(t, http.MethodGet, "/api/messages/last-activities", "garbage", nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)

	expired, _, err := jwtsec.Generate(jwtsec.Options{Secret: a.jwt.Secret, TTL: time.Millisecond}, id)
	require.NoError(t, err)
	time.Sleep(1100 * time.Millisecond)
	w = a.do(t, http.MethodGet, "/api/messages/last-activities", expired, nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)

	// bearer header works as well as the cookie
	req := httptest.NewRequest(http.MethodGet, "/api/messages/last-activities", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	rec := httptest.NewRecorder()
	a.engine.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	a.users.Remove(id)
	w = a.do(t, http.MethodGet, "/api/messages/last-activities", tok, nil)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestDeleteFlow(t *testing.T) {
	a := newAPI(t)
	alice, aliceTok := a.user(t, "alice")
	bob, bobTok := a.user(t, "bob")
	aliceSock, bobSock := &socket{id: "a1"}, &socket{id: "b1"}
	a.hub.Register(alice, aliceSock)
	a.hub.Register(bob, bobSock)

	sent := messageOf(t, a.do(t, http.MethodPost, "/api/messages/send/"+bob, aliceTok, map[string]string{"text": "x"}))
	path := "/api/messages/delete/" + sent.ID.Hex()

	w := a.do(t, http.MethodDelete, path, bobTok, nil)
	require.Equal(t, http.StatusForbidden, w.Code)
	require.Zero(t, bobSock.count(chat.EventMessageDeleted))

	w = a.do(t, http.MethodDelete, path, aliceTok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, 1, aliceSock.count(chat.EventMessageDeleted))
	require.Equal(t, 1, bobSock.count(chat.EventMessageDeleted))

	w = a.do(t, http.MethodDelete, path, aliceTok, nil)
	require.Equal(t, http.StatusNotFound, w.Code)
	w = a.do(t, http.MethodDelete, "/api/messages/delete/zzz", aliceTok, nil)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestMarkRead(t *testing.T) {
	a := newAPI(t)
	alice, aliceTok := a.user(t, "alice")
	bob, bobTok := a.user(t, "bob")
	for i := 0; i < 3; i++ {
		w := a.do(t, http.MethodPost, "/api/messages/send/"+alice, bobTok, map[string]string{"text": "ping"})
		require.Equal(t, http.StatusCreated, w.Code)
	}

	w := a.do(t, http.MethodPost, "/api/messages/read/"+bob, aliceTok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Message  string `json:"message"`
		Modified int64  `json:"modified"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.EqualValues(t, 3, resp.Modified)
}
