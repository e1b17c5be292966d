package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"TripChat/global/config"
	msgservice "TripChat/module/message/service"
	msgstore "TripChat/module/message/store"
	userservice "TripChat/module/user/service"
	userstore "TripChat/module/user/store"
	"TripChat/service/chat"
	"TripChat/service/media/mocks"
	jwtsec "TripChat/tools/security"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"golang.org/x/crypto/bcrypt"
)

func testEngine(t *testing.T, healthy bool) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	cfg := &config.AppConfig{
		JWTSecret:    "router-test-secret-key",
		JWTTTL:       time.Hour,
		CORSOrigins:  "http://localhost:5173",
		MaxBodyBytes: 1 << 20,
	}
	up := mocks.NewMockUploader(gomock.NewController(t))
	hub := chat.NewServer(chat.ServerConf{})
	t.Cleanup(hub.Close)

	users := userservice.New(userstore.NewMemory(), up, jwtsec.Options{
		Secret: []byte(cfg.JWTSecret), Alg: "HS256", TTL: cfg.JWTTTL,
	})
	users.SetHashCost(bcrypt.MinCost)
	messages := msgservice.New(msgstore.NewMemory(), up, hub)

	return newEngine(cfg, app{
		hub:      hub,
		users:    users,
		messages: messages,
		healthy:  func() bool { return healthy },
	})
}

func serve(engine *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func TestHealthz(t *testing.T) {
	w := serve(testEngine(t, true), httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, w.Code)
	require.NotEmpty(t, w.Header().Get("X-Request-ID"))

	w = serve(testEngine(t, false), httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestPreflight(t *testing.T) {
	req := httptest.NewRequest(http.MethodOptions, "/api/messages/send/abc", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	w := serve(testEngine(t, true), req)
	require.Equal(t, http.StatusNoContent, w.Code)
	require.Equal(t, "http://localhost:5173", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestRoutesRequireSession(t *testing.T) {
	engine := testEngine(t, true)
	for _, path := range []string{"/api/messages/users", "/api/messages/last-activities", "/api/auth/check"} {
		w := serve(engine, httptest.NewRequest(http.MethodGet, path, nil))
		require.Equal(t, http.StatusUnauthorized, w.Code, path)
	}
}

func TestRegisterThenBrowse(t *testing.T) {
	engine := testEngine(t, true)

	body, _ := json.Marshal(map[string]string{
		"name": "Ada", "lastName": "Lovelace", "username": "ada",
		"dateOfBirth": "1990-12-10", "email": "ada@example.com", "password": "secret1",
	})
	req := httptest.NewRequest(http.MethodPost, "/api/auth/register", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := serve(engine, req)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	cookies := w.Result().Cookies()
	require.NotEmpty(t, cookies)

	for _, path := range []string{"/api/messages/users", "/api/messages/last-activities", "/api/auth/check"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		for _, c := range cookies {
			req.AddCookie(c)
		}
		w := serve(engine, req)
		require.Equal(t, http.StatusOK, w.Code, path)
	}
}
