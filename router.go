package main

import (
	"net/http"

	"TripChat/global/config"
	"TripChat/middleware"
	"TripChat/middleware/security"
	"TripChat/module/message"
	msgservice "TripChat/module/message/service"
	"TripChat/module/user"
	userservice "TripChat/module/user/service"
	"TripChat/service/chat"
	jwtsec "TripChat/tools/security"

	"github.com/gin-gonic/gin"
)

type app struct {
	hub      *chat.Server
	users    *userservice.Service
	messages *msgservice.Service
	healthy  func() bool
	metrics  http.Handler
}

func newEngine(cfg *config.AppConfig, a app) *gin.Engine {
	r := gin.New()

	mids := middleware.NewManager()
	mids.Add(
		middleware.Origin(cfg.Origins()),
		middleware.BodyLimit(int64(cfg.MaxBodyBytes)),
	)
	r.Use(gin.Recovery(), middleware.RequestLogger(), mids.Use())

	r.GET("/socket", a.hub.HandleWS)
	r.GET("/healthz", func(c *gin.Context) {
		if a.healthy != nil && !a.healthy() {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok", "online": len(a.hub.Online())})
	})
	if a.metrics != nil {
		r.GET("/metrics", gin.WrapH(a.metrics))
	}

	auth := security.Middleware(security.Options{
		JWT:   jwtsec.Options{Secret: []byte(cfg.JWTSecret), Alg: "HS256", TTL: cfg.JWTTTL},
		Users: a.users,
	})

	userH := user.NewHandler(a.users, cfg.CookieSecure)
	limiter := middleware.NewKeyLimiter(cfg.AuthRatePerSec, cfg.AuthRateBurst, 0)
	userH.AuthRoutes(middleware.NewRouter(r.Group("/api/auth", middleware.RateLimit(limiter)), auth))

	msgRoutes := middleware.NewRouter(r.Group("/api/messages"), auth)
	userH.SidebarRoutes(msgRoutes)
	message.NewHandler(a.messages).Routes(msgRoutes)

	return r
}
