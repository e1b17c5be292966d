package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"TripChat/global"
	"TripChat/global/config"
	"TripChat/logger"
	"TripChat/middleware"
	msgservice "TripChat/module/message/service"
	msgstore "TripChat/module/message/store"
	userservice "TripChat/module/user/service"
	userstore "TripChat/module/user/store"
	"TripChat/service/chat"
	"TripChat/service/metrics"
	jwtsec "TripChat/tools/security"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Error("load config", zap.Error(err))
		os.Exit(1)
	}
	logger.SetLevel(cfg.LogLevel)
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		logger.Error("server stopped", zap.Error(err))
		logger.Sync()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.AppConfig) error {
	gin.SetMode(gin.ReleaseMode)
	global.ConfigIds(cfg)

	mgr, err := global.ConfigMgo(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = mgr.Close(closeCtx)
	}()
	db, ok := mgr.TryGetDB()
	if !ok {
		return errors.New("mongo not ready")
	}
	if err := userstore.EnsureIndexes(ctx, db); err != nil {
		logger.Warn("ensure user indexes", zap.Error(err))
	}
	if err := msgstore.EnsureIndexes(ctx, db); err != nil {
		logger.Warn("ensure message indexes", zap.Error(err))
	}

	uploader, err := global.ConfigMedia(cfg)
	if err != nil {
		return err
	}
	if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
		return err
	}

	var opts []chat.Option
	mirror, rdb := global.ConfigRedis(ctx, cfg)
	if mirror != nil {
		opts = append(opts, chat.WithPresenceObserver(mirror))
		defer rdb.Close()
	}
	if sink := global.ConfigNats(cfg); sink != nil {
		opts = append(opts, chat.WithEventSink(sink))
		defer sink.Close()
	}
	hub := chat.NewServer(chat.ServerConf{
		SendQueueSize: cfg.SendQueueSize,
		CheckOrigin:   middleware.AllowOrigin(cfg.Origins()),
	}, opts...)
	// registered after the sink so connections close before it drains
	defer hub.Close()

	users := userservice.New(userstore.NewMongo(db), uploader, jwtsec.Options{
		Secret: []byte(cfg.JWTSecret),
		Alg:    "HS256",
		TTL:    cfg.JWTTTL,
	})
	messages := msgservice.New(msgstore.NewMongo(db), uploader, hub, msgservice.WithFolder(cfg.CloudinaryFolder))

	engine := newEngine(cfg, app{
		hub:      hub,
		users:    users,
		messages: messages,
		healthy:  mgr.Healthy,
		metrics:  metrics.Handler(prometheus.DefaultGatherer),
	})

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	// hijacked websocket connections are not tracked by Shutdown; hub.Close ends them
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
	return nil
}
