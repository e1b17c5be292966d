package global

import (
	"context"
	"strconv"
	"time"

	"TripChat/data/database/mgo/mongoutil"
	"TripChat/global/config"
	"TripChat/logger"
	mgoSrv "TripChat/service/mgo"
	"TripChat/service/media"
	"TripChat/service/natsx"
	"TripChat/service/storage"
	redisx "TripChat/service/storage/redis"
	"TripChat/tools/ids"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const mongoReadyTimeout = 30 * time.Second

func ConfigIds(cfg *config.AppConfig) {
	ids.SetNodeID(int64(cfg.NodeID))
}

// ConfigMgo starts the Mongo manager and waits for the first connection.
func ConfigMgo(ctx context.Context, cfg *config.AppConfig) (*mgoSrv.Manager, error) {
	m := mgoSrv.NewManager(&mongoutil.Config{
		Uri:         cfg.MongoURI,
		Database:    cfg.MongoDatabase,
		MaxPoolSize: cfg.MongoMaxPoolSize,
	})
	m.StartAsync(ctx)

	waitCtx, cancel := context.WithTimeout(ctx, mongoReadyTimeout)
	defer cancel()
	if err := m.WaitReady(waitCtx); err != nil {
		return nil, err
	}
	return m, nil
}

// ConfigRedis returns the presence mirror, or nil when REDIS_ADDR is unset or
// Redis is unreachable. Presence works without it.
func ConfigRedis(ctx context.Context, cfg *config.AppConfig) (*storage.PresenceMirror, *redis.Client) {
	if cfg.RedisAddr == "" {
		return nil, nil
	}
	rdb, err := redisx.NewClient(ctx, redisx.Config{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err != nil {
		logger.Warn("redis unavailable, presence mirror disabled", zap.Error(err))
		return nil, nil
	}
	mirror := storage.NewPresenceMirror(rdb, strconv.Itoa(cfg.NodeID), 0)
	if err := mirror.Reset(ctx); err != nil {
		logger.Warn("reset presence mirror", zap.Error(err))
	}
	return mirror, rdb
}

// ConfigNats returns the live-event sink, or nil when NATS_URL is unset or
// the server is unreachable.
func ConfigNats(cfg *config.AppConfig) *natsx.EventSink {
	if cfg.NatsURL == "" {
		return nil
	}
	nc, err := natsx.Connect(natsx.Config{Servers: []string{cfg.NatsURL}, Name: "tripchat-" + strconv.Itoa(cfg.NodeID)})
	if err != nil {
		logger.Warn("nats unavailable, event mirror disabled", zap.Error(err))
		return nil
	}
	return natsx.NewEventSink(nc, natsx.DefaultSubjectPrefix)
}

func ConfigMedia(cfg *config.AppConfig) (media.Uploader, error) {
	return media.New(media.Config{
		CloudName: cfg.CloudinaryCloudName,
		APIKey:    cfg.CloudinaryAPIKey,
		APISecret: cfg.CloudinaryAPISecret,
		Folder:    cfg.CloudinaryFolder,
	})
}
