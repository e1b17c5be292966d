package mgo

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	mgo "TripChat/data/database/mgo/mongoutil"
	"TripChat/logger"

	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

const (
	baseBackoff = 200 * time.Millisecond
	maxBackoff  = 5 * time.Second
	healthEvery = 10 * time.Second
)

// Manager owns the process' Mongo client: it connects in the background with
// backoff, signals readiness once, and keeps a health status afterwards.
// The driver reconnects on its own, so the health loop only records errors.
type Manager struct {
	cfg *mgo.Config

	mu        sync.RWMutex
	client    *mgo.Client
	readyCh   chan struct{}
	readyOnce sync.Once

	lastErr atomic.Value // error
	healthy atomic.Bool
}

func NewManager(cfg *mgo.Config) *Manager {
	return &Manager{cfg: cfg, readyCh: make(chan struct{})}
}

// StartAsync runs until ctx is done.
func (m *Manager) StartAsync(ctx context.Context) {
	go m.run(ctx)
}

func (m *Manager) run(ctx context.Context) {
	var cli *mgo.Client
	attempt := 0
	for {
		var err error
		cli, err = mgo.NewMongoDB(ctx, m.cfg)
		if err == nil {
			m.mu.Lock()
			m.client = cli
			m.mu.Unlock()
			m.healthy.Store(true)
			m.readyOnce.Do(func() { close(m.readyCh) })
			logger.Info("[mongo] connected", zap.String("database", m.cfg.Database))
			break
		}
		m.lastErr.Store(err)
		logger.Warn("[mongo] connect failed, retrying", zap.Int("attempt", attempt), zap.Error(err))

		// 退避 + 抖动
		backoff := baseBackoff << attempt
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
		jitter := time.Duration(rand.Int63n(int64(backoff/5) + 1))
		timer := time.NewTimer(backoff - jitter/2)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
		if attempt < 6 {
			attempt++
		}
	}

	ticker := time.NewTicker(healthEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
			err := cli.Ping(pingCtx)
			cancel()
			if err != nil {
				m.lastErr.Store(err)
				if m.healthy.Swap(false) {
					logger.Warn("[mongo] ping failed", zap.Error(err))
				}
				continue
			}
			if !m.healthy.Swap(true) {
				logger.Info("[mongo] ping recovered")
			}
		}
	}
}

// Ready is closed after the first successful connection.
func (m *Manager) Ready() <-chan struct{} {
	return m.readyCh
}

func (m *Manager) WaitReady(ctx context.Context) error {
	select {
	case <-m.readyCh:
		return nil
	case <-ctx.Done():
		if err := m.Err(); err != nil {
			return fmt.Errorf("mongo not ready: %w", err)
		}
		return ctx.Err()
	}
}

// Err returns the last connection or ping error.
func (m *Manager) Err() error {
	if v := m.lastErr.Load(); v != nil {
		return v.(error)
	}
	return nil
}

func (m *Manager) Healthy() bool {
	return m.healthy.Load()
}

func (m *Manager) TryGetDB() (*mongo.Database, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.client == nil {
		return nil, false
	}
	return m.client.GetDB(), true
}

func (m *Manager) Close(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.client == nil {
		return nil
	}
	err := m.client.Disconnect(ctx)
	m.client = nil
	m.healthy.Store(false)
	return err
}
