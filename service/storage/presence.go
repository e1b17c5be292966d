package storage

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

const onlineSetKey = "im:online"

// presence key: im:presence:<user>
// value: node id, TTL bounds how long a crashed node leaves users marked online
func presenceKey(user string) string { return "im:presence:" + user }

// PresenceMirror copies the in-process presence into Redis so other
// processes can read it. Delivery never consults it.
type PresenceMirror struct {
	rdb    redis.Cmdable
	nodeID string
	ttl    time.Duration
}

func NewPresenceMirror(rdb redis.Cmdable, nodeID string, ttl time.Duration) *PresenceMirror {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &PresenceMirror{rdb: rdb, nodeID: nodeID, ttl: ttl}
}

func (p *PresenceMirror) Online(ctx context.Context, userID string) error {
	_, err := p.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, presenceKey(userID), p.nodeID, p.ttl)
		pipe.SAdd(ctx, onlineSetKey, userID)
		return nil
	})
	return errors.Wrapf(err, "mark %s online", userID)
}

func (p *PresenceMirror) Offline(ctx context.Context, userID string) error {
	_, err := p.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, presenceKey(userID))
		pipe.SRem(ctx, onlineSetKey, userID)
		return nil
	})
	return errors.Wrapf(err, "mark %s offline", userID)
}

// Lookup reports the node holding the user, if the user is online anywhere.
func (p *PresenceMirror) Lookup(ctx context.Context, userID string) (string, bool, error) {
	val, err := p.rdb.Get(ctx, presenceKey(userID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, errors.WithStack(err)
	}
	return val, true, nil
}

// Members lists users marked online by any node.
func (p *PresenceMirror) Members(ctx context.Context) ([]string, error) {
	ids, err := p.rdb.SMembers(ctx, onlineSetKey).Result()
	return ids, errors.WithStack(err)
}

// Reset clears the entries this node owns; main calls it on startup since a
// restarted node holds no connections.
func (p *PresenceMirror) Reset(ctx context.Context) error {
	ids, err := p.Members(ctx)
	if err != nil {
		return err
	}
	for _, id := range ids {
		node, ok, err := p.Lookup(ctx, id)
		if err != nil {
			return err
		}
		if !ok || node == p.nodeID {
			if err := p.Offline(ctx, id); err != nil {
				return err
			}
		}
	}
	return nil
}
