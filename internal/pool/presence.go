package pool

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const presenceKeyPrefix = "presence:"

// Presence tracks short-TTL "currently online" markers, refreshed by
// client heartbeats. Absence does not distinguish "never seen" from
// "expired" — liveness is purely presence-based.
type Presence interface {
	Refresh(ctx context.Context, id string, ttl time.Duration) error
	IsLive(ctx context.Context, id string) (bool, error)
	AreLive(ctx context.Context, ids []string) ([]bool, error)
	Drop(ctx context.Context, id string) error
}

type PresenceStore struct {
	Redis *redis.Client
}

func NewPresenceStore(rdb *redis.Client) *PresenceStore {
	return &PresenceStore{Redis: rdb}
}

func (p *PresenceStore) Refresh(ctx context.Context, id string, ttl time.Duration) error {
	return p.Redis.Set(ctx, presenceKeyPrefix+id, "1", ttl).Err()
}

func (p *PresenceStore) IsLive(ctx context.Context, id string) (bool, error) {
	n, err := p.Redis.Exists(ctx, presenceKeyPrefix+id).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// AreLive checks many ids in one pipelined round trip, in input order.
func (p *PresenceStore) AreLive(ctx context.Context, ids []string) ([]bool, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	pipe := p.Redis.Pipeline()
	cmds := make([]*redis.IntCmd, len(ids))
	for i, id := range ids {
		cmds[i] = pipe.Exists(ctx, presenceKeyPrefix+id)
	}
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, err
	}

	out := make([]bool, len(ids))
	for i, cmd := range cmds {
		out[i] = cmd.Val() > 0
	}
	return out, nil
}

func (p *PresenceStore) Drop(ctx context.Context, id string) error {
	return p.Redis.Del(ctx, presenceKeyPrefix+id).Err()
}
