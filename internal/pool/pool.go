// Package pool wraps the ephemeral keyed store (Redis) with the
// queue-shaped operations the matchmaking core consumes: FIFO waiting
// queues, per-entry liveness shadow keys, presence markers and
// pending-match markers. No business logic lives here; each call maps to
// one store operation (or one pipeline) and is atomic only to that extent.
package pool

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrEmpty is returned by PopHead when the queue has no entries.
var ErrEmpty = errors.New("queue is empty")

const (
	randomQueueKey     = "queue:random"
	interestQueueKey   = "queue:interest:"
	shadowKeyPrefix    = "shadow:"
	interestsKeyPrefix = "interests:"
)

// RandomQueue is the key of the singleton random-mode queue.
func RandomQueue() string { return randomQueueKey }

// InterestQueue is the key of the queue for one interest tag.
func InterestQueue(tag string) string {
	return interestQueueKey + strings.ToLower(tag)
}

// Queues is the waiting-pool contract the engine scans and enqueues
// against. Implemented by Store; tests substitute a mock.
type Queues interface {
	PushTail(ctx context.Context, queue, id string) error
	PopHead(ctx context.Context, queue string) (string, error)
	RemoveAll(ctx context.Context, queue, id string) error

	SetShadow(ctx context.Context, id string, ttl time.Duration) error
	ShadowAlive(ctx context.Context, id string) (bool, error)
	DeleteShadow(ctx context.Context, id string) error

	CacheInterests(ctx context.Context, id string, tags []string, ttl time.Duration) error
	BatchInterests(ctx context.Context, ids []string) (map[string][]string, error)
}

type Store struct {
	Redis *redis.Client
}

func NewStore(rdb *redis.Client) *Store {
	return &Store{Redis: rdb}
}

func (s *Store) PushTail(ctx context.Context, queue, id string) error {
	return s.Redis.RPush(ctx, queue, id).Err()
}

// PopHead removes and returns the head of the queue. Pop is destructive:
// a given entry can be observed by exactly one caller.
func (s *Store) PopHead(ctx context.Context, queue string) (string, error) {
	id, err := s.Redis.LPop(ctx, queue).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrEmpty
	}
	if err != nil {
		return "", err
	}
	return id, nil
}

// RemoveAll deletes every occurrence of id in the queue, covering the
// duplicate-enqueue race the design tolerates.
func (s *Store) RemoveAll(ctx context.Context, queue, id string) error {
	return s.Redis.LRem(ctx, queue, 0, id).Err()
}

func (s *Store) SetShadow(ctx context.Context, id string, ttl time.Duration) error {
	return s.Redis.Set(ctx, shadowKeyPrefix+id, "1", ttl).Err()
}

func (s *Store) ShadowAlive(ctx context.Context, id string) (bool, error) {
	n, err := s.Redis.Exists(ctx, shadowKeyPrefix+id).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *Store) DeleteShadow(ctx context.Context, id string) error {
	return s.Redis.Del(ctx, shadowKeyPrefix+id).Err()
}

// CacheInterests mirrors a user's interest tag set into the ephemeral
// store so candidate scoring reads it in one pipelined round trip instead
// of N persistent-store lookups.
func (s *Store) CacheInterests(ctx context.Context, id string, tags []string, ttl time.Duration) error {
	data, err := json.Marshal(tags)
	if err != nil {
		return err
	}
	return s.Redis.Set(ctx, interestsKeyPrefix+id, data, ttl).Err()
}

// BatchInterests fetches the cached interest sets for many ids in a single
// pipeline. Ids with no cached set are absent from the result.
func (s *Store) BatchInterests(ctx context.Context, ids []string) (map[string][]string, error) {
	if len(ids) == 0 {
		return map[string][]string{}, nil
	}

	pipe := s.Redis.Pipeline()
	cmds := make([]*redis.StringCmd, len(ids))
	for i, id := range ids {
		cmds[i] = pipe.Get(ctx, interestsKeyPrefix+id)
	}
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, err
	}

	out := make(map[string][]string, len(ids))
	for i, cmd := range cmds {
		data, err := cmd.Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return nil, err
		}
		var tags []string
		if err := json.Unmarshal([]byte(data), &tags); err != nil {
			continue
		}
		out[ids[i]] = tags
	}
	return out, nil
}
