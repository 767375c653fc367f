package pool

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"matchago/backend/internal/models"

	"github.com/redis/go-redis/v9"
)

const pendingKeyPrefix = "pending:"

// Pending is the hand-off channel to the queued side of a pair: a
// short-TTL marker a polling client consumes to learn its room. Once the
// TTL lapses unread the match is lost to that party.
type Pending interface {
	SetPending(ctx context.Context, id string, pm models.PendingMatch, ttl time.Duration) error
	GetPending(ctx context.Context, id string) (*models.PendingMatch, error)
	ClearPending(ctx context.Context, id string) error
}

type PendingStore struct {
	Redis *redis.Client
}

func NewPendingStore(rdb *redis.Client) *PendingStore {
	return &PendingStore{Redis: rdb}
}

func (p *PendingStore) SetPending(ctx context.Context, id string, pm models.PendingMatch, ttl time.Duration) error {
	data, err := json.Marshal(pm)
	if err != nil {
		return err
	}
	return p.Redis.Set(ctx, pendingKeyPrefix+id, data, ttl).Err()
}

// GetPending returns nil with no error when there is no marker.
func (p *PendingStore) GetPending(ctx context.Context, id string) (*models.PendingMatch, error) {
	data, err := p.Redis.Get(ctx, pendingKeyPrefix+id).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var pm models.PendingMatch
	if err := json.Unmarshal([]byte(data), &pm); err != nil {
		return nil, err
	}
	return &pm, nil
}

func (p *PendingStore) ClearPending(ctx context.Context, id string) error {
	return p.Redis.Del(ctx, pendingKeyPrefix+id).Err()
}
