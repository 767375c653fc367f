package match_test

import (
	"context"
	"errors"
	"sync"
	"time"

	"matchago/backend/internal/models"
	"matchago/backend/internal/pool"
)

// fakePool is an in-memory stand-in for the ephemeral store, implementing
// the same push/pop/exists/expire contract. It counts re-pushes so tests
// can assert on the lossy re-push behavior instead of chasing
// linearizability.
type fakePool struct {
	mu        sync.Mutex
	queues    map[string][]string
	shadows   map[string]time.Time
	presence  map[string]time.Time
	pending   map[string]models.PendingMatch
	interests map[string][]string

	pushCount map[string]int // pushes per queue, re-pushes included
	failAll   bool           // simulate total store unavailability
}

func newFakePool() *fakePool {
	return &fakePool{
		queues:    make(map[string][]string),
		shadows:   make(map[string]time.Time),
		presence:  make(map[string]time.Time),
		pending:   make(map[string]models.PendingMatch),
		interests: make(map[string][]string),
		pushCount: make(map[string]int),
	}
}

var errStoreDown = errors.New("store down")

func (f *fakePool) PushTail(ctx context.Context, queue, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll {
		return errStoreDown
	}
	f.queues[queue] = append(f.queues[queue], id)
	f.pushCount[queue]++
	return nil
}

func (f *fakePool) PopHead(ctx context.Context, queue string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll {
		return "", errStoreDown
	}
	q := f.queues[queue]
	if len(q) == 0 {
		return "", pool.ErrEmpty
	}
	id := q[0]
	f.queues[queue] = q[1:]
	return id, nil
}

func (f *fakePool) RemoveAll(ctx context.Context, queue, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	var kept []string
	for _, v := range f.queues[queue] {
		if v != id {
			kept = append(kept, v)
		}
	}
	f.queues[queue] = kept
	return nil
}

func (f *fakePool) SetShadow(ctx context.Context, id string, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll {
		return errStoreDown
	}
	f.shadows[id] = time.Now().Add(ttl)
	return nil
}

func (f *fakePool) ShadowAlive(ctx context.Context, id string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	exp, ok := f.shadows[id]
	return ok && time.Now().Before(exp), nil
}

func (f *fakePool) DeleteShadow(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.shadows, id)
	return nil
}

func (f *fakePool) CacheInterests(ctx context.Context, id string, tags []string, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.interests[id] = append([]string(nil), tags...)
	return nil
}

func (f *fakePool) BatchInterests(ctx context.Context, ids []string) (map[string][]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string][]string, len(ids))
	for _, id := range ids {
		if tags, ok := f.interests[id]; ok {
			out[id] = tags
		}
	}
	return out, nil
}

// Presence side.

func (f *fakePool) Refresh(ctx context.Context, id string, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll {
		return errStoreDown
	}
	f.presence[id] = time.Now().Add(ttl)
	return nil
}

func (f *fakePool) IsLive(ctx context.Context, id string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	exp, ok := f.presence[id]
	return ok && time.Now().Before(exp), nil
}

func (f *fakePool) AreLive(ctx context.Context, ids []string) ([]bool, error) {
	out := make([]bool, len(ids))
	for i, id := range ids {
		out[i], _ = f.IsLive(ctx, id)
	}
	return out, nil
}

func (f *fakePool) Drop(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.presence, id)
	return nil
}

// Pending side.

func (f *fakePool) SetPending(ctx context.Context, id string, pm models.PendingMatch, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll {
		return errStoreDown
	}
	f.pending[id] = pm
	return nil
}

func (f *fakePool) GetPending(ctx context.Context, id string) (*models.PendingMatch, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if pm, ok := f.pending[id]; ok {
		out := pm
		return &out, nil
	}
	return nil, nil
}

func (f *fakePool) ClearPending(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.pending, id)
	return nil
}

// queueLen reports how many entries a queue currently holds.
func (f *fakePool) queueLen(queue string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.queues[queue])
}

func (f *fakePool) queueContains(queue, id string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, v := range f.queues[queue] {
		if v == id {
			return true
		}
	}
	return false
}

// fakeStorage serves projections from a map and records saved matches.
type fakeStorage struct {
	mu      sync.Mutex
	users   map[string]*models.Projection
	matches []*models.Match
	saveErr error
}

func newFakeStorage(users ...*models.Projection) *fakeStorage {
	m := make(map[string]*models.Projection, len(users))
	for _, u := range users {
		m[u.ID] = u
	}
	return &fakeStorage{users: m}
}

func (f *fakeStorage) GetProjection(ctx context.Context, userID string) (*models.Projection, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if p, ok := f.users[userID]; ok {
		return p, nil
	}
	return nil, errors.New("user not found")
}

func (f *fakeStorage) SaveMatch(ctx context.Context, m *models.Match) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return f.saveErr
	}
	f.matches = append(f.matches, m)
	return nil
}

func (f *fakeStorage) EnsureGuest(ctx context.Context, guestID string) error {
	return nil
}
