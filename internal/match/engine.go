package match

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"matchago/backend/internal/config"
	"matchago/backend/internal/models"
	"matchago/backend/internal/pool"
	"matchago/backend/internal/storage"

	"go.uber.org/zap"
)

var (
	// ErrBadMode rejects an unknown match mode.
	ErrBadMode = errors.New("unknown match mode")
	// ErrNoInterests rejects an interest-mode request from a user with no
	// declared interests.
	ErrNoInterests = errors.New("no interests declared")
	// ErrStoreUnavailable signals the ephemeral store is unreachable. The
	// engine fails closed rather than fabricating an empty queue.
	ErrStoreUnavailable = errors.New("ephemeral store unavailable")
)

// Engine runs one match request through START -> SCANNING -> MATCHED or
// QUEUED. Each request is an independent handler; there is no lock held
// across store round trips, and the pop/validate/re-push sequence is
// intentionally lossy under races (a candidate lost mid-validation ages
// out via its shadow TTL).
type Engine struct {
	Storage  storage.Storage
	Pool     pool.Queues
	Presence pool.Presence
	Pending  pool.Pending
	Scorer   *Scorer
	Cfg      config.MatchConfig
	TTL      config.TTLConfig
	Log      *zap.SugaredLogger
}

func NewEngine(st storage.Storage, q pool.Queues, pr pool.Presence, pd pool.Pending,
	cfg config.MatchConfig, ttl config.TTLConfig, log *zap.SugaredLogger) *Engine {
	return &Engine{
		Storage:  st,
		Pool:     q,
		Presence: pr,
		Pending:  pd,
		Scorer:   &Scorer{Pool: q, MinShared: cfg.MinShared, MinJaccard: cfg.MinJaccard},
		Cfg:      cfg,
		TTL:      ttl,
		Log:      log,
	}
}

// candidate is one popped, validated queue entry awaiting scoring.
type candidate struct {
	proj  *models.Projection
	queue string // the queue it was popped from, for re-push
}

// Match handles one match request end to end.
func (e *Engine) Match(ctx context.Context, req models.MatchRequest) (*models.MatchResult, error) {
	if req.Mode != models.ModeRandom && req.Mode != models.ModeInterest {
		return nil, fmt.Errorf("%w: %q", ErrBadMode, req.Mode)
	}

	requester, err := e.Storage.GetProjection(ctx, req.UserID)
	if err != nil {
		return nil, fmt.Errorf("load requester: %w", err)
	}
	if req.Mode == models.ModeInterest && len(requester.Interests) == 0 {
		return nil, ErrNoInterests
	}

	// An unpaid account's filter is always forced to ANY.
	filter := req.GenderFilter
	if !requester.IsPro {
		filter = models.FilterAny
	}
	if filter == "" {
		filter = models.FilterAny
	}

	// A new request always clears any prior queued state first.
	e.Cleanup(ctx, req.UserID)

	if err := e.Presence.Refresh(ctx, req.UserID, e.presenceTTL(requester)); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if err := e.Pool.CacheInterests(ctx, req.UserID, requester.Interests, e.TTL.QueueShadow); err != nil {
		e.Log.Warnw("interest cache write failed", "user", req.UserID, "err", err)
	}

	var partner *models.Projection
	switch req.Mode {
	case models.ModeRandom:
		partner, err = e.scanRandom(ctx, requester, filter)
	case models.ModeInterest:
		partner, err = e.scanInterest(ctx, requester, filter)
	}
	if err != nil {
		return nil, err
	}

	if partner == nil {
		return e.enqueue(ctx, requester, req.Mode)
	}
	return e.commit(ctx, requester, partner, req.Mode)
}

// scanRandom pops the singleton random queue until a viable candidate
// appears or the scan cap is reached.
func (e *Engine) scanRandom(ctx context.Context, requester *models.Projection,
	filter models.GenderFilter) (*models.Projection, error) {

	queue := pool.RandomQueue()
	for i := 0; i < e.Cfg.ScanCap; i++ {
		id, err := e.Pool.PopHead(ctx, queue)
		if errors.Is(err, pool.ErrEmpty) {
			return nil, nil
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}

		proj, ok := e.validate(ctx, requester, filter, id, queue)
		if !ok {
			continue
		}
		return proj, nil
	}
	return nil, nil
}

// scanInterest pops one candidate per requester interest tag, validates
// each, then lets the scorer pick the best across the whole pass. Every
// popped candidate that is not the winner is re-pushed to the tail of the
// queue it came from. Presence is checked for the whole pass in one
// batched round trip rather than per pop.
func (e *Engine) scanInterest(ctx context.Context, requester *models.Projection,
	filter models.GenderFilter) (*models.Projection, error) {

	tags := append([]string(nil), requester.Interests...)
	sort.Strings(tags) // stable scan order across passes

	type popped struct {
		id    string
		queue string
	}
	var pops []popped
	for _, tag := range tags {
		if len(pops) >= e.Cfg.SampleSize {
			break
		}
		queue := pool.InterestQueue(tag)
		id, err := e.Pool.PopHead(ctx, queue)
		if errors.Is(err, pool.ErrEmpty) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}

		alive, err := e.Pool.ShadowAlive(ctx, id)
		if err != nil {
			e.Log.Warnw("shadow check failed, candidate dropped", "id", id, "err", err)
			continue
		}
		if !alive {
			continue // stale entry, lazily discarded
		}
		if id == requester.ID && !e.Cfg.AllowSelf {
			continue
		}
		pops = append(pops, popped{id: id, queue: queue})
	}
	if len(pops) == 0 {
		return nil, nil
	}

	ids := make([]string, len(pops))
	for i, pp := range pops {
		ids[i] = pp.id
	}
	live, err := e.Presence.AreLive(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	var cands []candidate
	for i, pp := range pops {
		if !live[i] {
			continue // no longer online
		}
		proj, err := e.Storage.GetProjection(ctx, pp.id)
		if err != nil {
			e.Log.Warnw("candidate projection load failed, candidate dropped", "id", pp.id, "err", err)
			continue
		}
		if !filter.Matches(proj.Gender) {
			e.repush(ctx, pp.queue, pp.id)
			continue
		}
		if e.Cfg.SymmetricPro && proj.IsPro && !proj.Filter.Matches(requester.Gender) {
			e.repush(ctx, pp.queue, pp.id)
			continue
		}
		cands = append(cands, candidate{proj: proj, queue: pp.queue})
	}
	if len(cands) == 0 {
		return nil, nil
	}

	scoreIDs := make([]string, len(cands))
	for i, c := range cands {
		scoreIDs[i] = c.proj.ID
	}
	best, err := e.Scorer.Best(ctx, requester.Interests, scoreIDs)
	if err != nil {
		e.Log.Warnw("candidate scoring failed", "err", err)
	}

	var winner *models.Projection
	for _, c := range cands {
		if best != nil && c.proj.ID == best.CandidateID {
			winner = c.proj
			continue
		}
		// Losers go back to the tail of the queue they were popped from.
		e.repush(ctx, c.queue, c.proj.ID)
	}
	if winner != nil {
		e.Log.Infow("interest match scored", "requester", requester.ID,
			"candidate", best.CandidateID, "overlap", best.Overlap,
			"jaccard", best.Jaccard, "shared", best.Shared)
	}
	return winner, nil
}

// validate runs one popped id through the staleness, self, presence and
// filter gates. A false return means the entry was consumed: stale, self
// and offline candidates are discarded outright, filter misses are
// re-pushed to the tail (they still await someone else).
func (e *Engine) validate(ctx context.Context, requester *models.Projection,
	filter models.GenderFilter, id, queue string) (*models.Projection, bool) {

	alive, err := e.Pool.ShadowAlive(ctx, id)
	if err != nil {
		e.Log.Warnw("shadow check failed, candidate dropped", "id", id, "err", err)
		return nil, false
	}
	if !alive {
		return nil, false // stale entry, lazily discarded
	}

	if id == requester.ID && !e.Cfg.AllowSelf {
		return nil, false
	}

	live, err := e.Presence.IsLive(ctx, id)
	if err != nil || !live {
		return nil, false // no longer online
	}

	proj, err := e.Storage.GetProjection(ctx, id)
	if err != nil {
		e.Log.Warnw("candidate projection load failed, candidate dropped", "id", id, "err", err)
		return nil, false
	}

	if !filter.Matches(proj.Gender) {
		e.repush(ctx, queue, id)
		return nil, false
	}
	// A paid candidate's own stored filter is enforced symmetrically.
	if e.Cfg.SymmetricPro && proj.IsPro && !proj.Filter.Matches(requester.Gender) {
		e.repush(ctx, queue, id)
		return nil, false
	}

	return proj, true
}

// repush returns a still-viable candidate to the tail of its queue. A
// failure here loses the candidate from this queue pass only; it is never
// surfaced to the requester.
func (e *Engine) repush(ctx context.Context, queue, id string) {
	if err := e.Pool.PushTail(ctx, queue, id); err != nil {
		e.Log.Warnw("re-push failed, candidate lost from queue", "queue", queue, "id", id, "err", err)
	}
}

// commit finalizes a pairing: persist the match record, write both
// pending markers, hand the room to the requester synchronously. The
// partner discovers the room by polling its marker.
func (e *Engine) commit(ctx context.Context, requester, partner *models.Projection,
	mode string) (*models.MatchResult, error) {

	roomID := newRoomID()
	rec := &models.Match{
		RoomID:    roomID,
		User1ID:   requester.ID,
		User2ID:   partner.ID,
		Mode:      mode,
		CreatedAt: time.Now(),
	}
	if err := e.Storage.SaveMatch(ctx, rec); err != nil {
		return nil, fmt.Errorf("save match record: %w", err)
	}

	// The matched partner may still sit in other queues; purge them so a
	// concurrent scan cannot pop a party that is already paired.
	e.removeFromQueues(ctx, partner)

	e.setPendingRetry(ctx, partner.ID, models.PendingMatch{
		RoomID:      roomID,
		PartnerID:   requester.ID,
		PartnerName: requester.DisplayName,
	})
	e.setPendingRetry(ctx, requester.ID, models.PendingMatch{
		RoomID:      roomID,
		PartnerID:   partner.ID,
		PartnerName: partner.DisplayName,
	})

	e.Log.Infow("match formed", "room", roomID, "mode", mode,
		"user1", requester.ID, "user2", partner.ID)

	return &models.MatchResult{
		Queued:      false,
		RoomID:      roomID,
		PartnerID:   partner.ID,
		PartnerName: partner.DisplayName,
	}, nil
}

// setPendingRetry writes a pending marker with one retry. A second failure
// is logged and accepted: that party's client-side timeout re-queues it.
func (e *Engine) setPendingRetry(ctx context.Context, id string, pm models.PendingMatch) {
	err := e.Pending.SetPending(ctx, id, pm, e.TTL.Pending)
	if err == nil {
		return
	}
	e.Log.Warnw("pending marker write failed, retrying", "user", id, "err", err)
	if err = e.Pending.SetPending(ctx, id, pm, e.TTL.Pending); err != nil {
		e.Log.Errorw("pending marker lost", "user", id, "room", pm.RoomID, "err", err)
	}
}

// enqueue parks the requester: the random queue in random mode, every one
// of their interest-tag queues in interest mode, plus a fresh shadow key.
func (e *Engine) enqueue(ctx context.Context, requester *models.Projection,
	mode string) (*models.MatchResult, error) {

	if err := e.Pool.SetShadow(ctx, requester.ID, e.TTL.QueueShadow); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	if mode == models.ModeRandom {
		if err := e.Pool.PushTail(ctx, pool.RandomQueue(), requester.ID); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
	} else {
		for _, tag := range requester.Interests {
			if err := e.Pool.PushTail(ctx, pool.InterestQueue(tag), requester.ID); err != nil {
				return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
			}
		}
	}

	e.Log.Infow("requester queued", "user", requester.ID, "mode", mode)
	return &models.MatchResult{Queued: true}, nil
}

// CheckPending is the polling side of the hand-off: it reads the
// requester's pending marker, nil when none is set. The marker stays until
// its TTL lapses or cleanup clears it, so a flaky poll can retry.
func (e *Engine) CheckPending(ctx context.Context, userID string) (*models.PendingMatch, error) {
	pm, err := e.Pending.GetPending(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return pm, nil
}

// Cleanup deregisters an id from every waiting pool: the random queue,
// every interest queue derived from its current interests, its shadow key
// and its pending marker. Best-effort and idempotent; used by explicit
// leave, queue-timeout give-up, transport disconnect and the start of any
// new match request.
func (e *Engine) Cleanup(ctx context.Context, userID string) {
	proj, err := e.Storage.GetProjection(ctx, userID)
	if err != nil {
		// Still scrub what does not need the interest list.
		e.Log.Warnw("cleanup projection load failed", "user", userID, "err", err)
		proj = &models.Projection{ID: userID}
	}
	e.removeFromQueues(ctx, proj)

	if err := e.Pending.ClearPending(ctx, userID); err != nil {
		e.Log.Warnw("pending clear failed", "user", userID, "err", err)
	}
}

func (e *Engine) removeFromQueues(ctx context.Context, proj *models.Projection) {
	if err := e.Pool.RemoveAll(ctx, pool.RandomQueue(), proj.ID); err != nil {
		e.Log.Warnw("queue removal failed", "queue", pool.RandomQueue(), "user", proj.ID, "err", err)
	}
	for _, tag := range proj.Interests {
		if err := e.Pool.RemoveAll(ctx, pool.InterestQueue(tag), proj.ID); err != nil {
			e.Log.Warnw("queue removal failed", "queue", pool.InterestQueue(tag), "user", proj.ID, "err", err)
		}
	}
	if err := e.Pool.DeleteShadow(ctx, proj.ID); err != nil {
		e.Log.Warnw("shadow delete failed", "user", proj.ID, "err", err)
	}
}

// Heartbeat refreshes the requester's presence marker.
func (e *Engine) Heartbeat(ctx context.Context, userID string, guest bool) error {
	ttl := e.TTL.Presence
	if guest {
		ttl = e.TTL.GuestPresence
	}
	return e.Presence.Refresh(ctx, userID, ttl)
}

func (e *Engine) presenceTTL(p *models.Projection) time.Duration {
	if p.IsGuest {
		return e.TTL.GuestPresence
	}
	return e.TTL.Presence
}
