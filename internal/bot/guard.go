package bot

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/angelmondragon/menubot/pkg/redis"
)

// Deduper remembers update ids so webhook retries are processed once.
type Deduper interface {
	// FirstSeen marks id and reports whether it had not been seen before.
	FirstSeen(ctx context.Context, updateID int64) (bool, error)
	// Forget undoes FirstSeen for an update that was never queued.
	Forget(ctx context.Context, updateID int64) error
}

// Limiter caps how many actions one user may submit per window.
type Limiter interface {
	Allow(ctx context.Context, userID int64) (bool, error)
}

type updateMarker interface {
	MarkUpdate(ctx context.Context, updateID int64, ttl time.Duration) (bool, error)
	ForgetUpdate(ctx context.Context, updateID int64) error
}

type RedisDeduper struct {
	store updateMarker
	ttl   time.Duration
}

func NewRedisDeduper(store updateMarker, ttl time.Duration) *RedisDeduper {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisDeduper{store: store, ttl: ttl}
}

func (d *RedisDeduper) FirstSeen(ctx context.Context, updateID int64) (bool, error) {
	return d.store.MarkUpdate(ctx, updateID, d.ttl)
}

func (d *RedisDeduper) Forget(ctx context.Context, updateID int64) error {
	return d.store.ForgetUpdate(ctx, updateID)
}

// MemoryDeduper keeps the most recent ids in a fixed-size ring.
type MemoryDeduper struct {
	mu   sync.Mutex
	seen map[int64]struct{}
	ring []int64
	next int
}

func NewMemoryDeduper(size int) *MemoryDeduper {
	if size <= 0 {
		size = 1024
	}
	return &MemoryDeduper{seen: make(map[int64]struct{}, size), ring: make([]int64, 0, size)}
}

// Forget drops id from the seen set. Its ring slot is reused on the normal schedule.
func (d *MemoryDeduper) Forget(_ context.Context, updateID int64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.seen, updateID)
	return nil
}

func (d *MemoryDeduper) FirstSeen(_ context.Context, updateID int64) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.seen[updateID]; ok {
		return false, nil
	}
	if len(d.ring) < cap(d.ring) {
		d.ring = append(d.ring, updateID)
	} else {
		delete(d.seen, d.ring[d.next])
		d.ring[d.next] = updateID
		d.next = (d.next + 1) % len(d.ring)
	}
	d.seen[updateID] = struct{}{}
	return true, nil
}

type windowCounter interface {
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (redis.Window, error)
}

// RedisLimiter applies a fixed-window limit per user.
type RedisLimiter struct {
	store  windowCounter
	limit  int64
	window time.Duration
}

func NewRedisLimiter(store windowCounter, limit int, window time.Duration) *RedisLimiter {
	return &RedisLimiter{store: store, limit: int64(limit), window: window}
}

func (l *RedisLimiter) Allow(ctx context.Context, userID int64) (bool, error) {
	if l.limit <= 0 || l.window <= 0 {
		return true, nil
	}
	w, err := l.store.FixedWindowAllow(ctx, "user:"+strconv.FormatInt(userID, 10), l.limit, l.window)
	if err != nil {
		return false, err
	}
	return w.Allowed(), nil
}
