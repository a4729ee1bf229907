// Package cache is a keyed read cache for query results. Entries are
// replaced wholesale on refetch or marked stale to trigger one; no
// partial mutation of a cached value ever happens.
package cache

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// Key identifies one cached query result: the query name plus its
// parameter (empty for parameterless queries).
type Key struct {
	Query string
	Arg   string
}

func (k Key) String() string {
	if k.Arg == "" {
		return k.Query
	}
	return k.Query + ":" + k.Arg
}

// Pattern selects cache entries for invalidation. An empty Arg matches
// every entry of the query regardless of parameter.
type Pattern struct {
	Query string
	Arg   string
}

func (p Pattern) matches(k Key) bool {
	if p.Query != k.Query {
		return false
	}
	return p.Arg == "" || p.Arg == k.Arg
}

// Policy controls when a cached value stops being served and when the
// background refresher refetches it.
type Policy struct {
	// StaleAfter is how long a fetched value is served without a refetch.
	StaleAfter time.Duration
	// RefreshEvery, when non-zero, makes the background refresher refetch
	// the entry on this interval even with no reader asking.
	RefreshEvery time.Duration
}

// FetchFunc produces a fresh value for one cache entry.
type FetchFunc func(ctx context.Context) (any, error)

type entry struct {
	value     any
	fetchedAt time.Time
	stale     bool
	policy    Policy
	fetch     FetchFunc
}

// Cache holds query results shared across all consumers.
type Cache struct {
	mu      sync.Mutex
	entries map[Key]*entry
	// gens counts invalidations per key, including keys whose only fetch
	// is still in flight. A fetch carries the generation it started under;
	// a mismatch at store time means an invalidation superseded it.
	gens   map[Key]uint64
	group  singleflight.Group
	logger *slog.Logger
}

// New creates an empty cache. A nil logger defaults to slog.Default().
func New(logger *slog.Logger) *Cache {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cache{
		entries: make(map[Key]*entry),
		gens:    make(map[Key]uint64),
		logger:  logger,
	}
}

// Fetch returns the cached value for key, refetching through fn when the
// entry is missing, marked stale, or older than the policy's StaleAfter.
// Concurrent refetches of the same key and generation are collapsed into
// one call; a fetch started before an invalidation of the key never
// satisfies a Fetch issued after it. The shared fetch runs detached from
// the initiating caller's cancellation so a joined caller is not failed
// by a cancellation it never asked for.
func (c *Cache) Fetch(ctx context.Context, key Key, policy Policy, fn FetchFunc) (any, error) {
	c.mu.Lock()
	if _, ok := c.gens[key]; !ok {
		c.gens[key] = 0
	}
	gen := c.gens[key]
	if e, ok := c.entries[key]; ok && !e.stale && time.Since(e.fetchedAt) < e.policy.StaleAfter {
		value := e.value
		c.mu.Unlock()
		return value, nil
	}
	c.mu.Unlock()

	fetchCtx := context.WithoutCancel(ctx)
	value, err, _ := c.group.Do(flightKey(key, gen), func() (any, error) {
		fresh, err := fn(fetchCtx)
		if err != nil {
			return nil, fmt.Errorf("cache: refetch %s: %w", key, err)
		}
		c.store(key, gen, policy, fn, fresh)
		return fresh, nil
	})
	if err != nil {
		return nil, err
	}
	return value, nil
}

// flightKey scopes singleflight collapsing to one generation of a key, so
// a Fetch issued after an invalidation starts its own upstream call
// instead of joining a flight that began before the invalidation.
func flightKey(key Key, gen uint64) string {
	return fmt.Sprintf("%s#%d", key, gen)
}

// store records a fetched value unless the key was invalidated while the
// fetch was in flight; a superseded result is dropped so it can never
// overwrite or unmark data the invalidation targeted.
func (c *Cache) store(key Key, gen uint64, policy Policy, fn FetchFunc, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gens[key] != gen {
		return
	}
	c.entries[key] = &entry{
		value:     value,
		fetchedAt: time.Now(),
		policy:    policy,
		fetch:     fn,
	}
}

// Peek returns the cached value without triggering a refetch. Stale
// entries are still returned; ok reports whether any value is present.
func (c *Cache) Peek(key Key) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	return e.value, true
}

// Invalidate marks every entry matching any of the patterns as stale and
// bumps the matching keys' generations, which also covers keys whose
// first fetch is still in flight. The next Fetch for a marked key
// refetches; the background refresher also picks marked entries up, so
// views nobody is currently reading refresh too.
func (c *Cache) Invalidate(patterns ...Pattern) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key := range c.gens {
		for _, p := range patterns {
			if p.matches(key) {
				c.gens[key]++
				break
			}
		}
	}
	for key, e := range c.entries {
		for _, p := range patterns {
			if p.matches(key) {
				e.stale = true
				break
			}
		}
	}
}

// Len reports the number of entries currently held.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// StartRefresher runs the background refresh loop until ctx is cancelled.
// Every tick it refetches entries that are stale or whose RefreshEvery
// interval has elapsed. Refetch failures leave the previous value in
// place and are logged; the next tick retries.
func (c *Cache) StartRefresher(ctx context.Context, tick time.Duration) {
	if tick <= 0 {
		tick = time.Second
	}
	go func() {
		ticker := time.NewTicker(tick)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				c.refreshDue(ctx)
			}
		}
	}()
}

func (c *Cache) refreshDue(ctx context.Context) {
	c.mu.Lock()
	type due struct {
		key    Key
		gen    uint64
		policy Policy
		fetch  FetchFunc
	}
	var pending []due
	for key, e := range c.entries {
		interval := e.policy.RefreshEvery
		if e.stale || (interval > 0 && time.Since(e.fetchedAt) >= interval) {
			pending = append(pending, due{key: key, gen: c.gens[key], policy: e.policy, fetch: e.fetch})
		}
	}
	c.mu.Unlock()

	for _, d := range pending {
		_, err, _ := c.group.Do(flightKey(d.key, d.gen), func() (any, error) {
			fresh, err := d.fetch(ctx)
			if err != nil {
				return nil, err
			}
			c.store(d.key, d.gen, d.policy, d.fetch, fresh)
			return fresh, nil
		})
		if err != nil {
			c.logger.Warn("background refetch failed", "key", d.key.String(), "error", err)
		}
	}
}
