package languages

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/brightsprout/storefront-api/internal/domain"
)

// DefaultTTL is how long a fetched language list stays fresh.
const DefaultTTL = 60 * time.Second

type entry struct {
	languages []domain.Language
	expiresAt time.Time
}

func (e entry) fresh(now time.Time) bool {
	return now.Before(e.expiresAt)
}

// Cache memoizes per-slug language availability with a TTL. Concurrent
// lookups for the same slug while a fetch is in flight are coalesced into
// a single upstream request; every waiting caller receives that request's
// result. Failed fetches are never cached.
type Cache struct {
	fetcher Fetcher
	ttl     time.Duration
	clock   func() time.Time

	mu      sync.Mutex
	entries map[string]entry

	group singleflight.Group

	onHit  func()
	onMiss func()
}

// CacheOption customises cache construction.
type CacheOption func(*Cache)

// WithTTL overrides the freshness window.
func WithTTL(ttl time.Duration) CacheOption {
	return func(c *Cache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithClock overrides the time source, primarily for tests.
func WithClock(clock func() time.Time) CacheOption {
	return func(c *Cache) {
		if clock != nil {
			c.clock = clock
		}
	}
}

// WithObserver registers hit and miss callbacks, used to feed metrics.
// Either callback may be nil.
func WithObserver(onHit, onMiss func()) CacheOption {
	return func(c *Cache) {
		c.onHit = onHit
		c.onMiss = onMiss
	}
}

// NewCache constructs a cache in front of the fetcher.
func NewCache(fetcher Fetcher, opts ...CacheOption) *Cache {
	c := &Cache{
		fetcher: fetcher,
		ttl:     DefaultTTL,
		clock:   time.Now,
		entries: make(map[string]entry),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// Languages returns the language list for the slug, fetching it when the
// cached copy is missing or expired.
func (c *Cache) Languages(ctx context.Context, slug string) ([]domain.Language, error) {
	if slug == "" {
		return nil, ErrSlugRequired
	}

	c.mu.Lock()
	cached, ok := c.entries[slug]
	c.mu.Unlock()
	if ok && cached.fresh(c.clock()) {
		c.observe(c.onHit)
		return cloneLanguages(cached.languages), nil
	}
	c.observe(c.onMiss)

	result, err, _ := c.group.Do(slug, func() (any, error) {
		// Re-check under the flight: another caller may have already
		// refreshed the entry before this flight was admitted.
		c.mu.Lock()
		if current, ok := c.entries[slug]; ok && current.fresh(c.clock()) {
			c.mu.Unlock()
			return current.languages, nil
		}
		c.mu.Unlock()

		langs, err := c.fetcher.FetchLanguages(ctx, slug)
		if err != nil {
			c.mu.Lock()
			delete(c.entries, slug)
			c.mu.Unlock()
			return nil, err
		}

		c.mu.Lock()
		c.entries[slug] = entry{
			languages: langs,
			expiresAt: c.clock().Add(c.ttl),
		}
		c.mu.Unlock()
		return langs, nil
	})
	if err != nil {
		return nil, err
	}
	return cloneLanguages(result.([]domain.Language)), nil
}

// Invalidate drops the cached entry for one slug.
func (c *Cache) Invalidate(slug string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, slug)
}

// InvalidateAll drops every cached entry. Called when the catalog reloads.
func (c *Cache) InvalidateAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]entry)
}

// Sweep removes up to limit expired entries and reports how many were
// dropped. A limit of zero or less sweeps everything.
func (c *Cache) Sweep(_ context.Context, now time.Time, limit int) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	if limit <= 0 || limit > len(c.entries) {
		limit = len(c.entries)
	}

	removed := 0
	for slug, e := range c.entries {
		if e.fresh(now) {
			continue
		}
		delete(c.entries, slug)
		removed++
		if removed >= limit {
			break
		}
	}
	return removed
}

// Len reports the number of cached entries, fresh or not.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *Cache) observe(fn func()) {
	if fn != nil {
		fn()
	}
}

func cloneLanguages(in []domain.Language) []domain.Language {
	if in == nil {
		return nil
	}
	out := make([]domain.Language, len(in))
	copy(out, in)
	for i := range out {
		out[i].Formats = append([]string(nil), in[i].Formats...)
	}
	return out
}
