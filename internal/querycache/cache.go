// Package querycache holds the last known autocomplete result and loading
// flag for every query string a search controller has seen.
package querycache

import (
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/simplelru"

	"github.com/couchcryptid/location-search/internal/domain"
	"github.com/couchcryptid/location-search/internal/observability"
)

// Entry is the cached state of one query string.
type Entry struct {
	Query string
	// Suggestions is nil until the first response for Query arrives. While
	// Loading it keeps the value it had before the request started.
	Suggestions []domain.Suggestion
	Loading     bool
	UpdatedAt   time.Time
}

// Snapshot is the read model handed to presentation code.
type Snapshot struct {
	Query       string              `json:"query"`
	Suggestions []domain.Suggestion `json:"suggestions"`
	Loading     bool                `json:"loading"`
}

// Cache maps exact query strings to entries. With maxEntries <= 0 it never
// evicts; otherwise the least recently used query is dropped when full.
// Loading entries are held outside the bound and cannot be evicted, so a
// query keeps its single outstanding lookup until the lookup settles.
// All methods are safe for concurrent use.
type Cache struct {
	mu      sync.Mutex
	store   store
	loading map[string]*Entry
	changed chan struct{}
	metrics *observability.Metrics
}

// New creates a cache. maxEntries <= 0 means unbounded.
func New(maxEntries int, metrics *observability.Metrics) *Cache {
	c := &Cache{
		loading: map[string]*Entry{},
		changed: make(chan struct{}),
		metrics: metrics,
	}
	if maxEntries > 0 {
		c.store = newLRUStore(maxEntries)
	} else {
		c.store = mapStore{}
	}
	return c
}

// Get returns a copy of the entry for query.
func (c *Cache) Get(query string) (Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.lookup(query)
	if !ok {
		return Entry{}, false
	}
	return *e, true
}

// Begin creates a loading entry for query unless one already exists. It
// reports whether the caller now owns the lookup for query.
func (c *Cache) Begin(query string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.lookup(query); ok {
		c.metrics.QueryCache.WithLabelValues("hit").Inc()
		return false
	}
	c.metrics.QueryCache.WithLabelValues("miss").Inc()
	c.put(&Entry{Query: query, Loading: true, UpdatedAt: domain.Now()})
	c.notify()
	return true
}

// SetLoading creates the entry if absent, else changes only its loading flag.
func (c *Cache) SetLoading(query string, loading bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.lookup(query)
	if !ok {
		e = &Entry{Query: query}
	}
	e.Loading = loading
	e.UpdatedAt = domain.Now()
	c.put(e)
	c.notify()
}

// SetResult stores suggestions for query and clears its loading flag.
func (c *Cache) SetResult(query string, suggestions []domain.Suggestion) {
	if suggestions == nil {
		suggestions = []domain.Suggestion{}
	}
	c.write(query, suggestions)
}

// SetError records a failed lookup as "no results", distinct from loading.
func (c *Cache) SetError(query string) {
	c.write(query, []domain.Suggestion{})
}

func (c *Cache) write(query string, suggestions []domain.Suggestion) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.lookup(query)
	if !ok {
		e = &Entry{Query: query}
	}
	e.Suggestions = suggestions
	e.Loading = false
	e.UpdatedAt = domain.Now()
	c.put(e)
	c.notify()
}

// Snapshot returns the presentation view of query. Unknown queries read as
// no suggestions and not loading.
func (c *Cache) Snapshot(query string) Snapshot {
	s := Snapshot{Query: query, Suggestions: []domain.Suggestion{}}
	if e, ok := c.Get(query); ok {
		s.Loading = e.Loading
		if e.Suggestions != nil {
			s.Suggestions = e.Suggestions
		}
	}
	return s
}

// Len returns the number of cached queries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.len()
}

// Changed returns a channel that is closed on the next write to the cache.
// Call it again after it fires to wait for the following write.
func (c *Cache) Changed() <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.changed
}

// lookup finds query among loading and settled entries. Caller holds c.mu.
func (c *Cache) lookup(query string) (*Entry, bool) {
	if e, ok := c.loading[query]; ok {
		return e, true
	}
	return c.store.get(query)
}

// put files e by its loading flag: loading entries are pinned, settled ones
// go to the store where they may be evicted. Caller holds c.mu.
func (c *Cache) put(e *Entry) {
	if e.Loading {
		c.store.remove(e.Query)
		c.loading[e.Query] = e
	} else {
		delete(c.loading, e.Query)
		c.store.add(e.Query, e)
	}
	c.metrics.QueryCacheEntries.Set(float64(c.len()))
}

func (c *Cache) len() int { return c.store.len() + len(c.loading) }

// notify wakes every Changed waiter. Caller holds c.mu.
func (c *Cache) notify() {
	close(c.changed)
	c.changed = make(chan struct{})
}

// store is the keyed storage behind Cache. Implementations need no locking.
type store interface {
	get(key string) (*Entry, bool)
	add(key string, e *Entry)
	remove(key string)
	len() int
}

type mapStore map[string]*Entry

func (s mapStore) get(key string) (*Entry, bool) {
	e, ok := s[key]
	return e, ok
}

func (s mapStore) add(key string, e *Entry) { s[key] = e }

func (s mapStore) remove(key string) { delete(s, key) }

func (s mapStore) len() int { return len(s) }

type lruStore struct {
	lru *simplelru.LRU[string, *Entry]
}

func newLRUStore(size int) *lruStore {
	// NewLRU only fails for a non-positive size, which New rules out.
	l, _ := simplelru.NewLRU[string, *Entry](size, nil)
	return &lruStore{lru: l}
}

func (s *lruStore) get(key string) (*Entry, bool) { return s.lru.Get(key) }

func (s *lruStore) add(key string, e *Entry) { s.lru.Add(key, e) }

func (s *lruStore) remove(key string) { s.lru.Remove(key) }

func (s *lruStore) len() int { return s.lru.Len() }
