// Package search implements the search controller: it turns query text
// changes into deduplicated, cached autocomplete lookups and resolves
// selections into locations.
package search

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/location-search/internal/domain"
	"github.com/couchcryptid/location-search/internal/querycache"
)

// ErrClosed is returned by Select after Close.
var ErrClosed = errors.New("search controller closed")

// Handlers receives the controller's outbound events. Any field may be nil.
// Callbacks run on the goroutine that finished the work and must not block.
type Handlers struct {
	OnError           func(Notification)
	SetLocation       func(domain.Location)
	OnEmptyResolution func(domain.Target)
	// Blur is called when a selection starts, mirroring the input losing focus.
	Blur func()
}

// Options tunes a Controller. The zero value fires every distinct query
// immediately with Portuguese messages.
type Options struct {
	// Debounce delays lookups until the text has been stable this long.
	Debounce time.Duration
	Clock    clockwork.Clock
	Messages Messages
	Logger   *slog.Logger
}

// Controller owns the query cache for one search session.
//
// Every distinct non-empty query string triggers at most one autocomplete
// request while its cache entry exists; later visits reuse the entry in
// whatever state it is in. Requests for different strings run concurrently
// and each writes only to its own entry, so a late response for a stale
// query never disturbs the current one.
type Controller struct {
	id            string
	autocompleter domain.Autocompleter
	resolver      domain.Resolver
	cache         *querycache.Cache
	handlers      Handlers
	messages      Messages
	logger        *slog.Logger
	clock         clockwork.Clock
	debounce      time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	query   string
	current *domain.Location
	pending clockwork.Timer
	closed  bool
}

// New creates a Controller. Close releases it.
func New(ac domain.Autocompleter, r domain.Resolver, cache *querycache.Cache, handlers Handlers, opts Options) *Controller {
	if opts.Clock == nil {
		opts.Clock = domain.Clock()
	}
	if opts.Messages == (Messages{}) {
		opts.Messages = MessagesPortuguese
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	ctx, cancel := context.WithCancel(context.Background())
	id := uuid.NewString()
	return &Controller{
		id:            id,
		autocompleter: ac,
		resolver:      r,
		cache:         cache,
		handlers:      handlers,
		messages:      opts.Messages,
		logger:        opts.Logger.With("session", id),
		clock:         opts.Clock,
		debounce:      opts.Debounce,
		ctx:           ctx,
		cancel:        cancel,
	}
}

// ID identifies the session in logs and published records.
func (c *Controller) ID() string { return c.id }

// SetQuery records the current query text and looks it up if it has never
// been seen. Empty text clears the view without touching the cache.
func (c *Controller) SetQuery(q string) {
	c.mu.Lock()
	c.query = q
	c.stopPendingLocked()
	if q == "" || c.closed {
		c.mu.Unlock()
		return
	}
	if c.debounce > 0 {
		c.wg.Add(1)
		c.pending = c.clock.AfterFunc(c.debounce, func() {
			defer c.wg.Done()
			c.trigger(q)
		})
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()
	c.trigger(q)
}

// Query returns the current query text.
func (c *Controller) Query() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.query
}

// Snapshot returns the cached state of the current query.
func (c *Controller) Snapshot() querycache.Snapshot {
	return c.cache.Snapshot(c.Query())
}

// Search looks q up if it is new and returns its cached state, without
// changing the current query. Debounce does not apply.
func (c *Controller) Search(q string) querycache.Snapshot {
	if q != "" {
		c.trigger(q)
	}
	return c.cache.Snapshot(q)
}

// Await blocks until q is no longer loading or ctx is done.
func (c *Controller) Await(ctx context.Context, q string) (querycache.Snapshot, error) {
	for {
		changed := c.cache.Changed()
		s := c.cache.Snapshot(q)
		if !s.Loading {
			return s, nil
		}
		select {
		case <-changed:
		case <-ctx.Done():
			return s, ctx.Err()
		}
	}
}

// trigger starts the autocomplete lookup for q unless q already has an entry.
func (c *Controller) trigger(q string) {
	c.mu.Lock()
	if c.closed || !c.cache.Begin(q) {
		c.mu.Unlock()
		return
	}
	c.wg.Add(1)
	c.mu.Unlock()

	go c.lookup(q)
}

func (c *Controller) lookup(q string) {
	defer c.wg.Done()

	suggestions, err := c.autocompleter.Autocomplete(c.ctx, q)

	c.mu.Lock()
	if c.closed {
		// The result is dropped but the entry must not stay loading.
		c.cache.SetLoading(q, false)
		c.mu.Unlock()
		c.logger.Debug("dropping autocomplete result after close", "query", q)
		return
	}
	if err != nil {
		c.cache.SetError(q)
	} else {
		c.cache.SetResult(q, suggestions)
	}
	c.mu.Unlock()

	if err != nil {
		c.logger.Warn("autocomplete failed", "query", q, "error", err)
		c.notify(c.messages.notification(c.messages.SearchFailed, err))
		return
	}
	c.logger.Debug("autocomplete done", "query", q, "suggestions", len(suggestions))
}

// Choose resolves target in the background and reports the outcome through
// the handlers. It always performs a fresh lookup.
func (c *Controller) Choose(target domain.Target) {
	if !c.acquire() {
		return
	}
	go func() {
		defer c.wg.Done()
		_, _ = c.resolve(c.ctx, target)
	}()
}

// Select resolves target synchronously. Handlers fire exactly as for Choose;
// the result is also returned. An empty reverse geocode returns
// domain.ErrEmptyResolution without an error notification, and a lookup
// abandoned because ctx ended is not reported either.
func (c *Controller) Select(ctx context.Context, target domain.Target) (domain.Location, error) {
	if !c.acquire() {
		return domain.Location{}, ErrClosed
	}
	defer c.wg.Done()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(c.ctx, cancel)
	defer stop()

	return c.resolve(ctx, target)
}

func (c *Controller) resolve(ctx context.Context, target domain.Target) (domain.Location, error) {
	if c.handlers.Blur != nil {
		c.handlers.Blur()
	}

	loc, err := domain.Resolve(ctx, target, c.resolver)
	switch {
	case err == nil:
		c.logger.Info("location resolved", "target", target.String(), "place_id", loc.PlaceID)
		if c.handlers.SetLocation != nil {
			c.handlers.SetLocation(loc)
		}
		return loc, nil
	case errors.Is(err, domain.ErrEmptyResolution):
		c.logger.Info("no address at coordinates", "target", target.String())
		if c.handlers.OnEmptyResolution != nil {
			c.handlers.OnEmptyResolution(target)
		}
		return domain.Location{}, err
	case ctx.Err() != nil:
		c.logger.Debug("resolve canceled", "target", target.String(), "error", err)
		return domain.Location{}, err
	default:
		c.logger.Warn("resolve failed", "target", target.String(), "error", err)
		c.notify(c.messages.notification(c.messages.LoadFailed, err))
		return domain.Location{}, err
	}
}

// Sync adopts loc as the current selection and shows its formatted address
// as the query text, which is looked up like any typed text.
func (c *Controller) Sync(loc domain.Location) {
	c.mu.Lock()
	c.current = &loc
	c.mu.Unlock()
	c.SetQuery(loc.FormattedAddress)
}

// Current returns the selection adopted by Sync.
func (c *Controller) Current() (domain.Location, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil {
		return domain.Location{}, false
	}
	return *c.current, true
}

// Wait blocks until every lookup started so far, including debounced ones,
// has finished.
func (c *Controller) Wait() {
	c.wg.Wait()
}

// Close cancels in-flight requests and waits for them. Results that arrive
// afterwards are discarded and their entries stop loading with the
// suggestions they had before.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.stopPendingLocked()
	c.mu.Unlock()

	c.cancel()
	c.wg.Wait()
	c.logger.Debug("search controller closed")
}

// CheckReadiness reports an error once the controller is closed.
func (c *Controller) CheckReadiness(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	return nil
}

func (c *Controller) acquire() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	c.wg.Add(1)
	return true
}

// stopPendingLocked cancels a debounced lookup that has not fired yet.
func (c *Controller) stopPendingLocked() {
	if c.pending != nil && c.pending.Stop() {
		c.wg.Done()
	}
	c.pending = nil
}

func (c *Controller) notify(n Notification) {
	if c.handlers.OnError != nil {
		c.handlers.OnError(n)
	}
}
