package search

import (
	"context"
	"io"
	"log/slog"
	"sync"

	"github.com/couchcryptid/location-search/internal/domain"
	"github.com/couchcryptid/location-search/internal/observability"
	"github.com/couchcryptid/location-search/internal/querycache"
)

// --- fake autocompleter ---

type fakeAutocompleter struct {
	mu      sync.Mutex
	calls   map[string]int
	results map[string][]domain.Suggestion
	errs    map[string]error
	// gates hold a query's response until the channel is closed.
	gates map[string]chan struct{}
}

func newFakeAutocompleter() *fakeAutocompleter {
	return &fakeAutocompleter{
		calls:   map[string]int{},
		results: map[string][]domain.Suggestion{},
		errs:    map[string]error{},
		gates:   map[string]chan struct{}{},
	}
}

func (f *fakeAutocompleter) gate(q string) chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch := make(chan struct{})
	f.gates[q] = ch
	return ch
}

func (f *fakeAutocompleter) Autocomplete(ctx context.Context, q string) ([]domain.Suggestion, error) {
	f.mu.Lock()
	f.calls[q]++
	gate := f.gates[q]
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, domain.SearchFailed(ctx.Err())
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	return f.results[q], f.errs[q]
}

func (f *fakeAutocompleter) callCount(q string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[q]
}

func (f *fakeAutocompleter) totalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		n += c
	}
	return n
}

// --- fake resolver ---

type fakeResolver struct {
	mu            sync.Mutex
	detailsResult domain.Location
	detailsErr    error
	reverseResult domain.Location
	reverseErr    error
	detailsCalls  int
	reverseCalls  int
}

func (f *fakeResolver) PlaceDetails(_ context.Context, _ string) (domain.Location, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.detailsCalls++
	return f.detailsResult, f.detailsErr
}

func (f *fakeResolver) ReverseGeocode(_ context.Context, _, _ float64) (domain.Location, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reverseCalls++
	return f.reverseResult, f.reverseErr
}

// --- handler recorder ---

type recorder struct {
	mu        sync.Mutex
	errors    []Notification
	locations []domain.Location
	empties   []domain.Target
	blurs     int
}

func (r *recorder) handlers() Handlers {
	return Handlers{
		OnError: func(n Notification) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.errors = append(r.errors, n)
		},
		SetLocation: func(loc domain.Location) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.locations = append(r.locations, loc)
		},
		OnEmptyResolution: func(t domain.Target) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.empties = append(r.empties, t)
		},
		Blur: func() {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.blurs++
		},
	}
}

func (r *recorder) snapshot() ([]Notification, []domain.Location, []domain.Target, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Notification(nil), r.errors...),
		append([]domain.Location(nil), r.locations...),
		append([]domain.Target(nil), r.empties...),
		r.blurs
}

// --- setup ---

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fixture struct {
	ac    *fakeAutocompleter
	res   *fakeResolver
	cache *querycache.Cache
	rec   *recorder
	ctrl  *Controller
}

func newFixture(opts Options) *fixture {
	return newBoundedFixture(0, opts)
}

// newBoundedFixture builds a fixture whose cache holds at most maxEntries
// settled queries.
func newBoundedFixture(maxEntries int, opts Options) *fixture {
	f := &fixture{
		ac:    newFakeAutocompleter(),
		res:   &fakeResolver{},
		cache: querycache.New(maxEntries, observability.NewMetricsForTesting()),
		rec:   &recorder{},
	}
	opts.Logger = discardLogger()
	f.ctrl = New(f.ac, f.res, f.cache, f.rec.handlers(), opts)
	return f
}
