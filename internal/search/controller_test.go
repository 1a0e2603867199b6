package search

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/location-search/internal/adapter/google"
	"github.com/couchcryptid/location-search/internal/domain"
	"github.com/couchcryptid/location-search/internal/observability"
	"github.com/couchcryptid/location-search/internal/querycache"
)

func TestController_RepeatedQuerySingleRequest(t *testing.T) {
	f := newFixture(Options{})
	defer f.ctrl.Close()

	f.ctrl.SetQuery("a")
	f.ctrl.Wait()
	f.ctrl.SetQuery("a")
	f.ctrl.Wait()

	assert.Equal(t, 1, f.ac.callCount("a"))
}

func TestController_RevisitedQueryReusesEntry(t *testing.T) {
	f := newFixture(Options{})
	defer f.ctrl.Close()

	for _, q := range []string{"a", "ab", "a", "ab", "a"} {
		f.ctrl.SetQuery(q)
		f.ctrl.Wait()
	}

	assert.Equal(t, 1, f.ac.callCount("a"))
	assert.Equal(t, 1, f.ac.callCount("ab"))
}

func TestController_BoundedCacheKeepsOneRequestPerQuery(t *testing.T) {
	f := newBoundedFixture(1, Options{})
	defer f.ctrl.Close()
	release := f.ac.gate("a")

	f.ctrl.SetQuery("a")
	f.ctrl.SetQuery("b")
	f.ctrl.SetQuery("a")

	assert.Equal(t, 1, f.ac.callCount("a"))
	assert.True(t, f.ctrl.Snapshot().Loading)

	close(release)
	f.ctrl.Wait()
	assert.Equal(t, 1, f.ac.callCount("a"))
	assert.False(t, f.ctrl.Snapshot().Loading)
}

func TestController_EmptyQueryIsNoop(t *testing.T) {
	f := newFixture(Options{})
	defer f.ctrl.Close()

	f.ctrl.SetQuery("")
	f.ctrl.Wait()

	assert.Equal(t, 0, f.ac.totalCalls())
	assert.Equal(t, 0, f.cache.Len())
	assert.Equal(t, querycache.Snapshot{Suggestions: []domain.Suggestion{}}, f.ctrl.Snapshot())
}

func TestController_ClearingQueryKeepsCache(t *testing.T) {
	f := newFixture(Options{})
	defer f.ctrl.Close()
	f.ac.results["a"] = []domain.Suggestion{{PlaceID: "1"}}

	f.ctrl.SetQuery("a")
	f.ctrl.Wait()
	f.ctrl.SetQuery("")

	assert.Empty(t, f.ctrl.Snapshot().Suggestions)
	assert.Equal(t, 1, f.cache.Len())
}

func TestController_ResultStoredUnderQuery(t *testing.T) {
	f := newFixture(Options{})
	defer f.ctrl.Close()
	f.ac.results["A"] = []domain.Suggestion{{PlaceID: "1", Title: "A", Subtitle: "A, City"}}

	f.ctrl.SetQuery("A")
	f.ctrl.Wait()

	e, ok := f.cache.Get("A")
	require.True(t, ok)
	assert.False(t, e.Loading)
	if diff := cmp.Diff([]domain.Suggestion{{PlaceID: "1", Title: "A", Subtitle: "A, City"}}, e.Suggestions); diff != "" {
		t.Errorf("suggestions mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, querycache.Snapshot{Query: "A", Suggestions: e.Suggestions}, f.ctrl.Snapshot())
}

func TestController_SearchFailure(t *testing.T) {
	f := newFixture(Options{})
	defer f.ctrl.Close()
	f.ac.errs["a"] = domain.SearchFailed(errors.New("network down"))

	f.ctrl.SetQuery("a")
	f.ctrl.Wait()

	s := f.ctrl.Snapshot()
	assert.False(t, s.Loading)
	assert.Equal(t, []domain.Suggestion{}, s.Suggestions)

	errs, locs, _, _ := f.rec.snapshot()
	require.Len(t, errs, 1)
	assert.Equal(t, Notification{Type: "message", Error: "Falha ao buscar localização - network down"}, errs[0])
	assert.Empty(t, locs)

	// A failed query is not retried while its entry exists.
	f.ctrl.SetQuery("a")
	f.ctrl.Wait()
	assert.Equal(t, 1, f.ac.callCount("a"))
	errs, _, _, _ = f.rec.snapshot()
	assert.Len(t, errs, 1)
}

func TestController_StaleResponsesLandInOwnSlots(t *testing.T) {
	f := newFixture(Options{})
	defer f.ctrl.Close()
	f.ac.results["a"] = []domain.Suggestion{{PlaceID: "a1"}}
	f.ac.results["ab"] = []domain.Suggestion{{PlaceID: "ab1"}}
	gateA := f.ac.gate("a")
	gateAB := f.ac.gate("ab")

	f.ctrl.SetQuery("a")
	f.ctrl.SetQuery("ab")
	assert.True(t, f.ctrl.Snapshot().Loading)

	// "ab" answers first.
	close(gateAB)
	s, err := f.ctrl.Await(context.Background(), "ab")
	require.NoError(t, err)
	assert.Equal(t, []domain.Suggestion{{PlaceID: "ab1"}}, s.Suggestions)

	e, _ := f.cache.Get("a")
	assert.True(t, e.Loading, "a is still in flight")

	close(gateA)
	f.ctrl.Wait()

	e, _ = f.cache.Get("a")
	assert.False(t, e.Loading)
	assert.Equal(t, []domain.Suggestion{{PlaceID: "a1"}}, e.Suggestions)

	cur := f.ctrl.Snapshot()
	assert.Equal(t, "ab", cur.Query)
	assert.Equal(t, []domain.Suggestion{{PlaceID: "ab1"}}, cur.Suggestions, "late a response must not leak into ab")
}

func TestController_SearchDoesNotMoveCurrentQuery(t *testing.T) {
	f := newFixture(Options{})
	defer f.ctrl.Close()

	f.ctrl.SetQuery("current")
	s := f.ctrl.Search("other")
	f.ctrl.Wait()

	assert.Equal(t, "other", s.Query)
	assert.Equal(t, "current", f.ctrl.Query())
	assert.Equal(t, 1, f.ac.callCount("other"))
	assert.Equal(t, querycache.Snapshot{Query: "", Suggestions: []domain.Suggestion{}}, f.ctrl.Search(""))
}

func TestController_AwaitHonorsContext(t *testing.T) {
	f := newFixture(Options{})
	defer f.ctrl.Close()
	gate := f.ac.gate("a")

	f.ctrl.SetQuery("a")

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	s, err := f.ctrl.Await(ctx, "a")
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.True(t, s.Loading)

	close(gate)
	s, err = f.ctrl.Await(context.Background(), "a")
	require.NoError(t, err)
	assert.False(t, s.Loading)
}

// --- selection ---

func TestController_SelectPlace(t *testing.T) {
	f := newFixture(Options{})
	defer f.ctrl.Close()
	want := domain.Location{PlaceID: "1", Name: "N", FormattedAddress: "Addr", Latitude: 1, Longitude: 2}
	f.res.detailsResult = want

	got, err := f.ctrl.Select(context.Background(), domain.Target{PlaceID: "1"})
	require.NoError(t, err)
	assert.Equal(t, want, got)

	errs, locs, empties, blurs := f.rec.snapshot()
	assert.Empty(t, errs)
	assert.Equal(t, []domain.Location{want}, locs)
	assert.Empty(t, empties)
	assert.Equal(t, 1, blurs)
}

func TestController_SelectAlwaysResolvesFresh(t *testing.T) {
	f := newFixture(Options{})
	defer f.ctrl.Close()

	for range 2 {
		_, err := f.ctrl.Select(context.Background(), domain.Target{PlaceID: "1"})
		require.NoError(t, err)
	}

	assert.Equal(t, 2, f.res.detailsCalls)
	assert.Equal(t, 0, f.cache.Len(), "selection does not touch the query cache")
}

func TestController_SelectEmptyReverseGeocode(t *testing.T) {
	f := newFixture(Options{})
	defer f.ctrl.Close()
	f.res.reverseErr = domain.ErrEmptyResolution

	_, err := f.ctrl.Select(context.Background(), domain.CoordinateTarget(1, 2))
	require.ErrorIs(t, err, domain.ErrEmptyResolution)

	errs, locs, empties, _ := f.rec.snapshot()
	assert.Empty(t, errs, "an empty reverse geocode is not an error notification")
	assert.Empty(t, locs)
	assert.Equal(t, []domain.Target{domain.CoordinateTarget(1, 2)}, empties)
}

func TestController_SelectEmptyGeocodeFromGoogle(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"results":[]}`))
	}))
	defer srv.Close()

	metrics := observability.NewMetricsForTesting()
	client := google.NewClient(google.Options{APIKey: "k", BaseURL: srv.URL, Timeout: time.Second}, metrics, discardLogger())
	rec := &recorder{}
	ctrl := New(client, client, querycache.New(0, metrics), rec.handlers(), Options{Logger: discardLogger()})
	defer ctrl.Close()

	_, err := ctrl.Select(context.Background(), domain.CoordinateTarget(-23.5, -46.6))
	require.ErrorIs(t, err, domain.ErrEmptyResolution)

	errs, locs, empties, _ := rec.snapshot()
	assert.Empty(t, errs)
	assert.Empty(t, locs)
	assert.Len(t, empties, 1)
}

func TestController_SelectFailure(t *testing.T) {
	f := newFixture(Options{Messages: MessagesEnglish})
	defer f.ctrl.Close()
	f.res.detailsErr = domain.ResolveFailed(errors.New("NOT_FOUND"))

	_, err := f.ctrl.Select(context.Background(), domain.Target{PlaceID: "gone"})
	require.ErrorIs(t, err, domain.ErrResolveFailed)

	errs, locs, _, _ := f.rec.snapshot()
	require.Len(t, errs, 1)
	assert.Equal(t, "Failed to load location - NOT_FOUND", errs[0].Error)
	assert.Empty(t, locs)
}

func TestController_SelectCanceledByCallerIsNotReported(t *testing.T) {
	f := newFixture(Options{})
	defer f.ctrl.Close()
	f.res.detailsErr = domain.ResolveFailed(context.Canceled)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := f.ctrl.Select(ctx, domain.Target{PlaceID: "1"})
	require.ErrorIs(t, err, context.Canceled)

	errs, locs, _, _ := f.rec.snapshot()
	assert.Empty(t, errs, "a caller that went away gets no load failure notification")
	assert.Empty(t, locs)
	require.NoError(t, f.ctrl.CheckReadiness(context.Background()))
}

func TestController_ChooseRunsInBackground(t *testing.T) {
	f := newFixture(Options{})
	defer f.ctrl.Close()
	f.res.reverseResult = domain.Location{PlaceID: "r", FormattedAddress: "Rua X"}

	f.ctrl.Choose(domain.CoordinateTarget(-23.5, -46.6))
	f.ctrl.Wait()

	_, locs, _, blurs := f.rec.snapshot()
	assert.Equal(t, []domain.Location{{PlaceID: "r", FormattedAddress: "Rua X"}}, locs)
	assert.Equal(t, 1, blurs)
	assert.Equal(t, 1, f.res.reverseCalls)
}

func TestController_SyncAdoptsLocation(t *testing.T) {
	f := newFixture(Options{})
	defer f.ctrl.Close()
	loc := domain.Location{PlaceID: "1", FormattedAddress: "Av. Paulista, 1578"}

	f.ctrl.Sync(loc)
	f.ctrl.Wait()

	got, ok := f.ctrl.Current()
	require.True(t, ok)
	assert.Equal(t, loc, got)
	assert.Equal(t, "Av. Paulista, 1578", f.ctrl.Query())
	assert.Equal(t, 1, f.ac.callCount("Av. Paulista, 1578"))
}

// --- debounce ---

func TestController_DebounceCoalescesKeystrokes(t *testing.T) {
	fake := clockwork.NewFakeClock()
	f := newFixture(Options{Debounce: 300 * time.Millisecond, Clock: fake})
	defer f.ctrl.Close()

	f.ctrl.SetQuery("p")
	f.ctrl.SetQuery("pa")
	f.ctrl.SetQuery("pau")
	assert.Equal(t, 0, f.ac.totalCalls())

	fake.Advance(300 * time.Millisecond)
	f.ctrl.Wait()

	assert.Equal(t, 1, f.ac.totalCalls())
	assert.Equal(t, 1, f.ac.callCount("pau"))
}

func TestController_DebounceClearedByEmptyText(t *testing.T) {
	fake := clockwork.NewFakeClock()
	f := newFixture(Options{Debounce: time.Second, Clock: fake})
	defer f.ctrl.Close()

	f.ctrl.SetQuery("p")
	f.ctrl.SetQuery("")
	fake.Advance(time.Second)
	f.ctrl.Wait()

	assert.Equal(t, 0, f.ac.totalCalls())
	assert.Equal(t, 0, f.cache.Len())
}

// --- lifecycle ---

func TestController_CloseCancelsInFlight(t *testing.T) {
	f := newFixture(Options{})
	f.ac.gate("a") // never released

	f.ctrl.SetQuery("a")

	done := make(chan struct{})
	go func() {
		f.ctrl.Close()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Close did not cancel the in-flight request")
	}

	errs, _, _, _ := f.rec.snapshot()
	assert.Empty(t, errs, "canceled lookups are not reported")
	e, ok := f.cache.Get("a")
	require.True(t, ok)
	assert.False(t, e.Loading)
	assert.Nil(t, e.Suggestions, "the canceled result is not stored")
	assert.ErrorIs(t, f.ctrl.CheckReadiness(context.Background()), ErrClosed)

	f.ctrl.SetQuery("b")
	assert.Equal(t, 0, f.ac.callCount("b"))

	_, err := f.ctrl.Select(context.Background(), domain.Target{PlaceID: "1"})
	assert.ErrorIs(t, err, ErrClosed)

	f.ctrl.Close() // idempotent
}

func TestController_CloseStopsPendingDebounce(t *testing.T) {
	fake := clockwork.NewFakeClock()
	f := newFixture(Options{Debounce: time.Second, Clock: fake})

	f.ctrl.SetQuery("p")
	f.ctrl.Close()
	fake.Advance(time.Second)

	assert.Equal(t, 0, f.ac.totalCalls())
}

func TestController_ReadyUntilClosed(t *testing.T) {
	f := newFixture(Options{})
	require.NoError(t, f.ctrl.CheckReadiness(context.Background()))
	assert.NotEmpty(t, f.ctrl.ID())
	f.ctrl.Close()
}

// --- messages ---

func TestMessagesFor(t *testing.T) {
	tests := []struct {
		locale string
		want   Messages
	}{
		{"pt", MessagesPortuguese},
		{"pt-BR", MessagesPortuguese},
		{"en", MessagesEnglish},
		{"en-GB", MessagesEnglish},
		{"de", MessagesPortuguese},
	}
	for _, tt := range tests {
		t.Run(tt.locale, func(t *testing.T) {
			got, err := MessagesFor(tt.locale)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := MessagesFor("not a locale!")
	assert.Error(t, err)
}
