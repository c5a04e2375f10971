package query

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCompanyEngine(fetch Fetcher[company], clock *manualClock) *Engine[company] {
	cfg := Config[company]{
		Fetch:       fetch,
		Match:       matchCompany,
		Sorts:       companySorts(),
		DefaultSort: SortAZ,
		Limit:       24,
	}
	if clock != nil {
		cfg.AfterFunc = clock.AfterFunc
	}
	return New(cfg)
}

func staticFetch(items ...company) Fetcher[company] {
	return func(context.Context) ([]company, error) {
		return items, nil
	}
}

func TestEngine_StartLoadsAndDerives(t *testing.T) {
	e := newCompanyEngine(staticFetch(numbered(30)...), nil)
	defer e.Close()

	before := e.View()
	assert.False(t, before.Loaded)
	assert.Empty(t, before.Items)

	require.NoError(t, e.Start(context.Background()))

	page := e.View()
	assert.True(t, page.Loaded)
	assert.False(t, page.Loading)
	assert.NoError(t, page.Err)
	assert.Len(t, page.Items, 24)
	assert.Equal(t, 30, page.Total)
	assert.Equal(t, 2, page.TotalPages)

	e.SetPage(2)
	assert.Len(t, e.View().Items, 6)
}

func TestEngine_LatestFetchWins(t *testing.T) {
	release := []chan []company{make(chan []company), make(chan []company)}
	var calls atomic.Int32
	var ctxs sync.Map

	fetch := func(ctx context.Context) ([]company, error) {
		i := calls.Add(1) - 1
		ctxs.Store(i, ctx)
		// resolves even after cancellation, like a response already in flight
		return <-release[i], nil
	}

	e := newCompanyEngine(fetch, nil)
	defer e.Close()

	errA := make(chan error, 1)
	go func() { errA <- e.Refetch(context.Background()) }()
	require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, time.Millisecond)

	errB := make(chan error, 1)
	go func() { errB <- e.Refetch(context.Background()) }()
	require.Eventually(t, func() bool { return calls.Load() == 2 }, time.Second, time.Millisecond)

	ctxA, _ := ctxs.Load(int32(0))
	assert.ErrorIs(t, ctxA.(context.Context).Err(), context.Canceled, "first fetch is cancelled when the second starts")

	release[1] <- []company{{name: "from B"}}
	require.NoError(t, <-errB)

	release[0] <- []company{{name: "from A"}}
	require.NoError(t, <-errA)

	assert.Equal(t, []string{"from B"}, names(e.All()))
	assert.False(t, e.View().Loading)
}

func TestEngine_SupersededErrorIgnored(t *testing.T) {
	release := make(chan struct{})
	var calls atomic.Int32

	fetch := func(ctx context.Context) ([]company, error) {
		if calls.Add(1) == 1 {
			<-release
			return nil, errors.New("late failure")
		}
		return []company{{name: "fresh"}}, nil
	}

	e := newCompanyEngine(fetch, nil)
	defer e.Close()

	errA := make(chan error, 1)
	go func() { errA <- e.Refetch(context.Background()) }()
	require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, time.Millisecond)

	require.NoError(t, e.Refetch(context.Background()))
	close(release)
	require.NoError(t, <-errA)

	page := e.View()
	assert.NoError(t, page.Err)
	assert.Equal(t, []string{"fresh"}, names(page.Items))
}

func TestEngine_FailureKeepsCache(t *testing.T) {
	fail := false
	fetch := func(context.Context) ([]company, error) {
		if fail {
			return nil, errors.New("connection refused")
		}
		return []company{{name: "Acme"}}, nil
	}

	e := newCompanyEngine(fetch, nil)
	defer e.Close()

	require.NoError(t, e.Start(context.Background()))

	fail = true
	err := e.Refetch(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrLoadFailed)

	page := e.View()
	assert.ErrorIs(t, page.Err, ErrLoadFailed)
	assert.Equal(t, []string{"Acme"}, names(page.Items))
	assert.False(t, page.Loading)
}

func TestEngine_FirstLoadFailureIsEmpty(t *testing.T) {
	e := newCompanyEngine(func(context.Context) ([]company, error) {
		return nil, errors.New("boom")
	}, nil)
	defer e.Close()

	require.Error(t, e.Start(context.Background()))

	page := e.View()
	assert.Empty(t, page.Items)
	assert.Equal(t, 1, page.TotalPages)
	assert.False(t, page.Loaded)
	assert.Error(t, page.Err)
}

func TestEngine_CallerCancellationIsNotAnError(t *testing.T) {
	e := newCompanyEngine(func(ctx context.Context) ([]company, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}, nil)
	defer e.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- e.Refetch(ctx) }()

	require.Eventually(t, func() bool { return e.View().Loading }, time.Second, time.Millisecond)
	cancel()

	require.NoError(t, <-done)
	page := e.View()
	assert.NoError(t, page.Err)
	assert.False(t, page.Loading)
}

func TestEngine_CloseCancelsFetch(t *testing.T) {
	started := make(chan struct{})
	e := newCompanyEngine(func(ctx context.Context) ([]company, error) {
		close(started)
		<-ctx.Done()
		return []company{{name: "stale"}}, nil
	}, nil)

	done := make(chan error, 1)
	go func() { done <- e.Start(context.Background()) }()
	<-started

	e.Close()
	require.NoError(t, <-done)
	assert.Empty(t, e.All())
	assert.ErrorIs(t, e.Refetch(context.Background()), ErrClosed)
}

func TestEngine_DebouncedSearchResetsPage(t *testing.T) {
	clock := &manualClock{}
	all := append(numbered(30), company{name: "Acme"}, company{name: "acmeX"})
	e := newCompanyEngine(staticFetch(all...), clock)
	defer e.Close()

	require.NoError(t, e.Start(context.Background()))
	e.SetPage(2)

	e.Type("a")
	e.Type("ac")
	e.Type("acm")

	page := e.View()
	assert.Equal(t, "acm", page.Typed)
	assert.Empty(t, page.Search, "committed search waits for the quiet interval")
	assert.Equal(t, 2, page.Page)

	clock.fire()

	page = e.View()
	assert.Equal(t, "acm", page.Search)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, []string{"Acme", "acmeX"}, names(page.Items))
}

func TestEngine_Commit(t *testing.T) {
	clock := &manualClock{}
	e := newCompanyEngine(staticFetch(company{name: "Acme"}, company{name: "Zebra"}), clock)
	defer e.Close()
	require.NoError(t, e.Start(context.Background()))

	e.Type("zeb")
	e.Commit()
	assert.Equal(t, []string{"Zebra"}, names(e.View().Items))

	clock.fire()
	assert.Equal(t, "zeb", e.View().Search)
}

func TestEngine_SortResetsPagePaginationKeepsSearch(t *testing.T) {
	clock := &manualClock{}
	e := newCompanyEngine(staticFetch(numbered(60)...), clock)
	defer e.Close()
	require.NoError(t, e.Start(context.Background()))

	e.Type("company")
	clock.fire()
	e.SetPage(3)
	assert.Equal(t, 3, e.View().Page)

	require.NoError(t, e.SetSort(SortZA))
	page := e.View()
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, "Company 059", page.Items[0].name)

	e.SetPage(2)
	page = e.View()
	assert.Equal(t, SortZA, page.Sort)
	assert.Equal(t, "company", page.Search)

	assert.ErrorIs(t, e.SetSort("newest"), ErrUnknownSort)
}

func TestEngine_MutateAndNotify(t *testing.T) {
	var changes atomic.Int32
	e := New(Config[company]{
		Fetch:       staticFetch(company{name: "Acme"}, company{name: "Zebra"}),
		Match:       matchCompany,
		Sorts:       companySorts(),
		DefaultSort: SortAZ,
		Limit:       24,
		OnChange:    func() { changes.Add(1) },
	})
	defer e.Close()

	require.NoError(t, e.Start(context.Background()))
	afterLoad := changes.Load()
	assert.GreaterOrEqual(t, afterLoad, int32(2), "loading and loaded both notify")

	e.Mutate(func(items []company) []company {
		return items[1:]
	})

	assert.Equal(t, []string{"Zebra"}, names(e.View().Items))
	assert.Equal(t, afterLoad+1, changes.Load())
}

func TestEngine_StateRoundTrip(t *testing.T) {
	e := newCompanyEngine(staticFetch(numbered(60)...), &manualClock{})
	defer e.Close()
	require.NoError(t, e.Start(context.Background()))

	e.Restore(State{Search: "company", Sort: SortZA, Page: 2})
	page := e.View()
	assert.Equal(t, "company", page.Typed)
	assert.Equal(t, "company", page.Search)
	assert.Equal(t, 2, page.Page)
	assert.Equal(t, SortZA, page.Sort)

	assert.Equal(t, State{Search: "company", Sort: SortZA, Page: 2}, e.State())

	e.Restore(State{Sort: "bogus", Page: 0})
	assert.Equal(t, SortZA, e.View().Sort)
	assert.Equal(t, 1, e.View().Page)
}

func TestEngine_FilterAppliesWithoutSearch(t *testing.T) {
	hiring := true
	e := New(Config[company]{
		Fetch:       staticFetch(company{name: "Acme", openRoles: 2}, company{name: "Zebra"}),
		Match:       matchCompany,
		Filter:      func(c company) bool { return !hiring || c.openRoles > 0 },
		Sorts:       companySorts(),
		DefaultSort: SortAZ,
		Limit:       24,
	})
	defer e.Close()
	require.NoError(t, e.Start(context.Background()))

	page := e.View()
	assert.Equal(t, []string{"Acme"}, names(page.Items))
	assert.Equal(t, 1, page.Total)

	hiring = false
	assert.Equal(t, 2, e.View().Total)
	assert.Len(t, e.All(), 2)
}

func TestEngine_ReconcileSeesGeneration(t *testing.T) {
	var gens []uint64
	cfg := Config[company]{
		Fetch:       staticFetch(numbered(3)...),
		Match:       matchCompany,
		Sorts:       companySorts(),
		DefaultSort: SortAZ,
		Limit:       24,
		Reconcile: func(items []company, gen uint64) []company {
			gens = append(gens, gen)
			return items[:1]
		},
	}
	e := New(cfg)
	defer e.Close()

	assert.Equal(t, uint64(0), e.Generation())
	require.NoError(t, e.Start(context.Background()))
	require.NoError(t, e.Refetch(context.Background()))

	assert.Equal(t, []uint64{1, 2}, gens)
	assert.Equal(t, uint64(2), e.Generation())
	assert.Len(t, e.All(), 1)
}
