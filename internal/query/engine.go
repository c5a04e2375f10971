// Package query keeps a bulk-fetched collection in memory and derives
// filtered, sorted and paginated views of it.
//
// One Engine backs one mounted list. Network access happens only in Start
// and Refetch; every search, sort or page change re-derives the view from
// the cached collection. Only the most recently issued fetch may update the
// cache: starting a new fetch cancels the previous one, and a superseded
// fetch's outcome is dropped.
package query

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"go.uber.org/zap"
)

const DefaultDebounce = 300 * time.Millisecond

var (
	ErrLoadFailed  = errors.New("failed to load")
	ErrUnknownSort = errors.New("unknown sort")
	ErrClosed      = errors.New("query engine closed")
)

// Fetcher returns the entire candidate collection in one call
type Fetcher[T any] func(ctx context.Context) ([]T, error)

type Config[T any] struct {
	Fetch       Fetcher[T]
	Match       Matcher[T]
	Sorts       map[Sort]Comparator[T]
	DefaultSort Sort
	Limit       int

	// Filter, when set, narrows the collection before search is applied.
	// It is read on every derivation.
	Filter func(T) bool

	// Debounce is the quiet interval before typed search text is committed.
	// Zero means DefaultDebounce.
	Debounce  time.Duration
	AfterFunc AfterFunc

	// OnChange runs after every state change that can alter View, outside
	// the engine lock.
	OnChange func()

	// Reconcile, when set, rewrites a fetched collection before it is
	// cached. gen is the generation of the fetch. It runs under the engine
	// lock and must not call back into the engine.
	Reconcile func(items []T, gen uint64) []T

	Logger *zap.Logger
}

// Page is what a consumer renders
type Page[T any] struct {
	Result[T]

	Typed   string
	Search  string
	Sort    Sort
	Loading bool
	Loaded  bool
	Err     error
}

type Engine[T any] struct {
	fetch     Fetcher[T]
	match     Matcher[T]
	filter    func(T) bool
	reconcile func(items []T, gen uint64) []T
	sorts     map[Sort]Comparator[T]
	limit     int
	onChange  func()
	logger    *zap.Logger

	debouncer *Debouncer

	mu      sync.Mutex
	items   []T
	loaded  bool
	loading bool
	err     error
	gen     uint64
	cancel  context.CancelFunc
	closed  bool

	search string
	sort   Sort
	page   int
}

func New[T any](cfg Config[T]) *Engine[T] {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	delay := cfg.Debounce
	if delay == 0 {
		delay = DefaultDebounce
	}

	e := &Engine[T]{
		fetch:     cfg.Fetch,
		match:     cfg.Match,
		filter:    cfg.Filter,
		reconcile: cfg.Reconcile,
		sorts:     cfg.Sorts,
		limit:     max(cfg.Limit, 1),
		onChange:  cfg.OnChange,
		logger:    logger,
		sort:      cfg.DefaultSort,
		page:      1,
	}
	e.debouncer = NewDebouncer(delay, cfg.AfterFunc, e.commitSearch)

	return e
}

// Start performs the initial bulk fetch
func (e *Engine[T]) Start(ctx context.Context) error {
	return e.Refetch(ctx)
}

// Refetch cancels any fetch in flight and loads the collection again. It
// blocks until the fetch finishes. A fetch that was superseded or whose
// context was cancelled returns nil and leaves state alone.
func (e *Engine[T]) Refetch(ctx context.Context) error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return ErrClosed
	}
	if e.cancel != nil {
		e.cancel()
	}
	e.gen++
	gen := e.gen
	fetchCtx, cancel := context.WithCancel(ctx)
	e.cancel = cancel
	e.loading = true
	e.err = nil
	e.mu.Unlock()
	e.notify()

	items, err := e.fetch(fetchCtx)

	e.mu.Lock()
	if gen != e.gen || e.closed {
		e.mu.Unlock()
		cancel()
		e.logger.Debug("discarding superseded fetch", zap.Uint64("generation", gen))
		return nil
	}

	e.cancel = nil
	e.loading = false

	if err != nil && errors.Is(err, context.Canceled) && fetchCtx.Err() != nil {
		e.mu.Unlock()
		cancel()
		e.logger.Debug("fetch cancelled", zap.Uint64("generation", gen))
		e.notify()
		return nil
	}

	if err != nil {
		e.err = fmt.Errorf("%w: %w", ErrLoadFailed, err)
		cached := len(e.items)
		e.mu.Unlock()
		cancel()

		e.logger.Error("bulk fetch failed",
			zap.Uint64("generation", gen),
			zap.Int("cached_items", cached),
			zap.Error(err),
		)
		e.notify()
		return e.Err()
	}

	if e.reconcile != nil {
		items = e.reconcile(items, gen)
	}
	if items == nil {
		items = []T{}
	}
	e.items = items
	e.loaded = true
	e.mu.Unlock()
	cancel()

	e.logger.Debug("bulk fetch applied",
		zap.Uint64("generation", gen),
		zap.Int("items", len(items)),
	)
	e.notify()

	return nil
}

// Close cancels the fetch in flight and any pending search commit. The
// engine cannot be restarted.
func (e *Engine[T]) Close() {
	e.mu.Lock()
	e.closed = true
	if e.cancel != nil {
		e.cancel()
		e.cancel = nil
	}
	e.loading = false
	e.mu.Unlock()

	e.debouncer.Stop()
}

// Type records raw search input. The committed search follows after the
// debounce interval.
func (e *Engine[T]) Type(raw string) {
	e.debouncer.Push(raw)
}

// Commit pushes the typed text through immediately, skipping the wait
func (e *Engine[T]) Commit() {
	v := e.debouncer.Typed()
	e.debouncer.Set(v)
	e.commitSearch(v)
}

func (e *Engine[T]) SetSort(s Sort) error {
	if _, ok := e.sorts[s]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownSort, s)
	}

	e.mu.Lock()
	e.sort = s
	e.page = 1
	e.mu.Unlock()

	e.notify()
	return nil
}

// SetPage moves to page p. Out-of-range pages are clamped when the view is
// derived.
func (e *Engine[T]) SetPage(p int) {
	e.mu.Lock()
	e.page = max(p, 1)
	e.mu.Unlock()

	e.notify()
}

// State returns the user-controlled state for persistence
func (e *Engine[T]) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return State{Search: e.search, Sort: e.sort, Page: e.page}
}

// Restore applies persisted state without debouncing or page resets.
// Unknown sorts are ignored.
func (e *Engine[T]) Restore(s State) {
	e.debouncer.Set(s.Search)

	e.mu.Lock()
	e.search = s.Search
	if _, ok := e.sorts[s.Sort]; ok {
		e.sort = s.Sort
	}
	e.page = max(s.Page, 1)
	e.mu.Unlock()

	e.notify()
}

// Mutate replaces the cached collection with fn's result. fn receives a
// copy and may modify it freely.
func (e *Engine[T]) Mutate(fn func(items []T) []T) {
	e.mu.Lock()
	e.items = fn(slices.Clone(e.items))
	e.mu.Unlock()

	e.notify()
}

// Generation counts the fetches issued so far. A fetch started later has a
// higher generation.
func (e *Engine[T]) Generation() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.gen
}

// All returns a copy of the cached collection
func (e *Engine[T]) All() []T {
	e.mu.Lock()
	defer e.mu.Unlock()
	return slices.Clone(e.items)
}

func (e *Engine[T]) Err() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.err
}

func (e *Engine[T]) View() Page[T] {
	typed := e.debouncer.Typed()

	e.mu.Lock()
	defer e.mu.Unlock()

	items := e.items
	if e.filter != nil {
		items = make([]T, 0, len(e.items))
		for _, item := range e.items {
			if e.filter(item) {
				items = append(items, item)
			}
		}
	}

	res := Derive(items, Query{
		Search: e.search,
		Sort:   e.sort,
		Page:   e.page,
		Limit:  e.limit,
	}, e.match, e.sorts[e.sort])

	return Page[T]{
		Result:  res,
		Typed:   typed,
		Search:  e.search,
		Sort:    e.sort,
		Loading: e.loading,
		Loaded:  e.loaded,
		Err:     e.err,
	}
}

func (e *Engine[T]) commitSearch(v string) {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.search = v
	e.page = 1
	e.mu.Unlock()

	e.logger.Debug("search committed", zap.String("search", v))
	e.notify()
}

func (e *Engine[T]) notify() {
	if e.onChange != nil {
		e.onChange()
	}
}
