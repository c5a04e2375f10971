// Package listing binds query engines to the job-board backend.
//
// Every list applies user actions to its cached collection first and sends
// the mutation afterwards on its own goroutine. A fetch that started before
// the backend confirmed an action gets the action re-applied over its
// result. When a mutation fails the list refetches from the backend so the
// cache matches the server again, and reports the failure through
// OnMutationError. Rejected credentials are reported without refetching.
package listing

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"go.uber.org/zap"

	"jobboard-bot/internal/api/board"
	"jobboard-bot/internal/query"
)

const defaultMutationTimeout = 15 * time.Second

var (
	ErrNotFound       = errors.New("item not found")
	ErrScrapedCompany = errors.New("scraped companies cannot be deleted")
)

// Mutation is the backend call behind an optimistic change
type Mutation func(ctx context.Context) error

// MutationError describes a failed background mutation
type MutationError struct {
	Action string
	Key    string
	Err    error
}

func (e *MutationError) Error() string {
	return e.Action + " " + e.Key + ": " + e.Err.Error()
}

func (e *MutationError) Unwrap() error {
	return e.Err
}

type Options[T any] struct {
	Engine query.Config[T]
	Key    func(T) string

	// OnMutationError runs on the mutation goroutine
	OnMutationError func(*MutationError)
	MutationTimeout time.Duration
	Logger          *zap.Logger
}

// List is a query engine plus the optimistic update contract
type List[T any] struct {
	*query.Engine[T]

	key             func(T) string
	onMutationError func(*MutationError)
	timeout         time.Duration
	logger          *zap.Logger

	mu      sync.Mutex
	pending []*change[T]

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// change is an optimistic edit that fetched collections must keep showing
// until a fetch started after its mutation succeeded. confirmedAt is the
// engine generation at the moment of success.
type change[T any] struct {
	apply       func(items []T) []T
	confirmed   bool
	confirmedAt uint64
}

func New[T any](opts Options[T]) *List[T] {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Engine.Logger == nil {
		opts.Engine.Logger = logger
	}

	timeout := opts.MutationTimeout
	if timeout == 0 {
		timeout = defaultMutationTimeout
	}

	ctx, cancel := context.WithCancel(context.Background())

	l := &List[T]{
		key:             opts.Key,
		onMutationError: opts.OnMutationError,
		timeout:         timeout,
		logger:          logger,
		ctx:             ctx,
		cancel:          cancel,
	}

	opts.Engine.Reconcile = l.reapply
	l.Engine = query.New(opts.Engine)

	return l
}

// Find returns the cached item with the given key
func (l *List[T]) Find(key string) (T, bool) {
	for _, item := range l.All() {
		if l.key(item) == key {
			return item, true
		}
	}
	var zero T
	return zero, false
}

// Remove drops the item from the cache immediately and sends m in the
// background
func (l *List[T]) Remove(action, key string, m Mutation) error {
	if _, ok := l.Find(key); !ok {
		return ErrNotFound
	}

	l.apply(action, key, func(items []T) []T {
		return slices.DeleteFunc(items, func(item T) bool {
			return l.key(item) == key
		})
	}, m)
	return nil
}

// Patch updates the item in place immediately and sends m in the background
func (l *List[T]) Patch(action, key string, patch func(T) T, m Mutation) error {
	if _, ok := l.Find(key); !ok {
		return ErrNotFound
	}

	l.apply(action, key, func(items []T) []T {
		for i, item := range items {
			if l.key(item) == key {
				items[i] = patch(item)
			}
		}
		return items
	}, m)
	return nil
}

// Wait blocks until every background mutation and refetch has finished
func (l *List[T]) Wait() {
	l.wg.Wait()
}

// Close stops the engine, abandons outstanding work and waits for it
func (l *List[T]) Close() {
	l.cancel()
	l.Engine.Close()
	l.wg.Wait()
}

// apply records the edit, applies it to the cache and sends m
func (l *List[T]) apply(action, key string, edit func(items []T) []T, m Mutation) {
	c := &change[T]{apply: edit}

	l.mu.Lock()
	l.pending = append(l.pending, c)
	l.mu.Unlock()

	l.Mutate(edit)
	l.dispatch(action, key, c, m)
}

// reapply is the engine's Reconcile hook. It runs under the engine lock, so
// it must not call the engine.
func (l *List[T]) reapply(items []T, gen uint64) []T {
	l.mu.Lock()
	defer l.mu.Unlock()

	kept := l.pending[:0]
	for _, c := range l.pending {
		if c.confirmed && gen > c.confirmedAt {
			// the fetch started after the backend took the change
			continue
		}
		items = c.apply(items)
		kept = append(kept, c)
	}
	clear(l.pending[len(kept):])
	l.pending = kept

	return items
}

func (l *List[T]) confirm(c *change[T]) {
	gen := l.Generation()

	l.mu.Lock()
	c.confirmed = true
	c.confirmedAt = gen
	l.mu.Unlock()
}

func (l *List[T]) forget(c *change[T]) {
	l.mu.Lock()
	l.pending = slices.DeleteFunc(l.pending, func(p *change[T]) bool { return p == c })
	l.mu.Unlock()
}

func (l *List[T]) dispatch(action, key string, c *change[T], m Mutation) {
	l.wg.Add(1)
	go func() {
		defer l.wg.Done()

		ctx, cancel := context.WithTimeout(l.ctx, l.timeout)
		defer cancel()

		err := m(ctx)
		if err == nil {
			l.confirm(c)
			l.logger.Debug("mutation applied", zap.String("action", action), zap.String("key", key))
			return
		}

		l.forget(c)
		if errors.Is(err, context.Canceled) && l.ctx.Err() != nil {
			return
		}

		l.logger.Error("mutation failed",
			zap.String("action", action),
			zap.String("key", key),
			zap.Error(err),
		)

		if l.onMutationError != nil {
			l.onMutationError(&MutationError{Action: action, Key: key, Err: err})
		}

		if errors.Is(err, board.ErrUnauthorized) {
			return
		}

		if err := l.Refetch(l.ctx); err != nil && !errors.Is(err, query.ErrClosed) {
			l.logger.Warn("reconcile after failed mutation", zap.String("action", action), zap.Error(err))
		}
	}()
}
