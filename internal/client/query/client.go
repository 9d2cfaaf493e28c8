// Package query is the process-wide cache between the presentation layer and
// the resource functions. Every read goes through a keyed entry that tracks
// data, status and error; concurrent reads of one entry share one request;
// mutations patch entries optimistically and roll them back on failure.
//
// Each entry carries a generation number. Invalidation, cancellation and the
// loss of the last observer bump it, and a response is only stored when the
// generation it was requested under is still current. Requests are never
// aborted mid-flight; superseded results are dropped on arrival.
package query

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

var (
	// ErrCancelled is returned to readers whose request was superseded by
	// Cancel or by the last observer leaving.
	ErrCancelled = errors.New("query: cancelled")
	// ErrNoFetcher is returned when an entry is refetched before any query
	// registered a fetch function for it.
	ErrNoFetcher = errors.New("query: no fetch function registered")

	errSuperseded = errors.New("query: superseded")
)

// Status is the lifecycle stage of an entry.
type Status int

const (
	StatusIdle Status = iota
	StatusLoading
	StatusSuccess
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusLoading:
		return "loading"
	case StatusSuccess:
		return "success"
	case StatusError:
		return "error"
	default:
		return "idle"
	}
}

// State is a point-in-time view of an entry.
type State struct {
	Key         Key
	Data        any
	Status      Status
	Err         error
	UpdatedAt   time.Time
	Fetching    bool
	Invalidated bool
}

func (s State) IsLoading() bool { return s.Status == StatusLoading }
func (s State) IsError() bool   { return s.Status == StatusError }
func (s State) IsSuccess() bool { return s.Status == StatusSuccess }

type fetchFunc func(context.Context) (any, error)

type entry struct {
	key         Key
	data        any
	hasData     bool
	status      Status
	err         error
	updatedAt   time.Time
	lastUsed    time.Time
	invalidated bool
	fetching    bool
	cancelled   bool
	waiters     int // foreground readers blocked in load
	gen         uint64
	fetch       fetchFunc
	opts        Options
	observers   map[int]func(State)
}

func (e *entry) state() State {
	return State{
		Key:         e.key,
		Data:        e.data,
		Status:      e.status,
		Err:         e.err,
		UpdatedAt:   e.updatedAt,
		Fetching:    e.fetching,
		Invalidated: e.invalidated,
	}
}

// notice is a pending observer callback, fired after the lock is released.
type notice struct {
	fns []func(State)
	st  State
}

func (e *entry) notice() notice {
	n := notice{st: e.state()}
	for _, fn := range e.observers {
		n.fns = append(n.fns, fn)
	}
	return n
}

func fire(ns []notice) {
	for _, n := range ns {
		for _, fn := range n.fns {
			fn(n.st)
		}
	}
}

// Client is the cache. The zero value is not usable; call New.
type Client struct {
	mu       sync.Mutex
	entries  map[string]*entry
	group    singleflight.Group
	nextObs  int
	bg       sync.WaitGroup
	base     context.Context
	stop     context.CancelFunc
	notifier Notifier
	log      *zap.Logger
	now      func() time.Time
}

// Option configures a Client.
type Option func(*Client)

func WithLogger(l *zap.Logger) Option {
	return func(c *Client) { c.log = l }
}

// WithNotifier sets where mutation toasts go.
func WithNotifier(n Notifier) Option {
	return func(c *Client) { c.notifier = n }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

// New returns an empty cache.
func New(opts ...Option) *Client {
	base, stop := context.WithCancel(context.Background())
	c := &Client{
		entries:  make(map[string]*entry),
		base:     base,
		stop:     stop,
		notifier: nopNotifier{},
		log:      zap.NewNop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Close aborts outstanding requests and stops background work.
func (c *Client) Close() {
	c.stop()
	c.bg.Wait()
}

// Notify forwards t to the configured Notifier.
func (c *Client) Notify(t Toast) { c.notifier.Notify(t) }

func (c *Client) entryLocked(key Key, hash string) *entry {
	e, ok := c.entries[hash]
	if !ok {
		e = &entry{key: key, observers: make(map[int]func(State))}
		c.entries[hash] = e
	}
	e.lastUsed = c.now()
	return e
}

// bumpLocked supersedes whatever request is in flight for e.
func (c *Client) bumpLocked(e *entry) {
	e.gen++
	e.fetching = false
	if !e.hasData && e.status == StatusLoading {
		e.status = StatusIdle
	}
}

// Fetch returns the cached value of key, or loads it with fn. Concurrent
// callers for the same key share one call to fn. A caller giving up through
// ctx does not abort the shared request.
func Fetch[T any](ctx context.Context, c *Client, key Key, fn func(context.Context) (T, error), opts Options) (T, error) {
	v, err := c.query(ctx, key, func(ctx context.Context) (any, error) { return fn(ctx) }, opts)
	if err != nil {
		var zero T
		return zero, err
	}
	return cast[T](key, v)
}

// Get returns the cached value of key when it holds a T.
func Get[T any](c *Client, key Key) (T, bool) {
	v, ok := c.GetData(key)
	if !ok {
		var zero T
		return zero, false
	}
	t, ok := v.(T)
	return t, ok
}

func cast[T any](key Key, v any) (T, error) {
	var zero T
	if v == nil {
		return zero, nil
	}
	t, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("query %s: cached %T, want %T", key, v, zero)
	}
	return t, nil
}

func (c *Client) query(ctx context.Context, key Key, fetch fetchFunc, opts Options) (any, error) {
	hash := key.Hash()
	c.mu.Lock()
	e := c.entryLocked(key, hash)
	e.fetch, e.opts = fetch, opts
	if e.hasData && !e.invalidated && e.status == StatusSuccess {
		v := e.data
		c.mu.Unlock()
		return v, nil
	}
	c.mu.Unlock()
	return c.load(ctx, hash, true)
}

// load joins or starts the request for the current generation of hash. When
// that generation is superseded by an invalidation it follows the newer one.
// A foreground load keeps the request alive when the last observer leaves.
func (c *Client) load(ctx context.Context, hash string, foreground bool) (any, error) {
	for {
		c.mu.Lock()
		e, ok := c.entries[hash]
		if !ok || e.fetch == nil {
			c.mu.Unlock()
			return nil, ErrNoFetcher
		}
		if e.hasData && !e.invalidated && e.status == StatusSuccess && !e.fetching {
			// settled while this caller was on its way in
			v := e.data
			c.mu.Unlock()
			return v, nil
		}
		gen, fetch, opts := e.gen, e.fetch, e.opts
		if foreground {
			e.waiters++
		}
		var ns []notice
		if !e.fetching {
			e.fetching = true
			e.cancelled = false
			if !e.hasData {
				e.status = StatusLoading
			}
			ns = append(ns, e.notice())
		}
		c.mu.Unlock()
		fire(ns)

		ch := c.group.DoChan(fmt.Sprintf("%s#%d", hash, gen), func() (any, error) {
			return c.run(hash, gen, fetch, opts)
		})
		var (
			res     singleflight.Result
			settled bool
		)
		select {
		case res = <-ch:
			settled = true
		case <-ctx.Done():
		}
		if foreground {
			c.mu.Lock()
			e.waiters--
			c.mu.Unlock()
		}
		if !settled {
			return nil, ctx.Err()
		}
		if !errors.Is(res.Err, errSuperseded) {
			return res.Val, res.Err
		}

		c.mu.Lock()
		e, ok = c.entries[hash]
		cancelled := !ok || e.cancelled
		c.mu.Unlock()
		if cancelled {
			return nil, ErrCancelled
		}
	}
}

// run performs one request and stores its result if gen is still current.
func (c *Client) run(hash string, gen uint64, fetch fetchFunc, opts Options) (any, error) {
	var v any
	err := opts.do(c.base, func(ctx context.Context) error {
		var err error
		v, err = fetch(ctx)
		return err
	})

	c.mu.Lock()
	e, ok := c.entries[hash]
	if !ok || e.gen != gen {
		c.mu.Unlock()
		c.log.Debug("discarding superseded result", zap.String("key", hash), zap.Uint64("generation", gen))
		return nil, errSuperseded
	}
	e.fetching = false
	e.updatedAt = c.now()
	if err != nil {
		e.status, e.err = StatusError, err
		c.log.Debug("query failed", zap.String("key", hash), zap.Error(err))
	} else {
		e.data, e.hasData = v, true
		e.status, e.err = StatusSuccess, nil
		e.invalidated = false
	}
	n := e.notice()
	c.mu.Unlock()
	fire([]notice{n})
	return v, err
}

// Refetch forces a new request for key with its registered fetch function,
// superseding any request in flight.
func (c *Client) Refetch(ctx context.Context, key Key) error {
	hash := key.Hash()
	c.mu.Lock()
	e, ok := c.entries[hash]
	if !ok || e.fetch == nil {
		c.mu.Unlock()
		return ErrNoFetcher
	}
	e.invalidated = true
	c.bumpLocked(e)
	c.mu.Unlock()
	_, err := c.load(ctx, hash, true)
	return err
}

// Watch calls fn with the entry's state after every change until the
// returned function is called. Removing the last observer of an entry with a
// request in flight supersedes that request, unless a Fetch or Refetch
// caller is still waiting on it.
func (c *Client) Watch(key Key, fn func(State)) (unsubscribe func()) {
	hash := key.Hash()
	c.mu.Lock()
	e := c.entryLocked(key, hash)
	c.nextObs++
	id := c.nextObs
	e.observers[id] = fn
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			e, ok := c.entries[hash]
			if !ok {
				return
			}
			delete(e.observers, id)
			e.lastUsed = c.now()
			if len(e.observers) == 0 && e.fetching && e.waiters == 0 {
				c.bumpLocked(e)
				e.cancelled = true
			}
		})
	}
}

// Invalidate marks every entry under the given prefixes stale and
// supersedes their in-flight requests. Entries with observers are refetched
// in the background; the rest load on their next read.
func (c *Client) Invalidate(prefixes ...Key) {
	c.mu.Lock()
	var (
		ns      []notice
		refetch []string
	)
	for hash, e := range c.entries {
		if !matchesAny(e.key, prefixes) {
			continue
		}
		e.invalidated = true
		e.cancelled = false
		c.bumpLocked(e)
		if len(e.observers) > 0 && e.fetch != nil {
			refetch = append(refetch, hash)
		}
		ns = append(ns, e.notice())
	}
	c.bg.Add(len(refetch))
	c.mu.Unlock()
	fire(ns)

	for _, hash := range refetch {
		go func(hash string) {
			defer c.bg.Done()
			if _, err := c.load(c.base, hash, false); err != nil && !errors.Is(err, ErrCancelled) {
				c.log.Debug("background refetch failed", zap.String("key", hash), zap.Error(err))
			}
		}(hash)
	}
}

// Cancel supersedes in-flight requests under the given prefixes so their
// results cannot overwrite an optimistic patch.
func (c *Client) Cancel(prefixes ...Key) {
	c.mu.Lock()
	var ns []notice
	for _, e := range c.entries {
		if !e.fetching || !matchesAny(e.key, prefixes) {
			continue
		}
		c.bumpLocked(e)
		e.cancelled = true
		ns = append(ns, e.notice())
	}
	c.mu.Unlock()
	fire(ns)
}

// Wait blocks until every background refetch has settled.
func (c *Client) Wait() {
	c.bg.Wait()
}

// SetData stores v under key as confirmed data.
func (c *Client) SetData(key Key, v any) {
	hash := key.Hash()
	c.mu.Lock()
	e := c.entryLocked(key, hash)
	e.data, e.hasData = v, true
	e.status, e.err = StatusSuccess, nil
	e.updatedAt = c.now()
	e.invalidated = false
	n := e.notice()
	c.mu.Unlock()
	fire([]notice{n})
}

// GetData returns the value cached under key.
func (c *Client) GetData(key Key) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key.Hash()]
	if !ok || !e.hasData {
		return nil, false
	}
	return e.data, true
}

// State returns the current state of key. Unknown keys are idle.
func (c *Client) State(key Key) State {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key.Hash()]
	if !ok {
		return State{Key: key}
	}
	return e.state()
}

// Matching returns the keys of every entry under prefix, in hash order.
func (c *Client) Matching(prefix Key) []Key {
	c.mu.Lock()
	defer c.mu.Unlock()
	hashes := make([]string, 0, len(c.entries))
	for hash, e := range c.entries {
		if e.key.HasPrefix(prefix) {
			hashes = append(hashes, hash)
		}
	}
	sort.Strings(hashes)
	keys := make([]Key, 0, len(hashes))
	for _, h := range hashes {
		keys = append(keys, c.entries[h].key)
	}
	return keys
}

// Remove drops the entries for keys together with their observers.
// Requests in flight for them are discarded on arrival.
func (c *Client) Remove(keys ...Key) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.entries, k.Hash())
	}
}

// Len returns the number of entries.
func (c *Client) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
