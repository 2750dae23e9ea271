// Package querystore implements the shared query cache: a keyed store that
// maps a domain.QueryKey to its last fetched result, loading state and
// staleness metadata.
//
// The store is the single shared mutable resource of the cache-sync layer.
// Other components never touch cached data directly; they ask the store to
// mark keys stale or to refetch them, either one key at a time or through a
// batch of declarative invalidation instructions (Apply).
//
// Consistency rules:
//   - Every invalidation bumps a per-entry generation. A fetch that started
//     before an invalidation may still store its data, but the entry stays
//     stale, so pre-mutation data is never reported as fresh.
//   - Instructions are declarative: applying the same instruction twice ends
//     in the same state as applying it once.
//   - Overlapping refetches of one key are not ordered; the last response to
//     arrive wins. Both pull current server state, so this is sufficient.
package querystore

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/tbourn/recipe-cache-sync/internal/domain"
)

// Status is the lifecycle state of a cache entry.
type Status string

const (
	StatusIdle    Status = "idle"
	StatusLoading Status = "loading"
	StatusFresh   Status = "fresh"
	StatusStale   Status = "stale"
	StatusError   Status = "error"
)

// ErrNoFetcher is returned when no fetcher is registered for an entity type.
var ErrNoFetcher = errors.New("querystore: no fetcher registered for entity type")

// Fetcher loads the current server state for key.
type Fetcher func(ctx context.Context, key domain.QueryKey) (any, error)

// Entry is a point-in-time copy of a cache entry.
type Entry struct {
	Key       domain.QueryKey `json:"key"`
	Data      any             `json:"-"`
	FetchedAt time.Time       `json:"fetched_at"`
	Status    Status          `json:"status"`
	Err       error           `json:"-"`
}

// HasData reports whether the entry holds a previously fetched result.
func (e Entry) HasData() bool { return !e.FetchedAt.IsZero() }

type entry struct {
	Entry
	gen uint64
}

// Store is a concurrency-safe keyed query cache.
type Store struct {
	mu       sync.Mutex
	entries  map[string]*entry
	fetchers map[domain.EntityType]Fetcher

	clock      clockwork.Clock
	staleAfter time.Duration
	loads      singleflight.Group
}

// Option configures a Store.
type Option func(*Store)

// WithClock sets the clock used for FetchedAt and staleness checks.
func WithClock(c clockwork.Clock) Option {
	return func(s *Store) {
		if c != nil {
			s.clock = c
		}
	}
}

// WithStaleAfter makes fresh entries older than d count as stale on read.
// Zero disables age-based staleness.
func WithStaleAfter(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.staleAfter = d
		}
	}
}

// New constructs an empty Store.
func New(opts ...Option) *Store {
	s := &Store{
		entries:  make(map[string]*entry),
		fetchers: make(map[domain.EntityType]Fetcher),
		clock:    clockwork.NewRealClock(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Register installs the fetcher for entity type e, replacing any previous one.
func (s *Store) Register(e domain.EntityType, f Fetcher) {
	s.mu.Lock()
	s.fetchers[e] = f
	s.mu.Unlock()
}

// Track creates an idle entry for key if none exists. Views call it on mount
// so the key is known to invalidation passes before its first load.
func (s *Store) Track(key domain.QueryKey) {
	s.mu.Lock()
	s.ensureLocked(key)
	s.mu.Unlock()
}

// Snapshot returns a copy of the entry for key.
func (s *Store) Snapshot(key domain.QueryKey) (Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key.String()]
	if !ok {
		return Entry{}, false
	}
	return e.Entry, true
}

// Keys returns every cached key, sorted by String form.
func (s *Store) Keys() []domain.QueryKey {
	s.mu.Lock()
	keys := make([]domain.QueryKey, 0, len(s.entries))
	for _, e := range s.entries {
		keys = append(keys, e.Key)
	}
	s.mu.Unlock()
	sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })
	return keys
}

// Entries returns copies of every entry, sorted by key.
func (s *Store) Entries() []Entry {
	s.mu.Lock()
	out := make([]Entry, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, e.Entry)
	}
	s.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Key.String() < out[j].Key.String() })
	return out
}

// Len returns the number of cached entries.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Evict drops the entry for key. It returns false if nothing was cached.
func (s *Store) Evict(key domain.QueryKey) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := key.String()
	if _, ok := s.entries[k]; !ok {
		return false
	}
	delete(s.entries, k)
	return true
}

// Get is a read-through lookup. Fresh entries are returned as-is; anything
// else triggers a fetch. Concurrent Gets of the same key share one fetch.
//
// When the fetch fails, the returned entry still carries the last good data
// (if any) so callers can decide to serve it. A caller whose ctx ends stops
// waiting with ctx.Err(); the fetch itself carries on for the others.
func (s *Store) Get(ctx context.Context, key domain.QueryKey) (Entry, error) {
	s.mu.Lock()
	if e, ok := s.entries[key.String()]; ok && e.Status == StatusFresh {
		if s.staleAfter <= 0 || s.clock.Since(e.FetchedAt) < s.staleAfter {
			snap := e.Entry
			s.mu.Unlock()
			return snap, nil
		}
		e.Status = StatusStale
		e.gen++
	}
	s.mu.Unlock()

	// The shared fetch outlives any single caller; each caller only stops
	// waiting when its own ctx ends.
	bg := context.WithoutCancel(ctx)
	ch := s.loads.DoChan(key.String(), func() (any, error) {
		return s.fetch(bg, key)
	})
	select {
	case r := <-ch:
		snap, _ := r.Val.(Entry)
		return snap, r.Err
	case <-ctx.Done():
		snap, _ := s.Snapshot(key)
		return snap, ctx.Err()
	}
}

// MarkStale flags the entry for key as stale. It reports whether an entry
// existed; marking a missing key is a no-op.
func (s *Store) MarkStale(key domain.QueryKey) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.markStaleLocked(key)
}

// Refetch loads key now, regardless of its current status.
func (s *Store) Refetch(ctx context.Context, key domain.QueryKey) (Entry, error) {
	return s.fetch(ctx, key)
}

// Dispatch tracks the refetches started by Apply.
type Dispatch struct {
	// Refetches is the number of refetches started.
	Refetches int
	// MarkedStale is the number of existing entries moved to stale.
	MarkedStale int

	g *errgroup.Group
}

// Wait blocks until every refetch has finished and returns the first error.
func (d *Dispatch) Wait() error {
	if d == nil || d.g == nil {
		return nil
	}
	return d.g.Wait()
}

// Apply executes a batch of invalidation instructions.
//
// All stale transitions happen under a single lock, so the batch is applied
// all-or-nothing relative to other store operations. refetchNow keys are
// marked stale as well and then refetched concurrently in the background; the
// returned Dispatch lets callers wait for them. Refetches run on a context
// detached from ctx's cancellation so an aborted request does not abort the
// cache update it triggered.
func (s *Store) Apply(ctx context.Context, ins []domain.InvalidationInstruction) *Dispatch {
	d := &Dispatch{g: new(errgroup.Group)}

	refetch := make([]domain.QueryKey, 0, len(ins))
	seen := make(map[string]struct{}, len(ins))

	s.mu.Lock()
	for _, in := range ins {
		if s.markStaleLocked(in.Key) {
			d.MarkedStale++
		}
		if in.Action != domain.ActionRefetchNow {
			continue
		}
		if _, dup := seen[in.Key.String()]; dup {
			continue
		}
		seen[in.Key.String()] = struct{}{}
		refetch = append(refetch, in.Key)
	}
	s.mu.Unlock()

	bg := context.WithoutCancel(ctx)
	for _, key := range refetch {
		key := key
		d.Refetches++
		d.g.Go(func() error {
			_, err := s.fetch(bg, key)
			return err
		})
	}
	return d
}

func (s *Store) ensureLocked(key domain.QueryKey) *entry {
	k := key.String()
	e, ok := s.entries[k]
	if !ok {
		e = &entry{Entry: Entry{Key: key, Status: StatusIdle}}
		s.entries[k] = e
	}
	return e
}

func (s *Store) markStaleLocked(key domain.QueryKey) bool {
	e, ok := s.entries[key.String()]
	if !ok {
		return false
	}
	e.gen++
	if e.Status != StatusLoading {
		e.Status = StatusStale
	}
	return true
}

func (s *Store) fetch(ctx context.Context, key domain.QueryKey) (Entry, error) {
	s.mu.Lock()
	f, ok := s.fetchers[key.Entity]
	if !ok {
		s.mu.Unlock()
		return Entry{Key: key, Status: StatusError, Err: ErrNoFetcher}, ErrNoFetcher
	}
	e := s.ensureLocked(key)
	startGen := e.gen
	e.Status = StatusLoading
	s.mu.Unlock()

	data, err := f(ctx, key)

	s.mu.Lock()
	defer s.mu.Unlock()
	// The entry may have been evicted while the fetch was in flight.
	e = s.ensureLocked(key)
	invalidated := e.gen != startGen

	if err != nil {
		e.Err = err
		if invalidated {
			e.Status = StatusStale
		} else {
			e.Status = StatusError
		}
		return e.Entry, err
	}

	e.Data = data
	e.FetchedAt = s.clock.Now()
	e.Err = nil
	if invalidated {
		e.Status = StatusStale
	} else {
		e.Status = StatusFresh
	}
	return e.Entry, nil
}
