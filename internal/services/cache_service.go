// Package services – CacheService
//
// CacheService is the surface the HTTP layer talks to. It owns the wiring
// between the query store, the mutation executor, the bulk coordinator, the
// invalidation policy, the refresh scheduler and the peer bus, and keeps the
// registry of mounted views.
//
// A view is a consumer (an admin grid, a pending queue, a customer's recipe
// list) that has mounted one query key. Mounting tracks the key in the store
// so invalidation passes see it, and, for an authenticated user, starts a
// periodic refresh of the key and its resource's stats. Unmount and logout
// release that refresh.
package services

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/tbourn/recipe-cache-sync/internal/bus"
	"github.com/tbourn/recipe-cache-sync/internal/domain"
	"github.com/tbourn/recipe-cache-sync/internal/querystore"
	"github.com/tbourn/recipe-cache-sync/internal/upstream"
)

// ViewSpec describes a view to mount.
type ViewSpec struct {
	UserID string
	Key    domain.QueryKey
	// RefreshInterval overrides the service default for this view.
	RefreshInterval time.Duration
}

// View is a mounted consumer of one query key.
type View struct {
	ID              string          `json:"id"`
	UserID          string          `json:"user_id"`
	Key             domain.QueryKey `json:"key"`
	RefreshInterval time.Duration   `json:"refresh_interval"`
	MountedAt       time.Time       `json:"mounted_at"`
	// Refreshing is true when a periodic refresh runs for the view.
	Refreshing bool `json:"refreshing"`

	stop func()
}

// CacheServiceConfig holds the collaborators of a CacheService.
type CacheServiceConfig struct {
	Store    *querystore.Store
	Upstream Mutator
	Notifier Notifier
	// Bus fans resolved mutations out to peers. Nil disables it.
	Bus             bus.Bus
	Clock           clockwork.Clock
	Log             *zerolog.Logger
	RefreshInterval time.Duration
}

// CacheService ties the cache-sync components together.
type CacheService struct {
	Store     *querystore.Store
	Tracker   *PendingTracker
	Policy    *InvalidationPolicy
	Executor  *MutationExecutor
	Bulk      *BulkCoordinator
	Scheduler *RefreshScheduler
	Bus       bus.Bus

	clock    clockwork.Clock
	log      zerolog.Logger
	interval time.Duration

	ctx    context.Context
	cancel context.CancelFunc

	mu    sync.Mutex
	views map[string]*View
	loops map[int]func()
	next  int
}

// NewCacheService wires a CacheService from cfg.
func NewCacheService(cfg CacheServiceConfig) *CacheService {
	clk := cfg.Clock
	if clk == nil {
		clk = clockwork.NewRealClock()
	}
	lg := log.Logger
	if cfg.Log != nil {
		lg = *cfg.Log
	}
	b := cfg.Bus
	if b == nil {
		b = bus.Nop{}
	}
	interval := cfg.RefreshInterval
	if interval <= 0 {
		interval = DefaultRefreshInterval
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &CacheService{
		Store:    cfg.Store,
		Tracker:  NewPendingTracker(),
		Bus:      b,
		clock:    clk,
		log:      lg,
		interval: interval,
		ctx:      ctx,
		cancel:   cancel,
		views:    make(map[string]*View),
		loops:    make(map[int]func()),
	}
	s.Policy = &InvalidationPolicy{Cache: cfg.Store, Log: &s.log}
	s.Executor = &MutationExecutor{
		Upstream:   cfg.Upstream,
		Policy:     s.Policy,
		Tracker:    s.Tracker,
		Notifier:   cfg.Notifier,
		Clock:      clk,
		Log:        &s.log,
		OnResolved: s.publish,
	}
	s.Bulk = &BulkCoordinator{Executor: s.Executor}
	s.Scheduler = &RefreshScheduler{Store: cfg.Store, Tracker: s.Tracker, Clock: clk, Log: &s.log}
	return s
}

// ---------- reads ----------

// Get reads key through the store.
func (s *CacheService) Get(ctx context.Context, key domain.QueryKey) (querystore.Entry, error) {
	return s.Store.Get(ctx, key)
}

// Entries returns a snapshot of every cached entry.
func (s *CacheService) Entries() []querystore.Entry {
	return s.Store.Entries()
}

// ---------- mutations ----------

// Execute runs a single mutation.
func (s *CacheService) Execute(ctx context.Context, req MutationRequest) (*Resolution, error) {
	return s.Executor.Execute(ctx, req, Hooks{})
}

// RunBulk runs a bulk mutation on a selection.
func (s *CacheService) RunBulk(ctx context.Context, req BulkRequest) (*BulkResult, error) {
	return s.Bulk.Run(ctx, req)
}

// ---------- invalidation ----------

// InvalidateRecipes marks every recipe query stale and refetches the active
// recipe keys of mounted views and the recipe stats. The returned Dispatch
// may be waited on; it is nil when nothing was dispatched.
func (s *CacheService) InvalidateRecipes(ctx context.Context) *querystore.Dispatch {
	return s.InvalidateResource(ctx, domain.ResourceRecipe)
}

// InvalidateResource is InvalidateRecipes for any resource.
func (s *CacheService) InvalidateResource(ctx context.Context, res domain.Resource) *querystore.Dispatch {
	d := s.Policy.ApplyResource(ctx, res, s.activeKeys(res))
	s.broadcast(ctx, domain.InvalidationEvent{
		Resource: res,
		Outcome:  domain.OutcomeSuccess,
		At:       s.clock.Now(),
	})
	return d
}

// HandleBulkOperation runs the invalidation pass for a bulk operation on
// recipes that was resolved elsewhere. A non-positive affectedCount means
// nothing changed server-side and is a no-op. It returns once the
// instructions are dispatched, not when the refetches complete.
func (s *CacheService) HandleBulkOperation(ctx context.Context, op domain.BulkOp, affectedCount int) (*querystore.Dispatch, error) {
	return s.HandleResourceBulkOperation(ctx, domain.ResourceRecipe, op, affectedCount)
}

// HandleResourceBulkOperation is HandleBulkOperation for any resource.
func (s *CacheService) HandleResourceBulkOperation(ctx context.Context, res domain.Resource, op domain.BulkOp, affectedCount int) (*querystore.Dispatch, error) {
	kind, ok := op.Kind()
	if !ok || !res.Valid() {
		return nil, ErrInvalidMutation
	}
	if affectedCount <= 0 {
		return nil, nil
	}
	d := s.Policy.ApplyResource(ctx, res, s.activeKeys(res))
	s.broadcast(ctx, domain.InvalidationEvent{
		Resource: res,
		Kind:     kind,
		Outcome:  domain.OutcomeSuccess,
		At:       s.clock.Now(),
	})
	return d, nil
}

// ---------- periodic refresh ----------

// StartPeriodicRefresh refreshes the stats keys of every resource and the
// keys of all mounted views every interval. The returned teardown stops the
// loop; after it returns no further refetch is issued by it.
func (s *CacheService) StartPeriodicRefresh(interval time.Duration) (stop func()) {
	if interval <= 0 {
		interval = s.interval
	}
	return s.startLoop(interval, s.periodicKeys)
}

func (s *CacheService) startLoop(interval time.Duration, keys KeySource) func() {
	halt := s.Scheduler.Start(s.ctx, interval, keys)

	s.mu.Lock()
	id := s.next
	s.next++
	s.loops[id] = halt
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.loops, id)
		s.mu.Unlock()
		halt()
	}
}

func (s *CacheService) periodicKeys() []domain.QueryKey {
	keys := []domain.QueryKey{
		domain.StatsKey(domain.ResourceRecipe),
		domain.StatsKey(domain.ResourceMealPlan),
	}
	s.mu.Lock()
	for _, v := range s.views {
		keys = append(keys, v.Key)
	}
	s.mu.Unlock()
	return uniqueKeys(keys)
}

// ---------- views ----------

// MountView registers a view and loads its key. When spec.UserID is set the
// view's key and its resource's stats key are refreshed periodically until
// the view is unmounted.
//
// The refresh is released on every failure path. A failed initial load does
// not fail the mount (the entry carries the error) unless upstream rejected
// the service credentials.
func (s *CacheService) MountView(ctx context.Context, spec ViewSpec) (*View, error) {
	if !spec.Key.Entity.Valid() {
		return nil, domain.ErrInvalidQueryKey
	}
	interval := spec.RefreshInterval
	if interval <= 0 {
		interval = s.interval
	}
	v := &View{
		ID:              uuid.NewString(),
		UserID:          spec.UserID,
		Key:             spec.Key,
		RefreshInterval: interval,
		MountedAt:       s.clock.Now(),
	}

	s.Store.Track(spec.Key)
	if spec.UserID != "" {
		key := spec.Key
		stats := domain.StatsKey(key.Entity.Resource())
		v.stop = s.startLoop(interval, func() []domain.QueryKey {
			return uniqueKeys([]domain.QueryKey{key, stats})
		})
		v.Refreshing = true
	}

	release := func() {
		if v.stop != nil {
			v.stop()
		}
	}

	if _, err := s.Store.Get(ctx, spec.Key); err != nil {
		if ctx.Err() != nil {
			release()
			return nil, ctx.Err()
		}
		var se *upstream.StatusError
		if errors.As(err, &se) && se.AuthFailure() {
			release()
			return nil, ErrAuthExpired
		}
		s.log.Debug().Err(err).Str("key", spec.Key.String()).Msg("initial view load failed")
	}

	s.mu.Lock()
	s.views[v.ID] = v
	s.mu.Unlock()

	s.log.Debug().Str("view_id", v.ID).Str("key", v.Key.String()).Bool("refreshing", v.Refreshing).Msg("view mounted")
	return v.clone(), nil
}

// UnmountView stops the view's refresh and forgets it.
func (s *CacheService) UnmountView(id string) error {
	s.mu.Lock()
	v, ok := s.views[id]
	delete(s.views, id)
	s.mu.Unlock()
	if !ok {
		return ErrUnknownView
	}
	if v.stop != nil {
		v.stop()
	}
	s.log.Debug().Str("view_id", id).Msg("view unmounted")
	return nil
}

// Logout unmounts every view of userID and returns how many were removed.
func (s *CacheService) Logout(userID string) int {
	s.mu.Lock()
	var gone []*View
	for id, v := range s.views {
		if v.UserID == userID {
			gone = append(gone, v)
			delete(s.views, id)
		}
	}
	s.mu.Unlock()
	for _, v := range gone {
		if v.stop != nil {
			v.stop()
		}
	}
	return len(gone)
}

// View returns the mounted view id.
func (s *CacheService) View(id string) (*View, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.views[id]
	if !ok {
		return nil, false
	}
	return v.clone(), true
}

// Views returns the mounted views of userID, oldest first. An empty userID
// returns every view.
func (s *CacheService) Views(userID string) []View {
	s.mu.Lock()
	out := make([]View, 0, len(s.views))
	for _, v := range s.views {
		if userID == "" || v.UserID == userID {
			out = append(out, *v.clone())
		}
	}
	s.mu.Unlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].MountedAt.Equal(out[j].MountedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].MountedAt.Before(out[j].MountedAt)
	})
	return out
}

// ActiveKey returns the key of view id, or nil if it is not mounted.
func (s *CacheService) ActiveKey(id string) *domain.QueryKey {
	if id == "" {
		return nil
	}
	v, ok := s.View(id)
	if !ok {
		return nil
	}
	k := v.Key
	return &k
}

func (s *CacheService) activeKeys(res domain.Resource) []domain.QueryKey {
	s.mu.Lock()
	keys := make([]domain.QueryKey, 0, len(s.views))
	for _, v := range s.views {
		if v.Key.Entity.Resource() == res {
			keys = append(keys, v.Key)
		}
	}
	s.mu.Unlock()
	sortKeys(keys)
	return uniqueKeys(keys)
}

func (v *View) clone() *View {
	c := *v
	c.stop = nil
	return &c
}

// ---------- peers ----------

// Listen applies invalidation events published by peer instances until the
// bus is closed.
func (s *CacheService) Listen(ctx context.Context) error {
	return s.Bus.Subscribe(ctx, s.applyPeer)
}

func (s *CacheService) applyPeer(ctx context.Context, ev domain.InvalidationEvent) {
	busEventsTotal.WithLabelValues("in").Inc()
	if !ev.Outcome.Changed() || !ev.Resource.Valid() {
		return
	}
	s.log.Debug().
		Str("origin", ev.Origin).
		Str("mutation_id", ev.MutationID).
		Str("resource", string(ev.Resource)).
		Msg("peer invalidation")
	s.Policy.ApplyResource(ctx, ev.Resource, s.activeKeys(ev.Resource))
}

func (s *CacheService) publish(ctx context.Context, rec domain.MutationRecord) {
	s.broadcast(ctx, domain.InvalidationEvent{
		MutationID: rec.ID,
		Resource:   rec.Resource,
		Kind:       rec.Kind,
		Outcome:    rec.Outcome,
		At:         rec.ResolvedAt,
	})
}

func (s *CacheService) broadcast(ctx context.Context, ev domain.InvalidationEvent) {
	if _, nop := s.Bus.(bus.Nop); nop {
		return
	}
	busEventsTotal.WithLabelValues("out").Inc()
	if err := s.Bus.Publish(context.WithoutCancel(ctx), ev); err != nil {
		s.log.Warn().Err(err).Str("resource", string(ev.Resource)).Msg("invalidation broadcast failed")
	}
}

// ---------- lifecycle ----------

// Close stops every refresh loop, including those of mounted views.
func (s *CacheService) Close() {
	s.mu.Lock()
	loops := make([]func(), 0, len(s.loops))
	for _, halt := range s.loops {
		loops = append(loops, halt)
	}
	s.loops = make(map[int]func())
	s.views = make(map[string]*View)
	s.mu.Unlock()

	s.cancel()
	for _, halt := range loops {
		halt()
	}
}

func uniqueKeys(keys []domain.QueryKey) []domain.QueryKey {
	out := keys[:0:0]
	seen := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		if _, dup := seen[k.String()]; dup {
			continue
		}
		seen[k.String()] = struct{}{}
		out = append(out, k)
	}
	return out
}
