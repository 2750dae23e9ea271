package services

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"testing"

	sqlite "github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/recipe-cache-sync/internal/domain"
	"github.com/tbourn/recipe-cache-sync/internal/querystore"
	"github.com/tbourn/recipe-cache-sync/internal/upstream"
)

// ---------- database ----------

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:svc_%s?mode=memory&cache=shared", uuid.NewString())

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&domain.Notification{}, &domain.Idempotency{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

// ---------- upstream fakes ----------

// fakeMutator records every dispatch and answers with body/err.
type fakeMutator struct {
	mu    sync.Mutex
	calls []upstream.Mutation
	body  []byte
	err   error

	// started, when non-nil, receives once per call before gate is awaited.
	started chan struct{}
	// gate, when non-nil, blocks each call until it is closed.
	gate chan struct{}
}

func (f *fakeMutator) Mutate(_ context.Context, m upstream.Mutation) ([]byte, error) {
	f.mu.Lock()
	f.calls = append(f.calls, m)
	body, err, started, gate := f.body, f.err, f.started, f.gate
	f.mu.Unlock()

	if started != nil {
		started <- struct{}{}
	}
	if gate != nil {
		<-gate
	}
	return body, err
}

func (f *fakeMutator) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeMutator) last(t *testing.T) upstream.Mutation {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.calls) == 0 {
		t.Fatalf("no mutation dispatched")
	}
	return f.calls[len(f.calls)-1]
}

// fetchLog counts fetches per key and returns "<key>#<n>".
type fetchLog struct {
	mu    sync.Mutex
	calls map[string]int
	err   error
}

func newFetchLog() *fetchLog { return &fetchLog{calls: map[string]int{}} }

func (f *fetchLog) fetch(_ context.Context, key domain.QueryKey) (any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[key.String()]++
	if f.err != nil {
		return nil, f.err
	}
	return key.String() + "#" + strconv.Itoa(f.calls[key.String()]), nil
}

func (f *fetchLog) count(key domain.QueryKey) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[key.String()]
}

func (f *fetchLog) total() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		n += c
	}
	return n
}

func (f *fetchLog) setErr(err error) {
	f.mu.Lock()
	f.err = err
	f.mu.Unlock()
}

func newTestStore(t *testing.T, f *fetchLog, clk clockwork.Clock) *querystore.Store {
	t.Helper()
	var opts []querystore.Option
	if clk != nil {
		opts = append(opts, querystore.WithClock(clk))
	}
	s := querystore.New(opts...)
	for _, e := range []domain.EntityType{
		domain.EntityRecipeList, domain.EntityRecipeStats,
		domain.EntityMealPlanList, domain.EntityMealPlanStats,
	} {
		s.Register(e, f.fetch)
	}
	return s
}

// seedFresh loads every key so it starts out fresh.
func seedFresh(t *testing.T, s *querystore.Store, keys ...domain.QueryKey) {
	t.Helper()
	for _, k := range keys {
		if _, err := s.Get(context.Background(), k); err != nil {
			t.Fatalf("seed %s: %v", k, err)
		}
	}
}

func statusOf(t *testing.T, s *querystore.Store, k domain.QueryKey) querystore.Status {
	t.Helper()
	e, ok := s.Snapshot(k)
	if !ok {
		t.Fatalf("no entry for %s", k)
	}
	return e.Status
}

// ---------- notifications ----------

type recordingNotifier struct {
	mu    sync.Mutex
	items []*domain.Notification
}

func (r *recordingNotifier) Notify(_ context.Context, n *domain.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = append(r.items, n)
	return nil
}

func (r *recordingNotifier) all() []*domain.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*domain.Notification(nil), r.items...)
}

// ---------- keys ----------

func boolPtr(b bool) *bool { return &b }

var (
	pendingPage1 = domain.NewQueryKey(domain.EntityRecipeList, domain.Filter{Approved: boolPtr(false), Page: 1})
	approvedList = domain.NewQueryKey(domain.EntityRecipeList, domain.Filter{Approved: boolPtr(true)})
	recipeStats  = domain.StatsKey(domain.ResourceRecipe)
	mealPlanList = domain.NewQueryKey(domain.EntityMealPlanList, domain.Filter{})
	mealStats    = domain.StatsKey(domain.ResourceMealPlan)
)

func newTestExecutor(t *testing.T, m Mutator, store *querystore.Store) (*MutationExecutor, *recordingNotifier) {
	t.Helper()
	n := &recordingNotifier{}
	return &MutationExecutor{
		Upstream: m,
		Policy:   &InvalidationPolicy{Cache: store},
		Tracker:  NewPendingTracker(),
		Notifier: n,
	}, n
}
