// Package services – RefreshScheduler
//
// The scheduler refetches a set of keys on a fixed interval so data changed
// by other actors (another admin, a trainer) shows up without a manual
// reload. It is the bounded-staleness backstop; mutation-driven
// invalidation is the primary mechanism.
//
// Each tick:
//   - keys whose entity type has a pending mutation are skipped; the
//     mutation's own invalidation pass will refresh them
//   - failures are logged at debug level and retried on the next tick
//
// Start returns a teardown func. After it returns no further refetch is
// issued: the loop has exited and any in-flight refetch was cancelled.
package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/tbourn/recipe-cache-sync/internal/domain"
	"github.com/tbourn/recipe-cache-sync/internal/querystore"
)

// DefaultRefreshInterval is used when Start is given a non-positive interval.
const DefaultRefreshInterval = 60 * time.Second

// Refresher is the subset of the query store the scheduler drives.
type Refresher interface {
	Refetch(ctx context.Context, key domain.QueryKey) (querystore.Entry, error)
}

// KeySource returns the keys to refresh on a tick. It is called once per
// tick so the set can change while the scheduler runs.
type KeySource func() []domain.QueryKey

type tickReport struct {
	Refreshed int
	Failed    int
	Skipped   int
}

// RefreshScheduler runs periodic refresh loops.
type RefreshScheduler struct {
	Store   Refresher
	Tracker *PendingTracker
	Clock   clockwork.Clock
	Log     *zerolog.Logger

	// onTick observes each completed tick (tests).
	onTick func(tickReport)
}

// Start begins a refresh loop and returns its teardown func. The loop stops
// when the teardown is called or ctx is done, whichever comes first.
// Teardown is idempotent and blocks until the loop has exited.
func (s *RefreshScheduler) Start(ctx context.Context, interval time.Duration, keys KeySource) (stop func()) {
	if interval <= 0 {
		interval = DefaultRefreshInterval
	}
	clk := s.Clock
	if clk == nil {
		clk = clockwork.NewRealClock()
	}

	loopCtx, cancel := context.WithCancel(ctx)
	ticker := clk.NewTicker(interval)
	done := make(chan struct{})

	go func() {
		defer close(done)
		defer ticker.Stop()
		for {
			select {
			case <-loopCtx.Done():
				return
			case <-ticker.Chan():
				rep := s.tick(loopCtx, keys)
				if s.onTick != nil {
					s.onTick(rep)
				}
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			cancel()
			<-done
		})
	}
}

func (s *RefreshScheduler) tick(ctx context.Context, keys KeySource) tickReport {
	var rep tickReport
	if keys == nil {
		return rep
	}
	for _, key := range keys() {
		if ctx.Err() != nil {
			return rep
		}
		entity := string(key.Entity)
		if s.Tracker != nil && s.Tracker.Pending(key.Entity) {
			rep.Skipped++
			periodicRefreshTotal.WithLabelValues(entity, "skipped").Inc()
			continue
		}
		if _, err := s.Store.Refetch(ctx, key); err != nil {
			if ctx.Err() != nil {
				return rep
			}
			rep.Failed++
			periodicRefreshTotal.WithLabelValues(entity, "failed").Inc()
			s.logger().Debug().Err(fmt.Errorf("%w: %w", ErrRefetchFailed, err)).Str("key", key.String()).Msg("periodic refresh")
			continue
		}
		rep.Refreshed++
		periodicRefreshTotal.WithLabelValues(entity, "ok").Inc()
	}
	return rep
}

func (s *RefreshScheduler) logger() *zerolog.Logger {
	if s.Log != nil {
		return s.Log
	}
	return &log.Logger
}
