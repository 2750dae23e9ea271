// Package bus fans resolved mutations out to peer instances.
//
// Each instance holds its own query cache. When a mutation resolves on one
// instance, the others must invalidate the same resource or their views
// would only catch up on the next periodic refresh. The bus carries a small
// domain.InvalidationEvent; receivers run their own invalidation pass.
//
// Delivery is best effort (Redis pub/sub): a missed event degrades to the
// periodic refresh bound, never to permanently stale data.
package bus

import (
	"context"

	"github.com/tbourn/recipe-cache-sync/internal/domain"
)

// Handler receives events published by other instances.
type Handler func(ctx context.Context, ev domain.InvalidationEvent)

// Bus publishes and receives invalidation events.
type Bus interface {
	Publish(ctx context.Context, ev domain.InvalidationEvent) error
	// Subscribe starts delivering peer events to h. It returns once the
	// subscription is active.
	Subscribe(ctx context.Context, h Handler) error
	Close() error
}

// Nop is the bus used when no broker is configured.
type Nop struct{}

func (Nop) Publish(context.Context, domain.InvalidationEvent) error { return nil }
func (Nop) Subscribe(context.Context, Handler) error                { return nil }
func (Nop) Close() error                                            { return nil }
