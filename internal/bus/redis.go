package bus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/tbourn/recipe-cache-sync/internal/domain"
)

// DefaultChannel is the pub/sub channel used when none is configured.
const DefaultChannel = "cachesync:invalidations"

// ErrClosed is returned by Subscribe after Close.
var ErrClosed = errors.New("bus: closed")

// RedisBus is a Bus over Redis pub/sub. Events carry the publishing
// instance's origin id; a bus never delivers its own events back to itself.
type RedisBus struct {
	client  *redis.Client
	channel string
	origin  string
	log     zerolog.Logger

	mu     sync.Mutex
	subs   []*redis.PubSub
	wg     sync.WaitGroup
	closed bool
}

// NewRedis builds a bus on client. origin identifies this instance.
func NewRedis(client *redis.Client, channel, origin string, lg *zerolog.Logger) *RedisBus {
	if channel == "" {
		channel = DefaultChannel
	}
	l := log.Logger
	if lg != nil {
		l = *lg
	}
	return &RedisBus{
		client:  client,
		channel: channel,
		origin:  origin,
		log:     l.With().Str("component", "bus").Str("channel", channel).Logger(),
	}
}

// Origin returns this instance's id.
func (b *RedisBus) Origin() string { return b.origin }

// Publish stamps ev with this instance's origin and publishes it.
func (b *RedisBus) Publish(ctx context.Context, ev domain.InvalidationEvent) error {
	ev.Origin = b.origin
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("bus: encode event: %w", err)
	}
	if err := b.client.Publish(ctx, b.channel, data).Err(); err != nil {
		return fmt.Errorf("bus: publish: %w", err)
	}
	return nil
}

// Subscribe delivers peer events to h until Close. Malformed payloads and
// events from this instance are dropped.
func (b *RedisBus) Subscribe(ctx context.Context, h Handler) error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return ErrClosed
	}
	b.mu.Unlock()

	ps := b.client.Subscribe(ctx, b.channel)
	// Wait for the subscription confirmation so events published after
	// Subscribe returns are not missed.
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return fmt.Errorf("bus: subscribe: %w", err)
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		_ = ps.Close()
		return ErrClosed
	}
	b.subs = append(b.subs, ps)
	b.wg.Add(1)
	b.mu.Unlock()

	deliverCtx := context.WithoutCancel(ctx)
	ch := ps.Channel()
	go func() {
		defer b.wg.Done()
		for msg := range ch {
			var ev domain.InvalidationEvent
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				b.log.Warn().Err(err).Msg("dropping malformed invalidation event")
				continue
			}
			if ev.Origin == b.origin {
				continue
			}
			h(deliverCtx, ev)
		}
	}()
	return nil
}

// Close stops every subscription and waits for in-flight deliveries.
func (b *RedisBus) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	subs := b.subs
	b.subs = nil
	b.mu.Unlock()

	var errs []error
	for _, ps := range subs {
		if err := ps.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	b.wg.Wait()
	return errors.Join(errs...)
}
