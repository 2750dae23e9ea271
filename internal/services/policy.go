// Package services – InvalidationPolicy
//
// The policy decides, for a resolved mutation, which cached queries become
// stale and which are refetched immediately. It is deliberately coarse: any
// change to a resource invalidates every list and stats entry of that
// resource regardless of filters, because filters like approved=false
// change membership when an entity is approved and per-filter reasoning is
// where missed updates come from.
//
// Rules, for resource R:
//  1. every cached key of R's entity types is marked stale
//  2. the active key (the view the actor acted in) is refetched now
//  3. every cached stats key of R, plus the canonical stats key, is
//     refetched now
//
// Keys of other resources are never touched. Failed and pending mutations
// produce no instructions.
package services

import (
	"context"
	"sort"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/recipe-cache-sync/internal/domain"
	"github.com/tbourn/recipe-cache-sync/internal/querystore"
)

// Cache is the subset of the query store the policy drives.
type Cache interface {
	Keys() []domain.QueryKey
	Apply(ctx context.Context, ins []domain.InvalidationInstruction) *querystore.Dispatch
}

// Plan returns the instructions for a resolved mutation record. active is
// the key of the view the actor acted in, or nil.
func Plan(rec *domain.MutationRecord, cached []domain.QueryKey, active *domain.QueryKey) []domain.InvalidationInstruction {
	if rec == nil || !rec.Outcome.Changed() {
		return nil
	}
	var act []domain.QueryKey
	if active != nil {
		act = append(act, *active)
	}
	return PlanResource(rec.Resource, cached, act)
}

// PlanResource returns the instructions for "something in res changed".
//
// Output order is deterministic: markStale instructions sorted by key, then
// refetchNow for the active keys in the given order, then the stats keys
// sorted. A key appears at most once.
func PlanResource(res domain.Resource, cached []domain.QueryKey, active []domain.QueryKey) []domain.InvalidationInstruction {
	if !res.Valid() {
		return nil
	}

	refetch := make([]domain.QueryKey, 0, len(active)+2)
	inRefetch := make(map[string]struct{}, len(active)+2)
	addRefetch := func(k domain.QueryKey) {
		if _, dup := inRefetch[k.String()]; dup {
			return
		}
		inRefetch[k.String()] = struct{}{}
		refetch = append(refetch, k)
	}

	for _, k := range active {
		if k.Entity.Valid() && k.Entity.Resource() == res {
			addRefetch(k)
		}
	}

	stats := []domain.QueryKey{domain.StatsKey(res)}
	for _, k := range cached {
		if k.Entity == res.StatsEntity() {
			stats = append(stats, k)
		}
	}
	sortKeys(stats)
	for _, k := range stats {
		addRefetch(k)
	}

	stale := make([]domain.QueryKey, 0, len(cached))
	seen := make(map[string]struct{}, len(cached))
	for _, k := range cached {
		if !k.Entity.Valid() || k.Entity.Resource() != res {
			continue
		}
		if _, r := inRefetch[k.String()]; r {
			continue
		}
		if _, dup := seen[k.String()]; dup {
			continue
		}
		seen[k.String()] = struct{}{}
		stale = append(stale, k)
	}
	sortKeys(stale)

	out := make([]domain.InvalidationInstruction, 0, len(stale)+len(refetch))
	for _, k := range stale {
		out = append(out, domain.InvalidationInstruction{Key: k, Action: domain.ActionMarkStale})
	}
	for _, k := range refetch {
		out = append(out, domain.InvalidationInstruction{Key: k, Action: domain.ActionRefetchNow})
	}
	return out
}

func sortKeys(keys []domain.QueryKey) {
	sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })
}

// InvalidationPolicy plans and applies invalidation passes against a Cache.
type InvalidationPolicy struct {
	Cache Cache
	Log   *zerolog.Logger
}

// ApplyRecord runs the invalidation pass for a resolved mutation. Nothing is
// applied for failed or pending records; the returned Dispatch is then nil.
func (p *InvalidationPolicy) ApplyRecord(ctx context.Context, rec *domain.MutationRecord, active *domain.QueryKey) *querystore.Dispatch {
	if rec == nil || !rec.Outcome.Changed() {
		return nil
	}
	var act []domain.QueryKey
	if active != nil {
		act = append(act, *active)
	}
	return p.apply(ctx, rec.Resource, act, rec.ID)
}

// ApplyResource runs the invalidation pass for res with the given active keys.
func (p *InvalidationPolicy) ApplyResource(ctx context.Context, res domain.Resource, active []domain.QueryKey) *querystore.Dispatch {
	return p.apply(ctx, res, active, "")
}

func (p *InvalidationPolicy) apply(ctx context.Context, res domain.Resource, active []domain.QueryKey, mutationID string) *querystore.Dispatch {
	tr := otel.Tracer("services/InvalidationPolicy")
	ctx, span := tr.Start(ctx, "Apply",
		trace.WithAttributes(
			attribute.String("resource", string(res)),
			attribute.String("mutation.id", mutationID),
		),
	)
	defer span.End()

	ins := PlanResource(res, p.Cache.Keys(), active)
	if len(ins) == 0 {
		return nil
	}

	var stale, refetch int
	for _, in := range ins {
		if in.Action == domain.ActionRefetchNow {
			refetch++
		} else {
			stale++
		}
	}
	invalidationInstructions.WithLabelValues(string(domain.ActionMarkStale)).Add(float64(stale))
	invalidationInstructions.WithLabelValues(string(domain.ActionRefetchNow)).Add(float64(refetch))
	span.SetAttributes(attribute.Int("instructions.stale", stale), attribute.Int("instructions.refetch", refetch))

	p.logger().Debug().
		Str("resource", string(res)).
		Str("mutation_id", mutationID).
		Int("mark_stale", stale).
		Int("refetch_now", refetch).
		Msg("invalidation pass")

	return p.Cache.Apply(ctx, ins)
}

func (p *InvalidationPolicy) logger() *zerolog.Logger {
	if p.Log != nil {
		return p.Log
	}
	return &log.Logger
}
