// Package services – MutationExecutor
//
// This file implements MutationExecutor, which wraps a single write against
// the upstream API with dispatch, error classification, the invalidation
// pass and the user notification.
//
// Guarantees:
//   - exactly one upstream request per Execute call; never retried
//   - 401/403 become ErrAuthExpired, every other failure a *MutationError
//     carrying the server's message when it sent one
//   - exactly one notification per mutation, whatever the outcome
//   - the cache is only touched when the outcome says server state changed
//
// The write is dispatched on a context detached from the caller's
// cancellation: once sent, a mutation is never abandoned. If the caller has
// gone away by the time the response arrives, OnSuccess/OnError are skipped
// but invalidation and the notification still happen.
package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/recipe-cache-sync/internal/domain"
	"github.com/tbourn/recipe-cache-sync/internal/querystore"
	"github.com/tbourn/recipe-cache-sync/internal/upstream"
)

// Mutator dispatches one write upstream and returns the raw 2xx body.
type Mutator interface {
	Mutate(ctx context.Context, m upstream.Mutation) ([]byte, error)
}

// Notifier delivers user-visible notifications.
type Notifier interface {
	Notify(ctx context.Context, n *domain.Notification) error
}

// MutationRequest describes one logical write.
type MutationRequest struct {
	Kind      domain.MutationKind
	Resource  domain.Resource
	IDs       []string
	UserID    string
	AuthToken string
	// ActiveKey is the query of the view the actor acted in, if any. It is
	// refetched immediately after a successful write.
	ActiveKey *domain.QueryKey
}

// Description is how a response body translates into an outcome.
type Description struct {
	Outcome domain.Outcome
	// SucceededIDs narrows the record's affected ids. Nil keeps the
	// requested ids.
	SucceededIDs []string
	Succeeded    int
	Failed       int
	Level        domain.NotificationLevel
	Text         string
	// Err is returned from Execute when Outcome is failure.
	Err error
}

// Resolution is the result of a resolved mutation.
type Resolution struct {
	Record       domain.MutationRecord
	Notification *domain.Notification
	Raw          []byte
	// Dispatch tracks the refetches started by the invalidation pass. Nil
	// when nothing was invalidated.
	Dispatch *querystore.Dispatch
}

// Hooks customize one Execute call. All fields are optional.
type Hooks struct {
	// Describe interprets the raw response body. The default treats any
	// 2xx as a full success of the requested ids.
	Describe func(raw []byte) (Description, error)
	// OnSuccess runs after invalidation for success and partial outcomes.
	OnSuccess func(*Resolution)
	// OnError runs for auth and mutation failures.
	OnError func(error)
}

// MutationExecutor dispatches writes and drives the follow-up work.
type MutationExecutor struct {
	Upstream Mutator
	Policy   *InvalidationPolicy
	Tracker  *PendingTracker
	Notifier Notifier
	Clock    clockwork.Clock
	Log      *zerolog.Logger

	// OnResolved, when set, observes every record that changed server
	// state (the facade uses it to broadcast to peer instances).
	OnResolved func(ctx context.Context, rec domain.MutationRecord)
}

// Execute dispatches req and resolves it. The returned error is nil for
// success and partial outcomes; otherwise it is ErrAuthExpired, a
// *MutationError or ErrInvalidMutation. A Resolution is returned whenever the
// request was dispatched, including failures.
func (e *MutationExecutor) Execute(ctx context.Context, req MutationRequest, hooks Hooks) (*Resolution, error) {
	if !req.Kind.Valid() || !req.Resource.Valid() || len(req.IDs) == 0 {
		return nil, ErrInvalidMutation
	}
	if !req.Kind.IsBulk() && len(req.IDs) != 1 {
		return nil, fmt.Errorf("%w: %s takes exactly one id", ErrInvalidMutation, req.Kind)
	}

	tr := otel.Tracer("services/MutationExecutor")
	ctx, span := tr.Start(ctx, "Execute",
		trace.WithAttributes(
			attribute.String("mutation.kind", string(req.Kind)),
			attribute.String("resource", string(req.Resource)),
			attribute.Int("ids", len(req.IDs)),
			attribute.String("user.id", req.UserID),
		),
	)
	defer span.End()

	clk := e.clock()
	rec := domain.NewMutationRecord(req.Kind, req.Resource, req.IDs, clk.Now())
	span.SetAttributes(attribute.String("mutation.id", rec.ID))
	lg := e.logger().With().Str("mutation_id", rec.ID).Str("kind", string(req.Kind)).Logger()

	end := func() {}
	if e.Tracker != nil {
		end = e.Tracker.Begin(req.Resource)
	}
	mutationsInflight.Inc()
	raw, err := e.Upstream.Mutate(context.WithoutCancel(ctx), upstream.Mutation{
		Kind:      req.Kind,
		Resource:  req.Resource,
		IDs:       rec.AffectedIDs,
		AuthToken: req.AuthToken,
	})
	mutationsInflight.Dec()

	var d Description
	if err != nil {
		d = describeFailure(req, err)
	} else {
		describe := hooks.Describe
		if describe == nil {
			describe = func([]byte) (Description, error) { return describeSuccess(req), nil }
		}
		var derr error
		d, derr = describe(raw)
		if derr != nil {
			// A 2xx means the write landed; invalidate as for a full success.
			lg.Warn().Err(derr).Msg("unreadable mutation response; assuming success")
			d = describeSuccess(req)
		}
	}

	rec.Resolve(d.Outcome, d.SucceededIDs, clk.Now())
	rec.Succeeded, rec.Failed = d.Succeeded, d.Failed
	res := &Resolution{Record: *rec, Raw: raw}

	if rec.Outcome.Changed() {
		if e.Policy != nil {
			res.Dispatch = e.Policy.ApplyRecord(ctx, rec, req.ActiveKey)
		}
		if e.OnResolved != nil {
			e.OnResolved(ctx, *rec)
		}
	}
	// The pending window closes once the invalidation has been issued, so
	// the scheduler cannot refresh in between.
	end()

	res.Notification = e.notify(ctx, req, rec, d, &lg)
	mutationsTotal.WithLabelValues(string(req.Kind), string(rec.Outcome)).Inc()
	span.SetAttributes(attribute.String("mutation.outcome", string(rec.Outcome)))

	orphaned := ctx.Err() != nil
	if orphaned {
		lg.Debug().Msg("caller gone before resolution; skipping callbacks")
	}

	if rec.Outcome == domain.OutcomeFailure {
		ferr := d.Err
		if ferr == nil {
			ferr = &MutationError{Kind: req.Kind, Message: d.Text}
		}
		span.RecordError(ferr)
		span.SetStatus(codes.Error, ferr.Error())
		lg.Info().Err(ferr).Msg("mutation failed")
		if hooks.OnError != nil && !orphaned {
			hooks.OnError(ferr)
		}
		return res, ferr
	}

	lg.Info().
		Str("outcome", string(rec.Outcome)).
		Int("succeeded", rec.Succeeded).
		Int("failed", rec.Failed).
		Msg("mutation resolved")
	if hooks.OnSuccess != nil && !orphaned {
		hooks.OnSuccess(res)
	}
	return res, nil
}

func (e *MutationExecutor) notify(ctx context.Context, req MutationRequest, rec *domain.MutationRecord, d Description, lg *zerolog.Logger) *domain.Notification {
	n := &domain.Notification{
		ID:         uuid.NewString(),
		UserID:     req.UserID,
		MutationID: rec.ID,
		Kind:       req.Kind,
		Level:      d.Level,
		Text:       d.Text,
		CreatedAt:  e.clock().Now(),
	}
	if e.Notifier == nil {
		return n
	}
	if err := e.Notifier.Notify(context.WithoutCancel(ctx), n); err != nil {
		lg.Error().Err(err).Str("notification_id", n.ID).Msg("notification delivery failed")
	}
	return n
}

func (e *MutationExecutor) clock() clockwork.Clock {
	if e.Clock != nil {
		return e.Clock
	}
	return clockwork.NewRealClock()
}

func (e *MutationExecutor) logger() *zerolog.Logger {
	if e.Log != nil {
		return e.Log
	}
	return &log.Logger
}

// describeSuccess is the default description: every requested id changed.
func describeSuccess(req MutationRequest) Description {
	n := len(req.IDs)
	return Description{
		Outcome:   domain.OutcomeSuccess,
		Succeeded: n,
		Level:     domain.LevelSuccess,
		Text:      fmt.Sprintf("%s %s", capitalize(entityLabel(req.Resource, n, !req.Kind.IsBulk())), req.Kind.Verb()),
	}
}

// describeFailure classifies a dispatch error.
func describeFailure(req MutationRequest, err error) Description {
	d := Description{
		Outcome: domain.OutcomeFailure,
		Failed:  len(req.IDs),
		Level:   domain.LevelError,
	}

	var se *upstream.StatusError
	if errors.As(err, &se) {
		if se.AuthFailure() {
			d.Err = ErrAuthExpired
			d.Text = "Your session has expired. Please sign in again."
			return d
		}
		msg := se.Message
		if msg == "" {
			msg = genericFailure(req)
		}
		d.Err = &MutationError{Kind: req.Kind, Status: se.Code, Message: msg, Err: err}
		d.Text = msg
		return d
	}

	msg := genericFailure(req)
	d.Err = &MutationError{Kind: req.Kind, Message: msg, Err: err}
	d.Text = msg
	return d
}

func genericFailure(req MutationRequest) string {
	target := entityLabel(req.Resource, len(req.IDs), !req.Kind.IsBulk())
	if !req.Kind.IsBulk() {
		target = "the " + target
	}
	return fmt.Sprintf("Could not %s %s. Please try again.", req.Kind.Infinitive(), target)
}

// entityLabel renders "recipe", "3 recipes", "1 meal plan", ...
func entityLabel(res domain.Resource, n int, single bool) string {
	noun := "recipe"
	if res == domain.ResourceMealPlan {
		noun = "meal plan"
	}
	if single {
		return noun
	}
	if n != 1 {
		noun += "s"
	}
	return fmt.Sprintf("%d %s", n, noun)
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	if s[0] >= 'a' && s[0] <= 'z' {
		return string(s[0]-'a'+'A') + s[1:]
	}
	return s
}
