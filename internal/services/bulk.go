// Package services – BulkCoordinator
//
// The coordinator turns a user selection into one bulk request and one
// logical cache event. Selections are trimmed and de-duplicated before
// dispatch; an empty selection is rejected without touching the network.
// The response is normalized to {succeeded, failed, total} and mapped to an
// outcome:
//
//	succeeded == total          → success
//	0 < succeeded < total       → partialSuccess (warning naming both counts)
//	succeeded == 0              → failure (no invalidation)
//
// Only the succeeded subset is handed to the invalidation policy.
package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/tbourn/recipe-cache-sync/internal/domain"
	"github.com/tbourn/recipe-cache-sync/internal/upstream"
)

// BulkRequest is one bulk operation on a selection of ids.
type BulkRequest struct {
	Op        domain.BulkOp
	Resource  domain.Resource
	IDs       []string
	UserID    string
	AuthToken string
	ActiveKey *domain.QueryKey
}

// BulkResult is the normalized outcome of a bulk operation.
type BulkResult struct {
	Kind      domain.MutationKind `json:"kind"`
	Outcome   domain.Outcome      `json:"outcome"`
	Succeeded int                 `json:"succeeded"`
	Failed    int                 `json:"failed"`
	Total     int                 `json:"total"`
	// SucceededIDs is nil when the server reported counts only.
	SucceededIDs []string             `json:"succeeded_ids,omitempty"`
	Notification *domain.Notification `json:"notification,omitempty"`
	Resolution   *Resolution          `json:"-"`
}

// Err returns a *PartialFailureError for partial outcomes and nil otherwise.
func (r *BulkResult) Err() error {
	if r == nil || r.Outcome != domain.OutcomePartialSuccess {
		return nil
	}
	return &PartialFailureError{Kind: r.Kind, Succeeded: r.Succeeded, Failed: r.Failed, Total: r.Total}
}

// BulkCoordinator runs bulk operations through the executor.
type BulkCoordinator struct {
	Executor *MutationExecutor
}

// Run validates the selection, dispatches one bulk request and resolves it.
//
// Errors: ErrNoSelection (nothing dispatched), ErrInvalidMutation,
// ErrAuthExpired, or a *MutationError when every id failed. Partial success
// is not an error; inspect BulkResult.Err.
func (b *BulkCoordinator) Run(ctx context.Context, req BulkRequest) (*BulkResult, error) {
	kind, ok := req.Op.Kind()
	if !ok || !req.Resource.Valid() {
		return nil, ErrInvalidMutation
	}
	ids := DedupeIDs(req.IDs)
	if len(ids) == 0 {
		return nil, ErrNoSelection
	}

	out := &BulkResult{Kind: kind, Total: len(ids)}
	var knownIDs []string
	describe := func(raw []byte) (Description, error) {
		counts, err := upstream.ParseBulkResponse(raw, ids)
		if err != nil {
			return Description{}, err
		}
		knownIDs = counts.SucceededIDs
		return describeBulk(kind, req.Resource, counts), nil
	}

	res, err := b.Executor.Execute(ctx, MutationRequest{
		Kind:      kind,
		Resource:  req.Resource,
		IDs:       ids,
		UserID:    req.UserID,
		AuthToken: req.AuthToken,
		ActiveKey: req.ActiveKey,
	}, Hooks{Describe: describe})
	if res != nil {
		out.Resolution = res
		out.Outcome = res.Record.Outcome
		out.Succeeded = res.Record.Succeeded
		out.Failed = res.Record.Failed
		out.Notification = res.Notification
		if res.Record.Outcome.Changed() {
			out.SucceededIDs = knownIDs
		}
	}
	return out, err
}

// describeBulk maps normalized counts to an outcome and notification text.
func describeBulk(kind domain.MutationKind, res domain.Resource, c upstream.BulkCounts) Description {
	d := Description{
		Succeeded:    c.Succeeded,
		Failed:       c.Failed,
		SucceededIDs: c.SucceededIDs,
	}
	counts := fmt.Sprintf("%d of %d %s, %d failed", c.Succeeded, c.Total, kind.Verb(), c.Failed)

	switch {
	case c.Succeeded == 0:
		d.Outcome = domain.OutcomeFailure
		d.Level = domain.LevelError
		d.Text = counts
		if c.Message != "" {
			d.Text = counts + ": " + c.Message
		}
		d.Err = &MutationError{Kind: kind, Message: d.Text}
	case c.Failed > 0:
		d.Outcome = domain.OutcomePartialSuccess
		d.Level = domain.LevelWarning
		d.Text = counts
	default:
		d.Outcome = domain.OutcomeSuccess
		d.Level = domain.LevelSuccess
		d.Text = fmt.Sprintf("%s %s", capitalize(entityLabel(res, c.Succeeded, false)), kind.Verb())
	}
	return d
}

// DedupeIDs trims ids, drops blanks and removes duplicates, keeping the
// first occurrence order.
func DedupeIDs(ids []string) []string {
	out := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
