// Package domain – mutations and invalidation instructions.
//
// A MutationRecord describes one logical write from dispatch to resolution.
// Records are ephemeral: they are never persisted and are dropped once their
// invalidation instructions have been applied.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// MutationKind enumerates the writes the executor knows how to dispatch.
type MutationKind string

const (
	KindApprove       MutationKind = "approve"
	KindUnapprove     MutationKind = "unapprove"
	KindDelete        MutationKind = "delete"
	KindBulkApprove   MutationKind = "bulkApprove"
	KindBulkUnapprove MutationKind = "bulkUnapprove"
	KindBulkDelete    MutationKind = "bulkDelete"
)

// Valid reports whether k is a known mutation kind.
func (k MutationKind) Valid() bool {
	switch k {
	case KindApprove, KindUnapprove, KindDelete, KindBulkApprove, KindBulkUnapprove, KindBulkDelete:
		return true
	}
	return false
}

// IsBulk reports whether k targets a batch of ids in one request.
func (k MutationKind) IsBulk() bool {
	return k == KindBulkApprove || k == KindBulkUnapprove || k == KindBulkDelete
}

// Verb returns the past-tense verb used in notifications ("approved").
func (k MutationKind) Verb() string {
	switch k {
	case KindApprove, KindBulkApprove:
		return "approved"
	case KindUnapprove, KindBulkUnapprove:
		return "unapproved"
	default:
		return "deleted"
	}
}

// Infinitive returns the verb in infinitive form ("approve").
func (k MutationKind) Infinitive() string {
	switch k {
	case KindApprove, KindBulkApprove:
		return "approve"
	case KindUnapprove, KindBulkUnapprove:
		return "unapprove"
	default:
		return "delete"
	}
}

// BulkOp is the user-facing name of a bulk operation.
type BulkOp string

const (
	BulkApprove   BulkOp = "approve"
	BulkUnapprove BulkOp = "unapprove"
	BulkDelete    BulkOp = "delete"
)

// Kind maps a bulk operation to its mutation kind. ok is false for unknown ops.
func (o BulkOp) Kind() (kind MutationKind, ok bool) {
	switch o {
	case BulkApprove:
		return KindBulkApprove, true
	case BulkUnapprove:
		return KindBulkUnapprove, true
	case BulkDelete:
		return KindBulkDelete, true
	}
	return "", false
}

// Outcome is the resolution state of a MutationRecord.
type Outcome string

const (
	OutcomePending        Outcome = "pending"
	OutcomeSuccess        Outcome = "success"
	OutcomePartialSuccess Outcome = "partialSuccess"
	OutcomeFailure        Outcome = "failure"
)

// Changed reports whether the outcome implies server-side state changed.
func (o Outcome) Changed() bool {
	return o == OutcomeSuccess || o == OutcomePartialSuccess
}

// MutationRecord tracks one logical write.
type MutationRecord struct {
	ID          string
	Kind        MutationKind
	Resource    Resource
	AffectedIDs []string
	IssuedAt    time.Time
	ResolvedAt  time.Time
	Outcome     Outcome
	Succeeded   int
	Failed      int
	// AffectedUnknown is set when a partial outcome did not say which ids
	// changed. AffectedIDs is then empty.
	AffectedUnknown bool
}

// NewMutationRecord starts a pending record for kind on resource.
func NewMutationRecord(kind MutationKind, res Resource, ids []string, now time.Time) *MutationRecord {
	return &MutationRecord{
		ID:          uuid.NewString(),
		Kind:        kind,
		Resource:    res,
		AffectedIDs: append([]string(nil), ids...),
		IssuedAt:    now,
		Outcome:     OutcomePending,
	}
}

// Resolve finalizes the record. ids replaces AffectedIDs when non-nil so a
// partially successful batch only carries the entities that changed. A
// partial outcome without ids clears AffectedIDs and sets AffectedUnknown.
func (m *MutationRecord) Resolve(outcome Outcome, ids []string, now time.Time) {
	m.Outcome = outcome
	m.ResolvedAt = now
	switch {
	case ids != nil:
		m.AffectedIDs = append([]string(nil), ids...)
	case outcome == OutcomePartialSuccess:
		m.AffectedIDs = nil
		m.AffectedUnknown = true
	}
}

// Action is what the query store should do with a key.
type Action string

const (
	ActionMarkStale  Action = "markStale"
	ActionRefetchNow Action = "refetchNow"
)

// InvalidationInstruction is a declarative request against the query store.
// Applying the same instruction twice has the same effect as applying it once.
type InvalidationInstruction struct {
	Key    QueryKey `json:"key"`
	Action Action   `json:"action"`
}

// InvalidationEvent is the wire form of a resolved mutation broadcast to peer
// instances so their caches are invalidated as well.
type InvalidationEvent struct {
	Origin     string       `json:"origin"`
	MutationID string       `json:"mutation_id"`
	Resource   Resource     `json:"resource"`
	Kind       MutationKind `json:"kind"`
	Outcome    Outcome      `json:"outcome"`
	At         time.Time    `json:"at"`
}
