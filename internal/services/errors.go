// Package services implements the cache-sync core: the mutation executor,
// the bulk operation coordinator, the cache invalidation policy, the periodic
// refresh scheduler and the facade that ties them to the query store.
//
// This file centralizes the service-level error values so that they can be
// consistently returned by service methods and checked by callers.
//
// These errors are intended for internal use by the service layer; translation
// into user-facing messages or HTTP status codes is performed at the handler
// layer.
package services

import (
	"errors"
	"fmt"

	"github.com/tbourn/recipe-cache-sync/internal/domain"
)

var (
	// ErrAuthExpired indicates the upstream API rejected the caller's
	// credentials (401/403). It is reported, never retried.
	ErrAuthExpired = errors.New("authentication expired")

	// ErrNoSelection is returned when a bulk operation is invoked with no ids.
	// It is raised before any network call.
	ErrNoSelection = errors.New("no items selected")

	// ErrMutationFailed is the class of every non-auth mutation failure. Use
	// errors.As with *MutationError to read the reason.
	ErrMutationFailed = errors.New("mutation failed")

	// ErrPartialBulkFailure marks a bulk operation that succeeded for only a
	// subset of ids. It is not a hard error; see *PartialFailureError.
	ErrPartialBulkFailure = errors.New("bulk operation partially failed")

	// ErrRefetchFailed is recorded by the periodic scheduler when a refresh
	// fails. It is logged and never surfaced to views.
	ErrRefetchFailed = errors.New("refetch failed")

	// ErrUnknownView is returned when a view id is not mounted.
	ErrUnknownView = errors.New("view not found")

	// ErrInvalidMutation is returned for a kind/resource combination the
	// executor cannot dispatch.
	ErrInvalidMutation = errors.New("invalid mutation")
)

// MutationError carries the reason a mutation failed. Message is the
// server's own message when it sent one, otherwise a generic reason.
type MutationError struct {
	Kind    domain.MutationKind
	Status  int
	Message string
	Err     error
}

func (e *MutationError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s failed", e.Kind)
	}
	return e.Message
}

// Is reports ErrMutationFailed as a match so callers can branch on the class.
func (e *MutationError) Is(target error) bool { return target == ErrMutationFailed }

func (e *MutationError) Unwrap() error { return e.Err }

// PartialFailureError describes a bulk operation that changed only some of
// the requested entities.
type PartialFailureError struct {
	Kind      domain.MutationKind
	Succeeded int
	Failed    int
	Total     int
}

func (e *PartialFailureError) Error() string {
	return fmt.Sprintf("%d of %d %s, %d failed", e.Succeeded, e.Total, e.Kind.Verb(), e.Failed)
}

func (e *PartialFailureError) Is(target error) bool { return target == ErrPartialBulkFailure }
