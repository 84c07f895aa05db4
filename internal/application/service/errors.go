package service

import (
	"errors"
	"fmt"

	"github.com/garyjia/purchase-approval/internal/domain/approval"
	"github.com/garyjia/purchase-approval/internal/domain/entity"
)

// ErrExtractionUnavailable marks a failed or timed-out extraction attempt.
// It is a soft condition: submission proceeds without extracted data.
var ErrExtractionUnavailable = errors.New("document extraction unavailable")

// IllegalTransitionError reports an action that is not permitted for the
// caller's role in the purchase's current status. Legal carries the actions
// the role could take instead so the caller can explain why.
type IllegalTransitionError struct {
	ID     string
	Status entity.Status
	Action approval.Action
	Legal  []approval.Action
}

func (e *IllegalTransitionError) Error() string {
	return fmt.Sprintf("action %s not permitted on purchase %s in status %s (legal: %v)",
		e.Action, e.ID, e.Status, e.Legal)
}

// ConflictError reports an optimistic-concurrency race lost after the
// single internal retry. The operation is safe to retry by the caller.
type ConflictError struct {
	ID string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("purchase %s was modified concurrently, retry the operation", e.ID)
}

// NotFoundError reports an operation referencing a nonexistent purchase
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("purchase %s not found", e.ID)
}

// DependencyError wraps a storage or network failure from an external
// collaborator. The engine never persists a half-applied operation behind
// one of these.
type DependencyError struct {
	Op  string
	Err error
}

func (e *DependencyError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *DependencyError) Unwrap() error {
	return e.Err
}
