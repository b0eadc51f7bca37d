package services

import "errors"

// Domain error taxonomy. Handlers translate these to HTTP codes; the sweep
// treats ErrStoreUnavailable as retryable on the next pass and everything
// else as a per-record failure to log and skip.
var (
	// ErrNotFound marks an unknown request or assignment id.
	ErrNotFound = errors.New("not found")

	// ErrForbidden marks an actor not authorized for this action on this
	// entity.
	ErrForbidden = errors.New("forbidden")

	// ErrConflict marks a duplicate pending request, an occupied assignment
	// slot, or a lost conditional write.
	ErrConflict = errors.New("conflict")

	// ErrWindowExpired marks an accept attempted after the acceptance
	// deadline.
	ErrWindowExpired = errors.New("acceptance window expired")

	// ErrInvalidTarget marks a requester who is not the bus's current
	// driver, or a candidate who cannot drive.
	ErrInvalidTarget = errors.New("invalid swap target")

	// ErrStoreUnavailable marks a transient store failure.
	ErrStoreUnavailable = errors.New("store unavailable")
)

// EndOutcome is the result of ending a temporary assignment. A deferred end
// is not an error: the bus was mid-trip, so the revert is postponed to the
// sweep.
type EndOutcome string

const (
	EndOutcomeEnded    EndOutcome = "ended"
	EndOutcomeDeferred EndOutcome = "deferred"
)
