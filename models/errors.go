package models

import "errors"

// Domain error taxonomy. Handlers map these to HTTP status codes with
// errors.Is; infrastructure failures are wrapped with %w and fall through
// to 500.
var (
	// ErrValidation marks malformed input: bad coordinates, unknown
	// category or status, missing rejection reason.
	ErrValidation = errors.New("validation failed")

	// ErrInsufficientRights marks a transition the actor's classification
	// has no edge for. Never retried automatically.
	ErrInsufficientRights = errors.New("insufficient rights")

	// ErrNotFound marks an unknown report id.
	ErrNotFound = errors.New("report not found")

	// ErrConflict marks an optimistic-concurrency write collision that
	// persisted after one internal retry.
	ErrConflict = errors.New("report was modified concurrently")

	// ErrNoStaffAvailable marks an assignment that found zero eligible
	// staff. A legitimate business outcome, not an exception path.
	ErrNoStaffAvailable = errors.New("no staff available for position")

	// ErrCategoryNotConfigured marks a category with no responsible role
	// configured. The router never guesses.
	ErrCategoryNotConfigured = errors.New("no role configured for category")

	// ErrOutsideBoundary marks a report location outside the municipal
	// service area (or a malformed coordinate, treated identically).
	ErrOutsideBoundary = errors.New("location outside municipality boundary")
)
