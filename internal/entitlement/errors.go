package entitlement

import (
	"errors"
	"fmt"
)

var (
	// ErrUnauthorized is returned when a download is recorded for a profile
	// that is not entitled to it. The route gate should have prevented this.
	ErrUnauthorized = errors.New("download not permitted")
	// ErrProfileNotFound is returned for operations on an identity without a profile.
	ErrProfileNotFound = errors.New("profile not found")
	// ErrPersistenceFailure means the record store rejected a write; the change is not committed.
	ErrPersistenceFailure = errors.New("persistence failure")
	// ErrPlanUnknown is returned for plan identifiers outside the static plan catalog.
	ErrPlanUnknown = errors.New("unknown plan")
	// ErrVersionConflict is a persistence failure caused by a concurrent write to the same profile.
	ErrVersionConflict = fmt.Errorf("%w: profile was modified concurrently", ErrPersistenceFailure)
)
