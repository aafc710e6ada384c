package store

import "errors"

// Lease transition failures. These are surfaced to the caller and never
// auto-retried; repeated identical failures yield the same error.
var (
	// ErrNotFound means no PC with the given id exists.
	ErrNotFound = errors.New("pc not found")

	// ErrAlreadyBusy means a start lost to an existing or concurrent lease.
	ErrAlreadyBusy = errors.New("pc already busy")

	// ErrAlreadyFree means a finish targeted a PC with no active lease.
	ErrAlreadyFree = errors.New("pc already free")

	// ErrNotOwner means a finish came from a user other than the lease holder.
	ErrNotOwner = errors.New("lease held by another user")
)
