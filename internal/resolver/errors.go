package resolver

import "errors"

var (
	// ErrInvalidReference marks input that cannot name playable media.
	ErrInvalidReference = errors.New("invalid media reference")

	// ErrUpstreamUnavailable marks a catalog or network failure while
	// resolving a reference that is otherwise well formed.
	ErrUpstreamUnavailable = errors.New("upstream source unavailable")

	// ErrResolutionTimeout marks a resolution that exceeded its deadline.
	ErrResolutionTimeout = errors.New("resolution timed out")
)
