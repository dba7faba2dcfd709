package player

import (
	"context"
	"errors"

	"github.com/averraz/troubadour/internal/resolver"
	"github.com/averraz/troubadour/internal/sink"
	"github.com/averraz/troubadour/internal/transcode"
)

var (
	// ErrSessionClosed reports an operation against a stopped session.
	ErrSessionClosed = errors.New("session is stopped")
	// ErrWrongState reports a control operation the current state forbids.
	ErrWrongState = errors.New("operation not valid in this state")
	// ErrQueueFull reports an enqueue beyond the configured queue limit.
	ErrQueueFull = errors.New("queue is full")
	// ErrBadPosition reports a 1-based queue position outside the queue.
	ErrBadPosition = errors.New("queue position out of range")
	// ErrBadVolume reports a volume outside the accepted percent range.
	ErrBadVolume = errors.New("volume out of range")
	// ErrNoMatches reports a reference that resolved to nothing playable.
	ErrNoMatches = errors.New("no matches found")
)

// Failure is the closed set of per-track and per-session failure kinds
// shown to the command layer. It carries enough to phrase a user message
// without exposing internal diagnostics.
type Failure int

const (
	FailureInternal Failure = iota
	FailureInvalidReference
	FailureNoMatches
	FailureUpstreamUnavailable
	FailureResolutionTimeout
	FailureSourceStalled
	FailureTranscode
	FailureSeekUnsupported
	FailureTransport
	FailureCancelled
)

func (f Failure) String() string {
	switch f {
	case FailureInvalidReference:
		return "invalid reference"
	case FailureNoMatches:
		return "no matches"
	case FailureUpstreamUnavailable:
		return "upstream unavailable"
	case FailureResolutionTimeout:
		return "resolution timeout"
	case FailureSourceStalled:
		return "source stalled"
	case FailureTranscode:
		return "transcode failure"
	case FailureSeekUnsupported:
		return "seek unsupported"
	case FailureTransport:
		return "transport failure"
	case FailureCancelled:
		return "cancelled"
	default:
		return "internal error"
	}
}

// Classify maps any error from the resolve-transcode-deliver chain onto
// the failure taxonomy. Unknown errors are internal faults.
func Classify(err error) Failure {
	var transportErr *sink.TransportError
	var transcodeErr *transcode.TranscodeError
	switch {
	case errors.Is(err, resolver.ErrInvalidReference):
		return FailureInvalidReference
	case errors.Is(err, ErrNoMatches):
		return FailureNoMatches
	case errors.Is(err, resolver.ErrResolutionTimeout):
		return FailureResolutionTimeout
	case errors.Is(err, resolver.ErrUpstreamUnavailable):
		return FailureUpstreamUnavailable
	case errors.Is(err, transcode.ErrSourceStalled):
		return FailureSourceStalled
	case errors.Is(err, transcode.ErrSeekUnsupported):
		return FailureSeekUnsupported
	case errors.As(err, &transportErr):
		return FailureTransport
	case errors.As(err, &transcodeErr):
		return FailureTranscode
	case errors.Is(err, context.Canceled):
		return FailureCancelled
	default:
		return FailureInternal
	}
}
