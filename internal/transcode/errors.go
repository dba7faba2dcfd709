package transcode

import (
	"errors"
	"fmt"
)

var (
	// ErrSourceStalled marks upstream media that stopped delivering for
	// longer than the configured stall window. Backpressure from a slow
	// or paused consumer never counts as a stall.
	ErrSourceStalled = errors.New("media source stalled")

	// ErrSeekUnsupported marks a nonzero start offset on a source that
	// cannot seek, such as a live stream.
	ErrSeekUnsupported = errors.New("source does not support seeking")
)

// TranscodeError reports a decode or encode failure. It terminates the
// track it occurred on and nothing else.
type TranscodeError struct {
	Stage string
	Err   error
}

func (e *TranscodeError) Error() string {
	return fmt.Sprintf("transcode failed during %s: %v", e.Stage, e.Err)
}

func (e *TranscodeError) Unwrap() error { return e.Err }
