package sink

import (
	"context"
	"errors"
	"fmt"

	"github.com/averraz/troubadour/internal/opus"
)

// ErrVoiceConnClosed reports a voice connection that stopped draining
// frames within the send timeout.
var ErrVoiceConnClosed = errors.New("voice connection send timeout")

// TransportError wraps a delivery failure. The transport is assumed dead
// once one of these surfaces; callers should tear the session down rather
// than retry the frame.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string { return fmt.Sprintf("voice transport: %v", e.Err) }

func (e *TransportError) Unwrap() error { return e.Err }

// Sink accepts encoded frames for real-time delivery. Accept blocks until
// the frame's deadline, honoring ctx. Accept and Close must not be called
// concurrently; a playback session owns its sink.
type Sink interface {
	Accept(ctx context.Context, packet opus.FramePacket) error
	Close() error
}
