package transcode

import (
	"context"
	"sync"

	"github.com/averraz/troubadour/internal/opus"
)

// FrameSource is one track's frame stream. It is lazy, finite, and not
// restartable: frames arrive on Frames until the track ends or fails, and
// Err reports which of the two it was.
type FrameSource struct {
	frames chan opus.FramePacket
	cancel context.CancelFunc
	done   chan struct{}

	mu  sync.Mutex
	err error
}

func newFrameSource(cancel context.CancelFunc) *FrameSource {
	return &FrameSource{
		frames: make(chan opus.FramePacket, handoffDepth),
		cancel: cancel,
		done:   make(chan struct{}),
	}
}

// Frames delivers the track's packets in order. The channel closes when
// the track ends for any reason; consult Err afterwards.
func (s *FrameSource) Frames() <-chan opus.FramePacket { return s.frames }

// Err reports why the stream ended: nil for a clean end of track,
// context.Canceled after Close, ErrSourceStalled, or a *TranscodeError.
// Only valid once the Frames channel has closed.
func (s *FrameSource) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Close cancels production and waits for the producer to release the
// decoder and its process. Closing a finished source is a no-op.
func (s *FrameSource) Close() {
	s.cancel()
	<-s.done
}

// finish records the terminal error and closes the stream. Called exactly
// once, by the producer.
func (s *FrameSource) finish(err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
	close(s.frames)
	close(s.done)
}

// emit hands one packet to the consumer, honoring cancellation. It reports
// false when the track context ended before the packet was taken.
func (s *FrameSource) emit(ctx context.Context, packet opus.FramePacket) bool {
	select {
	case s.frames <- packet:
		return true
	case <-ctx.Done():
		return false
	}
}
