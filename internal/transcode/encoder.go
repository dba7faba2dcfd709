package transcode

import (
	"fmt"

	hopus "gopkg.in/hraban/opus.v2"

	"github.com/averraz/troubadour/internal/opus"
)

// frameEncoder is the seam between the pipeline and the Opus codec.
// Tests substitute a fake; production uses libopus.
type frameEncoder interface {
	// Encode encodes exactly one frame of interleaved PCM. The returned
	// slice remains valid after the next call.
	Encode(pcm []int16) ([]byte, error)
}

// opusEncoder wraps a libopus encoder. Not safe for concurrent use; every
// open track owns its own instance.
type opusEncoder struct {
	enc *hopus.Encoder
	buf []byte
}

func newOpusEncoder(sampleRate, channels, bitrate int) (*opusEncoder, error) {
	enc, err := hopus.NewEncoder(sampleRate, channels, hopus.AppAudio)
	if err != nil {
		return nil, fmt.Errorf("create opus encoder: %w", err)
	}
	if err := enc.SetBitrate(bitrate); err != nil {
		return nil, fmt.Errorf("set opus bitrate: %w", err)
	}
	return &opusEncoder{
		enc: enc,
		buf: make([]byte, opus.MaxFrameBytes),
	}, nil
}

func (e *opusEncoder) Encode(pcm []int16) ([]byte, error) {
	n, err := e.enc.Encode(pcm, e.buf)
	if err != nil {
		return nil, err
	}
	out := make([]byte, n)
	copy(out, e.buf[:n])
	return out, nil
}
