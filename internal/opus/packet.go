package opus

import "time"

// MaxFrameBytes bounds a single Opus frame. 4000 bytes is the recommended
// maximum packet size for the reference encoder; anything larger in a frame
// stream indicates corruption.
const MaxFrameBytes = 4000

// FramePacket is one encoded Opus frame plus its presentation metadata.
type FramePacket struct {
	// Data is the raw Opus frame, ready for a voice connection.
	Data []byte
	// Seq is the zero-based position of the frame within its track.
	Seq uint64
	// Duration is the frame's presentation duration.
	Duration time.Duration
}

// SamplesPerFrame returns the per-channel PCM sample count for one frame of
// the given duration. 48 kHz at 20ms yields 960.
func SamplesPerFrame(sampleRate int, frameDuration time.Duration) int {
	return int(time.Duration(sampleRate) * frameDuration / time.Second)
}
