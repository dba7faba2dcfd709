package opus

import (
	"encoding/binary"
	"fmt"
	"io"
)

// FrameWriter writes length-prefixed Opus frames to an io.Writer.
type FrameWriter struct {
	w io.Writer
}

// NewFrameWriter returns a new FrameWriter that writes to w.
func NewFrameWriter(w io.Writer) *FrameWriter {
	return &FrameWriter{w: w}
}

// WriteFrame writes one raw Opus frame in length-prefixed form.
func (f *FrameWriter) WriteFrame(frame []byte) error {
	if len(frame) > MaxFrameBytes {
		return fmt.Errorf("opus frame of %d bytes exceeds maximum of %d", len(frame), MaxFrameBytes)
	}

	var lenBuf [2]byte
	binary.LittleEndian.PutUint16(lenBuf[:], uint16(len(frame)))
	if _, err := f.w.Write(lenBuf[:]); err != nil {
		return err
	}
	_, err := f.w.Write(frame)
	return err
}
