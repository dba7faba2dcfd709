// Package opus defines the Opus frame vocabulary for voice playback.
//
// Audio moves through the system as discrete Opus frames. At rest, frames
// are stored in a minimal binary format: concatenated length-prefixed frames
// ([uint16 LE length][opus bytes]). No headers, no metadata.
//
// FrameWriter produces the length-prefixed form, FrameReader reads it back,
// and FramePacket carries one in-flight frame together with its presentation
// metadata.
package opus
