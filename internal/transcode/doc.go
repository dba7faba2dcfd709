// Package transcode turns resolved media into streams of Opus frames.
//
// A Pipeline opens one track at a time: FFmpeg fetches and decodes the
// stream URL into raw PCM, the PCM is sliced into fixed-duration frames,
// gain is applied, and each frame is Opus-encoded and handed to the
// consumer through a small bounded channel. A slow consumer therefore
// suspends production instead of growing a buffer.
//
// Sources that already serve Ogg/Opus bypass FFmpeg entirely and are
// demuxed packet by packet. Finished tracks can be recorded to a frame
// cache so the next play of the same track skips the network.
package transcode
