// Package media defines the shared vocabulary for playable media: where a
// track came from, how its audio is fetched, and where it is delivered.
package media

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Kind identifies the source family a descriptor was resolved from.
type Kind string

const (
	KindYouTube Kind = "youtube"
	KindSpotify Kind = "spotify"
	KindDirect  Kind = "direct"
)

// Descriptor is the resolved form of a user reference: everything the
// pipeline needs to fetch and transcode one track. Descriptors are
// immutable once resolved.
type Descriptor struct {
	// ID is a source-scoped stable identifier, such as a YouTube video ID.
	// It may be empty for direct URLs.
	ID string
	// Reference is the original user input that produced this descriptor.
	Reference string
	// StreamURL is the direct media URL handed to the transcoder.
	// Stream URLs are often short-lived and must not be persisted.
	StreamURL string
	// PageURL is the human-facing link, if any.
	PageURL string

	Title  string
	Artist string
	// Duration is zero when unknown, such as for live streams.
	Duration time.Duration
	Live     bool
	Kind     Kind
}

// CacheKey returns a stable key for caching artifacts derived from this
// descriptor. It is independent of StreamURL, which expires.
func (d Descriptor) CacheKey() string {
	h := sha256.Sum256([]byte(string(d.Kind) + "\x00" + d.ID + "\x00" + d.Reference))
	return hex.EncodeToString(h[:16])
}

// Seekable reports whether playback may start at a nonzero offset.
func (d Descriptor) Seekable() bool {
	return !d.Live && d.Duration > 0
}

// Destination identifies where audio is delivered. A guild has at most one
// active session; the voice channel is an attribute of that session and may
// change over its lifetime.
type Destination struct {
	GuildID   string
	ChannelID string
}

// Key returns the identity under which sessions are registered.
func (d Destination) Key() string { return d.GuildID }
