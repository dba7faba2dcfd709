package player

import (
	"log/slog"

	"github.com/averraz/troubadour/internal/media"
)

// EventKind names what happened inside a session.
type EventKind int

const (
	// EventTrackStarted fires once frames for a track begin flowing.
	EventTrackStarted EventKind = iota
	// EventTrackFinished fires when a track's frames end cleanly.
	EventTrackFinished
	// EventTrackFailed fires when an entry is discarded by skip-on-error.
	EventTrackFailed
	// EventQueueDrained fires when playback ran out of queued tracks.
	EventQueueDrained
	// EventSessionStopped fires exactly once, when the session terminates.
	EventSessionStopped
)

func (k EventKind) String() string {
	switch k {
	case EventTrackStarted:
		return "track started"
	case EventTrackFinished:
		return "track finished"
	case EventTrackFailed:
		return "track failed"
	case EventQueueDrained:
		return "queue drained"
	case EventSessionStopped:
		return "session stopped"
	default:
		return "unknown"
	}
}

// Event is a session notification for the command layer: announcements,
// presence updates, play history. Entry is set for track-scoped kinds.
// Err carries the failure for EventTrackFailed, and the stop reason for
// EventSessionStopped (nil when the stop was requested).
type Event struct {
	Kind  EventKind
	Dest  media.Destination
	Entry QueueEntry
	Err   error
}

const eventBuffer = 32

// emit delivers best-effort: a consumer that stopped reading costs
// events, never playback progress.
func (s *Session) emit(ev Event) {
	select {
	case s.events <- ev:
	default:
		slog.Warn("session event dropped",
			"guild", s.dest.GuildID, "kind", ev.Kind.String())
	}
}
