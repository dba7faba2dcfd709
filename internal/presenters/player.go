package presenters

import (
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/averraz/troubadour/internal/media"
	"github.com/averraz/troubadour/internal/player"
)

// queueHead caps how many pending tracks the queue view lists.
const queueHead = 10

var nothingPlayingResponse = Ephemeral("Nothing is playing right now.")

// NowPlayingResponse renders the current track with its playback position.
func NowPlayingResponse(snap player.Snapshot) *discordgo.InteractionResponse {
	if snap.Current == nil {
		return nothingPlayingResponse
	}

	entry := *snap.Current
	line := fmt.Sprintf("🎵 Now Playing: %s %s - requested by <@%s>",
		TrackLabel(entry.Track),
		playbackTiming(snap.Elapsed, entry.Track),
		entry.RequestedBy,
	)
	if snap.State == player.StatePaused {
		line += " (paused)"
	}
	return Message(line)
}

var emptyQueueResponse = Ephemeral("Queue is empty.")

// QueueResponse renders the current track and the first few pending
// entries.
func QueueResponse(snap player.Snapshot) *discordgo.InteractionResponse {
	if snap.Current == nil && len(snap.Queue) == 0 {
		return emptyQueueResponse
	}

	var b strings.Builder
	if snap.Current != nil {
		entry := *snap.Current
		fmt.Fprintf(&b, "🎵 Now Playing: %s %s - requested by <@%s>\n",
			TrackLabel(entry.Track),
			playbackTiming(snap.Elapsed, entry.Track),
			entry.RequestedBy,
		)
	}

	if len(snap.Queue) == 0 {
		b.WriteString("Up next: (empty)")
		return Message(b.String())
	}

	b.WriteString("**Up next:**")
	for i, entry := range snap.Queue {
		if i >= queueHead {
			fmt.Fprintf(&b, "\n…and %d more", len(snap.Queue)-queueHead)
			break
		}
		fmt.Fprintf(&b, "\n%d. %s %s - requested by <@%s>",
			i+1, TrackLabel(entry.Track), trackTiming(entry.Track), entry.RequestedBy)
	}
	return Message(b.String())
}

// EnqueuedText acknowledges a /play that added tracks to the queue.
func EnqueuedText(descs []media.Descriptor, added int) string {
	if added == 1 && len(descs) > 0 {
		return fmt.Sprintf("✅ Added: %s %s", TrackLabel(descs[0]), trackTiming(descs[0]))
	}
	return fmt.Sprintf("✅ Added %d tracks", added)
}

// TrackStartedMessage announces a track in the guild's text channel.
func TrackStartedMessage(entry player.QueueEntry) string {
	return fmt.Sprintf("🎶 Now playing: %s - requested by <@%s>", TrackLabel(entry.Track), entry.RequestedBy)
}

// TrackFailedMessage explains why a track was skipped.
func TrackFailedMessage(entry player.QueueEntry, failure player.Failure) string {
	return fmt.Sprintf("⚠️ Skipping %s: %s.", TrackLabel(entry.Track), FailureText(failure))
}

// FailureText maps a playback failure onto a phrase fit for a reply.
func FailureText(f player.Failure) string {
	switch f {
	case player.FailureInvalidReference:
		return "that does not look like something I can play"
	case player.FailureNoMatches:
		return "no results found"
	case player.FailureUpstreamUnavailable:
		return "the source is unavailable"
	case player.FailureResolutionTimeout:
		return "the source took too long to answer"
	case player.FailureSourceStalled:
		return "the stream stalled"
	case player.FailureTranscode:
		return "the audio could not be decoded"
	case player.FailureSeekUnsupported:
		return "that stream cannot be seeked"
	case player.FailureTransport:
		return "the voice connection dropped"
	case player.FailureCancelled:
		return "cancelled"
	default:
		return "an internal error occurred"
	}
}
