package presenters_test

import (
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/google/go-cmp/cmp"

	"github.com/averraz/troubadour/internal/media"
	"github.com/averraz/troubadour/internal/player"
	"github.com/averraz/troubadour/internal/presenters"
)

func TestNowPlayingResponse(t *testing.T) {
	tests := []struct {
		name string
		snap player.Snapshot
		want *discordgo.InteractionResponse
	}{
		{
			name: "nothing playing",
			snap: player.Snapshot{State: player.StateIdle},
			want: &discordgo.InteractionResponse{
				Type: discordgo.InteractionResponseChannelMessageWithSource,
				Data: &discordgo.InteractionResponseData{
					Content: "Nothing is playing right now.",
					Flags:   discordgo.MessageFlagsEphemeral,
				},
			},
		},
		{
			name: "playing with known length",
			snap: player.Snapshot{
				State:   player.StatePlaying,
				Elapsed: 82 * time.Second,
				Current: &player.QueueEntry{
					Track: media.Descriptor{
						Title:    "Everything She Wants",
						Artist:   "Wham!",
						PageURL:  "https://youtu.be/kthxbye",
						Duration: 3*time.Minute + 25*time.Second,
					},
					RequestedBy: "111",
				},
			},
			want: &discordgo.InteractionResponse{
				Type: discordgo.InteractionResponseChannelMessageWithSource,
				Data: &discordgo.InteractionResponseData{
					Content: "🎵 Now Playing: **[Everything She Wants - Wham!](https://youtu.be/kthxbye)** [1:22/3:25] - requested by <@111>",
				},
			},
		},
		{
			name: "paused live stream",
			snap: player.Snapshot{
				State:   player.StatePaused,
				Elapsed: 42 * time.Second,
				Current: &player.QueueEntry{
					Track:       media.Descriptor{Title: "lofi radio", Live: true},
					RequestedBy: "222",
				},
			},
			want: &discordgo.InteractionResponse{
				Type: discordgo.InteractionResponseChannelMessageWithSource,
				Data: &discordgo.InteractionResponseData{
					Content: "🎵 Now Playing: **lofi radio** [0:42] - requested by <@222> (paused)",
				},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := presenters.NowPlayingResponse(tt.snap)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("NowPlayingResponse() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestQueueResponse(t *testing.T) {
	t.Run("empty queue and nothing playing", func(t *testing.T) {
		got := presenters.QueueResponse(player.Snapshot{})
		want := &discordgo.InteractionResponse{
			Type: discordgo.InteractionResponseChannelMessageWithSource,
			Data: &discordgo.InteractionResponseData{
				Content: "Queue is empty.",
				Flags:   discordgo.MessageFlagsEphemeral,
			},
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("QueueResponse() mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("current track and pending entries", func(t *testing.T) {
		snap := player.Snapshot{
			State:   player.StatePlaying,
			Elapsed: 5 * time.Second,
			Current: &player.QueueEntry{
				Track: media.Descriptor{
					Title:    "First Song",
					PageURL:  "https://youtu.be/first",
					Duration: 3 * time.Minute,
				},
				RequestedBy: "u1",
			},
			Queue: []player.QueueEntry{
				{
					Track: media.Descriptor{
						Title:    "Second Song",
						PageURL:  "https://youtu.be/second",
						Duration: 2 * time.Minute,
					},
					RequestedBy: "u2",
				},
				{
					Track:       media.Descriptor{Title: "A Stream", Live: true},
					RequestedBy: "u3",
				},
			},
		}

		got := presenters.QueueResponse(snap)
		want := "🎵 Now Playing: **[First Song](https://youtu.be/first)** [0:05/3:00] - requested by <@u1>\n" +
			"**Up next:**\n" +
			"1. **[Second Song](https://youtu.be/second)** [2:00] - requested by <@u2>\n" +
			"2. **A Stream** [LIVE] - requested by <@u3>"
		if got.Data.Content != want {
			t.Errorf("QueueResponse() content mismatch:\ngot:  %q\nwant: %q", got.Data.Content, want)
		}
	})

	t.Run("long queues are truncated", func(t *testing.T) {
		snap := player.Snapshot{State: player.StateIdle}
		for i := 0; i < 12; i++ {
			snap.Queue = append(snap.Queue, player.QueueEntry{
				Track:       media.Descriptor{Title: "Track", Duration: time.Minute},
				RequestedBy: "u1",
			})
		}

		content := presenters.QueueResponse(snap).Data.Content
		if !strings.Contains(content, "…and 2 more") {
			t.Errorf("expected truncation marker, got:\n%s", content)
		}
		if strings.Count(content, "\n") != 11 {
			t.Errorf("expected header plus ten entries plus marker, got:\n%s", content)
		}
	})
}

func TestEnqueuedText(t *testing.T) {
	single := []media.Descriptor{{Title: "One Song", Duration: time.Minute}}
	if got := presenters.EnqueuedText(single, 1); got != "✅ Added: **One Song** [1:00]" {
		t.Errorf("single track text = %q", got)
	}
	if got := presenters.EnqueuedText(make([]media.Descriptor, 30), 30); got != "✅ Added 30 tracks" {
		t.Errorf("batch text = %q", got)
	}
}

func TestFailureText(t *testing.T) {
	covered := map[player.Failure]bool{}
	for _, f := range []player.Failure{
		player.FailureInternal,
		player.FailureInvalidReference,
		player.FailureNoMatches,
		player.FailureUpstreamUnavailable,
		player.FailureResolutionTimeout,
		player.FailureSourceStalled,
		player.FailureTranscode,
		player.FailureSeekUnsupported,
		player.FailureTransport,
		player.FailureCancelled,
	} {
		text := presenters.FailureText(f)
		if text == "" {
			t.Errorf("no text for failure %v", f)
		}
		if covered[f] {
			t.Errorf("failure %v covered twice", f)
		}
		covered[f] = true
	}
}
