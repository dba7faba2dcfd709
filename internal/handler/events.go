package handler

import (
	"context"
	"log/slog"
	"time"

	"github.com/averraz/troubadour/internal/player"
	"github.com/averraz/troubadour/internal/presenters"
	"github.com/averraz/troubadour/internal/repository"
)

const historyWriteTimeout = 5 * time.Second

// watch subscribes to a session's events exactly once per session.
func (b *Bot) watch(s DiscordSession, sess *player.Session) {
	b.mu.Lock()
	if _, ok := b.watched[sess]; ok {
		b.mu.Unlock()
		return
	}
	b.watched[sess] = struct{}{}
	b.mu.Unlock()

	go b.consumeEvents(s, sess)
}

// consumeEvents turns session events into text-channel announcements,
// presence updates, and play history rows. It exits when the session
// stops and closes its event channel.
func (b *Bot) consumeEvents(s DiscordSession, sess *player.Session) {
	defer func() {
		b.mu.Lock()
		delete(b.watched, sess)
		b.mu.Unlock()
	}()

	for ev := range sess.Events() {
		switch ev.Kind {
		case player.EventTrackStarted:
			b.announce(s, ev.Dest.GuildID, presenters.TrackStartedMessage(ev.Entry))
			b.setPresence(s, trackTitle(ev))
			b.recordPlay(ev)
		case player.EventTrackFailed:
			b.announce(s, ev.Dest.GuildID, presenters.TrackFailedMessage(ev.Entry, player.Classify(ev.Err)))
		case player.EventQueueDrained:
			b.setPresence(s, b.activity)
		case player.EventSessionStopped:
			if ev.Err != nil {
				b.announce(s, ev.Dest.GuildID, "⚠️ Playback stopped: "+presenters.FailureText(player.Classify(ev.Err))+".")
			}
			b.setPresence(s, b.activity)
		}
	}
}

func trackTitle(ev player.Event) string {
	if ev.Entry.Track.Title != "" {
		return ev.Entry.Track.Title
	}
	return ev.Entry.Track.Reference
}

// announce posts to the guild's most recent command channel, if any.
func (b *Bot) announce(s DiscordSession, guildID, content string) {
	channelID := b.announceChannel(guildID)
	if channelID == "" {
		return
	}
	if _, err := s.ChannelMessageSend(channelID, content); err != nil {
		slog.Warn("failed to announce in text channel", "guildID", guildID, "error", err)
	}
}

// setPresence sets the bot's activity. Presence is account-global, so
// with several guilds playing at once the last started track wins.
func (b *Bot) setPresence(s DiscordSession, title string) {
	if err := s.UpdateGameStatus(0, title); err != nil {
		slog.Warn("failed to update presence", "error", err)
	}
}

func (b *Bot) recordPlay(ev player.Event) {
	id, err := b.ids.Next()
	if err != nil {
		slog.Warn("failed to generate play ID", "error", err)
		return
	}
	track := ev.Entry.Track
	play := repository.Play{
		ID:          id,
		GuildID:     ev.Dest.GuildID,
		Title:       trackTitle(ev),
		Artist:      track.Artist,
		PageURL:     track.PageURL,
		Source:      track.Kind,
		RequestedBy: ev.Entry.RequestedBy,
		Duration:    track.Duration,
		StartedAt:   time.Now(),
	}

	ctx, cancel := context.WithTimeout(context.Background(), historyWriteTimeout)
	defer cancel()
	if err := b.history.Record(ctx, play); err != nil {
		slog.Warn("failed to record play", "guildID", play.GuildID, "error", err)
	}
}
