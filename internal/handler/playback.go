package handler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/bwmarrin/discordgo"

	"github.com/averraz/troubadour/internal/media"
	"github.com/averraz/troubadour/internal/player"
	"github.com/averraz/troubadour/internal/presenters"
	"github.com/averraz/troubadour/internal/resolver"
)

func (b *Bot) ping(s DiscordSession, i *discordgo.InteractionCreate) error {
	return b.respond(s, i, presenters.Message("Pong!"))
}

func (b *Bot) joinVoice(s DiscordSession, i *discordgo.InteractionCreate) error {
	channelID, ok := b.locate(i.GuildID, interactionUserID(i))
	if !ok {
		return &UserError{Message: "Join a voice channel first."}
	}
	dest := media.Destination{GuildID: i.GuildID, ChannelID: channelID}

	if _, live := b.registry.Get(dest); live {
		if err := b.gateway.Move(dest); err != nil {
			return fmt.Errorf("failed to move voice connection: %w", err)
		}
		return b.respond(s, i, presenters.Message(fmt.Sprintf("✅ Joined <#%s>.", channelID)))
	}

	sess, err := b.registry.GetOrCreate(context.Background(), dest, b.gateway.Join)
	if err != nil {
		return fmt.Errorf("failed to join voice: %w", err)
	}
	b.watch(s, sess)
	return b.respond(s, i, presenters.Message(fmt.Sprintf("✅ Joined <#%s>.", channelID)))
}

func (b *Bot) leave(s DiscordSession, i *discordgo.InteractionCreate) error {
	dest := media.Destination{GuildID: i.GuildID}
	if _, ok := b.registry.Get(dest); !ok {
		return &UserError{Message: "I'm not in a voice channel."}
	}
	b.registry.Remove(dest)
	return b.respond(s, i, presenters.Message("👋 Left voice."))
}

// play resolves a URL or YouTube search and queues the results. The
// response is deferred because resolution can outlast the three-second
// interaction deadline.
func (b *Bot) play(s DiscordSession, i *discordgo.InteractionCreate, options []*discordgo.ApplicationCommandInteractionDataOption) error {
	query, err := stringOption(options, "query")
	if err != nil {
		return err
	}

	sess, err := b.sessionForUser(context.Background(), s, i)
	if err != nil {
		return err
	}

	if err := deferResponse(s, i); err != nil {
		return err
	}

	descs, err := b.resolver.Resolve(context.Background(), query)
	if err != nil {
		b.editReply(s, i, "❌ Couldn't play that: "+presenters.FailureText(player.Classify(err))+".")
		return nil
	}
	b.finishEnqueue(s, i, sess, descs)
	return nil
}

// playSpotify resolves Spotify links through the resolver and free-text
// queries through catalog search.
func (b *Bot) playSpotify(s DiscordSession, i *discordgo.InteractionCreate, options []*discordgo.ApplicationCommandInteractionDataOption) error {
	query, err := stringOption(options, "query")
	if err != nil {
		return err
	}
	if !resolver.IsURL(query) && b.spotify == nil {
		return &UserError{Message: "Spotify search is not configured."}
	}

	sess, err := b.sessionForUser(context.Background(), s, i)
	if err != nil {
		return err
	}

	if err := deferResponse(s, i); err != nil {
		return err
	}

	ctx := context.Background()
	var descs []media.Descriptor
	if resolver.IsURL(query) {
		descs, err = b.resolver.Resolve(ctx, query)
	} else {
		descs, err = b.spotify.Search(ctx, query, 1)
	}
	if err != nil {
		b.editReply(s, i, "❌ Couldn't play that: "+presenters.FailureText(player.Classify(err))+".")
		return nil
	}
	b.finishEnqueue(s, i, sess, descs)
	return nil
}

// finishEnqueue pushes resolved tracks onto the session and edits the
// deferred reply with the outcome.
func (b *Bot) finishEnqueue(s DiscordSession, i *discordgo.InteractionCreate, sess *player.Session, descs []media.Descriptor) {
	if len(descs) == 0 {
		b.editReply(s, i, "❌ Couldn't play that: no results found.")
		return
	}
	added, err := sess.Enqueue(descs, interactionUserID(i))
	switch {
	case errors.Is(err, player.ErrQueueFull):
		b.editReply(s, i, fmt.Sprintf("⚠️ The queue is full. Added %d of %d tracks.", added, len(descs)))
	case errors.Is(err, player.ErrSessionClosed):
		b.editReply(s, i, "❌ The player just shut down. Try again.")
	case err != nil:
		slog.Error("enqueue failed", "guildID", i.GuildID, "error", err)
		b.editReply(s, i, "Something went wrong. Try again in a moment.")
	default:
		b.editReply(s, i, presenters.EnqueuedText(descs, added))
	}
}

func (b *Bot) pause(s DiscordSession, i *discordgo.InteractionCreate) error {
	sess, ok := b.liveSession(i.GuildID)
	if !ok {
		return &UserError{Message: "Nothing is playing."}
	}
	if err := sess.Pause(); err != nil {
		if errors.Is(err, player.ErrWrongState) || errors.Is(err, player.ErrSessionClosed) {
			return &UserError{Message: "Nothing is playing."}
		}
		return fmt.Errorf("failed to pause: %w", err)
	}
	return b.respond(s, i, presenters.Message("⏸️ Paused."))
}

func (b *Bot) resume(s DiscordSession, i *discordgo.InteractionCreate) error {
	sess, ok := b.liveSession(i.GuildID)
	if !ok {
		return &UserError{Message: "Nothing is paused."}
	}
	if err := sess.Resume(); err != nil {
		if errors.Is(err, player.ErrWrongState) || errors.Is(err, player.ErrSessionClosed) {
			return &UserError{Message: "Nothing is paused."}
		}
		return fmt.Errorf("failed to resume: %w", err)
	}
	return b.respond(s, i, presenters.Message("▶️ Resumed."))
}

func (b *Bot) skip(s DiscordSession, i *discordgo.InteractionCreate) error {
	sess, ok := b.liveSession(i.GuildID)
	if !ok {
		return &UserError{Message: "Nothing is playing."}
	}
	if err := sess.Skip(); err != nil {
		if errors.Is(err, player.ErrWrongState) || errors.Is(err, player.ErrSessionClosed) {
			return &UserError{Message: "Nothing is playing."}
		}
		return fmt.Errorf("failed to skip: %w", err)
	}
	return b.respond(s, i, presenters.Message("⏭️ Skipped."))
}

// stop clears the queue and cuts the current track, but keeps the voice
// connection for whatever plays next.
func (b *Bot) stop(s DiscordSession, i *discordgo.InteractionCreate) error {
	sess, ok := b.liveSession(i.GuildID)
	if !ok {
		return &UserError{Message: "Nothing is playing."}
	}
	dropped, err := sess.ClearQueue()
	if err != nil {
		return &UserError{Message: "Nothing is playing."}
	}
	if skipErr := sess.Skip(); skipErr != nil && dropped == 0 {
		return &UserError{Message: "Nothing is playing."}
	}
	return b.respond(s, i, presenters.Message("⏹️ Stopped and cleared the queue."))
}

func (b *Bot) clearQueue(s DiscordSession, i *discordgo.InteractionCreate) error {
	sess, ok := b.liveSession(i.GuildID)
	if !ok {
		return &UserError{Message: "Queue is empty."}
	}
	dropped, err := sess.ClearQueue()
	if err != nil {
		return &UserError{Message: "Queue is empty."}
	}
	return b.respond(s, i, presenters.Message(fmt.Sprintf("🧹 Queue cleared. Removed %d tracks.", dropped)))
}

func (b *Bot) loopMode(s DiscordSession, i *discordgo.InteractionCreate, options []*discordgo.ApplicationCommandInteractionDataOption) error {
	sess, ok := b.liveSession(i.GuildID)
	if !ok {
		return &UserError{Message: "Nothing is playing."}
	}

	raw, found, err := optionalStringOption(options, "mode")
	if err != nil {
		return err
	}
	if !found {
		snap := sess.Snapshot()
		return b.respond(s, i, presenters.Message(fmt.Sprintf("🔁 Loop mode: %s.", snap.Loop)))
	}

	mode, err := player.ParseLoopMode(raw)
	if err != nil {
		return &UserError{Message: "Loop mode must be off, track, or queue."}
	}
	if err := sess.SetLoop(mode); err != nil {
		return &UserError{Message: "Nothing is playing."}
	}

	var content string
	switch mode {
	case player.LoopTrack:
		content = "🔂 Looping current track."
	case player.LoopQueue:
		content = "🔁 Looping the queue."
	default:
		content = "🔁 Loop disabled."
	}
	return b.respond(s, i, presenters.Message(content))
}

func (b *Bot) removeTracks(s DiscordSession, i *discordgo.InteractionCreate, options []*discordgo.ApplicationCommandInteractionDataOption) error {
	sess, ok := b.liveSession(i.GuildID)
	if !ok {
		return &UserError{Message: "Queue is empty."}
	}

	index, found, err := intOption(options, "index")
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("index option is required")
	}
	end, found, err := intOption(options, "end")
	if err != nil {
		return err
	}
	if !found {
		end = index
	}

	removed, err := sess.Remove(int(index), int(end))
	if err != nil {
		switch {
		case errors.Is(err, player.ErrBadPosition):
			return userErrorf("Index out of range. The queue has %d tracks.", len(sess.Snapshot().Queue))
		case errors.Is(err, player.ErrSessionClosed):
			return &UserError{Message: "Queue is empty."}
		}
		return fmt.Errorf("failed to remove tracks: %w", err)
	}

	if len(removed) == 1 {
		return b.respond(s, i, presenters.Message(fmt.Sprintf("🗑️ Removed %s from the queue.", presenters.TrackLabel(removed[0].Track))))
	}
	return b.respond(s, i, presenters.Message(fmt.Sprintf("🗑️ Removed %d tracks from the queue.", len(removed))))
}

func (b *Bot) moveTrack(s DiscordSession, i *discordgo.InteractionCreate, options []*discordgo.ApplicationCommandInteractionDataOption) error {
	sess, ok := b.liveSession(i.GuildID)
	if !ok {
		return &UserError{Message: "Queue is empty."}
	}

	from, found, err := intOption(options, "from")
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("from option is required")
	}
	to, found, err := intOption(options, "to")
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("to option is required")
	}

	moved, err := sess.Move(int(from), int(to))
	if err != nil {
		switch {
		case errors.Is(err, player.ErrBadPosition):
			return userErrorf("Index out of range. The queue has %d tracks.", len(sess.Snapshot().Queue))
		case errors.Is(err, player.ErrSessionClosed):
			return &UserError{Message: "Queue is empty."}
		}
		return fmt.Errorf("failed to move track: %w", err)
	}
	return b.respond(s, i, presenters.Message(fmt.Sprintf("↔️ Moved %s from %d to %d.", presenters.TrackLabel(moved.Track), from, to)))
}

func (b *Bot) shuffle(s DiscordSession, i *discordgo.InteractionCreate) error {
	sess, ok := b.liveSession(i.GuildID)
	if !ok {
		return &UserError{Message: "Queue is empty."}
	}
	shuffled, err := sess.Shuffle()
	if err != nil {
		return &UserError{Message: "Queue is empty."}
	}
	if shuffled < 2 {
		return &UserError{Message: "Not enough queued tracks to shuffle."}
	}
	return b.respond(s, i, presenters.Message(fmt.Sprintf("🔀 Shuffled %d queued tracks.", shuffled)))
}

func (b *Bot) volume(s DiscordSession, i *discordgo.InteractionCreate, options []*discordgo.ApplicationCommandInteractionDataOption) error {
	sess, ok := b.liveSession(i.GuildID)
	if !ok {
		return &UserError{Message: "Nothing is playing."}
	}

	percent, found, err := intOption(options, "percent")
	if err != nil {
		return err
	}
	if !found {
		snap := sess.Snapshot()
		return b.respond(s, i, presenters.Message(fmt.Sprintf("🔊 Volume: %d%%.", snap.Volume)))
	}

	if err := sess.SetVolume(int(percent)); err != nil {
		if errors.Is(err, player.ErrBadVolume) {
			return &UserError{Message: "Volume must be between 0 and 200."}
		}
		return &UserError{Message: "Nothing is playing."}
	}
	return b.respond(s, i, presenters.Message(fmt.Sprintf("🔊 Volume set to %d%%. Takes effect from the next track.", percent)))
}

func (b *Bot) nowPlaying(s DiscordSession, i *discordgo.InteractionCreate) error {
	var snap player.Snapshot
	if sess, ok := b.liveSession(i.GuildID); ok {
		snap = sess.Snapshot()
	}
	return b.respond(s, i, presenters.NowPlayingResponse(snap))
}

func (b *Bot) showQueue(s DiscordSession, i *discordgo.InteractionCreate) error {
	var snap player.Snapshot
	if sess, ok := b.liveSession(i.GuildID); ok {
		snap = sess.Snapshot()
	}
	return b.respond(s, i, presenters.QueueResponse(snap))
}

const defaultHistoryLimit = 10

func (b *Bot) showHistory(s DiscordSession, i *discordgo.InteractionCreate, options []*discordgo.ApplicationCommandInteractionDataOption) error {
	limit := int64(defaultHistoryLimit)
	if given, found, err := intOption(options, "limit"); err != nil {
		return err
	} else if found {
		limit = given
	}
	if limit < 1 {
		limit = 1
	}
	if limit > 25 {
		limit = 25
	}

	plays, err := b.history.Recent(context.Background(), i.GuildID, int(limit))
	if err != nil {
		return fmt.Errorf("failed to load play history: %w", err)
	}
	return b.respond(s, i, presenters.HistoryResponse(plays))
}
