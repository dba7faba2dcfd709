// Package voice adapts an open Discord gateway session into the voice
// transport the playback engine dials.
package voice

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/averraz/troubadour/internal/handler"
	"github.com/averraz/troubadour/internal/media"
	"github.com/averraz/troubadour/internal/sink"
)

// Gateway joins guild voice channels over a shared discordgo session and
// hands the connections to the player as paced frame sinks.
type Gateway struct {
	session     *discordgo.Session
	sendTimeout time.Duration
}

var _ handler.VoiceGateway = (*Gateway)(nil)

func NewGateway(session *discordgo.Session, sendTimeout time.Duration) *Gateway {
	return &Gateway{session: session, sendTimeout: sendTimeout}
}

// Join connects to the destination's voice channel. The bot never
// listens, so it joins deafened.
func (g *Gateway) Join(ctx context.Context, dest media.Destination) (sink.Sink, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	vc, err := g.session.ChannelVoiceJoin(dest.GuildID, dest.ChannelID, false, true)
	if err != nil {
		return nil, fmt.Errorf("unable to join the voice channel: %w", err)
	}
	return sink.NewDiscord(vc, g.sendTimeout), nil
}

// Move shifts the guild's connection to another channel. discordgo keeps
// the underlying connection, so the session's sink survives the move.
func (g *Gateway) Move(dest media.Destination) error {
	if _, err := g.session.ChannelVoiceJoin(dest.GuildID, dest.ChannelID, false, true); err != nil {
		return fmt.Errorf("unable to move to the voice channel: %w", err)
	}
	return nil
}

// Locate reports the voice channel a member currently occupies, from the
// session's state cache.
func (g *Gateway) Locate(guildID, userID string) (string, bool) {
	guild, err := g.session.State.Guild(guildID)
	if err != nil {
		return "", false
	}
	for _, vs := range guild.VoiceStates {
		if vs.UserID == userID {
			return vs.ChannelID, true
		}
	}
	return "", false
}
