package handler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/bwmarrin/discordgo"

	"github.com/averraz/troubadour/internal/generator"
	"github.com/averraz/troubadour/internal/media"
	"github.com/averraz/troubadour/internal/player"
	"github.com/averraz/troubadour/internal/presenters"
	"github.com/averraz/troubadour/internal/repository"
	"github.com/averraz/troubadour/internal/sink"
)

// VoiceGateway joins and moves the bot's voice connection. The registry
// dials through Join; Move shifts an existing connection to another
// channel in the same guild.
type VoiceGateway interface {
	Join(ctx context.Context, dest media.Destination) (sink.Sink, error)
	Move(dest media.Destination) error
}

// VoiceLocator reports which voice channel a guild member is in.
type VoiceLocator func(guildID, userID string) (channelID string, ok bool)

// SpotifySearcher finds tracks by free-text catalog search.
type SpotifySearcher interface {
	Search(ctx context.Context, query string, limit int) ([]media.Descriptor, error)
}

// Deps carries everything the bot needs. Spotify may be nil when no
// credentials are configured; every other field is required.
type Deps struct {
	Registry  *player.Registry
	Resolver  player.TrackResolver
	Spotify   SpotifySearcher
	History   repository.PlayRecorder
	Schedules repository.ScheduledPlayPersister
	Gateway   VoiceGateway
	Locate    VoiceLocator
	IDs       generator.Generator[string]

	// Activity is the presence shown while nothing is playing.
	Activity string
}

// Bot routes slash commands and component interactions to playback
// sessions, the play history, and the scheduler.
type Bot struct {
	registry  *player.Registry
	resolver  player.TrackResolver
	spotify   SpotifySearcher
	history   repository.PlayRecorder
	schedules repository.ScheduledPlayPersister
	gateway   VoiceGateway
	locate    VoiceLocator
	ids       generator.Generator[string]
	activity  string
	flows     *FlowManager

	mu sync.Mutex
	// session is the gateway session, for work that no interaction
	// carries one for, such as scheduled plays.
	session DiscordSession
	// announceChannels remembers, per guild, the text channel of the
	// latest interaction. Session events are announced there.
	announceChannels map[string]string
	watched          map[*player.Session]struct{}
}

// AttachSession hands the bot the gateway session. It must be called
// before the scheduled-play sweeper starts.
func (b *Bot) AttachSession(s DiscordSession) {
	b.mu.Lock()
	b.session = s
	b.mu.Unlock()
}

func (b *Bot) gatewaySession() (DiscordSession, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.session, b.session != nil
}

func NewBot(deps Deps) *Bot {
	ids := deps.IDs
	if ids == nil {
		ids = &generator.UUIDV4Generator{}
	}
	b := &Bot{
		registry:         deps.Registry,
		resolver:         deps.Resolver,
		spotify:          deps.Spotify,
		history:          deps.History,
		schedules:        deps.Schedules,
		gateway:          deps.Gateway,
		locate:           deps.Locate,
		ids:              ids,
		activity:         deps.Activity,
		flows:            NewFlowManager(ids),
		announceChannels: make(map[string]string),
		watched:          make(map[*player.Session]struct{}),
	}
	b.flows.RegisterFlow(b.scheduleRemoveFlow())
	return b
}

// HandleInteraction is the gateway entrypoint for every interaction.
// Component flows get first claim; the rest dispatches by command name.
func (b *Bot) HandleInteraction(s DiscordSession, i *discordgo.InteractionCreate) {
	if i.GuildID != "" {
		b.rememberChannel(i.GuildID, i.ChannelID)
	}

	handled, err := b.flows.Router(s, i)
	if err != nil {
		b.respondError(s, i, err)
		return
	}
	if handled {
		return
	}

	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}
	data := i.ApplicationCommandData()
	if i.GuildID == "" && data.Name != "ping" {
		if err := b.respond(s, i, presenters.Ephemeral("That only works in a server.")); err != nil {
			slog.Error("failed to respond to DM interaction", "error", err)
		}
		return
	}

	if err := b.dispatch(s, i, data); err != nil {
		b.respondError(s, i, err)
	}
}

func (b *Bot) dispatch(s DiscordSession, i *discordgo.InteractionCreate, data discordgo.ApplicationCommandInteractionData) error {
	switch data.Name {
	case "ping":
		return b.ping(s, i)
	case "join":
		return b.joinVoice(s, i)
	case "play":
		return b.play(s, i, data.Options)
	case "spotify":
		return b.playSpotify(s, i, data.Options)
	case "pause":
		return b.pause(s, i)
	case "resume":
		return b.resume(s, i)
	case "skip":
		return b.skip(s, i)
	case "stop":
		return b.stop(s, i)
	case "clear":
		return b.clearQueue(s, i)
	case "loop":
		return b.loopMode(s, i, data.Options)
	case "remove":
		return b.removeTracks(s, i, data.Options)
	case "move":
		return b.moveTrack(s, i, data.Options)
	case "shuffle":
		return b.shuffle(s, i)
	case "volume":
		return b.volume(s, i, data.Options)
	case "nowplaying", "np":
		return b.nowPlaying(s, i)
	case "queue":
		return b.showQueue(s, i)
	case "history":
		return b.showHistory(s, i, data.Options)
	case "leave":
		return b.leave(s, i)
	case "schedule":
		return b.schedule(s, i, data)
	default:
		slog.Warn("unknown command", "command", data.Name)
		return nil
	}
}

func (b *Bot) respond(s DiscordSession, i *discordgo.InteractionCreate, resp *discordgo.InteractionResponse) error {
	if err := s.InteractionRespond(i.Interaction, resp); err != nil {
		return fmt.Errorf("failed to respond to interaction: %w", err)
	}
	return nil
}

// respondError turns a handler error into an ephemeral reply. UserError
// messages go to the user verbatim; anything else is logged and masked.
func (b *Bot) respondError(s DiscordSession, i *discordgo.InteractionCreate, err error) {
	content := "Something went wrong. Try again in a moment."
	var userErr *UserError
	if errors.As(err, &userErr) {
		content = userErr.Message
	} else {
		slog.Error("interaction failed", "guildID", i.GuildID, "error", err)
	}
	if respondErr := s.InteractionRespond(i.Interaction, presenters.Ephemeral(content)); respondErr != nil {
		slog.Error("failed to send error response", "error", respondErr)
	}
}

// deferResponse acknowledges the interaction so a slow command can edit
// in its reply after resolution finishes.
func deferResponse(s DiscordSession, i *discordgo.InteractionCreate) error {
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
	})
	if err != nil {
		return fmt.Errorf("failed to defer response: %w", err)
	}
	return nil
}

func (b *Bot) editReply(s DiscordSession, i *discordgo.InteractionCreate, content string) {
	if _, err := s.InteractionResponseEdit(i.Interaction, &discordgo.WebhookEdit{Content: &content}); err != nil {
		slog.Error("failed to edit deferred response", "error", err)
	}
}

func (b *Bot) rememberChannel(guildID, channelID string) {
	if channelID == "" {
		return
	}
	b.mu.Lock()
	b.announceChannels[guildID] = channelID
	b.mu.Unlock()
}

func (b *Bot) announceChannel(guildID string) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.announceChannels[guildID]
}

func interactionUserID(i *discordgo.InteractionCreate) string {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User.ID
	}
	if i.User != nil {
		return i.User.ID
	}
	return ""
}

// sessionForUser returns the guild's session, dialing into the caller's
// voice channel when none is live yet.
func (b *Bot) sessionForUser(ctx context.Context, s DiscordSession, i *discordgo.InteractionCreate) (*player.Session, error) {
	channelID, ok := b.locate(i.GuildID, interactionUserID(i))
	if !ok {
		return nil, &UserError{Message: "Join a voice channel first."}
	}
	dest := media.Destination{GuildID: i.GuildID, ChannelID: channelID}
	sess, err := b.registry.GetOrCreate(ctx, dest, b.gateway.Join)
	if err != nil {
		return nil, fmt.Errorf("failed to join voice: %w", err)
	}
	b.watch(s, sess)
	return sess, nil
}

// liveSession returns the guild's session without creating one.
func (b *Bot) liveSession(guildID string) (*player.Session, bool) {
	return b.registry.Get(media.Destination{GuildID: guildID})
}
