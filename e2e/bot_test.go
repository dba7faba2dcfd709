package e2e_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/averraz/troubadour/internal/config"
	"github.com/averraz/troubadour/internal/handler"
	"github.com/averraz/troubadour/internal/media"
	"github.com/averraz/troubadour/internal/player"
	"github.com/averraz/troubadour/internal/repository"
	"github.com/averraz/troubadour/internal/sink"
	"github.com/averraz/troubadour/internal/transcode"
)

type mockSession struct {
	mu        sync.Mutex
	Responses []*discordgo.InteractionResponse
}

func (m *mockSession) InteractionRespond(i *discordgo.Interaction, resp *discordgo.InteractionResponse, opts ...discordgo.RequestOption) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Responses = append(m.Responses, resp)
	return nil
}

func (m *mockSession) InteractionResponseEdit(i *discordgo.Interaction, wh *discordgo.WebhookEdit, opts ...discordgo.RequestOption) (*discordgo.Message, error) {
	return nil, nil
}

func (m *mockSession) ChannelMessageSend(channelID string, content string, opts ...discordgo.RequestOption) (*discordgo.Message, error) {
	return nil, nil
}

func (m *mockSession) UpdateGameStatus(idle int, name string) error {
	return nil
}

var _ handler.DiscordSession = (*mockSession)(nil)

func (m *mockSession) lastResponse(t *testing.T) *discordgo.InteractionResponse {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Responses) == 0 {
		t.Fatal("no interaction response was sent")
	}
	return m.Responses[len(m.Responses)-1]
}

func (m *mockSession) lastContent(t *testing.T) string {
	t.Helper()
	resp := m.lastResponse(t)
	if resp.Data == nil {
		t.Fatal("interaction response carries no data")
	}
	return resp.Data.Content
}

// The end-to-end tests drive scheduling and history against a real
// database; nothing here plays audio, so the player stack is inert.
type noopResolver struct{}

func (noopResolver) Resolve(ctx context.Context, reference string) ([]media.Descriptor, error) {
	return nil, nil
}

type noopGateway struct{}

func (noopGateway) Join(ctx context.Context, dest media.Destination) (sink.Sink, error) {
	return nil, errors.New("no voice transport in e2e tests")
}

func (noopGateway) Move(dest media.Destination) error { return nil }

func noopPipeline() player.Pipeline {
	return player.PipelineFunc(func(ctx context.Context, desc media.Descriptor, opts transcode.Options) (player.FrameSource, error) {
		return nil, errors.New("no pipeline in e2e tests")
	})
}

type fixedIDGenerator struct {
	id string
}

func (g *fixedIDGenerator) Next() (string, error) {
	return g.id, nil
}

func newBot(t *testing.T, pool *pgxpool.Pool, voiceChannelID, fixedID string) (*handler.Bot, *mockSession) {
	t.Helper()

	cfg := &config.PlayerConfig{
		FrameDuration:  20 * time.Millisecond,
		SampleRate:     48000,
		Channels:       2,
		Bitrate:        96000,
		VolumePercent:  100,
		ResolveTimeout: 2 * time.Second,
		StallTimeout:   2 * time.Second,
		SendTimeout:    2 * time.Second,
		IdleTTL:        time.Minute,
		QueueLimit:     100,
	}
	registry := player.NewRegistry(cfg, noopResolver{}, noopPipeline())
	t.Cleanup(registry.Close)

	bot := handler.NewBot(handler.Deps{
		Registry:  registry,
		Resolver:  noopResolver{},
		History:   repository.NewPostgresPlayHistoryRepository(pool),
		Schedules: repository.NewPostgresScheduledPlayRepository(pool),
		Gateway:   noopGateway{},
		Locate: func(guildID, userID string) (string, bool) {
			return voiceChannelID, true
		},
		IDs: &fixedIDGenerator{id: fixedID},
	})
	return bot, &mockSession{}
}

func commandInteraction(guildID, channelID, userID, name string, options ...*discordgo.ApplicationCommandInteractionDataOption) *discordgo.InteractionCreate {
	return &discordgo.InteractionCreate{
		Interaction: &discordgo.Interaction{
			Type:      discordgo.InteractionApplicationCommand,
			GuildID:   guildID,
			ChannelID: channelID,
			Member:    &discordgo.Member{User: &discordgo.User{ID: userID}},
			Data: discordgo.ApplicationCommandInteractionData{
				Name:    name,
				Options: options,
			},
		},
	}
}

func componentInteraction(guildID, channelID, userID, customID string, values ...string) *discordgo.InteractionCreate {
	return &discordgo.InteractionCreate{
		Interaction: &discordgo.Interaction{
			Type:      discordgo.InteractionMessageComponent,
			GuildID:   guildID,
			ChannelID: channelID,
			Member:    &discordgo.Member{User: &discordgo.User{ID: userID}},
			Data: discordgo.MessageComponentInteractionData{
				CustomID: customID,
				Values:   values,
			},
		},
	}
}

func strOpt(name, value string) *discordgo.ApplicationCommandInteractionDataOption {
	return &discordgo.ApplicationCommandInteractionDataOption{
		Name: name, Type: discordgo.ApplicationCommandOptionString, Value: value,
	}
}

func intOpt(name string, value int) *discordgo.ApplicationCommandInteractionDataOption {
	return &discordgo.ApplicationCommandInteractionDataOption{
		Name: name, Type: discordgo.ApplicationCommandOptionInteger, Value: float64(value),
	}
}

func subOpt(name string, options ...*discordgo.ApplicationCommandInteractionDataOption) *discordgo.ApplicationCommandInteractionDataOption {
	return &discordgo.ApplicationCommandInteractionDataOption{
		Name: name, Type: discordgo.ApplicationCommandOptionSubCommand, Options: options,
	}
}
