package handler

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/averraz/troubadour/internal/media"
	"github.com/averraz/troubadour/internal/presenters"
	"github.com/averraz/troubadour/internal/repository"
	"github.com/averraz/troubadour/internal/schedule"
	"github.com/averraz/troubadour/internal/worker"
)

func (b *Bot) schedule(s DiscordSession, i *discordgo.InteractionCreate, data discordgo.ApplicationCommandInteractionData) error {
	name, options, err := subcommand(data)
	if err != nil {
		return err
	}
	switch name {
	case "add":
		return b.scheduleAdd(s, i, options)
	case "list":
		return b.scheduleList(s, i)
	default:
		// "remove" starts a component flow and never reaches here.
		return fmt.Errorf("unknown schedule subcommand %q", name)
	}
}

func (b *Bot) scheduleAdd(s DiscordSession, i *discordgo.InteractionCreate, options []*discordgo.ApplicationCommandInteractionDataOption) error {
	cron, err := stringOption(options, "cron")
	if err != nil {
		return err
	}
	query, err := stringOption(options, "query")
	if err != nil {
		return err
	}

	channelID, ok := b.locate(i.GuildID, interactionUserID(i))
	if !ok {
		return &UserError{Message: "Join the voice channel the play should run in first."}
	}

	if err := schedule.ValidateCron(cron); err != nil {
		return &UserError{Message: "That cron expression is not valid. Try something like `0 9 * * 5`."}
	}

	id, err := b.ids.Next()
	if err != nil {
		return fmt.Errorf("failed to generate schedule ID: %w", err)
	}

	play := repository.ScheduledPlay{
		ID:          id,
		GuildID:     i.GuildID,
		ChannelID:   channelID,
		Reference:   query,
		Cron:        cron,
		RequestedBy: interactionUserID(i),
	}
	if err := b.schedules.Save(context.Background(), play); err != nil {
		if errors.Is(err, schedule.ErrBadCron) {
			return &UserError{Message: "That cron expression is not valid. Try something like `0 9 * * 5`."}
		}
		return fmt.Errorf("failed to save scheduled play: %w", err)
	}

	next, err := schedule.NextRunTimes(cron, 1)
	if err != nil || len(next) == 0 {
		return b.respond(s, i, presenters.Message(fmt.Sprintf("⏰ Scheduled **%s** (`%s`).", query, cron)))
	}
	return b.respond(s, i, presenters.Message(
		fmt.Sprintf("⏰ Scheduled **%s** (`%s`) - next run <t:%d:R>.", query, cron, next[0].Unix())))
}

func (b *Bot) scheduleList(s DiscordSession, i *discordgo.InteractionCreate) error {
	plays, err := b.schedules.ListGuild(context.Background(), i.GuildID)
	if err != nil {
		return fmt.Errorf("failed to list scheduled plays: %w", err)
	}
	return b.respond(s, i, presenters.ScheduleListResponse(plays))
}

// scheduleRemoveFlow is the two-step removal dialog: a select menu of
// the guild's scheduled plays, then deletion of the chosen one.
func (b *Bot) scheduleRemoveFlow() *Flow {
	return &Flow{
		ID: "schedule_remove",
		Root: &Node{
			ID: "menu",
			Matcher: func(i *discordgo.InteractionCreate) bool {
				if i.Type != discordgo.InteractionApplicationCommand {
					return false
				}
				data := i.ApplicationCommandData()
				if data.Name != "schedule" || len(data.Options) == 0 {
					return false
				}
				return data.Options[0].Name == "remove"
			},
			Handler: func(s DiscordSession, i *discordgo.InteractionCreate, fc *FlowContext) error {
				plays, err := b.schedules.ListGuild(context.Background(), i.GuildID)
				if err != nil {
					return fmt.Errorf("failed to list scheduled plays: %w", err)
				}
				if err := s.InteractionRespond(i.Interaction, presenters.ScheduleRemoveMenu(plays, fc.InstanceID)); err != nil {
					return fmt.Errorf("failed to respond with removal menu: %w", err)
				}
				if len(plays) == 0 {
					return ErrEndFlow
				}
				return nil
			},
			Next: []*Node{
				{
					ID: "selection",
					Matcher: func(i *discordgo.InteractionCreate) bool {
						if i.Type != discordgo.InteractionMessageComponent {
							return false
						}
						return strings.HasPrefix(i.MessageComponentData().CustomID, presenters.ComponentIDScheduledPlaySelect+":")
					},
					Handler: func(s DiscordSession, i *discordgo.InteractionCreate, fc *FlowContext) error {
						values := i.MessageComponentData().Values
						if len(values) == 0 {
							return fmt.Errorf("no scheduled play selected")
						}
						removed, err := b.schedules.Delete(context.Background(), i.GuildID, values[0])
						if err != nil {
							return fmt.Errorf("failed to delete scheduled play: %w", err)
						}
						content := "🗑️ Removed the scheduled play."
						if !removed {
							content = "That scheduled play was already gone."
						}
						if err := s.InteractionRespond(i.Interaction, presenters.UpdateMessage(content)); err != nil {
							return fmt.Errorf("failed to confirm removal: %w", err)
						}
						return nil
					},
				},
			},
		},
	}
}

// StartScheduledPlay joins the stored voice channel and queues the
// stored reference. The sweeper calls it when a cron fires.
func (b *Bot) StartScheduledPlay(ctx context.Context, play repository.ScheduledPlay) error {
	s, ok := b.gatewaySession()
	if !ok {
		return fmt.Errorf("no gateway session attached")
	}

	dest := media.Destination{GuildID: play.GuildID, ChannelID: play.ChannelID}
	sess, err := b.registry.GetOrCreate(ctx, dest, b.gateway.Join)
	if err != nil {
		return fmt.Errorf("failed to join voice for scheduled play: %w", err)
	}
	b.watch(s, sess)

	descs, err := b.resolver.Resolve(ctx, play.Reference)
	if err != nil {
		return fmt.Errorf("failed to resolve %q: %w", play.Reference, err)
	}
	if _, err := sess.Enqueue(descs, play.RequestedBy); err != nil {
		return fmt.Errorf("failed to enqueue scheduled play: %w", err)
	}
	return nil
}

var _ worker.PlayStarter = (*Bot)(nil)
