package handler

import (
	"fmt"

	"github.com/bwmarrin/discordgo"
)

var (
	positionMin = float64(1)
	volumeMin   = float64(0)
	limitMin    = float64(1)
)

var playOptions = []*discordgo.ApplicationCommandOption{
	{
		Name:        "query",
		Type:        discordgo.ApplicationCommandOptionString,
		Description: "A URL or search terms.",
		Required:    true,
	},
}

var scheduleAddOptions = []*discordgo.ApplicationCommandOption{
	{
		Name:        "cron",
		Type:        discordgo.ApplicationCommandOptionString,
		Description: "When to play, as a cron expression (e.g. 0 9 * * 5).",
		Required:    true,
	},
	{
		Name:        "query",
		Type:        discordgo.ApplicationCommandOptionString,
		Description: "The URL or search terms to play.",
		Required:    true,
	},
}

// Commands is a list of all the commands the bot can handle.
// This is used to register the commands with Discord.
var Commands = []*discordgo.ApplicationCommand{
	{
		Name:        "ping",
		Description: "Check that the bot is responsive",
	},
	{
		Name:        "join",
		Description: "Join your current voice channel",
	},
	{
		Name:        "play",
		Description: "Play a URL or search YouTube, queueing if something is already playing",
		Options:     playOptions,
	},
	{
		Name:        "spotify",
		Description: "Play a Spotify link or search the Spotify catalog",
		Options:     playOptions,
	},
	{
		Name:        "pause",
		Description: "Pause the current track",
	},
	{
		Name:        "resume",
		Description: "Resume a paused track",
	},
	{
		Name:        "skip",
		Description: "Skip to the next track in the queue",
	},
	{
		Name:        "stop",
		Description: "Stop playback and clear the queue",
	},
	{
		Name:        "clear",
		Description: "Clear the queue without stopping the current track",
	},
	{
		Name:        "loop",
		Description: "Show or change the loop mode",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Name:        "mode",
				Type:        discordgo.ApplicationCommandOptionString,
				Description: "The loop mode to switch to.",
				Choices: []*discordgo.ApplicationCommandOptionChoice{
					{Name: "off", Value: "off"},
					{Name: "track", Value: "track"},
					{Name: "queue", Value: "queue"},
				},
			},
		},
	},
	{
		Name:        "remove",
		Description: "Remove a track, or a range of tracks, from the queue",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Name:        "index",
				Type:        discordgo.ApplicationCommandOptionInteger,
				Description: "The 1-based queue position to remove.",
				Required:    true,
				MinValue:    &positionMin,
			},
			{
				Name:        "end",
				Type:        discordgo.ApplicationCommandOptionInteger,
				Description: "The end of the range to remove, inclusive.",
				MinValue:    &positionMin,
			},
		},
	},
	{
		Name:        "move",
		Description: "Move a queued track to a new position",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Name:        "from",
				Type:        discordgo.ApplicationCommandOptionInteger,
				Description: "The 1-based position of the track to move.",
				Required:    true,
				MinValue:    &positionMin,
			},
			{
				Name:        "to",
				Type:        discordgo.ApplicationCommandOptionInteger,
				Description: "The position to move it to.",
				Required:    true,
				MinValue:    &positionMin,
			},
		},
	},
	{
		Name:        "shuffle",
		Description: "Shuffle the queued tracks",
	},
	{
		Name:        "volume",
		Description: "Show or set the playback volume",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Name:        "percent",
				Type:        discordgo.ApplicationCommandOptionInteger,
				Description: "Volume from 0 to 200. 100 is source loudness.",
				MinValue:    &volumeMin,
				MaxValue:    200,
			},
		},
	},
	{
		Name:        "nowplaying",
		Description: "Show the currently playing track",
	},
	{
		Name:        "np",
		Description: "Show the currently playing track",
	},
	{
		Name:        "queue",
		Description: "Show the upcoming queue",
	},
	{
		Name:        "history",
		Description: "Show recently played tracks",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Name:        "limit",
				Type:        discordgo.ApplicationCommandOptionInteger,
				Description: "How many plays to show, up to 25.",
				MinValue:    &limitMin,
				MaxValue:    25,
			},
		},
	},
	{
		Name:        "leave",
		Description: "Disconnect from voice and drop the queue",
	},
	{
		Name:        "schedule",
		Description: "Manage scheduled plays for this server",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Name:        "add",
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Description: "Schedule a track to play on a cron",
				Options:     scheduleAddOptions,
			},
			{
				Name:        "list",
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Description: "List scheduled plays",
			},
			{
				Name:        "remove",
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Description: "Remove a scheduled play",
			},
		},
	},
}

func EstablishCommands(s *discordgo.Session, guildID string) error {
	_, err := s.ApplicationCommandBulkOverwrite(s.State.User.ID, guildID, Commands)
	if err != nil {
		return fmt.Errorf("failed to establish commands: %w", err)
	}
	return nil
}
