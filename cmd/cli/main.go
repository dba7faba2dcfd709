package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/urfave/cli/v2"

	"github.com/averraz/troubadour/internal/config"
	"github.com/averraz/troubadour/internal/datalayer"
	"github.com/averraz/troubadour/internal/generator"
	"github.com/averraz/troubadour/internal/handler"
	"github.com/averraz/troubadour/internal/repository"
	"github.com/averraz/troubadour/internal/resolver"
	"github.com/averraz/troubadour/internal/schedule"
)

var stdinReader = bufio.NewReader(os.Stdin)

var uuidGenerator = generator.UUIDV4Generator{}

func prompt(label string) string {
	fmt.Printf("%s: ", label)
	input, _ := stdinReader.ReadString('\n')
	return strings.TrimSpace(input)
}

// openPool connects lazily so the commands that never touch postgres
// keep working without one.
func openPool(ctx context.Context) (*pgxpool.Pool, error) {
	cfg, err := config.NewPostgresConfigFromEnv()
	if err != nil {
		return nil, err
	}
	pool, err := datalayer.NewPostgresPool(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := datalayer.MigratePostgres(pool); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}

func main() {
	if err := config.LoadEnv(); err != nil && !os.IsNotExist(err) {
		log.Fatalf("Failed to load .env file: %v", err)
	}

	app := &cli.App{
		Name:        "troubadour-cli",
		Description: "A development CLI tool for operating Troubadour without Discord",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List all scheduled plays for a specific guild",
				Action: func(c *cli.Context) error {
					guildID := c.String("guild-id")
					if guildID == "" {
						return cli.Exit("Please provide a guild ID using --guild-id", 1)
					}

					pool, err := openPool(c.Context)
					if err != nil {
						return cli.Exit("Failed to connect to postgres: "+err.Error(), 1)
					}
					defer pool.Close()

					repo := repository.NewPostgresScheduledPlayRepository(pool)
					plays, err := repo.ListGuild(c.Context, guildID)
					if err != nil {
						return cli.Exit("Failed to retrieve scheduled plays: "+err.Error(), 1)
					}

					if len(plays) == 0 {
						log.Println("No scheduled plays found for the specified guild.")
						return nil
					}

					for _, play := range plays {
						log.Printf("%+v", play)
					}
					return nil
				},
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "guild-id",
						Usage:    "ID of the guild to list scheduled plays for",
						Required: true,
					},
				},
			},
			{
				Name:  "add",
				Usage: "Add a new scheduled play to the repository",
				Action: func(c *cli.Context) error {
					guildID := c.String("guild-id")
					if guildID == "" {
						return cli.Exit("Please provide a guild ID using --guild-id", 1)
					}

					channelID := prompt("Enter voice channel ID")
					reference := prompt("Enter track URL or search query")
					cron := prompt("Enter cron expression (e.g., '0 0 * * *')")
					requestedBy := prompt("Enter requester user ID (optional)")

					if err := schedule.ValidateCron(cron); err != nil {
						return cli.Exit("Invalid cron expression: "+err.Error(), 1)
					}

					pool, err := openPool(c.Context)
					if err != nil {
						return cli.Exit("Failed to connect to postgres: "+err.Error(), 1)
					}
					defer pool.Close()

					id, _ := uuidGenerator.Next()

					play := repository.ScheduledPlay{
						ID:          id,
						GuildID:     guildID,
						ChannelID:   channelID,
						Reference:   reference,
						Cron:        cron,
						RequestedBy: requestedBy,
					}

					repo := repository.NewPostgresScheduledPlayRepository(pool)
					if err := repo.Save(c.Context, play); err != nil {
						return cli.Exit("Failed to save scheduled play: "+err.Error(), 1)
					}

					log.Println("Scheduled play added successfully.")
					return nil
				},
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "guild-id",
						Usage:    "ID of the guild to add the scheduled play for",
						Required: true,
					},
				},
			},
			{
				Name:  "history",
				Usage: "List the most recent plays for a specific guild",
				Action: func(c *cli.Context) error {
					guildID := c.String("guild-id")
					if guildID == "" {
						return cli.Exit("Please provide a guild ID using --guild-id", 1)
					}

					pool, err := openPool(c.Context)
					if err != nil {
						return cli.Exit("Failed to connect to postgres: "+err.Error(), 1)
					}
					defer pool.Close()

					repo := repository.NewPostgresPlayHistoryRepository(pool)
					plays, err := repo.Recent(c.Context, guildID, c.Int("limit"))
					if err != nil {
						return cli.Exit("Failed to retrieve play history: "+err.Error(), 1)
					}

					if len(plays) == 0 {
						log.Println("No plays recorded for the specified guild.")
						return nil
					}

					for _, play := range plays {
						log.Printf("%+v", play)
					}
					return nil
				},
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "guild-id",
						Usage:    "ID of the guild to list plays for",
						Required: true,
					},
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of plays to print",
						Value: 10,
					},
				},
			},
			{
				Name:      "resolve",
				Usage:     "Resolve a URL or search query and print the descriptors",
				ArgsUsage: "<reference>",
				Action: func(c *cli.Context) error {
					reference := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
					if reference == "" {
						return cli.Exit("Please provide a URL or search query", 1)
					}

					playerConfig, err := config.NewPlayerConfigFromEnv()
					if err != nil {
						return cli.Exit("Failed to load player config: "+err.Error(), 1)
					}

					ytdlp := resolver.NewYTDLP()
					var sources []resolver.Source
					spotifyConfig, err := config.NewSpotifyConfigFromEnv()
					if err != nil {
						return cli.Exit("Failed to load spotify config: "+err.Error(), 1)
					}
					if spotifyConfig.Enabled() {
						spotifySource, err := resolver.NewSpotifySource(c.Context, spotifyConfig)
						if err != nil {
							return cli.Exit("Failed to create spotify source: "+err.Error(), 1)
						}
						sources = append(sources, spotifySource)
					}
					sources = append(sources, resolver.NewYouTubeSource(ytdlp), resolver.NewDirectSource(ytdlp))

					res := resolver.New(playerConfig.ResolveTimeout, nil, sources...)
					descs, err := res.Resolve(c.Context, reference)
					if err != nil {
						return cli.Exit("Failed to resolve: "+err.Error(), 1)
					}

					if len(descs) == 0 {
						log.Println("No results found.")
						return nil
					}

					for _, desc := range descs {
						log.Printf("%+v", desc)
					}
					return nil
				},
			},
			{
				Name:  "sync-commands",
				Usage: "Register the slash commands over REST without opening a gateway session",
				Action: func(c *cli.Context) error {
					discordConfig, err := config.NewDiscordConfigFromEnv()
					if err != nil {
						return cli.Exit("Failed to load discord config: "+err.Error(), 1)
					}
					guildID := c.String("guild-id")
					if guildID == "" {
						guildID = discordConfig.GuildID
					}

					session, err := discordgo.New("Bot " + discordConfig.Token)
					if err != nil {
						return cli.Exit("Failed to create session: "+err.Error(), 1)
					}

					if _, err := session.ApplicationCommandBulkOverwrite(discordConfig.ClientID, guildID, handler.Commands); err != nil {
						return cli.Exit("Failed to overwrite commands: "+err.Error(), 1)
					}

					if guildID == "" {
						log.Println("Global commands synced successfully.")
					} else {
						log.Printf("Commands synced successfully for guild %s.", guildID)
					}
					return nil
				},
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "guild-id",
						Usage: "ID of the guild to sync commands for (empty syncs globally)",
					},
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatalf("Error running CLI: %v", err)
	}
}
