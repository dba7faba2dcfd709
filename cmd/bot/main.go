package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/redis/go-redis/v9"

	"github.com/averraz/troubadour/internal/cache"
	"github.com/averraz/troubadour/internal/config"
	"github.com/averraz/troubadour/internal/datalayer"
	"github.com/averraz/troubadour/internal/handler"
	"github.com/averraz/troubadour/internal/player"
	"github.com/averraz/troubadour/internal/repository"
	"github.com/averraz/troubadour/internal/resolver"
	"github.com/averraz/troubadour/internal/transcode"
	"github.com/averraz/troubadour/internal/voice"
	"github.com/averraz/troubadour/internal/worker"
)

const sweepInterval = time.Minute

func runBotForever() error {
	if err := config.LoadEnv(); err != nil {
		if os.IsNotExist(err) {
			slog.Warn("No .env file found, continuing without it")
		} else {
			return fmt.Errorf("failed to load .env file: %w", err)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	postgresConfig, err := config.NewPostgresConfigFromEnv()
	if err != nil {
		return fmt.Errorf("failed to load postgres config: %w", err)
	}
	pool, err := datalayer.NewPostgresPool(ctx, postgresConfig)
	if err != nil {
		return fmt.Errorf("failed to create postgres pool: %w", err)
	}
	defer pool.Close()

	if err := datalayer.MigratePostgres(pool); err != nil {
		return fmt.Errorf("failed to migrate postgres: %w", err)
	}

	discordConfig, err := config.NewDiscordConfigFromEnv()
	if err != nil {
		return fmt.Errorf("failed to load discord config: %w", err)
	}
	playerConfig, err := config.NewPlayerConfigFromEnv()
	if err != nil {
		return fmt.Errorf("failed to load player config: %w", err)
	}

	history := repository.NewPostgresPlayHistoryRepository(pool)
	schedules := repository.NewPostgresScheduledPlayRepository(pool)

	var frameCache *cache.FrameCache
	minioConfig, err := config.NewMinioConfigFromEnv()
	if err != nil {
		return fmt.Errorf("failed to load minio config: %w", err)
	}
	if minioConfig.Enabled() {
		storage, err := datalayer.NewMinioStorage(minioConfig)
		if err != nil {
			return fmt.Errorf("failed to create minio storage: %w", err)
		}
		if err := storage.EnsureBucket(ctx); err != nil {
			return fmt.Errorf("failed to ensure minio bucket: %w", err)
		}
		frameCache = cache.NewFrameCache(storage, playerConfig)
	} else {
		slog.Warn("No blob store configured, frame caching is disabled")
	}

	var resolveCache resolver.Cache
	redisConfig, err := config.NewRedisConfigFromEnv()
	if err != nil {
		return fmt.Errorf("failed to load redis config: %w", err)
	}
	if redisConfig.Enabled() {
		client := redis.NewClient(&redis.Options{
			Addr:     redisConfig.Addr,
			Password: redisConfig.Password,
			DB:       redisConfig.DB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("failed to ping redis: %w", err)
		}
		resolveCache = resolver.NewRedisCache(client, redisConfig.ResolveTTL)
	} else {
		slog.Warn("No redis configured, resolve caching is disabled")
	}

	ytdlp := resolver.NewYTDLP()
	var sources []resolver.Source
	var spotifySearch handler.SpotifySearcher

	spotifyConfig, err := config.NewSpotifyConfigFromEnv()
	if err != nil {
		return fmt.Errorf("failed to load spotify config: %w", err)
	}
	if spotifyConfig.Enabled() {
		spotifySource, err := resolver.NewSpotifySource(ctx, spotifyConfig)
		if err != nil {
			return fmt.Errorf("failed to create spotify source: %w", err)
		}
		sources = append(sources, spotifySource)
		spotifySearch = spotifySource
	} else {
		slog.Warn("No spotify credentials configured, spotify links fall back to search")
	}
	// The YouTube source claims every non-URL reference, so it must come
	// after spotify and before the direct-URL fallback.
	sources = append(sources, resolver.NewYouTubeSource(ytdlp), resolver.NewDirectSource(ytdlp))

	res := resolver.New(playerConfig.ResolveTimeout, resolveCache, sources...)
	registry := player.NewRegistry(playerConfig, res, transcode.New(playerConfig, frameCache))
	defer registry.Close()

	var bot *handler.Bot
	session, err := handler.NewSession(discordConfig.Token, handler.Handlers{
		Ready: handler.ReadyLog,
		InteractionCreate: func(s *discordgo.Session, i *discordgo.InteractionCreate) {
			bot.HandleInteraction(s, i)
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}

	gateway := voice.NewGateway(session, playerConfig.SendTimeout)
	bot = handler.NewBot(handler.Deps{
		Registry:  registry,
		Resolver:  res,
		Spotify:   spotifySearch,
		History:   history,
		Schedules: schedules,
		Gateway:   gateway,
		Locate:    gateway.Locate,
		Activity:  discordConfig.Activity,
	})
	bot.AttachSession(session)

	if err := session.Open(); err != nil {
		return fmt.Errorf("failed to open session: %w", err)
	}
	defer func() {
		if err := session.Close(); err != nil {
			slog.Warn("failed to close session", "error", err)
		}
	}()

	if err := handler.EstablishCommands(session, discordConfig.GuildID); err != nil {
		return fmt.Errorf("failed to establish commands: %w", err)
	}
	if err := session.UpdateGameStatus(0, discordConfig.Activity); err != nil {
		slog.Warn("failed to set presence", "error", err)
	}

	sweeper := worker.NewSweeper(schedules, bot, sweepInterval)
	go sweeper.Run(ctx)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)
	<-stop

	// Stop playback before the deferred session close tears down the
	// gateway, so the voice connections disconnect cleanly.
	cancel()
	registry.Close()
	return nil
}

func main() {
	if err := runBotForever(); err != nil {
		log.Fatalf("failed to run bot: %v", err)
	}
}
