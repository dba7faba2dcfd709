// Package worker fires scheduled plays when their cron times arrive.
package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/averraz/troubadour/internal/repository"
	"github.com/averraz/troubadour/internal/schedule"
)

// PlayStarter joins a scheduled play's voice channel and enqueues its
// reference, exactly as if the requester had asked for it interactively.
type PlayStarter interface {
	StartScheduledPlay(ctx context.Context, play repository.ScheduledPlay) error
}

// PlayStarterFunc adapts a function to the PlayStarter interface.
type PlayStarterFunc func(ctx context.Context, play repository.ScheduledPlay) error

func (f PlayStarterFunc) StartScheduledPlay(ctx context.Context, play repository.ScheduledPlay) error {
	return f(ctx, play)
}

// DuePlayTaker claims scheduled plays whose run time is at or before the
// cutoff. Claimed rows must not be claimable again.
type DuePlayTaker interface {
	TakeDue(ctx context.Context, cutoff time.Time) ([]repository.ScheduledPlay, error)
}

const defaultSweepInterval = time.Minute

// Sweeper polls the scheduled play table and fires each due play at its
// exact run time. Rows are claimed and advanced in one transaction, so
// several bot instances can sweep the same table without double firing.
type Sweeper struct {
	store    DuePlayTaker
	starter  PlayStarter
	interval time.Duration
}

func NewSweeper(store DuePlayTaker, starter PlayStarter, interval time.Duration) *Sweeper {
	if interval <= 0 {
		interval = defaultSweepInterval
	}
	return &Sweeper{
		store:    store,
		starter:  starter,
		interval: interval,
	}
}

// Run sweeps until ctx is canceled. Each sweep looks one interval ahead,
// so a play whose run time falls between ticks still starts on time.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		s.sweep(ctx)
		select {
		case <-ticker.C:
		case <-ctx.Done():
			return
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	due, err := s.store.TakeDue(ctx, time.Now().Add(s.interval))
	if err != nil {
		slog.ErrorContext(ctx, "failed to take due scheduled plays", slog.Any("error", err))
		return
	}

	for _, play := range due {
		schedule.RunAt(ctx, play.NextRunAt, func(ctx context.Context) {
			if err := s.starter.StartScheduledPlay(ctx, play); err != nil {
				slog.ErrorContext(
					ctx,
					"failed to start scheduled play",
					slog.String("scheduledPlayID", play.ID),
					slog.String("guildID", play.GuildID),
					slog.String("reference", play.Reference),
					slog.Any("error", err),
				)
				return
			}
			slog.InfoContext(
				ctx,
				"started scheduled play",
				slog.String("scheduledPlayID", play.ID),
				slog.String("guildID", play.GuildID),
				slog.String("reference", play.Reference),
			)
		})
	}
}
