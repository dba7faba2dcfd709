package repository

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/averraz/troubadour/internal/schedule"
)

// ScheduledPlay is a recurring play request: at each firing of Cron the bot
// joins ChannelID and enqueues Reference as if RequestedBy had asked for it.
type ScheduledPlay struct {
	ID          string
	GuildID     string
	ChannelID   string
	Reference   string
	Cron        string
	RequestedBy string
	NextRunAt   time.Time
	CreatedAt   time.Time
}

type ScheduledPlayPersister interface {
	Save(ctx context.Context, play ScheduledPlay) error
	ListGuild(ctx context.Context, guildID string) ([]ScheduledPlay, error)
	Delete(ctx context.Context, guildID, id string) (bool, error)
	TakeDue(ctx context.Context, cutoff time.Time) ([]ScheduledPlay, error)
}

type PostgresScheduledPlayRepository struct {
	db *pgxpool.Pool
}

func NewPostgresScheduledPlayRepository(db *pgxpool.Pool) *PostgresScheduledPlayRepository {
	return &PostgresScheduledPlayRepository{db: db}
}

// Save upserts the row and computes NextRunAt from the cron expression.
// The caller does not control NextRunAt; it always becomes the next firing
// after now.
func (r *PostgresScheduledPlayRepository) Save(ctx context.Context, play ScheduledPlay) error {
	next, err := schedule.NextRunTimes(play.Cron, 1)
	if err != nil {
		return fmt.Errorf("failed to get next run time: %w", err)
	}
	if len(next) == 0 {
		return fmt.Errorf("cron expression %q has no upcoming run times", play.Cron)
	}

	const query = `
	INSERT INTO scheduled_play (id, guild_id, channel_id, reference, cron, requested_by, next_run_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
	ON CONFLICT (id) DO UPDATE SET
		guild_id = EXCLUDED.guild_id,
		channel_id = EXCLUDED.channel_id,
		reference = EXCLUDED.reference,
		cron = EXCLUDED.cron,
		requested_by = EXCLUDED.requested_by,
		next_run_at = EXCLUDED.next_run_at
	`

	_, err = r.db.Exec(ctx, query,
		play.ID,
		play.GuildID,
		play.ChannelID,
		play.Reference,
		play.Cron,
		play.RequestedBy,
		next[0],
	)
	if err != nil {
		return fmt.Errorf("failed to save scheduled play: %w", err)
	}
	return nil
}

func (r *PostgresScheduledPlayRepository) ListGuild(ctx context.Context, guildID string) ([]ScheduledPlay, error) {
	const query = `
	SELECT id, guild_id, channel_id, reference, cron, requested_by, next_run_at, created_at
	FROM scheduled_play
	WHERE guild_id = $1
	ORDER BY next_run_at
	`

	rows, err := r.db.Query(ctx, query, guildID)
	if err != nil {
		return nil, fmt.Errorf("failed to query scheduled plays: %w", err)
	}
	defer rows.Close()
	return scanScheduledPlays(rows)
}

func (r *PostgresScheduledPlayRepository) Delete(ctx context.Context, guildID, id string) (bool, error) {
	const query = `
	DELETE FROM scheduled_play
	WHERE guild_id = $1 AND id = $2
	`

	tag, err := r.db.Exec(ctx, query, guildID, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete scheduled play: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// TakeDue claims every row whose next_run_at is at or before cutoff and
// advances it to the firing after cutoff, all in one transaction. Rows
// whose cron yields no further firings are one-shot and are retired
// instead of advanced. Claimed rows keep their original NextRunAt so the
// caller knows when each was meant to fire.
func (r *PostgresScheduledPlayRepository) TakeDue(ctx context.Context, cutoff time.Time) ([]ScheduledPlay, error) {
	const dueQuery = `
	SELECT id, guild_id, channel_id, reference, cron, requested_by, next_run_at, created_at
	FROM scheduled_play
	WHERE next_run_at <= $1
	ORDER BY next_run_at
	FOR UPDATE SKIP LOCKED
	`
	const advanceQuery = `
	UPDATE scheduled_play SET next_run_at = $2 WHERE id = $1
	`
	const retireQuery = `
	DELETE FROM scheduled_play WHERE id = $1
	`

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err := tx.Rollback(ctx); err != nil && err != pgx.ErrTxClosed {
			slog.Warn("failed to rollback transaction", "error", err)
		}
	}()

	rows, err := tx.Query(ctx, dueQuery, cutoff.UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to query due scheduled plays: %w", err)
	}
	due, err := scanScheduledPlays(rows)
	rows.Close()
	if err != nil {
		return nil, err
	}

	for _, play := range due {
		next, err := schedule.NextRunTimesAfter(play.Cron, cutoff.UTC(), 1)
		if err != nil || len(next) == 0 {
			if _, derr := tx.Exec(ctx, retireQuery, play.ID); derr != nil {
				return nil, fmt.Errorf("failed to retire scheduled play: %w", derr)
			}
			continue
		}
		if _, uerr := tx.Exec(ctx, advanceQuery, play.ID, next[0]); uerr != nil {
			return nil, fmt.Errorf("failed to advance scheduled play: %w", uerr)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return due, nil
}

func scanScheduledPlays(rows pgx.Rows) ([]ScheduledPlay, error) {
	var plays []ScheduledPlay
	for rows.Next() {
		var play ScheduledPlay
		err := rows.Scan(
			&play.ID,
			&play.GuildID,
			&play.ChannelID,
			&play.Reference,
			&play.Cron,
			&play.RequestedBy,
			&play.NextRunAt,
			&play.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan scheduled play row: %w", err)
		}
		plays = append(plays, play)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read scheduled play rows: %w", err)
	}
	return plays, nil
}

var _ ScheduledPlayPersister = (*PostgresScheduledPlayRepository)(nil)
