package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/averraz/troubadour/internal/media"
)

// Play is one playback that actually started, as surfaced by /history.
type Play struct {
	ID          string
	GuildID     string
	Title       string
	Artist      string
	PageURL     string
	Source      media.Kind
	RequestedBy string
	Duration    time.Duration
	StartedAt   time.Time
}

type PlayRecorder interface {
	Record(ctx context.Context, play Play) error
	Recent(ctx context.Context, guildID string, limit int) ([]Play, error)
}

type PostgresPlayHistoryRepository struct {
	db *pgxpool.Pool
}

func NewPostgresPlayHistoryRepository(db *pgxpool.Pool) *PostgresPlayHistoryRepository {
	return &PostgresPlayHistoryRepository{db: db}
}

func (r *PostgresPlayHistoryRepository) Record(ctx context.Context, play Play) error {
	const query = `
	INSERT INTO play_history (id, guild_id, title, artist, page_url, source, requested_by, duration_ms, started_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.db.Exec(ctx, query,
		play.ID,
		play.GuildID,
		play.Title,
		play.Artist,
		play.PageURL,
		string(play.Source),
		play.RequestedBy,
		play.Duration.Milliseconds(),
		play.StartedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to record play: %w", err)
	}
	return nil
}

func (r *PostgresPlayHistoryRepository) Recent(ctx context.Context, guildID string, limit int) ([]Play, error) {
	const query = `
	SELECT id, guild_id, title, artist, page_url, source, requested_by, duration_ms, started_at
	FROM play_history
	WHERE guild_id = $1
	ORDER BY started_at DESC
	LIMIT $2
	`

	rows, err := r.db.Query(ctx, query, guildID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query play history: %w", err)
	}
	defer rows.Close()

	var plays []Play
	for rows.Next() {
		var (
			play       Play
			source     string
			durationMS int64
		)
		err := rows.Scan(
			&play.ID,
			&play.GuildID,
			&play.Title,
			&play.Artist,
			&play.PageURL,
			&source,
			&play.RequestedBy,
			&durationMS,
			&play.StartedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan play history row: %w", err)
		}
		play.Source = media.Kind(source)
		play.Duration = time.Duration(durationMS) * time.Millisecond
		plays = append(plays, play)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read play history rows: %w", err)
	}
	return plays, nil
}

var _ PlayRecorder = (*PostgresPlayHistoryRepository)(nil)
