package e2e_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/averraz/troubadour/e2e"
	"github.com/averraz/troubadour/internal/media"
	"github.com/averraz/troubadour/internal/repository"
)

const (
	historyGuildID     = "831990256904785111"
	historyTextChannel = "831990256904785222"
	historyFixedID     = "2b8e4d6f-1a3c-4e5b-8d7a-9c0b1a2d3e4f"
)

func TestHistoryCommandReadsRealRows(t *testing.T) {
	connStr := e2e.UsePostgres(t)
	pool := e2e.GetPool(t, connStr)
	history := repository.NewPostgresPlayHistoryRepository(pool)
	e2e.SeedGlobalNoise(t, repository.NewPostgresScheduledPlayRepository(pool))

	plays := []repository.Play{
		{
			ID:          "77c3b8a1-5e2d-4f9c-8b6a-0d1e2f3a4b5c",
			GuildID:     historyGuildID,
			Title:       "Take On Me",
			Artist:      "a-ha",
			PageURL:     "https://youtu.be/v1",
			Source:      media.KindYouTube,
			RequestedBy: "111",
			Duration:    3*time.Minute + 45*time.Second,
			StartedAt:   time.Unix(1750000000, 0).UTC(),
		},
		{
			ID:          "88d4c9b2-6f3e-4a0d-9c7b-1e2f3a4b5c6d",
			GuildID:     historyGuildID,
			Title:       "Hounds of Love",
			Artist:      "Kate Bush",
			PageURL:     "https://youtu.be/v2",
			Source:      media.KindYouTube,
			RequestedBy: "222",
			Duration:    3*time.Minute + 2*time.Second,
			StartedAt:   time.Unix(1750000300, 0).UTC(),
		},
		{
			ID:          "99e5d0c3-7a4f-4b1e-8d9c-2f3a4b5c6d7e",
			GuildID:     historyGuildID,
			Title:       "Blue Monday",
			Artist:      "New Order",
			PageURL:     "https://youtu.be/v3",
			Source:      media.KindYouTube,
			RequestedBy: "111",
			Duration:    7*time.Minute + 29*time.Second,
			StartedAt:   time.Unix(1750000600, 0).UTC(),
		},
		// A play from a different guild that must never show up.
		{
			ID:          "aaf6e1d4-8b5a-4c2f-9e0d-3a4b5c6d7e8f",
			GuildID:     "400000000000000400",
			Title:       "Wrong Guild",
			RequestedBy: "333",
			StartedAt:   time.Unix(1750000900, 0).UTC(),
		},
	}
	for _, play := range plays {
		if err := history.Record(t.Context(), play); err != nil {
			t.Fatalf("failed to record play: %v", err)
		}
	}

	bot, session := newBot(t, pool, historyTextChannel, historyFixedID)

	bot.HandleInteraction(session, commandInteraction(
		historyGuildID, historyTextChannel, "111", "history", intOpt("limit", 2),
	))

	want := fmt.Sprintf(
		"**Recently played:**\n1. **[Blue Monday - New Order](https://youtu.be/v3)** [7:29] - <t:%d:R> by <@111>\n2. **[Hounds of Love - Kate Bush](https://youtu.be/v2)** [3:02] - <t:%d:R> by <@222>",
		1750000600, 1750000300,
	)
	if diff := cmp.Diff(want, session.lastContent(t)); diff != "" {
		t.Errorf("history mismatch (-want +got):\n%s", diff)
	}
}
