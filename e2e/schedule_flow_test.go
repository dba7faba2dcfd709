package e2e_test

import (
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/google/go-cmp/cmp"

	"github.com/averraz/troubadour/e2e"
	"github.com/averraz/troubadour/internal/repository"
)

const (
	scheduleGuildID      = "74241007174813750"
	scheduleTextChannel  = "940881624311567"
	scheduleVoiceChannel = "940881624319999"
	scheduleUserID       = "111"

	// Both the stored play and the flow instance get this ID, which keeps
	// the select menu fully deterministic.
	scheduleFixedID = "9f6c1c3e-8d4a-4f6e-b0a1-2e3d4c5b6a70"
)

func TestScheduleLifecycle(t *testing.T) {
	connStr := e2e.UsePostgres(t)
	pool := e2e.GetPool(t, connStr)
	schedules := repository.NewPostgresScheduledPlayRepository(pool)
	e2e.SeedGlobalNoise(t, schedules)

	bot, session := newBot(t, pool, scheduleVoiceChannel, scheduleFixedID)

	bot.HandleInteraction(session, commandInteraction(
		scheduleGuildID, scheduleTextChannel, scheduleUserID, "schedule",
		subOpt("add", strOpt("cron", "0 9 * * 5"), strOpt("query", "lo-fi beats")),
	))

	added := session.lastContent(t)
	if !strings.HasPrefix(added, "⏰ Scheduled **lo-fi beats** (`0 9 * * 5`)") {
		t.Errorf("unexpected add response: %q", added)
	}

	rows, err := schedules.ListGuild(t.Context(), scheduleGuildID)
	if err != nil {
		t.Fatalf("failed to list scheduled plays: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("%d scheduled plays stored, want 1", len(rows))
	}
	row := rows[0]
	if row.Reference != "lo-fi beats" || row.Cron != "0 9 * * 5" ||
		row.ChannelID != scheduleVoiceChannel || row.RequestedBy != scheduleUserID {
		t.Errorf("stored play mismatch: %+v", row)
	}
	if !row.NextRunAt.After(time.Now()) {
		t.Errorf("next run %v is not in the future", row.NextRunAt)
	}

	// Listing shows only this guild's play, never the seeded noise.
	bot.HandleInteraction(session, commandInteraction(
		scheduleGuildID, scheduleTextChannel, scheduleUserID, "schedule", subOpt("list"),
	))
	listed := session.lastContent(t)
	if !strings.HasPrefix(listed, "**Scheduled plays:**\n1. **lo-fi beats** (`0 9 * * 5`)") {
		t.Errorf("unexpected list response: %q", listed)
	}
	if strings.Contains(listed, "noise-track") {
		t.Errorf("list leaked rows from other guilds: %q", listed)
	}
	if strings.Contains(listed, "\n2.") {
		t.Errorf("list shows more than one play: %q", listed)
	}

	bot.HandleInteraction(session, commandInteraction(
		scheduleGuildID, scheduleTextChannel, scheduleUserID, "schedule", subOpt("remove"),
	))

	expectedMenu := &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: "Choose a scheduled play to remove:",
			Flags:   discordgo.MessageFlagsEphemeral,
			Components: []discordgo.MessageComponent{
				discordgo.ActionsRow{
					Components: []discordgo.MessageComponent{
						discordgo.SelectMenu{
							CustomID:    "scheduled_play_select:" + scheduleFixedID,
							Placeholder: "Select a scheduled play to remove",
							MinValues:   &[]int{1}[0],
							MaxValues:   1,
							Options: []discordgo.SelectMenuOption{
								{Label: "lo-fi beats", Description: "0 9 * * 5", Value: scheduleFixedID},
							},
						},
					},
				},
			},
		},
	}
	if diff := cmp.Diff(expectedMenu, session.lastResponse(t)); diff != "" {
		t.Errorf("menu mismatch (-want +got):\n%s", diff)
	}

	bot.HandleInteraction(session, componentInteraction(
		scheduleGuildID, scheduleTextChannel, scheduleUserID,
		"scheduled_play_select:"+scheduleFixedID, scheduleFixedID,
	))
	if got := session.lastContent(t); got != "🗑️ Removed the scheduled play." {
		t.Errorf("unexpected removal confirmation: %q", got)
	}

	rows, err = schedules.ListGuild(t.Context(), scheduleGuildID)
	if err != nil {
		t.Fatalf("failed to list scheduled plays after removal: %v", err)
	}
	if len(rows) != 0 {
		t.Errorf("%d scheduled plays remain after removal, want 0", len(rows))
	}
}
