package presenters

import (
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/averraz/troubadour/internal/repository"
)

// ComponentIDScheduledPlaySelect prefixes the custom ID of the removal
// select menu. The flow instance ID follows after a colon.
const ComponentIDScheduledPlaySelect = "scheduled_play_select"

var noScheduledPlaysResponse = Ephemeral("No scheduled plays.")

// ScheduleListResponse renders a guild's scheduled plays with their cron
// expressions and next firing times.
func ScheduleListResponse(plays []repository.ScheduledPlay) *discordgo.InteractionResponse {
	if len(plays) == 0 {
		return noScheduledPlaysResponse
	}

	var b strings.Builder
	b.WriteString("**Scheduled plays:**")
	for i, play := range plays {
		fmt.Fprintf(&b, "\n%d. **%s** (`%s`) - next <t:%d:R> in <#%s>",
			i+1,
			markdownEscaper.Replace(play.Reference),
			play.Cron,
			play.NextRunAt.Unix(),
			play.ChannelID,
		)
	}
	return Message(b.String())
}

var scheduleSelectMinValues = 1

// ScheduleRemoveMenu offers a select menu of scheduled plays to remove.
func ScheduleRemoveMenu(plays []repository.ScheduledPlay, instanceID string) *discordgo.InteractionResponse {
	if len(plays) == 0 {
		return noScheduledPlaysResponse
	}

	var options []discordgo.SelectMenuOption
	for _, play := range plays {
		options = append(options, discordgo.SelectMenuOption{
			Label:       truncate(play.Reference, 100),
			Description: truncate(play.Cron, 100),
			Value:       play.ID,
		})
	}

	menu := discordgo.SelectMenu{
		CustomID:    ComponentIDScheduledPlaySelect + ":" + instanceID,
		Placeholder: "Select a scheduled play to remove",
		MinValues:   &scheduleSelectMinValues,
		MaxValues:   1,
		Options:     options,
	}

	row := discordgo.ActionsRow{
		Components: []discordgo.MessageComponent{
			menu,
		},
	}

	return &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: "Choose a scheduled play to remove:",
			Flags:   discordgo.MessageFlagsEphemeral,
			Components: []discordgo.MessageComponent{
				row,
			},
		},
	}
}
