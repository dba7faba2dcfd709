package presenters

import (
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/averraz/troubadour/internal/repository"
)

var noHistoryResponse = Ephemeral("No plays recorded yet.")

// HistoryResponse renders recent plays, newest first, with Discord's
// relative timestamps.
func HistoryResponse(plays []repository.Play) *discordgo.InteractionResponse {
	if len(plays) == 0 {
		return noHistoryResponse
	}

	var b strings.Builder
	b.WriteString("**Recently played:**")
	for i, play := range plays {
		fmt.Fprintf(&b, "\n%d. %s [%s] - <t:%d:R> by <@%s>",
			i+1,
			trackLabel(play.Title, play.PageURL, play.Artist),
			FormatDuration(play.Duration),
			play.StartedAt.Unix(),
			play.RequestedBy,
		)
	}
	return Message(b.String())
}
