package presenters_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/averraz/troubadour/internal/presenters"
	"github.com/averraz/troubadour/internal/repository"
)

func TestHistoryResponse(t *testing.T) {
	t.Run("empty history is an ephemeral notice", func(t *testing.T) {
		got := presenters.HistoryResponse(nil)
		if got.Data.Content != "No plays recorded yet." {
			t.Errorf("content = %q", got.Data.Content)
		}
	})

	t.Run("plays render with relative timestamps", func(t *testing.T) {
		startedAt := time.Date(2026, 3, 14, 20, 15, 0, 0, time.UTC)
		plays := []repository.Play{
			{
				Title:       "Take On Me",
				Artist:      "a-ha",
				PageURL:     "https://youtu.be/djV11Xbc914",
				RequestedBy: "111",
				Duration:    3*time.Minute + 46*time.Second,
				StartedAt:   startedAt,
			},
			{
				Title:       "Nameless Jam",
				RequestedBy: "222",
				StartedAt:   startedAt.Add(-time.Hour),
			},
		}

		got := presenters.HistoryResponse(plays).Data.Content
		want := "**Recently played:**\n" +
			fmt.Sprintf("1. **[Take On Me - a-ha](https://youtu.be/djV11Xbc914)** [3:46] - <t:%d:R> by <@111>\n", startedAt.Unix()) +
			fmt.Sprintf("2. **Nameless Jam** [0:00] - <t:%d:R> by <@222>", startedAt.Add(-time.Hour).Unix())
		if got != want {
			t.Errorf("content mismatch:\ngot:  %q\nwant: %q", got, want)
		}
	})
}
