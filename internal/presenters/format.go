package presenters

import (
	"fmt"
	"strings"
	"time"

	"github.com/averraz/troubadour/internal/media"
)

// FormatDuration renders a track length the way players display it:
// m:ss under an hour, h:mm:ss above.
func FormatDuration(d time.Duration) string {
	if d <= 0 {
		return "0:00"
	}
	total := int(d.Round(time.Second).Seconds())
	h := total / 3600
	m := total % 3600 / 60
	s := total % 60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}

var markdownEscaper = strings.NewReplacer(
	"*", "\\*",
	"_", "\\_",
	"`", "\\`",
	"~", "\\~",
	"[", "\\[",
	"]", "\\]",
)

// TrackLabel renders a bold title, linked to the track's page when it has
// one, with the artist appended.
func TrackLabel(d media.Descriptor) string {
	title := d.Title
	if title == "" {
		title = d.Reference
	}
	return trackLabel(title, d.PageURL, d.Artist)
}

func trackLabel(title, pageURL, artist string) string {
	if title == "" {
		title = "unknown"
	}
	label := markdownEscaper.Replace(title)
	if artist != "" {
		label += " - " + markdownEscaper.Replace(artist)
	}
	if pageURL != "" {
		return fmt.Sprintf("**[%s](%s)**", label, pageURL)
	}
	return fmt.Sprintf("**%s**", label)
}

// trackTiming renders the bracketed time marker beside a track label.
func trackTiming(d media.Descriptor) string {
	if d.Live {
		return "[LIVE]"
	}
	return "[" + FormatDuration(d.Duration) + "]"
}

// playbackTiming renders elapsed position over total length, or just the
// elapsed position when the length is unknown.
func playbackTiming(elapsed time.Duration, d media.Descriptor) string {
	if d.Live || d.Duration <= 0 {
		return "[" + FormatDuration(elapsed) + "]"
	}
	if elapsed > d.Duration {
		elapsed = d.Duration
	}
	return fmt.Sprintf("[%s/%s]", FormatDuration(elapsed), FormatDuration(d.Duration))
}

// truncate shortens s to at most n runes. Discord caps component labels.
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-1]) + "…"
}
