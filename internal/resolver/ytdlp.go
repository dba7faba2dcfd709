package resolver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/averraz/troubadour/internal/media"
)

// YTDLP shells out to the yt-dlp binary for metadata extraction. It backs
// the YouTube fallback path and digs audio out of arbitrary pages.
type YTDLP struct {
	bin string
}

func NewYTDLP() *YTDLP {
	return &YTDLP{bin: "yt-dlp"}
}

type ytdlpInfo struct {
	ID         string  `json:"id"`
	Title      string  `json:"title"`
	Uploader   string  `json:"uploader"`
	Channel    string  `json:"channel"`
	Duration   float64 `json:"duration"`
	IsLive     bool    `json:"is_live"`
	URL        string  `json:"url"`
	WebpageURL string  `json:"webpage_url"`
	Extractor  string  `json:"extractor"`
}

// Extract resolves one target URL into a descriptor carrying the best
// audio-only stream URL yt-dlp can find.
func (y *YTDLP) Extract(ctx context.Context, target string) (media.Descriptor, error) {
	cmd := exec.CommandContext(ctx, y.bin,
		"-j",
		"--no-playlist",
		"-f", "bestaudio/best",
		"--no-warnings",
		target,
	)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return media.Descriptor{}, ctx.Err()
		}
		detail := strings.TrimSpace(stderr.String())
		if detail == "" {
			detail = err.Error()
		}
		return media.Descriptor{}, fmt.Errorf("yt-dlp: %s", detail)
	}

	var info ytdlpInfo
	if err := json.Unmarshal(stdout.Bytes(), &info); err != nil {
		return media.Descriptor{}, fmt.Errorf("parse yt-dlp output: %w", err)
	}
	if info.URL == "" {
		return media.Descriptor{}, fmt.Errorf("yt-dlp returned no stream URL for %q", target)
	}

	return media.Descriptor{
		ID:        info.ID,
		Title:     info.Title,
		Artist:    firstNonEmpty(info.Uploader, info.Channel),
		Duration:  time.Duration(info.Duration * float64(time.Second)),
		Live:      info.IsLive,
		StreamURL: info.URL,
		PageURL:   info.WebpageURL,
		Kind:      kindForExtractor(info.Extractor),
	}, nil
}

func kindForExtractor(extractor string) media.Kind {
	if strings.HasPrefix(strings.ToLower(extractor), "youtube") {
		return media.KindYouTube
	}
	return media.KindDirect
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
