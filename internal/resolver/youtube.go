package resolver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/kkdai/youtube/v2"

	"github.com/averraz/troubadour/internal/media"
)

// watchURLPattern finds the first organic result on a YouTube results page.
var watchURLPattern = regexp.MustCompile(`"url":"/watch\?v=([a-zA-Z0-9_-]{11})`)

// YouTubeSource resolves YouTube URLs and free-text search phrases. Videos
// resolve natively through the InnerTube client; when that breaks, the
// source falls back to yt-dlp, which tracks player changes much faster.
type YouTubeSource struct {
	client   *youtube.Client
	http     *http.Client
	fallback *YTDLP
	baseURL  string
}

// NewYouTubeSource builds the source. fallback may be nil to disable the
// yt-dlp escape hatch.
func NewYouTubeSource(fallback *YTDLP) *YouTubeSource {
	return &YouTubeSource{
		client:   &youtube.Client{},
		http:     &http.Client{Timeout: 10 * time.Second},
		fallback: fallback,
		baseURL:  "https://www.youtube.com",
	}
}

func (s *YouTubeSource) Name() string { return "youtube" }

// Match claims YouTube URLs and every plain search phrase.
func (s *YouTubeSource) Match(reference string) bool {
	if !IsURL(reference) {
		return true
	}
	return strings.Contains(reference, "youtube.com/") || strings.Contains(reference, "youtu.be/")
}

func (s *YouTubeSource) Resolve(ctx context.Context, reference string) ([]media.Descriptor, error) {
	target := reference
	if !IsURL(reference) {
		videoURL, err := s.searchFirstVideoURL(ctx, reference)
		if err != nil {
			return nil, err
		}
		if videoURL == "" {
			return nil, nil
		}
		target = videoURL
	}

	desc, err := s.resolveVideo(ctx, target)
	if err == nil {
		desc.Reference = reference
		return []media.Descriptor{desc}, nil
	}
	if ctx.Err() != nil || s.fallback == nil {
		return nil, err
	}

	slog.Debug("native youtube resolution failed, trying yt-dlp",
		"reference", reference,
		"error", err,
	)
	desc, err = s.fallback.Extract(ctx, target)
	if err != nil {
		return nil, err
	}
	desc.Reference = reference
	return []media.Descriptor{desc}, nil
}

func (s *YouTubeSource) resolveVideo(ctx context.Context, videoURL string) (media.Descriptor, error) {
	video, err := s.client.GetVideoContext(ctx, videoURL)
	if err != nil {
		return media.Descriptor{}, fmt.Errorf("get video: %w", err)
	}

	formats := video.Formats.WithAudioChannels()
	if len(formats) == 0 {
		return media.Descriptor{}, errors.New("no audio formats found for video")
	}

	streamURL, err := s.client.GetStreamURLContext(ctx, video, bestAudioFormat(formats))
	if err != nil {
		return media.Descriptor{}, fmt.Errorf("get stream URL: %w", err)
	}

	return media.Descriptor{
		ID:        video.ID,
		Title:     video.Title,
		Artist:    video.Author,
		Duration:  video.Duration,
		Live:      video.Duration == 0,
		StreamURL: streamURL,
		PageURL:   s.baseURL + "/watch?v=" + video.ID,
		Kind:      media.KindYouTube,
	}, nil
}

// bestAudioFormat prefers the audio-only Opus itags, then highest bitrate.
func bestAudioFormat(formats youtube.FormatList) *youtube.Format {
	for _, itag := range []int{251, 250, 249} {
		if matches := formats.Itag(itag); len(matches) > 0 {
			return &matches[0]
		}
	}
	best := &formats[0]
	for i := range formats {
		if formats[i].Bitrate > best.Bitrate {
			best = &formats[i]
		}
	}
	return best
}

// searchFirstVideoURL scrapes the results page for the first watch URL.
// An empty return with a nil error means the search had no hits.
func (s *YouTubeSource) searchFirstVideoURL(ctx context.Context, query string) (string, error) {
	searchURL := fmt.Sprintf("%s/results?search_query=%s", s.baseURL, url.QueryEscape(query))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
	if err != nil {
		return "", err
	}

	resp, err := s.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: youtube search returned status %d", ErrUpstreamUnavailable, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return "", err
	}

	match := watchURLPattern.FindSubmatch(body)
	if match == nil {
		return "", nil
	}
	return fmt.Sprintf("%s/watch?v=%s", s.baseURL, match[1]), nil
}
