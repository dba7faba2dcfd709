package resolver

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/averraz/troubadour/internal/media"
)

// DirectSource accepts bare media URLs: internet radio, podcast files,
// anything ffmpeg can read over HTTP. URLs that turn out to serve HTML are
// handed to yt-dlp, which knows how to dig audio out of most sites.
type DirectSource struct {
	http     *http.Client
	fallback *YTDLP
}

func NewDirectSource(fallback *YTDLP) *DirectSource {
	return &DirectSource{
		http:     &http.Client{Timeout: 10 * time.Second},
		fallback: fallback,
	}
}

func (s *DirectSource) Name() string { return "direct" }

// Match claims any URL; this source must therefore be routed to last.
func (s *DirectSource) Match(reference string) bool {
	return IsURL(reference)
}

func (s *DirectSource) Resolve(ctx context.Context, reference string) ([]media.Descriptor, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, reference, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidReference, err)
	}

	resp, err := s.http.Do(req)
	if err != nil {
		return nil, err
	}
	resp.Body.Close()

	// Shoutcast servers commonly reject HEAD; assume a live stream.
	if resp.StatusCode == http.StatusMethodNotAllowed || resp.StatusCode == http.StatusNotImplemented {
		return []media.Descriptor{{
			Reference: reference,
			StreamURL: reference,
			PageURL:   reference,
			Title:     pathTitle(reference),
			Live:      true,
			Kind:      media.KindDirect,
		}}, nil
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("%w: status %d from %s", ErrUpstreamUnavailable, resp.StatusCode, reference)
	}

	if isHTML(resp.Header.Get("Content-Type")) {
		if s.fallback == nil {
			return nil, fmt.Errorf("%w: %q serves HTML, not audio", ErrInvalidReference, reference)
		}
		desc, err := s.fallback.Extract(ctx, reference)
		if err != nil {
			return nil, err
		}
		desc.Reference = reference
		return []media.Descriptor{desc}, nil
	}

	title := resp.Header.Get("Icy-Name")
	if title == "" {
		title = pathTitle(reference)
	}

	return []media.Descriptor{{
		Reference: reference,
		StreamURL: reference,
		PageURL:   reference,
		Title:     title,
		// No Content-Length means an endless stream.
		Live: resp.ContentLength <= 0,
		Kind: media.KindDirect,
	}}, nil
}

func isHTML(contentType string) bool {
	return strings.Contains(contentType, "text/html") || strings.Contains(contentType, "application/xhtml")
}

// pathTitle derives a display title from the URL path, falling back to the
// host for bare stream endpoints.
func pathTitle(reference string) string {
	u, err := url.Parse(reference)
	if err != nil {
		return reference
	}

	base := path.Base(u.Path)
	base = strings.TrimSuffix(base, path.Ext(base))
	if base == "" || base == "." || base == "/" {
		return u.Host
	}
	return base
}
