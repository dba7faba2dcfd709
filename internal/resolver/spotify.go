package resolver

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/zmb3/spotify/v2"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/averraz/troubadour/internal/config"
	"github.com/averraz/troubadour/internal/media"
)

// maxPlaylistTracks caps how much of a playlist one reference may enqueue.
const maxPlaylistTracks = 200

// SpotifySource maps Spotify track and playlist links onto search phrases.
// Spotify serves metadata only; the audio itself is found by searching for
// "<name> <artists> audio" when the track starts playing, so a descriptor
// from this source carries no stream URL.
type SpotifySource struct {
	client *spotify.Client
}

func NewSpotifySource(ctx context.Context, cfg *config.SpotifyConfig) (*SpotifySource, error) {
	if !cfg.Enabled() {
		return nil, errors.New("spotify credentials are not configured")
	}

	creds := &clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     spotifyauth.TokenURL,
	}
	return &SpotifySource{client: spotify.New(creds.Client(ctx))}, nil
}

func (s *SpotifySource) Name() string { return "spotify" }

func (s *SpotifySource) Match(reference string) bool {
	if !IsURL(reference) {
		return false
	}
	_, _, err := parseSpotifyLink(reference)
	return err == nil
}

func (s *SpotifySource) Resolve(ctx context.Context, reference string) ([]media.Descriptor, error) {
	entity, id, err := parseSpotifyLink(reference)
	if err != nil {
		return nil, err
	}

	switch entity {
	case "track":
		track, err := s.client.GetTrack(ctx, spotify.ID(id))
		if err != nil {
			return nil, fmt.Errorf("get track: %w", err)
		}
		return []media.Descriptor{descriptorForTrack(&track.SimpleTrack, reference)}, nil
	case "playlist":
		return s.resolvePlaylist(ctx, spotify.ID(id), reference)
	default:
		return nil, fmt.Errorf("%w: unsupported spotify entity %q", ErrInvalidReference, entity)
	}
}

// Search finds tracks in the Spotify catalog by free-text query. Errors use
// the same taxonomy as Resolve.
func (s *SpotifySource) Search(ctx context.Context, query string, limit int) ([]media.Descriptor, error) {
	result, err := s.client.Search(ctx, query, spotify.SearchTypeTrack, spotify.Limit(limit))
	if err != nil {
		return nil, classify(s.Name(), fmt.Errorf("search: %w", err))
	}
	if result.Tracks == nil {
		return nil, nil
	}

	var descs []media.Descriptor
	for i := range result.Tracks.Tracks {
		descs = append(descs, descriptorForTrack(&result.Tracks.Tracks[i].SimpleTrack, ""))
	}
	return descs, nil
}

func (s *SpotifySource) resolvePlaylist(ctx context.Context, id spotify.ID, reference string) ([]media.Descriptor, error) {
	page, err := s.client.GetPlaylistItems(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get playlist items: %w", err)
	}

	var descs []media.Descriptor
	for {
		for i := range page.Items {
			track := page.Items[i].Track.Track
			if track == nil {
				// Episodes and local files carry no track payload.
				continue
			}
			descs = append(descs, descriptorForTrack(&track.SimpleTrack, reference))
			if len(descs) >= maxPlaylistTracks {
				return descs, nil
			}
		}
		if err := s.client.NextPage(ctx, page); err != nil {
			if errors.Is(err, spotify.ErrNoMorePages) {
				return descs, nil
			}
			return nil, fmt.Errorf("page playlist items: %w", err)
		}
	}
}

// descriptorForTrack defers the audio lookup: the descriptor's Reference is
// the search phrase the player resolves when the track actually starts.
func descriptorForTrack(track *spotify.SimpleTrack, linkURL string) media.Descriptor {
	names := make([]string, 0, len(track.Artists))
	for _, artist := range track.Artists {
		names = append(names, artist.Name)
	}
	artist := strings.Join(names, " ")

	pageURL := track.ExternalURLs["spotify"]
	if pageURL == "" {
		pageURL = linkURL
	}

	return media.Descriptor{
		ID:        string(track.ID),
		Reference: strings.TrimSpace(track.Name + " " + artist + " audio"),
		Title:     track.Name,
		Artist:    artist,
		Duration:  track.TimeDuration(),
		PageURL:   pageURL,
		Kind:      media.KindSpotify,
	}
}

// parseSpotifyLink pulls the entity type and ID out of an open.spotify.com
// link. Regional path prefixes such as /intl-de/ are skipped over.
func parseSpotifyLink(reference string) (entity, id string, err error) {
	u, err := url.Parse(reference)
	if err != nil {
		return "", "", fmt.Errorf("%w: %v", ErrInvalidReference, err)
	}
	if !strings.HasSuffix(u.Hostname(), "spotify.com") {
		return "", "", fmt.Errorf("%w: not a spotify link", ErrInvalidReference)
	}

	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	for i := 0; i+1 < len(segments); i++ {
		switch segments[i] {
		case "track", "playlist":
			if segments[i+1] == "" {
				return "", "", fmt.Errorf("%w: spotify link is missing an ID", ErrInvalidReference)
			}
			return segments[i], segments[i+1], nil
		}
	}
	return "", "", fmt.Errorf("%w: unsupported spotify link", ErrInvalidReference)
}
