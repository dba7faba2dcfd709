package resolver

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestDirectResolveStream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "audio/mpeg")
		w.Header().Set("Icy-Name", "Troubadour FM")
	}))
	defer srv.Close()

	s := NewDirectSource(nil)
	s.http = srv.Client()

	descs, err := s.Resolve(context.Background(), srv.URL+"/listen")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(descs) != 1 {
		t.Fatalf("got %d descriptors, want 1", len(descs))
	}

	desc := descs[0]
	if desc.Title != "Troubadour FM" {
		t.Errorf("Title = %q, want the icy name", desc.Title)
	}
	if !desc.Live {
		t.Error("Live = false, want true for a stream without a length")
	}
	if desc.StreamURL != srv.URL+"/listen" {
		t.Errorf("StreamURL = %q, want the reference itself", desc.StreamURL)
	}
}

func TestDirectResolveRejectsHTMLWithoutFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
	}))
	defer srv.Close()

	s := NewDirectSource(nil)
	s.http = srv.Client()

	_, err := s.Resolve(context.Background(), srv.URL)
	if !errors.Is(err, ErrInvalidReference) {
		t.Fatalf("error = %v, want ErrInvalidReference", err)
	}
}

func TestDirectResolveUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	s := NewDirectSource(nil)
	s.http = srv.Client()

	_, err := s.Resolve(context.Background(), srv.URL+"/missing.mp3")
	if !errors.Is(err, ErrUpstreamUnavailable) {
		t.Fatalf("error = %v, want ErrUpstreamUnavailable", err)
	}
}

func TestDirectResolveHeadRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Shoutcast-style server that only speaks GET.
		w.WriteHeader(http.StatusMethodNotAllowed)
	}))
	defer srv.Close()

	s := NewDirectSource(nil)
	s.http = srv.Client()

	descs, err := s.Resolve(context.Background(), srv.URL+"/radio")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(descs) != 1 || !descs[0].Live {
		t.Fatalf("want one live descriptor, got %+v", descs)
	}
}

func TestPathTitle(t *testing.T) {
	tests := []struct {
		reference string
		want      string
	}{
		{"https://example.com/shows/episode-12.mp3", "episode-12"},
		{"https://radio.example.com/", "radio.example.com"},
		{"https://radio.example.com", "radio.example.com"},
	}

	for _, tt := range tests {
		if got := pathTitle(tt.reference); got != tt.want {
			t.Errorf("pathTitle(%q) = %q, want %q", tt.reference, got, tt.want)
		}
	}
}
