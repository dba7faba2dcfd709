package transcode

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestFFmpegArgs(t *testing.T) {
	cmd := newFFmpegCmd(context.Background(), "https://cdn.example/a.mp3", 0, 48000, 2)
	want := []string{
		"ffmpeg",
		"-reconnect", "1",
		"-reconnect_streamed", "1",
		"-reconnect_delay_max", "5",
		"-i", "https://cdn.example/a.mp3",
		"-vn",
		"-f", "s16le",
		"-ar", "48000",
		"-ac", "2",
		"-loglevel", "warning",
		"pipe:1",
	}
	if diff := cmp.Diff(want, cmd.Args); diff != "" {
		t.Errorf("args mismatch (-want +got):\n%s", diff)
	}
}

func TestFFmpegArgsWithSeek(t *testing.T) {
	cmd := newFFmpegCmd(context.Background(), "https://cdn.example/a.mp3", 90*time.Second+500*time.Millisecond, 48000, 2)
	if len(cmd.Args) < 3 || cmd.Args[1] != "-ss" || cmd.Args[2] != "90.500" {
		t.Fatalf("args = %v, want -ss 90.500 before the input", cmd.Args)
	}
}

func TestTailBufferKeepsOnlyTheTail(t *testing.T) {
	tail := &tailBuffer{}
	filler := strings.Repeat("x", tailLimit)
	if _, err := tail.Write([]byte(filler)); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if _, err := tail.Write([]byte("  connection reset by peer\n")); err != nil {
		t.Fatalf("Write: %v", err)
	}

	got := tail.String()
	if len(got) > tailLimit {
		t.Errorf("tail retained %d bytes, limit is %d", len(got), tailLimit)
	}
	if !strings.HasSuffix(got, "connection reset by peer") {
		t.Errorf("tail lost the most recent output: %q", got[len(got)-40:])
	}
}
