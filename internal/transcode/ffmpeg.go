package transcode

import (
	"context"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"
)

// newFFmpegCmd builds the decode command: fetch the stream URL, decode
// whatever container it is in, and resample to interleaved s16le PCM on
// stdout. The reconnect flags ride out short upstream hiccups; real stalls
// are the watchdog's job.
func newFFmpegCmd(ctx context.Context, streamURL string, startAt time.Duration, sampleRate, channels int) *exec.Cmd {
	var args []string
	if startAt > 0 {
		args = append(args, "-ss", fmt.Sprintf("%.3f", startAt.Seconds()))
	}
	args = append(args,
		"-reconnect", "1",
		"-reconnect_streamed", "1",
		"-reconnect_delay_max", "5",
		"-i", streamURL,
		"-vn",
		"-f", "s16le",
		"-ar", strconv.Itoa(sampleRate),
		"-ac", strconv.Itoa(channels),
		"-loglevel", "warning",
		"pipe:1",
	)
	return exec.CommandContext(ctx, "ffmpeg", args...)
}

// ffmpegStream is the running decode process. Reads pull PCM from stdout;
// Close reaps the process and surfaces its complaint on abnormal exit.
type ffmpegStream struct {
	cmd    *exec.Cmd
	stdout io.ReadCloser
	stderr *tailBuffer

	waitOnce sync.Once
	waitErr  error
}

func openFFmpegStream(ctx context.Context, streamURL string, startAt time.Duration, sampleRate, channels int) (*ffmpegStream, error) {
	cmd := newFFmpegCmd(ctx, streamURL, startAt, sampleRate, channels)

	tail := &tailBuffer{}
	cmd.Stderr = tail

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("pipe ffmpeg stdout: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start ffmpeg: %w", err)
	}

	return &ffmpegStream{cmd: cmd, stdout: stdout, stderr: tail}, nil
}

func (f *ffmpegStream) Read(p []byte) (int, error) {
	return f.stdout.Read(p)
}

func (f *ffmpegStream) Close() error {
	f.stdout.Close()
	f.waitOnce.Do(func() {
		f.waitErr = f.cmd.Wait()
	})
	if f.waitErr == nil {
		return nil
	}
	if detail := f.stderr.String(); detail != "" {
		return fmt.Errorf("%w: %s", f.waitErr, detail)
	}
	return f.waitErr
}

// tailBuffer keeps the last few KB written to it. FFmpeg's stderr goes
// here so a failure can report what the process last complained about.
type tailBuffer struct {
	mu  sync.Mutex
	buf []byte
}

const tailLimit = 4096

func (t *tailBuffer) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.buf = append(t.buf, p...)
	if len(t.buf) > tailLimit {
		t.buf = t.buf[len(t.buf)-tailLimit:]
	}
	return len(p), nil
}

func (t *tailBuffer) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return strings.TrimSpace(string(t.buf))
}
