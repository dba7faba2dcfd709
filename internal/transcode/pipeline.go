package transcode

import (
	"bufio"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/averraz/troubadour/internal/cache"
	"github.com/averraz/troubadour/internal/config"
	"github.com/averraz/troubadour/internal/media"
	"github.com/averraz/troubadour/internal/opus"
)

// handoffDepth is the producer-to-consumer channel capacity. Keeping it
// small means a paused consumer suspends production within a few frames.
const handoffDepth = 4

// Options tune one Open call.
type Options struct {
	// StartAt begins playback at an offset into the track. Requires a
	// seekable source.
	StartAt time.Duration
	// GainPercent scales the audio in the PCM domain. 100 is unity and
	// zero is treated as unity.
	GainPercent int
}

// pcmStream is decoded audio arriving from a subprocess. Close releases
// the process and reports abnormal termination detail.
type pcmStream interface {
	io.Reader
	Close() error
}

// Pipeline opens tracks. Safe for concurrent use; every Open call is
// independent of the others.
type Pipeline struct {
	cfg   *config.PlayerConfig
	cache *cache.FrameCache

	// Seams for tests. Production wiring is FFmpeg plus libopus.
	openPCM    func(ctx context.Context, streamURL string, startAt time.Duration) (pcmStream, error)
	newEncoder func() (frameEncoder, error)
}

// New builds a pipeline. frameCache may be nil to disable frame caching.
func New(cfg *config.PlayerConfig, frameCache *cache.FrameCache) *Pipeline {
	p := &Pipeline{cfg: cfg, cache: frameCache}
	p.openPCM = func(ctx context.Context, streamURL string, startAt time.Duration) (pcmStream, error) {
		return openFFmpegStream(ctx, streamURL, startAt, cfg.SampleRate, cfg.Channels)
	}
	p.newEncoder = func() (frameEncoder, error) {
		return newOpusEncoder(cfg.SampleRate, cfg.Channels, cfg.Bitrate)
	}
	return p
}

// Open starts producing frames for one track. The returned source must be
// drained or closed; abandoning it leaks a decoder process.
func (p *Pipeline) Open(ctx context.Context, desc media.Descriptor, opts Options) (*FrameSource, error) {
	if opts.GainPercent <= 0 {
		opts.GainPercent = 100
	}
	if opts.StartAt > 0 && !desc.Seekable() {
		return nil, fmt.Errorf("%w: %q", ErrSeekUnsupported, desc.Title)
	}
	if desc.StreamURL == "" {
		return nil, &TranscodeError{Stage: "open", Err: fmt.Errorf("descriptor %q has no stream URL", desc.Title)}
	}

	trackCtx, cancel := context.WithCancel(ctx)
	source := newFrameSource(cancel)

	// Cached frames first: no network, instant start.
	if p.cache != nil && !desc.Live {
		if blob, ok := p.cache.Open(trackCtx, desc, opts.GainPercent); ok {
			slog.Debug("serving track from frame cache", "title", desc.Title)
			go p.runCached(trackCtx, source, blob, opts)
			return source, nil
		}
	}

	if isOggOpus(desc) {
		if opts.StartAt > 0 {
			cancel()
			return nil, fmt.Errorf("%w: %q", ErrSeekUnsupported, desc.Title)
		}
		go p.runPassthrough(trackCtx, source, desc, opts)
		return source, nil
	}

	stream, err := p.openPCM(trackCtx, desc.StreamURL, opts.StartAt)
	if err != nil {
		cancel()
		return nil, &TranscodeError{Stage: "open", Err: err}
	}
	encoder, err := p.newEncoder()
	if err != nil {
		stream.Close()
		cancel()
		return nil, &TranscodeError{Stage: "open", Err: err}
	}

	go p.runTranscode(trackCtx, source, desc, stream, encoder, opts)
	return source, nil
}

// runTranscode is the FFmpeg producer: read one frame of PCM, apply gain,
// encode, hand off. The watchdog only times the upstream reads, so pause
// and consumer backpressure can never trip it.
func (p *Pipeline) runTranscode(ctx context.Context, source *FrameSource, desc media.Descriptor, stream pcmStream, encoder frameEncoder, opts Options) {
	sampleCount := opus.SamplesPerFrame(p.cfg.SampleRate, p.cfg.FrameDuration) * p.cfg.Channels
	pcmBytes := make([]byte, sampleCount*2)
	pcm := make([]int16, sampleCount)

	var recorder *cache.Recording
	if p.cache != nil && !desc.Live && opts.StartAt == 0 {
		recorder = p.cache.BeginRecording(desc, opts.GainPercent)
	}

	var stalled atomic.Bool
	watchdog := time.AfterFunc(p.cfg.StallTimeout, func() {
		stalled.Store(true)
		source.cancel()
	})
	watchdog.Stop()
	defer watchdog.Stop()

	finish := func(err error) {
		closeErr := stream.Close()
		switch {
		case stalled.Load():
			err = fmt.Errorf("%w: no data for %v", ErrSourceStalled, p.cfg.StallTimeout)
		case ctx.Err() != nil:
			err = ctx.Err()
		case err == nil && closeErr != nil:
			err = &TranscodeError{Stage: "decode", Err: closeErr}
		}
		if recorder != nil {
			if err == nil {
				if commitErr := recorder.Commit(context.WithoutCancel(ctx)); commitErr != nil {
					slog.Warn("frame cache commit failed", "title", desc.Title, "error", commitErr)
				}
			} else {
				recorder.Discard()
			}
		}
		source.finish(err)
	}

	reader := bufio.NewReaderSize(stream, len(pcmBytes)*4)

	var seq uint64
	for {
		watchdog.Reset(p.cfg.StallTimeout)
		n, err := io.ReadFull(reader, pcmBytes)
		watchdog.Stop()

		if stalled.Load() {
			finish(nil)
			return
		}

		last := false
		switch {
		case err == nil:
		case errors.Is(err, io.ErrUnexpectedEOF):
			// Zero-pad the final partial frame.
			for i := n; i < len(pcmBytes); i++ {
				pcmBytes[i] = 0
			}
			last = true
		case errors.Is(err, io.EOF):
			finish(nil)
			return
		default:
			finish(&TranscodeError{Stage: "read", Err: err})
			return
		}

		for i := range pcm {
			pcm[i] = int16(binary.LittleEndian.Uint16(pcmBytes[i*2:]))
		}
		applyGain(pcm, opts.GainPercent)

		frame, err := encoder.Encode(pcm)
		if err != nil {
			finish(&TranscodeError{Stage: "encode", Err: err})
			return
		}

		if recorder != nil {
			if err := recorder.AppendFrame(frame); err != nil {
				slog.Debug("frame cache recording aborted", "title", desc.Title, "error", err)
				recorder = nil
			}
		}

		if !source.emit(ctx, opus.FramePacket{Data: frame, Seq: seq, Duration: p.cfg.FrameDuration}) {
			finish(ctx.Err())
			return
		}
		seq++

		if last {
			finish(nil)
			return
		}
	}
}

// runCached replays a recorded frame blob. Seeking is frame arithmetic.
func (p *Pipeline) runCached(ctx context.Context, source *FrameSource, blob io.ReadCloser, opts Options) {
	var closeOnce sync.Once
	closeBlob := func() { closeOnce.Do(func() { blob.Close() }) }
	defer closeBlob()

	var stalled atomic.Bool
	watchdog := time.AfterFunc(p.cfg.StallTimeout, func() {
		stalled.Store(true)
		source.cancel()
	})
	watchdog.Stop()
	defer watchdog.Stop()

	finish := func(err error) {
		closeBlob()
		switch {
		case stalled.Load():
			err = fmt.Errorf("%w: no data for %v", ErrSourceStalled, p.cfg.StallTimeout)
		case ctx.Err() != nil:
			err = ctx.Err()
		}
		source.finish(err)
	}

	reader := opus.NewFrameReader(bufio.NewReader(blob))
	skip := uint64(0)
	if opts.StartAt > 0 {
		skip = uint64(opts.StartAt / p.cfg.FrameDuration)
	}

	var seq uint64
	for {
		watchdog.Reset(p.cfg.StallTimeout)
		frame, err := reader.ReadFrame()
		watchdog.Stop()

		if stalled.Load() {
			finish(nil)
			return
		}
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				finish(nil)
			} else {
				finish(&TranscodeError{Stage: "cache read", Err: err})
			}
			return
		}

		if skip > 0 {
			skip--
			continue
		}

		if !source.emit(ctx, opus.FramePacket{Data: frame, Seq: seq, Duration: p.cfg.FrameDuration}) {
			finish(ctx.Err())
			return
		}
		seq++
	}
}
