package transcode

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"strings"
	"sync/atomic"
	"time"

	"github.com/jonas747/ogg"

	"github.com/averraz/troubadour/internal/cache"
	"github.com/averraz/troubadour/internal/media"
	"github.com/averraz/troubadour/internal/opus"
)

var opusHeadMagic = []byte("OpusHead")

// isOggOpus reports whether a direct URL should bypass FFmpeg and be
// demuxed as Ogg/Opus. Only the .opus extension qualifies; plain .ogg is
// usually Vorbis and needs a real transcode.
func isOggOpus(desc media.Descriptor) bool {
	if desc.Kind != media.KindDirect {
		return false
	}
	u, err := url.Parse(desc.StreamURL)
	if err != nil {
		return false
	}
	return strings.EqualFold(path.Ext(u.Path), ".opus")
}

// runPassthrough demuxes an Ogg/Opus stream straight into frame packets.
// Gain does not apply here; the frames are already encoded.
func (p *Pipeline) runPassthrough(ctx context.Context, source *FrameSource, desc media.Descriptor, opts Options) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, desc.StreamURL, nil)
	if err != nil {
		source.finish(&TranscodeError{Stage: "fetch", Err: err})
		return
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			source.finish(ctx.Err())
			return
		}
		source.finish(&TranscodeError{Stage: "fetch", Err: err})
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		source.finish(&TranscodeError{Stage: "fetch", Err: fmt.Errorf("status %d from %s", resp.StatusCode, desc.StreamURL)})
		return
	}

	var recorder *cache.Recording
	if p.cache != nil && !desc.Live {
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
		switch {
		case stalled.Load():
			err = fmt.Errorf("%w: no data for %v", ErrSourceStalled, p.cfg.StallTimeout)
		case ctx.Err() != nil:
			err = ctx.Err()
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

	decoder := ogg.NewPacketDecoder(ogg.NewDecoder(bufio.NewReader(resp.Body)))

	// The first two packets are the OpusHead and OpusTags headers.
	headers := 0
	var seq uint64
	for {
		watchdog.Reset(p.cfg.StallTimeout)
		packet, _, err := decoder.Decode()
		watchdog.Stop()

		if stalled.Load() {
			finish(nil)
			return
		}
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				finish(nil)
			} else {
				finish(&TranscodeError{Stage: "demux", Err: err})
			}
			return
		}

		if headers < 2 {
			if headers == 0 && !bytes.HasPrefix(packet, opusHeadMagic) {
				finish(&TranscodeError{Stage: "demux", Err: fmt.Errorf("%q is not an Ogg/Opus stream", desc.StreamURL)})
				return
			}
			headers++
			continue
		}

		duration, err := packetDuration(packet)
		if err != nil {
			finish(&TranscodeError{Stage: "demux", Err: err})
			return
		}

		if recorder != nil {
			// The cache replays frames at the configured cadence, so
			// only uniform streams are recordable.
			if duration != p.cfg.FrameDuration {
				recorder.Discard()
				recorder = nil
			} else if err := recorder.AppendFrame(packet); err != nil {
				recorder = nil
			}
		}

		if !source.emit(ctx, opus.FramePacket{Data: packet, Seq: seq, Duration: duration}) {
			finish(ctx.Err())
			return
		}
		seq++
	}
}

// packetDuration derives a packet's presentation time from its TOC byte
// (RFC 6716, section 3.1).
func packetDuration(packet []byte) (time.Duration, error) {
	if len(packet) == 0 {
		return 0, errors.New("empty opus packet")
	}

	config := packet[0] >> 3
	var frame time.Duration
	switch {
	case config <= 11:
		frame = []time.Duration{10, 20, 40, 60}[config&0x3] * time.Millisecond
	case config <= 15:
		frame = []time.Duration{10, 20}[config&0x1] * time.Millisecond
	default:
		frame = []time.Duration{2500, 5000, 10000, 20000}[config&0x3] * time.Microsecond
	}

	switch packet[0] & 0x3 {
	case 0:
		return frame, nil
	case 1, 2:
		return 2 * frame, nil
	default:
		if len(packet) < 2 {
			return 0, errors.New("truncated opus packet")
		}
		return time.Duration(packet[1]&0x3f) * frame, nil
	}
}
