// Package cache persists finished tracks as Opus frame blobs, so replaying
// a track skips the network and starts instantly.
package cache

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/averraz/troubadour/internal/config"
	"github.com/averraz/troubadour/internal/datalayer"
	"github.com/averraz/troubadour/internal/media"
	"github.com/averraz/troubadour/internal/opus"
)

// maxRecordingBytes caps one recording. At 96 kbps this is on the order of
// ninety minutes; anything longer is not worth the storage.
const maxRecordingBytes = 64 << 20

// FrameCache stores encoded tracks in blob storage. Frames are baked with
// the encode parameters and gain that produced them, so the object key
// carries all of those alongside the track identity.
type FrameCache struct {
	storage datalayer.BlobStorage
	cfg     *config.PlayerConfig
}

func NewFrameCache(storage datalayer.BlobStorage, cfg *config.PlayerConfig) *FrameCache {
	return &FrameCache{storage: storage, cfg: cfg}
}

func (c *FrameCache) objectKey(desc media.Descriptor, gainPercent int) string {
	return fmt.Sprintf("frames/%s/%dk-%dms-g%d",
		desc.CacheKey(),
		c.cfg.Bitrate/1000,
		c.cfg.FrameDuration/time.Millisecond,
		gainPercent,
	)
}

// Open streams a cached track. ok is false on any miss or storage error;
// the caller then falls back to a live transcode.
func (c *FrameCache) Open(ctx context.Context, desc media.Descriptor, gainPercent int) (io.ReadCloser, bool) {
	blob, err := c.storage.Get(ctx, c.objectKey(desc, gainPercent))
	if err != nil {
		if !datalayer.IsNoSuchKey(err) && ctx.Err() == nil {
			slog.Warn("frame cache read failed", "title", desc.Title, "error", err)
		}
		return nil, false
	}
	return blob, true
}

// BeginRecording starts capturing a track's frames. The recording buffers
// in memory and touches storage only on Commit, so an abandoned track
// costs nothing.
func (c *FrameCache) BeginRecording(desc media.Descriptor, gainPercent int) *Recording {
	buf := &bytes.Buffer{}
	return &Recording{
		key:     c.objectKey(desc, gainPercent),
		storage: c.storage,
		buf:     buf,
		writer:  opus.NewFrameWriter(buf),
	}
}

// Recording accumulates one track's frames. Not safe for concurrent use;
// it lives on a single producer goroutine.
type Recording struct {
	key       string
	storage   datalayer.BlobStorage
	buf       *bytes.Buffer
	writer    *opus.FrameWriter
	discarded bool
}

var errRecordingDiscarded = errors.New("recording discarded")

// AppendFrame adds one frame. Once a recording errors it stays discarded;
// playback is never affected either way.
func (r *Recording) AppendFrame(frame []byte) error {
	if r.discarded {
		return errRecordingDiscarded
	}
	if r.buf.Len()+len(frame) > maxRecordingBytes {
		r.Discard()
		return fmt.Errorf("recording exceeds %d bytes", maxRecordingBytes)
	}
	if err := r.writer.WriteFrame(frame); err != nil {
		r.Discard()
		return err
	}
	return nil
}

// Commit persists the blob under the recording's key.
func (r *Recording) Commit(ctx context.Context) error {
	if r.discarded {
		return errRecordingDiscarded
	}
	err := r.storage.Put(ctx, r.key, bytes.NewReader(r.buf.Bytes()), datalayer.PutOptions{
		Size:        int64(r.buf.Len()),
		ContentType: "application/octet-stream",
	})
	if err != nil {
		return fmt.Errorf("put frame blob: %w", err)
	}
	return nil
}

// Discard drops the buffered frames.
func (r *Recording) Discard() {
	r.discarded = true
	r.buf.Reset()
}
