package cache

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/minio/minio-go/v7"

	"github.com/averraz/troubadour/internal/config"
	"github.com/averraz/troubadour/internal/datalayer"
	"github.com/averraz/troubadour/internal/media"
	"github.com/averraz/troubadour/internal/opus"
)

type memoryStorage struct {
	blobs map[string][]byte
}

func newMemoryStorage() *memoryStorage {
	return &memoryStorage{blobs: map[string][]byte{}}
}

func (m *memoryStorage) Put(_ context.Context, key string, data io.Reader, _ datalayer.PutOptions) error {
	payload, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	m.blobs[key] = payload
	return nil
}

func (m *memoryStorage) Get(_ context.Context, key string) (io.ReadCloser, error) {
	payload, ok := m.blobs[key]
	if !ok {
		return nil, minio.ErrorResponse{Code: "NoSuchKey"}
	}
	return io.NopCloser(bytes.NewReader(payload)), nil
}

func testConfig() *config.PlayerConfig {
	return &config.PlayerConfig{
		FrameDuration: 20 * time.Millisecond,
		SampleRate:    48000,
		Channels:      2,
		Bitrate:       96000,
	}
}

func TestFrameCacheRecordAndReplay(t *testing.T) {
	storage := newMemoryStorage()
	fc := NewFrameCache(storage, testConfig())
	desc := media.Descriptor{ID: "dQw4w9WgXcQ", Kind: media.KindYouTube, Title: "test"}

	if _, ok := fc.Open(context.Background(), desc, 100); ok {
		t.Fatal("Open reported a hit on an empty cache")
	}

	frames := [][]byte{{0x01, 0x02}, {0x03}, {0x04, 0x05, 0x06}}
	rec := fc.BeginRecording(desc, 100)
	for _, frame := range frames {
		if err := rec.AppendFrame(frame); err != nil {
			t.Fatalf("AppendFrame: %v", err)
		}
	}
	if err := rec.Commit(context.Background()); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	blob, ok := fc.Open(context.Background(), desc, 100)
	if !ok {
		t.Fatal("Open missed after a commit")
	}
	defer blob.Close()

	var got [][]byte
	reader := opus.NewFrameReader(blob)
	for {
		frame, err := reader.ReadFrame()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.Fatalf("ReadFrame: %v", err)
		}
		got = append(got, frame)
	}

	if diff := cmp.Diff(frames, got); diff != "" {
		t.Errorf("frames mismatch (-want +got):\n%s", diff)
	}
}

func TestFrameCacheKeyDependsOnGain(t *testing.T) {
	storage := newMemoryStorage()
	fc := NewFrameCache(storage, testConfig())
	desc := media.Descriptor{ID: "abc", Kind: media.KindYouTube}

	rec := fc.BeginRecording(desc, 100)
	if err := rec.AppendFrame([]byte{0x01}); err != nil {
		t.Fatalf("AppendFrame: %v", err)
	}
	if err := rec.Commit(context.Background()); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	if _, ok := fc.Open(context.Background(), desc, 50); ok {
		t.Error("a blob recorded at unity must not serve a 50% gain request")
	}
	if _, ok := fc.Open(context.Background(), desc, 100); !ok {
		t.Error("the unity blob went missing")
	}
}

func TestRecordingDiscard(t *testing.T) {
	storage := newMemoryStorage()
	fc := NewFrameCache(storage, testConfig())
	desc := media.Descriptor{ID: "abc", Kind: media.KindYouTube}

	rec := fc.BeginRecording(desc, 100)
	if err := rec.AppendFrame([]byte{0x01}); err != nil {
		t.Fatalf("AppendFrame: %v", err)
	}
	rec.Discard()

	if err := rec.Commit(context.Background()); err == nil {
		t.Fatal("Commit succeeded on a discarded recording")
	}
	if err := rec.AppendFrame([]byte{0x02}); err == nil {
		t.Fatal("AppendFrame succeeded on a discarded recording")
	}
	if len(storage.blobs) != 0 {
		t.Errorf("storage holds %d blobs, want 0", len(storage.blobs))
	}
}
