package sink

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/averraz/troubadour/internal/opus"
)

type speakingLog struct {
	on  atomic.Int64
	off atomic.Int64
}

func (l *speakingLog) toggle(b bool) error {
	if b {
		l.on.Add(1)
	} else {
		l.off.Add(1)
	}
	return nil
}

func newTestSink(send chan []byte, log *speakingLog, disconnects *atomic.Int64) *DiscordSink {
	return &DiscordSink{
		send:        send,
		speaking:    log.toggle,
		disconnect:  func() error { disconnects.Add(1); return nil },
		sendTimeout: 100 * time.Millisecond,
		catchUp:     80 * time.Millisecond,
	}
}

func frame(d time.Duration) opus.FramePacket {
	return opus.FramePacket{Data: []byte{0xF8, 0xFF, 0xFE}, Duration: d}
}

func TestDiscordSinkPacesToFrameRate(t *testing.T) {
	send := make(chan []byte, 16)
	s := newTestSink(send, &speakingLog{}, &atomic.Int64{})

	start := time.Now()
	for i := 0; i < 5; i++ {
		if err := s.Accept(context.Background(), frame(20*time.Millisecond)); err != nil {
			t.Fatalf("Accept #%d: %v", i, err)
		}
	}

	// Five frames means four inter-frame gaps on the deadline schedule.
	if elapsed := time.Since(start); elapsed < 80*time.Millisecond {
		t.Errorf("five frames delivered in %v, schedule requires at least 80ms", elapsed)
	} else if elapsed > 2*time.Second {
		t.Errorf("five frames took %v", elapsed)
	}
	if got := len(send); got != 5 {
		t.Errorf("transport received %d frames, want 5", got)
	}
}

func TestDiscordSinkResumeDoesNotBurst(t *testing.T) {
	send := make(chan []byte, 16)
	s := newTestSink(send, &speakingLog{}, &atomic.Int64{})

	for i := 0; i < 2; i++ {
		if err := s.Accept(context.Background(), frame(20*time.Millisecond)); err != nil {
			t.Fatalf("Accept #%d: %v", i, err)
		}
	}

	// Pause longer than the catch-up window, as resume-after-pause does.
	time.Sleep(200 * time.Millisecond)

	start := time.Now()
	for i := 0; i < 3; i++ {
		if err := s.Accept(context.Background(), frame(20*time.Millisecond)); err != nil {
			t.Fatalf("Accept after pause #%d: %v", i, err)
		}
	}

	// A stale schedule would flush all three instantly. Re-anchoring means
	// the second and third frame each wait a full frame duration.
	if elapsed := time.Since(start); elapsed < 40*time.Millisecond {
		t.Errorf("three frames after a pause delivered in %v, want a re-anchored schedule", elapsed)
	}
}

func TestDiscordSinkSendTimeoutIsTransportError(t *testing.T) {
	send := make(chan []byte) // nobody draining
	s := newTestSink(send, &speakingLog{}, &atomic.Int64{})

	err := s.Accept(context.Background(), frame(20*time.Millisecond))
	var tErr *TransportError
	if !errors.As(err, &tErr) {
		t.Fatalf("Accept = %v, want a *TransportError", err)
	}
	if !errors.Is(err, ErrVoiceConnClosed) {
		t.Errorf("Accept = %v, want ErrVoiceConnClosed inside", err)
	}
}

func TestDiscordSinkCancellationIsNotTransportError(t *testing.T) {
	send := make(chan []byte) // nobody draining
	s := newTestSink(send, &speakingLog{}, &atomic.Int64{})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	err := s.Accept(ctx, frame(20*time.Millisecond))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Accept = %v, want context.Canceled", err)
	}
	var tErr *TransportError
	if errors.As(err, &tErr) {
		t.Errorf("cancellation must not read as a transport failure, got %v", err)
	}
}

func TestDiscordSinkSpeakingLifecycle(t *testing.T) {
	send := make(chan []byte, 16)
	log := &speakingLog{}
	var disconnects atomic.Int64
	s := newTestSink(send, log, &disconnects)

	for i := 0; i < 3; i++ {
		if err := s.Accept(context.Background(), frame(20*time.Millisecond)); err != nil {
			t.Fatalf("Accept #%d: %v", i, err)
		}
	}
	if got := log.on.Load(); got != 1 {
		t.Errorf("speaking(true) called %d times, want once", got)
	}

	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	if got := log.off.Load(); got != 1 {
		t.Errorf("speaking(false) called %d times, want once", got)
	}
	if got := disconnects.Load(); got != 1 {
		t.Errorf("disconnect called %d times, want once", got)
	}
}
