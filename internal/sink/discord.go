package sink

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/averraz/troubadour/internal/opus"
)

// defaultCatchUp bounds how far behind schedule delivery may fall before
// the schedule re-anchors. Within the window late frames are sent
// back-to-back to recover; beyond it (a pause, a long fetch) the next
// frame starts a fresh schedule instead of bursting the backlog.
const defaultCatchUp = 200 * time.Millisecond

// DiscordSink paces frames into a Discord voice connection.
type DiscordSink struct {
	send        chan<- []byte
	speaking    func(bool) error
	disconnect  func() error
	sendTimeout time.Duration
	catchUp     time.Duration

	next      time.Time
	talking   bool
	closeOnce sync.Once
	closeErr  error
}

var _ Sink = (*DiscordSink)(nil)

// NewDiscord wraps an established voice connection. sendTimeout bounds how
// long one frame may wait on the connection before the transport is
// declared dead.
func NewDiscord(vc *discordgo.VoiceConnection, sendTimeout time.Duration) *DiscordSink {
	return &DiscordSink{
		send:        vc.OpusSend,
		speaking:    vc.Speaking,
		disconnect:  vc.Disconnect,
		sendTimeout: sendTimeout,
		catchUp:     defaultCatchUp,
	}
}

// Accept delivers one frame at its scheduled time. The first frame goes
// out immediately and marks the bot as speaking; each later frame is due
// one frame duration after the previous one.
func (s *DiscordSink) Accept(ctx context.Context, packet opus.FramePacket) error {
	now := time.Now()
	if s.next.IsZero() || now.Sub(s.next) > s.catchUp {
		s.next = now
	}

	if wait := s.next.Sub(now); wait > 0 {
		timer := time.NewTimer(wait)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		}
	}

	if !s.talking {
		if err := s.speaking(true); err != nil {
			return &TransportError{Err: err}
		}
		s.talking = true
	}

	timer := time.NewTimer(s.sendTimeout)
	select {
	case s.send <- packet.Data:
		timer.Stop()
	case <-timer.C:
		return &TransportError{Err: ErrVoiceConnClosed}
	case <-ctx.Done():
		timer.Stop()
		return ctx.Err()
	}

	s.next = s.next.Add(packet.Duration)
	return nil
}

// Close stops speaking and disconnects. Safe to call more than once.
func (s *DiscordSink) Close() error {
	s.closeOnce.Do(func() {
		if s.talking {
			if err := s.speaking(false); err != nil {
				slog.Error("failed to stop speaking", "error", err)
			}
			s.talking = false
		}
		s.closeErr = s.disconnect()
	})
	return s.closeErr
}
