package player

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/averraz/troubadour/internal/config"
	"github.com/averraz/troubadour/internal/generator"
	"github.com/averraz/troubadour/internal/media"
	"github.com/averraz/troubadour/internal/opus"
	"github.com/averraz/troubadour/internal/sink"
	"github.com/averraz/troubadour/internal/transcode"
)

// TrackResolver turns a reference into playable descriptors.
type TrackResolver interface {
	Resolve(ctx context.Context, reference string) ([]media.Descriptor, error)
}

// FrameSource is the consuming half of one pipeline run.
type FrameSource interface {
	Frames() <-chan opus.FramePacket
	Err() error
	Close()
}

// Pipeline opens a descriptor into a frame source.
type Pipeline interface {
	Open(ctx context.Context, desc media.Descriptor, opts transcode.Options) (FrameSource, error)
}

// PipelineFunc adapts a function to the Pipeline interface.
type PipelineFunc func(ctx context.Context, desc media.Descriptor, opts transcode.Options) (FrameSource, error)

func (f PipelineFunc) Open(ctx context.Context, desc media.Descriptor, opts transcode.Options) (FrameSource, error) {
	return f(ctx, desc, opts)
}

// Session owns playback for one voice destination: the queue, the state
// machine, and the play loop goroutine that sequences resolver, pipeline,
// and sink. Control methods may be called from any goroutine; they are
// serialized by the session lock.
type Session struct {
	dest      media.Destination
	cfg       *config.PlayerConfig
	resolver  TrackResolver
	pipeline  Pipeline
	sink      sink.Sink
	ids       generator.Generator[string]
	onStopped func(*Session)
	events    chan Event
	now       func() time.Time

	mu          sync.Mutex
	state       State
	queue       queue
	loop        LoopMode
	volume      int
	current     *QueueEntry
	elapsed     time.Duration
	idleSince   time.Time
	paused      chan struct{}
	trackCancel context.CancelFunc
	stopReason  error
	closed      bool

	wake     chan struct{}
	stopping chan struct{}
	done     chan struct{}
}

func newSession(
	dest media.Destination,
	cfg *config.PlayerConfig,
	res TrackResolver,
	pipe Pipeline,
	snk sink.Sink,
	ids generator.Generator[string],
	onStopped func(*Session),
) *Session {
	s := &Session{
		dest:      dest,
		cfg:       cfg,
		resolver:  res,
		pipeline:  pipe,
		sink:      snk,
		ids:       ids,
		onStopped: onStopped,
		events:    make(chan Event, eventBuffer),
		now:       time.Now,
		volume:    cfg.VolumePercent,
		wake:      make(chan struct{}, 1),
		stopping:  make(chan struct{}),
		done:      make(chan struct{}),
	}
	s.idleSince = s.now()
	go s.run()
	return s
}

// Destination identifies the voice target this session plays to.
func (s *Session) Destination() media.Destination { return s.dest }

// Events delivers session notifications. The channel closes after the
// final EventSessionStopped.
func (s *Session) Events() <-chan Event { return s.events }

// Done closes once the session has fully stopped and released its sink.
func (s *Session) Done() <-chan struct{} { return s.done }

// Enqueue appends tracks and reports how many were accepted. An idle
// session begins loading the first entry immediately. Partial enqueues
// happen when the queue limit cuts the batch short; the count is still
// returned alongside ErrQueueFull.
func (s *Session) Enqueue(descs []media.Descriptor, requestedBy string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, ErrSessionClosed
	}

	added := 0
	for _, desc := range descs {
		if s.queue.len() >= s.cfg.QueueLimit {
			if added > 0 {
				s.wakeLocked()
			}
			return added, fmt.Errorf("%w: limit is %d tracks", ErrQueueFull, s.cfg.QueueLimit)
		}
		id, err := s.ids.Next()
		if err != nil {
			return added, fmt.Errorf("generate entry id: %w", err)
		}
		s.queue.push(QueueEntry{
			ID:          id,
			Track:       desc,
			RequestedBy: requestedBy,
			EnqueuedAt:  s.now(),
		})
		added++
	}
	if added > 0 {
		s.wakeLocked()
	}
	return added, nil
}

// Pause suspends frame delivery. Production upstream throttles itself
// against the bounded handoff, so no frames are produced or consumed
// while paused, and resume continues from the same offset.
func (s *Session) Pause() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	if s.state != StatePlaying {
		return fmt.Errorf("%w: cannot pause while %s", ErrWrongState, s.state)
	}
	s.setStateLocked(StatePaused)
	s.paused = make(chan struct{})
	return nil
}

// Resume continues a paused track.
func (s *Session) Resume() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	if s.state != StatePaused {
		return fmt.Errorf("%w: cannot resume while %s", ErrWrongState, s.state)
	}
	s.setStateLocked(StatePlaying)
	close(s.paused)
	s.paused = nil
	return nil
}

// Skip tears down the current track and moves on. The in-flight resolve,
// decode, or delivery is cancelled promptly; the cancellation is not
// reported as a failure.
func (s *Session) Skip() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	switch s.state {
	case StatePlaying, StatePaused, StateLoading:
	default:
		return fmt.Errorf("%w: nothing to skip while %s", ErrWrongState, s.state)
	}
	s.setStateLocked(StateStopping)
	if s.paused != nil {
		close(s.paused)
		s.paused = nil
	}
	if s.trackCancel != nil {
		s.trackCancel()
	}
	return nil
}

// Stop ends the session: the queue is discarded, the current track is
// cancelled, and the sink is released. Stopping twice is a no-op.
func (s *Session) Stop() {
	s.shutdown(nil)
}

func (s *Session) shutdown(reason error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.stopReason = reason
	s.queue.clear()
	s.setStateLocked(StateStopping)
	if s.paused != nil {
		close(s.paused)
		s.paused = nil
	}
	if s.trackCancel != nil {
		s.trackCancel()
	}
	close(s.stopping)
	s.mu.Unlock()
}

// SetLoop changes the repeat policy applied at track completion.
func (s *Session) SetLoop(mode LoopMode) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	s.loop = mode
	return nil
}

// SetVolume stores the gain applied when the next track's pipeline
// opens. The running track keeps the gain it started with, since gain is
// baked into its encoded frames.
func (s *Session) SetVolume(percent int) error {
	if percent < 0 || percent > 200 {
		return fmt.Errorf("%w: %d%% is outside 0-200", ErrBadVolume, percent)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	s.volume = percent
	return nil
}

// Remove drops queue positions start through end inclusive, 1-based.
func (s *Session) Remove(start, end int) ([]QueueEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrSessionClosed
	}
	return s.queue.removeRange(start, end)
}

// Move lifts the entry at from and reinserts it at to, 1-based.
func (s *Session) Move(from, to int) (QueueEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return QueueEntry{}, ErrSessionClosed
	}
	return s.queue.move(from, to)
}

// Shuffle randomizes the pending queue and reports its size.
func (s *Session) Shuffle() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, ErrSessionClosed
	}
	return s.queue.shuffle(), nil
}

// ClearQueue drops every pending entry, leaving the current track
// playing, and reports how many were dropped.
func (s *Session) ClearQueue() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, ErrSessionClosed
	}
	return s.queue.clear(), nil
}

// Snapshot is a point-in-time copy of the session for display.
type Snapshot struct {
	Destination media.Destination
	State       State
	Loop        LoopMode
	Volume      int
	Current     *QueueEntry
	Elapsed     time.Duration
	Queue       []QueueEntry
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := Snapshot{
		Destination: s.dest,
		State:       s.state,
		Loop:        s.loop,
		Volume:      s.volume,
		Elapsed:     s.elapsed,
		Queue:       s.queue.snapshot(),
	}
	if s.current != nil {
		entry := *s.current
		snap.Current = &entry
	}
	return snap
}

// idleFor reports how long the session has been idle with nothing
// queued. The second return is false while the session is doing work.
func (s *Session) idleFor(now time.Time) (time.Duration, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.state != StateIdle || s.queue.len() > 0 {
		return 0, false
	}
	return now.Sub(s.idleSince), true
}

func (s *Session) wakeLocked() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// run is the play loop: pick the next entry, play it to completion or
// teardown, repeat. It is the only goroutine that mutates PlaybackState
// outside the control methods, which keeps transitions totally ordered.
func (s *Session) run() {
	defer s.finalize()
	for {
		entry, ok := s.nextEntry()
		if !ok {
			return
		}
		s.playEntry(entry)
	}
}

// nextEntry blocks until there is a track to play or the session stops.
func (s *Session) nextEntry() (QueueEntry, bool) {
	for {
		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			return QueueEntry{}, false
		}
		if entry, ok := s.queue.pop(); ok {
			s.setStateLocked(StateLoading)
			held := entry
			s.current = &held
			s.elapsed = 0
			s.mu.Unlock()
			return entry, true
		}
		wasActive := s.state != StateIdle
		s.current = nil
		s.setStateLocked(StateIdle)
		s.mu.Unlock()

		if wasActive {
			s.emit(Event{Kind: EventQueueDrained, Dest: s.dest})
		}
		select {
		case <-s.wake:
		case <-s.stopping:
		}
	}
}

func (s *Session) playEntry(entry QueueEntry) {
	ctx, cancel := context.WithCancel(context.Background())
	s.mu.Lock()
	if s.closed || s.state == StateStopping {
		// A skip or stop landed while this entry was being picked up.
		s.mu.Unlock()
		cancel()
		return
	}
	s.trackCancel = cancel
	gain := s.volume
	s.mu.Unlock()
	defer func() {
		cancel()
		s.mu.Lock()
		s.trackCancel = nil
		s.mu.Unlock()
	}()

	// Deferred descriptors carry only a search phrase; bind them to a
	// stream now, at play time, so catalog entries enqueued in bulk do
	// not expire before their turn.
	if entry.Track.StreamURL == "" {
		resolved, err := s.bindStream(ctx, entry.Track)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			s.trackFailed(entry, err)
			return
		}
		entry.Track = resolved
		s.setCurrentTrack(entry.ID, resolved)
	}

	source, err := s.pipeline.Open(ctx, entry.Track, transcode.Options{GainPercent: gain})
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		s.trackFailed(entry, err)
		return
	}

	s.mu.Lock()
	if ctx.Err() != nil {
		s.mu.Unlock()
		source.Close()
		return
	}
	s.setStateLocked(StatePlaying)
	s.mu.Unlock()
	s.emit(Event{Kind: EventTrackStarted, Dest: s.dest, Entry: entry})
	slog.Info("track started",
		"guild", s.dest.GuildID, "title", entry.Track.Title, "requested_by", entry.RequestedBy)

	err = s.deliver(ctx, source)
	switch {
	case err == nil:
		s.emit(Event{Kind: EventTrackFinished, Dest: s.dest, Entry: entry})
		s.requeueForLoop(entry)
	case errors.Is(err, context.Canceled):
		// Skip or stop. Intentional, not a failure.
	default:
		var transportErr *sink.TransportError
		if errors.As(err, &transportErr) {
			slog.Error("voice transport failed, stopping session",
				"guild", s.dest.GuildID, "error", err)
			s.shutdown(err)
			return
		}
		s.trackFailed(entry, err)
	}
}

// bindStream resolves a deferred reference and grafts the curated
// metadata onto the best match.
func (s *Session) bindStream(ctx context.Context, desc media.Descriptor) (media.Descriptor, error) {
	matches, err := s.resolver.Resolve(ctx, desc.Reference)
	if err != nil {
		return media.Descriptor{}, err
	}
	if len(matches) == 0 {
		return media.Descriptor{}, fmt.Errorf("%w: %q", ErrNoMatches, desc.Reference)
	}
	resolved := matches[0]
	if desc.Title != "" {
		resolved.Title = desc.Title
	}
	if desc.Artist != "" {
		resolved.Artist = desc.Artist
	}
	if desc.PageURL != "" {
		resolved.PageURL = desc.PageURL
	}
	if resolved.Duration == 0 {
		resolved.Duration = desc.Duration
	}
	return resolved, nil
}

func (s *Session) setCurrentTrack(entryID string, track media.Descriptor) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current != nil && s.current.ID == entryID {
		s.current.Track = track
	}
}

// deliver consumes the frame source into the sink, holding at the pause
// gate between frames. Returns the reason the track ended.
func (s *Session) deliver(ctx context.Context, source FrameSource) error {
	defer source.Close()
	for {
		if gate := s.pauseGate(); gate != nil {
			select {
			case <-gate:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		select {
		case packet, ok := <-source.Frames():
			if !ok {
				return source.Err()
			}
			if err := s.sink.Accept(ctx, packet); err != nil {
				return err
			}
			s.advanceElapsed(packet.Duration)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (s *Session) pauseGate() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.paused
}

func (s *Session) advanceElapsed(d time.Duration) {
	s.mu.Lock()
	s.elapsed += d
	s.mu.Unlock()
}

func (s *Session) trackFailed(entry QueueEntry, err error) {
	slog.Warn("track failed, skipping",
		"guild", s.dest.GuildID,
		"title", entry.Track.Title,
		"kind", Classify(err).String(),
		"error", err)
	s.emit(Event{Kind: EventTrackFailed, Dest: s.dest, Entry: entry, Err: err})
}

// requeueForLoop applies the loop policy to a cleanly finished track.
func (s *Session) requeueForLoop(entry QueueEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	switch s.loop {
	case LoopTrack:
		s.queue.pushFront(entry)
	case LoopQueue:
		s.queue.push(entry)
	}
}

// finalize runs exactly once, as the play loop exits: release the sink,
// announce the stop, and let the registry drop this session.
func (s *Session) finalize() {
	s.mu.Lock()
	s.setStateLocked(StateStopping)
	s.queue.clear()
	s.current = nil
	reason := s.stopReason
	s.setStateLocked(StateStopped)
	s.mu.Unlock()

	if err := s.sink.Close(); err != nil {
		slog.Warn("voice sink close reported an error",
			"guild", s.dest.GuildID, "error", err)
	}
	s.emit(Event{Kind: EventSessionStopped, Dest: s.dest, Err: reason})
	close(s.events)
	close(s.done)
	if s.onStopped != nil {
		s.onStopped(s)
	}
	slog.Info("session stopped", "guild", s.dest.GuildID)
}
