package player

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/averraz/troubadour/internal/config"
	"github.com/averraz/troubadour/internal/generator"
	"github.com/averraz/troubadour/internal/media"
	"github.com/averraz/troubadour/internal/sink"
)

// DialFunc establishes the voice transport for a destination. The
// registry calls it at most once per live session.
type DialFunc func(ctx context.Context, dest media.Destination) (sink.Sink, error)

// Registry is the process-wide map from destination to Session. Creation
// is atomic per destination: concurrent callers for the same key all
// receive the one session the winning caller dialed.
type Registry struct {
	cfg      *config.PlayerConfig
	resolver TrackResolver
	pipeline Pipeline
	ids      generator.Generator[string]

	mu    sync.Mutex
	slots map[string]*slot

	closeOnce   sync.Once
	janitorStop chan struct{}
}

// slot reserves a destination key while its session is being dialed.
// ready closes once session or err is set.
type slot struct {
	ready   chan struct{}
	session *Session
	err     error
}

// NewRegistry builds the registry and starts its idle-eviction janitor.
func NewRegistry(cfg *config.PlayerConfig, res TrackResolver, pipe Pipeline) *Registry {
	r := &Registry{
		cfg:         cfg,
		resolver:    res,
		pipeline:    pipe,
		ids:         &generator.UUIDV4Generator{},
		slots:       make(map[string]*slot),
		janitorStop: make(chan struct{}),
	}
	go r.janitor()
	return r
}

// GetOrCreate returns the live session for dest, dialing a new one if
// none exists. Losers of a creation race block until the winner's dial
// settles and then share its outcome.
func (r *Registry) GetOrCreate(ctx context.Context, dest media.Destination, dial DialFunc) (*Session, error) {
	key := dest.Key()

	r.mu.Lock()
	if sl, ok := r.slots[key]; ok {
		r.mu.Unlock()
		select {
		case <-sl.ready:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		if sl.err != nil {
			return nil, sl.err
		}
		return sl.session, nil
	}
	sl := &slot{ready: make(chan struct{})}
	r.slots[key] = sl
	r.mu.Unlock()

	snk, err := dial(ctx, dest)
	if err != nil {
		sl.err = fmt.Errorf("dial voice destination: %w", err)
		r.mu.Lock()
		delete(r.slots, key)
		r.mu.Unlock()
		close(sl.ready)
		return nil, sl.err
	}

	session := newSession(dest, r.cfg, r.resolver, r.pipeline, snk, r.ids, r.removeSession)
	sl.session = session
	close(sl.ready)
	slog.Info("session created", "guild", dest.GuildID)
	return session, nil
}

// Get returns the live session for dest, if one exists.
func (r *Registry) Get(dest media.Destination) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sl, ok := r.slots[dest.Key()]
	if !ok {
		return nil, false
	}
	select {
	case <-sl.ready:
	default:
		return nil, false
	}
	if sl.session == nil {
		return nil, false
	}
	return sl.session, true
}

// Remove evicts and stops the session for dest. Removing an absent
// destination is a no-op.
func (r *Registry) Remove(dest media.Destination) {
	key := dest.Key()
	r.mu.Lock()
	sl, ok := r.slots[key]
	if ok {
		delete(r.slots, key)
	}
	r.mu.Unlock()
	if !ok {
		return
	}
	<-sl.ready
	if sl.session != nil {
		sl.session.Stop()
	}
}

// removeSession is the session's stop hook. The identity check keeps a
// stopping session from evicting its own replacement.
func (r *Registry) removeSession(s *Session) {
	key := s.dest.Key()
	r.mu.Lock()
	if sl, ok := r.slots[key]; ok && sl.session == s {
		delete(r.slots, key)
	}
	r.mu.Unlock()
}

// Close stops the janitor and every live session, waiting for each to
// release its transport. For process shutdown.
func (r *Registry) Close() {
	r.closeOnce.Do(func() { close(r.janitorStop) })

	r.mu.Lock()
	slots := make([]*slot, 0, len(r.slots))
	for _, sl := range r.slots {
		slots = append(slots, sl)
	}
	r.slots = make(map[string]*slot)
	r.mu.Unlock()

	for _, sl := range slots {
		<-sl.ready
		if sl.session != nil {
			sl.session.Stop()
			<-sl.session.Done()
		}
	}
}

// janitor evicts sessions that sat idle with an empty queue beyond the
// configured TTL, releasing their voice connections.
func (r *Registry) janitor() {
	if r.cfg.IdleTTL <= 0 {
		return
	}
	interval := r.cfg.IdleTTL / 4
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			r.sweep(time.Now())
		case <-r.janitorStop:
			return
		}
	}
}

func (r *Registry) sweep(now time.Time) {
	r.mu.Lock()
	var victims []*Session
	for key, sl := range r.slots {
		select {
		case <-sl.ready:
		default:
			continue
		}
		if sl.session == nil {
			continue
		}
		if idle, ok := sl.session.idleFor(now); ok && idle >= r.cfg.IdleTTL {
			delete(r.slots, key)
			victims = append(victims, sl.session)
		}
	}
	r.mu.Unlock()

	for _, victim := range victims {
		slog.Info("evicting idle session",
			"guild", victim.dest.GuildID, "idle_ttl", r.cfg.IdleTTL)
		victim.Stop()
	}
}
