package player

import "log/slog"

// State is a playback session's lifecycle position. Stopped is terminal;
// a stopped session is evicted from the registry and never reused.
type State int

const (
	StateIdle State = iota
	StateLoading
	StatePlaying
	StatePaused
	StateStopping
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	case StateStopping:
		return "stopping"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// legalTransitions is the closed transition relation. Loading reenters
// itself when skip-on-error moves to the next entry, and Stopping leads
// back to Loading or Idle when only the current track was torn down.
var legalTransitions = map[State][]State{
	StateIdle:     {StateLoading, StateStopping},
	StateLoading:  {StateLoading, StatePlaying, StateIdle, StateStopping},
	StatePlaying:  {StatePaused, StateLoading, StateIdle, StateStopping},
	StatePaused:   {StatePlaying, StateStopping},
	StateStopping: {StateLoading, StateIdle, StateStopped},
	StateStopped:  {},
}

func (s State) canEnter(next State) bool {
	for _, allowed := range legalTransitions[s] {
		if next == allowed {
			return true
		}
	}
	return false
}

// setStateLocked moves the session to next, refusing transitions outside
// the relation. An illegal transition is a programming fault, not a user
// condition, so it is logged and dropped rather than applied.
func (s *Session) setStateLocked(next State) {
	if s.state == next {
		return
	}
	if !s.state.canEnter(next) {
		slog.Error("illegal playback state transition",
			"guild", s.dest.GuildID, "from", s.state.String(), "to", next.String())
		return
	}
	s.state = next
	if next == StateIdle {
		s.idleSince = s.now()
	}
}
