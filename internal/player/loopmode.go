package player

import "fmt"

// LoopMode is the repeat policy applied when a track completes cleanly.
type LoopMode int

const (
	// LoopOff advances through the queue normally.
	LoopOff LoopMode = iota
	// LoopTrack replays the finished track before anything queued.
	LoopTrack
	// LoopQueue sends the finished track to the back of the queue.
	LoopQueue
)

func (m LoopMode) String() string {
	switch m {
	case LoopOff:
		return "off"
	case LoopTrack:
		return "track"
	case LoopQueue:
		return "queue"
	default:
		return "unknown"
	}
}

// ParseLoopMode reads the command-facing spelling of a loop mode.
func ParseLoopMode(s string) (LoopMode, error) {
	switch s {
	case "off":
		return LoopOff, nil
	case "track":
		return LoopTrack, nil
	case "queue":
		return LoopQueue, nil
	default:
		return LoopOff, fmt.Errorf("unknown loop mode %q, expected off, track, or queue", s)
	}
}
