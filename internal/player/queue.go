package player

import (
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/averraz/troubadour/internal/media"
)

// QueueEntry is one pending or playing track with who asked for it.
type QueueEntry struct {
	ID          string
	Track       media.Descriptor
	RequestedBy string
	EnqueuedAt  time.Time
}

// queue is the session's pending track list. Not safe for concurrent
// use; every access happens under the owning session's lock. Positions
// in the range operations are 1-based, matching how the queue is shown
// to users.
type queue struct {
	entries []QueueEntry
}

func (q *queue) len() int { return len(q.entries) }

func (q *queue) push(e QueueEntry) { q.entries = append(q.entries, e) }

func (q *queue) pushFront(e QueueEntry) {
	q.entries = append([]QueueEntry{e}, q.entries...)
}

func (q *queue) pop() (QueueEntry, bool) {
	if len(q.entries) == 0 {
		return QueueEntry{}, false
	}
	e := q.entries[0]
	q.entries = q.entries[1:]
	return e, true
}

func (q *queue) clear() int {
	n := len(q.entries)
	q.entries = nil
	return n
}

func (q *queue) snapshot() []QueueEntry {
	if len(q.entries) == 0 {
		return nil
	}
	out := make([]QueueEntry, len(q.entries))
	copy(out, q.entries)
	return out
}

// removeRange drops positions start through end inclusive and returns
// the removed entries in their former order.
func (q *queue) removeRange(start, end int) ([]QueueEntry, error) {
	if start < 1 || end < start || end > len(q.entries) {
		return nil, fmt.Errorf("%w: %d-%d of %d", ErrBadPosition, start, end, len(q.entries))
	}
	removed := make([]QueueEntry, end-start+1)
	copy(removed, q.entries[start-1:end])
	q.entries = append(q.entries[:start-1], q.entries[end:]...)
	return removed, nil
}

// move lifts the entry at from and reinserts it so it sits at to.
func (q *queue) move(from, to int) (QueueEntry, error) {
	n := len(q.entries)
	if from < 1 || from > n || to < 1 || to > n {
		return QueueEntry{}, fmt.Errorf("%w: %d to %d of %d", ErrBadPosition, from, to, n)
	}
	e := q.entries[from-1]
	q.entries = append(q.entries[:from-1], q.entries[from:]...)
	rest := append([]QueueEntry{}, q.entries[to-1:]...)
	q.entries = append(append(q.entries[:to-1], e), rest...)
	return e, nil
}

func (q *queue) shuffle() int {
	rand.Shuffle(len(q.entries), func(i, j int) {
		q.entries[i], q.entries[j] = q.entries[j], q.entries[i]
	})
	return len(q.entries)
}
