package player

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func entriesNamed(titles ...string) []QueueEntry {
	out := make([]QueueEntry, len(titles))
	for i, title := range titles {
		out[i] = QueueEntry{ID: title, Track: track(title, title)}
	}
	return out
}

func titles(entries []QueueEntry) []string {
	var out []string
	for _, e := range entries {
		out = append(out, e.ID)
	}
	return out
}

func TestQueueMove(t *testing.T) {
	tests := []struct {
		name     string
		from, to int
		want     []string
	}{
		{"forward", 1, 3, []string{"b", "c", "a", "d"}},
		{"backward", 3, 1, []string{"c", "a", "b", "d"}},
		{"to the end", 1, 4, []string{"b", "c", "d", "a"}},
		{"in place", 2, 2, []string{"a", "b", "c", "d"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := &queue{entries: entriesNamed("a", "b", "c", "d")}
			if _, err := q.move(tt.from, tt.to); err != nil {
				t.Fatalf("move(%d, %d): %v", tt.from, tt.to, err)
			}
			if diff := cmp.Diff(tt.want, titles(q.entries)); diff != "" {
				t.Errorf("order mismatch (-want +got):\n%s", diff)
			}
		})
	}

	t.Run("out of range", func(t *testing.T) {
		q := &queue{entries: entriesNamed("a", "b")}
		for _, pos := range [][2]int{{0, 1}, {1, 3}, {3, 1}, {-1, 1}} {
			if _, err := q.move(pos[0], pos[1]); !errors.Is(err, ErrBadPosition) {
				t.Errorf("move(%d, %d) = %v, want ErrBadPosition", pos[0], pos[1], err)
			}
		}
	})
}

func TestQueueRemoveRange(t *testing.T) {
	tests := []struct {
		name        string
		start, end  int
		wantRemoved []string
		wantLeft    []string
	}{
		{"single", 2, 2, []string{"b"}, []string{"a", "c", "d"}},
		{"middle span", 2, 3, []string{"b", "c"}, []string{"a", "d"}},
		{"everything", 1, 4, []string{"a", "b", "c", "d"}, nil},
		{"tail", 3, 4, []string{"c", "d"}, []string{"a", "b"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := &queue{entries: entriesNamed("a", "b", "c", "d")}
			removed, err := q.removeRange(tt.start, tt.end)
			if err != nil {
				t.Fatalf("removeRange(%d, %d): %v", tt.start, tt.end, err)
			}
			if diff := cmp.Diff(tt.wantRemoved, titles(removed)); diff != "" {
				t.Errorf("removed mismatch (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(tt.wantLeft, titles(q.entries)); diff != "" {
				t.Errorf("remaining mismatch (-want +got):\n%s", diff)
			}
		})
	}

	t.Run("out of range", func(t *testing.T) {
		q := &queue{entries: entriesNamed("a", "b")}
		for _, span := range [][2]int{{0, 1}, {2, 1}, {1, 3}, {3, 3}} {
			if _, err := q.removeRange(span[0], span[1]); !errors.Is(err, ErrBadPosition) {
				t.Errorf("removeRange(%d, %d) = %v, want ErrBadPosition", span[0], span[1], err)
			}
		}
	})
}

func TestQueuePushFrontBeatsPending(t *testing.T) {
	q := &queue{entries: entriesNamed("b", "c")}
	q.pushFront(QueueEntry{ID: "a"})

	got, ok := q.pop()
	if !ok || got.ID != "a" {
		t.Fatalf("pop = %v %v, want the front-pushed entry", got.ID, ok)
	}
	if diff := cmp.Diff([]string{"b", "c"}, titles(q.entries)); diff != "" {
		t.Errorf("rest of queue (-want +got):\n%s", diff)
	}
}

func TestQueueShuffleKeepsEntries(t *testing.T) {
	q := &queue{entries: entriesNamed("a", "b", "c", "d", "e")}
	if n := q.shuffle(); n != 5 {
		t.Fatalf("shuffle reported %d entries, want 5", n)
	}
	seen := map[string]bool{}
	for _, e := range q.entries {
		seen[e.ID] = true
	}
	for _, id := range []string{"a", "b", "c", "d", "e"} {
		if !seen[id] {
			t.Errorf("entry %q lost by shuffle", id)
		}
	}
}
