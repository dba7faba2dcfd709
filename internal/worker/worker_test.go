package worker_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/averraz/troubadour/internal/repository"
	"github.com/averraz/troubadour/internal/worker"
)

// fakeStore hands out pending plays whose run time falls at or before the
// cutoff and forgets them, mirroring the claim semantics of the real table.
type fakeStore struct {
	mu      sync.Mutex
	pending []repository.ScheduledPlay
}

func (s *fakeStore) TakeDue(ctx context.Context, cutoff time.Time) ([]repository.ScheduledPlay, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var due, keep []repository.ScheduledPlay
	for _, play := range s.pending {
		if play.NextRunAt.After(cutoff) {
			keep = append(keep, play)
		} else {
			due = append(due, play)
		}
	}
	s.pending = keep
	return due, nil
}

type recordingStarter struct {
	fired chan repository.ScheduledPlay
}

func (r *recordingStarter) StartScheduledPlay(ctx context.Context, play repository.ScheduledPlay) error {
	r.fired <- play
	return nil
}

func TestSweeperFiresOverduePlayImmediately(t *testing.T) {
	store := &fakeStore{pending: []repository.ScheduledPlay{
		{ID: "sp-1", GuildID: "g1", Reference: "morning song", NextRunAt: time.Now().Add(-time.Second)},
	}}
	starter := &recordingStarter{fired: make(chan repository.ScheduledPlay, 1)}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go worker.NewSweeper(store, starter, 20*time.Millisecond).Run(ctx)

	select {
	case play := <-starter.fired:
		if play.ID != "sp-1" {
			t.Errorf("fired the wrong play: %s", play.ID)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("overdue play never fired")
	}
}

func TestSweeperFiresAtTheRunTime(t *testing.T) {
	runAt := time.Now().Add(150 * time.Millisecond)
	store := &fakeStore{pending: []repository.ScheduledPlay{
		{ID: "sp-2", GuildID: "g1", Reference: "evening song", NextRunAt: runAt},
	}}
	starter := &recordingStarter{fired: make(chan repository.ScheduledPlay, 1)}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go worker.NewSweeper(store, starter, 50*time.Millisecond).Run(ctx)

	select {
	case <-starter.fired:
		if now := time.Now(); now.Before(runAt) {
			t.Errorf("play fired %v early", runAt.Sub(now))
		}
	case <-time.After(2 * time.Second):
		t.Fatal("scheduled play never fired")
	}
}

func TestSweeperStopsOnCancel(t *testing.T) {
	store := &fakeStore{}
	starter := &recordingStarter{fired: make(chan repository.ScheduledPlay, 1)}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		worker.NewSweeper(store, starter, 10*time.Millisecond).Run(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("sweeper did not stop after cancellation")
	}
}
