package roundstate_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"quizbowl-engine/internal/roundstate"
)

type recordingPauser struct {
	mu    sync.Mutex
	calls []string
}

func (p *recordingPauser) PauseForGrading(_ context.Context, roundID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, roundID)
	return nil
}

func (p *recordingPauser) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.calls)
}

func TestWatcherEmitsChangedViewsAndPausesOnce(t *testing.T) {
	fake := clockwork.NewFakeClockAt(now)
	start := now.Add(-90 * time.Second) // already timed out
	round := activeRound(start)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	views := make(chan roundstate.View, 16)
	pauser := &recordingPauser{}
	watcher := roundstate.NewWatcher(fake, fake.Now, 100*time.Millisecond, zerolog.Nop())

	done := make(chan struct{})
	go func() {
		defer close(done)
		watcher.Run(ctx,
			func(context.Context) (roundstate.Snapshot, error) {
				return roundstate.Snapshot{Round: round, QuestionCount: 10}, nil
			},
			func(v roundstate.View) { views <- v },
			pauser,
		)
	}()

	fake.BlockUntil(1)
	fake.Advance(100 * time.Millisecond)

	select {
	case v := <-views:
		if v.Phase != roundstate.PhaseWaitingGrading || !v.TimedOut {
			t.Fatalf("expected timed-out waiting_grading, got %+v", v)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("no view emitted")
	}

	// Same derived view again: nothing new emitted, pause not re-fired.
	fake.BlockUntil(1)
	fake.Advance(100 * time.Millisecond)
	fake.BlockUntil(1)
	fake.Advance(100 * time.Millisecond)

	deadline := time.Now().Add(2 * time.Second)
	for pauser.count() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if got := pauser.count(); got != 1 {
		t.Fatalf("pause requested %d times, want exactly 1", got)
	}
	select {
	case v := <-views:
		t.Fatalf("unchanged view should not re-emit, got %+v", v)
	default:
	}

	cancel()
	<-done
}
