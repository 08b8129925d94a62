package roundstate

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"quizbowl-engine/internal/domain"
)

// PauseTracker remembers which question transitions have already fired the
// opportunistic pause-for-grading request, so the fire-and-forget call happens
// at most once per (round, question).
type PauseTracker struct {
	mu   sync.Mutex
	last map[string]int
}

func NewPauseTracker() *PauseTracker {
	return &PauseTracker{last: make(map[string]int)}
}

// ShouldRequestPause reports true exactly once per question transition that
// reached waiting_grading through timer expiry. Admin pauses never trigger it.
func (t *PauseTracker) ShouldRequestPause(roundID string, view View) bool {
	if view.Phase != PhaseWaitingGrading || !view.TimedOut {
		return false
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if idx, ok := t.last[roundID]; ok && idx == view.QuestionIndex {
		return false
	}
	t.last[roundID] = view.QuestionIndex
	return true
}

// Snapshot is the data a watcher derives from.
type Snapshot struct {
	Round         domain.Round
	QuestionCount int
}

// PauseRequester is the server-side pause-for-grading call. Implementations
// must be idempotent; the watcher fires it without waiting on the outcome.
type PauseRequester interface {
	PauseForGrading(ctx context.Context, roundID string) error
}

// Watcher polls a snapshot source at sub-second intervals, re-derives the
// view, and emits it whenever it changes. It carries the engine's only
// self-initiated side effect, the once-per-question pause request.
type Watcher struct {
	clock    clockwork.Clock
	now      func() time.Time
	interval time.Duration
	tracker  *PauseTracker
	log      zerolog.Logger
}

// NewWatcher builds a watcher. clock drives the poll ticker; now must be the
// skew-corrected clock, which is generally a different source.
func NewWatcher(clock clockwork.Clock, now func() time.Time, interval time.Duration, log zerolog.Logger) *Watcher {
	if interval <= 0 {
		interval = 250 * time.Millisecond
	}
	return &Watcher{
		clock:    clock,
		now:      now,
		interval: interval,
		tracker:  NewPauseTracker(),
		log:      log,
	}
}

// Run polls until ctx is done. fetch supplies the shared documents, emit
// receives each changed view, and pauser (optional) receives the opportunistic
// pause request.
func (w *Watcher) Run(ctx context.Context, fetch func(context.Context) (Snapshot, error), emit func(View), pauser PauseRequester) {
	ticker := w.clock.NewTicker(w.interval)
	defer ticker.Stop()

	var lastView View
	var seeded bool
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
		}

		snap, err := fetch(ctx)
		if err != nil {
			w.log.Warn().Err(err).Msg("round snapshot fetch failed")
			continue
		}
		view := Derive(snap.Round, snap.QuestionCount, w.now())

		if pauser != nil && w.tracker.ShouldRequestPause(snap.Round.ID, view) {
			go func(roundID string) {
				if err := pauser.PauseForGrading(ctx, roundID); err != nil {
					w.log.Warn().Err(err).Str("round", roundID).Msg("pause-for-grading request failed")
				}
			}(snap.Round.ID)
		}

		if !seeded || view != lastView {
			seeded = true
			lastView = view
			emit(view)
		}
	}
}
