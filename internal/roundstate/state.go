// Package roundstate derives the phase of play any observer should render
// from shared round data and a synchronized clock. Derivation is pure; there
// is no central authority pushing transitions, only documents.
package roundstate

import (
	"math"
	"time"

	"quizbowl-engine/internal/domain"
)

// Phase is what an observer should currently render.
type Phase string

const (
	PhaseWaiting        Phase = "waiting"
	PhaseCountdown      Phase = "countdown"
	PhasePlaying        Phase = "playing"
	PhaseAnswerReveal   Phase = "answer_reveal"
	PhaseWaitingGrading Phase = "waiting_grading"
)

// RevealWindow is the fixed local display window for answer_reveal. It is a
// client-side concern, independent of server pacing.
const RevealWindow = 5 * time.Second

// View is the derived state for one instant.
type View struct {
	Phase         Phase `json:"phase"`
	SecondsLeft   int   `json:"secondsLeft"`
	QuestionIndex int   `json:"questionIndex"`
	// TimedOut distinguishes a timer-expiry waiting_grading from an
	// admin-initiated pause; only the former should trigger the opportunistic
	// server-side pause request.
	TimedOut bool `json:"-"`
}

// EffectiveElapsed returns seconds of live play since the round started,
// net of all accumulated pauses. An open pause interval (PausedAt set) is
// subtracted on top of the accumulated total.
func EffectiveElapsed(r domain.Round, now time.Time) float64 {
	if r.StartTime == nil {
		return 0
	}
	elapsed := now.Sub(*r.StartTime).Seconds() - r.TotalPauseSeconds
	if r.PausedAt != nil {
		elapsed -= now.Sub(*r.PausedAt).Seconds()
	}
	if elapsed < 0 {
		return 0
	}
	return elapsed
}

// Derive computes the observer view for a round with questionCount questions
// at the given instant. now must come from the synchronized clock so every
// observer agrees.
func Derive(r domain.Round, questionCount int, now time.Time) View {
	view := View{QuestionIndex: r.CurrentQuestionIndex}

	if r.StartTime == nil {
		view.Phase = PhaseWaiting
		return view
	}
	if now.Before(*r.StartTime) {
		view.Phase = PhaseCountdown
		view.SecondsLeft = int(math.Ceil(r.StartTime.Sub(now).Seconds()))
		return view
	}
	if r.CurrentQuestionIndex >= questionCount {
		view.Phase = PhaseWaiting
		return view
	}
	if r.ShowResults {
		view.Phase = PhaseAnswerReveal
		view.SecondsLeft = int(RevealWindow.Seconds())
		return view
	}
	if r.PausedAt != nil {
		view.Phase = PhaseWaitingGrading
		return view
	}

	elapsed := EffectiveElapsed(r, now)
	timeLeft := r.QuestionTimerSeconds - int(math.Floor(elapsed))
	if timeLeft > 0 {
		view.Phase = PhasePlaying
		view.SecondsLeft = timeLeft
		return view
	}
	view.Phase = PhaseWaitingGrading
	view.TimedOut = true
	return view
}
