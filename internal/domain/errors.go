package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation marks rejected input; nothing was read or written.
	ErrValidation = errors.New("validation failed")
	// ErrTeamNotFound is returned when a team id resolves to nothing.
	ErrTeamNotFound = errors.New("team not found")
	// ErrQuestionNotFound is returned when a question id resolves to nothing.
	ErrQuestionNotFound = errors.New("question not found")
	// ErrRoundNotFound is returned when a round id resolves to nothing.
	ErrRoundNotFound = errors.New("round not found")
	// ErrAnswerNotFound is returned when an answer id resolves to nothing.
	ErrAnswerNotFound = errors.New("answer not found")
	// ErrChallengeQuotaExhausted rejects a dispute from a team with no
	// challenges remaining.
	ErrChallengeQuotaExhausted = errors.New("challenge quota exhausted")
	// ErrUnauthorized is returned by the admin gate before the core runs.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrInvalidCheckpoint rejects elimination at anything but the round-3 and
	// round-5 checkpoints.
	ErrInvalidCheckpoint = errors.New("elimination only valid at rounds 3 and 5")
)

// Validationf wraps ErrValidation with a reason so handlers can both classify
// and explain the rejection.
func Validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// IsNotFound reports whether err identifies a missing entity of any kind.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrTeamNotFound) ||
		errors.Is(err, ErrQuestionNotFound) ||
		errors.Is(err, ErrRoundNotFound) ||
		errors.Is(err, ErrAnswerNotFound)
}
