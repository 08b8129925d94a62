package domain

import "time"

// Division numbering: playing divisions are 1..NumDivisions; eliminated teams
// are parked in DivisionGraveyard and never ranked again.
const (
	NumDivisions      = 5
	DivisionGraveyard = 0
)

// StreakCap bounds the consecutive-correct counter; the streak factor stops
// growing past it.
const StreakCap = 4

// DefaultChallengeQuota is the per-team allowance of answer disputes.
const DefaultChallengeQuota = 3

// TeamStatus tracks a team's standing in the competition.
type TeamStatus string

const (
	TeamActive     TeamStatus = "active"
	TeamEliminated TeamStatus = "eliminated"
	TeamWinner     TeamStatus = "winner"
)

// Team is a competing unit. Score is always the sum of currently-credited
// answer points; a regrade rewrites it wholesale.
type Team struct {
	ID                  string     `json:"id"`
	Name                string     `json:"name"`
	Division            int        `json:"division"`
	Score               int        `json:"score"`
	Streak              int        `json:"streak"`
	Status              TeamStatus `json:"status"`
	ChallengesRemaining int        `json:"challengesRemaining"`
	UpdatedAt           time.Time  `json:"updatedAt"`
}

// RoundStatus is the persisted lifecycle of a round document.
type RoundStatus string

const (
	RoundWaiting   RoundStatus = "waiting"
	RoundActive    RoundStatus = "active"
	RoundCompleted RoundStatus = "completed"
)

// Round is the shared pacing document every observer derives play state from.
// If PausedAt is set, elapsed-time math subtracts the open pause interval on
// top of TotalPauseSeconds.
type Round struct {
	ID                   string      `json:"id"`
	Status               RoundStatus `json:"status"`
	StartTime            *time.Time  `json:"startTime"`
	CurrentQuestionIndex int         `json:"currentQuestionIndex"`
	QuestionTimerSeconds int         `json:"questionTimer"`
	PausedAt             *time.Time  `json:"pausedAt"`
	TotalPauseSeconds    float64     `json:"totalPauseDuration"`
	ShowResults          bool        `json:"showResults"`
}

// QuestionType selects the correctness evaluator.
type QuestionType string

const (
	// QuestionMCQ is single-choice; graded automatically.
	QuestionMCQ QuestionType = "mcq"
	// QuestionMTF is a list of true/false statements; graded automatically,
	// all-or-nothing.
	QuestionMTF QuestionType = "mtf"
	// QuestionSAQ is a short free-text answer; graded manually or by key match
	// during regrade.
	QuestionSAQ QuestionType = "saq"
	// QuestionSpot is an image identification answer; graded like saq.
	QuestionSpot QuestionType = "spot"
)

// Difficulty tiers map to the 1/2/3 difficulty factor.
type Difficulty string

const (
	DifficultyEasy      Difficulty = "easy"
	DifficultyMedium    Difficulty = "medium"
	DifficultyDifficult Difficulty = "difficult"
)

// AnswerKey is the type-specific correctness key for a question. Only the
// fields relevant to the question type are meaningful.
type AnswerKey struct {
	Choice     int      `json:"choice,omitempty"`     // mcq: correct choice index
	Statements []bool   `json:"statements,omitempty"` // mtf: expected true/false per statement
	Text       string   `json:"text,omitempty"`       // saq/spot: canonical answer
	Alternates []string `json:"alternates,omitempty"` // saq/spot: accepted alternates
}

// Question belongs to a round. Order values within a round form a contiguous
// 1..N permutation after any insert/delete/move.
type Question struct {
	ID         string       `json:"id"`
	RoundID    string       `json:"roundId"`
	Order      int          `json:"order"`
	Type       QuestionType `json:"type"`
	Difficulty Difficulty   `json:"difficulty"`
	Prompt     string       `json:"prompt"`
	Choices    []string     `json:"choices,omitempty"`
	Statements []string     `json:"statements,omitempty"`
	Key        AnswerKey    `json:"key"`
}

// AnswerValue is a team's raw submitted answer. Only the field matching the
// question type is meaningful.
type AnswerValue struct {
	Choice     int    `json:"choice,omitempty"`
	Statements []bool `json:"statements,omitempty"`
	Text       string `json:"text,omitempty"`
}

// Answer is one ledger entry per (team, question). Its ID is the deterministic
// composite from AnswerID, which is what makes resubmission an overwrite
// instead of a duplicate. IsCorrect nil means pending manual grading.
type Answer struct {
	ID               string       `json:"id"`
	TeamID           string       `json:"teamId"`
	QuestionID       string       `json:"questionId"`
	RoundID          string       `json:"roundId"`
	Type             QuestionType `json:"type"`
	Value            AnswerValue  `json:"rawAnswer"`
	SubmittedAt      time.Time    `json:"submittedAt"`
	TimeSpentSeconds float64      `json:"timeSpentSeconds"`
	IsCorrect        *bool        `json:"isCorrect"`
	Points           int          `json:"points"`
	// Partial-credit display only; mtf scoring stays all-or-nothing.
	MTFCorrectCount int `json:"mtfCorrectCount,omitempty"`
	MTFTotalCount   int `json:"mtfTotalCount,omitempty"`
}

// AnswerID builds the composite ledger key for a (team, question) pair.
func AnswerID(teamID, questionID string) string {
	return teamID + ":" + questionID
}

// Challenge is a dispute record against a submitted answer. Resolution is a
// human process; the engine only files it and decrements the team's quota.
type Challenge struct {
	ID         string    `json:"id"`
	TeamID     string    `json:"teamId"`
	AnswerID   string    `json:"answerId"`
	QuestionID string    `json:"questionId"`
	Reason     string    `json:"reason"`
	FiledAt    time.Time `json:"filedAt"`
	Dismissed  bool      `json:"dismissed"`
}

// SubmitResult is what a team client sees after a submission.
type SubmitResult struct {
	IsCorrect *bool  `json:"isCorrect"`
	Points    int    `json:"points"`
	Streak    int    `json:"streak"`
	Message   string `json:"message"`
}

// GradeResult reports a manual grade application.
type GradeResult struct {
	IsCorrect bool `json:"isCorrect"`
	Points    int  `json:"points"`
	NewStreak int  `json:"newStreak"`
}

// RegradeReport summarizes a key-correction replay across teams. Errors holds
// one entry per team whose replay failed; the rest of the batch still applies.
type RegradeReport struct {
	UpdatedTeams int      `json:"updatedTeams"`
	Errors       []string `json:"errors,omitempty"`
}

// TieGroup reports active teams sharing an exact score within one division.
type TieGroup struct {
	Division int       `json:"division"`
	Teams    []TieTeam `json:"teams"`
}

// TieTeam is the per-team slice of a tie report.
type TieTeam struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Score int    `json:"score"`
}
