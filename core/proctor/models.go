package proctor

import (
	"strings"
	"time"
)

// DefaultWarningThreshold is the number of warnings that terminates an attempt.
const DefaultWarningThreshold = 3

// State of an AttemptSession.
type State string

const (
	StateActive     State = "active"
	StateTerminated State = "terminated"
	StateCompleted  State = "completed"
)

// Reason of a warning.
type Reason string

const (
	ReasonTabHidden            Reason = "tab-hidden"
	ReasonFullscreenExit       Reason = "fullscreen-exit"
	ReasonMultiFace            Reason = "multi-face-detected"
	ReasonSuspiciousExpression Reason = "suspicious-expression"
	ReasonGazeOffCenter        Reason = "gaze-off-center"
	ReasonSuspiciousActivity   Reason = "suspicious-activity"
)

// ClassifyAlert maps a detector alert text to a warning Reason.
func ClassifyAlert(alert string) Reason {
	a := strings.ToLower(alert)
	switch {
	case strings.Contains(a, "multiple face"):
		return ReasonMultiFace
	case strings.Contains(a, "expression"):
		return ReasonSuspiciousExpression
	case strings.Contains(a, "looking"), strings.Contains(a, "gaze"):
		return ReasonGazeOffCenter
	default:
		return ReasonSuspiciousActivity
	}
}

// AttemptSession is one quiz attempt of a candidate.
type AttemptSession struct {
	CandidateID  string    `json:"candidateIdentity"`
	QuizID       string    `json:"quizId"`
	WarningCount int       `json:"warningCount"`
	State        State     `json:"state"`
	StartedAt    time.Time `json:"startedAt"`
	EndedAt      time.Time `json:"endedAt"`
	Graded       bool      `json:"graded"`
}

func (s AttemptSession) IsTerminal() bool {
	return s.State == StateTerminated || s.State == StateCompleted
}

// WarningOutcome describes the effect of one RecordWarning call.
type WarningOutcome struct {
	Session  AttemptSession
	Reason   Reason
	Recorded bool // false when the session was already terminal
	// Terminated is true only for the call that moved the session to StateTerminated.
	Terminated bool
}
