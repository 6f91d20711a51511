package proctor

import (
	"sync"
	"time"

	"github.com/trezcool/proctor/core"
)

// Monitor tracks the AttemptSession of every candidate and drives the warning/termination state machine.
// Sessions are keyed by candidate identity; each session has its own lock so that the
// increment-then-check-threshold step is atomic per candidate.
type Monitor struct {
	mu        sync.RWMutex
	sessions  map[string]*entry
	threshold int
	nowFunc   func() time.Time // mockable
}

type entry struct {
	mu      sync.Mutex
	sess    AttemptSession
	grading bool
}

func NewMonitor(threshold int) *Monitor {
	if threshold < 1 {
		threshold = DefaultWarningThreshold
	}
	return &Monitor{
		sessions:  make(map[string]*entry),
		threshold: threshold,
		nowFunc:   time.Now,
	}
}

func (m *Monitor) Threshold() int {
	return m.threshold
}

func (m *Monitor) lookup(candidateID string) *entry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sessions[candidateID]
}

// Begin opens a new active session. A candidate has at most one active session at a time;
// a terminal session is replaced once its result is settled.
func (m *Monitor) Begin(candidateID, quizID string) (AttemptSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if e, ok := m.sessions[candidateID]; ok {
		e.mu.Lock()
		active := e.sess.State == StateActive || e.grading
		unsettled := e.sess.State == StateTerminated && !e.sess.Graded
		e.mu.Unlock()
		if active {
			return AttemptSession{}, core.NewStateError("an attempt is already in progress")
		}
		if unsettled {
			return AttemptSession{}, core.NewStateError("terminated attempt has not been graded yet")
		}
	}

	e := &entry{sess: AttemptSession{
		CandidateID: candidateID,
		QuizID:      quizID,
		State:       StateActive,
		StartedAt:   m.nowFunc().UTC(),
	}}
	m.sessions[candidateID] = e
	return e.sess, nil
}

// Session returns a snapshot of the candidate's latest session.
func (m *Monitor) Session(candidateID string) (AttemptSession, bool) {
	e := m.lookup(candidateID)
	if e == nil {
		return AttemptSession{}, false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sess, true
}

// FindActiveSession returns the active session of the candidate for the given quiz.
func (m *Monitor) FindActiveSession(candidateID, quizID string) (AttemptSession, error) {
	sess, ok := m.Session(candidateID)
	if !ok || sess.QuizID != quizID || sess.State != StateActive {
		return AttemptSession{}, core.NewNotFoundError("active session", candidateID)
	}
	return sess, nil
}

// RecordWarning increments the warning count of the candidate's active session and terminates it
// once the threshold is reached. Warnings on a terminal session are no-ops.
func (m *Monitor) RecordWarning(candidateID string, reason Reason) (WarningOutcome, error) {
	e := m.lookup(candidateID)
	if e == nil {
		return WarningOutcome{}, core.NewNotFoundError("active session", candidateID)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	out := WarningOutcome{Reason: reason}
	if e.sess.State != StateActive {
		out.Session = e.sess
		return out, nil
	}

	e.sess.WarningCount++
	out.Recorded = true
	if e.sess.WarningCount >= m.threshold {
		e.sess.State = StateTerminated
		e.sess.EndedAt = m.nowFunc().UTC()
		out.Terminated = true
	}
	out.Session = e.sess
	return out, nil
}

// Complete moves an active session to StateCompleted.
func (m *Monitor) Complete(candidateID string) (AttemptSession, error) {
	e := m.lookup(candidateID)
	if e == nil {
		return AttemptSession{}, core.NewNotFoundError("active session", candidateID)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.sess.State != StateActive {
		return e.sess, core.NewStateError("attempt is not active")
	}
	e.complete(m.nowFunc())
	return e.sess, nil
}

func (e *entry) complete(now time.Time) {
	e.sess.State = StateCompleted
	e.sess.EndedAt = now.UTC()
}

// ClaimGrading reserves the candidate's session for grading. An active session is completed;
// a terminated one is returned as is so that its result is recorded as forced.
// Every successful claim must be followed by ReleaseGrading.
func (m *Monitor) ClaimGrading(candidateID, quizID string) (AttemptSession, error) {
	e := m.lookup(candidateID)
	if e == nil {
		return AttemptSession{}, core.NewNotFoundError("session", candidateID)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.sess.QuizID != quizID {
		return AttemptSession{}, core.NewNotFoundError("session", candidateID)
	}
	if e.grading || e.sess.Graded {
		return e.sess, core.NewStateError("attempt has already been graded")
	}
	if e.sess.State == StateActive {
		e.complete(m.nowFunc())
	}
	e.grading = true
	return e.sess, nil
}

// ReleaseGrading ends a grading claim. settled marks the session as graded;
// otherwise the session can be claimed again.
func (m *Monitor) ReleaseGrading(candidateID string, settled bool) {
	e := m.lookup(candidateID)
	if e == nil {
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.grading = false
	if settled {
		e.sess.Graded = true
	}
}

// Sweep drops the graded sessions that ended before the given time and returns how many were dropped.
func (m *Monitor) Sweep(before time.Time) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	var n int
	for id, e := range m.sessions {
		e.mu.Lock()
		stale := e.sess.Graded && !e.grading && e.sess.EndedAt.Before(before)
		e.mu.Unlock()
		if stale {
			delete(m.sessions, id)
			n++
		}
	}
	return n
}
