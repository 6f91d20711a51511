package relay

import (
	"context"
	"fmt"
	"hash/fnv"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/trezcool/proctor/core"
	"github.com/trezcool/proctor/core/proctor"
	"github.com/trezcool/proctor/core/quiz"
	"github.com/trezcool/proctor/core/user"
)

// warningStripes is the number of locks ordering the warnings of candidates.
const warningStripes = 64

// Finalizer records the forced result of a terminated attempt.
type Finalizer interface {
	Finalize(ctx context.Context, candidateID string) (quiz.AttemptResult, error)
}

type HubDeps struct {
	Monitor          *proctor.Monitor
	Activities       proctor.ActivityRepository
	Finalizer        Finalizer // optional
	Detector         Detector
	Sink             EventSink
	Validate         *validator.Validate
	Logger           core.Logger
	DetectorTimeout  time.Duration
	StoreTimeout     time.Duration
	SessionRetention time.Duration // graded sessions are swept after it; zero keeps them
}

// Hub ties the real-time channel to the integrity monitor:
// it owns the Registry and dispatches inbound messages to the Router, the FrameRelay and the Monitor.
type Hub struct {
	registry    *Registry
	router      *Router
	frames      *FrameRelay
	gate        *AnalysisGate
	broadcaster *Broadcaster
	deps        HubDeps

	// warning notices of a candidate are sent in the order the Monitor counted them
	warningLocks [warningStripes]sync.Mutex

	done      chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

func NewHub(deps HubDeps) *Hub {
	h := &Hub{deps: deps, registry: NewRegistry(), done: make(chan struct{})}
	h.router = NewRouter(h.registry, deps.Logger)
	h.broadcaster = NewBroadcaster(h.registry, deps.Sink)
	h.gate = NewAnalysisGate(deps.Detector, deps.DetectorTimeout, h.handleAlerts, deps.Logger)
	h.frames = NewFrameRelay(h.registry, h.gate)

	if deps.SessionRetention > 0 {
		h.wg.Add(1)
		go h.sweepSessions(deps.SessionRetention)
	}
	return h
}

func (h *Hub) Registry() *Registry {
	return h.registry
}

func (h *Hub) Monitor() *proctor.Monitor {
	return h.deps.Monitor
}

// Connect registers conn and notifies observers.
func (h *Hub) Connect(conn Connection, p user.Principal) {
	h.registry.Register(conn, p)
	h.broadcaster.Broadcast(Message{Type: KindConnect, Identity: p.ID, Role: p.Role})
	if p.IsCandidate() {
		h.logActivity(p.ID, proctor.ActivityConnected, "candidate connected")
	}
	h.deps.Logger.Info("client connected", p, map[string]interface{}{"connection": conn.ID()})
}

// Disconnect unregisters conn. Nothing is broadcast when conn was already replaced by a newer connection.
func (h *Hub) Disconnect(conn Connection) {
	p, ok := h.registry.Unregister(conn)
	_ = conn.Close()
	if !ok {
		return
	}
	h.broadcaster.Broadcast(Message{Type: KindDisconnect, Identity: p.ID, Role: p.Role})
	if p.IsCandidate() {
		h.logActivity(p.ID, proctor.ActivityDisconnected, "candidate disconnected")
		if sess, ok := h.deps.Monitor.Session(p.ID); ok && sess.State == proctor.StateTerminated && !sess.Graded {
			h.finalize(p.ID)
		}
	}
	h.deps.Logger.Info("client disconnected", p, map[string]interface{}{"connection": conn.ID()})
}

// HandleMessage processes one inbound message of p. Messages of a connection must be handled in arrival order.
// Invalid messages are logged and dropped.
func (h *Hub) HandleMessage(p user.Principal, data []byte) {
	msg, err := DecodeMessage(h.deps.Validate, data)
	if err != nil {
		h.deps.Logger.Warn("dropping invalid message", err, p)
		return
	}

	switch msg.Type {
	case KindOffer, KindAnswer, KindCandidate:
		h.router.Route(p.ID, msg)
	case KindFrame:
		if !p.IsCandidate() {
			h.deps.Logger.Warn("dropping frame of non-candidate", p)
			return
		}
		h.frames.Relay(p.ID, msg.Payload)
	case KindVisibilityHidden:
		h.signal(p, proctor.ReasonTabHidden)
	case KindFullscreenExit:
		h.signal(p, proctor.ReasonFullscreenExit)
	}
}

func (h *Hub) signal(p user.Principal, reason proctor.Reason) {
	if !p.IsCandidate() {
		h.deps.Logger.Warn("dropping integrity signal of non-candidate", p, map[string]interface{}{"reason": reason})
		return
	}
	if _, err := h.RecordWarning(p.ID, reason); err != nil {
		h.deps.Logger.Debug("dropping stale integrity signal", err, p)
	}
}

// RecordWarning counts a warning against the candidate's active session, notifies the candidate and observers,
// and emits the termination event when this warning reaches the threshold.
// The forced result of a terminated attempt is recorded right away.
func (h *Hub) RecordWarning(identity string, reason proctor.Reason) (proctor.WarningOutcome, error) {
	out, err := h.recordWarning(identity, reason)
	if err == nil && out.Terminated {
		h.finalize(identity)
	}
	return out, err
}

func (h *Hub) recordWarning(identity string, reason proctor.Reason) (proctor.WarningOutcome, error) {
	lock := h.warningLock(identity)
	lock.Lock()
	defer lock.Unlock()

	out, err := h.deps.Monitor.RecordWarning(identity, reason)
	if err != nil || !out.Recorded {
		return out, err
	}

	notice := Message{
		Type:     KindWarning,
		Identity: identity,
		Reason:   string(reason),
		Warnings: out.Session.WarningCount,
	}
	h.sendTo(identity, notice)
	h.broadcaster.Broadcast(notice)
	h.logActivity(identity, proctor.ActivityWarning,
		fmt.Sprintf("warning %d/%d: %s", out.Session.WarningCount, h.deps.Monitor.Threshold(), reason))

	if out.Terminated {
		h.terminate(out.Session, reason)
	}
	return out, nil
}

func (h *Hub) warningLock(identity string) *sync.Mutex {
	f := fnv.New32a()
	_, _ = f.Write([]byte(identity))
	return &h.warningLocks[f.Sum32()%warningStripes]
}

func (h *Hub) terminate(sess proctor.AttemptSession, reason proctor.Reason) {
	notice := Message{
		Type:     KindTerminated,
		Identity: sess.CandidateID,
		Reason:   string(reason),
		Warnings: sess.WarningCount,
	}
	h.sendTo(sess.CandidateID, notice)
	h.broadcaster.Broadcast(notice)
	h.logActivity(sess.CandidateID, proctor.ActivityTerminated, "attempt terminated: "+string(reason))
	h.deps.Logger.Info("attempt terminated", map[string]interface{}{
		"candidate": sess.CandidateID,
		"quiz":      sess.QuizID,
		"warnings":  sess.WarningCount,
		"reason":    reason,
	})
}

// finalize records the forced result of the candidate's terminated attempt.
// On failure the attempt stays unsettled and is finalized by a later submission or disconnect.
func (h *Hub) finalize(identity string) {
	if h.deps.Finalizer == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), h.deps.StoreTimeout)
	defer cancel()

	res, err := h.deps.Finalizer.Finalize(ctx, identity)
	switch {
	case core.IsState(err): // already graded
	case err != nil:
		h.deps.Logger.Error("failed to finalize terminated attempt", err, map[string]interface{}{"candidate": identity})
	default:
		h.deps.Logger.Info("terminated attempt finalized", map[string]interface{}{
			"candidate": identity,
			"quiz":      res.QuizID,
			"result":    res.ID,
		})
	}
}

// handleAlerts broadcasts detector alerts and counts them as one warning.
func (h *Hub) handleAlerts(identity string, alerts []string) {
	h.broadcaster.Broadcast(Message{Type: KindAlert, Identity: identity, Alerts: alerts})
	h.logActivity(identity, proctor.ActivityAlert, strings.Join(alerts, "; "))

	if _, err := h.RecordWarning(identity, proctor.ClassifyAlert(alerts[0])); err != nil {
		h.deps.Logger.Debug("alert without active session", err, map[string]interface{}{"identity": identity})
	}
}

func (h *Hub) sendTo(identity string, msg Message) {
	if conn, ok := h.registry.Lookup(identity); ok {
		conn.Send(msg)
	}
}

func (h *Hub) logActivity(identity string, kind proctor.ActivityKind, desc string) {
	if h.deps.Activities == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), h.deps.StoreTimeout)
	defer cancel()

	act := proctor.Activity{
		ID:          uuid.NewString(),
		Identity:    identity,
		Kind:        kind,
		Description: desc,
		CreatedAt:   time.Now().UTC(),
	}
	if _, err := h.deps.Activities.LogActivity(ctx, act); err != nil {
		h.deps.Logger.Error("failed to log activity", core.NewDependencyError("activity store", err, true), map[string]interface{}{
			"identity": identity,
			"kind":     kind,
		})
	}
}

func (h *Hub) sweepSessions(retention time.Duration) {
	defer h.wg.Done()
	ticker := time.NewTicker(retention)
	defer ticker.Stop()

	for {
		select {
		case <-h.done:
			return
		case now := <-ticker.C:
			if n := h.deps.Monitor.Sweep(now.Add(-retention)); n > 0 {
				h.deps.Logger.Debug("swept graded sessions", map[string]interface{}{"count": n})
			}
		}
	}
}

// Close stops frame analysis and session sweeping, and closes every connection.
func (h *Hub) Close() {
	h.closeOnce.Do(func() { close(h.done) })
	h.wg.Wait()
	h.gate.Close()
	for _, conn := range h.registry.All() {
		_ = conn.Close()
	}
}
