package relay

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/trezcool/proctor/core"
)

// Detector analyzes one encoded image frame and returns its alerts.
type Detector interface {
	Analyze(ctx context.Context, frame []byte) ([]string, error)
}

// AlertHandler is called with the non-empty alerts of a candidate's frame.
type AlertHandler func(identity string, alerts []string)

// AnalysisGate runs at most one detection per candidate at a time.
// Frames submitted while a detection is in flight replace each other; only the newest is analyzed next.
type AnalysisGate struct {
	detector Detector
	timeout  time.Duration
	onAlerts AlertHandler
	logger   core.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.Mutex
	slots  map[string]*slot
	closed bool
}

type slot struct {
	pending []byte
}

func NewAnalysisGate(detector Detector, timeout time.Duration, onAlerts AlertHandler, logger core.Logger) *AnalysisGate {
	ctx, cancel := context.WithCancel(context.Background())
	return &AnalysisGate{
		detector: detector,
		timeout:  timeout,
		onAlerts: onAlerts,
		logger:   logger,
		ctx:      ctx,
		cancel:   cancel,
		slots:    make(map[string]*slot),
	}
}

// Submit schedules frame for analysis and returns immediately.
func (g *AnalysisGate) Submit(identity string, frame []byte) {
	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return
	}
	if s, busy := g.slots[identity]; busy {
		s.pending = frame
		g.mu.Unlock()
		return
	}
	g.slots[identity] = &slot{}
	g.wg.Add(1)
	g.mu.Unlock()

	go g.run(identity, frame)
}

func (g *AnalysisGate) run(identity string, frame []byte) {
	defer g.wg.Done()
	for {
		g.analyze(identity, frame)

		g.mu.Lock()
		s := g.slots[identity]
		if s.pending == nil || g.closed {
			delete(g.slots, identity)
			g.mu.Unlock()
			return
		}
		frame, s.pending = s.pending, nil
		g.mu.Unlock()
	}
}

func (g *AnalysisGate) analyze(identity string, frame []byte) {
	ctx, cancel := context.WithTimeout(g.ctx, g.timeout)
	defer cancel()

	alerts, err := g.detector.Analyze(ctx, frame)
	if err != nil {
		g.logger.Warn("frame analysis failed", core.NewDependencyError("detector", err, false), map[string]interface{}{
			"identity": identity,
		})
		return
	}
	if len(alerts) > 0 && g.onAlerts != nil {
		g.onAlerts(identity, alerts)
	}
}

// InFlight reports whether a detection is running for identity.
func (g *AnalysisGate) InFlight(identity string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, busy := g.slots[identity]
	return busy
}

// Close cancels running detections and waits for them to return.
func (g *AnalysisGate) Close() {
	g.mu.Lock()
	g.closed = true
	g.mu.Unlock()

	g.cancel()
	g.wg.Wait()
}

// FrameRelay fans candidate frames out to observers and feeds them to the AnalysisGate.
type FrameRelay struct {
	registry *Registry
	gate     *AnalysisGate
}

func NewFrameRelay(registry *Registry, gate *AnalysisGate) *FrameRelay {
	return &FrameRelay{registry: registry, gate: gate}
}

// Relay delivers the frame to every observer and returns the number of observers it was queued for.
// Observer delivery never waits on analysis.
func (fr *FrameRelay) Relay(identity string, payload json.RawMessage) int {
	msg := Message{Type: KindFrame, Identity: identity, Payload: payload}

	var n int
	for _, conn := range fr.registry.Observers() {
		if conn.Send(msg) {
			n++
		}
	}

	if frame, err := msg.Frame(); err == nil {
		fr.gate.Submit(identity, frame)
	}
	return n
}
