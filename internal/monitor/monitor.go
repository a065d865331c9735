package monitor

import (
	"NetSentry/internal/alert"
	"NetSentry/internal/capture"
	"NetSentry/internal/detector"
	"NetSentry/internal/model"
	"context"
	"log"
	"sync"
	"time"
)

// Options wires the shared collaborators into the per-interface pipelines.
type Options struct {
	Scorer     model.Scorer
	Alerts     *alert.Manager
	Sink       model.Sink
	BufferSize int

	Probe         capture.HealthProbe
	Factory       capture.SourceFactory
	ProbeInterval time.Duration
	WaitTimeout   time.Duration

	// NewGenerator builds a per-interface synthetic generator, or returns nil
	// when synthetic injection is disabled. Each worker gets its own since
	// the generator's random source is not safe for concurrent use.
	NewGenerator func() *capture.Generator
}

// AggregateStats merges counters across all interface workers, computed from
// immutable per-detector snapshots.
type AggregateStats struct {
	TotalPackets uint64                          `json:"total_packets"`
	Anomalies    uint64                          `json:"anomalies_detected"`
	Alerts       uint64                          `json:"alerts_generated"`
	StartTime    time.Time                       `json:"start_time"`
	Interfaces   map[string]model.InterfaceState `json:"interfaces"`
}

// AnomalyRate returns the overall anomaly percentage across all interfaces.
func (s AggregateStats) AnomalyRate() float64 {
	if s.TotalPackets == 0 {
		return 0
	}
	return float64(s.Anomalies) / float64(s.TotalPackets) * 100
}

// Monitor runs one detector/capture-session pair per requested interface on
// independent workers and aggregates their statistics. It owns all
// InterfaceState entries.
type Monitor struct {
	opts Options

	mu        sync.Mutex
	states    map[string]*model.InterfaceState
	detectors map[string]*detector.Detector
	startTime time.Time

	cancel   context.CancelFunc
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// New creates a multi-interface monitor.
func New(opts Options) *Monitor {
	return &Monitor{
		opts:      opts,
		states:    make(map[string]*model.InterfaceState),
		detectors: make(map[string]*detector.Detector),
	}
}

// StartAll launches one worker per interface and blocks until every worker
// terminates or the context is cancelled. A failure on one interface is
// isolated: it is marked in that interface's state and the others keep
// running.
func (m *Monitor) StartAll(ctx context.Context, interfaces []string, bounds capture.Bounds) {
	ctx, cancel := context.WithCancel(ctx)

	m.mu.Lock()
	m.cancel = cancel
	m.startTime = time.Now()
	for _, iface := range interfaces {
		m.states[iface] = &model.InterfaceState{Name: iface, Status: IfaceStatus(capture.StateDown)}
		m.detectors[iface] = detector.New(iface, m.opts.Scorer, m.opts.Alerts, m.opts.Sink, m.opts.BufferSize)
	}
	m.mu.Unlock()

	log.Printf("Starting multi-interface monitoring on: %v", interfaces)
	for _, iface := range interfaces {
		m.wg.Add(1)
		go m.runInterface(ctx, iface, bounds)
	}
	m.wg.Wait()
	cancel()
}

func (m *Monitor) runInterface(ctx context.Context, iface string, bounds capture.Bounds) {
	defer m.wg.Done()

	m.mu.Lock()
	det := m.detectors[iface]
	m.mu.Unlock()

	var gen *capture.Generator
	if m.opts.NewGenerator != nil {
		gen = m.opts.NewGenerator()
	}
	session := capture.NewSession(iface, capture.Options{
		Probe:         m.opts.Probe,
		Factory:       m.opts.Factory,
		ProbeInterval: m.opts.ProbeInterval,
		WaitTimeout:   m.opts.WaitTimeout,
		Bounds:        bounds,
		Synthetic:     gen,
		OnState: func(st capture.State) {
			m.setStatus(iface, IfaceStatus(st))
		},
	})

	stream := make(chan capture.Packet, 100)
	var sessionErr error
	sessionDone := make(chan struct{})
	go func() {
		defer close(stream)
		defer close(sessionDone)
		sessionErr = session.Run(ctx, stream)
	}()

	det.Run(ctx, stream)
	<-sessionDone
	det.Stop()

	stats := det.Stats()
	m.mu.Lock()
	state := m.states[iface]
	state.Packets = stats.TotalPackets
	state.Anomalies = stats.Anomalies
	if sessionErr != nil {
		state.Status = model.IfaceError
	}
	m.mu.Unlock()

	if sessionErr != nil {
		log.Printf("Monitoring on %s failed: %v", iface, sessionErr)
	}
}

func (m *Monitor) setStatus(iface string, status model.InterfaceStatus) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if state, ok := m.states[iface]; ok {
		state.Status = status
	}
}

// Stop signals all workers to terminate. It is idempotent and safe to call
// after natural completion; StartAll returns once the workers have flushed
// their final statistics.
func (m *Monitor) Stop() {
	m.stopOnce.Do(func() {
		log.Println("Stopping multi-interface monitoring...")
		m.mu.Lock()
		cancel := m.cancel
		m.mu.Unlock()
		if cancel != nil {
			cancel()
		}
	})
}

// InterfaceStatistics returns the state of one monitored interface.
func (m *Monitor) InterfaceStatistics(iface string) (model.InterfaceState, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	state, ok := m.states[iface]
	if !ok {
		return model.InterfaceState{}, false
	}
	snapshot := *state
	if det, ok := m.detectors[iface]; ok {
		stats := det.Stats()
		snapshot.Packets = stats.TotalPackets
		snapshot.Anomalies = stats.Anomalies
	}
	return snapshot, true
}

// Detector returns the detector for one interface, for live read paths.
func (m *Monitor) Detector(iface string) (*detector.Detector, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	det, ok := m.detectors[iface]
	return det, ok
}

// AggregateStatistics sums the per-detector snapshots and attaches the
// per-interface breakdown.
func (m *Monitor) AggregateStatistics() AggregateStats {
	m.mu.Lock()
	defer m.mu.Unlock()

	agg := AggregateStats{
		StartTime:  m.startTime,
		Interfaces: make(map[string]model.InterfaceState, len(m.states)),
	}
	for iface, state := range m.states {
		snapshot := *state
		if det, ok := m.detectors[iface]; ok {
			stats := det.Stats()
			snapshot.Packets = stats.TotalPackets
			snapshot.Anomalies = stats.Anomalies
			agg.TotalPackets += stats.TotalPackets
			agg.Anomalies += stats.Anomalies
			agg.Alerts += stats.Alerts
		}
		agg.Interfaces[iface] = snapshot
	}
	return agg
}

// IfaceStatus maps a capture session state onto the orchestrator's
// interface status.
func IfaceStatus(st capture.State) model.InterfaceStatus {
	switch st {
	case capture.StateDown:
		return model.IfaceDown
	case capture.StateWaiting:
		return model.IfaceWaiting
	case capture.StateStarting:
		return model.IfaceStarting
	case capture.StateActive:
		return model.IfaceActive
	case capture.StateStuck:
		return model.IfaceStuck
	case capture.StateError:
		return model.IfaceError
	default:
		return model.IfaceStopped
	}
}
