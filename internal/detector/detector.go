package detector

import (
	"NetSentry/internal/alert"
	"NetSentry/internal/capture"
	"NetSentry/internal/model"
	"context"
	"log"
	"sync"
	"time"
)

// Detector drives one interface's capture stream: it scores every
// observation, keeps a bounded window of recent results, persists each
// result, and routes anomalies into the alert pipeline.
type Detector struct {
	iface  string
	scorer model.Scorer
	alerts *alert.Manager
	sink   model.Sink

	mu      sync.Mutex
	window  *window
	stats   model.DetectorStats
	cancel  context.CancelFunc
	stopped sync.Once
}

// New creates a detector for one interface. sink may be nil when persistence
// is disabled.
func New(iface string, scorer model.Scorer, alerts *alert.Manager, sink model.Sink, bufferSize int) *Detector {
	return &Detector{
		iface:  iface,
		scorer: scorer,
		alerts: alerts,
		sink:   sink,
		window: newWindow(bufferSize),
	}
}

// ProcessObservation scores a single observation and routes the result. It
// never fails: a scoring error yields a non-anomalous result carrying the
// error, so one malformed observation cannot abort the stream.
func (d *Detector) ProcessObservation(ctx context.Context, obs *model.Observation) *model.DetectionResult {
	isAnomaly, score, err := d.scorer.Score(obs)
	result := &model.DetectionResult{
		Timestamp:   time.Now(),
		IsAnomaly:   isAnomaly && err == nil,
		Score:       score,
		Observation: *obs,
		Err:         err,
	}
	if err != nil {
		log.Printf("Error scoring observation on %s: %v", d.iface, err)
		result.IsAnomaly = false
		result.Score = 0
	}

	d.record(ctx, result)
	return result
}

// processInjected handles a synthetic packet that was forced into the
// anomalous branch with a pre-sampled score, bypassing the model.
func (d *Detector) processInjected(ctx context.Context, pkt capture.Packet) *model.DetectionResult {
	result := &model.DetectionResult{
		Timestamp:   time.Now(),
		IsAnomaly:   true,
		Score:       pkt.Score,
		Observation: *pkt.Obs,
	}
	d.record(ctx, result)
	return result
}

// record updates counters, buffers the result, persists it, and fires an
// alert for anomalies.
func (d *Detector) record(ctx context.Context, result *model.DetectionResult) {
	var firedAlert *model.Alert
	if result.IsAnomaly && d.alerts != nil {
		firedAlert = d.alerts.CreateAlert(ctx, &result.Observation, result.Score)
	}

	d.mu.Lock()
	d.stats.TotalPackets++
	d.stats.LastActivity = result.Timestamp
	if result.IsAnomaly {
		d.stats.Anomalies++
	}
	if firedAlert != nil {
		d.stats.Alerts++
	}
	d.window.append(result)
	d.mu.Unlock()

	d.persist(ctx, result, firedAlert)
}

// persist appends the result to the sink. Persistence failures are logged
// and never fatal to the capture loop.
func (d *Detector) persist(ctx context.Context, result *model.DetectionResult, firedAlert *model.Alert) {
	if d.sink == nil {
		return
	}
	rec := &model.DetectionRecord{
		Timestamp: result.Timestamp,
		SrcIP:     result.Observation.SrcIP,
		DstIP:     result.Observation.DstIP,
		SrcPort:   result.Observation.SrcPort,
		DstPort:   result.Observation.DstPort,
		Protocol:  result.Observation.Protocol,
		Score:     result.Score,
		IsAnomaly: result.IsAnomaly,
		RawPacket: result.Observation.Snapshot(),
	}
	if result.IsAnomaly {
		if firedAlert != nil {
			rec.Severity = firedAlert.Severity
		} else {
			rec.Severity = alert.SeverityFor(result.Score, 0)
		}
	}
	if err := d.sink.Append(ctx, rec); err != nil {
		log.Printf("Failed to persist detection on %s: %v", d.iface, err)
	}
}

// Run consumes the capture stream until it is closed or the context is
// cancelled. Results are produced and persisted in packet arrival order.
func (d *Detector) Run(ctx context.Context, stream <-chan capture.Packet) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	d.mu.Lock()
	d.stats.StartTime = time.Now()
	d.cancel = cancel
	d.mu.Unlock()

	for {
		select {
		case <-ctx.Done():
			return
		case pkt, ok := <-stream:
			if !ok {
				return
			}
			if pkt.Injected {
				d.processInjected(ctx, pkt)
			} else {
				d.ProcessObservation(ctx, pkt.Obs)
			}
		}
	}
}

// Stop terminates the running capture loop and logs final statistics. It is
// idempotent and safe to call after natural completion.
func (d *Detector) Stop() {
	d.stopped.Do(func() {
		d.mu.Lock()
		cancel := d.cancel
		d.mu.Unlock()
		if cancel != nil {
			cancel()
		}
		s := d.Stats()
		log.Printf("Detector %s stopped: packets=%d anomalies=%d alerts=%d rate=%.1f%%",
			d.iface, s.TotalPackets, s.Anomalies, s.Alerts, s.AnomalyRate())
	})
}

// Interface returns the monitored interface name.
func (d *Detector) Interface() string { return d.iface }

// Stats returns an immutable snapshot of the detector's counters.
func (d *Detector) Stats() model.DetectorStats {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.stats
}

// RecentDetections returns up to n recent results, oldest first.
func (d *Detector) RecentDetections(n int) []*model.DetectionResult {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.window.last(n)
}

// Summary aggregates the anomalies currently in the recent-results window.
type Summary struct {
	TotalAnomalies int                      `json:"total_anomalies"`
	AvgScore       float64                  `json:"avg_score"`
	MaxScore       float64                  `json:"max_score"`
	MinScore       float64                  `json:"min_score"`
	Recent         []*model.DetectionResult `json:"recent_anomalies,omitempty"`
}

// AnomalySummary summarizes the anomalies in the recent-results window.
func (d *Detector) AnomalySummary() Summary {
	d.mu.Lock()
	defer d.mu.Unlock()

	var anomalies []*model.DetectionResult
	for _, r := range d.window.items() {
		if r.IsAnomaly {
			anomalies = append(anomalies, r)
		}
	}
	if len(anomalies) == 0 {
		return Summary{}
	}

	s := Summary{
		TotalAnomalies: len(anomalies),
		MinScore:       anomalies[0].Score,
	}
	var sum float64
	for _, a := range anomalies {
		sum += a.Score
		if a.Score > s.MaxScore {
			s.MaxScore = a.Score
		}
		if a.Score < s.MinScore {
			s.MinScore = a.Score
		}
	}
	s.AvgScore = sum / float64(len(anomalies))
	if n := len(anomalies); n > 5 {
		s.Recent = anomalies[n-5:]
	} else {
		s.Recent = anomalies
	}
	return s
}
