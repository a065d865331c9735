package model

import (
	"fmt"
	"time"
)

// Observation holds the metadata extracted from a single captured packet.
// Observations are ephemeral: they are produced per packet, scored, and never
// stored raw beyond a truncated textual snapshot.
type Observation struct {
	Timestamp time.Time
	SrcIP     string
	DstIP     string
	SrcPort   uint16
	DstPort   uint16
	Protocol  string
	Length    int
}

// maxSnapshotLen bounds the textual form of an observation before it is
// persisted or attached to an alert.
const maxSnapshotLen = 1000

// Snapshot renders the observation as a bounded, human-readable line.
func (o *Observation) Snapshot() string {
	s := fmt.Sprintf("%s %s:%d -> %s:%d proto=%s len=%d",
		o.Timestamp.Format("2006-01-02 15:04:05.000"),
		o.SrcIP, o.SrcPort, o.DstIP, o.DstPort, o.Protocol, o.Length)
	if len(s) > maxSnapshotLen {
		s = s[:maxSnapshotLen]
	}
	return s
}

// DetectionResult is the scored outcome for one Observation. It is immutable
// after creation.
type DetectionResult struct {
	Timestamp   time.Time
	IsAnomaly   bool
	Score       float64
	Observation Observation
	// Err carries a scoring failure. A failed observation is reported as
	// non-anomalous rather than aborting the stream.
	Err error
}

// Severity classifies an alert.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// AlertStatus tracks the operator-visible lifecycle of an alert.
type AlertStatus string

const (
	StatusActive       AlertStatus = "active"
	StatusAcknowledged AlertStatus = "acknowledged"
	StatusResolved     AlertStatus = "resolved"
)

// Alert is an actionable, severity-tagged notification derived from an
// anomalous DetectionResult.
type Alert struct {
	ID             string      `json:"id"`
	Timestamp      time.Time   `json:"timestamp"`
	Severity       Severity    `json:"severity"`
	AnomalyScore   float64     `json:"anomaly_score"`
	ThreatScore    float64     `json:"threat_score"`
	Description    string      `json:"description"`
	Observation    Observation `json:"observation"`
	Status         AlertStatus `json:"status"`
	AcknowledgedAt time.Time   `json:"acknowledged_at,omitempty"`
	ResolvedAt     time.Time   `json:"resolved_at,omitempty"`
	ResolutionNote string      `json:"resolution_note,omitempty"`
}

// InterfaceStatus describes the lifecycle of one monitored interface as seen
// by the orchestrator.
type InterfaceStatus string

const (
	IfaceDown     InterfaceStatus = "down"
	IfaceWaiting  InterfaceStatus = "waiting"
	IfaceStarting InterfaceStatus = "starting"
	IfaceActive   InterfaceStatus = "active"
	IfaceStuck    InterfaceStatus = "stuck"
	IfaceError    InterfaceStatus = "error"
	IfaceStopped  InterfaceStatus = "stopped"
)

// InterfaceState is the orchestrator's view of one monitored interface.
type InterfaceState struct {
	Name      string          `json:"name"`
	Status    InterfaceStatus `json:"status"`
	Packets   uint64          `json:"packets"`
	Anomalies uint64          `json:"anomalies"`
}

// DetectorStats is an immutable snapshot of one detector's counters. Workers
// publish copies of this struct; live counters are never shared across
// goroutines.
type DetectorStats struct {
	TotalPackets uint64    `json:"total_packets"`
	Anomalies    uint64    `json:"anomalies_detected"`
	Alerts       uint64    `json:"alerts_generated"`
	StartTime    time.Time `json:"start_time"`
	LastActivity time.Time `json:"last_activity"`
}

// AnomalyRate returns the percentage of observations scored anomalous.
func (s DetectorStats) AnomalyRate() float64 {
	if s.TotalPackets == 0 {
		return 0
	}
	return float64(s.Anomalies) / float64(s.TotalPackets) * 100
}
