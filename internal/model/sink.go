package model

import (
	"context"
	"time"
)

// DetectionRecord is the durable form of a DetectionResult: the scored
// verdict plus the owning observation's 5-tuple and a truncated raw snapshot.
type DetectionRecord struct {
	Timestamp time.Time `json:"timestamp"`
	SrcIP     string    `json:"source_ip"`
	DstIP     string    `json:"dest_ip"`
	SrcPort   uint16    `json:"source_port"`
	DstPort   uint16    `json:"dest_port"`
	Protocol  string    `json:"protocol"`
	Score     float64   `json:"anomaly_score"`
	IsAnomaly bool      `json:"is_anomaly"`
	Severity  Severity  `json:"severity,omitempty"`
	RawPacket string    `json:"raw_packet,omitempty"`
}

// CountStats is the aggregate view of everything a sink has recorded.
type CountStats struct {
	Total     uint64  `json:"total"`
	Anomalies uint64  `json:"anomalies"`
	Rate      float64 `json:"detection_rate"`
}

// TimePoint is a single entry in the score timeseries, oldest first.
type TimePoint struct {
	Timestamp time.Time `json:"timestamp"`
	Score     float64   `json:"score"`
	IsAnomaly bool      `json:"is_anomaly"`
}

// SeverityCounts breaks recorded anomalies down by alert severity.
type SeverityCounts struct {
	High   uint64 `json:"high"`
	Medium uint64 `json:"medium"`
	Low    uint64 `json:"low"`
	Total  uint64 `json:"total"`
}

// Sink appends detection records to durable storage and serves the aggregate
// read path. Implementations must tolerate concurrent writers.
type Sink interface {
	Append(ctx context.Context, rec *DetectionRecord) error
	Recent(ctx context.Context, limit int) ([]DetectionRecord, error)
	Counts(ctx context.Context) (CountStats, error)
	Timeseries(ctx context.Context, limit int) ([]TimePoint, error)
	SeverityBreakdown(ctx context.Context) (SeverityCounts, error)
}
