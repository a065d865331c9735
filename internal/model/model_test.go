package model

import (
	"strings"
	"testing"
	"time"
)

func TestObservationSnapshot(t *testing.T) {
	obs := &Observation{
		Timestamp: time.Date(2026, 1, 2, 3, 4, 5, 600000000, time.UTC),
		SrcIP:     "192.168.0.66",
		DstIP:     "192.168.1.5",
		SrcPort:   51234,
		DstPort:   22,
		Protocol:  "TCP",
		Length:    60,
	}
	s := obs.Snapshot()
	for _, want := range []string{"192.168.0.66:51234", "192.168.1.5:22", "proto=TCP", "len=60"} {
		if !strings.Contains(s, want) {
			t.Errorf("snapshot missing %q: %s", want, s)
		}
	}
}

func TestObservationSnapshotBounded(t *testing.T) {
	obs := &Observation{
		SrcIP:    strings.Repeat("a", 600),
		DstIP:    strings.Repeat("b", 600),
		Protocol: "TCP",
	}
	if got := len(obs.Snapshot()); got > 1000 {
		t.Errorf("snapshot length = %d, want at most 1000", got)
	}
}

func TestDetectorStatsAnomalyRate(t *testing.T) {
	cases := []struct {
		packets, anomalies uint64
		want               float64
	}{
		{0, 0, 0},
		{100, 0, 0},
		{100, 5, 5},
		{10, 2, 20},
	}
	for _, tc := range cases {
		s := DetectorStats{TotalPackets: tc.packets, Anomalies: tc.anomalies}
		if got := s.AnomalyRate(); got != tc.want {
			t.Errorf("AnomalyRate(%d/%d) = %v, want %v", tc.anomalies, tc.packets, got, tc.want)
		}
	}
}
