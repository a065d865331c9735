package scoring

import (
	"NetSentry/internal/model"
	"errors"
	"testing"
	"time"
)

func scanObservation() *model.Observation {
	return &model.Observation{
		Timestamp: time.Now(),
		SrcIP:     "192.168.0.66",
		DstIP:     "192.168.1.5",
		SrcPort:   51234,
		DstPort:   22,
		Protocol:  "TCP",
		Length:    60,
	}
}

func bulkObservation() *model.Observation {
	return &model.Observation{
		Timestamp: time.Now(),
		SrcIP:     "192.168.0.120",
		DstIP:     "192.168.1.5",
		SrcPort:   51234,
		DstPort:   8444,
		Protocol:  "TCP",
		Length:    1400,
	}
}

func TestBaselinePreprocessorTransform(t *testing.T) {
	f, err := BaselinePreprocessor{}.Transform(scanObservation())
	if err != nil {
		t.Fatalf("Transform failed: %v", err)
	}
	if len(f) != baselineFeatureDim {
		t.Fatalf("feature dim = %d, want %d", len(f), baselineFeatureDim)
	}
	if f[featTCP] != 1 || f[featUDP] != 0 || f[featICMP] != 0 {
		t.Errorf("protocol one-hot wrong: tcp=%v udp=%v icmp=%v", f[featTCP], f[featUDP], f[featICMP])
	}
	if f[featScannedPort] != 1 {
		t.Error("port 22 must be flagged as a scanned service port")
	}
	if f[featEphemeralSrc] != 1 {
		t.Error("source port 51234 must be flagged ephemeral")
	}
}

func TestBaselinePreprocessorRejectsMissingEndpoints(t *testing.T) {
	if _, err := (BaselinePreprocessor{}).Transform(&model.Observation{Protocol: "TCP"}); err == nil {
		t.Error("expected an error for an observation without endpoints")
	}
}

func TestBaselineModelScoresScanHigherThanBulk(t *testing.T) {
	pre := BaselinePreprocessor{}
	m := BaselineModel{}

	scan, _ := pre.Transform(scanObservation())
	bulk, _ := pre.Transform(bulkObservation())

	scanScore, err := m.PredictProba(scan)
	if err != nil {
		t.Fatalf("PredictProba(scan) failed: %v", err)
	}
	bulkScore, err := m.PredictProba(bulk)
	if err != nil {
		t.Fatalf("PredictProba(bulk) failed: %v", err)
	}
	if scanScore <= bulkScore {
		t.Errorf("scan score %v not above bulk traffic score %v", scanScore, bulkScore)
	}
}

func TestBaselineModelRejectsWrongDimension(t *testing.T) {
	if _, err := (BaselineModel{}).PredictProba(make([]float64, 3)); err == nil {
		t.Error("expected a dimension error")
	}
}

func TestAdapterScoreBounds(t *testing.T) {
	a := NewAdapter(BaselineModel{}, BaselinePreprocessor{}, 0.85)

	observations := []*model.Observation{scanObservation(), bulkObservation()}
	for _, obs := range observations {
		_, score, err := a.Score(obs)
		if err != nil {
			t.Fatalf("Score failed: %v", err)
		}
		if score < 0 || score > 1 {
			t.Errorf("score %v outside [0, 1]", score)
		}
	}
}

func TestAdapterDegradesToZeroVector(t *testing.T) {
	a := NewAdapter(BaselineModel{}, BaselinePreprocessor{}, 0.85)

	// Endpoints missing: Transform fails, the adapter must score a zero
	// vector rather than surface the error.
	isAnomaly, score, err := a.Score(&model.Observation{Protocol: "TCP"})
	if err != nil {
		t.Fatalf("degraded Score failed: %v", err)
	}
	if isAnomaly {
		t.Error("zero vector scored as anomalous")
	}
	if score < 0 || score > 1 {
		t.Errorf("degraded score %v outside [0, 1]", score)
	}
}

type failingModel struct{}

func (failingModel) PredictProba([]float64) (float64, error) {
	return 0, errors.New("model not loaded")
}

func TestAdapterSurfacesModelErrors(t *testing.T) {
	a := NewAdapter(failingModel{}, BaselinePreprocessor{}, 0.85)
	if _, _, err := a.Score(scanObservation()); err == nil {
		t.Error("expected a model error")
	}
}

type clampingModel struct{ out float64 }

func (m clampingModel) PredictProba([]float64) (float64, error) { return m.out, nil }

func TestAdapterClampsScore(t *testing.T) {
	cases := []struct {
		raw, want float64
		anomaly   bool
	}{
		{1.7, 1, true},
		{-0.3, 0, false},
		{0.86, 0.86, true},
		{0.85, 0.85, false}, // threshold is exclusive
	}
	for _, tc := range cases {
		a := NewAdapter(clampingModel{out: tc.raw}, nil, 0.85)
		isAnomaly, score, err := a.Score(scanObservation())
		if err != nil {
			t.Fatalf("Score failed: %v", err)
		}
		if score != tc.want {
			t.Errorf("raw %v: score = %v, want %v", tc.raw, score, tc.want)
		}
		if isAnomaly != tc.anomaly {
			t.Errorf("raw %v: isAnomaly = %v, want %v", tc.raw, isAnomaly, tc.anomaly)
		}
	}
}
