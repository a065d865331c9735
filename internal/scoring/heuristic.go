package scoring

import (
	"NetSentry/internal/model"
	"fmt"
)

// Feature vector layout produced by the baseline preprocessor.
const (
	featDstPort = iota
	featSrcPort
	featLength
	featTCP
	featUDP
	featICMP
	featScannedPort
	featEphemeralSrc
	baselineFeatureDim
)

// scannedPorts are the well-known service ports most often probed by
// scanners.
var scannedPorts = map[uint16]bool{
	21: true, 22: true, 23: true, 25: true, 53: true, 80: true,
	110: true, 111: true, 135: true, 139: true, 143: true, 443: true,
	445: true, 993: true, 995: true, 1433: true, 1521: true, 3306: true,
	3389: true, 5432: true, 5900: true, 6379: true, 8080: true,
	8443: true, 27017: true,
}

// BaselinePreprocessor maps an observation onto a small hand-built feature
// vector. It stands in for the trained scaling pipeline when no external
// model artifacts are available.
type BaselinePreprocessor struct{}

// FeatureDim implements Preprocessor.
func (BaselinePreprocessor) FeatureDim() int { return baselineFeatureDim }

// Transform implements Preprocessor. Observations without both endpoints
// cannot be mapped and yield an error, which the adapter degrades to a zero
// vector.
func (BaselinePreprocessor) Transform(obs *model.Observation) ([]float64, error) {
	if obs.SrcIP == "" || obs.DstIP == "" {
		return nil, fmt.Errorf("observation missing endpoint fields")
	}

	f := make([]float64, baselineFeatureDim)
	f[featDstPort] = float64(obs.DstPort) / 65535
	f[featSrcPort] = float64(obs.SrcPort) / 65535
	length := float64(obs.Length) / 1500
	if length > 1 {
		length = 1
	}
	f[featLength] = length

	switch obs.Protocol {
	case "TCP":
		f[featTCP] = 1
	case "UDP":
		f[featUDP] = 1
	case "ICMP":
		f[featICMP] = 1
	}

	if scannedPorts[obs.DstPort] {
		f[featScannedPort] = 1
	}
	if obs.SrcPort >= 40000 {
		f[featEphemeralSrc] = 1
	}
	return f, nil
}

// BaselineModel is a fixed-weight scorer over the baseline feature vector.
// It flags scan-shaped traffic: an ephemeral source port probing a well-known
// service port with small payloads.
type BaselineModel struct{}

// PredictProba implements Model.
func (BaselineModel) PredictProba(features []float64) (float64, error) {
	if len(features) != baselineFeatureDim {
		return 0, fmt.Errorf("expected %d features, got %d", baselineFeatureDim, len(features))
	}

	score := 0.08
	score += 0.04 * features[featTCP]
	score += 0.55 * features[featScannedPort] * features[featEphemeralSrc]
	score += 0.18 * features[featScannedPort] * (1 - features[featLength])
	score += 0.10 * features[featICMP]
	if score > 1 {
		score = 1
	}
	return score, nil
}
