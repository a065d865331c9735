package scoring

import (
	"NetSentry/internal/model"
	"log"
)

// defaultFeatureDim matches the processed NSL-KDD feature count the original
// classifier was trained on; used only when no preprocessor can report one.
const defaultFeatureDim = 42

// Model is the trained classifier, consumed as a black box.
type Model interface {
	// PredictProba returns the anomaly probability for one feature vector.
	PredictProba(features []float64) (float64, error)
}

// Preprocessor maps an observation into the trained feature space.
type Preprocessor interface {
	Transform(obs *model.Observation) ([]float64, error)
	FeatureDim() int
}

// Adapter wraps the external model and preprocessor behind the Scorer
// contract. Observations that cannot be mapped into the feature space are
// scored against a zero-filled vector rather than failing the stream.
type Adapter struct {
	model     Model
	pre       Preprocessor
	threshold float64
}

// NewAdapter creates a scoring adapter. pre may be nil, in which case every
// observation is scored against a zero vector.
func NewAdapter(m Model, pre Preprocessor, threshold float64) *Adapter {
	return &Adapter{model: m, pre: pre, threshold: threshold}
}

// Threshold returns the anomaly decision threshold.
func (a *Adapter) Threshold() float64 { return a.threshold }

func (a *Adapter) featureDim() int {
	if a.pre != nil {
		if dim := a.pre.FeatureDim(); dim > 0 {
			return dim
		}
	}
	return defaultFeatureDim
}

// Score implements model.Scorer. The returned score is clamped to [0,1]; an
// error is returned only for model-level failures.
func (a *Adapter) Score(obs *model.Observation) (bool, float64, error) {
	var features []float64
	if a.pre != nil {
		f, err := a.pre.Transform(obs)
		if err != nil {
			// Fall back to a zero vector matching the trained dimension.
			log.Printf("DEBUG: observation outside feature space, using zero vector: %v", err)
			features = make([]float64, a.featureDim())
		} else {
			features = f
		}
	} else {
		features = make([]float64, a.featureDim())
	}

	score, err := a.model.PredictProba(features)
	if err != nil {
		return false, 0, err
	}
	if score < 0 {
		score = 0
	} else if score > 1 {
		score = 1
	}
	return score > a.threshold, score, nil
}
