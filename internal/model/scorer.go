package model

// Scorer maps a raw observation to an anomaly verdict and a score in [0,1].
// Implementations must degrade gracefully when the observation cannot be
// mapped into the trained feature space; an error return is reserved for
// model-level failures.
type Scorer interface {
	Score(obs *Observation) (isAnomaly bool, score float64, err error)
}
