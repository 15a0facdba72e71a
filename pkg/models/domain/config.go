package domain

// AnalyzerConfig carries the comparator's tunables. It is passed in
// explicitly so tests can override the threshold.
type AnalyzerConfig struct {
	// AnomalyThreshold is the fraction of |target| a variance must exceed
	// to be flagged. When target is zero, any non-zero actual is anomalous.
	AnomalyThreshold float64
}

func DefaultAnalyzerConfig() AnalyzerConfig {
	return AnalyzerConfig{AnomalyThreshold: 0.20}
}
