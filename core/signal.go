package core

// TriggeredIndicator is one indicator that fired during signal
// evaluation, together with the value that fired it
type TriggeredIndicator struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

// SignalResult is the outcome of evaluating entry indicators against
// one asset's candles. It is ephemeral and never persisted; the raw
// indicator values are carried for observability only.
type SignalResult struct {
	ShouldEnter         bool
	TriggeredIndicators []TriggeredIndicator
	TriggeredCount      int
	TotalEnabled        int
	IndicatorValues     map[string]float64
}

// Strength returns the triggered share of the enabled indicator set,
// used for deterministic prioritization of entry candidates
func (r SignalResult) Strength() float64 {
	if r.TotalEnabled == 0 {
		return 0
	}
	return float64(r.TriggeredCount) / float64(r.TotalEnabled)
}

// TriggeredNames returns the names of the indicators that fired
func (r SignalResult) TriggeredNames() []string {
	names := make([]string, 0, len(r.TriggeredIndicators))
	for _, indicator := range r.TriggeredIndicators {
		names = append(names, indicator.Name)
	}
	return names
}
