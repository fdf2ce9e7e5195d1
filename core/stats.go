package core

// CycleStats aggregates what one scheduler cycle did. Per-strategy
// results are folded into cycle totals batch by batch.
type CycleStats struct {
	StrategiesChecked int `json:"strategies_checked"`
	SignalsDetected   int `json:"signals_detected"`
	PositionsOpened   int `json:"positions_opened"`
	PositionsClosed   int `json:"positions_closed"`
}

// Add folds another result into the totals
func (s *CycleStats) Add(other CycleStats) {
	s.StrategiesChecked += other.StrategiesChecked
	s.SignalsDetected += other.SignalsDetected
	s.PositionsOpened += other.PositionsOpened
	s.PositionsClosed += other.PositionsClosed
}

// IsZero reports whether the cycle did nothing at all
func (s CycleStats) IsZero() bool {
	return s == CycleStats{}
}
