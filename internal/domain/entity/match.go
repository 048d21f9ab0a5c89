package entity

// MatchResult is one automaton's outcome against an ego graph: at most one
// per automaton, carrying the best accepting walk if any was found.
type MatchResult struct {
	PatternID   string
	Matched     bool
	Weight      int
	Severity    Severity
	VolumeShare float64 // percentage of the ego graph's total volume (EgoGraph.TotalVolume), [0, 100]
	Path        []*Transaction
	Explanation string
}

// HopCount returns the number of edges in the matched walk.
func (m *MatchResult) HopCount() int {
	return len(m.Path)
}

// Volume returns the total amount carried by the matched walk.
func (m *MatchResult) Volume() float64 {
	var total float64
	for _, t := range m.Path {
		total += t.Amount
	}
	return total
}
