package entity

import "time"

// EgoGraph is the bounded neighbourhood materialised around a centre
// entity by the Ego-Graph Builder. Entities are stored in an id-keyed map
// and transactions in a flat list with paired forward/reverse id-keyed
// adjacency maps, avoiding circular object ownership between entities and
// their transactions.
//
// Insertion order of Entities/Transactions and of the adjacency slices is
// load-bearing: it is what makes automaton walk enumeration deterministic.
type EgoGraph struct {
	CentreID       string
	Entities       map[string]*Entity
	EntityOrder    []string // insertion order, for deterministic iteration
	Transactions   []*Transaction
	Forward        map[string][]*Transaction // id -> outgoing transactions
	Reverse        map[string][]*Transaction // id -> incoming transactions
	MaxDepth       int
	TimeWindowDays int

	// AsOf is the reference instant the graph was built against, the same
	// timestamp the builder uses to compute its time-window cutoff.
	// Feature extraction measures recency relative to AsOf rather than to
	// wall-clock time, so a materialised graph always yields the same
	// feature vector regardless of when Extract is called.
	AsOf time.Time
}

// NewEgoGraph creates an empty graph centred on the given entity.
func NewEgoGraph(centre *Entity, maxDepth, timeWindowDays int) *EgoGraph {
	g := &EgoGraph{
		CentreID:       centre.ID,
		Entities:       make(map[string]*Entity),
		Forward:        make(map[string][]*Transaction),
		Reverse:        make(map[string][]*Transaction),
		MaxDepth:       maxDepth,
		TimeWindowDays: timeWindowDays,
	}
	g.AddEntity(centre)
	return g
}

// Centre returns the graph's centre entity.
func (g *EgoGraph) Centre() *Entity {
	return g.Entities[g.CentreID]
}

// AddEntity inserts an entity if not already present, preserving insertion
// order. Returns true if the entity was newly added.
func (g *EgoGraph) AddEntity(e *Entity) bool {
	if _, exists := g.Entities[e.ID]; exists {
		return false
	}
	g.Entities[e.ID] = e
	g.EntityOrder = append(g.EntityOrder, e.ID)
	return true
}

// AddTransaction appends a transaction to the flat list and both adjacency
// maps.
func (g *EgoGraph) AddTransaction(t *Transaction) {
	g.Transactions = append(g.Transactions, t)
	g.Forward[t.From] = append(g.Forward[t.From], t)
	g.Reverse[t.To] = append(g.Reverse[t.To], t)
}

// OutgoingVolume sums the amount of all transactions originating at id.
func (g *EgoGraph) OutgoingVolume(id string) float64 {
	var total float64
	for _, t := range g.Forward[id] {
		total += t.Amount
	}
	return total
}

// IncidentVolume sums the amount of all transactions touching id, either
// as source or destination.
func (g *EgoGraph) IncidentVolume(id string) float64 {
	var total float64
	for _, t := range g.Forward[id] {
		total += t.Amount
	}
	for _, t := range g.Reverse[id] {
		total += t.Amount
	}
	return total
}

// TotalVolume sums the amount of every transaction in the graph. Used as
// the denominator for a matched pattern's volume share: within a single
// ego graph every edge is reachable from the centre, so the graph's total
// volume is the centre's total accounted volume.
func (g *EgoGraph) TotalVolume() float64 {
	var total float64
	for _, t := range g.Transactions {
		total += t.Amount
	}
	return total
}

// IncidentEdges returns all transactions touching id, outgoing first, in
// insertion order.
func (g *EgoGraph) IncidentEdges(id string) []*Transaction {
	edges := make([]*Transaction, 0, len(g.Forward[id])+len(g.Reverse[id]))
	edges = append(edges, g.Forward[id]...)
	edges = append(edges, g.Reverse[id]...)
	return edges
}
