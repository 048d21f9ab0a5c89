package entity

import "time"

// Direction is a Transaction's orientation relative to the perspective
// entity that produced it during ego-graph expansion.
type Direction string

const (
	DirectionOutgoing Direction = "OUTGOING"
	DirectionIncoming Direction = "INCOMING"
	DirectionInternal Direction = "INTERNAL"
)

// Transaction is a graph edge: identified by hash plus direction, since the
// same hash can appear twice in a multigraph walk (once from each
// endpoint's perspective).
type Transaction struct {
	Hash      string
	From      string // source entity id
	To        string // destination entity id
	Amount    float64
	Asset     string
	Timestamp time.Time
	Direction Direction

	IsCrossBridge bool
	IsMixerHop    bool
}

// DeriveFlags sets IsCrossBridge and IsMixerHop from the category of the
// transaction's two endpoints.
func (t *Transaction) DeriveFlags(from, to *Entity) {
	t.IsMixerHop = from.Category == EntityCategoryMixer || to.Category == EntityCategoryMixer
	t.IsCrossBridge = from.Category == EntityCategoryBridge || to.Category == EntityCategoryBridge
}
