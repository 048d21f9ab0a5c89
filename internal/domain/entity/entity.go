package entity

// EntityType is the fine-grained classification of an address as produced
// by the Entity Classifier.
type EntityType string

const (
	EntityTypeExternallyOwned        EntityType = "EXTERNALLY_OWNED"
	EntityTypeContract                EntityType = "CONTRACT"
	EntityTypeCentralisedExchange      EntityType = "CENTRALISED_EXCHANGE"
	EntityTypeDecentralisedExchange    EntityType = "DECENTRALISED_EXCHANGE"
	EntityTypeMixer                   EntityType = "MIXER"
	EntityTypeBridge                  EntityType = "BRIDGE"
	EntityTypeScam                    EntityType = "SCAM"
	EntityTypeDarknet                 EntityType = "DARKNET"
	EntityTypeSanctioned              EntityType = "SANCTIONED"
	EntityTypeUnknown                 EntityType = "UNKNOWN"
)

// EntityCategory is the coarser classification consumed by pattern automata
// and the rule scorer.
type EntityCategory string

const (
	EntityCategoryClean               EntityCategory = "CLEAN"
	EntityCategoryMixer                EntityCategory = "MIXER"
	EntityCategoryBridge               EntityCategory = "BRIDGE"
	EntityCategoryHighRiskCEX          EntityCategory = "HIGH_RISK_CEX"
	EntityCategoryCompliantCEX         EntityCategory = "COMPLIANT_CEX"
	EntityCategoryDarknet              EntityCategory = "DARKNET"
	EntityCategoryScam                 EntityCategory = "SCAM"
	EntityCategorySanctioned           EntityCategory = "SANCTIONED"
	EntityCategoryStolen               EntityCategory = "STOLEN"
	EntityCategoryRansomware           EntityCategory = "RANSOMWARE"
	EntityCategoryTerroristFinancing   EntityCategory = "TERRORIST_FINANCING"
	EntityCategoryUnknown              EntityCategory = "UNKNOWN"
)

// Well-known tags. Additional free-form tags are permitted.
const (
	TagMixer      = "MIXER"
	TagSanctioned = "SANCTIONED"
	TagScam       = "SCAM"
	TagDarknet    = "DARKNET"
)

// AllEntityTypes and AllEntityCategories fix an enumeration order for the
// Feature Extractor's one-hot categorical group: the ordering is part of
// the feature vector's stable external contract.
var AllEntityTypes = []EntityType{
	EntityTypeExternallyOwned,
	EntityTypeContract,
	EntityTypeCentralisedExchange,
	EntityTypeDecentralisedExchange,
	EntityTypeMixer,
	EntityTypeBridge,
	EntityTypeScam,
	EntityTypeDarknet,
	EntityTypeSanctioned,
	EntityTypeUnknown,
}

var AllEntityCategories = []EntityCategory{
	EntityCategoryClean,
	EntityCategoryMixer,
	EntityCategoryBridge,
	EntityCategoryHighRiskCEX,
	EntityCategoryCompliantCEX,
	EntityCategoryDarknet,
	EntityCategoryScam,
	EntityCategorySanctioned,
	EntityCategoryStolen,
	EntityCategoryRansomware,
	EntityCategoryTerroristFinancing,
	EntityCategoryUnknown,
}

// categoryTag maps a category to the tag it must carry, per the Data Model
// invariant "category and tags are consistent (if category = mixer then
// MIXER in tags)". Categories with no mandatory tag are omitted.
var categoryTag = map[EntityCategory]string{
	EntityCategoryMixer:      TagMixer,
	EntityCategorySanctioned: TagSanctioned,
	EntityCategoryScam:       TagScam,
	EntityCategoryDarknet:    TagDarknet,
}

// Entity is a node in the ego graph: a chain-qualified address together
// with its classification and derived topology metrics.
type Entity struct {
	ID       string // chain-qualified, e.g. "ethereum:0xabc..."
	Address  string
	Chain    string
	Type     EntityType
	Category EntityCategory
	Tags     []string

	InDegree            int
	OutDegree           int
	PageRank            float64
	ClusteringCoefficient float64
}

// NewEntity constructs an Entity and enforces the category/tag consistency
// invariant by appending the category's mandatory tag if missing.
func NewEntity(id, address, chain string, typ EntityType, category EntityCategory, tags []string) *Entity {
	e := &Entity{
		ID:       id,
		Address:  address,
		Chain:    chain,
		Type:     typ,
		Category: category,
		Tags:     append([]string{}, tags...),
	}
	if required, ok := categoryTag[category]; ok && !e.HasTag(required) {
		e.Tags = append(e.Tags, required)
	}
	return e
}

// HasTag reports whether the entity carries the given tag.
func (e *Entity) HasTag(tag string) bool {
	for _, t := range e.Tags {
		if t == tag {
			return true
		}
	}
	return false
}
