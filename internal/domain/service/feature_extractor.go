package service

import (
	"math"
	"sort"
	"sync"
	"time"

	"aml-risk-engine/internal/domain/entity"
)

// FeatureExtractor projects an ego graph into a fixed-length,
// positionally-stable numeric vector. Feature ordering and names are a
// stable external contract: new features must be appended, not inserted.
type FeatureExtractor struct{}

func NewFeatureExtractor() *FeatureExtractor {
	return &FeatureExtractor{}
}

type featureGroup struct {
	values []float64
	names  []string
}

// Extract runs the five feature groups concurrently (pure functions of the
// input graph) and concatenates them in the fixed group order.
func (f *FeatureExtractor) Extract(g *entity.EgoGraph) ([]float64, []string) {
	c := g.Centre()
	groups := make([]featureGroup, 5)

	var wg sync.WaitGroup
	compute := []func() featureGroup{
		func() featureGroup { return f.topology(g, c) },
		func() featureGroup { return f.behavioural(g, c) },
		func() featureGroup { return f.temporal(g, c) },
		func() featureGroup { return f.categorical(c) },
		func() featureGroup { return f.crossChain(g, c) },
	}
	for i, fn := range compute {
		wg.Add(1)
		go func(i int, fn func() featureGroup) {
			defer wg.Done()
			groups[i] = fn()
		}(i, fn)
	}
	wg.Wait()

	var values []float64
	var names []string
	for _, grp := range groups {
		values = append(values, grp.values...)
		names = append(names, grp.names...)
	}
	return values, names
}

func (f *FeatureExtractor) topology(g *entity.EgoGraph, c *entity.Entity) featureGroup {
	inOutRatio := 0.0
	if c.InDegree+c.OutDegree > 0 {
		inOutRatio = float64(c.InDegree) / float64(c.InDegree+c.OutDegree)
	}

	var mixers, highRiskCEX, sanctioned int
	for _, id := range g.EntityOrder {
		e := g.Entities[id]
		switch e.Category {
		case entity.EntityCategoryMixer:
			mixers++
		case entity.EntityCategoryHighRiskCEX:
			highRiskCEX++
		case entity.EntityCategorySanctioned:
			sanctioned++
		}
	}

	return featureGroup{
		values: []float64{
			float64(c.InDegree),
			float64(c.OutDegree),
			inOutRatio,
			c.PageRank,
			c.ClusteringCoefficient,
			float64(len(g.Entities)),
			float64(len(g.Transactions)),
			float64(mixers),
			float64(highRiskCEX),
			float64(sanctioned),
		},
		names: []string{
			"topology_in_degree", "topology_out_degree", "topology_in_out_ratio",
			"topology_page_rank", "topology_clustering_coefficient",
			"topology_entity_count", "topology_transaction_count",
			"topology_mixer_count", "topology_high_risk_cex_count", "topology_sanctioned_count",
		},
	}
}

func (f *FeatureExtractor) behavioural(g *entity.EgoGraph, c *entity.Entity) featureGroup {
	edges := g.IncidentEdges(c.ID)
	var totalVolume float64
	amounts := make([]float64, 0, len(edges))
	for _, e := range edges {
		totalVolume += e.Amount
		amounts = append(amounts, e.Amount)
	}

	meanAmount := 0.0
	if len(amounts) > 0 {
		meanAmount = totalVolume / float64(len(amounts))
	}

	fanRatio := 0.0
	if c.OutDegree != 0 {
		fanRatio = float64(c.InDegree) / float64(c.OutDegree)
	}

	return featureGroup{
		values: []float64{
			totalVolume,
			math.Log1p(totalVolume),
			float64(len(edges)),
			math.Log1p(float64(len(edges))),
			meanAmount,
			giniCoefficient(amounts),
			fanRatio,
		},
		names: []string{
			"behavioural_total_volume", "behavioural_log_volume",
			"behavioural_edge_count", "behavioural_log_edge_count",
			"behavioural_mean_amount", "behavioural_gini",
			"behavioural_fan_in_out_ratio",
		},
	}
}

func giniCoefficient(values []float64) float64 {
	n := len(values)
	if n == 0 {
		return 0
	}
	sorted := append([]float64{}, values...)
	sort.Float64s(sorted)

	var sum, weighted float64
	for i, v := range sorted {
		sum += v
		weighted += float64(i+1) * v
	}
	if sum == 0 {
		return 0
	}
	return (2*weighted)/(float64(n)*sum) - float64(n+1)/float64(n)
}

func (f *FeatureExtractor) temporal(g *entity.EgoGraph, c *entity.Entity) featureGroup {
	edges := g.IncidentEdges(c.ID)
	if len(edges) == 0 {
		return featureGroup{
			values: make([]float64, 6),
			names: []string{
				"temporal_velocity", "temporal_acceleration",
				"temporal_hours_since_first", "temporal_hours_since_last",
				"temporal_distinct_hours_of_day", "temporal_weekend_ratio",
			},
		}
	}

	sorted := append([]*entity.Transaction{}, edges...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Timestamp.Before(sorted[j].Timestamp) })

	first, last := sorted[0].Timestamp, sorted[len(sorted)-1].Timestamp
	windowDays := float64(g.TimeWindowDays)
	if windowDays <= 0 {
		windowDays = 1
	}
	velocity := float64(len(sorted)) / windowDays

	mid := len(sorted) / 2
	firstHalf, secondHalf := sorted[:mid], sorted[mid:]
	halfWindow := windowDays / 2
	if halfWindow <= 0 {
		halfWindow = 1
	}
	velocityFirst := float64(len(firstHalf)) / halfWindow
	velocitySecond := float64(len(secondHalf)) / halfWindow
	acceleration := velocitySecond - velocityFirst

	asOf := g.AsOf
	hoursSinceFirst := asOf.Sub(first).Hours()
	hoursSinceLast := asOf.Sub(last).Hours()

	hoursOfDay := map[int]bool{}
	var weekendCount int
	for _, e := range sorted {
		hoursOfDay[e.Timestamp.Hour()] = true
		if wd := e.Timestamp.Weekday(); wd == time.Saturday || wd == time.Sunday {
			weekendCount++
		}
	}
	weekendRatio := float64(weekendCount) / float64(len(sorted))

	return featureGroup{
		values: []float64{
			velocity, acceleration, hoursSinceFirst, hoursSinceLast,
			float64(len(hoursOfDay)), weekendRatio,
		},
		names: []string{
			"temporal_velocity", "temporal_acceleration",
			"temporal_hours_since_first", "temporal_hours_since_last",
			"temporal_distinct_hours_of_day", "temporal_weekend_ratio",
		},
	}
}

func (f *FeatureExtractor) categorical(c *entity.Entity) featureGroup {
	values := make([]float64, 0, len(entity.AllEntityTypes)+len(entity.AllEntityCategories)+4)
	names := make([]string, 0, cap(values))

	for _, t := range entity.AllEntityTypes {
		v := 0.0
		if c.Type == t {
			v = 1.0
		}
		values = append(values, v)
		names = append(names, "type_"+string(t))
	}
	for _, cat := range entity.AllEntityCategories {
		v := 0.0
		if c.Category == cat {
			v = 1.0
		}
		values = append(values, v)
		names = append(names, "category_"+string(cat))
	}
	for _, tag := range []string{entity.TagMixer, entity.TagSanctioned, entity.TagScam, entity.TagDarknet} {
		v := 0.0
		if c.HasTag(tag) {
			v = 1.0
		}
		values = append(values, v)
		names = append(names, "tag_"+tag)
	}

	return featureGroup{values: values, names: names}
}

func (f *FeatureExtractor) crossChain(g *entity.EgoGraph, c *entity.Entity) featureGroup {
	chains := map[string]bool{c.Chain: true}
	for _, id := range g.EntityOrder {
		chains[g.Entities[id].Chain] = true
	}
	chainCount := len(chains)
	if chainCount == 0 {
		chainCount = 1
	}

	var crossBridgeCount int
	var crossBridgeVolume, outgoingVolume float64
	for _, t := range g.Forward[c.ID] {
		outgoingVolume += t.Amount
		if t.IsCrossBridge {
			crossBridgeCount++
			crossBridgeVolume += t.Amount
		}
	}

	ratio := 0.0
	if outgoingVolume > 0 {
		ratio = crossBridgeVolume / outgoingVolume
	}

	return featureGroup{
		values: []float64{float64(chainCount), float64(crossBridgeCount), ratio},
		names:  []string{"cross_chain_count", "cross_chain_bridge_edge_count", "cross_chain_bridge_volume_ratio"},
	}
}
