package service

import (
	"time"

	"aml-risk-engine/internal/domain/entity"
	domainsvc "aml-risk-engine/internal/domain/service"
)

// GraphExposureExtractor derives a RuleExposure from a materialised ego
// graph. The Rule Scorer otherwise treats its input as a pre-computed
// external record; this extractor is the glue that makes the Rule Scorer
// reachable from a live ego graph inside a single end-to-end analysis,
// rather than only from hand-constructed exposure records.
type GraphExposureExtractor struct {
	now func() time.Time
}

func NewGraphExposureExtractor() *GraphExposureExtractor {
	return &GraphExposureExtractor{now: time.Now}
}

// Extract computes direct/indirect sanctions exposure and per-category
// volume shares from the one-hop and multi-hop neighbourhoods of the
// graph's centre, weighted by incident transaction volume.
func (x *GraphExposureExtractor) Extract(g *entity.EgoGraph) domainsvc.RuleExposure {
	centre := g.Centre()
	total := g.IncidentVolume(centre.ID)

	exposure := domainsvc.RuleExposure{
		CategoryVolumePct: make(map[domainsvc.IllicitCategory]float64),
		OutDegree:         centre.OutDegree,
	}
	if centre.InDegree+centre.OutDegree > 0 {
		exposure.InOutRatio = float64(centre.InDegree) / float64(centre.InDegree+centre.OutDegree)
	}
	if total <= 0 {
		return exposure
	}

	depth := bfsDepths(g)

	// Sanctioned exposure is banded by hop distance from the centre: a
	// directly sanctioned counterparty is hop 1, a sanctioned entity
	// reached through one intermediary is hop 2, and hops 3-5 count as the
	// 2-to-4-hop indirect band.
	var directSanctioned, indirect1Hop, indirect2to4Hop float64
	categoryVolume := make(map[entity.EntityCategory]float64)
	var lastIllicitTx *time.Time

	for _, tx := range g.Transactions {
		if !isIllicitCategory(g.Entities[tx.To].Category) && !isIllicitCategory(g.Entities[tx.From].Category) {
			continue
		}
		illicitEnd := tx.To
		if !isIllicitCategory(g.Entities[tx.To].Category) {
			illicitEnd = tx.From
		}
		cp := g.Entities[illicitEnd]
		categoryVolume[cp.Category] += tx.Amount
		if lastIllicitTx == nil || tx.Timestamp.After(*lastIllicitTx) {
			ts := tx.Timestamp
			lastIllicitTx = &ts
		}

		if cp.Category == entity.EntityCategorySanctioned {
			switch hop := depth[illicitEnd]; {
			case hop <= 1:
				directSanctioned += tx.Amount
			case hop == 2:
				indirect1Hop += tx.Amount
			case hop <= 5:
				indirect2to4Hop += tx.Amount
			}
		}
	}

	exposure.DirectSanctionedVolumePct = 100 * directSanctioned / total
	exposure.Indirect1HopVolumePct = 100 * indirect1Hop / total
	exposure.Indirect2To4HopVolumePct = 100 * indirect2to4Hop / total

	for cat, v := range categoryVolume {
		domainCat, ok := toIllicitCategory(cat)
		if !ok {
			continue
		}
		exposure.CategoryVolumePct[domainCat] += 100 * v / total
	}

	if lastIllicitTx != nil {
		days := int(x.now().Sub(*lastIllicitTx).Hours() / 24)
		exposure.LastIllicitTxDaysAgo = &days
	}

	exposure.PeelChainLength = estimatePeelChainLength(g, centre.ID)

	return exposure
}

// bfsDepths computes the shortest hop distance from the centre to every
// entity in the graph, treating edges as undirected for exposure purposes.
func bfsDepths(g *entity.EgoGraph) map[string]int {
	depth := map[string]int{g.CentreID: 0}
	queue := []string{g.CentreID}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		for _, t := range g.Forward[id] {
			if _, seen := depth[t.To]; !seen {
				depth[t.To] = depth[id] + 1
				queue = append(queue, t.To)
			}
		}
		for _, t := range g.Reverse[id] {
			if _, seen := depth[t.From]; !seen {
				depth[t.From] = depth[id] + 1
				queue = append(queue, t.From)
			}
		}
	}
	return depth
}

func isIllicitCategory(cat entity.EntityCategory) bool {
	_, ok := toIllicitCategory(cat)
	return ok
}

func toIllicitCategory(cat entity.EntityCategory) (domainsvc.IllicitCategory, bool) {
	switch cat {
	case entity.EntityCategoryMixer:
		return domainsvc.CategoryMixersPrivacy, true
	case entity.EntityCategoryStolen:
		return domainsvc.CategoryStolenFunds, true
	case entity.EntityCategoryDarknet:
		return domainsvc.CategoryDarknetMarkets, true
	case entity.EntityCategoryScam:
		return domainsvc.CategoryScamsFraud, true
	case entity.EntityCategoryRansomware:
		return domainsvc.CategoryRansomware, true
	case entity.EntityCategoryTerroristFinancing:
		return domainsvc.CategoryTerroristFinancing, true
	default:
		return "", false
	}
}

// estimatePeelChainLength walks the longest simple chain of single
// successive outgoing hops from the centre, each strictly smaller than the
// last, the behavioural signature of a peel chain.
func estimatePeelChainLength(g *entity.EgoGraph, start string) int {
	longest := 0
	var walk func(id string, lastAmount float64, visited map[string]bool, length int)
	walk = func(id string, lastAmount float64, visited map[string]bool, length int) {
		if length > longest {
			longest = length
		}
		for _, t := range g.Forward[id] {
			if visited[t.To] || t.Amount >= lastAmount {
				continue
			}
			next := make(map[string]bool, len(visited)+1)
			for k := range visited {
				next[k] = true
			}
			next[t.To] = true
			walk(t.To, t.Amount, next, length+1)
		}
	}
	for _, t := range g.Forward[start] {
		visited := map[string]bool{start: true, t.To: true}
		walk(t.To, t.Amount, visited, 1)
	}
	return longest
}
