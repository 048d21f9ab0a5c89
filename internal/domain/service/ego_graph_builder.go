package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"aml-risk-engine/internal/domain/entity"
	"aml-risk-engine/internal/infrastructure/logger"

	"go.uber.org/zap"
)

// EgoGraphBuilderConfig holds the bounded-BFS expansion tunables.
type EgoGraphBuilderConfig struct {
	MaxDepth           int
	TimeWindowDays     int
	EdgeCap            int
	MaxTxPerExpansion  int
}

// DefaultEgoGraphBuilderConfig returns the standard production defaults.
func DefaultEgoGraphBuilderConfig() EgoGraphBuilderConfig {
	return EgoGraphBuilderConfig{
		MaxDepth:          3,
		TimeWindowDays:    180,
		EdgeCap:           100000,
		MaxTxPerExpansion: 1000,
	}
}

// EgoGraphBuilder performs the bounded BFS expansion around a centre
// address.
type EgoGraphBuilder struct {
	classifier EntityClassifier
	txSource   TransactionSource
	cfg        EgoGraphBuilderConfig
	logger     *logger.Logger
	now        func() time.Time
}

// NewEgoGraphBuilder wires an EgoGraphBuilder against its two external
// collaborators.
func NewEgoGraphBuilder(classifier EntityClassifier, txSource TransactionSource, cfg EgoGraphBuilderConfig, log *logger.Logger) *EgoGraphBuilder {
	return &EgoGraphBuilder{
		classifier: classifier,
		txSource:   txSource,
		cfg:        cfg,
		logger:     log.WithComponent("ego-graph-builder"),
		now:        time.Now,
	}
}

type frontierEntry struct {
	id    string
	depth int
}

// Build materialises the ego graph around (address, chain).
func (b *EgoGraphBuilder) Build(ctx context.Context, address, chain string) (*entity.EgoGraph, error) {
	centreType, centreCategory, centreTags, err := b.classify(ctx, address, chain)
	if err != nil {
		b.logger.Warn("classifier unavailable for target, downgrading to unknown",
			zap.String("address", address), zap.Error(err))
		centreType, centreCategory, centreTags = entity.EntityTypeUnknown, entity.EntityCategoryUnknown, nil
	}
	centreID := entityID(chain, address)
	centre := entity.NewEntity(centreID, address, chain, centreType, centreCategory, centreTags)
	graph := entity.NewEgoGraph(centre, b.cfg.MaxDepth, b.cfg.TimeWindowDays)

	asOf := b.now()
	graph.AsOf = asOf

	visited := map[string]bool{centreID: true}
	frontier := []frontierEntry{{id: centreID, depth: 0}}
	cutoff := asOf.AddDate(0, 0, -b.cfg.TimeWindowDays)
	firstExpansion := true

	for len(frontier) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, entity.NewAnalysisError(entity.KindCancelled, "ego-graph-builder", err)
		}

		head := frontier[0]
		frontier = frontier[1:]

		if head.depth >= b.cfg.MaxDepth {
			continue
		}

		current := graph.Entities[head.id]
		raw, err := b.txSource.Fetch(ctx, current.Address, b.cfg.MaxTxPerExpansion)
		if err != nil {
			if firstExpansion {
				return nil, entity.NewAnalysisError(entity.KindTransactionSourceUnavailable, "ego-graph-builder", err)
			}
			b.logger.Warn("transaction source failed for node, continuing with empty neighbourhood",
				zap.String("address", current.Address), zap.Error(err))
			firstExpansion = false
			continue
		}
		firstExpansion = false

		for _, rtx := range raw {
			if rtx.Timestamp.Before(cutoff) {
				continue
			}

			fromAddr, toAddr, counterpartyAddr := current.Address, rtx.To, rtx.To
			if rtx.Type == RawTransactionReceived {
				fromAddr, toAddr, counterpartyAddr = rtx.From, current.Address, rtx.From
			}

			counterpartyID := entityID(chain, counterpartyAddr)
			isNew := !visited[counterpartyID]
			if isNew {
				cType, cCategory, cTags, cErr := b.classify(ctx, counterpartyAddr, chain)
				if cErr != nil {
					b.logger.Warn("classifier unavailable for counterparty, downgrading to unknown",
						zap.String("address", counterpartyAddr), zap.Error(cErr))
					cType, cCategory, cTags = entity.EntityTypeUnknown, entity.EntityCategoryUnknown, nil
				}
				graph.AddEntity(entity.NewEntity(counterpartyID, counterpartyAddr, chain, cType, cCategory, cTags))
				visited[counterpartyID] = true
			}

			direction := entity.DirectionOutgoing
			if rtx.Type == RawTransactionReceived {
				direction = entity.DirectionIncoming
			} else if rtx.Type == RawTransactionInternal {
				direction = entity.DirectionInternal
			}

			txEdge := &entity.Transaction{
				Hash:      rtx.Hash,
				From:      entityID(chain, fromAddr),
				To:        entityID(chain, toAddr),
				Amount:    rtx.Amount,
				Asset:     rtx.Asset,
				Timestamp: rtx.Timestamp,
				Direction: direction,
			}
			txEdge.DeriveFlags(graph.Entities[txEdge.From], graph.Entities[txEdge.To])
			graph.AddTransaction(txEdge)

			if len(graph.Transactions) > b.cfg.EdgeCap {
				return nil, entity.NewAnalysisError(entity.KindResourceLimitExceeded, "ego-graph-builder",
					fmt.Errorf("edge cap %d exceeded", b.cfg.EdgeCap))
			}

			if isNew {
				frontier = append(frontier, frontierEntry{id: counterpartyID, depth: head.depth + 1})
			}
		}
	}

	b.deriveTopology(graph)
	return graph, nil
}

func (b *EgoGraphBuilder) classify(ctx context.Context, address, chain string) (entity.EntityType, entity.EntityCategory, []string, error) {
	return b.classifier.Classify(ctx, address, chain)
}

func entityID(chain, address string) string {
	return chain + ":" + address
}

// deriveTopology computes in/out degree for every entity plus page-rank and
// clustering coefficient: page-rank via a fixed 20-iteration power method,
// clustering coefficient via the standard local triangle-count formula;
// graphs with fewer than two entities fall back to uniform rank and zero
// clustering.
func (b *EgoGraphBuilder) deriveTopology(g *entity.EgoGraph) {
	for _, id := range g.EntityOrder {
		e := g.Entities[id]
		e.InDegree = len(g.Reverse[id])
		e.OutDegree = len(g.Forward[id])
	}

	n := len(g.EntityOrder)
	if n < 2 {
		for _, id := range g.EntityOrder {
			e := g.Entities[id]
			e.PageRank = 1.0
			e.ClusteringCoefficient = 0.0
		}
		return
	}

	b.computePageRank(g)
	b.computeClusteringCoefficients(g)
}

const pageRankDamping = 0.85
const pageRankIterations = 20

func (b *EgoGraphBuilder) computePageRank(g *entity.EgoGraph) {
	n := len(g.EntityOrder)
	rank := make(map[string]float64, n)
	for _, id := range g.EntityOrder {
		rank[id] = 1.0 / float64(n)
	}

	for iter := 0; iter < pageRankIterations; iter++ {
		next := make(map[string]float64, n)
		base := (1 - pageRankDamping) / float64(n)
		for _, id := range g.EntityOrder {
			next[id] = base
		}
		for _, id := range g.EntityOrder {
			out := g.Forward[id]
			if len(out) == 0 {
				continue
			}
			share := pageRankDamping * rank[id] / float64(len(out))
			seen := map[string]bool{}
			for _, t := range out {
				if seen[t.To] {
					continue
				}
				seen[t.To] = true
				next[t.To] += share
			}
		}
		rank = next
	}

	for _, id := range g.EntityOrder {
		g.Entities[id].PageRank = rank[id]
	}
}

func (b *EgoGraphBuilder) computeClusteringCoefficients(g *entity.EgoGraph) {
	neighbours := make(map[string]map[string]bool, len(g.EntityOrder))
	for _, id := range g.EntityOrder {
		set := make(map[string]bool)
		for _, t := range g.Forward[id] {
			set[t.To] = true
		}
		for _, t := range g.Reverse[id] {
			set[t.From] = true
		}
		delete(set, id)
		neighbours[id] = set
	}

	for _, id := range g.EntityOrder {
		ns := neighbours[id]
		k := len(ns)
		if k < 2 {
			g.Entities[id].ClusteringCoefficient = 0.0
			continue
		}
		ordered := make([]string, 0, k)
		for nb := range ns {
			ordered = append(ordered, nb)
		}
		sort.Strings(ordered)

		links := 0
		for i := 0; i < len(ordered); i++ {
			for j := i + 1; j < len(ordered); j++ {
				if neighbours[ordered[i]][ordered[j]] {
					links++
				}
			}
		}
		possible := k * (k - 1) / 2
		g.Entities[id].ClusteringCoefficient = float64(links) / float64(possible)
	}
}
