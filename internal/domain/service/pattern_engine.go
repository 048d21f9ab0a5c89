package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"aml-risk-engine/internal/domain/entity"
)

// transitionContext bundles the per-step state a condition is evaluated
// against.
type transitionContext struct {
	currentEntity    *entity.Entity
	currentTx        *entity.Transaction
	elapsedHours     float64
	hopCount         int
	cumulativeVolume float64
}

func evaluateCondition(c entity.Condition, ctx transitionContext) bool {
	switch c.Kind {
	case entity.ConditionEntityCategory:
		return ctx.currentEntity.Category == c.Category
	case entity.ConditionEntityTag:
		return ctx.currentEntity.HasTag(c.Tag)
	case entity.ConditionTimeWindow:
		return ctx.elapsedHours <= c.Hours
	case entity.ConditionHopCount:
		return ctx.hopCount <= c.Hops
	case entity.ConditionVolumeThreshold:
		return ctx.cumulativeVolume >= c.Volume
	case entity.ConditionBridgeCrossing:
		return ctx.currentTx.IsCrossBridge
	case entity.ConditionMixerHop:
		return ctx.currentTx.IsMixerHop
	default:
		return false
	}
}

// evaluateTransition evaluates conditions left to right with short-circuit
// AND. Pattern authors are expected to order time-window/hop-count
// conditions before entity-dependent ones so that violated structural
// bounds prune a branch before any entity lookup happens.
func evaluateTransition(t entity.Transition, ctx transitionContext) bool {
	for _, c := range t.Conditions {
		if !evaluateCondition(c, ctx) {
			return false
		}
	}
	return true
}

// candidateWalk is one accepting walk found during the search.
type candidateWalk struct {
	path []*entity.Transaction
}

// PatternEngine executes a library of finite automata against an ego
// graph.
type PatternEngine struct{}

func NewPatternEngine() *PatternEngine {
	return &PatternEngine{}
}

// Run executes every automaton in library against g. Automata are
// independent and run concurrently; results preserve library order.
func (e *PatternEngine) Run(ctx context.Context, g *entity.EgoGraph, library []*entity.PatternAutomaton) ([]*entity.MatchResult, error) {
	results := make([]*entity.MatchResult, len(library))
	errs := make([]error, len(library))

	var wg sync.WaitGroup
	for i, automaton := range library {
		wg.Add(1)
		go func(i int, automaton *entity.PatternAutomaton) {
			defer wg.Done()
			res, err := e.runOne(ctx, g, automaton)
			results[i] = res
			errs[i] = err
		}(i, automaton)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return results, nil
}

func (e *PatternEngine) runOne(ctx context.Context, g *entity.EgoGraph, automaton *entity.PatternAutomaton) (*entity.MatchResult, error) {
	initial := automaton.State(automaton.InitialID)
	if initial == nil {
		return nil, entity.NewAnalysisError(entity.KindInvalidInput, "pattern-engine",
			fmt.Errorf("pattern %s: initial state %s not found", automaton.ID, automaton.InitialID))
	}

	if !e.canStartMatch(g, initial) {
		return &entity.MatchResult{PatternID: automaton.ID, Matched: false, Weight: automaton.Weight, Severity: automaton.Severity}, nil
	}

	var candidates []candidateWalk
	visited := map[string]bool{g.CentreID: true}

	if err := e.walk(ctx, g, automaton, g.CentreID, initial, visited, nil, time.Time{}, &candidates); err != nil {
		return nil, err
	}

	if len(candidates) == 0 {
		return &entity.MatchResult{PatternID: automaton.ID, Matched: false, Weight: automaton.Weight, Severity: automaton.Severity}, nil
	}

	best := selectBest(candidates)
	centreVolume := g.TotalVolume()
	var walkVolume float64
	for _, t := range best.path {
		walkVolume += t.Amount
	}
	var share float64
	if centreVolume > 0 {
		share = entity.ClampFloat(100*walkVolume/centreVolume, 0, 100)
	}

	return &entity.MatchResult{
		PatternID:   automaton.ID,
		Matched:     true,
		Weight:      automaton.Weight,
		Severity:    automaton.Severity,
		VolumeShare: share,
		Path:        best.path,
		Explanation: fmt.Sprintf("%s detected: %d hops, %.0f%% of volume, total amount %.2f",
			automaton.DisplayName, len(best.path), share, walkVolume),
	}, nil
}

// walk performs the backtracking DFS. Cancellation is observed once, at the
// root of each automaton's search (path empty), not between transitions.
func (e *PatternEngine) walk(ctx context.Context, g *entity.EgoGraph, automaton *entity.PatternAutomaton, current string, state *entity.State, visited map[string]bool, path []*entity.Transaction, start time.Time, out *[]candidateWalk) error {
	if len(path) == 0 {
		if err := ctx.Err(); err != nil {
			return entity.NewAnalysisError(entity.KindCancelled, "pattern-engine", err)
		}
	}

	switch state.Type {
	case entity.StateAccept:
		*out = append(*out, candidateWalk{path: append([]*entity.Transaction{}, path...)})
		return nil
	case entity.StateFail:
		return nil
	}

	cumulativeSoFar := 0.0
	for _, t := range path {
		cumulativeSoFar += t.Amount
	}

	for _, tr := range state.Transitions {
		target := automaton.State(tr.Target)
		if target == nil {
			continue
		}
		for _, edge := range g.Forward[current] {
			if visited[edge.To] {
				continue
			}
			elapsed := 0.0
			effectiveStart := start
			if len(path) > 0 {
				elapsed = edge.Timestamp.Sub(start).Hours()
				if elapsed < 0 {
					elapsed = 0
				}
			} else {
				effectiveStart = edge.Timestamp
			}

			tctx := transitionContext{
				currentEntity:    g.Entities[edge.To],
				currentTx:        edge,
				elapsedHours:     elapsed,
				hopCount:         len(path) + 1,
				cumulativeVolume: cumulativeSoFar + edge.Amount,
			}
			if !evaluateTransition(tr, tctx) {
				continue
			}

			nextVisited := make(map[string]bool, len(visited)+1)
			for k := range visited {
				nextVisited[k] = true
			}
			nextVisited[edge.To] = true

			if err := e.walk(ctx, g, automaton, edge.To, target, nextVisited, append(path, edge), effectiveStart, out); err != nil {
				return err
			}
		}
	}
	return nil
}

// canStartMatch is the structural pre-filter: if no transition out of the
// initial state could possibly match any neighbour
// reachable from the centre, purely on entity-category/entity-tag grounds,
// the whole automaton cannot match and the walk is skipped.
func (e *PatternEngine) canStartMatch(g *entity.EgoGraph, initial *entity.State) bool {
	if len(initial.Transitions) == 0 {
		return false
	}
	for _, tr := range initial.Transitions {
		hasEntityCondition := false
		feasible := true
		for _, c := range tr.Conditions {
			switch c.Kind {
			case entity.ConditionEntityCategory:
				hasEntityCondition = true
				if !anyNeighbourHasCategory(g, c.Category) {
					feasible = false
				}
			case entity.ConditionEntityTag:
				hasEntityCondition = true
				if !anyNeighbourHasTag(g, c.Tag) {
					feasible = false
				}
			}
		}
		if !hasEntityCondition || feasible {
			return true
		}
	}
	return false
}

func anyNeighbourHasCategory(g *entity.EgoGraph, category entity.EntityCategory) bool {
	for _, t := range g.Forward[g.CentreID] {
		if e, ok := g.Entities[t.To]; ok && e.Category == category {
			return true
		}
	}
	return false
}

func anyNeighbourHasTag(g *entity.EgoGraph, tag string) bool {
	for _, t := range g.Forward[g.CentreID] {
		if e, ok := g.Entities[t.To]; ok && e.HasTag(tag) {
			return true
		}
	}
	return false
}

// selectBest applies the tie-break rule: maximum total volume, then
// shorter hop count, then lexicographic path by transaction hash.
func selectBest(candidates []candidateWalk) candidateWalk {
	sort.SliceStable(candidates, func(i, j int) bool {
		vi, vj := volumeOf(candidates[i]), volumeOf(candidates[j])
		if vi != vj {
			return vi > vj
		}
		if len(candidates[i].path) != len(candidates[j].path) {
			return len(candidates[i].path) < len(candidates[j].path)
		}
		return pathKey(candidates[i]) < pathKey(candidates[j])
	})
	return candidates[0]
}

func volumeOf(c candidateWalk) float64 {
	var total float64
	for _, t := range c.path {
		total += t.Amount
	}
	return total
}

func pathKey(c candidateWalk) string {
	key := ""
	for _, t := range c.path {
		key += t.Hash + "|"
	}
	return key
}
