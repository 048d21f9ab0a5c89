package ml

import (
	"context"
	"sort"

	domainsvc "aml-risk-engine/internal/domain/service"
)

// HeuristicPredictor is a deterministic stand-in for an external ML
// prediction service, for deployments without a trained model wired up yet.
// It derives a probability from a fixed linear combination of named
// features (by default from the topology, behavioural and temporal groups)
// rather than calling out to a model server.
//
// No model-serving or inference client appears anywhere in the example
// pack, so this stays on the standard library rather than fabricating a
// dependency; a real deployment supplies its own domainsvc.MLPredictor.
type HeuristicPredictor struct {
	weights map[string]float64
}

// NewHeuristicPredictor builds a predictor from a feature-name -> weight
// table. Features absent from the table contribute nothing.
func NewHeuristicPredictor(weights map[string]float64) *HeuristicPredictor {
	return &HeuristicPredictor{weights: weights}
}

// DefaultHeuristicWeights seeds the predictor with a small, explainable
// set of topology/behavioural/temporal signals.
func DefaultHeuristicWeights() map[string]float64 {
	return map[string]float64{
		"topology_sanctioned_count": 0.25,
		"topology_mixer_count":      0.15,
		"behavioural_gini":          0.10,
		"temporal_velocity":         0.05,
	}
}

func (p *HeuristicPredictor) Predict(ctx context.Context, features []float64, featureNames []string) (domainsvc.Prediction, error) {
	index := make(map[string]float64, len(featureNames))
	for i, name := range featureNames {
		if i < len(features) {
			index[name] = features[i]
		}
	}

	names := make([]string, 0, len(p.weights))
	for name := range p.weights {
		names = append(names, name)
	}
	sort.Strings(names)

	var score float64
	var contributions []domainsvc.FeatureImportance
	for _, name := range names {
		v := index[name]
		contribution := p.weights[name] * clamp01(v)
		score += contribution
		contributions = append(contributions, domainsvc.FeatureImportance{FeatureName: name, Importance: contribution})
	}

	sort.SliceStable(contributions, func(i, j int) bool { return contributions[i].Importance > contributions[j].Importance })
	top := contributions
	if len(top) > 5 {
		top = top[:5]
	}

	return domainsvc.Prediction{
		Probability: clamp01(score),
		Confidence:  0.5,
		ModelTag:    "heuristic-v1",
		TopFeatures: top,
	}, nil
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
