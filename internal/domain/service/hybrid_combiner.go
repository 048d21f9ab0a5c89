package service

import (
	"math"
	"sort"
	"strings"

	"aml-risk-engine/internal/domain/entity"
)

// HybridWeights are the linear blend coefficients. The blend is a plain
// weighted sum, so the weights need not sum to 1.0; the default is
// (0.4, 0.3, 0.3).
type HybridWeights struct {
	Rule    float64
	Pattern float64
	ML      float64
}

// DefaultHybridWeights returns the standard blend.
func DefaultHybridWeights() HybridWeights {
	return HybridWeights{Rule: 0.4, Pattern: 0.3, ML: 0.3}
}

// HybridCombiner fuses the rule score, pattern matches, and an ML
// prediction into a single RiskScore.
type HybridCombiner struct {
	weights HybridWeights
}

func NewHybridCombiner(weights HybridWeights) *HybridCombiner {
	return &HybridCombiner{weights: weights}
}

// Combine assembles the final RiskScore. matches is the Pattern Engine's
// full library output (matched and unmatched); prediction is the external
// ML Prediction Function's output.
func (c *HybridCombiner) Combine(rule entity.RiskScore, matches []*entity.MatchResult, prediction Prediction) entity.RiskScore {
	patternScore := patternScore(matches)
	mlScore := int(math.Round(100 * prediction.Probability))

	blended := c.weights.Rule*float64(rule.Total) + c.weights.Pattern*patternScore + c.weights.ML*float64(mlScore)
	final := entity.Clamp(int(math.Round(entity.ClampFloat(blended, 0, 100))), 0, 100)

	var breakdown []entity.ScoreComponent
	breakdown = append(breakdown, rule.Breakdown...)

	for _, m := range matches {
		if !m.Matched {
			continue
		}
		breakdown = append(breakdown, entity.ScoreComponent{
			Dimension:   "pattern_" + strings.ToLower(m.PatternID),
			Value:       int(math.Round(float64(m.Weight) * math.Min(1.0, m.VolumeShare/50.0))),
			Explanation: m.Explanation,
		})
	}

	breakdown = append(breakdown, entity.ScoreComponent{
		Dimension:   "ml_prediction",
		Value:       mlScore,
		Explanation: "external model prediction",
	})
	breakdown = append(breakdown, entity.ScoreComponent{
		Dimension:   "hybrid_final",
		Value:       final,
		Explanation: "weighted blend of rule, pattern, and ml scores",
	})

	topFeatures := append([]FeatureImportance{}, prediction.TopFeatures...)
	sort.SliceStable(topFeatures, func(i, j int) bool { return topFeatures[i].Importance > topFeatures[j].Importance })
	for _, f := range topFeatures {
		breakdown = append(breakdown, entity.ScoreComponent{
			Dimension:   "ml_feature_" + f.FeatureName,
			Value:       int(math.Round(100 * f.Importance)),
			Explanation: "model feature contribution",
		})
	}

	tags := append([]entity.Tag{}, rule.Tags...)
	for _, m := range matches {
		if !m.Matched {
			continue
		}
		code := "PATTERN_" + m.PatternID
		hasTag := false
		for _, t := range tags {
			if t.Code == code {
				hasTag = true
				break
			}
		}
		if !hasTag {
			tags = append(tags, entity.Tag{Code: code, Severity: m.Severity, Description: m.Explanation})
		}
	}

	return entity.RiskScore{
		Total:                   final,
		Level:                   entity.BandLevel(final),
		Breakdown:               breakdown,
		Tags:                    tags,
		IllicitVolumePercentage: rule.IllicitVolumePercentage,
		CleanVolumePercentage:   rule.CleanVolumePercentage,
	}
}

// patternScore computes the pattern aggregate:
// min(100, sum over matched patterns of weight * min(1.0, volume_share/50)).
func patternScore(matches []*entity.MatchResult) float64 {
	var total float64
	for _, m := range matches {
		if !m.Matched {
			continue
		}
		total += float64(m.Weight) * math.Min(1.0, m.VolumeShare/50.0)
	}
	return math.Min(100, total)
}
