package service

import (
	"testing"

	"aml-risk-engine/internal/domain/entity"
)

func TestHybridCombiner_BlendsThreeScoresWithDefaultWeights(t *testing.T) {
	rule := entity.RiskScore{Total: 60, Level: entity.BandLevel(60)}
	matches := []*entity.MatchResult{
		{PatternID: "MIXER_BRIDGE_CEX", Matched: true, Weight: 85, VolumeShare: 100, Severity: entity.SeverityHigh, Explanation: "matched"},
		{PatternID: "PEEL_CHAIN", Matched: false},
	}
	prediction := Prediction{Probability: 0.5}

	combiner := NewHybridCombiner(DefaultHybridWeights())
	result := combiner.Combine(rule, matches, prediction)

	// pattern_score = min(100, 85 * min(1, 100/50)) = 85
	// final = round(0.4*60 + 0.3*85 + 0.3*50) = round(24 + 25.5 + 15) = round(64.5) = 65 (round-half-away-from-zero)
	if result.Total != 65 {
		t.Fatalf("expected total 65, got %d", result.Total)
	}
	if result.Level != entity.LevelHigh {
		t.Fatalf("expected HIGH level, got %s", result.Level)
	}
	if !result.HasTag("PATTERN_MIXER_BRIDGE_CEX") {
		t.Fatalf("expected PATTERN_MIXER_BRIDGE_CEX tag")
	}
	if result.HasTag("PATTERN_PEEL_CHAIN") {
		t.Fatalf("unmatched pattern must not produce a tag")
	}
}

func TestHybridCombiner_NoMatchesFallsBackToRuleAndMLOnly(t *testing.T) {
	rule := entity.RiskScore{Total: 0, Level: entity.LevelLow}
	prediction := Prediction{Probability: 0}

	combiner := NewHybridCombiner(DefaultHybridWeights())
	result := combiner.Combine(rule, nil, prediction)

	if result.Total != 0 {
		t.Fatalf("expected total 0, got %d", result.Total)
	}
	if result.Level != entity.LevelLow {
		t.Fatalf("expected LOW level, got %s", result.Level)
	}
}

func TestHybridCombiner_BreakdownOrderIsRuleThenPatternThenMl(t *testing.T) {
	rule := entity.RiskScore{
		Total: 10,
		Breakdown: []entity.ScoreComponent{
			{Dimension: "sanctions", Value: 10},
		},
	}
	matches := []*entity.MatchResult{
		{PatternID: "STRUCTURING", Matched: true, Weight: 60, VolumeShare: 50, Explanation: "matched"},
	}
	prediction := Prediction{Probability: 0.2}

	combiner := NewHybridCombiner(DefaultHybridWeights())
	result := combiner.Combine(rule, matches, prediction)

	if result.Breakdown[0].Dimension != "sanctions" {
		t.Fatalf("expected rule components first, got %s", result.Breakdown[0].Dimension)
	}
	if result.Breakdown[1].Dimension != "pattern_structuring" {
		t.Fatalf("expected pattern component second, got %s", result.Breakdown[1].Dimension)
	}
	foundML := false
	foundFinal := false
	for _, c := range result.Breakdown {
		if c.Dimension == "ml_prediction" {
			foundML = true
		}
		if c.Dimension == "hybrid_final" {
			foundFinal = true
		}
	}
	if !foundML || !foundFinal {
		t.Fatalf("expected ml_prediction and hybrid_final components, got %+v", result.Breakdown)
	}
}
