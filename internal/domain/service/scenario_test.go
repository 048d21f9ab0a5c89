package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"aml-risk-engine/internal/domain/entity"
)

// TestScenario_CleanAddressYieldsLowRiskFromMlAlone exercises an address with
// no rule exposure and no pattern matches: only the ML prediction
// contributes to the final blend.
func TestScenario_CleanAddressYieldsLowRiskFromMlAlone(t *testing.T) {
	scorer := NewRuleScorer()
	rule := scorer.Score(RuleExposure{CategoryVolumePct: map[IllicitCategory]float64{}})
	if rule.Total != 0 {
		t.Fatalf("expected zero rule score for a clean exposure, got %d", rule.Total)
	}

	combiner := NewHybridCombiner(DefaultHybridWeights())
	result := combiner.Combine(rule, nil, Prediction{Probability: 0.05})

	if result.Total != 2 {
		t.Fatalf("expected final score 2, got %d", result.Total)
	}
	if result.Level != entity.LevelLow {
		t.Fatalf("expected LOW level, got %s", result.Level)
	}
	if len(result.Tags) != 0 {
		t.Fatalf("expected no tags for a clean address, got %+v", result.Tags)
	}
	if len(result.Breakdown) != 2 || result.Breakdown[0].Dimension != "ml_prediction" || result.Breakdown[0].Value != 5 {
		t.Fatalf("expected breakdown [ml_prediction=5, hybrid_final], got %+v", result.Breakdown)
	}
	if result.Breakdown[1].Dimension != "hybrid_final" || result.Breakdown[1].Value != 2 {
		t.Fatalf("expected hybrid_final=2 as the last breakdown entry, got %+v", result.Breakdown)
	}
}

// TestScenario_DirectSanctionsBlendsToHighRisk exercises a small direct
// sanctions exposure combined with a high ML probability.
func TestScenario_DirectSanctionsBlendsToHighRisk(t *testing.T) {
	scorer := NewRuleScorer()
	rule := scorer.Score(RuleExposure{
		DirectSanctionedVolumePct: 5,
		CategoryVolumePct:         map[IllicitCategory]float64{},
	})
	if rule.Total != 60 {
		t.Fatalf("expected rule total 60, got %d", rule.Total)
	}

	combiner := NewHybridCombiner(DefaultHybridWeights())
	result := combiner.Combine(rule, nil, Prediction{Probability: 0.9})

	if result.Total != 51 {
		t.Fatalf("expected final score 51, got %d", result.Total)
	}
	if result.Level != entity.LevelHigh {
		t.Fatalf("expected HIGH level, got %s", result.Level)
	}
	if !result.HasTag("DIRECT_SANCTIONS") {
		t.Fatalf("expected DIRECT_SANCTIONS tag, got %+v", result.Tags)
	}
}

// TestScenario_MixerBridgeCexPatternAloneDrivesMediumRisk exercises a
// mixer-bridge-cex match with no rule exposure and no ML signal: the
// pattern contribution alone determines the final score.
func TestScenario_MixerBridgeCexPatternAloneDrivesMediumRisk(t *testing.T) {
	rule := entity.RiskScore{Total: 0, Level: entity.LevelLow}
	matches := []*entity.MatchResult{
		{PatternID: "MIXER_BRIDGE_CEX", Matched: true, Weight: 85, VolumeShare: 100, Severity: entity.SeverityHigh, Explanation: "matched"},
	}

	combiner := NewHybridCombiner(DefaultHybridWeights())
	result := combiner.Combine(rule, matches, Prediction{Probability: 0})

	if result.Total != 26 {
		t.Fatalf("expected final score 26, got %d", result.Total)
	}
	if result.Level != entity.LevelMedium {
		t.Fatalf("expected MEDIUM level, got %s", result.Level)
	}
	if !result.HasTag("PATTERN_MIXER_BRIDGE_CEX") {
		t.Fatalf("expected PATTERN_MIXER_BRIDGE_CEX tag, got %+v", result.Tags)
	}
}

// TestScenario_ClassifierDowngradeStillCompletesAnalysis exercises a
// counterparty the classifier cannot resolve: it must appear in the graph
// as an unknown, untagged entity rather than aborting the build.
func TestScenario_ClassifierDowngradeStillCompletesAnalysis(t *testing.T) {
	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

	classifier := &downgradingClassifier{failFor: "bad"}
	txSource := &stubTxSource{byAddress: map[string][]RawTransaction{
		"a": {{Hash: "h1", From: "a", To: "bad", Amount: 10, Timestamp: now, Type: RawTransactionSent}},
	}}

	builder := NewEgoGraphBuilder(classifier, txSource, EgoGraphBuilderConfig{
		MaxDepth: 3, TimeWindowDays: 180, EdgeCap: 1000, MaxTxPerExpansion: 100,
	}, newTestLogger(t))
	builder.now = func() time.Time { return now }

	g, err := builder.Build(context.Background(), "a", "eth")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	bad, ok := g.Entities["eth:bad"]
	if !ok {
		t.Fatalf("expected unresolved counterparty to still appear in the graph")
	}
	if bad.Category != entity.EntityCategoryUnknown {
		t.Fatalf("expected category=unknown for an unresolved classifier, got %s", bad.Category)
	}
	if len(bad.Tags) != 0 {
		t.Fatalf("expected no tags for an unresolved classifier, got %+v", bad.Tags)
	}
}

var errClassifierDown = errors.New("classifier unavailable")

type downgradingClassifier struct {
	failFor string
}

func (d *downgradingClassifier) Classify(ctx context.Context, address, chain string) (entity.EntityType, entity.EntityCategory, []string, error) {
	if address == d.failFor {
		return entity.EntityTypeUnknown, entity.EntityCategoryUnknown, nil, entity.NewAnalysisError(entity.KindClassifierUnavailable, "classifier", errClassifierDown)
	}
	return entity.EntityTypeExternallyOwned, entity.EntityCategoryClean, nil, nil
}
