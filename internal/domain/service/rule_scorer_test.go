package service

import "testing"

func TestRuleScorer_DirectSanctions(t *testing.T) {
	scorer := NewRuleScorer()
	score := scorer.Score(RuleExposure{DirectSanctionedVolumePct: 5})

	if score.Total != 60 {
		t.Fatalf("expected total 60, got %d", score.Total)
	}
	if !score.HasTag("DIRECT_SANCTIONS") {
		t.Fatalf("expected DIRECT_SANCTIONS tag")
	}
}

func TestRuleScorer_MixerExposureWithTimeDecay(t *testing.T) {
	scorer := NewRuleScorer()
	age := 400
	score := scorer.Score(RuleExposure{
		CategoryVolumePct:    map[IllicitCategory]float64{CategoryMixersPrivacy: 30},
		LastIllicitTxDaysAgo: &age,
	})

	if score.Total != 8 {
		t.Fatalf("expected total 8 (18 mixer - 10 decay), got %d", score.Total)
	}
	if !score.HasTag("MIXER_USAGE") {
		t.Fatalf("expected MIXER_USAGE tag")
	}
	for _, tag := range score.Tags {
		if tag.Code == "MIXER_USAGE" && tag.Severity != "medium" {
			t.Fatalf("expected medium severity for 30%% mixer exposure, got %s", tag.Severity)
		}
	}
}

func TestRuleScorer_TemporalBoundaryExactly365DaysIsNoOp(t *testing.T) {
	scorer := NewRuleScorer()
	age := 365
	score := scorer.Score(RuleExposure{LastIllicitTxDaysAgo: &age})

	for _, c := range score.Breakdown {
		if c.Dimension == "temporal" {
			t.Fatalf("expected no temporal component at exactly 365 days, got %+v", c)
		}
	}
	if score.Total != 0 {
		t.Fatalf("expected total 0, got %d", score.Total)
	}
}

func TestRuleScorer_SanctionsZeroPercentDoesNotTrigger(t *testing.T) {
	scorer := NewRuleScorer()
	score := scorer.Score(RuleExposure{DirectSanctionedVolumePct: 0})
	if score.Total != 0 {
		t.Fatalf("expected total 0 for 0%% sanctions exposure, got %d", score.Total)
	}
}

func TestRuleScorer_SanctionsFractionalPercentTriggers(t *testing.T) {
	scorer := NewRuleScorer()
	score := scorer.Score(RuleExposure{DirectSanctionedVolumePct: 0.01})
	if score.Total != 60 {
		t.Fatalf("expected total 60 for any nonzero direct sanctions exposure, got %d", score.Total)
	}
}

func TestRuleScorer_RansomwareCapsAtCategoryCeiling(t *testing.T) {
	scorer := NewRuleScorer()
	score := scorer.Score(RuleExposure{
		CategoryVolumePct: map[IllicitCategory]float64{CategoryRansomware: 200},
	})
	if score.Total != 30 {
		t.Fatalf("expected ransomware component capped at 30, got %d", score.Total)
	}
}

func TestRuleScorer_BehaviouralAdjustments(t *testing.T) {
	scorer := NewRuleScorer()
	score := scorer.Score(RuleExposure{
		PeelChainLength: 6,
		OutDegree:       80,
		InOutRatio:      0.1,
	})
	if score.Total != 8 {
		t.Fatalf("expected 5 (peel chain) + 3 (distribution) = 8, got %d", score.Total)
	}
	if !score.HasTag("PEEL_CHAIN") || !score.HasTag("DISTRIBUTION_PATTERN") {
		t.Fatalf("expected both behavioural tags, got %+v", score.Tags)
	}
}

func TestRuleScorer_TotalNeverExceedsHundred(t *testing.T) {
	scorer := NewRuleScorer()
	age := 10
	score := scorer.Score(RuleExposure{
		DirectSanctionedVolumePct: 100,
		CategoryVolumePct: map[IllicitCategory]float64{
			CategoryMixersPrivacy:      100,
			CategoryStolenFunds:        100,
			CategoryDarknetMarkets:     100,
			CategoryScamsFraud:         100,
			CategoryRansomware:         100,
			CategoryTerroristFinancing: 100,
		},
		LastIllicitTxDaysAgo: &age,
		PeelChainLength:      10,
		OutDegree:            100,
		InOutRatio:           0.0,
	})
	if score.Total != 100 {
		t.Fatalf("expected total clamped to 100, got %d", score.Total)
	}
	if score.Level != "CRITICAL" {
		t.Fatalf("expected CRITICAL level, got %s", score.Level)
	}
}
