package service

import (
	"context"
	"testing"
	"time"

	"aml-risk-engine/internal/domain/entity"
	domainsvc "aml-risk-engine/internal/domain/service"
	"aml-risk-engine/internal/infrastructure/logger"
)

type fakeClassifier struct {
	categories map[string]entity.EntityCategory
}

func (f *fakeClassifier) Classify(ctx context.Context, address, chain string) (entity.EntityType, entity.EntityCategory, []string, error) {
	cat, ok := f.categories[address]
	if !ok {
		cat = entity.EntityCategoryClean
	}
	typ := entity.EntityTypeExternallyOwned
	switch cat {
	case entity.EntityCategoryMixer:
		typ = entity.EntityTypeMixer
	case entity.EntityCategoryBridge:
		typ = entity.EntityTypeBridge
	case entity.EntityCategoryHighRiskCEX:
		typ = entity.EntityTypeCentralisedExchange
	}
	return typ, cat, nil, nil
}

type fakeTxSource struct {
	byAddress map[string][]domainsvc.RawTransaction
}

func (f *fakeTxSource) Fetch(ctx context.Context, address string, maxN int) ([]domainsvc.RawTransaction, error) {
	return f.byAddress[address], nil
}

func newServiceTestLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.NewLogger("error")
	if err != nil {
		t.Fatalf("failed to build logger: %v", err)
	}
	return log
}

func TestAnalysisService_EndToEndMixerBridgeCexFlow(t *testing.T) {
	// The builder's time-window cutoff is taken from the real clock, so the
	// scenario's timestamps are anchored to it to stay inside the window.
	now := time.Now().UTC().Truncate(time.Hour).Add(-6 * time.Hour)

	classifier := &fakeClassifier{categories: map[string]entity.EntityCategory{
		"mixer":  entity.EntityCategoryMixer,
		"bridge": entity.EntityCategoryBridge,
		"cex":    entity.EntityCategoryHighRiskCEX,
	}}
	txSource := &fakeTxSource{byAddress: map[string][]domainsvc.RawTransaction{
		"centre": {{Hash: "h1", From: "centre", To: "mixer", Amount: 50, Timestamp: now, Type: domainsvc.RawTransactionSent}},
		"mixer":  {{Hash: "h2", From: "mixer", To: "bridge", Amount: 50, Timestamp: now.Add(2 * time.Hour), Type: domainsvc.RawTransactionSent}},
		"bridge": {{Hash: "h3", From: "bridge", To: "cex", Amount: 50, Timestamp: now.Add(5 * time.Hour), Type: domainsvc.RawTransactionSent}},
	}}

	builder := domainsvc.NewEgoGraphBuilder(classifier, txSource, domainsvc.EgoGraphBuilderConfig{
		MaxDepth: 3, TimeWindowDays: 180, EdgeCap: 1000, MaxTxPerExpansion: 100,
	}, newServiceTestLogger(t))

	svc := NewAnalysisService(
		builder,
		domainsvc.NewRuleScorer(),
		domainsvc.NewPatternEngine(),
		domainsvc.BuildStandardPatternLibrary(),
		domainsvc.NewFeatureExtractor(),
		domainsvc.MLPredictorFunc(func(ctx context.Context, features []float64, names []string) (domainsvc.Prediction, error) {
			return domainsvc.Prediction{Probability: 0}, nil
		}),
		domainsvc.NewHybridCombiner(domainsvc.DefaultHybridWeights()),
		newServiceTestLogger(t),
	)

	result, err := svc.Analyze(context.Background(), "centre", "eth")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !result.Score.HasTag("PATTERN_MIXER_BRIDGE_CEX") {
		t.Fatalf("expected PATTERN_MIXER_BRIDGE_CEX tag in final score, got %+v", result.Score.Tags)
	}
	if result.Score.Total <= 0 {
		t.Fatalf("expected a nonzero total risk score, got %d", result.Score.Total)
	}
}

func TestAnalysisService_PropagatesEgoGraphBuilderErrors(t *testing.T) {
	classifier := &fakeClassifier{categories: map[string]entity.EntityCategory{}}
	txSource := &fakeTxSource{byAddress: map[string][]domainsvc.RawTransaction{
		"centre": {
			{Hash: "h1", From: "centre", To: "x", Amount: 1, Timestamp: time.Now(), Type: domainsvc.RawTransactionSent},
			{Hash: "h2", From: "centre", To: "y", Amount: 1, Timestamp: time.Now(), Type: domainsvc.RawTransactionSent},
		},
	}}

	builder := domainsvc.NewEgoGraphBuilder(classifier, txSource, domainsvc.EgoGraphBuilderConfig{
		MaxDepth: 3, TimeWindowDays: 180, EdgeCap: 1, MaxTxPerExpansion: 100,
	}, newServiceTestLogger(t))

	svc := NewAnalysisService(
		builder,
		domainsvc.NewRuleScorer(),
		domainsvc.NewPatternEngine(),
		domainsvc.BuildStandardPatternLibrary(),
		domainsvc.NewFeatureExtractor(),
		nil,
		domainsvc.NewHybridCombiner(domainsvc.DefaultHybridWeights()),
		newServiceTestLogger(t),
	)

	_, err := svc.Analyze(context.Background(), "centre", "eth")
	if err == nil {
		t.Fatalf("expected resource limit error to propagate")
	}
	kind, ok := entity.KindOf(err)
	if !ok || kind != entity.KindResourceLimitExceeded {
		t.Fatalf("expected KindResourceLimitExceeded, got %v (ok=%v)", kind, ok)
	}
}
