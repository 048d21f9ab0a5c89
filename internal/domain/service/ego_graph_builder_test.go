package service

import (
	"context"
	"testing"
	"time"

	"aml-risk-engine/internal/domain/entity"
	"aml-risk-engine/internal/infrastructure/logger"
)

type stubClassifier struct {
	categories map[string]entity.EntityCategory
}

func (s *stubClassifier) Classify(ctx context.Context, address, chain string) (entity.EntityType, entity.EntityCategory, []string, error) {
	cat, ok := s.categories[address]
	if !ok {
		cat = entity.EntityCategoryClean
	}
	return entity.EntityTypeExternallyOwned, cat, nil, nil
}

type stubTxSource struct {
	byAddress map[string][]RawTransaction
}

func (s *stubTxSource) Fetch(ctx context.Context, address string, maxN int) ([]RawTransaction, error) {
	return s.byAddress[address], nil
}

func newTestLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.NewLogger("error")
	if err != nil {
		t.Fatalf("failed to create logger: %v", err)
	}
	return log
}

func TestEgoGraphBuilder_ExpandsTwoHopsAndStopsAtMaxDepth(t *testing.T) {
	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

	classifier := &stubClassifier{categories: map[string]entity.EntityCategory{
		"b": entity.EntityCategoryMixer,
	}}
	txSource := &stubTxSource{byAddress: map[string][]RawTransaction{
		"a": {{Hash: "h1", From: "a", To: "b", Amount: 10, Timestamp: now, Type: RawTransactionSent}},
		"b": {{Hash: "h2", From: "b", To: "c", Amount: 5, Timestamp: now, Type: RawTransactionSent}},
		"c": {{Hash: "h3", From: "c", To: "d", Amount: 1, Timestamp: now, Type: RawTransactionSent}},
	}}

	builder := NewEgoGraphBuilder(classifier, txSource, EgoGraphBuilderConfig{
		MaxDepth: 2, TimeWindowDays: 180, EdgeCap: 1000, MaxTxPerExpansion: 100,
	}, newTestLogger(t))
	builder.now = func() time.Time { return now }

	g, err := builder.Build(context.Background(), "a", "eth")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, ok := g.Entities["eth:d"]; ok {
		t.Fatalf("expected d to be excluded by max depth 2")
	}
	if _, ok := g.Entities["eth:c"]; !ok {
		t.Fatalf("expected c to be included at depth 2")
	}
	if g.Entities["eth:b"].Category != entity.EntityCategoryMixer {
		t.Fatalf("expected b classified as mixer, got %s", g.Entities["eth:b"].Category)
	}
}

func TestEgoGraphBuilder_RejectsTransactionsOutsideTimeWindow(t *testing.T) {
	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	old := now.AddDate(0, 0, -200)

	classifier := &stubClassifier{categories: map[string]entity.EntityCategory{}}
	txSource := &stubTxSource{byAddress: map[string][]RawTransaction{
		"a": {{Hash: "h1", From: "a", To: "b", Amount: 10, Timestamp: old, Type: RawTransactionSent}},
	}}

	builder := NewEgoGraphBuilder(classifier, txSource, EgoGraphBuilderConfig{
		MaxDepth: 3, TimeWindowDays: 180, EdgeCap: 1000, MaxTxPerExpansion: 100,
	}, newTestLogger(t))
	builder.now = func() time.Time { return now }

	g, err := builder.Build(context.Background(), "a", "eth")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(g.Transactions) != 0 {
		t.Fatalf("expected old transaction to be rejected by the time window, got %d", len(g.Transactions))
	}
}

func TestEgoGraphBuilder_AbortsOnEdgeCap(t *testing.T) {
	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	classifier := &stubClassifier{categories: map[string]entity.EntityCategory{}}
	txSource := &stubTxSource{byAddress: map[string][]RawTransaction{
		"a": {
			{Hash: "h1", From: "a", To: "b", Amount: 1, Timestamp: now, Type: RawTransactionSent},
			{Hash: "h2", From: "a", To: "c", Amount: 1, Timestamp: now, Type: RawTransactionSent},
		},
	}}

	builder := NewEgoGraphBuilder(classifier, txSource, EgoGraphBuilderConfig{
		MaxDepth: 3, TimeWindowDays: 180, EdgeCap: 1, MaxTxPerExpansion: 100,
	}, newTestLogger(t))
	builder.now = func() time.Time { return now }

	_, err := builder.Build(context.Background(), "a", "eth")
	if err == nil {
		t.Fatalf("expected edge cap error")
	}
	kind, ok := entity.KindOf(err)
	if !ok || kind != entity.KindResourceLimitExceeded {
		t.Fatalf("expected KindResourceLimitExceeded, got %v (ok=%v)", kind, ok)
	}
}
