package service

import (
	"context"
	"testing"
	"time"

	"aml-risk-engine/internal/domain/entity"
)

func buildMixerBridgeCexGraph() *entity.EgoGraph {
	centre := entity.NewEntity("eth:centre", "centre", "eth", entity.EntityTypeExternallyOwned, entity.EntityCategoryClean, nil)
	mixer := entity.NewEntity("eth:mixer", "mixer", "eth", entity.EntityTypeMixer, entity.EntityCategoryMixer, nil)
	bridge := entity.NewEntity("eth:bridge", "bridge", "eth", entity.EntityTypeBridge, entity.EntityCategoryBridge, nil)
	cex := entity.NewEntity("eth:cex", "cex", "eth", entity.EntityTypeCentralisedExchange, entity.EntityCategoryHighRiskCEX, nil)

	g := entity.NewEgoGraph(centre, 3, 180)
	g.AddEntity(mixer)
	g.AddEntity(bridge)
	g.AddEntity(cex)

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	t1 := &entity.Transaction{Hash: "h1", From: centre.ID, To: mixer.ID, Amount: 50, Timestamp: base}
	t2 := &entity.Transaction{Hash: "h2", From: mixer.ID, To: bridge.ID, Amount: 50, Timestamp: base.Add(2 * time.Hour)}
	t3 := &entity.Transaction{Hash: "h3", From: bridge.ID, To: cex.ID, Amount: 50, Timestamp: base.Add(5 * time.Hour)}
	t1.DeriveFlags(centre, mixer)
	t2.DeriveFlags(mixer, bridge)
	t3.DeriveFlags(bridge, cex)
	g.AddTransaction(t1)
	g.AddTransaction(t2)
	g.AddTransaction(t3)
	g.AsOf = base.Add(24 * time.Hour)

	return g
}

func TestPatternEngine_MixerBridgeCexMatchesWithFullVolumeShare(t *testing.T) {
	g := buildMixerBridgeCexGraph()
	if got := g.TotalVolume(); got != 150 {
		t.Fatalf("expected total volume 150, got %v", got)
	}

	engine := NewPatternEngine()
	library := []*entity.PatternAutomaton{mixerBridgeCEX()}

	results, err := engine.Run(context.Background(), g, library)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}

	m := results[0]
	if !m.Matched {
		t.Fatalf("expected MIXER_BRIDGE_CEX to match")
	}
	if m.HopCount() != 3 {
		t.Fatalf("expected 3 hops, got %d", m.HopCount())
	}
	if m.VolumeShare != 100 {
		t.Fatalf("expected volume share 100, got %v", m.VolumeShare)
	}
}

func TestPatternEngine_NoMatchWhenNoNeighbourHasRequiredCategory(t *testing.T) {
	centre := entity.NewEntity("eth:centre", "centre", "eth", entity.EntityTypeExternallyOwned, entity.EntityCategoryClean, nil)
	g := entity.NewEgoGraph(centre, 3, 180)
	other := entity.NewEntity("eth:other", "other", "eth", entity.EntityTypeExternallyOwned, entity.EntityCategoryClean, nil)
	g.AddEntity(other)
	tx := &entity.Transaction{Hash: "h1", From: centre.ID, To: other.ID, Amount: 10, Timestamp: time.Now()}
	tx.DeriveFlags(centre, other)
	g.AddTransaction(tx)

	engine := NewPatternEngine()
	results, err := engine.Run(context.Background(), g, []*entity.PatternAutomaton{mixerBridgeCEX()})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if results[0].Matched {
		t.Fatalf("expected no match when no mixer neighbour exists")
	}
}

func TestPatternEngine_SanctionsProximityDirectHit(t *testing.T) {
	centre := entity.NewEntity("eth:centre", "centre", "eth", entity.EntityTypeExternallyOwned, entity.EntityCategoryClean, nil)
	g := entity.NewEgoGraph(centre, 3, 180)
	sanctioned := entity.NewEntity("eth:sanctioned", "sanctioned", "eth", entity.EntityTypeSanctioned, entity.EntityCategorySanctioned, nil)
	g.AddEntity(sanctioned)
	tx := &entity.Transaction{Hash: "h1", From: centre.ID, To: sanctioned.ID, Amount: 100, Timestamp: time.Now()}
	tx.DeriveFlags(centre, sanctioned)
	g.AddTransaction(tx)

	engine := NewPatternEngine()
	results, err := engine.Run(context.Background(), g, []*entity.PatternAutomaton{sanctionsProximity()})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !results[0].Matched {
		t.Fatalf("expected direct sanctions hit to match")
	}
	if results[0].HopCount() != 1 {
		t.Fatalf("expected 1 hop, got %d", results[0].HopCount())
	}
}

func TestPatternEngine_RunRespectsCancellation(t *testing.T) {
	g := buildMixerBridgeCexGraph()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	engine := NewPatternEngine()
	_, err := engine.Run(ctx, g, []*entity.PatternAutomaton{mixerBridgeCEX()})
	if err == nil {
		t.Fatalf("expected cancellation error")
	}
	kind, ok := entity.KindOf(err)
	if !ok || kind != entity.KindCancelled {
		t.Fatalf("expected KindCancelled, got %v (ok=%v)", kind, ok)
	}
}
