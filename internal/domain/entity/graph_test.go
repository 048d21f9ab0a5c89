package entity

import "testing"

func TestEgoGraph_AddEntityPreservesInsertionOrderAndDedups(t *testing.T) {
	centre := NewEntity("eth:c", "c", "eth", EntityTypeExternallyOwned, EntityCategoryClean, nil)
	g := NewEgoGraph(centre, 3, 180)

	a := NewEntity("eth:a", "a", "eth", EntityTypeExternallyOwned, EntityCategoryClean, nil)
	b := NewEntity("eth:b", "b", "eth", EntityTypeExternallyOwned, EntityCategoryClean, nil)

	if !g.AddEntity(a) {
		t.Fatalf("expected a to be newly added")
	}
	if !g.AddEntity(b) {
		t.Fatalf("expected b to be newly added")
	}
	if g.AddEntity(a) {
		t.Fatalf("expected re-adding a to report false")
	}

	want := []string{centre.ID, a.ID, b.ID}
	if len(g.EntityOrder) != len(want) {
		t.Fatalf("expected %d entities, got %d", len(want), len(g.EntityOrder))
	}
	for i, id := range want {
		if g.EntityOrder[i] != id {
			t.Fatalf("entity order mismatch at %d: want %s got %s", i, id, g.EntityOrder[i])
		}
	}
}

func TestEgoGraph_TotalVolumeSumsAllTransactions(t *testing.T) {
	centre := NewEntity("eth:c", "c", "eth", EntityTypeExternallyOwned, EntityCategoryClean, nil)
	g := NewEgoGraph(centre, 3, 180)
	other := NewEntity("eth:o", "o", "eth", EntityTypeExternallyOwned, EntityCategoryClean, nil)
	g.AddEntity(other)

	g.AddTransaction(&Transaction{Hash: "h1", From: centre.ID, To: other.ID, Amount: 30})
	g.AddTransaction(&Transaction{Hash: "h2", From: other.ID, To: centre.ID, Amount: 20})

	if got := g.TotalVolume(); got != 50 {
		t.Fatalf("expected total volume 50, got %v", got)
	}
	if got := g.IncidentVolume(centre.ID); got != 50 {
		t.Fatalf("expected incident volume at centre 50, got %v", got)
	}
	if got := g.OutgoingVolume(centre.ID); got != 30 {
		t.Fatalf("expected outgoing volume from centre 30, got %v", got)
	}
}
