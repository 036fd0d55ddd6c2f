package engine

import (
	"testing"

	"PolyCorr/internal/domain/models"
)

func TestRelationGraphSymmetry(t *testing.T) {
	g := NewRelationGraph(nil)
	g.AddRelation(RelationSpec{MarketIDA: "mkt-b", MarketIDB: "mkt-a", RelationType: models.RelationSameTopic, Strength: 0.8})

	if !g.AreRelated("mkt-a", "mkt-b") {
		t.Fatalf("expected related (a,b)")
	}
	if !g.AreRelated("mkt-b", "mkt-a") {
		t.Fatalf("expected related (b,a)")
	}
	if g.AreRelated("mkt-a", "mkt-c") {
		t.Fatalf("unexpected relation (a,c)")
	}

	rel := g.GetRelation("mkt-a", "mkt-b")
	if rel == nil {
		t.Fatalf("expected relation lookup to succeed")
	}
	if rel.RelationType != models.RelationSameTopic {
		t.Errorf("unexpected type %s", rel.RelationType)
	}
	if g.GetRelation("mkt-a", "mkt-c") != nil {
		t.Errorf("expected nil for unknown pair")
	}
}

func TestRelationGraphSingleEdgePerPair(t *testing.T) {
	g := NewRelationGraph(nil)
	g.AddRelation(RelationSpec{MarketIDA: "a", MarketIDB: "b", RelationType: models.RelationCustom, Strength: 0.3})
	g.AddRelation(RelationSpec{MarketIDA: "b", MarketIDB: "a", RelationType: models.RelationOpposing, Strength: 0.9})

	if g.Len() != 1 {
		t.Fatalf("expected 1 edge, got %d", g.Len())
	}
	// Last write wins for the same unordered pair.
	if rel := g.GetRelation("a", "b"); rel.RelationType != models.RelationOpposing {
		t.Errorf("expected overwrite, got %s", rel.RelationType)
	}
}

func TestRelationGraphRemove(t *testing.T) {
	g := NewRelationGraph(nil)
	g.AddRelation(RelationSpec{MarketIDA: "a", MarketIDB: "b", RelationType: models.RelationCustom})

	if !g.RemoveRelation("b", "a") {
		t.Fatalf("expected removal to succeed")
	}
	if g.RemoveRelation("b", "a") {
		t.Fatalf("expected second removal to report false")
	}
	if g.AreRelated("a", "b") {
		t.Errorf("edge still present after removal")
	}
	if len(g.RelationsFor("a")) != 0 {
		t.Errorf("market index not cleaned up")
	}
}

func TestRelationsForMarket(t *testing.T) {
	g := NewRelationGraph(nil)
	g.AddRelation(RelationSpec{MarketIDA: "a", MarketIDB: "b", RelationType: models.RelationCustom})
	g.AddRelation(RelationSpec{MarketIDA: "a", MarketIDB: "c", RelationType: models.RelationCustom})
	g.AddRelation(RelationSpec{MarketIDA: "b", MarketIDB: "c", RelationType: models.RelationCustom})

	if got := len(g.RelationsFor("a")); got != 2 {
		t.Errorf("expected 2 relations for a, got %d", got)
	}
	if got := len(g.AllRelations()); got != 3 {
		t.Errorf("expected 3 relations total, got %d", got)
	}
	if got := len(g.RelationsFor("zzz")); got != 0 {
		t.Errorf("expected 0 relations for unknown market, got %d", got)
	}
}

func TestRelationAddedEvent(t *testing.T) {
	hub := NewHub(nil)
	var got []models.MarketRelation
	hub.Subscribe(EventRelationAdded, func(ev Event) {
		got = append(got, *ev.Relation)
	})

	g := NewRelationGraph(hub)
	g.AddRelation(RelationSpec{MarketIDA: "a", MarketIDB: "b", RelationType: models.RelationComplementary, Strength: 0.4})

	if len(got) != 1 {
		t.Fatalf("expected 1 relationAdded event, got %d", len(got))
	}
	if got[0].MarketIDA != "a" || got[0].MarketIDB != "b" {
		t.Errorf("unexpected event payload %+v", got[0])
	}
}

func TestStrengthClamped(t *testing.T) {
	g := NewRelationGraph(nil)
	rel := g.AddRelation(RelationSpec{MarketIDA: "a", MarketIDB: "b", RelationType: models.RelationCustom, Strength: 4.2})
	if rel.Strength != 1 {
		t.Errorf("expected strength clamped to 1, got %v", rel.Strength)
	}
}
