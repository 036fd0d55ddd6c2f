package engine

import (
	"testing"

	"PolyCorr/internal/domain/models"
)

func catalogFixture() []models.Market {
	return []models.Market{
		{MarketID: "m1", Question: "Will Bitcoin reach $100k by December 2025?", Category: "crypto"},
		{MarketID: "m2", Question: "Will Bitcoin close above $90k in December?", Category: "crypto"},
		{MarketID: "m3", Question: "Will the Lakers win the NBA championship?", Category: "sports"},
	}
}

func TestAutoDetectKeywordOverlap(t *testing.T) {
	g := NewRelationGraph(nil)
	added := g.AutoDetectRelations(catalogFixture(), 2)

	if len(added) != 1 {
		t.Fatalf("expected 1 auto-detected relation, got %d", len(added))
	}
	rel := added[0]
	if rel.RelationType != models.RelationKeywordOverlap {
		t.Errorf("unexpected type %s", rel.RelationType)
	}
	if !g.AreRelated("m1", "m2") {
		t.Errorf("expected m1-m2 edge in graph")
	}
	if g.AreRelated("m1", "m3") || g.AreRelated("m2", "m3") {
		t.Errorf("unrelated sports market got an edge")
	}
	if rel.Strength <= 0 || rel.Strength > 1 {
		t.Errorf("strength out of range: %v", rel.Strength)
	}
	if len(rel.SharedKeywords) < 2 {
		t.Errorf("expected shared keywords, got %v", rel.SharedKeywords)
	}
	for _, kw := range rel.SharedKeywords {
		if kw != "bitcoin" && kw != "december" {
			t.Errorf("unexpected shared keyword %q", kw)
		}
	}
}

func TestAutoDetectIdempotent(t *testing.T) {
	g := NewRelationGraph(nil)
	first := g.AutoDetectRelations(catalogFixture(), 2)
	if len(first) == 0 {
		t.Fatalf("expected relations on first run")
	}
	before := g.Len()

	second := g.AutoDetectRelations(catalogFixture(), 2)
	if len(second) != 0 {
		t.Errorf("expected zero new relations on rerun, got %d", len(second))
	}
	if g.Len() != before {
		t.Errorf("edge count changed on rerun: %d -> %d", before, g.Len())
	}
}

func TestAutoDetectSkipsManuallyRelatedPairs(t *testing.T) {
	g := NewRelationGraph(nil)
	g.AddRelation(RelationSpec{MarketIDA: "m1", MarketIDB: "m2", RelationType: models.RelationOpposing, Strength: 1})

	added := g.AutoDetectRelations(catalogFixture(), 2)
	if len(added) != 0 {
		t.Fatalf("expected existing edge to suppress auto-detection, got %d", len(added))
	}
	// The manual edge must survive untouched, whatever its type.
	if rel := g.GetRelation("m1", "m2"); rel.RelationType != models.RelationOpposing {
		t.Errorf("manual relation overwritten: %s", rel.RelationType)
	}
}

func TestAutoDetectMinSharedKeywords(t *testing.T) {
	g := NewRelationGraph(nil)
	added := g.AutoDetectRelations(catalogFixture(), 3)
	if len(added) != 0 {
		t.Errorf("expected no relations at minSharedKeywords=3, got %d", len(added))
	}
}

func TestTokenizeQuestion(t *testing.T) {
	tokens := tokenizeQuestion("Will the Fed cut rates to 3% before May?")
	if _, ok := tokens["will"]; ok {
		t.Errorf("stop word survived tokenization")
	}
	if _, ok := tokens["the"]; ok {
		t.Errorf("short/stop token survived tokenization")
	}
	if _, ok := tokens["fed"]; !ok {
		t.Errorf("expected token fed, got %v", tokens)
	}
	if _, ok := tokens["rates"]; !ok {
		t.Errorf("expected token rates, got %v", tokens)
	}
}
