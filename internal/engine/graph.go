package engine

import (
	"sort"
	"sync"
	"time"

	"PolyCorr/internal/domain/models"
)

// RelationSpec is the caller-supplied part of a relation edge.
type RelationSpec struct {
	MarketIDA      string
	MarketIDB      string
	RelationType   models.RelationType
	Strength       float64
	SharedKeywords []string
	Category       string
}

// RelationGraph is an undirected graph of declared market relationships.
// The unordered market pair is the key: at most one edge exists per pair,
// regardless of relation type.
type RelationGraph struct {
	mu        sync.RWMutex
	relations map[string]models.MarketRelation
	byMarket  map[string]map[string]struct{} // marketID -> pair keys
	hub       *Hub
}

// NewRelationGraph creates an empty graph. Hub may be nil when no event
// delivery is wanted.
func NewRelationGraph(hub *Hub) *RelationGraph {
	return &RelationGraph{
		relations: make(map[string]models.MarketRelation),
		byMarket:  make(map[string]map[string]struct{}),
		hub:       hub,
	}
}

// pairKey normalizes an unordered market pair into a stable lookup key.
func pairKey(a, b string) string {
	if a > b {
		a, b = b, a
	}
	return a + "|" + b
}

func splitPairKey(key string) (string, string) {
	for i := 0; i < len(key); i++ {
		if key[i] == '|' {
			return key[:i], key[i+1:]
		}
	}
	return key, ""
}

// AddRelation stores (or overwrites) the edge for the pair, stamps
// CreatedAt, and emits relationAdded.
func (g *RelationGraph) AddRelation(spec RelationSpec) models.MarketRelation {
	rel := models.MarketRelation{
		MarketIDA:      spec.MarketIDA,
		MarketIDB:      spec.MarketIDB,
		RelationType:   spec.RelationType,
		Strength:       clamp01(spec.Strength),
		SharedKeywords: spec.SharedKeywords,
		Category:       spec.Category,
		CreatedAt:      time.Now(),
	}

	key := pairKey(spec.MarketIDA, spec.MarketIDB)
	g.mu.Lock()
	g.relations[key] = rel
	g.index(spec.MarketIDA, key)
	g.index(spec.MarketIDB, key)
	g.mu.Unlock()

	if g.hub != nil {
		r := rel
		g.hub.Publish(Event{Kind: EventRelationAdded, Relation: &r})
	}
	return rel
}

func (g *RelationGraph) index(marketID, key string) {
	keys, ok := g.byMarket[marketID]
	if !ok {
		keys = make(map[string]struct{})
		g.byMarket[marketID] = keys
	}
	keys[key] = struct{}{}
}

// AreRelated reports whether an edge exists for the pair, in either order.
func (g *RelationGraph) AreRelated(idA, idB string) bool {
	g.mu.RLock()
	_, ok := g.relations[pairKey(idA, idB)]
	g.mu.RUnlock()
	return ok
}

// GetRelation returns the edge for the pair, or nil when none exists.
func (g *RelationGraph) GetRelation(idA, idB string) *models.MarketRelation {
	g.mu.RLock()
	rel, ok := g.relations[pairKey(idA, idB)]
	g.mu.RUnlock()
	if !ok {
		return nil
	}
	return &rel
}

// RemoveRelation deletes the edge for the pair. Returns false when the pair
// had no edge.
func (g *RelationGraph) RemoveRelation(idA, idB string) bool {
	key := pairKey(idA, idB)
	g.mu.Lock()
	defer g.mu.Unlock()
	rel, ok := g.relations[key]
	if !ok {
		return false
	}
	delete(g.relations, key)
	g.unindex(rel.MarketIDA, key)
	g.unindex(rel.MarketIDB, key)
	return true
}

func (g *RelationGraph) unindex(marketID, key string) {
	if keys, ok := g.byMarket[marketID]; ok {
		delete(keys, key)
		if len(keys) == 0 {
			delete(g.byMarket, marketID)
		}
	}
}

// RelationsFor returns all edges touching the market, newest first.
func (g *RelationGraph) RelationsFor(marketID string) []models.MarketRelation {
	g.mu.RLock()
	defer g.mu.RUnlock()
	keys, ok := g.byMarket[marketID]
	if !ok {
		return nil
	}
	out := make([]models.MarketRelation, 0, len(keys))
	for key := range keys {
		out = append(out, g.relations[key])
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

// AllRelations returns every edge in the graph.
func (g *RelationGraph) AllRelations() []models.MarketRelation {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]models.MarketRelation, 0, len(g.relations))
	for _, rel := range g.relations {
		out = append(out, rel)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

// Len returns the number of edges.
func (g *RelationGraph) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.relations)
}

// Clear removes every edge.
func (g *RelationGraph) Clear() {
	g.mu.Lock()
	g.relations = make(map[string]models.MarketRelation)
	g.byMarket = make(map[string]map[string]struct{})
	g.mu.Unlock()
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
