package usecases

import (
	"sort"
	"sync"
	"time"

	"github.com/AzouC/Outils-Osintt/internal/core/domain"
)

// ResultStore accumulates module results for one investigation, deduplicated
// per (entity, module): the first result for a pair wins and later appends
// for the same pair are ignored, so a cache replay or a racing retry never
// double-counts findings.
//
// Snapshot joins the stored results with the graph's entity nodes, edges and
// task ledger into a deep-copied read-only view, safe to hand to exporters
// while the run is still in flight.
type ResultStore struct {
	mu sync.Mutex

	investigationID string
	seed            domain.Entity
	startedAt       time.Time

	graph *TaskGraph

	results map[string][]*domain.ModuleResult // entity identity -> results
	seen    map[string]struct{}               // (identity, module) dedup
}

// NewResultStore creates an empty store bound to the graph that backs the
// same run.
func NewResultStore(investigationID string, seed domain.Entity, startedAt time.Time, graph *TaskGraph) *ResultStore {
	return &ResultStore{
		investigationID: investigationID,
		seed:            seed,
		startedAt:       startedAt,
		graph:           graph,
		results:         make(map[string][]*domain.ModuleResult),
		seen:            make(map[string]struct{}),
	}
}

// InvestigationID returns the run identifier.
func (s *ResultStore) InvestigationID() string {
	return s.investigationID
}

// Seed returns the entity the run started from.
func (s *ResultStore) Seed() domain.Entity {
	return s.seed
}

// Append stores a module result for an entity. It returns false when a
// result for the same (entity, module) pair was already stored.
func (s *ResultStore) Append(entity domain.Entity, result *domain.ModuleResult) bool {
	if result == nil {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	identity := entity.Identity()
	key := identity + "/" + result.ModuleID
	if _, dup := s.seen[key]; dup {
		return false
	}
	s.seen[key] = struct{}{}
	s.results[identity] = append(s.results[identity], result.Clone())
	return true
}

// Results returns deep copies of the results stored for an entity.
func (s *ResultStore) Results(entity domain.Entity) []*domain.ModuleResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := s.results[entity.Identity()]
	out := make([]*domain.ModuleResult, len(stored))
	for i, r := range stored {
		out[i] = r.Clone()
	}
	return out
}

// ResultCount returns the total number of stored (entity, module) results.
func (s *ResultStore) ResultCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.seen)
}

// Snapshot builds a deep-copied view of the run as of now. Entities come
// from the graph's node set; entities the graph knows but no module has
// reported on yet appear with empty results.
func (s *ResultStore) Snapshot(now time.Time) *domain.Snapshot {
	entities := s.graph.Entities()
	edges := s.graph.Edges()
	tasks := s.graph.Tasks()

	s.mu.Lock()
	defer s.mu.Unlock()

	sort.Slice(entities, func(i, j int) bool {
		if entities[i].Depth != entities[j].Depth {
			return entities[i].Depth < entities[j].Depth
		}
		return entities[i].Identity() < entities[j].Identity()
	})

	records := make([]domain.EntityRecord, 0, len(entities))
	for _, e := range entities {
		stored := s.results[e.Identity()]
		copies := make([]*domain.ModuleResult, len(stored))
		for i, r := range stored {
			copies[i] = r.Clone()
		}
		sort.Slice(copies, func(i, j int) bool {
			return copies[i].ModuleID < copies[j].ModuleID
		})
		records = append(records, domain.EntityRecord{Entity: e, Results: copies})
	}

	sort.Slice(tasks, func(i, j int) bool {
		if tasks[i].Entity.Depth != tasks[j].Entity.Depth {
			return tasks[i].Entity.Depth < tasks[j].Entity.Depth
		}
		return tasks[i].Key() < tasks[j].Key()
	})
	sort.Slice(edges, func(i, j int) bool {
		return edges[i].At.Before(edges[j].At)
	})

	return &domain.Snapshot{
		InvestigationID: s.investigationID,
		Seed:            s.seed,
		StartedAt:       s.startedAt,
		TakenAt:         now,
		Entities:        records,
		Edges:           edges,
		Tasks:           tasks,
	}
}
