// Package usecases implements the investigation core: the depth-bounded
// expansion graph, the bounded-concurrency scheduler that drives it, and
// the result accumulation exposed to exporters.
package usecases

import (
	"sync"
	"time"

	"github.com/AzouC/Outils-Osintt/internal/core/domain"
)

// DiscoverOutcome reports what a discovery did to the graph.
type DiscoverOutcome int

const (
	// OutcomeNewTasks: the entity was unknown (or rediscovered shallower
	// than before) and tasks were enqueued for capable modules.
	OutcomeNewTasks DiscoverOutcome = iota

	// OutcomeAlreadyKnown: the entity was already recorded at an equal or
	// lower depth; only an edge was added.
	OutcomeAlreadyKnown

	// OutcomeDepthExceeded: the discovery lies beyond the depth limit and
	// was dropped.
	OutcomeDepthExceeded
)

// Parent identifies the task that produced a discovery.
type Parent struct {
	Entity   domain.Entity
	ModuleID string
}

// TaskGraph is the recursive expansion state machine. Nodes are entities,
// edges are discovered-by relations, and each (entity, module) pair is
// admitted as a task at most once per run regardless of how many parents
// rediscover the entity. Rediscovery at a shallower depth lowers the
// recorded depth instead of re-enqueueing, which turns potential discovery
// cycles into a strictly depth-bounded acyclic expansion.
//
// Only the scheduler mutates the graph; modules just return discovery
// lists.
type TaskGraph struct {
	mu sync.Mutex

	maxDepth int
	capable  func(domain.EntityKind) []string

	// bestDepth indexes each known entity identity to its minimum observed
	// depth. A boolean visited-set would lose the ability to lower depths.
	bestDepth map[string]int
	entities  map[string]domain.Entity

	tasks   map[string]*domain.Task // admission index, keyed by TaskKey
	pending []*domain.Task          // FIFO queue of runnable tasks
	running int

	edges []domain.Edge

	// depthRejected counts discoveries dropped by the depth bound.
	depthRejected int
}

// NewTaskGraph creates an empty graph. capable maps an entity kind to the
// module IDs that claim it, in invocation order.
func NewTaskGraph(maxDepth int, capable func(domain.EntityKind) []string) *TaskGraph {
	if maxDepth < 0 {
		maxDepth = 0
	}
	return &TaskGraph{
		maxDepth:  maxDepth,
		capable:   capable,
		bestDepth: make(map[string]int),
		entities:  make(map[string]domain.Entity),
		tasks:     make(map[string]*domain.Task),
	}
}

// Discover records that parent found entity at the given depth. The seed is
// discovered with parent == nil at depth 0.
func (g *TaskGraph) Discover(entity domain.Entity, atDepth int, parent *Parent, now time.Time) DiscoverOutcome {
	g.mu.Lock()
	defer g.mu.Unlock()

	if atDepth > g.maxDepth {
		g.depthRejected++
		return OutcomeDepthExceeded
	}

	identity := entity.Identity()
	placed := entity.AtDepth(atDepth)

	known, exists := g.bestDepth[identity]

	if parent != nil {
		g.edges = append(g.edges, domain.Edge{
			Parent:   parent.Entity,
			Child:    placed,
			ModuleID: parent.ModuleID,
			At:       now,
		})
	}

	if exists && known <= atDepth {
		// duplicate discovery at an equal or deeper level: the edge above
		// keeps the graph complete, but no new work is admitted
		return OutcomeAlreadyKnown
	}

	g.bestDepth[identity] = atDepth
	g.entities[identity] = placed

	if exists {
		// rediscovered shallower: lower the depth on still-pending tasks so
		// descendants expand from the minimum depth
		for _, t := range g.tasks {
			if t.Entity.Identity() == identity && t.Status == domain.TaskPending {
				t.Entity = t.Entity.AtDepth(atDepth)
			}
		}
		return OutcomeNewTasks
	}

	enqueued := false
	for _, moduleID := range g.capable(entity.Kind) {
		key := domain.TaskKey(placed, moduleID)
		if _, dup := g.tasks[key]; dup {
			continue
		}
		task := domain.NewTask(placed, moduleID)
		g.tasks[key] = task
		g.pending = append(g.pending, task)
		enqueued = true
	}

	if !enqueued {
		return OutcomeAlreadyKnown
	}
	return OutcomeNewTasks
}

// Next pops the next runnable task and transitions it to Running. Returns
// nil when no pending task exists. The pop and the transition are atomic so
// quiescence checks never race a half-claimed task.
func (g *TaskGraph) Next(now time.Time) *domain.Task {
	g.mu.Lock()
	defer g.mu.Unlock()

	for len(g.pending) > 0 {
		task := g.pending[0]
		g.pending = g.pending[1:]
		if task.Status != domain.TaskPending {
			continue // settled while queued (cancellation)
		}
		if err := task.Start(now); err != nil {
			continue
		}
		g.running++
		return task
	}
	return nil
}

// RecordAttempt bumps a task's dispatch counter. Goes through the graph
// lock so snapshot copies never race the write.
func (g *TaskGraph) RecordAttempt(task *domain.Task) {
	g.mu.Lock()
	defer g.mu.Unlock()
	task.Attempts++
}

// Succeed settles a running task as Succeeded.
func (g *TaskGraph) Succeed(task *domain.Task, now time.Time) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if task.Status == domain.TaskRunning {
		g.running--
	}
	_ = task.Succeed(now)
}

// SucceedFromCache settles a running task as Succeeded without a dispatch,
// marking it as served from cache.
func (g *TaskGraph) SucceedFromCache(task *domain.Task, now time.Time) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if task.Status == domain.TaskRunning {
		g.running--
	}
	task.FromCache = true
	_ = task.Succeed(now)
}

// Fail settles a task as Failed with a reason.
func (g *TaskGraph) Fail(task *domain.Task, reason string, now time.Time) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if task.Status == domain.TaskRunning {
		g.running--
	}
	_ = task.Fail(now, reason)
}

// Skip settles a pending task without execution.
func (g *TaskGraph) Skip(task *domain.Task, reason string, now time.Time) {
	g.mu.Lock()
	defer g.mu.Unlock()
	_ = task.Skip(now, reason)
}

// FailPending settles every still-pending task as Failed with the given
// reason. Used on run cancellation so queued work is accounted for rather
// than silently dropped.
func (g *TaskGraph) FailPending(reason string, now time.Time) int {
	g.mu.Lock()
	defer g.mu.Unlock()

	n := 0
	for _, t := range g.tasks {
		if t.Status == domain.TaskPending {
			_ = t.Fail(now, reason)
			n++
		}
	}
	g.pending = nil
	return n
}

// Quiescent reports whether no Pending or Running task remains; the run is
// complete when it does.
func (g *TaskGraph) Quiescent() bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.running > 0 {
		return false
	}
	for _, t := range g.tasks {
		if !t.Status.Terminal() {
			return false
		}
	}
	return true
}

// EntityCount returns the number of recorded entity nodes.
func (g *TaskGraph) EntityCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.entities)
}

// EdgeCount returns the number of recorded discovery edges.
func (g *TaskGraph) EdgeCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.edges)
}

// DepthRejected returns how many discoveries the depth bound dropped.
func (g *TaskGraph) DepthRejected() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.depthRejected
}

// Depth returns the best-known depth of an entity.
func (g *TaskGraph) Depth(entity domain.Entity) (int, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	d, ok := g.bestDepth[entity.Identity()]
	return d, ok
}

// Entities returns a copy of all recorded entity nodes at their best depth.
func (g *TaskGraph) Entities() []domain.Entity {
	g.mu.Lock()
	defer g.mu.Unlock()

	out := make([]domain.Entity, 0, len(g.entities))
	for _, e := range g.entities {
		out = append(out, e)
	}
	return out
}

// Edges returns a copy of all recorded edges.
func (g *TaskGraph) Edges() []domain.Edge {
	g.mu.Lock()
	defer g.mu.Unlock()

	out := make([]domain.Edge, len(g.edges))
	copy(out, g.edges)
	return out
}

// Tasks returns a value copy of every task.
func (g *TaskGraph) Tasks() []domain.Task {
	g.mu.Lock()
	defer g.mu.Unlock()

	out := make([]domain.Task, 0, len(g.tasks))
	for _, t := range g.tasks {
		out = append(out, *t)
	}
	return out
}
