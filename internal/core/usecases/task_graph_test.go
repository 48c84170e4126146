package usecases

import (
	"testing"
	"time"

	"github.com/AzouC/Outils-Osintt/internal/core/domain"
	"github.com/AzouC/Outils-Osintt/internal/testutil"
)

func mustEntity(t *testing.T, kind domain.EntityKind, value string, depth int) domain.Entity {
	t.Helper()
	e, err := domain.NewEntity(kind, value, depth)
	if err != nil {
		t.Fatalf("NewEntity(%s, %q): %v", kind, value, err)
	}
	return e
}

// capableAll maps every kind to the same fixed module list.
func capableAll(ids ...string) func(domain.EntityKind) []string {
	return func(domain.EntityKind) []string { return ids }
}

func TestTaskGraphSeedCreatesTasks(t *testing.T) {
	g := NewTaskGraph(2, capableAll("alpha", "beta"))
	seed := mustEntity(t, domain.KindEmail, "jane@example.com", 0)

	outcome := g.Discover(seed, 0, nil, time.Now())

	testutil.AssertEqual(t, outcome, OutcomeNewTasks, "seed discovery")
	testutil.AssertEqual(t, g.EntityCount(), 1, "entity count")
	testutil.AssertEqual(t, g.EdgeCount(), 0, "seed has no edge")
	testutil.AssertEqual(t, len(g.Tasks()), 2, "one task per capable module")
}

func TestTaskGraphDuplicateDiscoveryAddsEdgeOnly(t *testing.T) {
	g := NewTaskGraph(3, capableAll("alpha"))
	now := time.Now()

	parentA := mustEntity(t, domain.KindEmail, "a@example.com", 0)
	parentB := mustEntity(t, domain.KindEmail, "b@example.com", 0)
	child := mustEntity(t, domain.KindDomain, "example.com", 0)

	g.Discover(parentA, 0, nil, now)
	g.Discover(parentB, 0, nil, now)

	first := g.Discover(child, 1, &Parent{Entity: parentA, ModuleID: "alpha"}, now)
	second := g.Discover(child, 1, &Parent{Entity: parentB, ModuleID: "alpha"}, now)

	testutil.AssertEqual(t, first, OutcomeNewTasks, "first discovery")
	testutil.AssertEqual(t, second, OutcomeAlreadyKnown, "second discovery")
	testutil.AssertEqual(t, g.EdgeCount(), 2, "both discovery edges recorded")

	// one task per (entity, module) no matter how many parents found it
	childTasks := 0
	for _, task := range g.Tasks() {
		if task.Entity.Same(child) {
			childTasks++
		}
	}
	testutil.AssertEqual(t, childTasks, 1, "child task count")
}

func TestTaskGraphDepthBound(t *testing.T) {
	g := NewTaskGraph(1, capableAll("alpha"))
	now := time.Now()

	seed := mustEntity(t, domain.KindEmail, "jane@example.com", 0)
	child := mustEntity(t, domain.KindDomain, "example.com", 0)
	grandchild := mustEntity(t, domain.KindDomain, "deep.example.com", 0)

	g.Discover(seed, 0, nil, now)
	g.Discover(child, 1, &Parent{Entity: seed, ModuleID: "alpha"}, now)
	outcome := g.Discover(grandchild, 2, &Parent{Entity: child, ModuleID: "alpha"}, now)

	testutil.AssertEqual(t, outcome, OutcomeDepthExceeded, "beyond-limit discovery")
	testutil.AssertEqual(t, g.EntityCount(), 2, "entities stay depth-bounded")
	testutil.AssertEqual(t, g.DepthRejected(), 1, "rejection counted")

	for _, task := range g.Tasks() {
		if task.Entity.Depth > 1 {
			t.Errorf("task admitted beyond depth limit: %s", task.String())
		}
	}
}

func TestTaskGraphMinDepthWins(t *testing.T) {
	g := NewTaskGraph(3, capableAll("alpha"))
	now := time.Now()

	seed := mustEntity(t, domain.KindEmail, "jane@example.com", 0)
	shallow := mustEntity(t, domain.KindDomain, "mid.example.com", 0)
	target := mustEntity(t, domain.KindDomain, "target.example.com", 0)

	g.Discover(seed, 0, nil, now)
	g.Discover(shallow, 1, &Parent{Entity: seed, ModuleID: "alpha"}, now)

	// first seen deep, then rediscovered shallower
	g.Discover(target, 2, &Parent{Entity: shallow, ModuleID: "alpha"}, now)
	outcome := g.Discover(target, 1, &Parent{Entity: seed, ModuleID: "alpha"}, now)

	testutil.AssertEqual(t, outcome, OutcomeNewTasks, "shallower rediscovery lowers depth")

	depth, known := g.Depth(target)
	testutil.AssertTrue(t, known, "target recorded")
	testutil.AssertEqual(t, depth, 1, "minimum depth retained")

	// the pending task expands descendants from the lowered depth
	for _, task := range g.Tasks() {
		if task.Entity.Same(target) {
			testutil.AssertEqual(t, task.Entity.Depth, 1, "pending task depth lowered")
		}
	}
}

func TestTaskGraphNextAndSettle(t *testing.T) {
	g := NewTaskGraph(1, capableAll("alpha"))
	now := time.Now()
	seed := mustEntity(t, domain.KindEmail, "jane@example.com", 0)
	g.Discover(seed, 0, nil, now)

	task := g.Next(now)
	if task == nil {
		t.Fatal("expected a runnable task")
	}
	testutil.AssertEqual(t, task.Status, domain.TaskRunning, "task started")
	testutil.AssertFalse(t, g.Quiescent(), "running task keeps graph active")

	if g.Next(now) != nil {
		t.Error("no second task should be runnable")
	}

	g.Succeed(task, now.Add(time.Millisecond))
	testutil.AssertEqual(t, task.Status, domain.TaskSucceeded, "task settled")
	testutil.AssertTrue(t, g.Quiescent(), "graph quiesces once everything settles")
}

func TestTaskGraphFailPending(t *testing.T) {
	g := NewTaskGraph(1, capableAll("alpha", "beta", "gamma"))
	now := time.Now()
	seed := mustEntity(t, domain.KindEmail, "jane@example.com", 0)
	g.Discover(seed, 0, nil, now)

	running := g.Next(now)
	failed := g.FailPending("run cancelled", now)

	testutil.AssertEqual(t, failed, 2, "queued tasks settled")
	testutil.AssertEqual(t, running.Status, domain.TaskRunning, "running task untouched")

	g.Fail(running, "run cancelled", now)
	testutil.AssertTrue(t, g.Quiescent(), "graph quiesces after cancellation")

	for _, task := range g.Tasks() {
		testutil.AssertEqual(t, task.Status, domain.TaskFailed, "task "+task.ModuleID)
		testutil.AssertEqual(t, task.Reason, "run cancelled", "reason "+task.ModuleID)
	}
}

func TestTaskGraphSucceedFromCache(t *testing.T) {
	g := NewTaskGraph(1, capableAll("alpha"))
	now := time.Now()
	seed := mustEntity(t, domain.KindEmail, "jane@example.com", 0)
	g.Discover(seed, 0, nil, now)

	task := g.Next(now)
	g.SucceedFromCache(task, now)

	testutil.AssertEqual(t, task.Status, domain.TaskSucceeded, "status")
	testutil.AssertTrue(t, task.FromCache, "from-cache flag")
	testutil.AssertEqual(t, task.Attempts, 0, "no dispatch happened")
}
