package usecases

import (
	"context"
	stderrors "errors"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/AzouC/Outils-Osintt/internal/core/domain"
	"github.com/AzouC/Outils-Osintt/internal/core/ports"
	"github.com/AzouC/Outils-Osintt/internal/platform/cache"
	"github.com/AzouC/Outils-Osintt/internal/platform/egress"
	"github.com/AzouC/Outils-Osintt/internal/platform/errors"
	"github.com/AzouC/Outils-Osintt/internal/platform/logx"
	"github.com/AzouC/Outils-Osintt/internal/platform/rate"
	"github.com/AzouC/Outils-Osintt/internal/platform/registry"
	"github.com/AzouC/Outils-Osintt/internal/platform/resilience"
)

// idlePoll is how often an idle worker re-checks the queue.
const idlePoll = 5 * time.Millisecond

// SchedulerOptions carries the run-level knobs.
type SchedulerOptions struct {
	// MaxDepth bounds recursive expansion; the seed is depth 0.
	MaxDepth int

	// Concurrency is the worker pool size.
	Concurrency int

	// MaxAttempts is the total dispatch count per task, retries included.
	MaxAttempts int

	// BackoffBase is the delay before the first retry; each further retry
	// multiplies it by BackoffMultiplier plus up to JitterFraction of
	// random spread.
	BackoffBase       time.Duration
	BackoffMultiplier float64
	JitterFraction    float64

	// Breaker* configure the admission circuit breaker: consecutive
	// internal faults to open, how long it stays open, and how many probes
	// half-open allows.
	BreakerThreshold   int
	BreakerTimeout     time.Duration
	BreakerHalfOpenMax int

	// RunTimeout bounds the whole run (0 = unbounded).
	RunTimeout time.Duration
}

func (o *SchedulerOptions) applyDefaults() {
	if o.MaxDepth <= 0 {
		o.MaxDepth = 1
	}
	if o.Concurrency <= 0 {
		o.Concurrency = 5
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = 3
	}
	if o.BackoffBase <= 0 {
		o.BackoffBase = 500 * time.Millisecond
	}
	if o.BackoffMultiplier < 1 {
		o.BackoffMultiplier = 2
	}
	if o.JitterFraction < 0 || o.JitterFraction >= 1 {
		o.JitterFraction = 0.5
	}
	if o.BreakerThreshold <= 0 {
		o.BreakerThreshold = 5
	}
	if o.BreakerTimeout <= 0 {
		o.BreakerTimeout = 60 * time.Second
	}
	if o.BreakerHalfOpenMax <= 0 {
		o.BreakerHalfOpenMax = 3
	}
}

// Scheduler drives one investigation: it seeds the task graph, fans tasks
// out to a fixed worker pool, and routes every dispatch through the cache,
// the rate table and the egress rotator in that order. Modules only ever
// see a context, an entity and the identity they were leased.
type Scheduler struct {
	modules *registry.ModuleSet
	rotator *egress.Rotator
	store   cache.Store
	rates   *rate.Table
	breaker *resilience.CircuitBreaker
	logger  logx.Logger
	opts    SchedulerOptions

	// sems caps per-module in-flight tasks, keyed by module ID. Only
	// modules with MaxConcurrent > 0 get one.
	sems map[string]*semaphore.Weighted

	rngMu sync.Mutex
	rng   *rand.Rand
}

// NewScheduler wires a scheduler. store may be nil to disable caching.
func NewScheduler(modules *registry.ModuleSet, rotator *egress.Rotator, store cache.Store, logger logx.Logger, opts SchedulerOptions) *Scheduler {
	opts.applyDefaults()
	if logger == nil {
		logger = logx.New()
	}

	sems := make(map[string]*semaphore.Weighted)
	if modules != nil {
		for _, id := range modules.Names() {
			if limit := modules.Config(id).MaxConcurrent; limit > 0 {
				sems[id] = semaphore.NewWeighted(int64(limit))
			}
		}
	}

	return &Scheduler{
		modules: modules,
		rotator: rotator,
		store:   store,
		rates:   rate.NewTable(),
		breaker: resilience.NewCircuitBreaker(opts.BreakerThreshold, opts.BreakerTimeout, opts.BreakerHalfOpenMax),
		logger:  logger.With("component", "scheduler"),
		opts:    opts,
		sems:    sems,
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Run executes one investigation from seed and returns the accumulated
// results. On cancellation or run timeout the partial results are returned
// together with the corresponding sentinel; queued tasks are settled as
// Failed so the task ledger stays complete.
func (s *Scheduler) Run(ctx context.Context, seed domain.Entity) (*ResultStore, error) {
	if s.modules == nil || s.modules.Len() == 0 {
		return nil, domain.ErrNoModulesAvailable
	}

	if s.opts.RunTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.RunTimeout)
		defer cancel()
	}

	now := time.Now()
	graph := NewTaskGraph(s.opts.MaxDepth, s.modules.Capable)
	results := NewResultStore(domain.NewInvestigationID(now), seed, now, graph)

	if graph.Discover(seed, 0, nil, now) != OutcomeNewTasks {
		return results, errors.Wrapf(domain.ErrNoModulesAvailable, "no module claims kind %s", seed.Kind)
	}

	s.logger.Info("investigation started",
		"id", results.InvestigationID(),
		"seed", seed.Identity(),
		"max_depth", s.opts.MaxDepth,
		"workers", s.opts.Concurrency,
	)

	g, runCtx := errgroup.WithContext(ctx)
	for i := 0; i < s.opts.Concurrency; i++ {
		g.Go(func() error {
			s.worker(runCtx, graph, results)
			return nil
		})
	}
	_ = g.Wait()

	var runErr error
	if err := ctx.Err(); err != nil {
		reason := "run cancelled"
		runErr = domain.ErrRunCancelled
		if stderrors.Is(err, context.DeadlineExceeded) {
			reason = "run deadline exceeded"
			runErr = domain.ErrRunTimeout
		}
		if n := graph.FailPending(reason, time.Now()); n > 0 {
			s.logger.Warn("run stopped with queued tasks", "reason", reason, "failed", n)
		}
	}

	snap := results.Snapshot(time.Now())
	counts := snap.Counts()
	s.logger.Info("investigation finished",
		"id", results.InvestigationID(),
		"entities", len(snap.Entities),
		"edges", len(snap.Edges),
		"succeeded", counts[domain.TaskSucceeded],
		"failed", counts[domain.TaskFailed],
		"findings", snap.FindingCount(),
	)
	return results, runErr
}

// worker pulls tasks until the graph quiesces or the run stops. Idle
// workers poll: another worker's in-flight task may still discover new
// entities, so an empty queue alone does not end the run.
func (s *Scheduler) worker(ctx context.Context, graph *TaskGraph, results *ResultStore) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		task := graph.Next(time.Now())
		if task == nil {
			if graph.Quiescent() {
				return
			}
			select {
			case <-ctx.Done():
				return
			case <-time.After(idlePoll):
			}
			continue
		}

		s.execute(ctx, task, graph, results)
	}
}

// execute settles one running task: cache consult, then up to MaxAttempts
// dispatches with backoff between transient failures.
func (s *Scheduler) execute(ctx context.Context, task *domain.Task, graph *TaskGraph, results *ResultStore) {
	log := s.logger.With("module", task.ModuleID, "entity", task.Entity.Identity(), "depth", task.Entity.Depth)

	if !s.breaker.Allow() {
		graph.Fail(task, domain.ErrAdmissionStopped.Error(), time.Now())
		return
	}

	mod, ok := s.modules.Module(task.ModuleID)
	if !ok {
		// a task was admitted for a module the set never built; that is an
		// internal fault, not a module failure
		s.breaker.RecordFailure()
		graph.Fail(task, "module not built: "+task.ModuleID, time.Now())
		return
	}
	cfg := s.modules.Config(task.ModuleID)

	if s.store != nil && cfg.CacheTTL > 0 {
		if cached, hit := s.store.Get(task.ModuleID, task.Entity); hit {
			log.Debug("cache hit")
			graph.SucceedFromCache(task, time.Now())
			s.absorb(task, cached, graph, results)
			s.breaker.RecordSuccess()
			return
		}
	}

	var lastErr error
	for attempt := 1; attempt <= s.opts.MaxAttempts; attempt++ {
		graph.RecordAttempt(task)

		result, err := s.dispatch(ctx, task, mod, cfg)
		if err == nil {
			if s.store != nil && cfg.CacheTTL > 0 {
				s.store.Put(task.ModuleID, task.Entity, result, cfg.CacheTTL)
			}
			graph.Succeed(task, time.Now())
			s.absorb(task, result, graph, results)
			s.breaker.RecordSuccess()
			return
		}
		lastErr = err

		class := errors.Classify(err)
		if ctx.Err() != nil {
			// the run stopped while this attempt was in flight; whatever the
			// module reported, the real cause is the stop signal
			class = errors.ClassCancelled
		}

		switch class {
		case errors.ClassCancelled:
			graph.Fail(task, "run cancelled", time.Now())
			return
		case errors.ClassCapacity:
			log.Warn("task starved before dispatch", "error", err.Error())
			graph.Fail(task, err.Error(), time.Now())
			return
		case errors.ClassTransient:
			if attempt == s.opts.MaxAttempts {
				break
			}
			delay := s.backoff(attempt)
			log.Debug("transient failure, retrying",
				"attempt", attempt,
				"backoff", delay.String(),
				"error", err.Error(),
			)
			select {
			case <-ctx.Done():
				graph.Fail(task, "run cancelled", time.Now())
				return
			case <-time.After(delay):
			}
		default: // permanent
			log.Debug("permanent failure", "error", err.Error())
			graph.Fail(task, err.Error(), time.Now())
			return
		}
	}

	log.Warn("retries exhausted", "attempts", s.opts.MaxAttempts, "error", lastErr.Error())
	graph.Fail(task, "retries exhausted: "+lastErr.Error(), time.Now())
}

// dispatch performs a single module invocation: module slot, egress lease,
// rate token, invoke. Each attempt leases afresh, so a retry naturally
// rotates to the healthiest identity available at that moment.
func (s *Scheduler) dispatch(ctx context.Context, task *domain.Task, mod ports.Module, cfg ports.ModuleConfig) (*domain.ModuleResult, error) {
	taskCtx := ctx
	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		taskCtx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	if sem := s.sems[task.ModuleID]; sem != nil {
		if err := sem.Acquire(taskCtx, 1); err != nil {
			return nil, errors.Wrap(errors.ErrCapacity, "module slot")
		}
		defer sem.Release(1)
	}

	identity, err := s.rotator.Lease(taskCtx)
	if err != nil {
		return nil, err
	}

	key := rate.SourceKey(task.ModuleID, identity.Name(), cfg.SharedBucket)
	if err := s.rates.Acquire(taskCtx, key, cfg.RateLimit, cfg.Burst); err != nil {
		// starving on our own limiter says nothing about the identity
		s.rotator.Release(identity, egress.OutcomeSuccess)
		return nil, errors.Wrap(errors.ErrCapacity, "rate token")
	}

	result, err := mod.Investigate(taskCtx, task.Entity, identity)
	if err != nil {
		outcome := egress.OutcomeSuccess
		if errors.IsTransient(err) {
			// only network-shaped failures count against identity health
			outcome = egress.OutcomeFailure
		}
		s.rotator.Release(identity, outcome)
		return nil, err
	}
	if result == nil {
		s.rotator.Release(identity, egress.OutcomeSuccess)
		return nil, errors.Wrapf(errors.ErrInvalidInput, "module %s returned no result", task.ModuleID)
	}

	s.rotator.Release(identity, egress.OutcomeSuccess)
	return result, nil
}

// absorb stores a settled task's result and feeds its discoveries back into
// the graph one level deeper than the parent.
func (s *Scheduler) absorb(task *domain.Task, result *domain.ModuleResult, graph *TaskGraph, results *ResultStore) {
	results.Append(task.Entity, result)

	now := time.Now()
	parent := &Parent{Entity: task.Entity, ModuleID: task.ModuleID}
	for _, child := range result.Discovered {
		if child.Same(task.Entity) {
			continue // modules occasionally echo their input back
		}
		outcome := graph.Discover(child, task.Entity.Depth+1, parent, now)
		if outcome == OutcomeDepthExceeded {
			s.logger.Debug("discovery beyond depth limit",
				"child", child.Identity(),
				"parent", task.Entity.Identity(),
			)
		}
	}
}

// backoff computes the delay before retry number attempt (1-based), with
// multiplicative growth and bounded positive jitter. Growth always outruns
// the jitter spread, so consecutive delays strictly increase.
func (s *Scheduler) backoff(attempt int) time.Duration {
	d := float64(s.opts.BackoffBase)
	for i := 1; i < attempt; i++ {
		d *= s.opts.BackoffMultiplier
	}

	s.rngMu.Lock()
	jitter := s.rng.Float64()
	s.rngMu.Unlock()

	return time.Duration(d * (1 + s.opts.JitterFraction*jitter))
}
