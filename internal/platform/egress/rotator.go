package egress

import (
	"context"
	"sync"
	"time"

	"github.com/AzouC/Outils-Osintt/internal/platform/errors"
	"github.com/AzouC/Outils-Osintt/internal/platform/logx"
)

// unhealthyAfter is the consecutive-failure count that benches an identity.
const unhealthyAfter = 3

// Outcome reports how a leased identity performed.
type Outcome int

const (
	OutcomeSuccess Outcome = iota
	OutcomeFailure
)

// slot tracks the rotator's mutable view of one identity.
type slot struct {
	id *Identity

	consecutiveFails int
	unhealthyUntil   time.Time
	inFlight         int
	lastLeased       time.Time
}

// healthy reports whether the slot may be leased normally.
func (s *slot) healthy(now time.Time) bool {
	return now.After(s.unhealthyUntil)
}

// overCap reports whether the identity is at its concurrent-use cap.
func (s *slot) overCap() bool {
	return s.id.maxInFlight > 0 && s.inFlight >= s.id.maxInFlight
}

// Rotator hands out egress identities and tracks their health. Three
// consecutive failures bench an identity for the cooldown period, after
// which it is probed again. Injected into the scheduler at construction so
// concurrent runs never share throttling state by accident.
type Rotator struct {
	mu    sync.Mutex
	slots []*slot

	cooldown  time.Duration
	leaseWait time.Duration
	logger    logx.Logger
}

// RotatorOptions configures a Rotator.
type RotatorOptions struct {
	Identities []*Identity

	// Cooldown is how long an unhealthy identity stays benched.
	Cooldown time.Duration

	// LeaseWait bounds how long Lease blocks when no identity is healthy
	// before falling back to the least-unhealthy one.
	LeaseWait time.Duration

	Logger logx.Logger
}

// NewRotator creates a rotator over the given identity set.
func NewRotator(opts RotatorOptions) *Rotator {
	if opts.Cooldown <= 0 {
		opts.Cooldown = 60 * time.Second
	}
	if opts.LeaseWait <= 0 {
		opts.LeaseWait = 2 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = logx.New()
	}

	slots := make([]*slot, 0, len(opts.Identities))
	for _, id := range opts.Identities {
		slots = append(slots, &slot{id: id})
	}

	return &Rotator{
		slots:     slots,
		cooldown:  opts.Cooldown,
		leaseWait: opts.LeaseWait,
		logger:    opts.Logger.With("component", "egress-rotator"),
	}
}

// Lease returns the healthiest identity not over its concurrent-use cap,
// round-robin among equally healthy candidates (least recently leased
// first). If nothing is healthy it blocks up to LeaseWait, then returns the
// least-unhealthy identity rather than stalling the run.
func (r *Rotator) Lease(ctx context.Context) (*Identity, error) {
	if len(r.slots) == 0 {
		return nil, errors.New("no egress identities configured")
	}

	deadline := time.Now().Add(r.leaseWait)
	for {
		if id := r.tryLease(false); id != nil {
			return id, nil
		}

		if time.Now().After(deadline) {
			// degraded mode: hand out the least-unhealthy identity
			if id := r.tryLease(true); id != nil {
				r.logger.Warn("no healthy egress identity, leasing degraded", "identity", id.Name())
				return id, nil
			}
		}

		select {
		case <-ctx.Done():
			return nil, errors.Wrap(errors.ErrCapacity, "egress lease")
		case <-time.After(20 * time.Millisecond):
		}
	}
}

// tryLease picks a candidate under the lock. With degraded=true the
// cooldown is ignored and only the use cap still applies.
func (r *Rotator) tryLease(degraded bool) *Identity {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	var best *slot
	for _, s := range r.slots {
		if s.overCap() {
			continue
		}
		if !degraded && !s.healthy(now) {
			continue
		}
		if best == nil || betterCandidate(s, best) {
			best = s
		}
	}
	if best == nil {
		return nil
	}

	best.inFlight++
	best.lastLeased = now
	return best.id
}

// betterCandidate orders slots: fewer consecutive failures first, then
// least recently leased (the round-robin among equals).
func betterCandidate(a, b *slot) bool {
	if a.consecutiveFails != b.consecutiveFails {
		return a.consecutiveFails < b.consecutiveFails
	}
	return a.lastLeased.Before(b.lastLeased)
}

// Release returns a leased identity and records the outcome. A success
// clears the failure streak; the third consecutive failure benches the
// identity for the cooldown period.
func (r *Rotator) Release(id *Identity, outcome Outcome) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, s := range r.slots {
		if s.id != id {
			continue
		}
		if s.inFlight > 0 {
			s.inFlight--
		}

		switch outcome {
		case OutcomeSuccess:
			s.consecutiveFails = 0
		case OutcomeFailure:
			s.consecutiveFails++
			if s.consecutiveFails >= unhealthyAfter {
				s.unhealthyUntil = time.Now().Add(r.cooldown)
				// the post-cooldown lease is the probe; one more failure
				// benches it again immediately
				s.consecutiveFails = unhealthyAfter - 1
				r.logger.Warn("egress identity benched",
					"identity", id.Name(),
					"cooldown", r.cooldown.String(),
				)
			}
		}
		return
	}
}

// Healthy returns how many identities are currently leasable.
func (r *Rotator) Healthy() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	n := 0
	for _, s := range r.slots {
		if s.healthy(now) {
			n++
		}
	}
	return n
}

// Size returns the total number of identities.
func (r *Rotator) Size() int {
	return len(r.slots)
}
