package resilience

import (
	"testing"
	"time"
)

func TestBreakerOpensAtThreshold(t *testing.T) {
	cb := NewCircuitBreaker(3, time.Minute, 2)

	if !cb.Allow() {
		t.Fatal("fresh breaker must allow")
	}
	cb.RecordFailure()
	cb.RecordFailure()
	if cb.State() != StateClosed {
		t.Fatal("breaker opened below threshold")
	}
	cb.RecordFailure()
	if cb.State() != StateOpen {
		t.Fatal("breaker did not open at threshold")
	}
	if cb.Allow() {
		t.Error("open breaker allowed admission")
	}
}

func TestSuccessResetsFailureStreak(t *testing.T) {
	cb := NewCircuitBreaker(3, time.Minute, 2)

	cb.RecordFailure()
	cb.RecordFailure()
	cb.RecordSuccess()
	cb.RecordFailure()
	cb.RecordFailure()
	if cb.State() != StateClosed {
		t.Error("non-consecutive failures should not open the breaker")
	}
}

func TestHalfOpenRecovery(t *testing.T) {
	cb := NewCircuitBreaker(1, 20*time.Millisecond, 2)

	cb.RecordFailure()
	if cb.State() != StateOpen {
		t.Fatal("breaker should be open")
	}

	time.Sleep(40 * time.Millisecond)

	if !cb.Allow() {
		t.Fatal("timeout elapsed, probe should be allowed")
	}
	if cb.State() != StateHalfOpen {
		t.Fatalf("state = %v, want half-open", cb.State())
	}

	cb.RecordSuccess()
	cb.RecordSuccess()
	if cb.State() != StateClosed {
		t.Error("enough half-open successes should close the breaker")
	}
}

func TestHalfOpenFailureReopens(t *testing.T) {
	cb := NewCircuitBreaker(1, 20*time.Millisecond, 3)

	cb.RecordFailure()
	time.Sleep(40 * time.Millisecond)
	if !cb.Allow() {
		t.Fatal("probe should be allowed")
	}

	cb.RecordFailure()
	if cb.State() != StateOpen {
		t.Error("half-open failure should reopen the breaker")
	}
}

func TestHalfOpenProbeCap(t *testing.T) {
	cb := NewCircuitBreaker(1, 10*time.Millisecond, 2)

	cb.RecordFailure()
	time.Sleep(30 * time.Millisecond)

	allowed := 0
	for i := 0; i < 5; i++ {
		if cb.Allow() {
			allowed++
			// a probe is in flight but has not settled yet
			cb.RecordSuccess()
		}
	}
	// two probes settle successfully and close the circuit, after which
	// admissions flow normally again
	if cb.State() != StateClosed {
		t.Errorf("state = %v, want closed", cb.State())
	}
	if allowed < 2 {
		t.Errorf("allowed = %d, want at least the half-open probes", allowed)
	}
}
