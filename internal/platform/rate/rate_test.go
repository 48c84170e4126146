package rate

import (
	"context"
	"testing"
	"time"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name       string
		rate       float64
		burst      int
		wantRate   float64
		wantBurst  int
		wantTokens float64
	}{
		{name: "valid rate and burst", rate: 10, burst: 5, wantRate: 10, wantBurst: 5, wantTokens: 5},
		{name: "zero rate defaults to 1", rate: 0, burst: 5, wantRate: 1, wantBurst: 5, wantTokens: 5},
		{name: "negative rate defaults to 1", rate: -5, burst: 5, wantRate: 1, wantBurst: 5, wantTokens: 5},
		{name: "zero burst defaults to 1", rate: 10, burst: 0, wantRate: 10, wantBurst: 1, wantTokens: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			limiter := New(tt.rate, tt.burst)
			if limiter.Rate() != tt.wantRate {
				t.Errorf("rate = %v, want %v", limiter.Rate(), tt.wantRate)
			}
			if limiter.Burst() != tt.wantBurst {
				t.Errorf("burst = %v, want %v", limiter.Burst(), tt.wantBurst)
			}
			if limiter.Tokens() < tt.wantTokens-0.01 {
				t.Errorf("tokens = %v, want %v", limiter.Tokens(), tt.wantTokens)
			}
		})
	}
}

func TestLimiter_Allow(t *testing.T) {
	t.Run("grants exactly burst immediate acquisitions", func(t *testing.T) {
		limiter := New(1, 5) // slow refill so the window stays clean

		for i := 0; i < 5; i++ {
			if !limiter.Allow() {
				t.Fatalf("acquisition %d within burst denied", i)
			}
		}
		if limiter.Allow() {
			t.Error("acquisition beyond burst granted")
		}
	})

	t.Run("refills tokens over time", func(t *testing.T) {
		limiter := New(10, 1) // 10 tokens/second, burst of 1

		if !limiter.Allow() {
			t.Fatal("first operation denied")
		}
		if limiter.Allow() {
			t.Fatal("empty bucket granted a token")
		}

		time.Sleep(150 * time.Millisecond) // > 1 token at 10/s

		if !limiter.Allow() {
			t.Error("token not refilled after waiting")
		}
	})
}

func TestLimiter_Wait(t *testing.T) {
	t.Run("waits for refill", func(t *testing.T) {
		limiter := New(20, 1)
		if !limiter.Allow() {
			t.Fatal("initial token denied")
		}

		start := time.Now()
		if err := limiter.Wait(context.Background()); err != nil {
			t.Fatal(err)
		}
		if elapsed := time.Since(start); elapsed < 20*time.Millisecond {
			t.Errorf("Wait returned too early: %v", elapsed)
		}
	})

	t.Run("honors context deadline", func(t *testing.T) {
		limiter := New(0.1, 1) // one token per 10s
		if !limiter.Allow() {
			t.Fatal("initial token denied")
		}

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()

		err := limiter.Wait(ctx)
		if err != context.DeadlineExceeded {
			t.Errorf("err = %v, want DeadlineExceeded", err)
		}
	})
}

func TestSourceKey(t *testing.T) {
	if got := SourceKey("shodan", "tor-0", true); got != "shodan" {
		t.Errorf("shared key = %q", got)
	}
	if got := SourceKey("shodan", "tor-0", false); got != "shodan@tor-0" {
		t.Errorf("per-identity key = %q", got)
	}
}

func TestTable(t *testing.T) {
	t.Run("buckets are shared per key", func(t *testing.T) {
		table := NewTable()
		a := table.Bucket("m", 1, 2)
		b := table.Bucket("m", 99, 99) // first-use parameters win
		if a != b {
			t.Error("same key returned distinct buckets")
		}
		if a.Rate() != 1 || a.Burst() != 2 {
			t.Error("first-use parameters were not retained")
		}
		if table.Len() != 1 {
			t.Errorf("len = %d", table.Len())
		}
	})

	t.Run("distinct identities get distinct buckets", func(t *testing.T) {
		table := NewTable()
		ctx := context.Background()

		// burst 1: the only token of the direct bucket
		if err := table.Acquire(ctx, SourceKey("m", "direct", false), 1, 1); err != nil {
			t.Fatal(err)
		}
		// rotating identity gives a fresh bucket, so this must not block
		done := make(chan error, 1)
		go func() { done <- table.Acquire(ctx, SourceKey("m", "tor-0", false), 1, 1) }()
		select {
		case err := <-done:
			if err != nil {
				t.Fatal(err)
			}
		case <-time.After(200 * time.Millisecond):
			t.Error("per-identity bucket blocked on sibling identity")
		}
	})

	t.Run("unlimited rate never blocks", func(t *testing.T) {
		table := NewTable()
		for i := 0; i < 100; i++ {
			if err := table.Acquire(context.Background(), "free", 0, 0); err != nil {
				t.Fatal(err)
			}
		}
		if table.Len() != 0 {
			t.Error("unlimited source should not allocate a bucket")
		}
	})
}
