package testutil

import (
	"context"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/AzouC/Outils-Osintt/internal/core/domain"
	"github.com/AzouC/Outils-Osintt/internal/core/ports"
)

// MockModule is a configurable capability provider. It records every
// dispatch so tests can assert the at-most-once admission property.
type MockModule struct {
	ModuleName string
	Kinds      []domain.EntityKind

	// InvestigateFunc overrides the default behavior (empty result, nil
	// error) when set.
	InvestigateFunc func(ctx context.Context, entity domain.Entity, egress ports.Egress) (*domain.ModuleResult, error)

	// Delay simulates network latency before each dispatch settles.
	Delay time.Duration

	mu    sync.Mutex
	calls []domain.Entity
}

// NewMockModule creates a mock claiming the given kinds.
func NewMockModule(name string, kinds ...domain.EntityKind) *MockModule {
	return &MockModule{ModuleName: name, Kinds: kinds}
}

func (m *MockModule) Name() string { return m.ModuleName }

func (m *MockModule) Supports(kind domain.EntityKind) bool {
	for _, k := range m.Kinds {
		if k == kind {
			return true
		}
	}
	return false
}

func (m *MockModule) Investigate(ctx context.Context, entity domain.Entity, egress ports.Egress) (*domain.ModuleResult, error) {
	m.mu.Lock()
	m.calls = append(m.calls, entity)
	m.mu.Unlock()

	if m.Delay > 0 {
		select {
		case <-time.After(m.Delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if m.InvestigateFunc != nil {
		return m.InvestigateFunc(ctx, entity, egress)
	}
	return domain.NewModuleResult(m.ModuleName), nil
}

func (m *MockModule) Close() error { return nil }

// Calls returns a copy of the dispatched entities, in order.
func (m *MockModule) Calls() []domain.Entity {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.Entity, len(m.calls))
	copy(out, m.calls)
	return out
}

// CallCount returns the number of dispatches.
func (m *MockModule) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// CallsFor returns how many times a specific entity was dispatched,
// ignoring depth.
func (m *MockModule) CallsFor(entity domain.Entity) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.calls {
		if c.Same(entity) {
			n++
		}
	}
	return n
}

// MockEgress is an egress identity that performs no real network work.
type MockEgress struct {
	IdentityName string
}

func (m *MockEgress) Name() string {
	if m.IdentityName == "" {
		return "mock"
	}
	return m.IdentityName
}

func (m *MockEgress) DialContext(ctx context.Context, network, addr string) (net.Conn, error) {
	return nil, net.ErrClosed
}

func (m *MockEgress) HTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{Timeout: timeout}
}
