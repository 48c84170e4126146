// Package ports defines the interfaces between the investigation core and
// its external collaborators: capability providers (modules) and output
// sinks (exporters).
package ports

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/AzouC/Outils-Osintt/internal/core/domain"
)

// Egress is the network identity a module must send its traffic through:
// a direct connection, a SOCKS5 proxy, or an anonymizing circuit. The
// scheduler leases one per dispatch; modules never choose their own path.
type Egress interface {
	// Name identifies the identity for logging and rate-bucket keying.
	Name() string

	// DialContext opens a raw connection through this identity.
	DialContext(ctx context.Context, network, addr string) (net.Conn, error)

	// HTTPClient returns an HTTP client routed through this identity.
	HTTPClient(timeout time.Duration) *http.Client
}

// Module is the primary port for all capability providers. The core never
// knows how a module gathers intelligence; it only fans entities out to
// every module that claims the entity's kind.
type Module interface {
	// Name returns the unique module identifier (e.g. "emailintel").
	Name() string

	// Supports reports whether the module can expand entities of the kind.
	Supports(kind domain.EntityKind) bool

	// Investigate expands one entity through the given egress identity.
	// The per-task timeout arrives as the context deadline. Errors must be
	// classified (platform/errors.WithClass or the package sentinels) so
	// the scheduler applies the right retry policy.
	Investigate(ctx context.Context, entity domain.Entity, egress Egress) (*domain.ModuleResult, error)

	// Close releases any resources held by the module.
	Close() error
}

// ModuleConfig carries the per-module knobs the core consumes. Parsing and
// credential loading happen outside the core.
type ModuleConfig struct {
	// Enabled toggles the module without unregistering it.
	Enabled bool

	// Timeout is the per-task execution limit.
	Timeout time.Duration

	// RateLimit is the token refill rate in requests per second
	// (0 = unlimited).
	RateLimit float64

	// Burst is the rate bucket capacity.
	Burst int

	// MaxConcurrent caps in-flight tasks for this module across the whole
	// run (0 = only the global worker pool bounds it).
	MaxConcurrent int

	// SharedBucket ties the rate limit to the destination regardless of
	// egress identity. When false, each (module, identity) pair gets its
	// own bucket, so rotating identities regains throughput.
	SharedBucket bool

	// CacheTTL controls cross-run reuse of this module's results
	// (0 = do not cache).
	CacheTTL time.Duration

	// Priority orders module invocation when several apply to one kind.
	Priority int

	// Custom holds module-specific settings.
	Custom map[string]interface{}
}

// DefaultModuleConfig returns the defaults applied to registered modules.
func DefaultModuleConfig() ModuleConfig {
	return ModuleConfig{
		Enabled:      true,
		Timeout:      30 * time.Second,
		RateLimit:    2,
		Burst:        4,
		SharedBucket: true,
		CacheTTL:     12 * time.Hour,
		Priority:     5,
		Custom:       make(map[string]interface{}),
	}
}

// ModuleMetadata describes a registered module.
type ModuleMetadata struct {
	Name        string
	Description string

	// Kinds lists the entity kinds the module claims.
	Kinds []domain.EntityKind

	// Priority is the default invocation priority (higher runs first).
	Priority int

	// SharedBucket is the module's declared rate-bucket scope default.
	SharedBucket bool
}
