// Package registry implements registration and construction of
// intelligence modules. It follows the registry + factory pattern so module
// packages can self-register via init() without the core importing them.
package registry

import (
	"fmt"
	"sort"
	"sync"

	"github.com/AzouC/Outils-Osintt/internal/core/domain"
	"github.com/AzouC/Outils-Osintt/internal/core/ports"
	"github.com/AzouC/Outils-Osintt/internal/platform/logx"
)

// ModuleFactory creates a module instance from its resolved config.
type ModuleFactory func(cfg ports.ModuleConfig, logger logx.Logger) (ports.Module, error)

// ModuleRegistry manages module factories and their metadata.
type ModuleRegistry struct {
	mu        sync.RWMutex
	factories map[string]ModuleFactory
	metadata  map[string]ports.ModuleMetadata
	logger    logx.Logger
}

// globalRegistry is the process-wide instance init() registration targets.
var globalRegistry *ModuleRegistry
var once sync.Once

// Global returns the global registry instance.
func Global() *ModuleRegistry {
	once.Do(func() {
		globalRegistry = NewModuleRegistry(logx.New())
	})
	return globalRegistry
}

// NewModuleRegistry creates an empty registry.
func NewModuleRegistry(logger logx.Logger) *ModuleRegistry {
	return &ModuleRegistry{
		factories: make(map[string]ModuleFactory),
		metadata:  make(map[string]ports.ModuleMetadata),
		logger:    logger.With("component", "module-registry"),
	}
}

// Register adds a module factory with its metadata. Typically called from a
// module package's init().
func (r *ModuleRegistry) Register(name string, factory ModuleFactory, meta ports.ModuleMetadata) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if name == "" {
		return fmt.Errorf("module name cannot be empty")
	}
	if factory == nil {
		return fmt.Errorf("factory cannot be nil for module %s", name)
	}
	if len(meta.Kinds) == 0 {
		return fmt.Errorf("module %s claims no entity kinds", name)
	}
	if _, exists := r.factories[name]; exists {
		return fmt.Errorf("module %s is already registered", name)
	}

	r.factories[name] = factory
	r.metadata[name] = meta
	r.logger.Debug("module registered", "name", name, "kinds", fmt.Sprint(meta.Kinds))

	return nil
}

// MustRegister panics on registration failure; for use in init().
func (r *ModuleRegistry) MustRegister(name string, factory ModuleFactory, meta ports.ModuleMetadata) {
	if err := r.Register(name, factory, meta); err != nil {
		panic(err)
	}
}

// Build constructs every enabled module per its config and returns them as
// a ModuleSet. Modules absent from configs get defaults with the metadata's
// declared priority and bucket scope. Broken factories are skipped, not
// fatal; an investigation with three of four modules beats no investigation.
func (r *ModuleRegistry) Build(configs map[string]ports.ModuleConfig, logger logx.Logger) (*ModuleSet, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}

	set := &ModuleSet{
		modules: make(map[string]ports.Module),
		configs: make(map[string]ports.ModuleConfig),
		byKind:  make(map[domain.EntityKind][]string),
	}

	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)

	var buildErrs []error
	for _, name := range names {
		cfg, ok := configs[name]
		if !ok {
			cfg = ports.DefaultModuleConfig()
			cfg.Priority = r.metadata[name].Priority
			cfg.SharedBucket = r.metadata[name].SharedBucket
		}
		if !cfg.Enabled {
			r.logger.Debug("module disabled", "name", name)
			continue
		}

		mod, err := r.factories[name](cfg, logger)
		if err != nil {
			buildErrs = append(buildErrs, fmt.Errorf("failed to build module %s: %w", name, err))
			continue
		}

		set.modules[name] = mod
		set.configs[name] = cfg
		for _, kind := range r.metadata[name].Kinds {
			set.byKind[kind] = append(set.byKind[kind], name)
		}
	}

	// invocation priority: higher first, name as tiebreak for determinism
	for kind := range set.byKind {
		ids := set.byKind[kind]
		sort.SliceStable(ids, func(i, j int) bool {
			pi, pj := set.configs[ids[i]].Priority, set.configs[ids[j]].Priority
			if pi != pj {
				return pi > pj
			}
			return ids[i] < ids[j]
		})
	}

	for _, err := range buildErrs {
		r.logger.Warn("module build error", "error", err.Error())
	}
	if len(set.modules) == 0 && len(r.factories) > 0 {
		return nil, fmt.Errorf("no modules could be built")
	}

	logger.Info("modules built", "count", len(set.modules), "registered", len(r.factories))
	return set, nil
}

// List returns the names of all registered modules, sorted.
func (r *ModuleRegistry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Metadata returns the metadata of a registered module.
func (r *ModuleRegistry) Metadata(name string) (ports.ModuleMetadata, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	meta, exists := r.metadata[name]
	return meta, exists
}

// Clear removes all registered modules (for testing).
func (r *ModuleRegistry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.factories = make(map[string]ModuleFactory)
	r.metadata = make(map[string]ports.ModuleMetadata)
}

// ModuleSet is the immutable, built view the scheduler consumes: module
// instances, their resolved configs, and the kind -> modules index.
type ModuleSet struct {
	modules map[string]ports.Module
	configs map[string]ports.ModuleConfig
	byKind  map[domain.EntityKind][]string
}

// Capable returns the IDs of all modules claiming the kind, in invocation
// priority order. All of them run; this is fan-out, not first-match.
func (s *ModuleSet) Capable(kind domain.EntityKind) []string {
	ids := s.byKind[kind]
	out := make([]string, len(ids))
	copy(out, ids)
	return out
}

// Module returns the built module instance for id.
func (s *ModuleSet) Module(id string) (ports.Module, bool) {
	m, ok := s.modules[id]
	return m, ok
}

// Config returns the resolved config for id.
func (s *ModuleSet) Config(id string) ports.ModuleConfig {
	return s.configs[id]
}

// Names returns the IDs of all built modules, sorted.
func (s *ModuleSet) Names() []string {
	names := make([]string, 0, len(s.modules))
	for name := range s.modules {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of built modules.
func (s *ModuleSet) Len() int {
	return len(s.modules)
}

// Close closes every module, joining errors.
func (s *ModuleSet) Close() error {
	var errs []error
	for name, m := range s.modules {
		if err := m.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", name, err))
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("module close failures: %v", errs)
}
