package domain

import "time"

// Finding is one raw observation a module made about an entity.
type Finding struct {
	// Type names the category of observation (e.g. "mx_host",
	// "profile_candidate", "chain").
	Type string `json:"type"`

	// Value is the observed data, already stringified by the module.
	Value string `json:"value"`

	// Source is free-form provenance (URL, dataset, heuristic name).
	Source string `json:"source,omitempty"`
}

// ModuleResult is the immutable output of one successful task execution:
// an ordered list of findings plus any newly discovered child entities.
type ModuleResult struct {
	ModuleID   string    `json:"module_id"`
	Findings   []Finding `json:"findings,omitempty"`
	Discovered []Entity  `json:"discovered,omitempty"`
	FetchedAt  time.Time `json:"fetched_at"`
}

// NewModuleResult creates an empty result for a module.
func NewModuleResult(moduleID string) *ModuleResult {
	return &ModuleResult{
		ModuleID:  moduleID,
		FetchedAt: time.Now(),
	}
}

// AddFinding appends an observation, preserving order.
func (r *ModuleResult) AddFinding(typ, value, source string) {
	r.Findings = append(r.Findings, Finding{Type: typ, Value: value, Source: source})
}

// AddDiscovered records a child entity. The scheduler assigns the actual
// depth when it feeds the child back into the graph; modules report depth 0.
func (r *ModuleResult) AddDiscovered(e Entity) {
	r.Discovered = append(r.Discovered, e)
}

// Clone returns a deep copy. Cache reads hand out clones so a stored result
// stays immutable no matter what callers do with it.
func (r *ModuleResult) Clone() *ModuleResult {
	if r == nil {
		return nil
	}
	out := &ModuleResult{
		ModuleID:  r.ModuleID,
		FetchedAt: r.FetchedAt,
	}
	if len(r.Findings) > 0 {
		out.Findings = make([]Finding, len(r.Findings))
		copy(out.Findings, r.Findings)
	}
	if len(r.Discovered) > 0 {
		out.Discovered = make([]Entity, len(r.Discovered))
		copy(out.Discovered, r.Discovered)
	}
	return out
}
