package domain

import (
	"fmt"
	"time"
)

// Edge records that a task discovered an entity: "child was discovered by
// (parent, module) at time T". Edges are kept even for duplicate discoveries
// so the graph stays complete.
type Edge struct {
	Parent   Entity    `json:"parent"`
	Child    Entity    `json:"child"`
	ModuleID string    `json:"module_id"`
	At       time.Time `json:"at"`
}

// EntityRecord aggregates everything known about one entity in a snapshot.
type EntityRecord struct {
	Entity  Entity          `json:"entity"`
	Results []*ModuleResult `json:"results,omitempty"`
}

// Snapshot is the read-only view of a run handed to export collaborators.
// It is a deep copy: exporters can be slow or buggy without affecting the
// live run.
type Snapshot struct {
	InvestigationID string         `json:"investigation_id"`
	Seed            Entity         `json:"seed"`
	StartedAt       time.Time      `json:"started_at"`
	TakenAt         time.Time      `json:"taken_at"`
	Entities        []EntityRecord `json:"entities"`
	Edges           []Edge         `json:"edges"`
	Tasks           []Task         `json:"tasks"`
}

// NewInvestigationID builds a timestamped run identifier.
func NewInvestigationID(now time.Time) string {
	return fmt.Sprintf("inv_%s", now.Format("20060102_150405"))
}

// Counts returns per-status task totals, for summaries and logs.
func (s *Snapshot) Counts() map[TaskStatus]int {
	counts := make(map[TaskStatus]int)
	for _, t := range s.Tasks {
		counts[t.Status]++
	}
	return counts
}

// FindingCount returns the total number of findings across all entities.
func (s *Snapshot) FindingCount() int {
	n := 0
	for _, rec := range s.Entities {
		for _, res := range rec.Results {
			n += len(res.Findings)
		}
	}
	return n
}
