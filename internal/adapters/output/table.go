package output

import (
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"github.com/pterm/pterm"

	"github.com/AzouC/Outils-Osintt/internal/core/domain"
)

// timeRounding keeps printed durations readable.
const timeRounding = 10 * time.Millisecond

// TableExporter renders a terminal summary of the run: header, per-status
// task counts, and one row per entity with its finding total.
type TableExporter struct {
	w io.Writer
}

// NewTableExporter creates a summary exporter writing to stdout.
func NewTableExporter() *TableExporter {
	return &TableExporter{w: os.Stdout}
}

// NewTableExporterTo creates a summary exporter writing to w (for tests).
func NewTableExporterTo(w io.Writer) *TableExporter {
	return &TableExporter{w: w}
}

// Export renders the summary.
func (e *TableExporter) Export(snap *domain.Snapshot) error {
	counts := snap.Counts()

	pterm.DefaultSection.WithWriter(e.w).Println("Investigation " + snap.InvestigationID)

	header := fmt.Sprintf("Seed: %s (%s)\n", pterm.Cyan(snap.Seed.Value), snap.Seed.Kind)
	header += fmt.Sprintf("Duration: %s\n", snap.TakenAt.Sub(snap.StartedAt).Round(timeRounding))
	header += fmt.Sprintf("Entities: %s   Edges: %d   Findings: %s",
		pterm.Cyan(fmt.Sprintf("%d", len(snap.Entities))),
		len(snap.Edges),
		pterm.Green(fmt.Sprintf("%d", snap.FindingCount())),
	)
	pterm.DefaultBox.WithWriter(e.w).Println(header)

	statusData := pterm.TableData{{"Status", "Tasks"}}
	for _, status := range []domain.TaskStatus{
		domain.TaskSucceeded, domain.TaskFailed, domain.TaskSkipped,
	} {
		if n := counts[status]; n > 0 {
			statusData = append(statusData, []string{string(status), fmt.Sprintf("%d", n)})
		}
	}
	if err := pterm.DefaultTable.
		WithWriter(e.w).
		WithHasHeader().
		WithBoxed().
		WithData(statusData).
		Render(); err != nil {
		return fmt.Errorf("failed to render status table: %w", err)
	}

	if len(snap.Entities) == 0 {
		return nil
	}

	entityData := pterm.TableData{{"Depth", "Kind", "Entity", "Findings"}}
	for _, rec := range sortedRecords(snap.Entities) {
		findings := 0
		for _, res := range rec.Results {
			findings += len(res.Findings)
		}
		entityData = append(entityData, []string{
			fmt.Sprintf("%d", rec.Entity.Depth),
			string(rec.Entity.Kind),
			rec.Entity.Value,
			fmt.Sprintf("%d", findings),
		})
	}
	if err := pterm.DefaultTable.
		WithWriter(e.w).
		WithHasHeader().
		WithBoxed().
		WithData(entityData).
		Render(); err != nil {
		return fmt.Errorf("failed to render entity table: %w", err)
	}

	return nil
}

// sortedRecords orders records by depth then identity; snapshots already
// arrive sorted, but the renderer does not rely on that.
func sortedRecords(records []domain.EntityRecord) []domain.EntityRecord {
	out := make([]domain.EntityRecord, len(records))
	copy(out, records)
	sort.Slice(out, func(i, j int) bool {
		if out[i].Entity.Depth != out[j].Entity.Depth {
			return out[i].Entity.Depth < out[j].Entity.Depth
		}
		return out[i].Entity.Identity() < out[j].Entity.Identity()
	})
	return out
}
