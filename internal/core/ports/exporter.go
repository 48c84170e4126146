package ports

import "github.com/AzouC/Outils-Osintt/internal/core/domain"

// Exporter consumes a read-only snapshot of a finished (or in-progress)
// run. Rendering format is entirely the exporter's business.
type Exporter interface {
	// Export serializes the snapshot somewhere. It must not mutate it.
	Export(snapshot *domain.Snapshot) error
}
