// Package output contains the export adapters consuming run snapshots:
// a JSON file writer and a terminal summary. Exporters only ever see the
// deep-copied snapshot, never live run state.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/AzouC/Outils-Osintt/internal/core/domain"
)

// sanitizeValue turns an entity value into a safe directory name.
// "jane@example.com" -> "jane_example_com"
func sanitizeValue(value string) string {
	return strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '_' || r == '-' {
			return r
		}
		return '_'
	}, value)
}

// JSONExporter writes the final snapshot as an indented JSON file under
// <dir>/<sanitized seed>/.
type JSONExporter struct {
	dir string
}

// NewJSONExporter creates an exporter rooted at dir ("." when empty).
func NewJSONExporter(dir string) *JSONExporter {
	if dir == "" {
		dir = "."
	}
	return &JSONExporter{dir: dir}
}

// Export writes the snapshot and returns the path it wrote to via error
// only; callers wanting the path use ExportPath.
func (e *JSONExporter) Export(snap *domain.Snapshot) error {
	_, err := e.ExportPath(snap)
	return err
}

// ExportPath writes the snapshot and returns the created file path.
func (e *JSONExporter) ExportPath(snap *domain.Snapshot) (string, error) {
	seedDir := filepath.Join(e.dir, sanitizeValue(snap.Seed.Value))
	if err := os.MkdirAll(seedDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	filename := fmt.Sprintf("osintgraph_%s.json", snap.InvestigationID)
	path := filepath.Join(seedDir, filename)

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create output file: %w", err)
	}
	defer f.Close()

	if err := writeJSON(f, snap); err != nil {
		return "", err
	}
	return path, nil
}

// WriteJSONTo streams the snapshot as indented JSON to w.
func WriteJSONTo(w io.Writer, snap *domain.Snapshot) error {
	return writeJSON(w, snap)
}

func writeJSON(w io.Writer, snap *domain.Snapshot) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(snap); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}
