// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"go.yaml.in/yaml/v3"
)

// ExportEntry is a run with the programs it wrote.
type ExportEntry struct {
	Run      `yaml:",inline"`
	Programs []Program `json:"program_list" yaml:"program_list"`
}

// Entries returns every run with its programs, newest first.
func (c *Catalog) Entries(ctx context.Context) ([]ExportEntry, error) {
	runs, err := c.Runs(ctx, 0)
	if err != nil {
		return nil, fmt.Errorf("querying for export: %w", err)
	}
	entries := make([]ExportEntry, len(runs))
	for i, r := range runs {
		programs, err := c.Programs(ctx, r.ID)
		if err != nil {
			return nil, fmt.Errorf("querying for export: %w", err)
		}
		entries[i] = ExportEntry{Run: r, Programs: programs}
	}
	return entries, nil
}

// ExportYAML writes the catalogue to index/history.yaml and returns the path.
func (c *Catalog) ExportYAML(ctx context.Context) (string, error) {
	entries, err := c.Entries(ctx)
	if err != nil {
		return "", err
	}
	data, err := yaml.Marshal(entries)
	if err != nil {
		return "", fmt.Errorf("marshaling YAML: %w", err)
	}
	path := filepath.Join(c.dir, "history.yaml")
	return path, os.WriteFile(path, data, 0o644)
}

// ExportJSON writes the catalogue to index/history.json and returns the path.
func (c *Catalog) ExportJSON(ctx context.Context) (string, error) {
	entries, err := c.Entries(ctx)
	if err != nil {
		return "", err
	}
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshaling JSON: %w", err)
	}
	path := filepath.Join(c.dir, "history.json")
	return path, os.WriteFile(path, data, 0o644)
}
