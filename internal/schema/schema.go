// Package schema describes the telemetry tables available to query
// generation. The catalog is rendered into the generation prompt so the
// model only proposes columns that exist.
package schema

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// ColumnSchema describes a single queryable column.
type ColumnSchema struct {
	Name        string `yaml:"name"`
	Type        string `yaml:"type"`
	Description string `yaml:"description,omitempty"`
}

// TableSchema describes a queryable table.
type TableSchema struct {
	Name        string         `yaml:"name"`
	Description string         `yaml:"description,omitempty"`
	Columns     []ColumnSchema `yaml:"columns"`
}

// Catalog is the full set of tables exposed to the query generator.
type Catalog struct {
	Tables []TableSchema `yaml:"tables"`
}

// Load reads a catalog from a YAML file.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read schema file %s: %w", path, err)
	}
	var cat Catalog
	if err := yaml.Unmarshal(data, &cat); err != nil {
		return nil, fmt.Errorf("failed to parse schema file %s: %w", path, err)
	}
	if len(cat.Tables) == 0 {
		return nil, fmt.Errorf("schema file %s declares no tables", path)
	}
	for _, t := range cat.Tables {
		if t.Name == "" {
			return nil, fmt.Errorf("schema file %s has a table without a name", path)
		}
		if len(t.Columns) == 0 {
			return nil, fmt.Errorf("table %s declares no columns", t.Name)
		}
	}
	return &cat, nil
}

// Save writes the catalog to a YAML file.
func (c *Catalog) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal schema: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write schema file %s: %w", path, err)
	}
	return nil
}

// Default returns the catalog matching the bundled demo telemetry store.
func Default() *Catalog {
	return &Catalog{Tables: []TableSchema{
		{
			Name:        "requests",
			Description: "One row per handled HTTP request",
			Columns: []ColumnSchema{
				{Name: "timestamp", Type: "datetime", Description: "request start time, RFC 3339"},
				{Name: "endpoint", Type: "string", Description: "request path"},
				{Name: "status_code", Type: "int", Description: "HTTP response status"},
				{Name: "duration_ms", Type: "real", Description: "end-to-end latency in milliseconds"},
				{Name: "region", Type: "string", Description: "serving region"},
			},
		},
		{
			Name:        "errors",
			Description: "Application error log events",
			Columns: []ColumnSchema{
				{Name: "timestamp", Type: "datetime"},
				{Name: "service", Type: "string"},
				{Name: "severity", Type: "string", Description: "warning, error, or critical"},
				{Name: "message", Type: "string"},
			},
		},
		{
			Name:        "resource_usage",
			Description: "Host resource samples, one row per host every five minutes",
			Columns: []ColumnSchema{
				{Name: "timestamp", Type: "datetime"},
				{Name: "host", Type: "string"},
				{Name: "cpu_percent", Type: "real"},
				{Name: "memory_mb", Type: "real"},
			},
		},
	}}
}

// Prompt renders the catalog for inclusion in a generation prompt.
func (c *Catalog) Prompt() string {
	var b strings.Builder
	b.WriteString("Available tables:\n")
	for _, t := range c.Tables {
		b.WriteString("\nTable: ")
		b.WriteString(t.Name)
		if t.Description != "" {
			b.WriteString(" -- ")
			b.WriteString(t.Description)
		}
		b.WriteString("\n")
		for _, col := range t.Columns {
			fmt.Fprintf(&b, "  %s (%s)", col.Name, col.Type)
			if col.Description != "" {
				b.WriteString(": ")
				b.WriteString(col.Description)
			}
			b.WriteString("\n")
		}
	}
	return b.String()
}

// TableNames returns the catalog's table names in declaration order.
func (c *Catalog) TableNames() []string {
	names := make([]string, len(c.Tables))
	for i, t := range c.Tables {
		names[i] = t.Name
	}
	return names
}
