package schema

import (
	"encoding/json"
	"fmt"
	"os"
)

// WriteDisposition governs how destination rows are reconciled for a
// table.
type WriteDisposition string

const (
	Append  WriteDisposition = "append"
	Replace WriteDisposition = "replace"
	Merge   WriteDisposition = "merge"
)

// Valid reports whether d is one of the three recognized dispositions.
func (d WriteDisposition) Valid() bool {
	return d == Append || d == Replace || d == Merge
}

// Table is one table definition inside a Schema.
//
// ParentTable is empty for a top-level table. WriteDisposition may be
// empty on a child table, in which case it is inherited from the parent
// chain (see Schema.ResolvedWriteDisposition).
type Table struct {
	Name             string           `json:"name"`
	ParentTable      string           `json:"parent,omitempty"`
	WriteDisposition WriteDisposition `json:"write_disposition,omitempty"`
	Internal         bool             `json:"internal,omitempty"`
}

// Schema is the frozen, read-only schema value object attached to a load
// package.
type Schema struct {
	Name    string            `json:"name"`
	Version int               `json:"version"`
	Tables  map[string]*Table `json:"tables"`
}

// Load reads a schema.<ver>.json file from path.
func Load(path string) (*Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("schema: read %s: %w", path, err)
	}
	var s Schema
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("schema: parse %s: %w", path, err)
	}
	if s.Tables == nil {
		s.Tables = map[string]*Table{}
	}
	return &s, nil
}

// GetTable returns the table named name, or (nil, false) if unknown.
func (s *Schema) GetTable(name string) (*Table, bool) {
	t, ok := s.Tables[name]
	return t, ok
}

// ResolvedWriteDisposition returns the write disposition that applies to
// name, inheriting from the nearest ancestor that declares one when the
// table itself does not.
//
// Any job-filtering-by-disposition decision must be evaluated against
// this resolved value, not the raw per-table field.
func (s *Schema) ResolvedWriteDisposition(name string) (WriteDisposition, error) {
	seen := map[string]bool{}
	cur := name
	for {
		if seen[cur] {
			return "", fmt.Errorf("schema: cyclic parent chain at table %q", cur)
		}
		seen[cur] = true
		table, ok := s.Tables[cur]
		if !ok {
			return "", fmt.Errorf("schema: unknown table %q", cur)
		}
		if table.WriteDisposition != "" {
			return table.WriteDisposition, nil
		}
		if table.ParentTable == "" {
			return Append, nil
		}
		cur = table.ParentTable
	}
}

// TopLevelTable climbs the parent chain starting at name and returns the
// root table of the write chain.
func (s *Schema) TopLevelTable(name string) (*Table, error) {
	seen := map[string]bool{}
	cur := name
	for {
		if seen[cur] {
			return nil, fmt.Errorf("schema: cyclic parent chain at table %q", cur)
		}
		seen[cur] = true
		table, ok := s.Tables[cur]
		if !ok {
			return nil, fmt.Errorf("schema: unknown table %q", cur)
		}
		if table.ParentTable == "" {
			return table, nil
		}
		cur = table.ParentTable
	}
}

// Descendants returns name and every table that descends from it
// (inclusive), in parent-first order — the table chain over which a merge
// must be consistent.
func (s *Schema) Descendants(name string) []*Table {
	var chain []*Table
	var walk func(n string)
	walk = func(n string) {
		table, ok := s.Tables[n]
		if !ok {
			return
		}
		chain = append(chain, table)
		for _, candidate := range s.Tables {
			if candidate.ParentTable == n {
				walk(candidate.Name)
			}
		}
	}
	walk(name)
	return chain
}

// InternalTables returns the framework-internal tables (those marked
// Internal: true), used to build the union of tables whose schema must be
// kept current regardless of which tables have job files in a given
// package.
func (s *Schema) InternalTables() []string {
	var names []string
	for _, t := range s.Tables {
		if t.Internal {
			names = append(names, t.Name)
		}
	}
	return names
}
