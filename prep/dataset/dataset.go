// Package dataset loads raw text datasets and provides split-level record
// operations: batched parallel mapping, bitmap-backed filtering, and column
// statistics. A dataset is a collection of named splits; each split is an
// ordered sequence of records keyed by column name.
package dataset

import (
	"fmt"
	"sort"
)

// Record is a single row of a split, keyed by column name.
type Record map[string]any

// Split is a named partition of a dataset ("train", "validation", ...).
// Columns preserves the declared column order from the source file so that
// heuristics scanning columns behave deterministically.
type Split struct {
	Name    string
	Columns []string
	Records []Record
}

// Len returns the number of records in the split.
func (s *Split) Len() int {
	return len(s.Records)
}

// HasColumn reports whether the split declares the given column.
func (s *Split) HasColumn(name string) bool {
	for _, c := range s.Columns {
		if c == name {
			return true
		}
	}
	return false
}

// First returns the first record of the split, or nil when empty.
func (s *Split) First() Record {
	if len(s.Records) == 0 {
		return nil
	}
	return s.Records[0]
}

// Dataset maps split names to record sequences.
type Dataset struct {
	splits map[string]*Split
}

// New creates an empty dataset.
func New() *Dataset {
	return &Dataset{splits: make(map[string]*Split)}
}

// Split returns the named split, or an error when it does not exist.
func (d *Dataset) Split(name string) (*Split, error) {
	s, ok := d.splits[name]
	if !ok {
		return nil, fmt.Errorf("split %q not found (available: %v)", name, d.SplitNames())
	}
	return s, nil
}

// HasSplit reports whether the named split exists.
func (d *Dataset) HasSplit(name string) bool {
	_, ok := d.splits[name]
	return ok
}

// SetSplit adds or replaces a split.
func (d *Dataset) SetSplit(s *Split) {
	if d.splits == nil {
		d.splits = make(map[string]*Split)
	}
	d.splits[s.Name] = s
}

// SplitNames returns the split names in sorted order.
func (d *Dataset) SplitNames() []string {
	names := make([]string, 0, len(d.splits))
	for name := range d.splits {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// columnsFromRecord derives a deterministic column list for records produced
// by a map function: known columns that survived keep their declared order,
// newly introduced columns are appended in sorted order.
func columnsFromRecord(declared []string, rec Record) []string {
	if rec == nil {
		return declared
	}
	out := make([]string, 0, len(rec))
	seen := make(map[string]bool, len(rec))
	for _, c := range declared {
		if _, ok := rec[c]; ok {
			out = append(out, c)
			seen[c] = true
		}
	}
	extra := make([]string, 0, len(rec))
	for k := range rec {
		if !seen[k] {
			extra = append(extra, k)
		}
	}
	sort.Strings(extra)
	return append(out, extra...)
}
