// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package dcl

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"

	"github.com/bureau-foundation/coreburn/lib/workload"
)

// DefaultTolerancePercent applies when neither the entry, its class,
// nor the table sets a tolerance.
const DefaultTolerancePercent = 5.0

// Table is a loaded Data Center List. It is immutable once loaded.
type Table struct {
	SKU     string
	entries map[workload.Kind]Entry
}

// document is the on-disk form:
//
//	sku: custom-8480
//	tolerance_percent: 5
//	class_tolerance_percent: {low: 3, medium: 5, high: 7}
//	workloads:
//	  AVX2: {expected_mhz: 2800, tolerance_percent: 3}
//	  SSE:  {expected_khz: 3500000}
type document struct {
	SKU                   string                   `yaml:"sku" json:"sku"`
	TolerancePercent      *float64                 `yaml:"tolerance_percent" json:"tolerance_percent"`
	ClassTolerancePercent map[string]float64       `yaml:"class_tolerance_percent" json:"class_tolerance_percent"`
	Workloads             map[string]documentEntry `yaml:"workloads" json:"workloads"`
}

type documentEntry struct {
	ExpectedKHz      uint64   `yaml:"expected_khz" json:"expected_khz"`
	ExpectedMHz      uint64   `yaml:"expected_mhz" json:"expected_mhz"`
	TolerancePercent *float64 `yaml:"tolerance_percent" json:"tolerance_percent"`
}

// LoadTable reads a table file. The format follows the extension:
// .yaml and .yml are YAML, .json and .jsonc are JSON with comments and
// trailing commas allowed.
func LoadTable(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading DCL table: %w", err)
	}
	var table *Table
	switch extension := strings.ToLower(filepath.Ext(path)); extension {
	case ".yaml", ".yml":
		table, err = ParseYAML(data)
	case ".json", ".jsonc":
		table, err = ParseJSONC(data)
	default:
		return nil, fmt.Errorf("DCL table %s: unsupported extension %q (want .yaml, .yml, .json or .jsonc)", path, extension)
	}
	if err != nil {
		return nil, fmt.Errorf("DCL table %s: %w", path, err)
	}
	return table, nil
}

// ParseYAML parses a YAML table. Unknown fields are errors.
func ParseYAML(data []byte) (*Table, error) {
	var raw document
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&raw); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parsing YAML: %w", err)
	}
	return raw.resolve()
}

// ParseJSONC parses a JSON table that may contain comments. Unknown
// fields are errors.
func ParseJSONC(data []byte) (*Table, error) {
	var raw document
	decoder := json.NewDecoder(bytes.NewReader(jsonc.ToJSON(data)))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&raw); err != nil {
		return nil, fmt.Errorf("parsing JSON: %w", err)
	}
	return raw.resolve()
}

// resolve applies tolerance precedence: entry, then class, then table,
// then DefaultTolerancePercent.
func (d document) resolve() (*Table, error) {
	if len(d.Workloads) == 0 {
		return nil, fmt.Errorf("no workloads listed")
	}
	tableTolerance := DefaultTolerancePercent
	if d.TolerancePercent != nil {
		tableTolerance = *d.TolerancePercent
	}
	if err := checkTolerance("table", tableTolerance); err != nil {
		return nil, err
	}
	classTolerance := make(map[Class]float64, len(d.ClassTolerancePercent))
	for name, tolerance := range d.ClassTolerancePercent {
		class, err := ParseClass(name)
		if err != nil {
			return nil, err
		}
		if err := checkTolerance("class "+class.String(), tolerance); err != nil {
			return nil, err
		}
		classTolerance[class] = tolerance
	}

	entries := make(map[workload.Kind]Entry, len(d.Workloads))
	for name, raw := range d.Workloads {
		kind, err := workload.ParseKind(name)
		if err != nil {
			return nil, err
		}
		if _, duplicate := entries[kind]; duplicate {
			return nil, fmt.Errorf("workload %s listed twice", kind)
		}
		var expected uint64
		switch {
		case raw.ExpectedKHz != 0 && raw.ExpectedMHz != 0:
			return nil, fmt.Errorf("workload %s: set expected_khz or expected_mhz, not both", kind)
		case raw.ExpectedKHz != 0:
			expected = raw.ExpectedKHz
		case raw.ExpectedMHz != 0:
			expected = raw.ExpectedMHz * 1000
		default:
			return nil, fmt.Errorf("workload %s: expected frequency missing or zero", kind)
		}

		tolerance := tableTolerance
		if classValue, ok := classTolerance[Classify(kind)]; ok {
			tolerance = classValue
		}
		if raw.TolerancePercent != nil {
			tolerance = *raw.TolerancePercent
			if err := checkTolerance("workload "+kind.String(), tolerance); err != nil {
				return nil, err
			}
		}
		entries[kind] = Entry{ExpectedKHz: expected, TolerancePercent: tolerance}
	}
	return &Table{SKU: d.SKU, entries: entries}, nil
}

func checkTolerance(scope string, tolerance float64) error {
	if tolerance < 0 || tolerance > 100 {
		return fmt.Errorf("%s tolerance %.2f%% outside [0,100]", scope, tolerance)
	}
	return nil
}

// NewTable builds a table from entries, for callers that hold the
// limits in memory.
func NewTable(sku string, entries map[workload.Kind]Entry) *Table {
	copied := make(map[workload.Kind]Entry, len(entries))
	for kind, entry := range entries {
		copied[kind] = entry
	}
	return &Table{SKU: sku, entries: copied}
}

// Lookup returns the entry for kind.
func (t *Table) Lookup(kind workload.Kind) (Entry, bool) {
	entry, ok := t.entries[kind]
	return entry, ok
}

// Kinds returns the listed kinds in declaration order.
func (t *Table) Kinds() []workload.Kind {
	kinds := make([]workload.Kind, 0, len(t.entries))
	for kind := range t.entries {
		kinds = append(kinds, kind)
	}
	slices.Sort(kinds)
	return kinds
}
