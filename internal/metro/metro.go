// Package metro buckets parks into metro areas for location browsing.
package metro

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
)

// Tables holds the city lookup and the consolidation rewrites.
type Tables struct {
	// Cities maps an exact, case-sensitive city name to its metro area.
	Cities map[string]string `toml:"cities"`
	// Consolidation rewrites an assigned metro name to a broader one.
	Consolidation map[string]string `toml:"consolidation"`
}

// Assigner derives and consolidates metro areas.
type Assigner struct {
	tables      Tables
	targetState string
}

// NewAssigner builds an assigner. Consolidation only applies to parks in targetState.
func NewAssigner(tables Tables, targetState string) *Assigner {
	if tables.Cities == nil {
		tables.Cities = map[string]string{}
	}
	if tables.Consolidation == nil {
		tables.Consolidation = map[string]string{}
	}
	return &Assigner{tables: tables, targetState: targetState}
}

// Assign looks the city up in the fixed table, falling back to "<city> Area".
func (a *Assigner) Assign(city string) string {
	if m, ok := a.tables.Cities[city]; ok {
		return m
	}
	return city + " Area"
}

// Lookup returns the consolidated metro for a city listed in the table. Cities
// outside the table report false instead of an "<city> Area" fallback.
func (a *Assigner) Lookup(city, state string) (string, bool) {
	m, ok := a.tables.Cities[city]
	if !ok {
		return "", false
	}
	return a.Consolidate(m, state), true
}

// Consolidate maps a metro name to its regional bucket when the state matches
// the target state. Applying it twice gives the same result.
func (a *Assigner) Consolidate(metroArea, state string) string {
	if state != a.targetState {
		return metroArea
	}
	if merged, ok := a.tables.Consolidation[metroArea]; ok {
		return merged
	}
	return metroArea
}

// Resolve assigns and consolidates in one step.
func (a *Assigner) Resolve(city, state string) string {
	return a.Consolidate(a.Assign(city), state)
}

// LoadTables reads a TOML override file and merges it over the defaults.
// An empty path returns the defaults.
func LoadTables(path string) (Tables, error) {
	tables := DefaultTables()
	if path == "" {
		return tables, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Tables{}, fmt.Errorf("read metro tables %s: %w", path, err)
	}

	var override Tables
	if err := toml.Unmarshal(data, &override); err != nil {
		return Tables{}, fmt.Errorf("parse metro tables %s: %w", path, err)
	}
	for city, m := range override.Cities {
		tables.Cities[city] = m
	}
	for from, to := range override.Consolidation {
		tables.Consolidation[from] = to
	}
	return tables, nil
}
