// Package classify removes duplicate and non-park records from a collection run.
package classify

import (
	"strings"
)

// Dedup remembers the ids seen during one run.
type Dedup struct {
	seen map[string]struct{}
}

// NewDedup returns an empty seen set.
func NewDedup() *Dedup {
	return &Dedup{seen: make(map[string]struct{})}
}

// Keep reports true the first time id is seen and false afterwards.
func (d *Dedup) Keep(id string) bool {
	if _, ok := d.seen[id]; ok {
		return false
	}
	d.seen[id] = struct{}{}
	return true
}

// Seen reports how many distinct ids have been kept.
func (d *Dedup) Seen() int {
	return len(d.seen)
}

// Filter keeps the first record of every id, in first-seen order.
func Filter[T any](d *Dedup, items []T, id func(T) string) (kept []T, dropped int) {
	kept = make([]T, 0, len(items))
	for _, item := range items {
		if d.Keep(id(item)) {
			kept = append(kept, item)
			continue
		}
		dropped++
	}
	return kept, dropped
}

// Classifier applies the rental rules.
type Classifier struct {
	name        []string
	description []string
}

// NewClassifier lowercases the rule lists once.
func NewClassifier(rules Rules) *Classifier {
	return &Classifier{
		name:        lowerAll(rules.NameKeywords),
		description: lowerAll(rules.DescriptionKeywords),
	}
}

// IsRental reports whether the name or description carries a rental signature.
func (c *Classifier) IsRental(name, description string) bool {
	_, excluded := c.Exclude(name, description)
	return excluded
}

// Exclude returns the keyword that matched, if any, so callers can log it.
func (c *Classifier) Exclude(name, description string) (string, bool) {
	lowerName := strings.ToLower(name)
	for _, kw := range c.name {
		if strings.Contains(lowerName, kw) {
			return "name:" + kw, true
		}
	}

	lowerDesc := strings.ToLower(description)
	for _, kw := range c.description {
		if strings.Contains(lowerDesc, kw) {
			return "description:" + kw, true
		}
	}
	return "", false
}

// RegionFilter restricts a collection run by formatted address substrings.
type RegionFilter struct {
	// RequireAll must all appear in the address.
	RequireAll []string
	// RequireAny needs at least one match when non-empty.
	RequireAny []string
}

// Match reports whether formattedAddress passes the filter.
func (f RegionFilter) Match(formattedAddress string) bool {
	for _, s := range f.RequireAll {
		if !strings.Contains(formattedAddress, s) {
			return false
		}
	}
	if len(f.RequireAny) == 0 {
		return true
	}
	for _, s := range f.RequireAny {
		if strings.Contains(formattedAddress, s) {
			return true
		}
	}
	return false
}

func lowerAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
			out = append(out, s)
		}
	}
	return out
}
