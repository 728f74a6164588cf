// Package slug builds URL slugs for park pages and resolves collisions within a run.
package slug

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	disallowed = regexp.MustCompile(`[^a-z0-9\s-]`)
	whitespace = regexp.MustCompile(`\s+`)
	hyphenRuns = regexp.MustCompile(`-+`)
)

// Make lowercases the input, strips characters outside [a-z0-9\s-], turns
// whitespace runs into single hyphens and trims hyphens at both ends.
func Make(value string) string {
	s := strings.ToLower(value)
	s = disallowed.ReplaceAllString(s, "")
	s = whitespace.ReplaceAllString(s, "-")
	s = hyphenRuns.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// Registry tracks which park owns each slug. A slug claimed again by the same
// owner is not a collision.
type Registry struct {
	owners map[string]string
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{owners: make(map[string]string)}
}

// Seed preloads slug owners, typically from already persisted parks.
func (r *Registry) Seed(owners map[string]string) {
	for s, owner := range owners {
		if s == "" {
			continue
		}
		r.owners[s] = owner
	}
}

// Len reports the number of claimed slugs.
func (r *Registry) Len() int {
	return len(r.owners)
}

func (r *Registry) taken(s, owner string) bool {
	current, ok := r.owners[s]
	return ok && current != owner
}

// Claim assigns a unique slug for name on behalf of owner. On collision the
// slugified city is appended; if that still collides "<base>-N" is tried with
// N counting up from 1.
func (r *Registry) Claim(owner, name, city string) string {
	base := Make(name)
	candidate := base

	if r.taken(candidate, owner) {
		if citySlug := Make(city); citySlug != "" {
			candidate = join(base, citySlug)
		}
	}

	for counter := 1; r.taken(candidate, owner); counter++ {
		candidate = join(base, strconv.Itoa(counter))
	}

	r.owners[candidate] = owner
	return candidate
}

func join(base, suffix string) string {
	if base == "" {
		return suffix
	}
	return base + "-" + suffix
}
