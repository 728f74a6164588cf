package pipeline

import (
	"sort"

	"github.com/bounceheads/directory/internal/builder"
	"github.com/bounceheads/directory/internal/entity"
)

// MetroCount is one row of a metro distribution.
type MetroCount struct {
	MetroArea string `json:"metroArea"`
	Count     int    `json:"count"`
}

// MetroDistribution counts parks per metro area, largest first and then by name.
func MetroDistribution(parks []entity.Park) []MetroCount {
	counts := make(map[string]int)
	for _, p := range parks {
		counts[p.MetroArea]++
	}

	out := make([]MetroCount, 0, len(counts))
	for name, n := range counts {
		out = append(out, MetroCount{MetroArea: name, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].MetroArea < out[j].MetroArea
	})
	return out
}

// BuilderOptions returns the builder options a profile implies.
func (p Profile) BuilderOptions() []builder.Option {
	if p.FixedMetro == "" {
		return nil
	}
	return []builder.Option{builder.WithFixedMetro(p.FixedMetro)}
}
