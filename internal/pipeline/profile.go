package pipeline

import (
	"sort"
	"time"

	"github.com/bounceheads/directory/internal/classify"
	"github.com/bounceheads/directory/internal/places"
)

// Profile describes one collection run: what to search for and where.
type Profile struct {
	Name    string
	Queries []string
	Rect    places.Rect
	Region  classify.RegionFilter
	// FixedMetro, when set, replaces the city lookup for every park.
	FixedMetro string
	// Delay overrides the configured pacing when positive.
	Delay time.Duration
}

var profiles = map[string]Profile{
	"texas": {
		Name: "texas",
		Queries: []string{
			"trampoline park Texas",
			"urban air Texas",
			"sky zone Texas",
			"altitude trampoline Texas",
			"ground control trampoline Texas",
			"airtopia adventure park Texas",
			"pump it up Texas",
			"jumping world Texas",
			"trampoline center Texas",

			"urban air Austin Texas",
			"urban air South Austin",
			"urban air Cedar Park Texas",
			"urban air Bee Cave Texas",
			"urban air Pleasant Valley Austin",
			"urban air Ranch Road 620 Austin",
			"trampoline park Round Rock Texas",
			"trampoline park Cedar Park Texas",
			"trampoline park Bee Cave Texas",

			"trampoline park San Antonio Texas",
			"urban air San Antonio",
			"altitude trampoline San Antonio",
			"ground control San Antonio",
			"airtopia San Antonio",
			"pump it up San Antonio",
			"rush fun park San Antonio",
			"trampoline park New Braunfels Texas",
			"trampoline park Schertz Texas",

			"urban air Houston",
			"altitude trampoline Houston",
			"sky zone Houston",
			"trampoline park Houston Texas",
			"trampoline park Katy Texas",
			"trampoline park Sugar Land Texas",
			"trampoline park Spring Texas",

			"urban air Dallas",
			"sky zone Dallas",
			"altitude trampoline Dallas",
			"trampoline park Dallas Texas",
			"trampoline park Plano Texas",
			"trampoline park Frisco Texas",
			"trampoline park Arlington Texas",

			"bounce house Texas",
			"jumping center Texas",
		},
		Rect: places.Rect{
			Low:  places.LatLng{Latitude: 25.8371, Longitude: -106.6456},
			High: places.LatLng{Latitude: 36.5007, Longitude: -93.5080},
		},
		Region: classify.RegionFilter{RequireAll: []string{"TX"}},
	},
	"san-antonio": {
		Name: "san-antonio",
		Queries: []string{
			"trampoline park San Antonio Texas",
			"trampoline park San Antonio TX",
			"urban air San Antonio",
			"sky zone San Antonio",
			"altitude trampoline San Antonio",
			"bounce house San Antonio",
			"jumping world San Antonio",
			"trampoline center San Antonio",
			"adventure park San Antonio",
			"jump zone San Antonio",
			"trampoline park New Braunfels Texas",
			"trampoline park Schertz Texas",
			"trampoline park Universal City Texas",
			"trampoline park Converse Texas",
			"trampoline park Selma Texas",
			"trampoline park Live Oak Texas",
			"trampoline park Kirby Texas",
			"bounce San Antonio",
			"indoor playground San Antonio trampoline",
		},
		Rect: places.Rect{
			Low:  places.LatLng{Latitude: 29.1, Longitude: -98.8},
			High: places.LatLng{Latitude: 29.8, Longitude: -98.2},
		},
		Region: classify.RegionFilter{
			RequireAll: []string{"TX"},
			RequireAny: []string{"San Antonio", "New Braunfels", "Schertz", "Universal City", "Converse", "Selma", "Live Oak"},
		},
		FixedMetro: "San Antonio Metro",
		Delay:      150 * time.Millisecond,
	},
}

// LookupProfile returns a built-in profile by name.
func LookupProfile(name string) (Profile, bool) {
	p, ok := profiles[name]
	return p, ok
}

// ProfileNames lists the built-in profiles.
func ProfileNames() []string {
	names := make([]string, 0, len(profiles))
	for name := range profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
