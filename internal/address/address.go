package address

import (
	"strings"
)

// UnknownCity is assigned when a formatted address is too short to carry a city.
const UnknownCity = "Unknown"

const segmentSeparator = ", "

// Address holds the structured parts of an upstream formatted address.
type Address struct {
	Street  string `json:"street"`
	City    string `json:"city"`
	State   string `json:"state"`
	ZipCode string `json:"zipCode"`
}

// Parser splits "<street>, <city>, <STATE ZIP>[, COUNTRY]" addresses.
type Parser struct {
	// HomeState is used when the address does not name a state.
	HomeState string
}

// NewParser returns a parser defaulting to the given home state.
func NewParser(homeState string) *Parser {
	homeState = strings.TrimSpace(homeState)
	if homeState == "" {
		homeState = "Texas"
	}
	return &Parser{HomeState: homeState}
}

// Parse never fails: short addresses degrade to street-only with an unknown
// city, and an empty state segment takes the home state.
func (p *Parser) Parse(formatted string) Address {
	parts := strings.Split(formatted, segmentSeparator)
	if len(parts) < 3 {
		return Address{
			Street: formatted,
			City:   UnknownCity,
			State:  p.HomeState,
		}
	}

	stateZip := strings.Fields(parts[2])
	state, zip := p.HomeState, ""
	if len(stateZip) > 0 {
		state = ExpandState(stateZip[0])
	}
	if len(stateZip) > 1 {
		zip = stateZip[1]
	}

	return Address{
		Street:  parts[0],
		City:    parts[1],
		State:   state,
		ZipCode: zip,
	}
}

// Join rebuilds "street, city, STATE ZIP" using the state abbreviation when known.
func Join(a Address) string {
	state := AbbreviateState(a.State)
	stateZip := strings.TrimSpace(state + " " + a.ZipCode)
	return strings.Join([]string{a.Street, a.City, stateZip}, segmentSeparator)
}
