package classify

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
)

// Rules is the rental-business deny list. It is data, not logic: the lists are
// known to be incomplete and are extended by editing a rules file.
type Rules struct {
	NameKeywords        []string `toml:"name_keywords"`
	DescriptionKeywords []string `toml:"description_keywords"`
}

// DefaultRules returns the built-in keyword lists.
func DefaultRules() Rules {
	return Rules{
		NameKeywords: []string{
			"inflatables", "rentals", "rental", "party rental",
			"bounce house", "bouncing elephant", "space walk",
			"funtastic events", "mr. inflatables", "backyard bounce",
			"slide n bounce", "jump n party", "mad house",
			"texas jump n splash", "let's jump rentals",
			"jerry's jump zone party", "kellys party rental",
			"fireball rentals", "party rentals", "llc rental",
			"bounce on over", "extreme bounce house", "bounce house rocks",
			"east texas inflatables", "j & m inflatables", "bounce town inflatables",
			"947 inflatables",
		},
		DescriptionKeywords: []string{
			"rental", "inflatable", "party supplies", "bounce house rental",
			"party rental service", "bounce house delivery", "inflatable rental",
		},
	}
}

// LoadRules reads rules from a TOML file. A list present in the file replaces
// the matching default list; an empty path returns the defaults.
func LoadRules(path string) (Rules, error) {
	rules := DefaultRules()
	if path == "" {
		return rules, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Rules{}, fmt.Errorf("read rules %s: %w", path, err)
	}

	var file Rules
	if err := toml.Unmarshal(data, &file); err != nil {
		return Rules{}, fmt.Errorf("parse rules %s: %w", path, err)
	}
	if file.NameKeywords != nil {
		rules.NameKeywords = file.NameKeywords
	}
	if file.DescriptionKeywords != nil {
		rules.DescriptionKeywords = file.DescriptionKeywords
	}
	return rules, nil
}
