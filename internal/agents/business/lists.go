// Package business implements the five per-subject agents fanned out for a
// business verification (spec.md §4.4), grounded on the corresponding
// app/agents/kyb/*.py agents in the original.
package business

var bannedBusinessTypes = map[string]struct{}{
	"gambling": {}, "cryptocurrency_exchange": {}, "adult_content": {}, "weapons": {},
}

var bannedIndustries = map[string]struct{}{
	"gambling": {}, "adult_entertainment": {}, "weapons_manufacturing": {}, "cryptocurrency": {},
}

var bannedCountries = map[string]struct{}{
	"north korea": {}, "iran": {}, "syria": {}, "cuba": {},
}

func contains(set map[string]struct{}, value string) bool {
	_, ok := set[value]
	return ok
}
