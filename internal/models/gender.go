package models

import "strings"

// Gender is the closed set the matcher operates on. Raw stored values are
// normalized once, at the storage boundary, and never flow past it.
type Gender string

const (
	GenderMale        Gender = "MALE"
	GenderFemale      Gender = "FEMALE"
	GenderUndisclosed Gender = "UNDISCLOSED"
)

// GenderFilter is a requester's preference. FilterAny matches everyone,
// including UNDISCLOSED.
type GenderFilter string

const (
	FilterMale   GenderFilter = "MALE"
	FilterFemale GenderFilter = "FEMALE"
	FilterAny    GenderFilter = "ANY"
)

// NormalizeGender maps free-form stored gender values onto the closed enum.
// Anything unrecognized is UNDISCLOSED.
func NormalizeGender(raw string) Gender {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "male", "m", "man":
		return GenderMale
	case "female", "f", "woman":
		return GenderFemale
	default:
		return GenderUndisclosed
	}
}

// ParseGenderFilter validates a requested filter. Empty means ANY; anything
// else unrecognized is reported invalid rather than silently widened.
func ParseGenderFilter(raw string) (GenderFilter, bool) {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "", "ANY":
		return FilterAny, true
	case "MALE":
		return FilterMale, true
	case "FEMALE":
		return FilterFemale, true
	default:
		return FilterAny, false
	}
}

// Matches reports whether a candidate of gender g passes the filter.
func (f GenderFilter) Matches(g Gender) bool {
	if f == FilterAny {
		return true
	}
	return string(f) == string(g)
}
