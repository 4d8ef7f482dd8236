package place

import (
	"fmt"
	"strings"
)

// Candidate represents a single geocoding match for a free-text query.
// City name and ISO country code are always present; State is provider
// dependent and may be empty.
type Candidate struct {
	Name      string  `json:"name"`
	Country   string  `json:"country"`
	State     string  `json:"state,omitempty"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// RegionInfo carries optional administrative-region context resolved from
// coordinates. Every field may be nil; consumers must not depend on any of
// them being set.
type RegionInfo struct {
	City        *string `json:"city,omitempty"`
	Region      *string `json:"region,omitempty"`
	RegionCode  *string `json:"regionCode,omitempty"`
	County      *string `json:"county,omitempty"`
	Country     *string `json:"country,omitempty"`
	DisplayName *string `json:"displayName,omitempty"`
}

// Key derives the canonical identity key for a place. It is the sole
// deduplication mechanism across history and favorites: the same name and
// country must always collapse to the same key regardless of casing and
// whitespace, and distinct countries must never collapse.
func Key(name, country string) string {
	return normalize(name) + "|" + normalize(country)
}

// normalize lowercases, trims, and collapses internal whitespace.
func normalize(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

// Label renders a human-facing label for a candidate. The projection is
// total: every candidate produces a label.
//
// US candidates prefer the two-letter state abbreviation, then the full
// state name, then bare "US". All other countries render "<name>, <country>"
// with the state appended in parentheses when present.
func (c Candidate) Label() string {
	if strings.EqualFold(c.Country, "US") {
		if abbr, ok := StateAbbreviation(c.State); ok {
			return fmt.Sprintf("%s, %s", c.Name, abbr)
		}
		if c.State != "" {
			return fmt.Sprintf("%s, %s", c.Name, c.State)
		}
		return fmt.Sprintf("%s, US", c.Name)
	}
	if c.State != "" {
		return fmt.Sprintf("%s, %s (%s)", c.Name, c.Country, c.State)
	}
	return fmt.Sprintf("%s, %s", c.Name, c.Country)
}

// Key returns the identity key for this candidate's name and country.
func (c Candidate) Key() string {
	return Key(c.Name, c.Country)
}
