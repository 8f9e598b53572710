// Package jurisdiction builds canonical identifiers for the regulatory
// hierarchy (state, county, city) from free-text location names.
package jurisdiction

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Level is a tier in the regulatory hierarchy.
type Level int

const (
	LevelState Level = iota
	LevelCounty
	LevelCity
)

func (l Level) String() string {
	switch l {
	case LevelState:
		return "state"
	case LevelCounty:
		return "county"
	case LevelCity:
		return "city"
	}
	return "unknown"
}

// MoreSpecificThan reports whether l is a more local tier than other.
// City is the most specific, state the least.
func (l Level) MoreSpecificThan(other Level) bool {
	return l > other
}

// CoverageType describes how a program-jurisdiction link applies:
// state-wide, via a utility's service area, or to the named jurisdiction.
type CoverageType int

const (
	CoverageJurisdiction CoverageType = iota
	CoverageState
	CoverageUtility
)

func (c CoverageType) String() string {
	switch c {
	case CoverageState:
		return "state"
	case CoverageUtility:
		return "utility"
	}
	return "jurisdiction"
}

// ParseCoverageType maps a link-table coverage_type value to its enum.
// Unrecognized values fall back to jurisdiction-specific coverage, the
// neutral reading for a link row that names a concrete jurisdiction.
func ParseCoverageType(s string) CoverageType {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "state":
		return CoverageState
	case "utility":
		return CoverageUtility
	}
	return CoverageJurisdiction
}

var nonAlnumRe = regexp.MustCompile(`[^A-Z0-9]+`)

// Normalize converts a free-text jurisdiction name into a stable key
// segment: uppercase, every non-alphanumeric run collapsed to a single
// underscore, leading and trailing underscores trimmed. Idempotent.
func Normalize(name string) string {
	name = strings.ToUpper(strings.TrimSpace(name))
	name = nonAlnumRe.ReplaceAllString(name, "_")
	return strings.Trim(name, "_")
}

// KeySet holds the canonical jurisdiction keys built for one request.
// CountyKey and CityKey are empty when that level was not requested.
type KeySet struct {
	StateCode string
	StateKey  string
	CountyKey string
	CityKey   string
}

// BuildKeys derives jurisdiction keys from a 2-letter state code and
// optional county and city names. A blank or whitespace-only name yields
// no key for that level; callers must not query for empty keys.
func BuildKeys(stateCode, countyName, cityName string) KeySet {
	st := Normalize(stateCode)
	ks := KeySet{
		StateCode: st,
		StateKey:  st + "_STATE",
	}
	if seg := Normalize(countyName); seg != "" {
		ks.CountyKey = st + "_COUNTY_" + seg
	}
	if seg := Normalize(cityName); seg != "" {
		ks.CityKey = st + "_CITY_" + seg
	}
	return ks
}

// Keys returns the non-empty keys in state, county, city order.
func (k KeySet) Keys() []string {
	keys := []string{k.StateKey}
	if k.CountyKey != "" {
		keys = append(keys, k.CountyKey)
	}
	if k.CityKey != "" {
		keys = append(keys, k.CityKey)
	}
	return keys
}

// KeyFor returns the key for a level, or "" if that level was not requested.
func (k KeySet) KeyFor(l Level) string {
	switch l {
	case LevelState:
		return k.StateKey
	case LevelCounty:
		return k.CountyKey
	case LevelCity:
		return k.CityKey
	}
	return ""
}

// DisplayName renders a free-text location name for echoing back in API
// responses ("los angeles" -> "Los Angeles"). A fresh Caser per call:
// Casers are stateful and not safe for concurrent use.
func DisplayName(name string) string {
	return cases.Title(language.AmericanEnglish).String(strings.TrimSpace(name))
}
