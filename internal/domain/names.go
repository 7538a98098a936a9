package domain

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// NormalizeName maps a venue, station or city name to its comparison key.
// Names that differ only in Unicode width, case or surrounding and repeated
// whitespace share a key, so "Ｆｏｒｂｉｄｄｅｎ  City" and "forbidden city"
// match.
func NormalizeName(name string) string {
	s := norm.NFKC.String(name)
	s = strings.Join(strings.Fields(s), " ")
	// A Caser holds state and is not safe for concurrent use.
	return cases.Fold().String(s)
}

// SameName reports whether two names share a comparison key.
func SameName(a, b string) bool { return NormalizeName(a) == NormalizeName(b) }
