// Package scope handles OAuth2 scope strings: flat, space separated tokens
// with no hierarchy or wildcards.
package scope

import (
	"slices"
	"strings"
)

const (
	Read  = "read"
	Write = "write"
)

// Default is granted when a login does not ask for anything narrower.
const Default = Read + " " + Write

// Set is a parsed scope string in first-seen order.
type Set []string

// Parse splits s on whitespace and drops duplicates.
func Parse(s string) Set {
	fields := strings.Fields(s)
	out := make(Set, 0, len(fields))
	for _, f := range fields {
		if !out.Contains(f) {
			out = append(out, f)
		}
	}
	return out
}

// Contains reports whether want is one of the scopes in set. Matching is
// exact: "read" does not match "read:users".
func (s Set) Contains(want string) bool {
	return slices.Contains(s, want)
}

// SubsetOf reports whether every scope in s is in allowed.
func (s Set) SubsetOf(allowed Set) bool {
	for _, have := range s {
		if !allowed.Contains(have) {
			return false
		}
	}
	return true
}

func (s Set) String() string {
	return strings.Join(s, " ")
}

// Has parses granted and checks for want.
func Has(granted, want string) bool {
	return Parse(granted).Contains(want)
}

// Normalize returns s with whitespace collapsed and duplicates removed.
func Normalize(s string) string {
	return Parse(s).String()
}
