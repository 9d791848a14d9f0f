// Package strings holds string-set helpers shared by request normalization.
package strings

import (
	"slices"
	"strings"
)

// SortedSet trims every value, applies fold when it is non-nil, drops
// empties and returns the distinct values in sorted order. A nil input
// stays nil so absent filters remain absent.
func SortedSet(values []string, fold func(string) string) []string {
	if values == nil {
		return nil
	}
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if fold != nil {
			v = fold(v)
		}
		if v != "" {
			out = append(out, v)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}

// UpperSet is SortedSet for code lists (countries, ports, carriers) where
// case carries no meaning.
func UpperSet(values []string) []string {
	return SortedSet(values, strings.ToUpper)
}
