package domain

import (
	"regexp"
	"strings"

	dErrors "tradegraph/pkg/domain-errors"
)

var (
	countryCodePattern = regexp.MustCompile(`^[A-Z]{2}$`)
	portCodePattern    = regexp.MustCompile(`^[A-Z]{2}[A-Z0-9]{3}$`)
)

// CountryCode is an ISO 3166-1 alpha-2 country code in upper case.
type CountryCode string

// ParseCountryCode trims and upper-cases s and checks the alpha-2 shape.
func ParseCountryCode(s string) (CountryCode, error) {
	c := strings.ToUpper(strings.TrimSpace(s))
	if !countryCodePattern.MatchString(c) {
		return "", dErrors.New(dErrors.CodeInvalidInput, "country code must be ISO 3166-1 alpha-2")
	}
	return CountryCode(c), nil
}

func (c CountryCode) String() string { return string(c) }

// PortCode is a UN/LOCODE (two letter country plus three alphanumerics).
type PortCode string

// ParsePortCode trims and upper-cases s and checks the UN/LOCODE shape.
func ParsePortCode(s string) (PortCode, error) {
	p := strings.ToUpper(strings.Join(strings.Fields(s), ""))
	if !portCodePattern.MatchString(p) {
		return "", dErrors.New(dErrors.CodeInvalidInput, "port code must be a UN/LOCODE")
	}
	return PortCode(p), nil
}

func (p PortCode) String() string { return string(p) }

// HSCode is a Harmonized System commodity code: digits only, 6, 8 or 10 long.
type HSCode string

// NormalizeHSCode strips the separators commonly used when writing HS codes
// ("7308.90", "7308 90 98").
func NormalizeHSCode(s string) string {
	r := strings.NewReplacer(".", "", " ", "", "-", "")
	return r.Replace(strings.TrimSpace(s))
}

// ParseHSCode validates a full HS code. The digit count must be 6, 8 or 10.
func ParseHSCode(s string) (HSCode, error) {
	code := NormalizeHSCode(s)
	if !isDigits(code) {
		return "", dErrors.New(dErrors.CodeNotFound, "hs code must contain digits only")
	}
	switch len(code) {
	case 6, 8, 10:
		return HSCode(code), nil
	}
	return "", dErrors.New(dErrors.CodeNotFound, "hs code must have 6, 8 or 10 digits")
}

func (h HSCode) String() string { return string(h) }

// Chapter returns the two-digit HS chapter.
func (h HSCode) Chapter() string {
	if len(h) < 2 {
		return ""
	}
	return string(h[:2])
}

// HasPrefix reports whether the code falls under the given HS prefix.
func (h HSCode) HasPrefix(prefix string) bool {
	return strings.HasPrefix(string(h), prefix)
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
