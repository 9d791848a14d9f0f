package models

import (
	"strings"

	dErrors "tradegraph/pkg/domain-errors"
)

// Tier is a subscription tier. Tiers are compared by Rank, never by name or
// by their raw value.
type Tier uint8

// TierUnknown is the zero value. It has no rank, so it never satisfies a
// requirement; stored tiers that no longer parse load as TierUnknown.
const (
	TierUnknown Tier = iota
	TierStarter
	TierPro
	TierEnterprise
	TierChamber
	TierGov
)

var (
	tierNames = [...]string{"UNKNOWN", "STARTER", "PRO", "ENTERPRISE", "CHAMBER", "GOV"}
	// CHAMBER ranks with ENTERPRISE.
	tierRanks = [...]int{0, 1, 2, 3, 3, 4}
)

// Rank returns the tier's rank and whether the tier is known.
func (t Tier) Rank() (int, bool) {
	if t == TierUnknown || int(t) >= len(tierRanks) {
		return 0, false
	}
	return tierRanks[t], true
}

// IsValid checks if the tier is one of the supported values.
func (t Tier) IsValid() bool {
	_, ok := t.Rank()
	return ok
}

// Satisfies reports whether t meets the required tier. Unknown tiers on
// either side never satisfy.
func (t Tier) Satisfies(required Tier) bool {
	have, ok := t.Rank()
	if !ok {
		return false
	}
	need, ok := required.Rank()
	if !ok {
		return false
	}
	return have >= need
}

func (t Tier) String() string {
	if int(t) >= len(tierNames) {
		return tierNames[TierUnknown]
	}
	return tierNames[t]
}

// LookupTier resolves a tier name in any letter case.
func LookupTier(name string) (Tier, bool) {
	name = strings.ToUpper(strings.TrimSpace(name))
	for i := TierStarter; int(i) < len(tierNames); i++ {
		if tierNames[i] == name {
			return i, true
		}
	}
	return TierUnknown, false
}

// ParseTier is LookupTier for external input.
func ParseTier(s string) (Tier, error) {
	t, ok := LookupTier(s)
	if !ok {
		return TierUnknown, dErrors.Validation("tier", "must be one of STARTER, PRO, ENTERPRISE, CHAMBER, GOV")
	}
	return t, nil
}

func (t Tier) MarshalText() ([]byte, error) { return []byte(t.String()), nil }

func (t *Tier) UnmarshalText(b []byte) error {
	parsed, err := ParseTier(string(b))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}
