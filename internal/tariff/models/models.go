// Package models holds tariff schedules, trade agreements, trade measures
// and the quotes resolved from them. Rates are percentages.
package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// MeasureType classifies a trade remedy or restriction.
type MeasureType string

const (
	MeasureAntidumping    MeasureType = "ANTIDUMPING"
	MeasureCountervailing MeasureType = "COUNTERVAILING"
	MeasureSafeguard      MeasureType = "SAFEGUARD"
	MeasureQuota          MeasureType = "QUOTA"
)

// IsValid checks if the measure type is one of the supported enum values.
func (t MeasureType) IsValid() bool {
	switch t {
	case MeasureAntidumping, MeasureCountervailing, MeasureSafeguard, MeasureQuota:
		return true
	}
	return false
}

// AddsDuty reports whether the measure stacks on top of the base rate.
// Quotas constrain volume instead.
func (t MeasureType) AddsDuty() bool {
	return t != MeasureQuota && t.IsValid()
}

// DataQuality flags how much of a quote came from curated data.
type DataQuality string

const (
	DataQualityHigh DataQuality = "HIGH"
	DataQualityLow  DataQuality = "LOW"
)

// RateRule assigns a rate to every HS code under Prefix.
type RateRule struct {
	Prefix string
	Rate   decimal.Decimal
}

// Schedule is one importing country's tariff book.
type Schedule struct {
	Destination string
	VATRate     decimal.Decimal
	MFN         []RateRule
}

// Condition is a static eligibility predicate checked against facts the
// importer supplies with the request, such as "certificateOfOrigin=true".
type Condition struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

func (c Condition) String() string { return c.Key + "=" + c.Value }

// SatisfiedBy reports whether facts carry the required value. Keys are
// matched case-insensitively; values exactly.
func (c Condition) SatisfiedBy(facts Facts) bool {
	v, ok := facts[foldKey(c.Key)]
	return ok && v == c.Value
}

// Facts are importer-supplied eligibility facts keyed by case-folded name.
type Facts map[string]string

// CanonicalFacts folds the keys of raw. Two keys that fold together must
// carry the same value; otherwise the claim is ambiguous and rejected.
func CanonicalFacts(raw map[string]string) (Facts, error) {
	facts := make(Facts, len(raw))
	for k, v := range raw {
		key := foldKey(k)
		if prev, seen := facts[key]; seen && prev != v {
			return nil, fmt.Errorf("eligibility fact %q is given with conflicting values", key)
		}
		facts[key] = v
	}
	return facts, nil
}

func foldKey(k string) string { return strings.ToLower(strings.TrimSpace(k)) }

// Agreement is a free trade agreement with its preferential rate table.
type Agreement struct {
	Name       string
	Members    []string
	Rates      []RateRule
	Conditions []Condition
}

// Covers reports whether both countries are members.
func (a Agreement) Covers(origin, destination string) bool {
	var o, d bool
	for _, m := range a.Members {
		o = o || m == origin
		d = d || m == destination
	}
	return o && d
}

// Measure is a trade measure imposed by Destination. Scope entries are HS
// prefixes or "*" for every code; an empty Origins list targets all origins.
// The measure is active on [From, Until); a zero Until never expires.
type Measure struct {
	ID          string
	Type        MeasureType
	Destination string
	Scope       []string
	Origins     []string
	Rate        decimal.Decimal
	QuotaVolume *decimal.Decimal
	QuotaUnit   string
	From        time.Time
	Until       time.Time
	Description string
}

// ActiveAt reports whether t falls inside the measure's window.
func (m Measure) ActiveAt(t time.Time) bool {
	if t.Before(m.From) {
		return false
	}
	return m.Until.IsZero() || t.Before(m.Until)
}

// AppliesTo reports whether the measure's HS scope and origin list match.
func (m Measure) AppliesTo(hsCode, origin string) bool {
	inScope := false
	for _, s := range m.Scope {
		if s == "*" || strings.HasPrefix(hsCode, s) {
			inScope = true
			break
		}
	}
	if !inScope {
		return false
	}
	if len(m.Origins) == 0 {
		return true
	}
	for _, o := range m.Origins {
		if o == origin {
			return true
		}
	}
	return false
}

// LongestPrefix returns the rule with the longest prefix of code.
func LongestPrefix(rules []RateRule, code string) (RateRule, bool) {
	var (
		best  RateRule
		found bool
	)
	for _, r := range rules {
		if !strings.HasPrefix(code, r.Prefix) {
			continue
		}
		if !found || len(r.Prefix) > len(best.Prefix) {
			best, found = r, true
		}
	}
	return best, found
}
