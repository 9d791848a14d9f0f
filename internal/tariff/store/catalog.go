// Package store loads the tariff dataset from YAML and serves it from memory.
package store

import (
	"bytes"
	"cmp"
	"context"
	_ "embed"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"tradegraph/internal/tariff/models"
	id "tradegraph/pkg/domain"
	"tradegraph/pkg/platform/sentinel"
)

//go:embed default.yaml
var defaultDataset []byte

// Catalog is an immutable in-memory tariff dataset.
type Catalog struct {
	schedules  map[string]*models.Schedule
	agreements []models.Agreement
	measures   map[string][]models.Measure
}

// Default returns the catalog bundled with the binary.
func Default() (*Catalog, error) {
	return Load(bytes.NewReader(defaultDataset))
}

// LoadFile reads a YAML dataset from disk.
func LoadFile(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open tariff dataset: %w", err)
	}
	defer f.Close()
	return Load(f)
}

// Load parses and validates a YAML dataset.
func Load(r io.Reader) (*Catalog, error) {
	var doc document
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode tariff dataset: %w", err)
	}
	return doc.build()
}

func (c *Catalog) Schedule(_ context.Context, destination string) (*models.Schedule, error) {
	s, ok := c.schedules[destination]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return s, nil
}

func (c *Catalog) Agreements(_ context.Context, origin, destination string) ([]models.Agreement, error) {
	var out []models.Agreement
	for _, a := range c.agreements {
		if a.Covers(origin, destination) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (c *Catalog) Measures(_ context.Context, destination string) ([]models.Measure, error) {
	return c.measures[destination], nil
}

// document mirrors the YAML layout. Rates stay strings until build so that
// "2.5" and 2.5 both parse without float rounding.
type document struct {
	Schedules []struct {
		Destination string     `yaml:"destination"`
		VAT         string     `yaml:"vat"`
		MFN         []rateNode `yaml:"mfn"`
	} `yaml:"schedules"`
	Agreements []struct {
		Name       string            `yaml:"name"`
		Members    []string          `yaml:"members"`
		Rates      []rateNode        `yaml:"rates"`
		Conditions map[string]string `yaml:"conditions"`
	} `yaml:"agreements"`
	Measures []struct {
		ID          string   `yaml:"id"`
		Type        string   `yaml:"type"`
		Destination string   `yaml:"destination"`
		Scope       []string `yaml:"scope"`
		Origins     []string `yaml:"origins"`
		Rate        string   `yaml:"rate"`
		QuotaVolume string   `yaml:"quotaVolume"`
		QuotaUnit   string   `yaml:"quotaUnit"`
		From        string   `yaml:"from"`
		Until       string   `yaml:"until"`
		Description string   `yaml:"description"`
	} `yaml:"measures"`
}

type rateNode struct {
	Prefix string `yaml:"prefix"`
	Rate   string `yaml:"rate"`
}

func (d *document) build() (*Catalog, error) {
	c := &Catalog{
		schedules: make(map[string]*models.Schedule),
		measures:  make(map[string][]models.Measure),
	}

	for _, s := range d.Schedules {
		dest, err := country(s.Destination)
		if err != nil {
			return nil, fmt.Errorf("schedule %q: %w", s.Destination, err)
		}
		if _, dup := c.schedules[dest]; dup {
			return nil, fmt.Errorf("schedule %s: defined twice", dest)
		}
		vat, err := rate(s.VAT, true)
		if err != nil {
			return nil, fmt.Errorf("schedule %s vat: %w", dest, err)
		}
		mfn, err := rules(s.MFN)
		if err != nil {
			return nil, fmt.Errorf("schedule %s: %w", dest, err)
		}
		c.schedules[dest] = &models.Schedule{Destination: dest, VATRate: vat, MFN: mfn}
	}

	for _, a := range d.Agreements {
		if a.Name == "" {
			return nil, fmt.Errorf("agreement without name")
		}
		members := make([]string, 0, len(a.Members))
		for _, m := range a.Members {
			cc, err := country(m)
			if err != nil {
				return nil, fmt.Errorf("agreement %s: %w", a.Name, err)
			}
			members = append(members, cc)
		}
		rates, err := rules(a.Rates)
		if err != nil {
			return nil, fmt.Errorf("agreement %s: %w", a.Name, err)
		}
		agreement := models.Agreement{Name: a.Name, Members: members, Rates: rates}
		for k, v := range a.Conditions {
			agreement.Conditions = append(agreement.Conditions, models.Condition{Key: k, Value: v})
		}
		sortConditions(agreement.Conditions)
		c.agreements = append(c.agreements, agreement)
	}

	for _, m := range d.Measures {
		measure, err := buildMeasure(m.ID, m.Type, m.Destination, m.Scope, m.Origins, m.Rate, m.QuotaVolume, m.From, m.Until)
		if err != nil {
			return nil, fmt.Errorf("measure %s: %w", m.ID, err)
		}
		measure.QuotaUnit = m.QuotaUnit
		measure.Description = m.Description
		c.measures[measure.Destination] = append(c.measures[measure.Destination], measure)
	}
	return c, nil
}

func buildMeasure(measureID, typ, destination string, scope, origins []string, r, volume, from, until string) (models.Measure, error) {
	m := models.Measure{ID: measureID, Type: models.MeasureType(strings.ToUpper(typ))}
	if measureID == "" {
		return m, fmt.Errorf("id is required")
	}
	if !m.Type.IsValid() {
		return m, fmt.Errorf("unknown type %q", typ)
	}
	var err error
	if m.Destination, err = country(destination); err != nil {
		return m, err
	}
	if len(scope) == 0 {
		return m, fmt.Errorf("scope is required")
	}
	for _, s := range scope {
		s = id.NormalizeHSCode(s)
		if s != "*" && !digits(s) {
			return m, fmt.Errorf("scope %q must be an HS prefix or *", s)
		}
		m.Scope = append(m.Scope, s)
	}
	for _, o := range origins {
		cc, err := country(o)
		if err != nil {
			return m, err
		}
		m.Origins = append(m.Origins, cc)
	}
	if m.Rate, err = rate(r, m.Type == models.MeasureQuota); err != nil {
		return m, err
	}
	if volume != "" {
		v, err := decimal.NewFromString(volume)
		if err != nil || v.IsNegative() {
			return m, fmt.Errorf("quota volume %q is invalid", volume)
		}
		m.QuotaVolume = &v
	}
	if m.From, err = date(from); err != nil || m.From.IsZero() {
		return m, fmt.Errorf("from %q must be a date", from)
	}
	if until != "" {
		if m.Until, err = date(until); err != nil {
			return m, fmt.Errorf("until %q must be a date", until)
		}
		if !m.Until.After(m.From) {
			return m, fmt.Errorf("until must be after from")
		}
	}
	return m, nil
}

func rules(nodes []rateNode) ([]models.RateRule, error) {
	out := make([]models.RateRule, 0, len(nodes))
	for _, n := range nodes {
		prefix := id.NormalizeHSCode(n.Prefix)
		if !digits(prefix) || len(prefix) < 2 {
			return nil, fmt.Errorf("prefix %q must have at least two digits", n.Prefix)
		}
		r, err := rate(n.Rate, false)
		if err != nil {
			return nil, fmt.Errorf("prefix %s: %w", prefix, err)
		}
		out = append(out, models.RateRule{Prefix: prefix, Rate: r})
	}
	return out, nil
}

func rate(s string, optional bool) (decimal.Decimal, error) {
	if s == "" {
		if optional {
			return decimal.Zero, nil
		}
		return decimal.Zero, fmt.Errorf("rate is required")
	}
	r, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("rate %q is not a number", s)
	}
	if r.IsNegative() {
		return decimal.Zero, fmt.Errorf("rate %q is negative", s)
	}
	return r, nil
}

func country(s string) (string, error) {
	c, err := id.ParseCountryCode(s)
	if err != nil {
		return "", fmt.Errorf("country %q: %w", s, err)
	}
	return c.String(), nil
}

func date(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.DateOnly, s)
}

func digits(s string) bool {
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

func sortConditions(cs []models.Condition) {
	slices.SortFunc(cs, func(a, b models.Condition) int { return cmp.Compare(a.Key, b.Key) })
}
