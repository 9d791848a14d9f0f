// Package normalizer turns raw, partially specified search filters into a
// canonical SearchQuery. Normalization is deterministic: the same raw input
// always yields the same query (and the same cache key).
package normalizer

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"tradegraph/internal/search/models"
	id "tradegraph/pkg/domain"
	dErrors "tradegraph/pkg/domain-errors"
	pstrings "tradegraph/pkg/platform/strings"
)

// Raw filter keys accepted by Normalize.
const (
	FieldHSCode               = "hsCode"
	FieldProductKeyword       = "productKeyword"
	FieldShipperName          = "shipperName"
	FieldConsigneeName        = "consigneeName"
	FieldShipperID            = "shipperId"
	FieldConsigneeID          = "consigneeId"
	FieldOriginCountries      = "originCountries"
	FieldDestinationCountries = "destinationCountries"
	FieldPortsOfLoading       = "portsOfLoading"
	FieldPortsOfDischarge     = "portsOfDischarge"
	FieldDateFrom             = "dateFrom"
	FieldDateTo               = "dateTo"
	FieldMinQuantity          = "minQuantity"
	FieldMaxQuantity          = "maxQuantity"
	FieldMinValueUSD          = "minValueUsd"
	FieldMaxValueUSD          = "maxValueUsd"
	FieldMinUnitPrice         = "minUnitPrice"
	FieldMaxUnitPrice         = "maxUnitPrice"
	FieldTransportMode        = "transportMode"
	FieldCarrier              = "carrier"
	FieldPage                 = "page"
	FieldPageSize             = "pageSize"
	FieldSortBy               = "sortBy"
	FieldSortOrder            = "sortOrder"
	FieldIncludeAggregations  = "includeAggregations"
	FieldExcludeCompanyIDs    = "excludeCompanyIds"
)

var knownFields = map[string]struct{}{
	FieldHSCode: {}, FieldProductKeyword: {}, FieldShipperName: {}, FieldConsigneeName: {},
	FieldShipperID: {}, FieldConsigneeID: {}, FieldOriginCountries: {}, FieldDestinationCountries: {},
	FieldPortsOfLoading: {}, FieldPortsOfDischarge: {}, FieldDateFrom: {}, FieldDateTo: {},
	FieldMinQuantity: {}, FieldMaxQuantity: {}, FieldMinValueUSD: {}, FieldMaxValueUSD: {},
	FieldMinUnitPrice: {}, FieldMaxUnitPrice: {}, FieldTransportMode: {}, FieldCarrier: {},
	FieldPage: {}, FieldPageSize: {}, FieldSortBy: {}, FieldSortOrder: {},
	FieldIncludeAggregations: {}, FieldExcludeCompanyIDs: {},
}

const (
	maxTextLength  = 200
	minPrefixLen   = 2
	minExactHSLen  = 6
	maxHSCodeLen   = 10
	hsWildcardChar = "*"
)

// Normalize validates raw filters and returns the canonical query. Errors
// are ValidationErrors naming the offending field.
func Normalize(raw map[string]any) (*models.SearchQuery, error) {
	if err := rejectUnknown(raw); err != nil {
		return nil, err
	}
	r := reader{raw: raw}
	q := &models.SearchQuery{}
	var err error

	if q.HSCode, q.HSCodePrefix, err = r.hsCode(FieldHSCode); err != nil {
		return nil, err
	}
	if q.ProductKeyword, err = r.text(FieldProductKeyword, strings.ToLower); err != nil {
		return nil, err
	}
	if q.ShipperName, err = r.text(FieldShipperName, strings.ToLower); err != nil {
		return nil, err
	}
	if q.ConsigneeName, err = r.text(FieldConsigneeName, strings.ToLower); err != nil {
		return nil, err
	}
	if q.ShipperID, err = r.text(FieldShipperID, nil); err != nil {
		return nil, err
	}
	if q.ConsigneeID, err = r.text(FieldConsigneeID, nil); err != nil {
		return nil, err
	}
	if q.OriginCountries, err = r.countrySet(FieldOriginCountries); err != nil {
		return nil, err
	}
	if q.DestinationCountries, err = r.countrySet(FieldDestinationCountries); err != nil {
		return nil, err
	}
	if q.PortsOfLoading, err = r.portSet(FieldPortsOfLoading); err != nil {
		return nil, err
	}
	if q.PortsOfDischarge, err = r.portSet(FieldPortsOfDischarge); err != nil {
		return nil, err
	}
	if q.DateFrom, err = r.date(FieldDateFrom, false); err != nil {
		return nil, err
	}
	if q.DateTo, err = r.date(FieldDateTo, true); err != nil {
		return nil, err
	}
	if q.DateFrom != nil && q.DateTo != nil && q.DateFrom.After(*q.DateTo) {
		return nil, dErrors.Validation(FieldDateFrom, "dateFrom must not be after dateTo")
	}
	if q.Quantity, err = r.numRange(FieldMinQuantity, FieldMaxQuantity); err != nil {
		return nil, err
	}
	if q.ValueUSD, err = r.numRange(FieldMinValueUSD, FieldMaxValueUSD); err != nil {
		return nil, err
	}
	if q.UnitPrice, err = r.numRange(FieldMinUnitPrice, FieldMaxUnitPrice); err != nil {
		return nil, err
	}
	if q.TransportMode, err = r.transportMode(FieldTransportMode); err != nil {
		return nil, err
	}
	if q.Carrier, err = r.text(FieldCarrier, strings.ToUpper); err != nil {
		return nil, err
	}
	if err := r.pagination(q); err != nil {
		return nil, err
	}
	if q.IncludeAggregations, err = r.boolean(FieldIncludeAggregations, true); err != nil {
		return nil, err
	}
	if q.ExcludeCompanyIDs, err = r.idSet(FieldExcludeCompanyIDs, models.MaxExcludedCompany); err != nil {
		return nil, err
	}
	return q, nil
}

func rejectUnknown(raw map[string]any) error {
	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if _, ok := knownFields[k]; !ok {
			return dErrors.Validation(k, "unknown filter")
		}
	}
	return nil
}

type reader struct {
	raw map[string]any
}

// value returns the raw value, treating nil and blank strings as absent.
func (r reader) value(key string) (any, bool) {
	v, ok := r.raw[key]
	if !ok || v == nil {
		return nil, false
	}
	if s, isString := v.(string); isString && strings.TrimSpace(s) == "" {
		return nil, false
	}
	return v, true
}

func (r reader) str(key string) (string, bool, error) {
	v, ok := r.value(key)
	if !ok {
		return "", false, nil
	}
	s, isString := v.(string)
	if !isString {
		return "", false, dErrors.Validation(key, "must be a string")
	}
	s = strings.Join(strings.Fields(s), " ")
	if len(s) > maxTextLength {
		return "", false, dErrors.Validation(key, fmt.Sprintf("must be at most %d characters", maxTextLength))
	}
	return s, true, nil
}

func (r reader) text(key string, fold func(string) string) (string, error) {
	s, ok, err := r.str(key)
	if err != nil || !ok {
		return "", err
	}
	if fold != nil {
		s = fold(s)
	}
	return s, nil
}

// strSet accepts a single string or a list of strings.
func (r reader) strSet(key string) ([]string, error) {
	v, ok := r.value(key)
	if !ok {
		return nil, nil
	}
	switch t := v.(type) {
	case string:
		return []string{t}, nil
	case []string:
		return t, nil
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			s, isString := item.(string)
			if !isString {
				return nil, dErrors.Validation(key, "must be a string or a list of strings")
			}
			out = append(out, s)
		}
		return out, nil
	}
	return nil, dErrors.Validation(key, "must be a string or a list of strings")
}

func (r reader) codeSet(key string, limit int, parse func(string) (string, error)) ([]string, error) {
	values, err := r.strSet(key)
	if err != nil {
		return nil, err
	}
	values = pstrings.UpperSet(values)
	if len(values) == 0 {
		return nil, nil
	}
	for i, v := range values {
		parsed, err := parse(v)
		if err != nil {
			return nil, dErrors.Validation(key, fmt.Sprintf("invalid code %q", v))
		}
		values[i] = parsed
	}
	// Parsing can fold distinct spellings ("DE HAM", "DEHAM") together.
	values = pstrings.SortedSet(values, nil)
	if len(values) > limit {
		return nil, dErrors.Validation(key, fmt.Sprintf("must contain at most %d entries", limit))
	}
	return values, nil
}

func (r reader) countrySet(key string) ([]string, error) {
	return r.codeSet(key, models.MaxCodeSetSize, func(s string) (string, error) {
		c, err := id.ParseCountryCode(s)
		return c.String(), err
	})
}

func (r reader) portSet(key string) ([]string, error) {
	return r.codeSet(key, models.MaxCodeSetSize, func(s string) (string, error) {
		p, err := id.ParsePortCode(s)
		return p.String(), err
	})
}

func (r reader) idSet(key string, limit int) ([]string, error) {
	values, err := r.strSet(key)
	if err != nil {
		return nil, err
	}
	values = pstrings.SortedSet(values, nil)
	if len(values) == 0 {
		return nil, nil
	}
	if len(values) > limit {
		return nil, dErrors.Validation(key, fmt.Sprintf("must contain at most %d entries", limit))
	}
	return values, nil
}

// hsCode returns the code without wildcard and whether it is a prefix match.
// Only a single trailing "*" is accepted.
func (r reader) hsCode(key string) (string, bool, error) {
	s, ok, err := r.str(key)
	if err != nil || !ok {
		return "", false, err
	}
	code := id.NormalizeHSCode(s)
	prefix := false
	switch n := strings.Count(code, hsWildcardChar); {
	case n > 1:
		return "", false, dErrors.Validation(key, "at most one wildcard is allowed")
	case n == 1:
		if !strings.HasSuffix(code, hsWildcardChar) {
			return "", false, dErrors.Validation(key, "wildcard must be the last character")
		}
		code = strings.TrimSuffix(code, hsWildcardChar)
		prefix = true
	}
	for _, c := range code {
		if c < '0' || c > '9' {
			return "", false, dErrors.Validation(key, "must contain digits only")
		}
	}
	minLen := minExactHSLen
	if prefix {
		minLen = minPrefixLen
	}
	if len(code) < minLen || len(code) > maxHSCodeLen {
		return "", false, dErrors.Validation(key, fmt.Sprintf("must have between %d and %d digits", minLen, maxHSCodeLen))
	}
	return code, prefix, nil
}

func (r reader) number(key string) (*float64, error) {
	v, ok := r.value(key)
	if !ok {
		return nil, nil
	}
	var f float64
	switch t := v.(type) {
	case json.Number:
		parsed, err := t.Float64()
		if err != nil {
			return nil, dErrors.Validation(key, "must be a number")
		}
		f = parsed
	case float64:
		f = t
	case int:
		f = float64(t)
	case int64:
		f = float64(t)
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return nil, dErrors.Validation(key, "must be a number")
		}
		f = parsed
	default:
		return nil, dErrors.Validation(key, "must be a number")
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, dErrors.Validation(key, "must be a finite number")
	}
	return &f, nil
}

func (r reader) numRange(minKey, maxKey string) (models.Range, error) {
	lo, err := r.number(minKey)
	if err != nil {
		return models.Range{}, err
	}
	hi, err := r.number(maxKey)
	if err != nil {
		return models.Range{}, err
	}
	if lo != nil && *lo < 0 {
		return models.Range{}, dErrors.Validation(minKey, "must not be negative")
	}
	if hi != nil && *hi < 0 {
		return models.Range{}, dErrors.Validation(maxKey, "must not be negative")
	}
	if lo != nil && hi != nil && *lo > *hi {
		return models.Range{}, dErrors.Validation(minKey, fmt.Sprintf("%s must not exceed %s", minKey, maxKey))
	}
	return models.Range{Min: lo, Max: hi}, nil
}

func (r reader) integer(key string, def int) (int, error) {
	f, err := r.number(key)
	if err != nil {
		return 0, err
	}
	if f == nil {
		return def, nil
	}
	if *f != math.Trunc(*f) || math.Abs(*f) > math.MaxInt32 {
		return 0, dErrors.Validation(key, "must be an integer")
	}
	return int(*f), nil
}

func (r reader) boolean(key string, def bool) (bool, error) {
	v, ok := r.value(key)
	if !ok {
		return def, nil
	}
	switch t := v.(type) {
	case bool:
		return t, nil
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(t))
		if err != nil {
			return false, dErrors.Validation(key, "must be a boolean")
		}
		return b, nil
	}
	return false, dErrors.Validation(key, "must be a boolean")
}

// date accepts YYYY-MM-DD or RFC 3339. A bare date used as an upper bound
// covers the whole day.
func (r reader) date(key string, endOfDay bool) (*time.Time, error) {
	s, ok, err := r.str(key)
	if err != nil || !ok {
		return nil, err
	}
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		if endOfDay {
			t = t.Add(24*time.Hour - time.Nanosecond)
		}
		return &t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil, dErrors.Validation(key, "must be a date (YYYY-MM-DD) or RFC 3339 timestamp")
	}
	t = t.UTC()
	return &t, nil
}

func (r reader) transportMode(key string) (models.TransportMode, error) {
	s, err := r.text(key, strings.ToUpper)
	if err != nil || s == "" {
		return "", err
	}
	mode := models.TransportMode(s)
	if !mode.IsValid() {
		return "", dErrors.Validation(key, "must be one of SEA, AIR, ROAD, RAIL")
	}
	return mode, nil
}

func (r reader) pagination(q *models.SearchQuery) error {
	var err error
	if q.Page, err = r.integer(FieldPage, models.DefaultPage); err != nil {
		return err
	}
	if q.Page < 1 {
		return dErrors.Validation(FieldPage, "must be at least 1")
	}
	if q.PageSize, err = r.integer(FieldPageSize, models.DefaultPageSize); err != nil {
		return err
	}
	if q.PageSize < 1 || q.PageSize > models.MaxPageSize {
		return dErrors.Validation(FieldPageSize, fmt.Sprintf("must be between 1 and %d", models.MaxPageSize))
	}

	sortBy, err := r.text(FieldSortBy, nil)
	if err != nil {
		return err
	}
	q.SortBy = models.SortShipmentDate
	if sortBy != "" {
		q.SortBy = models.SortField(sortBy)
		if !q.SortBy.IsValid() {
			return dErrors.Validation(FieldSortBy, "unsupported sort field")
		}
	}

	sortOrder, err := r.text(FieldSortOrder, strings.ToLower)
	if err != nil {
		return err
	}
	q.SortOrder = models.SortDesc
	if sortOrder != "" {
		q.SortOrder = models.SortOrder(sortOrder)
		if !q.SortOrder.IsValid() {
			return dErrors.Validation(FieldSortOrder, "must be asc or desc")
		}
	}
	return nil
}
