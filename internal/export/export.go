// Package export streams search matches to CSV or NDJSON, capped by the
// caller's subscription tier.
package export

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	entmodels "tradegraph/internal/entitlement/models"
	"tradegraph/internal/search/models"
	"tradegraph/internal/search/ports"
	dErrors "tradegraph/pkg/domain-errors"
)

// DefaultChunkSize is how many rows are fetched from the index per call.
const DefaultChunkSize = 1000

// RowCaps is the maximum export size per tier.
var RowCaps = map[entmodels.Tier]int{
	entmodels.TierStarter:    500,
	entmodels.TierPro:        5_000,
	entmodels.TierEnterprise: 50_000,
	entmodels.TierChamber:    50_000,
	entmodels.TierGov:        100_000,
}

// RowCap returns the cap for tier. Unknown tiers get no rows.
func RowCap(tier entmodels.Tier) (int, bool) {
	c, ok := RowCaps[tier]
	return c, ok
}

// Format selects the output encoding.
type Format string

const (
	FormatCSV    Format = "csv"
	FormatNDJSON Format = "ndjson"
)

// ParseFormat defaults to CSV.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FormatCSV, nil
	case FormatCSV, FormatNDJSON:
		return f, nil
	}
	return "", dErrors.Validation("format", "must be csv or ndjson")
}

// ContentType is the media type written for f.
func (f Format) ContentType() string {
	if f == FormatNDJSON {
		return "application/x-ndjson"
	}
	return "text/csv; charset=utf-8"
}

// Plan describes an export before any row is written.
type Plan struct {
	Total     int  `json:"total"`
	RowCap    int  `json:"rowCap"`
	Rows      int  `json:"rows"`
	Truncated bool `json:"truncated"`
}

// Request is one export. BeforeWrite, when set, sees the plan before the
// first byte is written so transports can emit headers.
type Request struct {
	Query       *models.SearchQuery
	Tier        entmodels.Tier
	Format      Format
	BeforeWrite func(Plan)
}

type Exporter struct {
	pager     ports.Pager
	chunkSize int
	logger    *slog.Logger
}

type Option func(*Exporter)

func WithChunkSize(n int) Option {
	return func(e *Exporter) {
		if n > 0 {
			e.chunkSize = n
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(e *Exporter) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// New pages through pager, normally the search executor, so every chunk is
// bounded by its call timeout and retried.
func New(pager ports.Pager, opts ...Option) (*Exporter, error) {
	if pager == nil {
		return nil, errors.New("shipment pager is required")
	}
	e := &Exporter{pager: pager, chunkSize: DefaultChunkSize, logger: slog.Default()}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Export writes min(total, cap) rows in the query's sort order. Pagination
// fields of the query are ignored.
func (e *Exporter) Export(ctx context.Context, req Request, w io.Writer) (*Plan, error) {
	rowCap, ok := RowCap(req.Tier)
	if !ok {
		return nil, dErrors.New(dErrors.CodeInsufficientTier, "tier has no export allowance").
			WithDetail("required_tier", entmodels.TierStarter.String())
	}
	enc, err := newEncoder(req.Format, w)
	if err != nil {
		return nil, err
	}

	chunk := min(e.chunkSize, rowCap)
	first, err := e.fetch(ctx, req.Query, models.Window{Offset: 0, Limit: chunk})
	if err != nil {
		return nil, err
	}
	plan := &Plan{
		Total:     first.Total,
		RowCap:    rowCap,
		Rows:      min(first.Total, rowCap),
		Truncated: first.Total > rowCap,
	}
	if req.BeforeWrite != nil {
		req.BeforeWrite(*plan)
	}

	if err := enc.header(); err != nil {
		return nil, err
	}
	written := 0
	page := first
	for {
		for _, s := range page.Items {
			if written == plan.Rows {
				break
			}
			if err := enc.row(s); err != nil {
				return nil, err
			}
			written++
		}
		if written == plan.Rows || len(page.Items) == 0 {
			break
		}
		limit := min(chunk, plan.Rows-written)
		page, err = e.fetch(ctx, req.Query, models.Window{Offset: written, Limit: limit})
		if err != nil {
			// Rows already encoded still reach the writer.
			_ = enc.flush()
			plan.Rows = written
			return plan, err
		}
	}
	if err := enc.flush(); err != nil {
		return nil, err
	}

	// The index may shrink between chunks; report what was actually written.
	plan.Rows = written
	if plan.Truncated {
		e.logger.InfoContext(ctx, "export truncated",
			"tier", req.Tier.String(),
			"total", plan.Total,
			"row_cap", rowCap,
		)
	}
	return plan, nil
}

// fetch keeps domain errors from the pager and treats anything else as the
// index being unavailable.
func (e *Exporter) fetch(ctx context.Context, q *models.SearchQuery, w models.Window) (*models.Page, error) {
	page, err := e.pager.Page(ctx, q, w)
	if err == nil {
		return page, nil
	}
	if _, ok := dErrors.As(err); ok {
		return nil, err
	}
	return nil, dErrors.Wrap(err, dErrors.CodeUpstreamUnavailable, "shipment index unavailable")
}

var csvHeader = []string{
	"id", "shipmentDate", "hsCode", "productDescription",
	"shipperId", "shipperName", "consigneeId", "consigneeName",
	"originCountry", "destinationCountry", "portOfLoading", "portOfDischarge",
	"quantity", "quantityUnit", "valueUsd", "unitPrice", "weightKg",
	"transportMode", "carrier",
}

type encoder interface {
	header() error
	row(s *models.Shipment) error
	flush() error
}

func newEncoder(f Format, w io.Writer) (encoder, error) {
	switch f {
	case FormatCSV, "":
		return &csvEncoder{w: csv.NewWriter(w)}, nil
	case FormatNDJSON:
		return &jsonEncoder{enc: json.NewEncoder(w)}, nil
	}
	return nil, dErrors.Validation("format", "must be csv or ndjson")
}

type csvEncoder struct {
	w *csv.Writer
}

func (c *csvEncoder) header() error { return c.w.Write(csvHeader) }

func (c *csvEncoder) row(s *models.Shipment) error {
	return c.w.Write([]string{
		s.ID, s.ShipmentDate.UTC().Format(time.RFC3339), s.HSCode, s.ProductDescription,
		s.ShipperID, s.ShipperName, s.ConsigneeID, s.ConsigneeName,
		s.OriginCountry, s.DestinationCountry, s.PortOfLoading, s.PortOfDischarge,
		optional(s.Quantity), s.QuantityUnit, optional(s.ValueUSD), optional(s.UnitPrice), optional(s.WeightKg),
		string(s.TransportMode), s.Carrier,
	})
}

func (c *csvEncoder) flush() error {
	c.w.Flush()
	return c.w.Error()
}

type jsonEncoder struct {
	enc *json.Encoder
}

func (j *jsonEncoder) header() error                { return nil }
func (j *jsonEncoder) row(s *models.Shipment) error { return j.enc.Encode(s) }
func (j *jsonEncoder) flush() error                 { return nil }

func optional(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}
