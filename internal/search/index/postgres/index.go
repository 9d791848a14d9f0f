// Package postgres serves shipment searches from PostgreSQL through pgx.
package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"tradegraph/internal/search/models"
)

const shipmentColumns = `id, shipment_date, hs_code, product_description,
	shipper_id, shipper_name, consignee_id, consignee_name,
	origin_country, destination_country, port_of_loading, port_of_discharge,
	quantity, quantity_unit, value_usd, unit_price, weight_kg, transport_mode, carrier`

// Index reads the shipments table.
type Index struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Index {
	return &Index{pool: pool}
}

func (i *Index) Query(ctx context.Context, q *models.SearchQuery, w models.Window) (*models.Page, error) {
	where, args := buildWhere(q)

	var total int
	if err := i.pool.QueryRow(ctx, "SELECT COUNT(*) FROM shipments"+where, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count shipments: %w", err)
	}
	page := &models.Page{Total: total, Items: []*models.Shipment{}}
	if w.Offset >= total || w.Limit <= 0 {
		return page, nil
	}

	args = append(args, w.Limit, w.Offset)
	sql := fmt.Sprintf("SELECT %s FROM shipments%s ORDER BY %s LIMIT $%d OFFSET $%d",
		shipmentColumns, where, orderBy(q), len(args)-1, len(args))
	rows, err := i.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query shipments: %w", err)
	}
	items, err := pgx.CollectRows(rows, scanShipment)
	if err != nil {
		return nil, fmt.Errorf("read shipments: %w", err)
	}
	page.Items = items
	return page, nil
}

func (i *Index) Scan(ctx context.Context, q *models.SearchQuery, fn func(*models.Shipment) error) error {
	where, args := buildWhere(q)
	sql := fmt.Sprintf("SELECT %s FROM shipments%s ORDER BY %s", shipmentColumns, where, orderBy(q))
	rows, err := i.pool.Query(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("scan shipments: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		s, err := scanShipment(rows)
		if err != nil {
			return fmt.Errorf("read shipment: %w", err)
		}
		if err := fn(s); err != nil {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("scan shipments: %w", err)
	}
	return nil
}

// Save upserts shipments. Used for loading the corpus and by tests.
func (i *Index) Save(ctx context.Context, shipments ...*models.Shipment) error {
	batch := &pgx.Batch{}
	for _, s := range shipments {
		batch.Queue(`INSERT INTO shipments (`+shipmentColumns+`)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19)
			ON CONFLICT (id) DO UPDATE SET
				shipment_date = EXCLUDED.shipment_date, hs_code = EXCLUDED.hs_code,
				product_description = EXCLUDED.product_description,
				shipper_id = EXCLUDED.shipper_id, shipper_name = EXCLUDED.shipper_name,
				consignee_id = EXCLUDED.consignee_id, consignee_name = EXCLUDED.consignee_name,
				origin_country = EXCLUDED.origin_country, destination_country = EXCLUDED.destination_country,
				port_of_loading = EXCLUDED.port_of_loading, port_of_discharge = EXCLUDED.port_of_discharge,
				quantity = EXCLUDED.quantity, quantity_unit = EXCLUDED.quantity_unit,
				value_usd = EXCLUDED.value_usd, unit_price = EXCLUDED.unit_price,
				weight_kg = EXCLUDED.weight_kg, transport_mode = EXCLUDED.transport_mode,
				carrier = EXCLUDED.carrier`,
			s.ID, s.ShipmentDate, s.HSCode, s.ProductDescription,
			s.ShipperID, s.ShipperName, s.ConsigneeID, s.ConsigneeName,
			s.OriginCountry, s.DestinationCountry, s.PortOfLoading, s.PortOfDischarge,
			s.Quantity, s.QuantityUnit, s.ValueUSD, s.UnitPrice, s.WeightKg, string(s.TransportMode), s.Carrier,
		)
	}
	if err := i.pool.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("save shipments: %w", err)
	}
	return nil
}

func scanShipment(row pgx.CollectableRow) (*models.Shipment, error) {
	var (
		s    models.Shipment
		mode string
	)
	err := row.Scan(&s.ID, &s.ShipmentDate, &s.HSCode, &s.ProductDescription,
		&s.ShipperID, &s.ShipperName, &s.ConsigneeID, &s.ConsigneeName,
		&s.OriginCountry, &s.DestinationCountry, &s.PortOfLoading, &s.PortOfDischarge,
		&s.Quantity, &s.QuantityUnit, &s.ValueUSD, &s.UnitPrice, &s.WeightKg, &mode, &s.Carrier)
	if err != nil {
		return nil, err
	}
	s.ShipmentDate = s.ShipmentDate.UTC()
	s.TransportMode = models.TransportMode(mode)
	return &s, nil
}

// whereBuilder collects AND-ed predicates with positional arguments.
type whereBuilder struct {
	clauses []string
	args    []any
}

func (b *whereBuilder) add(clause string, args ...any) {
	for _, a := range args {
		b.args = append(b.args, a)
		clause = strings.Replace(clause, "?", fmt.Sprintf("$%d", len(b.args)), 1)
	}
	b.clauses = append(b.clauses, clause)
}

func buildWhere(q *models.SearchQuery) (string, []any) {
	b := &whereBuilder{}
	if q.HSCode != "" {
		if q.HSCodePrefix {
			b.add("hs_code LIKE ?", q.HSCode+"%")
		} else {
			b.add("hs_code = ?", q.HSCode)
		}
	}
	for _, term := range strings.Fields(q.ProductKeyword) {
		b.add("product_description ILIKE ?", containsPattern(term))
	}
	if q.ShipperName != "" {
		b.add("shipper_name ILIKE ?", containsPattern(q.ShipperName))
	}
	if q.ConsigneeName != "" {
		b.add("consignee_name ILIKE ?", containsPattern(q.ConsigneeName))
	}
	if q.ShipperID != "" {
		b.add("shipper_id = ?", q.ShipperID)
	}
	if q.ConsigneeID != "" {
		b.add("consignee_id = ?", q.ConsigneeID)
	}
	if len(q.OriginCountries) > 0 {
		b.add("origin_country = ANY(?)", q.OriginCountries)
	}
	if len(q.DestinationCountries) > 0 {
		b.add("destination_country = ANY(?)", q.DestinationCountries)
	}
	if len(q.PortsOfLoading) > 0 {
		b.add("port_of_loading = ANY(?)", q.PortsOfLoading)
	}
	if len(q.PortsOfDischarge) > 0 {
		b.add("port_of_discharge = ANY(?)", q.PortsOfDischarge)
	}
	if q.DateFrom != nil {
		b.add("shipment_date >= ?", *q.DateFrom)
	}
	if q.DateTo != nil {
		b.add("shipment_date <= ?", *q.DateTo)
	}
	addRange(b, "quantity", q.Quantity)
	addRange(b, "value_usd", q.ValueUSD)
	addRange(b, "unit_price", q.UnitPrice)
	if q.TransportMode != "" {
		b.add("transport_mode = ?", string(q.TransportMode))
	}
	if q.Carrier != "" {
		b.add("upper(carrier) = ?", q.Carrier)
	}
	if len(q.ExcludeCompanyIDs) > 0 {
		b.add("NOT (shipper_id = ANY(?) OR consignee_id = ANY(?))", q.ExcludeCompanyIDs, q.ExcludeCompanyIDs)
	}
	if len(b.clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(b.clauses, " AND "), b.args
}

func addRange(b *whereBuilder, column string, r models.Range) {
	if r.Min != nil {
		b.add(column+" >= ?", *r.Min)
	}
	if r.Max != nil {
		b.add(column+" <= ?", *r.Max)
	}
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func containsPattern(term string) string {
	return "%" + likeEscaper.Replace(term) + "%"
}

var sortColumns = map[models.SortField]string{
	models.SortShipmentDate: "shipment_date",
	models.SortValueUSD:     "value_usd",
	models.SortQuantity:     "quantity",
	models.SortUnitPrice:    "unit_price",
	models.SortHSCode:       "hs_code",
}

// orderBy mirrors SearchQuery.Compare: absent values last, id ascending as tiebreak.
func orderBy(q *models.SearchQuery) string {
	col, ok := sortColumns[q.SortBy]
	if !ok {
		col = sortColumns[models.SortShipmentDate]
	}
	dir := "DESC"
	if q.SortOrder == models.SortAsc {
		dir = "ASC"
	}
	return fmt.Sprintf("%s %s NULLS LAST, id ASC", col, dir)
}
