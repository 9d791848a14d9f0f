package models

import "time"

// TransportMode is the normalized mode of carriage.
type TransportMode string

const (
	TransportSea  TransportMode = "SEA"
	TransportAir  TransportMode = "AIR"
	TransportRoad TransportMode = "ROAD"
	TransportRail TransportMode = "RAIL"
)

// IsValid checks if the transport mode is one of the supported enum values.
func (m TransportMode) IsValid() bool {
	switch m {
	case TransportSea, TransportAir, TransportRoad, TransportRail:
		return true
	}
	return false
}

// Shipment is one bill-of-lading level record from the indexed corpus.
// Quantity, ValueUSD and UnitPrice are optional in the source data.
type Shipment struct {
	ID                 string        `json:"id"`
	ShipmentDate       time.Time     `json:"shipmentDate"`
	HSCode             string        `json:"hsCode"`
	ProductDescription string        `json:"productDescription"`
	ShipperID          string        `json:"shipperId,omitempty"`
	ShipperName        string        `json:"shipperName,omitempty"`
	ConsigneeID        string        `json:"consigneeId,omitempty"`
	ConsigneeName      string        `json:"consigneeName,omitempty"`
	OriginCountry      string        `json:"originCountry,omitempty"`
	DestinationCountry string        `json:"destinationCountry,omitempty"`
	PortOfLoading      string        `json:"portOfLoading,omitempty"`
	PortOfDischarge    string        `json:"portOfDischarge,omitempty"`
	Quantity           *float64      `json:"quantity,omitempty"`
	QuantityUnit       string        `json:"quantityUnit,omitempty"`
	ValueUSD           *float64      `json:"valueUsd,omitempty"`
	UnitPrice          *float64      `json:"unitPrice,omitempty"`
	WeightKg           *float64      `json:"weightKg,omitempty"`
	TransportMode      TransportMode `json:"transportMode,omitempty"`
	Carrier            string        `json:"carrier,omitempty"`
}

// HSChapter returns the two-digit chapter of the shipment's HS code.
func (s *Shipment) HSChapter() string {
	if len(s.HSCode) < 2 {
		return ""
	}
	return s.HSCode[:2]
}
