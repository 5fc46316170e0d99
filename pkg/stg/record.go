// Package stg turns raw staging rows into normalized shipment records.
// Rows arrive from daily station workbooks with a fixed schema plus
// carrier-specific extras; normalization is the only component that reads
// that schema.
package stg

import (
	"strings"
	"time"
)

// Canonical field names of the staging schema. Ingest adapters map source
// column headers onto these before normalization.
const (
	FieldShipmentID   = "shipment_id"
	FieldOrigin       = "origin"
	FieldDestination  = "destination"
	FieldCarrier      = "carrier"
	FieldShipmentDate = "shipment_date"
	FieldWagon        = "wagon"
	FieldInvoice      = "invoice"
	FieldLoadStatus   = "load_status"
	FieldReportDate   = "report_date"
)

// RawRow is one staging row before normalization, keyed by canonical field
// name. Unknown keys are preserved into the record's RawFields for
// traceability.
type RawRow map[string]string

// Get returns a trimmed field value.
func (r RawRow) Get(field string) string {
	return strings.TrimSpace(r[field])
}

const (
	// LoadStatusLoaded marks a revenue leg carrying freight.
	LoadStatusLoaded LoadStatus = "Loaded"
	// LoadStatusEmpty marks an empty repositioning leg.
	LoadStatusEmpty LoadStatus = "Empty"
	// LoadStatusUnknown marks a row that does not participate in trip
	// assembly.
	LoadStatusUnknown LoadStatus = ""
)

// LoadStatus classifies a leg for trip assembly. Station reports use the
// markers ГРУЖ (loaded) and ПОР (empty).
type LoadStatus string

// String returns the string representation of a LoadStatus.
func (s LoadStatus) String() string {
	return string(s)
}

// ParseLoadStatus maps source markers onto a LoadStatus. An empty input is
// LoadStatusUnknown, not an error; an unrecognized marker is reported by the
// second return.
func ParseLoadStatus(s string) (LoadStatus, bool) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "":
		return LoadStatusUnknown, true
	case "ГРУЖ", "LOADED", "L":
		return LoadStatusLoaded, true
	case "ПОР", "EMPTY", "E":
		return LoadStatusEmpty, true
	default:
		return LoadStatusUnknown, false
	}
}

// ShipmentRecord is one normalized staging row. Records are immutable once
// created; trip assembly returns fresh copies rather than mutating.
type ShipmentRecord struct {
	ShipmentID   string            `json:"shipment_id"`
	Origin       string            `json:"origin"`
	Destination  string            `json:"destination"`
	Carrier      string            `json:"carrier,omitempty"`
	ShipmentDate time.Time         `json:"shipment_date"`
	Wagon        string            `json:"wagon,omitempty"`
	Invoice      string            `json:"invoice,omitempty"`
	LoadStatus   LoadStatus        `json:"load_status,omitempty"`
	ReportDate   time.Time         `json:"report_date,omitempty"`
	TripID       int               `json:"trip_id,omitempty"`
	RawFields    map[string]string `json:"raw_fields,omitempty"`
}

// EffectiveReportDate returns the report date, falling back to the shipment
// date when the report column was absent.
func (r ShipmentRecord) EffectiveReportDate() time.Time {
	if !r.ReportDate.IsZero() {
		return r.ReportDate
	}
	return r.ShipmentDate
}

// Identity returns the duplicate-detection key: wagon plus invoice when both
// are present, otherwise the shipment ID.
func (r ShipmentRecord) Identity() string {
	if r.Wagon != "" && r.Invoice != "" {
		return r.Wagon + "|" + r.Invoice
	}
	return r.ShipmentID
}
