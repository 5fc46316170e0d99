package stg

import (
	"fmt"
	"strings"
	"time"

	"github.com/railstation/railrec/pkg/constants"
	"github.com/railstation/railrec/pkg/errors"
)

// NormalizerConfig controls normalization behavior.
type NormalizerConfig struct {
	// Dedupe drops duplicate shipment identities, keeping the latest row by
	// report date. Dropped rows are counted, never silently discarded.
	Dedupe bool

	// RequireCarrier rejects rows without a carrier instead of letting them
	// match wildcard-carrier reference entries only.
	RequireCarrier bool
}

// Normalizer converts raw staging rows into shipment records.
type Normalizer struct {
	cfg NormalizerConfig
}

// NewNormalizer creates a Normalizer from configuration.
func NewNormalizer(cfg NormalizerConfig) *Normalizer {
	return &Normalizer{cfg: cfg}
}

// NormalizeResult collects the outcome of normalizing a row set. Every input
// row is accounted for: len(rows) == len(Records) + len(Errors) + Dropped.
type NormalizeResult struct {
	Records []ShipmentRecord
	Errors  []error
	Dropped int
}

// NormalizeAll normalizes every row, collecting per-row validation errors
// instead of aborting. The run proceeds with the valid subset.
func (n *Normalizer) NormalizeAll(rows []RawRow) *NormalizeResult {
	result := &NormalizeResult{}

	for i, row := range rows {
		rec, err := n.Normalize(row, i+1)
		if err != nil {
			result.Errors = append(result.Errors, err)
			continue
		}
		result.Records = append(result.Records, rec)
	}

	if n.cfg.Dedupe {
		result.Records, result.Dropped = dedupe(result.Records)
	}

	return result
}

// Normalize converts one raw row. The position is 1-based and appears in
// validation errors.
func (n *Normalizer) Normalize(row RawRow, pos int) (ShipmentRecord, error) {
	if len(row) == 0 {
		return ShipmentRecord{}, errors.NewValidationError(pos, "", nil, "empty row")
	}

	origin := row.Get(FieldOrigin)
	if origin == "" {
		return ShipmentRecord{}, errors.NewValidationError(pos, FieldOrigin, nil, "missing required field")
	}
	destination := row.Get(FieldDestination)
	if destination == "" {
		return ShipmentRecord{}, errors.NewValidationError(pos, FieldDestination, nil, "missing required field")
	}

	carrier := row.Get(FieldCarrier)
	if carrier == "" && n.cfg.RequireCarrier {
		return ShipmentRecord{}, errors.NewValidationError(pos, FieldCarrier, nil, "missing required field")
	}

	rawDate := row.Get(FieldShipmentDate)
	if rawDate == "" {
		return ShipmentRecord{}, errors.NewValidationError(pos, FieldShipmentDate, nil, "missing required field")
	}
	shipmentDate, err := parseDate(rawDate)
	if err != nil {
		return ShipmentRecord{}, errors.NewValidationError(pos, FieldShipmentDate, rawDate, "unparsable date")
	}

	wagon := row.Get(FieldWagon)
	if wagon != "" {
		wagon, err = normalizeWagon(wagon)
		if err != nil {
			return ShipmentRecord{}, errors.NewValidationError(pos, FieldWagon, row.Get(FieldWagon), "malformed identifier")
		}
	}
	invoice := row.Get(FieldInvoice)

	shipmentID := row.Get(FieldShipmentID)
	if shipmentID == "" {
		if wagon == "" || invoice == "" {
			return ShipmentRecord{}, errors.NewValidationError(pos, FieldShipmentID, nil,
				"missing required field: need shipment_id or wagon plus invoice")
		}
		shipmentID = wagon + "-" + invoice
	}

	status, ok := ParseLoadStatus(row.Get(FieldLoadStatus))
	if !ok {
		return ShipmentRecord{}, errors.NewValidationError(pos, FieldLoadStatus, row.Get(FieldLoadStatus),
			"unknown load status marker")
	}

	var reportDate time.Time
	if rawReport := row.Get(FieldReportDate); rawReport != "" {
		reportDate, err = parseDate(rawReport)
		if err != nil {
			return ShipmentRecord{}, errors.NewValidationError(pos, FieldReportDate, rawReport, "unparsable date")
		}
	}

	return ShipmentRecord{
		ShipmentID:   shipmentID,
		Origin:       origin,
		Destination:  destination,
		Carrier:      carrier,
		ShipmentDate: shipmentDate,
		Wagon:        wagon,
		Invoice:      invoice,
		LoadStatus:   status,
		ReportDate:   reportDate,
		RawFields:    copyFields(row),
	}, nil
}

// dedupe keeps the latest row per identity by effective report date; on a
// date tie the later row in file order wins, matching how daily reports
// supersede each other.
func dedupe(records []ShipmentRecord) ([]ShipmentRecord, int) {
	type slot struct {
		index int
		rec   ShipmentRecord
	}
	best := make(map[string]slot, len(records))
	order := make([]string, 0, len(records))

	for i, rec := range records {
		id := rec.Identity()
		cur, seen := best[id]
		if !seen {
			best[id] = slot{index: i, rec: rec}
			order = append(order, id)
			continue
		}
		if !rec.EffectiveReportDate().Before(cur.rec.EffectiveReportDate()) {
			best[id] = slot{index: cur.index, rec: rec}
		}
	}

	if len(order) == len(records) {
		return records, 0
	}

	out := make([]ShipmentRecord, 0, len(order))
	for _, id := range order {
		out = append(out, best[id].rec)
	}
	return out, len(records) - len(out)
}

// normalizeWagon zero-pads a numeric wagon number to its canonical width.
func normalizeWagon(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", fmt.Errorf("empty wagon number")
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return "", fmt.Errorf("wagon number %q contains non-digits", s)
		}
	}
	if len(s) > constants.WagonNumberWidth {
		return "", fmt.Errorf("wagon number %q longer than %d digits", s, constants.WagonNumberWidth)
	}
	return strings.Repeat("0", constants.WagonNumberWidth-len(s)) + s, nil
}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{constants.DateFormatISO, constants.DateFormatDotted} {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparsable date %q", s)
}

func copyFields(row RawRow) map[string]string {
	out := make(map[string]string, len(row))
	for k, v := range row {
		out[k] = v
	}
	return out
}
