// Package ingest reads staging workbooks and reference files from disk and
// maps their source columns onto the canonical staging schema. It is the only
// layer that knows source file headers; everything downstream consumes
// canonical field names.
package ingest

import (
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/railstation/railrec/pkg/constants"
	"github.com/railstation/railrec/pkg/errors"
	"github.com/railstation/railrec/pkg/stg"
)

// headerAliases maps source column headers, lowercased, onto canonical
// staging fields. Station reports arrive with Russian headers; exports from
// other systems use English ones.
var headerAliases = map[string]string{
	"вагон №":            stg.FieldWagon,
	"номер вагона":       stg.FieldWagon,
	"wagon":              stg.FieldWagon,
	"накладная №":        stg.FieldInvoice,
	"накладная":          stg.FieldInvoice,
	"invoice":            stg.FieldInvoice,
	"ст. отправления":    stg.FieldOrigin,
	"станция отправления": stg.FieldOrigin,
	"origin":             stg.FieldOrigin,
	"ст. назначения":     stg.FieldDestination,
	"станция назначения": stg.FieldDestination,
	"destination":        stg.FieldDestination,
	"груж\\пор":          stg.FieldLoadStatus,
	"груж/пор":           stg.FieldLoadStatus,
	"load status":        stg.FieldLoadStatus,
	"перевозчик":         stg.FieldCarrier,
	"carrier":            stg.FieldCarrier,
	"дата отправления":   stg.FieldShipmentDate,
	"shipment date":      stg.FieldShipmentDate,
	"отчетная дата":      stg.FieldReportDate,
	"report date":        stg.FieldReportDate,
	"отправка №":         stg.FieldShipmentID,
	"shipment id":        stg.FieldShipmentID,
}

// canonicalField maps a source header onto a canonical staging field. The
// second return is false for columns the schema does not know; those are
// kept under their own name for traceability.
func canonicalField(header string) (string, bool) {
	field, ok := headerAliases[strings.ToLower(strings.TrimSpace(header))]
	return field, ok
}

// ReadSTGWorkbook reads one staging workbook's first sheet into raw rows.
// The header row is discovered within the top rows of the sheet, since
// station reports carry title banners above the table.
func ReadSTGWorkbook(path string) ([]stg.RawRow, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, errors.WrapIO("open", path, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.NewParseError("xlsx", path, "workbook has no sheets", nil)
	}
	return readSheet(f, sheets[0], path)
}

func readSheet(f *excelize.File, sheet, path string) ([]stg.RawRow, error) {
	cells, err := f.GetRows(sheet)
	if err != nil {
		return nil, errors.WrapParse("xlsx", path, err)
	}

	headerIdx, fields := discoverHeader(cells)
	if headerIdx < 0 {
		return nil, errors.NewParseError("xlsx", path, "no header row found in sheet "+sheet, nil)
	}

	var rows []stg.RawRow
	for _, cellRow := range cells[headerIdx+1:] {
		if emptyRow(cellRow) {
			continue
		}
		row := make(stg.RawRow, len(fields))
		for col, field := range fields {
			if col < len(cellRow) {
				row[field] = strings.TrimSpace(cellRow[col])
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// discoverHeader scans the top of a sheet for the row that carries the most
// recognized headers. Returns -1 when nothing within the scan depth maps to
// at least the origin and destination columns.
func discoverHeader(cells [][]string) (int, map[int]string) {
	bestIdx := -1
	bestRecognized := 0
	var bestFields map[int]string

	depth := len(cells)
	if depth > constants.MaxHeaderScanRows {
		depth = constants.MaxHeaderScanRows
	}

	for i := 0; i < depth; i++ {
		fields := make(map[int]string)
		recognized := 0
		for col, header := range cells[i] {
			if field, ok := canonicalField(header); ok {
				fields[col] = field
				recognized++
			} else if h := strings.TrimSpace(header); h != "" {
				fields[col] = h
			}
		}
		if recognized > bestRecognized && hasRequired(fields) {
			bestIdx = i
			bestRecognized = recognized
			bestFields = fields
		}
	}
	return bestIdx, bestFields
}

func hasRequired(fields map[int]string) bool {
	var origin, destination bool
	for _, f := range fields {
		switch f {
		case stg.FieldOrigin:
			origin = true
		case stg.FieldDestination:
			destination = true
		}
	}
	return origin && destination
}

func emptyRow(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
