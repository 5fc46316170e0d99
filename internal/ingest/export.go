package ingest

import (
	"io"
	"sort"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/railstation/railrec"
	"github.com/railstation/railrec/pkg/errors"
	"github.com/railstation/railrec/pkg/mapping"
)

const (
	routesSheet  = "Routes"
	linesSheet   = "Expenses"
	summarySheet = "Summary"
)

// WriteRunWorkbook renders a run result as an xlsx workbook. Route codes are
// projected through the mapping matrix when an active set is supplied; legs
// whose code reaches nothing active are exported flagged, never dropped.
func WriteRunWorkbook(w io.Writer, result *railrec.RunResult, matrix *mapping.Matrix, active mapping.ActiveSet) error {
	f := excelize.NewFile()
	defer f.Close()

	f.SetSheetName("Sheet1", routesSheet)
	for _, sheet := range []string{linesSheet, summarySheet} {
		if _, err := f.NewSheet(sheet); err != nil {
			return errors.WrapIO("write", sheet, err)
		}
	}

	writeRoutes(f, result, matrix, active)
	writeLines(f, result)
	writeSummary(f, result)

	if err := f.Write(w); err != nil {
		return errors.WrapIO("write", "run workbook", err)
	}
	return nil
}

func writeRoutes(f *excelize.File, result *railrec.RunResult, matrix *mapping.Matrix, active mapping.ActiveSet) {
	headers := []string{"Shipment", "Route ID", "Export Code", "Layer", "Inherited From", "Conflicts", "Status"}
	for col, h := range headers {
		setCell(f, routesSheet, col, 0, h)
	}

	for i, rt := range result.Routes {
		status := "matched"
		exportCode := rt.RouteID
		switch {
		case rt.Err != nil:
			status = rt.Err.Error()
			exportCode = ""
		case rt.RouteID == "":
			status = "unmatched"
		case active != nil:
			code, ok := mapping.Resolve(rt.RouteID, matrix, active)
			exportCode = code
			if !ok {
				status = "value is not active"
			}
		}

		row := i + 1
		setCell(f, routesSheet, 0, row, rt.ShipmentID)
		setCell(f, routesSheet, 1, row, rt.RouteID)
		setCell(f, routesSheet, 2, row, exportCode)
		setCell(f, routesSheet, 3, row, rt.ResolutionLayer.String())
		setCell(f, routesSheet, 4, row, rt.InheritedFrom)
		setCell(f, routesSheet, 5, row, strings.Join(rt.Conflicts, ", "))
		setCell(f, routesSheet, 6, row, status)
	}
}

func writeLines(f *excelize.File, result *railrec.RunResult) {
	headers := []string{"Shipment", "Route ID", "Component", "Amount", "Currency", "Rounded"}
	for col, h := range headers {
		setCell(f, linesSheet, col, 0, h)
	}
	for i, l := range result.Lines {
		row := i + 1
		setCell(f, linesSheet, 0, row, l.ShipmentID)
		setCell(f, linesSheet, 1, row, l.RouteID)
		setCell(f, linesSheet, 2, row, l.Component)
		setCell(f, linesSheet, 3, row, l.Amount.String())
		setCell(f, linesSheet, 4, row, l.Currency)
		setCell(f, linesSheet, 5, row, l.RoundingApplied)
	}
}

func writeSummary(f *excelize.File, result *railrec.RunResult) {
	row := 0
	put := func(label string, value any) {
		setCell(f, summarySheet, 0, row, label)
		setCell(f, summarySheet, 1, row, value)
		row++
	}
	s := result.Summary
	put("Run ID", s.RunID)
	put("Input rows", s.InputRows)
	put("Matched", s.Matched())
	put("Unmatched", s.Unmatched)
	put("Conflicts", s.Conflicts)
	put("Validation errors", s.ValidationErrors)
	put("Duplicates dropped", s.DuplicatesDropped)
	put("Inherited", s.Inherited)
	put("Collisions", s.Collisions)
	put("Imbalances", s.Imbalances)
	put("Expense lines", s.ExpenseLines)

	currencies := make([]string, 0, len(s.TotalsByCurrency))
	for c := range s.TotalsByCurrency {
		currencies = append(currencies, c)
	}
	sort.Strings(currencies)
	for _, c := range currencies {
		put("Total "+c, s.TotalsByCurrency[c].String())
	}
}

func setCell(f *excelize.File, sheet string, col, row int, value any) {
	cell, err := excelize.CoordinatesToCellName(col+1, row+1)
	if err != nil {
		return
	}
	// Per-cell failures are not actionable here; they surface on f.Write.
	_ = f.SetCellValue(sheet, cell, value)
}
