package railrec

import (
	"github.com/railstation/railrec/pkg/expense"
	"github.com/railstation/railrec/pkg/report"
	"github.com/railstation/railrec/pkg/resolve"
)

// RunResult is the complete output of one batch run: one resolved route per
// shipment record (in record order), the expense lines of every priced
// shipment, and the audit summary.
type RunResult struct {
	Routes  []resolve.ResolvedRoute `json:"routes"`
	Lines   []expense.Line          `json:"lines"`
	Summary report.RunSummary       `json:"summary"`
}

// Unmatched returns the routes no reference layer had an entry for.
func (r *RunResult) Unmatched() []resolve.ResolvedRoute {
	var out []resolve.ResolvedRoute
	for _, rt := range r.Routes {
		if rt.Unmatched() && rt.Err == nil {
			out = append(out, rt)
		}
	}
	return out
}

// Failed returns the routes that carry a per-shipment failure.
func (r *RunResult) Failed() []resolve.ResolvedRoute {
	var out []resolve.ResolvedRoute
	for _, rt := range r.Routes {
		if rt.Err != nil {
			out = append(out, rt)
		}
	}
	return out
}

// LinesFor returns the expense lines of one shipment.
func (r *RunResult) LinesFor(shipmentID string) []expense.Line {
	var out []expense.Line
	for _, l := range r.Lines {
		if l.ShipmentID == shipmentID {
			out = append(out, l)
		}
	}
	return out
}
