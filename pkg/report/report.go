// Package report aggregates the outcome of a run into an immutable summary.
// Aggregation is pure and order-independent: counts and per-currency totals
// only, so worker results can be merged in any arrival order and identical
// inputs always produce an identical summary.
package report

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/railstation/railrec/pkg/errors"
	"github.com/railstation/railrec/pkg/expense"
	"github.com/railstation/railrec/pkg/reference"
	"github.com/railstation/railrec/pkg/resolve"
)

// RunSummary is the audit record of one batch run. Immutable once built.
type RunSummary struct {
	RunID       string        `json:"run_id"`
	StartedAt   time.Time     `json:"started_at"`
	CompletedAt time.Time     `json:"completed_at"`
	Duration    time.Duration `json:"duration"`

	// Input accounting. InputRows == Records + ValidationErrors + DuplicatesDropped.
	InputRows         int `json:"input_rows"`
	Records           int `json:"records"`
	ValidationErrors  int `json:"validation_errors"`
	DuplicatesDropped int `json:"duplicates_dropped,omitempty"`

	// Resolution outcomes. Every record appears in exactly one of:
	// a layer bucket, Unmatched, or a fatal bucket.
	MatchedByLayer map[reference.Layer]int `json:"matched_by_layer"`
	Unmatched      int                     `json:"unmatched"`
	Conflicts      int                     `json:"conflicts"`
	Inherited      int                     `json:"inherited,omitempty"`
	Collisions     int                     `json:"collisions,omitempty"`
	Imbalances     int                     `json:"imbalances,omitempty"`

	ExpenseLines     int                        `json:"expense_lines"`
	TotalsByCurrency map[string]decimal.Decimal `json:"totals_by_currency"`

	// Failures carries each collected per-shipment and per-row error, for
	// the audit trail. Counts above are derived from it plus the routes.
	Failures []string `json:"failures,omitempty"`
}

// Matched returns the total count of directly or inheritance-resolved
// shipments.
func (s *RunSummary) Matched() int {
	n := 0
	for _, c := range s.MatchedByLayer {
		n += c
	}
	return n
}

// String renders a one-line operator summary.
func (s *RunSummary) String() string {
	return fmt.Sprintf("run %s: %d rows, %d matched, %d unmatched, %d conflicts, %d errors in %s",
		s.RunID, s.InputRows, s.Matched(), s.Unmatched, s.Conflicts,
		s.ValidationErrors+s.Collisions+s.Imbalances, s.Duration)
}

// Builder accumulates run outcomes from any number of workers. All methods
// are safe for concurrent use; Build freezes the result.
type Builder struct {
	mu      sync.Mutex
	summary RunSummary
}

// NewBuilder starts a summary for a new run.
func NewBuilder() *Builder {
	return &Builder{
		summary: RunSummary{
			RunID:            uuid.NewString(),
			StartedAt:        time.Now().UTC(),
			MatchedByLayer:   make(map[reference.Layer]int),
			TotalsByCurrency: make(map[string]decimal.Decimal),
		},
	}
}

// SetInput records the raw row count and normalization outcome.
func (b *Builder) SetInput(rows, records, dropped int, validationErrs []error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.summary.InputRows = rows
	b.summary.Records = records
	b.summary.DuplicatesDropped = dropped
	b.summary.ValidationErrors = len(validationErrs)
	for _, err := range validationErrs {
		b.summary.Failures = append(b.summary.Failures, err.Error())
	}
}

// AddRoute records one resolution outcome.
func (b *Builder) AddRoute(rt *resolve.ResolvedRoute) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch {
	case errors.IsCollision(rt.Err):
		b.summary.Collisions++
	case errors.IsImbalance(rt.Err):
		b.summary.Imbalances++
	case rt.Matched():
		b.summary.MatchedByLayer[rt.ResolutionLayer]++
		if rt.InheritedFrom != "" {
			b.summary.Inherited++
		}
	default:
		b.summary.Unmatched++
	}

	if rt.Conflicted() {
		b.summary.Conflicts++
	}
	if rt.Err != nil {
		b.summary.Failures = append(b.summary.Failures, rt.Err.Error())
	}
}

// AddLines records a shipment's expense lines into the per-currency totals.
func (b *Builder) AddLines(lines []expense.Line) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.summary.ExpenseLines += len(lines)
	for _, l := range lines {
		b.summary.TotalsByCurrency[l.Currency] = b.summary.TotalsByCurrency[l.Currency].Add(l.Amount)
	}
}

// Build closes the run and returns the frozen summary.
func (b *Builder) Build() RunSummary {
	b.mu.Lock()
	defer b.mu.Unlock()

	s := b.summary
	s.CompletedAt = time.Now().UTC()
	s.Duration = s.CompletedAt.Sub(s.StartedAt)

	// Deterministic failure ordering: workers finish in arrival order, the
	// summary must not depend on it.
	s.Failures = append([]string(nil), s.Failures...)
	sort.Strings(s.Failures)

	s.MatchedByLayer = copyLayerCounts(b.summary.MatchedByLayer)
	s.TotalsByCurrency = copyTotals(b.summary.TotalsByCurrency)
	return s
}

func copyLayerCounts(in map[reference.Layer]int) map[reference.Layer]int {
	out := make(map[reference.Layer]int, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func copyTotals(in map[string]decimal.Decimal) map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
