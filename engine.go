package railrec

import (
	"context"
	"sync"

	"github.com/railstation/railrec/pkg/errors"
	"github.com/railstation/railrec/pkg/expense"
	"github.com/railstation/railrec/pkg/reference"
	"github.com/railstation/railrec/pkg/report"
	"github.com/railstation/railrec/pkg/resolve"
	"github.com/railstation/railrec/pkg/routeid"
	"github.com/railstation/railrec/pkg/stg"
)

// engine is the internal implementation of the Engine interface.
type engine struct {
	config config
}

// RunBatch implements Engine.
func (e *engine) RunBatch(ctx context.Context, rows []stg.RawRow, snapshot *reference.Snapshot) (*RunResult, error) {
	if err := snapshot.Validate(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, errors.ErrCanceled
	}

	log := e.config.logger
	builder := report.NewBuilder()

	// Normalize every row up front; the run proceeds with the valid subset.
	normalizer := stg.NewNormalizer(stg.NormalizerConfig{
		Dedupe:         e.config.dedupe,
		RequireCarrier: e.config.requireCarrier,
	})
	normalized := normalizer.NormalizeAll(rows)
	builder.SetInput(len(rows), len(normalized.Records), normalized.Dropped, normalized.Errors)

	records := normalized.Records
	if e.config.tripInheritance {
		records = stg.AssignTrips(records)
	}

	log.Debug().
		Int("rows", len(rows)).
		Int("records", len(records)).
		Int("rejected", len(normalized.Errors)).
		Int("dropped", normalized.Dropped).
		Int("snapshot_entries", snapshot.Len()).
		Int("workers", e.config.workers).
		Msg("starting batch run")

	resolver := resolve.NewResolver(snapshot)
	generator := routeid.NewGenerator(e.config.routeIDHexLen)
	calculator := expense.NewCalculator(e.config.rounding)

	// Slot-indexed results: workers write disjoint indices, so output order
	// matches record order regardless of scheduling.
	routes := make([]resolve.ResolvedRoute, len(records))
	lineSlots := make([][]expense.Line, len(records))

	if err := e.forEachRecord(ctx, records, func(i int) {
		rt := resolver.Resolve(&records[i])
		e.price(&rt, generator, calculator, &lineSlots[i])
		routes[i] = rt
	}); err != nil {
		return nil, err
	}

	if e.config.tripInheritance {
		inherited := resolve.InheritTrips(records, routes)
		if inherited > 0 {
			log.Debug().Int("inherited", inherited).Msg("trip inheritance filled unmatched legs")
			// Inherited legs were unpriced on the first pass.
			for i := range routes {
				if routes[i].InheritedFrom != "" {
					e.priceInherited(&routes[i], calculator, &lineSlots[i])
				}
			}
		}
	}

	lines := make([]expense.Line, 0, len(records))
	for i := range routes {
		builder.AddRoute(&routes[i])
		if routes[i].Err != nil && !errors.IsConflict(routes[i].Err) {
			log.Warn().Str("shipment_id", routes[i].ShipmentID).Err(routes[i].Err).Msg("shipment failed")
		}
		builder.AddLines(lineSlots[i])
		lines = append(lines, lineSlots[i]...)
	}

	summary := builder.Build()
	log.Info().
		Str("run_id", summary.RunID).
		Int("matched", summary.Matched()).
		Int("unmatched", summary.Unmatched).
		Int("conflicts", summary.Conflicts).
		Int("expense_lines", summary.ExpenseLines).
		Dur("duration", summary.Duration).
		Msg("batch run complete")

	return &RunResult{Routes: routes, Lines: lines, Summary: summary}, nil
}

// RunBatchFromStore implements Engine.
func (e *engine) RunBatchFromStore(ctx context.Context, rows []stg.RawRow, store reference.Store) (*RunResult, error) {
	snapshot, err := store.Snapshot(ctx)
	if err != nil {
		return nil, errors.WrapStore("load", "snapshot", err)
	}
	return e.RunBatch(ctx, rows, snapshot)
}

// price derives the route ID and computes expense lines for a directly
// resolved route. A shipment's resolution and pricing is atomic: a failure
// at any stage replaces the whole outcome, nothing partial escapes.
func (e *engine) price(rt *resolve.ResolvedRoute, generator *routeid.Generator, calculator *expense.Calculator, slot *[]expense.Line) {
	if rt.MatchedEntry == nil {
		return
	}

	id, err := generator.Derive(rt.MatchedEntry.RouteAttributes, rt.ResolutionLayer)
	if err != nil {
		rt.Err = err
		return
	}
	rt.RouteID = id

	lines, err := calculator.Calculate(rt)
	if err != nil {
		rt.Err = err
		rt.RouteID = ""
		return
	}
	*slot = lines
}

// priceInherited computes lines for a leg that adopted its trip's route. The
// route ID is already inherited; only pricing runs.
func (e *engine) priceInherited(rt *resolve.ResolvedRoute, calculator *expense.Calculator, slot *[]expense.Line) {
	lines, err := calculator.Calculate(rt)
	if err != nil {
		rt.Err = err
		return
	}
	*slot = lines
}

// forEachRecord fans records out over the worker pool. Cancellation is
// cooperative between shipments; a shipment already picked up completes.
func (e *engine) forEachRecord(ctx context.Context, records []stg.ShipmentRecord, fn func(i int)) error {
	workers := e.config.workers
	if workers > len(records) {
		workers = len(records)
	}
	if workers <= 1 {
		for i := range records {
			if ctx.Err() != nil {
				return errors.ErrCanceled
			}
			fn(i)
		}
		return nil
	}

	indices := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range indices {
				fn(i)
			}
		}()
	}

	canceled := false
feed:
	for i := range records {
		select {
		case <-ctx.Done():
			canceled = true
			break feed
		case indices <- i:
		}
	}
	close(indices)
	wg.Wait()

	if canceled {
		return errors.ErrCanceled
	}
	return nil
}
