// Package railrec reconciles raw logistics staging records against layered
// reference data. Each shipment in a batch is assigned a canonical route ID
// by precedence across the Override, Exception, and Base reference tables;
// expense line items are computed from the winning entry's rate rule; and
// every decision (match, override, conflict, unmatched, failure) lands in an
// auditable run summary. A run is the unit of work: one set of staging rows
// plus one frozen reference snapshot, in, results out.
package railrec

import (
	"context"

	"github.com/railstation/railrec/pkg/reference"
	"github.com/railstation/railrec/pkg/stg"
)

// Engine runs reconciliation batches. Implementations are safe for
// concurrent use; each RunBatch call is an independent run.
type Engine interface {
	// RunBatch reconciles one batch of staging rows against one reference
	// snapshot. Per-shipment failures ride inside the result; the returned
	// error is non-nil only for run-level fatals: a structurally invalid
	// snapshot, or a canceled context.
	RunBatch(ctx context.Context, rows []stg.RawRow, snapshot *reference.Snapshot) (*RunResult, error)

	// RunBatchFromStore materializes a snapshot from the store and runs the
	// batch against it.
	RunBatchFromStore(ctx context.Context, rows []stg.RawRow, store reference.Store) (*RunResult, error)
}

// New creates an Engine with the given options.
func New(opts ...Option) (Engine, error) {
	e := &engine{config: defaultConfig()}
	for _, opt := range opts {
		if err := opt(&e.config); err != nil {
			return nil, err
		}
	}
	return e, nil
}
