package report

import (
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/railstation/railrec/pkg/errors"
	"github.com/railstation/railrec/pkg/expense"
	"github.com/railstation/railrec/pkg/reference"
	"github.com/railstation/railrec/pkg/resolve"
)

func matchedRoute(id string, layer reference.Layer) *resolve.ResolvedRoute {
	return &resolve.ResolvedRoute{
		ShipmentID:      id,
		RouteID:         "R" + id,
		MatchedEntry:    &reference.ReferenceEntry{ID: "entry-" + id, SourceLayer: layer},
		ResolutionLayer: layer,
	}
}

func TestBuilderAggregation(t *testing.T) {
	b := NewBuilder()
	b.SetInput(5, 4, 0, []error{errors.NewValidationError(3, "origin", nil, "missing required field")})

	b.AddRoute(matchedRoute("s1", reference.LayerOverride))
	b.AddRoute(matchedRoute("s2", reference.LayerBase))
	b.AddRoute(&resolve.ResolvedRoute{ShipmentID: "s3"}) // unmatched
	collided := &resolve.ResolvedRoute{
		ShipmentID: "s4",
		Err:        errors.NewCollisionError("Rxyz", "a=1", "a=2"),
	}
	b.AddRoute(collided)

	b.AddLines([]expense.Line{
		{ShipmentID: "s1", Currency: "RUB", Amount: decimal.RequireFromString("90.00")},
		{ShipmentID: "s2", Currency: "RUB", Amount: decimal.RequireFromString("100.00")},
		{ShipmentID: "s2", Currency: "USD", Amount: decimal.RequireFromString("12.35")},
	})

	s := b.Build()

	require.NotEmpty(t, s.RunID)
	assert.Equal(t, 5, s.InputRows)
	assert.Equal(t, 4, s.Records)
	assert.Equal(t, 1, s.ValidationErrors)
	assert.Equal(t, 1, s.MatchedByLayer[reference.LayerOverride])
	assert.Equal(t, 1, s.MatchedByLayer[reference.LayerBase])
	assert.Equal(t, 2, s.Matched())
	assert.Equal(t, 1, s.Unmatched)
	assert.Equal(t, 1, s.Collisions)
	assert.Equal(t, 3, s.ExpenseLines)
	assert.True(t, s.TotalsByCurrency["RUB"].Equal(decimal.RequireFromString("190.00")))
	assert.True(t, s.TotalsByCurrency["USD"].Equal(decimal.RequireFromString("12.35")))
	assert.Len(t, s.Failures, 2)

	// No silent drops: rows = records + validation errors, and every record
	// landed in exactly one outcome bucket.
	assert.Equal(t, s.InputRows, s.Records+s.ValidationErrors+s.DuplicatesDropped)
	assert.Equal(t, s.Records, s.Matched()+s.Unmatched+s.Collisions+s.Imbalances)
}

func TestBuilderConflictCountsMatchedShipment(t *testing.T) {
	b := NewBuilder()
	rt := matchedRoute("s1", reference.LayerBase)
	rt.Conflicts = []string{"entry-other"}
	rt.Err = errors.NewConflictError("s1", "Base", []string{"entry-other"})
	b.AddRoute(rt)

	s := b.Build()
	assert.Equal(t, 1, s.Conflicts)
	assert.Equal(t, 1, s.Matched(), "a conflicted shipment still resolves")
}

func TestBuilderOrderIndependence(t *testing.T) {
	build := func(order []int) RunSummary {
		b := NewBuilder()
		routes := []*resolve.ResolvedRoute{
			matchedRoute("s1", reference.LayerOverride),
			{ShipmentID: "s2"},
			{ShipmentID: "s3", Err: errors.NewImbalanceError("s3", "10", "12", "0.01")},
		}
		for _, i := range order {
			b.AddRoute(routes[i])
		}
		return b.Build()
	}

	a := build([]int{0, 1, 2})
	z := build([]int{2, 1, 0})

	assert.Equal(t, a.MatchedByLayer, z.MatchedByLayer)
	assert.Equal(t, a.Unmatched, z.Unmatched)
	assert.Equal(t, a.Imbalances, z.Imbalances)
	assert.Equal(t, a.Failures, z.Failures, "failure list is sorted, not arrival-ordered")
}

func TestBuilderConcurrentUse(t *testing.T) {
	b := NewBuilder()

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				b.AddRoute(matchedRoute("s", reference.LayerBase))
				b.AddLines([]expense.Line{{Currency: "RUB", Amount: decimal.New(1, 0)}})
			}
		}(w)
	}
	wg.Wait()

	s := b.Build()
	assert.Equal(t, 800, s.Matched())
	assert.True(t, s.TotalsByCurrency["RUB"].Equal(decimal.New(800, 0)))
}
