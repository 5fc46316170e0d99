package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/railstation/railrec/pkg/reference"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func testEntries() []reference.ReferenceEntry {
	to := time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC)
	return []reference.ReferenceEntry{
		{
			ID:              "base-1",
			MatchKey:        reference.MatchKey{Origin: "A", Destination: "B", Carrier: "X", EffectiveTo: &to},
			RouteAttributes: map[string]string{"znp": "4711"},
			RateRule: reference.RateRule{
				Currency: "RUB",
				Components: []reference.RateComponent{
					{Component: "base", Amount: decimal.RequireFromString("100.00")},
				},
			},
			SourceLayer: reference.LayerBase,
		},
		{
			ID:              "base-2",
			MatchKey:        reference.MatchKey{Origin: "C", Destination: "D"},
			RouteAttributes: map[string]string{"znp": "4712"},
			SourceLayer:     reference.LayerBase,
		},
	}
}

func TestReplaceAndLoadLayer(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	if err := s.ReplaceLayer(ctx, reference.LayerBase, testEntries()); err != nil {
		t.Fatalf("ReplaceLayer() error: %v", err)
	}

	got, err := s.LoadBaseRoutes(ctx)
	if err != nil {
		t.Fatalf("LoadBaseRoutes() error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d entries, want 2", len(got))
	}

	e := got[0]
	if e.ID != "base-1" || e.SourceLayer != reference.LayerBase {
		t.Errorf("entry = %+v", e)
	}
	if e.MatchKey.EffectiveTo == nil || e.MatchKey.EffectiveTo.Format("2006-01-02") != "2024-03-31" {
		t.Errorf("effective_to = %v, date bounds must round-trip", e.MatchKey.EffectiveTo)
	}
	if e.RouteAttributes["znp"] != "4711" {
		t.Errorf("attributes = %v", e.RouteAttributes)
	}
	if len(e.RateRule.Components) != 1 || !e.RateRule.Components[0].Amount.Equal(decimal.RequireFromString("100.00")) {
		t.Errorf("rate rule = %+v, decimal amounts must round-trip exactly", e.RateRule)
	}

	if got[1].MatchKey.EffectiveFrom != nil || got[1].MatchKey.EffectiveTo != nil {
		t.Error("open-ended windows must stay nil")
	}
}

func TestReplaceLayerIsWholesale(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	if err := s.ReplaceLayer(ctx, reference.LayerOverride, testEntries()); err != nil {
		t.Fatal(err)
	}
	if err := s.ReplaceLayer(ctx, reference.LayerOverride, testEntries()[:1]); err != nil {
		t.Fatal(err)
	}

	got, err := s.LoadOverrides(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Errorf("got %d entries, want 1: replace swaps the whole layer", len(got))
	}
}

func TestSnapshotSpansLayers(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	if err := s.ReplaceLayer(ctx, reference.LayerBase, testEntries()); err != nil {
		t.Fatal(err)
	}
	if err := s.ReplaceLayer(ctx, reference.LayerException, testEntries()[:1]); err != nil {
		t.Fatal(err)
	}

	snap, err := s.Snapshot(ctx)
	if err != nil {
		t.Fatalf("Snapshot() error: %v", err)
	}
	if snap.Len() != 3 {
		t.Errorf("snapshot has %d entries, want 3", snap.Len())
	}
	if len(snap.Exceptions) != 1 || snap.Exceptions[0].SourceLayer != reference.LayerException {
		t.Errorf("exceptions = %+v", snap.Exceptions)
	}
	if err := snap.Validate(); err != nil {
		t.Errorf("Validate() error: %v", err)
	}
}

func TestEmptyStoreSnapshotFailsValidation(t *testing.T) {
	s := openTestStore(t)
	snap, err := s.Snapshot(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if err := snap.Validate(); err == nil {
		t.Error("an empty store's snapshot must not validate")
	}
}
