package reference

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/railstation/railrec/pkg/errors"
)

func sampleEntry(id string, layer Layer) ReferenceEntry {
	return ReferenceEntry{
		ID:              id,
		MatchKey:        MatchKey{Origin: "A", Destination: "B"},
		RouteAttributes: map[string]string{"znp": "4711"},
		RateRule: RateRule{Components: []RateComponent{
			{Component: "base", Amount: decimal.RequireFromString("100.00")},
		}},
		SourceLayer: layer,
	}
}

func TestSnapshotValidate(t *testing.T) {
	t.Run("nil snapshot", func(t *testing.T) {
		var s *Snapshot
		if err := s.Validate(); !errors.IsEmptySnapshot(err) {
			t.Errorf("expected empty snapshot error, got %v", err)
		}
	})

	t.Run("empty snapshot", func(t *testing.T) {
		s := &Snapshot{}
		if err := s.Validate(); !errors.IsEmptySnapshot(err) {
			t.Errorf("expected empty snapshot error, got %v", err)
		}
	})

	t.Run("single entry in one layer is enough", func(t *testing.T) {
		s := &Snapshot{BaseRoutes: []ReferenceEntry{sampleEntry("base-1", LayerBase)}}
		if err := s.Validate(); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})
}

func TestSnapshotEntries(t *testing.T) {
	s := &Snapshot{
		BaseRoutes: []ReferenceEntry{sampleEntry("base-1", LayerBase)},
		Exceptions: []ReferenceEntry{sampleEntry("exc-1", LayerException)},
		Overrides:  []ReferenceEntry{sampleEntry("ovr-1", LayerOverride)},
	}

	if got := len(s.Entries(LayerBase)); got != 1 {
		t.Errorf("Base entries = %d, want 1", got)
	}
	if got := s.Len(); got != 3 {
		t.Errorf("Len() = %d, want 3", got)
	}
	if got := s.Entries(Layer("Bogus")); got != nil {
		t.Errorf("unknown layer should yield nil, got %v", got)
	}
}

func TestSnapshotEntryLookup(t *testing.T) {
	s := &Snapshot{
		BaseRoutes: []ReferenceEntry{sampleEntry("base-1", LayerBase)},
		Overrides:  []ReferenceEntry{sampleEntry("ovr-1", LayerOverride)},
	}

	entry, err := s.Entry("ovr-1")
	if err != nil {
		t.Fatalf("Entry(ovr-1) error: %v", err)
	}
	if entry.SourceLayer != LayerOverride {
		t.Errorf("Entry layer = %s, want Override", entry.SourceLayer)
	}

	if _, err := s.Entry("missing"); !errors.IsNotFound(err) {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestSnapshotLint(t *testing.T) {
	t.Run("clean snapshot has no findings", func(t *testing.T) {
		s := &Snapshot{BaseRoutes: []ReferenceEntry{sampleEntry("base-1", LayerBase)}}
		if findings := s.Lint(); len(findings) != 0 {
			t.Errorf("unexpected findings: %v", findings)
		}
	})

	t.Run("missing attributes flagged", func(t *testing.T) {
		e := sampleEntry("base-1", LayerBase)
		e.RouteAttributes = nil
		s := &Snapshot{BaseRoutes: []ReferenceEntry{e}}
		if findings := s.Lint(); len(findings) == 0 {
			t.Error("expected a finding for missing route attributes")
		}
	})

	t.Run("negative amount flagged", func(t *testing.T) {
		e := sampleEntry("base-1", LayerBase)
		e.RateRule.Components[0].Amount = decimal.RequireFromString("-5")
		s := &Snapshot{BaseRoutes: []ReferenceEntry{e}}
		if findings := s.Lint(); len(findings) == 0 {
			t.Error("expected a finding for a negative amount")
		}
	})

	t.Run("overlapping windows flagged as conflict", func(t *testing.T) {
		a := sampleEntry("base-1", LayerBase)
		a.MatchKey.EffectiveFrom = datePtr(t, "2024-01-01")
		a.MatchKey.EffectiveTo = datePtr(t, "2024-03-31")
		b := sampleEntry("base-2", LayerBase)
		b.MatchKey.EffectiveFrom = datePtr(t, "2024-03-31")
		b.MatchKey.EffectiveTo = datePtr(t, "2024-06-30")

		s := &Snapshot{BaseRoutes: []ReferenceEntry{a, b}}
		findings := s.Lint()
		found := false
		for _, f := range findings {
			if errors.IsConflict(f) {
				found = true
			}
		}
		if !found {
			t.Errorf("expected an overlap conflict, findings: %v", findings)
		}
	})

	t.Run("disjoint windows are clean", func(t *testing.T) {
		a := sampleEntry("base-1", LayerBase)
		a.MatchKey.EffectiveTo = datePtr(t, "2024-03-31")
		b := sampleEntry("base-2", LayerBase)
		b.MatchKey.EffectiveFrom = datePtr(t, "2024-04-01")

		s := &Snapshot{BaseRoutes: []ReferenceEntry{a, b}}
		for _, f := range s.Lint() {
			if errors.IsConflict(f) {
				t.Errorf("unexpected conflict finding: %v", f)
			}
		}
	})

	t.Run("different selectors never overlap", func(t *testing.T) {
		a := sampleEntry("base-1", LayerBase)
		b := sampleEntry("base-2", LayerBase)
		b.MatchKey.Destination = "C"

		s := &Snapshot{BaseRoutes: []ReferenceEntry{a, b}}
		for _, f := range s.Lint() {
			if errors.IsConflict(f) {
				t.Errorf("unexpected conflict finding: %v", f)
			}
		}
	})
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(
		[]ReferenceEntry{sampleEntry("base-1", LayerBase)},
		[]ReferenceEntry{sampleEntry("exc-1", LayerException)},
		nil,
	)

	snap, err := store.Snapshot(ctx)
	if err != nil {
		t.Fatalf("Snapshot() error: %v", err)
	}
	if snap.Len() != 2 {
		t.Errorf("snapshot Len() = %d, want 2", snap.Len())
	}
	if snap.SnapshotAt.IsZero() {
		t.Error("snapshot should carry a timestamp")
	}

	t.Run("returned slices are copies", func(t *testing.T) {
		base, err := store.LoadBaseRoutes(ctx)
		if err != nil {
			t.Fatalf("LoadBaseRoutes() error: %v", err)
		}
		base[0].ID = "mutated"

		again, err := store.LoadBaseRoutes(ctx)
		if err != nil {
			t.Fatalf("LoadBaseRoutes() error: %v", err)
		}
		if again[0].ID != "base-1" {
			t.Error("store contents must not be mutable through returned slices")
		}
	})

	t.Run("SetLayer replaces a table", func(t *testing.T) {
		store.SetLayer(LayerOverride, []ReferenceEntry{sampleEntry("ovr-1", LayerOverride)})
		overrides, err := store.LoadOverrides(ctx)
		if err != nil {
			t.Fatalf("LoadOverrides() error: %v", err)
		}
		if len(overrides) != 1 || overrides[0].ID != "ovr-1" {
			t.Errorf("unexpected overrides: %v", overrides)
		}
	})
}
