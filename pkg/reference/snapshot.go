package reference

import (
	"time"

	"github.com/railstation/railrec/pkg/errors"
)

// Snapshot is a frozen view of the three reference tables as of a moment in
// time. A run loads exactly one snapshot, shares it across workers without
// copying, and never mutates it.
type Snapshot struct {
	SnapshotAt time.Time        `json:"snapshot_at" yaml:"snapshot_at"`
	BaseRoutes []ReferenceEntry `json:"base_routes" yaml:"base_routes"`
	Exceptions []ReferenceEntry `json:"exceptions" yaml:"exceptions"`
	Overrides  []ReferenceEntry `json:"overrides" yaml:"overrides"`
}

// Entries returns the table belonging to a layer.
func (s *Snapshot) Entries(layer Layer) []ReferenceEntry {
	switch layer {
	case LayerBase:
		return s.BaseRoutes
	case LayerException:
		return s.Exceptions
	case LayerOverride:
		return s.Overrides
	default:
		return nil
	}
}

// Len returns the total entry count across all layers.
func (s *Snapshot) Len() int {
	if s == nil {
		return 0
	}
	return len(s.BaseRoutes) + len(s.Exceptions) + len(s.Overrides)
}

// Validate checks the snapshot is structurally usable for a run. A nil or
// entirely empty snapshot is the only condition that fails a run before any
// shipment is processed.
func (s *Snapshot) Validate() error {
	if s == nil {
		return errors.NewSnapshotError("snapshot is nil", nil)
	}
	if s.Len() == 0 {
		return errors.NewSnapshotError("no entries in any layer", nil)
	}
	return nil
}

// Entry looks up an entry by ID across all layers.
func (s *Snapshot) Entry(id string) (*ReferenceEntry, error) {
	for _, layer := range Layers() {
		entries := s.Entries(layer)
		for i := range entries {
			if entries[i].ID == id {
				return &entries[i], nil
			}
		}
	}
	return nil, errors.NewNotFoundError("reference entry", id)
}
